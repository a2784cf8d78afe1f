package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"parley/internal/domain"
)

// SaveMessage inserts a decrypted message row. It reports whether a row
// was actually inserted: false means the ID was already cached, so the
// call was a redelivery and must not count again.
func (s *ChatStore) SaveMessage(m domain.ChatMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.ID == "" {
		return false, errors.New("message id is required")
	}
	if m.ConversationID == "" {
		return false, errors.New("conversation id is required")
	}
	if m.Type == "" {
		m.Type = domain.MessageText
	}
	if m.CreatedAt == 0 {
		m.CreatedAt = time.Now().UnixMilli()
	}

	res, err := s.db.Exec(
		`INSERT INTO messages (id, conversation_id, sender_id, type, plaintext, created_at, edited_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO NOTHING`,
		m.ID, m.ConversationID, m.SenderID, string(m.Type), m.Plaintext, m.CreatedAt, m.EditedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert message %q: %w", m.ID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Messages returns a conversation's messages in arrival order.
func (s *ChatStore) Messages(conversationID string, limit, offset int) ([]domain.ChatMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := s.db.Query(
		`SELECT id, conversation_id, sender_id, type, plaintext, created_at, edited_at
		 FROM messages
		 WHERE conversation_id = ?
		 ORDER BY created_at ASC, id ASC
		 LIMIT ? OFFSET ?`,
		conversationID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("get messages of %q: %w", conversationID, err)
	}
	defer rows.Close()

	out := make([]domain.ChatMessage, 0)
	for rows.Next() {
		var m domain.ChatMessage
		var typ string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &typ, &m.Plaintext, &m.CreatedAt, &m.EditedAt); err != nil {
			return nil, fmt.Errorf("scan message row: %w", err)
		}
		m.Type = domain.MessageType(typ)
		out = append(out, m)
	}
	return out, rows.Err()
}

// UpdateMessageBody edits a message. Only the original sender's edits
// take effect.
func (s *ChatStore) UpdateMessageBody(messageID, senderID, plaintext string, editedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE messages SET plaintext = ?, edited_at = ? WHERE id = ? AND sender_id = ?`,
		plaintext, editedAt, messageID, senderID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ApplyRemoteEdit reconciles a re-sent envelope against an existing row.
// The body only changes when the sender matches and the plaintext
// actually differs, so a plain redelivery never marks a message edited.
func (s *ChatStore) ApplyRemoteEdit(messageID, senderID, plaintext string, editedAt int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`UPDATE messages SET plaintext = ?, edited_at = ?
		 WHERE id = ? AND sender_id = ? AND plaintext <> ?`,
		plaintext, editedAt, messageID, senderID, plaintext)
	return err
}

// DeleteMessage removes a message, sender-scoped like edits.
func (s *ChatStore) DeleteMessage(messageID, senderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.db.Exec(`DELETE FROM pins WHERE message_id = ?`, messageID); err != nil {
		return err
	}
	res, err := s.db.Exec(
		`DELETE FROM messages WHERE id = ? AND sender_id = ?`, messageID, senderID)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// MessageCount reports how many messages are cached for a conversation.
func (s *ChatStore) MessageCount(conversationID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM messages WHERE conversation_id = ?`, conversationID).Scan(&n)
	return n, err
}

// SavePin records a pin annotation.
func (s *ChatStore) SavePin(p domain.Pin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.CreatedAt == 0 {
		p.CreatedAt = time.Now().UnixMilli()
	}
	_, err := s.db.Exec(
		`INSERT INTO pins (conversation_id, message_id, pinned_by, created_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(conversation_id, message_id) DO NOTHING`,
		p.ConversationID, p.MessageID, p.PinnedBy, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert pin %q: %w", p.MessageID, err)
	}
	return nil
}

// Pins lists a conversation's pins, oldest first.
func (s *ChatStore) Pins(conversationID string) ([]domain.Pin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT conversation_id, message_id, pinned_by, created_at
		 FROM pins WHERE conversation_id = ? ORDER BY created_at ASC`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("get pins of %q: %w", conversationID, err)
	}
	defer rows.Close()

	out := make([]domain.Pin, 0)
	for rows.Next() {
		var p domain.Pin
		if err := rows.Scan(&p.ConversationID, &p.MessageID, &p.PinnedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// DeletePin removes a pin annotation.
func (s *ChatStore) DeletePin(conversationID, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(
		`DELETE FROM pins WHERE conversation_id = ? AND message_id = ?`,
		conversationID, messageID)
	return err
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}
