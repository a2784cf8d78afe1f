package store

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"parley/internal/domain"
)

// DefaultDBFileName is the SQLite filename under the home dir.
const DefaultDBFileName = "chat.db"

var chatMigrations = []string{
	`
CREATE TABLE IF NOT EXISTS conversations (
  id              TEXT PRIMARY KEY,
  type            TEXT NOT NULL CHECK(type IN ('direct','group')),
  name            TEXT NOT NULL DEFAULT '',
  avatar_url      TEXT NOT NULL DEFAULT '',
  direct_key      TEXT UNIQUE,
  last_message_at INTEGER NOT NULL DEFAULT 0,
  last_preview    TEXT NOT NULL DEFAULT '',
  unread          INTEGER NOT NULL DEFAULT 0,
  created_at      INTEGER NOT NULL
);
`,
	`
CREATE TABLE IF NOT EXISTS members (
  conversation_id TEXT NOT NULL REFERENCES conversations(id),
  user_id         TEXT NOT NULL,
  role            TEXT NOT NULL CHECK(role IN ('owner','admin','member')),
  added_at        INTEGER NOT NULL,
  PRIMARY KEY (conversation_id, user_id)
);
`,
	`
CREATE TABLE IF NOT EXISTS messages (
  id              TEXT PRIMARY KEY,
  conversation_id TEXT NOT NULL REFERENCES conversations(id),
  sender_id       TEXT NOT NULL,
  type            TEXT NOT NULL CHECK(type IN ('text','image')),
  plaintext       TEXT NOT NULL,
  created_at      INTEGER NOT NULL,
  edited_at       INTEGER NOT NULL DEFAULT 0
);
`,
	`
CREATE TABLE IF NOT EXISTS pins (
  conversation_id TEXT NOT NULL REFERENCES conversations(id),
  message_id      TEXT NOT NULL REFERENCES messages(id),
  pinned_by       TEXT NOT NULL,
  created_at      INTEGER NOT NULL,
  PRIMARY KEY (conversation_id, message_id)
);
`,
	`
CREATE INDEX IF NOT EXISTS idx_messages_conv_time
ON messages (conversation_id, created_at);
`,
}

// ChatStore is the SQLite-backed local cache of conversations, members,
// decrypted messages and pins.
type ChatStore struct {
	db *sql.DB
	mu sync.Mutex
}

// OpenChatStore opens (creating if needed) the chat database under dir
// and applies migrations.
func OpenChatStore(dir string) (*ChatStore, error) {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on",
		filepath.Join(dir, DefaultDBFileName))
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open chat db: %w", err)
	}
	for i, m := range chatMigrations {
		if _, err := db.Exec(m); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply migration %d: %w", i, err)
		}
	}
	return &ChatStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *ChatStore) Close() error { return s.db.Close() }

// DirectPairKey builds the canonical lookup key for a direct conversation
// between two users. Order-independent, so CreateDirect stays idempotent.
func DirectPairKey(a, b string) string {
	ids := []string{a, b}
	sort.Strings(ids)
	return strings.Join(ids, "|")
}

// UpsertConversation inserts or refreshes a conversation row and its
// member set.
func (s *ChatStore) UpsertConversation(c domain.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID == "" {
		return errors.New("conversation id is required")
	}
	if c.Type != domain.ConversationDirect && c.Type != domain.ConversationGroup {
		return fmt.Errorf("invalid conversation type %q", c.Type)
	}
	if c.CreatedAt == 0 {
		c.CreatedAt = time.Now().UnixMilli()
	}

	var directKey any
	if c.Type == domain.ConversationDirect {
		if len(c.Members) != 2 {
			return errors.New("direct conversation needs exactly two members")
		}
		directKey = DirectPairKey(c.Members[0].UserID, c.Members[1].UserID)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(
		`INSERT INTO conversations (id, type, name, avatar_url, direct_key, last_message_at, last_preview, unread, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET name=excluded.name, avatar_url=excluded.avatar_url`,
		c.ID, string(c.Type), c.Name, c.AvatarURL, directKey,
		c.LastMessageAt, c.LastPreview, c.Unread, c.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert conversation %q: %w", c.ID, err)
	}
	if err := saveMembersTx(tx, c.ID, c.Members); err != nil {
		return err
	}
	return tx.Commit()
}

// Conversation loads one conversation with its members.
func (s *ChatStore) Conversation(id string) (domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conversationLocked(id)
}

func (s *ChatStore) conversationLocked(id string) (domain.Conversation, error) {
	var c domain.Conversation
	var typ string
	err := s.db.QueryRow(
		`SELECT id, type, name, avatar_url, last_message_at, last_preview, unread, created_at
		 FROM conversations WHERE id = ?`, id,
	).Scan(&c.ID, &typ, &c.Name, &c.AvatarURL, &c.LastMessageAt, &c.LastPreview, &c.Unread, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Conversation{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Conversation{}, fmt.Errorf("get conversation %q: %w", id, err)
	}
	c.Type = domain.ConversationType(typ)
	c.Members, err = s.membersLocked(id)
	if err != nil {
		return domain.Conversation{}, err
	}
	return c, nil
}

// DirectConversation looks a direct chat up by its member-pair key.
func (s *ChatStore) DirectConversation(pairKey string) (domain.Conversation, bool, error) {
	s.mu.Lock()
	var id string
	err := s.db.QueryRow(`SELECT id FROM conversations WHERE direct_key = ?`, pairKey).Scan(&id)
	s.mu.Unlock()
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Conversation{}, false, nil
	}
	if err != nil {
		return domain.Conversation{}, false, fmt.Errorf("lookup direct %q: %w", pairKey, err)
	}
	c, err := s.Conversation(id)
	if err != nil {
		return domain.Conversation{}, false, err
	}
	return c, true, nil
}

// ListConversations returns every cached conversation, most recently
// active first.
func (s *ChatStore) ListConversations() ([]domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(
		`SELECT id FROM conversations ORDER BY last_message_at DESC, created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	out := make([]domain.Conversation, 0, len(ids))
	for _, id := range ids {
		c, err := s.conversationLocked(id)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// SetLastMessage updates the preview fields shown in conversation lists.
func (s *ChatStore) SetLastMessage(id string, at int64, preview string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(
		`UPDATE conversations SET last_message_at = ?, last_preview = ? WHERE id = ?`,
		at, preview, id)
	return err
}

// IncrementUnread bumps the unread counter.
func (s *ChatStore) IncrementUnread(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE conversations SET unread = unread + 1 WHERE id = ?`, id)
	return err
}

// ResetUnread clears the unread counter, e.g. when a conversation opens.
func (s *ChatStore) ResetUnread(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`UPDATE conversations SET unread = 0 WHERE id = ?`, id)
	return err
}

// SaveMembers merges members into a conversation. Users already present
// keep their added_at but take the incoming role, so a remote promotion
// lands here on the next refresh.
func (s *ChatStore) SaveMembers(conversationID string, members []domain.Member) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	for _, m := range members {
		role := m.Role
		if role == "" {
			role = domain.RoleMember
		}
		addedAt := m.AddedAt
		if addedAt == 0 {
			addedAt = time.Now().UnixMilli()
		}
		_, err := tx.Exec(
			`INSERT INTO members (conversation_id, user_id, role, added_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(conversation_id, user_id) DO UPDATE SET role = excluded.role`,
			conversationID, m.UserID, string(role), addedAt,
		)
		if err != nil {
			return fmt.Errorf("save member %q: %w", m.UserID, err)
		}
	}
	return tx.Commit()
}

func saveMembersTx(tx *sql.Tx, conversationID string, members []domain.Member) error {
	for _, m := range members {
		role := m.Role
		if role == "" {
			role = domain.RoleMember
		}
		addedAt := m.AddedAt
		if addedAt == 0 {
			addedAt = time.Now().UnixMilli()
		}
		_, err := tx.Exec(
			`INSERT INTO members (conversation_id, user_id, role, added_at)
			 VALUES (?, ?, ?, ?)
			 ON CONFLICT(conversation_id, user_id) DO NOTHING`,
			conversationID, m.UserID, string(role), addedAt,
		)
		if err != nil {
			return fmt.Errorf("save member %q: %w", m.UserID, err)
		}
	}
	return nil
}

// Members lists a conversation's members.
func (s *ChatStore) Members(conversationID string) ([]domain.Member, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.membersLocked(conversationID)
}

func (s *ChatStore) membersLocked(conversationID string) ([]domain.Member, error) {
	rows, err := s.db.Query(
		`SELECT user_id, role, added_at FROM members WHERE conversation_id = ? ORDER BY added_at, user_id`,
		conversationID)
	if err != nil {
		return nil, fmt.Errorf("get members of %q: %w", conversationID, err)
	}
	defer rows.Close()

	out := make([]domain.Member, 0)
	for rows.Next() {
		var m domain.Member
		var role string
		if err := rows.Scan(&m.UserID, &role, &m.AddedAt); err != nil {
			return nil, err
		}
		m.Role = domain.Role(role)
		out = append(out, m)
	}
	return out, rows.Err()
}

// MemberRole returns the caller's role, or domain.ErrNotFound for
// non-members.
func (s *ChatStore) MemberRole(conversationID, userID string) (domain.Role, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var role string
	err := s.db.QueryRow(
		`SELECT role FROM members WHERE conversation_id = ? AND user_id = ?`,
		conversationID, userID).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return domain.Role(role), nil
}

// SetMemberRole updates one member's role.
func (s *ChatStore) SetMemberRole(conversationID, userID string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(
		`UPDATE members SET role = ? WHERE conversation_id = ? AND user_id = ?`,
		string(role), conversationID, userID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Compile-time assertion that ChatStore implements domain.ChatStore.
var _ domain.ChatStore = (*ChatStore)(nil)
