// Package codec turns plaintext into wire envelopes and back, given a
// resolved room key from the vault.
package codec

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"parley/internal/content"
	"parley/internal/crypto"
	"parley/internal/domain"
)

// Service encrypts, sends, fetches and decrypts messages.
//
// High-level flow:
//   - Send: resolve the room key, seal the payload, post the envelope,
//     cache the plaintext copy locally.
//   - Receive: fetch envelopes in server order, decode each, park the
//     ones whose key has not arrived yet, and ack only the leading run
//     of fully processed envelopes.
type Service struct {
	ids    domain.IdentityService
	vault  domain.RoomKeyVault
	chats  domain.ChatStore
	relay  domain.RelayClient
	userID string

	mu     sync.Mutex
	parked map[string][]domain.CipherEnvelope
}

// New constructs a message service. It registers with the vault so that
// parked envelopes retry as soon as their key installs.
func New(ids domain.IdentityService, vault domain.RoomKeyVault, chats domain.ChatStore, relay domain.RelayClient, userID string) *Service {
	s := &Service{
		ids:    ids,
		vault:  vault,
		chats:  chats,
		relay:  relay,
		userID: userID,
		parked: make(map[string][]domain.CipherEnvelope),
	}
	vault.OnInstall(s.flushParked)
	return s
}

// Encode seals plaintext into a wire envelope. A device without the room
// key gets ErrMissingRoomKey, never ciphertext.
func (s *Service) Encode(conversationID, plaintext string, typ domain.MessageType) (domain.CipherEnvelope, error) {
	key, err := s.vault.Key(conversationID)
	if err != nil {
		return domain.CipherEnvelope{}, err
	}

	env := domain.CipherEnvelope{
		V:              domain.EnvelopeVersion,
		MessageID:      uuid.New().String(),
		ConversationID: conversationID,
		SenderID:       s.userID,
		Type:           typ,
		Timestamp:      time.Now().UnixMilli(),
	}
	nonce, cipher, err := crypto.SealMessage(key, []byte(plaintext), envelopeAD(env))
	if err != nil {
		return domain.CipherEnvelope{}, fmt.Errorf("seal message: %w", err)
	}
	env.Nonce = nonce
	env.Cipher = cipher
	return env, nil
}

// Decode opens a wire envelope. ErrMissingRoomKey means "key not here
// yet" and is retryable; ErrDecodeFailed means the envelope cannot be
// decrypted with the key we hold and must never render as message text.
func (s *Service) Decode(env domain.CipherEnvelope) (domain.ChatMessage, error) {
	if env.V != domain.EnvelopeVersion {
		return domain.ChatMessage{}, fmt.Errorf("%w: unsupported envelope version %d", domain.ErrDecodeFailed, env.V)
	}
	key, err := s.vault.Key(env.ConversationID)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	plain, err := crypto.OpenMessage(key, env.Nonce, env.Cipher, envelopeAD(env))
	if err != nil {
		return domain.ChatMessage{}, fmt.Errorf("%w: %v", domain.ErrDecodeFailed, err)
	}
	return domain.ChatMessage{
		ID:             env.MessageID,
		ConversationID: env.ConversationID,
		SenderID:       env.SenderID,
		Type:           env.Type,
		Plaintext:      string(plain),
		CreatedAt:      env.Timestamp,
	}, nil
}

// Send encrypts and posts a message, then caches the sender's copy.
func (s *Service) Send(ctx context.Context, conversationID, plaintext string, typ domain.MessageType) (domain.ChatMessage, error) {
	env, err := s.Encode(conversationID, plaintext, typ)
	if err != nil {
		return domain.ChatMessage{}, err
	}
	if err := s.relay.SendEnvelope(ctx, env); err != nil {
		return domain.ChatMessage{}, fmt.Errorf("send envelope: %w", err)
	}

	msg := domain.ChatMessage{
		ID:             env.MessageID,
		ConversationID: conversationID,
		SenderID:       s.userID,
		Type:           typ,
		Plaintext:      plaintext,
		CreatedAt:      env.Timestamp,
	}
	if _, err := s.chats.SaveMessage(msg); err != nil {
		return domain.ChatMessage{}, err
	}
	if err := s.chats.SetLastMessage(conversationID, msg.CreatedAt, Preview(msg)); err != nil {
		return domain.ChatMessage{}, err
	}
	return msg, nil
}

// Receive fetches pending envelopes for this device and decodes them in
// server order.
//
// An envelope whose room key is missing is parked and retried when the
// key installs; it is not acked, so it stays queued on the relay as
// well. A per-message decode failure is skipped without blocking the
// rest of the conversation. Only the leading run of fully processed
// envelopes is acked.
func (s *Service) Receive(ctx context.Context, limit int) ([]domain.ChatMessage, error) {
	id, err := s.ids.Identity()
	if err != nil {
		return nil, err
	}
	envs, err := s.relay.FetchEnvelopes(ctx, id.DeviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch envelopes: %w", err)
	}

	out := make([]domain.ChatMessage, 0, len(envs))
	processed := 0
	prefix := true

	for _, env := range envs {
		msg, err := s.Decode(env)
		switch {
		case errors.Is(err, domain.ErrMissingRoomKey):
			s.park(env)
			prefix = false
			continue
		case errors.Is(err, domain.ErrDecodeFailed):
			// One bad message does not block the conversation.
			if prefix {
				processed++
			}
			continue
		case err != nil:
			return out, err
		}

		if err := s.apply(msg); err != nil {
			return out, err
		}
		out = append(out, msg)
		if prefix {
			processed++
		}
	}

	if processed > 0 {
		if err := s.relay.AckEnvelopes(ctx, id.DeviceID, processed); err != nil {
			return out, fmt.Errorf("ack %d envelopes: %w", processed, err)
		}
	}
	return out, nil
}

// Edit replaces a message body. Sender-scoped: the store rejects edits
// of other users' messages.
func (s *Service) Edit(ctx context.Context, conversationID, messageID, plaintext string) error {
	editedAt := time.Now().UnixMilli()
	if err := s.chats.UpdateMessageBody(messageID, s.userID, plaintext, editedAt); err != nil {
		return err
	}

	key, err := s.vault.Key(conversationID)
	if err != nil {
		return err
	}
	env := domain.CipherEnvelope{
		V:              domain.EnvelopeVersion,
		MessageID:      messageID,
		ConversationID: conversationID,
		SenderID:       s.userID,
		Type:           domain.MessageText,
		Timestamp:      editedAt,
	}
	nonce, cipher, err := crypto.SealMessage(key, []byte(plaintext), envelopeAD(env))
	if err != nil {
		return fmt.Errorf("seal edit: %w", err)
	}
	env.Nonce = nonce
	env.Cipher = cipher
	return s.relay.SendEnvelope(ctx, env)
}

// Delete removes the sender's own message from the local cache. Server
// side removal is the transport collaborator's CRUD.
func (s *Service) Delete(ctx context.Context, conversationID, messageID string) error {
	return s.chats.DeleteMessage(messageID, s.userID)
}

// FlushParked retries parked envelopes for a conversation. Exposed for
// callers that install keys out of band; the vault callback covers the
// normal path.
func (s *Service) FlushParked(conversationID string) { s.flushParked(conversationID) }

func (s *Service) park(env domain.CipherEnvelope) {
	s.mu.Lock()
	s.parked[env.ConversationID] = append(s.parked[env.ConversationID], env)
	s.mu.Unlock()
}

func (s *Service) flushParked(conversationID string) {
	s.mu.Lock()
	envs := s.parked[conversationID]
	delete(s.parked, conversationID)
	s.mu.Unlock()

	for _, env := range envs {
		msg, err := s.Decode(env)
		if err != nil {
			// Still undecryptable with the installed key; drop it back
			// for the next install rather than marking it failed.
			if errors.Is(err, domain.ErrMissingRoomKey) {
				s.park(env)
			}
			continue
		}
		_ = s.apply(msg)
	}
}

// apply stores a decoded message and maintains the conversation's
// preview and unread counter. Idempotent: envelopes can be redelivered
// (parked runs are fetched again until acked), so an already-cached ID
// must not bump unread a second time. A known ID with different
// plaintext is the sender's edit and updates the body in place.
func (s *Service) apply(msg domain.ChatMessage) error {
	inserted, err := s.chats.SaveMessage(msg)
	if err != nil {
		return err
	}
	if !inserted {
		return s.chats.ApplyRemoteEdit(msg.ID, msg.SenderID, msg.Plaintext, msg.CreatedAt)
	}
	if err := s.chats.SetLastMessage(msg.ConversationID, msg.CreatedAt, Preview(msg)); err != nil {
		return err
	}
	if msg.SenderID != s.userID {
		if err := s.chats.IncrementUnread(msg.ConversationID); err != nil {
			return err
		}
	}
	return nil
}

// Preview renders the short conversation-list line for a message.
func Preview(msg domain.ChatMessage) string {
	if msg.Type == domain.MessageImage {
		return "Photo"
	}
	c := content.Unwrap(msg.Plaintext)
	switch c.T {
	case content.KindFile:
		return c.Name
	case content.KindAlbum:
		if c.Caption != "" {
			return c.Caption
		}
		return "Album"
	default:
		return truncate(c.Text, 80)
	}
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// envelopeAD binds the envelope header fields as associated data, so a
// ciphertext cannot be replayed under another conversation or sender.
func envelopeAD(env domain.CipherEnvelope) []byte {
	return []byte(env.ConversationID + "|" + env.MessageID + "|" + env.SenderID + "|" + string(env.Type))
}

// Compile-time assertion that Service implements domain.MessageService.
var _ domain.MessageService = (*Service)(nil)
