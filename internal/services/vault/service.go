// Package vault resolves "does this device hold a usable key for this
// room?". It is a pure cache over the wrapped-key feed: it only ever
// unwraps material addressed to this device and never fabricates keys.
package vault

import (
	"errors"
	"fmt"
	"sync"

	"parley/internal/crypto"
	"parley/internal/domain"
)

// ErrGrantNotForDevice rejects a grant addressed to another device.
var ErrGrantNotForDevice = errors.New("key grant is not addressed to this device")

// ErrBadGrantSignature rejects a grant whose signature does not verify.
var ErrBadGrantSignature = errors.New("key grant signature invalid")

// Service caches per-conversation key state for the local device.
type Service struct {
	ids     domain.IdentityService
	keyring domain.KeyringStore

	mu        sync.Mutex
	states    map[string]domain.KeyState
	onInstall []func(conversationID string)
}

// New returns a vault over the given identity service and keyring.
func New(ids domain.IdentityService, keyring domain.KeyringStore) *Service {
	return &Service{
		ids:     ids,
		keyring: keyring,
		states:  make(map[string]domain.KeyState),
	}
}

// State resolves the key state for a conversation, consulting the
// keyring once and caching the answer.
func (s *Service) State(conversationID string) domain.KeyState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked(conversationID)
}

func (s *Service) stateLocked(conversationID string) domain.KeyState {
	if st, ok := s.states[conversationID]; ok && st != domain.KeyUnknown {
		return st
	}
	_, ok, err := s.keyring.LoadRoomKey(conversationID)
	if err != nil {
		// Leave Unknown so the next call re-resolves.
		return domain.KeyUnknown
	}
	st := domain.KeyMissing
	if ok {
		st = domain.KeyInstalled
	}
	s.states[conversationID] = st
	return st
}

// HasKey reports whether this device can encrypt/decrypt for the room.
func (s *Service) HasKey(conversationID string) bool {
	return s.State(conversationID) == domain.KeyInstalled
}

// Key returns the cached room key, or ErrMissingRoomKey. Absence is a
// normal state (new device, missed re-share), not a corruption.
func (s *Service) Key(conversationID string) (domain.RoomKey, error) {
	key, ok, err := s.keyring.LoadRoomKey(conversationID)
	if err != nil {
		return domain.RoomKey{}, err
	}
	if !ok {
		s.mu.Lock()
		s.states[conversationID] = domain.KeyMissing
		s.mu.Unlock()
		return domain.RoomKey{}, domain.ErrMissingRoomKey
	}
	return key, nil
}

// Install unwraps a grant addressed to this device and caches the room
// key. When signer is non-nil the grant signature is verified first.
// Registered OnInstall callbacks fire after the key is usable.
func (s *Service) Install(grant domain.KeyGrant, signer *domain.Ed25519Public) error {
	id, err := s.ids.Identity()
	if err != nil {
		return err
	}
	if grant.DeviceID != id.DeviceID {
		return ErrGrantNotForDevice
	}
	if signer != nil && !crypto.VerifyEd25519(*signer, grant.Signed(), grant.Sig) {
		return ErrBadGrantSignature
	}

	key, err := crypto.UnwrapRoomKey(id.XPriv, grant.Ephemeral, grant.Nonce, grant.Wrapped)
	if err != nil {
		return fmt.Errorf("install key for %q: %w", grant.ConversationID, err)
	}
	return s.Put(grant.ConversationID, key)
}

// Put caches a plaintext room key, e.g. one this device just generated.
func (s *Service) Put(conversationID string, key domain.RoomKey) error {
	if err := s.keyring.SaveRoomKey(conversationID, key); err != nil {
		return err
	}
	s.mu.Lock()
	s.states[conversationID] = domain.KeyInstalled
	callbacks := make([]func(string), len(s.onInstall))
	copy(callbacks, s.onInstall)
	s.mu.Unlock()

	for _, fn := range callbacks {
		fn(conversationID)
	}
	return nil
}

// Forget drops one conversation's key, forcing a re-resolve.
func (s *Service) Forget(conversationID string) error {
	if err := s.keyring.DeleteRoomKey(conversationID); err != nil {
		return err
	}
	s.mu.Lock()
	s.states[conversationID] = domain.KeyMissing
	s.mu.Unlock()
	return nil
}

// Reset drops the whole cache. Used after identity import: the new
// identity unwraps its own grants from scratch.
func (s *Service) Reset() error {
	if err := s.keyring.Reset(); err != nil {
		return err
	}
	s.mu.Lock()
	s.states = make(map[string]domain.KeyState)
	s.mu.Unlock()
	return nil
}

// OnInstall registers a callback fired whenever a key becomes usable.
func (s *Service) OnInstall(fn func(conversationID string)) {
	s.mu.Lock()
	s.onInstall = append(s.onInstall, fn)
	s.mu.Unlock()
}

// Compile-time assertion that Service implements domain.RoomKeyVault.
var _ domain.RoomKeyVault = (*Service)(nil)
