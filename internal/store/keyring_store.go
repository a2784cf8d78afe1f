package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"parley/internal/domain"
)

const keyringFile = "keyring.json" // map[conversationID]roomKeyEntry

type roomKeyEntry struct {
	Key domain.RoomKey `json:"key"`
	At  int64          `json:"at"`
}

// KeyringFileStore holds unwrapped room keys, one per conversation. The
// file is a plain JSON map: the keys inside are only as secret as the
// local disk, same trust level as the decrypted message cache.
type KeyringFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewKeyringFileStore returns a KeyringFileStore rooted at dir.
func NewKeyringFileStore(dir string) *KeyringFileStore {
	return &KeyringFileStore{dir: dir}
}

func (s *KeyringFileStore) path() string { return filepath.Join(s.dir, keyringFile) }

// SaveRoomKey records the unwrapped key for a conversation.
func (s *KeyringFileStore) SaveRoomKey(conversationID string, key domain.RoomKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[string]roomKeyEntry)
	if _, err := loadJSON(s.path(), &m); err != nil {
		return err
	}
	m[conversationID] = roomKeyEntry{Key: key, At: time.Now().Unix()}
	return storeJSON(s.path(), m, 0o600)
}

// LoadRoomKey fetches the cached key, if any.
func (s *KeyringFileStore) LoadRoomKey(conversationID string) (domain.RoomKey, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[string]roomKeyEntry)
	if _, err := loadJSON(s.path(), &m); err != nil {
		return domain.RoomKey{}, false, err
	}
	e, ok := m[conversationID]
	if !ok {
		return domain.RoomKey{}, false, nil
	}
	return e.Key, true, nil
}

// DeleteRoomKey drops one conversation's key.
func (s *KeyringFileStore) DeleteRoomKey(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := make(map[string]roomKeyEntry)
	found, err := loadJSON(s.path(), &m)
	if err != nil {
		return err
	}
	if !found {
		return nil
	}
	if _, ok := m[conversationID]; !ok {
		return nil
	}
	delete(m, conversationID)
	return storeJSON(s.path(), m, 0o600)
}

// Reset removes the whole cache, e.g. after an identity import.
func (s *KeyringFileStore) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path())
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return err
}

// Compile-time assertion that KeyringFileStore implements domain.KeyringStore.
var _ domain.KeyringStore = (*KeyringFileStore)(nil)
