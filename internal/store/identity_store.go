package store

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sync"

	"parley/internal/domain"
)

const idFilename = "identity.json.enc"

// IdentityFileStore persists the local device identity to disk, sealed
// with a passphrase.
type IdentityFileStore struct {
	dir string
	mu  sync.Mutex
}

// NewIdentityFileStore returns an IdentityFileStore rooted at dir.
func NewIdentityFileStore(dir string) *IdentityFileStore {
	return &IdentityFileStore{dir: dir}
}

// SaveIdentity writes the encrypted identity to disk.
func (s *IdentityFileStore) SaveIdentity(passphrase string, id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := json.Marshal(id)
	if err != nil {
		return err
	}
	N, r, p := scryptParamsDefault()
	ct, err := sealBox(passphrase, raw, N, r, p)
	if err != nil {
		return err
	}
	return replaceFile(filepath.Join(s.dir, idFilename), ct, 0o600)
}

// LoadIdentity reads and decrypts the identity. A device that has never
// created one gets domain.ErrNotFound.
func (s *IdentityFileStore) LoadIdentity(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, err := os.ReadFile(filepath.Join(s.dir, idFilename))
	if errors.Is(err, os.ErrNotExist) {
		return domain.Identity{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Identity{}, err
	}
	pt, err := openBox(passphrase, b)
	if err != nil {
		return domain.Identity{}, err
	}
	var id domain.Identity
	if err := json.Unmarshal(pt, &id); err != nil {
		return domain.Identity{}, err
	}
	return id, nil
}

// Compile-time assertion that IdentityFileStore implements domain.IdentityStore.
var _ domain.IdentityStore = (*IdentityFileStore)(nil)
