// Package identity manages the device identity lifecycle: first-use key
// generation, encrypted persistence, and controlled replacement on
// backup import.
package identity

import (
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"parley/internal/crypto"
	"parley/internal/domain"
)

// Service owns the local device's key pairs.
//
// The identity contains:
//   - An X25519 key pair receiving wrapped room keys.
//   - An Ed25519 key pair signing outgoing key grants.
type Service struct {
	store domain.IdentityStore

	mu      sync.Mutex
	current *domain.Identity
}

// New returns an identity service backed by the given store.
func New(s domain.IdentityStore) *Service { return &Service{store: s} }

// EnsureIdentity loads the device identity, generating and persisting a
// fresh one on first use. An existing identity is never regenerated: a
// load failure other than "not found" (unreadable storage, wrong
// passphrase) surfaces as ErrIdentityUnavailable and blocks chat for the
// session.
func (s *Service) EnsureIdentity(passphrase string) (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current != nil {
		return *s.current, nil
	}

	id, err := s.store.LoadIdentity(passphrase)
	switch {
	case err == nil:
		s.current = &id
		return id, nil
	case errors.Is(err, domain.ErrNotFound):
		// First use on this device.
	default:
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrIdentityUnavailable, err)
	}

	xPriv, xPub, err := crypto.GenerateX25519()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrIdentityUnavailable, err)
	}
	edPriv, edPub, err := crypto.GenerateEd25519()
	if err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrIdentityUnavailable, err)
	}

	id = domain.Identity{
		DeviceID: uuid.New().String(),
		XPub:     xPub,
		XPriv:    xPriv,
		EdPub:    edPub,
		EdPriv:   edPriv,
	}
	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		return domain.Identity{}, fmt.Errorf("%w: %v", domain.ErrIdentityUnavailable, err)
	}
	s.current = &id
	return id, nil
}

// Identity returns the active identity. EnsureIdentity must have
// succeeded first.
func (s *Service) Identity() (domain.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return domain.Identity{}, domain.ErrIdentityUnavailable
	}
	return *s.current, nil
}

// Fingerprint returns a short fingerprint of the X25519 public key.
func (s *Service) Fingerprint() (string, error) {
	id, err := s.Identity()
	if err != nil {
		return "", err
	}
	return crypto.Fingerprint(id.XPub.Slice()), nil
}

// Replace installs an imported identity, superseding the current one.
// Callers must treat this as a fresh session start.
func (s *Service) Replace(passphrase string, id domain.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveIdentity(passphrase, id); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrIdentityUnavailable, err)
	}
	s.current = &id
	return nil
}

// DeviceKey returns this device's public key material for relay
// registration under the given user.
func (s *Service) DeviceKey(userID string) (domain.DeviceKey, error) {
	id, err := s.Identity()
	if err != nil {
		return domain.DeviceKey{}, err
	}
	return domain.DeviceKey{
		UserID:   userID,
		DeviceID: id.DeviceID,
		XPub:     id.XPub,
		EdPub:    id.EdPub,
	}, nil
}

// Compile-time assertion that Service implements domain.IdentityService.
var _ domain.IdentityService = (*Service)(nil)
