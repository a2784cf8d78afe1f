// Package backup moves the device's private key material through a
// passphrase-encrypted portable blob.
package backup

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"

	passwordvalidator "github.com/wagslane/go-password-validator"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"

	"parley/internal/crypto"
	"parley/internal/domain"
)

const (
	// The current supported version of the portable backup format.
	backupFormatVersion = 1

	// Argon2id cost parameters. Deliberately slow: the blob travels and
	// the passphrase is all that protects it.
	argonTime    = 3
	argonMemory  = 64 * 1024 // KiB
	argonThreads = 4

	// minPassphraseEntropy is the acceptance bar for export passphrases,
	// in bits as estimated by go-password-validator.
	minPassphraseEntropy = 60
)

// blob is the portable backup structure. It carries its own salt and KDF
// parameters so any device can restore it.
type blob struct {
	V       int    `json:"v"`
	Salt    []byte `json:"salt"`
	Time    uint32 `json:"argon_time"`
	Memory  uint32 `json:"argon_memory"`
	Threads uint8  `json:"argon_threads"`
	Nonce   []byte `json:"nonce"`
	Cipher  []byte `json:"cipher"`
}

// Service exports and imports device identities.
type Service struct {
	ids   domain.IdentityService
	vault domain.RoomKeyVault

	// storePassphrase seals the imported identity into the local store.
	storePassphrase string
}

// New constructs a backup service. storePassphrase is the local keystore
// passphrase, not the backup passphrase.
func New(ids domain.IdentityService, vault domain.RoomKeyVault, storePassphrase string) *Service {
	return &Service{ids: ids, vault: vault, storePassphrase: storePassphrase}
}

// Export encrypts the active identity under a passphrase-derived key and
// returns the portable blob. Weak passphrases are rejected up front.
func (s *Service) Export(ctx context.Context, passphrase string) ([]byte, error) {
	if err := passwordvalidator.Validate(passphrase, minPassphraseEntropy); err != nil {
		return nil, fmt.Errorf("backup passphrase too weak: %w", err)
	}
	id, err := s.ids.Identity()
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(id)
	if err != nil {
		return nil, err
	}

	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key := argon2.IDKey([]byte(passphrase), salt, argonTime, argonMemory, argonThreads, chacha20poly1305.KeySize)
	defer crypto.Wipe(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, err
	}
	ct := aead.Seal(nil, nonce, raw, salt)
	crypto.Wipe(raw)

	return json.Marshal(blob{
		V:       backupFormatVersion,
		Salt:    salt,
		Time:    argonTime,
		Memory:  argonMemory,
		Threads: argonThreads,
		Nonce:   nonce,
		Cipher:  ct,
	})
}

// Import restores an identity from a backup blob. All-or-nothing: any
// failure, including a wrong passphrase, leaves the current identity
// untouched. On success the imported identity replaces the active one
// and the room-key cache is reset — callers must treat this like a
// fresh session start.
//
// The operation honors ctx up to the commit point; once the identity is
// replaced there is no way back short of importing again.
func (s *Service) Import(ctx context.Context, passphrase string, raw []byte) error {
	var bl blob
	if err := json.Unmarshal(raw, &bl); err != nil {
		return domain.ErrBackupInvalid
	}
	if bl.V > backupFormatVersion || len(bl.Salt) == 0 {
		return domain.ErrBackupInvalid
	}
	// The KDF parameters come from the blob and argon2 panics on zero
	// rounds or threads; bound them before deriving.
	if bl.Time < 1 || bl.Threads < 1 || bl.Memory < 8*uint32(bl.Threads) || bl.Memory > 4*1024*1024 {
		return domain.ErrBackupInvalid
	}

	key := argon2.IDKey([]byte(passphrase), bl.Salt, bl.Time, bl.Memory, bl.Threads, chacha20poly1305.KeySize)
	defer crypto.Wipe(key)

	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return domain.ErrBackupInvalid
	}
	if len(bl.Nonce) != aead.NonceSize() {
		return domain.ErrBackupInvalid
	}
	pt, err := aead.Open(nil, bl.Nonce, bl.Cipher, bl.Salt)
	if err != nil {
		return domain.ErrBackupInvalid
	}

	var id domain.Identity
	if err := json.Unmarshal(pt, &id); err != nil {
		crypto.Wipe(pt)
		return domain.ErrBackupInvalid
	}
	crypto.Wipe(pt)

	// The blob decrypted, but make sure it holds a coherent key pair
	// before committing to it.
	pub, err := crypto.PublicOf(id.XPriv)
	if err != nil || pub != id.XPub || id.DeviceID == "" {
		return domain.ErrBackupInvalid
	}

	// Last chance to cancel; Replace is the point of no return.
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ids.Replace(s.storePassphrase, id); err != nil {
		return err
	}
	// The new identity cannot use keys unwrapped by the old one.
	return s.vault.Reset()
}

// Compile-time assertion that Service implements domain.BackupService.
var _ domain.BackupService = (*Service)(nil)
