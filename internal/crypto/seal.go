package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"

	"parley/internal/domain"
)

// SealMessage encrypts plaintext under the room key with ChaCha20-Poly1305
// and a random nonce. ad is bound as associated data.
func SealMessage(key domain.RoomKey, plaintext, ad []byte) (nonce, cipher []byte, err error) {
	aead, err := chacha20poly1305.New(key.Slice())
	if err != nil {
		return nil, nil, fmt.Errorf("create AEAD: %w", err)
	}
	nonce = make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("generate nonce: %w", err)
	}
	cipher = aead.Seal(nil, nonce, plaintext, ad)
	return nonce, cipher, nil
}

// OpenMessage decrypts a sealed message. A failure here means the key is
// wrong or the ciphertext was tampered with.
func OpenMessage(key domain.RoomKey, nonce, cipher, ad []byte) ([]byte, error) {
	if len(cipher) == 0 {
		return nil, errors.New("ciphertext is required")
	}
	aead, err := chacha20poly1305.New(key.Slice())
	if err != nil {
		return nil, fmt.Errorf("create AEAD: %w", err)
	}
	if len(nonce) != aead.NonceSize() {
		return nil, fmt.Errorf("invalid nonce length: got %d want %d", len(nonce), aead.NonceSize())
	}
	return aead.Open(nil, nonce, cipher, ad)
}
