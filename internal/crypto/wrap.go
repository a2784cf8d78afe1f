package crypto

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	"parley/internal/domain"
)

// wrapInfo binds the derived wrapping key to this protocol.
const wrapInfo = "parley-roomkey-wrap-v1"

// ErrUnwrapFailed means the grant was not addressed to this private key
// or the wrapped material is corrupt.
var ErrUnwrapFailed = errors.New("room key unwrap failed")

// NewRoomKey generates a fresh symmetric room key.
func NewRoomKey() (domain.RoomKey, error) {
	var key domain.RoomKey
	if _, err := rand.Read(key[:]); err != nil {
		return key, err
	}
	return key, nil
}

// WrapRoomKey seals a room key for one device public key. A one-shot
// X25519 pair is generated per wrap; the shared secret is expanded with
// HKDF-SHA256 into a ChaCha20-Poly1305 key. The recipient public key is
// mixed into the KDF info so a grant cannot be replayed to another device.
func WrapRoomKey(key domain.RoomKey, to domain.X25519Public) (eph domain.X25519Public, nonce, wrapped []byte, err error) {
	ephPriv, ephPub, err := GenerateX25519()
	if err != nil {
		return eph, nil, nil, err
	}
	defer Wipe(ephPriv[:])

	kek, err := wrapKEK(ephPriv, to, ephPub, to)
	if err != nil {
		return eph, nil, nil, err
	}
	defer Wipe(kek)

	aead, err := chacha20poly1305.New(kek)
	if err != nil {
		return eph, nil, nil, err
	}
	nonce = make([]byte, aead.NonceSize())
	if _, err = rand.Read(nonce); err != nil {
		return eph, nil, nil, err
	}
	wrapped = aead.Seal(nil, nonce, key.Slice(), nil)
	return ephPub, nonce, wrapped, nil
}

// UnwrapRoomKey recovers a room key from a grant addressed to priv.
func UnwrapRoomKey(priv domain.X25519Private, eph domain.X25519Public, nonce, wrapped []byte) (domain.RoomKey, error) {
	var key domain.RoomKey

	myPub, err := PublicOf(priv)
	if err != nil {
		return key, err
	}
	kek, err := wrapKEK(priv, eph, eph, myPub)
	if err != nil {
		return key, err
	}
	defer Wipe(kek)

	aead, err := chacha20poly1305.New(kek)
	if err != nil {
		return key, err
	}
	if len(nonce) != aead.NonceSize() {
		return key, ErrUnwrapFailed
	}
	raw, err := aead.Open(nil, nonce, wrapped, nil)
	if err != nil {
		return key, ErrUnwrapFailed
	}
	if len(raw) != len(key) {
		Wipe(raw)
		return key, ErrUnwrapFailed
	}
	copy(key[:], raw)
	Wipe(raw)
	return key, nil
}

// wrapKEK derives the wrapping key from the X25519 shared secret. Both
// sides pass the same (ephemeral, recipient) publics so the transcripts
// match.
func wrapKEK(priv domain.X25519Private, pub domain.X25519Public, eph, to domain.X25519Public) ([]byte, error) {
	shared, err := DH(priv, pub)
	if err != nil {
		return nil, err
	}
	defer Wipe(shared[:])

	info := make([]byte, 0, len(wrapInfo)+64)
	info = append(info, wrapInfo...)
	info = append(info, eph[:]...)
	info = append(info, to[:]...)

	kek := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, shared[:], nil, info), kek); err != nil {
		return nil, err
	}
	return kek, nil
}
