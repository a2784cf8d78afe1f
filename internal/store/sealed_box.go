package store

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

const sealedBoxVersion = 1

var errWrongPassphrase = errors.New("wrong passphrase or corrupted identity")

// sealedBox is a passphrase-sealed payload as stored on disk. The
// scrypt parameters ride along so they can be raised later without
// breaking files written under the old cost.
type sealedBox struct {
	V      int    `json:"v"`
	Salt   []byte `json:"salt"`
	N      int    `json:"scrypt_n"`
	R      int    `json:"scrypt_r"`
	P      int    `json:"scrypt_p"`
	Sealed []byte `json:"sealed"`
}

// Interactive-login cost for scrypt.
func scryptParamsDefault() (N, r, p int) { return 1 << 15, 8, 1 }

func boxKey(passphrase string, salt []byte, N, r, p int) ([]byte, error) {
	return scrypt.Key([]byte(passphrase), salt, N, r, p, chacha20poly1305.KeySize)
}

// sealBox derives a key from passphrase under a fresh salt and seals
// raw into a JSON sealedBox. The nonce is fixed at zero: every seal
// uses a new salt, hence a new key, so it never repeats under one key.
func sealBox(passphrase string, raw []byte, N, r, p int) ([]byte, error) {
	salt := make([]byte, 16)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	key, err := boxKey(passphrase, salt, N, r, p)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	return json.Marshal(sealedBox{
		V:      sealedBoxVersion,
		Salt:   salt,
		N:      N,
		R:      r,
		P:      p,
		Sealed: aead.Seal(nil, nonce, raw, salt),
	})
}

// openBox reverses sealBox using the parameters recorded in the blob.
func openBox(passphrase string, b []byte) ([]byte, error) {
	var box sealedBox
	if err := json.Unmarshal(b, &box); err != nil {
		return nil, err
	}
	if box.V > sealedBoxVersion {
		return nil, fmt.Errorf("unsupported keystore version %d", box.V)
	}
	key, err := boxKey(passphrase, box.Salt, box.N, box.R, box.P)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, aead.NonceSize())
	pt, err := aead.Open(nil, nonce, box.Sealed, box.Salt)
	if err != nil {
		return nil, errWrongPassphrase
	}
	return pt, nil
}
