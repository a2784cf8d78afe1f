package crypto

import (
	"crypto/ed25519"
	"crypto/rand"

	"parley/internal/domain"
)

// GenerateEd25519 creates a fresh signing key pair for a new device.
func GenerateEd25519() (domain.Ed25519Private, domain.Ed25519Public, error) {
	var (
		priv domain.Ed25519Private
		pub  domain.Ed25519Public
	)
	pk, sk, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return priv, pub, err
	}
	copy(priv[:], sk)
	copy(pub[:], pk)
	return priv, pub, nil
}

// SignEd25519 signs msg under the device signing key.
func SignEd25519(priv domain.Ed25519Private, msg []byte) []byte {
	return ed25519.Sign(priv[:], msg)
}

// VerifyEd25519 reports whether sig is pub's signature over msg.
func VerifyEd25519(pub domain.Ed25519Public, msg, sig []byte) bool {
	return ed25519.Verify(pub[:], msg, sig)
}
