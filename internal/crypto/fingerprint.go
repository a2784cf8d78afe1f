package crypto

import (
	"crypto/sha256"
	"encoding/hex"
)

// fingerprintBytes is how much of the SHA-256 digest the fingerprint
// shows: 10 bytes, 20 hex characters, short enough to read aloud.
const fingerprintBytes = 10

// Fingerprint renders a public key as the short hex digest users
// compare out of band to verify a device.
func Fingerprint(pub []byte) string {
	sum := sha256.Sum256(pub)
	return hex.EncodeToString(sum[:fingerprintBytes])
}
