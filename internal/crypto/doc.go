// Package crypto exposes the primitives used by parley.
//
// Contents
//
//   - X25519 key generation, clamping and Diffie–Hellman (GenerateX25519, DH)
//   - Ed25519 key generation, signing and verification
//   - Room key generation and sealed-box wrapping for a device public key
//     (NewRoomKey, WrapRoomKey, UnwrapRoomKey)
//   - Symmetric message sealing with ChaCha20-Poly1305 (SealMessage,
//     OpenMessage)
//   - Best-effort memory wiping for sensitive byte slices (Wipe)
//   - Short public-key fingerprints for display/logging (Fingerprint)
//
// All functions operate on the fixed-size array types from internal/domain
// to avoid accidental reallocations. Callers should treat returned secrets
// as sensitive and rely on Wipe when practical.
package crypto
