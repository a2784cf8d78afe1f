// Package store provides the on-disk persistence used by parley: the
// passphrase-encrypted identity file, the room-key cache, and a SQLite
// cache of conversations, members, decrypted messages and pins.
//
// The identity file is sealed with a scrypt-derived key and
// ChaCha20-Poly1305; see sealed_box.go for the on-disk format. The
// room-key cache is local-only and rebuildable from the relay's
// wrapped-key feed, so losing it is never data loss.
package store
