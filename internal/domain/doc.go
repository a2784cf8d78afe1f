// Package domain defines the core data model and the interfaces that
// stitch the engine together.
//
// Contents
//
//   - Fixed-size key types (X25519Public, X25519Private, Ed25519Public,
//     Ed25519Private, RoomKey) and the local device Identity
//   - Chat model: Conversation, Member, ChatMessage, Pin
//   - Wire types: CipherEnvelope, KeyGrant, signaling payloads, Event
//   - Store, service and relay interfaces implemented elsewhere
//   - The error taxonomy shared across packages
//
// The package has no dependencies outside the standard library so that
// every other package can import it freely.
package domain
