package domain

// X25519Public is a Curve25519 public key.
type X25519Public [32]byte

func (p X25519Public) Slice() []byte { return p[:] }

// X25519Private is a Curve25519 private key.
type X25519Private [32]byte

func (k X25519Private) Slice() []byte { return k[:] }

// Ed25519Public is a signing public key.
type Ed25519Public [32]byte

func (p Ed25519Public) Slice() []byte { return p[:] }

// Ed25519Private is a signing private key (ed25519.PrivateKey layout).
type Ed25519Private [64]byte

func (k Ed25519Private) Slice() []byte { return k[:] }

// RoomKey is the symmetric key protecting one conversation.
type RoomKey [32]byte

func (k RoomKey) Slice() []byte { return k[:] }

// Identity holds the device's long-term keys, stored locally and never
// serialised in cleartext. The X25519 pair receives wrapped room keys;
// the Ed25519 pair signs outgoing key grants.
type Identity struct {
	DeviceID string
	XPub     X25519Public
	XPriv    X25519Private
	EdPub    Ed25519Public
	EdPriv   Ed25519Private
}

// DeviceKey is the public half of a member device, as served by the relay.
type DeviceKey struct {
	UserID   string        `json:"user_id"`
	DeviceID string        `json:"device_id"`
	XPub     X25519Public  `json:"x_pub"`
	EdPub    Ed25519Public `json:"ed_pub"`
}

// KeyGrant is a room key wrapped for exactly one device. Ephemeral is the
// sender's one-shot X25519 public; only the holder of the addressed
// device's private key can recover the room key.
type KeyGrant struct {
	ConversationID string       `json:"conversation_id"`
	DeviceID       string       `json:"device_id"`
	FromDeviceID   string       `json:"from_device_id"`
	Ephemeral      X25519Public `json:"ephemeral"`
	Nonce          []byte       `json:"nonce"`
	Wrapped        []byte       `json:"wrapped"`
	Sig            []byte       `json:"sig,omitempty"`
	CreatedAt      int64        `json:"created_at"`
}

// Signed returns the byte string covered by Sig.
func (g KeyGrant) Signed() []byte {
	b := make([]byte, 0, len(g.ConversationID)+len(g.DeviceID)+len(g.Ephemeral)+len(g.Wrapped)+2)
	b = append(b, g.ConversationID...)
	b = append(b, '|')
	b = append(b, g.DeviceID...)
	b = append(b, '|')
	b = append(b, g.Ephemeral[:]...)
	b = append(b, g.Wrapped...)
	return b
}

// EnvelopeVersion is the current CipherEnvelope format version.
const EnvelopeVersion = 1

// CipherEnvelope is the wire form of one encrypted message. The version
// field makes the format self-describing: a decode failure on a
// well-formed envelope means a key problem, not a transport artifact.
type CipherEnvelope struct {
	V              int         `json:"v"`
	MessageID      string      `json:"message_id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	Type           MessageType `json:"type"`
	Nonce          []byte      `json:"nonce"`
	Cipher         []byte      `json:"cipher"`
	Timestamp      int64       `json:"timestamp"`
}
