package domain

// SignalKind tags a fire-and-forget real-time signal. Signals have no
// delivery guarantee, no retry, and no ordering relative to messages.
type SignalKind string

const (
	SignalTyping     SignalKind = "typing"
	SignalCallInvite SignalKind = "call_invite"
	SignalCallAnswer SignalKind = "call_answer"
	SignalCallHangup SignalKind = "call_hangup"
)

// CallKind selects the media type for a call handshake. Media transport
// itself is outside this engine; only the handshake metadata lives here.
type CallKind string

const (
	CallAudio CallKind = "audio"
	CallVideo CallKind = "video"
)

// TypingSignal is the payload of a typing indicator.
type TypingSignal struct {
	IsTyping bool `json:"is_typing"`
}

// CallSignal carries call handshake metadata. Accepted is only set on
// answer signals.
type CallSignal struct {
	CallID   string   `json:"call_id"`
	Kind     CallKind `json:"kind,omitempty"`
	Accepted *bool    `json:"accepted,omitempty"`
}

// Signal is one real-time event exchanged out-of-band from messages.
type Signal struct {
	Kind           SignalKind    `json:"kind"`
	ConversationID string        `json:"conversation_id"`
	From           string        `json:"from"`
	Typing         *TypingSignal `json:"typing,omitempty"`
	Call           *CallSignal   `json:"call,omitempty"`
	Timestamp      int64         `json:"timestamp"`
}

// EventKind tags a server-push event on the relay stream.
type EventKind string

const (
	EventMessage  EventKind = "message"
	EventKeyGrant EventKind = "key_grant"
	EventSignal   EventKind = "signal"
)

// Event is one discrete push from the relay. Exactly one payload field is
// populated, matching Kind.
type Event struct {
	Kind     EventKind       `json:"kind"`
	Envelope *CipherEnvelope `json:"envelope,omitempty"`
	Grant    *KeyGrant       `json:"grant,omitempty"`
	Signal   *Signal         `json:"signal,omitempty"`
}
