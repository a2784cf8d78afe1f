package domain

import "context"

// IdentityStore persists the device identity encrypted at rest.
type IdentityStore interface {
	SaveIdentity(passphrase string, id Identity) error
	// LoadIdentity returns ErrNotFound when no identity has been created.
	LoadIdentity(passphrase string) (Identity, error)
}

// KeyringStore caches unwrapped room keys. The cache is local-only and
// rebuildable from the wrapped-key feed, so dropping it is always safe.
type KeyringStore interface {
	SaveRoomKey(conversationID string, key RoomKey) error
	LoadRoomKey(conversationID string) (RoomKey, bool, error)
	DeleteRoomKey(conversationID string) error
	Reset() error
}

// ChatStore is the local cache of conversations, members, decrypted
// messages and pins.
type ChatStore interface {
	UpsertConversation(c Conversation) error
	Conversation(id string) (Conversation, error)
	// DirectConversation looks up a direct chat by its sorted member-pair
	// key, making CreateDirect idempotent.
	DirectConversation(pairKey string) (Conversation, bool, error)
	ListConversations() ([]Conversation, error)
	SetLastMessage(id string, at int64, preview string) error
	IncrementUnread(id string) error
	ResetUnread(id string) error

	SaveMembers(conversationID string, members []Member) error
	Members(conversationID string) ([]Member, error)
	// MemberRole returns ErrNotFound when the user is not a member.
	MemberRole(conversationID, userID string) (Role, error)
	SetMemberRole(conversationID, userID string, role Role) error

	// SaveMessage reports whether the row was newly inserted; false
	// means the ID was already cached (a redelivery).
	SaveMessage(m ChatMessage) (bool, error)
	Messages(conversationID string, limit, offset int) ([]ChatMessage, error)
	UpdateMessageBody(messageID, senderID, plaintext string, editedAt int64) error
	// ApplyRemoteEdit updates an existing row from a re-sent envelope,
	// sender-scoped; unchanged plaintext is a no-op.
	ApplyRemoteEdit(messageID, senderID, plaintext string, editedAt int64) error
	DeleteMessage(messageID, senderID string) error
	MessageCount(conversationID string) (int, error)

	SavePin(p Pin) error
	Pins(conversationID string) ([]Pin, error)
	DeletePin(conversationID, messageID string) error
}

// RelayClient is the transport collaborator. It moves ciphertext, wrapped
// key material and metadata; it never sees a plaintext room key or
// message body. Network retries are the transport's business, not ours.
type RelayClient interface {
	RegisterDevice(ctx context.Context, key DeviceKey) error
	FetchDeviceKeys(ctx context.Context, userIDs []string) ([]DeviceKey, error)

	PublishGrants(ctx context.Context, grants []KeyGrant) error
	FetchGrants(ctx context.Context, deviceID string) ([]KeyGrant, error)

	CreateConversation(ctx context.Context, c Conversation) error
	AddParticipants(ctx context.Context, conversationID string, members []Member) error
	SetParticipantRole(ctx context.Context, conversationID, userID string, role Role) error
	FetchParticipants(ctx context.Context, conversationID string) ([]Member, error)

	SendEnvelope(ctx context.Context, env CipherEnvelope) error
	FetchEnvelopes(ctx context.Context, deviceID string, limit int) ([]CipherEnvelope, error)
	AckEnvelopes(ctx context.Context, deviceID string, count int) error

	PushSignal(ctx context.Context, sig Signal) error

	CreatePin(ctx context.Context, p Pin) error
	FetchPins(ctx context.Context, conversationID string) ([]Pin, error)
	DeletePin(ctx context.Context, conversationID, messageID string) error
}

// KeyState is the resolved key situation for one (device, conversation)
// pair. Unknown means the cache has not been consulted yet.
type KeyState int

const (
	KeyUnknown KeyState = iota
	KeyMissing
	KeyInstalled
)

// IdentityService owns the device identity lifecycle.
type IdentityService interface {
	// EnsureIdentity loads the identity, generating one on first use. It
	// never regenerates an existing identity.
	EnsureIdentity(passphrase string) (Identity, error)
	Identity() (Identity, error)
	Fingerprint() (string, error)
	// Replace installs an imported identity, superseding the current one.
	Replace(passphrase string, id Identity) error
}

// RoomKeyVault resolves and caches room keys for this device.
type RoomKeyVault interface {
	State(conversationID string) KeyState
	HasKey(conversationID string) bool
	// Key returns ErrMissingRoomKey when this device holds no usable key.
	Key(conversationID string) (RoomKey, error)
	// Install unwraps a grant addressed to this device. When signer is
	// non-nil the grant signature is verified first.
	Install(grant KeyGrant, signer *Ed25519Public) error
	Put(conversationID string, key RoomKey) error
	Forget(conversationID string) error
	Reset() error
	// OnInstall registers a callback fired after a key becomes usable,
	// letting parked decodes retry.
	OnInstall(fn func(conversationID string))
}

// MessageService encrypts, sends, fetches and decrypts messages.
type MessageService interface {
	Send(ctx context.Context, conversationID, plaintext string, typ MessageType) (ChatMessage, error)
	Receive(ctx context.Context, limit int) ([]ChatMessage, error)
	Edit(ctx context.Context, conversationID, messageID, plaintext string) error
	Delete(ctx context.Context, conversationID, messageID string) error
}

// RosterService is the conversation and membership state machine.
type RosterService interface {
	CreateDirect(ctx context.Context, peerID string) (string, error)
	CreateGroup(ctx context.Context, name string, memberIDs []string) (string, error)
	AddMembers(ctx context.Context, conversationID string, userIDs []string) error
	SetRole(ctx context.Context, conversationID, userID string, role Role) error
	Open(conversationID string) error
	Conversations() ([]Conversation, error)
	Participants(ctx context.Context, conversationID string) ([]Member, error)
	PinMessage(ctx context.Context, conversationID, messageID string) error
	UnpinMessage(ctx context.Context, conversationID, messageID string) error
	Pins(ctx context.Context, conversationID string) ([]Pin, error)
}

// KeyShareService wraps and distributes room keys to member devices.
type KeyShareService interface {
	EnsureRoomKey(conversationID string) (RoomKey, error)
	// Distribute wraps the room key for every device of the given users.
	Distribute(ctx context.Context, conversationID string, userIDs []string) error
	// Reshare re-wraps the existing key (no rotation) for every current
	// member device. Restricted to owners and admins.
	Reshare(ctx context.Context, conversationID string) error
}

// BackupService moves the device identity through a passphrase-encrypted
// portable blob.
type BackupService interface {
	Export(ctx context.Context, passphrase string) ([]byte, error)
	Import(ctx context.Context, passphrase string, blob []byte) error
}

// SignalService emits typing and call handshake signals.
type SignalService interface {
	SendTyping(ctx context.Context, conversationID string, isTyping bool) error
	StartCall(ctx context.Context, conversationID string, kind CallKind) (string, error)
	RespondToCall(ctx context.Context, callID, conversationID string, accepted bool) error
	Hangup(ctx context.Context, callID, conversationID string) error
}
