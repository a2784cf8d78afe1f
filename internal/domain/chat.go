package domain

// ConversationType distinguishes two-party chats from groups.
type ConversationType string

const (
	ConversationDirect ConversationType = "direct"
	ConversationGroup  ConversationType = "group"
)

// Role is a member's capability level within a group conversation.
// Direct conversations carry no roles.
type Role string

const (
	RoleOwner  Role = "owner"
	RoleAdmin  Role = "admin"
	RoleMember Role = "member"
)

// CanManageMembers reports whether the role may add members or re-share
// the room key.
func (r Role) CanManageMembers() bool { return r == RoleOwner || r == RoleAdmin }

// Member ties a user to a conversation with a role.
type Member struct {
	UserID  string `json:"user_id"`
	Role    Role   `json:"role"`
	AddedAt int64  `json:"added_at"`
}

// Conversation is the local view of one chat.
type Conversation struct {
	ID            string           `json:"id"`
	Type          ConversationType `json:"type"`
	Name          string           `json:"name,omitempty"`
	AvatarURL     string           `json:"avatar_url,omitempty"`
	Members       []Member         `json:"members,omitempty"`
	LastMessageAt int64            `json:"last_message_at,omitempty"`
	LastPreview   string           `json:"last_preview,omitempty"`
	Unread        int              `json:"unread,omitempty"`
	CreatedAt     int64            `json:"created_at"`
}

// MessageType is the transport-level payload kind. IMAGE messages carry a
// raw image reference; TEXT messages may carry a rich-content envelope.
type MessageType string

const (
	MessageText  MessageType = "text"
	MessageImage MessageType = "image"
)

// ChatMessage is a decrypted message as seen by this device. Plaintext is
// only ever populated after a successful decode; ciphertext is never
// surfaced as user content.
type ChatMessage struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversation_id"`
	SenderID       string      `json:"sender_id"`
	Type           MessageType `json:"type"`
	Plaintext      string      `json:"plaintext"`
	CreatedAt      int64       `json:"created_at"`
	EditedAt       int64       `json:"edited_at,omitempty"`
}

// Pin is a lightweight annotation on a message. Pins are metadata, not
// encrypted content.
type Pin struct {
	ConversationID string `json:"conversation_id"`
	MessageID      string `json:"message_id"`
	PinnedBy       string `json:"pinned_by"`
	CreatedAt      int64  `json:"created_at"`
}
