// Package roster is the conversation and membership state machine:
// conversation list, per-conversation roles, participant add/promote,
// and the pin surface.
//
// Role checks here gate the UI; the relay re-checks every mutation and
// its verdict wins. A locally permitted call that the server rejects is
// surfaced unchanged and local state is left untouched.
package roster

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"parley/internal/domain"
	"parley/internal/store"
)

// Service mutates conversation state. Mutations are serialized per
// conversation: one in-flight add/promote at a time, so role changes
// never interleave.
type Service struct {
	chats  domain.ChatStore
	relay  domain.RelayClient
	shares domain.KeyShareService
	userID string

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New constructs a roster service acting as the given user.
func New(chats domain.ChatStore, relay domain.RelayClient, shares domain.KeyShareService, userID string) *Service {
	return &Service{
		chats:  chats,
		relay:  relay,
		shares: shares,
		userID: userID,
		locks:  make(map[string]*sync.Mutex),
	}
}

func (s *Service) lockFor(conversationID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.locks[conversationID]
	if !ok {
		l = &sync.Mutex{}
		s.locks[conversationID] = l
	}
	return l
}

// CreateDirect starts (or returns) the direct conversation with a peer.
// Idempotent: the same pair always maps to the same conversation.
func (s *Service) CreateDirect(ctx context.Context, peerID string) (string, error) {
	if peerID == "" || peerID == s.userID {
		return "", errors.New("peer id must name another user")
	}

	pairKey := store.DirectPairKey(s.userID, peerID)
	if existing, ok, err := s.chats.DirectConversation(pairKey); err != nil {
		return "", err
	} else if ok {
		return existing.ID, nil
	}

	now := time.Now().UnixMilli()
	c := domain.Conversation{
		ID:   uuid.New().String(),
		Type: domain.ConversationDirect,
		Members: []domain.Member{
			{UserID: s.userID, Role: domain.RoleMember, AddedAt: now},
			{UserID: peerID, Role: domain.RoleMember, AddedAt: now},
		},
		CreatedAt: now,
	}
	if err := s.relay.CreateConversation(ctx, c); err != nil {
		return "", fmt.Errorf("create direct: %w", err)
	}
	if err := s.chats.UpsertConversation(c); err != nil {
		return "", err
	}
	if _, err := s.shares.EnsureRoomKey(c.ID); err != nil {
		return "", err
	}
	if err := s.shares.Distribute(ctx, c.ID, []string{peerID}); err != nil {
		return "", err
	}
	return c.ID, nil
}

// CreateGroup starts a group conversation. The creator becomes the one
// OWNER; every listed member starts as MEMBER. The new room key is
// distributed to all of them.
func (s *Service) CreateGroup(ctx context.Context, name string, memberIDs []string) (string, error) {
	if name == "" {
		return "", errors.New("group name is required")
	}
	if len(memberIDs) == 0 {
		return "", errors.New("a group needs at least one member besides the creator")
	}

	now := time.Now().UnixMilli()
	members := make([]domain.Member, 0, len(memberIDs)+1)
	members = append(members, domain.Member{UserID: s.userID, Role: domain.RoleOwner, AddedAt: now})
	for _, uid := range memberIDs {
		if uid == s.userID {
			continue
		}
		members = append(members, domain.Member{UserID: uid, Role: domain.RoleMember, AddedAt: now})
	}

	c := domain.Conversation{
		ID:        uuid.New().String(),
		Type:      domain.ConversationGroup,
		Name:      name,
		Members:   members,
		CreatedAt: now,
	}
	if err := s.relay.CreateConversation(ctx, c); err != nil {
		return "", fmt.Errorf("create group: %w", err)
	}
	if err := s.chats.UpsertConversation(c); err != nil {
		return "", err
	}
	if _, err := s.shares.EnsureRoomKey(c.ID); err != nil {
		return "", err
	}
	if err := s.shares.Distribute(ctx, c.ID, memberIDs); err != nil {
		return "", err
	}
	return c.ID, nil
}

// AddMembers adds users to a group and shares the existing room key with
// them (the new members only; everyone else already holds it). Owners
// and admins only.
func (s *Service) AddMembers(ctx context.Context, conversationID string, userIDs []string) error {
	l := s.lockFor(conversationID)
	l.Lock()
	defer l.Unlock()

	c, err := s.chats.Conversation(conversationID)
	if err != nil {
		return err
	}
	if c.Type != domain.ConversationGroup {
		return domain.ErrForbidden
	}
	role, err := s.callerRole(conversationID)
	if err != nil {
		return err
	}
	if !role.CanManageMembers() {
		return domain.ErrForbidden
	}

	now := time.Now().UnixMilli()
	added := make([]domain.Member, 0, len(userIDs))
	for _, uid := range userIDs {
		if _, err := s.chats.MemberRole(conversationID, uid); err == nil {
			continue // already a member
		} else if !errors.Is(err, domain.ErrNotFound) {
			return err
		}
		added = append(added, domain.Member{UserID: uid, Role: domain.RoleMember, AddedAt: now})
	}
	if len(added) == 0 {
		return nil
	}

	if err := s.relay.AddParticipants(ctx, conversationID, added); err != nil {
		return fmt.Errorf("add members: %w", err)
	}
	if err := s.chats.SaveMembers(conversationID, added); err != nil {
		return err
	}

	newIDs := make([]string, 0, len(added))
	for _, m := range added {
		newIDs = append(newIDs, m.UserID)
	}
	return s.shares.Distribute(ctx, conversationID, newIDs)
}

// SetRole promotes a MEMBER to ADMIN or demotes an ADMIN to MEMBER.
// Only the OWNER may change roles, and ownership itself never moves
// through this call.
func (s *Service) SetRole(ctx context.Context, conversationID, userID string, role domain.Role) error {
	l := s.lockFor(conversationID)
	l.Lock()
	defer l.Unlock()

	if role != domain.RoleAdmin && role != domain.RoleMember {
		return domain.ErrForbidden
	}
	caller, err := s.callerRole(conversationID)
	if err != nil {
		return err
	}
	if caller != domain.RoleOwner {
		return domain.ErrForbidden
	}
	current, err := s.chats.MemberRole(conversationID, userID)
	if err != nil {
		return err
	}
	if current == domain.RoleOwner {
		return domain.ErrForbidden
	}
	if current == role {
		return nil
	}

	if err := s.relay.SetParticipantRole(ctx, conversationID, userID, role); err != nil {
		return fmt.Errorf("set role: %w", err)
	}
	return s.chats.SetMemberRole(conversationID, userID, role)
}

// Open marks a conversation as the active view and clears its unread
// counter. No key operation is implied.
func (s *Service) Open(conversationID string) error {
	if _, err := s.chats.Conversation(conversationID); err != nil {
		return err
	}
	return s.chats.ResetUnread(conversationID)
}

// Conversations lists the cached conversations, most recent first.
func (s *Service) Conversations() ([]domain.Conversation, error) {
	return s.chats.ListConversations()
}

// Participants refreshes a conversation's member list from the relay
// and returns the merged view.
func (s *Service) Participants(ctx context.Context, conversationID string) ([]domain.Member, error) {
	members, err := s.relay.FetchParticipants(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("fetch participants: %w", err)
	}
	if err := s.chats.SaveMembers(conversationID, members); err != nil {
		return nil, err
	}
	return s.chats.Members(conversationID)
}

// PinMessage records a pin. Pins are metadata, any member may pin.
func (s *Service) PinMessage(ctx context.Context, conversationID, messageID string) error {
	if _, err := s.callerRole(conversationID); err != nil {
		return err
	}
	p := domain.Pin{
		ConversationID: conversationID,
		MessageID:      messageID,
		PinnedBy:       s.userID,
		CreatedAt:      time.Now().UnixMilli(),
	}
	if err := s.relay.CreatePin(ctx, p); err != nil {
		return fmt.Errorf("create pin: %w", err)
	}
	return s.chats.SavePin(p)
}

// UnpinMessage removes a pin.
func (s *Service) UnpinMessage(ctx context.Context, conversationID, messageID string) error {
	if err := s.relay.DeletePin(ctx, conversationID, messageID); err != nil {
		return fmt.Errorf("delete pin: %w", err)
	}
	return s.chats.DeletePin(conversationID, messageID)
}

// Pins refreshes and returns a conversation's pins.
func (s *Service) Pins(ctx context.Context, conversationID string) ([]domain.Pin, error) {
	pins, err := s.relay.FetchPins(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("fetch pins: %w", err)
	}
	for _, p := range pins {
		if err := s.chats.SavePin(p); err != nil {
			return nil, err
		}
	}
	return s.chats.Pins(conversationID)
}

// callerRole maps "not a member" onto Forbidden: outsiders cannot
// mutate a conversation they are not in.
func (s *Service) callerRole(conversationID string) (domain.Role, error) {
	role, err := s.chats.MemberRole(conversationID, s.userID)
	if errors.Is(err, domain.ErrNotFound) {
		return "", domain.ErrForbidden
	}
	return role, err
}

// Compile-time assertion that Service implements domain.RosterService.
var _ domain.RosterService = (*Service)(nil)
