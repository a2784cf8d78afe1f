// Package keyshare wraps the room key for member devices and publishes
// the wrapped copies. It is used at group creation, member addition, and
// manual re-share.
package keyshare

import (
	"context"
	"errors"
	"fmt"
	"time"

	"parley/internal/crypto"
	"parley/internal/domain"
)

// Service distributes room keys. The plaintext key is only ever handled
// in process; everything published is wrapped for a specific device.
type Service struct {
	ids    domain.IdentityService
	vault  domain.RoomKeyVault
	chats  domain.ChatStore
	relay  domain.RelayClient
	userID string
}

// New constructs a key share service.
func New(ids domain.IdentityService, vault domain.RoomKeyVault, chats domain.ChatStore, relay domain.RelayClient, userID string) *Service {
	return &Service{ids: ids, vault: vault, chats: chats, relay: relay, userID: userID}
}

// EnsureRoomKey returns the conversation's room key, generating and
// caching a fresh one if this device holds none. Only conversation
// creators call this; joiners receive grants instead.
func (s *Service) EnsureRoomKey(conversationID string) (domain.RoomKey, error) {
	key, err := s.vault.Key(conversationID)
	if err == nil {
		return key, nil
	}
	if !errors.Is(err, domain.ErrMissingRoomKey) {
		return domain.RoomKey{}, err
	}
	key, err = crypto.NewRoomKey()
	if err != nil {
		return domain.RoomKey{}, fmt.Errorf("generate room key: %w", err)
	}
	if err := s.vault.Put(conversationID, key); err != nil {
		return domain.RoomKey{}, err
	}
	return key, nil
}

// Distribute wraps the existing room key for every device of the given
// users and publishes the grants. Each grant is signed with this
// device's Ed25519 key so receivers can authenticate the source.
func (s *Service) Distribute(ctx context.Context, conversationID string, userIDs []string) error {
	if len(userIDs) == 0 {
		return nil
	}
	key, err := s.vault.Key(conversationID)
	if err != nil {
		return err
	}
	id, err := s.ids.Identity()
	if err != nil {
		return err
	}
	devices, err := s.relay.FetchDeviceKeys(ctx, userIDs)
	if err != nil {
		return fmt.Errorf("fetch device keys: %w", err)
	}

	grants := make([]domain.KeyGrant, 0, len(devices))
	now := time.Now().Unix()
	for _, d := range devices {
		if d.DeviceID == id.DeviceID {
			continue
		}
		eph, nonce, wrapped, err := crypto.WrapRoomKey(key, d.XPub)
		if err != nil {
			return fmt.Errorf("wrap for device %q: %w", d.DeviceID, err)
		}
		g := domain.KeyGrant{
			ConversationID: conversationID,
			DeviceID:       d.DeviceID,
			FromDeviceID:   id.DeviceID,
			Ephemeral:      eph,
			Nonce:          nonce,
			Wrapped:        wrapped,
			CreatedAt:      now,
		}
		g.Sig = crypto.SignEd25519(id.EdPriv, g.Signed())
		grants = append(grants, g)
	}
	if len(grants) == 0 {
		return nil
	}
	if err := s.relay.PublishGrants(ctx, grants); err != nil {
		return fmt.Errorf("publish grants: %w", err)
	}
	return nil
}

// Reshare re-wraps the existing key for every current member device.
// The key is reused, not rotated: a device that held it before still
// holds it after. Owners and admins only.
func (s *Service) Reshare(ctx context.Context, conversationID string) error {
	role, err := s.chats.MemberRole(conversationID, s.userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.ErrForbidden
		}
		return err
	}
	if !role.CanManageMembers() {
		return domain.ErrForbidden
	}

	members, err := s.chats.Members(conversationID)
	if err != nil {
		return err
	}
	userIDs := make([]string, 0, len(members))
	for _, m := range members {
		userIDs = append(userIDs, m.UserID)
	}
	return s.Distribute(ctx, conversationID, userIDs)
}

// Compile-time assertion that Service implements domain.KeyShareService.
var _ domain.KeyShareService = (*Service)(nil)
