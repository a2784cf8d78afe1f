package signal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"parley/internal/domain"
)

// Service emits outbound signals through the relay and feeds inbound
// ones into the local bus and trackers.
type Service struct {
	relay  domain.RelayClient
	bus    *Bus
	typing *TypingTracker
	calls  *CallTracker
	userID string
}

var _ domain.SignalService = (*Service)(nil)

// New builds a signal service around a relay client.
func New(relay domain.RelayClient, userID string) *Service {
	return &Service{
		relay:  relay,
		bus:    NewBus(),
		typing: NewTypingTracker(),
		calls:  NewCallTracker(),
		userID: userID,
	}
}

// Bus exposes the subscription surface for UIs.
func (s *Service) Bus() *Bus { return s.bus }

// Typing exposes the typing tracker.
func (s *Service) Typing() *TypingTracker { return s.typing }

// Calls exposes the pending-call tracker.
func (s *Service) Calls() *CallTracker { return s.calls }

// SendTyping emits a typing start or stop for a conversation.
func (s *Service) SendTyping(ctx context.Context, conversationID string, isTyping bool) error {
	sig := domain.Signal{
		Kind:           domain.SignalTyping,
		ConversationID: conversationID,
		From:           s.userID,
		Typing:         &domain.TypingSignal{IsTyping: isTyping},
		Timestamp:      time.Now().UnixMilli(),
	}
	if err := s.relay.PushSignal(ctx, sig); err != nil {
		return fmt.Errorf("push typing signal: %w", err)
	}
	return nil
}

// StartCall emits a call invite and returns the new call ID.
func (s *Service) StartCall(ctx context.Context, conversationID string, kind domain.CallKind) (string, error) {
	callID := uuid.NewString()
	sig := domain.Signal{
		Kind:           domain.SignalCallInvite,
		ConversationID: conversationID,
		From:           s.userID,
		Call:           &domain.CallSignal{CallID: callID, Kind: kind},
		Timestamp:      time.Now().UnixMilli(),
	}
	if err := s.relay.PushSignal(ctx, sig); err != nil {
		return "", fmt.Errorf("push call invite: %w", err)
	}
	return callID, nil
}

// RespondToCall emits an accept or decline for an invite. Either
// outcome closes the caller's waiting state.
func (s *Service) RespondToCall(ctx context.Context, callID, conversationID string, accepted bool) error {
	sig := domain.Signal{
		Kind:           domain.SignalCallAnswer,
		ConversationID: conversationID,
		From:           s.userID,
		Call:           &domain.CallSignal{CallID: callID, Accepted: &accepted},
		Timestamp:      time.Now().UnixMilli(),
	}
	if err := s.relay.PushSignal(ctx, sig); err != nil {
		return fmt.Errorf("push call answer: %w", err)
	}
	return nil
}

// Hangup emits a hangup for an active or ringing call.
func (s *Service) Hangup(ctx context.Context, callID, conversationID string) error {
	sig := domain.Signal{
		Kind:           domain.SignalCallHangup,
		ConversationID: conversationID,
		From:           s.userID,
		Call:           &domain.CallSignal{CallID: callID},
		Timestamp:      time.Now().UnixMilli(),
	}
	if err := s.relay.PushSignal(ctx, sig); err != nil {
		return fmt.Errorf("push hangup: %w", err)
	}
	return nil
}

// Observe feeds an inbound signal into the trackers and bus. Signals
// from this device are still published so local UIs stay consistent.
func (s *Service) Observe(sig domain.Signal) {
	switch sig.Kind {
	case domain.SignalTyping:
		if sig.Typing != nil {
			s.typing.Update(sig.ConversationID, sig.From, sig.Typing.IsTyping)
		}
	case domain.SignalCallInvite, domain.SignalCallAnswer, domain.SignalCallHangup:
		s.calls.Observe(sig)
	}
	s.bus.Publish(sig)
}

// Close stops background timers.
func (s *Service) Close() {
	s.typing.Stop()
}
