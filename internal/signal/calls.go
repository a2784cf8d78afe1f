package signal

import (
	"sync"

	"parley/internal/domain"
)

// PendingCall is an invite awaiting an answer or hangup.
type PendingCall struct {
	CallID         string
	ConversationID string
	From           string
	Kind           domain.CallKind
	InvitedAt      int64
}

// CallTracker keeps the set of unanswered invites. An answer or hangup
// for a call ID closes its waiting state regardless of outcome, so a
// declined call never leaves a ringing entry behind.
type CallTracker struct {
	mu      sync.Mutex
	pending map[string]PendingCall
}

// NewCallTracker returns an empty tracker.
func NewCallTracker() *CallTracker {
	return &CallTracker{pending: make(map[string]PendingCall)}
}

// Observe feeds a call signal into the tracker. Invites open a pending
// entry; answers and hangups close it.
func (c *CallTracker) Observe(sig domain.Signal) {
	if sig.Call == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	switch sig.Kind {
	case domain.SignalCallInvite:
		c.pending[sig.Call.CallID] = PendingCall{
			CallID:         sig.Call.CallID,
			ConversationID: sig.ConversationID,
			From:           sig.From,
			Kind:           sig.Call.Kind,
			InvitedAt:      sig.Timestamp,
		}
	case domain.SignalCallAnswer, domain.SignalCallHangup:
		delete(c.pending, sig.Call.CallID)
	}
}

// Pending returns the invites still waiting on an answer.
func (c *CallTracker) Pending() []PendingCall {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]PendingCall, 0, len(c.pending))
	for _, p := range c.pending {
		out = append(out, p)
	}
	return out
}
