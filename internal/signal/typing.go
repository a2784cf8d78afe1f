package signal

import (
	"sort"
	"sync"
	"time"
)

// TypingTTL bounds how long a typing indicator stays lit without a
// refresh. Senders are expected to re-emit while the user keeps typing.
const TypingTTL = 3 * time.Second

type typingKey struct {
	conv string
	user string
}

// TypingTracker holds the set of users currently typing per
// conversation and expires stale entries automatically.
type TypingTracker struct {
	mu     sync.Mutex
	timers map[typingKey]*time.Timer
	ttl    time.Duration
}

// NewTypingTracker returns a tracker with the default TTL.
func NewTypingTracker() *TypingTracker {
	return &TypingTracker{
		timers: make(map[typingKey]*time.Timer),
		ttl:    TypingTTL,
	}
}

// Update records a typing start or stop for a user in a conversation.
// A start arms (or re-arms) the expiry timer; a stop clears immediately.
func (t *TypingTracker) Update(conversationID, userID string, isTyping bool) {
	key := typingKey{conv: conversationID, user: userID}

	t.mu.Lock()
	defer t.mu.Unlock()

	if tm, ok := t.timers[key]; ok {
		tm.Stop()
		delete(t.timers, key)
	}
	if !isTyping {
		return
	}
	t.timers[key] = time.AfterFunc(t.ttl, func() {
		t.mu.Lock()
		delete(t.timers, key)
		t.mu.Unlock()
	})
}

// Typers returns the users currently typing in a conversation, sorted
// for stable output.
func (t *TypingTracker) Typers(conversationID string) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	var users []string
	for key := range t.timers {
		if key.conv == conversationID {
			users = append(users, key.user)
		}
	}
	sort.Strings(users)
	return users
}

// Stop cancels all pending expiry timers.
func (t *TypingTracker) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	for key, tm := range t.timers {
		tm.Stop()
		delete(t.timers, key)
	}
}
