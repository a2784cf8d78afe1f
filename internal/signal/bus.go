// Package signal carries the real-time side channel: typing indicators
// and call handshake events. Everything here is fire-and-forget — no
// delivery guarantee, no retry, no ordering relative to messages.
package signal

import (
	"sync"

	"parley/internal/domain"
)

// Bus fans incoming signals out to subscribers. Each subscriber owns a
// bounded channel; a slow subscriber drops signals rather than blocking
// the feed, which is acceptable for advisory events.
type Bus struct {
	mu   sync.Mutex
	subs map[int]chan domain.Signal
	next int
}

// NewBus returns an empty bus.
func NewBus() *Bus {
	return &Bus{subs: make(map[int]chan domain.Signal)}
}

// Subscribe registers a listener. The returned cancel func must be
// called when done; the channel closes after cancellation.
func (b *Bus) Subscribe(buffer int) (<-chan domain.Signal, func()) {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan domain.Signal, buffer)

	b.mu.Lock()
	id := b.next
	b.next++
	b.subs[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if c, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(c)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

// Publish delivers a signal to every subscriber, dropping it for any
// subscriber whose buffer is full.
func (b *Bus) Publish(sig domain.Signal) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- sig:
		default:
		}
	}
}
