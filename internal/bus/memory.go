package bus

import (
	"context"
	"sync"
)

// sendBuffer bounds how far a subscriber may lag before it is dropped.
const sendBuffer = 64

type subscriber struct {
	ch     chan Update
	closed bool
}

// MemoryBus is an in-process per-poll fan-out hub. Publishes happen under
// the hub lock, so every subscriber of a poll observes updates in publish
// order. A subscriber whose buffer is full is dropped, never reordered.
type MemoryBus struct {
	mu   sync.Mutex
	subs map[string]map[*subscriber]struct{}
}

func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		subs: make(map[string]map[*subscriber]struct{}),
	}
}

func (b *MemoryBus) Publish(_ context.Context, pollID string, u Update) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	for sub := range b.subs[pollID] {
		select {
		case sub.ch <- u:
		default:
			b.drop(pollID, sub)
		}
	}
	return nil
}

func (b *MemoryBus) Subscribe(pollID string) (<-chan Update, func()) {
	sub := &subscriber{ch: make(chan Update, sendBuffer)}

	b.mu.Lock()
	set := b.subs[pollID]
	if set == nil {
		set = make(map[*subscriber]struct{})
		b.subs[pollID] = set
	}
	set[sub] = struct{}{}
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		b.drop(pollID, sub)
		b.mu.Unlock()
	}
	return sub.ch, cancel
}

// drop must be called with the hub lock held.
func (b *MemoryBus) drop(pollID string, sub *subscriber) {
	if sub.closed {
		return
	}
	sub.closed = true
	close(sub.ch)

	set := b.subs[pollID]
	delete(set, sub)
	if len(set) == 0 {
		delete(b.subs, pollID)
	}
}
