package events

import (
	"context"
	"sync"
	"sync/atomic"
)

const defaultFeedBuffer = 64

// Feed is a Publisher that relays committed records to live subscribers such
// as WebSocket streams. Slow subscribers drop records instead of blocking
// commits.
type Feed struct {
	mu      sync.RWMutex
	nextID  uint64
	subs    map[uint64]chan Record
	dropped atomic.Uint64
}

// NewFeed constructs an empty feed.
func NewFeed() *Feed {
	return &Feed{subs: make(map[uint64]chan Record)}
}

// Publish implements the Publisher interface.
func (f *Feed) Publish(_ context.Context, records []Record) {
	if f == nil || len(records) == 0 {
		return
	}
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, ch := range f.subs {
		for _, rec := range records {
			select {
			case ch <- rec.Clone():
			default:
				f.dropped.Add(1)
			}
		}
	}
}

// Subscribe registers a new listener. The returned cancel function must be
// called to release the subscription; it closes the channel.
func (f *Feed) Subscribe(buffer int) (<-chan Record, func()) {
	if buffer <= 0 {
		buffer = defaultFeedBuffer
	}
	ch := make(chan Record, buffer)
	f.mu.Lock()
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			f.mu.Lock()
			delete(f.subs, id)
			f.mu.Unlock()
			close(ch)
		})
	}
}

// Dropped reports how many deliveries were skipped for slow subscribers.
func (f *Feed) Dropped() uint64 { return f.dropped.Load() }

// Subscribers reports the number of active subscriptions.
func (f *Feed) Subscribers() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}
