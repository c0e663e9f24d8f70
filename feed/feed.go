// Package feed provides a generic broadcast channel with multiple subscribers.
//
// A Feed fans values out to every subscriber over per-subscriber buffered
// channels. Publishing never blocks: when a subscriber's buffer is full the
// value is dropped for that subscriber only. This keeps slow or stalled
// consumers from back-pressuring the producer, which on the ingest path is
// reading from a live serial port.
package feed

import (
	"sync"

	"github.com/google/uuid"
)

// DefaultBuffer is the per-subscriber channel capacity used when a Feed is
// created with a non-positive buffer size.
const DefaultBuffer = 16

// Feed is a multi-subscriber broadcast of values of type T.
type Feed[T any] struct {
	mu          sync.Mutex
	subscribers map[string]chan T
	buffer      int
	dropped     uint64
	closed      bool
}

// New creates a Feed whose subscribers each get a buffered channel of the
// given capacity.
func New[T any](buffer int) *Feed[T] {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Feed[T]{
		subscribers: make(map[string]chan T),
		buffer:      buffer,
	}
}

// Subscribe registers a new subscriber and returns its ID along with the
// channel values will be delivered on. The ID identifies the subscription
// when unsubscribing. Subscribing to a closed Feed returns a closed channel.
func (f *Feed[T]) Subscribe() (string, <-chan T) {
	id := uuid.NewString()
	ch := make(chan T, f.buffer)

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		close(ch)
		return id, ch
	}
	f.subscribers[id] = ch
	return id, ch
}

// Unsubscribe removes a subscriber and closes its channel. Unknown IDs are
// ignored.
func (f *Feed[T]) Unsubscribe(id string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok := f.subscribers[id]; ok {
		close(ch)
		delete(f.subscribers, id)
	}
}

// Publish delivers v to every subscriber whose buffer has room. Subscribers
// with full buffers miss this value. Publishing to a closed Feed is a no-op.
func (f *Feed[T]) Publish(v T) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	for _, ch := range f.subscribers {
		select {
		case ch <- v:
		default:
			f.dropped++
		}
	}
}

// Close closes all subscriber channels and marks the feed closed. Further
// publishes are dropped and further subscriptions receive closed channels.
func (f *Feed[T]) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subscribers {
		close(ch)
		delete(f.subscribers, id)
	}
}

// Len returns the current subscriber count.
func (f *Feed[T]) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subscribers)
}

// Dropped returns the total number of deliveries skipped because a
// subscriber's buffer was full.
func (f *Feed[T]) Dropped() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}
