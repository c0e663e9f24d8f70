package timeseries

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mavgraph/mavgraph/decode"
	"github.com/mavgraph/mavgraph/feed"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// FieldStats summarises the current contents of one field history.
type FieldStats struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	StdDev float64
}

// Repository routes decoded messages into per-field ring buffers and serves
// snapshot queries over them.
//
// Ingest is single-writer: exactly one goroutine (the Consume loop, or direct
// Ingest calls from the same goroutine) appends points, which keeps each
// ring's timestamps in arrival order. Queries may run concurrently from any
// goroutine and always return copies, never live views. The retention pruner
// is the one other mutator; it only evicts from the oldest end, which the
// rings' internal locking makes safe alongside ingest.
type Repository struct {
	mu       sync.RWMutex
	buffers  map[FieldKey]*Ring
	capacity int

	paused  atomic.Bool
	changes *feed.Feed[FieldKey]
}

// RepositoryOption configures a Repository.
type RepositoryOption func(*Repository)

// WithCapacity sets the per-field ring capacity. Values below 1 fall back to
// DefaultCapacity.
func WithCapacity(n int) RepositoryOption {
	return func(r *Repository) {
		r.capacity = n
	}
}

// WithChangeBuffer sets the per-subscriber buffer of the change feed.
func WithChangeBuffer(n int) RepositoryOption {
	return func(r *Repository) {
		r.changes = feed.New[FieldKey](n)
	}
}

// NewRepository creates an empty repository.
func NewRepository(opts ...RepositoryOption) *Repository {
	r := &Repository{
		buffers:  make(map[FieldKey]*Ring),
		capacity: DefaultCapacity,
		changes:  feed.New[FieldKey](feed.DefaultBuffer),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Consume ingests messages from ch until the channel closes or ctx is
// cancelled. While the repository is paused the loop keeps draining ch and
// discards the messages, so an upstream producer is never blocked by a pause.
func (r *Repository) Consume(ctx context.Context, ch <-chan decode.Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			r.Ingest(msg)
		}
	}
}

// Ingest appends one decoded message's fields to their histories and
// publishes the touched FieldKeys on the change feed. No-op while paused.
func (r *Repository) Ingest(msg decode.Message) {
	if r.paused.Load() {
		return
	}

	// Sorted field order keeps change notifications deterministic.
	names := make([]string, 0, len(msg.Fields))
	for name := range msg.Fields {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		key := Key(msg.Name, name)
		r.ring(key).Add(Point{Timestamp: msg.Time, Value: msg.Fields[name]})
		r.changes.Publish(key)
	}
}

// ring returns the buffer for key, creating it on first use.
func (r *Repository) ring(key FieldKey) *Ring {
	r.mu.RLock()
	rb := r.buffers[key]
	r.mu.RUnlock()
	if rb != nil {
		return rb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if rb = r.buffers[key]; rb == nil {
		rb = NewRing(r.capacity)
		r.buffers[key] = rb
	}
	return rb
}

// Pause stops accepting new points. Existing history stays intact.
func (r *Repository) Pause() {
	r.paused.Store(true)
}

// Resume starts accepting new points again.
func (r *Repository) Resume() {
	r.paused.Store(false)
}

// Paused reports whether ingest is currently paused.
func (r *Repository) Paused() bool {
	return r.paused.Load()
}

// Fields returns all known field keys, sorted.
func (r *Repository) Fields() []FieldKey {
	r.mu.RLock()
	defer r.mu.RUnlock()

	keys := make([]FieldKey, 0, len(r.buffers))
	for key := range r.buffers {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// MessageFields returns the sorted field names recorded for one message.
func (r *Repository) MessageFields(message string) []string {
	prefix := message + "."

	r.mu.RLock()
	defer r.mu.RUnlock()

	var names []string
	for key := range r.buffers {
		if strings.HasPrefix(string(key), prefix) {
			names = append(names, strings.TrimPrefix(string(key), prefix))
		}
	}
	sort.Strings(names)
	return names
}

// FieldData returns a snapshot of one field's history in oldest-to-newest
// order, or nil for an unknown field.
func (r *Repository) FieldData(key FieldKey) []Point {
	r.mu.RLock()
	rb := r.buffers[key]
	r.mu.RUnlock()

	if rb == nil {
		return nil
	}
	return rb.Snapshot()
}

// Summary returns the current point count per field.
func (r *Repository) Summary() map[FieldKey]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[FieldKey]int, len(r.buffers))
	for key, rb := range r.buffers {
		out[key] = rb.Len()
	}
	return out
}

// FieldStats computes count, min, max, mean and sample standard deviation
// over the current snapshot of one field. ok is false when the field is
// unknown or empty.
func (r *Repository) FieldStats(key FieldKey) (FieldStats, bool) {
	points := r.FieldData(key)
	if len(points) == 0 {
		return FieldStats{}, false
	}

	values := make([]float64, len(points))
	for i, p := range points {
		values[i] = p.Value
	}

	s := FieldStats{
		Count: len(values),
		Min:   floats.Min(values),
		Max:   floats.Max(values),
		Mean:  stat.Mean(values, nil),
	}
	if len(values) > 1 {
		s.StdDev = stat.StdDev(values, nil)
	}
	return s, true
}

// PruneOlderThan evicts points older than cutoff from every buffer and
// returns the total number evicted.
func (r *Repository) PruneOlderThan(cutoff time.Time) int {
	r.mu.RLock()
	rings := make([]*Ring, 0, len(r.buffers))
	for _, rb := range r.buffers {
		rings = append(rings, rb)
	}
	r.mu.RUnlock()

	evicted := 0
	for _, rb := range rings {
		evicted += rb.RemoveOlderThan(cutoff)
	}
	return evicted
}

// Clear drops all field histories, including the field registry itself.
func (r *Repository) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buffers = make(map[FieldKey]*Ring)
}

// SubscribeChanges registers a subscriber on the change feed. Every ingested
// point publishes its FieldKey; slow subscribers drop notifications rather
// than blocking ingest.
func (r *Repository) SubscribeChanges() (string, <-chan FieldKey) {
	return r.changes.Subscribe()
}

// UnsubscribeChanges removes a change subscriber and closes its channel.
func (r *Repository) UnsubscribeChanges(id string) {
	r.changes.Unsubscribe(id)
}

// Close shuts down the change feed. The repository's data remains queryable.
func (r *Repository) Close() {
	r.changes.Close()
}
