package timeseries

import (
	"sync"
	"time"
)

// DefaultCapacity sizes a ring for roughly ten minutes of data at typical
// telemetry rates (a few samples per second per field).
const DefaultCapacity = 4096

// Ring is a fixed-capacity circular buffer of Points. A full ring evicts the
// single oldest point on each Add. Capacity is fixed at construction.
//
// The ingest path is the only caller of Add, and it appends points with
// non-decreasing timestamps; the ring never re-sorts. All methods are safe for
// concurrent use, and readers always see a consistent view: Snapshot copies,
// it never exposes the backing array.
type Ring struct {
	mu       sync.RWMutex
	points   []Point
	capacity int
	head     int // next write position
	size     int
}

// NewRing creates a ring holding at most capacity points. A capacity below 1
// falls back to DefaultCapacity.
func NewRing(capacity int) *Ring {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Ring{
		points:   make([]Point, capacity),
		capacity: capacity,
	}
}

// Add appends a point, evicting the oldest when the ring is full. O(1).
func (r *Ring) Add(p Point) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.points[r.head] = p
	r.head = (r.head + 1) % r.capacity
	if r.size < r.capacity {
		r.size++
	}
}

// RemoveOlderThan evicts points with Timestamp before cutoff and returns the
// number evicted. Points are ordered, so it pops from the front and stops at
// the first point that is recent enough: O(evicted), and calling it again
// with the same cutoff evicts nothing.
func (r *Ring) RemoveOlderThan(cutoff time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	evicted := 0
	for r.size > 0 {
		oldest := (r.head - r.size + r.capacity) % r.capacity
		if !r.points[oldest].Timestamp.Before(cutoff) {
			break
		}
		r.size--
		evicted++
	}
	return evicted
}

// Snapshot returns an independent copy of the current contents in
// oldest-to-newest order, or nil when empty. Later mutations of the ring do
// not affect the returned slice.
func (r *Ring) Snapshot() []Point {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.size == 0 {
		return nil
	}
	out := make([]Point, r.size)
	for i := 0; i < r.size; i++ {
		out[i] = r.points[(r.head-r.size+i+r.capacity)%r.capacity]
	}
	return out
}

// Newest returns the most recently added point and whether one exists.
func (r *Ring) Newest() (Point, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.size == 0 {
		return Point{}, false
	}
	return r.points[(r.head-1+r.capacity)%r.capacity], true
}

// Len returns the number of points currently stored.
func (r *Ring) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.size
}

// Empty reports whether the ring holds no points.
func (r *Ring) Empty() bool {
	return r.Len() == 0
}

// Cap returns the fixed capacity.
func (r *Ring) Cap() int {
	return r.capacity
}

// Clear removes all points without releasing the backing array.
func (r *Ring) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.head = 0
	r.size = 0
}
