package decode

import (
	"sync"
	"time"

	"github.com/mavgraph/mavgraph/monitoring"
)

// counters is one bucket of frame-level tallies.
type counters struct {
	frames           int64
	messages         int64
	bytes            int64
	checksumFailures int64
	unknownIDs       int64
	frameErrors      int64
}

// Stats tracks decoder counters with thread-safe operations. Totals are
// cumulative for the life of the decoder; LogStats reports per-second rates
// over the interval since the previous LogStats call.
type Stats struct {
	mu      sync.Mutex
	total   counters
	logged  counters
	lastLog time.Time
	start   time.Time
}

// Snapshot is a point-in-time copy of the cumulative counters.
type Snapshot struct {
	Frames           int64
	Messages         int64
	Bytes            int64
	ChecksumFailures int64
	UnknownIDs       int64
	FrameErrors      int64
	Uptime           time.Duration
}

// Dropped returns how many frames were discarded for any reason.
func (s Snapshot) Dropped() int64 {
	return s.ChecksumFailures + s.UnknownIDs + s.FrameErrors
}

// NewStats creates a Stats instance.
func NewStats() *Stats {
	now := time.Now()
	return &Stats{lastLog: now, start: now}
}

func (s *Stats) addFrame() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total.frames++
}

func (s *Stats) addMessage() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total.messages++
}

func (s *Stats) addBytes(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total.bytes += int64(n)
}

func (s *Stats) addChecksumFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total.checksumFailures++
}

func (s *Stats) addUnknownID() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total.unknownIDs++
}

func (s *Stats) addFrameError() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.total.frameErrors++
}

// Snapshot returns the cumulative counters.
func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Snapshot{
		Frames:           s.total.frames,
		Messages:         s.total.messages,
		Bytes:            s.total.bytes,
		ChecksumFailures: s.total.checksumFailures,
		UnknownIDs:       s.total.unknownIDs,
		FrameErrors:      s.total.frameErrors,
		Uptime:           time.Since(s.start),
	}
}

// LogStats logs per-second rates for the interval since the last call.
// Nothing is logged for an idle interval.
func (s *Stats) LogStats() {
	s.mu.Lock()
	now := time.Now()
	elapsed := now.Sub(s.lastLog)
	delta := counters{
		frames:           s.total.frames - s.logged.frames,
		messages:         s.total.messages - s.logged.messages,
		bytes:            s.total.bytes - s.logged.bytes,
		checksumFailures: s.total.checksumFailures - s.logged.checksumFailures,
		unknownIDs:       s.total.unknownIDs - s.logged.unknownIDs,
		frameErrors:      s.total.frameErrors - s.logged.frameErrors,
	}
	s.logged = s.total
	s.lastLog = now
	s.mu.Unlock()

	dropped := delta.checksumFailures + delta.unknownIDs + delta.frameErrors
	if delta.frames == 0 && dropped == 0 {
		return
	}
	if elapsed <= 0 {
		elapsed = time.Nanosecond
	}

	secs := elapsed.Seconds()
	msg := "Telemetry stats (/sec): %.1f frames, %.1f messages, %.2f KB"
	args := []interface{}{
		float64(delta.frames) / secs,
		float64(delta.messages) / secs,
		float64(delta.bytes) / secs / 1024,
	}
	if dropped > 0 {
		msg += ", %d dropped (%d bad checksum, %d unknown id, %d framing)"
		args = append(args, dropped, delta.checksumFailures, delta.unknownIDs, delta.frameErrors)
	}
	monitoring.Logf(msg, args...)
}
