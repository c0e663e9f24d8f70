// Package conn drives the telemetry connection lifecycle: it owns the byte
// source, runs the decode pump, and broadcasts status changes and decoded
// messages to subscribers.
//
// Reconnection is caller-driven. The manager never retries on its own; after
// a fault it sits in the error state until the next explicit Connect.
package conn

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/mavgraph/mavgraph/bytesource"
	"github.com/mavgraph/mavgraph/decode"
	"github.com/mavgraph/mavgraph/dialect"
	"github.com/mavgraph/mavgraph/feed"
	"github.com/mavgraph/mavgraph/monitoring"
	"github.com/mavgraph/mavgraph/timeutil"
)

// ErrAlreadyConnected is returned by Connect while a connection is up.
var ErrAlreadyConnected = errors.New("already connected, disconnect first")

// errAttemptAborted reports a connection attempt cut short by Disconnect.
var errAttemptAborted = errors.New("connection attempt aborted")

// attempt tracks one in-flight connection so concurrent Connect calls can
// join it instead of racing a second one.
type attempt struct {
	cancel  context.CancelFunc
	done    chan struct{}
	err     error
	aborted bool
}

// Manager is the connection state machine. One Manager handles one link at a
// time; all methods are safe for concurrent use.
type Manager struct {
	table *dialect.Table
	clock timeutil.Clock

	mu       sync.Mutex
	state    State
	status   Status
	source   bytesource.Source
	decoder  *decode.Decoder
	attempt  *attempt
	pumpDone chan struct{}
	stopping bool

	paused atomic.Bool

	dataMu   sync.RWMutex
	lastData time.Time

	statusFeed *feed.Feed[Status]
	msgFeed    *feed.Feed[decode.Message]
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock substitutes the clock used for status timestamps and liveness.
func WithClock(c timeutil.Clock) Option {
	return func(m *Manager) { m.clock = c }
}

// WithFeedBuffer sets the per-subscriber buffer size of both feeds.
func WithFeedBuffer(n int) Option {
	return func(m *Manager) {
		m.statusFeed = feed.New[Status](n)
		m.msgFeed = feed.New[decode.Message](n)
	}
}

// NewManager creates a disconnected Manager decoding against table.
func NewManager(table *dialect.Table, opts ...Option) (*Manager, error) {
	if table == nil {
		return nil, errors.New("dialect table required")
	}

	m := &Manager{
		table:      table,
		clock:      timeutil.RealClock{},
		statusFeed: feed.New[Status](feed.DefaultBuffer),
		msgFeed:    feed.New[decode.Message](feed.DefaultBuffer),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.status = Status{State: Disconnected, Message: "not connected", Timestamp: m.clock.Now()}
	return m, nil
}

// Connect builds a source from cfg and brings the link up. An invalid config
// is rejected synchronously with no state transition. On success the decode
// pump starts and the manager is Connected; on failure it is Error with
// detail, and a later Connect may retry.
//
// Only one attempt runs at a time: a Connect while another is in flight
// waits for it and returns that attempt's outcome.
func (m *Manager) Connect(ctx context.Context, cfg bytesource.Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", bytesource.ErrInvalidConfig)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	if a := m.attempt; a != nil {
		m.mu.Unlock()
		select {
		case <-a.done:
			return a.err
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if m.state == Connected || m.state == Paused {
		m.mu.Unlock()
		return ErrAlreadyConnected
	}

	actx, cancel := context.WithCancel(ctx)
	a := &attempt{cancel: cancel, done: make(chan struct{})}
	m.attempt = a
	m.transition(Connecting, "connecting to "+cfg.String(), "")
	m.mu.Unlock()

	src, err := cfg.New()
	if err == nil {
		err = src.Connect(actx)
	}
	cancel()

	m.mu.Lock()
	m.attempt = nil
	switch {
	case a.aborted:
		// Disconnect ran mid-attempt and already published its status.
		if err == nil {
			src.Disconnect()
		}
		err = errAttemptAborted
	case err != nil:
		m.transition(Error, "connection failed", err.Error())
	default:
		dec, derr := decode.NewDecoder(src, m.table, decode.WithClock(m.clock))
		if derr != nil {
			src.Disconnect()
			err = derr
			m.transition(Error, "connection failed", err.Error())
			break
		}
		m.source = src
		m.decoder = dec
		m.stopping = false
		m.paused.Store(false)
		m.pumpDone = make(chan struct{})
		go m.pump(dec, m.pumpDone)
		m.transition(Connected, "connected to "+cfg.String(), "")
	}
	a.err = err
	m.mu.Unlock()
	close(a.done)
	return err
}

// Disconnect tears the link down: it aborts any in-flight attempt, stops the
// pump, releases the source and clears the last-data timestamp. Safe from
// any state and idempotent.
func (m *Manager) Disconnect() {
	m.mu.Lock()
	if a := m.attempt; a != nil {
		a.aborted = true
		a.cancel()
	}
	src := m.source
	pumpDone := m.pumpDone
	m.source = nil
	m.pumpDone = nil
	m.stopping = true
	if m.state != Disconnected {
		m.transition(Disconnected, "disconnected", "")
	}
	m.mu.Unlock()

	if src != nil {
		src.Disconnect()
	}
	if pumpDone != nil {
		<-pumpDone
	}

	m.dataMu.Lock()
	m.lastData = time.Time{}
	m.dataMu.Unlock()
}

// Close disconnects and shuts down both feeds. The manager is unusable
// afterwards.
func (m *Manager) Close() {
	m.Disconnect()
	m.statusFeed.Close()
	m.msgFeed.Close()
}

// Pause keeps the source open and draining but discards decoded messages.
func (m *Manager) Pause() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Connected {
		return fmt.Errorf("cannot pause while %s", m.state)
	}
	m.paused.Store(true)
	m.transition(Paused, "paused", "")
	return nil
}

// Resume restarts message publication after a Pause.
func (m *Manager) Resume() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Paused {
		return fmt.Errorf("cannot resume while %s", m.state)
	}
	m.paused.Store(false)
	m.transition(Connected, "resumed", "")
	return nil
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Status returns the most recent status snapshot.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status
}

// HasRecentData reports whether any message arrived within the given window.
// This is liveness, not transport state: a silently dead link stays
// Connected while HasRecentData goes false.
func (m *Manager) HasRecentData(within time.Duration) bool {
	last := m.LastMessageAt()
	if last.IsZero() {
		return false
	}
	return m.clock.Since(last) <= within
}

// LastMessageAt returns the arrival time of the most recent message, or the
// zero time if none has been seen since the last disconnect.
func (m *Manager) LastMessageAt() time.Time {
	m.dataMu.RLock()
	defer m.dataMu.RUnlock()
	return m.lastData
}

// FrameStats returns the decode counters of the current connection, or of
// the previous one after a disconnect. Zero before the first connect.
func (m *Manager) FrameStats() decode.Snapshot {
	m.mu.Lock()
	dec := m.decoder
	m.mu.Unlock()

	if dec == nil {
		return decode.Snapshot{}
	}
	return dec.Stats().Snapshot()
}

// SubscribeStatus registers a status subscriber. The channel receives one
// Status per state transition.
func (m *Manager) SubscribeStatus() (string, <-chan Status) {
	return m.statusFeed.Subscribe()
}

// UnsubscribeStatus removes a status subscriber and closes its channel.
func (m *Manager) UnsubscribeStatus(id string) {
	m.statusFeed.Unsubscribe(id)
}

// SubscribeMessages registers a decoded-message subscriber. A subscriber
// that stops reading drops messages; it never blocks the pump.
func (m *Manager) SubscribeMessages() (string, <-chan decode.Message) {
	return m.msgFeed.Subscribe()
}

// UnsubscribeMessages removes a message subscriber and closes its channel.
func (m *Manager) UnsubscribeMessages(id string) {
	m.msgFeed.Unsubscribe(id)
}

// transition records a new state and publishes exactly one status snapshot.
// Callers hold m.mu.
func (m *Manager) transition(state State, msg, detail string) {
	m.state = state
	m.status = Status{
		State:       state,
		Message:     msg,
		Timestamp:   m.clock.Now(),
		ErrorDetail: detail,
	}
	m.statusFeed.Publish(m.status)

	if detail != "" {
		monitoring.Logf("Connection state -> %s: %s (%s)", state, msg, detail)
	} else {
		monitoring.Logf("Connection state -> %s: %s", state, msg)
	}
}

// pump is the decode loop. It runs in its own goroutine from successful
// connect until transport error or disconnect, and is the only place
// blocking reads happen.
func (m *Manager) pump(dec *decode.Decoder, done chan struct{}) {
	defer close(done)
	defer dec.Stats().LogStats()

	for {
		msg, err := dec.Next()
		if err != nil {
			m.mu.Lock()
			stopping := m.stopping
			m.mu.Unlock()
			if !stopping {
				m.transportFault(err)
			}
			return
		}

		m.dataMu.Lock()
		m.lastData = msg.Time
		m.dataMu.Unlock()

		// Paused still drains the source so kernel buffers never back
		// up; the decoded message is simply discarded.
		if m.paused.Load() {
			continue
		}
		m.msgFeed.Publish(msg)
	}
}

// transportFault moves a live connection to Error. The last-data timestamp
// is left frozen so callers can see when the stream died.
func (m *Manager) transportFault(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != Connected && m.state != Paused {
		return
	}
	src := m.source
	m.source = nil
	m.pumpDone = nil
	if src != nil {
		src.Disconnect()
	}
	m.transition(Error, "connection lost", err.Error())
}
