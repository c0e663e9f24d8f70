package bytesource

import (
	"context"
	"fmt"
	"io"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
)

// DefaultSpoofInterval is the emission period when SpoofConfig.Interval is
// zero. 50ms matches the 20Hz attitude stream of a typical autopilot.
const DefaultSpoofInterval = 50 * time.Millisecond

// SpoofConfig describes an in-process synthetic vehicle. It encodes real
// MAVLink v2 frames through the same wire format as hardware, so everything
// downstream of the byte stream is exercised for real. Connection never
// requires external resources and never fails.
//
// The generator is seeded: two sources built from configs with equal Seed
// emit identical streams.
type SpoofConfig struct {
	SystemID    byte
	ComponentID byte
	BaudRate    int
	Seed        int64
	Interval    time.Duration
}

func (SpoofConfig) isConfig() {}

// Validate checks the emission interval and rate.
func (c SpoofConfig) Validate() error {
	if c.Interval < 0 {
		return fmt.Errorf("%w: negative spoof interval %v", ErrInvalidConfig, c.Interval)
	}
	if c.BaudRate < 0 {
		return fmt.Errorf("%w: negative baud rate %d", ErrInvalidConfig, c.BaudRate)
	}
	return nil
}

// New builds an unconnected synthetic source.
func (c SpoofConfig) New() (Source, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &SpoofSource{cfg: c}, nil
}

func (c SpoofConfig) String() string {
	return fmt.Sprintf("spoof sys %d comp %d seed %d", c.systemID(), c.componentID(), c.Seed)
}

func (c SpoofConfig) systemID() byte {
	if c.SystemID == 0 {
		return 1
	}
	return c.SystemID
}

func (c SpoofConfig) componentID() byte {
	if c.ComponentID == 0 {
		return 1
	}
	return c.ComponentID
}

func (c SpoofConfig) interval() time.Duration {
	if c.Interval <= 0 {
		return DefaultSpoofInterval
	}
	return c.Interval
}

// SpoofSource emits a plausible quadrotor: sinusoidal attitude, a GPS random
// walk and HUD metrics at the configured interval, plus a 1Hz heartbeat.
// Bytes surface through an in-memory pipe, so Read has ordinary blocking
// stream semantics.
type SpoofSource struct {
	cfg SpoofConfig

	mu        sync.Mutex
	pr        *io.PipeReader
	pw        *io.PipeWriter
	stop      chan struct{}
	done      chan struct{}
	connected bool
	closed    bool
}

// Connect starts the generator goroutine.
func (s *SpoofSource) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("source for %s is single-use, already disconnected", s.cfg)
	}
	if s.connected {
		return fmt.Errorf("source for %s already connected", s.cfg)
	}

	rw, err := dialect.NewReadWriter(common.Dialect)
	if err != nil {
		return fmt.Errorf("failed to build dialect writer: %w", err)
	}

	pr, pw := io.Pipe()
	w, err := frame.NewWriter(frame.WriterConf{
		Writer:         pw,
		DialectRW:      rw,
		OutVersion:     frame.V2,
		OutSystemID:    s.cfg.systemID(),
		OutComponentID: s.cfg.componentID(),
	})
	if err != nil {
		pw.Close()
		return fmt.Errorf("failed to build frame writer: %w", err)
	}

	s.pr, s.pw = pr, pw
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	s.connected = true

	go s.run(w)
	return nil
}

// Read delivers the next chunk of encoded frames. After Disconnect it
// returns io.EOF.
func (s *SpoofSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	pr := s.pr
	s.mu.Unlock()
	if pr == nil {
		return 0, ErrNotConnected
	}
	return pr.Read(p)
}

// Disconnect stops the generator and gives readers io.EOF.
func (s *SpoofSource) Disconnect() error {
	s.mu.Lock()
	wasClosed := s.closed
	stop, pw, done := s.stop, s.pw, s.done
	s.connected = false
	s.closed = true
	s.mu.Unlock()

	if wasClosed {
		return nil
	}
	if stop != nil {
		close(stop)
	}
	if pw != nil {
		// unblocks a generator mid-write and ends the read side
		pw.Close()
	}
	if done != nil {
		<-done
	}
	return nil
}

// Connected reports whether the generator is running.
func (s *SpoofSource) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *SpoofSource) run(w *frame.Writer) {
	defer close(s.done)

	interval := s.cfg.interval()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	heartbeatEvery := int(time.Second / interval)
	if heartbeatEvery < 1 {
		heartbeatEvery = 1
	}

	v := newSpoofVehicle(s.cfg.Seed, interval)

	// emit immediately so subscribers see data without waiting a full tick
	if err := v.emit(w, true); err != nil {
		return
	}

	tick := 0
	for {
		select {
		case <-s.stop:
			return
		case <-ticker.C:
			tick++
			if err := v.emit(w, tick%heartbeatEvery == 0); err != nil {
				return
			}
		}
	}
}

// spoofVehicle holds the simulated state between ticks. The boot clock is
// derived from the tick count, not wall time, so equal seeds give
// byte-identical payload streams.
type spoofVehicle struct {
	rng      *rand.Rand
	interval time.Duration

	tick  int
	phase float64
	yaw   float64
	lat   int32 // degE7
	lon   int32
	altMM int32
}

func newSpoofVehicle(seed int64, interval time.Duration) *spoofVehicle {
	return &spoofVehicle{
		rng:      rand.New(rand.NewSource(seed)),
		interval: interval,
		lat:      476062000,   // 47.6062 N
		lon:      -1223321000, // 122.3321 W
		altMM:    120000,
	}
}

func (v *spoofVehicle) emit(w *frame.Writer, heartbeat bool) error {
	bootMs := uint32(int64(v.tick) * v.interval.Milliseconds())
	v.tick++
	v.phase += 0.05
	v.yaw += 0.01
	if v.yaw > math.Pi {
		v.yaw -= 2 * math.Pi
	}

	// random walk: about a metre of jitter per second at the default rate
	v.lat += int32(v.rng.Intn(21) - 10)
	v.lon += int32(v.rng.Intn(21) - 10)
	v.altMM += int32(v.rng.Intn(41) - 20)

	roll := 0.3 * math.Sin(v.phase)
	pitch := 0.15 * math.Sin(0.7*v.phase)
	climb := 0.5 * math.Sin(0.5*v.phase)

	headingDeg := v.yaw * 180 / math.Pi
	if headingDeg < 0 {
		headingDeg += 360
	}

	msgs := []message.Message{
		&common.MessageAttitude{
			TimeBootMs: bootMs,
			Roll:       float32(roll),
			Pitch:      float32(pitch),
			Yaw:        float32(v.yaw),
			Rollspeed:  float32(0.3 * math.Cos(v.phase)),
			Pitchspeed: float32(0.15 * 0.7 * math.Cos(0.7*v.phase)),
			Yawspeed:   0.2,
		},
		&common.MessageGlobalPositionInt{
			TimeBootMs:  bootMs,
			Lat:         v.lat,
			Lon:         v.lon,
			Alt:         v.altMM,
			RelativeAlt: v.altMM - 100000,
			Vx:          int16(300 * math.Cos(v.yaw)),
			Vy:          int16(300 * math.Sin(v.yaw)),
			Vz:          int16(-100 * climb),
			Hdg:         uint16(headingDeg * 100),
		},
		&common.MessageVfrHud{
			Airspeed:    float32(15 + 1.5*math.Sin(v.phase) + 0.4*v.rng.Float64() - 0.2),
			Groundspeed: 3,
			Heading:     int16(headingDeg),
			Throttle:    uint16(55 + 10*math.Sin(0.3*v.phase)),
			Alt:         float32(v.altMM) / 1000,
			Climb:       float32(climb),
		},
	}

	for _, m := range msgs {
		if err := w.WriteMessage(m); err != nil {
			return err
		}
	}

	if heartbeat {
		hb := &common.MessageHeartbeat{
			Type:           common.MAV_TYPE_QUADROTOR,
			Autopilot:      common.MAV_AUTOPILOT_GENERIC,
			BaseMode:       common.MAV_MODE_FLAG_CUSTOM_MODE_ENABLED | common.MAV_MODE_FLAG_SAFETY_ARMED,
			CustomMode:     4,
			SystemStatus:   common.MAV_STATE_ACTIVE,
			MavlinkVersion: 3,
		}
		if err := w.WriteMessage(hb); err != nil {
			return err
		}
	}
	return nil
}
