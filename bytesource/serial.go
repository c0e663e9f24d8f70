package bytesource

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"sync"

	"go.bug.st/serial"
)

// SerialConfig names a hardware serial port. MAVLink links are 8N1, so only
// the rate is configurable.
type SerialConfig struct {
	Port     string
	BaudRate int
}

func (SerialConfig) isConfig() {}

// Validate checks the port name and rate.
func (c SerialConfig) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("%w: serial port name required", ErrInvalidConfig)
	}
	if c.BaudRate < 0 {
		return fmt.Errorf("%w: negative baud rate %d", ErrInvalidConfig, c.BaudRate)
	}
	return nil
}

// New builds an unconnected source for this port.
func (c SerialConfig) New() (Source, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &SerialSource{cfg: c, open: serial.Open}, nil
}

func (c SerialConfig) String() string {
	return fmt.Sprintf("serial %s @ %d baud", c.Port, c.baud())
}

func (c SerialConfig) baud() int {
	if c.BaudRate <= 0 {
		return DefaultBaudRate
	}
	return c.BaudRate
}

// openPort opens the hardware port. Replaceable so tests run without
// serial devices.
type openPort func(name string, mode *serial.Mode) (serial.Port, error)

// SerialSource reads from a hardware serial port via go.bug.st/serial.
type SerialSource struct {
	cfg  SerialConfig
	open openPort

	mu        sync.Mutex
	port      serial.Port
	connected bool
	closed    bool
}

// Connect opens the port in blocking-read mode.
func (s *SerialSource) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("source for %s is single-use, already disconnected", s.cfg.Port)
	}
	if s.connected {
		return fmt.Errorf("source for %s already connected", s.cfg.Port)
	}

	mode := &serial.Mode{
		BaudRate: s.cfg.baud(),
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := s.open(s.cfg.Port, mode)
	if err != nil {
		return mapOpenError(s.cfg.Port, err)
	}

	s.port = port
	s.connected = true
	return nil
}

// Read delivers the next chunk from the port. After Disconnect it returns
// io.EOF; the close is what unblocks a pending read.
func (s *SerialSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	port := s.port
	s.mu.Unlock()
	if port == nil {
		return 0, ErrNotConnected
	}

	n, err := port.Read(p)
	if err != nil && !s.Connected() {
		return n, io.EOF
	}
	return n, err
}

// Disconnect closes the port. Safe to call in any state, repeatedly.
func (s *SerialSource) Disconnect() error {
	s.mu.Lock()
	port := s.port
	wasClosed := s.closed
	s.port = nil
	s.connected = false
	s.closed = true
	s.mu.Unlock()

	if wasClosed || port == nil {
		return nil
	}
	if err := port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", s.cfg.Port, err)
	}
	return nil
}

// Connected reports whether the port is open.
func (s *SerialSource) Connected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

// mapOpenError translates go.bug.st/serial open failures into the package
// sentinels so callers can distinguish missing ports from permission
// problems without importing the serial library. The library reports some
// failures as PortError codes and passes others through as raw errno values,
// so both shapes are handled.
func mapOpenError(port string, err error) error {
	var pe *serial.PortError
	if errors.As(err, &pe) {
		switch pe.Code() {
		case serial.PortNotFound:
			return fmt.Errorf("%w: %s not found", ErrPortUnavailable, port)
		case serial.PortBusy:
			return fmt.Errorf("%w: %s is in use", ErrPortUnavailable, port)
		case serial.PermissionDenied:
			return fmt.Errorf("%w: %s", ErrPermissionDenied, port)
		}
	}
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s not found", ErrPortUnavailable, port)
	}
	if errors.Is(err, fs.ErrPermission) {
		return fmt.Errorf("%w: %s", ErrPermissionDenied, port)
	}
	return fmt.Errorf("failed to open %s: %w", port, err)
}
