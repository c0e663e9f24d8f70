package bytesource

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

// USBConfig selects a serial device by USB identity instead of a port name.
// The first enumerated USB serial device matching the vendor/product filter
// is opened; empty filter fields match any device. This is how flight
// controllers plugged straight into the host are found without the user
// knowing the platform's port naming.
type USBConfig struct {
	BaudRate  int
	VendorID  string // 4-digit hex as reported by the enumerator, e.g. "2DAE"
	ProductID string
}

func (USBConfig) isConfig() {}

// Validate checks the rate and filter fields.
func (c USBConfig) Validate() error {
	if c.BaudRate < 0 {
		return fmt.Errorf("%w: negative baud rate %d", ErrInvalidConfig, c.BaudRate)
	}
	for _, id := range []string{c.VendorID, c.ProductID} {
		if len(id) > 4 {
			return fmt.Errorf("%w: usb id %q longer than 4 hex digits", ErrInvalidConfig, id)
		}
	}
	return nil
}

// New builds an unconnected source that resolves the device at Connect time.
func (c USBConfig) New() (Source, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &USBSource{cfg: c, list: listDetailedPorts, open: serial.Open}, nil
}

func (c USBConfig) String() string {
	vid, pid := c.VendorID, c.ProductID
	if vid == "" {
		vid = "*"
	}
	if pid == "" {
		pid = "*"
	}
	return fmt.Sprintf("usb %s:%s @ %d baud", vid, pid, c.baud())
}

func (c USBConfig) baud() int {
	if c.BaudRate <= 0 {
		return DefaultBaudRate
	}
	return c.BaudRate
}

// USBSource resolves a USB serial device by VID/PID at connect time and then
// behaves exactly like a SerialSource on the resolved port.
type USBSource struct {
	cfg  USBConfig
	list func() ([]*enumerator.PortDetails, error)
	open openPort

	mu     sync.Mutex
	serial *SerialSource
	closed bool
}

// Connect enumerates USB serial devices, picks the first match and opens it.
func (s *USBSource) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return fmt.Errorf("source for %s is single-use, already disconnected", s.cfg)
	}
	if s.serial != nil {
		s.mu.Unlock()
		return fmt.Errorf("source for %s already connected", s.cfg)
	}
	s.mu.Unlock()

	ports, err := s.list()
	if err != nil {
		return fmt.Errorf("failed to enumerate serial ports: %w", err)
	}

	var name string
	for _, d := range ports {
		if matchUSB(d, s.cfg.VendorID, s.cfg.ProductID) {
			name = d.Name
			break
		}
	}
	if name == "" {
		return fmt.Errorf("%w: no usb serial device matches %s", ErrPortUnavailable, s.cfg)
	}

	inner := &SerialSource{
		cfg:  SerialConfig{Port: name, BaudRate: s.cfg.BaudRate},
		open: s.open,
	}
	if err := inner.Connect(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		// Disconnect raced the enumeration; release the port we just opened.
		s.mu.Unlock()
		inner.Disconnect()
		return fmt.Errorf("source for %s is single-use, already disconnected", s.cfg)
	}
	s.serial = inner
	s.mu.Unlock()
	return nil
}

// Read delegates to the resolved port.
func (s *USBSource) Read(p []byte) (int, error) {
	s.mu.Lock()
	inner := s.serial
	s.mu.Unlock()
	if inner == nil {
		return 0, ErrNotConnected
	}
	return inner.Read(p)
}

// Disconnect closes the resolved port, if any.
func (s *USBSource) Disconnect() error {
	s.mu.Lock()
	inner := s.serial
	s.closed = true
	s.mu.Unlock()

	if inner == nil {
		return nil
	}
	return inner.Disconnect()
}

// Connected reports whether a resolved port is open.
func (s *USBSource) Connected() bool {
	s.mu.Lock()
	inner := s.serial
	s.mu.Unlock()
	return inner != nil && inner.Connected()
}

// Port returns the resolved device path, or empty before Connect.
func (s *USBSource) Port() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.serial == nil {
		return ""
	}
	return s.serial.cfg.Port
}

func matchUSB(d *enumerator.PortDetails, vid, pid string) bool {
	if !d.IsUSB {
		return false
	}
	if vid != "" && !strings.EqualFold(d.VID, vid) {
		return false
	}
	if pid != "" && !strings.EqualFold(d.PID, pid) {
		return false
	}
	return true
}
