package bytesource

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.bug.st/serial"
	"go.bug.st/serial/enumerator"
)

func fakeDeviceList() []*enumerator.PortDetails {
	return []*enumerator.PortDetails{
		{Name: "/dev/ttyS0", IsUSB: false},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "1A2B", PID: "3C4D", SerialNumber: "A001"},
		{Name: "/dev/ttyACM1", IsUSB: true, VID: "2DAE", PID: "1016", SerialNumber: "B002"},
	}
}

func newTestUSBSource(cfg USBConfig, opened *string) *USBSource {
	return &USBSource{
		cfg:  cfg,
		list: func() ([]*enumerator.PortDetails, error) { return fakeDeviceList(), nil },
		open: func(name string, mode *serial.Mode) (serial.Port, error) {
			if opened != nil {
				*opened = name
			}
			return newFakePort(nil), nil
		},
	}
}

func TestUSBConnectMatchesFilter(t *testing.T) {
	var opened string
	// lowercase filter must match the enumerator's uppercase hex
	src := newTestUSBSource(USBConfig{VendorID: "2dae", ProductID: "1016"}, &opened)

	if err := src.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer src.Disconnect()

	if opened != "/dev/ttyACM1" {
		t.Errorf("opened %q, want /dev/ttyACM1", opened)
	}
	if src.Port() != "/dev/ttyACM1" {
		t.Errorf("Port() = %q, want /dev/ttyACM1", src.Port())
	}
	if !src.Connected() {
		t.Error("Connected() false after Connect")
	}
}

func TestUSBEmptyFilterTakesFirstUSBDevice(t *testing.T) {
	var opened string
	src := newTestUSBSource(USBConfig{}, &opened)

	if err := src.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	defer src.Disconnect()

	// /dev/ttyS0 is not USB and must be skipped
	if opened != "/dev/ttyACM0" {
		t.Errorf("opened %q, want /dev/ttyACM0", opened)
	}
}

func TestUSBNoMatch(t *testing.T) {
	src := newTestUSBSource(USBConfig{VendorID: "FFFF"}, nil)

	err := src.Connect(context.Background())
	if !errors.Is(err, ErrPortUnavailable) {
		t.Errorf("Connect = %v, want ErrPortUnavailable", err)
	}
	if src.Connected() {
		t.Error("Connected() true after failed Connect")
	}
}

func TestUSBEnumerationFailure(t *testing.T) {
	boom := errors.New("udev exploded")
	src := &USBSource{
		cfg:  USBConfig{},
		list: func() ([]*enumerator.PortDetails, error) { return nil, boom },
		open: serial.Open,
	}

	err := src.Connect(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Connect = %v, want wrapped enumeration failure", err)
	}
}

func TestUSBReadBeforeConnect(t *testing.T) {
	src := newTestUSBSource(USBConfig{}, nil)
	if _, err := src.Read(make([]byte, 8)); !errors.Is(err, ErrNotConnected) {
		t.Errorf("Read = %v, want ErrNotConnected", err)
	}
}

func TestUSBDisconnectBeforeConnect(t *testing.T) {
	src := newTestUSBSource(USBConfig{}, nil)
	if err := src.Disconnect(); err != nil {
		t.Errorf("Disconnect = %v, want nil", err)
	}
	// spent after disconnect
	if err := src.Connect(context.Background()); err == nil {
		t.Error("Connect on a spent source succeeded")
	}
}

func TestUSBConfigValidate(t *testing.T) {
	if err := (USBConfig{VendorID: "2DAE", ProductID: "1016"}).Validate(); err != nil {
		t.Errorf("valid config rejected: %v", err)
	}
	if err := (USBConfig{VendorID: "12345"}).Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("oversized vendor id accepted: %v", err)
	}
	if err := (USBConfig{BaudRate: -9600}).Validate(); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("negative baud accepted: %v", err)
	}
}

func TestUSBConfigString(t *testing.T) {
	got := USBConfig{VendorID: "2DAE"}.String()
	if !strings.Contains(got, "2DAE") || !strings.Contains(got, "*") {
		t.Errorf("String() = %q, want vendor filter and wildcard product", got)
	}
}

func TestListPorts(t *testing.T) {
	orig := listDetailedPorts
	defer func() { listDetailedPorts = orig }()
	listDetailedPorts = func() ([]*enumerator.PortDetails, error) { return fakeDeviceList(), nil }

	ports, err := ListPorts()
	if err != nil {
		t.Fatalf("ListPorts: %v", err)
	}
	if len(ports) != 3 {
		t.Fatalf("ListPorts returned %d ports, want 3", len(ports))
	}
	if ports[1].VendorID != "1A2B" || !ports[1].IsUSB {
		t.Errorf("ports[1] = %+v, want USB 1A2B", ports[1])
	}
}
