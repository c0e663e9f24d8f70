// Package bytesource abstracts where telemetry bytes come from. A Source is a
// single-use connected byte stream: hardware serial ports, USB-discovered
// ports, or an in-process synthetic vehicle. The decoder upstream sees only
// io.Reader, so every variant exercises the identical framing path.
//
// Sources are built from Config values. A Config is immutable, comparable and
// validated before any connection work starts; its New method is the only
// place concrete source types are chosen, so callers never branch on the
// variant.
package bytesource

import (
	"context"
	"errors"
	"io"
)

// DefaultBaudRate is used when a config leaves BaudRate zero. 57600 is the
// conventional MAVLink telemetry radio rate.
const DefaultBaudRate = 57600

var (
	// ErrPortUnavailable indicates the requested port does not exist, is in
	// use, or no enumerated device matched.
	ErrPortUnavailable = errors.New("serial port unavailable")

	// ErrPermissionDenied indicates the port exists but cannot be opened by
	// this process.
	ErrPermissionDenied = errors.New("serial port permission denied")

	// ErrInvalidConfig indicates a Config failed validation. Returned before
	// any connection work is attempted.
	ErrInvalidConfig = errors.New("invalid source config")

	// ErrNotConnected is returned by Read on a source that was never
	// connected.
	ErrNotConnected = errors.New("source not connected")
)

// Source is a connected stream of telemetry bytes.
//
// Read delivers whatever chunk the transport produced: no alignment with
// frame boundaries is guaranteed. Read blocks until data arrives, the source
// is disconnected (io.EOF), or the transport faults. A Source is single-use:
// once disconnected it cannot be reconnected, a fresh Source is built from
// the Config for every attempt.
type Source interface {
	io.Reader

	// Connect acquires the underlying transport. It is called at most once.
	Connect(ctx context.Context) error

	// Disconnect releases the transport and unblocks any pending Read.
	// It is idempotent and safe to call in any state.
	Disconnect() error

	// Connected reports whether the source is currently delivering bytes.
	Connected() bool
}

// Config describes how to reach a byte source. Implementations are the
// serial, USB and spoof config types in this package; the marker method
// keeps the set closed.
type Config interface {
	// Validate checks the config without touching hardware. A non-nil
	// result wraps ErrInvalidConfig.
	Validate() error

	// New builds an unconnected Source for this config.
	New() (Source, error)

	// String describes the target for status messages.
	String() string

	isConfig()
}
