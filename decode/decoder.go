// Package decode turns a raw telemetry byte stream into named, numeric
// field samples using a dialect table for wire layout.
//
// Framing and resynchronisation are delegated to the gomavlib frame reader;
// payload interpretation is schema-driven from the dialect table, so the
// decoder handles any message the table describes without compiled-in
// definitions. Malformed input never propagates: bad checksums, unknown IDs
// and framing garbage are counted and skipped, and Next keeps scanning until
// it has a good message or the transport itself fails.
package decode

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"math"
	"time"

	"github.com/bluenviron/gomavlib/v3/pkg/frame"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"github.com/mavgraph/mavgraph/bytesource"
	"github.com/mavgraph/mavgraph/dialect"
	"github.com/mavgraph/mavgraph/timeutil"
	"go.bug.st/serial"
)

// Message is one decoded telemetry message: every scalar numeric field,
// widened to float64, keyed by the dialect field name. Time is the arrival
// time, not the vehicle's boot clock.
type Message struct {
	ID          uint32
	Name        string
	SystemID    byte
	ComponentID byte
	Time        time.Time
	Fields      map[string]float64
}

// Decoder reads MAVLink frames from a byte stream and resolves them against
// a dialect table. Not safe for concurrent use; each stream gets one
// decoding goroutine.
type Decoder struct {
	table *dialect.Table
	fr    *frame.Reader
	clock timeutil.Clock
	stats *Stats
}

// Option configures a Decoder.
type Option func(*Decoder)

// WithClock substitutes the clock used for message arrival times.
func WithClock(c timeutil.Clock) Option {
	return func(d *Decoder) { d.clock = c }
}

// NewDecoder wraps a byte stream. The table supplies wire layout and CRC
// seeds for every recognisable message.
func NewDecoder(r io.Reader, table *dialect.Table, opts ...Option) (*Decoder, error) {
	if table == nil {
		return nil, errors.New("dialect table required")
	}

	d := &Decoder{
		table: table,
		clock: timeutil.RealClock{},
		stats: NewStats(),
	}
	for _, opt := range opts {
		opt(d)
	}

	fr, err := frame.NewReader(frame.ReaderConf{
		Reader: &countingReader{r: r, stats: d.stats},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build frame reader: %w", err)
	}
	d.fr = fr
	return d, nil
}

// Stats returns the decoder's counters.
func (d *Decoder) Stats() *Stats {
	return d.stats
}

// Next returns the next well-formed, recognised message. It skips over
// framing garbage, checksum failures and messages absent from the dialect
// table, counting each. A returned error always means the transport is
// done: the stream ended, the source disconnected, or the port faulted.
func (d *Decoder) Next() (Message, error) {
	for {
		f, err := d.fr.Read()
		if err != nil {
			if isTransportError(err) {
				return Message{}, err
			}
			d.stats.addFrameError()
			continue
		}
		d.stats.addFrame()

		raw, ok := f.GetMessage().(*message.MessageRaw)
		if !ok {
			d.stats.addFrameError()
			continue
		}

		def, ok := d.table.Message(raw.GetID())
		if !ok {
			d.stats.addUnknownID()
			continue
		}

		if f.GenerateChecksum(def.CRCExtra) != f.GetChecksum() {
			d.stats.addChecksumFailure()
			continue
		}

		fields, ok := decodeFields(def, raw.Payload)
		if !ok {
			d.stats.addFrameError()
			continue
		}

		d.stats.addMessage()
		return Message{
			ID:          def.ID,
			Name:        def.Name,
			SystemID:    f.GetSystemID(),
			ComponentID: f.GetComponentID(),
			Time:        d.clock.Now(),
			Fields:      fields,
		}, nil
	}
}

// isTransportError separates stream-is-over failures from recoverable
// frame-level noise. Anything the frame reader reports that is not a known
// transport condition is treated as garbage in the stream.
func isTransportError(err error) bool {
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, fs.ErrClosed) ||
		errors.Is(err, bytesource.ErrNotConnected) {
		return true
	}
	var pe *serial.PortError
	return errors.As(err, &pe)
}

// decodeFields unpacks every scalar field from a payload. MAVLink v2
// truncates trailing zero bytes, and v1 frames omit extension fields
// entirely, so short payloads are zero-extended to the full encoded length
// before reading. Payloads longer than the encoded length are malformed.
func decodeFields(def *dialect.Message, payload []byte) (map[string]float64, bool) {
	if len(payload) > def.EncodedLength {
		return nil, false
	}
	if len(payload) < def.EncodedLength {
		padded := make([]byte, def.EncodedLength)
		copy(padded, payload)
		payload = padded
	}

	fields := make(map[string]float64, len(def.Fields))
	for _, f := range def.Fields {
		if !f.Scalar() {
			continue
		}
		v, ok := readScalar(payload[f.Offset:f.Offset+f.Size], f.BaseType)
		if !ok {
			return nil, false
		}
		fields[f.Name] = v
	}
	return fields, true
}

// readScalar reads one little-endian value and widens it to float64.
func readScalar(b []byte, baseType string) (float64, bool) {
	switch baseType {
	case "uint8_t":
		return float64(b[0]), true
	case "int8_t":
		return float64(int8(b[0])), true
	case "uint16_t":
		return float64(binary.LittleEndian.Uint16(b)), true
	case "int16_t":
		return float64(int16(binary.LittleEndian.Uint16(b))), true
	case "uint32_t":
		return float64(binary.LittleEndian.Uint32(b)), true
	case "int32_t":
		return float64(int32(binary.LittleEndian.Uint32(b))), true
	case "uint64_t":
		return float64(binary.LittleEndian.Uint64(b)), true
	case "int64_t":
		return float64(int64(binary.LittleEndian.Uint64(b))), true
	case "float":
		return float64(math.Float32frombits(binary.LittleEndian.Uint32(b))), true
	case "double":
		return math.Float64frombits(binary.LittleEndian.Uint64(b)), true
	}
	return 0, false
}

// countingReader tallies raw transport bytes as they pass into the framer.
type countingReader struct {
	r     io.Reader
	stats *Stats
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.stats.addBytes(n)
	}
	return n, err
}
