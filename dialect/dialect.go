// Package dialect loads MAVLink message metadata from the JSON side tables
// emitted by the dialect generator. A Table maps message IDs to wire layout
// (field offsets, sizes, base types) and the per-message CRC extra, which is
// everything the decoder needs to validate and unpack frames without
// compiled-in message definitions.
package dialect

import (
	"fmt"
	"sort"
)

// Sizes in bytes of the MAVLink base types.
var baseTypeSizes = map[string]int{
	"char":     1,
	"uint8_t":  1,
	"int8_t":   1,
	"uint16_t": 2,
	"int16_t":  2,
	"uint32_t": 4,
	"int32_t":  4,
	"float":    4,
	"uint64_t": 8,
	"int64_t":  8,
	"double":   8,
}

// Field describes one field of a message on the wire. Offset and Size refer
// to the encoded (size-ordered) layout, with Size counting a single element;
// arrays occupy Size*ArrayLength bytes.
type Field struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	BaseType    string `json:"base_type"`
	Offset      int    `json:"offset"`
	Size        int    `json:"size"`
	ArrayLength int    `json:"array_length"`
	Units       string `json:"units"`
	Enum        string `json:"enum"`
	Extension   bool   `json:"extension"`
}

// Scalar reports whether the field is a single numeric value. Array fields
// and character data are not plotted and are skipped by the decoder.
func (f Field) Scalar() bool {
	return f.ArrayLength <= 1 && f.BaseType != "char"
}

// wireSize returns the total encoded size of the field in bytes.
func (f Field) wireSize() int {
	n := f.ArrayLength
	if n < 1 {
		n = 1
	}
	return f.Size * n
}

// Message describes one message type: identity, checksum seed and wire layout.
type Message struct {
	ID            uint32  `json:"id"`
	Name          string  `json:"name"`
	CRCExtra      uint8   `json:"crc_extra"`
	EncodedLength int     `json:"encoded_length"`
	Fields        []Field `json:"fields"`
}

// ScalarFields returns the message's plottable fields in wire order.
func (m *Message) ScalarFields() []Field {
	out := make([]Field, 0, len(m.Fields))
	for _, f := range m.Fields {
		if f.Scalar() {
			out = append(out, f)
		}
	}
	return out
}

func (m *Message) validate() error {
	if m.Name == "" {
		return fmt.Errorf("message %d has no name", m.ID)
	}
	if m.EncodedLength <= 0 {
		return fmt.Errorf("message %s has invalid encoded_length %d", m.Name, m.EncodedLength)
	}
	for _, f := range m.Fields {
		if f.Name == "" {
			return fmt.Errorf("message %s has an unnamed field", m.Name)
		}
		want, ok := baseTypeSizes[f.BaseType]
		if !ok {
			return fmt.Errorf("message %s field %s has unknown base type %q", m.Name, f.Name, f.BaseType)
		}
		if f.Size != want {
			return fmt.Errorf("message %s field %s has size %d, want %d for %s",
				m.Name, f.Name, f.Size, want, f.BaseType)
		}
		if f.Offset < 0 || f.Offset+f.wireSize() > m.EncodedLength {
			return fmt.Errorf("message %s field %s extends past encoded_length (offset %d, size %d, length %d)",
				m.Name, f.Name, f.Offset, f.wireSize(), m.EncodedLength)
		}
	}
	return nil
}

// Table is an indexed dialect: every message the decoder can recognise.
type Table struct {
	SchemaVersion string
	Name          string
	Version       int

	byID   map[uint32]*Message
	byName map[string]*Message
}

// Message looks up a message by its wire ID.
func (t *Table) Message(id uint32) (*Message, bool) {
	m, ok := t.byID[id]
	return m, ok
}

// MessageByName looks up a message by its dialect name (e.g. "ATTITUDE").
func (t *Table) MessageByName(name string) (*Message, bool) {
	m, ok := t.byName[name]
	return m, ok
}

// Len returns the number of messages in the table.
func (t *Table) Len() int {
	return len(t.byID)
}

// Messages returns all messages ordered by ID.
func (t *Table) Messages() []*Message {
	out := make([]*Message, 0, len(t.byID))
	for _, m := range t.byID {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
