// Package timeseries stores decoded telemetry values as per-field histories.
//
// Every numeric field of every decoded message gets its own bounded ring
// buffer, keyed by "<message>.<field>". Two eviction policies run at once: the
// ring's fixed capacity evicts the single oldest point on insert, and a
// periodic pruner evicts points older than a retention horizon. Both remove
// from the oldest end, so whichever fires first simply gets there sooner.
package timeseries

import (
	"strings"
	"time"
)

// Point is a single timestamped sample of one telemetry field.
type Point struct {
	Timestamp time.Time
	Value     float64
}

// FieldKey identifies one field history, formatted "<message>.<field>",
// e.g. "ATTITUDE.roll".
type FieldKey string

// Key builds the FieldKey for a message/field pair.
func Key(message, field string) FieldKey {
	return FieldKey(message + "." + field)
}

// Split returns the message and field parts of the key. Message names never
// contain dots, so the first dot is the separator.
func (k FieldKey) Split() (message, field string) {
	message, field, _ = strings.Cut(string(k), ".")
	return message, field
}

// Message returns the message-name part of the key.
func (k FieldKey) Message() string {
	m, _ := k.Split()
	return m
}

// Field returns the field-name part of the key.
func (k FieldKey) Field() string {
	_, f := k.Split()
	return f
}
