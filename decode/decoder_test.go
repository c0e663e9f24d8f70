package decode

import (
	"bytes"
	"io"
	"testing"
	"time"

	gdialect "github.com/bluenviron/gomavlib/v3/pkg/dialect"
	"github.com/bluenviron/gomavlib/v3/pkg/dialects/common"
	"github.com/bluenviron/gomavlib/v3/pkg/frame"
	"github.com/bluenviron/gomavlib/v3/pkg/message"
	"github.com/mavgraph/mavgraph/dialect"
	"github.com/mavgraph/mavgraph/timeutil"
	"github.com/stretchr/testify/require"
)

func loadTable(t *testing.T) *dialect.Table {
	t.Helper()
	table, err := dialect.Load("../dialect/testdata/common_subset.json")
	require.NoError(t, err)
	return table
}

// encodeFrames renders messages to wire bytes with the reference encoder,
// so decoding is tested against independently produced frames.
func encodeFrames(t *testing.T, sysID byte, version frame.WriterOutVersion, msgs ...message.Message) []byte {
	t.Helper()
	rw, err := gdialect.NewReadWriter(common.Dialect)
	require.NoError(t, err)

	var buf bytes.Buffer
	w, err := frame.NewWriter(frame.WriterConf{
		Writer:      &buf,
		DialectRW:   rw,
		OutVersion:  version,
		OutSystemID: sysID,
	})
	require.NoError(t, err)

	for _, m := range msgs {
		require.NoError(t, w.WriteMessage(m))
	}
	return buf.Bytes()
}

func TestDecodeAttitude(t *testing.T) {
	att := &common.MessageAttitude{
		TimeBootMs: 123456,
		Roll:       1.25,
		Pitch:      -0.5,
		Yaw:        0.75,
		Rollspeed:  0.125,
		Pitchspeed: 0.25,
		Yawspeed:   -0.375,
	}
	stream := encodeFrames(t, 7, frame.V2, att)

	d, err := NewDecoder(bytes.NewReader(stream), loadTable(t))
	require.NoError(t, err)

	msg, err := d.Next()
	require.NoError(t, err)

	require.Equal(t, "ATTITUDE", msg.Name)
	require.EqualValues(t, 30, msg.ID)
	require.EqualValues(t, 7, msg.SystemID)
	require.EqualValues(t, 1, msg.ComponentID)

	want := map[string]float64{
		"time_boot_ms": 123456,
		"roll":         1.25,
		"pitch":        -0.5,
		"yaw":          0.75,
		"rollspeed":    0.125,
		"pitchspeed":   0.25,
		"yawspeed":     -0.375,
	}
	require.Equal(t, want, msg.Fields)

	_, err = d.Next()
	require.ErrorIs(t, err, io.EOF)

	snap := d.Stats().Snapshot()
	require.EqualValues(t, 1, snap.Frames)
	require.EqualValues(t, 1, snap.Messages)
	require.EqualValues(t, len(stream), snap.Bytes)
}

func TestDecodeV1Frame(t *testing.T) {
	att := &common.MessageAttitude{TimeBootMs: 99, Roll: 0.5}
	stream := encodeFrames(t, 3, frame.V1, att)

	d, err := NewDecoder(bytes.NewReader(stream), loadTable(t))
	require.NoError(t, err)

	msg, err := d.Next()
	require.NoError(t, err)
	require.Equal(t, "ATTITUDE", msg.Name)
	require.Equal(t, 0.5, msg.Fields["roll"])
}

func TestDecodeZeroTruncatedPayload(t *testing.T) {
	// trailing zero fields are truncated on the v2 wire and must read
	// back as zero
	gpi := &common.MessageGlobalPositionInt{
		TimeBootMs:  1000,
		Lat:         473977420,
		Lon:         -1223321000,
		Alt:         120000,
		RelativeAlt: 20000,
		Vx:          100,
		Vy:          -50,
		Vz:          25,
		Hdg:         0,
	}
	stream := encodeFrames(t, 1, frame.V2, gpi)

	d, err := NewDecoder(bytes.NewReader(stream), loadTable(t))
	require.NoError(t, err)

	msg, err := d.Next()
	require.NoError(t, err)
	require.Equal(t, "GLOBAL_POSITION_INT", msg.Name)
	require.Equal(t, float64(473977420), msg.Fields["lat"])
	require.Equal(t, float64(-1223321000), msg.Fields["lon"])
	require.Equal(t, float64(0), msg.Fields["hdg"])
}

func TestDecodeSkipsCharArrayFields(t *testing.T) {
	st := &common.MessageStatustext{
		Severity: common.MAV_SEVERITY_INFO,
		Text:     "engine ok",
	}
	stream := encodeFrames(t, 1, frame.V2, st)

	d, err := NewDecoder(bytes.NewReader(stream), loadTable(t))
	require.NoError(t, err)

	msg, err := d.Next()
	require.NoError(t, err)
	require.Equal(t, "STATUSTEXT", msg.Name)
	require.NotContains(t, msg.Fields, "text")
	require.Equal(t, float64(common.MAV_SEVERITY_INFO), msg.Fields["severity"])
	// truncated extension fields read back as zero
	require.Equal(t, float64(0), msg.Fields["chunk_seq"])
}

func TestDecodeSkipsBadChecksum(t *testing.T) {
	bad := encodeFrames(t, 1, frame.V2, &common.MessageAttitude{Roll: 1})
	// flip a payload byte; the stored checksum no longer matches
	bad[10] ^= 0xFF
	good := encodeFrames(t, 1, frame.V2, &common.MessageAttitude{Roll: 2})

	d, err := NewDecoder(bytes.NewReader(append(bad, good...)), loadTable(t))
	require.NoError(t, err)

	msg, err := d.Next()
	require.NoError(t, err)
	require.Equal(t, float64(2), msg.Fields["roll"])

	snap := d.Stats().Snapshot()
	require.EqualValues(t, 1, snap.ChecksumFailures)
	require.EqualValues(t, 1, snap.Messages)
}

func TestDecodeSkipsUnknownID(t *testing.T) {
	// SCALED_PRESSURE is not in the test table
	unknown := &common.MessageScaledPressure{TimeBootMs: 5, PressAbs: 1013.25}
	known := &common.MessageAttitude{Roll: 3}
	stream := encodeFrames(t, 1, frame.V2, unknown, known)

	d, err := NewDecoder(bytes.NewReader(stream), loadTable(t))
	require.NoError(t, err)

	msg, err := d.Next()
	require.NoError(t, err)
	require.Equal(t, "ATTITUDE", msg.Name)

	snap := d.Stats().Snapshot()
	require.EqualValues(t, 1, snap.UnknownIDs)
}

func TestDecodeResyncsAfterGarbage(t *testing.T) {
	garbage := []byte{0x00, 0x11, 0x22}
	stream := append(garbage, encodeFrames(t, 1, frame.V2, &common.MessageAttitude{Roll: 4})...)

	d, err := NewDecoder(bytes.NewReader(stream), loadTable(t))
	require.NoError(t, err)

	msg, err := d.Next()
	require.NoError(t, err)
	require.Equal(t, float64(4), msg.Fields["roll"])

	snap := d.Stats().Snapshot()
	require.EqualValues(t, 3, snap.FrameErrors)
}

func TestDecodeEmptyStream(t *testing.T) {
	d, err := NewDecoder(bytes.NewReader(nil), loadTable(t))
	require.NoError(t, err)

	_, err = d.Next()
	require.ErrorIs(t, err, io.EOF)
}

func TestDecodeArrivalClock(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	clock := timeutil.NewMockClock(fixed)

	stream := encodeFrames(t, 1, frame.V2, &common.MessageAttitude{Roll: 1})
	d, err := NewDecoder(bytes.NewReader(stream), loadTable(t), WithClock(clock))
	require.NoError(t, err)

	msg, err := d.Next()
	require.NoError(t, err)
	require.True(t, msg.Time.Equal(fixed))
}

func TestDecodeNilTable(t *testing.T) {
	_, err := NewDecoder(bytes.NewReader(nil), nil)
	require.Error(t, err)
}
