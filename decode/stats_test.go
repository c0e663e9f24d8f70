package decode

import (
	"fmt"
	"strings"
	"testing"

	"github.com/mavgraph/mavgraph/monitoring"
)

func TestStatsCounters(t *testing.T) {
	s := NewStats()

	s.addFrame()
	s.addFrame()
	s.addMessage()
	s.addBytes(100)
	s.addChecksumFailure()
	s.addUnknownID()
	s.addFrameError()

	snap := s.Snapshot()
	if snap.Frames != 2 {
		t.Errorf("Frames = %d, want 2", snap.Frames)
	}
	if snap.Messages != 1 {
		t.Errorf("Messages = %d, want 1", snap.Messages)
	}
	if snap.Bytes != 100 {
		t.Errorf("Bytes = %d, want 100", snap.Bytes)
	}
	if snap.Dropped() != 3 {
		t.Errorf("Dropped() = %d, want 3", snap.Dropped())
	}
	if snap.Uptime < 0 {
		t.Errorf("Uptime = %v, want >= 0", snap.Uptime)
	}
}

func TestStatsSnapshotIsCumulative(t *testing.T) {
	s := NewStats()
	s.addFrame()
	s.LogStats()
	s.addFrame()

	if got := s.Snapshot().Frames; got != 2 {
		t.Errorf("Frames after LogStats = %d, want 2 (totals must not reset)", got)
	}
}

func TestLogStatsReportsInterval(t *testing.T) {
	prev := monitoring.Logf
	defer monitoring.SetLogger(prev)

	var lines []string
	monitoring.SetLogger(func(format string, v ...interface{}) {
		lines = append(lines, fmt.Sprintf(format, v...))
	})

	s := NewStats()
	s.addFrame()
	s.addMessage()
	s.addBytes(42)
	s.addChecksumFailure()

	s.LogStats()
	if len(lines) != 1 {
		t.Fatalf("LogStats produced %d lines, want 1", len(lines))
	}
	if !strings.Contains(lines[0], "frames") || !strings.Contains(lines[0], "bad checksum") {
		t.Errorf("log line %q missing rate fields", lines[0])
	}

	// idle interval logs nothing
	s.LogStats()
	if len(lines) != 1 {
		t.Errorf("idle LogStats produced output: %q", lines[len(lines)-1])
	}
}
