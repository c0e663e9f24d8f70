// Package plotdata turns field history snapshots into chart-ready point
// sequences: time-window filtering, decimation for display, and conversion to
// plot coordinates.
//
// Everything here is a pure function over its inputs. No shared state, no
// side effects: identical inputs produce bit-identical outputs, so the
// functions are safe to call from any goroutine on whatever snapshot the
// caller holds.
package plotdata

import (
	"sort"
	"time"

	"github.com/mavgraph/mavgraph/timeseries"
	"gonum.org/v1/gonum/floats"
)

// PlotPoint is one chart coordinate pair.
type PlotPoint struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// ScalingMode selects how Y values are scaled in PlotCoordinates.
type ScalingMode int

const (
	// ScaleUnified keeps raw field values, for plots sharing one Y axis.
	ScaleUnified ScalingMode = iota

	// ScaleNormalized min-max scales each series to [0,1], for overlaying
	// fields with wildly different ranges.
	ScaleNormalized
)

// String returns the mode name.
func (m ScalingMode) String() string {
	switch m {
	case ScaleUnified:
		return "unified"
	case ScaleNormalized:
		return "normalized"
	default:
		return "unknown"
	}
}

// FilterByTime returns the points with Timestamp at or after cutoff, in
// original order. Points are time-ordered, so this is a binary search plus a
// tail slice; the result shares the input's backing array, which is fine for
// the snapshot inputs this package operates on.
func FilterByTime(points []timeseries.Point, cutoff time.Time) []timeseries.Point {
	i := sort.Search(len(points), func(i int) bool {
		return !points[i].Timestamp.Before(cutoff)
	})
	return points[i:]
}

// PlotCoordinates converts points to chart coordinates. X is milliseconds
// elapsed since epoch; anchoring to a fixed epoch rather than "now" keeps the
// horizontal axis stable across fields and across refreshes while data keeps
// streaming. Y is the raw value under ScaleUnified, or min-max normalised to
// [0,1] under ScaleNormalized; a flat series normalises to 0.5 so it still
// renders mid-plot.
func PlotCoordinates(points []timeseries.Point, epoch time.Time, mode ScalingMode) []PlotPoint {
	if len(points) == 0 {
		return nil
	}

	out := make([]PlotPoint, len(points))
	for i, p := range points {
		out[i] = PlotPoint{
			X: float64(p.Timestamp.Sub(epoch)) / float64(time.Millisecond),
			Y: p.Value,
		}
	}

	if mode == ScaleNormalized {
		values := make([]float64, len(points))
		for i, p := range points {
			values[i] = p.Value
		}
		lo, hi := floats.Min(values), floats.Max(values)
		if lo == hi {
			for i := range out {
				out[i].Y = 0.5
			}
		} else {
			span := hi - lo
			for i := range out {
				out[i].Y = (out[i].Y - lo) / span
			}
		}
	}
	return out
}
