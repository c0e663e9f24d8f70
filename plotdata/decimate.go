package plotdata

import (
	"fmt"
	"math"
	"strings"

	"github.com/mavgraph/mavgraph/timeseries"
)

const (
	// DefaultThreshold is the point count below which Decimate is a no-op.
	DefaultThreshold = 2000

	// DefaultTargetPoints is the output size Decimate aims for.
	DefaultTargetPoints = 500
)

// Algorithm selects the decimation strategy.
type Algorithm int

const (
	// Stride subsamples at a fixed step, always keeping the first and last
	// points. Cheap, but narrow peaks between steps are lost.
	Stride Algorithm = iota

	// LTTB is largest-triangle-three-buckets: per output bucket it keeps
	// the point spanning the largest triangle with its neighbours, so
	// visually significant peaks and troughs survive.
	LTTB
)

// String returns the algorithm name.
func (a Algorithm) String() string {
	switch a {
	case Stride:
		return "stride"
	case LTTB:
		return "lttb"
	default:
		return "unknown"
	}
}

// ParseAlgorithm maps a configuration string to an Algorithm.
func ParseAlgorithm(s string) (Algorithm, error) {
	switch strings.ToLower(s) {
	case "stride":
		return Stride, nil
	case "lttb":
		return LTTB, nil
	default:
		return Stride, fmt.Errorf("unknown decimation algorithm %q", s)
	}
}

// DecimateConfig tunes Decimate. Zero values fall back to the package
// defaults; the zero Algorithm is Stride.
type DecimateConfig struct {
	// Threshold is the input size at or below which no decimation happens.
	Threshold int

	// TargetPoints is the approximate output size when decimating.
	TargetPoints int

	// Algorithm selects the strategy.
	Algorithm Algorithm
}

// Decimate reduces points to roughly cfg.TargetPoints for display. Inputs at
// or below cfg.Threshold are returned unchanged, as are inputs already within
// the target. The output is always a subsequence of the input; no point is
// ever synthesised.
func Decimate(points []timeseries.Point, cfg DecimateConfig) []timeseries.Point {
	threshold := cfg.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	target := cfg.TargetPoints
	if target <= 0 {
		target = DefaultTargetPoints
	}
	if target < 2 {
		target = 2
	}

	if len(points) <= threshold || len(points) <= target {
		return points
	}

	switch cfg.Algorithm {
	case LTTB:
		return lttb(points, target)
	default:
		return stride(points, target)
	}
}

// stride keeps every step-th point plus the last one.
func stride(points []timeseries.Point, target int) []timeseries.Point {
	step := int(math.Ceil(float64(len(points)) / float64(target)))

	out := make([]timeseries.Point, 0, target+1)
	for i := 0; i < len(points); i += step {
		out = append(out, points[i])
	}
	if (len(points)-1)%step != 0 {
		out = append(out, points[len(points)-1])
	}
	return out
}

// lttb implements largest-triangle-three-buckets downsampling. The first and
// last points are kept unconditionally; the interior is split into target-2
// buckets, and each bucket contributes the point forming the largest triangle
// with the previously selected point and the next bucket's centroid.
func lttb(points []timeseries.Point, target int) []timeseries.Point {
	if target < 3 {
		return []timeseries.Point{points[0], points[len(points)-1]}
	}

	base := points[0].Timestamp
	x := func(i int) float64 {
		return points[i].Timestamp.Sub(base).Seconds()
	}

	sampled := make([]timeseries.Point, 0, target)
	sampled = append(sampled, points[0])

	every := float64(len(points)-2) / float64(target-2)
	a := 0

	for i := 0; i < target-2; i++ {
		// Centroid of the next bucket (the final bucket's successor is
		// the last point itself).
		avgStart := int(math.Floor(float64(i+1)*every)) + 1
		avgEnd := int(math.Floor(float64(i+2)*every)) + 1
		if avgEnd > len(points) {
			avgEnd = len(points)
		}
		var avgX, avgY float64
		for j := avgStart; j < avgEnd; j++ {
			avgX += x(j)
			avgY += points[j].Value
		}
		n := float64(avgEnd - avgStart)
		avgX /= n
		avgY /= n

		// Candidate bucket.
		start := int(math.Floor(float64(i)*every)) + 1
		end := int(math.Floor(float64(i+1)*every)) + 1

		ax, ay := x(a), points[a].Value
		maxArea := -1.0
		next := start
		for j := start; j < end; j++ {
			area := math.Abs((ax-avgX)*(points[j].Value-ay)-(ax-x(j))*(avgY-ay)) * 0.5
			if area > maxArea {
				maxArea = area
				next = j
			}
		}

		sampled = append(sampled, points[next])
		a = next
	}

	return append(sampled, points[len(points)-1])
}
