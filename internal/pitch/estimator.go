package pitch

import (
	"errors"
	"fmt"
	"math"
)

// Range bounds the fundamental frequencies an estimator may report.
type Range struct {
	MinHz float64
	MaxHz float64
}

// GuitarRange is E2..E6, wide enough for standard tuning up to the 24th fret.
var GuitarRange = Range{MinHz: HzE2, MaxHz: HzE6}

func (r Range) Validate() error {
	if !(r.MinHz > 0) || math.IsInf(r.MinHz, 0) {
		return fmt.Errorf("min frequency must be positive, got %v", r.MinHz)
	}
	if !(r.MaxHz > r.MinHz) || math.IsInf(r.MaxHz, 0) {
		return fmt.Errorf("max frequency %v must exceed min frequency %v", r.MaxHz, r.MinHz)
	}
	return nil
}

// Frames is raw per-frame estimator output. F0 is NaN wherever Voiced is false.
type Frames struct {
	F0        []float64
	Voiced    []bool
	HopLength int
}

func (f Frames) Len() int { return len(f.F0) }

// Estimator is the fundamental-frequency capability. Implementations frame
// the signal with a fixed hop, centring frame i on sample i*HopLength.
// Silence and noise are reported as unvoiced frames, never as errors.
type Estimator interface {
	Estimate(samples []float64, sampleRate int, r Range) (Frames, error)
}

// EstimatorName returns a stable identifier for est and its settings, used
// in cache keys. Estimators may provide one through a Name method.
func EstimatorName(est Estimator) string {
	if n, ok := est.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", est)
}

var errBadSampleRate = errors.New("sample rate must be positive")

// frameCount mirrors centred framing: one frame per hop plus the frame at 0.
func frameCount(n, hop int) int {
	if n == 0 {
		return 0
	}
	return 1 + n/hop
}

// centredFrame copies the window of length size centred on sample centre into
// dst, zero-padding outside the signal.
func centredFrame(dst, samples []float64, centre int) {
	start := centre - len(dst)/2
	for i := range dst {
		j := start + i
		if j < 0 || j >= len(samples) {
			dst[i] = 0
			continue
		}
		dst[i] = samples[j]
	}
}

func rms(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func nextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}

// parabolicOffset returns the vertex offset in [-1, 1] of the parabola
// through (-1,a), (0,b), (1,c).
func parabolicOffset(a, b, c float64) float64 {
	denom := a - 2*b + c
	if denom == 0 {
		return 0
	}
	off := 0.5 * (a - c) / denom
	if off > 1 {
		return 1
	}
	if off < -1 {
		return -1
	}
	return off
}

// inRange accepts estimates within a quarter tone of the range edges.
func inRange(f float64, r Range) bool {
	const slack = 1.0293022366 // 2^(1/24)
	return f >= r.MinHz/slack && f <= r.MaxHz*slack
}
