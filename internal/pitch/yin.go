package pitch

import (
	"fmt"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// YIN defaults follow common guitar-analysis settings: 2048-sample frames,
// 512-sample hop.
const (
	DefaultFrameLength = 2048
	DefaultHopLength   = 512
	DefaultThreshold   = 0.1
	DefaultSilenceRMS  = 0.005
)

// YIN estimates f0 with the cumulative-mean-normalized difference function.
// The difference function is computed via FFT autocorrelation.
type YIN struct {
	FrameLength int
	HopLength   int
	Threshold   float64 // absolute threshold on the normalized difference
	SilenceRMS  float64 // frames quieter than this are unvoiced
}

// NewYIN returns a YIN estimator with default parameters.
func NewYIN() *YIN {
	return &YIN{
		FrameLength: DefaultFrameLength,
		HopLength:   DefaultHopLength,
		Threshold:   DefaultThreshold,
		SilenceRMS:  DefaultSilenceRMS,
	}
}

func (y *YIN) Estimate(samples []float64, sampleRate int, r Range) (Frames, error) {
	if sampleRate <= 0 {
		return Frames{}, errBadSampleRate
	}
	if err := r.Validate(); err != nil {
		return Frames{}, err
	}
	if y.HopLength <= 0 {
		return Frames{}, fmt.Errorf("hop length must be positive, got %d", y.HopLength)
	}

	sr := float64(sampleRate)
	tauMin := int(math.Floor(sr / r.MaxHz))
	if tauMin < 2 {
		tauMin = 2
	}
	tauMax := int(math.Ceil(sr / r.MinHz))
	if tauMax <= tauMin {
		return Frames{}, fmt.Errorf("frequency range %v-%v Hz is too narrow at %d Hz", r.MinHz, r.MaxHz, sampleRate)
	}

	// The frame must hold at least two periods of the lowest pitch.
	frameLen := y.FrameLength
	if frameLen < 2*(tauMax+1) {
		frameLen = 2 * (tauMax + 1)
	}
	window := frameLen - tauMax
	fftSize := nextPow2(frameLen + window)

	n := frameCount(len(samples), y.HopLength)
	out := Frames{
		F0:        make([]float64, n),
		Voiced:    make([]bool, n),
		HopLength: y.HopLength,
	}

	frame := make([]float64, frameLen)
	diff := make([]float64, tauMax+1)
	cmnd := make([]float64, tauMax+1)
	prefix := make([]float64, frameLen+1)
	a := make([]float64, fftSize)
	b := make([]float64, fftSize)

	for i := 0; i < n; i++ {
		out.F0[i] = math.NaN()
		centredFrame(frame, samples, i*y.HopLength)
		if rms(frame) < y.SilenceRMS {
			continue
		}

		y.difference(frame, window, tauMax, prefix, a, b, diff)
		normalizeDifference(diff, cmnd)

		tau := absoluteThreshold(cmnd, tauMin, tauMax, y.Threshold)
		if tau < 0 {
			continue
		}

		period := float64(tau)
		if tau > 0 && tau < tauMax {
			period += parabolicOffset(cmnd[tau-1], cmnd[tau], cmnd[tau+1])
		}
		f0 := sr / period
		if !inRange(f0, r) {
			continue
		}
		out.F0[i] = f0
		out.Voiced[i] = true
	}

	return out, nil
}

// difference fills d[tau] = sum_{j<W} (x[j] - x[j+tau])^2 for tau in [0, tauMax].
func (y *YIN) difference(frame []float64, window, tauMax int, prefix, a, b, d []float64) {
	for i := range a {
		a[i], b[i] = 0, 0
	}
	copy(a, frame[:window])
	copy(b, frame)

	A := fft.FFTReal(a)
	B := fft.FFTReal(b)
	for k := range A {
		A[k] = cmplx.Conj(A[k]) * B[k]
	}
	corr := fft.IFFT(A)

	prefix[0] = 0
	for j, v := range frame {
		prefix[j+1] = prefix[j] + v*v
	}
	e0 := prefix[window]

	for tau := 0; tau <= tauMax; tau++ {
		v := e0 + (prefix[tau+window] - prefix[tau]) - 2*real(corr[tau])
		if v < 0 {
			v = 0
		}
		d[tau] = v
	}
}

// normalizeDifference computes the cumulative mean normalized difference.
func normalizeDifference(d, out []float64) {
	out[0] = 1
	var running float64
	for tau := 1; tau < len(d); tau++ {
		running += d[tau]
		if running == 0 {
			out[tau] = 1
			continue
		}
		out[tau] = d[tau] * float64(tau) / running
	}
}

// absoluteThreshold returns the first lag whose normalized difference dips
// below threshold, advanced to the bottom of that dip, or -1.
func absoluteThreshold(cmnd []float64, tauMin, tauMax int, threshold float64) int {
	for tau := tauMin; tau <= tauMax; tau++ {
		if cmnd[tau] >= threshold {
			continue
		}
		for tau+1 <= tauMax && cmnd[tau+1] < cmnd[tau] {
			tau++
		}
		return tau
	}
	return -1
}

// Name identifies the estimator and every setting that shapes its output.
func (y *YIN) Name() string {
	return fmt.Sprintf("yin-f%d-h%d-t%g-s%g", y.FrameLength, y.HopLength, y.Threshold, y.SilenceRMS)
}
