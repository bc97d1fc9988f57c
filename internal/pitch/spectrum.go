package pitch

import (
	"errors"
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

// Hamming returns a Hamming window of length n.
func Hamming(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := 0; i < n; i++ {
		w[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

// MagnitudeSpectrum converts a complex spectrum into magnitudes of the
// non-negative frequency bins.
func MagnitudeSpectrum(spectrum []complex128) []float64 {
	half := len(spectrum) / 2
	mag := make([]float64, half)
	for i := 0; i < half; i++ {
		mag[i] = cmplx.Abs(spectrum[i])
	}
	return mag
}

// STFT computes a time-major magnitude spectrogram, spectrogram[frame][bin].
// Frames are centred on multiples of hop, windowed, then zero-padded to
// fftSize before the transform. It returns one frame per hop, matching the
// framing of the pitch estimators.
func STFT(samples []float64, hop int, window []float64, fftSize int) ([][]float64, error) {
	if hop <= 0 {
		return nil, errors.New("hop must be positive")
	}
	if len(window) == 0 {
		return nil, errors.New("window must not be empty")
	}
	if fftSize < len(window) {
		return nil, errors.New("fft size must be at least the window length")
	}

	n := frameCount(len(samples), hop)
	spectrogram := make([][]float64, 0, n)
	frame := make([]float64, len(window))
	padded := make([]float64, fftSize)
	for i := 0; i < n; i++ {
		centredFrame(frame, samples, i*hop)
		for j := range padded {
			padded[j] = 0
		}
		for j, w := range window {
			padded[j] = frame[j] * w
		}
		spectrogram = append(spectrogram, MagnitudeSpectrum(fft.FFTReal(padded)))
	}
	return spectrogram, nil
}
