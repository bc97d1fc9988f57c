package pitch

import (
	"fmt"
	"math"
)

// HPS estimates f0 by the harmonic product spectrum: the magnitude spectrum
// is downsampled by 1..Harmonics and multiplied, so the fundamental bin
// collects energy from its overtones.
type HPS struct {
	FrameLength int
	HopLength   int
	FFTSize     int
	Harmonics   int
	SilenceRMS  float64
	// Dominance is how far the winning product must rise above the mean
	// product in the search band for the frame to count as voiced.
	Dominance float64
}

func NewHPS() *HPS {
	return &HPS{
		FrameLength: DefaultFrameLength,
		HopLength:   DefaultHopLength,
		FFTSize:     16384,
		Harmonics:   3,
		SilenceRMS:  DefaultSilenceRMS,
		Dominance:   5,
	}
}

func (h *HPS) Estimate(samples []float64, sampleRate int, r Range) (Frames, error) {
	if sampleRate <= 0 {
		return Frames{}, errBadSampleRate
	}
	if err := r.Validate(); err != nil {
		return Frames{}, err
	}
	if h.HopLength <= 0 || h.FrameLength <= 0 || h.Harmonics <= 0 {
		return Frames{}, fmt.Errorf("invalid HPS parameters: frame=%d hop=%d harmonics=%d", h.FrameLength, h.HopLength, h.Harmonics)
	}

	fftSize := nextPow2(h.FFTSize)
	if fftSize < h.FrameLength {
		fftSize = nextPow2(h.FrameLength)
	}

	spec, err := STFT(samples, h.HopLength, Hamming(h.FrameLength), fftSize)
	if err != nil {
		return Frames{}, err
	}

	binHz := float64(sampleRate) / float64(fftSize)
	half := fftSize / 2
	kMin := int(math.Floor(r.MinHz / 1.03 / binHz))
	if kMin < 1 {
		kMin = 1
	}
	kMax := int(math.Ceil(r.MaxHz * 1.03 / binHz))
	if lim := (half-1)/h.Harmonics - 1; kMax > lim {
		kMax = lim
	}

	out := Frames{
		F0:        make([]float64, len(spec)),
		Voiced:    make([]bool, len(spec)),
		HopLength: h.HopLength,
	}
	if kMax <= kMin+1 {
		for i := range out.F0 {
			out.F0[i] = math.NaN()
		}
		return out, nil
	}

	frame := make([]float64, h.FrameLength)
	product := make([]float64, kMax+2)
	for i, mag := range spec {
		out.F0[i] = math.NaN()
		centredFrame(frame, samples, i*h.HopLength)
		if rms(frame) < h.SilenceRMS {
			continue
		}

		// Log domain keeps the product of many bins from underflowing.
		best, bestK, sum := math.Inf(-1), -1, 0.0
		for k := kMin - 1; k <= kMax+1; k++ {
			p := 0.0
			for m := 1; m <= h.Harmonics; m++ {
				p += math.Log(mag[k*m] + 1e-12)
			}
			product[k] = p
		}
		for k := kMin; k <= kMax; k++ {
			sum += math.Exp(product[k])
			if product[k] > best {
				best, bestK = product[k], k
			}
		}
		if bestK < 0 {
			continue
		}
		mean := sum / float64(kMax-kMin+1)
		if mean <= 0 || math.Exp(best) < h.Dominance*mean {
			continue
		}

		k := float64(bestK) + parabolicOffset(product[bestK-1], product[bestK], product[bestK+1])
		f0 := k * binHz
		if !inRange(f0, r) {
			continue
		}
		out.F0[i] = f0
		out.Voiced[i] = true
	}

	return out, nil
}

func (h *HPS) Name() string {
	return fmt.Sprintf("hps-f%d-h%d-n%d-k%d-s%g-d%g", h.FrameLength, h.HopLength, h.FFTSize, h.Harmonics, h.SilenceRMS, h.Dominance)
}
