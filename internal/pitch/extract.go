package pitch

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/himanishpuri/FretCoach/internal/audio"
)

// Extractor turns an audio source into a Track. It holds the decoder and
// estimator handles chosen by the host; it keeps no other state and is safe
// for concurrent use when both handles are.
type Extractor struct {
	decoder   audio.Decoder
	estimator Estimator
	rng       Range
}

type ExtractorOption func(*Extractor)

// WithRange overrides the default guitar range.
func WithRange(r Range) ExtractorOption {
	return func(e *Extractor) { e.rng = r }
}

func NewExtractor(dec audio.Decoder, est Estimator, opts ...ExtractorOption) (*Extractor, error) {
	if dec == nil {
		return nil, errors.New("decoder is required")
	}
	if est == nil {
		return nil, errors.New("estimator is required")
	}
	e := &Extractor{decoder: dec, estimator: est, rng: GuitarRange}
	for _, opt := range opts {
		opt(e)
	}
	if err := e.rng.Validate(); err != nil {
		return nil, fmt.Errorf("invalid frequency range: %w", err)
	}
	return e, nil
}

func (e *Extractor) Range() Range { return e.rng }

// Extract decodes src at its native rate and returns its voiced pitch
// contour. Decoder failures come back as *audio.DecodeError; silence yields
// an empty track and no error.
func (e *Extractor) Extract(ctx context.Context, src audio.Source) (*Track, error) {
	buf, err := e.decoder.Decode(ctx, src)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return e.FromSamples(buf.Samples, buf.SampleRate)
}

// FromSamples runs the estimator over already-decoded mono samples.
func (e *Extractor) FromSamples(samples []float64, sampleRate int) (*Track, error) {
	frames, err := e.estimator.Estimate(samples, sampleRate, e.rng)
	if err != nil {
		return nil, fmt.Errorf("estimating pitch: %w", err)
	}
	return FromFrames(frames, sampleRate)
}

// FromFrames keeps the voiced frames with finite positive f0, in order, and
// stamps frame i with i*hop/sampleRate. The rate must be the one the
// estimator saw.
func FromFrames(f Frames, sampleRate int) (*Track, error) {
	if sampleRate <= 0 {
		return nil, errBadSampleRate
	}
	if f.HopLength <= 0 && f.Len() > 0 {
		return nil, fmt.Errorf("hop length must be positive, got %d", f.HopLength)
	}
	if len(f.Voiced) != len(f.F0) {
		return nil, fmt.Errorf("frame arrays differ in length: %d f0, %d voiced", len(f.F0), len(f.Voiced))
	}

	samples := make([]Sample, 0, len(f.F0))
	for i, hz := range f.F0 {
		if !f.Voiced[i] || math.IsNaN(hz) || math.IsInf(hz, 0) || hz <= 0 {
			continue
		}
		samples = append(samples, Sample{
			Time:      float64(i*f.HopLength) / float64(sampleRate),
			Frequency: hz,
		})
	}
	return NewTrack(samples)
}
