package align

import (
	"errors"
	"fmt"
	"math"

	"github.com/himanishpuri/FretCoach/internal/pitch"
)

// DefaultMaxCells bounds the alignment table. 25M cells is roughly a
// ten-minute reference against a ten-minute take at the default hop.
const DefaultMaxCells = 25_000_000

var (
	// ErrEmptyTrack is matched by every *EmptyTrackError.
	ErrEmptyTrack = errors.New("no voiced pitch found")

	// ErrTooLong means the tracks are too long to align within the cell budget.
	ErrTooLong = errors.New("tracks too long to align")
)

// EmptyTrackError reports which side of a comparison had no voiced pitch.
// It is a precondition failure, not a low score.
type EmptyTrackError struct {
	Reference bool
	User      bool
}

func (e *EmptyTrackError) Error() string {
	switch {
	case e.Reference && e.User:
		return "no voiced pitch found in reference or user recording"
	case e.Reference:
		return "no voiced pitch found in reference track"
	default:
		return "no voiced pitch found in user recording"
	}
}

func (e *EmptyTrackError) Is(target error) bool { return target == ErrEmptyTrack }

// Result is the alignment of a user take against a reference. The index
// slices have one entry per reference sample and are non-decreasing.
type Result struct {
	ReferenceIndices   []int   `json:"reference_indices"`
	UserIndices        []int   `json:"user_indices"`
	Distance           float64 `json:"distance"`
	NormalizedDistance float64 `json:"normalized_distance"`
	SimilarityScore    float64 `json:"similarity_score"`
}

// PathLen returns the number of aligned pairs.
func (r *Result) PathLen() int { return len(r.ReferenceIndices) }

type options struct {
	maxCells int
}

type Option func(*options)

// WithMaxCells overrides DefaultMaxCells. Non-positive values keep the default.
func WithMaxCells(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.maxCells = n
		}
	}
}

// Compare aligns user against reference on the semitone scale and scores
// the match. Reference is the query: every reference sample is matched to
// exactly one user sample.
func Compare(reference, user *pitch.Track, opts ...Option) (*Result, error) {
	o := options{maxCells: DefaultMaxCells}
	for _, opt := range opts {
		opt(&o)
	}

	if reference.Empty() || user.Empty() {
		return nil, &EmptyTrackError{Reference: reference.Empty(), User: user.Empty()}
	}

	n, m := reference.Len(), user.Len()
	if int64(n)*int64(m) > int64(o.maxCells) {
		return nil, fmt.Errorf("%w: %d x %d cells exceeds limit of %d", ErrTooLong, n, m, o.maxCells)
	}

	p, err := subsequenceDTW(reference.MIDI(), user.MIDI())
	if err != nil {
		return nil, err
	}

	norm := p.total / float64(n)
	return &Result{
		ReferenceIndices:   p.query,
		UserIndices:        p.series,
		Distance:           p.total,
		NormalizedDistance: norm,
		SimilarityScore:    Score(norm),
	}, nil
}

// Score maps a mean semitone distance to 0..100: a perfect match scores 100
// and an average error of one semitone or more scores 0.
func Score(normalizedDistance float64) float64 {
	if math.IsNaN(normalizedDistance) {
		return 0
	}
	return math.Max(0, math.Min(100, 100-normalizedDistance*100))
}
