package fretcoach

import (
	"time"

	"github.com/himanishpuri/FretCoach/internal/align"
	"github.com/himanishpuri/FretCoach/internal/audio"
	"github.com/himanishpuri/FretCoach/internal/pitch"
	"github.com/himanishpuri/FretCoach/internal/storage"
)

type (
	AudioSource = audio.Source
	PitchTrack  = pitch.Track
	PitchSample = pitch.Sample
	Overlay     = align.Overlay
	Point       = align.Point
)

// FromFile and FromBytes build an AudioSource.
var (
	FromFile  = audio.FromFile
	FromBytes = audio.FromBytes
)

// NewPitchTrack validates client-supplied samples.
var NewPitchTrack = pitch.NewTrack

// Errors callers are expected to branch on.
var (
	ErrDecode     = audio.ErrDecode
	ErrEmptyTrack = align.ErrEmptyTrack
	ErrTooLong    = align.ErrTooLong
	ErrNotFound   = storage.ErrNotFound
)

// Reference is a practice track in the library.
type Reference struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Performer   string    `json:"performer"`
	YouTubeID   string    `json:"youtube_id,omitempty"`
	AudioPath   string    `json:"-"`
	ContentHash string    `json:"content_hash"`
	SampleRate  int       `json:"sample_rate"`
	DurationMs  int       `json:"duration_ms"`
	CreatedAt   time.Time `json:"created_at"`
}

type AddReferenceRequest struct {
	Source    AudioSource
	Title     string
	Performer string
	YouTubeID string
}

// Attempt is a recorded evaluation of a take against a reference.
type Attempt struct {
	ID                 uint      `json:"id"`
	ReferenceID        string    `json:"reference_id"`
	Score              float64   `json:"score"`
	NormalizedDistance float64   `json:"normalized_distance"`
	Band               string    `json:"band"`
	ReferenceSamples   int       `json:"reference_samples"`
	UserSamples        int       `json:"user_samples"`
	CreatedAt          time.Time `json:"created_at"`
}

// Comparison is a scored alignment of two pitch tracks.
type Comparison struct {
	SimilarityScore    float64  `json:"similarity_score"`
	Distance           float64  `json:"distance"`
	NormalizedDistance float64  `json:"normalized_distance"`
	Band               string   `json:"band"`
	Feedback           string   `json:"feedback"`
	ReferenceIndices   []int    `json:"reference_indices"`
	UserIndices        []int    `json:"user_indices"`
	Overlay            *Overlay `json:"overlay"`
	ReferenceSamples   int      `json:"reference_samples"`
	UserSamples        int      `json:"user_samples"`
}

// Evaluation is a Comparison of a take against a stored reference.
type Evaluation struct {
	Comparison
	Reference *Reference `json:"reference"`
	AttemptID uint       `json:"attempt_id"`
	// Prompt is the request for an external advice generator.
	Prompt string `json:"prompt"`
}
