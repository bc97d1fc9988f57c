package fretcoach

import (
	"context"
)

type Service interface {
	// ExtractPitch returns the voiced pitch contour of src. Silence gives an
	// empty track, unreadable audio an error matching ErrDecode.
	ExtractPitch(ctx context.Context, src AudioSource) (*PitchTrack, error)
	Compare(reference, user *PitchTrack) (*Comparison, error)
	CompareAudio(ctx context.Context, reference, user AudioSource) (*Comparison, error)

	AddReference(ctx context.Context, req AddReferenceRequest) (*Reference, error)
	AddYouTubeReference(ctx context.Context, youtubeURL, title, performer string) (*Reference, error)
	Evaluate(ctx context.Context, referenceID string, take AudioSource) (*Evaluation, error)
	EvaluateTrack(ctx context.Context, referenceID string, take *PitchTrack) (*Evaluation, error)

	GetReference(id string) (*Reference, error)
	ListReferences() ([]Reference, error)
	DeleteReference(id string) error
	ListAttempts(referenceID string, limit int) ([]Attempt, error)
	Close() error
}

// Storage persists references, cached pitch tracks and attempts.
// Lookups of missing records return an error matching ErrNotFound.
type Storage interface {
	RegisterReference(ref Reference) (string, error)
	GetReference(id string) (*Reference, error)
	ListReferences() ([]Reference, error)
	CountReferencesByHash(contentHash string) (int, error)
	DeleteReference(id string) error

	GetPitchTrack(key string) ([]byte, error)
	PutPitchTrack(key, contentHash string, sampleCount int, data []byte) error

	RecordAttempt(a *Attempt) error
	ListAttempts(referenceID string, limit int) ([]Attempt, error)
	Close() error
}

type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)
	Debugf(format string, args ...any)
}
