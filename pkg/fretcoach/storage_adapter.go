package fretcoach

import (
	"github.com/himanishpuri/FretCoach/internal/storage"
)

// storageAdapter adapts the storage.DBClient to implement the Storage interface.
type storageAdapter struct {
	db *storage.DBClient
}

// NewSQLiteStorage creates a new SQLite storage backend.
func NewSQLiteStorage(dbPath string) (Storage, error) {
	db, err := storage.NewDBClientWithPath(dbPath)
	if err != nil {
		return nil, err
	}
	return &storageAdapter{db: db}, nil
}

func (s *storageAdapter) RegisterReference(ref Reference) (string, error) {
	return s.db.RegisterReference(storage.Reference{
		ID:          ref.ID,
		Title:       ref.Title,
		Performer:   ref.Performer,
		YouTubeID:   ref.YouTubeID,
		AudioPath:   ref.AudioPath,
		ContentHash: ref.ContentHash,
		SampleRate:  ref.SampleRate,
		DurationMs:  ref.DurationMs,
	})
}

func (s *storageAdapter) GetReference(id string) (*Reference, error) {
	row, err := s.db.GetReference(id)
	if err != nil {
		return nil, err
	}
	ref := referenceFromRow(*row)
	return &ref, nil
}

func (s *storageAdapter) ListReferences() ([]Reference, error) {
	rows, err := s.db.ListReferences()
	if err != nil {
		return nil, err
	}
	refs := make([]Reference, len(rows))
	for i, r := range rows {
		refs[i] = referenceFromRow(r)
	}
	return refs, nil
}

func (s *storageAdapter) CountReferencesByHash(contentHash string) (int, error) {
	return s.db.CountReferencesByHash(contentHash)
}

func (s *storageAdapter) DeleteReference(id string) error {
	return s.db.DeleteReferenceByID(id)
}

func (s *storageAdapter) GetPitchTrack(key string) ([]byte, error) {
	row, err := s.db.GetPitchCache(key)
	if err != nil {
		return nil, err
	}
	return row.Track, nil
}

func (s *storageAdapter) PutPitchTrack(key, contentHash string, sampleCount int, data []byte) error {
	return s.db.PutPitchCache(storage.PitchCache{
		CacheKey:    key,
		ContentHash: contentHash,
		SampleCount: sampleCount,
		Track:       data,
	})
}

func (s *storageAdapter) RecordAttempt(a *Attempt) error {
	row := storage.Attempt{
		ReferenceID:        a.ReferenceID,
		Score:              a.Score,
		NormalizedDistance: a.NormalizedDistance,
		Band:               a.Band,
		ReferenceSamples:   a.ReferenceSamples,
		UserSamples:        a.UserSamples,
		CreatedAt:          a.CreatedAt,
	}
	if err := s.db.RecordAttempt(&row); err != nil {
		return err
	}
	a.ID = row.ID
	a.CreatedAt = row.CreatedAt
	return nil
}

func (s *storageAdapter) ListAttempts(referenceID string, limit int) ([]Attempt, error) {
	rows, err := s.db.ListAttempts(referenceID, limit)
	if err != nil {
		return nil, err
	}
	out := make([]Attempt, len(rows))
	for i, r := range rows {
		out[i] = Attempt{
			ID:                 r.ID,
			ReferenceID:        r.ReferenceID,
			Score:              r.Score,
			NormalizedDistance: r.NormalizedDistance,
			Band:               r.Band,
			ReferenceSamples:   r.ReferenceSamples,
			UserSamples:        r.UserSamples,
			CreatedAt:          r.CreatedAt,
		}
	}
	return out, nil
}

func (s *storageAdapter) Close() error {
	return s.db.Close()
}

func referenceFromRow(r storage.Reference) Reference {
	return Reference{
		ID:          r.ID,
		Title:       r.Title,
		Performer:   r.Performer,
		YouTubeID:   r.YouTubeID,
		AudioPath:   r.AudioPath,
		ContentHash: r.ContentHash,
		SampleRate:  r.SampleRate,
		DurationMs:  r.DurationMs,
		CreatedAt:   r.CreatedAt,
	}
}
