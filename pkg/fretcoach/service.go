package fretcoach

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"github.com/himanishpuri/FretCoach/internal/advice"
	"github.com/himanishpuri/FretCoach/internal/align"
	"github.com/himanishpuri/FretCoach/internal/audio"
	"github.com/himanishpuri/FretCoach/internal/metrics"
	"github.com/himanishpuri/FretCoach/internal/pitch"
	"github.com/himanishpuri/FretCoach/pkg/logger"
	"github.com/himanishpuri/FretCoach/pkg/utils"
)

const (
	roleReference = "reference"
	roleUser      = "user"

	libraryLockFile = ".library.lock"
)

// coachService is the default implementation of the Service interface.
type coachService struct {
	storage   Storage
	log       Logger
	config    *Config
	decoder   audio.Decoder
	extractor *pitch.Extractor
	cache     *pitchCache
	metrics   *metrics.Manager

	// libMu and libLock serialize library writes within and across
	// processes sharing DataDir.
	libMu   sync.Mutex
	libLock *flock.Flock

	// download fetches YouTube audio; replaced in tests.
	download func(ctx context.Context, url, outputDir string) (string, *audio.YTMetadata, error)
}

func NewService(opts ...Option) (Service, error) {
	return newService(opts...)
}

func newService(opts ...Option) (*coachService, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = logger.GetLogger()
	}
	if cfg.Decoder == nil {
		cfg.Decoder = audio.NewAutoDecoder(cfg.TempDir)
	}
	if cfg.Estimator == nil {
		cfg.Estimator = pitch.NewYIN()
	}

	extractor, err := pitch.NewExtractor(cfg.Decoder, cfg.Estimator, pitch.WithRange(cfg.Range))
	if err != nil {
		return nil, fmt.Errorf("failed to create extractor: %w", err)
	}

	if err := utils.MakeDir(cfg.DataDir); err != nil {
		return nil, fmt.Errorf("failed to create data dir: %w", err)
	}

	stor := cfg.Storage
	if stor == nil {
		stor, err = NewSQLiteStorage(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("failed to create storage: %w", err)
		}
	}

	return &coachService{
		storage:   stor,
		log:       cfg.Logger,
		config:    cfg,
		decoder:   cfg.Decoder,
		extractor: extractor,
		cache:     newPitchCache(stor, cfg.Logger, cfg.Metrics, cfg.Estimator, cfg.Range),
		metrics:   cfg.Metrics,
		libLock:   flock.New(filepath.Join(cfg.DataDir, libraryLockFile)),
		download:  audio.DownloadYouTubeAudio,
	}, nil
}

// ExtractPitch decodes src at its native rate and returns its voiced pitch
// contour.
func (s *coachService) ExtractPitch(ctx context.Context, src AudioSource) (*PitchTrack, error) {
	return s.extract(ctx, roleUser, src)
}

func (s *coachService) extract(ctx context.Context, role string, src AudioSource) (*pitch.Track, error) {
	start := time.Now()
	tr, err := s.extractor.Extract(ctx, src)
	s.metrics.ObserveExtraction(role, extractionOutcome(tr, err), time.Since(start))
	if err != nil {
		return nil, err
	}
	s.log.Debugf("Extracted %d voiced samples from %s in %v", tr.Len(), src, time.Since(start))
	return tr, nil
}

// extractPair runs both extractions concurrently. The first failure cancels
// the other.
func (s *coachService) extractPair(ctx context.Context, ref, user AudioSource) (*pitch.Track, *pitch.Track, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		wg              sync.WaitGroup
		refTr, userTr   *pitch.Track
		refErr, userErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		if refTr, refErr = s.extract(ctx, roleReference, ref); refErr != nil {
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		if userTr, userErr = s.extract(ctx, roleUser, user); userErr != nil {
			cancel()
		}
	}()
	wg.Wait()

	switch {
	case refErr != nil && userErr != nil:
		// Report the cause, not the cancellation it triggered.
		if errors.Is(refErr, context.Canceled) && !errors.Is(userErr, context.Canceled) {
			return nil, nil, userErr
		}
		return nil, nil, fmt.Errorf("reference: %w", refErr)
	case refErr != nil:
		return nil, nil, fmt.Errorf("reference: %w", refErr)
	case userErr != nil:
		return nil, nil, userErr
	}
	return refTr, userTr, nil
}

// Compare aligns user against reference and scores the result.
func (s *coachService) Compare(reference, user *PitchTrack) (*Comparison, error) {
	start := time.Now()
	res, err := align.Compare(reference, user, align.WithMaxCells(s.config.MaxCells))
	if err != nil {
		s.metrics.ObserveComparison(comparisonOutcome(err), time.Since(start), 0)
		return nil, err
	}
	s.metrics.ObserveComparison(metrics.OutcomeOK, time.Since(start), res.SimilarityScore)

	overlay, err := res.Overlay(reference, user)
	if err != nil {
		return nil, fmt.Errorf("building overlay: %w", err)
	}

	s.log.Debugf("Aligned %d reference samples against %d user samples: score %.1f", reference.Len(), user.Len(), res.SimilarityScore)
	return &Comparison{
		SimilarityScore:    res.SimilarityScore,
		Distance:           res.Distance,
		NormalizedDistance: res.NormalizedDistance,
		Band:               advice.Classify(res.SimilarityScore).String(),
		Feedback:           advice.Feedback(res.SimilarityScore, ""),
		ReferenceIndices:   res.ReferenceIndices,
		UserIndices:        res.UserIndices,
		Overlay:            overlay,
		ReferenceSamples:   reference.Len(),
		UserSamples:        user.Len(),
	}, nil
}

// CompareAudio extracts both clips and compares them.
func (s *coachService) CompareAudio(ctx context.Context, reference, user AudioSource) (*Comparison, error) {
	refTr, userTr, err := s.extractPair(ctx, reference, user)
	if err != nil {
		return nil, err
	}
	return s.Compare(refTr, userTr)
}

// AddReference copies the audio into the data directory, extracts and caches
// its pitch track and registers it. A reference without any voiced pitch is
// rejected with an error matching ErrEmptyTrack.
func (s *coachService) AddReference(ctx context.Context, req AddReferenceRequest) (*Reference, error) {
	req.Title = strings.TrimSpace(req.Title)
	req.Performer = strings.TrimSpace(req.Performer)
	if req.Title == "" {
		return nil, errors.New("title is required")
	}
	s.log.Infof("Adding reference: %s by %s", req.Title, req.Performer)

	hash, err := sourceHash(req.Source)
	if err != nil {
		return nil, &audio.DecodeError{Source: req.Source.String(), Err: err}
	}

	unlock, err := s.lockLibrary(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	managed := filepath.Join(s.config.DataDir, hash+sourceExt(req.Source))
	created, err := s.storeAudio(req.Source, managed)
	if err != nil {
		return nil, fmt.Errorf("storing reference audio: %w", err)
	}
	cleanup := func() {
		if !created {
			return
		}
		if n, err := s.storage.CountReferencesByHash(hash); err == nil && n == 0 {
			if err := utils.DeleteFile(managed); err != nil {
				s.log.Warnf("Removing %s: %v", managed, err)
			}
		}
	}

	start := time.Now()
	buf, err := s.decoder.Decode(ctx, FromFile(managed))
	if err != nil {
		s.metrics.ObserveExtraction(roleReference, extractionOutcome(nil, err), time.Since(start))
		cleanup()
		return nil, err
	}

	track, ok := s.cache.get(hash)
	if !ok {
		track, err = s.extractor.FromSamples(buf.Samples, buf.SampleRate)
		s.metrics.ObserveExtraction(roleReference, extractionOutcome(track, err), time.Since(start))
		if err != nil {
			cleanup()
			return nil, err
		}
	}
	if track.Empty() {
		cleanup()
		return nil, &align.EmptyTrackError{Reference: true}
	}
	s.log.Infof("Extracted %d voiced samples at %d Hz over %v", track.Len(), buf.SampleRate, buf.Duration())

	id, err := s.storage.RegisterReference(Reference{
		Title:       req.Title,
		Performer:   req.Performer,
		YouTubeID:   req.YouTubeID,
		AudioPath:   managed,
		ContentHash: hash,
		SampleRate:  buf.SampleRate,
		DurationMs:  int(buf.Duration().Milliseconds()),
	})
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("failed to register reference: %w", err)
	}

	ref, err := s.storage.GetReference(id)
	if err != nil {
		return nil, err
	}
	if ref.ContentHash != hash {
		s.log.Warnf("Reference %q by %q already exists with different audio; keeping the existing one", req.Title, req.Performer)
		cleanup()
		return ref, nil
	}
	s.cache.put(hash, track)

	s.log.Infof("Successfully added reference ID=%s", ref.ID)
	return ref, nil
}

// AddYouTubeReference downloads a video's audio and registers it. Empty
// title and performer fall back to the video metadata.
func (s *coachService) AddYouTubeReference(ctx context.Context, youtubeURL, title, performer string) (*Reference, error) {
	videoID, err := utils.ExtractYouTubeID(youtubeURL)
	if err != nil {
		return nil, fmt.Errorf("invalid YouTube URL: %w", err)
	}

	if err := utils.MakeDir(s.config.TempDir); err != nil {
		return nil, err
	}
	tmp, err := os.MkdirTemp(s.config.TempDir, "fretcoach-yt-")
	if err != nil {
		return nil, fmt.Errorf("creating download dir: %w", err)
	}
	defer os.RemoveAll(tmp)

	s.log.Infof("Downloading YouTube audio for %s", videoID)
	path, meta, err := s.download(ctx, utils.YouTubeWatchURL(videoID), tmp)
	if err != nil {
		return nil, fmt.Errorf("youtube download failed: %w", err)
	}

	if strings.TrimSpace(title) == "" {
		title = meta.Title
	}
	if strings.TrimSpace(performer) == "" {
		performer = meta.Performer()
	}

	return s.AddReference(ctx, AddReferenceRequest{
		Source:    FromFile(path),
		Title:     title,
		Performer: performer,
		YouTubeID: videoID,
	})
}

// Evaluate scores a take against a stored reference and records the attempt.
func (s *coachService) Evaluate(ctx context.Context, referenceID string, take AudioSource) (*Evaluation, error) {
	ref, err := s.storage.GetReference(referenceID)
	if err != nil {
		return nil, err
	}

	var refTr, userTr *pitch.Track
	if cached, ok := s.cache.get(ref.ContentHash); ok {
		refTr = cached
		if userTr, err = s.extract(ctx, roleUser, take); err != nil {
			return nil, err
		}
	} else {
		s.log.Debugf("Pitch cache miss for reference %s", ref.ID)
		refTr, userTr, err = s.extractPair(ctx, FromFile(ref.AudioPath), take)
		if err != nil {
			return nil, err
		}
		if !refTr.Empty() {
			s.cache.put(ref.ContentHash, refTr)
		}
	}
	return s.evaluate(ref, refTr, userTr)
}

// EvaluateTrack scores a pitch track extracted on the client, e.g. by the
// WebAssembly build, against a stored reference.
func (s *coachService) EvaluateTrack(ctx context.Context, referenceID string, take *PitchTrack) (*Evaluation, error) {
	if take == nil {
		return nil, &align.EmptyTrackError{User: true}
	}
	ref, err := s.storage.GetReference(referenceID)
	if err != nil {
		return nil, err
	}

	refTr, ok := s.cache.get(ref.ContentHash)
	if !ok {
		if refTr, err = s.extract(ctx, roleReference, FromFile(ref.AudioPath)); err != nil {
			return nil, fmt.Errorf("reference: %w", err)
		}
		if !refTr.Empty() {
			s.cache.put(ref.ContentHash, refTr)
		}
	}
	return s.evaluate(ref, refTr, take)
}

func (s *coachService) evaluate(ref *Reference, refTr, userTr *pitch.Track) (*Evaluation, error) {
	cmp, err := s.Compare(refTr, userTr)
	if err != nil {
		return nil, err
	}
	cmp.Feedback = advice.Feedback(cmp.SimilarityScore, ref.Performer)

	attempt := &Attempt{
		ReferenceID:        ref.ID,
		Score:              cmp.SimilarityScore,
		NormalizedDistance: cmp.NormalizedDistance,
		Band:               cmp.Band,
		ReferenceSamples:   cmp.ReferenceSamples,
		UserSamples:        cmp.UserSamples,
		CreatedAt:          time.Now(),
	}
	if err := s.storage.RecordAttempt(attempt); err != nil {
		s.log.Errorf("Recording attempt for reference %s: %v", ref.ID, err)
	}

	s.log.Infof("Evaluated take against %s: score %.1f (%s)", ref.ID, cmp.SimilarityScore, cmp.Band)
	return &Evaluation{
		Comparison: *cmp,
		Reference:  ref,
		AttemptID:  attempt.ID,
		Prompt:     advice.Prompt(cmp.SimilarityScore, ref.Performer),
	}, nil
}

// GetReference retrieves a reference by ID.
func (s *coachService) GetReference(id string) (*Reference, error) {
	return s.storage.GetReference(id)
}

// ListReferences returns the whole library, newest first.
func (s *coachService) ListReferences() ([]Reference, error) {
	return s.storage.ListReferences()
}

// DeleteReference removes a reference and its attempts. The managed audio
// and cached pitch go once no other reference shares them.
func (s *coachService) DeleteReference(id string) error {
	unlock, err := s.lockLibrary(context.Background())
	if err != nil {
		return err
	}
	defer unlock()

	ref, err := s.storage.GetReference(id)
	if err != nil {
		return err
	}
	if err := s.storage.DeleteReference(id); err != nil {
		return err
	}

	n, err := s.storage.CountReferencesByHash(ref.ContentHash)
	if err != nil {
		s.log.Warnf("Counting references for %s: %v", ref.ContentHash, err)
		return nil
	}
	if n == 0 {
		s.cache.evict(ref.ContentHash)
		if s.isManaged(ref.AudioPath) {
			if err := utils.DeleteFile(ref.AudioPath); err != nil {
				s.log.Warnf("Removing %s: %v", ref.AudioPath, err)
			}
		}
	}
	s.log.Infof("Deleted reference ID=%s", id)
	return nil
}

// ListAttempts returns the newest attempts for a reference.
func (s *coachService) ListAttempts(referenceID string, limit int) ([]Attempt, error) {
	if _, err := s.storage.GetReference(referenceID); err != nil {
		return nil, err
	}
	return s.storage.ListAttempts(referenceID, limit)
}

// Close releases all resources held by the service.
func (s *coachService) Close() error {
	return s.storage.Close()
}

// lockLibrary takes the in-process mutex and then the DataDir file lock.
func (s *coachService) lockLibrary(ctx context.Context) (func(), error) {
	s.libMu.Lock()
	ok, err := s.libLock.TryLockContext(ctx, 50*time.Millisecond)
	if err != nil || !ok {
		s.libMu.Unlock()
		if err == nil {
			err = errors.New("library lock not acquired")
		}
		return nil, fmt.Errorf("locking reference library: %w", err)
	}
	return func() {
		if err := s.libLock.Unlock(); err != nil {
			s.log.Warnf("Releasing library lock: %v", err)
		}
		s.libMu.Unlock()
	}, nil
}

func (s *coachService) storeAudio(src AudioSource, dst string) (created bool, err error) {
	if _, err := os.Stat(dst); err == nil {
		return false, nil
	}
	if src.Path != "" {
		return true, utils.CopyFile(src.Path, dst)
	}
	return true, os.WriteFile(dst, src.Data, 0o644)
}

func (s *coachService) isManaged(path string) bool {
	dir, err := filepath.Abs(s.config.DataDir)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	return filepath.Dir(abs) == dir
}

func sourceHash(src AudioSource) (string, error) {
	switch {
	case src.Path != "" && src.Data == nil:
		return utils.HashFile(src.Path)
	case src.Path == "" && src.Data != nil:
		return utils.HashBytes(src.Data), nil
	default:
		return "", errors.New("audio source needs exactly one of a path or data")
	}
}

func sourceExt(src AudioSource) string {
	name := src.Path
	if name == "" {
		name = src.Name
	}
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || len(ext) > 6 {
		return ".wav"
	}
	return ext
}

func extractionOutcome(tr *pitch.Track, err error) string {
	switch {
	case errors.Is(err, audio.ErrDecode):
		return metrics.OutcomeDecodeError
	case err != nil:
		return metrics.OutcomeError
	case tr.Empty():
		return metrics.OutcomeEmpty
	default:
		return metrics.OutcomeOK
	}
}

func comparisonOutcome(err error) string {
	switch {
	case errors.Is(err, align.ErrEmptyTrack):
		return metrics.OutcomeEmptyTrack
	case errors.Is(err, align.ErrTooLong):
		return metrics.OutcomeTooLong
	default:
		return metrics.OutcomeError
	}
}
