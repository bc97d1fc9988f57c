package fretcoach

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/himanishpuri/FretCoach/internal/metrics"
	"github.com/himanishpuri/FretCoach/internal/pitch"
)

// pitchCache holds reference pitch tracks by content hash and estimator
// settings. Tracks are immutable, so cached pointers are shared freely.
// Entries are written once and persisted so a restart does not re-extract.
type pitchCache struct {
	mu      sync.RWMutex
	tracks  map[string]*pitch.Track
	store   Storage
	log     Logger
	metrics *metrics.Manager
	suffix  string
}

func newPitchCache(store Storage, log Logger, m *metrics.Manager, est pitch.Estimator, r pitch.Range) *pitchCache {
	return &pitchCache{
		tracks:  make(map[string]*pitch.Track),
		store:   store,
		log:     log,
		metrics: m,
		suffix:  fmt.Sprintf("/%s/%.2f-%.2f", pitch.EstimatorName(est), r.MinHz, r.MaxHz),
	}
}

func (c *pitchCache) key(contentHash string) string {
	return contentHash + c.suffix
}

func (c *pitchCache) get(contentHash string) (*pitch.Track, bool) {
	key := c.key(contentHash)

	c.mu.RLock()
	tr, ok := c.tracks[key]
	c.mu.RUnlock()
	if ok {
		c.metrics.RecordCacheLookup(metrics.CacheHitMemory)
		return tr, true
	}

	data, err := c.store.GetPitchTrack(key)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			c.log.Warnf("Reading cached pitch track %s: %v", key, err)
		}
		c.metrics.RecordCacheLookup(metrics.CacheMiss)
		return nil, false
	}

	tr = new(pitch.Track)
	if err := json.Unmarshal(data, tr); err != nil {
		c.log.Warnf("Discarding corrupt cached pitch track %s: %v", key, err)
		c.metrics.RecordCacheLookup(metrics.CacheMiss)
		return nil, false
	}

	c.mu.Lock()
	if existing, ok := c.tracks[key]; ok {
		tr = existing
	} else {
		c.tracks[key] = tr
	}
	c.mu.Unlock()
	c.metrics.RecordCacheLookup(metrics.CacheHitDB)
	return tr, true
}

// put stores tr unless an entry already exists; persistence failures are
// logged and leave the memory entry in place.
func (c *pitchCache) put(contentHash string, tr *pitch.Track) {
	key := c.key(contentHash)

	c.mu.Lock()
	if _, ok := c.tracks[key]; ok {
		c.mu.Unlock()
		return
	}
	c.tracks[key] = tr
	c.mu.Unlock()

	data, err := json.Marshal(tr)
	if err != nil {
		c.log.Errorf("Encoding pitch track %s: %v", key, err)
		return
	}
	if err := c.store.PutPitchTrack(key, contentHash, tr.Len(), data); err != nil {
		c.log.Warnf("Persisting pitch track %s: %v", key, err)
	}
}

// evict drops every memory entry for contentHash.
func (c *pitchCache) evict(contentHash string) {
	prefix := contentHash + "/"
	c.mu.Lock()
	defer c.mu.Unlock()
	for k := range c.tracks {
		if strings.HasPrefix(k, prefix) {
			delete(c.tracks, k)
		}
	}
}
