package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/himanishpuri/FretCoach/pkg/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

const DefaultDBFile = "fretcoach.sqlite3"
const errDBClientNil = "db client is nil"

// ErrNotFound is returned when a reference or cache entry does not exist.
var ErrNotFound = errors.New("not found")

type DBClient struct {
	DB *gorm.DB
	db *sql.DB
}

// Reference is a track the player practises against.
type Reference struct {
	ID          string `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Title       string `gorm:"uniqueIndex:idx_reference_unique,priority:1" json:"title"`
	Performer   string `gorm:"uniqueIndex:idx_reference_unique,priority:2;index:idx_performer" json:"performer"`
	YouTubeID   string `gorm:"index:idx_youtube_id" json:"youtube_id"`
	AudioPath   string `json:"audio_path"`
	ContentHash string `gorm:"index:idx_content_hash" json:"content_hash"`
	SampleRate  int    `json:"sample_rate"`
	DurationMs  int    `json:"duration_ms"`
	CreatedAt   time.Time
}

// PitchCache holds a serialized pitch track. CacheKey combines the audio content
// hash with the estimator settings that produced it.
type PitchCache struct {
	CacheKey    string `gorm:"primaryKey;type:varchar(160)"`
	ContentHash string `gorm:"index:idx_cache_hash"`
	SampleCount int
	Track       []byte
	CreatedAt   time.Time
}

// Attempt is one scored practice take.
type Attempt struct {
	ID                 uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ReferenceID        string    `gorm:"type:varchar(36);index:idx_attempt_reference" json:"reference_id"`
	Score              float64   `json:"score"`
	NormalizedDistance float64   `json:"normalized_distance"`
	Band               string    `json:"band"`
	ReferenceSamples   int       `json:"reference_samples"`
	UserSamples        int       `json:"user_samples"`
	CreatedAt          time.Time `gorm:"index:idx_attempt_created" json:"created_at"`
}

func NewDBClient() (*DBClient, error) {
	dbPath := os.Getenv("FRETCOACH_DB_PATH")
	if dbPath == "" {
		dbPath = DefaultDBFile
	}
	return NewDBClientWithPath(dbPath)
}

func NewDBClientWithPath(dbPath string) (*DBClient, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := utils.MakeDir(dir); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	gormConfig := &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	}

	db, err := gorm.Open(sqlite.Open(dbPath+"?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)
	sqlDB.SetConnMaxLifetime(time.Hour)

	if err := db.AutoMigrate(&Reference{}, &PitchCache{}, &Attempt{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &DBClient{DB: db, db: sqlDB}, nil
}

func (c *DBClient) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func (c *DBClient) ready() error {
	if c == nil || c.DB == nil {
		return errors.New(errDBClientNil)
	}
	return nil
}

// RegisterReference stores ref and returns its ID. A reference with the same
// title and performer is reused; its missing YouTube ID is filled in.
func (c *DBClient) RegisterReference(ref Reference) (string, error) {
	if err := c.ready(); err != nil {
		return "", err
	}

	var existing Reference
	err := c.DB.Where("title = ? AND performer = ?", ref.Title, ref.Performer).First(&existing).Error
	if err == nil {
		if existing.YouTubeID == "" && ref.YouTubeID != "" {
			if err := c.DB.Model(&existing).Update("YouTubeID", ref.YouTubeID).Error; err != nil {
				return "", fmt.Errorf("updating youtube_id: %w", err)
			}
		}
		return existing.ID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", fmt.Errorf("querying existing reference: %w", err)
	}

	if ref.ID == "" {
		ref.ID = utils.GenerateID()
	}
	if err := c.DB.Create(&ref).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || strings.Contains(err.Error(), "UNIQUE constraint failed") {
			if fetchErr := c.DB.Where("title = ? AND performer = ?", ref.Title, ref.Performer).First(&existing).Error; fetchErr != nil {
				return "", fmt.Errorf("fetching reference after constraint violation: %w", fetchErr)
			}
			return existing.ID, nil
		}
		return "", fmt.Errorf("creating reference: %w", err)
	}
	return ref.ID, nil
}

func (c *DBClient) GetReference(id string) (*Reference, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var ref Reference
	if err := c.DB.Where("id = ?", id).First(&ref).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("reference %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("querying reference: %w", err)
	}
	return &ref, nil
}

// ListReferences returns all references, newest first.
func (c *DBClient) ListReferences() ([]Reference, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var refs []Reference
	if err := c.DB.Order("created_at DESC").Find(&refs).Error; err != nil {
		return nil, fmt.Errorf("listing references: %w", err)
	}
	return refs, nil
}

// CountReferencesByHash reports how many references share an audio file.
func (c *DBClient) CountReferencesByHash(hash string) (int, error) {
	if err := c.ready(); err != nil {
		return 0, err
	}
	var n int64
	if err := c.DB.Model(&Reference{}).Where("content_hash = ?", hash).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("counting references: %w", err)
	}
	return int(n), nil
}

// DeleteReferenceByID removes a reference with its attempts. Cached pitch
// tracks are dropped once no reference uses the audio any more.
func (c *DBClient) DeleteReferenceByID(id string) error {
	if err := c.ready(); err != nil {
		return err
	}
	return c.DB.Transaction(func(tx *gorm.DB) error {
		var ref Reference
		if err := tx.Where("id = ?", id).First(&ref).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("reference %s: %w", id, ErrNotFound)
			}
			return err
		}
		if err := tx.Where("reference_id = ?", id).Delete(&Attempt{}).Error; err != nil {
			return err
		}
		if err := tx.Where("id = ?", id).Delete(&Reference{}).Error; err != nil {
			return err
		}

		var remaining int64
		if err := tx.Model(&Reference{}).Where("content_hash = ?", ref.ContentHash).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining == 0 && ref.ContentHash != "" {
			if err := tx.Where("content_hash = ?", ref.ContentHash).Delete(&PitchCache{}).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

func (c *DBClient) GetPitchCache(key string) (*PitchCache, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	var row PitchCache
	if err := c.DB.Where("cache_key = ?", key).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("querying pitch cache: %w", err)
	}
	return &row, nil
}

// PutPitchCache inserts or replaces a cache entry.
func (c *DBClient) PutPitchCache(entry PitchCache) error {
	if err := c.ready(); err != nil {
		return err
	}
	err := c.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"content_hash", "sample_count", "track"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("storing pitch cache: %w", err)
	}
	return nil
}

func (c *DBClient) RecordAttempt(a *Attempt) error {
	if err := c.ready(); err != nil {
		return err
	}
	if err := c.DB.Create(a).Error; err != nil {
		return fmt.Errorf("recording attempt: %w", err)
	}
	return nil
}

// ListAttempts returns a reference's attempts, newest first. A limit of zero
// or less returns all of them.
func (c *DBClient) ListAttempts(referenceID string, limit int) ([]Attempt, error) {
	if err := c.ready(); err != nil {
		return nil, err
	}
	q := c.DB.Where("reference_id = ?", referenceID).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []Attempt
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing attempts: %w", err)
	}
	return rows, nil
}
