package fretcoach

import (
	"os"
	"time"

	"github.com/himanishpuri/FretCoach/internal/align"
	"github.com/himanishpuri/FretCoach/internal/audio"
	"github.com/himanishpuri/FretCoach/internal/config"
	"github.com/himanishpuri/FretCoach/internal/metrics"
	"github.com/himanishpuri/FretCoach/internal/pitch"
)

type Config struct {
	DBPath    string
	TempDir   string
	DataDir   string
	Range     pitch.Range
	MaxCells  int
	Logger    Logger
	Storage   Storage
	Estimator pitch.Estimator
	Decoder   audio.Decoder
	Metrics   *metrics.Manager
}

type Option func(*Config)

func WithDBPath(path string) Option {
	return func(c *Config) {
		c.DBPath = path
	}
}

func WithTempDir(dir string) Option {
	return func(c *Config) {
		c.TempDir = dir
	}
}

// WithDataDir sets where reference audio is stored.
func WithDataDir(dir string) Option {
	return func(c *Config) {
		c.DataDir = dir
	}
}

func WithLogger(log Logger) Option {
	return func(c *Config) {
		c.Logger = log
	}
}

func WithStorage(storage Storage) Option {
	return func(c *Config) {
		c.Storage = storage
	}
}

func WithEstimator(est pitch.Estimator) Option {
	return func(c *Config) {
		c.Estimator = est
	}
}

func WithDecoder(dec audio.Decoder) Option {
	return func(c *Config) {
		c.Decoder = dec
	}
}

// WithRange limits detected pitches to [minHz, maxHz].
func WithRange(minHz, maxHz float64) Option {
	return func(c *Config) {
		c.Range = pitch.Range{MinHz: minHz, MaxHz: maxHz}
	}
}

func WithMaxCells(n int) Option {
	return func(c *Config) {
		c.MaxCells = n
	}
}

func WithMetrics(m *metrics.Manager) Option {
	return func(c *Config) {
		c.Metrics = m
	}
}

func defaultConfig() *Config {
	return &Config{
		DBPath:   "fretcoach.sqlite3",
		TempDir:  os.TempDir(),
		DataDir:  "data/references",
		Range:    pitch.GuitarRange,
		MaxCells: align.DefaultMaxCells,
	}
}

// OptionsFromConfig maps loaded settings onto service options. Options
// appended after these take precedence.
func OptionsFromConfig(cfg *config.Config) []Option {
	var est pitch.Estimator = pitch.NewYIN()
	if cfg.Estimator == "hps" {
		est = pitch.NewHPS()
	}
	return []Option{
		WithDBPath(cfg.DBPath),
		WithDataDir(cfg.DataDir),
		WithTempDir(cfg.TempDir),
		WithEstimator(est),
		WithRange(cfg.MinHz, cfg.MaxHz),
		WithMaxCells(cfg.MaxCells),
		WithDecoder(audio.NewAutoDecoderWithConfig(cfg.TempDir, audio.TranscodeConfig{
			Binary:  cfg.FFmpegPath,
			Timeout: time.Duration(cfg.AnalysisTimeoutSec) * time.Second,
		})),
	}
}
