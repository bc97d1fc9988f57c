// Package config defines the settings shared by the CLI and the HTTP server
// and loads them from defaults, an optional YAML file and the environment.
package config

import (
	"os"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	DBPath  string `koanf:"db_path"`
	DataDir string `koanf:"data_dir"`
	TempDir string `koanf:"temp_dir"`

	// Estimator selects the pitch estimator: "yin" or "hps".
	Estimator string  `koanf:"estimator"`
	MinHz     float64 `koanf:"min_hz"`
	MaxHz     float64 `koanf:"max_hz"`

	// MaxCells caps the alignment table size.
	MaxCells int `koanf:"max_cells"`

	FFmpegPath string `koanf:"ffmpeg_path"`

	// MaxUploadMB limits request bodies on the upload endpoints.
	MaxUploadMB int `koanf:"max_upload_mb"`

	// AnalysisTimeoutSec bounds one evaluate or compare request.
	AnalysisTimeoutSec int `koanf:"analysis_timeout_sec"`

	// AllowedOrigins is a comma-separated CORS allow list; "*" allows any.
	AllowedOrigins string `koanf:"allowed_origins"`

	MetricsEnabled bool `koanf:"metrics_enabled"`
}

// New returns a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:           "info",
		Addr:               ":8080",
		DBPath:             "fretcoach.sqlite3",
		DataDir:            "data/references",
		TempDir:            os.TempDir(),
		Estimator:          "yin",
		MinHz:              82.40688922821748,
		MaxHz:              1318.5102276514797,
		MaxCells:           25_000_000,
		FFmpegPath:         "ffmpeg",
		MaxUploadMB:        25,
		AnalysisTimeoutSec: 120,
		AllowedOrigins:     "*",
		MetricsEnabled:     true,
	}
}

// Origins splits AllowedOrigins into trimmed, non-empty entries.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}
