package config

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const (
	envPrefix  = "FRETCOACH_"
	envFileVar = "FRETCOACH_CONFIG"
)

// Load builds a Config by layering, from low to high precedence:
//  1. defaults (New())
//  2. YAML file named by FRETCOACH_CONFIG, if set
//  3. env vars with prefix FRETCOACH_
func Load(_ context.Context) (*Config, error) {
	base := New()

	k := koanf.New(".")

	if path := os.Getenv(envFileVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadConfig, path, err)
		}
	}

	// FRETCOACH_MAX_CELLS -> max_cells. Underscores are kept so keys match
	// the flat koanf tags.
	envProvider := env.Provider(envPrefix, ".", func(s string) string {
		s = strings.ToLower(s)
		s = strings.TrimPrefix(s, strings.ToLower(envPrefix))
		return s
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, fmt.Errorf("%w: env: %v", ErrLoadConfig, err)
	}
	// The file path variable is not a setting.
	k.Delete("config")

	cfg := *base
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLoadConfig, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first invalid setting, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.DBPath == "":
		return fmt.Errorf("%w: db_path must not be empty", ErrInvalidConfig)
	case c.DataDir == "":
		return fmt.Errorf("%w: data_dir must not be empty", ErrInvalidConfig)
	case c.Estimator != "yin" && c.Estimator != "hps":
		return fmt.Errorf("%w: estimator must be yin or hps, got %q", ErrInvalidConfig, c.Estimator)
	case c.MinHz <= 0 || c.MaxHz <= c.MinHz:
		return fmt.Errorf("%w: need 0 < min_hz < max_hz, got %v and %v", ErrInvalidConfig, c.MinHz, c.MaxHz)
	case c.MaxCells <= 0:
		return fmt.Errorf("%w: max_cells must be positive", ErrInvalidConfig)
	case c.MaxUploadMB <= 0:
		return fmt.Errorf("%w: max_upload_mb must be positive", ErrInvalidConfig)
	case c.AnalysisTimeoutSec <= 0:
		return fmt.Errorf("%w: analysis_timeout_sec must be positive", ErrInvalidConfig)
	}
	return nil
}
