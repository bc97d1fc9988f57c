package main

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/himanishpuri/FretCoach/internal/config"
	"github.com/himanishpuri/FretCoach/pkg/fretcoach"
	"github.com/himanishpuri/FretCoach/pkg/logger"
)

// globalFlags override values loaded from the config file and environment.
type globalFlags struct {
	configPath string
	dbPath     string
	dataDir    string
	tempDir    string
	estimator  string
	logLevel   string
}

type commandContext struct {
	flags globalFlags

	configOnce sync.Once
	config     *config.Config
	configErr  error

	svc fretcoach.Service
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		if c.flags.configPath != "" {
			os.Setenv("FRETCOACH_CONFIG", c.flags.configPath)
		}
		cfg, err := config.Load(context.Background())
		if err != nil {
			c.configErr = err
			return
		}
		c.applyFlags(cfg)
		if err := cfg.Validate(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
	})
	return c.config, c.configErr
}

func (c *commandContext) applyFlags(cfg *config.Config) {
	if c.flags.dbPath != "" {
		cfg.DBPath = c.flags.dbPath
	}
	if c.flags.dataDir != "" {
		cfg.DataDir = c.flags.dataDir
	}
	if c.flags.tempDir != "" {
		cfg.TempDir = c.flags.tempDir
	}
	if c.flags.estimator != "" {
		cfg.Estimator = c.flags.estimator
	}
	if c.flags.logLevel != "" {
		cfg.LogLevel = c.flags.logLevel
	}
}

// logger writes to stderr so command output on stdout stays parseable.
func (c *commandContext) logger() *logger.Logger {
	l := logger.New(logger.DefaultConfig())
	l.SetOutput(os.Stderr)
	l.SetColorize(logger.IsTerminal(os.Stderr))

	level := logger.WARN
	if c.config != nil {
		if lvl, ok := logger.ParseLevel(c.config.LogLevel); ok {
			level = lvl
		}
	}
	l.SetLevel(level)
	l.SetShowCaller(level == logger.DEBUG)
	return l
}

func (c *commandContext) service() (fretcoach.Service, error) {
	if c.svc != nil {
		return c.svc, nil
	}
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	opts := append(fretcoach.OptionsFromConfig(cfg), fretcoach.WithLogger(c.logger()))
	svc, err := fretcoach.NewService(opts...)
	if err != nil {
		return nil, err
	}
	c.svc = svc
	return svc, nil
}

// analysisContext bounds a single command by the configured analysis timeout.
func (c *commandContext) analysisContext(parent context.Context) (context.Context, context.CancelFunc) {
	timeout := 2 * time.Minute
	if c.config != nil && c.config.AnalysisTimeoutSec > 0 {
		timeout = time.Duration(c.config.AnalysisTimeoutSec) * time.Second
	}
	return context.WithTimeout(parent, timeout)
}

func (c *commandContext) close() error {
	if c.svc == nil {
		return nil
	}
	err := c.svc.Close()
	c.svc = nil
	return err
}
