package main

import (
	"context"
	"flag"
	"os"

	"github.com/himanishpuri/FretCoach/internal/config"
	"github.com/himanishpuri/FretCoach/internal/metrics"
	"github.com/himanishpuri/FretCoach/pkg/fretcoach"
	"github.com/himanishpuri/FretCoach/pkg/logger"
)

var (
	addr           string
	dbPath         string
	dataDir        string
	tempDir        string
	estimator      string
	allowedOrigins string
)

func init() {
	flag.StringVar(&addr, "addr", "", "HTTP listen address (overrides config)")
	flag.StringVar(&dbPath, "db", "", "Path to SQLite database (overrides config)")
	flag.StringVar(&dataDir, "data-dir", "", "Directory for managed reference audio (overrides config)")
	flag.StringVar(&tempDir, "temp", "", "Temporary directory (overrides config)")
	flag.StringVar(&estimator, "estimator", "", "Pitch estimator: yin or hps (overrides config)")
	flag.StringVar(&allowedOrigins, "origins", "", "Comma-separated list of allowed CORS origins (use * for all)")
}

func applyFlags(cfg *config.Config) {
	for _, o := range []struct {
		flag string
		dst  *string
	}{
		{addr, &cfg.Addr},
		{dbPath, &cfg.DBPath},
		{dataDir, &cfg.DataDir},
		{tempDir, &cfg.TempDir},
		{estimator, &cfg.Estimator},
		{allowedOrigins, &cfg.AllowedOrigins},
	} {
		if o.flag != "" {
			*o.dst = o.flag
		}
	}
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	cfg, err := config.Load(context.Background())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	applyFlags(cfg)
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid config: %v", err)
	}
	if lvl, ok := logger.ParseLevel(cfg.LogLevel); ok && os.Getenv("LOG_LEVEL") == "" {
		log.SetLevel(lvl)
	}
	log.SetShowCaller(log.Level() == logger.DEBUG)

	m := metrics.NewManager(
		metrics.WithMetricsEnabled(cfg.MetricsEnabled),
		metrics.WithRuntimeCollectors(true),
	)

	opts := append(fretcoach.OptionsFromConfig(cfg),
		fretcoach.WithLogger(log),
		fretcoach.WithMetrics(m),
	)
	service, err := fretcoach.NewService(opts...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, cfg, log, m)
	if err := server.Start(); err != nil {
		log.Errorf("Server failed: %v", err)
	}
}
