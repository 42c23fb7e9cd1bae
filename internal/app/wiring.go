package app

import (
	"context"
	"fmt"

	"github.com/Pinzun/simula-ameba/internal/config"
	"github.com/Pinzun/simula-ameba/internal/loaders"
	"github.com/Pinzun/simula-ameba/internal/repository"
	"github.com/Pinzun/simula-ameba/pkg/database"
	"github.com/Pinzun/simula-ameba/pkg/logging"
	"github.com/Pinzun/simula-ameba/pkg/metrics"
)

// Version is reported by every binary.
const Version = "0.1.0"

// NewLogger builds the service logger at the configured level. An unknown
// level falls back to info.
func NewLogger(cfg *config.Config, service string) *logging.StructuredLogger {
	level, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logging.InfoLevel
	}
	return logging.NewStructuredLogger(service, Version, level)
}

// DatabaseConfig converts the database section for the database package.
func DatabaseConfig(cfg *config.Config) *database.Config {
	return &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}
}

// OpenSource returns the configured source backend and a close function.
func OpenSource(ctx context.Context, cfg *config.Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (repository.SourceRepository, func() error, error) {
	switch cfg.Hydro.Source {
	case config.SourceCSV:
		logger.Info(ctx, "[SOURCE_INIT] Reading sources from CSV directory", logging.Fields{
			"data_dir": cfg.Hydro.DataDir,
		})
		return loaders.NewDirectorySource(cfg.Hydro.DataDir, cfg.Hydro.Files), func() error { return nil }, nil

	case config.SourcePostgres:
		db, err := database.NewPostgresDB(DatabaseConfig(cfg), logger, metricsCollector)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewSourceRepository(db, logger, metricsCollector), db.Close, nil

	default:
		return nil, nil, fmt.Errorf("unknown hydro source %q", cfg.Hydro.Source)
	}
}
