package database

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pinzun/simula-ameba/pkg/logging"
	"github.com/Pinzun/simula-ameba/pkg/metrics"
)

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{
		Host:     "db.internal",
		Port:     5433,
		User:     "hydro",
		Password: "secret",
		Database: "hydro_sources",
		SSLMode:  "disable",
	}
	assert.Equal(t,
		"host=db.internal port=5433 user=hydro password=secret dbname=hydro_sources sslmode=disable",
		cfg.DSN())
}

func TestPostgresDB_HealthCheckUnreachable(t *testing.T) {
	cfg := &Config{Host: "127.0.0.1", Port: 1, User: "hydro", Database: "hydro", SSLMode: "disable"}

	// sqlx.Open does not connect, so no server is needed to build the wrapper.
	raw, err := sqlx.Open("postgres", cfg.DSN())
	require.NoError(t, err)

	db := NewFromDB(raw, cfg, logging.NewNopLogger(), metrics.NewCollectorWith("test", prometheus.NewRegistry()))

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	err = db.HealthCheck(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database health check failed")

	assert.NoError(t, db.Close())
}
