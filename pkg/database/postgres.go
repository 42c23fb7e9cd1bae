package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/Pinzun/simula-ameba/pkg/logging"
	"github.com/Pinzun/simula-ameba/pkg/metrics"
)

// Config describes the source database connection and pool.
type Config struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// DSN returns the lib/pq connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host,
		c.Port,
		c.User,
		c.Password,
		c.Database,
		c.SSLMode,
	)
}

func (c *Config) applyPool(db *sqlx.DB) {
	db.SetMaxOpenConns(c.MaxOpenConns)
	db.SetMaxIdleConns(c.MaxIdleConns)
	db.SetConnMaxLifetime(c.ConnMaxLifetime)
	db.SetConnMaxIdleTime(c.ConnMaxIdleTime)
}

const (
	connectTimeout = 5 * time.Second
	pingTimeout    = 2 * time.Second
	poolInterval   = 10 * time.Second
)

// PostgresDB is the metered source database handle.
type PostgresDB struct {
	db      *sqlx.DB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
	config  *Config
	stop    chan struct{}
}

// NewPostgresDB opens the source database and starts pool monitoring.
func NewPostgresDB(cfg *Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) (*PostgresDB, error) {
	db, err := sqlx.Open("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	cfg.applyPool(db)

	pingCtx, cancelPing := context.WithTimeout(context.Background(), connectTimeout)
	defer cancelPing()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("source database unreachable at %s:%d: %w", cfg.Host, cfg.Port, err)
	}

	logger.Info(context.Background(), "[DB_INIT] PostgreSQL source connection established", logging.Fields{
		"host":           cfg.Host,
		"port":           cfg.Port,
		"database":       cfg.Database,
		"max_open_conns": cfg.MaxOpenConns,
		"max_idle_conns": cfg.MaxIdleConns,
	})

	pgDB := NewFromDB(db, cfg, logger, metricsCollector)
	go pgDB.monitorConnectionPool()

	return pgDB, nil
}

// NewFromDB wraps an already opened handle without pool monitoring.
func NewFromDB(db *sqlx.DB, cfg *Config, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *PostgresDB {
	return &PostgresDB{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
		config:  cfg,
		stop:    make(chan struct{}),
	}
}

// Close stops pool monitoring and releases the connections.
func (p *PostgresDB) Close() error {
	p.logger.Info(context.Background(), "[DB_CLOSE] Closing database connection", logging.Fields{
		"database": p.config.Database,
	})
	close(p.stop)
	return p.db.Close()
}

// observe records the duration of a statement and logs its failure.
func (p *PostgresDB) observe(ctx context.Context, queryType, kind string, started time.Time, err error) {
	elapsed := time.Since(started)
	p.metrics.DBQueryDuration.WithLabelValues(queryType).Observe(elapsed.Seconds())

	if err != nil {
		p.metrics.RecordDBError(kind + "_error")
		p.logger.Error(ctx, "[DB_"+strings.ToUpper(kind)+"_ERROR] Statement failed", logging.Fields{
			"query_type": queryType,
		}, err)
		return
	}
	p.logger.Debug(ctx, "[DB_"+strings.ToUpper(kind)+"] Statement executed", logging.Fields{
		"query_type":  queryType,
		"duration_ms": elapsed.Milliseconds(),
	})
}

// ExecContext runs a write statement outside a transaction.
func (p *PostgresDB) ExecContext(ctx context.Context, queryType, query string, args ...interface{}) (sql.Result, error) {
	started := time.Now()
	result, err := p.db.ExecContext(ctx, query, args...)
	p.observe(ctx, queryType, "exec", started, err)
	return result, err
}

// TxSelectContext runs a select returning multiple rows inside tx, recording
// its duration under queryType.
func (p *PostgresDB) TxSelectContext(ctx context.Context, tx *sqlx.Tx, queryType string, dest interface{}, query string, args ...interface{}) error {
	started := time.Now()
	err := tx.SelectContext(ctx, dest, query, args...)
	p.observe(ctx, queryType, "select", started, err)
	return err
}

// BeginTx starts a serializable transaction for imports.
func (p *PostgresDB) BeginTx(ctx context.Context) (*sqlx.Tx, error) {
	return p.begin(ctx, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

// BeginReadTx begins a read-only repeatable-read transaction so every source
// table is read from one snapshot.
func (p *PostgresDB) BeginReadTx(ctx context.Context) (*sqlx.Tx, error) {
	return p.begin(ctx, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

func (p *PostgresDB) begin(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	tx, err := p.db.BeginTxx(ctx, opts)
	if err != nil {
		p.metrics.RecordDBError("transaction_begin_error")
		p.logger.Error(ctx, "[DB_TX_ERROR] Could not begin transaction", logging.Fields{
			"isolation": opts.Isolation.String(),
			"read_only": opts.ReadOnly,
		}, err)
		return nil, err
	}
	return tx, nil
}

func (p *PostgresDB) monitorConnectionPool() {
	ticker := time.NewTicker(poolInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stop:
			return
		case <-ticker.C:
		}

		stats := p.db.Stats()
		p.metrics.UpdateDBConnectionPool(stats.InUse, stats.Idle, stats.OpenConnections)

		if p.config.MaxOpenConns <= 0 {
			continue
		}
		utilization := float64(stats.InUse) / float64(p.config.MaxOpenConns)
		if utilization > 0.8 {
			p.logger.Warn(context.Background(), "[DB_POOL_WARNING] Connection pool utilization high", logging.Fields{
				"in_use":      stats.InUse,
				"idle":        stats.Idle,
				"total":       stats.OpenConnections,
				"max_open":    p.config.MaxOpenConns,
				"utilization": fmt.Sprintf("%.2f%%", utilization*100),
			})
		}
	}
}

// HealthCheck pings the source database.
func (p *PostgresDB) HealthCheck(ctx context.Context) error {
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()

	if err := p.db.PingContext(pingCtx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}
	return nil
}
