// Package database provides PostgreSQL storage for the catalog and recommendation runs.
package database

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"course-eligibility-engine/internal/config"
)

// Tables lists every table the engine owns, parents first.
var Tables = []string{"courses", "course_requirements", "course_tags", "recommendation_runs"}

// connectTimeout bounds pool creation and the initial ping.
const connectTimeout = 10 * time.Second

// PoolSize bounds the connection pool.
type PoolSize struct {
	Max int32
	Min int32
}

// Default pool sizes. A Lambda instance serves one request at a time, so it
// keeps no idle connections.
var (
	ServerPool = PoolSize{Max: 10, Min: 1}
	LambdaPool = PoolSize{Max: 2, Min: 0}
)

// PoolSizeFor picks the pool size for the current runtime. DB_MAX_CONNS
// overrides the maximum.
func PoolSizeFor(cfg *config.Config) PoolSize {
	size := ServerPool
	if os.Getenv("AWS_LAMBDA_FUNCTION_NAME") != "" {
		size = LambdaPool
	}
	if cfg != nil && cfg.DBMaxConns > 0 {
		size.Max = int32(cfg.DBMaxConns)
		if size.Min > size.Max {
			size.Min = size.Max
		}
	}
	return size
}

// DB holds the database connection pool.
type DB struct {
	pool *pgxpool.Pool
}

// New connects using the configured DATABASE_URL or DB_* settings.
func New(ctx context.Context, cfg *config.Config) (*DB, error) {
	return connect(ctx, cfg.DatabaseURL(), PoolSizeFor(cfg))
}

// NewFromURL connects to databaseURL with the default pool size for the runtime.
func NewFromURL(ctx context.Context, databaseURL string) (*DB, error) {
	return connect(ctx, databaseURL, PoolSizeFor(nil))
}

func connect(ctx context.Context, databaseURL string, size PoolSize) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}
	poolConfig.MaxConns = size.Max
	poolConfig.MinConns = size.Min
	poolConfig.MaxConnLifetime = time.Hour
	poolConfig.MaxConnIdleTime = 30 * time.Minute
	poolConfig.HealthCheckPeriod = time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{pool: pool}, nil
}

// Close closes the database connection pool.
func (db *DB) Close() {
	if db.pool != nil {
		db.pool.Close()
	}
}

// HealthCheck verifies database connectivity.
func (db *DB) HealthCheck(ctx context.Context) error {
	return db.pool.Ping(ctx)
}

// TableCounts returns the row count of every engine table. Tables that cannot
// be counted, usually because the schema is missing, are reported in errs.
func (db *DB) TableCounts(ctx context.Context) (counts map[string]int64, errs map[string]error) {
	counts = make(map[string]int64, len(Tables))
	errs = make(map[string]error)
	for _, table := range Tables {
		var n int64
		if err := db.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+pgx.Identifier{table}.Sanitize()).Scan(&n); err != nil {
			errs[table] = err
			continue
		}
		counts[table] = n
	}
	return counts, errs
}

// ExecContext executes a query that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, sql string, args ...any) (int64, error) {
	tag, err := db.pool.Exec(ctx, sql, args...)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, sql string, args ...any) pgx.Row {
	return db.pool.QueryRow(ctx, sql, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return db.pool.Query(ctx, sql, args...)
}

// WithTransaction runs fn in a transaction, rolling back when fn fails.
func (db *DB) WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := db.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}
