// Package sqlstore persists the lending engine in PostgreSQL or SQLite.
//
// Queries are built with goqu for the selected dialect and scanned with
// sqlx. Inventory counters move through conditional UPDATEs, so two
// transactions can never both take the last unit. Postgres transactions run
// SERIALIZABLE and are retried on serialization failures.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // goqu dialect
	_ "github.com/doug-martin/goqu/v9/dialect/sqlite3"  // goqu dialect
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"doccenter/internal/lending/ports"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/platform/tx"
)

// Supported drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

const (
	defaultTxTimeout  = 5 * time.Second
	defaultMaxRetries = 5
	retryBackoff      = 10 * time.Millisecond

	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// DB is a SQL-backed ports.TxRunner and outbox.Source.
type DB struct {
	db         *sqlx.DB
	driver     string
	dialect    goqu.DialectWrapper
	logger     *slog.Logger
	timeout    time.Duration
	maxRetries int
}

// Option configures a DB.
type Option func(*DB)

func WithLogger(logger *slog.Logger) Option {
	return func(db *DB) {
		db.logger = logger
	}
}

// WithTxTimeout bounds transactions whose context has no deadline.
func WithTxTimeout(d time.Duration) Option {
	return func(db *DB) {
		if d > 0 {
			db.timeout = d
		}
	}
}

// WithMaxRetries caps how often a transaction is replayed after a
// serialization failure.
func WithMaxRetries(n int) Option {
	return func(db *DB) {
		if n >= 0 {
			db.maxRetries = n
		}
	}
}

// PoolConfig sizes the connection pool. SQLite always uses one connection.
type PoolConfig struct {
	MaxOpenConns int
	MaxIdleConns int
}

// Open connects to driver/dsn and verifies the connection.
func Open(ctx context.Context, driver, dsn string, pool PoolConfig, opts ...Option) (*DB, error) {
	var sqlDriver string
	switch driver {
	case DriverPostgres:
		sqlDriver = "pgx"
	case DriverSQLite:
		sqlDriver = "sqlite"
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}

	conn, err := sqlx.Open(sqlDriver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		conn.SetMaxOpenConns(1)
		conn.SetMaxIdleConns(1)
		conn.SetConnMaxLifetime(0)
	} else {
		if pool.MaxOpenConns > 0 {
			conn.SetMaxOpenConns(pool.MaxOpenConns)
		}
		if pool.MaxIdleConns > 0 {
			conn.SetMaxIdleConns(pool.MaxIdleConns)
		}
		conn.SetConnMaxLifetime(time.Hour)
		conn.SetConnMaxIdleTime(5 * time.Minute)
	}
	if err := conn.PingContext(ctx); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	return New(conn, driver, opts...), nil
}

// New wraps an existing connection. driver selects the SQL dialect.
func New(conn *sqlx.DB, driver string, opts ...Option) *DB {
	dialect := "postgres"
	if driver == DriverSQLite {
		dialect = "sqlite3"
	}
	db := &DB{
		db:         conn,
		driver:     driver,
		dialect:    goqu.Dialect(dialect),
		logger:     slog.Default(),
		timeout:    defaultTxTimeout,
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

func (db *DB) Close() error {
	return db.db.Close()
}

// Health pings the database.
func (db *DB) Health(ctx context.Context) error {
	return db.db.PingContext(ctx)
}

// Migrate creates every table and index that does not exist yet.
func (db *DB) Migrate(ctx context.Context) error {
	schema := postgresSchema
	if db.driver == DriverSQLite {
		schema = sqliteSchema
	}
	for _, stmt := range schema {
		if _, err := db.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// Reset deletes every row, children first. Tests and the seed command use
// it to start from an empty database.
func (db *DB) Reset(ctx context.Context) error {
	for i := len(tables) - 1; i >= 0; i-- {
		if _, err := db.db.ExecContext(ctx, "DELETE FROM "+pq.QuoteIdentifier(tables[i])); err != nil {
			return fmt.Errorf("reset %s: %w", tables[i], err)
		}
	}
	return nil
}

// RunInTx implements ports.TxRunner. fn may run more than once when the
// database reports a serialization conflict, so it must not leak effects
// outside the transaction.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, st ports.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.timeout)
		defer cancel()
	}

	var err error
	for attempt := 0; ; attempt++ {
		err = db.runOnce(ctx, fn)
		if err == nil || !isRetryable(err) || attempt >= db.maxRetries {
			break
		}
		db.logger.DebugContext(ctx, "retrying transaction after serialization conflict",
			"attempt", attempt+1,
			"error", err,
		)
		select {
		case <-time.After(retryBackoff * time.Duration(attempt+1)):
		case <-ctx.Done():
			return dErrors.Wrap(ctx.Err(), dErrors.CodeTimeout, "transaction aborted: context cancelled")
		}
	}
	if err != nil && isRetryable(err) {
		return dErrors.Wrap(err, dErrors.CodeConflict, "transaction kept conflicting, try again")
	}
	return err
}

func (db *DB) runOnce(ctx context.Context, fn func(ctx context.Context, st ports.Stores) error) error {
	var txOpts *sql.TxOptions
	if db.driver == DriverPostgres {
		txOpts = &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	sqlTx, err := db.db.BeginTxx(ctx, txOpts)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "transaction aborted: context cancelled")
		}
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = sqlTx.Rollback()
	}()

	if err := fn(tx.WithTx(ctx, sqlTx), &stores{q: querier{dialect: db.dialect}}); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "transaction aborted: deadline exceeded")
		}
		return err
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: deadline exceeded before commit")
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// isRetryable reports serialization failures and deadlocks on Postgres and
// a busy database on SQLite.
func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgSerializationFailure || pgErr.Code == pgDeadlockDetected
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqlite3.SQLITE_BUSY
	}
	return false
}
