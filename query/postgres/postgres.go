// Package postgres implements query.Executor on PostgreSQL via pgx and
// imports chat exports into the sessions / messages schema the analyst
// queries.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hupe1980/analystloop/logging"
	"github.com/hupe1980/analystloop/query"
)

// Options configure the executor.
type Options struct {
	// MaxRows caps the number of rows a result may have; larger results
	// fail with *query.RowLimitError. 0 means no cap.
	MaxRows int
	// ReadOnly runs each query in a read-only transaction.
	ReadOnly bool
	// Logger defaults to logging.NoOpLogger.
	Logger logging.Logger
}

// Querier is the subset of *pgxpool.Pool the executor needs.
type Querier interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

// Executor runs model-generated SQL against PostgreSQL. Authorization is
// delegated to the database role behind the connection string.
type Executor struct {
	db   Querier
	opts Options
}

// Connect opens a connection pool and verifies it with a ping.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrTransport, err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("%w: %v", query.ErrTransport, err)
	}
	return pool, nil
}

// New creates an Executor over db (usually a *pgxpool.Pool).
func New(db Querier, optFns ...func(o *Options)) *Executor {
	opts := Options{
		MaxRows:  10000,
		ReadOnly: true,
		Logger:   logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Executor{db: db, opts: opts}
}

// Run implements query.Executor.
func (e *Executor) Run(ctx context.Context, sql string) ([][]any, error) {
	start := time.Now()

	mode := pgx.ReadWrite
	if e.opts.ReadOnly {
		mode = pgx.ReadOnly
	}

	tx, err := e.db.BeginTx(ctx, pgx.TxOptions{AccessMode: mode})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrTransport, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, sql)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrQuery, err)
	}
	defer rows.Close()

	var out [][]any
	for rows.Next() {
		if e.opts.MaxRows > 0 && len(out) >= e.opts.MaxRows {
			e.opts.Logger.Warn("postgres.query.row_limit", "max_rows", e.opts.MaxRows)
			return nil, &query.RowLimitError{Limit: e.opts.MaxRows}
		}
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", query.ErrQuery, err)
		}
		out = append(out, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", query.ErrQuery, err)
	}

	e.opts.Logger.Debug("postgres.query.completed", "rows", len(out), "duration_ms", time.Since(start).Milliseconds())

	return out, nil
}

var _ query.Executor = (*Executor)(nil)
