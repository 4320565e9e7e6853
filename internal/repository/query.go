package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

var queryDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "db_query_duration_seconds",
		Help:    "Latency of SQL statements issued by the repositories",
		Buckets: prometheus.DefBuckets,
	}, []string{"op", "status"},
)

func init() { prometheus.MustRegister(queryDuration) }

// Executor runs single parameterized statements against the connection
// pool.  Each call borrows one connection and gives it back before
// returning, whether the statement succeeded or not.  There are no retries;
// driver errors are returned as they are.
type Executor struct {
	db  *sqlx.DB
	log *zap.Logger
}

// NewExecutor wraps db.  A nil logger disables statement logging.
func NewExecutor(db *sqlx.DB, log *zap.Logger) *Executor {
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{db: db, log: log}
}

// DB exposes the underlying pool for callers that need a transaction.
func (ex *Executor) DB() *sqlx.DB { return ex.db }

func (ex *Executor) observe(op string, start time.Time, query string, err error) {
	status := "ok"
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		status = "error"
		ex.log.Debug("sql statement failed", zap.String("op", op), zap.String("query", query), zap.Error(err))
	}
	queryDuration.WithLabelValues(op, status).Observe(time.Since(start).Seconds())
}

// Select runs query and scans every row into T.  It returns an empty,
// non-nil slice when nothing matches.
func Select[T any](ctx context.Context, ex *Executor, query string, args ...any) ([]T, error) {
	start := time.Now()
	out := make([]T, 0)
	err := sqlx.SelectContext(ctx, ex.db, &out, query, args...)
	ex.observe("select", start, query, err)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get runs query and scans the first row into T.  A query that matches no
// row yields (nil, nil).
func Get[T any](ctx context.Context, ex *Executor, query string, args ...any) (*T, error) {
	start := time.Now()
	var out T
	err := sqlx.GetContext(ctx, ex.db, &out, query, args...)
	ex.observe("get", start, query, err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// Exec runs a statement that returns no rows.
func (ex *Executor) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	start := time.Now()
	res, err := ex.db.ExecContext(ctx, query, args...)
	ex.observe("exec", start, query, err)
	return res, err
}

// Count runs a single-column integer query such as SELECT COUNT(*).
func (ex *Executor) Count(ctx context.Context, query string, args ...any) (int, error) {
	n, err := Get[int](ctx, ex, query, args...)
	if err != nil || n == nil {
		return 0, err
	}
	return *n, nil
}

// InTx runs fn inside a transaction, committing when fn returns nil and
// rolling back otherwise.
func (ex *Executor) InTx(ctx context.Context, fn func(tx *sqlx.Tx) error) (err error) {
	start := time.Now()
	tx, err := ex.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
		ex.observe("tx", start, "", err)
	}()
	return fn(tx)
}
