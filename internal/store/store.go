// Package store holds durable relational state for cameras, counters,
// scores, probables, detections, alerts, ignored views, and the weather
// cache, reached through database/sql + lib/pq.
package store

import (
	"context"
	"database/sql"
	"errors"
)

var ErrNotFound = errors.New("store: record not found")

// DBTX is satisfied by both *sql.DB and *sql.Tx, so repository methods work
// unmodified inside the single transaction required over a detection and
// its alert.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Store bundles every repository the pipeline touches, plus the handle
// needed to open a transaction for the detection+alert write.
type Store struct {
	db DBTX
	tx func(ctx context.Context, fn func(DBTX) error) error

	Cameras      *CameraRepo
	Counters     *CounterRepo
	Scores       *ScoreRepo
	Probables    *ProbableRepo
	Detections   *DetectionRepo
	Alerts       *AlertRepo
	IgnoredViews *IgnoredViewRepo
	Archive      *ArchiveRepo
	Weather      *WeatherCacheRepo
}

// New wires every repository against the same DBTX.
func New(db *sql.DB) *Store {
	s := &Store{
		db: db,
		tx: func(ctx context.Context, fn func(DBTX) error) error {
			txn, err := db.BeginTx(ctx, nil)
			if err != nil {
				return err
			}
			if err := fn(txn); err != nil {
				_ = txn.Rollback()
				return err
			}
			return txn.Commit()
		},
	}
	s.Cameras = &CameraRepo{db: db}
	s.Counters = &CounterRepo{db: db}
	s.Scores = &ScoreRepo{db: db}
	s.Probables = &ProbableRepo{db: db}
	s.Detections = &DetectionRepo{db: db}
	s.Alerts = &AlertRepo{db: db}
	s.IgnoredViews = &IgnoredViewRepo{db: db}
	s.Archive = &ArchiveRepo{db: db}
	s.Weather = &WeatherCacheRepo{db: db}
	return s
}

// WithTx runs fn inside a single Postgres transaction, used by the Alert
// Composer for the unconditional Detection insert plus the conditional
// Alert insert.
func (s *Store) WithTx(ctx context.Context, fn func(*Store) error) error {
	return s.tx(ctx, func(txn DBTX) error {
		scoped := &Store{db: txn}
		scoped.Cameras = &CameraRepo{db: txn}
		scoped.Counters = &CounterRepo{db: txn}
		scoped.Scores = &ScoreRepo{db: txn}
		scoped.Probables = &ProbableRepo{db: txn}
		scoped.Detections = &DetectionRepo{db: txn}
		scoped.Alerts = &AlertRepo{db: txn}
		scoped.IgnoredViews = &IgnoredViewRepo{db: txn}
		scoped.Archive = &ArchiveRepo{db: txn}
		scoped.Weather = &WeatherCacheRepo{db: txn}
		return fn(scoped)
	})
}
