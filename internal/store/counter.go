package store

import (
	"context"
	"database/sql"
	"fmt"
	"math/rand"
	"time"
)

type CounterRepo struct {
	db DBTX
}

// maxCASAttempts bounds the optimistic retry loop: retrying indefinitely
// would be correct, but a real process still needs an escape hatch so a
// wedged row can't spin a worker forever.
const maxCASAttempts = 50

// Increment performs an atomic read-modify-write that must never skip or
// duplicate a value across concurrent callers. Implemented as an
// optimistic compare-and-swap on a (name, value, version) row in Postgres,
// because the counter is explicitly relational shared state.
func (r *CounterRepo) Increment(ctx context.Context, name string) (previous int64, err error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		var value, version int64
		err := r.db.QueryRowContext(ctx,
			`SELECT value, version FROM counters WHERE name = $1`, name,
		).Scan(&value, &version)

		if err == sql.ErrNoRows {
			// First use of this counter name: seed it at 0 and retry the CAS
			// read so a concurrent seeder can't silently duplicate values.
			_, insErr := r.db.ExecContext(ctx,
				`INSERT INTO counters (name, value, version) VALUES ($1, 0, 0)
				 ON CONFLICT (name) DO NOTHING`, name)
			if insErr != nil {
				return 0, insErr
			}
			continue
		}
		if err != nil {
			return 0, err
		}

		res, err := r.db.ExecContext(ctx,
			`UPDATE counters SET value = value + 1, version = version + 1
			 WHERE name = $1 AND version = $2`, name, version)
		if err != nil {
			return 0, err
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		if affected == 1 {
			return value, nil
		}

		// Lost the race: another caller updated the row between our read and
		// write. Back off with jitter and retry.
		backoff := time.Duration(5+rand.Intn(15)) * time.Millisecond * time.Duration(attempt+1)
		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return 0, fmt.Errorf("counter %q: exceeded %d CAS attempts", name, maxCASAttempts)
}
