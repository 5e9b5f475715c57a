package store

import (
	"context"
	"time"
)

// DailyStats is the row persisted once per day by the Fleet Controller's
// post-work sweep.
type DailyStats struct {
	Images           int64
	Segments         int64
	PositiveSegments int64
	Probables        int64
	Detections       int64
	Alerts           int64
}

// ComputeDailyStats aggregates counts for the UTC calendar day containing
// day from the scores, probables, detections, and alerts tables.
func (s *Store) ComputeDailyStats(ctx context.Context, day time.Time) (DailyStats, error) {
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC).Unix()
	end := start + 86400

	var stats DailyStats
	row := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(DISTINCT (camera_id, heading, timestamp)) FROM scores WHERE timestamp >= $1 AND timestamp < $2),
			(SELECT COUNT(*) FROM scores WHERE timestamp >= $1 AND timestamp < $2),
			(SELECT COUNT(*) FROM scores WHERE timestamp >= $1 AND timestamp < $2 AND score > 0.5),
			(SELECT COUNT(*) FROM probables WHERE timestamp >= $1 AND timestamp < $2),
			(SELECT COUNT(*) FROM detections WHERE timestamp >= $1 AND timestamp < $2),
			(SELECT COUNT(*) FROM alerts WHERE timestamp >= $1 AND timestamp < $2)
	`, start, end)
	if err := row.Scan(&stats.Images, &stats.Segments, &stats.PositiveSegments, &stats.Probables, &stats.Detections, &stats.Alerts); err != nil {
		return DailyStats{}, err
	}
	return stats, nil
}

// PersistDailyStats upserts the computed row for day.
func (s *Store) PersistDailyStats(ctx context.Context, day time.Time, stats DailyStats) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO daily_stats (day, images, segments, positive_segments, probables, detections, alerts)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (day) DO UPDATE SET
			images = EXCLUDED.images,
			segments = EXCLUDED.segments,
			positive_segments = EXCLUDED.positive_segments,
			probables = EXCLUDED.probables,
			detections = EXCLUDED.detections,
			alerts = EXCLUDED.alerts`,
		day.UTC().Format("2006-01-02"), stats.Images, stats.Segments, stats.PositiveSegments, stats.Probables, stats.Detections, stats.Alerts)
	return err
}

// PruneScoresOlderThan removes scores past the 3-week retention window
// and returns the row count deleted.
func (s *Store) PruneScoresOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	return s.Scores.PurgeOlderThan(ctx, cutoff)
}

// PruneArchiveOlderThan unconditionally removes archive rows past cutoff,
// used by the daily post-work sweep once the whole archive directory is
// about to be emptied anyway — unlike the Scheduler's gc sweep
// (internal/imagesource.GC), no not-referenced guard is needed here
// because this only runs once the detect window has been closed for
// hours.
func (s *Store) PruneArchiveOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM archive_images WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
