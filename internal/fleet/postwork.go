package fleet

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/open-climate-tech/firecam/internal/store"
)

// StatsStore is the subset of Store the post-work sweep needs to compute
// and persist daily stats.
type StatsStore interface {
	ComputeDailyStats(ctx context.Context, day time.Time) (store.DailyStats, error)
	PersistDailyStats(ctx context.Context, day time.Time, stats store.DailyStats) error
	PruneScoresOlderThan(ctx context.Context, cutoff int64) (int64, error)
	PruneArchiveOlderThan(ctx context.Context, cutoff int64) (int64, error)
}

// scoreRetention is the 3-week rolling window scores are kept for.
const scoreRetention = 21 * 24 * time.Hour

// archiveRetention is the 1-hour archive-image retention window, shared
// with internal/imagesource.MaxAge.
const archiveRetention = time.Hour

// RunDailyPostWork computes and persists today's stats, prunes scores
// older than 3 weeks and archive images older than 1 hour, and empties the
// archive directory.
func RunDailyPostWork(ctx context.Context, statsStore StatsStore, archiveDir string, now time.Time) error {
	stats, err := statsStore.ComputeDailyStats(ctx, now)
	if err != nil {
		return fmt.Errorf("fleet: compute daily stats: %w", err)
	}
	if err := statsStore.PersistDailyStats(ctx, now, stats); err != nil {
		return fmt.Errorf("fleet: persist daily stats: %w", err)
	}

	if _, err := statsStore.PruneScoresOlderThan(ctx, now.Add(-scoreRetention).Unix()); err != nil {
		return fmt.Errorf("fleet: prune scores: %w", err)
	}
	if _, err := statsStore.PruneArchiveOlderThan(ctx, now.Add(-archiveRetention).Unix()); err != nil {
		return fmt.Errorf("fleet: prune archive rows: %w", err)
	}

	entries, err := os.ReadDir(archiveDir)
	if err != nil {
		return fmt.Errorf("fleet: read archive dir: %w", err)
	}
	for _, e := range entries {
		_ = os.RemoveAll(archiveDir + "/" + e.Name())
	}

	return nil
}
