package imagesource

import (
	"context"
	"fmt"
	"os"
)

// ArchiveStore is the subset of store.ArchiveRepo the gc sweep needs.
type ArchiveStore interface {
	DeleteOlderThanNotReferenced(ctx context.Context, cutoff int64) ([]string, error)
}

// MaxAge is the default archive retention window before a file is eligible
// for collection").
const MaxAge = 60 * 60

// GC deletes archive rows (and their backing files) older than cutoff that
// are not referenced by any Probable. The caller is responsible for only
// invoking this after barrier-joining the scheduler's workers, so no
// worker is still holding a path that gc is about to remove.
func GC(ctx context.Context, archive ArchiveStore, cutoff int64) (int, error) {
	paths, err := archive.DeleteOlderThanNotReferenced(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("imagesource: gc query: %w", err)
	}

	removed := 0
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			continue
		}
		removed++
	}
	return removed, nil
}
