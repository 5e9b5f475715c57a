package imagesource

import (
	"context"

	"github.com/open-climate-tech/firecam/internal/store"
)

// ArchiveStoreRows is the subset of store.ArchiveRepo the PTZ batch path
// needs.
type ArchiveStoreRows interface {
	UnprocessedSince(ctx context.Context, cameraID string, since int64) ([]*store.ArchiveImage, error)
}

// StoreArchiveRows adapts store.ArchiveRepo to the ArchiveRows interface,
// converting the Store's persisted row shape to the Frame shape the
// fetch path returns.
type StoreArchiveRows struct {
	Repo ArchiveStoreRows
}

func (a *StoreArchiveRows) UnprocessedSince(ctx context.Context, cameraID string, since int64) ([]Frame, error) {
	rows, err := a.Repo.UnprocessedSince(ctx, cameraID, since)
	if err != nil {
		return nil, err
	}
	out := make([]Frame, len(rows))
	for i, r := range rows {
		out[i] = Frame{ImagePath: r.ImagePath, Heading: r.Heading, Timestamp: r.Timestamp, FOV: r.FieldOfView}
	}
	return out, nil
}
