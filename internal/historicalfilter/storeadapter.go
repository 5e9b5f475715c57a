package historicalfilter

import (
	"context"

	"github.com/open-climate-tech/firecam/internal/classifier"
	"github.com/open-climate-tech/firecam/internal/store"
)

// ScoreStore is the subset of store.ScoreRepo the adapter needs.
type ScoreStore interface {
	QueryWindow(ctx context.Context, cameraID string, heading float64, modelID string,
		minX, minY, maxX, maxY int, tNow int64, secondsInDay int) ([]*store.Score, error)
}

// StoreQuery adapts store.ScoreRepo to the WindowQuery interface, bridging
// the bbox-coordinate shape the Store persists to the Segment shape the
// filter evaluates.
type StoreQuery struct {
	Repo ScoreStore
}

func (q *StoreQuery) QueryWindow(ctx context.Context, cameraID string, heading float64, modelID string, seg classifier.Segment, tNow int64, secondsInDay int) ([]ScoreRow, error) {
	rows, err := q.Repo.QueryWindow(ctx, cameraID, heading, modelID, seg.MinX, seg.MinY, seg.MaxX, seg.MaxY, tNow, secondsInDay)
	if err != nil {
		return nil, err
	}
	out := make([]ScoreRow, len(rows))
	for i, r := range rows {
		out[i] = ScoreRow{Score: r.Score}
	}
	return out, nil
}
