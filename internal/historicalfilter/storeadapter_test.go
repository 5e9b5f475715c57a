package historicalfilter

import (
	"context"
	"testing"

	"github.com/open-climate-tech/firecam/internal/classifier"
	"github.com/open-climate-tech/firecam/internal/store"
)

type fakeScoreStore struct {
	gotMinX, gotMinY, gotMaxX, gotMaxY int
	rows                               []*store.Score
}

func (f *fakeScoreStore) QueryWindow(ctx context.Context, cameraID string, heading float64, modelID string,
	minX, minY, maxX, maxY int, tNow int64, secondsInDay int) ([]*store.Score, error) {
	f.gotMinX, f.gotMinY, f.gotMaxX, f.gotMaxY = minX, minY, maxX, maxY
	return f.rows, nil
}

func TestStoreQueryTranslatesSegmentToBoundingBox(t *testing.T) {
	repo := &fakeScoreStore{rows: []*store.Score{{Score: 0.42}, {Score: 0.9}}}
	q := &StoreQuery{Repo: repo}

	seg := classifier.Segment{MinX: 1, MinY: 2, MaxX: 3, MaxY: 4}
	rows, err := q.QueryWindow(context.Background(), "cam1", 90, "m1", seg, 1000, 3600)
	if err != nil {
		t.Fatalf("QueryWindow returned error: %v", err)
	}
	if repo.gotMinX != 1 || repo.gotMinY != 2 || repo.gotMaxX != 3 || repo.gotMaxY != 4 {
		t.Fatalf("bbox not forwarded: %+v", repo)
	}
	if len(rows) != 2 || rows[0].Score != 0.42 || rows[1].Score != 0.9 {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}
