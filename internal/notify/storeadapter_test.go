package notify

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/open-climate-tech/firecam/internal/store"
)

type fakeAlertRepo struct {
	rows       []*store.UnpublishedAlert
	publishes  []int64
	failures   []int64
}

func (f *fakeAlertRepo) UnpublishedWithDetection(ctx context.Context) ([]*store.UnpublishedAlert, error) {
	return f.rows, nil
}

func (f *fakeAlertRepo) MarkPublished(ctx context.Context, id int64) error {
	f.publishes = append(f.publishes, id)
	return nil
}

func (f *fakeAlertRepo) MarkPublishFailed(ctx context.Context, id int64, reason string) error {
	f.failures = append(f.failures, id)
	return nil
}

func TestStoreAlertsFlattensJoinedRow(t *testing.T) {
	poly := json.RawMessage(`[[1,2]]`)
	repo := &fakeAlertRepo{rows: []*store.UnpublishedAlert{
		{
			Alert:        store.Alert{ID: 1, CameraID: "cam1", Timestamp: 100},
			Polygon:      poly,
			AdjScore:     0.8,
			WeatherScore: 0.5,
			VideoURI:     "video",
			AnnotatedURI: "annotated",
			MapURI:       "map",
			IsPrototype:  true,
		},
	}}
	s := &StoreAlerts{Repo: repo}

	rows, err := s.Unpublished(context.Background())
	if err != nil {
		t.Fatalf("Unpublished returned error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("got %d rows; want 1", len(rows))
	}
	got := rows[0]
	if got.CameraID != "cam1" || got.AdjScore != 0.8 || got.WeatherScore != 0.5 || !got.IsProto {
		t.Fatalf("unexpected AlertRow: %+v", got)
	}
	if got.AnnotatedURL != "annotated" || got.CroppedURL != "video" || got.MapURL != "map" {
		t.Fatalf("unexpected url fields: %+v", got)
	}

	if err := s.MarkPublished(context.Background(), 1); err != nil {
		t.Fatalf("MarkPublished returned error: %v", err)
	}
	if len(repo.publishes) != 1 {
		t.Fatalf("MarkPublished not forwarded to repo")
	}
}
