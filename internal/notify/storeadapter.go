package notify

import (
	"context"

	"github.com/open-climate-tech/firecam/internal/store"
)

// AlertRepo is the subset of store.AlertRepo the republish sweep needs.
type AlertRepo interface {
	UnpublishedWithDetection(ctx context.Context) ([]*store.UnpublishedAlert, error)
	MarkPublished(ctx context.Context, id int64) error
	MarkPublishFailed(ctx context.Context, id int64, reason string) error
}

// StoreAlerts adapts store.AlertRepo to the AlertStore interface, folding
// the joined detection fields into the flat AlertRow shape Republisher
// works with.
type StoreAlerts struct {
	Repo AlertRepo
}

func (s *StoreAlerts) Unpublished(ctx context.Context) ([]AlertRow, error) {
	rows, err := s.Repo.UnpublishedWithDetection(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]AlertRow, len(rows))
	for i, r := range rows {
		out[i] = AlertRow{
			ID: r.ID, CameraID: r.CameraID, Timestamp: r.Timestamp,
			AdjScore: r.AdjScore, AnnotatedURL: r.AnnotatedURI, CroppedURL: r.VideoURI, MapURL: r.MapURI,
			Polygon: r.Polygon, IsProto: r.IsPrototype, WeatherScore: r.WeatherScore,
		}
	}
	return out, nil
}

func (s *StoreAlerts) MarkPublished(ctx context.Context, id int64) error {
	return s.Repo.MarkPublished(ctx, id)
}

func (s *StoreAlerts) MarkPublishFailed(ctx context.Context, id int64, reason string) error {
	return s.Repo.MarkPublishFailed(ctx, id, reason)
}
