package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// AlertRow is the minimal shape Republisher needs from a store.Alert plus
// its parent store.Detection, enough to rebuild the notification Message.
type AlertRow struct {
	ID           int64
	CameraID     string
	Timestamp    int64
	AdjScore     float64
	AnnotatedURL string
	CroppedURL   string
	MapURL       string
	Polygon      json.RawMessage
	IsProto      bool
	WeatherScore float64
}

// AlertStore is the subset of store.AlertRepo the republish sweep needs.
type AlertStore interface {
	Unpublished(ctx context.Context) ([]AlertRow, error)
	MarkPublished(ctx context.Context, id int64) error
	MarkPublishFailed(ctx context.Context, id int64, reason string) error
}

// Republisher periodically retries publishing alerts whose row was
// inserted but whose initial publish failed; the alert row stays
// unpublished so it can be retried later. The Store is the durability
// layer here, not a local file spool, which keeps the retry state
// consistent with the rest of the Alert lifecycle instead of introducing
// a second, disk-backed source of truth.
type Republisher struct {
	store     AlertStore
	publisher *Publisher
	interval  time.Duration
}

func NewRepublisher(store AlertStore, publisher *Publisher, interval time.Duration) *Republisher {
	return &Republisher{store: store, publisher: publisher, interval: interval}
}

// Run sweeps until ctx is canceled.
func (r *Republisher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.sweep(ctx)
		}
	}
}

func (r *Republisher) sweep(ctx context.Context) {
	rows, err := r.store.Unpublished(ctx)
	if err != nil {
		log.Printf("notify: republish sweep: list unpublished: %v", err)
		return
	}

	for _, a := range rows {
		msg := Message{
			Timestamp:    a.Timestamp,
			CameraID:     a.CameraID,
			AdjScore:     a.AdjScore,
			AnnotatedURL: a.AnnotatedURL,
			CroppedURL:   a.CroppedURL,
			MapURL:       a.MapURL,
			Polygon:      a.Polygon,
			IsProto:      a.IsProto,
			WeatherScore: a.WeatherScore,
		}
		if err := r.publisher.Publish(msg); err != nil {
			_ = r.store.MarkPublishFailed(ctx, a.ID, err.Error())
			continue
		}
		if err := r.store.MarkPublished(ctx, a.ID); err != nil {
			log.Printf("notify: republish sweep: mark published id=%d: %v", a.ID, err)
		}
	}
}
