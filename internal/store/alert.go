package store

import (
	"context"
	"encoding/json"
)

type AlertRepo struct {
	db DBTX
}

// Insert is used inside the detection+alert transaction: it is only called
// when weatherScore crosses the threshold and the camera is non-prototype
// and non-PTZ.
func (r *AlertRepo) Insert(ctx context.Context, a *Alert) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO alerts (detection_id, camera_id, timestamp, published, publish_error)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		a.DetectionID, a.CameraID, a.Timestamp, a.Published, a.PublishError,
	).Scan(&id)
	return id, err
}

// MarkPublished flips the row once the notification bus accepts the
// message. On publish failure the alert row remains unpublished so it can
// be republished later.
func (r *AlertRepo) MarkPublished(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE alerts SET published = true, publish_error = '' WHERE id = $1`, id)
	return err
}

func (r *AlertRepo) MarkPublishFailed(ctx context.Context, id int64, reason string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE alerts SET publish_error = $2 WHERE id = $1`, id, reason)
	return err
}

// Unpublished lists alerts awaiting republish, for a periodic retry sweep.
func (r *AlertRepo) Unpublished(ctx context.Context) ([]*Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, detection_id, camera_id, timestamp, published, publish_error
		FROM alerts WHERE published = false`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Alert
	for rows.Next() {
		var a Alert
		if err := rows.Scan(&a.ID, &a.DetectionID, &a.CameraID, &a.Timestamp, &a.Published, &a.PublishError); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// UnpublishedAlert joins one unpublished Alert row to the Detection fields
// a notification message needs to carry, so the republish sweep never has
// to reach back into DetectionRepo itself.
type UnpublishedAlert struct {
	Alert
	Polygon      json.RawMessage
	AdjScore     float64
	WeatherScore float64
	VideoURI     string
	AnnotatedURI string
	MapURI       string
	IsPrototype  bool
}

// UnpublishedWithDetection lists every unpublished alert joined to its
// parent detection and camera, the shape the notification Republisher
// sweep needs to rebuild a full notify.Message.
func (r *AlertRepo) UnpublishedWithDetection(ctx context.Context) ([]*UnpublishedAlert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT a.id, a.detection_id, a.camera_id, a.timestamp, a.published, a.publish_error,
		       d.polygon, d.adj_score, d.weather_score, d.video_uri, d.annotated_uri, d.map_uri, c.is_prototype
		FROM alerts a
		JOIN detections d ON d.id = a.detection_id
		JOIN cameras c ON c.id = a.camera_id
		WHERE a.published = false`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*UnpublishedAlert
	for rows.Next() {
		var u UnpublishedAlert
		if err := rows.Scan(&u.ID, &u.DetectionID, &u.CameraID, &u.Timestamp, &u.Published, &u.PublishError,
			&u.Polygon, &u.AdjScore, &u.WeatherScore, &u.VideoURI, &u.AnnotatedURI, &u.MapURI, &u.IsPrototype); err != nil {
			return nil, err
		}
		out = append(out, &u)
	}
	return out, rows.Err()
}
