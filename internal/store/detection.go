package store

import (
	"context"
)

type DetectionRepo struct {
	db DBTX
}

// Insert writes a Detection row unconditionally: every
// qualified probable gets one, whether or not it later crosses the weather
// threshold.
func (r *DetectionRepo) Insert(ctx context.Context, d *Detection) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO detections (camera_id, heading, timestamp, polygon, source_polygons, weather_score, adj_score, video_uri, annotated_uri, map_uri)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		d.CameraID, d.Heading, d.Timestamp, d.Polygon, d.SourcePolygons, d.WeatherScore, d.AdjScore,
		d.VideoURI, d.AnnotatedURI, d.MapURI,
	).Scan(&id)
	return id, err
}

// RecentDetections returns every detection newer than tNow-15min, used to
// promote a single-camera probable into a multi-camera confirmed detection.
func (r *DetectionRepo) RecentDetections(ctx context.Context, tNow int64) ([]*Detection, error) {
	const window = 15 * 60
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, camera_id, heading, timestamp, polygon, source_polygons, weather_score, adj_score, video_uri, annotated_uri, map_uri
		FROM detections WHERE timestamp > $1`, tNow-window)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Detection
	for rows.Next() {
		var d Detection
		if err := rows.Scan(&d.ID, &d.CameraID, &d.Heading, &d.Timestamp, &d.Polygon, &d.SourcePolygons,
			&d.WeatherScore, &d.AdjScore, &d.VideoURI, &d.AnnotatedURI, &d.MapURI); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}
