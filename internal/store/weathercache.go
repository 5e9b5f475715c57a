package store

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
)

type WeatherCacheRepo struct {
	db DBTX
}

func (r *WeatherCacheRepo) Get(ctx context.Context, cameraID string, timestamp int64) (*WeatherCacheEntry, error) {
	var e WeatherCacheEntry
	var sources []string
	err := r.db.QueryRowContext(ctx, `
		SELECT camera_id, timestamp, weather_at_centroid, weather_at_camera, sources
		FROM weather_cache WHERE camera_id = $1 AND timestamp = $2`, cameraID, timestamp,
	).Scan(&e.CameraID, &e.Timestamp, &e.WeatherAtCentroid, &e.WeatherAtCamera, pq.Array(&sources))
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	e.Sources = sources
	return &e, nil
}

func (r *WeatherCacheRepo) Put(ctx context.Context, e *WeatherCacheEntry) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO weather_cache (camera_id, timestamp, weather_at_centroid, weather_at_camera, sources)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (camera_id, timestamp) DO UPDATE
		SET weather_at_centroid = EXCLUDED.weather_at_centroid,
		    weather_at_camera = EXCLUDED.weather_at_camera,
		    sources = EXCLUDED.sources`,
		e.CameraID, e.Timestamp, e.WeatherAtCentroid, e.WeatherAtCamera, pq.Array(e.Sources))
	return err
}
