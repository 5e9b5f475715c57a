package store

import (
	"context"
	"database/sql"
)

type CameraRepo struct {
	db DBTX
}

// GetActiveCameras returns every non-dormant camera, optionally restricted
// to a single type tag ("fixed" | "ptz") via the CLI's --restrictType flag.
func (r *CameraRepo) GetActiveCameras(ctx context.Context, typeFilter string) ([]*Camera, error) {
	query := `
		SELECT id, url, type, fixed_heading, field_of_view, latitude, longitude, is_prototype, map_blob_uri
		FROM cameras
		WHERE dormant = false`
	args := []any{}
	if typeFilter != "" {
		query += ` AND type = $1`
		args = append(args, typeFilter)
	}
	query += ` ORDER BY id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Camera
	for rows.Next() {
		var c Camera
		var fixedHeading sql.NullFloat64
		if err := rows.Scan(&c.ID, &c.URL, &c.Type, &fixedHeading, &c.FieldOfView,
			&c.Latitude, &c.Longitude, &c.IsPrototype, &c.MapBlobURI); err != nil {
			return nil, err
		}
		if fixedHeading.Valid {
			h := fixedHeading.Float64
			c.FixedHeading = &h
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

// GetCameraMapAndLocation is the narrow read the Alert Composer needs for
// map rendering.
func (r *CameraRepo) GetCameraMapAndLocation(ctx context.Context, cameraID string) (mapBlobURI string, lat, lon float64, err error) {
	query := `SELECT map_blob_uri, latitude, longitude FROM cameras WHERE id = $1`
	err = r.db.QueryRowContext(ctx, query, cameraID).Scan(&mapBlobURI, &lat, &lon)
	if err == sql.ErrNoRows {
		return "", 0, 0, ErrNotFound
	}
	return mapBlobURI, lat, lon, err
}
