package store

import (
	"context"
	"database/sql"
)

type ProbableRepo struct {
	db DBTX
}

// RecentExists enforces at most one Probable per (camera, heading) within
// a 1-hour window.
func (r *ProbableRepo) RecentExists(ctx context.Context, cameraID string, heading float64, tNow int64) (bool, error) {
	const window = 3600
	var exists bool
	err := r.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM probables
			WHERE camera_id = $1 AND heading = $2 AND timestamp > $3
		)`, cameraID, heading, tNow-window).Scan(&exists)
	return exists, err
}

// Insert writes the Probable row; Store rows are an audit trail and are
// never rolled back even if later pipeline steps fail.
func (r *ProbableRepo) Insert(ctx context.Context, p *Probable) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO probables (camera_id, heading, timestamp, min_x, min_y, max_x, max_y, score, image_path, model_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id`,
		p.CameraID, p.Heading, p.Timestamp, p.MinX, p.MinY, p.MaxX, p.MaxY, p.Score, p.ImagePath, p.ModelID,
	).Scan(&id)
	return id, err
}

func (r *ProbableRepo) GetByCameraAndTimestamp(ctx context.Context, cameraID string, timestamp int64) (*Probable, error) {
	var p Probable
	err := r.db.QueryRowContext(ctx, `
		SELECT id, camera_id, heading, timestamp, min_x, min_y, max_x, max_y, score, image_path, model_id
		FROM probables WHERE camera_id = $1 AND timestamp = $2`, cameraID, timestamp,
	).Scan(&p.ID, &p.CameraID, &p.Heading, &p.Timestamp, &p.MinX, &p.MinY, &p.MaxX, &p.MaxY, &p.Score, &p.ImagePath, &p.ModelID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return &p, err
}
