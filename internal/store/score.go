package store

import "context"

type ScoreRepo struct {
	db DBTX
}

// QueryWindow implements the historical-filter lookup: identical bbox,
// camera, model, heading, timestamp within the last 12 hours to 7.5 days,
// and secondsInDay within ±1 hour of now.
func (r *ScoreRepo) QueryWindow(ctx context.Context, cameraID string, heading float64, modelID string,
	minX, minY, maxX, maxY int, tNow int64, secondsInDay int) ([]*Score, error) {

	const (
		twelveHours    = 12 * 3600
		sevenPointFive = int64(7.5 * 24 * 3600)
		oneHour        = 3600
	)

	lo := secondsInDay - oneHour
	hi := secondsInDay + oneHour

	query := `
		SELECT camera_id, heading, timestamp, min_x, min_y, max_x, max_y, score, seconds_in_day, model_id
		FROM scores
		WHERE camera_id = $1 AND heading = $2 AND model_id = $3
		  AND min_x = $4 AND min_y = $5 AND max_x = $6 AND max_y = $7
		  AND timestamp BETWEEN $8 AND $9
		  AND (
		        (seconds_in_day BETWEEN $10 AND $11)
		     OR (seconds_in_day BETWEEN $10 + 86400 AND $11 + 86400)
		     OR (seconds_in_day BETWEEN $10 - 86400 AND $11 - 86400)
		      )`
	rows, err := r.db.QueryContext(ctx, query, cameraID, heading, modelID,
		minX, minY, maxX, maxY,
		tNow-sevenPointFive, tNow-twelveHours,
		lo, hi)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Score
	for rows.Next() {
		var s Score
		if err := rows.Scan(&s.CameraID, &s.Heading, &s.Timestamp, &s.MinX, &s.MinY, &s.MaxX, &s.MaxY,
			&s.Score, &s.SecondsInDay, &s.ModelID); err != nil {
			return nil, err
		}
		out = append(out, &s)
	}
	return out, rows.Err()
}

// InsertBatch writes every classified tile for an image, one INSERT per
// row.
func (r *ScoreRepo) InsertBatch(ctx context.Context, rowsIn []*Score) error {
	for _, s := range rowsIn {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO scores (camera_id, heading, timestamp, min_x, min_y, max_x, max_y, score, seconds_in_day, model_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
			s.CameraID, s.Heading, s.Timestamp, s.MinX, s.MinY, s.MaxX, s.MaxY, s.Score, s.SecondsInDay, s.ModelID)
		if err != nil {
			return err
		}
	}
	return nil
}

// PurgeOlderThan removes scores beyond the 3-week retention window,
// invoked by the Fleet Controller's daily post-work.
func (r *ScoreRepo) PurgeOlderThan(ctx context.Context, cutoff int64) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM scores WHERE timestamp < $1`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
