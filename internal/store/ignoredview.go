package store

import "context"

type IgnoredViewRepo struct {
	db DBTX
}

// GetAll loads every administratively-marked false-trigger sector; the
// geometry package tests the candidate's angular interval against each
// in-process.
func (r *IgnoredViewRepo) GetAll(ctx context.Context) ([]*IgnoredView, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, camera_id, heading_center, angular_width, count_ignored, update_timestamp
		FROM ignored_views`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*IgnoredView
	for rows.Next() {
		var v IgnoredView
		if err := rows.Scan(&v.ID, &v.CameraID, &v.HeadingCenter, &v.AngularWidth, &v.CountIgnored, &v.UpdateTimestamp); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, rows.Err()
}

// IncrementIgnoreCount bumps countIgnored by exactly one for the matching
// row.
func (r *IgnoredViewRepo) IncrementIgnoreCount(ctx context.Context, id int64, now int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE ignored_views SET count_ignored = count_ignored + 1, update_timestamp = $2
		WHERE id = $1`, id, now)
	return err
}
