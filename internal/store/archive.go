package store

import "context"

type ArchiveRepo struct {
	db DBTX
}

// Insert records a fetched image. heading=store.SentinelHeading marks a
// placeholder row for a fetch that produced no usable image: it keeps the
// camera from being retried for ~1 cycle without ever being treated as a
// real image by downstream consumers.
func (r *ArchiveRepo) Insert(ctx context.Context, img *ArchiveImage) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO archive_images (camera_id, heading, timestamp, image_path, field_of_view, processed)
		VALUES ($1, $2, $3, $4, $5, $6)`,
		img.CameraID, img.Heading, img.Timestamp, img.ImagePath, img.FieldOfView, img.Processed)
	return err
}

// UnprocessedSince returns every unprocessed image for cameraID at or after
// since, across all headings, in ascending timestamp order, so the pipeline
// preserves per-(camera,heading) monotonic ordering.
func (r *ArchiveRepo) UnprocessedSince(ctx context.Context, cameraID string, since int64) ([]*ArchiveImage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT camera_id, heading, timestamp, image_path, field_of_view, processed
		FROM archive_images
		WHERE camera_id = $1 AND timestamp >= $2 AND processed = false AND heading != $3
		ORDER BY timestamp ASC`, cameraID, since, SentinelHeading)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ArchiveImage
	for rows.Next() {
		var img ArchiveImage
		if err := rows.Scan(&img.CameraID, &img.Heading, &img.Timestamp, &img.ImagePath, &img.FieldOfView, &img.Processed); err != nil {
			return nil, err
		}
		out = append(out, &img)
	}
	return out, rows.Err()
}

// MarkProcessed flips processed exactly once; once set it must never be
// cleared.
func (r *ArchiveRepo) MarkProcessed(ctx context.Context, cameraID string, heading float64, timestamp int64) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE archive_images SET processed = true
		WHERE camera_id = $1 AND heading = $2 AND timestamp = $3 AND processed = false`,
		cameraID, heading, timestamp)
	return err
}

// PriorImages fetches up to limit images strictly before timestamp for
// (camera, heading), most recent first — the Alert Composer's step 2
// and the PTZ diff policy's prior-aligned-image dependency.
func (r *ArchiveRepo) PriorImages(ctx context.Context, cameraID string, heading float64, before int64, limit int) ([]*ArchiveImage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT camera_id, heading, timestamp, image_path, field_of_view, processed
		FROM archive_images
		WHERE camera_id = $1 AND heading = $2 AND timestamp < $3
		ORDER BY timestamp DESC
		LIMIT $4`, cameraID, heading, before, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ArchiveImage
	for rows.Next() {
		var img ArchiveImage
		if err := rows.Scan(&img.CameraID, &img.Heading, &img.Timestamp, &img.ImagePath, &img.FieldOfView, &img.Processed); err != nil {
			return nil, err
		}
		out = append(out, &img)
	}
	return out, rows.Err()
}

// ImagesInRange returns every archived image for cameraID with timestamp
// in [start, end], ascending, for the replay harness's bounded-window scan.
func (r *ArchiveRepo) ImagesInRange(ctx context.Context, cameraID string, start, end int64) ([]*ArchiveImage, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT camera_id, heading, timestamp, image_path, field_of_view, processed
		FROM archive_images
		WHERE camera_id = $1 AND timestamp >= $2 AND timestamp <= $3 AND heading != $4
		ORDER BY timestamp ASC`, cameraID, start, end, SentinelHeading)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*ArchiveImage
	for rows.Next() {
		var img ArchiveImage
		if err := rows.Scan(&img.CameraID, &img.Heading, &img.Timestamp, &img.ImagePath, &img.FieldOfView, &img.Processed); err != nil {
			return nil, err
		}
		out = append(out, &img)
	}
	return out, rows.Err()
}

// NextImageAfter returns the single image arriving strictly after
// timestamp, if any.
func (r *ArchiveRepo) NextImageAfter(ctx context.Context, cameraID string, heading float64, after int64) (*ArchiveImage, error) {
	var img ArchiveImage
	err := r.db.QueryRowContext(ctx, `
		SELECT camera_id, heading, timestamp, image_path, field_of_view, processed
		FROM archive_images
		WHERE camera_id = $1 AND heading = $2 AND timestamp > $3
		ORDER BY timestamp ASC LIMIT 1`, cameraID, heading, after,
	).Scan(&img.CameraID, &img.Heading, &img.Timestamp, &img.ImagePath, &img.FieldOfView, &img.Processed)
	if err != nil {
		return nil, err
	}
	return &img, nil
}

// DeleteOlderThanNotReferenced removes archive rows (and returns their
// paths for disk cleanup) older than cutoff, gated by a not-referenced
// predicate against probables (matched on image_path) — the gap the original
// source left unimplemented, which this spec resolves in favor of
// safety: a probable's source image must survive its own
// composition even past the 1-hour archive window.
func (r *ArchiveRepo) DeleteOlderThanNotReferenced(ctx context.Context, cutoff int64) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT ai.image_path FROM archive_images ai
		WHERE ai.timestamp < $1
		  AND NOT EXISTS (
		        SELECT 1 FROM probables p
		        WHERE p.image_path = ai.image_path
		  )`, cutoff)
	if err != nil {
		return nil, err
	}
	var paths []string
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			rows.Close()
			return nil, err
		}
		paths = append(paths, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	_, err = r.db.ExecContext(ctx, `
		DELETE FROM archive_images ai
		WHERE ai.timestamp < $1
		  AND NOT EXISTS (
		        SELECT 1 FROM probables p
		        WHERE p.image_path = ai.image_path
		  )`, cutoff)
	return paths, err
}
