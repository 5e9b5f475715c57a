package weather

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/open-climate-tech/firecam/internal/store"
)

// StoreCache adapts store.WeatherCacheRepo to the Cache interface,
// marshaling Observations to the JSONB columns the Store owns.
type StoreCache struct {
	Repo *store.WeatherCacheRepo
}

func (s *StoreCache) Get(ctx context.Context, cameraID string, timestamp int64) (*CacheEntry, error) {
	row, err := s.Repo.Get(ctx, cameraID, timestamp)
	if err == store.ErrNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var centroid, camera Observation
	if err := json.Unmarshal(row.WeatherAtCentroid, &centroid); err != nil {
		return nil, fmt.Errorf("weather: decode cached centroid reading: %w", err)
	}
	if err := json.Unmarshal(row.WeatherAtCamera, &camera); err != nil {
		return nil, fmt.Errorf("weather: decode cached camera reading: %w", err)
	}

	return &CacheEntry{
		CameraID:   row.CameraID,
		Timestamp:  row.Timestamp,
		AtCentroid: centroid,
		AtCamera:   camera,
		Sources:    row.Sources,
	}, nil
}

func (s *StoreCache) Put(ctx context.Context, e *CacheEntry) error {
	centroid, err := json.Marshal(e.AtCentroid)
	if err != nil {
		return fmt.Errorf("weather: encode centroid reading: %w", err)
	}
	camera, err := json.Marshal(e.AtCamera)
	if err != nil {
		return fmt.Errorf("weather: encode camera reading: %w", err)
	}

	return s.Repo.Put(ctx, &store.WeatherCacheEntry{
		CameraID:          e.CameraID,
		Timestamp:         e.Timestamp,
		WeatherAtCentroid: centroid,
		WeatherAtCamera:   camera,
		Sources:           e.Sources,
	})
}
