package weather

import (
	"context"
	"fmt"
)

// CacheEntry mirrors store.WeatherCacheEntry without importing the store
// package, keeping this package's dependency surface to its own domain.
type CacheEntry struct {
	CameraID    string
	Timestamp   int64
	AtCentroid  Observation
	AtCamera    Observation
	Sources     []string
}

// Cache is the subset of store.WeatherCacheRepo this package needs.
type Cache interface {
	Get(ctx context.Context, cameraID string, timestamp int64) (*CacheEntry, error)
	Put(ctx context.Context, e *CacheEntry) error
}

// CachedProvider fronts a Provider with a Store-backed cache, amortizing
// external weather fetches across detections on the same camera/timestamp
//.
type CachedProvider struct {
	inner Provider
	cache Cache
}

func NewCachedProvider(inner Provider, cache Cache) *CachedProvider {
	return &CachedProvider{inner: inner, cache: cache}
}

func (c *CachedProvider) GetWeather(ctx context.Context, cameraID string, timestamp int64, centroidLat, centroidLon, cameraLat, cameraLon float64) (Reading, error) {
	if cached, err := c.cache.Get(ctx, cameraID, timestamp); err == nil && cached != nil {
		return Reading{AtCentroid: cached.AtCentroid, AtCamera: cached.AtCamera, Sources: cached.Sources}, nil
	}

	reading, err := c.inner.GetWeather(ctx, cameraID, timestamp, centroidLat, centroidLon, cameraLat, cameraLon)
	if err != nil {
		return Reading{}, fmt.Errorf("weather: fetch: %w", err)
	}

	_ = c.cache.Put(ctx, &CacheEntry{
		CameraID:   cameraID,
		Timestamp:  timestamp,
		AtCentroid: reading.AtCentroid,
		AtCamera:   reading.AtCamera,
		Sources:    reading.Sources,
	})
	return reading, nil
}
