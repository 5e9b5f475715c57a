package weather

import (
	"context"
	"testing"
)

type fakeProvider struct {
	reading Reading
	calls   int
}

func (f *fakeProvider) GetWeather(ctx context.Context, cameraID string, timestamp int64, centroidLat, centroidLon, cameraLat, cameraLon float64) (Reading, error) {
	f.calls++
	return f.reading, nil
}

type fakeCache struct {
	entry *CacheEntry
	put   int
}

func (f *fakeCache) Get(ctx context.Context, cameraID string, timestamp int64) (*CacheEntry, error) {
	return f.entry, nil
}

func (f *fakeCache) Put(ctx context.Context, e *CacheEntry) error {
	f.put++
	f.entry = e
	return nil
}

func TestCachedProviderHitsCache(t *testing.T) {
	cache := &fakeCache{entry: &CacheEntry{AtCentroid: Observation{Temp: 80}}}
	provider := &fakeProvider{}
	cp := NewCachedProvider(provider, cache)

	reading, err := cp.GetWeather(context.Background(), "cam1", 1000, 1, 2, 3, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.calls != 0 {
		t.Errorf("provider.calls = %d; want 0 (cache hit)", provider.calls)
	}
	if reading.AtCentroid.Temp != 80 {
		t.Errorf("AtCentroid.Temp = %v; want 80", reading.AtCentroid.Temp)
	}
}

func TestCachedProviderMissFetchesAndStores(t *testing.T) {
	cache := &fakeCache{}
	provider := &fakeProvider{reading: Reading{AtCentroid: Observation{Temp: 70}}}
	cp := NewCachedProvider(provider, cache)

	_, err := cp.GetWeather(context.Background(), "cam1", 1000, 1, 2, 3, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("provider.calls = %d; want 1", provider.calls)
	}
	if cache.put != 1 {
		t.Errorf("cache.put = %d; want 1", cache.put)
	}
}

func TestFeaturesVector(t *testing.T) {
	f := Features(1.0, 2, Observation{Temp: 90, Dew: 70, Humidity: 100, Precip: 0.1, WindSpeed: 12, WindDir: 360, Pressure: 1023, Visibility: 10, CloudCover: 100})
	if f[0] != 1.0 {
		t.Errorf("f[0] = %v; want 1.0", f[0])
	}
	if f[1] != 1.0 {
		t.Errorf("f[1] = %v; want 1.0", f[1])
	}
}
