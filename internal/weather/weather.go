// Package weather implements the external weather and weather-model
// clients. Both are treated as black boxes reached over HTTP; this
// package only shapes the request/response and caches results the way
// the Store specifies.
package weather

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Observation is one weather reading, either at a detection's centroid or
// at the camera itself.
type Observation struct {
	Temp        float64 `json:"temp"`
	Dew         float64 `json:"dew"`
	Humidity    float64 `json:"humidity"`
	Precip      float64 `json:"precip"`
	WindSpeed   float64 `json:"windspeed"`
	WindDir     float64 `json:"winddir"`
	Pressure    float64 `json:"pressure"`
	Visibility  float64 `json:"visibility"`
	CloudCover  float64 `json:"cloudcover"`
	Source      string  `json:"source"`
}

// Reading pairs the two observations the Weather provider returns for one
// camera/timestamp.
type Reading struct {
	AtCentroid Observation
	AtCamera   Observation
	Sources    []string
}

// Provider fetches current weather for a camera's detection centroid and
// the camera's own location.
type Provider interface {
	GetWeather(ctx context.Context, cameraID string, timestamp int64, centroidLat, centroidLon, cameraLat, cameraLon float64) (Reading, error)
}

type httpProvider struct {
	client *http.Client
	url    string
}

func NewHTTPProvider(url string) Provider {
	return &httpProvider{client: &http.Client{Timeout: 10 * time.Second}, url: url}
}

func (p *httpProvider) GetWeather(ctx context.Context, cameraID string, timestamp int64, centroidLat, centroidLon, cameraLat, cameraLon float64) (Reading, error) {
	reqBody, err := json.Marshal(map[string]any{
		"cameraId":    cameraID,
		"timestamp":   timestamp,
		"centroidLat": centroidLat,
		"centroidLon": centroidLon,
		"cameraLat":   cameraLat,
		"cameraLon":   cameraLon,
	})
	if err != nil {
		return Reading{}, fmt.Errorf("weather: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(reqBody))
	if err != nil {
		return Reading{}, fmt.Errorf("weather: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Reading{}, fmt.Errorf("weather: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Reading{}, fmt.Errorf("weather: unexpected status %d", resp.StatusCode)
	}

	var reading Reading
	if err := json.NewDecoder(resp.Body).Decode(&reading); err != nil {
		return Reading{}, fmt.Errorf("weather: decode response: %w", err)
	}
	return reading, nil
}
