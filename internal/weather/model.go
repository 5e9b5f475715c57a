package weather

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Model scores a fixed 11-dimensional feature vector.
type Model interface {
	Predict(ctx context.Context, features [11]float64) (float64, error)
}

type httpModel struct {
	client *http.Client
	url    string
}

func NewHTTPModel(url string) Model {
	return &httpModel{client: &http.Client{Timeout: 10 * time.Second}, url: url}
}

func (m *httpModel) Predict(ctx context.Context, features [11]float64) (float64, error) {
	body, err := json.Marshal(map[string]any{"features": features})
	if err != nil {
		return 0, fmt.Errorf("weather: encode features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.url, bytes.NewReader(body))
	if err != nil {
		return 0, fmt.Errorf("weather: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("weather: request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("weather: unexpected status %d", resp.StatusCode)
	}

	var parsed struct {
		Score float64 `json:"score"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return 0, fmt.Errorf("weather: decode response: %w", err)
	}
	return parsed.Score, nil
}

// Features builds the fixed 11-dimensional vector the model expects from
// an image score, the source-polygon count, and a weather reading.
func Features(imgScore float64, numSourcePolys int, o Observation) [11]float64 {
	return [11]float64{
		2 * (imgScore - 0.5),
		float64(numSourcePolys - 1),
		(o.Temp - 70) / 20,
		(o.Dew - 50) / 20,
		(o.Humidity - 50) / 50,
		5 * o.Precip,
		(o.WindSpeed - 6) / 6,
		(o.WindDir - 180) / 180,
		(o.Pressure - 1013) / 10,
		(o.Visibility - 5) / 5,
		(o.CloudCover - 50) / 50,
	}
}
