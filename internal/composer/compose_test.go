package composer

import (
	"context"
	"errors"
	"testing"

	"github.com/open-climate-tech/firecam/internal/geometry"
	"github.com/open-climate-tech/firecam/internal/weather"
)

type fakeWeatherProvider struct {
	reading weather.Reading
	err     error
}

func (f *fakeWeatherProvider) GetWeather(ctx context.Context, cameraID string, timestamp int64, centroidLat, centroidLon, cameraLat, cameraLon float64) (weather.Reading, error) {
	return f.reading, f.err
}

type fakeModel struct {
	score float64
	err   error
}

func (f *fakeModel) Predict(ctx context.Context, features [11]float64) (float64, error) {
	return f.score, f.err
}

func TestScoreWeatherReturnsModelScore(t *testing.T) {
	provider := &fakeWeatherProvider{reading: weather.Reading{AtCentroid: weather.Observation{Temp: 30}}}
	model := &fakeModel{score: 0.8}

	c := Candidate{ImageScore: 0.9, SourcePolygons: []geometry.Polygon{{}}}
	got := ScoreWeather(context.Background(), provider, model, "cam1", geometry.Point{}, geometry.Point{}, 100, c)
	if got != 0.8 {
		t.Errorf("ScoreWeather = %v; want 0.8", got)
	}
}

func TestScoreWeatherDegradesOnProviderFailure(t *testing.T) {
	provider := &fakeWeatherProvider{err: errors.New("unavailable")}
	model := &fakeModel{score: 0.1}

	got := ScoreWeather(context.Background(), provider, model, "cam1", geometry.Point{}, geometry.Point{}, 100, Candidate{})
	if got != failureWeatherScore {
		t.Errorf("ScoreWeather = %v; want failureWeatherScore (%v)", got, failureWeatherScore)
	}
}

func TestScoreWeatherDegradesOnModelFailure(t *testing.T) {
	provider := &fakeWeatherProvider{reading: weather.Reading{}}
	model := &fakeModel{err: errors.New("model down")}

	got := ScoreWeather(context.Background(), provider, model, "cam1", geometry.Point{}, geometry.Point{}, 100, Candidate{})
	if got != failureWeatherScore {
		t.Errorf("ScoreWeather = %v; want failureWeatherScore (%v)", got, failureWeatherScore)
	}
}
