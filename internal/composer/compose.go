package composer

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/open-climate-tech/firecam/internal/geometry"
	"github.com/open-climate-tech/firecam/internal/store"
	"github.com/open-climate-tech/firecam/internal/weather"
)

// failureWeatherScore is substituted when weather scoring fails outright,
// so a weather outage degrades to "always alert" rather than silently
// dropping a qualified candidate.
const failureWeatherScore = 1.0

// Artifacts holds the uploaded URIs produced by the earlier composition
// steps (video encode, still annotation, map render, blob upload).
type Artifacts struct {
	VideoURI     string
	AnnotatedURI string
	MapURI       string
}

// Candidate is the qualified probable being composed into a Detection (and
// possibly an Alert).
type Candidate struct {
	CameraID       string
	Heading        float64
	Timestamp      int64
	Polygon        geometry.Polygon
	SourcePolygons []geometry.Polygon
	ImageScore     float64
	IsPrototype    bool
	IsPTZ          bool
}

// ScoreWeather computes the weather plausibility score for a candidate
//. A provider or model failure
// degrades to failureWeatherScore rather than blocking composition.
func ScoreWeather(ctx context.Context, provider weather.Provider, model weather.Model, cameraID string, centroid, cameraLoc geometry.Point, timestamp int64, c Candidate) float64 {
	reading, err := provider.GetWeather(ctx, cameraID, timestamp, centroid.Lat, centroid.Lon, cameraLoc.Lat, cameraLoc.Lon)
	if err != nil {
		return failureWeatherScore
	}
	features := weather.Features(c.ImageScore, len(c.SourcePolygons), reading.AtCentroid)
	score, err := model.Predict(ctx, features)
	if err != nil {
		return failureWeatherScore
	}
	return score
}

// Persist writes the Detection row (and, when the candidate qualifies for
// escalation, the Alert row) inside a single transaction:
// a non-prototype, non-PTZ camera whose weather score crosses
// weatherThreshold gets both rows; everything else gets only the
// Detection.
func Persist(ctx context.Context, s *store.Store, c Candidate, weatherScore, weatherThreshold float64, art Artifacts) (detectionID int64, alertID int64, err error) {
	polyJSON, err := json.Marshal(c.Polygon)
	if err != nil {
		return 0, 0, fmt.Errorf("composer: marshal polygon: %w", err)
	}
	sourceJSON, err := json.Marshal(c.SourcePolygons)
	if err != nil {
		return 0, 0, fmt.Errorf("composer: marshal source polygons: %w", err)
	}

	err = s.WithTx(ctx, func(tx *store.Store) error {
		d := &store.Detection{
			CameraID:       c.CameraID,
			Heading:        c.Heading,
			Timestamp:      c.Timestamp,
			Polygon:        polyJSON,
			SourcePolygons: sourceJSON,
			WeatherScore:   weatherScore,
			AdjScore:       c.ImageScore,
			VideoURI:       art.VideoURI,
			AnnotatedURI:   art.AnnotatedURI,
			MapURI:         art.MapURI,
		}
		id, err := tx.Detections.Insert(ctx, d)
		if err != nil {
			return fmt.Errorf("insert detection: %w", err)
		}
		detectionID = id

		if c.IsPrototype || c.IsPTZ || weatherScore <= weatherThreshold {
			return nil
		}

		a := &store.Alert{
			DetectionID: detectionID,
			CameraID:    c.CameraID,
			Timestamp:   c.Timestamp,
		}
		aid, err := tx.Alerts.Insert(ctx, a)
		if err != nil {
			return fmt.Errorf("insert alert: %w", err)
		}
		alertID = aid
		return nil
	})
	if err != nil {
		return 0, 0, err
	}
	return detectionID, alertID, nil
}
