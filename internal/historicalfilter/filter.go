// Package historicalfilter suppresses segments whose raw score is not
// decisively above that segment's recent same-time-of-day maximum, which
// is how recurring haze and glare are told apart from an actual fire.
package historicalfilter

import (
	"context"

	"github.com/open-climate-tech/firecam/internal/classifier"
)

// minRawScore is the floor below which a segment is rejected before any
// historical lookup happens.
const minRawScore = 0.5

// ScoreRow is the minimal shape Filter needs from a stored historical
// score row.
type ScoreRow struct {
	Score float64
}

// WindowQuery looks up historical scores for the same bbox/camera/model/
// heading within the matching time-of-day window.
type WindowQuery interface {
	QueryWindow(ctx context.Context, cameraID string, heading float64, modelID string, seg classifier.Segment, tNow int64, secondsInDay int) ([]ScoreRow, error)
}

// Result is an accepted candidate, carrying the statistics the Alert
// Composer and Store need to persist alongside it.
type Result struct {
	Segment  classifier.Segment
	AdjScore float64
	HistAvg  float64
	HistMax  float64
	HistN    int
}

// Filter evaluates one segment. When Stateless is true (replay/test mode)
// the historical lookup is skipped entirely and any segment scoring above
// minRawScore is accepted.
type Filter struct {
	Query     WindowQuery
	Stateless bool
}

// Evaluate runs the historical filter algorithm for a single segment. It
// does not perform the shift-check re-invocation — that requires
// re-running the classifier and is orchestrated by the Detection
// Pipeline, which owns the classifier client.
func (f *Filter) Evaluate(ctx context.Context, cameraID string, heading float64, modelID string, seg classifier.Segment, tNow int64, secondsInDay int) (Result, bool, error) {
	if seg.Score < minRawScore {
		return Result{}, false, nil
	}

	if f.Stateless {
		return Result{Segment: seg, AdjScore: 1, HistAvg: 0, HistMax: 0, HistN: 0}, true, nil
	}

	rows, err := f.Query.QueryWindow(ctx, cameraID, heading, modelID, seg, tNow, secondsInDay)
	if err != nil {
		return Result{}, false, err
	}

	histMax := 0.0
	histSum := 0.0
	for _, r := range rows {
		histSum += r.Score
		if r.Score > histMax {
			histMax = r.Score
		}
	}

	threshold := histMax + 0.2
	if mid := (histMax + 1) / 2; mid > threshold {
		threshold = mid
	}

	if seg.Score <= threshold {
		return Result{}, false, nil
	}

	adjScore := (seg.Score - threshold) / (1 - threshold)
	histAvg := 0.0
	if len(rows) > 0 {
		histAvg = histSum / float64(len(rows))
	}

	return Result{
		Segment:  seg,
		AdjScore: adjScore,
		HistAvg:  histAvg,
		HistMax:  histMax,
		HistN:    len(rows),
	}, true, nil
}

// BestOf picks the accepted candidate with the highest raw score.
func BestOf(results []Result) (Result, bool) {
	if len(results) == 0 {
		return Result{}, false
	}
	best := results[0]
	for _, r := range results[1:] {
		if r.Segment.Score > best.Segment.Score {
			best = r
		}
	}
	return best, true
}
