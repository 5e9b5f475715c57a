// Package pipeline is the per-image detection state machine that takes a
// single fetched frame from raw bytes to either discarded, probable, or
// confirmed alert, wiring the image source, tile classifier, historical
// filter, geometry, weather, and alert composer together.
package pipeline

import (
	"context"
	"fmt"
	"image"

	"github.com/open-climate-tech/firecam/internal/classifier"
	"github.com/open-climate-tech/firecam/internal/historicalfilter"
	"github.com/open-climate-tech/firecam/internal/store"
)

// ScoreRecorder is the subset of the Store the classifier-backed policy
// needs to persist every classified tile: in stateless mode no scores are
// recorded, otherwise every tile is inserted into the score history.
type ScoreRecorder interface {
	InsertBatch(ctx context.Context, rows []*store.Score) error
}

// ImageSpec bundles everything a DetectionPolicy needs to evaluate one
// frame without reaching back into the pipeline that owns it.
type ImageSpec struct {
	CameraID     string
	Heading      float64
	ModelID      string
	Timestamp    int64
	SecondsInDay int
	Image        image.Image
	ROI          image.Rectangle
}

// Detection is one candidate a DetectionPolicy surfaces from a frame,
// carrying both the raw classifier segment and the historical-filter
// verdict on it.
type Detection struct {
	Segment classifier.Segment
	Filter  historicalfilter.Result
}

// PriorImageFetcher retrieves the spatially-aligned prior image for a PTZ
// camera's diff-based detection policy — an explicit dependency rather
// than a closure threaded through optional arguments.
type PriorImageFetcher interface {
	FetchPriorAligned(ctx context.Context, cameraID string, heading float64, timestamp int64) (image.Image, error)
}

// DetectionPolicy holds one detection strategy as a function value rather
// than a type hierarchy: a function-valued Detect field carries the actual
// strategy, and Confirm optionally nests a second policy DetectMulti runs
// against a tightened ROI after the main policy finds something.
type DetectionPolicy struct {
	Name    string
	Detect  func(ctx context.Context, spec ImageSpec) ([]Detection, error)
	Confirm *DetectionPolicy
}

// DetectAlways always returns one full-ROI detection; used for prototype
// cameras exercising the pipeline without a real classifier.
func DetectAlways() *DetectionPolicy {
	return &DetectionPolicy{
		Name: "always",
		Detect: func(ctx context.Context, spec ImageSpec) ([]Detection, error) {
			seg := classifier.Segment{MinX: spec.ROI.Min.X, MinY: spec.ROI.Min.Y, MaxX: spec.ROI.Max.X, MaxY: spec.ROI.Max.Y, Score: 1.0}
			return []Detection{{Segment: seg, Filter: historicalfilter.Result{Segment: seg, AdjScore: 1.0}}}, nil
		},
	}
}

// DetectNever never detects; used to disable a camera without removing it
// from the fleet configuration.
func DetectNever() *DetectionPolicy {
	return &DetectionPolicy{
		Name:   "never",
		Detect: func(ctx context.Context, spec ImageSpec) ([]Detection, error) { return nil, nil },
	}
}

// NewInceptionV3AndHistoricalThreshold is the fleet's default policy: tile
// classification followed by the historical-scores filter and a shift
// check that re-scores a stretched region around each accepted candidate,
// tightening its bounds to the intersection of the re-scored segments or
// discarding it as an edge artifact. Every classified tile is persisted
// via scores (skipped entirely when filter.Stateless is set), regardless
// of whether it is later accepted.
func NewInceptionV3AndHistoricalThreshold(client classifier.Client, filter *historicalfilter.Filter, scores ScoreRecorder, minScore float64) *DetectionPolicy {
	return &DetectionPolicy{
		Name: "inception_v3_historical_threshold",
		Detect: func(ctx context.Context, spec ImageSpec) ([]Detection, error) {
			segments, tileErrs := classifier.ClassifyImage(ctx, client, spec.Image, 0)
			if len(tileErrs) > 0 && len(segments) == 0 {
				return nil, fmt.Errorf("pipeline: all tiles failed: %v", tileErrs[0])
			}

			if !filter.Stateless && len(segments) > 0 {
				rows := make([]*store.Score, 0, len(segments))
				for _, seg := range segments {
					rows = append(rows, &store.Score{
						CameraID: spec.CameraID, Heading: spec.Heading, Timestamp: spec.Timestamp,
						MinX: seg.MinX, MinY: seg.MinY, MaxX: seg.MaxX, MaxY: seg.MaxY,
						Score: seg.Score, SecondsInDay: spec.SecondsInDay, ModelID: spec.ModelID,
					})
				}
				if err := scores.InsertBatch(ctx, rows); err != nil {
					return nil, fmt.Errorf("pipeline: insert scores: %w", err)
				}
			}

			var out []Detection
			for _, seg := range segments {
				if seg.Score < minScore || !segInROI(seg, spec.ROI) {
					continue
				}
				result, ok, err := filter.Evaluate(ctx, spec.CameraID, spec.Heading, spec.ModelID, seg, spec.Timestamp, spec.SecondsInDay)
				if err != nil || !ok {
					continue
				}
				tightened, ok, err := historicalfilter.ShiftCheck(ctx, client, spec.Image, seg)
				if err != nil {
					return nil, fmt.Errorf("pipeline: shift check: %w", err)
				}
				if !ok {
					continue
				}
				result.Segment = tightened
				out = append(out, Detection{Segment: tightened, Filter: result})
			}
			return out, nil
		},
	}
}

// diffThreshold is the minimum mean-absolute-luminance difference between
// current and prior-aligned image that counts as motion for DetectDiff.
const diffThreshold = 25.0

// NewDetectDiff builds the PTZ diff-mode policy: compares the current
// frame against its spatially-aligned prior image (fetched via fetcher)
// instead of running the classifier, flagging the full ROI when the two
// differ by more than diffThreshold.
func NewDetectDiff(fetcher PriorImageFetcher) *DetectionPolicy {
	return &DetectionPolicy{
		Name: "ptz_diff",
		Detect: func(ctx context.Context, spec ImageSpec) ([]Detection, error) {
			prior, err := fetcher.FetchPriorAligned(ctx, spec.CameraID, spec.Heading, spec.Timestamp)
			if err != nil {
				return nil, nil
			}
			score := diffScore(spec.Image, prior, spec.ROI)
			if score < diffThreshold {
				return nil, nil
			}
			seg := classifier.Segment{MinX: spec.ROI.Min.X, MinY: spec.ROI.Min.Y, MaxX: spec.ROI.Max.X, MaxY: spec.ROI.Max.Y, Score: score / 255}
			return []Detection{{Segment: seg, Filter: historicalfilter.Result{Segment: seg, AdjScore: score / 255}}}, nil
		},
	}
}

// DetectMulti composes a main policy with a confirmation policy run
// against a tightened ROI around each of the main policy's detections.
func DetectMulti(main, confirm *DetectionPolicy) *DetectionPolicy {
	return &DetectionPolicy{
		Name:    "multi_" + main.Name + "_" + confirm.Name,
		Confirm: confirm,
		Detect: func(ctx context.Context, spec ImageSpec) ([]Detection, error) {
			primary, err := main.Detect(ctx, spec)
			if err != nil {
				return nil, err
			}
			var confirmed []Detection
			for _, d := range primary {
				tightSpec := spec
				tightSpec.ROI = image.Rect(d.Segment.MinX, d.Segment.MinY, d.Segment.MaxX, d.Segment.MaxY)
				confirmations, err := confirm.Detect(ctx, tightSpec)
				if err != nil || len(confirmations) == 0 {
					continue
				}
				confirmed = append(confirmed, d)
			}
			return confirmed, nil
		},
	}
}

func segInROI(seg classifier.Segment, roi image.Rectangle) bool {
	return seg.MinX < roi.Max.X && seg.MaxX > roi.Min.X && seg.MinY < roi.Max.Y && seg.MaxY > roi.Min.Y
}

func diffScore(current, prior image.Image, roi image.Rectangle) float64 {
	var sum float64
	var n int
	for y := roi.Min.Y; y < roi.Max.Y; y++ {
		for x := roi.Min.X; x < roi.Max.X; x++ {
			cr, cg, cb, _ := current.At(x, y).RGBA()
			pr, pg, pb, _ := prior.At(x, y).RGBA()
			cLum := (cr + cg + cb) / 3 >> 8
			pLum := (pr + pg + pb) / 3 >> 8
			diff := int(cLum) - int(pLum)
			if diff < 0 {
				diff = -diff
			}
			sum += float64(diff)
			n++
		}
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}
