package classifier

import (
	"context"
	"fmt"
	"image"
)

// ClassifyImage tiles img, classifies each tile concurrently, and
// translates any box scoring at or above minScore back into the full
// image's coordinate space. Each tile that fails to classify contributes
// one entry to the returned error slice — a single tile failure does not
// abort the scan of the remaining tiles, matching the scheduler's
// per-camera fault isolation.
func ClassifyImage(ctx context.Context, client Client, img image.Image, minScore float64) ([]Segment, []error) {
	bounds := img.Bounds()
	tiles := TileGrid(bounds.Dx(), bounds.Dy())

	type tileResult struct {
		segs []Segment
		err  error
	}
	results := make(chan tileResult, len(tiles))

	for _, t := range tiles {
		t := t
		go func() {
			crop := cropTile(img, t)
			segs, err := client.Classify(ctx, crop)
			if err != nil {
				results <- tileResult{err: fmt.Errorf("classifier: tile (%d,%d): %w", t.MinX, t.MinY, err)}
				return
			}
			translated := make([]Segment, 0, len(segs))
			for _, s := range segs {
				if s.Score < minScore {
					continue
				}
				translated = append(translated, Segment{
					MinX:  clampMin(t.MinX+s.MinX, bounds.Min.X),
					MinY:  clampMin(t.MinY+s.MinY, bounds.Min.Y),
					MaxX:  clampMax(t.MinX+s.MaxX, bounds.Max.X),
					MaxY:  clampMax(t.MinY+s.MaxY, bounds.Max.Y),
					Score: s.Score,
				})
			}
			results <- tileResult{segs: translated}
		}()
	}

	var segments []Segment
	var errs []error
	for range tiles {
		r := <-results
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		segments = append(segments, r.segs...)
	}
	return segments, errs
}

func cropTile(img image.Image, t Tile) image.Image {
	rect := image.Rect(t.MinX, t.MinY, t.MinX+TileSize, t.MinY+TileSize)
	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if si, ok := img.(subImager); ok {
		return si.SubImage(rect)
	}
	dst := image.NewRGBA(image.Rect(0, 0, TileSize, TileSize))
	for y := 0; y < TileSize; y++ {
		for x := 0; x < TileSize; x++ {
			dst.Set(x, y, img.At(t.MinX+x, t.MinY+y))
		}
	}
	return dst
}

func clampMin(v, floor int) int {
	if v < floor {
		return floor
	}
	return v
}

func clampMax(v, ceil int) int {
	if v > ceil {
		return ceil
	}
	return v
}
