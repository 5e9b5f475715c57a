package classifier

import (
	"context"
	"image"
	"testing"
)

func TestClassifyImageFiltersByScore(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 299, 299))
	fake := &FakeClient{Segments: []Segment{
		{MinX: 10, MinY: 10, MaxX: 20, MaxY: 20, Score: 0.9},
		{MinX: 30, MinY: 30, MaxX: 40, MaxY: 40, Score: 0.1},
	}}

	segs, errs := ClassifyImage(context.Background(), fake, img, 0.5)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors: %v", errs)
	}
	if len(segs) != 1 {
		t.Fatalf("len(segs) = %d; want 1", len(segs))
	}
	if segs[0].Score != 0.9 {
		t.Errorf("segs[0].Score = %v; want 0.9", segs[0].Score)
	}
}

func TestClassifyImageCollectsTileErrors(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 700, 700))
	fake := &FakeClient{Err: context.DeadlineExceeded}

	segs, errs := ClassifyImage(context.Background(), fake, img, 0.5)
	if len(segs) != 0 {
		t.Errorf("expected no segments on failure, got %v", segs)
	}
	if len(errs) != len(TileGrid(700, 700)) {
		t.Errorf("len(errs) = %d; want one per tile (%d)", len(errs), len(TileGrid(700, 700)))
	}
}
