package composer

import (
	"context"
	"errors"
	"image"
	"testing"

	"github.com/open-climate-tech/firecam/internal/store"
)

type fakeArchiveRows struct {
	priors []*store.ArchiveImage
	next   *store.ArchiveImage
}

func (f *fakeArchiveRows) PriorImages(ctx context.Context, cameraID string, heading float64, before int64, limit int) ([]*store.ArchiveImage, error) {
	return f.priors, nil
}

func (f *fakeArchiveRows) NextImageAfter(ctx context.Context, cameraID string, heading float64, after int64) (*store.ArchiveImage, error) {
	if f.next == nil {
		return nil, errors.New("no rows")
	}
	return f.next, nil
}

func TestAssembleSequenceNonPTZOrdering(t *testing.T) {
	archive := &fakeArchiveRows{
		priors: []*store.ArchiveImage{
			{ImagePath: "t90.jpg", Timestamp: 90},
			{ImagePath: "t80.jpg", Timestamp: 80},
		},
		next: &store.ArchiveImage{ImagePath: "t110.jpg", Timestamp: 110},
	}

	frames, err := AssembleSequence(context.Background(), archive, "cam1", 0, "t100.jpg", 100, false, nil)
	if err != nil {
		t.Fatalf("AssembleSequence returned error: %v", err)
	}
	wantOrder := []string{"t80.jpg", "t90.jpg", "t100.jpg", "t110.jpg"}
	if len(frames) != len(wantOrder) {
		t.Fatalf("got %d frames, want %d", len(frames), len(wantOrder))
	}
	for i, w := range wantOrder {
		if frames[i].ImagePath != w {
			t.Errorf("frame[%d] = %s; want %s", i, frames[i].ImagePath, w)
		}
	}
	if frames[2].Box != BoxRed {
		t.Errorf("current frame box = %v; want BoxRed", frames[2].Box)
	}
}

func TestAssembleSequencePTZDropsUnalignedFrame(t *testing.T) {
	archive := &fakeArchiveRows{
		priors: []*store.ArchiveImage{
			{ImagePath: "noisy.jpg", Timestamp: 90},
		},
	}
	current := texture(80, 60)
	noisy := image.NewGray(image.Rect(0, 0, 80, 60))

	loadImage := func(path string) (image.Image, error) {
		switch path {
		case "t100.jpg":
			return current, nil
		case "noisy.jpg":
			return noisy, nil
		}
		return nil, errors.New("unknown path")
	}

	frames, err := AssembleSequence(context.Background(), archive, "cam1", 0, "t100.jpg", 100, true, loadImage)
	if err != nil {
		t.Fatalf("AssembleSequence returned error: %v", err)
	}
	for _, f := range frames {
		if f.ImagePath == "noisy.jpg" {
			t.Errorf("expected unaligned prior frame to be dropped, got %+v", f)
		}
	}
}
