package pipeline

import (
	"context"
	"image"
	"testing"

	"github.com/open-climate-tech/firecam/internal/store"
)

type fakePriorArchive struct {
	rows []*store.ArchiveImage
}

func (f *fakePriorArchive) PriorImages(ctx context.Context, cameraID string, heading float64, before int64, limit int) ([]*store.ArchiveImage, error) {
	return f.rows, nil
}

func TestArchivePriorFetcherLoadsMostRecentImage(t *testing.T) {
	archive := &fakePriorArchive{rows: []*store.ArchiveImage{{ImagePath: "prior.jpg"}}}
	loaded := image.NewGray(image.Rect(0, 0, 2, 2))
	f := &ArchivePriorFetcher{
		Archive: archive,
		Load: func(path string) (image.Image, error) {
			if path != "prior.jpg" {
				t.Fatalf("Load called with %q; want %q", path, "prior.jpg")
			}
			return loaded, nil
		},
	}

	img, err := f.FetchPriorAligned(context.Background(), "cam1", 90, 1000)
	if err != nil {
		t.Fatalf("FetchPriorAligned returned error: %v", err)
	}
	if img != loaded {
		t.Fatalf("FetchPriorAligned returned a different image")
	}
}

func TestArchivePriorFetcherReturnsErrWhenNoPriorExists(t *testing.T) {
	f := &ArchivePriorFetcher{Archive: &fakePriorArchive{}, Load: func(string) (image.Image, error) { return nil, nil }}

	_, err := f.FetchPriorAligned(context.Background(), "cam1", 90, 1000)
	if err != ErrNoPriorImage {
		t.Fatalf("FetchPriorAligned error = %v; want ErrNoPriorImage", err)
	}
}
