package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/open-climate-tech/firecam/internal/store"
)

// ErrNoPriorImage is returned when a PTZ camera has no archived image yet
// at the requested heading.
var ErrNoPriorImage = errors.New("pipeline: no prior image at heading")

// PriorArchive is the subset of store.ArchiveRepo the diff policy's prior
// fetcher needs.
type PriorArchive interface {
	PriorImages(ctx context.Context, cameraID string, heading float64, before int64, limit int) ([]*store.ArchiveImage, error)
}

// ArchivePriorFetcher implements PriorImageFetcher against the Store. A
// PTZ camera revisits the same small set of preset headings, so the most
// recent archived image at a given heading is already aligned to the
// current frame without the translation search composer.Align performs
// for the annotated-video sequence.
type ArchivePriorFetcher struct {
	Archive PriorArchive
	Load    func(path string) (image.Image, error)
}

func (f *ArchivePriorFetcher) FetchPriorAligned(ctx context.Context, cameraID string, heading float64, timestamp int64) (image.Image, error) {
	priors, err := f.Archive.PriorImages(ctx, cameraID, heading, timestamp, 1)
	if err != nil {
		return nil, fmt.Errorf("pipeline: fetch prior image: %w", err)
	}
	if len(priors) == 0 {
		return nil, ErrNoPriorImage
	}
	img, err := f.Load(priors[0].ImagePath)
	if err != nil {
		return nil, fmt.Errorf("pipeline: load prior image: %w", err)
	}
	return img, nil
}
