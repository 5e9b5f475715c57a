package composer

import (
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"os"

	"github.com/open-climate-tech/firecam/internal/store"
)

// maxPriorFrames is the "up to the four most recent archive images"
// window the sequence is assembled from.
const maxPriorFrames = 4

// ArchiveRows is the subset of store.ArchiveRepo the sequence assembly
// step needs.
type ArchiveRows interface {
	PriorImages(ctx context.Context, cameraID string, heading float64, before int64, limit int) ([]*store.ArchiveImage, error)
	NextImageAfter(ctx context.Context, cameraID string, heading float64, after int64) (*store.ArchiveImage, error)
}

// SequenceFrame is one member of the assembled frame sequence, already
// aligned to the current (triggering) frame when the camera is PTZ.
type SequenceFrame struct {
	ImagePath string
	Timestamp int64
	Box       BoxColor
	DX, DY    int // translation applied to align this frame to current, if PTZ
}

// AssembleSequence gathers up to four prior images, the current image, and
// up to one following image for (cameraID, heading), in ascending
// timestamp order. When isPTZ is true, each prior/next frame
// is aligned to current via Align; a frame whose alignment does not
// converge is dropped from the sequence rather than failing the whole
// composition, since the video is still useful without it.
func AssembleSequence(ctx context.Context, archive ArchiveRows, cameraID string, heading float64, currentPath string, currentTimestamp int64, isPTZ bool, loadImage func(path string) (image.Image, error)) ([]SequenceFrame, error) {
	priors, err := archive.PriorImages(ctx, cameraID, heading, currentTimestamp, maxPriorFrames)
	if err != nil {
		return nil, fmt.Errorf("composer: fetch prior images: %w", err)
	}

	var current image.Image
	if isPTZ {
		current, err = loadImage(currentPath)
		if err != nil {
			return nil, fmt.Errorf("composer: load current frame: %w", err)
		}
	}

	out := make([]SequenceFrame, 0, maxPriorFrames+2)

	// priors arrive most-recent-first; emit oldest-first.
	for i := len(priors) - 1; i >= 0; i-- {
		p := priors[i]
		sf := SequenceFrame{ImagePath: p.ImagePath, Timestamp: p.Timestamp, Box: BoxYellow}
		if isPTZ {
			priorImg, err := loadImage(p.ImagePath)
			if err != nil {
				continue
			}
			dx, dy, err := Align(current, priorImg)
			if err != nil {
				continue
			}
			sf.DX, sf.DY = dx, dy
		}
		out = append(out, sf)
	}

	out = append(out, SequenceFrame{ImagePath: currentPath, Timestamp: currentTimestamp, Box: BoxRed})

	next, err := archive.NextImageAfter(ctx, cameraID, heading, currentTimestamp)
	if err == nil && next != nil {
		sf := SequenceFrame{ImagePath: next.ImagePath, Timestamp: next.Timestamp, Box: BoxOrange}
		if isPTZ {
			nextImg, err := loadImage(next.ImagePath)
			if err == nil {
				if dx, dy, err := Align(current, nextImg); err == nil {
					sf.DX, sf.DY = dx, dy
					out = append(out, sf)
				}
			}
		} else {
			out = append(out, sf)
		}
	}

	return out, nil
}

// LoadImageFile opens and decodes a JPEG archive image from disk.
func LoadImageFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, _, err := image.Decode(f)
	return img, err
}
