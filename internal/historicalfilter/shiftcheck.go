package historicalfilter

import (
	"context"
	"image"

	"github.com/open-climate-tech/firecam/internal/classifier"
)

// stretchFraction widens the re-scored region by one third on each side
//.
const stretchFraction = 1.0 / 3.0

// ShiftCheck re-invokes the classifier on a region stretched around the
// accepted candidate. If the top re-scored segment also exceeds
// minRawScore, the candidate's bounds are tightened to the intersection of
// every re-scored segment above minRawScore; otherwise the candidate is
// discarded as an edge artifact.
func ShiftCheck(ctx context.Context, client classifier.Client, img image.Image, candidate classifier.Segment) (classifier.Segment, bool, error) {
	bounds := img.Bounds()
	stretched := stretch(candidate, bounds)

	crop := cropRegion(img, stretched)
	rescored, err := client.Classify(ctx, crop)
	if err != nil {
		return classifier.Segment{}, false, err
	}

	var top classifier.Segment
	found := false
	for _, s := range rescored {
		translated := translate(s, stretched.Min.X, stretched.Min.Y)
		if !found || translated.Score > top.Score {
			top = translated
			found = true
		}
	}
	if !found || top.Score < minRawScore {
		return classifier.Segment{}, false, nil
	}

	tightened := candidate
	for _, s := range rescored {
		translated := translate(s, stretched.Min.X, stretched.Min.Y)
		if translated.Score < minRawScore {
			continue
		}
		tightened = intersectBounds(tightened, translated)
	}
	return tightened, true, nil
}

func stretch(seg classifier.Segment, bounds image.Rectangle) image.Rectangle {
	w := seg.Width()
	h := seg.Height()
	padX := int(float64(w) * stretchFraction)
	padY := int(float64(h) * stretchFraction)

	r := image.Rect(seg.MinX-padX, seg.MinY-padY, seg.MaxX+padX, seg.MaxY+padY)
	return r.Intersect(bounds)
}

func cropRegion(img image.Image, r image.Rectangle) image.Image {
	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if si, ok := img.(subImager); ok {
		return si.SubImage(r)
	}
	dst := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
	for y := 0; y < r.Dy(); y++ {
		for x := 0; x < r.Dx(); x++ {
			dst.Set(x, y, img.At(r.Min.X+x, r.Min.Y+y))
		}
	}
	return dst
}

func translate(seg classifier.Segment, dx, dy int) classifier.Segment {
	return classifier.Segment{
		MinX: seg.MinX + dx, MinY: seg.MinY + dy,
		MaxX: seg.MaxX + dx, MaxY: seg.MaxY + dy,
		Score: seg.Score,
	}
}

func intersectBounds(a, b classifier.Segment) classifier.Segment {
	out := a
	if b.MinX > out.MinX {
		out.MinX = b.MinX
	}
	if b.MinY > out.MinY {
		out.MinY = b.MinY
	}
	if b.MaxX < out.MaxX {
		out.MaxX = b.MaxX
	}
	if b.MaxY < out.MaxY {
		out.MaxY = b.MaxY
	}
	return out
}
