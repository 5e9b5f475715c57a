// Package composer crops and annotates the frame sequence around a
// qualified candidate,
// encodes a short video, renders an annotated still and a map overlay,
// uploads the artifacts, scores the result against weather, and writes
// the Detection/Alert rows.
package composer

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/open-climate-tech/firecam/internal/classifier"
)

// cropWidth and cropHeight are the fixed crop dimensions around a fire
// segment.
const (
	cropWidth  = 800
	cropHeight = 600
)

// BoxColor tags which frame in the sequence a box belongs to: red on the
// triggering frame, yellow before it, orange after.
type BoxColor int

const (
	BoxRed BoxColor = iota
	BoxYellow
	BoxOrange
)

func (c BoxColor) rgba() color.RGBA {
	switch c {
	case BoxRed:
		return color.RGBA{R: 255, A: 255}
	case BoxYellow:
		return color.RGBA{R: 255, G: 255, A: 255}
	default:
		return color.RGBA{R: 255, G: 165, A: 255}
	}
}

// CropCentered crops an 800x600 region of img centered on seg, clamped to
// the image bounds.
func CropCentered(img image.Image, seg classifier.Segment) image.Image {
	cx := (seg.MinX + seg.MaxX) / 2
	cy := (seg.MinY + seg.MaxY) / 2

	bounds := img.Bounds()
	rect := image.Rect(cx-cropWidth/2, cy-cropHeight/2, cx+cropWidth/2, cy+cropHeight/2)
	rect = clampRect(rect, bounds)

	type subImager interface {
		SubImage(r image.Rectangle) image.Image
	}
	if si, ok := img.(subImager); ok {
		return si.SubImage(rect)
	}
	dst := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(dst, dst.Bounds(), img, rect.Min, draw.Src)
	return dst
}

func clampRect(r, bounds image.Rectangle) image.Rectangle {
	if r.Min.X < bounds.Min.X {
		r = r.Add(image.Pt(bounds.Min.X-r.Min.X, 0))
	}
	if r.Min.Y < bounds.Min.Y {
		r = r.Add(image.Pt(0, bounds.Min.Y-r.Min.Y))
	}
	if r.Max.X > bounds.Max.X {
		r = r.Add(image.Pt(bounds.Max.X-r.Max.X, 0))
	}
	if r.Max.Y > bounds.Max.Y {
		r = r.Add(image.Pt(0, bounds.Max.Y-r.Max.Y))
	}
	return r.Intersect(bounds)
}

// DrawBox outlines seg on img in the given color. Watermarks are applied
// separately by the caller; the box itself is the load-bearing annotation
// the downstream video/still consumers rely on.
func DrawBox(img draw.Image, seg classifier.Segment, c BoxColor) {
	col := c.rgba()
	const thickness = 3
	for t := 0; t < thickness; t++ {
		hLine(img, seg.MinX, seg.MaxX, seg.MinY+t, col)
		hLine(img, seg.MinX, seg.MaxX, seg.MaxY-t, col)
		vLine(img, seg.MinX+t, seg.MinY, seg.MaxY, col)
		vLine(img, seg.MaxX-t, seg.MinY, seg.MaxY, col)
	}
}

func hLine(img draw.Image, x0, x1, y int, col color.Color) {
	for x := x0; x <= x1; x++ {
		img.Set(x, y, col)
	}
}

func vLine(img draw.Image, x int, y0, y1 int, col color.Color) {
	for y := y0; y <= y1; y++ {
		img.Set(x, y, col)
	}
}
