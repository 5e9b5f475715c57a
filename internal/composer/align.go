package composer

import (
	"errors"
	"image"
)

// ErrAlignmentDidNotConverge is returned when no translation in the
// allowed search window reduces the match error below the convergence
// threshold.
var ErrAlignmentDidNotConverge = errors.New("composer: alignment did not converge")

// maxDX and maxDY bound the translation-only search for aligning a PTZ
// camera's prior image to the current one.
const (
	maxDX = 20
	maxDY = 10
)

// Align finds the integer (dx, dy) translation of prior relative to
// current that minimizes mean absolute luminance difference over their
// overlapping region, searching the full [-maxDX,maxDX] x [-maxDY,maxDY]
// window. This is a direct sum-of-absolute-differences search rather than
// a true frequency-domain phase correlation — equivalent for a search
// window this small, just less asymptotically efficient (see DESIGN.md).
func Align(current, prior image.Image) (dx, dy int, err error) {
	curGray := toGray(current)
	priorGray := toGray(prior)

	bestScore := -1.0
	bestDX, bestDY := 0, 0
	found := false

	for dy := -maxDY; dy <= maxDY; dy++ {
		for dx := -maxDX; dx <= maxDX; dx++ {
			score, n := sadScore(curGray, priorGray, dx, dy)
			if n == 0 {
				continue
			}
			avg := score / float64(n)
			if !found || avg < bestScore {
				bestScore = avg
				bestDX, bestDY = dx, dy
				found = true
			}
		}
	}

	if !found || bestScore > convergenceThreshold {
		return 0, 0, ErrAlignmentDidNotConverge
	}
	return bestDX, bestDY, nil
}

// convergenceThreshold is the mean-absolute-luminance-difference ceiling
// below which a translation is accepted as a genuine alignment rather
// than noise.
const convergenceThreshold = 20.0

func toGray(img image.Image) *image.Gray {
	b := img.Bounds()
	g := image.NewGray(b)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g.Set(x, y, img.At(x, y))
		}
	}
	return g
}

func sadScore(a, b *image.Gray, dx, dy int) (sum float64, n int) {
	ab := a.Bounds()
	bb := b.Bounds()
	for y := ab.Min.Y; y < ab.Max.Y; y++ {
		by := y + dy
		if by < bb.Min.Y || by >= bb.Max.Y {
			continue
		}
		for x := ab.Min.X; x < ab.Max.X; x++ {
			bx := x + dx
			if bx < bb.Min.X || bx >= bb.Max.X {
				continue
			}
			av := a.GrayAt(x, y).Y
			bv := b.GrayAt(bx, by).Y
			diff := int(av) - int(bv)
			if diff < 0 {
				diff = -diff
			}
			sum += float64(diff)
			n++
		}
	}
	return sum, n
}
