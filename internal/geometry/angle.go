// Package geometry computes heading/angular range from pixel coordinates,
// viewshed triangles, polygon intersection, land-mask clipping, and
// ignored-view overlap tests. It is pure math, built on the standard
// library alone (see DESIGN.md).
package geometry

import "math"

// NormalizeDegrees folds an angle into [0, 360).
func NormalizeDegrees(deg float64) float64 {
	d := math.Mod(deg, 360)
	if d < 0 {
		d += 360
	}
	return d
}

// HeadingRange computes the fire heading and angular width from the pixel
// bounds of a fire segment:
//
//	heading = (centralHeading + ((minX+maxX)/2)/imgWidth*fov - fov/2) mod 360
//	angularWidth = ceil((maxX-minX)/imgWidth*fov + 10°)
func HeadingRange(centralHeading, fov float64, minX, maxX, imgWidth int) (heading, angularWidth float64) {
	midX := float64(minX+maxX) / 2
	heading = NormalizeDegrees(centralHeading + midX/float64(imgWidth)*fov - fov/2)
	angularWidth = math.Ceil(float64(maxX-minX)/float64(imgWidth)*fov + 10)
	return heading, angularWidth
}

// Interval is an angular sector expressed as [center-width/2, center+width/2]
// on the compass, possibly wrapping past 360°.
type Interval struct {
	Center float64
	Width  float64
}

// overlaps reports whether two angular intervals share any angle, handling
// wrap-around by rotating into a frame where a starts at 0°.
func (a Interval) overlaps(b Interval) bool {
	aStart := NormalizeDegrees(a.Center - a.Width/2)
	aEnd := a.Width

	bStart := NormalizeDegrees(b.Center-b.Width/2) - aStart
	bStart = math.Mod(bStart, 360)
	if bStart < 0 {
		bStart += 360
	}
	bEnd := bStart + b.Width

	// a now spans [0, aEnd) in the rotated frame (aEnd may exceed 360 if
	// a.Width >= 360, but angular widths here are always < 360).
	if bStart <= aEnd {
		return true
	}
	// b may also wrap back around past 360 into a's span.
	return bEnd >= 360
}

// Overlaps is the exported overlap test used by the ignored-view and
// recent-detection angular matching.
func Overlaps(a, b Interval) bool {
	return a.overlaps(b) || b.overlaps(a)
}
