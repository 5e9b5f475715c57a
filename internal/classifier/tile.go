package classifier

// Tile is one TileSize x TileSize crop of the source image, positioned in
// the original image's pixel coordinate space.
type Tile struct {
	MinX, MinY int
}

// TileGrid computes the set of tile origins needed to cover an image of the
// given dimensions, with OverlapFraction overlap between neighbors and the
// last tile in each row/column flush against the far edge rather than
// hanging off it.
func TileGrid(imgWidth, imgHeight int) []Tile {
	xs := axisOffsets(imgWidth)
	ys := axisOffsets(imgHeight)

	tiles := make([]Tile, 0, len(xs)*len(ys))
	for _, y := range ys {
		for _, x := range xs {
			tiles = append(tiles, Tile{MinX: x, MinY: y})
		}
	}
	return tiles
}

// axisOffsets computes tile start offsets along one axis of length extent:
// stride forward by TileSize*(1-OverlapFraction) until the next tile would
// run past extent, then emit one final flush-to-the-edge tile.
func axisOffsets(extent int) []int {
	if extent <= TileSize {
		return []int{0}
	}
	overlap := OverlapFraction
	stride := int(float64(TileSize) * (1 - overlap))
	if stride < 1 {
		stride = 1
	}

	var offsets []int
	for x := 0; x+TileSize <= extent; x += stride {
		offsets = append(offsets, x)
	}
	last := extent - TileSize
	if len(offsets) == 0 || offsets[len(offsets)-1] != last {
		offsets = append(offsets, last)
	}
	return offsets
}
