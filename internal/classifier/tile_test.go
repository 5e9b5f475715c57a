package classifier

import "testing"

func TestAxisOffsetsSmallerThanTile(t *testing.T) {
	offs := axisOffsets(200)
	if len(offs) != 1 || offs[0] != 0 {
		t.Errorf("axisOffsets(200) = %v; want [0]", offs)
	}
}

func TestAxisOffsetsFlushLastTile(t *testing.T) {
	offs := axisOffsets(1000)
	if offs[0] != 0 {
		t.Errorf("first offset = %d; want 0", offs[0])
	}
	last := offs[len(offs)-1]
	if last != 1000-TileSize {
		t.Errorf("last offset = %d; want %d (flush to edge)", last, 1000-TileSize)
	}
	for i := 1; i < len(offs); i++ {
		if offs[i] <= offs[i-1] {
			t.Errorf("offsets not strictly increasing at %d: %v", i, offs)
		}
	}
}

func TestTileGridCoversCorners(t *testing.T) {
	tiles := TileGrid(1920, 1080)
	var sawOrigin, sawFarCorner bool
	for _, tl := range tiles {
		if tl.MinX == 0 && tl.MinY == 0 {
			sawOrigin = true
		}
		if tl.MinX == 1920-TileSize && tl.MinY == 1080-TileSize {
			sawFarCorner = true
		}
	}
	if !sawOrigin {
		t.Error("tile grid does not cover top-left corner")
	}
	if !sawFarCorner {
		t.Error("tile grid does not cover bottom-right corner flush to the edge")
	}
}
