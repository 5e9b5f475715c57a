package geometry

import "testing"

func TestNormalizeDegrees(t *testing.T) {
	cases := []struct {
		input float64
		want  float64
	}{
		{0, 0},
		{359, 359},
		{360, 0},
		{720.5, 0.5},
		{-10, 350},
		{-370, 350},
	}
	for _, c := range cases {
		if got := NormalizeDegrees(c.input); got != c.want {
			t.Errorf("NormalizeDegrees(%v) = %v; want %v", c.input, got, c.want)
		}
	}
}

func TestHeadingRange(t *testing.T) {
	// A segment centered in the frame should report the camera's central
	// heading back unchanged.
	heading, width := HeadingRange(180, 110, 145, 155, 300)
	if heading != 180 {
		t.Errorf("centered segment heading = %v; want 180", heading)
	}
	if width <= 10 {
		t.Errorf("angularWidth = %v; want > 10 (base padding)", width)
	}

	// A segment at the left edge should shift heading left of center.
	left, _ := HeadingRange(180, 110, 0, 10, 300)
	if left >= 180 {
		t.Errorf("left-edge segment heading = %v; want < 180", left)
	}
}

func TestIntervalOverlaps(t *testing.T) {
	cases := []struct {
		name string
		a, b Interval
		want bool
	}{
		{"identical", Interval{0, 20}, Interval{0, 20}, true},
		{"disjoint", Interval{0, 10}, Interval{180, 10}, false},
		{"adjacent", Interval{0, 20}, Interval{15, 20}, true},
		{"wrap-around", Interval{355, 20}, Interval{5, 10}, true},
	}
	for _, c := range cases {
		if got := Overlaps(c.a, c.b); got != c.want {
			t.Errorf("%s: Overlaps(%+v, %+v) = %v; want %v", c.name, c.a, c.b, got, c.want)
		}
	}
}
