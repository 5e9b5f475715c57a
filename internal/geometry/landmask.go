package geometry

// coastline is a coarse convex hull approximating the California coastline
// used to reject viewshed triangles that point entirely out to sea.
// It is intentionally coarse: the Geometry component only needs to know
// whether a triangle clips any land at all, not a precise shoreline.
var coastline = Polygon{
	{Lat: 42.5, Lon: -124.6},
	{Lat: 42.0, Lon: -119.9},
	{Lat: 32.4, Lon: -114.0},
	{Lat: 32.4, Lon: -117.5},
	{Lat: 34.0, Lon: -120.6},
	{Lat: 38.0, Lon: -123.3},
}

// IntersectLand clips a viewshed triangle against the land mask, returning
// nil if the triangle lies entirely over water.
func IntersectLand(triangle Polygon) Polygon {
	return Intersect(triangle, coastline)
}

// RecentDetection is the minimal shape IntersectRecentDetections needs from
// a store.Detection: its ground polygon, the source polygons accumulated
// into it so far, and the time it was recorded.
type RecentDetection struct {
	Polygon        Polygon
	SourcePolygons []Polygon
	Timestamp      int64
}

// IntersectRecentDetections reports the first recent detection (within
// windowSeconds of now) whose ground polygon overlaps triangle, used to
// fold a new segment into an existing Detection rather than starting a new
// one. The matched detection's own accumulated source polygons are
// returned alongside the overlap so the caller can append the new
// camera's triangle to them instead of discarding the match's provenance.
func IntersectRecentDetections(triangle Polygon, recent []RecentDetection, now int64, windowSeconds int64) (overlap Polygon, sourcePolygons []Polygon, ok bool) {
	for _, d := range recent {
		if now-d.Timestamp > windowSeconds {
			continue
		}
		if overlap := Intersect(triangle, d.Polygon); overlap != nil {
			return overlap, d.SourcePolygons, true
		}
	}
	return nil, nil, false
}
