package composer

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"os"
	"path/filepath"

	"github.com/open-climate-tech/firecam/internal/geometry"
)

// mapCropWidth and mapCropHeight bound the rendered map overlay around the
// confirmed polygon's centroid.
const (
	mapCropWidth  = 640
	mapCropHeight = 640
)

// sourceAlpha and confirmedAlpha are the polygon fills' blend weights
// against the base map: each contributing camera's triangle is drawn
// lightly in red, and the confirmed intersection (only meaningful once a
// second camera has contributed) is drawn more heavily in blue on top.
const (
	sourceAlpha    = 0.20
	confirmedAlpha = 0.30
)

// mapExtentDeg is the half-width/half-height, in degrees, of the
// georeferenced base map centered on a camera: matches the viewshed leg
// length used elsewhere for a roughly 40 mi extent.
const mapExtentDeg = 0.6

// BaseMap is a georeferenced raster: img covers [bounds] in lat/lon.
type BaseMap struct {
	Img    image.Image
	Bounds geometry.Polygon // two opposite corners: {MinLat,MinLon}, {MaxLat,MaxLon}
}

// MapDownloader is the narrow blob capability LoadBaseMap needs to fetch a
// camera's base map back out of storage.
type MapDownloader interface {
	DownloadBucketFile(bucket, name, localPath string) error
}

// LoadBaseMap downloads the base map stored at mapBlobURI (formatted
// "bucket/object-name") and pairs it with the lat/lon bounds RenderMap
// needs to place polygons on it, centered on the camera's own location.
func LoadBaseMap(downloader MapDownloader, mapBlobURI string, lat, lon float64, tempDir string) (BaseMap, error) {
	bucket := filepath.Dir(mapBlobURI)
	name := filepath.Base(mapBlobURI)
	if bucket == "." || name == "" {
		return BaseMap{}, fmt.Errorf("composer: malformed base map uri %q", mapBlobURI)
	}

	localPath, err := tempBaseMapPath(tempDir, filepath.Ext(name))
	if err != nil {
		return BaseMap{}, err
	}
	defer os.Remove(localPath)
	if err := downloader.DownloadBucketFile(bucket, name, localPath); err != nil {
		return BaseMap{}, fmt.Errorf("composer: download base map: %w", err)
	}
	img, err := LoadImageFile(localPath)
	if err != nil {
		return BaseMap{}, fmt.Errorf("composer: load base map: %w", err)
	}

	bounds := geometry.Polygon{
		{Lat: lat - mapExtentDeg, Lon: lon - mapExtentDeg},
		{Lat: lat + mapExtentDeg, Lon: lon + mapExtentDeg},
	}
	return BaseMap{Img: img, Bounds: bounds}, nil
}

// RenderMap draws every source polygon (20% red) and, when more than one
// camera contributed, the confirmed intersection polygon on top (30%
// blue), onto a crop of base centered on the confirmed polygon's
// centroid, producing the map artifact referenced by the alert message.
func RenderMap(base BaseMap, confirmed geometry.Polygon, sources []geometry.Polygon) (image.Image, error) {
	if len(base.Bounds) != 2 {
		return nil, fmt.Errorf("composer: base map bounds must have exactly 2 corners")
	}
	minPt, maxPt := base.Bounds[0], base.Bounds[1]
	b := base.Img.Bounds()

	toPixel := func(p geometry.Point) image.Point {
		fx := (p.Lon - minPt.Lon) / (maxPt.Lon - minPt.Lon)
		fy := 1 - (p.Lat-minPt.Lat)/(maxPt.Lat-minPt.Lat)
		return image.Pt(b.Min.X+int(fx*float64(b.Dx())), b.Min.Y+int(fy*float64(b.Dy())))
	}

	dst := image.NewRGBA(b)
	draw.Draw(dst, b, base.Img, b.Min, draw.Src)

	sourceFill := color.RGBA{R: 255, A: uint8(sourceAlpha * 255)}
	for _, src := range sources {
		fillPolygon(dst, polygonToPixels(src, toPixel), sourceFill)
	}
	if len(sources) > 1 {
		confirmedFill := color.RGBA{B: 255, A: uint8(confirmedAlpha * 255)}
		fillPolygon(dst, polygonToPixels(confirmed, toPixel), confirmedFill)
	}

	centroidPx := toPixel(geometry.Centroid(confirmed))
	cropRect := image.Rect(
		centroidPx.X-mapCropWidth/2, centroidPx.Y-mapCropHeight/2,
		centroidPx.X+mapCropWidth/2, centroidPx.Y+mapCropHeight/2,
	)
	cropRect = clampRect(cropRect, b)
	out := image.NewRGBA(image.Rect(0, 0, cropRect.Dx(), cropRect.Dy()))
	draw.Draw(out, out.Bounds(), dst, cropRect.Min, draw.Src)
	return out, nil
}

func tempBaseMapPath(dir, ext string) (string, error) {
	f, err := os.CreateTemp(dir, "basemap-*"+ext)
	if err != nil {
		return "", err
	}
	path := f.Name()
	f.Close()
	return path, nil
}

func polygonToPixels(poly geometry.Polygon, toPixel func(geometry.Point) image.Point) []image.Point {
	pts := make([]image.Point, len(poly))
	for i, p := range poly {
		pts[i] = toPixel(p)
	}
	return pts
}

// fillPolygon alpha-blends a simple scanline fill of a convex polygon's
// pixel outline onto dst.
func fillPolygon(dst draw.Image, pts []image.Point, fill color.RGBA) {
	if len(pts) < 3 {
		return
	}
	minY, maxY := pts[0].Y, pts[0].Y
	for _, p := range pts {
		if p.Y < minY {
			minY = p.Y
		}
		if p.Y > maxY {
			maxY = p.Y
		}
	}
	bounds := dst.Bounds()
	if minY < bounds.Min.Y {
		minY = bounds.Min.Y
	}
	if maxY > bounds.Max.Y {
		maxY = bounds.Max.Y
	}

	n := len(pts)
	for y := minY; y <= maxY; y++ {
		var xs []int
		for i := 0; i < n; i++ {
			a, b := pts[i], pts[(i+1)%n]
			if (a.Y <= y && b.Y > y) || (b.Y <= y && a.Y > y) {
				t := float64(y-a.Y) / float64(b.Y-a.Y)
				xs = append(xs, a.X+int(t*float64(b.X-a.X)))
			}
		}
		if len(xs) < 2 {
			continue
		}
		for i := 0; i+1 < len(xs); i += 2 {
			x0, x1 := xs[i], xs[i+1]
			if x1 < x0 {
				x0, x1 = x1, x0
			}
			for x := x0; x <= x1; x++ {
				blendPixel(dst, x, y, fill)
			}
		}
	}
}

func blendPixel(dst draw.Image, x, y int, fill color.RGBA) {
	pt := image.Pt(x, y)
	if !pt.In(dst.Bounds()) {
		return
	}
	bg := dst.At(x, y)
	br, bgc, bb, _ := bg.RGBA()
	a := float64(fill.A) / 255
	r := uint8((1-a)*float64(br>>8) + a*float64(fill.R))
	g := uint8((1-a)*float64(bgc>>8) + a*float64(fill.G))
	bl := uint8((1-a)*float64(bb>>8) + a*float64(fill.B))
	dst.Set(x, y, color.RGBA{R: r, G: g, B: bl, A: 255})
}
