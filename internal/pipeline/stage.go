package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/draw"
	"image/jpeg"
	"os"
	"time"

	"github.com/open-climate-tech/firecam/internal/composer"
	"github.com/open-climate-tech/firecam/internal/geometry"
	"github.com/open-climate-tech/firecam/internal/metrics"
	"github.com/open-climate-tech/firecam/internal/notify"
	"github.com/open-climate-tech/firecam/internal/store"
	"github.com/open-climate-tech/firecam/internal/weather"
)

// Stage is the explicit state value threaded through the pipeline's named
// transition functions: the state machine is modeled as a value, not an
// interface hierarchy.
type Stage int

const (
	StageFetched Stage = iota
	StageClassified
	StageFiltered
	StageQualified
	StageComposed
	StagePublished
	StageDropped
)

func (s Stage) String() string {
	switch s {
	case StageFetched:
		return "fetched"
	case StageClassified:
		return "classified"
	case StageFiltered:
		return "filtered"
	case StageQualified:
		return "qualified"
	case StageComposed:
		return "composed"
	case StagePublished:
		return "published"
	default:
		return "dropped"
	}
}

// CameraInfo is the static configuration the pipeline needs about the
// camera a frame came from.
type CameraInfo struct {
	ID            string
	Lat, Lon      float64
	Heading       float64
	FOV           float64
	ModelID       string
	IsPrototype   bool
	IsPTZ         bool
	WeatherThresh float64
	MapBlobURI    string
}

// Stores bundles the repos the pipeline reads and writes across its
// transitions.
type Stores struct {
	Probables    *store.ProbableRepo
	IgnoredViews *store.IgnoredViewRepo
	Detections   *store.DetectionRepo
	Archive      *store.ArchiveRepo
}

// Blob is the narrow upload/download collaborator the alert composer
// needs: CopyFile publishes an artifact, DownloadBucketFile fetches a
// camera's base map back out for annotation.
type Blob interface {
	CopyFile(localPath, destPrefix string) (string, error)
	DownloadBucketFile(bucket, name, localPath string) error
}

// Pipeline wires the classifier's output through the historical filter,
// geometry, weather, and alert composer via a single DetectionPolicy and
// the supporting components each stage needs.
type Pipeline struct {
	Policy          *DetectionPolicy
	Stores          Stores
	Store           *store.Store
	Blob            Blob
	WeatherProvider weather.Provider
	WeatherModel    weather.Model
	Notify          *notify.Publisher
	TempDir         string

	// Metrics is optional; when nil, no metrics are recorded.
	Metrics *metrics.Metrics
}

// recordStage records stage in Metrics (when configured) and returns it,
// so every Process return point can report its final stage in one line.
func (p *Pipeline) recordStage(stage Stage) Stage {
	if p.Metrics != nil {
		p.Metrics.RecordStage(stage.String())
	}
	return stage
}

// roiMargin is the default interior band used when a camera has no
// configured usable Y-range.
const roiMargin = 50

// confirmWindowSeconds is the window within which a second camera's
// viewshed triangle can be folded into an existing detection, as when two
// cameras spot the same fire within 15 minutes of each other.
const confirmWindowSeconds = 15 * 60

// Process runs one frame through the full state machine, returning the
// final stage it reached. Any non-nil error aborts at the current stage
// without rolling back already-inserted rows.
func (p *Pipeline) Process(ctx context.Context, cam CameraInfo, img image.Image, imagePath string, timestamp int64) (Stage, error) {
	bounds := img.Bounds()
	roi := image.Rect(bounds.Min.X, bounds.Min.Y+roiMargin, bounds.Max.X, bounds.Max.Y-roiMargin)
	if roi.Dy() <= 0 {
		roi = bounds
	}

	t := time.Unix(timestamp, 0).UTC()
	secondsInDay := t.Hour()*3600 + t.Minute()*60 + t.Second()

	spec := ImageSpec{
		CameraID: cam.ID, Heading: cam.Heading, ModelID: cam.ModelID,
		Timestamp: timestamp, SecondsInDay: secondsInDay, Image: img, ROI: roi,
	}

	detections, err := p.Policy.Detect(ctx, spec)
	if err != nil {
		return p.recordStage(StageFetched), fmt.Errorf("pipeline: detect: %w", err)
	}
	if len(detections) == 0 {
		return p.recordStage(StageDropped), nil
	}

	best := pickBest(detections)
	stage := StageFiltered

	dup, err := p.Stores.Probables.RecentExists(ctx, cam.ID, cam.Heading, timestamp)
	if err != nil {
		return p.recordStage(stage), fmt.Errorf("pipeline: dedup check: %w", err)
	}
	if dup {
		return p.recordStage(stage), nil
	}

	probable := &store.Probable{
		CameraID: cam.ID, Heading: cam.Heading, Timestamp: timestamp,
		MinX: best.Segment.MinX, MinY: best.Segment.MinY, MaxX: best.Segment.MaxX, MaxY: best.Segment.MaxY,
		Score: best.Filter.AdjScore, ImagePath: imagePath, ModelID: cam.ModelID,
	}
	if _, err := p.Stores.Probables.Insert(ctx, probable); err != nil {
		return p.recordStage(stage), fmt.Errorf("pipeline: insert probable: %w", err)
	}

	heading, width := geometry.HeadingRange(cam.Heading, cam.FOV, best.Segment.MinX, best.Segment.MaxX, bounds.Dx())

	triangle := geometry.ViewshedTriangle(cam.Lat, cam.Lon, heading, width)
	land := geometry.IntersectLand(triangle)
	if land == nil {
		return p.recordStage(stage), nil
	}

	ignoredViews, err := p.Stores.IgnoredViews.GetAll(ctx)
	if err != nil {
		return p.recordStage(stage), fmt.Errorf("pipeline: load ignored views: %w", err)
	}
	sectors := make([]geometry.IgnoredSector, len(ignoredViews))
	for i, v := range ignoredViews {
		sectors[i] = geometry.IgnoredSector{ID: v.ID, CameraID: v.CameraID, HeadingCenter: v.HeadingCenter, AngularWidth: v.AngularWidth}
	}
	if match, ok := geometry.IgnoredSectorMatch(sectors, cam.ID, heading, width); ok {
		_ = p.Stores.IgnoredViews.IncrementIgnoreCount(ctx, match.ID, timestamp)
		return p.recordStage(stage), nil
	}

	recent, err := p.Stores.Detections.RecentDetections(ctx, timestamp)
	if err != nil {
		return p.recordStage(stage), fmt.Errorf("pipeline: load recent detections: %w", err)
	}
	recentPolys := make([]geometry.RecentDetection, 0, len(recent))
	for _, d := range recent {
		var poly geometry.Polygon
		if err := json.Unmarshal(d.Polygon, &poly); err != nil {
			continue
		}
		var sources []geometry.Polygon
		_ = json.Unmarshal(d.SourcePolygons, &sources)
		recentPolys = append(recentPolys, geometry.RecentDetection{Polygon: poly, SourcePolygons: sources, Timestamp: d.Timestamp})
	}

	sourcePolys := []geometry.Polygon{land}
	confirmedPoly := land
	if overlap, matchedSources, ok := geometry.IntersectRecentDetections(land, recentPolys, timestamp, confirmWindowSeconds); ok {
		confirmedPoly = overlap
		sourcePolys = append(append([]geometry.Polygon{}, matchedSources...), land)
	}

	stage = StageQualified

	candidate := composer.Candidate{
		CameraID: cam.ID, Heading: cam.Heading, Timestamp: timestamp,
		Polygon: confirmedPoly, SourcePolygons: sourcePolys,
		ImageScore: best.Filter.AdjScore, IsPrototype: cam.IsPrototype, IsPTZ: cam.IsPTZ,
	}

	art, err := p.compose(ctx, cam, img, imagePath, timestamp, best, candidate)
	if err != nil {
		return p.recordStage(stage), fmt.Errorf("pipeline: compose: %w", err)
	}
	stage = StageComposed

	centroid := geometry.Centroid(confirmedPoly)
	weatherScore := composer.ScoreWeather(ctx, p.WeatherProvider, p.WeatherModel, cam.ID, centroid, geometry.Point{Lat: cam.Lat, Lon: cam.Lon}, timestamp, candidate)

	_, alertID, err := composer.Persist(ctx, p.Store, candidate, weatherScore, cam.WeatherThresh, art)
	if err != nil {
		return p.recordStage(stage), fmt.Errorf("pipeline: persist: %w", err)
	}
	if alertID == 0 {
		return p.recordStage(stage), nil
	}

	if p.Notify != nil {
		polyJSON, _ := json.Marshal(confirmedPoly)
		msg := notify.Message{
			Timestamp: timestamp, CameraID: cam.ID, AdjScore: best.Filter.AdjScore,
			AnnotatedURL: art.AnnotatedURI, CroppedURL: art.VideoURI, MapURL: art.MapURI,
			Polygon: polyJSON, IsProto: cam.IsPrototype, WeatherScore: weatherScore,
		}
		if err := p.Notify.Publish(msg); err != nil {
			_ = p.Store.Alerts.MarkPublishFailed(ctx, alertID, err.Error())
			if p.Metrics != nil {
				p.Metrics.RecordPublish(false)
			}
			return p.recordStage(stage), nil
		}
		_ = p.Store.Alerts.MarkPublished(ctx, alertID)
		if p.Metrics != nil {
			p.Metrics.RecordPublish(true)
		}
	}

	return p.recordStage(StagePublished), nil
}

// compose crops and box-annotates the triggering frame and its archive
// neighbors, encodes them as a clip, renders the map overlay, and uploads
// each artifact.
func (p *Pipeline) compose(ctx context.Context, cam CameraInfo, img image.Image, imagePath string, timestamp int64, best Detection, candidate composer.Candidate) (composer.Artifacts, error) {
	annotated := toRGBA(img)
	composer.DrawBox(annotated, best.Segment, composer.BoxRed)
	annotatedPath, err := writeJPEG(p.TempDir, "annotated", annotated)
	if err != nil {
		return composer.Artifacts{}, err
	}
	defer os.Remove(annotatedPath)
	annotatedURI, err := p.Blob.CopyFile(annotatedPath, "notifications")
	if err != nil {
		return composer.Artifacts{}, fmt.Errorf("upload annotated still: %w", err)
	}
	art := composer.Artifacts{AnnotatedURI: annotatedURI}

	art.MapURI = p.composeMap(ctx, cam, candidate)

	seq, err := composer.AssembleSequence(ctx, p.Stores.Archive, cam.ID, cam.Heading, imagePath, timestamp, cam.IsPTZ, composer.LoadImageFile)
	if err != nil {
		return art, err
	}

	var framePaths []string
	for _, f := range seq {
		frameImg, err := composer.LoadImageFile(f.ImagePath)
		if err != nil {
			continue
		}
		cropped := toRGBA(composer.CropCentered(frameImg, best.Segment))
		composer.DrawBox(cropped, best.Segment, f.Box)
		path, err := writeJPEG(p.TempDir, "frame", cropped)
		if err != nil {
			continue
		}
		defer os.Remove(path)
		framePaths = append(framePaths, path)
	}

	if len(framePaths) == 0 {
		return art, nil
	}

	videoPath, err := tempPath(p.TempDir, "clip", ".mp4")
	if err != nil {
		return art, err
	}
	defer os.Remove(videoPath)
	if err := composer.EncodeVideo(ctx, framePaths, videoPath); err != nil {
		return art, fmt.Errorf("encode video: %w", err)
	}
	videoURI, err := p.Blob.CopyFile(videoPath, "notifications")
	if err != nil {
		return art, fmt.Errorf("upload video: %w", err)
	}
	art.VideoURI = videoURI

	return art, nil
}

// composeMap downloads the camera's georeferenced base map, draws every
// source polygon at 20% red and (when more than one camera contributed)
// the confirmed intersection at 30% blue, and uploads the result. A
// missing or undownloadable base map leaves the map artifact empty rather
// than failing composition, since the video and still are the load-bearing
// artifacts.
func (p *Pipeline) composeMap(ctx context.Context, cam CameraInfo, candidate composer.Candidate) string {
	if cam.MapBlobURI == "" {
		return ""
	}
	base, err := composer.LoadBaseMap(p.Blob, cam.MapBlobURI, cam.Lat, cam.Lon, p.TempDir)
	if err != nil {
		return ""
	}
	rendered, err := composer.RenderMap(base, candidate.Polygon, candidate.SourcePolygons)
	if err != nil {
		return ""
	}
	mapPath, err := writeJPEG(p.TempDir, "map", rendered)
	if err != nil {
		return ""
	}
	defer os.Remove(mapPath)
	mapURI, err := p.Blob.CopyFile(mapPath, "notifications")
	if err != nil {
		return ""
	}
	return mapURI
}

func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok {
		return rgba
	}
	b := img.Bounds()
	out := image.NewRGBA(b)
	draw.Draw(out, b, img, b.Min, draw.Src)
	return out
}

func writeJPEG(dir, prefix string, img image.Image) (string, error) {
	path, err := tempPath(dir, prefix, ".jpg")
	if err != nil {
		return "", err
	}
	f, err := os.Create(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := jpeg.Encode(f, img, &jpeg.Options{Quality: 90}); err != nil {
		return "", err
	}
	return path, nil
}

func tempPath(dir, prefix, ext string) (string, error) {
	f, err := os.CreateTemp(dir, prefix+"-*"+ext)
	if err != nil {
		return "", err
	}
	path := f.Name()
	f.Close()
	return path, nil
}

func pickBest(detections []Detection) Detection {
	best := detections[0]
	for _, d := range detections[1:] {
		if d.Segment.Score > best.Segment.Score {
			best = d
		}
	}
	return best
}
