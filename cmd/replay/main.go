// Command replay is a test harness, not a product feature: it re-runs
// the Detection Pipeline over a bounded historical window of already
// archived images for a fixed camera set, optionally bypassing the
// historical-scores filter and downsampling to a fixed image count.
package main

import (
	"context"
	"database/sql"
	"encoding/hex"
	"flag"
	"log"
	"math/rand"
	"os"
	"time"

	_ "github.com/lib/pq"

	"github.com/open-climate-tech/firecam/internal/classifier"
	"github.com/open-climate-tech/firecam/internal/composer"
	"github.com/open-climate-tech/firecam/internal/config"
	"github.com/open-climate-tech/firecam/internal/historicalfilter"
	"github.com/open-climate-tech/firecam/internal/pipeline"
	"github.com/open-climate-tech/firecam/internal/store"
	"github.com/open-climate-tech/firecam/internal/weather"
)

func main() {
	var f config.Flags
	settingsPath := flag.String("settings", "settings.json", "path to the JSON settings file")
	flag.StringVar(&f.RestrictType, "restrictType", "", "restrict to a single camera type (fixed|ptz)")
	flag.BoolVar(&f.NoState, "noState", false, "run stateless: bypass the historical-scores filter and skip score writes")
	startTime := flag.String("startTime", "", "replay window start, RFC3339 (required)")
	endTime := flag.String("endTime", "", "replay window end, RFC3339 (required)")
	flag.IntVar(&f.LimitImages, "limitImages", 0, "cap the number of images replayed, 0 means no cap")
	flag.StringVar(&f.RandomSeed, "randomSeed", "", "hex seed for deterministic downsampling when limitImages is set")
	flag.Parse()

	if *startTime == "" || *endTime == "" {
		log.Fatal("replay: --startTime and --endTime are required")
	}
	start, err := time.Parse(time.RFC3339, *startTime)
	if err != nil {
		log.Fatalf("replay: parse --startTime: %v", err)
	}
	end, err := time.Parse(time.RFC3339, *endTime)
	if err != nil {
		log.Fatalf("replay: parse --endTime: %v", err)
	}
	f.StartTime, f.EndTime = start, end

	settings, err := config.Load(*settingsPath)
	if err != nil {
		log.Fatalf("replay: %v", err)
	}
	cfg := config.Config{Settings: settings, Flags: f}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		log.Fatalf("replay: open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("replay: ping database: %v", err)
	}
	st := store.New(db)

	classifierClient := classifier.NewHTTPClient(cfg.ClassifierURL)
	weatherProvider := weather.NewCachedProvider(weather.NewHTTPProvider(cfg.WeatherURL), &weather.StoreCache{Repo: st.Weather})
	weatherModel := weather.NewHTTPModel(cfg.WeatherModelURL)

	historicalQuery := &historicalfilter.Filter{Query: &historicalfilter.StoreQuery{Repo: st.Scores}, Stateless: cfg.NoState}
	policy := pipeline.NewInceptionV3AndHistoricalThreshold(classifierClient, historicalQuery, st.Scores, cfg.ClassifierMinScore)

	p := &pipeline.Pipeline{
		Policy:          policy,
		Stores:          pipeline.Stores{Probables: st.Probables, IgnoredViews: st.IgnoredViews, Detections: st.Detections, Archive: st.Archive},
		Store:           st,
		WeatherProvider: weatherProvider,
		WeatherModel:    weatherModel,
		TempDir:         os.TempDir(),
	}

	ctx := context.Background()
	cameras, err := st.Cameras.GetActiveCameras(ctx, cfg.RestrictType)
	if err != nil {
		log.Fatalf("replay: list cameras: %v", err)
	}

	var images []replayImage
	for _, cam := range cameras {
		rows, err := st.Archive.ImagesInRange(ctx, cam.ID, start.Unix(), end.Unix())
		if err != nil {
			log.Fatalf("replay: list archive images for %s: %v", cam.ID, err)
		}
		for _, row := range rows {
			images = append(images, replayImage{cam: cam, row: row})
		}
	}

	images = downsample(images, cfg.LimitImages, cfg.RandomSeed)
	log.Printf("replay: replaying %d images from %s to %s", len(images), start, end)

	var processed, errored int
	for _, item := range images {
		img, err := composer.LoadImageFile(item.row.ImagePath)
		if err != nil {
			log.Printf("replay: load %s: %v", item.row.ImagePath, err)
			errored++
			continue
		}
		info := pipeline.CameraInfo{
			ID: item.cam.ID, Lat: item.cam.Latitude, Lon: item.cam.Longitude, Heading: item.row.Heading,
			FOV: item.cam.FieldOfView, ModelID: cfg.ModelID, IsPrototype: item.cam.IsPrototype,
			IsPTZ: item.cam.Type == "ptz", WeatherThresh: cfg.WeatherThreshold,
			MapBlobURI: item.cam.MapBlobURI,
		}
		stage, err := p.Process(ctx, info, img, item.row.ImagePath, item.row.Timestamp)
		if err != nil {
			log.Printf("replay: process %s @ %d: %v", item.cam.ID, item.row.Timestamp, err)
			errored++
			continue
		}
		log.Printf("replay: %s @ %d -> %s", item.cam.ID, item.row.Timestamp, stage)
		processed++
	}

	log.Printf("replay: done, %d processed, %d errored", processed, errored)
}

type replayImage struct {
	cam *store.Camera
	row *store.ArchiveImage
}

// downsample caps images to at most limit entries, shuffled deterministically
// by seedHex so a replay run can be reproduced exactly. limit=0 means no cap.
func downsample(images []replayImage, limit int, seedHex string) []replayImage {
	if limit <= 0 || len(images) <= limit {
		return images
	}

	var seed int64
	if decoded, err := hex.DecodeString(seedHex); err == nil {
		for _, b := range decoded {
			seed = seed<<8 | int64(b)
		}
	}
	rng := rand.New(rand.NewSource(seed))

	shuffled := make([]replayImage, len(images))
	copy(shuffled, images)
	rng.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:limit]
}
