// Command detector is the long-running detect/archive worker: it wires
// every component together and drives the Scheduler's fetch-and-detect
// loop for the fleet group it is assigned to.
package main

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	_ "github.com/lib/pq"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/open-climate-tech/firecam/internal/blobstore"
	"github.com/open-climate-tech/firecam/internal/classifier"
	"github.com/open-climate-tech/firecam/internal/composer"
	"github.com/open-climate-tech/firecam/internal/config"
	"github.com/open-climate-tech/firecam/internal/fleet"
	"github.com/open-climate-tech/firecam/internal/historicalfilter"
	"github.com/open-climate-tech/firecam/internal/imagesource"
	"github.com/open-climate-tech/firecam/internal/metrics"
	"github.com/open-climate-tech/firecam/internal/notify"
	"github.com/open-climate-tech/firecam/internal/orchestrator"
	"github.com/open-climate-tech/firecam/internal/pipeline"
	"github.com/open-climate-tech/firecam/internal/ratelimit"
	"github.com/open-climate-tech/firecam/internal/scheduler"
	"github.com/open-climate-tech/firecam/internal/store"
	"github.com/open-climate-tech/firecam/internal/tokens"
	"github.com/open-climate-tech/firecam/internal/weather"
)

// maxCameras bounds the live-frame dedup cache's camera count.
const maxCameras = 4096

// republishInterval is how often the notification Republisher sweeps for
// alerts whose publish failed.
const republishInterval = time.Minute

func main() {
	var f config.Flags
	settingsPath := flag.String("settings", "settings.json", "path to the JSON settings file")
	fleetGroup := flag.String("fleetGroup", "", "fleet group this process serves (required)")
	flag.StringVar(&f.ArchiveDir, "archiveDir", "archive", "directory fetched frames are saved to")
	flag.IntVar(&f.NumThreads, "numThreads", 4, "number of worker goroutines")
	flag.StringVar(&f.RestrictType, "restrictType", "", "restrict to a single camera type (fixed|ptz)")
	flag.StringVar(&f.Heartbeat, "heartbeat", "", "heartbeat file path touched once per cycle")
	flag.Parse()

	settings, err := config.Load(*settingsPath)
	if err != nil {
		log.Fatalf("detector: %v", err)
	}
	cfg := config.Config{Settings: settings, Flags: f}

	if *fleetGroup == "" {
		log.Fatal("detector: --fleetGroup is required")
	}
	if err := os.MkdirAll(cfg.ArchiveDir, 0755); err != nil {
		log.Fatalf("detector: create archive dir: %v", err)
	}

	// 1. Database
	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		log.Fatalf("detector: open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("detector: ping database: %v", err)
	}
	st := store.New(db)

	// 2. External service clients
	classifierClient := classifier.NewHTTPClient(cfg.ClassifierURL)
	weatherProvider := weather.NewCachedProvider(weather.NewHTTPProvider(cfg.WeatherURL), &weather.StoreCache{Repo: st.Weather})
	weatherModel := weather.NewHTTPModel(cfg.WeatherModelURL)
	blob := blobstore.New(cfg.BlobRoot, cfg.BlobBaseURL)
	tokenMgr := tokens.NewManager(cfg.OrchestratorSecret)
	orchClient := orchestrator.NewClient(cfg.OrchestratorURL, cfg.ServiceID, tokenMgr)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	defer redisClient.Close()
	limiter := ratelimit.NewLimiter(redisClient)

	natsConn, err := nats.Connect(cfg.NATSAddr, nats.Name("firecam-detector"))
	if err != nil {
		log.Fatalf("detector: connect to NATS: %v", err)
	}
	defer natsConn.Close()
	publisher := notify.NewPublisher(natsConn, cfg.NotificationSubject, 3)

	// 3. Image fetching
	fetcher := imagesource.NewHTTPFetcher()
	source, err := imagesource.New(fetcher, &imagesource.StoreArchiveRows{Repo: st.Archive}, maxCameras, saveFrame(cfg.ArchiveDir))
	if err != nil {
		log.Fatalf("detector: build image source: %v", err)
	}

	// 4. Fleet configuration and mode machine
	fleetConfig, err := config.NewFleetConfig(cfg.FleetConfigPath)
	if err != nil {
		log.Fatalf("detector: load fleet config: %v", err)
	}
	stopWatch := make(chan struct{})
	defer close(stopWatch)
	fleetConfig.Watch(stopWatch)

	window, err := groupWindow(fleetConfig, *fleetGroup)
	if err != nil {
		log.Fatalf("detector: %v", err)
	}

	m := metrics.New()

	// 5. Detection pipelines: one policy per camera shape, sharing every
	// other collaborator.
	historicalQuery := &historicalfilter.Filter{Query: &historicalfilter.StoreQuery{Repo: st.Scores}}
	fixedPolicy := pipeline.NewInceptionV3AndHistoricalThreshold(classifierClient, historicalQuery, st.Scores, cfg.ClassifierMinScore)
	priorFetcher := &pipeline.ArchivePriorFetcher{Archive: st.Archive, Load: composer.LoadImageFile}
	ptzPolicy := pipeline.NewDetectDiff(priorFetcher)

	stores := pipeline.Stores{Probables: st.Probables, IgnoredViews: st.IgnoredViews, Detections: st.Detections, Archive: st.Archive}
	fixedPipeline := &pipeline.Pipeline{
		Policy: fixedPolicy, Stores: stores, Store: st, Blob: blob,
		WeatherProvider: weatherProvider, WeatherModel: weatherModel, Notify: publisher,
		TempDir: os.TempDir(), Metrics: m,
	}
	ptzPipeline := &pipeline.Pipeline{
		Policy: ptzPolicy, Stores: stores, Store: st, Blob: blob,
		WeatherProvider: weatherProvider, WeatherModel: weatherModel, Notify: publisher,
		TempDir: os.TempDir(), Metrics: m,
	}

	detect := buildDetectFunc(fixedPipeline, ptzPipeline, cfg.ModelID, cfg.WeatherThreshold)

	// 6. Scheduler
	sched := &scheduler.Scheduler{
		Cameras: st.Cameras, Counter: st.Counters, Source: source, Archive: st.Archive, Detect: detect,
		GC: func(ctx context.Context, cutoff int64) (int, error) { return imagesource.GC(ctx, st.Archive, cutoff) },
		Mode: func(now time.Time) fleet.Mode {
			w, err := groupWindow(fleetConfig, *fleetGroup)
			if err != nil {
				return fleet.ModeInactive
			}
			return fleet.ModeAt(w, now)
		},
		PostWorkDue:   func(now time.Time) bool { return fleet.PostWorkDue(window, now) },
		PostWork:      func(ctx context.Context) error { return fleet.RunDailyPostWork(ctx, st, cfg.ArchiveDir, time.Now()) },
		RestrictType:  cfg.RestrictType,
		NumWorkers:    cfg.NumThreads,
		MinCycle:      time.Duration(cfg.MinCycleSeconds) * time.Second,
		MaxInterval:   cfg.MaxFetchInterval,
		ArchiveMaxAge: time.Duration(cfg.ArchiveMaxAgeMin) * time.Minute,
		HeartbeatPath: cfg.Heartbeat,
		Metrics:       m,
	}

	// 7. Fleet Controller: resizes this group's orchestrator worker pool
	// and runs the once-daily cluster-wide post-work trigger.
	controller := fleet.NewController(orchClient, limiter, func(ctx context.Context, group string) error {
		return nil // this process's own daily sweep runs through sched.PostWork; the controller's hook here is a no-op placeholder for a future cross-group aggregation step.
	}, m)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go notify.NewRepublisher(&notify.StoreAlerts{Repo: st.Alerts}, publisher, republishInterval).Run(ctx)
	go runFleetController(ctx, controller, fleetConfig, *fleetGroup)

	// 8. Admin HTTP server
	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: cfg.AdminListenAddr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("detector: admin server error: %v", err)
		}
	}()

	go exitOnCalendarDayChange(ctx, cancel)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	schedErr := make(chan error, 1)
	go func() { schedErr <- sched.Run(ctx) }()

	select {
	case <-sig:
		log.Println("detector: shutdown requested")
	case err := <-schedErr:
		log.Printf("detector: scheduler stopped: %v", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

// groupWindow looks up fleetGroup in the hot-reloadable fleet config and
// converts it to a fleet.Window.
func groupWindow(fc *config.FleetConfig, fleetGroup string) (fleet.Window, error) {
	for _, g := range fc.Groups() {
		if g.Name == fleetGroup {
			return fleet.WindowFromGroup(g)
		}
	}
	return fleet.Window{}, fmt.Errorf("fleet group %q not found in fleet config", fleetGroup)
}

// runFleetController ticks the Fleet Controller once a minute for
// fleetGroup until ctx is cancelled.
func runFleetController(ctx context.Context, c *fleet.Controller, fc *config.FleetConfig, fleetGroup string) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w, err := groupWindow(fc, fleetGroup)
			if err != nil {
				log.Printf("fleet controller: %v", err)
				continue
			}
			if err := c.Tick(ctx, w, time.Now()); err != nil {
				log.Printf("fleet controller: tick: %v", err)
			}
		}
	}
}

// exitOnCalendarDayChange implements the daily-exit contract: once
// the local calendar day changes, the process exits with status 1 so the
// supervisor restarts it with a clean in-memory state (last-fetch cache,
// dedup cache, post-work latch).
func exitOnCalendarDayChange(ctx context.Context, cancel context.CancelFunc) {
	startDay := time.Now().Format("2006-01-02")
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if now.Format("2006-01-02") != startDay {
				log.Println("detector: calendar day changed, exiting for clean restart")
				cancel()
				os.Exit(1)
			}
		}
	}
}

// buildDetectFunc adapts the Detection Pipeline to scheduler.DetectFunc,
// choosing the fixed or PTZ policy by camera type and loading the fetched
// frame's bytes back off disk.
func buildDetectFunc(fixedPipeline, ptzPipeline *pipeline.Pipeline, modelID string, weatherThresh float64) scheduler.DetectFunc {
	return func(ctx context.Context, cam *store.Camera, frame imagesource.Frame) error {
		img, err := composer.LoadImageFile(frame.ImagePath)
		if err != nil {
			return fmt.Errorf("detector: load frame %s: %w", frame.ImagePath, err)
		}

		p := fixedPipeline
		isPTZ := cam.Type == "ptz"
		if isPTZ {
			p = ptzPipeline
		}

		info := pipeline.CameraInfo{
			ID: cam.ID, Lat: cam.Latitude, Lon: cam.Longitude, Heading: frame.Heading, FOV: cam.FieldOfView,
			ModelID: modelID, IsPrototype: cam.IsPrototype, IsPTZ: isPTZ, WeatherThresh: weatherThresh,
			MapBlobURI: cam.MapBlobURI,
		}
		_, err = p.Process(ctx, info, img, frame.ImagePath, frame.Timestamp)
		return err
	}
}

// saveFrame returns the imagesource save callback: frames land in a flat,
// content-addressed filename under dir so concurrent workers never
// collide on a path.
func saveFrame(dir string) func(cameraID string, heading float64, ts int64, data []byte) (string, error) {
	return func(cameraID string, heading float64, ts int64, data []byte) (string, error) {
		sum := sha1.Sum(data)
		name := fmt.Sprintf("%s-%.1f-%d-%s.jpg", cameraID, heading, ts, hex.EncodeToString(sum[:4]))
		path := filepath.Join(dir, name)
		if err := os.WriteFile(path, data, 0644); err != nil {
			return "", fmt.Errorf("imagesource: write frame: %w", err)
		}
		return path, nil
	}
}
