// Command archiver is a thinner variant of detector: it runs the Image
// Source fetch-and-gc cycle without the Detection Pipeline, for standing
// up archive-only worker capacity separate from detection capacity.
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

	"github.com/open-climate-tech/firecam/internal/config"
	"github.com/open-climate-tech/firecam/internal/fleet"
	"github.com/open-climate-tech/firecam/internal/imagesource"
	"github.com/open-climate-tech/firecam/internal/metrics"
	"github.com/open-climate-tech/firecam/internal/scheduler"
	"github.com/open-climate-tech/firecam/internal/store"
)

const maxCameras = 4096

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
		log.Fatalf("archiver: %v", err)
	}
	cfg := config.Config{Settings: settings, Flags: f}

	if *fleetGroup == "" {
		log.Fatal("archiver: --fleetGroup is required")
	}
	if err := os.MkdirAll(cfg.ArchiveDir, 0755); err != nil {
		log.Fatalf("archiver: create archive dir: %v", err)
	}

	db, err := sql.Open("postgres", cfg.DSN())
	if err != nil {
		log.Fatalf("archiver: open database: %v", err)
	}
	defer db.Close()
	if err := db.Ping(); err != nil {
		log.Fatalf("archiver: ping database: %v", err)
	}
	st := store.New(db)

	fetcher := imagesource.NewHTTPFetcher()
	source, err := imagesource.New(fetcher, &imagesource.StoreArchiveRows{Repo: st.Archive}, maxCameras, saveFrame(cfg.ArchiveDir))
	if err != nil {
		log.Fatalf("archiver: build image source: %v", err)
	}

	fleetConfig, err := config.NewFleetConfig(cfg.FleetConfigPath)
	if err != nil {
		log.Fatalf("archiver: load fleet config: %v", err)
	}
	stopWatch := make(chan struct{})
	defer close(stopWatch)
	fleetConfig.Watch(stopWatch)

	m := metrics.New()

	sched := &scheduler.Scheduler{
		Cameras: st.Cameras, Counter: st.Counters, Source: source, Archive: st.Archive,
		// Detect is never invoked: this process's mode function always
		// reports archive or inactive, never detect.
		Detect: func(ctx context.Context, cam *store.Camera, frame imagesource.Frame) error { return nil },
		GC:     func(ctx context.Context, cutoff int64) (int, error) { return imagesource.GC(ctx, st.Archive, cutoff) },
		Mode: func(now time.Time) fleet.Mode {
			w, err := groupWindow(fleetConfig, *fleetGroup)
			if err != nil {
				return fleet.ModeInactive
			}
			mode := fleet.ModeAt(w, now)
			if mode == fleet.ModeDetect {
				return fleet.ModeArchive
			}
			return mode
		},
		PostWorkDue:   func(now time.Time) bool { return false },
		PostWork:      func(ctx context.Context) error { return nil },
		RestrictType:  cfg.RestrictType,
		NumWorkers:    cfg.NumThreads,
		MinCycle:      time.Duration(cfg.MinCycleSeconds) * time.Second,
		MaxInterval:   cfg.MaxFetchInterval,
		ArchiveMaxAge: time.Duration(cfg.ArchiveMaxAgeMin) * time.Minute,
		HeartbeatPath: cfg.Heartbeat,
		Metrics:       m,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	r := chi.NewRouter()
	r.Get("/healthz", func(w http.ResponseWriter, req *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Handle("/metrics", m.Handler())
	srv := &http.Server{Addr: cfg.AdminListenAddr, Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("archiver: admin server error: %v", err)
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	schedErr := make(chan error, 1)
	go func() { schedErr <- sched.Run(ctx) }()

	select {
	case <-sig:
		log.Println("archiver: shutdown requested")
	case err := <-schedErr:
		log.Printf("archiver: scheduler stopped: %v", err)
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

func groupWindow(fc *config.FleetConfig, fleetGroup string) (fleet.Window, error) {
	for _, g := range fc.Groups() {
		if g.Name == fleetGroup {
			return fleet.WindowFromGroup(g)
		}
	}
	return fleet.Window{}, fmt.Errorf("fleet group %q not found in fleet config", fleetGroup)
}

// saveFrame mirrors cmd/detector's save callback: a flat, content-addressed
// filename under dir so concurrent workers never collide on a path.
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
