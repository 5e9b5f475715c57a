// Package scheduler implements round-robin camera selection across a
// bounded worker pool, cycle pacing, archive garbage collection, and a
// heartbeat file an external monitor can watch. The worker-pool shape is a
// ticker-driven cycle with bounded per-worker channels and a non-blocking
// enqueue that drops and logs rather than blocking the scheduler thread.
package scheduler

import (
	"context"
	"fmt"
	"log"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/open-climate-tech/firecam/internal/fleet"
	"github.com/open-climate-tech/firecam/internal/imagesource"
	"github.com/open-climate-tech/firecam/internal/metrics"
	"github.com/open-climate-tech/firecam/internal/store"
)

// channelBuffer bounds each worker's queue; a full channel means that
// worker fell behind and this cycle's camera is skipped rather than
// blocking the enqueue loop.
const channelBuffer = 64

// Cameras is the subset of store.CameraRepo the scheduler needs.
type Cameras interface {
	GetActiveCameras(ctx context.Context, typeFilter string) ([]*store.Camera, error)
}

// Counter is the subset of store.CounterRepo the scheduler needs for
// cross-process round-robin worker assignment.
type Counter interface {
	Increment(ctx context.Context, name string) (int64, error)
}

// Archive is the subset of store.ArchiveRepo the scheduler needs to record
// fetched frames and flip the PTZ processed flag.
type Archive interface {
	Insert(ctx context.Context, img *store.ArchiveImage) error
	MarkProcessed(ctx context.Context, cameraID string, heading float64, timestamp int64) error
}

// Source is the subset of imagesource.Source the scheduler drives.
type Source interface {
	FetchLive(ctx context.Context, cameraID, url string, heading, fov float64, now int64) imagesource.Result
	FetchPTZBatch(ctx context.Context, cameraID string, now int64) imagesource.Result
}

// DetectFunc runs the Detection Pipeline against one fetched frame. It is
// only invoked in detect mode.
type DetectFunc func(ctx context.Context, cam *store.Camera, frame imagesource.Frame) error

// sourcesCounterName is the shared counter key every cooperating scheduler
// process increments to assign cameras to worker channels without
// coordinating beyond the Store`).
const sourcesCounterName = "sources"

// Scheduler runs the fetch-and-detect cycle in a loop until its context is
// cancelled.
type Scheduler struct {
	Cameras Cameras
	Counter Counter
	Source  Source
	Archive Archive
	Detect  DetectFunc

	// GC deletes archive rows (and files) older than cutoff; normally
	// imagesource.GC bound to a store.ArchiveRepo.
	GC func(ctx context.Context, cutoff int64) (int, error)

	// Mode reports the scheduler's current mode at the given wall-clock
	// time; cmd/detector wires this to fleet.ModeAt for the
	// group this process serves.
	Mode func(now time.Time) fleet.Mode

	// PostWorkDue and PostWork run daily post-work once the window for
	// this process's group has just opened: PostWorkDue is normally
	// fleet.PostWorkDue, PostWork normally fleet.RunDailyPostWork, both
	// bound to this process's group/window.
	PostWorkDue func(now time.Time) bool
	PostWork    func(ctx context.Context) error

	RestrictType  string
	NumWorkers    int
	MinCycle      time.Duration
	MaxInterval   time.Duration
	ArchiveMaxAge time.Duration
	HeartbeatPath string

	// Metrics is optional; when nil, no metrics are recorded.
	Metrics *metrics.Metrics

	lastFetch        sync.Map // camera ID -> unix timestamp
	lastPostWorkDate string
	cycleCount       int64
}

// Run executes cycles until ctx is cancelled. It never returns nil except
// via ctx cancellation; exiting the process when the calendar day changes
// is the caller's responsibility, since it is a process-lifecycle decision,
// not a scheduling one.
func (s *Scheduler) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		now := time.Now()
		mode := s.Mode(now)

		if mode == fleet.ModeInactive {
			s.maybeRunPostWork(ctx, now)
			if !sleepOrDone(ctx, 60*time.Second) {
				return ctx.Err()
			}
			continue
		}

		start := time.Now()
		processed, err := s.runCycle(ctx, mode, now)
		if err != nil {
			log.Printf("scheduler: cycle error: %v", err)
		}
		elapsed := time.Since(start)
		if elapsed < s.MinCycle {
			if !sleepOrDone(ctx, s.MinCycle-elapsed) {
				return ctx.Err()
			}
		}

		if s.GC != nil {
			cutoff := now.Add(-s.ArchiveMaxAge).Unix()
			if removed, err := s.GC(ctx, cutoff); err != nil {
				log.Printf("scheduler: archive gc error: %v", err)
			} else {
				if removed > 0 {
					log.Printf("scheduler: archive gc removed %d files", removed)
				}
				if s.Metrics != nil {
					s.Metrics.RecordArchiveGC(removed)
				}
			}
		}

		if s.Metrics != nil {
			s.Metrics.ObserveCycle(string(mode), processed, elapsed.Seconds())
		}

		s.touchHeartbeat()

		count := atomic.AddInt64(&s.cycleCount, 1)
		if count%10 == 0 {
			log.Printf("scheduler: %d cycles complete, last cycle processed %d cameras in %s", count, processed, elapsed)
		}
	}
}

// runCycle lists due cameras, round-robins them onto N worker channels,
// runs the workers, and joins, for one cycle.
func (s *Scheduler) runCycle(ctx context.Context, mode fleet.Mode, now time.Time) (int, error) {
	cameras, err := s.Cameras.GetActiveCameras(ctx, s.RestrictType)
	if err != nil {
		return 0, fmt.Errorf("scheduler: list active cameras: %w", err)
	}

	channels := make([]chan *store.Camera, s.NumWorkers)
	for i := range channels {
		channels[i] = make(chan *store.Camera, channelBuffer)
	}

	nowUnix := now.Unix()
	maxIntervalSeconds := int64(s.MaxInterval.Seconds())
	for _, cam := range cameras {
		if v, ok := s.lastFetch.Load(cam.ID); ok {
			if nowUnix-v.(int64) < maxIntervalSeconds {
				continue
			}
		}

		idx, err := s.Counter.Increment(ctx, sourcesCounterName)
		if err != nil {
			log.Printf("scheduler: counter increment failed, defaulting camera %s to worker 0: %v", cam.ID, err)
			idx = 0
		}
		worker := int(idx % int64(s.NumWorkers))

		select {
		case channels[worker] <- cam:
		default:
			log.Printf("scheduler: worker %d queue full, dropping camera %s this cycle", worker, cam.ID)
			if s.Metrics != nil {
				s.Metrics.RecordQueueDrop()
			}
		}
	}
	for _, ch := range channels {
		close(ch)
	}

	var processed int64
	var wg sync.WaitGroup
	for i, ch := range channels {
		wg.Add(1)
		go func(workerID int, ch <-chan *store.Camera) {
			defer wg.Done()
			for cam := range ch {
				if err := s.processCamera(ctx, mode, cam, nowUnix); err != nil {
					log.Printf("scheduler: worker %d: camera %s: %v", workerID, cam.ID, err)
					continue
				}
				atomic.AddInt64(&processed, 1)
			}
		}(i, ch)
	}
	wg.Wait()

	return int(processed), nil
}

// processCamera fetches one camera's pending frame(s) and, in detect
// mode, runs the Detection Pipeline on each. The last-fetch timestamp is
// process-local, the same way the camera's last-seen hash is: neither
// needs cross-process coordination, so a missed cycle on one process is
// harmless.
func (s *Scheduler) processCamera(ctx context.Context, mode fleet.Mode, cam *store.Camera, now int64) error {
	defer s.lastFetch.Store(cam.ID, now)

	if cam.Type == "ptz" {
		result := s.Source.FetchPTZBatch(ctx, cam.ID, now)
		switch result.Kind {
		case imagesource.KindError:
			if s.Metrics != nil {
				s.Metrics.RecordFetchError("ptz_batch")
			}
			return fmt.Errorf("fetch ptz batch: %w", result.Err)
		case imagesource.KindNone:
			return nil
		}
		for _, f := range result.Frames {
			img := &store.ArchiveImage{CameraID: cam.ID, Heading: f.Heading, Timestamp: f.Timestamp, ImagePath: f.ImagePath, FieldOfView: f.FOV}
			if err := s.Archive.Insert(ctx, img); err != nil {
				return fmt.Errorf("archive insert: %w", err)
			}
			if mode == fleet.ModeDetect && s.Detect != nil {
				if err := s.Detect(ctx, cam, f); err != nil {
					log.Printf("scheduler: detect camera %s heading %.1f: %v", cam.ID, f.Heading, err)
				}
			}
			if err := s.Archive.MarkProcessed(ctx, cam.ID, f.Heading, f.Timestamp); err != nil {
				return fmt.Errorf("mark processed: %w", err)
			}
		}
		return nil
	}

	heading := 0.0
	if cam.FixedHeading != nil {
		heading = *cam.FixedHeading
	}
	result := s.Source.FetchLive(ctx, cam.ID, cam.URL, heading, cam.FieldOfView, now)
	switch result.Kind {
	case imagesource.KindError:
		if s.Metrics != nil {
			s.Metrics.RecordFetchError("live")
		}
		return fmt.Errorf("fetch live: %w", result.Err)
	case imagesource.KindNone:
		return nil
	}

	f := result.Frames[0]
	img := &store.ArchiveImage{CameraID: cam.ID, Heading: f.Heading, Timestamp: f.Timestamp, ImagePath: f.ImagePath, FieldOfView: f.FOV, Processed: true}
	if err := s.Archive.Insert(ctx, img); err != nil {
		return fmt.Errorf("archive insert: %w", err)
	}
	if mode == fleet.ModeDetect && s.Detect != nil {
		if err := s.Detect(ctx, cam, f); err != nil {
			log.Printf("scheduler: detect camera %s: %v", cam.ID, err)
		}
	}
	return nil
}

func (s *Scheduler) maybeRunPostWork(ctx context.Context, now time.Time) {
	if s.PostWorkDue == nil || s.PostWork == nil || !s.PostWorkDue(now) {
		return
	}
	today := now.Format("2006-01-02")
	if s.lastPostWorkDate == today {
		return
	}
	if err := s.PostWork(ctx); err != nil {
		log.Printf("scheduler: daily post-work failed: %v", err)
		return
	}
	s.lastPostWorkDate = today
}

func (s *Scheduler) touchHeartbeat() {
	if s.HeartbeatPath == "" {
		return
	}
	now := time.Now()
	if err := os.Chtimes(s.HeartbeatPath, now, now); err != nil {
		if !os.IsNotExist(err) {
			log.Printf("scheduler: heartbeat touch failed: %v", err)
			return
		}
		f, err := os.Create(s.HeartbeatPath)
		if err != nil {
			log.Printf("scheduler: heartbeat create failed: %v", err)
			return
		}
		f.Close()
	}
}

// sleepOrDone sleeps for d, returning false early if ctx is cancelled.
func sleepOrDone(ctx context.Context, d time.Duration) bool {
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
