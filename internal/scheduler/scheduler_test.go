package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/open-climate-tech/firecam/internal/fleet"
	"github.com/open-climate-tech/firecam/internal/imagesource"
	"github.com/open-climate-tech/firecam/internal/store"
)

type fakeCameras struct {
	cams []*store.Camera
}

func (f *fakeCameras) GetActiveCameras(ctx context.Context, typeFilter string) ([]*store.Camera, error) {
	if typeFilter == "" {
		return f.cams, nil
	}
	var out []*store.Camera
	for _, c := range f.cams {
		if c.Type == typeFilter {
			out = append(out, c)
		}
	}
	return out, nil
}

type fakeCounter struct {
	mu  sync.Mutex
	val int64
}

func (f *fakeCounter) Increment(ctx context.Context, name string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	v := f.val
	f.val++
	return v, nil
}

type fakeSource struct {
	mu    sync.Mutex
	calls []string
}

func (f *fakeSource) FetchLive(ctx context.Context, cameraID, url string, heading, fov float64, now int64) imagesource.Result {
	f.mu.Lock()
	f.calls = append(f.calls, cameraID)
	f.mu.Unlock()
	return imagesource.Result{Kind: imagesource.KindLive, Frames: []imagesource.Frame{{ImagePath: "/tmp/x.jpg", Heading: heading, Timestamp: now, FOV: fov}}}
}

func (f *fakeSource) FetchPTZBatch(ctx context.Context, cameraID string, now int64) imagesource.Result {
	return imagesource.Result{Kind: imagesource.KindError, Err: errors.New("ptz batch unavailable")}
}

type fakeArchive struct {
	mu       sync.Mutex
	inserted []*store.ArchiveImage
}

func (f *fakeArchive) Insert(ctx context.Context, img *store.ArchiveImage) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inserted = append(f.inserted, img)
	return nil
}

func (f *fakeArchive) MarkProcessed(ctx context.Context, cameraID string, heading float64, timestamp int64) error {
	return nil
}

func newTestScheduler(cams []*store.Camera, source Source, archive Archive, detect DetectFunc) *Scheduler {
	return &Scheduler{
		Cameras:     &fakeCameras{cams: cams},
		Counter:     &fakeCounter{},
		Source:      source,
		Archive:     archive,
		Detect:      detect,
		NumWorkers:  2,
		MinCycle:    0,
		MaxInterval: time.Minute,
	}
}

func TestRunCycleFetchesEveryDueCamera(t *testing.T) {
	cams := []*store.Camera{
		{ID: "cam1", Type: "fixed", URL: "http://cam1"},
		{ID: "cam2", Type: "fixed", URL: "http://cam2"},
		{ID: "cam3", Type: "fixed", URL: "http://cam3"},
	}
	src := &fakeSource{}
	archive := &fakeArchive{}
	s := newTestScheduler(cams, src, archive, nil)

	processed, err := s.runCycle(context.Background(), fleet.ModeArchive, time.Now())
	if err != nil {
		t.Fatalf("runCycle returned error: %v", err)
	}
	if processed != 3 {
		t.Fatalf("processed = %d; want 3", processed)
	}
	if len(archive.inserted) != 3 {
		t.Fatalf("archive got %d inserts; want 3", len(archive.inserted))
	}
}

func TestRunCycleSkipsCameraFetchedWithinMaxInterval(t *testing.T) {
	cams := []*store.Camera{{ID: "cam1", Type: "fixed", URL: "http://cam1"}}
	src := &fakeSource{}
	archive := &fakeArchive{}
	s := newTestScheduler(cams, src, archive, nil)

	now := time.Now()
	s.lastFetch.Store("cam1", now.Unix())

	processed, err := s.runCycle(context.Background(), fleet.ModeArchive, now.Add(10*time.Second))
	if err != nil {
		t.Fatalf("runCycle returned error: %v", err)
	}
	if processed != 0 {
		t.Fatalf("processed = %d; want 0 (within MaxInterval)", processed)
	}
}

func TestRunCycleInvokesDetectOnlyInDetectMode(t *testing.T) {
	cams := []*store.Camera{{ID: "cam1", Type: "fixed", URL: "http://cam1"}}
	src := &fakeSource{}
	archive := &fakeArchive{}

	var detectCalls int
	var mu sync.Mutex
	detect := func(ctx context.Context, cam *store.Camera, frame imagesource.Frame) error {
		mu.Lock()
		detectCalls++
		mu.Unlock()
		return nil
	}

	s := newTestScheduler(cams, src, archive, detect)
	if _, err := s.runCycle(context.Background(), fleet.ModeArchive, time.Now()); err != nil {
		t.Fatalf("runCycle (archive mode) returned error: %v", err)
	}
	if detectCalls != 0 {
		t.Fatalf("detect called %d times in archive mode; want 0", detectCalls)
	}

	s.lastFetch = sync.Map{}
	if _, err := s.runCycle(context.Background(), fleet.ModeDetect, time.Now()); err != nil {
		t.Fatalf("runCycle (detect mode) returned error: %v", err)
	}
	if detectCalls != 1 {
		t.Fatalf("detect called %d times in detect mode; want 1", detectCalls)
	}
}

func TestRunCyclePropagatesFetchErrorWithoutAbortingOtherCameras(t *testing.T) {
	cams := []*store.Camera{
		{ID: "good", Type: "fixed", URL: "http://good"},
		{ID: "bad", Type: "ptz"},
	}
	src := &fakeSource{}
	archive := &fakeArchive{}
	s := newTestScheduler(cams, src, archive, nil)

	processed, err := s.runCycle(context.Background(), fleet.ModeArchive, time.Now())
	if err != nil {
		t.Fatalf("runCycle returned error: %v", err)
	}
	if processed != 1 {
		t.Fatalf("processed = %d; want 1 (the fixed camera; the ptz camera's batch fetch fails)", processed)
	}
}

func TestMaybeRunPostWorkRunsOnceADay(t *testing.T) {
	var runs int
	s := &Scheduler{
		PostWorkDue: func(now time.Time) bool { return true },
		PostWork: func(ctx context.Context) error {
			runs++
			return nil
		},
	}
	now := time.Date(2026, 8, 1, 21, 0, 0, 0, time.UTC)
	s.maybeRunPostWork(context.Background(), now)
	s.maybeRunPostWork(context.Background(), now.Add(time.Hour))
	if runs != 1 {
		t.Fatalf("post-work ran %d times; want 1 (same calendar day)", runs)
	}

	s.maybeRunPostWork(context.Background(), now.Add(24*time.Hour))
	if runs != 2 {
		t.Fatalf("post-work ran %d times after day rollover; want 2", runs)
	}
}
