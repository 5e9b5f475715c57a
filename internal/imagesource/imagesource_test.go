package imagesource

import (
	"context"
	"testing"
)

type fakeFetcher struct {
	body []byte
	err  error
}

func (f *fakeFetcher) FetchSnapshot(ctx context.Context, url string) ([]byte, error) {
	return f.body, f.err
}

type fakeArchive struct {
	frames []Frame
	err    error
}

func (f *fakeArchive) UnprocessedSince(ctx context.Context, cameraID string, since int64) ([]Frame, error) {
	return f.frames, f.err
}

func noopSave(cameraID string, heading float64, ts int64, data []byte) (string, error) {
	return "/tmp/fake.jpg", nil
}

func TestFetchLiveDedupesUnchangedFrame(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte("frame-1")}
	src, err := New(fetcher, &fakeArchive{}, 10, noopSave)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}

	first := src.FetchLive(context.Background(), "cam1", "http://x", 90, 110, 1000)
	if first.Kind != KindLive {
		t.Fatalf("first fetch Kind = %v; want KindLive", first.Kind)
	}

	second := src.FetchLive(context.Background(), "cam1", "http://x", 90, 110, 1010)
	if second.Kind != KindNone {
		t.Errorf("second fetch (unchanged content) Kind = %v; want KindNone", second.Kind)
	}
}

func TestFetchLiveChangedContentNotDeduped(t *testing.T) {
	fetcher := &fakeFetcher{body: []byte("frame-1")}
	src, err := New(fetcher, &fakeArchive{}, 10, noopSave)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	src.FetchLive(context.Background(), "cam1", "http://x", 90, 110, 1000)

	fetcher.body = []byte("frame-2")
	second := src.FetchLive(context.Background(), "cam1", "http://x", 90, 110, 1010)
	if second.Kind != KindLive {
		t.Errorf("changed-content fetch Kind = %v; want KindLive", second.Kind)
	}
}

func TestFetchPTZBatchEmptyYieldsNone(t *testing.T) {
	src, err := New(&fakeFetcher{}, &fakeArchive{}, 10, noopSave)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	result := src.FetchPTZBatch(context.Background(), "ptz1", 1000)
	if result.Kind != KindNone {
		t.Errorf("Kind = %v; want KindNone", result.Kind)
	}
}

func TestFetchPTZBatchReturnsFrames(t *testing.T) {
	frames := []Frame{{ImagePath: "a.jpg", Heading: 10, Timestamp: 900}}
	src, err := New(&fakeFetcher{}, &fakeArchive{frames: frames}, 10, noopSave)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	result := src.FetchPTZBatch(context.Background(), "ptz1", 1000)
	if result.Kind != KindPTZBatch {
		t.Fatalf("Kind = %v; want KindPTZBatch", result.Kind)
	}
	if len(result.Frames) != 1 {
		t.Errorf("len(Frames) = %d; want 1", len(result.Frames))
	}
}
