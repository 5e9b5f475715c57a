// Package imagesource fetches the next image for a camera, either a
// single live frame or a batch of pending PTZ archive rows, deduplicating
// unchanged live frames by content hash.
package imagesource

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Kind tags the shape of a Fetch result.
type Kind int

const (
	KindNone Kind = iota
	KindLive
	KindPTZBatch
	KindError
)

// Frame is one fetched image and its metadata.
type Frame struct {
	ImagePath string
	Heading   float64
	Timestamp int64
	FOV       float64
}

// Result is the outcome of one Fetch call.
type Result struct {
	Kind   Kind
	Frames []Frame
	Err    error
}

// HTTPFetcher downloads the current frame from a camera's snapshot URL.
// Implementations must be safe for concurrent use across cameras.
type HTTPFetcher interface {
	FetchSnapshot(ctx context.Context, url string) ([]byte, error)
}

type httpFetcher struct {
	client *http.Client
}

// NewHTTPFetcher builds the default HTTPFetcher, with a bounded timeout
// matching the classifier client's style (internal/classifier.Client).
func NewHTTPFetcher() HTTPFetcher {
	return &httpFetcher{client: &http.Client{Timeout: 15 * time.Second}}
}

func (f *httpFetcher) FetchSnapshot(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("imagesource: build request: %w", err)
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("imagesource: fetch failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imagesource: unexpected status %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// ArchiveRows is the subset of store.ArchiveRepo the PTZ batch path needs.
type ArchiveRows interface {
	UnprocessedSince(ctx context.Context, cameraID string, since int64) ([]Frame, error)
}

// Source fetches frames for fixed and PTZ cameras, deduplicating unchanged
// live snapshots by content hash.
type Source struct {
	fetcher HTTPFetcher
	archive ArchiveRows
	hashes  *lru.Cache[string, string]
	saveDir func(cameraID string, heading float64, ts int64, data []byte) (string, error)
}

func New(fetcher HTTPFetcher, archive ArchiveRows, maxCameras int, saveDir func(string, float64, int64, []byte) (string, error)) (*Source, error) {
	cache, err := lru.New[string, string](maxCameras)
	if err != nil {
		return nil, fmt.Errorf("imagesource: build dedup cache: %w", err)
	}
	return &Source{fetcher: fetcher, archive: archive, hashes: cache, saveDir: saveDir}, nil
}

// FetchLive retrieves the current snapshot for a fixed camera, returning
// KindNone if the content hash matches the last frame seen for that
// camera.
func (s *Source) FetchLive(ctx context.Context, cameraID, url string, heading, fov float64, now int64) Result {
	body, err := s.fetcher.FetchSnapshot(ctx, url)
	if err != nil {
		return Result{Kind: KindError, Err: err}
	}

	sum := sha256.Sum256(body)
	hash := hex.EncodeToString(sum[:])
	if prev, ok := s.hashes.Get(cameraID); ok && prev == hash {
		return Result{Kind: KindNone}
	}
	s.hashes.Add(cameraID, hash)

	path, err := s.saveDir(cameraID, heading, now, body)
	if err != nil {
		return Result{Kind: KindError, Err: fmt.Errorf("imagesource: save frame: %w", err)}
	}

	return Result{Kind: KindLive, Frames: []Frame{{ImagePath: path, Heading: heading, Timestamp: now, FOV: fov}}}
}

// FetchPTZBatch drains unprocessed archive rows from the last 5 minutes
// for a PTZ camera.
func (s *Source) FetchPTZBatch(ctx context.Context, cameraID string, now int64) Result {
	since := now - 5*60
	frames, err := s.archive.UnprocessedSince(ctx, cameraID, since)
	if err != nil {
		return Result{Kind: KindError, Err: err}
	}
	if len(frames) == 0 {
		return Result{Kind: KindNone}
	}
	return Result{Kind: KindPTZBatch, Frames: frames}
}
