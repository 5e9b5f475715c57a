package classifier

import (
	"context"
	"image"
	"sync"
)

// FakeClient is a test double for Client that returns a fixed set of
// per-tile segments (or Err), counting in Calls how many tiles it was
// asked to classify.
type FakeClient struct {
	mu       sync.Mutex
	Segments []Segment
	Err      error
	Calls    int
}

func (f *FakeClient) Classify(ctx context.Context, tile image.Image) ([]Segment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Segments, nil
}
