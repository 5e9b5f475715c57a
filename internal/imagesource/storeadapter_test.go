package imagesource

import (
	"context"
	"testing"

	"github.com/open-climate-tech/firecam/internal/store"
)

type fakeArchiveStoreRows struct {
	rows []*store.ArchiveImage
}

func (f *fakeArchiveStoreRows) UnprocessedSince(ctx context.Context, cameraID string, since int64) ([]*store.ArchiveImage, error) {
	return f.rows, nil
}

func TestStoreArchiveRowsConvertsToFrames(t *testing.T) {
	repo := &fakeArchiveStoreRows{rows: []*store.ArchiveImage{
		{CameraID: "cam1", Heading: 90, Timestamp: 100, ImagePath: "a.jpg", FieldOfView: 30},
	}}
	a := &StoreArchiveRows{Repo: repo}

	frames, err := a.UnprocessedSince(context.Background(), "cam1", 0)
	if err != nil {
		t.Fatalf("UnprocessedSince returned error: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("got %d frames; want 1", len(frames))
	}
	want := Frame{ImagePath: "a.jpg", Heading: 90, Timestamp: 100, FOV: 30}
	if frames[0] != want {
		t.Fatalf("frame = %+v; want %+v", frames[0], want)
	}
}
