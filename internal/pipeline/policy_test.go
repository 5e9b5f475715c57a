package pipeline

import (
	"context"
	"errors"
	"image"
	"testing"
)

func TestDetectAlwaysReturnsOneDetection(t *testing.T) {
	p := DetectAlways()
	spec := ImageSpec{ROI: image.Rect(0, 0, 100, 100)}
	got, err := p.Detect(context.Background(), spec)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d detections; want 1", len(got))
	}
}

func TestDetectNeverReturnsNone(t *testing.T) {
	p := DetectNever()
	got, err := p.Detect(context.Background(), ImageSpec{})
	if err != nil || len(got) != 0 {
		t.Fatalf("Detect = (%v, %v); want (nil, nil)", got, err)
	}
}

type fakePriorFetcher struct {
	img image.Image
	err error
}

func (f *fakePriorFetcher) FetchPriorAligned(ctx context.Context, cameraID string, heading float64, timestamp int64) (image.Image, error) {
	return f.img, f.err
}

func solidImage(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestDetectDiffFlagsLargeDifference(t *testing.T) {
	current := solidImage(50, 50, 200)
	fetcher := &fakePriorFetcher{img: solidImage(50, 50, 10)}
	policy := NewDetectDiff(fetcher)

	spec := ImageSpec{CameraID: "cam1", Heading: 90, Image: current, ROI: current.Bounds()}
	got, err := policy.Detect(context.Background(), spec)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d detections; want 1", len(got))
	}
}

func TestDetectDiffIgnoresSmallDifference(t *testing.T) {
	current := solidImage(50, 50, 100)
	fetcher := &fakePriorFetcher{img: solidImage(50, 50, 105)}
	policy := NewDetectDiff(fetcher)

	spec := ImageSpec{CameraID: "cam1", Heading: 90, Image: current, ROI: current.Bounds()}
	got, err := policy.Detect(context.Background(), spec)
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d detections; want 0", len(got))
	}
}

func TestDetectDiffSkipsOnFetchError(t *testing.T) {
	fetcher := &fakePriorFetcher{err: errors.New("no prior image")}
	policy := NewDetectDiff(fetcher)

	got, err := policy.Detect(context.Background(), ImageSpec{Image: solidImage(10, 10, 1), ROI: image.Rect(0, 0, 10, 10)})
	if err != nil || len(got) != 0 {
		t.Fatalf("Detect = (%v, %v); want (nil, nil) on fetch failure", got, err)
	}
}

func TestDetectMultiRequiresBothPoliciesToAgree(t *testing.T) {
	main := DetectAlways()

	confirmCalled := false
	confirm := &DetectionPolicy{
		Name: "confirm",
		Detect: func(ctx context.Context, spec ImageSpec) ([]Detection, error) {
			confirmCalled = true
			return nil, nil
		},
	}

	multi := DetectMulti(main, confirm)
	got, err := multi.Detect(context.Background(), ImageSpec{ROI: image.Rect(0, 0, 10, 10)})
	if err != nil {
		t.Fatalf("Detect returned error: %v", err)
	}
	if !confirmCalled {
		t.Fatal("confirm policy was never invoked")
	}
	if len(got) != 0 {
		t.Fatalf("got %d detections; want 0 when confirm finds nothing", len(got))
	}
}
