package store_test

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/open-climate-tech/firecam/internal/store"
)

func TestImagesInRangeExcludesSentinelHeading(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"camera_id", "heading", "timestamp", "image_path", "field_of_view", "processed"}).
		AddRow("cam-1", 90.0, int64(1000), "/archive/cam-1-90-1000.jpg", 60.0, true)

	mock.ExpectQuery("SELECT camera_id, heading, timestamp, image_path, field_of_view, processed FROM archive_images").
		WithArgs("cam-1", int64(500), int64(1500), store.SentinelHeading).
		WillReturnRows(rows)

	st := store.New(db)
	images, err := st.Archive.ImagesInRange(context.Background(), "cam-1", 500, 1500)
	if err != nil {
		t.Fatalf("ImagesInRange returned error: %v", err)
	}
	if len(images) != 1 || images[0].ImagePath != "/archive/cam-1-90-1000.jpg" {
		t.Fatalf("unexpected rows: %+v", images)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestImagesInRangeReturnsEmptyWhenNoRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{"camera_id", "heading", "timestamp", "image_path", "field_of_view", "processed"})
	mock.ExpectQuery("SELECT camera_id, heading, timestamp, image_path, field_of_view, processed FROM archive_images").
		WithArgs("cam-2", int64(0), int64(10), store.SentinelHeading).
		WillReturnRows(rows)

	st := store.New(db)
	images, err := st.Archive.ImagesInRange(context.Background(), "cam-2", 0, 10)
	if err != nil {
		t.Fatalf("ImagesInRange returned error: %v", err)
	}
	if len(images) != 0 {
		t.Fatalf("expected no rows, got %+v", images)
	}
}
