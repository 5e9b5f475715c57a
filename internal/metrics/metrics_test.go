package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestHandlerExposesRecordedSeries(t *testing.T) {
	m := New()
	m.ObserveCycle("detect", 3, 1.5)
	m.RecordFetchError("live")
	m.RecordQueueDrop()
	m.RecordStage("published")
	m.RecordPublish(true)
	m.RecordPublish(false)
	m.RecordWeatherFailure()
	m.RecordArchiveGC(2)
	m.SetFleetGroupSize("dayshift", 6)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	for _, want := range []string{
		"firecam_scheduler_cycles_total 1",
		`firecam_scheduler_cameras_processed_total{mode="detect"} 3`,
		`firecam_imagesource_fetch_errors_total{kind="live"} 1`,
		"firecam_scheduler_queue_dropped_total 1",
		`firecam_pipeline_stage_total{stage="published"} 1`,
		"firecam_alerts_published_total 1",
		"firecam_alerts_publish_failed_total 1",
		"firecam_weather_score_failures_total 1",
		"firecam_archive_gc_files_removed_total 2",
		`firecam_fleet_group_target_size{group="dayshift"} 6`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("metrics output missing %q", want)
		}
	}
}
