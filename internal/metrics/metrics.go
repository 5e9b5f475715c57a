// Package metrics exposes the fleet's Prometheus metrics: one registry per
// process, pushed to directly from the Scheduler, Detection Pipeline, and
// Fleet Controller rather than scraped from an external collector, since
// this process owns all the state those components report on.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics bundles every counter and gauge the long-running binaries
// (detector, archiver) report to.
type Metrics struct {
	registry *prometheus.Registry

	cyclesTotal       prometheus.Counter
	camerasProcessed  *prometheus.CounterVec // label: mode
	fetchErrorsTotal  *prometheus.CounterVec // label: kind (live|ptz_batch)
	queueDroppedTotal prometheus.Counter
	cycleDuration     prometheus.Histogram

	pipelineStageTotal *prometheus.CounterVec // label: stage
	alertsPublished    prometheus.Counter
	alertsPublishFail  prometheus.Counter
	weatherFailures    prometheus.Counter

	archiveGCFilesRemoved prometheus.Counter
	fleetGroupSize        *prometheus.GaugeVec // label: group
}

// New builds a Metrics value with every series registered against a fresh
// registry.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{registry: reg}

	m.cyclesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "firecam_scheduler_cycles_total",
		Help: "Total scheduler cycles completed.",
	})
	reg.MustRegister(m.cyclesTotal)

	m.camerasProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "firecam_scheduler_cameras_processed_total",
		Help: "Cameras successfully fetched per cycle, by mode.",
	}, []string{"mode"})
	reg.MustRegister(m.camerasProcessed)

	m.fetchErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "firecam_imagesource_fetch_errors_total",
		Help: "Image fetch failures, by fetch kind.",
	}, []string{"kind"})
	reg.MustRegister(m.fetchErrorsTotal)

	m.queueDroppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "firecam_scheduler_queue_dropped_total",
		Help: "Cameras dropped this cycle because their worker channel was full.",
	})
	reg.MustRegister(m.queueDroppedTotal)

	m.cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "firecam_scheduler_cycle_duration_seconds",
		Help:    "Wall-clock duration of one scheduler cycle.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 8),
	})
	reg.MustRegister(m.cycleDuration)

	m.pipelineStageTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "firecam_pipeline_stage_total",
		Help: "Frames reaching each Detection Pipeline stage.",
	}, []string{"stage"})
	reg.MustRegister(m.pipelineStageTotal)

	m.alertsPublished = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "firecam_alerts_published_total",
		Help: "Alerts successfully published to the notification bus.",
	})
	reg.MustRegister(m.alertsPublished)

	m.alertsPublishFail = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "firecam_alerts_publish_failed_total",
		Help: "Alerts whose first publish attempt failed (left for republish).",
	})
	reg.MustRegister(m.alertsPublishFail)

	m.weatherFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "firecam_weather_score_failures_total",
		Help: "Weather scoring calls that degraded to the pass-through score.",
	})
	reg.MustRegister(m.weatherFailures)

	m.archiveGCFilesRemoved = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "firecam_archive_gc_files_removed_total",
		Help: "Archive image files removed by garbage collection.",
	})
	reg.MustRegister(m.archiveGCFilesRemoved)

	m.fleetGroupSize = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "firecam_fleet_group_target_size",
		Help: "Worker group target size last requested from the orchestrator, by group.",
	}, []string{"group"})
	reg.MustRegister(m.fleetGroupSize)

	return m
}

// Handler serves the registry in the Prometheus text exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) ObserveCycle(mode string, processed int, duration float64) {
	m.cyclesTotal.Inc()
	m.camerasProcessed.WithLabelValues(mode).Add(float64(processed))
	m.cycleDuration.Observe(duration)
}

func (m *Metrics) RecordFetchError(kind string) {
	m.fetchErrorsTotal.WithLabelValues(kind).Inc()
}

func (m *Metrics) RecordQueueDrop() {
	m.queueDroppedTotal.Inc()
}

func (m *Metrics) RecordStage(stage string) {
	m.pipelineStageTotal.WithLabelValues(stage).Inc()
}

func (m *Metrics) RecordPublish(success bool) {
	if success {
		m.alertsPublished.Inc()
		return
	}
	m.alertsPublishFail.Inc()
}

func (m *Metrics) RecordWeatherFailure() {
	m.weatherFailures.Inc()
}

func (m *Metrics) RecordArchiveGC(filesRemoved int) {
	m.archiveGCFilesRemoved.Add(float64(filesRemoved))
}

func (m *Metrics) SetFleetGroupSize(group string, size int) {
	m.fleetGroupSize.WithLabelValues(group).Set(float64(size))
}
