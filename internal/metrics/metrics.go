// Package metrics records per-run conversion counters.
//
// A batch run is short-lived, so nothing is served over HTTP; the registry
// is written once at the end in the node_exporter textfile format.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Stage labels
const (
	StageTags    = "tags"
	StageProbe   = "probe"
	StageRender  = "render"
	StageEncode  = "encode"
	StageVerify  = "verify"
	StagePublish = "publish"
)

// Metrics is safe to use through a nil pointer; every call is then a no-op.
type Metrics struct {
	registry *prometheus.Registry
	tracks   *prometheus.CounterVec
	stages   *prometheus.HistogramVec
	lastRun  prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tracks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mp3vid_tracks_total",
				Help: "Tracks handled, by outcome",
			},
			[]string{"status"},
		),
		stages: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "mp3vid_stage_duration_seconds",
				Help:    "Time spent per pipeline stage",
				Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 15, 60, 300, 900},
			},
			[]string{"stage"},
		),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mp3vid_last_run_timestamp_seconds",
			Help: "Unix time the last run finished",
		}),
	}
	m.registry.MustRegister(m.tracks, m.stages, m.lastRun)
	return m
}

// Track counts one track with the given status.
func (m *Metrics) Track(status string) {
	if m == nil {
		return
	}
	m.tracks.WithLabelValues(status).Inc()
}

// Stage starts timing stage; call the returned func when it ends.
func (m *Metrics) Stage(stage string) func() {
	if m == nil {
		return func() {}
	}
	timer := prometheus.NewTimer(m.stages.WithLabelValues(stage))
	return func() { timer.ObserveDuration() }
}

// Finish stamps the run completion time.
func (m *Metrics) Finish(t time.Time) {
	if m == nil {
		return
	}
	m.lastRun.Set(float64(t.Unix()))
}

// WriteTextfile writes all metrics to path atomically.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}
