// Package metrics exposes frame pipeline counters over Prometheus.
package metrics

import (
	"net/http"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the application counters. The atomic fields are bumped from
// the hot frame path; Prometheus reads them lazily on scrape.
type Metrics struct {
	FramesProcessed atomic.Uint64
	FramesSkipped   atomic.Uint64
	DecodeErrors    atomic.Uint64
	RecordsSaved    atomic.Uint64

	registry *prometheus.Registry
}

// New creates a Metrics instance. activeClients is sampled on every scrape
// for the connected-clients gauge; it may be nil.
func New(activeClients func() float64) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
	}

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "countcam_frames_processed_total",
			Help: "Total frames decoded and processed",
		},
		func() float64 { return float64(m.FramesProcessed.Load()) },
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "countcam_frames_skipped_total",
			Help: "Total frames dropped because a previous frame was in flight",
		},
		func() float64 { return float64(m.FramesSkipped.Load()) },
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "countcam_frame_decode_errors_total",
			Help: "Total frames rejected as undecodable",
		},
		func() float64 { return float64(m.DecodeErrors.Load()) },
	))
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "countcam_records_saved_total",
			Help: "Total processing records persisted",
		},
		func() float64 { return float64(m.RecordsSaved.Load()) },
	))
	if activeClients != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "countcam_active_clients",
				Help: "Currently registered clients",
			},
			activeClients,
		))
	}

	return m
}

// Handler returns the HTTP handler serving the Prometheus scrape endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
