// SPDX-License-Identifier: MIT
package pipeline

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the pipeline's Prometheus instruments.
type Metrics struct {
	Batches        prometheus.Counter
	Gated          prometheus.Counter
	Detections     *prometheus.CounterVec
	Published      *prometheus.CounterVec
	Suppressed     *prometheus.CounterVec
	Truncated      prometheus.Counter
	Ratio          prometheus.Gauge
	DetectDuration prometheus.Histogram

	// Spectrum instruments, only updated when the spectrum stage runs.
	DominantFrequency prometheus.Gauge
	InputLevel        prometheus.Gauge
	BandEnergy        *prometheus.GaugeVec
}

// NewMetrics registers the pipeline metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Batches: f.NewCounter(prometheus.CounterOpts{
			Name: "clapper_batches_total",
			Help: "Total number of acquisition bursts processed",
		}),
		Gated: f.NewCounter(prometheus.CounterOpts{
			Name: "clapper_gated_batches_total",
			Help: "Total number of bursts skipped by the amplitude gate",
		}),
		Detections: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clapper_detections_total",
			Help: "Total number of non-empty classifications by kind",
		}, []string{"kind"}),
		Published: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clapper_published_total",
			Help: "Total number of classifications handed to the renderer by kind",
		}, []string{"kind"}),
		Suppressed: f.NewCounterVec(prometheus.CounterOpts{
			Name: "clapper_suppressed_total",
			Help: "Total number of classifications not published by reason",
		}, []string{"reason"}),
		Truncated: f.NewCounter(prometheus.CounterOpts{
			Name: "clapper_peak_overflow_total",
			Help: "Total number of detection passes that ran out of peak capacity",
		}),
		Ratio: f.NewGauge(prometheus.GaugeOpts{
			Name: "clapper_peak_ratio",
			Help: "Peak average over noise floor from the last detection pass",
		}),
		DetectDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "clapper_detect_duration_seconds",
			Help:    "Time spent normalizing and classifying one window",
			Buckets: prometheus.ExponentialBuckets(0.0001, 2, 12),
		}),
		DominantFrequency: f.NewGauge(prometheus.GaugeOpts{
			Name: "clapper_dominant_frequency_hz",
			Help: "Strongest frequency component of the last burst",
		}),
		InputLevel: f.NewGauge(prometheus.GaugeOpts{
			Name: "clapper_input_rms",
			Help: "RMS level of the last burst as a fraction of full scale",
		}),
		BandEnergy: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "clapper_band_energy",
			Help: "RMS spectral magnitude of the last burst by band",
		}, []string{"band"}),
	}
}

// Renderer is the part of the animation controller the metrics watch.
type Renderer interface {
	Frames() uint64
	PushErrors() uint64
}

// WatchRenderer exposes the renderer's frame counters. They are read at
// scrape time so the rendering goroutine never touches Prometheus.
func WatchRenderer(reg prometheus.Registerer, r Renderer) {
	f := promauto.With(reg)
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "clapper_frames_total",
		Help: "Total number of frames pushed to the strip",
	}, func() float64 { return float64(r.Frames()) })
	f.NewCounterFunc(prometheus.CounterOpts{
		Name: "clapper_strip_errors_total",
		Help: "Total number of frames the strip driver rejected",
	}, func() float64 { return float64(r.PushErrors()) })
}
