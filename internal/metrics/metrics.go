// Package metrics exposes pipeline counters in the Prometheus format. A nil
// *Metrics is valid and records nothing.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains all Prometheus metrics for the dictation pipeline
type Metrics struct {
	registry *prometheus.Registry

	// Capture metrics
	FramesRead     prometheus.Counter
	NoiseThreshold prometheus.Gauge

	// Segmentation metrics
	UtterancesSealed  *prometheus.CounterVec
	UtteranceDuration prometheus.Histogram
	PublishWait       prometheus.Histogram

	// Transcription metrics
	Transcriptions        *prometheus.CounterVec
	TranscriptionDuration prometheus.Histogram
}

// New creates all metrics on a private registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,

		FramesRead: factory.NewCounter(prometheus.CounterOpts{
			Name: "dictate_frames_read_total",
			Help: "Total number of audio frames read from the capture device",
		}),
		NoiseThreshold: factory.NewGauge(prometheus.GaugeOpts{
			Name: "dictate_noise_threshold",
			Help: "Volume at or above which a frame counts as speech",
		}),

		UtterancesSealed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dictate_utterances_sealed_total",
			Help: "Total number of utterances sealed, by reason",
		}, []string{"reason"}),
		UtteranceDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dictate_utterance_duration_seconds",
			Help:    "Audio length of sealed utterances",
			Buckets: []float64{0.5, 1, 2, 4, 8, 15, 30, 60},
		}),
		PublishWait: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dictate_handoff_publish_wait_seconds",
			Help:    "Time the capture unit waited for the handoff slot to free up",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}),

		Transcriptions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "dictate_transcriptions_total",
			Help: "Total number of transcription attempts, by result",
		}, []string{"result"}),
		TranscriptionDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "dictate_transcription_duration_seconds",
			Help:    "Time spent in the transcription engine per utterance",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
	}
}

func (m *Metrics) FrameRead() {
	if m == nil {
		return
	}
	m.FramesRead.Inc()
}

func (m *Metrics) SetThreshold(v float64) {
	if m == nil {
		return
	}
	m.NoiseThreshold.Set(v)
}

func (m *Metrics) UtteranceSealed(reason string, d time.Duration) {
	if m == nil {
		return
	}
	m.UtterancesSealed.WithLabelValues(reason).Inc()
	m.UtteranceDuration.Observe(d.Seconds())
}

func (m *Metrics) Published(wait time.Duration) {
	if m == nil {
		return
	}
	m.PublishWait.Observe(wait.Seconds())
}

func (m *Metrics) Transcribed(err error, d time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.Transcriptions.WithLabelValues(result).Inc()
	m.TranscriptionDuration.Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done.
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
