package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Utterance outcomes.
const (
	OutcomeSuccess     = "success"
	OutcomeFailed      = "failed"
	OutcomeInterrupted = "interrupted"
)

// Metrics holds the playback collectors. A nil *Metrics is valid and records
// nothing.
type Metrics struct {
	logger   *zap.Logger
	registry *prometheus.Registry

	utterances        *prometheus.CounterVec
	segments          *prometheus.CounterVec
	fallbacks         *prometheus.CounterVec
	utteranceDuration *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg gets a fresh registry.
func New(reg *prometheus.Registry, logger *zap.Logger) *Metrics {
	if logger == nil {
		logger = zap.NewNop()
	}
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	m := &Metrics{
		logger:   logger,
		registry: reg,

		utterances: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tts_utterances_total",
				Help: "Number of speak requests by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),

		segments: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tts_segments_scheduled_total",
				Help: "Number of decoded audio segments scheduled for playback",
			},
			[]string{"provider"},
		),

		fallbacks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "tts_provider_fallbacks_total",
				Help: "Number of times a remote provider fell back to local synthesis",
			},
			[]string{"requested"},
		),

		utteranceDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "tts_utterance_duration_seconds",
				Help:    "Time from speak request to end of playback",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
	}

	reg.MustRegister(m.utterances, m.segments, m.fallbacks, m.utteranceDuration)
	return m
}

// RecordUtterance counts one finished speak request.
func (m *Metrics) RecordUtterance(provider, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.utterances.WithLabelValues(provider, outcome).Inc()
	if outcome == OutcomeSuccess {
		m.utteranceDuration.WithLabelValues(provider).Observe(elapsed.Seconds())
	}
}

func (m *Metrics) RecordSegment(provider string) {
	if m == nil {
		return
	}
	m.segments.WithLabelValues(provider).Inc()
}

func (m *Metrics) RecordFallback(requested string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(requested).Inc()
	m.logger.Debug("provider fallback recorded", zap.String("requested", requested))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
