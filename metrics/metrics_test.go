package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg, zap.NewNop())

	m.RecordUtterance("xunfei", OutcomeSuccess, 1500*time.Millisecond)
	m.RecordUtterance("xunfei", OutcomeFailed, time.Second)
	m.RecordUtterance("local", OutcomeInterrupted, 0)
	m.RecordSegment("xunfei")
	m.RecordSegment("xunfei")
	m.RecordFallback("yandex")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.utterances.WithLabelValues("xunfei", OutcomeSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.utterances.WithLabelValues("xunfei", OutcomeFailed)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.segments.WithLabelValues("xunfei")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.fallbacks.WithLabelValues("yandex")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.utteranceDuration))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordUtterance("local", OutcomeSuccess, time.Second)
		m.RecordSegment("local")
		m.RecordFallback("xunfei")
	})
}

func TestHandler(t *testing.T) {
	m := New(prometheus.NewRegistry(), nil)
	m.RecordSegment("yandex")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `tts_segments_scheduled_total{provider="yandex"} 1`))
}
