package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := NewMetrics()

	m.TurnsTotal.WithLabelValues("ok").Inc()
	m.TurnsTotal.WithLabelValues("ok").Inc()
	m.TurnsTotal.WithLabelValues("provider_error").Inc()
	m.SessionsEvicted.WithLabelValues("expired").Add(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.TurnsTotal.WithLabelValues("provider_error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.SessionsEvicted.WithLabelValues("expired")))
}

func TestMetrics_Handler(t *testing.T) {
	m := NewMetrics()
	m.RegisterSessionGauge(func() float64 { return 7 })
	m.ProviderDuration.WithLabelValues("openai").Observe(0.2)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, "relay_sessions_active 7")
	assert.Contains(t, body, `relay_provider_request_duration_seconds_count{provider="openai"} 1`)
}
