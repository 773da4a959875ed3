// Package metrics 提供Prometheus指标
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 服务的全部指标
type Metrics struct {
	registry *prometheus.Registry

	// 对话指标
	TurnsTotal       *prometheus.CounterVec
	TurnDuration     prometheus.Histogram
	ProviderDuration *prometheus.HistogramVec
	ProviderErrors   *prometheus.CounterVec

	// 会话指标
	SessionsEvicted *prometheus.CounterVec

	// HTTP指标
	HTTPRequestsTotal *prometheus.CounterVec
}

// NewMetrics 创建并注册指标
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		TurnsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_turns_total",
				Help: "Total number of chat turns by outcome",
			},
			[]string{"status"},
		),
		TurnDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "relay_turn_duration_seconds",
				Help:    "Duration of a full chat turn in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		ProviderDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "relay_provider_request_duration_seconds",
				Help:    "Duration of completion provider requests in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"provider"},
		),
		ProviderErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_provider_errors_total",
				Help: "Total number of failed completion provider requests",
			},
			[]string{"provider"},
		),
		SessionsEvicted: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_sessions_evicted_total",
				Help: "Total number of sessions evicted from the store",
			},
			[]string{"reason"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "relay_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "code"},
		),
	}

	registry.MustRegister(
		m.TurnsTotal,
		m.TurnDuration,
		m.ProviderDuration,
		m.ProviderErrors,
		m.SessionsEvicted,
		m.HTTPRequestsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// RegisterSessionGauge 注册当前会话数的GaugeFunc
func (m *Metrics) RegisterSessionGauge(count func() float64) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "relay_sessions_active",
			Help: "Number of sessions currently held by the store",
		},
		count,
	))
}

// Registry 返回底层注册表
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回/metrics处理器
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
