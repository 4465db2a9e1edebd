package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal    *prometheus.CounterVec
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge

	LLMRequestsTotal   *prometheus.CounterVec
	LLMRequestDuration *prometheus.HistogramVec

	GenerationsTotal *prometheus.CounterVec
	StoreErrorsTotal *prometheus.CounterVec
	CopiesTotal      *prometheus.CounterVec

	RateLimitHitsTotal *prometheus.CounterVec
}

// New регистрирует всё в собственном registry, поэтому в тестах можно вызывать сколько угодно раз.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		registry: reg,

		RequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fantasy_tales_http_requests_total",
				Help: "Total number of HTTP requests processed",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fantasy_tales_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"method", "path"},
		),
		RequestsInFlight: f.NewGauge(
			prometheus.GaugeOpts{
				Name: "fantasy_tales_http_requests_in_flight",
				Help: "Number of requests currently being processed",
			},
		),

		LLMRequestsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fantasy_tales_llm_requests_total",
				Help: "Total number of upstream chat completion requests",
			},
			[]string{"provider", "status"},
		),
		LLMRequestDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fantasy_tales_llm_request_duration_seconds",
				Help:    "Upstream chat completion duration in seconds",
				Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60},
			},
			[]string{"provider"},
		),

		GenerationsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fantasy_tales_generations_total",
				Help: "Story generation attempts by outcome",
			},
			[]string{"outcome"},
		),
		StoreErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fantasy_tales_store_errors_total",
				Help: "History store failures by operation",
			},
			[]string{"op"},
		),
		CopiesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fantasy_tales_clipboard_copies_total",
				Help: "Clipboard copy attempts by outcome",
			},
			[]string{"outcome"},
		),

		RateLimitHitsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fantasy_tales_rate_limit_hits_total",
				Help: "Total number of rate limit hits",
			},
			[]string{"source"},
		),
	}
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

func (m *Metrics) RecordRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

func (m *Metrics) RecordLLMRequest(provider, status string, duration time.Duration) {
	m.LLMRequestsTotal.WithLabelValues(provider, status).Inc()
	m.LLMRequestDuration.WithLabelValues(provider).Observe(duration.Seconds())
}

func (m *Metrics) RecordGeneration(outcome string) {
	m.GenerationsTotal.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordStoreError(op string) {
	m.StoreErrorsTotal.WithLabelValues(op).Inc()
}

func (m *Metrics) RecordCopy(outcome string) {
	m.CopiesTotal.WithLabelValues(outcome).Inc()
}

// source - "http" или "telegram"
func (m *Metrics) RecordRateLimitHit(source string) {
	m.RateLimitHitsTotal.WithLabelValues(source).Inc()
}

func (m *Metrics) IncRequestsInFlight() {
	m.RequestsInFlight.Inc()
}

func (m *Metrics) DecRequestsInFlight() {
	m.RequestsInFlight.Dec()
}
