package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Chat request outcomes, one per reply category.
const (
	OutcomeOK            = "ok"
	OutcomeInvalidInput  = "invalid_input"
	OutcomeMisconfigured = "misconfigured"
	OutcomeUpstreamError = "upstream_error"
	OutcomeEmptyResponse = "empty_response"
	OutcomeInternalError = "internal_error"
)

type Metrics struct {
	registry        *prometheus.Registry
	ChatRequests    *prometheus.CounterVec
	UpstreamLatency *prometheus.HistogramVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		ChatRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "relay_chat_requests_total",
			Help: "Chat requests by outcome",
		}, []string{"outcome"}),
		UpstreamLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "relay_upstream_latency_seconds",
			Help:    "Latency of Gemini generateContent calls",
			Buckets: prometheus.DefBuckets,
		}, []string{"status"}),
	}

	m.registry.MustRegister(
		m.ChatRequests,
		m.UpstreamLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveOutcome(outcome string) {
	m.ChatRequests.WithLabelValues(outcome).Inc()
}

// ObserveUpstream records one upstream call. status is the HTTP status, or 0
// when no response was received.
func (m *Metrics) ObserveUpstream(status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	m.UpstreamLatency.WithLabelValues(label).Observe(elapsed.Seconds())
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
