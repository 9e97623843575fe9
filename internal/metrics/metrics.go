// Package metrics exposes Prometheus counters and histograms for chat turns,
// model calls and session persistence.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "memchat"

// Turn outcomes.
const (
	OutcomeOK            = "ok"
	OutcomeModelError    = "model_error"
	OutcomeEmptyResponse = "empty_response"
)

// Metrics holds the collectors of one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	Turns        *prometheus.CounterVec
	ModelLatency *prometheus.HistogramVec
	SessionOps   *prometheus.CounterVec
	Matches      *prometheus.CounterVec
	PromptBytes  prometheus.Histogram
}

// New registers the collectors on a fresh registry, together with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		Turns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "turns_total",
				Help:      "Chat turns by variant and outcome",
			},
			[]string{"variant", "outcome"},
		),
		ModelLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "model_request_duration_seconds",
				Help:      "Model generate call latency",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
			[]string{"provider"},
		),
		SessionOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "session_operations_total",
				Help:      "Session store operations by kind and result",
			},
			[]string{"op", "result"}, // op: save|load|list, result: ok|error
		),
		Matches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "reference_matches_total",
				Help:      "Telecom reference lookups by match kind",
			},
			[]string{"kind"},
		),
		PromptBytes: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "prompt_size_bytes",
				Help:      "Size of composed prompts",
				Buckets:   prometheus.ExponentialBuckets(256, 2, 10),
			},
		),
	}
}

func (m *Metrics) ObserveTurn(variant, outcome string) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(variant, outcome).Inc()
}

func (m *Metrics) ObserveModel(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.ModelLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// ObserveSessionOp counts a session store call; err decides the result label.
func (m *Metrics) ObserveSessionOp(op string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.SessionOps.WithLabelValues(op, result).Inc()
}

func (m *Metrics) ObserveMatch(kind string) {
	if m == nil {
		return
	}
	m.Matches.WithLabelValues(kind).Inc()
}

func (m *Metrics) ObservePrompt(size int) {
	if m == nil {
		return
	}
	m.PromptBytes.Observe(float64(size))
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
