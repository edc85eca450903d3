package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the survey service's Prometheus collectors. All methods are safe
// to call on a nil receiver.
type Metrics struct {
	SessionsStarted    *prometheus.CounterVec
	SessionsCompleted  prometheus.Counter
	Turns              *prometheus.CounterVec
	TurnDuration       prometheus.Histogram
	CollaboratorErrors *prometheus.CounterVec
	ResolveWarnings    prometheus.Counter
	LLMCalls           *prometheus.CounterVec
	LLMLatency         *prometheus.HistogramVec
}

func NewMetrics(registry prometheus.Registerer) *Metrics {
	factory := promauto.With(registry)

	return &Metrics{
		SessionsStarted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "survey_sessions_started_total",
				Help: "Start requests, by whether a new session was created",
			},
			[]string{"created"},
		),
		SessionsCompleted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "survey_sessions_completed_total",
				Help: "Sessions that reached the end of the questionnaire",
			},
		),
		Turns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "survey_turns_total",
				Help: "Processed turns by result kind",
			},
			[]string{"kind"},
		),
		TurnDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "survey_turn_duration_seconds",
				Help:    "Turn processing duration including collaborator calls",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
		),
		CollaboratorErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "survey_turn_errors_total",
				Help: "Failed turns by stage",
			},
			[]string{"stage"},
		),
		ResolveWarnings: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "survey_resolve_warnings_total",
				Help: "Placeholder or option resolution warnings",
			},
		),
		LLMCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "survey_llm_calls_total",
				Help: "LLM generation calls",
			},
			[]string{"model", "success"},
		),
		LLMLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "survey_llm_latency_seconds",
				Help:    "LLM generation latency in seconds",
				Buckets: []float64{0.1, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
			},
			[]string{"model"},
		),
	}
}

// NewRegistry creates a fresh registry with the survey metrics registered.
func NewRegistry() (*prometheus.Registry, *Metrics) {
	reg := prometheus.NewRegistry()
	return reg, NewMetrics(reg)
}

func HandlerFor(reg prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordSessionStart(created bool) {
	if m == nil {
		return
	}
	m.SessionsStarted.WithLabelValues(boolLabel(created)).Inc()
}

func (m *Metrics) RecordSessionCompleted() {
	if m == nil {
		return
	}
	m.SessionsCompleted.Inc()
}

func (m *Metrics) RecordTurn(kind string, d time.Duration) {
	if m == nil {
		return
	}
	m.Turns.WithLabelValues(kind).Inc()
	m.TurnDuration.Observe(d.Seconds())
}

func (m *Metrics) RecordTurnError(stage string) {
	if m == nil {
		return
	}
	m.CollaboratorErrors.WithLabelValues(stage).Inc()
}

func (m *Metrics) RecordResolveWarnings(n int) {
	if m == nil || n == 0 {
		return
	}
	m.ResolveWarnings.Add(float64(n))
}

func (m *Metrics) RecordLLMCall(model string, success bool, d time.Duration) {
	if m == nil {
		return
	}
	m.LLMCalls.WithLabelValues(model, boolLabel(success)).Inc()
	m.LLMLatency.WithLabelValues(model).Observe(d.Seconds())
}

func boolLabel(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
