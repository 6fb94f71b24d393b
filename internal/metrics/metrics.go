// Package metrics records pipeline metrics on a private Prometheus registry.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Stage labels.
const (
	StageIntent    = "intent"
	StageInterpret = "interpret"
	StageExecute   = "execute"
	StageNarrate   = "narrate"
	StageConsist   = "consistency"
	StageCampaign  = "campaign"
	StageSpeech    = "speech"
)

// Metrics holds the collectors for one process. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	stageDuration      *prometheus.HistogramVec
	llmFailures        *prometheus.CounterVec
	validationAttempts prometheus.Histogram
	invalidEvents      prometheus.Counter
	rolls              *prometheus.CounterVec
	turns              *prometheus.CounterVec
	narrativeChecks    *prometheus.CounterVec
}

// New creates and registers the collectors.
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		stageDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "dm_stage_duration_seconds",
				Help:    "Duration of pipeline stages",
				Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
			},
			[]string{"stage"},
		),
		llmFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dm_llm_failures_total",
				Help: "Model calls that failed or returned unusable output",
			},
			[]string{"stage"},
		),
		validationAttempts: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "dm_validation_attempts",
				Help:    "Interpretation attempts needed per turn",
				Buckets: []float64{1, 2, 3, 4, 5, 10},
			},
		),
		invalidEvents: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "dm_invalid_events_total",
				Help: "Events rejected by target validation",
			},
		),
		rolls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dm_rolls_total",
				Help: "Ability check rolls by outcome",
			},
			[]string{"outcome"},
		),
		turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dm_turns_total",
				Help: "Turns processed by result",
			},
			[]string{"result"},
		),
		narrativeChecks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "dm_narrative_checks_total",
				Help: "Narrative consistency verdicts",
			},
			[]string{"verdict"},
		),
	}
	m.registry.MustRegister(
		m.stageDuration,
		m.llmFailures,
		m.validationAttempts,
		m.invalidEvents,
		m.rolls,
		m.turns,
		m.narrativeChecks,
	)
	return m
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry for tests and extra collectors.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// ObserveStage records how long a stage took.
func (m *Metrics) ObserveStage(stage string, d time.Duration) {
	if m == nil {
		return
	}
	m.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// Time returns a func that records the elapsed time for stage when called.
func (m *Metrics) Time(stage string) func() {
	start := time.Now()
	return func() { m.ObserveStage(stage, time.Since(start)) }
}

func (m *Metrics) LLMFailure(stage string) {
	if m == nil {
		return
	}
	m.llmFailures.WithLabelValues(stage).Inc()
}

func (m *Metrics) ValidationAttempts(n int) {
	if m == nil {
		return
	}
	m.validationAttempts.Observe(float64(n))
}

func (m *Metrics) InvalidEvents(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.invalidEvents.Add(float64(n))
}

// Roll counts a check by outcome ("success" or "failure").
func (m *Metrics) Roll(outcome string) {
	if m == nil {
		return
	}
	m.rolls.WithLabelValues(outcome).Inc()
}

// Turn counts a finished turn ("ok", "invalid" or "error").
func (m *Metrics) Turn(result string) {
	if m == nil {
		return
	}
	m.turns.WithLabelValues(result).Inc()
}

// NarrativeCheck counts a consistency verdict.
func (m *Metrics) NarrativeCheck(consistent bool) {
	if m == nil {
		return
	}
	verdict := "inconsistent"
	if consistent {
		verdict = "consistent"
	}
	m.narrativeChecks.WithLabelValues(verdict).Inc()
}
