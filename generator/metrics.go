package generator

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts stage and run outcomes.
type Metrics struct {
	StageTotal    *prometheus.CounterVec
	StageDuration *prometheus.HistogramVec
	RunsTotal     *prometheus.CounterVec
}

// NewMetrics registers the pipeline collectors on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StageTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "laudo_stage_total",
			Help: "Pipeline stage executions by outcome.",
		}, []string{"stage", "outcome"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "laudo_stage_duration_seconds",
			Help:    "Time spent waiting for the model per stage.",
			Buckets: []float64{1, 2.5, 5, 10, 20, 40, 80, 160},
		}, []string{"stage"}),
		RunsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "laudo_runs_total",
			Help: "Pipeline runs by outcome (completed, halted, rejected).",
		}, []string{"outcome"}),
	}
	if reg != nil {
		reg.MustRegister(m.StageTotal, m.StageDuration, m.RunsTotal)
	}
	return m
}

func (m *Metrics) observeStage(res StageResult) {
	if m == nil {
		return
	}
	m.StageTotal.WithLabelValues(res.Stage, string(res.Status)).Inc()
	m.StageDuration.WithLabelValues(res.Stage).Observe(res.Duration.Seconds())
}

func (m *Metrics) observeRun(outcome string) {
	if m == nil {
		return
	}
	m.RunsTotal.WithLabelValues(outcome).Inc()
}
