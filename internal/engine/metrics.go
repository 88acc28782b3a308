package engine

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors. A nil *Metrics
// disables instrumentation, which keeps tests free of registry setup.
type Metrics struct {
	// JobsTotal counts jobs by type and terminal status.
	JobsTotal *prometheus.CounterVec

	// UnitRetriesTotal counts generator call retries across all jobs.
	UnitRetriesTotal prometheus.Counter

	// UnitsInFlight tracks concurrently executing generator calls.
	UnitsInFlight prometheus.Gauge
}

// NewMetrics creates and registers the engine collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		JobsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "goalforge_jobs_total",
				Help: "Total number of generation jobs by terminal status",
			},
			[]string{"job_type", "status"},
		),
		UnitRetriesTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "goalforge_unit_retries_total",
				Help: "Total number of work item retry attempts",
			},
		),
		UnitsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "goalforge_units_in_flight",
				Help: "Number of generator calls currently executing",
			},
		),
	}

	reg.MustRegister(m.JobsTotal, m.UnitRetriesTotal, m.UnitsInFlight)
	return m
}

// observeTerminal records a job reaching a terminal status.
func (m *Metrics) observeTerminal(jobType, status string) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(jobType, status).Inc()
}
