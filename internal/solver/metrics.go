package solver

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for Solving
// =============================================================================

// Metrics holds the solver's collectors. Metrics are registered on the
// Registerer given to NewMetrics so each engine (and each test) can use its
// own registry.
type Metrics struct {
	// solves counts finished solves.
	// Labels: mode (planning, checking), outcome (ok, error)
	solves *prometheus.CounterVec

	// solutions counts Solutions per stage of a solve.
	// Labels: stage (unchecked, valid, selected)
	solutions *prometheus.CounterVec

	// closureTypes records the size of the last computed type closure.
	closureTypes prometheus.Gauge

	// closureFacts records the Subtype facts of the last computed closure.
	closureFacts prometheus.Gauge

	// duration measures solve latency.
	// Labels: phase (closure, generate, analyze, total)
	duration *prometheus.HistogramVec
}

// NewMetrics creates and registers the solver collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		solves: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ibis",
			Subsystem: "solver",
			Name:      "solves_total",
			Help:      "Total solves by mode and outcome",
		}, []string{"mode", "outcome"}),
		solutions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ibis",
			Subsystem: "solver",
			Name:      "solutions_total",
			Help:      "Total solutions by stage",
		}, []string{"stage"}),
		closureTypes: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ibis",
			Subsystem: "closure",
			Name:      "known_types",
			Help:      "Known types in the last computed closure",
		}),
		closureFacts: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "ibis",
			Subsystem: "closure",
			Name:      "subtype_facts",
			Help:      "Subtype facts in the last computed closure",
		}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ibis",
			Subsystem: "solver",
			Name:      "phase_duration_seconds",
			Help:      "Solve phase latency in seconds",
			Buckets:   []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"phase"}),
	}
}

// =============================================================================
// Metrics Recording Functions
// =============================================================================

// All recording methods accept a nil receiver so the engine can call them
// unconditionally.

func (m *Metrics) recordSolve(planning bool, err error) {
	if m == nil {
		return
	}
	mode := "checking"
	if planning {
		mode = "planning"
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.solves.WithLabelValues(mode, outcome).Inc()
}

func (m *Metrics) recordSolutions(unchecked, valid, selected int) {
	if m == nil {
		return
	}
	m.solutions.WithLabelValues("unchecked").Add(float64(unchecked))
	m.solutions.WithLabelValues("valid").Add(float64(valid))
	m.solutions.WithLabelValues("selected").Add(float64(selected))
}

func (m *Metrics) recordClosure(stats ClosureStats) {
	if m == nil {
		return
	}
	m.closureTypes.Set(float64(stats.Types))
	m.closureFacts.Set(float64(stats.Facts))
}

func (m *Metrics) observePhase(phase string, start time.Time) {
	if m == nil {
		return
	}
	m.duration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
}
