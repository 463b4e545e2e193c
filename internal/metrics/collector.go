// Package metrics exports solver activity as Prometheus metrics.
package metrics

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/gridmapf/internal/algo"
	"github.com/elektrokombinacija/gridmapf/internal/core"
)

// Solve outcomes used as the "outcome" label.
const (
	OutcomeSolved     = "solved"
	OutcomeInfeasible = "infeasible"
	OutcomeNoSolution = "no_solution"
	OutcomeCancelled  = "cancelled"
	OutcomeInvalid    = "invalid"
	OutcomeError      = "error"
)

// Collector records solver callbacks. It implements algo.Observer and is safe
// for concurrent use by several solvers.
type Collector struct {
	nodesGenerated *prometheus.CounterVec
	nodesExpanded  *prometheus.CounterVec
	solveDuration  *prometheus.HistogramVec
	solves         *prometheus.CounterVec
	sumOfCosts     *prometheus.GaugeVec
	makespan       *prometheus.GaugeVec
	constraints    *prometheus.HistogramVec

	batchRuns *prometheus.CounterVec
	batchCV   *prometheus.GaugeVec

	logger *zap.Logger
}

// NewCollector registers the solver metrics with reg under namespace.
func NewCollector(namespace string, reg prometheus.Registerer, logger *zap.Logger) *Collector {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := promauto.With(reg)
	c := &Collector{
		logger: logger.With(zap.String("component", "metrics")),
	}

	c.nodesGenerated = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_generated_total",
			Help:      "Total number of search tree nodes generated",
		},
		[]string{"solver"},
	)

	c.nodesExpanded = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "nodes_expanded_total",
			Help:      "Total number of search tree nodes expanded",
		},
		[]string{"solver"},
	)

	c.solveDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "solve_duration_seconds",
			Help:      "Solver wall-clock time in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 4, 10),
		},
		[]string{"solver", "outcome"},
	)

	c.solves = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "solves_total",
			Help:      "Total number of solver invocations by outcome",
		},
		[]string{"solver", "outcome"},
	)

	c.sumOfCosts = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "solution_sum_of_costs",
			Help:      "Sum of costs of the last solution",
		},
		[]string{"solver"},
	)

	c.makespan = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "solution_makespan",
			Help:      "Makespan of the last solution",
		},
		[]string{"solver"},
	)

	c.constraints = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "expanded_node_constraints",
			Help:      "Number of constraints on expanded nodes",
			Buckets:   prometheus.LinearBuckets(0, 4, 10),
		},
		[]string{"solver"},
	)

	c.batchRuns = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_runs_total",
			Help:      "Total number of batch simulation runs by outcome",
		},
		[]string{"outcome"},
	)

	c.batchCV = factory.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "batch_coefficient_of_variation",
			Help:      "Running coefficient of variation per batch KPI",
		},
		[]string{"kpi"},
	)

	c.logger.Debug("metrics collector initialized", zap.String("namespace", namespace))
	return c
}

// OnNodeGenerated implements algo.Observer.
func (c *Collector) OnNodeGenerated(solver string, _ algo.NodeInfo) {
	c.nodesGenerated.WithLabelValues(solver).Inc()
}

// OnNodeExpanded implements algo.Observer.
func (c *Collector) OnNodeExpanded(solver string, node algo.NodeInfo) {
	c.nodesExpanded.WithLabelValues(solver).Inc()
	c.constraints.WithLabelValues(solver).Observe(float64(node.Constraints))
}

// OnSolution implements algo.Observer.
func (c *Collector) OnSolution(solver string, sol *core.Solution) {
	c.solves.WithLabelValues(solver, OutcomeSolved).Inc()
	c.solveDuration.WithLabelValues(solver, OutcomeSolved).Observe(sol.Duration.Seconds())
	c.sumOfCosts.WithLabelValues(solver).Set(float64(sol.Cost))
	c.makespan.WithLabelValues(solver).Set(float64(sol.Makespan()))
}

// OnFailure implements algo.Observer.
func (c *Collector) OnFailure(solver string, err error, elapsed time.Duration) {
	outcome := Outcome(err)
	c.solves.WithLabelValues(solver, outcome).Inc()
	c.solveDuration.WithLabelValues(solver, outcome).Observe(elapsed.Seconds())
	if outcome == OutcomeError {
		c.logger.Warn("solver failed", zap.String("solver", solver), zap.Error(err))
	}
}

// RecordBatchRun counts one batch run by outcome.
func (c *Collector) RecordBatchRun(outcome string) {
	c.batchRuns.WithLabelValues(outcome).Inc()
}

// RecordBatchCV sets the running coefficient of variation of a batch KPI.
func (c *Collector) RecordBatchCV(kpi string, cv float64) {
	c.batchCV.WithLabelValues(kpi).Set(cv)
}

// Outcome classifies a solver error for the outcome label.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeSolved
	case errors.Is(err, core.ErrInfeasible):
		return OutcomeInfeasible
	case errors.Is(err, core.ErrNoSolution):
		return OutcomeNoSolution
	case errors.Is(err, core.ErrInvalidInstance):
		return OutcomeInvalid
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	default:
		return OutcomeError
	}
}

// Compile-time interface check
var _ algo.Observer = (*Collector)(nil)
