// Package algo implements grid MAPF solvers built on space-time A*.
package algo

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/gridmapf/internal/core"
)

// Solver is the interface for MAPF algorithms.
type Solver interface {
	// Solve attempts to find paths for every agent of the instance.
	Solve(ctx context.Context, inst *core.Instance) (*core.Solution, error)

	// Name returns the algorithm name.
	Name() string
}

// Solver names accepted by NewSolver.
const (
	AlgoCBS         = "cbs"
	AlgoPrioritized = "prioritized"
	AlgoIndependent = "independent"
)

// Options configures a solver.
type Options struct {
	CostBoundFactor int
	Splitter        Splitter
	Logger          *zap.Logger
	Observer        Observer
}

// Option is a function that modifies Options.
type Option func(*Options)

// WithCostBoundFactor sets the low-level cutoff multiple; <= 0 disables it.
func WithCostBoundFactor(f int) Option {
	return func(o *Options) { o.CostBoundFactor = f }
}

// WithSplitter sets the CBS splitting strategy.
func WithSplitter(s Splitter) Option {
	return func(o *Options) {
		if s != nil {
			o.Splitter = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Options) {
		if l != nil {
			o.Logger = l
		}
	}
}

// WithObserver registers search callbacks.
func WithObserver(obs Observer) Option {
	return func(o *Options) {
		if obs != nil {
			o.Observer = obs
		}
	}
}

func buildOptions(opts []Option) Options {
	o := Options{
		CostBoundFactor: DefaultCostBoundFactor,
		Splitter:        StandardSplitter{},
		Logger:          zap.NewNop(),
		Observer:        NopObserver{},
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewSolver creates the solver registered under name.
func NewSolver(name string, opts ...Option) (Solver, error) {
	switch name {
	case AlgoCBS:
		return NewCBS(opts...), nil
	case AlgoPrioritized:
		return NewPrioritized(opts...), nil
	case AlgoIndependent:
		return NewIndependent(opts...), nil
	default:
		return nil, fmt.Errorf("unknown algorithm %q", name)
	}
}

// planner runs the low-level search for the agents of one instance.
type planner struct {
	inst       *core.Instance
	heuristics []*HeuristicTable
	factor     int
}

func newPlanner(inst *core.Instance, factor int) *planner {
	p := &planner{
		inst:       inst,
		heuristics: make([]*HeuristicTable, inst.NumAgents()),
		factor:     factor,
	}
	for i, goal := range inst.Goals {
		p.heuristics[i] = ComputeHeuristics(inst.Grid, goal)
	}
	return p
}

// plan finds agent's cheapest path under constraints.
func (p *planner) plan(agent core.AgentID, constraints []Constraint) (core.Path, bool) {
	table := BuildConstraintTable(constraints, agent)
	return SpaceTimeAStar(
		p.inst.Grid,
		p.inst.Starts[agent],
		p.inst.Goals[agent],
		p.heuristics[agent],
		table,
		p.factor,
	)
}

// planAll plans every agent without constraints. Any failure is fatal.
func (p *planner) planAll() ([]core.Path, error) {
	paths := make([]core.Path, p.inst.NumAgents())
	for i := range paths {
		path, ok := p.plan(core.AgentID(i), nil)
		if !ok {
			return nil, fmt.Errorf("%w %d: %v -> %v", core.ErrInfeasible, i, p.inst.Starts[i], p.inst.Goals[i])
		}
		paths[i] = path
	}
	return paths, nil
}
