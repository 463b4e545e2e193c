package algo

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/gridmapf/internal/core"
)

// Prioritized implements prioritized planning: agents are planned one at a
// time in index order, each avoiding the paths already fixed.
type Prioritized struct {
	opts   Options
	logger *zap.Logger
}

// NewPrioritized creates a prioritized planning solver.
func NewPrioritized(opts ...Option) *Prioritized {
	o := buildOptions(opts)
	return &Prioritized{
		opts:   o,
		logger: o.Logger.With(zap.String("component", "prioritized")),
	}
}

func (p *Prioritized) Name() string { return "Prioritized" }

// Solve implements prioritized planning.
func (p *Prioritized) Solve(ctx context.Context, inst *core.Instance) (*core.Solution, error) {
	start := time.Now()
	sol, err := p.solve(ctx, inst)
	elapsed := time.Since(start)
	if err != nil {
		p.opts.Observer.OnFailure(p.Name(), err, elapsed)
		return nil, err
	}
	sol.Duration = elapsed
	p.logger.Info("found solution",
		zap.Int("agents", inst.NumAgents()),
		zap.Int("cost", sol.Cost),
		zap.Duration("elapsed", elapsed),
	)
	p.opts.Observer.OnSolution(p.Name(), sol)
	return sol, nil
}

func (p *Prioritized) solve(ctx context.Context, inst *core.Instance) (*core.Solution, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	pl := newPlanner(inst, p.opts.CostBoundFactor)
	n := inst.NumAgents()
	paths := make([]core.Path, n)

	var constraints []Constraint
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		agent := core.AgentID(i)
		path, ok := pl.plan(agent, constraints)
		if !ok {
			if i == 0 || !pl.heuristics[i].Reachable(inst.Starts[i]) {
				return nil, fmt.Errorf("%w %d: %v -> %v", core.ErrInfeasible, i, inst.Starts[i], inst.Goals[i])
			}
			return nil, fmt.Errorf("%w: agent %d blocked by higher-priority agents", core.ErrNoSolution, i)
		}
		paths[i] = path

		// The path constrains every lower-priority agent
		for other := i + 1; other < n; other++ {
			oid := core.AgentID(other)
			for t, loc := range path {
				constraints = append(constraints, VertexConstraint(oid, loc, t))
				if t > 0 {
					constraints = append(constraints, EdgeConstraint(oid, loc, path[t-1], t))
				}
			}
			constraints = append(constraints, PermanentConstraint(oid, path[len(path)-1], len(path)-1))
		}
		p.logger.Debug("planned agent", zap.Int("agent", i), zap.Int("cost", path.Cost()))
	}

	return core.NewSolution(paths), nil
}
