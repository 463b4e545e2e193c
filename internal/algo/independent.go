package algo

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/gridmapf/internal/core"
)

// Independent plans every agent's shortest path while ignoring the others.
// The result is a lower bound on the sum of costs and may contain collisions.
type Independent struct {
	opts   Options
	logger *zap.Logger
}

// NewIndependent creates an independent planner.
func NewIndependent(opts ...Option) *Independent {
	o := buildOptions(opts)
	return &Independent{
		opts:   o,
		logger: o.Logger.With(zap.String("component", "independent")),
	}
}

func (s *Independent) Name() string { return "Independent" }

// Solve plans each agent on its own.
func (s *Independent) Solve(ctx context.Context, inst *core.Instance) (*core.Solution, error) {
	start := time.Now()
	paths, err := s.plan(ctx, inst)
	if err != nil {
		s.opts.Observer.OnFailure(s.Name(), err, time.Since(start))
		return nil, err
	}

	sol := core.NewSolution(paths)
	sol.Duration = time.Since(start)
	if n := len(DetectCollisions(paths)); n > 0 {
		s.logger.Warn("paths collide", zap.Int("colliding_pairs", n))
	}
	s.opts.Observer.OnSolution(s.Name(), sol)
	return sol, nil
}

func (s *Independent) plan(ctx context.Context, inst *core.Instance) ([]core.Path, error) {
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newPlanner(inst, s.opts.CostBoundFactor).planAll()
}
