package algo

import (
	"container/heap"
	"context"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/elektrokombinacija/gridmapf/internal/core"
)

// CBS implements Conflict-Based Search minimising the sum of costs.
// A CBS value keeps per-run counters and must not be shared between
// concurrent Solve calls.
type CBS struct {
	opts   Options
	logger *zap.Logger

	generated int
	expanded  int
}

// NewCBS creates a CBS solver.
func NewCBS(opts ...Option) *CBS {
	o := buildOptions(opts)
	return &CBS{
		opts:   o,
		logger: o.Logger.With(zap.String("component", "cbs")),
	}
}

func (c *CBS) Name() string { return "CBS" }

// Generated returns the number of nodes pushed during the last Solve.
func (c *CBS) Generated() int { return c.generated }

// Expanded returns the number of nodes popped during the last Solve.
func (c *CBS) Expanded() int { return c.expanded }

// cbsNode represents a node in the CBS constraint tree.
type cbsNode struct {
	cost        int
	constraints *constraintList
	paths       []core.Path
	collisions  []Collision
	id          int // generation order
	parent      int
	index       int
}

func (n *cbsNode) info() NodeInfo {
	return NodeInfo{
		ID:          n.id,
		Parent:      n.parent,
		Cost:        n.cost,
		Collisions:  len(n.collisions),
		Constraints: n.constraints.Len(),
	}
}

// cbsHeap orders by (cost, #collisions, generation order).
type cbsHeap []*cbsNode

func (h cbsHeap) Len() int { return len(h) }
func (h cbsHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.cost != b.cost {
		return a.cost < b.cost
	}
	if len(a.collisions) != len(b.collisions) {
		return len(a.collisions) < len(b.collisions)
	}
	return a.id < b.id
}
func (h cbsHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *cbsHeap) Push(x any) {
	n := x.(*cbsNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *cbsHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// Solve implements the CBS algorithm.
func (c *CBS) Solve(ctx context.Context, inst *core.Instance) (*core.Solution, error) {
	start := time.Now()
	sol, err := c.solve(ctx, inst)
	elapsed := time.Since(start)
	if err != nil {
		c.logger.Info("no solution",
			zap.Error(err),
			zap.Int("generated", c.generated),
			zap.Int("expanded", c.expanded),
			zap.Duration("elapsed", elapsed),
		)
		c.opts.Observer.OnFailure(c.Name(), err, elapsed)
		return nil, err
	}

	sol.Duration = elapsed
	sol.Generated = c.generated
	sol.Expanded = c.expanded
	c.logger.Info("found solution",
		zap.Int("agents", inst.NumAgents()),
		zap.Int("cost", sol.Cost),
		zap.Int("generated", sol.Generated),
		zap.Int("expanded", sol.Expanded),
		zap.Duration("elapsed", elapsed),
	)
	c.opts.Observer.OnSolution(c.Name(), sol)
	return sol, nil
}

func (c *CBS) solve(ctx context.Context, inst *core.Instance) (*core.Solution, error) {
	c.generated, c.expanded = 0, 0

	if err := inst.Validate(); err != nil {
		return nil, err
	}
	p := newPlanner(inst, c.opts.CostBoundFactor)

	// Step 1: root node from independent shortest paths
	paths, err := p.planAll()
	if err != nil {
		return nil, err
	}
	open := &cbsHeap{}
	heap.Init(open)
	root := &cbsNode{
		cost:       core.SumOfCosts(paths),
		paths:      paths,
		collisions: DetectCollisions(paths),
		parent:     -1,
	}
	c.push(open, root)
	c.logger.Debug("root node",
		zap.Int("cost", root.cost),
		zap.Int("collisions", len(root.collisions)),
	)

	// Step 2: best-first expansion of the constraint tree
	for open.Len() > 0 {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("cbs interrupted after %d expansions: %w", c.expanded, err)
		}

		node := heap.Pop(open).(*cbsNode)
		c.expanded++
		c.opts.Observer.OnNodeExpanded(c.Name(), node.info())

		if len(node.collisions) == 0 {
			return core.NewSolution(node.paths), nil
		}

		collision := node.collisions[0]
		c.logger.Debug("expand",
			zap.Int("node", node.id),
			zap.Int("cost", node.cost),
			zap.Int("collisions", len(node.collisions)),
			zap.Stringer("collision", collision),
		)

		for _, con := range c.opts.Splitter.Split(collision) {
			child, ok := c.child(p, node, con)
			if !ok {
				c.logger.Debug("prune", zap.Int("parent", node.id), zap.Stringer("constraint", con))
				continue
			}
			c.push(open, child)
		}
	}

	return nil, core.ErrNoSolution
}

func (c *CBS) push(open *cbsHeap, n *cbsNode) {
	n.id = c.generated
	c.generated++
	heap.Push(open, n)
	c.opts.Observer.OnNodeGenerated(c.Name(), n.info())
}

// child derives a node from parent with one more constraint. It re-plans the
// constrained agent and, for a positive constraint, every other agent whose
// path now breaks it. ok is false if any of those re-plans fails.
func (c *CBS) child(p *planner, parent *cbsNode, con Constraint) (*cbsNode, bool) {
	constraints := parent.constraints.push(con)
	all := constraints.Slice()
	paths := slices.Clone(parent.paths)

	replan := []core.AgentID{con.Agent}
	if con.Positive {
		for i, path := range paths {
			if a := core.AgentID(i); a != con.Agent && con.violatedBy(path) {
				replan = append(replan, a)
			}
		}
	}
	for _, agent := range replan {
		path, ok := p.plan(agent, all)
		if !ok {
			return nil, false
		}
		paths[agent] = path
	}

	return &cbsNode{
		cost:        core.SumOfCosts(paths),
		constraints: constraints,
		paths:       paths,
		collisions:  DetectCollisions(paths),
		parent:      parent.id,
	}, true
}
