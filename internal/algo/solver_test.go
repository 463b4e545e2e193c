package algo

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/elektrokombinacija/gridmapf/internal/core"
)

// newInstance builds an instance from a grid and (start, goal) pairs.
func newInstance(t testing.TB, g *core.Grid, pairs ...[2]core.Location) *core.Instance {
	t.Helper()
	starts := make([]core.Location, len(pairs))
	goals := make([]core.Location, len(pairs))
	for i, p := range pairs {
		starts[i], goals[i] = p[0], p[1]
	}
	inst, err := core.NewInstance(g, starts, goals)
	require.NoError(t, err)
	return inst
}

func pair(start, goal core.Location) [2]core.Location {
	return [2]core.Location{start, goal}
}

// crossingInstance has two agents whose shortest paths meet at the centre
// of a 3x3 grid at t=1.
func crossingInstance(t testing.TB) *core.Instance {
	return newInstance(t, core.OpenGrid(3, 3),
		pair(core.Loc(1, 0), core.Loc(1, 2)),
		pair(core.Loc(0, 1), core.Loc(2, 1)),
	)
}

// corridorInstance has two agents swapping ends of a corridor with a single
// alcove below its second cell.
func corridorInstance(t testing.TB) *core.Instance {
	g := parseGrid(t,
		"....",
		"@.@@",
	)
	return newInstance(t, g,
		pair(core.Loc(0, 0), core.Loc(0, 3)),
		pair(core.Loc(0, 3), core.Loc(0, 0)),
	)
}

func requireValidSolution(t testing.TB, inst *core.Instance, sol *core.Solution) {
	t.Helper()
	require.NotNil(t, sol)
	require.Len(t, sol.Paths, inst.NumAgents())
	for i, p := range sol.Paths {
		require.NoError(t, p.Validate(inst.Grid, inst.Starts[i], inst.Goals[i]), "agent %d", i)
	}
	require.Empty(t, DetectCollisions(sol.Paths))
	require.Equal(t, core.SumOfCosts(sol.Paths), sol.Cost)
}

// recorder counts observer callbacks.
type recorder struct {
	mu        sync.Mutex
	generated []NodeInfo
	expanded  []NodeInfo
	solutions int
	failures  []error
}

func (r *recorder) OnNodeGenerated(_ string, n NodeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generated = append(r.generated, n)
}

func (r *recorder) OnNodeExpanded(_ string, n NodeInfo) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.expanded = append(r.expanded, n)
}

func (r *recorder) OnSolution(string, *core.Solution) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.solutions++
}

func (r *recorder) OnFailure(_ string, err error, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, err)
}

func TestCBS_NoConflict(t *testing.T) {
	inst := newInstance(t, core.OpenGrid(3, 3),
		pair(core.Loc(0, 0), core.Loc(0, 2)),
		pair(core.Loc(2, 0), core.Loc(2, 2)),
	)
	cbs := NewCBS(WithLogger(zaptest.NewLogger(t)))

	sol, err := cbs.Solve(context.Background(), inst)
	require.NoError(t, err)
	requireValidSolution(t, inst, sol)

	assert.Equal(t, 4, sol.Cost)
	assert.Equal(t, 1, sol.Generated)
	assert.Equal(t, 1, sol.Expanded)
	assert.Equal(t, 1, cbs.Generated())
	assert.Equal(t, 1, cbs.Expanded())
	assert.Equal(t, core.Path{core.Loc(0, 0), core.Loc(0, 1), core.Loc(0, 2)}, sol.Paths[0])
	assert.Equal(t, core.Path{core.Loc(2, 0), core.Loc(2, 1), core.Loc(2, 2)}, sol.Paths[1])
}

func TestCBS_Crossing(t *testing.T) {
	inst := crossingInstance(t)
	sol, err := NewCBS().Solve(context.Background(), inst)
	require.NoError(t, err)
	requireValidSolution(t, inst, sol)
	assert.Equal(t, 5, sol.Cost, "one agent waits a single step")
	assert.Greater(t, sol.Generated, 1)
}

func TestCBS_CorridorWithAlcove(t *testing.T) {
	inst := corridorInstance(t)

	root, err := newPlanner(inst, DefaultCostBoundFactor).planAll()
	require.NoError(t, err)
	collisions := DetectCollisions(root)
	require.Len(t, collisions, 1, "the agents meet head-on")
	assert.True(t, collisions[0].IsEdge)
	assert.Equal(t, 2, collisions[0].Timestep)

	rec := &recorder{}
	sol, err := NewCBS(WithObserver(rec)).Solve(context.Background(), inst)
	require.NoError(t, err)
	requireValidSolution(t, inst, sol)
	assert.Equal(t, 8, sol.Cost, "one agent steps into the alcove and back")
	assert.Equal(t, 5, sol.Makespan())
	require.NotEmpty(t, rec.generated)
	assert.Equal(t, 1, rec.generated[0].Collisions)
	assert.Equal(t, 6, rec.generated[0].Cost)
}

func TestCBS_Disjoint(t *testing.T) {
	tests := []struct {
		name string
		inst *core.Instance
		cost int
	}{
		{"Crossing", crossingInstance(t), 5},
		{"Corridor", corridorInstance(t), 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for seed := int64(0); seed < 4; seed++ {
				cbs := NewCBS(WithSplitter(NewDisjointSplitter(seed)))
				sol, err := cbs.Solve(context.Background(), tt.inst)
				require.NoError(t, err, "seed %d", seed)
				requireValidSolution(t, tt.inst, sol)
				assert.Equal(t, tt.cost, sol.Cost, "seed %d", seed)
			}
		})
	}
}

func TestCBS_Infeasible(t *testing.T) {
	g := parseGrid(t,
		".@.",
		".@.",
	)
	inst := newInstance(t, g,
		pair(core.Loc(0, 0), core.Loc(1, 0)),
		pair(core.Loc(1, 2), core.Loc(0, 0)),
	)
	rec := &recorder{}
	_, err := NewCBS(WithObserver(rec)).Solve(context.Background(), inst)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInfeasible))
	assert.Contains(t, err.Error(), "agent 1")
	assert.Len(t, rec.failures, 1)
	assert.Empty(t, rec.generated)
}

func TestCBS_BlockedGoal(t *testing.T) {
	g := parseGrid(t, ".@.")
	inst := newInstance(t, g, pair(core.Loc(0, 0), core.Loc(0, 1)))
	_, err := NewCBS().Solve(context.Background(), inst)
	assert.ErrorIs(t, err, core.ErrInfeasible)
}

func TestCBS_InvalidInstance(t *testing.T) {
	inst := &core.Instance{
		Grid:   core.OpenGrid(2, 2),
		Starts: []core.Location{core.Loc(0, 0), core.Loc(0, 0)},
		Goals:  []core.Location{core.Loc(1, 0), core.Loc(1, 1)},
	}
	_, err := NewCBS().Solve(context.Background(), inst)
	assert.ErrorIs(t, err, core.ErrInvalidInstance)
}

func TestCBS_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCBS().Solve(ctx, crossingInstance(t))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCBS_Observer(t *testing.T) {
	rec := &recorder{}
	cbs := NewCBS(WithObserver(rec))
	sol, err := cbs.Solve(context.Background(), corridorInstance(t))
	require.NoError(t, err)

	assert.Len(t, rec.generated, sol.Generated)
	assert.Len(t, rec.expanded, sol.Expanded)
	assert.Equal(t, 1, rec.solutions)
	assert.Empty(t, rec.failures)

	require.NotEmpty(t, rec.generated)
	root := rec.generated[0]
	assert.Equal(t, 0, root.ID)
	assert.Equal(t, -1, root.Parent)
	assert.Equal(t, 6, root.Cost)
	assert.Equal(t, 1, root.Collisions)
	assert.Equal(t, 0, root.Constraints)

	for i, n := range rec.generated {
		assert.Equal(t, i, n.ID, "ids follow generation order")
		if i > 0 {
			assert.Less(t, n.Parent, n.ID)
			assert.GreaterOrEqual(t, n.Cost, root.Cost)
		}
	}
	last := rec.expanded[len(rec.expanded)-1]
	assert.Equal(t, 0, last.Collisions)
	assert.Equal(t, sol.Cost, last.Cost)
}

func TestCBS_Deterministic(t *testing.T) {
	inst := corridorInstance(t)
	first, err := NewCBS().Solve(context.Background(), inst)
	require.NoError(t, err)
	second, err := NewCBS().Solve(context.Background(), inst)
	require.NoError(t, err)

	assert.Equal(t, first.Paths, second.Paths)
	assert.Equal(t, first.Generated, second.Generated)
	assert.Equal(t, first.Expanded, second.Expanded)
}

func TestPrioritized(t *testing.T) {
	inst := crossingInstance(t)
	sol, err := NewPrioritized().Solve(context.Background(), inst)
	require.NoError(t, err)
	requireValidSolution(t, inst, sol)
	assert.Equal(t, 5, sol.Cost)
	assert.Equal(t, 2, sol.Paths[0].Cost(), "the first agent keeps its shortest path")
}

func TestPrioritized_BlockedByHigherPriority(t *testing.T) {
	g := parseGrid(t, "...")
	inst := newInstance(t, g,
		pair(core.Loc(0, 1), core.Loc(0, 1)),
		pair(core.Loc(0, 0), core.Loc(0, 2)),
	)
	_, err := NewPrioritized().Solve(context.Background(), inst)
	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNoSolution)
	assert.NotErrorIs(t, err, core.ErrInfeasible)
}

func TestPrioritized_Infeasible(t *testing.T) {
	g := parseGrid(t, ".@.")
	inst := newInstance(t, g, pair(core.Loc(0, 0), core.Loc(0, 2)))
	_, err := NewPrioritized().Solve(context.Background(), inst)
	assert.ErrorIs(t, err, core.ErrInfeasible)
}

func TestIndependent(t *testing.T) {
	inst := crossingInstance(t)
	sol, err := NewIndependent().Solve(context.Background(), inst)
	require.NoError(t, err)
	assert.Equal(t, 4, sol.Cost)
	assert.Len(t, DetectCollisions(sol.Paths), 1, "independent paths ignore each other")
}

func TestNewSolver(t *testing.T) {
	for name, want := range map[string]string{
		AlgoCBS:         "CBS",
		AlgoPrioritized: "Prioritized",
		AlgoIndependent: "Independent",
	} {
		s, err := NewSolver(name)
		require.NoError(t, err)
		assert.Equal(t, want, s.Name())
	}

	_, err := NewSolver("ecbs")
	assert.Error(t, err)
}
