package instance

import (
	"fmt"
	"math/rand"

	"github.com/elektrokombinacija/gridmapf/internal/algo"
	"github.com/elektrokombinacija/gridmapf/internal/core"
)

// GenOptions parameterizes Generate.
type GenOptions struct {
	Rows, Cols int
	Density    float64 // fraction of blocked cells, [0, 1)
	Agents     int
}

// Generate draws a random map and agents whose goals are reachable from
// their starts. Starts are pairwise distinct, as are goals.
func Generate(rng *rand.Rand, opts GenOptions) (*core.Instance, error) {
	if opts.Rows <= 0 || opts.Cols <= 0 {
		return nil, fmt.Errorf("invalid size %dx%d", opts.Rows, opts.Cols)
	}
	if opts.Density < 0 || opts.Density >= 1 {
		return nil, fmt.Errorf("density %.2f out of [0, 1)", opts.Density)
	}
	if opts.Agents < 0 {
		return nil, fmt.Errorf("negative agent count")
	}

	cells := make([][]bool, opts.Rows)
	for r := range cells {
		cells[r] = make([]bool, opts.Cols)
		for c := range cells[r] {
			cells[r][c] = rng.Float64() < opts.Density
		}
	}
	grid, err := core.NewGrid(cells)
	if err != nil {
		return nil, err
	}

	free := grid.FreeCells()
	rng.Shuffle(len(free), func(i, j int) { free[i], free[j] = free[j], free[i] })

	usedStart := make(map[core.Location]bool)
	var starts, goals []core.Location
	for _, goal := range free {
		if len(goals) == opts.Agents {
			break
		}
		h := algo.ComputeHeuristics(grid, goal)
		var candidates []core.Location
		for _, s := range free {
			if !usedStart[s] && h.Reachable(s) {
				candidates = append(candidates, s)
			}
		}
		if len(candidates) == 0 {
			continue
		}
		start := candidates[rng.Intn(len(candidates))]
		usedStart[start] = true
		starts = append(starts, start)
		goals = append(goals, goal)
	}
	if len(goals) < opts.Agents {
		return nil, fmt.Errorf("only %d of %d agents fit a %dx%d map at density %.2f",
			len(goals), opts.Agents, opts.Rows, opts.Cols, opts.Density)
	}

	return core.NewInstance(grid, starts, goals)
}
