package algo

import "github.com/elektrokombinacija/gridmapf/internal/core"

const unreachable = -1

// HeuristicTable holds the exact move distance from every free cell to one
// goal, ignoring time and other agents.
type HeuristicTable struct {
	goal core.Location
	cols int
	dist []int
}

// ComputeHeuristics runs a uniform-cost expansion outward from goal. With
// unit move costs FIFO order equals cost order, so a plain queue suffices.
// Cells that cannot reach goal are absent from the table.
func ComputeHeuristics(grid *core.Grid, goal core.Location) *HeuristicTable {
	h := &HeuristicTable{
		goal: goal,
		cols: grid.Cols,
		dist: make([]int, grid.Rows*grid.Cols),
	}
	for i := range h.dist {
		h.dist[i] = unreachable
	}
	if grid.Blocked(goal) {
		return h
	}

	h.dist[h.index(goal)] = 0
	queue := []core.Location{goal}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		next := h.dist[h.index(cur)] + 1
		for _, n := range grid.Neighbors(cur) {
			i := h.index(n)
			if h.dist[i] != unreachable {
				continue
			}
			h.dist[i] = next
			queue = append(queue, n)
		}
	}
	return h
}

func (h *HeuristicTable) index(l core.Location) int {
	return l.Row*h.cols + l.Col
}

// Goal returns the location the table measures distance to.
func (h *HeuristicTable) Goal() core.Location {
	return h.goal
}

// Lookup returns the distance from l to the goal. ok is false when l is out
// of bounds, blocked or cannot reach the goal.
func (h *HeuristicTable) Lookup(l core.Location) (int, bool) {
	if l.Row < 0 || l.Col < 0 || l.Col >= h.cols {
		return 0, false
	}
	i := h.index(l)
	if i >= len(h.dist) || h.dist[i] == unreachable {
		return 0, false
	}
	return h.dist[i], true
}

// Reachable reports whether l can reach the goal.
func (h *HeuristicTable) Reachable(l core.Location) bool {
	_, ok := h.Lookup(l)
	return ok
}
