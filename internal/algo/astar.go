package algo

import (
	"container/heap"

	"github.com/elektrokombinacija/gridmapf/internal/core"
)

// DefaultCostBoundFactor caps the low-level search at this multiple of the
// start cell's heuristic value.
const DefaultCostBoundFactor = 20

// SpaceTimeState is a (cell, timestep) pair.
type SpaceTimeState struct {
	Loc core.Location
	T   int
}

// astarNode for priority queue.
type astarNode struct {
	state  SpaceTimeState
	g      int // cost so far, equal to state.T
	h      int
	seq    int // insertion order
	parent *astarNode
	index  int // heap index
}

func (n *astarNode) f() int { return n.g + n.h }

// astarHeap orders by (f, h, location, insertion order).
type astarHeap []*astarNode

func (h astarHeap) Len() int { return len(h) }
func (h astarHeap) Less(i, j int) bool {
	a, b := h[i], h[j]
	if a.f() != b.f() {
		return a.f() < b.f()
	}
	if a.h != b.h {
		return a.h < b.h
	}
	if a.state.Loc != b.state.Loc {
		return a.state.Loc.Less(b.state.Loc)
	}
	return a.seq < b.seq
}
func (h astarHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}
func (h *astarHeap) Push(x any) {
	n := x.(*astarNode)
	n.index = len(*h)
	*h = append(*h, n)
}
func (h *astarHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	old[n-1] = nil
	*h = old[0 : n-1]
	return x
}

// SpaceTimeAStar finds the cheapest path from start to goal that respects
// table. Every action (four moves or a wait) costs one timestep.
//
// The search gives up once a popped state's cost exceeds costBoundFactor
// times the start's heuristic value. A factor <= 0 replaces that cutoff with
// a horizon of table.Latest() plus the number of grid cells, beyond which no
// constraint can still force a detour.
func SpaceTimeAStar(
	grid *core.Grid,
	start, goal core.Location,
	h *HeuristicTable,
	table *ConstraintTable,
	costBoundFactor int,
) (core.Path, bool) {
	rootH, ok := h.Lookup(start)
	if !ok || h.Goal() != goal {
		return nil, false
	}
	holdFrom, ok := table.EarliestHold(goal)
	if !ok {
		return nil, false
	}

	bound := costBoundFactor * rootH
	if costBoundFactor <= 0 {
		bound = table.Latest() + grid.Rows*grid.Cols
	}

	open := &astarHeap{}
	heap.Init(open)
	seq := 0
	push := func(n *astarNode) {
		n.seq = seq
		seq++
		heap.Push(open, n)
	}

	best := make(map[SpaceTimeState]int)
	root := &astarNode{state: SpaceTimeState{Loc: start}, h: rootH}
	best[root.state] = 0
	push(root)

	for open.Len() > 0 {
		current := heap.Pop(open).(*astarNode)
		if current.g > bound {
			break
		}
		if current.g > best[current.state] {
			continue // superseded
		}

		if current.state.Loc == goal && current.state.T >= holdFrom {
			return reconstructPath(current), true
		}

		next := current.state.T + 1
		for i := 0; i < 5; i++ {
			loc := current.state.Loc
			if i < 4 {
				loc = loc.Move(core.Directions[i])
			}
			if grid.Blocked(loc) {
				continue
			}
			if table.Constrained(current.state.Loc, loc, next) {
				continue
			}
			childH, ok := h.Lookup(loc)
			if !ok {
				continue
			}
			state := SpaceTimeState{Loc: loc, T: next}
			g := current.g + 1
			if prev, seen := best[state]; seen && prev <= g {
				continue
			}
			best[state] = g
			push(&astarNode{state: state, g: g, h: childH, parent: current})
		}
	}

	return nil, false
}

func reconstructPath(node *astarNode) core.Path {
	path := make(core.Path, node.state.T+1)
	for n := node; n != nil; n = n.parent {
		path[n.state.T] = n.state.Loc
	}
	return path
}
