package algo

import (
	"time"

	"github.com/elektrokombinacija/gridmapf/internal/core"
)

// NodeInfo describes a constraint tree node for observers.
type NodeInfo struct {
	ID          int
	Parent      int // -1 for the root
	Cost        int
	Collisions  int
	Constraints int
}

// Observer is the interface for observing solver execution.
type Observer interface {
	// OnNodeGenerated is called when a node is pushed onto the open list.
	OnNodeGenerated(solver string, node NodeInfo)

	// OnNodeExpanded is called when a node is popped from the open list.
	OnNodeExpanded(solver string, node NodeInfo)

	// OnSolution is called when a solver returns a solution.
	OnSolution(solver string, sol *core.Solution)

	// OnFailure is called when a solver returns an error.
	OnFailure(solver string, err error, elapsed time.Duration)
}

// NopObserver ignores every callback.
type NopObserver struct{}

func (NopObserver) OnNodeGenerated(string, NodeInfo)       {}
func (NopObserver) OnNodeExpanded(string, NodeInfo)        {}
func (NopObserver) OnSolution(string, *core.Solution)      {}
func (NopObserver) OnFailure(string, error, time.Duration) {}

// Observers fans callbacks out to several observers in order.
type Observers []Observer

func (os Observers) OnNodeGenerated(solver string, node NodeInfo) {
	for _, o := range os {
		o.OnNodeGenerated(solver, node)
	}
}

func (os Observers) OnNodeExpanded(solver string, node NodeInfo) {
	for _, o := range os {
		o.OnNodeExpanded(solver, node)
	}
}

func (os Observers) OnSolution(solver string, sol *core.Solution) {
	for _, o := range os {
		o.OnSolution(solver, sol)
	}
}

func (os Observers) OnFailure(solver string, err error, elapsed time.Duration) {
	for _, o := range os {
		o.OnFailure(solver, err, elapsed)
	}
}
