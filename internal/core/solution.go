package core

import (
	"fmt"
	"time"
)

// Path is a sequence of cells indexed by timestep. After its last entry the
// agent stays at that cell forever.
type Path []Location

// At returns the agent's location at timestep t with hold-at-goal semantics.
func (p Path) At(t int) Location {
	if t < 0 {
		return p[0]
	}
	if t >= len(p) {
		return p[len(p)-1]
	}
	return p[t]
}

// Cost is the number of timesteps until the final entry.
func (p Path) Cost() int {
	return len(p) - 1
}

// Validate checks that p runs from start to goal over free cells with only
// waits and 4-adjacent moves.
func (p Path) Validate(g *Grid, start, goal Location) error {
	if len(p) == 0 {
		return fmt.Errorf("empty path")
	}
	if p[0] != start {
		return fmt.Errorf("path starts at %v, want %v", p[0], start)
	}
	if p[len(p)-1] != goal {
		return fmt.Errorf("path ends at %v, want %v", p[len(p)-1], goal)
	}
	for t, l := range p {
		if g.Blocked(l) {
			return fmt.Errorf("path enters blocked cell %v at t=%d", l, t)
		}
		if t > 0 && p[t-1] != l && !p[t-1].Adjacent(l) {
			return fmt.Errorf("path jumps %v -> %v at t=%d", p[t-1], l, t)
		}
	}
	return nil
}

// SumOfCosts returns the sum over paths of len(path)-1.
func SumOfCosts(paths []Path) int {
	total := 0
	for _, p := range paths {
		total += p.Cost()
	}
	return total
}

// Solution is a complete set of collision-free paths.
type Solution struct {
	Paths     []Path // indexed by AgentID
	Cost      int    // sum of costs
	Duration  time.Duration
	Generated int // search nodes generated
	Expanded  int // search nodes expanded
}

// NewSolution wraps paths and computes their cost.
func NewSolution(paths []Path) *Solution {
	return &Solution{
		Paths: paths,
		Cost:  SumOfCosts(paths),
	}
}

// Makespan returns the timestep at which the last agent arrives.
func (s *Solution) Makespan() int {
	m := 0
	for _, p := range s.Paths {
		if c := p.Cost(); c > m {
			m = c
		}
	}
	return m
}
