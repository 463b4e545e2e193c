package algo

import (
	"fmt"
	"math/rand"
)

// Splitter turns a collision into two constraints; every solution avoiding
// the collision satisfies at least one of them.
type Splitter interface {
	Split(c Collision) [2]Constraint
	Name() string
}

// Splitting strategy names.
const (
	SplitStandard = "standard"
	SplitDisjoint = "disjoint"
)

// NewSplitter returns the splitter registered under name.
func NewSplitter(name string, seed int64) (Splitter, error) {
	switch name {
	case "", SplitStandard:
		return StandardSplitter{}, nil
	case SplitDisjoint:
		return NewDisjointSplitter(seed), nil
	default:
		return nil, fmt.Errorf("unknown splitting strategy %q", name)
	}
}

// StandardSplitter forbids the collision for each agent in turn.
type StandardSplitter struct{}

func (StandardSplitter) Name() string { return SplitStandard }

// Split returns one negative constraint per agent. The second agent of an
// edge collision traverses the edge the other way.
func (StandardSplitter) Split(c Collision) [2]Constraint {
	if c.IsEdge {
		return [2]Constraint{
			EdgeConstraint(c.AgentA, c.Loc, c.To, c.Timestep),
			EdgeConstraint(c.AgentB, c.To, c.Loc, c.Timestep),
		}
	}
	return [2]Constraint{
		VertexConstraint(c.AgentA, c.Loc, c.Timestep),
		VertexConstraint(c.AgentB, c.Loc, c.Timestep),
	}
}

// DisjointSplitter picks one agent at random and branches on whether that
// agent takes the contested cell or edge. The positive branch keeps every
// other agent off it, so the two branches share no solutions.
type DisjointSplitter struct {
	rng *rand.Rand
}

// NewDisjointSplitter seeds the agent choice.
func NewDisjointSplitter(seed int64) *DisjointSplitter {
	return &DisjointSplitter{rng: rand.New(rand.NewSource(seed))}
}

func (*DisjointSplitter) Name() string { return SplitDisjoint }

// Split returns a positive and a negative constraint for the chosen agent.
func (s *DisjointSplitter) Split(c Collision) [2]Constraint {
	agent, from, to := c.AgentA, c.Loc, c.To
	if s.rng.Intn(2) == 1 {
		agent, from, to = c.AgentB, c.To, c.Loc
	}
	neg := VertexConstraint(agent, c.Loc, c.Timestep)
	if c.IsEdge {
		neg = EdgeConstraint(agent, from, to, c.Timestep)
	}
	pos := neg
	pos.Positive = true
	return [2]Constraint{pos, neg}
}

// Compile-time interface checks
var (
	_ Splitter = StandardSplitter{}
	_ Splitter = (*DisjointSplitter)(nil)
)
