package algo

import (
	"fmt"

	"github.com/elektrokombinacija/gridmapf/internal/core"
)

// Forever is the Timestep of a permanent constraint.
const Forever = -1

// Constraint restricts one agent at one timestep.
//
// A vertex constraint forbids Loc at Timestep. An edge constraint forbids the
// move Loc -> To that arrives at Timestep. A permanent constraint (Timestep ==
// Forever) forbids Loc at every timestep >= StartTime. Positive constraints
// invert the meaning: the agent must be at Loc (or make the move Loc -> To)
// at Timestep, and every other agent is kept off it.
type Constraint struct {
	Agent     core.AgentID
	Loc       core.Location
	To        core.Location // edge target
	IsEdge    bool
	Timestep  int
	StartTime int // permanent constraints only
	Positive  bool
}

// VertexConstraint forbids agent from loc at timestep t.
func VertexConstraint(agent core.AgentID, loc core.Location, t int) Constraint {
	return Constraint{Agent: agent, Loc: loc, Timestep: t}
}

// EdgeConstraint forbids agent from moving from -> to, arriving at timestep t.
func EdgeConstraint(agent core.AgentID, from, to core.Location, t int) Constraint {
	return Constraint{Agent: agent, Loc: from, To: to, IsEdge: true, Timestep: t}
}

// PermanentConstraint forbids agent from loc from startTime onwards.
func PermanentConstraint(agent core.AgentID, loc core.Location, startTime int) Constraint {
	return Constraint{Agent: agent, Loc: loc, Timestep: Forever, StartTime: startTime}
}

// Permanent reports whether c applies to every timestep from StartTime on.
func (c Constraint) Permanent() bool {
	return c.Timestep == Forever
}

func (c Constraint) String() string {
	sign := "!"
	if c.Positive {
		sign = "+"
	}
	switch {
	case c.Permanent():
		return fmt.Sprintf("a%d %s%v@t>=%d", c.Agent, sign, c.Loc, c.StartTime)
	case c.IsEdge:
		return fmt.Sprintf("a%d %s%v->%v@t=%d", c.Agent, sign, c.Loc, c.To, c.Timestep)
	default:
		return fmt.Sprintf("a%d %s%v@t=%d", c.Agent, sign, c.Loc, c.Timestep)
	}
}

// implied returns the negative constraints that a positive constraint of
// another agent places on agent.
func (c Constraint) implied(agent core.AgentID) []Constraint {
	if !c.IsEdge {
		return []Constraint{VertexConstraint(agent, c.Loc, c.Timestep)}
	}
	out := []Constraint{
		VertexConstraint(agent, c.To, c.Timestep),
		EdgeConstraint(agent, c.To, c.Loc, c.Timestep),
	}
	if c.Timestep > 0 {
		out = append(out, VertexConstraint(agent, c.Loc, c.Timestep-1))
	}
	return out
}

// violatedBy reports whether path breaks one of the constraints implied by
// positive constraint c for a different agent.
func (c Constraint) violatedBy(path core.Path) bool {
	if !c.IsEdge {
		return path.At(c.Timestep) == c.Loc
	}
	prev, cur := path.At(c.Timestep-1), path.At(c.Timestep)
	return cur == c.To || prev == c.Loc || (prev == c.To && cur == c.Loc)
}

// ConstraintTable indexes one agent's constraints by timestep.
type ConstraintTable struct {
	byTime    map[int][]Constraint
	permanent []Constraint
	latest    int // largest Timestep or StartTime seen
}

// BuildConstraintTable collects the constraints that apply to agent.
// Positive constraints of other agents are folded in as the negative
// constraints they imply.
func BuildConstraintTable(constraints []Constraint, agent core.AgentID) *ConstraintTable {
	ct := &ConstraintTable{
		byTime: make(map[int][]Constraint),
	}
	for _, c := range constraints {
		switch {
		case c.Agent == agent:
			ct.add(c)
		case c.Positive:
			for _, n := range c.implied(agent) {
				ct.add(n)
			}
		}
	}
	return ct
}

func (ct *ConstraintTable) add(c Constraint) {
	if c.Permanent() {
		ct.permanent = append(ct.permanent, c)
		ct.latest = max(ct.latest, c.StartTime)
		return
	}
	ct.byTime[c.Timestep] = append(ct.byTime[c.Timestep], c)
	ct.latest = max(ct.latest, c.Timestep)
}

// At returns the constraints bucketed at timestep t.
func (ct *ConstraintTable) At(t int) []Constraint {
	return ct.byTime[t]
}

// Permanent returns the permanent constraints.
func (ct *ConstraintTable) Permanent() []Constraint {
	return ct.permanent
}

// Latest returns the last timestep at which any constraint starts to apply.
func (ct *ConstraintTable) Latest() int {
	return ct.latest
}

// size returns the number of constraints in the table.
func (ct *ConstraintTable) size() int {
	n := len(ct.permanent)
	for _, cs := range ct.byTime {
		n += len(cs)
	}
	return n
}

// Constrained reports whether the move from -> to arriving at timestep t is
// forbidden. A wait is the move from -> from.
func (ct *ConstraintTable) Constrained(from, to core.Location, t int) bool {
	for _, c := range ct.byTime[t] {
		if c.Positive {
			if c.IsEdge {
				if c.Loc != from || c.To != to {
					return true
				}
			} else if c.Loc != to {
				return true
			}
			continue
		}
		if c.IsEdge {
			if c.Loc == from && c.To == to {
				return true
			}
		} else if c.Loc == to {
			return true
		}
	}
	for _, c := range ct.permanent {
		if c.StartTime <= t && c.Loc == to {
			return true
		}
	}
	return false
}

// EarliestHold returns the first timestep from which the agent may stay at
// goal forever. ok is false if a permanent constraint ever forbids goal.
func (ct *ConstraintTable) EarliestHold(goal core.Location) (int, bool) {
	for _, c := range ct.permanent {
		if c.Loc == goal {
			return 0, false
		}
	}
	earliest := 0
	for t, cs := range ct.byTime {
		if t <= earliest {
			continue
		}
		for _, c := range cs {
			if blocksHold(c, goal) {
				earliest = t
				break
			}
		}
	}
	return earliest, true
}

// blocksHold reports whether waiting at goal across c.Timestep breaks c.
func blocksHold(c Constraint, goal core.Location) bool {
	switch {
	case c.Positive && c.IsEdge:
		return true
	case c.Positive:
		return c.Loc != goal
	case c.IsEdge:
		return false
	default:
		return c.Loc == goal
	}
}

// constraintList is a persistent, append-only list of constraints. Child
// nodes of the search tree share their parent's list.
type constraintList struct {
	c    Constraint
	prev *constraintList
	n    int
}

func (l *constraintList) push(c Constraint) *constraintList {
	return &constraintList{c: c, prev: l, n: l.Len() + 1}
}

// Len returns the number of constraints in the list.
func (l *constraintList) Len() int {
	if l == nil {
		return 0
	}
	return l.n
}

// Slice returns the constraints oldest first.
func (l *constraintList) Slice() []Constraint {
	out := make([]Constraint, l.Len())
	for cur, i := l, l.Len()-1; cur != nil; cur, i = cur.prev, i-1 {
		out[i] = cur.c
	}
	return out
}
