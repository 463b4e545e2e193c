package core

import "fmt"

// Instance is a grid MAPF problem: agent i travels from Starts[i] to Goals[i].
type Instance struct {
	Grid   *Grid
	Starts []Location
	Goals  []Location
}

// NewInstance creates an instance and validates it.
func NewInstance(grid *Grid, starts, goals []Location) (*Instance, error) {
	inst := &Instance{Grid: grid, Starts: starts, Goals: goals}
	if err := inst.Validate(); err != nil {
		return nil, err
	}
	return inst, nil
}

// NumAgents returns the number of agents.
func (inst *Instance) NumAgents() int {
	return len(inst.Starts)
}

// Validate checks structural consistency. Blocked or unreachable goals are
// not rejected here; the solver reports them as ErrInfeasible.
func (inst *Instance) Validate() error {
	if inst.Grid == nil {
		return fmt.Errorf("%w: missing grid", ErrInvalidInstance)
	}
	if len(inst.Starts) != len(inst.Goals) {
		return fmt.Errorf("%w: %d starts but %d goals", ErrInvalidInstance, len(inst.Starts), len(inst.Goals))
	}
	seenStart := make(map[Location]AgentID, len(inst.Starts))
	seenGoal := make(map[Location]AgentID, len(inst.Goals))
	for i := range inst.Starts {
		s, g := inst.Starts[i], inst.Goals[i]
		if !inst.Grid.InBounds(s) {
			return fmt.Errorf("%w: agent %d start %v out of bounds", ErrInvalidInstance, i, s)
		}
		if !inst.Grid.InBounds(g) {
			return fmt.Errorf("%w: agent %d goal %v out of bounds", ErrInvalidInstance, i, g)
		}
		if other, ok := seenStart[s]; ok {
			return fmt.Errorf("%w: agents %d and %d share start %v", ErrInvalidInstance, other, i, s)
		}
		if other, ok := seenGoal[g]; ok {
			return fmt.Errorf("%w: agents %d and %d share goal %v", ErrInvalidInstance, other, i, g)
		}
		seenStart[s] = AgentID(i)
		seenGoal[g] = AgentID(i)
	}
	return nil
}
