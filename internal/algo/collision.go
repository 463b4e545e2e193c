package algo

import (
	"fmt"

	"github.com/elektrokombinacija/gridmapf/internal/core"
)

// Collision is the first conflict between two agents.
// For an edge collision AgentA moves Loc -> To while AgentB moves To -> Loc,
// both arriving at Timestep.
type Collision struct {
	AgentA, AgentB core.AgentID
	Loc            core.Location
	To             core.Location
	IsEdge         bool
	Timestep       int
}

func (c Collision) String() string {
	if c.IsEdge {
		return fmt.Sprintf("edge a%d/a%d %v<->%v@t=%d", c.AgentA, c.AgentB, c.Loc, c.To, c.Timestep)
	}
	return fmt.Sprintf("vertex a%d/a%d %v@t=%d", c.AgentA, c.AgentB, c.Loc, c.Timestep)
}

// DetectCollision returns the earliest vertex or edge collision between two
// paths, reading both with hold-at-goal semantics. At each timestep a vertex
// collision takes precedence over a swap that starts there.
func DetectCollision(a, b core.Path) (Collision, bool) {
	if len(a) == 0 || len(b) == 0 {
		return Collision{}, false
	}
	for t := 0; t < max(len(a), len(b)); t++ {
		a0, a1 := a.At(t), a.At(t+1)
		b0, b1 := b.At(t), b.At(t+1)
		if a0 == b0 {
			return Collision{Loc: a0, Timestep: t}, true
		}
		if a0 == b1 && b0 == a1 {
			return Collision{Loc: a0, To: a1, IsEdge: true, Timestep: t + 1}, true
		}
	}
	return Collision{}, false
}

// DetectCollisions returns the first collision of every colliding pair, in
// ascending (i, j) order.
func DetectCollisions(paths []core.Path) []Collision {
	var collisions []Collision
	for i := 0; i < len(paths); i++ {
		for j := i + 1; j < len(paths); j++ {
			c, ok := DetectCollision(paths[i], paths[j])
			if !ok {
				continue
			}
			c.AgentA, c.AgentB = core.AgentID(i), core.AgentID(j)
			collisions = append(collisions, c)
		}
	}
	return collisions
}
