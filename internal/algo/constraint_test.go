package algo

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elektrokombinacija/gridmapf/internal/core"
)

func TestBuildConstraintTable(t *testing.T) {
	constraints := []Constraint{
		VertexConstraint(0, core.Loc(0, 1), 2),
		VertexConstraint(1, core.Loc(0, 1), 2),
		EdgeConstraint(0, core.Loc(0, 0), core.Loc(0, 1), 2),
		VertexConstraint(0, core.Loc(1, 1), 5),
		PermanentConstraint(0, core.Loc(2, 2), 7),
	}
	ct := BuildConstraintTable(constraints, 0)

	assert.Equal(t, 4, ct.size())
	assert.Len(t, ct.At(2), 2)
	assert.Len(t, ct.At(5), 1)
	assert.Empty(t, ct.At(3))
	require.Len(t, ct.Permanent(), 1)
	assert.Equal(t, 7, ct.Permanent()[0].StartTime)
	assert.Equal(t, 7, ct.Latest())
}

func TestConstraintTable_Constrained(t *testing.T) {
	ct := BuildConstraintTable([]Constraint{
		VertexConstraint(0, core.Loc(0, 1), 1),
		EdgeConstraint(0, core.Loc(1, 0), core.Loc(1, 1), 3),
		PermanentConstraint(0, core.Loc(2, 2), 4),
	}, 0)

	tests := []struct {
		name     string
		from, to core.Location
		t        int
		want     bool
	}{
		{"VertexHit", core.Loc(0, 0), core.Loc(0, 1), 1, true},
		{"VertexWaitHit", core.Loc(0, 1), core.Loc(0, 1), 1, true},
		{"VertexOtherTime", core.Loc(0, 0), core.Loc(0, 1), 2, false},
		{"EdgeHit", core.Loc(1, 0), core.Loc(1, 1), 3, true},
		{"EdgeReverse", core.Loc(1, 1), core.Loc(1, 0), 3, false},
		{"EdgeOtherTime", core.Loc(1, 0), core.Loc(1, 1), 2, false},
		{"PermanentBefore", core.Loc(2, 1), core.Loc(2, 2), 3, false},
		{"PermanentAt", core.Loc(2, 1), core.Loc(2, 2), 4, true},
		{"PermanentAfter", core.Loc(2, 2), core.Loc(2, 2), 40, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ct.Constrained(tt.from, tt.to, tt.t))
		})
	}
}

func TestConstraintTable_Positive(t *testing.T) {
	posVertex := VertexConstraint(0, core.Loc(1, 1), 2)
	posVertex.Positive = true
	posEdge := EdgeConstraint(0, core.Loc(0, 0), core.Loc(0, 1), 4)
	posEdge.Positive = true

	own := BuildConstraintTable([]Constraint{posVertex, posEdge}, 0)
	assert.False(t, own.Constrained(core.Loc(1, 0), core.Loc(1, 1), 2))
	assert.True(t, own.Constrained(core.Loc(1, 0), core.Loc(1, 0), 2))
	assert.False(t, own.Constrained(core.Loc(0, 0), core.Loc(0, 1), 4))
	assert.True(t, own.Constrained(core.Loc(1, 1), core.Loc(0, 1), 4))

	other := BuildConstraintTable([]Constraint{posVertex, posEdge}, 1)
	assert.True(t, other.Constrained(core.Loc(1, 0), core.Loc(1, 1), 2), "vertex taken by agent 0")
	assert.True(t, other.Constrained(core.Loc(0, 2), core.Loc(0, 1), 4), "edge target taken")
	assert.True(t, other.Constrained(core.Loc(0, 1), core.Loc(0, 0), 4), "swap")
	assert.True(t, other.Constrained(core.Loc(1, 0), core.Loc(0, 0), 3), "edge source taken")
	assert.False(t, other.Constrained(core.Loc(1, 0), core.Loc(0, 0), 4))
	assert.Equal(t, 4, other.size())
}

func TestConstraintTable_EarliestHold(t *testing.T) {
	goal := core.Loc(0, 2)
	pos := VertexConstraint(0, core.Loc(0, 1), 9)
	pos.Positive = true

	tests := []struct {
		name   string
		cons   []Constraint
		want   int
		wantOK bool
	}{
		{"None", nil, 0, true},
		{"VertexOnGoal", []Constraint{VertexConstraint(0, goal, 6)}, 6, true},
		{"VertexElsewhere", []Constraint{VertexConstraint(0, core.Loc(0, 1), 6)}, 0, true},
		{"EdgeIntoGoal", []Constraint{EdgeConstraint(0, core.Loc(0, 1), goal, 8)}, 0, true},
		{"PositiveElsewhere", []Constraint{pos}, 9, true},
		{"PermanentOnGoal", []Constraint{PermanentConstraint(0, goal, 3)}, 0, false},
		{"OtherAgent", []Constraint{VertexConstraint(1, goal, 6)}, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BuildConstraintTable(tt.cons, 0).EarliestHold(goal)
			assert.Equal(t, tt.wantOK, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestConstraintList(t *testing.T) {
	var root *constraintList
	assert.Equal(t, 0, root.Len())
	assert.Empty(t, root.Slice())

	a := root.push(VertexConstraint(0, core.Loc(0, 0), 1))
	b := a.push(VertexConstraint(1, core.Loc(0, 1), 2))
	c := a.push(VertexConstraint(2, core.Loc(0, 2), 3))

	assert.Equal(t, 2, b.Len())
	assert.Equal(t, 2, c.Len())
	got := b.Slice()
	require.Len(t, got, 2)
	assert.Equal(t, core.AgentID(0), got[0].Agent)
	assert.Equal(t, core.AgentID(1), got[1].Agent)
	assert.Equal(t, core.AgentID(2), c.Slice()[1].Agent, "siblings share the parent prefix only")
}

func TestConstraintString(t *testing.T) {
	assert.Equal(t, "a1 !(0,2)@t=3", VertexConstraint(1, core.Loc(0, 2), 3).String())
	assert.Equal(t, "a0 !(0,0)->(0,1)@t=1", EdgeConstraint(0, core.Loc(0, 0), core.Loc(0, 1), 1).String())
	assert.Equal(t, "a2 !(1,1)@t>=4", PermanentConstraint(2, core.Loc(1, 1), 4).String())
	assert.True(t, PermanentConstraint(2, core.Loc(1, 1), 4).Permanent())
}
