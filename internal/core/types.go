// Package core defines domain models for grid multi-agent path finding.
package core

import "fmt"

// AgentID identifies an agent. It is the agent's index in Instance.Starts,
// Instance.Goals and every per-agent slice derived from them.
type AgentID int

// Location is a grid cell (row, column).
type Location struct {
	Row, Col int
}

// Loc is shorthand for Location{Row: row, Col: col}.
func Loc(row, col int) Location {
	return Location{Row: row, Col: col}
}

func (l Location) String() string {
	return fmt.Sprintf("(%d,%d)", l.Row, l.Col)
}

// Less orders locations row-major.
func (l Location) Less(o Location) bool {
	if l.Row != o.Row {
		return l.Row < o.Row
	}
	return l.Col < o.Col
}

// Adjacent reports whether o is one of the four grid neighbours of l.
func (l Location) Adjacent(o Location) bool {
	dr, dc := l.Row-o.Row, l.Col-o.Col
	return dr*dr+dc*dc == 1
}

// Direction is one of the four grid moves.
type Direction int

const (
	West  Direction = iota // col - 1
	South                  // row + 1
	East                   // col + 1
	North                  // row - 1
)

func (d Direction) String() string {
	return [...]string{"West", "South", "East", "North"}[d]
}

// Directions lists the moves in expansion order.
var Directions = [4]Direction{West, South, East, North}

var offsets = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

// Move returns the location one step from l in direction d.
func (l Location) Move(d Direction) Location {
	o := offsets[d]
	return Location{Row: l.Row + o[0], Col: l.Col + o[1]}
}
