package core

// Grid is an immutable 2-D occupancy map. Blocked[r][c] == true marks an
// obstacle.
type Grid struct {
	Rows, Cols int
	blocked    [][]bool
}

// NewGrid copies blocked into a new Grid.
// Returns ErrEmptyGrid if there are no rows or no columns and ErrRaggedGrid
// if rows differ in length.
func NewGrid(blocked [][]bool) (*Grid, error) {
	if len(blocked) == 0 || len(blocked[0]) == 0 {
		return nil, ErrEmptyGrid
	}
	rows, cols := len(blocked), len(blocked[0])
	cells := make([][]bool, rows)
	for r, row := range blocked {
		if len(row) != cols {
			return nil, ErrRaggedGrid
		}
		cells[r] = make([]bool, cols)
		copy(cells[r], row)
	}
	return &Grid{Rows: rows, Cols: cols, blocked: cells}, nil
}

// MustGrid is NewGrid for literals known to be well formed.
func MustGrid(blocked [][]bool) *Grid {
	g, err := NewGrid(blocked)
	if err != nil {
		panic(err)
	}
	return g
}

// OpenGrid creates an obstacle-free rows x cols grid.
func OpenGrid(rows, cols int) *Grid {
	blocked := make([][]bool, rows)
	for r := range blocked {
		blocked[r] = make([]bool, cols)
	}
	return MustGrid(blocked)
}

// InBounds reports whether l lies inside the grid.
func (g *Grid) InBounds(l Location) bool {
	return l.Row >= 0 && l.Row < g.Rows && l.Col >= 0 && l.Col < g.Cols
}

// Blocked reports whether l is an obstacle. Out-of-bounds cells count as
// blocked.
func (g *Grid) Blocked(l Location) bool {
	if !g.InBounds(l) {
		return true
	}
	return g.blocked[l.Row][l.Col]
}

// Free reports whether an agent may occupy l.
func (g *Grid) Free(l Location) bool {
	return !g.Blocked(l)
}

// Neighbors returns the free 4-adjacent cells of l in Directions order.
func (g *Grid) Neighbors(l Location) []Location {
	out := make([]Location, 0, 4)
	for _, d := range Directions {
		n := l.Move(d)
		if g.Free(n) {
			out = append(out, n)
		}
	}
	return out
}

// FreeCells returns every free cell, row-major.
func (g *Grid) FreeCells() []Location {
	var out []Location
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			if !g.blocked[r][c] {
				out = append(out, Location{Row: r, Col: c})
			}
		}
	}
	return out
}

// Cells returns a copy of the occupancy matrix.
func (g *Grid) Cells() [][]bool {
	out := make([][]bool, g.Rows)
	for r := range out {
		out[r] = make([]bool, g.Cols)
		copy(out[r], g.blocked[r])
	}
	return out
}
