package instance

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/elektrokombinacija/gridmapf/internal/core"
)

// Group is a family of agents sharing start and goal areas.
type Group struct {
	ID        string
	MinAgents int
	MaxAgents int
	Starts    []core.Location // free cells of the start rectangle, row-major
	Goals     []core.Location // free cells of the goal rectangle, row-major
}

// GroupFile is a map plus agent groups.
type GroupFile struct {
	Grid   *core.Grid
	Groups []Group
}

// Index returns the position of the group with the given id.
func (gf *GroupFile) Index(id string) (int, bool) {
	for i := range gf.Groups {
		if gf.Groups[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// SizeCombinations returns every per-group agent count between MinAgents and
// MaxAgents, the first group varying slowest.
func (gf *GroupFile) SizeCombinations() [][]int {
	combos := [][]int{{}}
	for _, g := range gf.Groups {
		var next [][]int
		for _, prefix := range combos {
			for n := g.MinAgents; n <= g.MaxAgents; n++ {
				next = append(next, append(append([]int(nil), prefix...), n))
			}
		}
		combos = next
	}
	return combos
}

type rect struct {
	r1, c1, r2, c2 int
}

// ParseGroups reads a group file from r. Lines starting with '@' or '.' are
// map rows. The other lines define groups by an id following the first
// letter:
//
//	a<id> min max      agent count range, inclusive
//	s<id> r1 c1 r2 c2  start rectangle corners
//	g<id> r1 c1 r2 c2  goal rectangle corners
//
// Blocked cells inside a rectangle are skipped.
func ParseGroups(r io.Reader) (*GroupFile, error) {
	lr := newLineReader(r)

	var cells [][]bool
	var order []string
	sizes := map[string][2]int{}
	starts := map[string]rect{}
	goals := map[string]rect{}

	for {
		text, ok, err := lr.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}

		switch text[0] {
		case '@', '.':
			row, ok := parseRow(text)
			if !ok {
				return nil, lr.errorf("bad map row %q", text)
			}
			cells = append(cells, row)
			continue
		case 'a', 's', 'g':
		default:
			return nil, lr.errorf("unexpected line %q", text)
		}

		head, rest, _ := strings.Cut(text, " ")
		id := head[1:]
		if id == "" {
			return nil, lr.errorf("missing group id in %q", text)
		}
		switch head[0] {
		case 'a':
			v, err := lr.ints(rest, 2)
			if err != nil {
				return nil, err
			}
			if _, dup := sizes[id]; dup {
				return nil, lr.errorf("group %q defined twice", id)
			}
			if v[0] < 0 || v[0] > v[1] {
				return nil, lr.errorf("bad agent range %d..%d", v[0], v[1])
			}
			sizes[id] = [2]int{v[0], v[1]}
			order = append(order, id)
		case 's', 'g':
			v, err := lr.ints(rest, 4)
			if err != nil {
				return nil, err
			}
			rc := rect{min(v[0], v[2]), min(v[1], v[3]), max(v[0], v[2]), max(v[1], v[3])}
			if head[0] == 's' {
				starts[id] = rc
			} else {
				goals[id] = rc
			}
		}
	}

	if len(cells) == 0 {
		return nil, fmt.Errorf("%w: no map rows", ErrFormat)
	}
	grid, err := core.NewGrid(cells)
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, fmt.Errorf("%w: no agent groups", ErrFormat)
	}

	gf := &GroupFile{Grid: grid}
	for _, id := range order {
		s, okS := starts[id]
		t, okG := goals[id]
		if !okS || !okG {
			return nil, fmt.Errorf("%w: group %q needs both s%s and g%s lines", ErrFormat, id, id, id)
		}
		g := Group{
			ID:        id,
			MinAgents: sizes[id][0],
			MaxAgents: sizes[id][1],
			Starts:    expand(grid, s),
			Goals:     expand(grid, t),
		}
		if g.MaxAgents > len(g.Starts) || g.MaxAgents > len(g.Goals) {
			return nil, fmt.Errorf("%w: group %q allows %d agents but has %d starts and %d goals",
				ErrFormat, id, g.MaxAgents, len(g.Starts), len(g.Goals))
		}
		gf.Groups = append(gf.Groups, g)
	}
	for id := range starts {
		if _, ok := sizes[id]; !ok {
			return nil, fmt.Errorf("%w: s%s without a%s", ErrFormat, id, id)
		}
	}
	for id := range goals {
		if _, ok := sizes[id]; !ok {
			return nil, fmt.Errorf("%w: g%s without a%s", ErrFormat, id, id)
		}
	}
	return gf, nil
}

// expand lists the free in-bounds cells of rc, row-major.
func expand(g *core.Grid, rc rect) []core.Location {
	var out []core.Location
	for r := rc.r1; r <= rc.r2; r++ {
		for c := rc.c1; c <= rc.c2; c++ {
			if l := core.Loc(r, c); g.Free(l) {
				out = append(out, l)
			}
		}
	}
	return out
}

// LoadGroups reads a group file.
func LoadGroups(path string) (*GroupFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	gf, err := ParseGroups(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return gf, nil
}
