// Package instance reads and writes grid MAPF instance files.
//
// A scenario file holds one concrete instance:
//
//	rows cols
//	@ . . @        rows lines, '@' blocked, '.' free
//	n
//	sr sc gr gc    n lines, one agent each
//
// A group file describes agent groups whose starts and goals are drawn from
// rectangles; see ParseGroups.
package instance

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/elektrokombinacija/gridmapf/internal/core"
)

// ErrFormat is wrapped by every parse failure.
var ErrFormat = errors.New("gridmapf: malformed instance file")

// lineReader yields trimmed, non-empty lines with '#' comments removed.
type lineReader struct {
	sc   *bufio.Scanner
	line int
}

func newLineReader(r io.Reader) *lineReader {
	return &lineReader{sc: bufio.NewScanner(r)}
}

func (lr *lineReader) next() (string, bool, error) {
	for lr.sc.Scan() {
		lr.line++
		text := lr.sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		if text = strings.TrimSpace(text); text != "" {
			return text, true, nil
		}
	}
	return "", false, lr.sc.Err()
}

func (lr *lineReader) errorf(format string, args ...any) error {
	return fmt.Errorf("%w: line %d: %s", ErrFormat, lr.line, fmt.Sprintf(format, args...))
}

// ints parses exactly n integers from a whitespace separated line.
func (lr *lineReader) ints(text string, n int) ([]int, error) {
	fields := strings.Fields(text)
	if len(fields) != n {
		return nil, lr.errorf("want %d integers, got %q", n, text)
	}
	out := make([]int, n)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, lr.errorf("bad integer %q", f)
		}
		out[i] = v
	}
	return out, nil
}

// parseRow reads one map row. Cells may be space separated or packed.
func parseRow(text string) ([]bool, bool) {
	fields := strings.Fields(text)
	if len(fields) == 1 {
		fields = strings.Split(fields[0], "")
	}
	row := make([]bool, 0, len(fields))
	for _, f := range fields {
		switch f {
		case "@":
			row = append(row, true)
		case ".":
			row = append(row, false)
		default:
			return nil, false
		}
	}
	return row, true
}

// Parse reads a scenario from r.
func Parse(r io.Reader) (*core.Instance, error) {
	lr := newLineReader(r)

	text, ok, err := lr.next()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: empty file", ErrFormat)
	}
	dims, err := lr.ints(text, 2)
	if err != nil {
		return nil, err
	}
	rows, cols := dims[0], dims[1]
	if rows <= 0 || cols <= 0 {
		return nil, lr.errorf("bad dimensions %dx%d", rows, cols)
	}

	cells := make([][]bool, rows)
	for r := 0; r < rows; r++ {
		text, ok, err := lr.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: want %d map rows, got %d", ErrFormat, rows, r)
		}
		row, ok := parseRow(text)
		if !ok || len(row) != cols {
			return nil, lr.errorf("bad map row %q", text)
		}
		cells[r] = row
	}
	grid, err := core.NewGrid(cells)
	if err != nil {
		return nil, err
	}

	text, ok, err = lr.next()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: missing agent count", ErrFormat)
	}
	count, err := lr.ints(text, 1)
	if err != nil {
		return nil, err
	}
	n := count[0]
	if n < 0 {
		return nil, lr.errorf("negative agent count")
	}

	starts := make([]core.Location, n)
	goals := make([]core.Location, n)
	for i := 0; i < n; i++ {
		text, ok, err := lr.next()
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, fmt.Errorf("%w: want %d agents, got %d", ErrFormat, n, i)
		}
		v, err := lr.ints(text, 4)
		if err != nil {
			return nil, err
		}
		starts[i] = core.Loc(v[0], v[1])
		goals[i] = core.Loc(v[2], v[3])
	}

	return core.NewInstance(grid, starts, goals)
}

// Load reads a scenario file.
func Load(path string) (*core.Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	inst, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return inst, nil
}

// Write encodes inst in the scenario format.
func Write(w io.Writer, inst *core.Instance) error {
	bw := bufio.NewWriter(w)
	g := inst.Grid
	fmt.Fprintf(bw, "%d %d\n", g.Rows, g.Cols)
	writeMap(bw, g)
	fmt.Fprintf(bw, "%d\n", inst.NumAgents())
	for i := range inst.Starts {
		s, t := inst.Starts[i], inst.Goals[i]
		fmt.Fprintf(bw, "%d %d %d %d\n", s.Row, s.Col, t.Row, t.Col)
	}
	return bw.Flush()
}

func writeMap(bw *bufio.Writer, g *core.Grid) {
	for _, row := range g.Cells() {
		for c, blocked := range row {
			if c > 0 {
				bw.WriteByte(' ')
			}
			if blocked {
				bw.WriteByte('@')
			} else {
				bw.WriteByte('.')
			}
		}
		bw.WriteByte('\n')
	}
}

// Save writes inst to path.
func Save(path string, inst *core.Instance) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Write(f, inst); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
