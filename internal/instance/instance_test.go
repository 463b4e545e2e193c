package instance

import (
	"bytes"
	"math/rand"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/elektrokombinacija/gridmapf/internal/algo"
	"github.com/elektrokombinacija/gridmapf/internal/core"
)

const corridor = `4 7
@ @ @ @ @ @ @
@ . . . . . @
@ @ @ . @ @ @
@ @ @ @ @ @ @
2
1 1 1 5
1 2 1 4
`

func TestParse(t *testing.T) {
	inst, err := Parse(strings.NewReader(corridor))
	require.NoError(t, err)

	assert.Equal(t, 4, inst.Grid.Rows)
	assert.Equal(t, 7, inst.Grid.Cols)
	assert.True(t, inst.Grid.Blocked(core.Loc(0, 0)))
	assert.True(t, inst.Grid.Free(core.Loc(2, 3)))
	assert.Equal(t, []core.Location{core.Loc(1, 1), core.Loc(1, 2)}, inst.Starts)
	assert.Equal(t, []core.Location{core.Loc(1, 5), core.Loc(1, 4)}, inst.Goals)
}

func TestParse_PackedRowsAndComments(t *testing.T) {
	src := `# packed
2 3
.@.   # first row
...
1
0 0 0 2
`
	inst, err := Parse(strings.NewReader(src))
	require.NoError(t, err)
	assert.True(t, inst.Grid.Blocked(core.Loc(0, 1)))
	assert.Equal(t, 1, inst.NumAgents())
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"Empty", ""},
		{"BadDims", "x 3\n"},
		{"ZeroDims", "0 3\n0\n"},
		{"ShortMap", "2 2\n. .\n"},
		{"WideRow", "1 2\n. . .\n0\n"},
		{"BadCell", "1 2\n. x\n0\n"},
		{"MissingCount", "1 2\n. .\n"},
		{"MissingAgent", "1 2\n. .\n1\n"},
		{"ShortAgent", "1 2\n. .\n1\n0 0 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.src))
			assert.ErrorIs(t, err, ErrFormat)
		})
	}

	_, err := Parse(strings.NewReader("1 2\n. .\n2\n0 0 0 1\n0 0 0 0\n"))
	assert.ErrorIs(t, err, core.ErrInvalidInstance, "shared start")
}

func TestWriteRoundTrip(t *testing.T) {
	inst, err := Parse(strings.NewReader(corridor))
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, Write(&buf, inst))
	assert.Equal(t, corridor, buf.String())
}

func TestSaveLoad(t *testing.T) {
	inst, err := Parse(strings.NewReader(corridor))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "corridor.txt")
	require.NoError(t, Save(path, inst))
	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, inst.Starts, got.Starts)
	assert.Equal(t, inst.Grid.Cells(), got.Grid.Cells())

	_, err = Load(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

const groups = `@ @ @ @ @ @ @
@ . . . . . @   # open row
@ @ @ . @ @ @
@ @ @ @ @ @ @
a1 1 2
s1 1 1 1 2
g1 1 5 1 4
aB 0 1
sB 2 3 1 3
gB 1 3 1 3
`

func TestParseGroups(t *testing.T) {
	gf, err := ParseGroups(strings.NewReader(groups))
	require.NoError(t, err)

	assert.Equal(t, 4, gf.Grid.Rows)
	require.Len(t, gf.Groups, 2)

	g1 := gf.Groups[0]
	assert.Equal(t, "1", g1.ID)
	assert.Equal(t, 1, g1.MinAgents)
	assert.Equal(t, 2, g1.MaxAgents)
	assert.Equal(t, []core.Location{core.Loc(1, 1), core.Loc(1, 2)}, g1.Starts)
	assert.Equal(t, []core.Location{core.Loc(1, 4), core.Loc(1, 5)}, g1.Goals, "corners may come in any order")

	i, ok := gf.Index("B")
	require.True(t, ok)
	assert.Equal(t, 1, i)
	assert.Equal(t, []core.Location{core.Loc(1, 3), core.Loc(2, 3)}, gf.Groups[i].Starts)
	_, ok = gf.Index("C")
	assert.False(t, ok)

	assert.Equal(t, [][]int{{1, 0}, {1, 1}, {2, 0}, {2, 1}}, gf.SizeCombinations())
}

func TestParseGroups_SkipsBlockedCells(t *testing.T) {
	src := "@ . .\n. . .\na1 1 1\ns1 0 0 0 2\ng1 1 0 1 0\n"
	gf, err := ParseGroups(strings.NewReader(src))
	require.NoError(t, err)
	assert.Equal(t, []core.Location{core.Loc(0, 1), core.Loc(0, 2)}, gf.Groups[0].Starts)
}

func TestParseGroups_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"NoMap", "a1 1 1\ns1 0 0 0 0\ng1 0 0 0 0\n"},
		{"NoGroups", ". .\n"},
		{"MissingGoal", ". .\na1 1 1\ns1 0 0 0 0\n"},
		{"Orphan", ". .\na1 1 1\ns1 0 0 0 0\ng1 0 1 0 1\ns2 0 0 0 0\n"},
		{"TooMany", ". .\na1 1 2\ns1 0 0 0 0\ng1 0 1 0 1\n"},
		{"BadRange", ". .\na1 2 1\ns1 0 0 0 1\ng1 0 0 0 1\n"},
		{"Duplicate", ". .\na1 1 1\na1 1 1\ns1 0 0 0 0\ng1 0 1 0 1\n"},
		{"NoID", ". .\na 1 1\n"},
		{"Unexpected", ". .\nx1 1 1\n"},
		{"BadInts", ". .\na1 one 1\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseGroups(strings.NewReader(tt.src))
			assert.ErrorIs(t, err, ErrFormat)
		})
	}
}

func TestGenerate(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	inst, err := Generate(rng, GenOptions{Rows: 8, Cols: 8, Density: 0.2, Agents: 5})
	require.NoError(t, err)
	assert.Equal(t, 5, inst.NumAgents())
	assert.NoError(t, inst.Validate())

	_, err = Generate(rng, GenOptions{Rows: 0, Cols: 8})
	assert.Error(t, err)
	_, err = Generate(rng, GenOptions{Rows: 2, Cols: 2, Density: 1})
	assert.Error(t, err)
	_, err = Generate(rng, GenOptions{Rows: 2, Cols: 2, Agents: 5})
	assert.Error(t, err, "more agents than cells")
}

func TestGenerateProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		opts := GenOptions{
			Rows:    rapid.IntRange(1, 8).Draw(t, "rows"),
			Cols:    rapid.IntRange(1, 8).Draw(t, "cols"),
			Density: rapid.Float64Range(0, 0.5).Draw(t, "density"),
			Agents:  rapid.IntRange(0, 4).Draw(t, "agents"),
		}
		rng := rand.New(rand.NewSource(rapid.Int64().Draw(t, "seed")))
		inst, err := Generate(rng, opts)
		if err != nil {
			return
		}
		if inst.NumAgents() != opts.Agents {
			t.Fatalf("got %d agents, want %d", inst.NumAgents(), opts.Agents)
		}
		for i := range inst.Starts {
			h := algo.ComputeHeuristics(inst.Grid, inst.Goals[i])
			if !h.Reachable(inst.Starts[i]) {
				t.Fatalf("agent %d cannot reach its goal", i)
			}
		}

		var buf bytes.Buffer
		if err := Write(&buf, inst); err != nil {
			t.Fatalf("write: %v", err)
		}
		back, err := Parse(&buf)
		if err != nil {
			t.Fatalf("parse: %v", err)
		}
		if back.NumAgents() != inst.NumAgents() || back.Grid.Rows != inst.Grid.Rows {
			t.Fatalf("round trip changed the instance")
		}
	})
}
