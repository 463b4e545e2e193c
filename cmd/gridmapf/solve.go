package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/gridmapf/internal/core"
	"github.com/elektrokombinacija/gridmapf/internal/instance"
)

func newSolveCmd(a *app) *cobra.Command {
	var (
		algorithm string
		splitting string
		asJSON    bool
	)

	cmd := &cobra.Command{
		Use:   "solve <scenario>",
		Short: "Solve one scenario file",
		Long: `Solve reads a scenario file (grid, agent count, one "sr sc gr gc" line per
agent) and prints a collision-free path for every agent.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if algorithm != "" {
				a.cfg.Solver.Algorithm = algorithm
			}
			if splitting != "" {
				a.cfg.Solver.Splitting = splitting
			}

			inst, err := instance.Load(args[0])
			if err != nil {
				return err
			}
			solver, err := a.newSolver(a.cfg.Solver.Algorithm, 0)
			if err != nil {
				return err
			}

			ctx, cancel := a.solveContext(cmd.Context())
			defer cancel()

			a.logger.Info("solving",
				zap.String("scenario", args[0]),
				zap.String("solver", solver.Name()),
				zap.Int("agents", inst.NumAgents()),
			)
			sol, err := solver.Solve(ctx, inst)
			if err != nil {
				return fmt.Errorf("%s: %w", solver.Name(), err)
			}

			if asJSON {
				return writeSolutionJSON(cmd.OutOrStdout(), solver.Name(), sol)
			}
			return writeSolution(cmd.OutOrStdout(), solver.Name(), sol)
		},
	}

	cmd.Flags().StringVar(&algorithm, "algorithm", "", "solver: cbs, prioritized or independent")
	cmd.Flags().StringVar(&splitting, "splitting", "", "CBS splitting: standard or disjoint")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the solution as JSON")
	return cmd
}

func writeSolution(w io.Writer, name string, sol *core.Solution) error {
	fmt.Fprintf(w, "%s: %d agents\n", name, len(sol.Paths))
	for i, p := range sol.Paths {
		cells := make([]string, len(p))
		for t, l := range p {
			cells[t] = l.String()
		}
		fmt.Fprintf(w, "  agent %d: %s\n", i, strings.Join(cells, " "))
	}
	fmt.Fprintf(w, "sum of costs: %d\n", sol.Cost)
	fmt.Fprintf(w, "makespan:     %d\n", sol.Makespan())
	fmt.Fprintf(w, "generated:    %d\n", sol.Generated)
	fmt.Fprintf(w, "expanded:     %d\n", sol.Expanded)
	_, err := fmt.Fprintf(w, "time:         %v\n", sol.Duration)
	return err
}

type solutionJSON struct {
	Solver     string     `json:"solver"`
	Cost       int        `json:"sum_of_costs"`
	Makespan   int        `json:"makespan"`
	Generated  int        `json:"generated"`
	Expanded   int        `json:"expanded"`
	DurationMs float64    `json:"duration_ms"`
	Paths      [][][2]int `json:"paths"`
}

func writeSolutionJSON(w io.Writer, name string, sol *core.Solution) error {
	out := solutionJSON{
		Solver:     name,
		Cost:       sol.Cost,
		Makespan:   sol.Makespan(),
		Generated:  sol.Generated,
		Expanded:   sol.Expanded,
		DurationMs: float64(sol.Duration.Microseconds()) / 1000,
		Paths:      make([][][2]int, len(sol.Paths)),
	}
	for i, p := range sol.Paths {
		out.Paths[i] = make([][2]int, len(p))
		for t, l := range p {
			out.Paths[i][t] = [2]int{l.Row, l.Col}
		}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
