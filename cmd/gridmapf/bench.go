package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/gridmapf/internal/algo"
	"github.com/elektrokombinacija/gridmapf/internal/instance"
	"github.com/elektrokombinacija/gridmapf/internal/metrics"
)

// BenchmarkResult stores one solver run on one scenario.
type BenchmarkResult struct {
	Timestamp  string  `json:"timestamp"`
	CommitHash string  `json:"commit_hash"`
	GoVersion  string  `json:"go_version"`
	OS         string  `json:"os"`
	Arch       string  `json:"arch"`
	Instance   string  `json:"instance"`
	NumAgents  int     `json:"num_agents"`
	GridSize   string  `json:"grid_size"`
	Solver     string  `json:"solver"`
	Outcome    string  `json:"outcome"`
	Success    bool    `json:"success"`
	RuntimeMs  float64 `json:"runtime_ms"`
	SumOfCosts int     `json:"sum_of_costs"`
	Makespan   int     `json:"makespan"`
	Generated  int     `json:"nodes_generated"`
	Expanded   int     `json:"nodes_expanded"`
}

var benchHeader = []string{
	"timestamp", "commit_hash", "go_version", "os", "arch",
	"instance", "num_agents", "grid_size", "solver", "outcome", "success",
	"runtime_ms", "sum_of_costs", "makespan", "nodes_generated", "nodes_expanded",
}

func (r *BenchmarkResult) record() []string {
	return []string{
		r.Timestamp, r.CommitHash, r.GoVersion, r.OS, r.Arch,
		r.Instance, strconv.Itoa(r.NumAgents), r.GridSize, r.Solver, r.Outcome,
		strconv.FormatBool(r.Success),
		strconv.FormatFloat(r.RuntimeMs, 'f', 3, 64),
		strconv.Itoa(r.SumOfCosts), strconv.Itoa(r.Makespan),
		strconv.Itoa(r.Generated), strconv.Itoa(r.Expanded),
	}
}

func newBenchCmd(a *app) *cobra.Command {
	var (
		solvers []string
		output  string
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "bench <scenario-glob>...",
		Short: "Run every solver on a set of scenario files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var files []string
			for _, pattern := range args {
				matches, err := filepath.Glob(pattern)
				if err != nil {
					return err
				}
				files = append(files, matches...)
			}
			if len(files) == 0 {
				return fmt.Errorf("no scenario files match %v", args)
			}
			slices.Sort(files)
			files = slices.Compact(files)

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Running benchmarks: %d instances x %d solvers = %d runs\n",
				len(files), len(solvers), len(files)*len(solvers))

			commit := gitCommit()
			var results []*BenchmarkResult
			for _, file := range files {
				inst, err := instance.Load(file)
				if err != nil {
					return err
				}
				for _, name := range solvers {
					solver, err := a.newSolver(name, 0)
					if err != nil {
						return err
					}

					r := &BenchmarkResult{
						Timestamp:  time.Now().UTC().Format(time.RFC3339),
						CommitHash: commit,
						GoVersion:  runtime.Version(),
						OS:         runtime.GOOS,
						Arch:       runtime.GOARCH,
						Instance:   filepath.Base(file),
						NumAgents:  inst.NumAgents(),
						GridSize:   fmt.Sprintf("%dx%d", inst.Grid.Rows, inst.Grid.Cols),
						Solver:     solver.Name(),
					}

					ctx, cancel := a.solveContext(cmd.Context())
					began := time.Now()
					sol, err := solver.Solve(ctx, inst)
					cancel()
					r.RuntimeMs = float64(time.Since(began).Microseconds()) / 1000
					r.Outcome = metrics.Outcome(err)
					if err == nil {
						r.Success = true
						r.SumOfCosts = sol.Cost
						r.Makespan = sol.Makespan()
						r.Generated = sol.Generated
						r.Expanded = sol.Expanded
					}
					if cmd.Context().Err() != nil {
						return cmd.Context().Err()
					}
					a.logger.Debug("bench run",
						zap.String("instance", r.Instance),
						zap.String("solver", r.Solver),
						zap.String("outcome", r.Outcome),
						zap.Float64("runtime_ms", r.RuntimeMs),
					)
					results = append(results, r)
				}
			}

			if output != "" {
				if err := writeBenchFile(output, results, asJSON); err != nil {
					return err
				}
				fmt.Fprintf(out, "Results written to: %s\n", output)
			}
			printBenchSummary(out, results)
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&solvers, "solvers",
		[]string{algo.AlgoCBS, algo.AlgoPrioritized, algo.AlgoIndependent}, "solvers to run")
	cmd.Flags().StringVar(&output, "output", "", "results file")
	cmd.Flags().BoolVar(&asJSON, "json", false, "write results as JSON instead of CSV")
	return cmd
}

func gitCommit() string {
	out, err := exec.Command("git", "rev-parse", "--short", "HEAD").Output()
	if err != nil {
		return "unknown"
	}
	return strings.TrimSpace(string(out))
}

func writeBenchFile(path string, results []*BenchmarkResult, asJSON bool) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		err = enc.Encode(results)
	} else {
		err = writeBenchCSV(f, results)
	}
	if err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func writeBenchCSV(w io.Writer, results []*BenchmarkResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(benchHeader); err != nil {
		return err
	}
	for _, r := range results {
		if err := cw.Write(r.record()); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// printBenchSummary aggregates results per solver.
func printBenchSummary(w io.Writer, results []*BenchmarkResult) {
	type agg struct {
		runs, successes int
		runtimeMs       float64
		cost, makespan  int
	}
	bySolver := make(map[string]*agg)
	var names []string
	for _, r := range results {
		m, ok := bySolver[r.Solver]
		if !ok {
			m = &agg{}
			bySolver[r.Solver] = m
			names = append(names, r.Solver)
		}
		m.runs++
		if r.Success {
			m.successes++
			m.runtimeMs += r.RuntimeMs
			m.cost += r.SumOfCosts
			m.makespan += r.Makespan
		}
	}
	slices.Sort(names)

	fmt.Fprintln(w, "\n=== BENCHMARK SUMMARY ===")
	fmt.Fprintf(w, "%-14s %6s %8s %12s %10s %12s\n",
		"Solver", "Runs", "Success", "Avg Time(ms)", "Avg SoC", "Avg Makespan")
	fmt.Fprintln(w, strings.Repeat("-", 67))
	for _, name := range names {
		m := bySolver[name]
		var avgTime, avgCost, avgMakespan float64
		if m.successes > 0 {
			n := float64(m.successes)
			avgTime = m.runtimeMs / n
			avgCost = float64(m.cost) / n
			avgMakespan = float64(m.makespan) / n
		}
		fmt.Fprintf(w, "%-14s %6d %8d %12.2f %10.2f %12.2f\n",
			name, m.runs, m.successes, avgTime, avgCost, avgMakespan)
	}
}
