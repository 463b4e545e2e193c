package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/gridmapf/internal/algo"
	"github.com/elektrokombinacija/gridmapf/internal/batch"
	"github.com/elektrokombinacija/gridmapf/internal/instance"
)

func newBatchCmd(a *app) *cobra.Command {
	var (
		agents  map[string]int
		workers int
		maxRuns int
		output  string
	)

	cmd := &cobra.Command{
		Use:   "batch <group-file>",
		Short: "Run randomized batches until KPI statistics settle",
		Long: `Batch draws starts and goals from the areas of a group file and solves the
resulting instances until the coefficient of variation of every KPI stops
trending. Without --agents every agent-count combination between the
groups' minimum and maximum is run in turn.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("workers") {
				a.cfg.Batch.Workers = workers
			}
			if cmd.Flags().Changed("max-runs") {
				a.cfg.Batch.MaxRuns = maxRuns
			}
			if output != "" {
				a.cfg.Batch.Output = output
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}

			gf, err := instance.LoadGroups(args[0])
			if err != nil {
				return err
			}
			combos, err := agentCounts(gf, agents)
			if err != nil {
				return err
			}

			factory := func(run int) (algo.Solver, error) {
				return a.newSolver(a.cfg.Solver.Algorithm, run)
			}
			for _, counts := range combos {
				o, err := batch.New(gf, counts, a.cfg.Batch, factory,
					batch.WithLogger(a.logger),
					batch.WithMetrics(a.collector),
					batch.WithTimeout(a.cfg.Solver.Timeout),
				)
				if err != nil {
					return err
				}

				report, runErr := o.Run(cmd.Context())
				path, err := report.Save(a.cfg.Batch.Output)
				if err != nil {
					return errors.Join(runErr, err)
				}
				if runErr != nil {
					return fmt.Errorf("batch %s: %w", report.Name, runErr)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s: %d runs, stable=%t, %v -> %s\n",
					report.Name, len(report.Results), report.Stable, report.Elapsed.Round(time.Millisecond), path)
				a.logger.Info("batch saved", zap.String("batch", report.Name), zap.String("path", path))
			}
			return nil
		},
	}

	cmd.Flags().StringToIntVar(&agents, "agents", nil, "agents per group, e.g. 1=2,B=1 (default: sweep all combinations)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent solves per round")
	cmd.Flags().IntVar(&maxRuns, "max-runs", 0, "upper bound on runs per batch")
	cmd.Flags().StringVar(&output, "output", "", "directory for result CSVs")
	return cmd
}

// agentCounts turns --agents into one count vector in group order, or
// returns every size combination when none is given.
func agentCounts(gf *instance.GroupFile, agents map[string]int) ([][]int, error) {
	if len(agents) == 0 {
		return gf.SizeCombinations(), nil
	}
	counts := make([]int, len(gf.Groups))
	for id, n := range agents {
		i, ok := gf.Index(id)
		if !ok {
			return nil, fmt.Errorf("unknown group %q", id)
		}
		counts[i] = n
	}
	return [][]int{counts}, nil
}
