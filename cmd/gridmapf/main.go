// Command gridmapf solves and benchmarks grid multi-agent path finding
// instances.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/elektrokombinacija/gridmapf/internal/algo"
	"github.com/elektrokombinacija/gridmapf/internal/config"
	"github.com/elektrokombinacija/gridmapf/internal/metrics"
)

// app carries what every subcommand needs once the root has run.
type app struct {
	configPath string
	envPrefix  string
	logLevel   string

	cfg       *config.Config
	logger    *zap.Logger
	registry  *prometheus.Registry
	collector *metrics.Collector
}

// newRootCmd builds the command tree. The caller must call close on the
// returned app once the command has run, whatever its outcome.
func newRootCmd() (*cobra.Command, *app) {
	a := &app{}

	root := &cobra.Command{
		Use:   "gridmapf",
		Short: "gridmapf - multi-agent path finding on grids",
		Long: `gridmapf plans collision-free paths for many agents on a 4-connected grid
using Conflict-Based Search, prioritized planning or independent planning.`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		// No RunE - defaults to showing help when no subcommand is provided
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "YAML config file")
	root.PersistentFlags().StringVar(&a.envPrefix, "env-prefix", config.DefaultEnvPrefix, "prefix of configuration environment variables")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.AddCommand(newSolveCmd(a))
	root.AddCommand(newBatchCmd(a))
	root.AddCommand(newBenchCmd(a))
	root.AddCommand(newGenCmd(a))
	root.AddCommand(newVersionCmd())
	return root, a
}

// setup loads configuration and builds the logger and metrics registry.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	loader := config.NewLoader().
		WithConfigPath(a.configPath).
		WithEnvPrefix(a.envPrefix)
	if a.logLevel != "" {
		level := a.logLevel
		loader = loader.WithValidator(func(c *config.Config) error {
			c.Log.Level = level
			return c.Validate()
		})
	}
	cfg, err := loader.Load()
	if err != nil {
		return err
	}
	a.cfg = cfg

	logger, err := config.NewLogger(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	a.logger = logger

	if cfg.Metrics.Enabled {
		a.registry = prometheus.NewRegistry()
		a.collector = metrics.NewCollector(cfg.Metrics.Namespace, a.registry, logger)
	}
	logger.Debug("configured",
		zap.String("command", cmd.Name()),
		zap.String("algorithm", cfg.Solver.Algorithm),
		zap.String("splitting", cfg.Solver.Splitting),
	)
	return nil
}

// close writes the metrics textfile and flushes the logger. It also runs
// after a failed command so that failure outcomes reach the textfile.
func (a *app) close() error {
	if a.logger == nil {
		return nil
	}
	defer a.logger.Sync() //nolint:errcheck
	if a.registry != nil && a.cfg.Metrics.Textfile != "" {
		return metrics.WriteTextfile(a.cfg.Metrics.Textfile, a.registry)
	}
	return nil
}

// solverOptions builds solver options for run number run. The disjoint
// splitter is seeded per run so that concurrent runs never share one.
func (a *app) solverOptions(run int) ([]algo.Option, error) {
	splitter, err := algo.NewSplitter(a.cfg.Solver.Splitting, a.cfg.Solver.Seed+int64(run))
	if err != nil {
		return nil, err
	}
	opts := []algo.Option{
		algo.WithCostBoundFactor(a.cfg.Solver.CostBoundFactor),
		algo.WithSplitter(splitter),
		algo.WithLogger(a.logger),
	}
	if a.collector != nil {
		opts = append(opts, algo.WithObserver(a.collector))
	}
	return opts, nil
}

func (a *app) newSolver(name string, run int) (algo.Solver, error) {
	opts, err := a.solverOptions(run)
	if err != nil {
		return nil, err
	}
	return algo.NewSolver(name, opts...)
}

// solveContext applies the configured per-solve timeout.
func (a *app) solveContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.cfg.Solver.Timeout > 0 {
		return context.WithTimeout(ctx, a.cfg.Solver.Timeout)
	}
	return context.WithCancel(ctx)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root, a := newRootCmd()
	err := errors.Join(root.ExecuteContext(ctx), a.close())
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
