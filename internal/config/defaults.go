package config

import (
	"errors"
	"fmt"
	"slices"
)

// ErrInvalidConfig is wrapped by every validation failure.
var ErrInvalidConfig = errors.New("gridmapf: invalid config")

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		Solver: SolverConfig{
			Algorithm:       "cbs",
			Splitting:       "standard",
			CostBoundFactor: 20,
		},
		Batch: BatchConfig{
			Workers:         4,
			MaxRuns:         1000,
			MinRuns:         50,
			SlopeThreshold:  0.001,
			Window:          0.25,
			CheckpointEvery: 25,
			Output:          "simulation_results",
		},
		Log: LogConfig{
			Level:       "info",
			Format:      "console",
			OutputPaths: []string{"stderr"},
		},
		Metrics: MetricsConfig{
			Namespace: "gridmapf",
		},
	}
}

// Validate checks value ranges and enumerations.
func (c *Config) Validate() error {
	if !slices.Contains([]string{"cbs", "prioritized", "independent"}, c.Solver.Algorithm) {
		return fmt.Errorf("%w: unknown solver.algorithm %q", ErrInvalidConfig, c.Solver.Algorithm)
	}
	if !slices.Contains([]string{"standard", "disjoint"}, c.Solver.Splitting) {
		return fmt.Errorf("%w: unknown solver.splitting %q", ErrInvalidConfig, c.Solver.Splitting)
	}
	if c.Solver.Timeout < 0 {
		return fmt.Errorf("%w: negative solver.timeout", ErrInvalidConfig)
	}

	b := c.Batch
	switch {
	case b.Workers < 1:
		return fmt.Errorf("%w: batch.workers must be positive", ErrInvalidConfig)
	case b.MaxRuns < 1:
		return fmt.Errorf("%w: batch.max_runs must be positive", ErrInvalidConfig)
	case b.MinRuns < 2:
		return fmt.Errorf("%w: batch.min_runs must be at least 2", ErrInvalidConfig)
	case b.SlopeThreshold <= 0:
		return fmt.Errorf("%w: batch.slope_threshold must be positive", ErrInvalidConfig)
	case b.Window <= 0 || b.Window > 1:
		return fmt.Errorf("%w: batch.window must be in (0, 1]", ErrInvalidConfig)
	case b.CheckpointEvery < 0:
		return fmt.Errorf("%w: negative batch.checkpoint_every", ErrInvalidConfig)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		return fmt.Errorf("%w: unknown log.level %q", ErrInvalidConfig, c.Log.Level)
	}
	if !slices.Contains([]string{"json", "console"}, c.Log.Format) {
		return fmt.Errorf("%w: unknown log.format %q", ErrInvalidConfig, c.Log.Format)
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return fmt.Errorf("%w: metrics.namespace is required", ErrInvalidConfig)
	}
	return nil
}
