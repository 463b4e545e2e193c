// Package config loads gridmapf settings.
//
// Usage:
//
//	cfg, err := config.NewLoader().
//	    WithConfigPath("gridmapf.yaml").
//	    WithEnvPrefix("GRIDMAPF").
//	    Load()
//
// Precedence: defaults → YAML file → environment variables.
package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultEnvPrefix is prepended to every environment variable name.
const DefaultEnvPrefix = "GRIDMAPF"

// Config is the complete gridmapf configuration.
type Config struct {
	Solver  SolverConfig  `yaml:"solver" env:"SOLVER"`
	Batch   BatchConfig   `yaml:"batch" env:"BATCH"`
	Log     LogConfig     `yaml:"log" env:"LOG"`
	Metrics MetricsConfig `yaml:"metrics" env:"METRICS"`
}

// SolverConfig selects and tunes the solver.
type SolverConfig struct {
	// Algorithm: cbs, prioritized, independent
	Algorithm string `yaml:"algorithm" env:"ALGORITHM"`
	// Splitting: standard, disjoint (cbs only)
	Splitting string `yaml:"splitting" env:"SPLITTING"`
	// CostBoundFactor caps low-level g at this multiple of h(start); <= 0 disables it
	CostBoundFactor int `yaml:"cost_bound_factor" env:"COST_BOUND_FACTOR"`
	// Seed for disjoint splitting
	Seed int64 `yaml:"seed" env:"SEED"`
	// Timeout per solve; 0 means none
	Timeout time.Duration `yaml:"timeout" env:"TIMEOUT"`
}

// BatchConfig controls repeated randomized runs.
type BatchConfig struct {
	Workers int `yaml:"workers" env:"WORKERS"`
	// MaxRuns stops the batch regardless of convergence
	MaxRuns int `yaml:"max_runs" env:"MAX_RUNS"`
	// MinRuns before the convergence check applies
	MinRuns int `yaml:"min_runs" env:"MIN_RUNS"`
	// MinDuration before the convergence check applies
	MinDuration time.Duration `yaml:"min_duration" env:"MIN_DURATION"`
	// SlopeThreshold bounds |slope| of every KPI's CV trend line
	SlopeThreshold float64 `yaml:"slope_threshold" env:"SLOPE_THRESHOLD"`
	// Window is the trailing fraction of runs fitted by the trend line
	Window float64 `yaml:"window" env:"WINDOW"`
	// CheckpointEvery rewrites the CSV after this many runs; 0 disables it
	CheckpointEvery int `yaml:"checkpoint_every" env:"CHECKPOINT_EVERY"`
	// Output directory for result CSV files
	Output string `yaml:"output" env:"OUTPUT"`
	// Seed for start/goal draws
	Seed int64 `yaml:"seed" env:"SEED"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	// Level: debug, info, warn, error
	Level string `yaml:"level" env:"LEVEL"`
	// Format: json, console
	Format string `yaml:"format" env:"FORMAT"`
	// OutputPaths for log records
	OutputPaths []string `yaml:"output_paths" env:"OUTPUT_PATHS"`
}

// MetricsConfig configures the Prometheus collector.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	Namespace string `yaml:"namespace" env:"NAMESPACE"`
	// Textfile receives the registry in text format on exit
	Textfile string `yaml:"textfile" env:"TEXTFILE"`
}

// Loader loads configuration (builder pattern).
type Loader struct {
	configPath string
	envPrefix  string
	validators []func(*Config) error
}

// NewLoader creates a loader with the default environment prefix.
func NewLoader() *Loader {
	return &Loader{
		envPrefix:  DefaultEnvPrefix,
		validators: make([]func(*Config) error, 0),
	}
}

// WithConfigPath sets the YAML file to read.
func (l *Loader) WithConfigPath(path string) *Loader {
	l.configPath = path
	return l
}

// WithEnvPrefix sets the environment variable prefix.
func (l *Loader) WithEnvPrefix(prefix string) *Loader {
	l.envPrefix = prefix
	return l
}

// WithValidator adds a validation step run after loading.
func (l *Loader) WithValidator(v func(*Config) error) *Loader {
	l.validators = append(l.validators, v)
	return l
}

// Load builds the configuration and validates it.
func (l *Loader) Load() (*Config, error) {
	cfg := DefaultConfig()

	if l.configPath != "" {
		if err := l.loadFromFile(cfg); err != nil {
			return nil, fmt.Errorf("failed to load config from file: %w", err)
		}
	}

	if err := l.loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	for _, v := range l.validators {
		if err := v(cfg); err != nil {
			return nil, fmt.Errorf("config validation failed: %w", err)
		}
	}

	return cfg, nil
}

// loadFromFile reads YAML over cfg. A missing file leaves the defaults.
func (l *Loader) loadFromFile(cfg *Config) error {
	data, err := os.ReadFile(l.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

func (l *Loader) loadFromEnv(cfg *Config) error {
	return l.setFieldsFromEnv(reflect.ValueOf(cfg).Elem(), l.envPrefix)
}

// setFieldsFromEnv walks struct fields by their env tags, recursing into
// nested structs with the joined prefix.
func (l *Loader) setFieldsFromEnv(v reflect.Value, prefix string) error {
	t := v.Type()

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		fieldType := t.Field(i)

		envTag := fieldType.Tag.Get("env")
		if envTag == "" || envTag == "-" {
			continue
		}

		envKey := prefix + "_" + envTag

		if field.Kind() == reflect.Struct {
			if err := l.setFieldsFromEnv(field, envKey); err != nil {
				return err
			}
			continue
		}

		envValue := os.Getenv(envKey)
		if envValue == "" {
			continue
		}

		if err := setFieldValue(field, envValue); err != nil {
			return fmt.Errorf("failed to set %s: %w", envKey, err)
		}
	}

	return nil
}

func setFieldValue(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}

	switch field.Kind() {
	case reflect.String:
		field.SetString(value)

	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if field.Type() == reflect.TypeOf(time.Duration(0)) {
			d, err := time.ParseDuration(value)
			if err != nil {
				return err
			}
			field.SetInt(int64(d))
		} else {
			i, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return err
			}
			field.SetInt(i)
		}

	case reflect.Float32, reflect.Float64:
		f, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(f)

	case reflect.Bool:
		b, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(b)

	case reflect.Slice:
		// comma separated string slices
		if field.Type().Elem().Kind() == reflect.String {
			parts := strings.Split(value, ",")
			for i := range parts {
				parts[i] = strings.TrimSpace(parts[i])
			}
			field.Set(reflect.ValueOf(parts))
		}
	}

	return nil
}
