// Package batch repeats randomized solver runs over a group file until the
// running statistics of every KPI settle.
package batch

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/elektrokombinacija/gridmapf/internal/algo"
	"github.com/elektrokombinacija/gridmapf/internal/config"
	"github.com/elektrokombinacija/gridmapf/internal/core"
	"github.com/elektrokombinacija/gridmapf/internal/instance"
	"github.com/elektrokombinacija/gridmapf/internal/metrics"
)

// KPI names, in CSV column order.
const (
	KPICost = "cost"
	KPITime = "computation_time"
)

// KPIs lists the tracked indicators.
var KPIs = []string{KPICost, KPITime}

// SolverFactory returns a fresh solver for run number run.
type SolverFactory func(run int) (algo.Solver, error)

// Result is one run and the running statistics after it.
type Result struct {
	Run       int
	ID        uuid.UUID
	Starts    []core.Location
	Goals     []core.Location
	Outcome   string
	Cost      int
	Duration  time.Duration
	Generated int
	Expanded  int
	Stats     []Summary // aligned with KPIs; NaN for failed runs
}

// Solved reports whether the run produced a solution.
func (r *Result) Solved() bool {
	return r.Outcome == metrics.OutcomeSolved
}

func (r *Result) kpi(name string) float64 {
	switch name {
	case KPICost:
		return float64(r.Cost)
	case KPITime:
		return r.Duration.Seconds()
	}
	return math.NaN()
}

// Report is the outcome of a batch.
type Report struct {
	ID      uuid.UUID
	Name    string
	Counts  []int
	Results []Result
	Stable  bool
	Elapsed time.Duration
}

// Orchestrator draws instances from a group file and solves them concurrently.
// An Orchestrator runs one batch; create a new one per agent-count combination.
type Orchestrator struct {
	groups  *instance.GroupFile
	counts  []int
	cfg     config.BatchConfig
	factory SolverFactory
	timeout time.Duration
	logger  *zap.Logger
	metrics *metrics.Collector
	rng     *rand.Rand
	now     func() time.Time

	stats   []running
	results []Result
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *Orchestrator) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records run outcomes and running CVs.
func WithMetrics(c *metrics.Collector) Option {
	return func(o *Orchestrator) { o.metrics = c }
}

// WithTimeout bounds every single solve; 0 means no bound.
func WithTimeout(d time.Duration) Option {
	return func(o *Orchestrator) { o.timeout = d }
}

// New creates an orchestrator placing counts[i] agents of group i per run.
func New(gf *instance.GroupFile, counts []int, cfg config.BatchConfig, factory SolverFactory, opts ...Option) (*Orchestrator, error) {
	if len(counts) != len(gf.Groups) {
		return nil, fmt.Errorf("got %d agent counts for %d groups", len(counts), len(gf.Groups))
	}
	for i, n := range counts {
		g := gf.Groups[i]
		if n < 0 || n > len(g.Starts) || n > len(g.Goals) {
			return nil, fmt.Errorf("group %q cannot place %d agents", g.ID, n)
		}
	}
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}

	o := &Orchestrator{
		groups:  gf,
		counts:  counts,
		cfg:     cfg,
		factory: factory,
		logger:  zap.NewNop(),
		rng:     rand.New(rand.NewSource(cfg.Seed)),
		now:     time.Now,
		stats:   make([]running, len(KPIs)),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(zap.String("component", "batch"), zap.String("batch", o.Name()))
	return o, nil
}

// Name identifies the agent-count combination, e.g. "1-2_B-1".
func (o *Orchestrator) Name() string {
	parts := make([]string, len(o.counts))
	for i, n := range o.counts {
		parts[i] = fmt.Sprintf("%s-%d", o.groups.Groups[i].ID, n)
	}
	return strings.Join(parts, "_")
}

// Draw picks starts and goals for one run: per group, counts[i] cells from
// its areas without replacement. Cells taken by an earlier group are
// skipped so that starts and goals stay pairwise distinct.
func (o *Orchestrator) Draw() (starts, goals []core.Location, err error) {
	takenS := make(map[core.Location]bool)
	takenG := make(map[core.Location]bool)
	for i, g := range o.groups.Groups {
		n := o.counts[i]
		s, err := o.pick(g.Starts, takenS, n)
		if err != nil {
			return nil, nil, fmt.Errorf("group %q starts: %w", g.ID, err)
		}
		t, err := o.pick(g.Goals, takenG, n)
		if err != nil {
			return nil, nil, fmt.Errorf("group %q goals: %w", g.ID, err)
		}
		starts = append(starts, s...)
		goals = append(goals, t...)
	}
	return starts, goals, nil
}

func (o *Orchestrator) pick(pool []core.Location, taken map[core.Location]bool, n int) ([]core.Location, error) {
	var avail []core.Location
	for _, l := range pool {
		if !taken[l] {
			avail = append(avail, l)
		}
	}
	if len(avail) < n {
		return nil, fmt.Errorf("need %d cells, %d left", n, len(avail))
	}
	out := make([]core.Location, n)
	for i, j := range o.rng.Perm(len(avail))[:n] {
		out[i] = avail[j]
		taken[avail[j]] = true
	}
	return out, nil
}

// Run solves drawn instances, Workers at a time, until the statistics are
// stable or MaxRuns is reached. Results keep draw order whatever the
// completion order. On cancellation the partial report is returned with
// the context error.
func (o *Orchestrator) Run(ctx context.Context) (*Report, error) {
	start := o.now()
	report := &Report{ID: uuid.New(), Name: o.Name(), Counts: o.counts}
	o.logger.Info("batch started",
		zap.String("batch_id", report.ID.String()),
		zap.Ints("agents", o.counts),
		zap.Int("workers", o.cfg.Workers),
	)

	for len(o.results) < o.cfg.MaxRuns {
		if o.stable(o.now().Sub(start)) {
			report.Stable = true
			break
		}

		round := make([]Result, min(o.cfg.Workers, o.cfg.MaxRuns-len(o.results)))
		for i := range round {
			s, t, err := o.Draw()
			if err != nil {
				return o.finish(report, start), err
			}
			round[i] = Result{Run: len(o.results) + i + 1, ID: uuid.New(), Starts: s, Goals: t}
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(o.cfg.Workers)
		for i := range round {
			r := &round[i]
			g.Go(func() error {
				return o.solve(gctx, r)
			})
		}
		if err := g.Wait(); err != nil {
			return o.finish(report, start), err
		}
		if err := ctx.Err(); err != nil {
			return o.finish(report, start), err
		}

		for _, r := range round {
			o.record(r)
		}
		if n := o.cfg.CheckpointEvery; n > 0 && o.cfg.Output != "" && len(o.results)%n < len(round) {
			if err := o.checkpoint(); err != nil {
				o.logger.Warn("checkpoint failed", zap.Error(err))
			}
		}
	}

	o.finish(report, start)
	o.logger.Info("batch finished",
		zap.Int("runs", len(report.Results)),
		zap.Bool("stable", report.Stable),
		zap.Duration("elapsed", report.Elapsed),
	)
	return report, nil
}

func (o *Orchestrator) finish(report *Report, start time.Time) *Report {
	report.Results = o.results
	report.Elapsed = o.now().Sub(start)
	return report
}

// solve runs one instance. Solver failures are recorded on r; only a
// failure to set the run up is returned.
func (o *Orchestrator) solve(ctx context.Context, r *Result) error {
	inst, err := core.NewInstance(o.groups.Grid, r.Starts, r.Goals)
	if err != nil {
		return fmt.Errorf("run %d: %w", r.Run, err)
	}
	solver, err := o.factory(r.Run)
	if err != nil {
		return fmt.Errorf("run %d: %w", r.Run, err)
	}

	if o.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.timeout)
		defer cancel()
	}

	began := time.Now()
	sol, err := solver.Solve(ctx, inst)
	r.Outcome = metrics.Outcome(err)
	if err != nil {
		r.Duration = time.Since(began)
		o.logger.Debug("run failed", zap.Int("run", r.Run), zap.Error(err))
		return nil
	}
	r.Cost = sol.Cost
	r.Duration = sol.Duration
	r.Generated = sol.Generated
	r.Expanded = sol.Expanded
	return nil
}

// record folds r into the running statistics and appends it.
func (o *Orchestrator) record(r Result) {
	r.Stats = make([]Summary, len(KPIs))
	for i, kpi := range KPIs {
		if !r.Solved() {
			r.Stats[i] = nanSummary()
			continue
		}
		o.stats[i].add(r.kpi(kpi))
		r.Stats[i] = o.stats[i].summary()
		if o.metrics != nil && !math.IsNaN(r.Stats[i].CV) {
			o.metrics.RecordBatchCV(kpi, r.Stats[i].CV)
		}
	}
	if o.metrics != nil {
		o.metrics.RecordBatchRun(r.Outcome)
	}
	o.results = append(o.results, r)
}

// stable reports whether enough runs and time have passed and the CV trend
// line of every KPI over the trailing Window of runs is flat within
// SlopeThreshold.
func (o *Orchestrator) stable(elapsed time.Duration) bool {
	n := len(o.results)
	if n < o.cfg.MinRuns || elapsed < o.cfg.MinDuration {
		return false
	}
	m := max(int(math.Round(float64(n)*o.cfg.Window)), 2)
	tail := o.results[n-min(m, n):]

	xs := make([]float64, len(tail))
	ys := make([]float64, len(tail))
	slopes := make([]float64, len(KPIs))
	for k := range KPIs {
		for i, r := range tail {
			xs[i] = float64(r.Run)
			ys[i] = r.Stats[k].CV
		}
		s, ok := slope(xs, ys)
		if !ok {
			return false
		}
		slopes[k] = s
	}

	o.logger.Debug("cv trend", zap.Int("runs", n), zap.Float64s("slopes", slopes))
	for _, s := range slopes {
		if math.Abs(s) >= o.cfg.SlopeThreshold {
			return false
		}
	}
	return true
}

// checkpoint rewrites the intermediate CSV through a temporary file.
func (o *Orchestrator) checkpoint() error {
	if err := os.MkdirAll(o.cfg.Output, 0o755); err != nil {
		return err
	}
	path := filepath.Join(o.cfg.Output, o.Name()+".csv")
	tmp := path + ".new"
	if err := writeCSVFile(tmp, o.results); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Save writes the final CSV into dir and returns its path.
func (r *Report) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(dir, r.Name+"_final.csv")
	if err := writeCSVFile(path, r.Results); err != nil {
		return "", err
	}
	return path, nil
}
