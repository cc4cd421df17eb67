package simulation

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/arkilian/contagion/internal/analysis"
	"github.com/arkilian/contagion/internal/contagion"
	cerrors "github.com/arkilian/contagion/internal/errors"
	"github.com/arkilian/contagion/internal/match"
	"github.com/arkilian/contagion/internal/observability"
	"github.com/arkilian/contagion/pkg/types"
)

// Stage names this package in error details.
const Stage = "simulation"

// RunnerConfig configures an experiment.
type RunnerConfig struct {
	// Trials is the number of permutation trials
	Trials int

	// Seed is the base seed; trial n uses TrialSeed(Seed, n)
	Seed uint64

	// Concurrency is the maximum number of trials in flight (default: 1)
	Concurrency int
}

// Experiment compares the contagion count of the real log against the
// counts of permuted logs.
type Experiment struct {
	RunID string `json:"run_id"`
	Seed  uint64 `json:"seed"`

	// Observed is the contagion count on the real kill log
	Observed int `json:"observed"`

	// Result is the full result on the real kill log
	Result *contagion.Result `json:"result"`

	// Trials holds the contagion count of trial n at index n
	Trials []int `json:"trials"`

	// Mean is the mean trial count
	Mean float64 `json:"mean"`

	// PValue is the share of trials at least as extreme as Observed, with
	// the add-one correction
	PValue float64 `json:"p_value"`

	Duration time.Duration `json:"duration"`
}

// Runner executes permutation experiments. Trials share only the read-only
// match index and registry.
type Runner struct {
	pipeline *analysis.Pipeline
	config   RunnerConfig
	logger   *zap.Logger
	stats    *observability.RunStats
}

// NewRunner creates a runner.
func NewRunner(pipeline *analysis.Pipeline, cfg RunnerConfig, logger *zap.Logger) (*Runner, error) {
	if cfg.Trials < 0 {
		return nil, cerrors.NewValidationError(cerrors.CodeInvalidConfig,
			fmt.Sprintf("trials must not be negative, got %d", cfg.Trials))
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		pipeline: pipeline,
		config:   cfg,
		logger:   logger,
		stats:    observability.NewRunStats(),
	}, nil
}

// Stats returns the stage timings recorded by this runner.
func (r *Runner) Stats() *observability.RunStats {
	return r.stats
}

// Trial runs trial number n: permute idx and count contagion on the result.
func (r *Runner) Trial(ctx context.Context, idx *match.Index, registry *types.Registry, n int) (int, error) {
	defer r.stats.Time(observability.StageTrial, time.Now())

	alt, err := match.Build(Simulate(idx, registry, TrialSeed(r.config.Seed, n)))
	if err != nil {
		return 0, r.trialError(n, err)
	}
	count, err := r.pipeline.Count(ctx, alt, registry)
	if err != nil {
		return 0, r.trialError(n, err)
	}
	return count, nil
}

func (r *Runner) trialError(n int, err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return cerrors.NewSimulationError(cerrors.CodeTrialFailed, fmt.Sprintf("trial %d failed", n), err).
		WithDetails(map[string]interface{}{cerrors.DetailTrial: n})
}

// Run computes the observed count and the trial counts.
func (r *Runner) Run(ctx context.Context, kills []types.KillEvent, registry *types.Registry) (*Experiment, error) {
	start := time.Now()
	runID := uuid.New().String()
	logger := r.logger.With(zap.String("run_id", runID))

	idx, err := match.Build(kills)
	if err != nil {
		return nil, err
	}

	observedStart := time.Now()
	observed, err := r.pipeline.AnalyzeIndex(ctx, idx, registry)
	if err != nil {
		return nil, err
	}
	r.stats.Time(observability.StageObserved, observedStart)
	observed.RunID = runID

	logger.Info("Observed contagion on real log",
		zap.Int("matches", idx.Len()),
		zap.Int("observers", observed.NumObservers()),
		zap.Int("trials", r.config.Trials),
		zap.Int("concurrency", r.config.Concurrency),
	)

	counts, err := r.RunTrials(ctx, idx, registry)
	if err != nil {
		return nil, err
	}

	exp := &Experiment{
		RunID:    runID,
		Seed:     r.config.Seed,
		Observed: observed.NumObservers(),
		Result:   observed,
		Trials:   counts,
		Duration: time.Since(start),
	}
	exp.Mean, exp.PValue = summarize(exp.Observed, counts)

	logger.Info("Permutation experiment complete",
		append([]zap.Field{
			zap.Float64("mean", exp.Mean),
			zap.Float64("p_value", exp.PValue),
			zap.Duration("duration", exp.Duration),
		}, r.stats.Fields()...)...,
	)
	return exp, nil
}

// RunTrials runs every trial with bounded concurrency. Trial n always writes
// slot n, so the result does not depend on scheduling.
func (r *Runner) RunTrials(ctx context.Context, idx *match.Index, registry *types.Registry) ([]int, error) {
	counts := make([]int, r.config.Trials)
	sem := semaphore.NewWeighted(int64(r.config.Concurrency))
	g, gctx := errgroup.WithContext(ctx)

	for n := 0; n < r.config.Trials; n++ {
		if err := sem.Acquire(gctx, 1); err != nil {
			break
		}
		n := n
		g.Go(func() error {
			defer sem.Release(1)

			count, err := r.Trial(gctx, idx, registry, n)
			if err != nil {
				return err
			}
			counts[n] = count
			r.logger.Debug("Trial complete", zap.Int("trial", n), zap.Int("observers", count))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

func summarize(observed int, counts []int) (mean, pValue float64) {
	atLeast := 0
	total := 0
	for _, c := range counts {
		total += c
		if c >= observed {
			atLeast++
		}
	}
	if len(counts) > 0 {
		mean = float64(total) / float64(len(counts))
	}
	pValue = float64(1+atLeast) / float64(1+len(counts))
	return mean, pValue
}
