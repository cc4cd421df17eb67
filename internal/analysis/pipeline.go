// Package analysis runs the contagion pipeline over a kill log:
// match index, exposure detection, witness collection and the contagion join.
package analysis

import (
	"context"

	"go.uber.org/zap"

	"github.com/arkilian/contagion/internal/config"
	"github.com/arkilian/contagion/internal/contagion"
	"github.com/arkilian/contagion/internal/exposure"
	"github.com/arkilian/contagion/internal/match"
	"github.com/arkilian/contagion/internal/witness"
	"github.com/arkilian/contagion/pkg/types"
)

// Options configures a Pipeline.
type Options struct {
	Rules     exposure.Rules
	Contagion contagion.Options
	Logger    *zap.Logger
}

// DefaultOptions returns the standard rules: detection on the 3rd of at
// least 4 cheating kills, a 5 day window and no deduplication.
func DefaultOptions() Options {
	return Options{
		Rules:     exposure.DefaultRules(),
		Contagion: contagion.Options{WindowDays: contagion.DefaultWindowDays},
	}
}

// OptionsFromConfig maps configuration onto pipeline options.
func OptionsFromConfig(cfg *config.Config, logger *zap.Logger) Options {
	return Options{
		Rules: exposure.Rules{
			MinCheatingKills:   cfg.Detection.MinCheatingKills,
			DetectionKillIndex: cfg.Detection.DetectionKillIndex,
		},
		Contagion: contagion.Options{
			WindowDays:  cfg.Contagion.WindowDays,
			Deduplicate: cfg.Contagion.DeduplicatePlayers,
		},
		Logger: logger,
	}
}

// Pipeline is stateless between runs and safe for concurrent use.
type Pipeline struct {
	detector *exposure.Detector
	joiner   *contagion.Joiner
	logger   *zap.Logger
}

// New creates a pipeline.
func New(opts Options) (*Pipeline, error) {
	detector, err := exposure.NewDetector(opts.Rules)
	if err != nil {
		return nil, err
	}
	joiner, err := contagion.NewJoiner(opts.Contagion)
	if err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{detector: detector, joiner: joiner, logger: logger}, nil
}

// MatchOutcome is the per-match intermediate state of a run.
type MatchOutcome struct {
	Match     *match.Match
	Exposure  *exposure.Exposure
	Witnesses *witness.Witnesses
}

// Inspect runs detection and witness collection over one match. Witnesses
// is nil when the match has no detection time.
func (p *Pipeline) Inspect(m *match.Match, registry *types.Registry) (*MatchOutcome, error) {
	exp, err := p.detector.Detect(m, registry)
	if err != nil {
		return nil, err
	}
	out := &MatchOutcome{Match: m, Exposure: exp}
	if w, ok := witness.CollectDetected(m, exp); ok {
		out.Witnesses = &w
	}
	return out, nil
}

// Analyze groups kills by match and runs the pipeline.
func (p *Pipeline) Analyze(ctx context.Context, kills []types.KillEvent, registry *types.Registry) (*contagion.Result, error) {
	idx, err := match.Build(kills)
	if err != nil {
		return nil, err
	}
	return p.AnalyzeIndex(ctx, idx, registry)
}

// AnalyzeIndex runs the pipeline over an already built index. Matches
// without a detection time contribute nothing.
func (p *Pipeline) AnalyzeIndex(ctx context.Context, idx *match.Index, registry *types.Registry) (*contagion.Result, error) {
	tally := p.joiner.NewTally(registry)
	detected := 0

	for _, m := range idx.Matches() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		outcome, err := p.Inspect(m, registry)
		if err != nil {
			return nil, err
		}
		if outcome.Witnesses == nil {
			continue
		}
		detected++

		tally.AddVictims(m.ID, m.EndTime, outcome.Exposure.Victims)
		tally.AddWitnesses(m.ID, m.EndTime, outcome.Witnesses.Players)

		p.logger.Debug("Cheating detected in match",
			zap.String("match_id", m.ID),
			zap.Time("detection_time", outcome.Exposure.Detection.At),
			zap.String("cheater_id", outcome.Exposure.Detection.CheaterID),
			zap.Int("victims", len(outcome.Exposure.Victims)),
			zap.Int("witnesses", len(outcome.Witnesses.Players)),
		)
	}

	res := tally.Result()
	res.MatchesAnalyzed = idx.Len()
	res.MatchesDetected = detected

	p.logger.Debug("Contagion analysis complete",
		zap.Int("matches", res.MatchesAnalyzed),
		zap.Int("detected", res.MatchesDetected),
		zap.Int("observers", res.NumObservers()),
	)
	return res, nil
}

// Count runs the pipeline and returns only the number of contagion events.
func (p *Pipeline) Count(ctx context.Context, idx *match.Index, registry *types.Registry) (int, error) {
	res, err := p.AnalyzeIndex(ctx, idx, registry)
	if err != nil {
		return 0, err
	}
	return res.NumObservers(), nil
}
