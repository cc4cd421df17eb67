// Package observability tracks per-stage timings of analysis and simulation runs.
package observability

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Stage names recorded by the trial runner.
const (
	StageObserved = "observed"
	StageTrial    = "trial"
)

// RunStats accumulates timings per stage. It is safe for concurrent use.
type RunStats struct {
	mu     sync.Mutex
	stages map[string]*StageStats
}

// StageStats holds statistics for one stage.
type StageStats struct {
	Stage string
	Count int64
	Total time.Duration
	Min   time.Duration
	Max   time.Duration
}

// Mean is the average duration of the stage.
func (s StageStats) Mean() time.Duration {
	if s.Count == 0 {
		return 0
	}
	return s.Total / time.Duration(s.Count)
}

// NewRunStats creates an empty tracker.
func NewRunStats() *RunStats {
	return &RunStats{stages: make(map[string]*StageStats)}
}

// Record adds one execution of stage taking d.
func (r *RunStats) Record(stage string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stats, exists := r.stages[stage]
	if !exists {
		stats = &StageStats{Stage: stage, Min: d, Max: d}
		r.stages[stage] = stats
	}

	stats.Count++
	stats.Total += d
	if d < stats.Min {
		stats.Min = d
	}
	if d > stats.Max {
		stats.Max = d
	}
}

// Time records the time elapsed since start under stage.
func (r *RunStats) Time(stage string, start time.Time) {
	r.Record(stage, time.Since(start))
}

// Get returns a copy of the stats of one stage.
func (r *RunStats) Get(stage string) (StageStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.stages[stage]
	if !ok {
		return StageStats{}, false
	}
	return *s, true
}

// Snapshot returns a copy of every stage sorted by total time, descending.
func (r *RunStats) Snapshot() []StageStats {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]StageStats, 0, len(r.stages))
	for _, s := range r.stages {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Stage < out[j].Stage
	})
	return out
}

// Fields renders the snapshot as log fields.
func (r *RunStats) Fields() []zap.Field {
	snap := r.Snapshot()
	fields := make([]zap.Field, 0, 3*len(snap))
	for _, s := range snap {
		fields = append(fields,
			zap.Int64(s.Stage+"_count", s.Count),
			zap.Duration(s.Stage+"_mean", s.Mean()),
			zap.Duration(s.Stage+"_max", s.Max),
		)
	}
	return fields
}
