// Package contagion cross-references exposed players against the cheater
// registry to find the ones who started cheating shortly after a match.
package contagion

import (
	"fmt"

	cerrors "github.com/arkilian/contagion/internal/errors"
	"github.com/arkilian/contagion/pkg/types"
)

// Stage names this package in error details.
const Stage = "contagion"

// DefaultWindowDays is the length of the contagion window after a match.
const DefaultWindowDays = 5

// Role is how a player was exposed to cheating.
type Role string

const (
	RoleVictim  Role = "victim"
	RoleWitness Role = "witness"
)

// Observation is one contagion event: a player exposed in a match who
// started cheating inside the window after it. The same player yields one
// Observation per qualifying match unless the run deduplicates.
type Observation struct {
	MatchID       string     `json:"match_id"`
	PlayerID      string     `json:"player_id"`
	Role          Role       `json:"role"`
	MatchEnd      types.Date `json:"match_end"`
	CheatingSince types.Date `json:"cheating_since"`
}

// Window is the open interval (After, Before) of days in which a new
// cheater counts as contagion.
type Window struct {
	After  types.Date
	Before types.Date
}

// Contains reports whether d lies strictly inside the window.
func (w Window) Contains(d types.Date) bool {
	return d > w.After && d < w.Before
}

// Joiner applies the contagion window. It is safe for concurrent use.
type Joiner struct {
	windowDays  int
	deduplicate bool
}

// Options configures a Joiner.
type Options struct {
	// WindowDays is the window length after the match end day
	WindowDays int

	// Deduplicate counts each player at most once per role across a run
	Deduplicate bool
}

// NewJoiner creates a joiner.
func NewJoiner(opts Options) (*Joiner, error) {
	if opts.WindowDays <= 0 {
		return nil, cerrors.NewAnalysisError(cerrors.CodeInvalidThreshold,
			fmt.Sprintf("window days must be positive, got %d", opts.WindowDays))
	}
	return &Joiner{windowDays: opts.WindowDays, deduplicate: opts.Deduplicate}, nil
}

// Window returns the contagion window for a match ending on end.
func (j *Joiner) Window(end types.Date) Window {
	return Window{After: end, Before: end.AddDays(j.windowDays)}
}

// TurnedCheaters returns the registry players who started cheating inside
// the window of a match ending on end.
func (j *Joiner) TurnedCheaters(end types.Date, registry *types.Registry) types.PlayerSet {
	w := j.Window(end)
	return registry.StartedBetween(w.After, w.Before)
}

// Join returns, in player id order, the candidates who turned cheater: the
// intersection of candidates with TurnedCheaters for the match.
func (j *Joiner) Join(matchID string, end types.Date, role Role, candidates types.PlayerSet, registry *types.Registry) []Observation {
	turned := j.TurnedCheaters(end, registry)
	var out []Observation
	for _, id := range turned.Sorted() {
		if !candidates.Contains(id) {
			continue
		}
		rec, _ := registry.Lookup(id)
		out = append(out, Observation{
			MatchID:       matchID,
			PlayerID:      id,
			Role:          role,
			MatchEnd:      end,
			CheatingSince: rec.CheatingSince,
		})
	}
	return out
}

// NewTally starts an aggregation over one run.
func (j *Joiner) NewTally(registry *types.Registry) *Tally {
	return &Tally{
		joiner:   j,
		registry: registry,
		seen: map[Role]types.PlayerSet{
			RoleVictim:  make(types.PlayerSet),
			RoleWitness: make(types.PlayerSet),
		},
	}
}

// Tally accumulates observations across the matches of one run. It is not
// safe for concurrent use.
type Tally struct {
	joiner   *Joiner
	registry *types.Registry
	seen     map[Role]types.PlayerSet

	victims   []Observation
	witnesses []Observation
}

// AddVictims joins a match's victim set.
func (t *Tally) AddVictims(matchID string, end types.Date, victims types.PlayerSet) {
	t.victims = t.add(t.victims, t.joiner.Join(matchID, end, RoleVictim, victims, t.registry))
}

// AddWitnesses joins a match's witness set.
func (t *Tally) AddWitnesses(matchID string, end types.Date, witnesses types.PlayerSet) {
	t.witnesses = t.add(t.witnesses, t.joiner.Join(matchID, end, RoleWitness, witnesses, t.registry))
}

func (t *Tally) add(dst, obs []Observation) []Observation {
	for _, o := range obs {
		if t.joiner.deduplicate {
			if t.seen[o.Role].Contains(o.PlayerID) {
				continue
			}
			t.seen[o.Role].Add(o.PlayerID)
		}
		dst = append(dst, o)
	}
	return dst
}

// Result returns the aggregate.
func (t *Tally) Result() *Result {
	return &Result{
		VictimsTurnedCheater:   append([]Observation(nil), t.victims...),
		WitnessesTurnedCheater: append([]Observation(nil), t.witnesses...),
		WindowDays:             t.joiner.windowDays,
		Deduplicated:           t.joiner.deduplicate,
	}
}
