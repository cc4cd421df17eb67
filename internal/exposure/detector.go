// Package exposure finds, per match, the players killed by an active cheater
// and the time at which the cheating became evident.
package exposure

import (
	"fmt"
	"sort"
	"time"

	cerrors "github.com/arkilian/contagion/internal/errors"
	"github.com/arkilian/contagion/internal/match"
	"github.com/arkilian/contagion/pkg/types"
)

// Stage names this package in error details.
const Stage = "exposure"

// Rules decides when a cheater's activity in a match counts as confirmed.
type Rules struct {
	// MinCheatingKills is the kill count a cheater needs to qualify
	MinCheatingKills int

	// DetectionKillIndex is the 0-indexed kill whose timestamp is taken
	DetectionKillIndex int
}

// DefaultRules requires more than 3 kills and confirms on the 3rd.
func DefaultRules() Rules {
	return Rules{MinCheatingKills: 4, DetectionKillIndex: 2}
}

// Validate checks that the detection kill always exists for a qualifying cheater.
func (r Rules) Validate() error {
	if r.MinCheatingKills <= 0 || r.DetectionKillIndex < 0 || r.DetectionKillIndex >= r.MinCheatingKills {
		return cerrors.NewAnalysisError(cerrors.CodeInvalidThreshold,
			fmt.Sprintf("detection kill index %d must be below min cheating kills %d",
				r.DetectionKillIndex, r.MinCheatingKills))
	}
	return nil
}

// Kill is one kill made by a cheater.
type Kill struct {
	VictimID  string
	Timestamp time.Time
}

// CheaterKills lists the kills of one active cheater in match order.
type CheaterKills struct {
	CheaterID string
	Kills     []Kill
}

// Records is the exposure record of a match, ordered by cheater id.
type Records []CheaterKills

// Detection is the moment cheating became evident in a match.
type Detection struct {
	// At is the timestamp of the confirming kill
	At time.Time

	// CheaterID is the cheater whose kill confirmed it
	CheaterID string
}

// Exposure is the outcome of running the detector over one match.
type Exposure struct {
	MatchID string
	Records Records

	// Detection is nil when no cheater qualified
	Detection *Detection

	// Victims holds every victim of a qualifying cheater, regardless of
	// whether they died before or after the detection time
	Victims types.PlayerSet
}

// Detected reports whether the match has a detection time.
func (e *Exposure) Detected() bool {
	return e.Detection != nil
}

// Detector applies Rules to matches. It holds no mutable state and is safe
// for concurrent use.
type Detector struct {
	rules Rules
}

// NewDetector creates a detector.
func NewDetector(rules Rules) (*Detector, error) {
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return &Detector{rules: rules}, nil
}

// Rules returns the detector's rules.
func (d *Detector) Rules() Rules {
	return d.rules
}

// ActiveCheatersAt returns the registry's cheaters whose cheating started at
// or before matchStart.
func ActiveCheatersAt(matchStart time.Time, registry *types.Registry) types.PlayerSet {
	return registry.ActiveAt(matchStart)
}

// ActiveIn returns the participants of m that were already cheating when the
// match started.
func ActiveIn(m *match.Match, registry *types.Registry) types.PlayerSet {
	start := m.StartTime()
	active := make(types.PlayerSet)
	for id := range m.Players() {
		if registry.IsActiveAt(id, start) {
			active.Add(id)
		}
	}
	return active
}

// Records collects, for each active cheater who kills in m, their kills in
// match order.
func (d *Detector) Records(m *match.Match, active types.PlayerSet) Records {
	byCheater := make(map[string][]Kill)
	for _, ev := range m.Events {
		if !active.Contains(ev.KillerID) {
			continue
		}
		byCheater[ev.KillerID] = append(byCheater[ev.KillerID], Kill{VictimID: ev.VictimID, Timestamp: ev.Timestamp})
	}

	records := make(Records, 0, len(byCheater))
	for id, kills := range byCheater {
		records = append(records, CheaterKills{CheaterID: id, Kills: kills})
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CheaterID < records[j].CheaterID
	})
	return records
}

// Qualifying returns the cheaters with enough kills to confirm cheating.
func (d *Detector) Qualifying(records Records) Records {
	var out Records
	for _, ck := range records {
		if len(ck.Kills) >= d.rules.MinCheatingKills {
			out = append(out, ck)
		}
	}
	return out
}

// DetectionTime returns the earliest confirming kill across qualifying
// cheaters. Ties go to the lowest cheater id.
func (d *Detector) DetectionTime(records Records) (Detection, bool) {
	var (
		best  Detection
		found bool
	)
	for _, ck := range d.Qualifying(records) {
		at := ck.Kills[d.rules.DetectionKillIndex].Timestamp
		if !found || at.Before(best.At) {
			best = Detection{At: at, CheaterID: ck.CheaterID}
			found = true
		}
	}
	return best, found
}

// VictimSet returns every victim of every qualifying cheater.
func (d *Detector) VictimSet(records Records) types.PlayerSet {
	victims := make(types.PlayerSet)
	for _, ck := range d.Qualifying(records) {
		for _, k := range ck.Kills {
			victims.Add(k.VictimID)
		}
	}
	return victims
}

// Detect runs the full detection over one match. Events must be in
// non-decreasing timestamp order.
func (d *Detector) Detect(m *match.Match, registry *types.Registry) (*Exposure, error) {
	if err := checkOrdered(m); err != nil {
		return nil, err
	}

	records := d.Records(m, ActiveIn(m, registry))
	exp := &Exposure{
		MatchID: m.ID,
		Records: records,
		Victims: make(types.PlayerSet),
	}
	if det, ok := d.DetectionTime(records); ok {
		exp.Detection = &det
		exp.Victims = d.VictimSet(records)
	}
	return exp, nil
}

func checkOrdered(m *match.Match) error {
	if len(m.Events) == 0 {
		return cerrors.NewAnalysisError(cerrors.CodeEmptyMatch, "match has no kill events").InMatch(m.ID, Stage)
	}
	for i := 1; i < len(m.Events); i++ {
		if m.Events[i].Timestamp.Before(m.Events[i-1].Timestamp) {
			return cerrors.NewAnalysisError(cerrors.CodeUnorderedEvents,
				fmt.Sprintf("event %d precedes event %d", i, i-1)).InMatch(m.ID, Stage)
		}
	}
	return nil
}
