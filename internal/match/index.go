// Package match groups a kill log into matches.
package match

import (
	"sort"
	"time"

	cerrors "github.com/arkilian/contagion/internal/errors"
	"github.com/arkilian/contagion/pkg/types"
)

// Stage names this package in error details.
const Stage = "match_index"

// Match is one played game session and its kills in timestamp order.
type Match struct {
	// ID is the match identifier
	ID string

	// EndTime is the calendar day of the last kill
	EndTime types.Date

	// Events holds the kills ordered by timestamp
	Events []types.KillEvent
}

// New builds a Match from its kills. Events are stably sorted by timestamp,
// so kills sharing a timestamp keep their log order. Every event must carry
// id as its match id.
func New(id string, events []types.KillEvent) (*Match, error) {
	if len(events) == 0 {
		return nil, cerrors.NewAnalysisError(cerrors.CodeEmptyMatch, "match has no kill events").InMatch(id, Stage)
	}
	for _, ev := range events {
		if ev.MatchID != id {
			return nil, cerrors.NewAnalysisError(cerrors.CodeMismatchedMatch,
				"event belongs to match "+ev.MatchID).InMatch(id, Stage)
		}
	}

	ordered := make([]types.KillEvent, len(events))
	copy(ordered, events)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Timestamp.Before(ordered[j].Timestamp)
	})

	return &Match{
		ID:      id,
		EndTime: types.DateOf(ordered[len(ordered)-1].Timestamp),
		Events:  ordered,
	}, nil
}

// StartTime is the timestamp of the first kill.
func (m *Match) StartTime() time.Time {
	return m.Events[0].Timestamp
}

// Players returns every killer and victim in the match.
func (m *Match) Players() types.PlayerSet {
	players := make(types.PlayerSet, len(m.Events))
	for _, ev := range m.Events {
		players.Add(ev.KillerID)
		players.Add(ev.VictimID)
	}
	return players
}

// Index is a kill log partitioned by match.
type Index struct {
	matches []*Match
	byID    map[string]*Match
}

// Build partitions events by match id. Matches are ordered by id so every
// run visits them in the same order.
func Build(events []types.KillEvent) (*Index, error) {
	groups := make(map[string][]types.KillEvent)
	for _, ev := range events {
		groups[ev.MatchID] = append(groups[ev.MatchID], ev)
	}

	ids := make([]string, 0, len(groups))
	for id := range groups {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	idx := &Index{
		matches: make([]*Match, 0, len(ids)),
		byID:    make(map[string]*Match, len(ids)),
	}
	for _, id := range ids {
		m, err := New(id, groups[id])
		if err != nil {
			return nil, err
		}
		idx.matches = append(idx.matches, m)
		idx.byID[id] = m
	}
	return idx, nil
}

// Matches returns the matches ordered by id.
func (idx *Index) Matches() []*Match {
	return idx.matches
}

// Get returns the match with the given id.
func (idx *Index) Get(id string) (*Match, bool) {
	m, ok := idx.byID[id]
	return m, ok
}

// Len returns the number of matches.
func (idx *Index) Len() int {
	return len(idx.matches)
}

// EndTimes maps every match id to its end day.
func (idx *Index) EndTimes() map[string]types.Date {
	out := make(map[string]types.Date, len(idx.matches))
	for _, m := range idx.matches {
		out[m.ID] = m.EndTime
	}
	return out
}

// NumEvents returns the number of kills across all matches.
func (idx *Index) NumEvents() int {
	n := 0
	for _, m := range idx.matches {
		n += len(m.Events)
	}
	return n
}

// Events flattens the index back into one kill log, match by match.
func (idx *Index) Events() []types.KillEvent {
	out := make([]types.KillEvent, 0, idx.NumEvents())
	for _, m := range idx.matches {
		out = append(out, m.Events...)
	}
	return out
}
