package types

import (
	"fmt"
	"sort"
	"time"
)

// Registry is the read-only cheater registry. It is safe for concurrent use
// once built.
type Registry struct {
	byID map[string]CheaterRecord

	// bySince holds every record ordered by CheatingSince, then PlayerID
	bySince []CheaterRecord
}

// DuplicateCheaterError is returned when a player appears twice in the registry.
type DuplicateCheaterError struct {
	PlayerID string
}

func (e *DuplicateCheaterError) Error() string {
	return fmt.Sprintf("duplicate cheater record for player %q", e.PlayerID)
}

// NewRegistry indexes records. A player may appear at most once.
func NewRegistry(records []CheaterRecord) (*Registry, error) {
	r := &Registry{
		byID:    make(map[string]CheaterRecord, len(records)),
		bySince: make([]CheaterRecord, 0, len(records)),
	}
	for _, rec := range records {
		if _, dup := r.byID[rec.PlayerID]; dup {
			return nil, &DuplicateCheaterError{PlayerID: rec.PlayerID}
		}
		r.byID[rec.PlayerID] = rec
		r.bySince = append(r.bySince, rec)
	}
	sort.Slice(r.bySince, func(i, j int) bool {
		a, b := r.bySince[i], r.bySince[j]
		if a.CheatingSince != b.CheatingSince {
			return a.CheatingSince < b.CheatingSince
		}
		return a.PlayerID < b.PlayerID
	})
	return r, nil
}

// Len returns the number of registered cheaters.
func (r *Registry) Len() int {
	return len(r.byID)
}

// Lookup returns the record for id. Absence means "not a cheater".
func (r *Registry) Lookup(id string) (CheaterRecord, bool) {
	rec, ok := r.byID[id]
	return rec, ok
}

// IsActiveAt reports whether id had started cheating at or before t.
func (r *Registry) IsActiveAt(id string, t time.Time) bool {
	rec, ok := r.byID[id]
	if !ok {
		return false
	}
	return !rec.CheatingSince.Time().After(t)
}

// ActiveAt returns every player whose CheatingSince is at or before t.
func (r *Registry) ActiveAt(t time.Time) PlayerSet {
	n := sort.Search(len(r.bySince), func(i int) bool {
		return r.bySince[i].CheatingSince.Time().After(t)
	})
	out := make(PlayerSet, n)
	for _, rec := range r.bySince[:n] {
		out.Add(rec.PlayerID)
	}
	return out
}

// StartedBetween returns every player whose CheatingSince lies in the open
// interval (after, before).
func (r *Registry) StartedBetween(after, before Date) PlayerSet {
	lo := sort.Search(len(r.bySince), func(i int) bool {
		return r.bySince[i].CheatingSince > after
	})
	out := make(PlayerSet)
	for _, rec := range r.bySince[lo:] {
		if rec.CheatingSince >= before {
			break
		}
		out.Add(rec.PlayerID)
	}
	return out
}
