// Package types provides the core record types shared by the contagion analysis.
package types

import (
	"sort"
	"time"
)

// KillEvent is a single kill recorded in a match log.
type KillEvent struct {
	// MatchID identifies the match the kill happened in
	MatchID string `json:"match_id"`

	// KillerID is the player who made the kill
	KillerID string `json:"killer_id"`

	// VictimID is the player who was killed
	VictimID string `json:"victim_id"`

	// Timestamp is the instant of the kill (millisecond precision)
	Timestamp time.Time `json:"timestamp"`
}

// CheaterRecord is one entry of the cheater registry.
type CheaterRecord struct {
	// PlayerID is the cheating player
	PlayerID string `json:"player_id"`

	// CheatingSince is the first day the player is known to have cheated
	CheatingSince Date `json:"cheating_since"`

	// BannedOn is the day the player was banned
	BannedOn Date `json:"banned_on"`
}

// PlayerSet is an unordered set of player ids.
type PlayerSet map[string]struct{}

// NewPlayerSet returns a set holding ids.
func NewPlayerSet(ids ...string) PlayerSet {
	s := make(PlayerSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Add inserts id into the set.
func (s PlayerSet) Add(id string) {
	s[id] = struct{}{}
}

// Contains reports whether id is in the set.
func (s PlayerSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Sorted returns the members in ascending order.
func (s PlayerSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}
