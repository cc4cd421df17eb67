// Package simulation builds null-model kill logs by shuffling the identities
// of non-cheaters inside each match, and runs permutation trials over them.
package simulation

import (
	"math/rand/v2"

	"github.com/samber/lo"

	"github.com/arkilian/contagion/internal/exposure"
	"github.com/arkilian/contagion/internal/match"
	"github.com/arkilian/contagion/pkg/types"
)

// Roster returns the participants of m that may be relabelled: everyone
// except players already cheating at match start, in id order.
func Roster(m *match.Match, registry *types.Registry) []string {
	active := exposure.ActiveIn(m, registry)
	return lo.Filter(m.Players().Sorted(), func(id string, _ int) bool {
		return !active.Contains(id)
	})
}

// Relabel draws a uniformly random bijection of roster onto itself.
func Relabel(roster []string, rng *rand.Rand) map[string]string {
	images := make([]string, len(roster))
	copy(images, roster)
	rng.Shuffle(len(images), func(i, j int) {
		images[i], images[j] = images[j], images[i]
	})
	mapping := make(map[string]string, len(roster))
	for i, id := range roster {
		mapping[id] = images[i]
	}
	return mapping
}

// PermuteMatch returns a new event list for m in which every non-cheater id
// is replaced by its image under a random relabelling. Cheater ids, event
// order, timestamps and the match id are unchanged. A match in which no
// active cheater makes a kill, or with nobody to relabel, is returned as an
// unmodified copy.
func PermuteMatch(m *match.Match, registry *types.Registry, rng *rand.Rand) []types.KillEvent {
	out := make([]types.KillEvent, len(m.Events))
	copy(out, m.Events)

	if !hasCheatingKiller(m, exposure.ActiveIn(m, registry)) {
		return out
	}
	roster := Roster(m, registry)
	if len(roster) == 0 {
		return out
	}

	mapping := Relabel(roster, rng)
	for i := range out {
		if img, ok := mapping[out[i].KillerID]; ok {
			out[i].KillerID = img
		}
		if img, ok := mapping[out[i].VictimID]; ok {
			out[i].VictimID = img
		}
	}
	return out
}

// hasCheatingKiller reports whether any kill in m was made by an active cheater.
func hasCheatingKiller(m *match.Match, active types.PlayerSet) bool {
	return lo.ContainsBy(m.Events, func(ev types.KillEvent) bool {
		return active.Contains(ev.KillerID)
	})
}

// Simulate produces one trial: an alternate kill log with the same shape as
// idx, every match permuted with its own source derived from seed.
func Simulate(idx *match.Index, registry *types.Registry, seed Seed) []types.KillEvent {
	out := make([]types.KillEvent, 0, idx.NumEvents())
	for _, m := range idx.Matches() {
		out = append(out, PermuteMatch(m, registry, seed.MatchSeed(m.ID).Rand())...)
	}
	return out
}
