package simulation

import (
	"fmt"
	"sort"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/arkilian/contagion/internal/match"
	"github.com/arkilian/contagion/pkg/types"
)

// buildMatch decodes each code into a kill between players p0..p7; p0 and
// p1 are active cheaters, p2 only starts cheating after the match.
func buildMatch(codes []int) (*match.Match, error) {
	ts := time.Date(2019, 3, 1, 10, 0, 0, 0, time.UTC)
	events := make([]types.KillEvent, 0, len(codes))
	for i, c := range codes {
		events = append(events, types.KillEvent{
			MatchID:   "m",
			KillerID:  fmt.Sprintf("p%d", c/8),
			VictimID:  fmt.Sprintf("p%d", c%8),
			Timestamp: ts.Add(time.Duration(i) * time.Second),
		})
	}
	return match.New("m", events)
}

func propertyRegistry(t *testing.T) *types.Registry {
	reg, err := types.NewRegistry([]types.CheaterRecord{
		{PlayerID: "p0", CheatingSince: types.NewDate(2019, 1, 1)},
		{PlayerID: "p1", CheatingSince: types.NewDate(2019, 2, 1)},
		{PlayerID: "p2", CheatingSince: types.NewDate(2019, 3, 3)},
	})
	if err != nil {
		t.Fatal(err)
	}
	return reg
}

func occurrenceCounts(events []types.KillEvent, skip types.PlayerSet) []int {
	counts := make(map[string]int)
	for _, ev := range events {
		if !skip.Contains(ev.KillerID) {
			counts[ev.KillerID]++
		}
		if !skip.Contains(ev.VictimID) {
			counts[ev.VictimID]++
		}
	}
	out := make([]int, 0, len(counts))
	for _, c := range counts {
		out = append(out, c)
	}
	sort.Ints(out)
	return out
}

func TestProperty_PermuteMatch(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	reg := propertyRegistry(t)
	cheaters := types.NewPlayerSet("p0", "p1")

	properties.Property("shape, timestamps and cheater ids are preserved", prop.ForAll(
		func(codes []int, seed uint64) bool {
			m, err := buildMatch(codes)
			if err != nil {
				return false
			}
			out := PermuteMatch(m, reg, TrialSeed(seed, 0).Rand())
			if len(out) != len(m.Events) {
				return false
			}
			for i, ev := range out {
				orig := m.Events[i]
				if ev.MatchID != orig.MatchID || !ev.Timestamp.Equal(orig.Timestamp) {
					return false
				}
				if cheaters.Contains(orig.KillerID) != cheaters.Contains(ev.KillerID) {
					return false
				}
				if cheaters.Contains(orig.KillerID) && orig.KillerID != ev.KillerID {
					return false
				}
				if cheaters.Contains(orig.VictimID) && orig.VictimID != ev.VictimID {
					return false
				}
			}
			return true
		},
		gen.SliceOf(gen.IntRange(0, 63)).SuchThat(func(c []int) bool { return len(c) > 0 }),
		gen.UInt64(),
	))

	properties.Property("relabelling is a consistent bijection on non-cheaters", prop.ForAll(
		func(codes []int, seed uint64) bool {
			m, err := buildMatch(codes)
			if err != nil {
				return false
			}
			out := PermuteMatch(m, reg, TrialSeed(seed, 1).Rand())

			forward := make(map[string]string)
			check := func(from, to string) bool {
				if prev, ok := forward[from]; ok {
					return prev == to
				}
				forward[from] = to
				return true
			}
			for i, ev := range out {
				if !check(m.Events[i].KillerID, ev.KillerID) || !check(m.Events[i].VictimID, ev.VictimID) {
					return false
				}
			}

			images := make(types.PlayerSet)
			for _, to := range forward {
				if images.Contains(to) {
					return false
				}
				images.Add(to)
			}

			before := fmt.Sprint(occurrenceCounts(m.Events, cheaters))
			after := fmt.Sprint(occurrenceCounts(out, cheaters))
			return before == after && len(images) == len(m.Players())
		},
		gen.SliceOf(gen.IntRange(0, 63)).SuchThat(func(c []int) bool { return len(c) > 0 }),
		gen.UInt64(),
	))

	properties.TestingRun(t)
}
