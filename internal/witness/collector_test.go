package witness

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arkilian/contagion/internal/exposure"
	"github.com/arkilian/contagion/internal/match"
	"github.com/arkilian/contagion/pkg/types"
)

var base = time.Date(2019, 3, 1, 12, 0, 0, 0, time.UTC)

func at(minutes int) time.Time {
	return base.Add(time.Duration(minutes) * time.Minute)
}

func kill(killer, victim string, minutes int) types.KillEvent {
	return types.KillEvent{MatchID: "m1", KillerID: killer, VictimID: victim, Timestamp: at(minutes)}
}

func mustMatch(t *testing.T, events ...types.KillEvent) *match.Match {
	t.Helper()
	m, err := match.New("m1", events)
	require.NoError(t, err)
	return m
}

func TestCollect_ExcludesPlayersDeadBeforeDetection(t *testing.T) {
	m := mustMatch(t,
		kill("c", "a", 1),
		kill("c", "b", 2),
		kill("x", "y", 2),
		kill("c", "d", 3),
		kill("c", "e", 4),
	)

	w := Collect(m, at(3))
	assert.Equal(t, "m1", w.MatchID)
	assert.Equal(t, at(3), w.DetectionTime)
	// d dies exactly at detection time and still counts; the cheater is alive.
	assert.Equal(t, []string{"c", "d", "e", "x"}, w.Players.Sorted())
}

func TestCollect_DeadCheaterIsNotAWitness(t *testing.T) {
	m := mustMatch(t,
		kill("c", "a", 1),
		kill("z", "c", 2),
		kill("z", "b", 5),
	)

	w := Collect(m, at(4))
	assert.Equal(t, []string{"b", "z"}, w.Players.Sorted())
}

func TestCollectDetected(t *testing.T) {
	m := mustMatch(t, kill("c", "a", 1), kill("c", "b", 2))

	_, ok := CollectDetected(m, &exposure.Exposure{MatchID: "m1"})
	assert.False(t, ok)

	_, ok = CollectDetected(m, nil)
	assert.False(t, ok)

	w, ok := CollectDetected(m, &exposure.Exposure{
		MatchID:   "m1",
		Detection: &exposure.Detection{At: at(2), CheaterID: "c"},
	})
	require.True(t, ok)
	assert.Equal(t, []string{"b", "c"}, w.Players.Sorted())
}
