package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/arkilian/contagion/internal/errors"
	"github.com/arkilian/contagion/pkg/types"
)

var base = time.Date(2019, 3, 1, 22, 0, 0, 0, time.UTC)

func kill(matchID, killer, victim string, offset time.Duration) types.KillEvent {
	return types.KillEvent{MatchID: matchID, KillerID: killer, VictimID: victim, Timestamp: base.Add(offset)}
}

func TestBuild_GroupsByMatch(t *testing.T) {
	events := []types.KillEvent{
		kill("m2", "a", "b", time.Minute),
		kill("m1", "c", "d", time.Minute),
		kill("m2", "b", "e", 2*time.Minute),
		kill("m1", "d", "f", 3*time.Minute),
	}

	idx, err := Build(events)
	require.NoError(t, err)
	require.Equal(t, 2, idx.Len())

	matches := idx.Matches()
	assert.Equal(t, "m1", matches[0].ID)
	assert.Equal(t, "m2", matches[1].ID)
	assert.Len(t, matches[0].Events, 2)
	assert.Len(t, matches[1].Events, 2)

	m, ok := idx.Get("m2")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b", "e"}, m.Players().Sorted())

	_, ok = idx.Get("m3")
	assert.False(t, ok)
	assert.Len(t, idx.Events(), 4)
	assert.Equal(t, 4, idx.NumEvents())
}

func TestNew_SortsAndComputesEndTime(t *testing.T) {
	// The last kill crosses midnight so the end day is the next day.
	events := []types.KillEvent{
		kill("m1", "a", "c", 3*time.Hour),
		kill("m1", "a", "b", time.Minute),
		kill("m1", "x", "y", time.Minute),
	}

	m, err := New("m1", events)
	require.NoError(t, err)

	assert.Equal(t, types.NewDate(2019, 3, 2), m.EndTime)
	assert.Equal(t, base.Add(time.Minute), m.StartTime())
	// Equal timestamps keep log order.
	assert.Equal(t, "b", m.Events[0].VictimID)
	assert.Equal(t, "y", m.Events[1].VictimID)
	assert.Equal(t, "c", m.Events[2].VictimID)

	// The caller's slice is untouched.
	assert.Equal(t, "c", events[0].VictimID)
}

func TestNew_Empty(t *testing.T) {
	_, err := New("m1", nil)
	require.Error(t, err)
	assert.Equal(t, cerrors.CodeEmptyMatch, cerrors.GetCode(err))

	stage, ok := cerrors.GetDetail(err, cerrors.DetailStage)
	require.True(t, ok)
	assert.Equal(t, Stage, stage)
}

func TestNew_ForeignEvent(t *testing.T) {
	_, err := New("m1", []types.KillEvent{kill("m2", "a", "b", 0)})
	require.Error(t, err)
	assert.Equal(t, cerrors.CodeMismatchedMatch, cerrors.GetCode(err))
}

func TestIndex_EndTimes(t *testing.T) {
	idx, err := Build([]types.KillEvent{
		kill("m1", "a", "b", 0),
		kill("m2", "a", "b", 26*time.Hour),
	})
	require.NoError(t, err)

	assert.Equal(t, map[string]types.Date{
		"m1": types.NewDate(2019, 3, 1),
		"m2": types.NewDate(2019, 3, 3),
	}, idx.EndTimes())
}
