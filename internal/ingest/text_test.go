package ingest

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cerrors "github.com/arkilian/contagion/internal/errors"
	"github.com/arkilian/contagion/pkg/types"
)

const killLog = "m1\tC\tA\t2019-03-01 21:00:01.250\n" +
	"m1\tC\tB\t2019-03-01 21:00:02.000\n" +
	"\n" +
	"m2\tX\tY\t2019-03-02T08:15:00.000\r\n"

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2019-03-01 21:00:01.250", time.Date(2019, 3, 1, 21, 0, 1, 250_000_000, time.UTC)},
		{"2019-03-01T21:00:01.250", time.Date(2019, 3, 1, 21, 0, 1, 250_000_000, time.UTC)},
		{"2019-03-01 21:00:01", time.Date(2019, 3, 1, 21, 0, 1, 0, time.UTC)},
		{"2019-03-01T23:00:01.250123+02:00", time.Date(2019, 3, 1, 21, 0, 1, 250_000_000, time.UTC)},
	}
	for _, tt := range tests {
		got, err := ParseTimestamp(tt.in)
		require.NoError(t, err, tt.in)
		assert.True(t, tt.want.Equal(got), "%s: got %v want %v", tt.in, got, tt.want)
	}

	_, err := ParseTimestamp("yesterday")
	assert.Error(t, err)
}

func TestReadKills(t *testing.T) {
	events, err := ReadKills(strings.NewReader(killLog))
	require.NoError(t, err)
	require.Len(t, events, 3)

	assert.Equal(t, types.KillEvent{
		MatchID:   "m1",
		KillerID:  "C",
		VictimID:  "A",
		Timestamp: time.Date(2019, 3, 1, 21, 0, 1, 250_000_000, time.UTC),
	}, events[0])
	assert.Equal(t, "m2", events[2].MatchID)
	assert.Equal(t, "Y", events[2].VictimID)
}

func TestReadKills_Malformed(t *testing.T) {
	tests := map[string]string{
		"missing field": "m1\tC\tA\n",
		"bad timestamp": "m1\tC\tA\t2019-13-45 00:00:00.000\n",
		"empty id":      "m1\t\tA\t2019-03-01 00:00:00.000\n",
	}
	for name, input := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ReadKills(strings.NewReader("m0\ta\tb\t2019-03-01 00:00:00.000\n" + input))
			require.Error(t, err)
			assert.Equal(t, cerrors.CodeMalformedRecord, cerrors.GetCode(err))
			line, ok := cerrors.GetDetail(err, cerrors.DetailLine)
			require.True(t, ok)
			assert.Equal(t, 2, line)
		})
	}
}

func TestReadCheaters(t *testing.T) {
	records, err := ReadCheaters(strings.NewReader("A 2019-03-03 2019-03-09\n\nC  2019-02-01\t2019-03-02\n"))
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, types.CheaterRecord{
		PlayerID:      "A",
		CheatingSince: types.NewDate(2019, 3, 3),
		BannedOn:      types.NewDate(2019, 3, 9),
	}, records[0])
	assert.Equal(t, "C", records[1].PlayerID)

	_, err = ReadCheaters(strings.NewReader("A 2019-03-03\n"))
	assert.Equal(t, cerrors.CodeMalformedRecord, cerrors.GetCode(err))

	_, err = ReadCheaters(strings.NewReader("A 03/03/2019 2019-03-09\n"))
	assert.Equal(t, cerrors.CodeMalformedRecord, cerrors.GetCode(err))
}

func TestNewRegistry_Duplicate(t *testing.T) {
	records, err := ReadCheaters(strings.NewReader("A 2019-03-03 2019-03-09\nA 2019-03-04 2019-03-09\n"))
	require.NoError(t, err)

	_, err = NewRegistry(records)
	assert.Equal(t, cerrors.CodeDuplicateCheater, cerrors.GetCode(err))
	assert.Equal(t, cerrors.ErrCategoryIngest, cerrors.GetCategory(err))
}

func TestWriteKills_RoundTrip(t *testing.T) {
	events, err := ReadKills(strings.NewReader(killLog))
	require.NoError(t, err)

	var b strings.Builder
	require.NoError(t, WriteKills(&b, events))
	assert.Equal(t, "m1\tC\tA\t2019-03-01 21:00:01.250\n", strings.SplitAfter(b.String(), "\n")[0])

	again, err := ReadKills(strings.NewReader(b.String()))
	require.NoError(t, err)
	assert.Equal(t, events, again)
}
