package types

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDateOf(t *testing.T) {
	ts := time.Date(2019, 3, 14, 23, 59, 59, 999_000_000, time.UTC)
	assert.Equal(t, NewDate(2019, 3, 14), DateOf(ts))
	assert.Equal(t, NewDate(2019, 3, 15), DateOf(ts.Add(time.Millisecond)))
}

func TestDateOf_BeforeEpoch(t *testing.T) {
	ts := time.Date(1969, 12, 31, 12, 0, 0, 0, time.UTC)
	d := DateOf(ts)
	assert.Equal(t, Date(-1), d)
	assert.Equal(t, "1969-12-31", d.String())
}

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2019-03-01")
	require.NoError(t, err)
	assert.Equal(t, "2019-03-01", d.String())
	assert.Equal(t, "2019-03-06", d.AddDays(5).String())

	_, err = ParseDate("2019/03/01")
	assert.Error(t, err)
}

func TestDate_JSON(t *testing.T) {
	rec := CheaterRecord{PlayerID: "p1", CheatingSince: NewDate(2019, 3, 2), BannedOn: NewDate(2019, 3, 9)}
	data, err := json.Marshal(rec)
	require.NoError(t, err)
	assert.JSONEq(t, `{"player_id":"p1","cheating_since":"2019-03-02","banned_on":"2019-03-09"}`, string(data))

	var back CheaterRecord
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, rec, back)
}
