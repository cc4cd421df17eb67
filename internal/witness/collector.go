// Package witness computes the players still alive when cheating became
// evident in a match.
package witness

import (
	"time"

	"github.com/samber/lo"

	"github.com/arkilian/contagion/internal/exposure"
	"github.com/arkilian/contagion/internal/match"
	"github.com/arkilian/contagion/pkg/types"
)

// Stage names this package in error details.
const Stage = "witness"

// Witnesses is the witness set of one match.
type Witnesses struct {
	MatchID string

	// Players holds every participant not killed before DetectionTime
	Players types.PlayerSet

	// DetectionTime is the detection time the set was computed against
	DetectionTime time.Time
}

// Collect returns the players of m that nobody killed strictly before
// detectionTime. Presence is all that is required: a player counts even if
// they never fought the cheater, and the cheater counts while alive.
func Collect(m *match.Match, detectionTime time.Time) Witnesses {
	dead := lo.FilterMap(m.Events, func(ev types.KillEvent, _ int) (string, bool) {
		return ev.VictimID, ev.Timestamp.Before(detectionTime)
	})
	deadSet := types.NewPlayerSet(dead...)

	witnesses := make(types.PlayerSet)
	for id := range m.Players() {
		if !deadSet.Contains(id) {
			witnesses.Add(id)
		}
	}
	return Witnesses{MatchID: m.ID, Players: witnesses, DetectionTime: detectionTime}
}

// CollectDetected returns the witness set for a match with a detection time
// and false for one without.
func CollectDetected(m *match.Match, exp *exposure.Exposure) (Witnesses, bool) {
	if exp == nil || !exp.Detected() {
		return Witnesses{}, false
	}
	return Collect(m, exp.Detection.At), true
}
