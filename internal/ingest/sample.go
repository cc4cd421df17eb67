package ingest

import "github.com/arkilian/contagion/pkg/types"

// Sample takes the first n events and keeps only the ones that belong to
// the match of the last event taken. It is meant for quick local runs on a
// single complete-looking match.
func Sample(events []types.KillEvent, n int) []types.KillEvent {
	if n <= 0 || len(events) == 0 {
		return nil
	}
	if n > len(events) {
		n = len(events)
	}
	head := events[:n]
	last := head[n-1].MatchID

	var out []types.KillEvent
	for _, ev := range head {
		if ev.MatchID == last {
			out = append(out, ev)
		}
	}
	return out
}
