package contagion

// Result is the aggregate contagion count of one run.
type Result struct {
	// RunID identifies the run that produced the result
	RunID string `json:"run_id,omitempty"`

	// MatchesAnalyzed is the number of matches in the kill log
	MatchesAnalyzed int `json:"matches_analyzed"`

	// MatchesDetected is the number of matches with a detection time
	MatchesDetected int `json:"matches_detected"`

	VictimsTurnedCheater   []Observation `json:"victims_turned_cheater"`
	WitnessesTurnedCheater []Observation `json:"witnesses_turned_cheater"`

	// WindowDays is the contagion window the result was counted with
	WindowDays int `json:"window_days"`

	// Deduplicated is false when a player counts once per qualifying match
	Deduplicated bool `json:"deduplicated"`
}

// Observers returns victim ids followed by witness ids. A player appears
// once per qualifying match and role.
func (r *Result) Observers() []string {
	out := make([]string, 0, r.NumObservers())
	for _, o := range r.VictimsTurnedCheater {
		out = append(out, o.PlayerID)
	}
	for _, o := range r.WitnessesTurnedCheater {
		out = append(out, o.PlayerID)
	}
	return out
}

// NumObservers is the total number of contagion events.
func (r *Result) NumObservers() int {
	return r.NumVictims() + r.NumWitnesses()
}

// NumVictims is the number of victims who turned cheater.
func (r *Result) NumVictims() int {
	return len(r.VictimsTurnedCheater)
}

// NumWitnesses is the number of witnesses who turned cheater.
func (r *Result) NumWitnesses() int {
	return len(r.WitnessesTurnedCheater)
}
