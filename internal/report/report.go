// Package report renders contagion results for people and for machines.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/arkilian/contagion/internal/contagion"
	"github.com/arkilian/contagion/internal/simulation"
)

// Format selects the output encoding.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(s)) {
	case FormatText, "":
		return FormatText, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown output format %q (must be text or json)", s)
	}
}

const histogramWidth = 40

// Summary is the JSON form of an analysis result.
type Summary struct {
	RunID           string   `json:"run_id,omitempty"`
	MatchesAnalyzed int      `json:"matches_analyzed"`
	MatchesDetected int      `json:"matches_detected"`
	NumObservers    int      `json:"num_observers"`
	NumVictims      int      `json:"num_victims"`
	NumWitnesses    int      `json:"num_witnesses"`
	Observers       []string `json:"observers"`
	WindowDays      int      `json:"window_days"`
	Deduplicated    bool     `json:"deduplicated"`

	Victims   []contagion.Observation `json:"victims,omitempty"`
	Witnesses []contagion.Observation `json:"witnesses,omitempty"`
}

// NewSummary flattens res. Per-observation detail is included only when
// detail is set.
func NewSummary(res *contagion.Result, detail bool) Summary {
	s := Summary{
		RunID:           res.RunID,
		MatchesAnalyzed: res.MatchesAnalyzed,
		MatchesDetected: res.MatchesDetected,
		NumObservers:    res.NumObservers(),
		NumVictims:      res.NumVictims(),
		NumWitnesses:    res.NumWitnesses(),
		Observers:       res.Observers(),
		WindowDays:      windowDays(res),
		Deduplicated:    res.Deduplicated,
	}
	if detail {
		s.Victims = res.VictimsTurnedCheater
		s.Witnesses = res.WitnessesTurnedCheater
	}
	return s
}

// WriteSummary prints the contagion count, and with detail the breakdown
// by role and the list of player ids.
func WriteSummary(w io.Writer, res *contagion.Result, detail bool) error {
	n := res.NumObservers()
	days := windowDays(res)
	if !detail {
		_, err := fmt.Fprintf(w, "There are %d players that started cheating within %d days of observing cheating.\n", n, days)
		return err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "- There are %d players that started cheating within %d days of observing cheating.\n", n, days)
	fmt.Fprintf(&b, "- From those %d players, %d were killed by a cheater and %d witnessed cheating.\n",
		n, res.NumVictims(), res.NumWitnesses())
	fmt.Fprintf(&b, "- Matches analyzed: %d, with detected cheating: %d.\n", res.MatchesAnalyzed, res.MatchesDetected)
	fmt.Fprintf(&b, "- Here is the list of players who started cheating within %d days of observing cheating:\n\n", days)
	for _, id := range res.Observers() {
		b.WriteString(id)
		b.WriteByte('\n')
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func windowDays(res *contagion.Result) int {
	if res.WindowDays > 0 {
		return res.WindowDays
	}
	return contagion.DefaultWindowDays
}

// WriteExperiment prints the observed count against the permutation
// distribution with a text histogram.
func WriteExperiment(w io.Writer, exp *simulation.Experiment) error {
	var b strings.Builder
	fmt.Fprintf(&b, "Run %s (seed %d)\n", exp.RunID, exp.Seed)
	fmt.Fprintf(&b, "Observed contagion events: %d\n", exp.Observed)
	fmt.Fprintf(&b, "Permutation trials: %d, mean %.2f, p-value %.4f\n", len(exp.Trials), exp.Mean, exp.PValue)

	if len(exp.Trials) > 0 {
		b.WriteString("\nTrial distribution:\n")
		writeHistogram(&b, exp.Trials, exp.Observed)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func writeHistogram(b *strings.Builder, counts []int, observed int) {
	freq := make(map[int]int)
	maxFreq := 0
	for _, c := range counts {
		freq[c]++
		if freq[c] > maxFreq {
			maxFreq = freq[c]
		}
	}
	values := make([]int, 0, len(freq))
	for v := range freq {
		values = append(values, v)
	}
	if _, ok := freq[observed]; !ok {
		values = append(values, observed)
	}
	sort.Ints(values)

	for _, v := range values {
		bar := 0
		if maxFreq > 0 {
			bar = freq[v] * histogramWidth / maxFreq
		}
		if freq[v] > 0 && bar == 0 {
			bar = 1
		}
		marker := ""
		if v == observed {
			marker = "  <- observed"
		}
		fmt.Fprintf(b, "%6d | %-*s %d%s\n", v, histogramWidth, strings.Repeat("#", bar), freq[v], marker)
	}
}

// WriteJSON writes v as indented JSON.
func WriteJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
