// Package ingest turns kill logs and cheater registries into typed records.
package ingest

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	cerrors "github.com/arkilian/contagion/internal/errors"
	"github.com/arkilian/contagion/pkg/types"
)

// maxLineSize bounds a single log line.
const maxLineSize = 1 << 20

var timestampLayouts = []string{
	TimestampLayout,
	"2006-01-02T15:04:05.000",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339Nano,
}

// TimestampLayout is the layout WriteKills emits.
const TimestampLayout = "2006-01-02 15:04:05.000"

// ParseTimestamp parses a kill timestamp and truncates it to milliseconds.
// Timestamps without a zone are UTC.
func ParseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC().Truncate(time.Millisecond), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// ReadKills parses a tab-separated kill log:
// match_id, killer_id, victim_id, timestamp. Blank lines are skipped.
func ReadKills(r io.Reader) ([]types.KillEvent, error) {
	var events []types.KillEvent
	err := scanLines(r, func(line string, lineNo int) error {
		fields := strings.Split(line, "\t")
		if len(fields) != 4 {
			return malformed(lineNo, fmt.Errorf("expected 4 tab-separated fields, got %d", len(fields)))
		}
		for i := range fields {
			fields[i] = strings.TrimSpace(fields[i])
		}
		if fields[0] == "" || fields[1] == "" || fields[2] == "" {
			return malformed(lineNo, errors.New("empty match, killer or victim id"))
		}
		ts, err := ParseTimestamp(fields[3])
		if err != nil {
			return malformed(lineNo, err)
		}
		events = append(events, types.KillEvent{
			MatchID:   fields[0],
			KillerID:  fields[1],
			VictimID:  fields[2],
			Timestamp: ts,
		})
		return nil
	})
	return events, err
}

// WriteKills writes events in the format ReadKills accepts.
func WriteKills(w io.Writer, events []types.KillEvent) error {
	bw := bufio.NewWriter(w)
	for _, ev := range events {
		if _, err := fmt.Fprintf(bw, "%s\t%s\t%s\t%s\n",
			ev.MatchID, ev.KillerID, ev.VictimID, ev.Timestamp.UTC().Format(TimestampLayout)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadCheaters parses a whitespace-separated registry:
// player_id, cheating_since, banned_on.
func ReadCheaters(r io.Reader) ([]types.CheaterRecord, error) {
	var records []types.CheaterRecord
	err := scanLines(r, func(line string, lineNo int) error {
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return malformed(lineNo, fmt.Errorf("expected 3 fields, got %d", len(fields)))
		}
		since, err := types.ParseDate(fields[1])
		if err != nil {
			return malformed(lineNo, err)
		}
		banned, err := types.ParseDate(fields[2])
		if err != nil {
			return malformed(lineNo, err)
		}
		records = append(records, types.CheaterRecord{PlayerID: fields[0], CheatingSince: since, BannedOn: banned})
		return nil
	})
	return records, err
}

// NewRegistry indexes records, reporting a repeated player as an ingest error.
func NewRegistry(records []types.CheaterRecord) (*types.Registry, error) {
	reg, err := types.NewRegistry(records)
	if err != nil {
		var dup *types.DuplicateCheaterError
		if errors.As(err, &dup) {
			return nil, cerrors.NewIngestError(cerrors.CodeDuplicateCheater, "cheater registry is not unique", err)
		}
		return nil, cerrors.NewInternalError("failed to build registry", err)
	}
	return reg, nil
}

func scanLines(r io.Reader, fn func(line string, lineNo int) error) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), maxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if err := fn(line, lineNo); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return cerrors.NewIngestError(cerrors.CodeMalformedRecord, "failed to read input", err)
	}
	return nil
}

func malformed(lineNo int, cause error) error {
	return cerrors.NewIngestError(cerrors.CodeMalformedRecord, fmt.Sprintf("line %d", lineNo), cause).
		WithDetails(map[string]interface{}{cerrors.DetailLine: lineNo})
}
