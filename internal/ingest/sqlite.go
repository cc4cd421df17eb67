package ingest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	cerrors "github.com/arkilian/contagion/internal/errors"
	"github.com/arkilian/contagion/pkg/types"
)

// SQLite input layout. Timestamps are Unix milliseconds; dates are
// YYYY-MM-DD text.
const (
	killsQuery    = `SELECT match_id, killer_id, victim_id, ts_ms FROM kills ORDER BY rowid`
	cheatersQuery = `SELECT player_id, cheating_since, banned_on FROM cheaters ORDER BY rowid`
)

// LoadSQLite reads both tables from a SQLite database opened read-only.
func LoadSQLite(ctx context.Context, path string) ([]types.KillEvent, []types.CheaterRecord, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("file:%s?mode=ro", path))
	if err != nil {
		return nil, nil, cerrors.NewIngestError(cerrors.CodeUnsupportedInput, "failed to open sqlite input", err)
	}
	defer db.Close()

	kills, err := readKillRows(ctx, db)
	if err != nil {
		return nil, nil, err
	}
	cheaters, err := readCheaterRows(ctx, db)
	if err != nil {
		return nil, nil, err
	}
	return kills, cheaters, nil
}

func readKillRows(ctx context.Context, db *sql.DB) ([]types.KillEvent, error) {
	rows, err := db.QueryContext(ctx, killsQuery)
	if err != nil {
		return nil, cerrors.NewIngestError(cerrors.CodeUnsupportedInput, "failed to query kills", err)
	}
	defer rows.Close()

	var events []types.KillEvent
	for rows.Next() {
		var ev types.KillEvent
		var ms int64
		if err := rows.Scan(&ev.MatchID, &ev.KillerID, &ev.VictimID, &ms); err != nil {
			return nil, cerrors.NewIngestError(cerrors.CodeMalformedRecord,
				fmt.Sprintf("kills row %d", len(events)+1), err)
		}
		ev.Timestamp = time.UnixMilli(ms).UTC()
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.NewIngestError(cerrors.CodeMalformedRecord, "failed to read kills", err)
	}
	return events, nil
}

func readCheaterRows(ctx context.Context, db *sql.DB) ([]types.CheaterRecord, error) {
	rows, err := db.QueryContext(ctx, cheatersQuery)
	if err != nil {
		return nil, cerrors.NewIngestError(cerrors.CodeUnsupportedInput, "failed to query cheaters", err)
	}
	defer rows.Close()

	var records []types.CheaterRecord
	for rows.Next() {
		var id, since, banned string
		if err := rows.Scan(&id, &since, &banned); err != nil {
			return nil, cerrors.NewIngestError(cerrors.CodeMalformedRecord,
				fmt.Sprintf("cheaters row %d", len(records)+1), err)
		}
		rec := types.CheaterRecord{PlayerID: id}
		if rec.CheatingSince, err = types.ParseDate(since); err != nil {
			return nil, cerrors.NewIngestError(cerrors.CodeMalformedRecord,
				fmt.Sprintf("cheaters row %d", len(records)+1), err)
		}
		if rec.BannedOn, err = types.ParseDate(banned); err != nil {
			return nil, cerrors.NewIngestError(cerrors.CodeMalformedRecord,
				fmt.Sprintf("cheaters row %d", len(records)+1), err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, cerrors.NewIngestError(cerrors.CodeMalformedRecord, "failed to read cheaters", err)
	}
	return records, nil
}
