// internal/database/sqlite.go
package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	_ "modernc.org/sqlite"
)

// SQLiteStore is the single-file Recorder for deployments without postgres. It does
// not track ratings.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("cannot create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("cannot open sqlite database: %w", err)
	}
	// one writer; the async recorder serialises jobs anyway
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cannot connect to sqlite database: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("sqlite migration failed: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) RecordMatch(ctx context.Context, rec models.MatchRecord) (uuid.UUID, error) {
	rec.ID = ensureID(rec.ID)
	aux := rec.Aux
	if aux == nil {
		aux = map[string]interface{}{}
	}
	auxJSON, err := json.Marshal(aux)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to marshal match aux: %w", err)
	}

	q := `
		INSERT OR IGNORE INTO matches (id, game_name, started_at, finished_at,
			player1_name, player1_user_id, player2_name, player2_user_id, winner, aux)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = s.db.ExecContext(ctx, q,
		rec.ID.String(), rec.GameName, rec.StartedAt.UTC(), rec.FinishedAt.UTC(),
		rec.Player1.Name, nullableID(rec.Player1), rec.Player2.Name, nullableID(rec.Player2),
		rec.Winner, string(auxJSON),
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record match %s: %w", rec.ID, err)
	}
	return rec.ID, nil
}

func (s *SQLiteStore) RecordTournamentStart(ctx context.Context, ts models.TournamentStart) (uuid.UUID, error) {
	ts.ID = ensureID(ts.ID)
	q := `
		INSERT OR IGNORE INTO tournaments (id, game_type, participant_count, started_at)
		VALUES (?, ?, ?, ?)
	`
	if _, err := s.db.ExecContext(ctx, q, ts.ID.String(), ts.GameType, ts.ParticipantCount, ts.StartedAt.UTC()); err != nil {
		return uuid.Nil, fmt.Errorf("failed to record tournament start: %w", err)
	}
	return ts.ID, nil
}

func (s *SQLiteStore) RecordTournamentEnd(ctx context.Context, ref uuid.UUID, winnerName string) error {
	q := `UPDATE tournaments SET finished_at = ?, winner = ? WHERE id = ?`
	res, err := s.db.ExecContext(ctx, q, time.Now().UTC(), winnerName, ref.String())
	if err != nil {
		return fmt.Errorf("failed to record tournament end: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("tournament %s: %w", ref, ErrUnknownTournament)
	}
	return nil
}

func (s *SQLiteStore) LinkMatchToTournament(ctx context.Context, ref, matchID uuid.UUID) error {
	q := `INSERT OR IGNORE INTO tournament_matches (tournament_id, match_id) VALUES (?, ?)`
	if _, err := s.db.ExecContext(ctx, q, ref.String(), matchID.String()); err != nil {
		return fmt.Errorf("failed to link match %s to tournament %s: %w", matchID, ref, err)
	}
	return nil
}

// RecentMatches returns up to limit matches of gameName, newest first.
func (s *SQLiteStore) RecentMatches(ctx context.Context, gameName string, limit int) ([]models.MatchRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	q := `
		SELECT id, game_name, started_at, finished_at, player1_name, player1_user_id,
			player2_name, player2_user_id, winner, aux
		FROM matches
		WHERE game_name = ?
		ORDER BY finished_at DESC
		LIMIT ?
	`
	rows, err := s.db.QueryContext(ctx, q, gameName, limit)
	if err != nil {
		return nil, fmt.Errorf("cannot query matches: %w", err)
	}
	defer rows.Close()

	var out []models.MatchRecord
	for rows.Next() {
		var (
			rec     models.MatchRecord
			id      string
			p1, p2  sql.NullString
			auxJSON string
		)
		if err := rows.Scan(&id, &rec.GameName, &rec.StartedAt, &rec.FinishedAt,
			&rec.Player1.Name, &p1, &rec.Player2.Name, &p2, &rec.Winner, &auxJSON); err != nil {
			return nil, fmt.Errorf("cannot scan match: %w", err)
		}
		rec.ID, _ = uuid.Parse(id)
		rec.Player1 = playerFromRow(rec.Player1.Name, p1)
		rec.Player2 = playerFromRow(rec.Player2.Name, p2)
		if err := json.Unmarshal([]byte(auxJSON), &rec.Aux); err != nil {
			return nil, fmt.Errorf("cannot decode match aux: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// TournamentSummary is a recorded tournament with its linked matches.
type TournamentSummary struct {
	ID               uuid.UUID
	ParticipantCount int
	Winner           string
	Finished         bool
	MatchIDs         []uuid.UUID
}

// Tournament loads the tournament ref.
func (s *SQLiteStore) Tournament(ctx context.Context, ref uuid.UUID) (TournamentSummary, error) {
	out := TournamentSummary{ID: ref}
	var (
		winner   sql.NullString
		finished sql.NullTime
	)
	q := `SELECT participant_count, winner, finished_at FROM tournaments WHERE id = ?`
	err := s.db.QueryRowContext(ctx, q, ref.String()).Scan(&out.ParticipantCount, &winner, &finished)
	if err == sql.ErrNoRows {
		return out, fmt.Errorf("tournament %s: %w", ref, ErrUnknownTournament)
	}
	if err != nil {
		return out, fmt.Errorf("cannot load tournament: %w", err)
	}
	out.Winner = winner.String
	out.Finished = finished.Valid

	rows, err := s.db.QueryContext(ctx, `SELECT match_id FROM tournament_matches WHERE tournament_id = ? ORDER BY match_id`, ref.String())
	if err != nil {
		return out, fmt.Errorf("cannot load tournament matches: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return out, fmt.Errorf("cannot scan tournament match: %w", err)
		}
		if mid, err := uuid.Parse(id); err == nil {
			out.MatchIDs = append(out.MatchIDs, mid)
		}
	}
	return out, rows.Err()
}

func nullableID(p models.PlayerRecord) sql.NullString {
	if id := userIDOrNil(p); id != nil {
		return sql.NullString{String: id.String(), Valid: true}
	}
	return sql.NullString{}
}

func playerFromRow(name string, id sql.NullString) models.PlayerRecord {
	p := models.PlayerRecord{Name: name}
	if id.Valid {
		if uid, err := uuid.Parse(id.String); err == nil {
			p.UserID = uid
			p.IsRegistered = true
		}
	}
	return p
}
