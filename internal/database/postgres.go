// internal/database/postgres.go
package database

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jason-s-yu/arena/internal/models"
)

// PostgresStore is the Recorder backed by postgres. Matches between two registered
// players also update both players' ratings in the same transaction.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore wraps an open pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, postgresSchema); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// RecordMatch inserts the match row and applies rating changes.
func (s *PostgresStore) RecordMatch(ctx context.Context, rec models.MatchRecord) (uuid.UUID, error) {
	rec.ID = ensureID(rec.ID)
	aux := rec.Aux
	if aux == nil {
		aux = map[string]interface{}{}
	}

	err := pgx.BeginTxFunc(ctx, s.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		q := `
			INSERT INTO matches (id, game_name, started_at, finished_at,
				player1_name, player1_user_id, player2_name, player2_user_id, winner, aux)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
			ON CONFLICT (id) DO NOTHING
		`
		tag, err := tx.Exec(ctx, q,
			rec.ID, rec.GameName, rec.StartedAt, rec.FinishedAt,
			rec.Player1.Name, userIDOrNil(rec.Player1), rec.Player2.Name, userIDOrNil(rec.Player2),
			rec.Winner, aux,
		)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			// replayed job; ratings were applied the first time
			return nil
		}
		return applyRatingsTx(ctx, tx, rec)
	})
	if err != nil {
		return uuid.Nil, fmt.Errorf("failed to record match %s: %w", rec.ID, err)
	}
	return rec.ID, nil
}

// RecordTournamentStart inserts the tournament row.
func (s *PostgresStore) RecordTournamentStart(ctx context.Context, ts models.TournamentStart) (uuid.UUID, error) {
	ts.ID = ensureID(ts.ID)
	q := `
		INSERT INTO tournaments (id, game_type, participant_count, started_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, q, ts.ID, ts.GameType, ts.ParticipantCount, ts.StartedAt); err != nil {
		return uuid.Nil, fmt.Errorf("failed to record tournament start: %w", err)
	}
	return ts.ID, nil
}

// RecordTournamentEnd stamps the winner and finish time.
func (s *PostgresStore) RecordTournamentEnd(ctx context.Context, ref uuid.UUID, winnerName string) error {
	q := `UPDATE tournaments SET finished_at = NOW(), winner = $2 WHERE id = $1`
	tag, err := s.pool.Exec(ctx, q, ref, winnerName)
	if err != nil {
		return fmt.Errorf("failed to record tournament end: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("tournament %s: %w", ref, ErrUnknownTournament)
	}
	return nil
}

// LinkMatchToTournament records that matchID was played in tournament ref.
func (s *PostgresStore) LinkMatchToTournament(ctx context.Context, ref, matchID uuid.UUID) error {
	q := `
		INSERT INTO tournament_matches (tournament_id, match_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	if _, err := s.pool.Exec(ctx, q, ref, matchID); err != nil {
		return fmt.Errorf("failed to link match %s to tournament %s: %w", matchID, ref, err)
	}
	return nil
}

// Close releases the pool.
func (s *PostgresStore) Close() {
	s.pool.Close()
}

func userIDOrNil(p models.PlayerRecord) *uuid.UUID {
	if !p.IsRegistered || p.UserID == uuid.Nil {
		return nil
	}
	id := p.UserID
	return &id
}
