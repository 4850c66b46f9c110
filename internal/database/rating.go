// internal/database/rating.go
package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/jason-s-yu/arena/internal/rating"
)

// rated reports whether rec changes ratings: a decisive match between two distinct
// registered players.
func rated(rec models.MatchRecord) (winner, loser models.PlayerRecord, ok bool) {
	if userIDOrNil(rec.Player1) == nil || userIDOrNil(rec.Player2) == nil {
		return winner, loser, false
	}
	if rec.Player1.UserID == rec.Player2.UserID {
		return winner, loser, false
	}
	switch rec.Winner {
	case rec.Player1.Name:
		return rec.Player1, rec.Player2, true
	case rec.Player2.Name:
		return rec.Player2, rec.Player1, true
	}
	return winner, loser, false
}

// applyRatingsTx updates both players' Glicko-2 ratings for rec and logs the change.
func applyRatingsTx(ctx context.Context, tx pgx.Tx, rec models.MatchRecord) error {
	w, l, ok := rated(rec)
	if !ok {
		return nil
	}

	oldW, err := loadRatingTx(ctx, tx, w.UserID, rec.GameName)
	if err != nil {
		return err
	}
	oldL, err := loadRatingTx(ctx, tx, l.UserID, rec.GameName)
	if err != nil {
		return err
	}
	newW, newL := rating.Update1v1(oldW, oldL)

	for _, pair := range [][2]models.Rating{{oldW, newW}, {oldL, newL}} {
		if err := saveRatingTx(ctx, tx, pair[1]); err != nil {
			return err
		}
		q := `
			INSERT INTO rating_history (user_id, match_id, game_name, old_rating, new_rating)
			VALUES ($1, $2, $3, $4, $5)
		`
		if _, err := tx.Exec(ctx, q, pair[1].UserID, rec.ID, rec.GameName, pair[0].Elo, pair[1].Elo); err != nil {
			return fmt.Errorf("failed to insert rating history: %w", err)
		}
	}
	return nil
}

func loadRatingTx(ctx context.Context, tx pgx.Tx, userID uuid.UUID, gameName string) (models.Rating, error) {
	r := models.Rating{UserID: userID, GameName: gameName}
	q := `
		SELECT elo, phi, sigma, games FROM ratings
		WHERE user_id = $1 AND game_name = $2
		FOR UPDATE
	`
	err := tx.QueryRow(ctx, q, userID, gameName).Scan(&r.Elo, &r.Phi, &r.Sigma, &r.Games)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewRating(userID, gameName), nil
	}
	if err != nil {
		return r, fmt.Errorf("failed to load rating for %s: %w", userID, err)
	}
	return r, nil
}

func saveRatingTx(ctx context.Context, tx pgx.Tx, r models.Rating) error {
	q := `
		INSERT INTO ratings (user_id, game_name, elo, phi, sigma, games, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
		ON CONFLICT (user_id, game_name)
		DO UPDATE SET elo = $3, phi = $4, sigma = $5, games = $6, updated_at = NOW()
	`
	if _, err := tx.Exec(ctx, q, r.UserID, r.GameName, r.Elo, r.Phi, r.Sigma, r.Games); err != nil {
		return fmt.Errorf("failed to save rating for %s: %w", r.UserID, err)
	}
	return nil
}

// Rating returns the stored rating of userID for gameName, or the starting rating.
func (s *PostgresStore) Rating(ctx context.Context, userID uuid.UUID, gameName string) (models.Rating, error) {
	r := models.Rating{UserID: userID, GameName: gameName}
	q := `SELECT elo, phi, sigma, games FROM ratings WHERE user_id = $1 AND game_name = $2`
	err := s.pool.QueryRow(ctx, q, userID, gameName).Scan(&r.Elo, &r.Phi, &r.Sigma, &r.Games)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.NewRating(userID, gameName), nil
	}
	if err != nil {
		return r, fmt.Errorf("failed to load rating for %s: %w", userID, err)
	}
	return r, nil
}
