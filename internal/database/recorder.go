// internal/database/recorder.go
package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrUnknownTournament is returned when a ref names no recorded tournament.
var ErrUnknownTournament = errors.New("unknown tournament")

// Recorder persists finished matches and tournaments. Implementations are called from
// background goroutines, never from the game loop.
type Recorder interface {
	// RecordMatch stores rec and returns its id. rec.ID is used when set.
	RecordMatch(ctx context.Context, rec models.MatchRecord) (uuid.UUID, error)
	// RecordTournamentStart stores ts and returns its external ref. ts.ID is used when set.
	RecordTournamentStart(ctx context.Context, ts models.TournamentStart) (uuid.UUID, error)
	RecordTournamentEnd(ctx context.Context, ref uuid.UUID, winnerName string) error
	LinkMatchToTournament(ctx context.Context, ref, matchID uuid.UUID) error
}

// LogRecorder is the "none" backend: it only logs what would have been stored.
type LogRecorder struct {
	Logger *logrus.Entry
}

func (l LogRecorder) entry() *logrus.Entry {
	if l.Logger != nil {
		return l.Logger
	}
	return logrus.NewEntry(logrus.StandardLogger())
}

func (l LogRecorder) RecordMatch(_ context.Context, rec models.MatchRecord) (uuid.UUID, error) {
	id := ensureID(rec.ID)
	l.entry().WithFields(logrus.Fields{
		"match":   id,
		"game":    rec.GameName,
		"player1": rec.Player1.Name,
		"player2": rec.Player2.Name,
		"winner":  rec.Winner,
	}).Info("match finished (not persisted)")
	return id, nil
}

func (l LogRecorder) RecordTournamentStart(_ context.Context, ts models.TournamentStart) (uuid.UUID, error) {
	id := ensureID(ts.ID)
	l.entry().WithFields(logrus.Fields{
		"tournament": id,
		"players":    ts.ParticipantCount,
	}).Info("tournament started (not persisted)")
	return id, nil
}

func (l LogRecorder) RecordTournamentEnd(_ context.Context, ref uuid.UUID, winnerName string) error {
	l.entry().WithFields(logrus.Fields{"tournament": ref, "winner": winnerName}).Info("tournament finished (not persisted)")
	return nil
}

func (l LogRecorder) LinkMatchToTournament(context.Context, uuid.UUID, uuid.UUID) error {
	return nil
}

func ensureID(id uuid.UUID) uuid.UUID {
	if id != uuid.Nil {
		return id
	}
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New()
	}
	return id
}
