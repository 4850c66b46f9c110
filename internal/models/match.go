// internal/models/match.go
package models

import (
	"time"

	"github.com/google/uuid"
)

// MatchRecord is a finished match as handed to the persistence layer. ID may be set by
// the caller; stores that receive uuid.Nil assign one.
type MatchRecord struct {
	ID         uuid.UUID              `json:"id"`
	GameName   string                 `json:"game_name"`
	StartedAt  time.Time              `json:"started_at"`
	FinishedAt time.Time              `json:"finished_at"`
	Player1    PlayerRecord           `json:"player1"`
	Player2    PlayerRecord           `json:"player2"`
	Winner     string                 `json:"winner"`
	Aux        map[string]interface{} `json:"aux,omitempty"`
}

// WinnerRecord returns the winning side's record, or false if Winner matches neither.
func (m MatchRecord) WinnerRecord() (PlayerRecord, bool) {
	switch m.Winner {
	case m.Player1.Name:
		return m.Player1, true
	case m.Player2.Name:
		return m.Player2, true
	}
	return PlayerRecord{}, false
}

// TournamentStart is the record written when a bracket begins.
type TournamentStart struct {
	ID               uuid.UUID `json:"id"`
	ParticipantCount int       `json:"participant_count"`
	GameType         string    `json:"game_type"`
	StartedAt        time.Time `json:"started_at"`
}
