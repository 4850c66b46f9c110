// internal/models/player.go
package models

import "github.com/google/uuid"

// PlayerRecord is one side of a persisted match.
type PlayerRecord struct {
	Name         string    `json:"name"`
	IsRegistered bool      `json:"is_registered"`
	UserID       uuid.UUID `json:"user_id"`
}

// AIPlayer is the record used for a computer-controlled side.
var AIPlayer = PlayerRecord{Name: "AI"}

// Record converts an identity into the persisted form.
func (i Identity) Record() PlayerRecord {
	return PlayerRecord{
		Name:         i.DisplayName,
		IsRegistered: i.IsRegistered,
		UserID:       i.UserID,
	}
}
