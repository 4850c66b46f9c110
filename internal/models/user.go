// internal/models/user.go
package models

import (
	"strings"

	"github.com/google/uuid"
)

// Identity is who sits behind a connection. It is resolved once, when the connection
// is accepted, and never re-read per tick.
type Identity struct {
	UserID       uuid.UUID `json:"userId"`
	DisplayName  string    `json:"displayName"`
	IsRegistered bool      `json:"isRegistered"`
}

// Guest returns an unregistered identity with the given alias.
func Guest(alias string) Identity {
	alias = strings.TrimSpace(alias)
	if alias == "" {
		alias = "Guest"
	}
	return Identity{DisplayName: alias}
}

// Key is a stable comparison key: the user id for registered users, the alias for guests.
func (i Identity) Key() string {
	if i.IsRegistered && i.UserID != uuid.Nil {
		return "user:" + i.UserID.String()
	}
	return "guest:" + i.DisplayName
}

// Rating is a player's Glicko-2 standing for one game, stored in the 1500 scale.
type Rating struct {
	UserID   uuid.UUID `json:"userId"`
	GameName string    `json:"gameName"`
	Elo      int       `json:"elo"`
	Phi      float64   `json:"phi"`
	Sigma    float64   `json:"sigma"`
	Games    int       `json:"games"`
}

// NewRating returns the starting rating for a player who has never played gameName.
func NewRating(userID uuid.UUID, gameName string) Rating {
	return Rating{UserID: userID, GameName: gameName, Elo: 1500, Phi: 350, Sigma: 0.06}
}
