// internal/room/events.go
package room

import "errors"

// EventType names a server-to-client message.
type EventType string

const (
	EventRole          EventType = "role"
	EventRoomState     EventType = "room_state"
	EventSnapshot      EventType = "snapshot"
	EventGameStart     EventType = "game_start"
	EventGameEnd       EventType = "game_end"
	EventMatchAnnounce EventType = "match_announce"
	EventMatchStart    EventType = "match_start"
	EventMatchEnd      EventType = "match_end"
	EventTournamentEnd EventType = "tournament_end"
	EventError         EventType = "error"
)

// Event is every message the server pushes to clients. Only the fields relevant to
// Type are set; the rest are omitted from the JSON.
type Event struct {
	Type   EventType `json:"type"`
	RoomID string    `json:"roomId,omitempty"`
	Kind   Kind      `json:"kind,omitempty"`

	// role
	SlotID    *int   `json:"slotId,omitempty"`
	Seat      *int   `json:"seat,omitempty"`
	Side      string `json:"side,omitempty"`
	Spectator bool   `json:"spectator,omitempty"`

	// room_state
	Status  Status       `json:"status,omitempty"`
	Name    string       `json:"name,omitempty"`
	Creator *int         `json:"creator,omitempty"`
	Players []PlayerView `json:"players,omitempty"`

	// snapshot
	Tick  int         `json:"tick,omitempty"`
	State interface{} `json:"state,omitempty"`

	// outcomes and tournament phases
	Player1   *PlayerView `json:"player1,omitempty"`
	Player2   *PlayerView `json:"player2,omitempty"`
	Winner    *PlayerView `json:"winner,omitempty"`
	Loser     *PlayerView `json:"loser,omitempty"`
	Score     interface{} `json:"score,omitempty"`
	Countdown int         `json:"countdown,omitempty"`
	Forfeit   bool        `json:"forfeit,omitempty"`

	// error
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// PlayerView is the public description of a slot.
type PlayerView struct {
	SlotID       int    `json:"slotId"`
	Name         string `json:"name"`
	Seat         int    `json:"seat"`
	Ready        bool   `json:"ready"`
	Eliminated   bool   `json:"eliminated,omitempty"`
	IsRegistered bool   `json:"isRegistered"`
}

// aiView stands in for the computer seat in outcomes.
var aiView = PlayerView{SlotID: -1, Name: "AI", Seat: 1, Ready: true}

// ErrorEvent converts err into an advisory error message. Errors that are not room
// errors are reported as invalid_message so no internals leak to clients.
func ErrorEvent(err error) Event {
	var re *Error
	if errors.As(err, &re) {
		return Event{Type: EventError, Code: re.Code, Message: re.Message}
	}
	return Event{Type: EventError, Code: ErrInvalidMessage.Code, Message: ErrInvalidMessage.Message}
}

// SideName maps a seat to the name clients use for it.
func SideName(seat int) string {
	switch seat {
	case 0:
		return "left"
	case 1:
		return "right"
	}
	return ""
}

// ParseSide is the inverse of SideName; unknown names map to -1.
func ParseSide(s string) int {
	switch s {
	case "left", "player1":
		return 0
	case "right", "player2":
		return 1
	}
	return -1
}

func intPtr(v int) *int { return &v }
