// internal/room/errors.go
package room

// Error is an advisory rejection sent back to the client that caused it. It never
// implies that room state changed.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Code + ": " + e.Message }

// Advisory errors surfaced to clients. Compare with errors.Is.
var (
	ErrRoomNotFound     = &Error{Code: "room_not_found", Message: "room does not exist"}
	ErrRoomFull         = &Error{Code: "room_full", Message: "room is full"}
	ErrWrongPassword    = &Error{Code: "wrong_password", Message: "wrong room password"}
	ErrNotAuthorized    = &Error{Code: "not_authorized", Message: "only the room creator can do that"}
	ErrNotEnoughReady   = &Error{Code: "not_enough_ready_players", Message: "not enough ready players"}
	ErrRoomStarted      = &Error{Code: "room_started", Message: "room has already started or finished"}
	ErrNameTaken        = &Error{Code: "name_taken", Message: "a room with that name already exists"}
	ErrCapacity         = &Error{Code: "capacity_exceeded", Message: "server is at room capacity, try again later"}
	ErrInvalidKind      = &Error{Code: "invalid_kind", Message: "unknown room kind"}
	ErrNotParticipant   = &Error{Code: "not_participant", Message: "you are not in this room"}
	ErrAlreadyInRoom    = &Error{Code: "already_in_room", Message: "leave your current room first"}
	ErrInvalidMessage   = &Error{Code: "invalid_message", Message: "malformed message"}
	ErrPasswordRequired = &Error{Code: "password_required", Message: "a password needs a room name"}
)
