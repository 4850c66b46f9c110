// internal/room/gate.go
package room

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/game"
)

// Normalize applies the basic sanity rules to raw client input: opposite directions
// held together cancel out.
func Normalize(in game.Input) game.Input {
	if in.Up && in.Down {
		in.Up, in.Down = false, false
	}
	if in.Left && in.Right {
		in.Left, in.Right = false, false
	}
	return in
}

// SubmitInput is the input gate. It overwrites the latest input of the slot connID
// plays in roomID and reports whether the input was accepted. Input is dropped
// silently when the room does not exist, the connection has no seat in it, or the
// room is not running. Ready toggles go through Room.SetReady instead.
func (g *Registry) SubmitInput(connID string, roomID uuid.UUID, side string, in game.Input) bool {
	r, ok := g.Get(roomID)
	if !ok {
		return false
	}
	return r.SubmitInput(connID, side, Normalize(in))
}

// SubmitInput writes in to the latch of the seat connID controls. When one connection
// drives both seats, side picks the seat and input without a side is dropped. Input
// is also dropped while the room is frozen for a tournament announcement.
func (r *Room) SubmitInput(connID, side string, in game.Input) bool {
	r.Mu.Lock()
	defer r.Mu.Unlock()

	if r.status != StatusInProgress || r.frozen || r.closed {
		return false
	}

	var target *Slot
	if r.Kind.SharedController() {
		seat := ParseSide(side)
		if seat == NoSeat {
			return false
		}
		for _, s := range r.slots {
			if s.Conn.ID() == connID && s.Seat == seat {
				target = s
				break
			}
		}
	} else {
		target = r.slotByConnUnsafe(connID)
	}

	if target == nil || target.Seat == NoSeat || target.Eliminated {
		return false
	}
	target.latch.Set(in)
	return true
}
