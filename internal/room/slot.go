// internal/room/slot.go
package room

import (
	"github.com/jason-s-yu/arena/internal/game"
	"github.com/jason-s-yu/arena/internal/models"
)

// Conn is the transport end of a participant. Send must not block: implementations
// drop the event when the client cannot keep up and report false.
type Conn interface {
	ID() string
	Send(ev Event) bool
}

// NoSeat marks a slot that is in the room but not playing the current match.
const NoSeat = -1

// Slot is a participant's place in a room. The slot is removed when its connection
// leaves; the seat it held then reads neutral input.
type Slot struct {
	ID         int
	Conn       Conn
	Identity   models.Identity
	Seat       int
	Ready      bool
	Eliminated bool

	latch game.Latch
}

// View returns the public description of the slot.
func (s *Slot) View() PlayerView {
	return PlayerView{
		SlotID:       s.ID,
		Name:         s.Identity.DisplayName,
		Seat:         s.Seat,
		Ready:        s.Ready,
		Eliminated:   s.Eliminated,
		IsRegistered: s.Identity.IsRegistered,
	}
}
