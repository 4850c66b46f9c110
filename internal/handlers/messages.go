// internal/handlers/messages.go
package handlers

import (
	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/game"
	"github.com/jason-s-yu/arena/internal/room"
	"github.com/sirupsen/logrus"
)

// Client message types.
const (
	MsgCreate = "create"
	MsgJoin   = "join"
	MsgReady  = "ready"
	MsgStart  = "start"
	MsgInput  = "input"
	MsgLeave  = "leave"
)

// ClientMessage is every message a client may send; Type selects which fields matter.
type ClientMessage struct {
	Type string `json:"type"`

	// create, join
	Kind     string `json:"kind,omitempty"`
	Name     string `json:"name,omitempty"`
	Password string `json:"password,omitempty"`
	RoomID   string `json:"roomId,omitempty"`
	Spectate bool   `json:"spectate,omitempty"`

	// ready; a missing value means ready
	Ready *bool `json:"ready,omitempty"`

	// input
	game.Input
	Side string `json:"side,omitempty"`
}

// HandleMessage applies msg on behalf of c. The returned error is advisory: it goes
// back to the client and nothing changed.
func (gs *GameServer) HandleMessage(c *Client, msg ClientMessage) error {
	switch msg.Type {
	case MsgCreate:
		return gs.handleCreate(c, msg)
	case MsgJoin:
		return gs.handleJoin(c, msg)
	case MsgReady:
		r := c.Room()
		if r == nil {
			return room.ErrNotParticipant
		}
		ready := true
		if msg.Ready != nil {
			ready = *msg.Ready
		}
		return r.SetReady(c.ID(), ready)
	case MsgStart:
		r := c.Room()
		if r == nil {
			return room.ErrNotParticipant
		}
		return gs.StartRoom(r, c.ID())
	case MsgInput:
		// input outside a running room is dropped without a reply
		if r := c.Room(); r != nil {
			gs.SubmitInput(c.ID(), r.ID, msg.Side, msg.Input)
		}
		return nil
	case MsgLeave:
		r := c.takeRoom()
		if r == nil {
			return room.ErrNotParticipant
		}
		gs.LeaveRoom(r, c.ID())
		return nil
	}
	return room.ErrInvalidMessage
}

func (gs *GameServer) handleCreate(c *Client, msg ClientMessage) error {
	if c.Room() != nil {
		return room.ErrAlreadyInRoom
	}
	kind, err := room.ParseKind(msg.Kind)
	if err != nil {
		return err
	}
	r, err := gs.CreateRoom(kind, c.Identity, room.CreateOptions{Name: msg.Name, Password: msg.Password})
	if err != nil {
		return err
	}
	if err := r.Join(c, c.Identity, msg.Password); err != nil {
		gs.Registry.Destroy(r.ID)
		return err
	}
	c.setRoom(r)
	gs.logger.WithFields(logrus.Fields{
		"room": r.ID,
		"kind": kind,
		"conn": c.ID(),
	}).Info("room created")
	return nil
}

func (gs *GameServer) handleJoin(c *Client, msg ClientMessage) error {
	if c.Room() != nil {
		return room.ErrAlreadyInRoom
	}

	var (
		r  *room.Room
		ok bool
	)
	switch {
	case msg.RoomID != "":
		id, err := uuid.Parse(msg.RoomID)
		if err != nil {
			return room.ErrRoomNotFound
		}
		r, ok = gs.Registry.Get(id)
	case msg.Name != "":
		r, ok = gs.Registry.GetByName(msg.Name)
	default:
		return room.ErrInvalidMessage
	}
	if !ok {
		return room.ErrRoomNotFound
	}

	var err error
	if msg.Spectate {
		err = r.Spectate(c, msg.Password)
	} else {
		err = r.Join(c, c.Identity, msg.Password)
	}
	if err != nil {
		return err
	}
	c.setRoom(r)
	return nil
}

// Disconnect releases everything c held.
func (gs *GameServer) Disconnect(c *Client) {
	if r := c.takeRoom(); r != nil {
		gs.LeaveRoom(r, c.ID())
	}
}
