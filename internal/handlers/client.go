// internal/handlers/client.go
package handlers

import (
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/arena/internal/metrics"
	"github.com/jason-s-yu/arena/internal/models"
	"github.com/jason-s-yu/arena/internal/room"
	"golang.org/x/time/rate"
)

// outBuffer is how many events may queue for a slow client before new ones are dropped.
const outBuffer = 64

// Client is one websocket connection. It implements room.Conn.
type Client struct {
	id       string
	Identity models.Identity
	OutChan  chan room.Event
	limiter  *rate.Limiter
	cancel   func()

	mu   sync.Mutex
	room *room.Room
}

// NewClient returns a client whose input is limited to inputRate messages per second
// with the given burst. A non-positive rate disables the limit.
func NewClient(identity models.Identity, inputRate float64, burst int) *Client {
	lim := rate.NewLimiter(rate.Inf, 0)
	if inputRate > 0 {
		lim = rate.NewLimiter(rate.Limit(inputRate), burst)
	}
	return &Client{
		id:       uuid.NewString(),
		Identity: identity,
		OutChan:  make(chan room.Event, outBuffer),
		limiter:  lim,
		cancel:   func() {},
	}
}

// ID implements room.Conn.
func (c *Client) ID() string { return c.id }

// Send queues ev without blocking and reports whether it was queued.
func (c *Client) Send(ev room.Event) bool {
	select {
	case c.OutChan <- ev:
		return true
	default:
		metrics.WSMessagesDropped.WithLabelValues("slow_consumer").Inc()
		return false
	}
}

// Room returns the room the client is attached to, dropping it once destroyed.
func (c *Client) Room() *room.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.room != nil && c.room.Closed() {
		c.room = nil
	}
	return c.room
}

func (c *Client) setRoom(r *room.Room) {
	c.mu.Lock()
	c.room = r
	c.mu.Unlock()
}

// takeRoom detaches and returns the current room.
func (c *Client) takeRoom() *room.Room {
	c.mu.Lock()
	defer c.mu.Unlock()
	r := c.room
	c.room = nil
	return r
}

// allow spends one input token.
func (c *Client) allow() bool { return c.limiter.Allow() }
