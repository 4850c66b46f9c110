// internal/handlers/ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/jason-s-yu/arena/internal/metrics"
	"github.com/jason-s-yu/arena/internal/middleware"
	"github.com/jason-s-yu/arena/internal/room"
	"github.com/sirupsen/logrus"
)

// Subprotocol is the websocket subprotocol clients must request.
const Subprotocol = "arena"

const (
	pingInterval = 30 * time.Second
	pingTimeout  = 15 * time.Second
	writeTimeout = 5 * time.Second
	readLimit    = 4096
)

// WSHandler upgrades /ws requests and runs one client until it disconnects. conns may
// be nil to allow any number of connections per IP.
func WSHandler(gs *GameServer, conns *middleware.ConnLimiter) http.HandlerFunc {
	origins := gs.opts.Config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ip := middleware.ClientIP(r)
		if conns != nil {
			if !conns.Acquire(ip) {
				http.Error(w, "too many connections", http.StatusTooManyRequests)
				return
			}
			defer conns.Release(ip)
		}

		identity := resolveIdentity(r, gs.logger)

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{Subprotocol},
			OriginPatterns: origins,
		})
		if err != nil {
			metrics.ConnectionRejected.WithLabelValues("upgrade").Inc()
			gs.logger.WithError(err).WithField("remote", ip).Warn("websocket accept failed")
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != Subprotocol {
			c.Close(BadSubprotocolError, "client must speak the arena subprotocol")
			return
		}
		c.SetReadLimit(readLimit)

		client := NewClient(identity, gs.opts.Config.InputRate, gs.opts.Config.InputBurst)
		ctx, cancel := context.WithCancel(r.Context())
		defer cancel()
		client.cancel = cancel
		gs.clients.Store(client.ID(), client)
		defer gs.clients.Delete(client.ID())

		metrics.WSConnectionsActive.Inc()
		defer metrics.WSConnectionsActive.Dec()
		middleware.LogWebSocketConnect(gs.logger, ip, r.URL.Path, client.ID())

		logger := gs.logger.WithFields(logrus.Fields{"conn": client.ID(), "player": identity.DisplayName})
		go writePump(ctx, c, client, logger)
		err = readPump(ctx, c, gs, client, logger)

		cancel()
		gs.Disconnect(client)
		middleware.LogWebSocketDisconnect(gs.logger, ip, r.URL.Path, client.ID(), err)

		if errors.Is(err, errUnsupportedFrame) {
			c.Close(UnsupportedFrameError, "only text frames are accepted")
			return
		}
		c.Close(websocket.StatusNormalClosure, "")
	}
}

var errUnsupportedFrame = errors.New("binary frame received")

// readPump decodes client messages until the connection fails. It returns nil on a
// normal close or cancellation.
func readPump(ctx context.Context, c *websocket.Conn, gs *GameServer, client *Client, logger *logrus.Entry) error {
	for {
		typ, data, err := c.Read(ctx)
		if err != nil {
			switch websocket.CloseStatus(err) {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return nil
			}
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		if typ != websocket.MessageText {
			return errUnsupportedFrame
		}
		gs.dispatch(client, data, logger)
	}
}

// dispatch decodes and handles one text message. Only input is rate limited; it
// reports false when the message was dropped by the limiter.
func (gs *GameServer) dispatch(client *Client, data []byte, logger *logrus.Entry) bool {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		metrics.WSMessagesDropped.WithLabelValues("invalid").Inc()
		logger.WithError(err).Debug("invalid json from client")
		client.Send(room.ErrorEvent(room.ErrInvalidMessage))
		return true
	}
	if msg.Type == MsgInput && !client.allow() {
		metrics.WSMessagesDropped.WithLabelValues("rate_limit").Inc()
		return false
	}
	if err := gs.HandleMessage(client, msg); err != nil {
		logger.WithError(err).WithField("type", msg.Type).Debug("message rejected")
		client.Send(room.ErrorEvent(err))
	}
	return true
}

// writePump forwards queued events to the socket and keeps it alive with pings.
func writePump(ctx context.Context, c *websocket.Conn, client *Client, logger *logrus.Entry) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-client.OutChan:
			data, err := json.Marshal(ev)
			if err != nil {
				logger.WithError(err).WithField("type", ev.Type).Error("failed to marshal event")
				continue
			}
			writeCtx, cancel := context.WithTimeout(ctx, writeTimeout)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					logger.WithError(err).Debug("websocket write failed")
				}
				client.cancel()
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				if ctx.Err() == nil {
					logger.WithError(err).Debug("websocket ping failed")
				}
				client.cancel()
				return
			}
		}
	}
}

// CloseConnections cancels every open websocket; their handlers then leave their rooms
// and close the sockets.
func (gs *GameServer) CloseConnections() int {
	n := 0
	gs.clients.Range(func(_, v any) bool {
		v.(*Client).cancel()
		n++
		return true
	})
	return n
}
