// internal/handlers/ws_codes.go
package handlers

// Custom websocket close codes.
const (
	BadSubprotocolError   = 3000 // client did not request the arena subprotocol
	UnsupportedFrameError = 3001 // client sent a binary frame
)
