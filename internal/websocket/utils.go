package websocket

import (
	"time"

	"github.com/gorilla/websocket"
)

const (
	// writeWait bounds a single frame write. Tick frames are small and
	// frequent (down to 100ms for the sub-second countdowns), so a stalled
	// peer is cut off quickly rather than backing up the pump.
	writeWait = 5 * time.Second

	// readWait outlives the longest exercise budget with margin, so a
	// client that only listens to ticks during a Writing session is not
	// disconnected mid-essay.
	readWait = 10 * time.Minute
)

// WriteTyped sends a strongly-typed response payload over the WebSocket.
func WriteTyped(conn *websocket.Conn, v interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}

// WriteError sends a typed ErrorResponse over the WebSocket.
func WriteError(conn *websocket.Conn, errMsg string) error {
	return WriteTyped(conn, ErrorResponse{
		Event: EventError,
		Error: errMsg,
	})
}

// ReadJSON reads and decodes a message into the provided structure.
// It sets a read deadline.
func ReadJSON(conn *websocket.Conn, v interface{}) error {
	conn.SetReadDeadline(time.Now().Add(readWait))
	return conn.ReadJSON(v)
}
