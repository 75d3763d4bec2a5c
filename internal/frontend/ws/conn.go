// Package ws provides the WebSocket transport: connection wrappers and
// the acceptor that dispatches each connection to a session handler.
package ws

import (
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/metagrid-dev/metagrid/internal/config"
)

// Conn wraps a WebSocket connection with deadline and keepalive
// handling. Reads happen on the connection's session goroutine; writes
// happen only on the write pump goroutine, which is the sole writer.
type Conn struct {
	ws  *websocket.Conn
	cfg config.WSConfig
}

// NewConn wraps an upgraded WebSocket connection.
//
// Precondition: ws must be a live, upgraded connection.
// Postcondition: Returns a Conn with read limits and pong handling installed.
func NewConn(ws *websocket.Conn, cfg config.WSConfig) *Conn {
	ws.SetReadLimit(cfg.MaxMessageSize)
	_ = ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(cfg.PongWait))
	})
	return &Conn{ws: ws, cfg: cfg}
}

// RemoteAddr returns the peer address for logging.
func (c *Conn) RemoteAddr() string {
	return c.ws.RemoteAddr().String()
}

// ReadMessage blocks for the next inbound frame.
//
// Postcondition: Returns the raw frame bytes, or an error when the
// connection is closed, errors, or exceeds the pong deadline.
func (c *Conn) ReadMessage() ([]byte, error) {
	_, data, err := c.ws.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("reading frame: %w", err)
	}
	return data, nil
}

// WritePump drains events onto the wire until the channel closes, and
// keeps the connection alive with periodic pings. It must be the only
// goroutine writing to the connection. When events closes (the session
// was torn down) it sends a close frame and returns.
func (c *Conn) WritePump(events <-chan []byte) {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case data, ok := <-events:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if !ok {
				_ = c.ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// Close closes the underlying connection. The read loop unblocks with
// an error; safe to call alongside WritePump.
func (c *Conn) Close() error {
	return c.ws.Close()
}
