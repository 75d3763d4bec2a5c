package testutil

import (
	"encoding/json"
	"fmt"
	"net"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

// WSClient is a WebSocket test client for end-to-end testing of the
// real-time endpoint.
type WSClient struct {
	conn *websocket.Conn
	t    *testing.T
}

// NewWSClient dials the given WebSocket URL and returns a test client.
//
// Precondition: url must be a valid ws:// URL with a listening server.
// Postcondition: Returns a connected WSClient or fails the test.
func NewWSClient(t *testing.T, url string) *WSClient {
	t.Helper()
	start := time.Now()

	dialer := websocket.Dialer{HandshakeTimeout: 5 * time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("connecting to %s: %v [%s]", url, err, time.Since(start))
	}

	t.Cleanup(func() {
		conn.Close()
	})

	t.Logf("websocket client connected to %s [%s]", url, time.Since(start))
	return &WSClient{conn: conn, t: t}
}

// Send writes an event frame of the given type and payload.
//
// Postcondition: The frame is written, or the test fails.
func (c *WSClient) Send(eventType string, payload any) {
	c.t.Helper()

	raw, err := json.Marshal(payload)
	if err != nil {
		c.t.Fatalf("marshaling %s payload: %v", eventType, err)
	}
	frame, err := json.Marshal(map[string]json.RawMessage{
		"type":    json.RawMessage(fmt.Sprintf("%q", eventType)),
		"payload": raw,
	})
	if err != nil {
		c.t.Fatalf("marshaling %s frame: %v", eventType, err)
	}

	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
		c.t.Fatalf("sending %s: %v", eventType, err)
	}
}

// SendRaw writes the bytes as a single text frame with no envelope
// handling, for exercising the server against malformed input.
func (c *WSClient) SendRaw(data []byte) {
	c.t.Helper()

	_ = c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
	if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		c.t.Fatalf("sending raw frame: %v", err)
	}
}

// ExpectClose asserts the server closes the connection without sending
// another frame first.
//
// Postcondition: The connection is closed, or the test fails with the
// unexpected frame.
func (c *WSClient) ExpectClose(timeout time.Duration) {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	_, data, err := c.conn.ReadMessage()
	if err == nil {
		c.t.Fatalf("expected connection close, got frame %s", data)
	}
	if e, ok := err.(net.Error); ok && e.Timeout() {
		c.t.Fatalf("connection still open after %s", timeout)
	}
}

// ReadEvent reads the next frame and asserts its type, returning the
// raw payload.
//
// Postcondition: Returns the payload of a frame with the expected
// type, or fails on timeout or type mismatch.
func (c *WSClient) ReadEvent(expectedType string, timeout time.Duration) json.RawMessage {
	c.t.Helper()
	_ = c.conn.SetReadDeadline(time.Now().Add(timeout))

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		c.t.Fatalf("reading event %q: %v", expectedType, err)
	}

	var env struct {
		Type    string          `json:"type"`
		Payload json.RawMessage `json:"payload"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		c.t.Fatalf("decoding frame %q: %v", data, err)
	}
	if env.Type != expectedType {
		c.t.Fatalf("expected event %q, got %q (%s)", expectedType, env.Type, data)
	}
	return env.Payload
}

// Close closes the underlying connection.
func (c *WSClient) Close() {
	c.conn.Close()
}
