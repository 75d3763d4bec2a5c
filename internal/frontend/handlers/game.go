// Package handlers provides the HTTP API handlers and the WebSocket
// session handler for the metagrid frontend.
package handlers

import (
	"context"

	"go.uber.org/zap"

	"github.com/metagrid-dev/metagrid/internal/frontend/ws"
	"github.com/metagrid-dev/metagrid/internal/game/events"
	"github.com/metagrid-dev/metagrid/internal/game/room"
	"github.com/metagrid-dev/metagrid/internal/game/session"
	"github.com/metagrid-dev/metagrid/internal/game/space"
)

// GameHandler implements ws.SessionHandler. It owns the per-connection
// message loop: decode inbound frames, dispatch join/move to the room
// coordinator, and guarantee room cleanup on every exit path.
type GameHandler struct {
	coordinator *room.Coordinator
	sendBuffer  int
	logger      *zap.Logger
}

// NewGameHandler creates a GameHandler.
//
// Precondition: coordinator and logger must be non-nil; sendBuffer must be positive.
func NewGameHandler(coordinator *room.Coordinator, sendBuffer int, logger *zap.Logger) *GameHandler {
	return &GameHandler{
		coordinator: coordinator,
		sendBuffer:  sendBuffer,
		logger:      logger,
	}
}

// HandleSession runs one connection's lifecycle: a fresh session starts
// in the connected state, the write pump drains its outbox, and inbound
// frames drive the coordinator until the connection ends.
//
// Malformed frames and frames that are invalid for the session's state
// are ignored; only auth/space failures during join end the session
// with an error, and no error payload is ever written.
//
// Postcondition: The session is removed from its room and closed.
func (h *GameHandler) HandleSession(ctx context.Context, conn *ws.Conn) error {
	sess := session.New(h.sendBuffer)

	go conn.WritePump(sess.Outbox().Events())

	// Leave runs on every exit path: clean close, read error, or a
	// fatal join failure. It broadcasts user-left and closes the
	// outbox, which in turn stops the write pump.
	defer h.coordinator.Leave(sess)

	for {
		data, err := conn.ReadMessage()
		if err != nil {
			// Connection closed or errored; normal teardown.
			return nil
		}

		env, err := events.Decode(data)
		if err != nil {
			h.logger.Debug("ignoring malformed frame",
				zap.String("session_id", sess.ID),
				zap.Error(err),
			)
			continue
		}

		switch env.Type {
		case events.TypeJoin:
			payload, err := events.DecodeJoin(env)
			if err != nil {
				continue
			}
			if err := h.coordinator.Join(ctx, sess, payload.SpaceID, payload.Token); err != nil {
				// AuthError / NotFoundError: close without a response.
				return err
			}

		case events.TypeMove:
			payload, err := events.DecodeMove(env)
			if err != nil {
				continue
			}
			h.coordinator.Move(sess, space.Position{X: payload.X, Y: payload.Y})

		default:
			// Unknown types are tolerated for client/version skew.
		}
	}
}
