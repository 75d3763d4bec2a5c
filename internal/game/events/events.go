// Package events defines the WebSocket wire protocol: a {type, payload}
// envelope with one event per message, matching the client protocol.
package events

import (
	"encoding/json"
	"fmt"

	"github.com/metagrid-dev/metagrid/internal/game/space"
)

// Inbound message types.
const (
	TypeJoin = "join"
	TypeMove = "move"
)

// Outbound event types.
const (
	TypeSpaceJoined      = "space-joined"
	TypeUserJoined       = "user-joined"
	TypeMovement         = "movement"
	TypeMovementRejected = "movement-rejected"
	TypeUserLeft         = "user-left"
)

// Envelope is the bidirectional message frame.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Decode parses a raw inbound frame. Unknown types are returned as-is;
// the caller decides whether to ignore them.
//
// Postcondition: Returns the envelope, or an error if the frame is not
// valid JSON in the envelope shape.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decoding envelope: %w", err)
	}
	return env, nil
}

// JoinPayload is the payload of an inbound "join".
type JoinPayload struct {
	SpaceID string `json:"spaceId"`
	Token   string `json:"token"`
}

// MovePayload is the payload of an inbound "move".
type MovePayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// DecodeJoin extracts a JoinPayload from an envelope.
//
// Precondition: env.Type must be TypeJoin.
// Postcondition: Returns the payload, or an error if required fields
// are missing or malformed.
func DecodeJoin(env Envelope) (JoinPayload, error) {
	var p JoinPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return JoinPayload{}, fmt.Errorf("decoding join payload: %w", err)
	}
	if p.SpaceID == "" || p.Token == "" {
		return JoinPayload{}, fmt.Errorf("join payload missing spaceId or token")
	}
	return p, nil
}

// DecodeMove extracts a MovePayload from an envelope.
//
// Precondition: env.Type must be TypeMove.
// Postcondition: Returns the payload, or an error if the payload is malformed.
func DecodeMove(env Envelope) (MovePayload, error) {
	var p MovePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		return MovePayload{}, fmt.Errorf("decoding move payload: %w", err)
	}
	return p, nil
}

// Occupant is a (userId, position) entry in a space-joined snapshot.
type Occupant struct {
	UserID string `json:"userId"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
}

// spawnPayload is the {x, y} spawn cell inside a space-joined event.
type spawnPayload struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// outbound is the marshalling shape for server events.
type outbound struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

func encode(typ string, payload any) []byte {
	// Payload shapes are fixed structs; marshalling cannot fail.
	b, _ := json.Marshal(outbound{Type: typ, Payload: payload})
	return b
}

// SpaceJoined builds the join acknowledgement sent to the joiner only:
// the pre-join occupant snapshot plus the joiner's spawn cell.
func SpaceJoined(occupants []Occupant, spawn space.Position) []byte {
	if occupants == nil {
		occupants = []Occupant{}
	}
	return encode(TypeSpaceJoined, struct {
		Users []Occupant   `json:"users"`
		Spawn spawnPayload `json:"spawn"`
	}{Users: occupants, Spawn: spawnPayload{X: spawn.X, Y: spawn.Y}})
}

// UserJoined builds the event broadcast to existing members when a new
// occupant spawns.
func UserJoined(userID string, pos space.Position) []byte {
	return encode(TypeUserJoined, Occupant{UserID: userID, X: pos.X, Y: pos.Y})
}

// Movement builds the event broadcast to peers after an accepted move.
func Movement(userID string, pos space.Position) []byte {
	return encode(TypeMovement, Occupant{UserID: userID, X: pos.X, Y: pos.Y})
}

// MovementRejected builds the event sent to the mover only, carrying
// the unchanged position.
func MovementRejected(pos space.Position) []byte {
	return encode(TypeMovementRejected, spawnPayload{X: pos.X, Y: pos.Y})
}

// UserLeft builds the event broadcast to remaining members on departure.
func UserLeft(userID string) []byte {
	return encode(TypeUserLeft, struct {
		UserID string `json:"userId"`
	}{UserID: userID})
}
