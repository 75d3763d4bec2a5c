// Package session provides per-connection session state for the
// real-time layer: identity binding, current position, and the
// outbound event queue.
package session

import (
	"sync"

	"github.com/google/uuid"

	"github.com/metagrid-dev/metagrid/internal/game/space"
)

// State is the lifecycle state of a session.
type State int

const (
	// StateConnected is the initial state: connection open, no room.
	StateConnected State = iota
	// StateJoining means the auth/space lookups are in flight.
	StateJoining
	// StateInRoom means the join succeeded; only this state accepts moves.
	StateInRoom
	// StateClosed is terminal.
	StateClosed
)

// String returns the state name for logging.
func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateJoining:
		return "joining"
	case StateInRoom:
		return "in_room"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Session tracks one live connection. It is created on connection
// establishment and destroyed on disconnect. The room coordinator is
// the only writer of identity, position, and state; the connection's
// write pump reads events from the Outbox.
type Session struct {
	// ID is the unique per-connection session identifier.
	ID string

	outbox *Outbox

	mu      sync.Mutex
	state   State
	userID  string
	spaceID string
	pos     space.Position
}

// New creates a Session in StateConnected with an outbound queue of
// the given capacity.
//
// Precondition: sendBuffer must be positive.
// Postcondition: Returns a Session with a fresh unique ID.
func New(sendBuffer int) *Session {
	return &Session{
		ID:     uuid.NewString(),
		outbox: NewOutbox(sendBuffer),
	}
}

// Outbox returns the session's outbound event queue.
func (s *Session) Outbox() *Outbox {
	return s.outbox
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// SetState transitions the session to the given state.
func (s *Session) SetState(st State) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = st
}

// UserID returns the bound user id. Empty until a join succeeds.
func (s *Session) UserID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userID
}

// SpaceID returns the joined space id. Empty until a join succeeds.
func (s *Session) SpaceID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.spaceID
}

// Position returns the session's committed position.
func (s *Session) Position() space.Position {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos
}

// Bind records the resolved identity, space, and spawn cell, and moves
// the session to StateInRoom. Called once, by the coordinator, when a
// join succeeds.
//
// Precondition: userID and spaceID must be non-empty.
func (s *Session) Bind(userID, spaceID string, spawn space.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.spaceID = spaceID
	s.pos = spawn
	s.state = StateInRoom
}

// SetPosition commits a new position. Only the coordinator calls this,
// under the room lock, after validation accepts the move.
func (s *Session) SetPosition(p space.Position) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pos = p
}

// Send enqueues an event for delivery to this session's connection.
// It never blocks; a full or closed outbox drops the event and reports
// the drop so a broadcast to a slow peer cannot stall the room.
func (s *Session) Send(event []byte) error {
	return s.outbox.Push(event)
}

// Close marks the session terminal and closes its outbox.
// Safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	s.state = StateClosed
	s.mu.Unlock()
	_ = s.outbox.Close()
}
