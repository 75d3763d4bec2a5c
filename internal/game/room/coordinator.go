package room

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/metagrid-dev/metagrid/internal/auth"
	"github.com/metagrid-dev/metagrid/internal/game/events"
	"github.com/metagrid-dev/metagrid/internal/game/movement"
	"github.com/metagrid-dev/metagrid/internal/game/session"
	"github.com/metagrid-dev/metagrid/internal/game/space"
)

// ErrSpaceFull is returned when a join finds no free cell to spawn on.
var ErrSpaceFull = errors.New("space has no free cell")

// Coordinator drives the per-session state machine (connected →
// joining → in-room → closed) and applies joins, moves, and leaves
// against the room registry. Membership and position mutation happens
// only here, under per-room serialization.
type Coordinator struct {
	verifier auth.TokenVerifier
	spaces   space.Provider
	registry *Registry
	logger   *zap.Logger
}

// NewCoordinator creates a Coordinator.
//
// Precondition: verifier, spaces, registry, and logger must be non-nil.
func NewCoordinator(verifier auth.TokenVerifier, spaces space.Provider, registry *Registry, logger *zap.Logger) *Coordinator {
	return &Coordinator{
		verifier: verifier,
		spaces:   spaces,
		registry: registry,
		logger:   logger,
	}
}

// Join resolves the token, loads the space, assigns a spawn cell, and
// registers the session in the space's room. On success the joiner
// receives a space-joined snapshot of the pre-join occupants and every
// previously-present member receives one user-joined event.
//
// A join from any state other than connected is ignored.
//
// Postcondition: Returns nil on success or an ignored join. Returns an
// error wrapping auth.ErrInvalidToken, space.ErrSpaceNotFound, or
// ErrSpaceFull when the join fails; the caller must close the
// connection, no error payload is sent.
func (c *Coordinator) Join(ctx context.Context, sess *session.Session, spaceID, token string) error {
	if sess.State() != session.StateConnected {
		return nil
	}
	sess.SetState(session.StateJoining)

	identity, err := c.verifier.Verify(token)
	if err != nil {
		sess.SetState(session.StateClosed)
		return fmt.Errorf("resolving token: %w", err)
	}

	sp, err := c.spaces.GetSpace(ctx, spaceID)
	if err != nil {
		sess.SetState(session.StateClosed)
		return fmt.Errorf("loading space %q: %w", spaceID, err)
	}

	// Only the room's own lock is held from here on; joins into other
	// spaces proceed in parallel.
	r := c.registry.lockRoom(sp)
	defer r.mu.Unlock()

	spawn, ok := sp.SpawnFor(r.occupiedLocked(""))
	if !ok {
		sess.SetState(session.StateClosed)
		return fmt.Errorf("joining space %q: %w", spaceID, ErrSpaceFull)
	}

	// Snapshot the occupants present before this join; it becomes the
	// joiner's space-joined user list.
	occupants := make([]events.Occupant, 0, len(r.members))
	for _, m := range r.members {
		pos := m.Position()
		occupants = append(occupants, events.Occupant{UserID: m.UserID(), X: pos.X, Y: pos.Y})
	}

	r.members[sess.ID] = sess
	sess.Bind(identity.UserID, sp.ID, spawn)

	if err := sess.Send(events.SpaceJoined(occupants, spawn)); err != nil {
		c.logger.Warn("dropped space-joined ack",
			zap.String("session_id", sess.ID),
			zap.Error(err),
		)
	}
	dropped := r.broadcastLocked(events.UserJoined(identity.UserID, spawn), sess.ID)
	c.logDrops("user-joined", dropped)

	c.logger.Info("session joined space",
		zap.String("session_id", sess.ID),
		zap.String("user_id", identity.UserID),
		zap.String("space_id", sp.ID),
		zap.Int("spawn_x", spawn.X),
		zap.Int("spawn_y", spawn.Y),
		zap.Int("occupants", len(r.members)),
	)
	return nil
}

// Move validates a requested position and either commits it, fanning
// out one movement event to every other member, or rejects it, sending
// only the mover a movement-rejected with its unchanged position.
//
// Moves from sessions that have not joined are ignored.
func (c *Coordinator) Move(sess *session.Session, target space.Position) {
	if sess.State() != session.StateInRoom {
		return
	}

	c.registry.mu.Lock()
	r, ok := c.registry.rooms[sess.SpaceID()]
	c.registry.mu.Unlock()
	if !ok {
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Disconnect may have removed the session between the state check
	// and taking the room lock; a removed session holds no cell and
	// must not be credited a move.
	if _, member := r.members[sess.ID]; !member {
		return
	}

	cur := sess.Position()
	verdict := movement.Validate(cur, target, r.space, r.occupiedLocked(sess.ID))
	if !verdict.Accepted() {
		if err := sess.Send(events.MovementRejected(cur)); err != nil {
			c.logger.Warn("dropped movement-rejected",
				zap.String("session_id", sess.ID),
				zap.Error(err),
			)
		}
		c.logger.Debug("move rejected",
			zap.String("session_id", sess.ID),
			zap.String("verdict", verdict.String()),
			zap.Int("x", target.X),
			zap.Int("y", target.Y),
		)
		return
	}

	sess.SetPosition(target)
	dropped := r.broadcastLocked(events.Movement(sess.UserID(), target), sess.ID)
	c.logDrops("movement", dropped)
}

// Leave removes the session from its room, broadcasts user-left to the
// remaining members, deletes the room if it emptied, and closes the
// session. It is the final cleanup step for every exit path and is
// safe to call for sessions that never joined, or more than once.
func (c *Coordinator) Leave(sess *session.Session) {
	defer sess.Close()

	spaceID := sess.SpaceID()
	if spaceID == "" {
		return
	}

	r := c.registry.get(spaceID)
	if r == nil {
		return
	}

	r.mu.Lock()
	_, member := r.members[sess.ID]
	if member {
		delete(r.members, sess.ID)
		dropped := r.broadcastLocked(events.UserLeft(sess.UserID()), sess.ID)
		c.logDrops("user-left", dropped)
	}
	empty := len(r.members) == 0
	r.mu.Unlock()

	removed := false
	if empty {
		removed = c.registry.removeIfEmpty(spaceID, r)
	}

	if member {
		c.logger.Info("session left space",
			zap.String("session_id", sess.ID),
			zap.String("user_id", sess.UserID()),
			zap.String("space_id", spaceID),
			zap.Bool("room_removed", removed),
		)
	}
}

// logDrops records per-peer delivery failures. Drops never escalate to
// the triggering request.
func (c *Coordinator) logDrops(event string, dropped []string) {
	if len(dropped) == 0 {
		return
	}
	c.logger.Warn("dropped broadcast deliveries",
		zap.String("event", event),
		zap.Strings("session_ids", dropped),
	)
}
