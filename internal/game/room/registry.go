// Package room provides live room state for spaces: occupancy tracking,
// the process-wide room registry, and the coordinator that serializes
// join/move/leave against each room.
package room

import (
	"sync"

	"github.com/metagrid-dev/metagrid/internal/game/session"
	"github.com/metagrid-dev/metagrid/internal/game/space"
)

// Room holds the live occupancy of one space. All reads-then-writes of
// membership and positions happen under mu; different rooms lock
// independently, so traffic in one space never stalls another.
type Room struct {
	space *space.Space

	mu      sync.Mutex
	members map[string]*session.Session // session id → session
	// removed is set under both the registry and room locks when the
	// room is deleted from the registry; a joiner that raced the
	// deletion sees it and retries against a fresh room.
	removed bool
}

func newRoom(sp *space.Space) *Room {
	return &Room{
		space:   sp,
		members: make(map[string]*session.Session),
	}
}

// MemberCount returns the number of sessions currently in the room.
func (r *Room) MemberCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.members)
}

// occupiedLocked returns the set of committed cells, excluding the
// session with the given id (empty string excludes nobody).
// Caller must hold r.mu.
func (r *Room) occupiedLocked(excludeSessionID string) map[space.Position]bool {
	occupied := make(map[space.Position]bool, len(r.members))
	for id, m := range r.members {
		if id == excludeSessionID {
			continue
		}
		occupied[m.Position()] = true
	}
	return occupied
}

// broadcastLocked delivers event to every member except the excluded
// session (empty string excludes nobody). Delivery is a non-blocking
// push per member; a full or closed outbox drops that one delivery.
// Caller must hold r.mu, which is what gives all peers the same
// relative event order.
func (r *Room) broadcastLocked(event []byte, excludeSessionID string) []string {
	var dropped []string
	for id, m := range r.members {
		if id == excludeSessionID {
			continue
		}
		if err := m.Send(event); err != nil {
			dropped = append(dropped, id)
		}
	}
	return dropped
}

// Registry maps space ids to their active rooms. Rooms are created
// lazily on first join and removed when the last member leaves.
type Registry struct {
	mu    sync.Mutex
	rooms map[string]*Room
}

// NewRegistry creates an empty Registry. The registry is owned by the
// coordinator and its lifetime is the lifetime of the process.
func NewRegistry() *Registry {
	return &Registry{
		rooms: make(map[string]*Room),
	}
}

// RoomCount returns the number of active rooms.
func (g *Registry) RoomCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.rooms)
}

// get returns the active room for a space id, or nil.
func (g *Registry) get(spaceID string) *Room {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rooms[spaceID]
}

// lockRoom returns the space's room with its mutex held, creating the
// room on first join. The registry lock is released before the room
// lock is taken, so rooms never serialize each other; a room deleted
// in that window is detected via its removed flag and retried.
//
// Postcondition: The returned room is registered and r.mu is held.
// The caller must unlock it.
func (g *Registry) lockRoom(sp *space.Space) *Room {
	for {
		g.mu.Lock()
		r, ok := g.rooms[sp.ID]
		if !ok {
			r = newRoom(sp)
			g.rooms[sp.ID] = r
		}
		g.mu.Unlock()

		r.mu.Lock()
		if !r.removed {
			return r
		}
		r.mu.Unlock()
	}
}

// removeIfEmpty deletes the room from the registry if it is still
// registered and has no members. Both locks are held for the deletion,
// and the check re-runs under them: a join that slipped in since the
// caller observed the room empty keeps it alive.
func (g *Registry) removeIfEmpty(spaceID string, r *Room) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	r.mu.Lock()
	defer r.mu.Unlock()

	if g.rooms[spaceID] != r || len(r.members) != 0 {
		return false
	}
	r.removed = true
	delete(g.rooms, spaceID)
	return true
}
