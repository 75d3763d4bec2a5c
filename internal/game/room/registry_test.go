package room

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metagrid-dev/metagrid/internal/game/session"
	"github.com/metagrid-dev/metagrid/internal/game/space"
)

func TestLockRoomCreatesOnFirstUse(t *testing.T) {
	reg := NewRegistry()
	sp := openSpace()

	r := reg.lockRoom(sp)
	r.mu.Unlock()

	assert.Equal(t, 1, reg.RoomCount())
	assert.Same(t, r, reg.get(sp.ID))

	// A second lock of the same space returns the same room.
	again := reg.lockRoom(sp)
	again.mu.Unlock()
	assert.Same(t, r, again)
	assert.Equal(t, 1, reg.RoomCount())
}

// A joiner that grabbed a room reference just before the last member
// left must not land in the orphaned room: lockRoom sees the removed
// flag and retries against a fresh registration.
func TestLockRoomRetriesRemovedRoom(t *testing.T) {
	reg := NewRegistry()
	sp := openSpace()

	stale := reg.lockRoom(sp)
	stale.mu.Unlock()
	require.True(t, reg.removeIfEmpty(sp.ID, stale))
	require.Zero(t, reg.RoomCount())

	fresh := reg.lockRoom(sp)
	fresh.mu.Unlock()

	assert.NotSame(t, stale, fresh)
	assert.Equal(t, 1, reg.RoomCount())
	assert.Same(t, fresh, reg.get(sp.ID))
}

func TestRemoveIfEmptyKeepsOccupiedRoom(t *testing.T) {
	reg := NewRegistry()
	sp := openSpace()

	r := reg.lockRoom(sp)
	sess := session.New(8)
	r.members[sess.ID] = sess
	r.mu.Unlock()

	// A join slipped in since the caller saw the room empty.
	assert.False(t, reg.removeIfEmpty(sp.ID, r))
	assert.Equal(t, 1, reg.RoomCount())
	assert.Equal(t, 1, r.MemberCount())
}

func TestRemoveIfEmptyIgnoresStaleRoom(t *testing.T) {
	reg := NewRegistry()
	sp := openSpace()

	stale := reg.lockRoom(sp)
	stale.mu.Unlock()
	require.True(t, reg.removeIfEmpty(sp.ID, stale))

	// The space was re-registered under a new room; removing with the
	// stale reference must leave it alone.
	fresh := reg.lockRoom(sp)
	sess := session.New(8)
	fresh.members[sess.ID] = sess
	fresh.mu.Unlock()

	assert.False(t, reg.removeIfEmpty(sp.ID, stale))
	assert.Equal(t, 1, reg.RoomCount())
	assert.Same(t, fresh, reg.get(sp.ID))
}

// Concurrent churn against distinct spaces must never deadlock or lose
// a registration; each space ends with exactly the joins that stayed.
func TestRegistryConcurrentChurn(t *testing.T) {
	reg := NewRegistry()
	sp1 := openSpace()
	sp2 := openSpace()
	sp2.ID = "space-2"

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		for _, sp := range []*space.Space{sp1, sp2} {
			sp := sp
			wg.Add(1)
			go func() {
				defer wg.Done()
				for j := 0; j < 100; j++ {
					sess := session.New(1)
					r := reg.lockRoom(sp)
					r.members[sess.ID] = sess
					r.mu.Unlock()

					// The goroutine's own member keeps the room alive
					// until it removes itself, so the lookup cannot miss.
					r2 := reg.get(sp.ID)
					r2.mu.Lock()
					delete(r2.members, sess.ID)
					empty := len(r2.members) == 0
					r2.mu.Unlock()
					if empty {
						reg.removeIfEmpty(sp.ID, r2)
					}
				}
			}()
		}
	}
	wg.Wait()

	assert.Zero(t, reg.RoomCount())
}
