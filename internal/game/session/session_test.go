package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metagrid-dev/metagrid/internal/game/space"
)

func TestNewSession(t *testing.T) {
	s := New(8)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, StateConnected, s.State())
	assert.Empty(t, s.UserID())
	assert.Empty(t, s.SpaceID())
}

func TestSessionIDsUnique(t *testing.T) {
	a := New(8)
	b := New(8)
	assert.NotEqual(t, a.ID, b.ID)
}

func TestBind(t *testing.T) {
	s := New(8)
	s.Bind("user-1", "space-1", space.Position{X: 3, Y: 4})

	assert.Equal(t, StateInRoom, s.State())
	assert.Equal(t, "user-1", s.UserID())
	assert.Equal(t, "space-1", s.SpaceID())
	assert.Equal(t, space.Position{X: 3, Y: 4}, s.Position())
}

func TestSetPosition(t *testing.T) {
	s := New(8)
	s.Bind("user-1", "space-1", space.Position{X: 0, Y: 0})
	s.SetPosition(space.Position{X: 1, Y: 0})
	assert.Equal(t, space.Position{X: 1, Y: 0}, s.Position())
}

func TestSendAndReceive(t *testing.T) {
	s := New(8)
	require.NoError(t, s.Send([]byte("event")))
	assert.Equal(t, []byte("event"), <-s.Outbox().Events())
}

func TestCloseIsTerminalAndIdempotent(t *testing.T) {
	s := New(8)
	s.Close()
	s.Close()
	assert.Equal(t, StateClosed, s.State())
	assert.Error(t, s.Send([]byte("late")))
}

func TestOutboxDropsWhenFull(t *testing.T) {
	o := NewOutbox(1)
	require.NoError(t, o.Push([]byte("first")))
	err := o.Push([]byte("overflow"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "full")

	// The first event is still deliverable.
	assert.Equal(t, []byte("first"), <-o.Events())
}

func TestOutboxClosed(t *testing.T) {
	o := NewOutbox(4)
	require.NoError(t, o.Close())
	assert.True(t, o.IsClosed())
	assert.Error(t, o.Push([]byte("fail")))
	require.NoError(t, o.Close())
}

func TestOutboxDefaultBuffer(t *testing.T) {
	o := NewOutbox(0)
	for i := 0; i < 64; i++ {
		require.NoError(t, o.Push([]byte{byte(i)}))
	}
	assert.Error(t, o.Push([]byte("over")))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "joining", StateJoining.String())
	assert.Equal(t, "in_room", StateInRoom.String())
	assert.Equal(t, "closed", StateClosed.String())
}
