package session

import (
	"fmt"
	"sync"
)

// Outbox is a bounded queue of encoded events bridging the room
// coordinator to a connection's write pump. Pushes never block: when
// the buffer is full the event is dropped and an error returned, so a
// dead or slow peer is isolated from the rest of the room.
type Outbox struct {
	events chan []byte
	mu     sync.Mutex
	closed bool
}

// NewOutbox creates an Outbox with the given buffer capacity.
//
// Precondition: bufferSize should be positive; non-positive values fall back to 64.
// Postcondition: Returns an Outbox with an open events channel.
func NewOutbox(bufferSize int) *Outbox {
	if bufferSize <= 0 {
		bufferSize = 64
	}
	return &Outbox{
		events: make(chan []byte, bufferSize),
	}
}

// Push enqueues data for delivery.
//
// Postcondition: Data is enqueued, or an error if the outbox is closed or full.
func (o *Outbox) Push(data []byte) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.closed {
		return fmt.Errorf("outbox is closed")
	}
	select {
	case o.events <- data:
		return nil
	default:
		return fmt.Errorf("outbox buffer full")
	}
}

// Events returns the read-only events channel. The connection's write
// pump drains this channel; it is closed when the session closes.
func (o *Outbox) Events() <-chan []byte {
	return o.events
}

// Close marks the outbox as closed and closes the events channel.
//
// Postcondition: The events channel is closed. Further Push calls return an error.
func (o *Outbox) Close() error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.closed {
		o.closed = true
		close(o.events)
	}
	return nil
}

// IsClosed reports whether the outbox has been closed.
func (o *Outbox) IsClosed() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.closed
}
