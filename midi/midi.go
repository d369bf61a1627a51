// package midi handles midi.
package midi

import (
	"context"
	"errors"
	"sync"

	"github.com/pfcm/monocv/internal/buffer"
)

// DefaultQueueSize is how many messages a transport buffers between reads.
const DefaultQueueSize = 128

// ErrPortClosed is returned by Transport.Read when the active port has gone
// away, for example because the device was unplugged. No port is active
// afterwards.
var ErrPortClosed = errors.New("midi port closed")

// Ports lists input ports. Port ids run from 0 to PortCount()-1.
type Ports interface {
	// PortCount returns the number of input ports currently available.
	PortCount() int
	// PortName returns the name of a port, or "" if there is no such
	// port.
	PortName(id int) string
}

// Transport delivers decoded messages from one selectable input port at a
// time.
type Transport interface {
	Ports
	// SelectPort closes the active port, if any, and opens the port with
	// the given id. An id of -1 only closes.
	SelectPort(id int) error
	// Read returns at most max pending messages in arrival order without
	// blocking. Messages that are not returned stay pending.
	Read(max int) ([]Message, error)
	// Close releases the port and the underlying driver.
	Close() error
}

// Listener is function that blocks until the context is done, calling a
// provided callback with every message it receives.
type Listener func(context.Context, func(Message)) error

// Queue is a bounded FIFO of messages, for drivers that push messages from
// their own goroutine to a reader that polls. It is safe for concurrent use.
type Queue struct {
	mu      sync.Mutex
	ring    *buffer.Ring[Message]
	dropped uint64
}

// NewQueue makes a Queue holding at most size messages.
func NewQueue(size int) *Queue {
	return &Queue{ring: buffer.NewRing[Message](size)}
}

// Push adds a message. If the queue is full the message is dropped and Push
// returns false.
func (q *Queue) Push(m Message) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.ring.Write(m) {
		q.dropped++
		return false
	}
	return true
}

// Read removes and returns up to max of the oldest messages.
func (q *Queue) Read(max int) []Message {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := min(max, q.ring.Len())
	if n <= 0 {
		return nil
	}
	out := make([]Message, n)
	q.ring.Read(out)
	return out
}

// Len is the number of messages waiting.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.ring.Len()
}

// Dropped is the number of messages pushed while the queue was full.
func (q *Queue) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Reset drops everything waiting.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.ring.Reset()
}

// Listen starts the Listener in the background and returns a Queue that
// collects what it receives, along with a channel that yields the listener's
// result once it returns.
func Listen(ctx context.Context, l Listener, size int) (*Queue, <-chan error) {
	q := NewQueue(size)
	done := make(chan error, 1)
	go func() {
		done <- l(ctx, func(m Message) { q.Push(m) })
		close(done)
	}()
	return q, done
}
