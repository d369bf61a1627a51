// package miditest provides an in-memory midi.Transport for tests.
package miditest

import (
	"fmt"
	"sync"

	"github.com/pfcm/monocv/midi"
)

// Transport is a fake midi.Transport. Messages passed to Send wait until
// they are Read. It is safe for concurrent use.
type Transport struct {
	mu      sync.Mutex
	ports   []string
	active  int
	pending []midi.Message
	selects []int
	closed  bool

	// ReadErr, if set, is returned by every Read alongside any messages.
	ReadErr error
	// SelectErr, if set, makes SelectPort fail for any id other than -1.
	SelectErr error
}

var _ midi.Transport = &Transport{}

// New makes a Transport with the named ports and none selected.
func New(ports ...string) *Transport {
	return &Transport{ports: ports, active: -1}
}

// SetPorts replaces the list of available ports, like a device being
// plugged in or removed.
func (t *Transport) SetPorts(ports ...string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ports = ports
}

// Send queues messages for Read. Messages sent while no port is selected
// are lost, as they would be on a real device.
func (t *Transport) Send(msgs ...midi.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.active < 0 {
		return
	}
	t.pending = append(t.pending, msgs...)
}

// Pending is the number of messages waiting to be read.
func (t *Transport) Pending() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.pending)
}

// Selects returns every id passed to SelectPort, in order.
func (t *Transport) Selects() []int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int(nil), t.selects...)
}

// Active is the selected port, or -1.
func (t *Transport) Active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

func (t *Transport) Closed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

func (t *Transport) PortCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ports)
}

func (t *Transport) PortName(id int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if id < 0 || id >= len(t.ports) {
		return ""
	}
	return t.ports[id]
}

func (t *Transport) SelectPort(id int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selects = append(t.selects, id)
	t.active = -1
	t.pending = nil
	if id < 0 {
		return nil
	}
	if t.SelectErr != nil {
		return t.SelectErr
	}
	if id >= len(t.ports) {
		return fmt.Errorf("no midi port %d (%d available)", id, len(t.ports))
	}
	t.active = id
	return nil
}

func (t *Transport) Read(max int) ([]midi.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := min(max, len(t.pending))
	if n <= 0 {
		return nil, t.ReadErr
	}
	out := append([]midi.Message(nil), t.pending[:n]...)
	t.pending = t.pending[n:]
	return out, t.ReadErr
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = -1
	t.pending = nil
	t.closed = true
	return nil
}

func (t *Transport) String() string { return "miditest.Transport" }
