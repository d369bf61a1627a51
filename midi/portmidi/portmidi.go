// package portmidi reads MIDI input through PortMidi.
package portmidi

import (
	"errors"
	"fmt"
	"sync"

	pm "github.com/rakyll/portmidi"

	"github.com/pfcm/monocv/midi"
)

// PortMidi won't read more than this many events at once.
const maxRead = 1024

// Transport is a midi.Transport over the PortMidi input devices. PortMidi
// takes its list of devices when it is initialised, so devices plugged in
// later need a new Transport.
type Transport struct {
	// Fixed once opened.
	ids   []pm.DeviceID // input-capable devices
	names []string

	selecting sync.Mutex
	mu        sync.Mutex
	stream    *pm.Stream
}

var _ midi.Transport = &Transport{}

// Open initialises PortMidi. There should only be one Transport open at a
// time.
func Open() (*Transport, error) {
	if err := pm.Initialize(); err != nil {
		return nil, fmt.Errorf("initialising portmidi: %w", err)
	}
	t := &Transport{}
	for i := 0; i < pm.CountDevices(); i++ {
		info := pm.Info(pm.DeviceID(i))
		if info == nil || !info.IsInputAvailable {
			continue
		}
		t.ids = append(t.ids, pm.DeviceID(i))
		t.names = append(t.names, info.Name)
	}
	return t, nil
}

func (t *Transport) PortCount() int { return len(t.ids) }

func (t *Transport) PortName(id int) string {
	if id < 0 || id >= len(t.names) {
		return ""
	}
	return t.names[id]
}

// SelectPort takes the stream away from Read before closing it and only
// hands the new one over once it is open, so Read neither waits for the
// device nor calls into PortMidi at the same time.
func (t *Transport) SelectPort(id int) error {
	t.selecting.Lock()
	defer t.selecting.Unlock()

	if old := t.detach(); old != nil {
		if err := old.Close(); err != nil {
			return err
		}
	}
	if id < 0 {
		return nil
	}
	if id >= len(t.ids) {
		return fmt.Errorf("no portmidi input %d (%d available)", id, len(t.ids))
	}
	s, err := pm.NewInputStream(t.ids[id], midi.DefaultQueueSize)
	if err != nil {
		return fmt.Errorf("opening portmidi input %q: %w", t.names[id], err)
	}
	t.mu.Lock()
	t.stream = s
	t.mu.Unlock()
	return nil
}

func (t *Transport) detach() *pm.Stream {
	t.mu.Lock()
	defer t.mu.Unlock()
	s := t.stream
	t.stream = nil
	return s
}

func (t *Transport) Read(max int) ([]midi.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stream == nil || max <= 0 {
		return nil, nil
	}
	ok, err := t.stream.Poll()
	if err != nil || !ok {
		return nil, err
	}
	events, err := t.stream.Read(min(max, maxRead))
	if err != nil {
		return nil, err
	}
	msgs := make([]midi.Message, 0, len(events))
	for _, e := range events {
		msgs = append(msgs, midi.FromFields(e.Status, e.Data1, e.Data2))
	}
	return msgs, nil
}

func (t *Transport) Close() error {
	t.selecting.Lock()
	defer t.selecting.Unlock()
	var err error
	if s := t.detach(); s != nil {
		err = s.Close()
	}
	return errors.Join(err, pm.Terminate())
}

func (t *Transport) String() string { return "portmidi" }
