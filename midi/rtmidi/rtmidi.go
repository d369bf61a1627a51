// package rtmidi reads MIDI input through RtMidi, by way of gomidi's driver.
package rtmidi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/pfcm/monocv/midi"
)

// Transport is a midi.Transport over the system's MIDI inputs. RtMidi calls
// back on its own thread, so messages wait in a midi.Queue until read.
//
// The list of ports is fetched afresh on every query, so port ids can change
// as devices come and go.
type Transport struct {
	mu    sync.Mutex
	drv   *rtmididrv.Driver
	queue *midi.Queue
	in    drivers.In
	stop  func()
	log   *log.Logger
}

var _ midi.Transport = &Transport{}

func Open(logger *log.Logger) (*Transport, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("opening rtmidi: %w", err)
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Transport{
		drv:   drv,
		queue: midi.NewQueue(midi.DefaultQueueSize),
		log:   logger,
	}, nil
}

func (t *Transport) ins() []drivers.In {
	ins, err := t.drv.Ins()
	if err != nil {
		t.log.Error("listing midi inputs", "err", err)
		return nil
	}
	return ins
}

func (t *Transport) PortCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.ins())
}

func (t *Transport) PortName(id int) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	ins := t.ins()
	if id < 0 || id >= len(ins) {
		return ""
	}
	return ins[id].String()
}

func (t *Transport) SelectPort(id int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.closeIn(); err != nil {
		return err
	}
	if id < 0 {
		return nil
	}
	ins := t.ins()
	if id >= len(ins) {
		return fmt.Errorf("no rtmidi input %d (%d available)", id, len(ins))
	}
	in := ins[id]
	stop, err := gomidi.ListenTo(in, t.receive, gomidi.HandleError(func(err error) {
		t.log.Error("midi input", "port", in.String(), "err", err)
	}))
	if err != nil {
		return fmt.Errorf("listening to %q: %w", in.String(), err)
	}
	t.in, t.stop = in, stop
	return nil
}

func (t *Transport) receive(msg gomidi.Message, _ int32) {
	m, err := midi.FromBytes(msg)
	if err != nil {
		t.log.Debug("undecodable midi", "bytes", msg.Bytes(), "err", err)
		return
	}
	if !t.queue.Push(m) {
		t.log.Warn("midi queue full", "dropped", t.queue.Dropped())
	}
}

func (t *Transport) closeIn() error {
	if t.in == nil {
		return nil
	}
	t.stop()
	err := t.in.Close()
	t.in, t.stop = nil, nil
	t.queue.Reset()
	return err
}

func (t *Transport) Read(max int) ([]midi.Message, error) {
	return t.queue.Read(max), nil
}

func (t *Transport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return errors.Join(t.closeIn(), t.drv.Close())
}

func (t *Transport) String() string { return "rtmidi" }
