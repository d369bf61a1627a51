// package hid handles human interface devices. Or IO that uses the same protocols,
// like MIDI.
package hid

import (
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/pfcm/monocv"
	"github.com/pfcm/monocv/midi"
	"github.com/pfcm/monocv/mono"
)

// Interface connects a MIDI transport to a monophonic note engine. Once per
// block it reads pending messages and produces two outputs: the gate and the
// pitch, both in volts. It also passes port queries and selection through to
// the transport so a UI can drive it.
//
// Interface is safe for concurrent use: the audio callback ticks it while a
// UI selects ports.
type Interface struct {
	batch int
	reset bool
	log   *log.Logger

	t midi.Transport

	// selecting serialises port changes; mu guards the rest and is all
	// that Step takes.
	selecting sync.Mutex
	mu        sync.Mutex
	engine    *mono.Engine
	port      int
	gate      float64
	pitch     float64
}

var _ monocv.Ticker = &Interface{}

// Option configures an Interface.
type Option func(*Interface)

// WithEngine uses e instead of a default mono.Engine.
func WithEngine(e *mono.Engine) Option {
	return func(i *Interface) { i.engine = e }
}

func WithLogger(l *log.Logger) Option {
	return func(i *Interface) { i.log = l }
}

// WithBatchSize sets the most messages handled per block. Anything beyond
// that waits in the transport for the next block.
func WithBatchSize(n int) Option {
	if n <= 0 {
		panic(fmt.Errorf("batch size %d: %w", n, mono.ErrInvalidArgument))
	}
	return func(i *Interface) { i.batch = n }
}

// WithResetOnPortChange decides whether selecting a port lets go of every
// held note, the pedal and the pitch wheel. It defaults to true, so notes
// held on a port that goes away don't hang.
func WithResetOnPortChange(reset bool) Option {
	return func(i *Interface) { i.reset = reset }
}

func New(t midi.Transport, opts ...Option) *Interface {
	i := &Interface{
		batch: midi.DefaultQueueSize,
		reset: true,
		t:     t,
		port:  -1,
	}
	for _, o := range opts {
		o(i)
	}
	if i.engine == nil {
		i.engine = mono.New()
	}
	if i.log == nil {
		i.log = log.Default()
	}
	i.gate, i.pitch = i.engine.Signals()
	return i
}

// PortCount and PortName go straight to the transport, which does its own
// locking, so listing ports never holds up Step.
func (i *Interface) PortCount() int {
	return i.t.PortCount()
}

func (i *Interface) PortName(id int) string {
	return i.t.PortName(id)
}

// SelectPort switches to the port with the given id; -1 closes the current
// port. If the switch fails no port is active. Step keeps running while the
// transport opens the device.
func (i *Interface) SelectPort(id int) error {
	i.selecting.Lock()
	defer i.selecting.Unlock()
	return i.selectPort(id)
}

func (i *Interface) selectPort(id int) error {
	i.mu.Lock()
	i.port = -1
	i.resetEngine()
	i.mu.Unlock()

	if err := i.t.SelectPort(id); err != nil {
		return err
	}
	if id < 0 {
		i.log.Info("closed midi port")
	} else {
		i.log.Info("opened midi port", "id", id, "name", i.t.PortName(id))
	}

	i.mu.Lock()
	defer i.mu.Unlock()
	// Steps during the switch may have read the old port's last messages.
	i.resetEngine()
	i.port = max(id, -1)
	return nil
}

func (i *Interface) resetEngine() {
	if i.reset {
		i.engine.Reset()
		i.gate, i.pitch = i.engine.Signals()
	}
}

// Port is the id of the active port, or -1.
func (i *Interface) Port() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.port
}

// Step runs one control tick: up to a batch of pending messages goes through
// the engine, then the signals are computed.
func (i *Interface) Step() (gate, pitch float64) {
	i.mu.Lock()
	defer i.mu.Unlock()

	msgs, err := i.t.Read(i.batch)
	switch {
	case errors.Is(err, midi.ErrPortClosed):
		i.log.Warn("midi port went away", "id", i.port, "err", err)
		i.port = -1
	case err != nil:
		i.log.Error("reading midi", "err", err)
	}
	for _, m := range msgs {
		if m.Channel == byte(i.engine.Channel()) {
			i.log.Debug("midi", "channel", m.Channel, "status", m.Status, "data1", m.Data1, "data2", m.Data2)
		}
		if err := i.engine.Process(m); err != nil {
			i.log.Warn("dropped midi message", "err", err)
		}
	}
	i.gate, i.pitch = i.engine.Signals()
	return i.gate, i.pitch
}

// Signals returns what the last Step computed.
func (i *Interface) Signals() (gate, pitch float64) {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.gate, i.pitch
}

func (i *Interface) State() mono.State {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.engine.State()
}

// Close closes the active port. It leaves the transport itself open.
func (i *Interface) Close() error {
	i.selecting.Lock()
	defer i.selecting.Unlock()
	if i.Port() < 0 {
		return nil
	}
	return i.selectPort(-1)
}

func (*Interface) Inputs() int      { return 0 }
func (*Interface) Outputs() int     { return 2 }
func (i *Interface) String() string { return fmt.Sprintf("hid.Interface(%v)", i.t) }

// Tick runs Step once for the whole block, so the block size sets the
// control rate.
func (i *Interface) Tick(_, out [][]float32) {
	gate, pitch := i.Step()
	for j := range out[0] {
		out[0][j] = float32(gate)
		out[1][j] = float32(pitch)
	}
}
