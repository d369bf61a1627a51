package hid

import (
	"bytes"
	"errors"
	"io"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pfcm/monocv/midi"
	"github.com/pfcm/monocv/midi/miditest"
	"github.com/pfcm/monocv/mono"
)

func on(note, vel byte) midi.Message {
	return midi.Message{Status: midi.NoteOn, Data1: note, Data2: vel}
}

func off(note byte) midi.Message {
	return midi.Message{Status: midi.NoteOff, Data1: note}
}

func quiet() Option { return WithLogger(log.New(io.Discard)) }

func newSelected(t *testing.T, opts ...Option) (*Interface, *miditest.Transport) {
	t.Helper()
	tr := miditest.New("keys", "pads")
	i := New(tr, append([]Option{quiet()}, opts...)...)
	if err := i.SelectPort(0); err != nil {
		t.Fatalf("SelectPort(0): %v", err)
	}
	return i, tr
}

func TestInitialSignals(t *testing.T) {
	i := New(miditest.New(), quiet())
	if gate, pitch := i.Signals(); gate != 0 || pitch != 0 {
		t.Errorf("Signals() = %v, %v, want: 0, 0", gate, pitch)
	}
	if i.Port() != -1 {
		t.Errorf("Port() = %d, want: -1", i.Port())
	}
}

func TestPortsPassThrough(t *testing.T) {
	tr := miditest.New("keys", "pads")
	i := New(tr, quiet())
	if got := i.PortCount(); got != 2 {
		t.Errorf("PortCount() = %d, want: 2", got)
	}
	if got := i.PortName(1); got != "pads" {
		t.Errorf("PortName(1) = %q, want: %q", got, "pads")
	}
	if got := i.PortName(2); got != "" {
		t.Errorf("PortName(2) = %q, want: \"\"", got)
	}
	if err := i.SelectPort(1); err != nil {
		t.Fatal(err)
	}
	if i.Port() != 1 || tr.Active() != 1 {
		t.Errorf("after SelectPort(1): Port() = %d, transport active = %d", i.Port(), tr.Active())
	}
	if err := i.SelectPort(5); err == nil {
		t.Errorf("SelectPort(5) succeeded")
	}
	if i.Port() != -1 {
		t.Errorf("after failed select Port() = %d, want: -1", i.Port())
	}
}

func TestStep(t *testing.T) {
	for _, c := range []struct {
		name      string
		msgs      []midi.Message
		wantGate  float64
		wantPitch float64
	}{{
		name:      "nothing",
		wantGate:  0,
		wantPitch: 0,
	}, {
		name:      "note on",
		msgs:      []midi.Message{on(76, 100)},
		wantGate:  5,
		wantPitch: 1,
	}, {
		name:      "last note wins",
		msgs:      []midi.Message{on(60, 100), on(67, 100), off(67)},
		wantGate:  5,
		wantPitch: -4.0 / 12,
	}, {
		name:      "released",
		msgs:      []midi.Message{on(60, 100), on(60, 0)},
		wantGate:  0,
		wantPitch: -4.0 / 12,
	}, {
		name: "other channel",
		msgs: []midi.Message{{Channel: 3, Status: midi.NoteOn, Data1: 76, Data2: 100}},
	}, {
		name:      "invalid is skipped",
		msgs:      []midi.Message{on(200, 100), on(52, 100)},
		wantGate:  5,
		wantPitch: -1,
	}} {
		t.Run(c.name, func(t *testing.T) {
			i, tr := newSelected(t)
			tr.Send(c.msgs...)
			gate, pitch := i.Step()
			if gate != c.wantGate || pitch != c.wantPitch {
				t.Errorf("Step() = %v, %v, want: %v, %v", gate, pitch, c.wantGate, c.wantPitch)
			}
			if g, p := i.Signals(); g != gate || p != pitch {
				t.Errorf("Signals() = %v, %v, want: %v, %v", g, p, gate, pitch)
			}
		})
	}
}

func TestStepBatch(t *testing.T) {
	i, tr := newSelected(t, WithBatchSize(2))
	tr.Send(on(60, 1), on(62, 1), on(64, 1))
	if _, pitch := i.Step(); pitch != -2.0/12 {
		t.Errorf("first Step() pitch = %v, want: %v", pitch, -2.0/12)
	}
	if tr.Pending() != 1 {
		t.Errorf("after first Step() %d pending, want: 1", tr.Pending())
	}
	if _, pitch := i.Step(); pitch != 0 {
		t.Errorf("second Step() pitch = %v, want: 0", pitch)
	}
}

func TestStepReadError(t *testing.T) {
	var logs bytes.Buffer
	i, tr := newSelected(t, WithLogger(log.New(&logs)))
	tr.Send(on(76, 100))
	tr.ReadErr = errors.New("device unplugged")
	if gate, pitch := i.Step(); gate != 5 || pitch != 1 {
		t.Errorf("Step() = %v, %v, want: 5, 1", gate, pitch)
	}
	if !strings.Contains(logs.String(), "device unplugged") {
		t.Errorf("logs = %q, want the read error", logs.String())
	}
}

func TestResetOnPortChange(t *testing.T) {
	for _, c := range []struct {
		reset    bool
		wantGate float64
	}{
		{true, 0},
		{false, 5},
	} {
		i, tr := newSelected(t, WithResetOnPortChange(c.reset))
		tr.Send(on(76, 100))
		i.Step()
		if err := i.SelectPort(1); err != nil {
			t.Fatal(err)
		}
		if gate, _ := i.Step(); gate != c.wantGate {
			t.Errorf("reset %t: gate after port change = %v, want: %v", c.reset, gate, c.wantGate)
		}
		// The note is remembered either way.
		if got := i.State().Note; got != 76 {
			t.Errorf("reset %t: note = %d, want: 76", c.reset, got)
		}
	}
}

func TestWithEngine(t *testing.T) {
	e := mono.New()
	if err := e.SetChannel(9); err != nil {
		t.Fatal(err)
	}
	i, tr := newSelected(t, WithEngine(e))
	tr.Send(on(76, 100), midi.Message{Channel: 9, Status: midi.NoteOn, Data1: 52, Data2: 100})
	if gate, pitch := i.Step(); gate != 5 || pitch != -1 {
		t.Errorf("Step() = %v, %v, want: 5, -1", gate, pitch)
	}
	if got := e.State().Note; got != 52 {
		t.Errorf("engine note = %d, want: 52", got)
	}
}

func TestWithBatchSizePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("WithBatchSize(0) didn't panic")
		}
	}()
	WithBatchSize(0)
}

func TestTick(t *testing.T) {
	i, tr := newSelected(t)
	if i.Inputs() != 0 || i.Outputs() != 2 {
		t.Fatalf("Inputs(), Outputs() = %d, %d, want: 0, 2", i.Inputs(), i.Outputs())
	}
	tr.Send(on(64, 100), midi.Message{Status: midi.PitchBend, Data2: 96})
	out := [][]float32{make([]float32, 8), make([]float32, 8)}
	i.Tick(nil, out)
	wantGate := slices.Repeat([]float32{5}, 8)
	wantPitch := slices.Repeat([]float32{float32(1.0 / 12)}, 8)
	if !slices.Equal(out[0], wantGate) {
		t.Errorf("gate = %v, want: %v", out[0], wantGate)
	}
	if !slices.Equal(out[1], wantPitch) {
		t.Errorf("pitch = %v, want: %v", out[1], wantPitch)
	}
}

func TestClose(t *testing.T) {
	i, tr := newSelected(t)
	tr.Send(on(64, 100))
	i.Step()
	if err := i.Close(); err != nil {
		t.Fatal(err)
	}
	if i.Port() != -1 || tr.Active() != -1 {
		t.Errorf("after Close(): Port() = %d, transport active = %d", i.Port(), tr.Active())
	}
	if gate, _ := i.Step(); gate != 0 {
		t.Errorf("gate after Close() = %v, want: 0", gate)
	}
	if tr.Closed() {
		t.Errorf("Close() closed the transport")
	}
	// Nothing to close the second time.
	if err := i.Close(); err != nil {
		t.Fatal(err)
	}
	if got, want := tr.Selects(), []int{0, -1}; !slices.Equal(got, want) {
		t.Errorf("selects = %v, want: %v", got, want)
	}
}

// slowSelect takes a while to open a port, like a real device.
type slowSelect struct {
	*miditest.Transport
	started chan struct{}
	release chan struct{}
}

func (s slowSelect) SelectPort(id int) error {
	close(s.started)
	<-s.release
	return s.Transport.SelectPort(id)
}

func TestStepDuringSelectPort(t *testing.T) {
	tr := slowSelect{
		Transport: miditest.New("keys"),
		started:   make(chan struct{}),
		release:   make(chan struct{}),
	}
	i := New(tr, quiet())
	selected := make(chan error)
	go func() { selected <- i.SelectPort(0) }()
	<-tr.started

	start := time.Now()
	i.Step()
	i.PortCount()
	i.PortName(0)
	if d := time.Since(start); d > 50*time.Millisecond {
		t.Errorf("Step() and port listing took %v while a port was opening", d)
	}
	if i.Port() != -1 {
		t.Errorf("Port() while opening = %d, want: -1", i.Port())
	}

	close(tr.release)
	if err := <-selected; err != nil {
		t.Fatal(err)
	}
	if i.Port() != 0 {
		t.Errorf("Port() = %d, want: 0", i.Port())
	}
}

func TestStepPortClosed(t *testing.T) {
	i, tr := newSelected(t)
	tr.Send(on(76, 100))
	tr.ReadErr = errors.Join(midi.ErrPortClosed, errors.New("unplugged"))
	if gate, _ := i.Step(); gate != 5 {
		t.Errorf("Step() gate = %v, want: 5", gate)
	}
	if i.Port() != -1 {
		t.Errorf("Port() after the port went away = %d, want: -1", i.Port())
	}
	// Nothing left to close.
	if err := i.Close(); err != nil {
		t.Fatal(err)
	}
	if got, want := tr.Selects(), []int{0}; !slices.Equal(got, want) {
		t.Errorf("selects = %v, want: %v", got, want)
	}
}
