// package mono turns MIDI performance into monophonic gate and pitch signals.
package mono

import (
	"errors"
	"fmt"

	"github.com/pfcm/monocv/midi"
)

const (
	// DefaultNote is the note the pitch output sits at before anything is
	// played, and the note that produces a pitch of 0.
	DefaultNote = 64
	// CenterPitchWheel is the coarse pitch wheel value that bends nothing.
	CenterPitchWheel = 64
	// GateHigh is the gate level while a note sounds.
	GateHigh = 5.0
	// Sustain is the controller number of the sustain pedal.
	Sustain = 0x40
	// DefaultChannel is the channel an Engine listens on unless told
	// otherwise.
	DefaultChannel = 0
)

// noNote is passed to release to re-run the release decision without taking
// anything out of the stack.
const noNote = -1

// ErrInvalidArgument is returned for note, controller and pitch wheel values
// outside 0-127, channels outside 0-15 and for messages with 8-bit data
// bytes.
var ErrInvalidArgument = errors.New("invalid argument")

// State is a snapshot of an Engine.
type State struct {
	Note       int
	Gate       bool
	Pedal      bool
	PitchWheel int
	// Held is the note stack, oldest first.
	Held []int
}

// Engine tracks which single note should be sounding, using last-note
// priority and honouring the sustain pedal. It is not safe for concurrent
// use.
type Engine struct {
	channel int

	notes      NoteStack
	note       int
	gate       bool
	pedal      bool
	pitchWheel int
}

func New() *Engine {
	return &Engine{
		channel:    DefaultChannel,
		note:       DefaultNote,
		pitchWheel: CenterPitchWheel,
	}
}

// SetChannel makes the Engine listen on ch, 0-15, instead of DefaultChannel.
func (e *Engine) SetChannel(ch int) error {
	if ch < 0 || ch > 15 {
		return fmt.Errorf("channel %d: %w", ch, ErrInvalidArgument)
	}
	e.channel = ch
	return nil
}

// Channel is the MIDI channel the Engine listens on.
func (e *Engine) Channel() int { return e.channel }

func check(what string, v int) error {
	if v < 0 || v > 127 {
		return fmt.Errorf("%s %d: %w", what, v, ErrInvalidArgument)
	}
	return nil
}

// Press makes note the sounding note and opens the gate, whatever the pedal
// is doing. Pressing a held note again moves it to the top of the stack.
func (e *Engine) Press(note int) error {
	if err := check("note", note); err != nil {
		return err
	}
	e.notes.Push(note)
	e.gate = true
	e.note = note
	return nil
}

// Release lets go of note. Releasing a note that isn't held is allowed.
func (e *Engine) Release(note int) error {
	if err := check("note", note); err != nil {
		return err
	}
	e.release(note)
	return nil
}

func (e *Engine) release(note int) {
	if note != noNote {
		e.notes.Remove(note)
	}
	switch top, held := e.notes.Top(); {
	case e.pedal:
		// Sustained: keep sounding whatever was sounding.
	case held:
		e.note = top
	default:
		// The note stays put so the pitch doesn't jump during a
		// release.
		e.gate = false
	}
}

// SetPedal sets the sustain pedal. Lifting it settles any releases that
// happened while it was down.
func (e *Engine) SetPedal(held bool) {
	e.pedal = held
	e.release(noNote)
}

// SetPitchWheel sets the coarse pitch wheel position.
func (e *Engine) SetPitchWheel(v int) error {
	if err := check("pitch wheel", v); err != nil {
		return err
	}
	e.pitchWheel = v
	return nil
}

// Process applies one message. Messages for other channels and kinds of
// message the Engine doesn't use are ignored.
func (e *Engine) Process(m midi.Message) error {
	if int(m.Channel) != e.channel {
		return nil
	}
	if !m.Valid() {
		return fmt.Errorf("%v: %w", m, ErrInvalidArgument)
	}
	switch m.Status {
	case midi.NoteOff:
		return e.Release(int(m.Data1))
	case midi.NoteOn:
		// Plenty of keyboards send note on with zero velocity for
		// note off.
		if m.Data2 == 0 {
			return e.Release(int(m.Data1))
		}
		return e.Press(int(m.Data1))
	case midi.ControlChange:
		if m.Data1 == Sustain {
			e.SetPedal(m.Data2 >= 64)
		}
	case midi.PitchBend:
		// Only the coarse byte.
		return e.SetPitchWheel(int(m.Data2))
	}
	return nil
}

// Signals returns the gate level and the pitch. The pitch is 1/12 per
// semitone from DefaultNote, plus up to 2 semitones either way from the
// pitch wheel.
func (e *Engine) Signals() (gate, pitch float64) {
	if e.gate {
		gate = GateHigh
	}
	pitch = (float64(e.note-DefaultNote) + 2.0*float64(e.pitchWheel-CenterPitchWheel)/64.0) / 12.0
	return gate, pitch
}

// Reset lets go of everything: the stack empties, the pedal lifts, the gate
// closes and the pitch wheel centres. The note is left alone.
func (e *Engine) Reset() {
	e.notes.Clear()
	e.pedal = false
	e.gate = false
	e.pitchWheel = CenterPitchWheel
}

func (e *Engine) State() State {
	return State{
		Note:       e.note,
		Gate:       e.gate,
		Pedal:      e.pedal,
		PitchWheel: e.pitchWheel,
		Held:       e.notes.Notes(),
	}
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

// NoteName names a MIDI note with middle C (60) as C4.
func NoteName(n int) string {
	if n < 0 || n > 127 {
		return fmt.Sprintf("?%d", n)
	}
	return fmt.Sprintf("%s%d", noteNames[n%12], n/12-1)
}
