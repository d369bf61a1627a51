package midi

import (
	"errors"
	"fmt"

	"golang.org/x/exp/constraints"
)

// Status is the high nibble of a MIDI 1.0 status byte. For channel messages it
// identifies the kind of message; the low nibble is the channel.
type Status byte

const (
	NoteOff Status = 0x8 + Status(iota)
	NoteOn
	PolyPressure
	ControlChange
	ProgramChange
	ChannelPressure
	PitchBend
	System
)

func (s Status) String() string {
	switch s {
	case NoteOff:
		return "NoteOff"
	case NoteOn:
		return "NoteOn"
	case PolyPressure:
		return "PolyPressure"
	case ControlChange:
		return "ControlChange"
	case ProgramChange:
		return "ProgramChange"
	case ChannelPressure:
		return "ChannelPressure"
	case PitchBend:
		return "PitchBend"
	case System:
		return "System"
	}
	return fmt.Sprintf("Status(%#x)", byte(s))
}

// dataBytes is how many data bytes follow a status byte of the given kind.
// System messages are variable and handled separately.
func (s Status) dataBytes() int {
	switch s {
	case ProgramChange, ChannelPressure:
		return 1
	case System:
		return 0
	}
	return 2
}

// Message is a decoded MIDI 1.0 short message.
type Message struct {
	Channel byte // 0-15
	Status  Status
	// MIDI note for note on/note off/poly pressure, but also controller
	// index for control change and program for program change. The fine
	// byte for pitch bend.
	Data1 byte
	// Velocity for note {on, off}, controller value, coarse pitch bend.
	Data2 byte
}

// Decode splits a packed short message into its fields. The packing is the
// one PortMidi uses: the status byte in the lowest 8 bits, then data1, then
// data2. Nothing is validated; see Valid.
func Decode(raw uint32) Message {
	return Message{
		Channel: byte(raw & 0xF),
		Status:  Status((raw >> 4) & 0xF),
		Data1:   byte((raw >> 8) & 0xFF),
		Data2:   byte((raw >> 16) & 0xFF),
	}
}

// Pack is the inverse of Decode.
func (m Message) Pack() uint32 {
	return uint32(m.Channel&0xF) |
		uint32(m.Status&0xF)<<4 |
		uint32(m.Data1)<<8 |
		uint32(m.Data2)<<16
}

// FromFields builds a Message from a status byte and two data bytes held in
// wider integers, as some drivers deliver them. Only the low 8 bits of each
// are used.
func FromFields[T constraints.Integer](status, data1, data2 T) Message {
	return Decode(uint32(byte(status)) | uint32(byte(data1))<<8 | uint32(byte(data2))<<16)
}

var errNoStatus = errors.New("message does not start with a status byte")

// FromBytes decodes a raw short message. Missing data bytes are left zero.
func FromBytes(b []byte) (Message, error) {
	if len(b) == 0 {
		return Message{}, errors.New("empty message")
	}
	if b[0]&0x80 == 0 {
		return Message{}, fmt.Errorf("%#02x: %w", b[0], errNoStatus)
	}
	m := Message{
		Channel: b[0] & 0xF,
		Status:  Status(b[0] >> 4),
	}
	if len(b) > 1 {
		m.Data1 = b[1]
	}
	if len(b) > 2 && m.Status.dataBytes() > 1 {
		m.Data2 = b[2]
	}
	return m, nil
}

// Valid reports whether both data bytes fit in 7 bits and the status is a
// real status nibble.
func (m Message) Valid() bool {
	return m.Status >= NoteOff && m.Status <= System &&
		m.Channel < 16 && m.Data1 < 0x80 && m.Data2 < 0x80
}

func (m Message) String() string {
	return fmt.Sprintf("channel %d status %v data1 %d data2 %d",
		m.Channel, m.Status, m.Data1, m.Data2)
}
