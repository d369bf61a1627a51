package midi

// Parser turns a raw MIDI byte stream, as it arrives on a serial line, into
// channel messages. It understands running status and lets real-time bytes
// interrupt a message. System common and SysEx messages are skipped.
type Parser struct {
	running Status // 0 if there is no running status
	channel byte
	data    [2]byte
	n       int  // data bytes collected for the current message
	sysex   bool // inside a SysEx dump
}

// Feed consumes one byte. It returns a message and true when the byte
// completes one.
func (p *Parser) Feed(b byte) (Message, bool) {
	switch {
	case b >= 0xF8:
		// Real-time: may appear anywhere, doesn't touch running status.
		return Message{}, false
	case b >= 0xF0:
		// System common and SysEx cancel running status.
		p.running, p.n = 0, 0
		p.sysex = b == 0xF0
		return Message{}, false
	case b >= 0x80:
		p.running = Status(b >> 4)
		p.channel = b & 0xF
		p.n = 0
		p.sysex = false
		return Message{}, false
	}

	if p.sysex || p.running == 0 {
		// SysEx payload or a stray data byte.
		return Message{}, false
	}
	p.data[p.n] = b
	p.n++
	if p.n < p.running.dataBytes() {
		return Message{}, false
	}
	p.n = 0
	m := Message{
		Channel: p.channel,
		Status:  p.running,
		Data1:   p.data[0],
	}
	if p.running.dataBytes() > 1 {
		m.Data2 = p.data[1]
	}
	return m, true
}

// Write feeds every byte in b, calling f with each completed message.
func (p *Parser) Write(b []byte, f func(Message)) {
	for _, c := range b {
		if m, ok := p.Feed(c); ok {
			f(m)
		}
	}
}
