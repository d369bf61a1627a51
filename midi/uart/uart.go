// package uart reads MIDI from a serial port, like a DIN socket wired to a
// UART or a USB serial adapter.
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"go.bug.st/serial"

	"github.com/pfcm/monocv/midi"
)

// BaudRate is the MIDI 1.0 wire rate.
const BaudRate = 31250

// Transport is a midi.Transport over serial ports. Each port is a byte
// stream that gets parsed with running status.
type Transport struct {
	baud int
	log  *log.Logger

	// selecting serialises port changes, which wait on the device. mu is
	// held only briefly, so Read never waits for them.
	selecting sync.Mutex
	mu        sync.Mutex
	ports     []string
	conn      *conn
}

// conn is an open port and the goroutine reading it.
type conn struct {
	port   io.Closer
	queue  *midi.Queue
	cancel context.CancelFunc
	done   <-chan error
}

// close stops the reader and closes the port.
func (c *conn) close() error {
	c.cancel()
	err := <-c.done
	if errors.Is(err, context.Canceled) {
		err = nil
	}
	return errors.Join(err, c.port.Close())
}

var _ midi.Transport = &Transport{}

// Open lists the serial ports. A baud rate of 0 means BaudRate; anything
// else suits adapters that can't do 31250.
func Open(baud int, logger *log.Logger) (*Transport, error) {
	if baud == 0 {
		baud = BaudRate
	}
	if logger == nil {
		logger = log.Default()
	}
	t := &Transport{baud: baud, log: logger}
	if err := t.Refresh(); err != nil {
		return nil, err
	}
	return t, nil
}

// Refresh lists the serial ports again.
func (t *Transport) Refresh() error {
	ports, err := serial.GetPortsList()
	if err != nil {
		return fmt.Errorf("listing serial ports: %w", err)
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.ports = ports
	return nil
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
	t.selecting.Lock()
	defer t.selecting.Unlock()

	old := t.detach()
	t.mu.Lock()
	n := len(t.ports)
	var name string
	if id >= 0 && id < n {
		name = t.ports[id]
	}
	t.mu.Unlock()

	if old != nil {
		// A reader that already failed shouldn't stop the switch.
		if err := old.close(); err != nil {
			t.log.Warn("closing serial port", "err", err)
		}
	}
	if id < 0 {
		return nil
	}
	if id >= n {
		return fmt.Errorf("no serial port %d (%d available)", id, n)
	}
	p, err := serial.Open(name, &serial.Mode{BaudRate: t.baud})
	if err != nil {
		return fmt.Errorf("opening %s: %w", name, err)
	}
	// Reads wake up regularly to notice when to stop.
	if err := p.SetReadTimeout(100 * time.Millisecond); err != nil {
		p.Close()
		return fmt.Errorf("configuring %s: %w", name, err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	c := &conn{port: p, cancel: cancel}
	c.queue, c.done = midi.Listen(ctx, Listener(p), midi.DefaultQueueSize)

	t.mu.Lock()
	t.conn = c
	t.mu.Unlock()
	t.log.Info("opened serial port", "name", name, "baud", t.baud)
	return nil
}

func (t *Transport) Read(max int) ([]midi.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.conn
	if c == nil {
		return nil, nil
	}
	select {
	case err := <-c.done:
		// The reader gave up, most likely the device went away.
		t.conn = nil
		c.cancel()
		msgs := c.queue.Read(max)
		return msgs, errors.Join(midi.ErrPortClosed, err, c.port.Close())
	default:
	}
	return c.queue.Read(max), nil
}

func (t *Transport) Close() error {
	t.selecting.Lock()
	defer t.selecting.Unlock()
	if old := t.detach(); old != nil {
		return old.close()
	}
	return nil
}

// detach takes the open connection, if any, so it can be closed without
// holding mu.
func (t *Transport) detach() *conn {
	t.mu.Lock()
	defer t.mu.Unlock()
	c := t.conn
	t.conn = nil
	return c
}

func (t *Transport) String() string { return "uart" }

// Listener parses the MIDI byte stream coming out of r until the context is
// done or a read fails. A read that returns no bytes and no error is taken as
// a timeout.
func Listener(r io.Reader) midi.Listener {
	return func(ctx context.Context, f func(midi.Message)) error {
		var p midi.Parser
		buf := make([]byte, 64)
		for {
			if err := ctx.Err(); err != nil {
				return err
			}
			n, err := r.Read(buf)
			p.Write(buf[:n], f)
			if err != nil {
				return err
			}
		}
	}
}
