// command midi checks that midi is working.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/charmbracelet/log"

	"github.com/pfcm/monocv/midi"
	"github.com/pfcm/monocv/midi/portmidi"
	"github.com/pfcm/monocv/midi/rtmidi"
	"github.com/pfcm/monocv/midi/uart"
)

var (
	transportFlag = flag.String("transport", "portmidi", "midi transport: portmidi, rtmidi or uart")
	listFlag      = flag.Bool("list", false, "list the inputs and exit")
	portFlag      = flag.String("port", "", "input to open, by name; defaults to the first")
	baudFlag      = flag.Int("baud", uart.BaudRate, "baud rate for uart")
)

func open(logger *log.Logger) (midi.Transport, error) {
	switch *transportFlag {
	case "portmidi":
		return portmidi.Open()
	case "rtmidi":
		return rtmidi.Open(logger)
	case "uart":
		return uart.Open(*baudFlag, logger)
	}
	return nil, fmt.Errorf("unknown transport %q", *transportFlag)
}

func main() {
	flag.Parse()
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "midi"})

	t, err := open(logger)
	if err != nil {
		logger.Fatal("Opening transport", "err", err)
	}
	defer t.Close()

	if *listFlag {
		for i := 0; i < t.PortCount(); i++ {
			fmt.Printf("%d: %s\n", i, t.PortName(i))
		}
		return
	}

	id := 0
	if *portFlag != "" {
		id = midi.FindPort(t, *portFlag)
	}
	if id < 0 || id >= t.PortCount() {
		logger.Fatal("No such input", "port", *portFlag, "available", t.PortCount())
	}
	if err := t.SelectPort(id); err != nil {
		logger.Fatal("Opening input", "err", err)
	}
	logger.Info("listening", "port", t.PortName(id))

	ctx := interruptContext()
	tick := time.NewTicker(time.Millisecond)
	defer tick.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("all done")
			return
		case <-tick.C:
		}
		msgs, err := t.Read(midi.DefaultQueueSize)
		if err != nil {
			logger.Error("reading", "err", err)
		}
		for _, m := range msgs {
			fmt.Println(m)
		}
	}
}

func interruptContext() context.Context {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ctx
}
