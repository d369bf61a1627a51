package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	stdio "io"
	"math"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"

	"github.com/pfcm/monocv"
	"github.com/pfcm/monocv/config"
	"github.com/pfcm/monocv/env"
	"github.com/pfcm/monocv/hid"
	"github.com/pfcm/monocv/io"
	"github.com/pfcm/monocv/midi"
	"github.com/pfcm/monocv/midi/portmidi"
	"github.com/pfcm/monocv/midi/rtmidi"
	"github.com/pfcm/monocv/midi/uart"
	"github.com/pfcm/monocv/mono"
	"github.com/pfcm/monocv/osc"
	"github.com/pfcm/monocv/tui"
)

var (
	configFlag      = flag.String("config", "", "config file, defaults to ~/.config/monocv/config.json")
	transportFlag   = flag.String("transport", "", "midi transport: portmidi, rtmidi or uart")
	portFlag        = flag.String("port", "", "midi input to open, by name")
	channelFlag     = flag.Int("channel", 0, "midi channel to listen on, 0-15")
	deviceFlag      = flag.String("device", "", "playback device, by name")
	listDevicesFlag = flag.Bool("list-devices", false, "list the playback devices and exit")
	monitorFlag     = flag.Bool("monitor", false, "play an audible voice instead of control voltages")
	waveFlag        = flag.String("wave", "", "monitor voice wave: saw, square or sine")
	headlessFlag    = flag.Bool("headless", false, "no port picker, just print the signals")
	debugFlag       = flag.Bool("debug", false, "log every midi message")
	logFlag         = flag.String("log", "", "log file, defaults to stderr when headless and monocv.log in the config directory otherwise")
	saveFlag        = flag.Bool("save", false, "write the resulting config back to the config file")
	profileFlag     = flag.Bool("profile", false, "whether to write pprof profiles to the current working directory")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() (err error) {
	if *listDevicesFlag {
		names, err := io.Devices(nil)
		if err != nil {
			return fmt.Errorf("listing playback devices: %w", err)
		}
		for _, name := range names {
			fmt.Println(name)
		}
		return nil
	}

	cfg, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer closeLog()

	if *saveFlag {
		if err := saveConfig(cfg); err != nil {
			return fmt.Errorf("saving config: %w", err)
		}
		logger.Info("saved config")
	}

	if *profileFlag {
		finish, err := startProfiles()
		if err != nil {
			return fmt.Errorf("starting profiling: %w", err)
		}
		defer func() {
			if ferr := finish(); ferr != nil {
				err = errors.Join(err, fmt.Errorf("finishing profiles: %w", ferr))
			}
		}()
	}

	t, refresh, err := openTransport(cfg, logger)
	if err != nil {
		return fmt.Errorf("opening %s: %w", cfg.Transport, err)
	}
	defer func() { err = errors.Join(err, t.Close()) }()

	engine := mono.New()
	if err := engine.SetChannel(cfg.Channel); err != nil {
		return err
	}
	host := hid.New(t,
		hid.WithEngine(engine),
		hid.WithLogger(logger),
		hid.WithBatchSize(cfg.BatchSize),
		hid.WithResetOnPortChange(cfg.ResetOnPortChange),
	)
	defer func() { err = errors.Join(err, host.Close()) }()
	selectInitialPort(host, cfg, logger)

	signals, err := signalChain(host, cfg)
	if err != nil {
		return err
	}
	meter := newMeter(signals.Outputs())
	ch := monocv.Serially(signals, meter)

	ctx, cancel := context.WithCancel(interruptContext())
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return io.Play(ctx, ch, io.Options{
			SampleRate: cfg.Audio.SampleRate,
			Device:     cfg.Audio.Device,
			Logger:     logger,
		})
	})
	if *headlessFlag {
		g.Go(func() error {
			return printStatus(ctx, host, meter)
		})
	} else {
		g.Go(func() error {
			defer cancel()
			p := tea.NewProgram(tui.NewModel(host, refresh, 50*time.Millisecond), tea.WithContext(ctx))
			_, err := p.Run()
			if ctx.Err() != nil {
				// Interrupted or audio failed; either way not the UI's fault.
				return nil
			}
			return err
		})
	}
	return g.Wait()
}

// loadConfig reads the config file and applies any flags that were set.
func loadConfig() (*config.Config, error) {
	var cfg *config.Config
	var err error
	if *configFlag == "" {
		cfg, err = config.Load()
	} else {
		cfg, err = config.LoadFile(*configFlag)
	}
	if err != nil {
		return nil, err
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "transport":
			cfg.Transport = config.Transport(*transportFlag)
		case "port":
			cfg.Port = *portFlag
		case "channel":
			cfg.Channel = *channelFlag
		case "device":
			cfg.Audio.Device = *deviceFlag
		case "monitor":
			cfg.Audio.Monitor = *monitorFlag
		case "wave":
			cfg.Audio.Wave = *waveFlag
		case "debug":
			cfg.Debug = *debugFlag
		}
	})
	return cfg, cfg.Validate()
}

func saveConfig(cfg *config.Config) error {
	if *configFlag == "" {
		return cfg.Save()
	}
	return cfg.SaveFile(*configFlag)
}

func newLogger(cfg *config.Config) (*log.Logger, func(), error) {
	var w stdio.Writer = os.Stderr
	closeLog := func() {}
	path := *logFlag
	if path == "" && !*headlessFlag {
		// Anything on stderr would scribble over the UI.
		dir, err := config.ConfigDir()
		if err != nil {
			return nil, nil, err
		}
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, nil, err
		}
		path = filepath.Join(dir, "monocv.log")
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return nil, nil, err
		}
		w = f
		closeLog = func() { f.Close() }
	}
	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "monocv",
	})
	if cfg.Debug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger, closeLog, nil
}

// openTransport opens the configured transport. The returned refresh
// function, which may be nil, rescans for devices.
func openTransport(cfg *config.Config, logger *log.Logger) (midi.Transport, func() error, error) {
	switch cfg.Transport {
	case config.PortMidi:
		t, err := portmidi.Open()
		return t, nil, err
	case config.RtMidi:
		t, err := rtmidi.Open(logger)
		return t, nil, err
	case config.UART:
		t, err := uart.Open(cfg.Baud, logger)
		if err != nil {
			return nil, nil, err
		}
		return t, t.Refresh, nil
	}
	return nil, nil, fmt.Errorf("unknown transport %q", cfg.Transport)
}

func selectInitialPort(host *hid.Interface, cfg *config.Config, logger *log.Logger) {
	for i := 0; i < host.PortCount(); i++ {
		logger.Debug("midi input", "id", i, "name", host.PortName(i))
	}
	id := -1
	switch {
	case cfg.Port != "":
		if id = midi.FindPort(host, cfg.Port); id < 0 {
			logger.Warn("no midi input matching", "port", cfg.Port)
		}
	case *headlessFlag && host.PortCount() > 0:
		// Nobody to pick one, so take the first.
		id = 0
	}
	if id < 0 {
		return
	}
	if err := host.SelectPort(id); err != nil {
		logger.Error("opening midi input", "id", id, "err", err)
	}
}

// signalChain turns the host's gate and pitch into device channels: either
// the raw voltages scaled for a DC-coupled interface, or a voice through an
// envelope on both channels.
func signalChain(host *hid.Interface, cfg *config.Config) (monocv.Ticker, error) {
	if !cfg.Audio.Monitor {
		return monocv.Serially(host, monocv.CV(2, cfg.Audio.FullScaleVolts)), nil
	}
	sr := float32(cfg.Audio.SampleRate)
	voice, err := osc.New(cfg.Audio.Wave, sr, 0)
	if err != nil {
		return nil, err
	}
	return monocv.Serially(
		host,
		monocv.Concurrently(
			env.NewADSR(
				10*time.Millisecond,
				200*time.Millisecond,
				0.6,
				300*time.Millisecond,
				sr),
			voice,
		),
		monocv.Amp{},
		monocv.Scale{N: 1, Mul: 0.3},
		monocv.Mult{N: 2},
	), nil
}

func printStatus(ctx context.Context, host *hid.Interface, m *meter) error {
	t0 := time.Now()
	t := time.NewTicker(100 * time.Millisecond)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			fmt.Println()
			return nil
		case <-t.C:
			gate, pitch := host.Signals()
			st := host.State()
			var s []string
			for _, f := range m.getRMS() {
				s = append(s, fmt.Sprintf("%.2f", f))
			}
			fmt.Printf("\r%.1f: gate %.0fV pitch %+.3fV %-4s rms %v   ",
				time.Since(t0).Seconds(), gate, pitch, mono.NoteName(st.Note), s)
		}
	}
}

// meter passes its inputs through untouched, keeping a smoothed RMS level
// of each channel.
type meter struct {
	channels int

	mu  sync.Mutex
	rms []float32
}

func newMeter(channels int) *meter {
	return &meter{
		channels: channels,
		rms:      make([]float32, channels),
	}
}

func (m *meter) Inputs() int    { return m.channels }
func (m *meter) Outputs() int   { return m.channels }
func (m *meter) String() string { return fmt.Sprintf("meter(%d)", m.channels) }

func (m *meter) Tick(in, out [][]float32) {
	for i, inp := range in {
		copy(out[i], inp)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, channel := range in {
		if len(channel) == 0 {
			continue
		}
		rms := float64(0)
		for _, s := range channel {
			rms += float64(s) * float64(s)
		}
		rms /= float64(len(channel))
		m.rms[i] = 0.01*m.rms[i] + 0.99*float32(math.Sqrt(rms))
	}
}

func (m *meter) getRMS() []float32 {
	results := make([]float32, m.channels)
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(results, m.rms)
	return results
}

func interruptContext() context.Context {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	go func() {
		<-ctx.Done()
		cancel()
	}()
	return ctx
}

func startProfiles() (func() error, error) {
	cpu, err := os.Create("cpu.pprof")
	if err != nil {
		return nil, err
	}
	if err := pprof.StartCPUProfile(cpu); err != nil {
		return nil, fmt.Errorf("starting cpu profile: %w", err)
	}

	mem, err := os.Create("mem.pprof")
	if err != nil {
		return nil, err
	}
	return func() error {
		pprof.StopCPUProfile()
		if err := cpu.Close(); err != nil {
			return err
		}
		runtime.GC()
		if err := pprof.WriteHeapProfile(mem); err != nil {
			return err
		}
		return mem.Close()
	}, nil
}
