// package io does audio out. On a DC-coupled interface the outputs are
// control voltages.
package io

import (
	"context"
	"encoding/binary"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gen2brain/malgo"

	"github.com/pfcm/monocv"
)

// DefaultSampleRate is used when Options leaves it zero.
const DefaultSampleRate = 44100

// Options configure Play.
type Options struct {
	// SampleRate in Hz.
	SampleRate uint32
	// Device picks the first playback device whose name contains this,
	// ignoring case. Empty means the system default.
	Device string
	Logger *log.Logger
}

func (o Options) withDefaults() Options {
	if o.SampleRate == 0 {
		o.SampleRate = DefaultSampleRate
	}
	if o.Logger == nil {
		o.Logger = log.Default()
	}
	return o
}

func initContext(logger *log.Logger) (*malgo.AllocatedContext, error) {
	return malgo.InitContext(nil, malgo.ContextConfig{}, func(msg string) {
		logger.Debug("malgo", "msg", strings.TrimSpace(msg))
	})
}

func freeContext(mctx *malgo.AllocatedContext) {
	mctx.Uninit()
	mctx.Free()
}

// Devices lists the names of the playback devices.
func Devices(logger *log.Logger) ([]string, error) {
	if logger == nil {
		logger = log.Default()
	}
	mctx, err := initContext(logger)
	if err != nil {
		return nil, err
	}
	defer freeContext(mctx)
	infos, err := mctx.Devices(malgo.Playback)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(infos))
	for i, info := range infos {
		names[i] = info.Name()
	}
	return names, nil
}

// Play runs the provided Ticker, which must have no inputs, on a playback
// device with one device channel per output. It blocks until the provided
// context is cancelled.
func Play(ctx context.Context, t monocv.Ticker, opts Options) error {
	if t.Inputs() != 0 {
		return fmt.Errorf("%v has %d inputs, want: 0", t, t.Inputs())
	}
	opts = opts.withDefaults()
	mctx, err := initContext(opts.Logger)
	if err != nil {
		return err
	}
	defer freeContext(mctx)

	cfg := malgo.DefaultDeviceConfig(malgo.Playback)
	cfg.Playback.Format = malgo.FormatF32
	cfg.Playback.Channels = uint32(t.Outputs())
	cfg.SampleRate = opts.SampleRate
	if opts.Device != "" {
		infos, err := mctx.Devices(malgo.Playback)
		if err != nil {
			return fmt.Errorf("listing playback devices: %w", err)
		}
		var found bool
		for _, info := range infos {
			if strings.Contains(strings.ToLower(info.Name()), strings.ToLower(opts.Device)) {
				cfg.Playback.DeviceID = info.ID.Pointer()
				opts.Logger.Info("using playback device", "name", info.Name())
				found = true
				break
			}
		}
		if !found {
			return fmt.Errorf("no playback device matching %q", opts.Device)
		}
	}

	r := newRenderer(t)
	device, err := malgo.InitDevice(mctx.Context, cfg, malgo.DeviceCallbacks{
		Data: func(out, _ []byte, framecount uint32) {
			r.render(out, int(framecount))
		},
	})
	if err != nil {
		return err
	}
	defer device.Uninit()
	if err := device.Start(); err != nil {
		return err
	}
	opts.Logger.Info("playing", "ticker", t, "channels", t.Outputs(), "rate", opts.SampleRate)

	<-ctx.Done()
	return nil
}

// renderer runs a Ticker into interleaved little-endian float32 frames.
type renderer struct {
	t       monocv.Ticker
	outputs [][]float32
}

func newRenderer(t monocv.Ticker) *renderer {
	outputs := make([][]float32, t.Outputs())
	for i := range outputs {
		outputs[i] = make([]float32, 4096)
	}
	return &renderer{t: t, outputs: outputs}
}

func (r *renderer) render(out []byte, frames int) {
	if frames == 0 {
		return
	}
	for i, outp := range r.outputs {
		if cap(outp) < frames {
			outp = make([]float32, frames)
		}
		r.outputs[i] = outp[:frames]
	}
	r.t.Tick(nil, r.outputs)

	o := out[:0]
	for i := 0; i < frames; i++ {
		for c := range r.outputs {
			o = binary.LittleEndian.AppendUint32(o, math.Float32bits(r.outputs[c][i]))
		}
	}
}
