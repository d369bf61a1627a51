// package osc provides oscillators.
package osc

import (
	"fmt"
	"math"

	"github.com/pfcm/monocv"
	"github.com/pfcm/monocv/interp"
	"github.com/pfcm/monocv/mono"
)

// Table is a wavetable oscillator. It receives a single input, a pitch in
// volts per octave where 0 V is mono.DefaultNote, and has one output, an
// appropriate block of samples.
type Table struct {
	tab        []float32
	phase      float32
	samplerate float32
	// Transpose shifts the pitch by this many semitones.
	Transpose float32
	nn        bool
	name      string
}

var _ monocv.Ticker = &Table{}

func (t *Table) Inputs() int    { return 1 }
func (t *Table) Outputs() int   { return 1 }
func (t *Table) String() string { return fmt.Sprintf("osc.%s(%v)", t.name, t.Transpose) }

func (t *Table) Tick(in, out [][]float32) {
	for i, pitch := range in[0] {
		j := int(t.phase)
		if t.nn {
			out[0][i] = t.tab[j]
		} else {
			k := (j + 1) % len(t.tab)
			out[0][i] = interp.L(t.tab[j], t.tab[k], t.phase-float32(j))
		}
		t.phase += t.step(pitch)
		for t.phase >= float32(len(t.tab)) {
			t.phase -= float32(len(t.tab))
		}
	}
}

// Waves names the tables New can make.
var Waves = []string{"saw", "square", "sine"}

// New makes the named wave, one of Waves.
func New(wave string, samplerate, transpose float32) (*Table, error) {
	switch wave {
	case "saw":
		return Saw(samplerate, transpose), nil
	case "square":
		return Square(samplerate, transpose), nil
	case "sine":
		return Sine(samplerate, transpose), nil
	}
	return nil, fmt.Errorf("unknown wave %q (want one of %v)", wave, Waves)
}

// Sine returns a Table initialised with a sensible sine wave.
func Sine(samplerate, transpose float32) *Table {
	const n = 128
	table := make([]float32, n)
	for i := range table {
		table[i] = float32(math.Sin(math.Pi / float64(n/2) * float64(i)))
	}
	return &Table{
		tab:        table,
		samplerate: samplerate,
		Transpose:  transpose,
		name:       "Sine",
	}
}

func Square(samplerate, transpose float32) *Table {
	return &Table{
		tab:        []float32{1, -1},
		samplerate: samplerate,
		Transpose:  transpose,
		nn:         true,
		name:       "Square",
	}
}

func Saw(samplerate, transpose float32) *Table {
	const n = 256
	table := make([]float32, 0, n)
	for i := -n / 2; i < n/2; i++ {
		table = append(table, float32(i)/(n/2))
	}
	return &Table{
		tab:        table,
		samplerate: samplerate,
		Transpose:  transpose,
		nn:         true,
		name:       "Saw",
	}
}

// Freq is the frequency in Hz of a pitch in volts per octave, with 0 V at
// mono.DefaultNote and A4 (note 69) at 440 Hz.
func Freq(pitch, transpose float32) float64 {
	n := float64(mono.DefaultNote) + 12*float64(pitch) + float64(transpose)
	return math.Pow(2.0, (n-69)/12) * 440
}

// step calculates how far through the table to advance per output sample to
// play the provided pitch.
func (t *Table) step(pitch float32) float32 {
	// freq is in tables per second, calculate how many samples from the
	// table we need per second.
	tableSamplesPerSecond := float64(len(t.tab)) * Freq(pitch, t.Transpose)
	// table samples per output sample is therefore the rate we need to advance
	// through the table.
	return float32(tableSamplesPerSecond / float64(t.samplerate))
}
