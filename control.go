package monocv

import (
	"fmt"
)

// tickFn is a generic ticker that helps us avoid some boilerplate.
type tickFn struct {
	name            string
	inputs, outputs int
	tick            func([][]float32, [][]float32)
}

func (t tickFn) Inputs() int           { return t.inputs }
func (t tickFn) Outputs() int          { return t.outputs }
func (t tickFn) String() string        { return t.name }
func (t tickFn) Tick(i, o [][]float32) { t.tick(i, o) }

// Clip creates a Ticker that limits each of n channels to [lo, hi].
func Clip(n int, lo, hi float32) Ticker {
	return tickFn{
		name:    fmt.Sprintf("Clip%d(%v,%v)", n, lo, hi),
		inputs:  n,
		outputs: n,
		tick: func(in, out [][]float32) {
			for c := range in {
				for i, v := range in[c] {
					out[c][i] = min(max(v, lo), hi)
				}
			}
		},
	}
}

// CV converts n channels of control voltages into device sample values for a
// DC-coupled interface whose full scale is fullScale volts.
func CV(n int, fullScale float32) Ticker {
	return Serially(
		Scale{N: n, Mul: 1 / fullScale},
		Clip(n, -1, 1),
	)
}
