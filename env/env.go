// package env provides envelope generators.
package env

import (
	"fmt"
	"time"
)

type envState byte

const (
	idle envState = iota
	attack
	decay
	sustain
	release
)

func (e envState) String() string {
	return []string{
		idle:    "x",
		attack:  "A",
		decay:   "D",
		sustain: "S",
		release: "R",
	}[e]
}

// ADSR is an attack-decay-sustain-release envelope driven by a gate. Any
// positive value in the input opens the gate and triggers the attack, which
// ramps to 1 then decays down to the sustain level. When the input drops to
// zero or below it releases from wherever it is back down to zero.
type ADSR struct {
	nAttack  int // samples
	nDecay   int
	sus      float32
	nRelease int
	state    envState
	counter  int

	gate  bool
	level float32 // last output
	from  float32 // level when the current stage began
}

func NewADSR(attack, decay time.Duration,
	sustain float32,
	release time.Duration,
	samplerate float32) *ADSR {
	return &ADSR{
		nAttack:  max(1, int(attack.Seconds()*float64(samplerate))),
		nDecay:   max(1, int(decay.Seconds()*float64(samplerate))),
		sus:      sustain,
		nRelease: max(1, int(release.Seconds()*float64(samplerate))),
	}
}

func (*ADSR) Inputs() int  { return 1 }
func (*ADSR) Outputs() int { return 1 }
func (a *ADSR) String() string {
	return fmt.Sprintf("ADSR(%v,%v,%v,%v)", a.nAttack, a.nDecay, a.sus, a.nRelease)
}

func (a *ADSR) Tick(in, out [][]float32) {
	for i, s := range in[0] {
		switch gate := s > 0; {
		case gate && !a.gate:
			a.enter(attack)
		case !gate && a.gate:
			a.enter(release)
		}
		a.gate = s > 0

		switch a.state {
		case attack:
			// Retriggering mid-release ramps up from where it is.
			a.level = a.from + (1-a.from)*pos(a.counter+1, a.nAttack)
			a.counter++
			if a.counter >= a.nAttack {
				a.enter(decay)
			}
		case decay:
			a.level = 1 - (1-a.sus)*pos(a.counter+1, a.nDecay)
			a.counter++
			if a.counter >= a.nDecay {
				a.enter(sustain)
			}
		case sustain:
			a.level = a.sus
		case release:
			a.level = a.from * (1 - pos(a.counter+1, a.nRelease))
			a.counter++
			if a.counter >= a.nRelease {
				a.enter(idle)
			}
		default:
			a.level = 0
		}
		out[0][i] = a.level
	}
}

func (a *ADSR) enter(state envState) {
	a.state = state
	a.counter = 0
	a.from = a.level
}

// pos returns how far n is through a stage of length end, between 0 and 1.
func pos(n, end int) float32 {
	return float32(n) / float32(end)
}
