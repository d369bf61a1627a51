package osc

import (
	"math"
	"strings"
	"testing"
)

func TestFreq(t *testing.T) {
	for _, c := range []struct {
		pitch, transpose float32
		want             float64
	}{
		{5.0 / 12, 0, 440},
		{5.0/12 + 1, 0, 880},
		{5.0/12 - 1, 0, 220},
		{0, 5, 440},
		{0, 0, 329.6275569},
	} {
		if got := Freq(c.pitch, c.transpose); math.Abs(got-c.want) > 1e-4 {
			t.Errorf("Freq(%v, %v) = %v, want: %v", c.pitch, c.transpose, got, c.want)
		}
	}
}

func TestSineFollowsPitch(t *testing.T) {
	const sr = 44100
	s := Sine(sr, 0)
	in := [][]float32{make([]float32, sr)}
	for i := range in[0] {
		in[0][i] = 5.0 / 12
	}
	out := [][]float32{make([]float32, sr)}
	s.Tick(in, out)

	crossings := 0
	for i := 1; i < len(out[0]); i++ {
		if out[0][i-1] < 0 && out[0][i] >= 0 {
			crossings++
		}
	}
	if crossings < 439 || crossings > 441 {
		t.Errorf("%d upward zero crossings in a second at 440Hz", crossings)
	}
}

func TestSawRange(t *testing.T) {
	s := Saw(48000, 0)
	in := [][]float32{make([]float32, 4096)}
	out := [][]float32{make([]float32, 4096)}
	for i := range in[0] {
		in[0][i] = float32(i%7) - 3
	}
	s.Tick(in, out)
	for i, v := range out[0] {
		if v < -1 || v >= 1 {
			t.Fatalf("sample %d = %v, outside [-1, 1)", i, v)
		}
	}
}

func TestNew(t *testing.T) {
	for _, wave := range Waves {
		tab, err := New(wave, 44100, 0)
		if err != nil {
			t.Fatalf("New(%q): %v", wave, err)
		}
		if got := strings.ToLower(tab.String()); !strings.HasPrefix(got, "osc."+wave) {
			t.Errorf("New(%q) = %v", wave, tab)
		}
	}
	if _, err := New("triangle", 44100, 0); err == nil {
		t.Errorf("New(triangle) succeeded")
	}
}

func TestSquareFollowsPitch(t *testing.T) {
	const sr = 44100
	s := Square(sr, 0)
	in := [][]float32{make([]float32, sr)}
	for i := range in[0] {
		in[0][i] = 5.0 / 12 // A4
	}
	out := [][]float32{make([]float32, sr)}
	s.Tick(in, out)
	rises := 0
	for i := 1; i < sr; i++ {
		if out[0][i] != 1 && out[0][i] != -1 {
			t.Fatalf("sample %d = %v, want: ±1", i, out[0][i])
		}
		if out[0][i-1] < 0 && out[0][i] > 0 {
			rises++
		}
	}
	if rises < 439 || rises > 441 {
		t.Errorf("%d rising edges in a second, want: 440", rises)
	}
}
