package monocv

import (
	"slices"
	"testing"
)

func block(chans, n int) [][]float32 {
	b := make([][]float32, chans)
	for i := range b {
		b[i] = make([]float32, n)
	}
	return b
}

func TestSerially(t *testing.T) {
	c := Serially(
		Concurrently(Const{2}, Const{3}),
		Amp{},
		Mult{2},
		Concurrently(Noop{1}, Scale{N: 1, Mul: -1, Shift: 1}),
	)
	if c.Inputs() != 0 || c.Outputs() != 2 {
		t.Fatalf("%v: %d inputs %d outputs, want: 0 2", c, c.Inputs(), c.Outputs())
	}
	out := block(2, 16)
	c.Tick(nil, out)
	for i := range out[0] {
		if out[0][i] != 6 || out[1][i] != -5 {
			t.Fatalf("sample %d = %v, %v, want: 6, -5", i, out[0][i], out[1][i])
		}
	}
	// A shorter block afterwards still lines up.
	out = block(2, 3)
	c.Tick(nil, out)
	if !slices.Equal(out[1], []float32{-5, -5, -5}) {
		t.Errorf("short block = %v", out[1])
	}
}

func TestSeriallyBigBlock(t *testing.T) {
	c := Serially(Const{1}, Mult{2}, Scale{N: 2, Mul: 3})
	for _, n := range []int{defaultBlock + 904, 8, defaultBlock * 2} {
		out := block(2, n)
		c.Tick(nil, out)
		for ch := range out {
			if i := slices.IndexFunc(out[ch], func(v float32) bool { return v != 3 }); i >= 0 {
				t.Fatalf("%d frames: out[%d][%d] = %v, want: 3", n, ch, i, out[ch][i])
			}
		}
	}
}

func TestSeriallyMismatchPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Errorf("Serially(Const, Amp) didn't panic")
		}
	}()
	Serially(Const{1}, Amp{})
}

func TestCV(t *testing.T) {
	cv := CV(2, 10)
	in := [][]float32{{5, 0, 12}, {-0.5, 25, -11}}
	out := block(2, 3)
	cv.Tick(in, out)
	for _, c := range []struct {
		ch, i int
		want  float32
	}{
		{0, 0, 0.5},
		{0, 1, 0},
		{0, 2, 1},
		{1, 0, -0.05},
		{1, 1, 1},
		{1, 2, -1},
	} {
		if got := out[c.ch][c.i]; got != c.want {
			t.Errorf("out[%d][%d] = %v, want: %v", c.ch, c.i, got, c.want)
		}
	}
}
