package io

import (
	"context"
	"encoding/binary"
	"math"
	"testing"

	"github.com/pfcm/monocv"
)

func frames(b []byte) []float32 {
	var out []float32
	for i := 0; i+4 <= len(b); i += 4 {
		out = append(out, math.Float32frombits(binary.LittleEndian.Uint32(b[i:])))
	}
	return out
}

func TestRender(t *testing.T) {
	r := newRenderer(monocv.Concurrently(monocv.Const{0.5}, monocv.Const{-0.25}))
	for _, n := range []int{3, 5000, 1} {
		out := make([]byte, n*2*4)
		r.render(out, n)
		got := frames(out)
		for i, f := range got {
			want := float32(0.5)
			if i%2 == 1 {
				want = -0.25
			}
			if f != want {
				t.Fatalf("%d frames: sample %d = %v, want: %v", n, i, f, want)
			}
		}
	}
}

func TestRenderChain(t *testing.T) {
	// Device periods can be bigger than a Chain starts out with.
	r := newRenderer(monocv.Serially(monocv.Const{0.5}, monocv.Mult{N: 2}))
	const n = 6000
	out := make([]byte, n*2*4)
	r.render(out, n)
	for i, f := range frames(out) {
		if f != 0.5 {
			t.Fatalf("sample %d = %v, want: 0.5", i, f)
		}
	}
}

func TestRenderNothing(t *testing.T) {
	r := newRenderer(monocv.Const{1})
	out := []byte{1, 2, 3, 4}
	r.render(out, 0)
	if out[0] != 1 {
		t.Errorf("render with no frames wrote %v", out)
	}
}

func TestPlayRejectsInputs(t *testing.T) {
	if err := Play(context.Background(), monocv.Amp{}, Options{}); err == nil {
		t.Errorf("Play(Amp) succeeded")
	}
}
