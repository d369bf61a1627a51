package interp

import (
	"testing"
)

func TestL(t *testing.T) {
	for _, c := range []struct {
		a, b, c float64
		out     float64
	}{
		{a: 0, b: 1, c: 0.5, out: 0.5},
		{a: -0.5, b: 0.5, c: 0.5, out: 0},
		{a: 2, b: 4, c: 0, out: 2},
		{a: 2, b: 4, c: 1, out: 4},
		{a: 1, b: -1, c: 0.25, out: 0.5},
	} {
		got := L(c.a, c.b, c.c)
		if got != c.out {
			t.Errorf("L(%v, %v, %v) = %v, want: %v", c.a, c.b, c.c, got, c.out)
		}
	}
	if got := L[float32](0, 8, 0.125); got != 1 {
		t.Errorf("L[float32](0, 8, 0.125) = %v, want: 1", got)
	}
}
