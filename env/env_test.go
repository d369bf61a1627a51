package env

import (
	"testing"
	"time"
)

func gate(high, low int) [][]float32 {
	g := make([]float32, high+low)
	for i := 0; i < high; i++ {
		g[i] = 5
	}
	return [][]float32{g}
}

func TestADSR(t *testing.T) {
	a := NewADSR(10*time.Millisecond, 10*time.Millisecond, 0.5, 10*time.Millisecond, 1000)
	in := gate(30, 20)
	out := [][]float32{make([]float32, 50)}
	a.Tick(in, out)

	for _, c := range []struct {
		i    int
		want float32
	}{
		{9, 1},
		{19, 0.5},
		{25, 0.5},
		{29, 0.5},
		{39, 0},
		{49, 0},
	} {
		if got := out[0][c.i]; got != c.want {
			t.Errorf("sample %d = %v, want: %v", c.i, got, c.want)
		}
	}
	for i := 1; i < 10; i++ {
		if out[0][i] <= out[0][i-1] {
			t.Errorf("attack not rising at %d: %v", i, out[0][:10])
			break
		}
	}
	for i := 31; i < 40; i++ {
		if out[0][i] >= out[0][i-1] {
			t.Errorf("release not falling at %d: %v", i, out[0][30:40])
			break
		}
	}
}

func TestADSRRetrigger(t *testing.T) {
	a := NewADSR(10*time.Millisecond, 10*time.Millisecond, 0.5, 100*time.Millisecond, 1000)
	in := gate(30, 5)
	in[0] = append(in[0], 5, 5, 5)
	out := [][]float32{make([]float32, len(in[0]))}
	a.Tick(in, out)
	released := out[0][34]
	if released <= 0 || released >= 0.5 {
		t.Fatalf("mid-release level = %v", released)
	}
	if got := out[0][35]; got <= released {
		t.Errorf("retrigger dropped the level: %v -> %v", released, got)
	}
}

func TestADSRCarriesAcrossBlocks(t *testing.T) {
	a := NewADSR(10*time.Millisecond, 10*time.Millisecond, 0.5, 10*time.Millisecond, 1000)
	in := gate(30, 0)
	out := [][]float32{make([]float32, 30)}
	a.Tick([][]float32{in[0][:15]}, [][]float32{out[0][:15]})
	a.Tick([][]float32{in[0][15:]}, [][]float32{out[0][15:]})
	if out[0][19] != 0.5 || out[0][29] != 0.5 {
		t.Errorf("split blocks: %v", out[0])
	}
}
