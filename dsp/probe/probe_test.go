package probe

import (
	"math"
	"math/rand"
	"testing"
)

const testRate = 48000.0

func TestSinePhaseContinuity(t *testing.T) {
	whole := make([]float64, 2048)
	Sine(whole, testRate, 1000, 0.5, 0, 0)

	// The same tone assembled block by block must match sample for sample.
	pieced := make([]float64, 2048)
	for pos := 0; pos < len(pieced); pos += 512 {
		Sine(pieced[pos:pos+512], testRate, 1000, 0.5, 0, pos)
	}

	for i := range whole {
		if whole[i] != pieced[i] {
			t.Fatalf("block-wise sine diverges at sample %d", i)
		}
	}
}

func TestQuadratureSineOffset(t *testing.T) {
	block := [][]float64{make([]float64, 1024), make([]float64, 1024)}
	QuadratureSine(block, testRate, 1000, 0.5, 0)

	// One quarter cycle of 1 kHz at 48 kHz is 12 samples.
	for i := 0; i < 1000; i++ {
		if math.Abs(block[1][i]-block[0][i+12]) > 1e-9 {
			t.Fatalf("right channel is not a quarter cycle ahead at sample %d", i)
		}
	}
}

func TestImpulse(t *testing.T) {
	dst := []float64{3, 3, 3, 3}
	Impulse(dst, 0.5)
	if dst[0] != 0.5 {
		t.Fatalf("impulse head = %g", dst[0])
	}
	for i := 1; i < len(dst); i++ {
		if dst[i] != 0 {
			t.Fatalf("impulse tail not cleared at %d", i)
		}
	}
}

func TestNoiseDeterministicAndBounded(t *testing.T) {
	a := make([]float64, 4096)
	b := make([]float64, 4096)
	Noise(a, rand.New(rand.NewSource(99)), 0.25)
	Noise(b, rand.New(rand.NewSource(99)), 0.25)

	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same seed produced different noise at %d", i)
		}
		if math.Abs(a[i]) > 0.25 {
			t.Fatalf("noise sample %g beyond amplitude", a[i])
		}
	}
}

func TestExpSweepEndpoints(t *testing.T) {
	total := 48000
	sweep, err := NewExpSweep(testRate, 50, 10000, 0.5, total)
	if err != nil {
		t.Fatalf("NewExpSweep: %v", err)
	}

	out := make([]float64, 0, total)
	block := make([]float64, 512)
	for sweep.Remaining() > 0 {
		n := sweep.Fill(block)
		out = append(out, block[:n]...)
	}
	if len(out) != total {
		t.Fatalf("sweep produced %d samples, want %d", len(out), total)
	}

	// Estimate instantaneous frequency from zero crossings at both ends.
	rate := func(seg []float64) float64 {
		crossings := 0
		for i := 1; i < len(seg); i++ {
			if (seg[i-1] < 0) != (seg[i] < 0) {
				crossings++
			}
		}
		return float64(crossings) / 2 * testRate / float64(len(seg))
	}

	head := rate(out[:4800])
	tail := rate(out[total-4800:])
	if head < 40 || head > 120 {
		t.Errorf("sweep opens near %g Hz, want near 50", head)
	}
	if tail < 7000 || tail > 11000 {
		t.Errorf("sweep closes near %g Hz, want near 10000", tail)
	}
}

func TestExpSweepRejectsBadConfig(t *testing.T) {
	cases := []struct {
		name             string
		rate, start, end float64
		total            int
	}{
		{"zero rate", 0, 50, 1000, 100},
		{"negative start", testRate, -1, 1000, 100},
		{"above nyquist", testRate, 50, 30000, 100},
		{"empty", testRate, 50, 1000, 0},
	}
	for _, tc := range cases {
		if _, err := NewExpSweep(tc.rate, tc.start, tc.end, 0.5, tc.total); err == nil {
			t.Errorf("%s: expected error", tc.name)
		}
	}
}
