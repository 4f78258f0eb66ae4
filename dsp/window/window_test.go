package window

import (
	"math"
	"testing"
)

func TestHannEndpointsAndPeak(t *testing.T) {
	w := Make(TypeHann, 65)
	if w[0] > 1e-12 || w[64] > 1e-12 {
		t.Fatalf("Hann endpoints should be ~0: %v %v", w[0], w[64])
	}

	if math.Abs(w[32]-1) > 1e-12 {
		t.Fatalf("Hann midpoint should be 1: %v", w[32])
	}
}

func TestFillMatchesMake(t *testing.T) {
	for _, typ := range []Type{TypeRectangular, TypeHann, TypeHamming, TypeBlackman} {
		made := Make(typ, 33)
		filled := make([]float64, 33)
		Fill(typ, filled)

		for i := range made {
			if made[i] != filled[i] {
				t.Fatalf("type %d sample %d: Make=%v Fill=%v", typ, i, made[i], filled[i])
			}
		}
	}
}

func TestSingleSampleWindowIsUnity(t *testing.T) {
	w := Make(TypeHann, 1)
	if len(w) != 1 || w[0] != 1 {
		t.Fatalf("length-1 window should be [1]: %v", w)
	}
}

func TestApply(t *testing.T) {
	samples := []float64{1, 1, 1, 1}
	coeffs := []float64{0, 0.5, 0.5, 0}
	Apply(samples, coeffs)

	want := []float64{0, 0.5, 0.5, 0}
	for i := range samples {
		if samples[i] != want[i] {
			t.Fatalf("Apply sample %d = %v, want %v", i, samples[i], want[i])
		}
	}
}
