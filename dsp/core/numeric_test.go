package core

import (
	"math"
	"testing"
)

func TestClamp(t *testing.T) {
	if got := Clamp(1.5, 0, 1); got != 1 {
		t.Fatalf("Clamp(1.5, 0, 1) = %v, want 1", got)
	}

	if got := Clamp(-0.5, 0, 1); got != 0 {
		t.Fatalf("Clamp(-0.5, 0, 1) = %v, want 0", got)
	}

	if got := Clamp(0.25, 1, 0); got != 0.25 {
		t.Fatalf("Clamp with swapped bounds = %v, want 0.25", got)
	}
}

func TestClamp01(t *testing.T) {
	cases := []struct{ in, want float64 }{
		{-1, 0},
		{0, 0},
		{0.5, 0.5},
		{1, 1},
		{2, 1},
	}

	for _, tc := range cases {
		if got := Clamp01(tc.in); got != tc.want {
			t.Fatalf("Clamp01(%v) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestIsFinite(t *testing.T) {
	if !IsFinite(0) || !IsFinite(-3.5) {
		t.Fatal("IsFinite rejected finite values")
	}

	if IsFinite(math.NaN()) || IsFinite(math.Inf(1)) {
		t.Fatal("IsFinite accepted non-finite values")
	}

	if IsFinitePositive(0) || IsFinitePositive(-1) || IsFinitePositive(math.Inf(1)) {
		t.Fatal("IsFinitePositive accepted invalid values")
	}
}

func TestNextPowerOfTwo(t *testing.T) {
	cases := []struct{ in, want int }{
		{-4, 1},
		{0, 1},
		{1, 1},
		{2, 2},
		{3, 4},
		{4096, 4096},
		{4097, 8192},
	}

	for _, tc := range cases {
		if got := NextPowerOfTwo(tc.in); got != tc.want {
			t.Fatalf("NextPowerOfTwo(%d) = %d, want %d", tc.in, got, tc.want)
		}
	}
}

func TestDBConversionsRoundTrip(t *testing.T) {
	for _, db := range []float64{-60, -12, 0, 6, 20} {
		lin := DBToLinear(db)
		if !NearlyEqual(LinearToDB(lin), db, 1e-9) {
			t.Fatalf("dB round trip failed for %v", db)
		}
	}

	if !math.IsInf(LinearToDB(0), -1) {
		t.Fatal("LinearToDB(0) should be -Inf")
	}
}

func TestSemitoneConversions(t *testing.T) {
	if !NearlyEqual(SemitonesToRatio(12), 2, 1e-12) {
		t.Fatal("one octave up should double frequency")
	}

	if !NearlyEqual(RatioToSemitones(0.5), -12, 1e-9) {
		t.Fatal("half frequency should be one octave down")
	}
}

func TestExpMap(t *testing.T) {
	if got := ExpMap(0, 200, 2000); got != 200 {
		t.Fatalf("ExpMap(0) = %v, want 200", got)
	}

	if got := ExpMap(1, 200, 2000); !NearlyEqual(got, 2000, 1e-9) {
		t.Fatalf("ExpMap(1) = %v, want 2000", got)
	}

	mid := ExpMap(0.5, 200, 2000)
	if !NearlyEqual(mid, math.Sqrt(200*2000), 1e-9) {
		t.Fatalf("ExpMap(0.5) = %v, want geometric mean", mid)
	}
}

func TestFlushDenormals(t *testing.T) {
	if got := FlushDenormals(1e-40); got != 0 {
		t.Fatalf("FlushDenormals(1e-40) = %v, want 0", got)
	}

	if got := FlushDenormals(0.5); got != 0.5 {
		t.Fatalf("FlushDenormals(0.5) = %v, want 0.5", got)
	}
}
