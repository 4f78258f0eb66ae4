package interp

import (
	"math"
	"testing"
)

func TestLinearEndpoints(t *testing.T) {
	if got := Linear(0, 2, 8); got != 2 {
		t.Fatalf("Linear(0) = %v, want 2", got)
	}

	if got := Linear(1, 2, 8); got != 8 {
		t.Fatalf("Linear(1) = %v, want 8", got)
	}

	if got := Linear(0.25, 0, 4); got != 1 {
		t.Fatalf("Linear(0.25) = %v, want 1", got)
	}
}

func TestHermite4Endpoints(t *testing.T) {
	if got := Hermite4(0, -1, 3, 5, 9); got != 3 {
		t.Fatalf("Hermite4(t=0) = %v, want x0", got)
	}

	if got := Hermite4(1, -1, 3, 5, 9); got != 5 {
		t.Fatalf("Hermite4(t=1) = %v, want x1", got)
	}
}

func TestHermite4ReproducesLine(t *testing.T) {
	// A cubic kernel must be exact on linear input.
	for _, frac := range []float64{0.1, 0.33, 0.5, 0.75, 0.9} {
		got := Hermite4(frac, 1, 2, 3, 4)
		want := 2 + frac
		if math.Abs(got-want) > 1e-12 {
			t.Fatalf("Hermite4(%v) = %v, want %v", frac, got, want)
		}
	}
}
