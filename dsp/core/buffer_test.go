package core

import "testing"

func TestEnsureLenReusesCapacity(t *testing.T) {
	buf := make([]float64, 8, 16)

	grown := EnsureLen(buf, 12)
	if len(grown) != 12 {
		t.Fatalf("len = %d, want 12", len(grown))
	}
	if &grown[0] != &buf[0] {
		t.Fatal("expected backing array to be reused")
	}

	fresh := EnsureLen(buf, 32)
	if len(fresh) != 32 {
		t.Fatalf("len = %d, want 32", len(fresh))
	}

	if got := EnsureLen(buf, 0); len(got) != 0 {
		t.Fatalf("len = %d, want 0", len(got))
	}
}

func TestZero(t *testing.T) {
	buf := []float64{1, -2, 3}
	Zero(buf)
	for i, v := range buf {
		if v != 0 {
			t.Fatalf("buf[%d] = %v, want 0", i, v)
		}
	}
}
