package delay

import (
	"math"
	"testing"
)

func TestNewValidation(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("New(0) should fail")
	}

	if _, err := NewForDuration(0, 48000); err == nil {
		t.Fatal("NewForDuration with zero duration should fail")
	}

	if _, err := NewForDuration(0.5, 0); err == nil {
		t.Fatal("NewForDuration with zero rate should fail")
	}

	line, err := NewForDuration(1.0, 48000)
	if err != nil {
		t.Fatalf("NewForDuration() error = %v", err)
	}

	if line.Len() < 48000 {
		t.Fatalf("Len() = %d, want >= 48000", line.Len())
	}
}

func TestIntegerRead(t *testing.T) {
	line, err := New(8)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 1; i <= 8; i++ {
		line.Write(float64(i))
	}

	if got := line.Read(0); got != 8 {
		t.Fatalf("Read(0) = %v, want most recent sample 8", got)
	}

	if got := line.Read(3); got != 5 {
		t.Fatalf("Read(3) = %v, want 5", got)
	}
}

func TestReadWrapsAround(t *testing.T) {
	line, err := New(4)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := 1; i <= 10; i++ {
		line.Write(float64(i))
	}

	if got := line.Read(0); got != 10 {
		t.Fatalf("Read(0) after wrap = %v, want 10", got)
	}

	if got := line.Read(3); got != 7 {
		t.Fatalf("Read(3) after wrap = %v, want 7", got)
	}
}

func TestFractionalReadOnRamp(t *testing.T) {
	line, err := New(64)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	// A linear ramp is reproduced exactly by both interpolators.
	for i := range 64 {
		line.Write(float64(i))
	}

	if got := line.ReadLinear(2.5); math.Abs(got-60.5) > 1e-12 {
		t.Fatalf("ReadLinear(2.5) = %v, want 60.5", got)
	}

	if got := line.ReadFractional(2.5); math.Abs(got-60.5) > 1e-12 {
		t.Fatalf("ReadFractional(2.5) = %v, want 60.5", got)
	}
}

func TestReset(t *testing.T) {
	line, err := New(16)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for i := range 16 {
		line.Write(float64(i + 1))
	}

	line.Reset()

	for i := range 16 {
		if got := line.Read(i); got != 0 {
			t.Fatalf("Read(%d) after Reset = %v, want 0", i, got)
		}
	}
}
