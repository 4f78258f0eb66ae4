package pitch

import (
	"math"
	"testing"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/analyze"
)

func TestDetuneDoublerThickensWithoutLevelJump(t *testing.T) {
	d := NewDetuneDoubler()
	if err := d.Prepare(testRate, testBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	d.UpdateParameters(map[int]float64{0: 1, 1: 0.2, 2: 0, 3: 1})
	d.Reset()

	n := int(testRate)
	input := sawtooth(n, 220, 0.4)
	out := make([]float64, n)
	copy(out, input)
	for pos := 0; pos < n; pos += testBlock {
		end := pos + testBlock
		if end > n {
			end = n
		}
		d.Process([][]float64{out[pos:end]})
	}

	if analyze.HasNonFinite(out) {
		t.Fatal("non-finite output")
	}

	diff := 0.0
	for i := n / 2; i < n; i++ {
		diff += (out[i] - input[i]) * (out[i] - input[i])
	}
	if diff < 1e-6 {
		t.Error("doubler left the signal untouched")
	}

	inRMS := analyze.RMS(input[n/2:])
	outRMS := analyze.RMS(out[n/2:])
	if outRMS < inRMS*0.5 || outRMS > inRMS*2 {
		t.Errorf("doubled level %g strays from input %g", outRMS, inRMS)
	}
}

func TestDetuneDoublerSpreadsVoices(t *testing.T) {
	d := NewDetuneDoubler()
	if err := d.Prepare(testRate, testBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	d.UpdateParameters(map[int]float64{0: 1, 1: 0.2, 2: 1, 3: 1})
	d.Reset()

	n := int(testRate / 2)
	input := sawtooth(n, 220, 0.4)
	left := make([]float64, n)
	right := make([]float64, n)
	copy(left, input)
	copy(right, input)
	for pos := 0; pos < n; pos += testBlock {
		end := pos + testBlock
		if end > n {
			end = n
		}
		d.Process([][]float64{left[pos:end], right[pos:end]})
	}

	diff := 0.0
	for i := n / 2; i < n; i++ {
		diff += (left[i] - right[i]) * (left[i] - right[i])
	}
	if diff < 1e-6 {
		t.Error("full width produced identical channels")
	}
}

func TestIntelligentHarmonizerAddsScaleFifth(t *testing.T) {
	h := NewIntelligentHarmonizer()
	if err := h.Prepare(testRate, testBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// +7 semitones in C major over an A: the voice lands on E.
	h.UpdateParameters(map[int]float64{0: 19.0 / 24.0, 1: 0, 2: 0, 3: 1, 4: 1})
	h.Reset()

	n := int(testRate * 2)
	input := sawtooth(n, 220, 0.4)
	out := make([]float64, n)
	copy(out, input)
	for pos := 0; pos < n; pos += testBlock {
		end := pos + testBlock
		if end > n {
			end = n
		}
		h.Process([][]float64{out[pos:end]})
	}

	if analyze.HasNonFinite(out) {
		t.Fatal("non-finite output")
	}

	// The dry sawtooth has no energy between its 220 Hz fundamental and
	// 440 Hz second harmonic, so the harmony voice shows up there.
	peak, err := analyze.DominantFrequency(out[n-16384:], testRate, 280, 400)
	if err != nil {
		t.Fatalf("DominantFrequency: %v", err)
	}
	want := 220 * math.Pow(2, 7.0/12.0)
	if math.Abs(peak-want) > 15 {
		t.Errorf("harmony voice at %g Hz, want near %g", peak, want)
	}
}

func TestIntelligentHarmonizerUnpitchedInputStaysFinite(t *testing.T) {
	h := NewIntelligentHarmonizer()
	if err := h.Prepare(testRate, testBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	h.UpdateParameters(map[int]float64{0: 1, 1: 0.5, 2: 1, 3: 1, 4: 1})
	h.Reset()

	// Deterministic noise has no stable epochs to lock onto.
	state := uint64(0x1234)
	n := int(testRate)
	block := make([]float64, testBlock)
	for pos := 0; pos < n; pos += testBlock {
		for i := range block {
			state = state*6364136223846793005 + 1442695040888963407
			block[i] = (float64(state>>11)/float64(1<<53))*2 - 1
		}
		h.Process([][]float64{block})
		if analyze.HasNonFinite(block) {
			t.Fatalf("non-finite output at sample %d", pos)
		}
		if peak := analyze.Peak(block); peak > 10 {
			t.Fatalf("runaway output %g at sample %d", peak, pos)
		}
	}
}
