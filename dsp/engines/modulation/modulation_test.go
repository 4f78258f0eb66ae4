package modulation

import (
	"math"
	"testing"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/analyze"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
)

func modTone(n int, freq, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/phaserTestRate)
	}
	return out
}

func TestClassicTremoloModulatesAmplitude(t *testing.T) {
	tr := NewClassicTremolo()
	if err := tr.Prepare(phaserTestRate, phaserTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// 1.4 Hz sine tremolo at full depth.
	tr.UpdateParameters(map[int]float64{0: 0.5, 1: 1, 2: 0, 3: 0, 4: 1})
	tr.Reset()

	n := int(phaserTestRate * 2)
	out := processMono(t, tr, modTone(n, 1000, 0.5))

	// Envelope over 50 ms windows must swing from near silence to
	// near full level.
	win := 2400
	minRMS, maxRMS := math.Inf(1), 0.0
	for pos := 0; pos+win <= n; pos += win {
		r := analyze.RMS(out[pos : pos+win])
		minRMS = math.Min(minRMS, r)
		maxRMS = math.Max(maxRMS, r)
	}
	if maxRMS < minRMS*3 {
		t.Errorf("tremolo barely modulates: RMS %g..%g", minRMS, maxRMS)
	}
}

func TestClassicTremoloZeroDepthIsTransparent(t *testing.T) {
	tr := NewClassicTremolo()
	if err := tr.Prepare(phaserTestRate, phaserTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	tr.UpdateParameters(map[int]float64{0: 0.5, 1: 0, 2: 0, 3: 0, 4: 1})
	tr.Reset()

	input := modTone(4800, 440, 0.5)
	out := processMono(t, tr, input)

	for i := range out {
		if out[i] != input[i] {
			t.Fatalf("zero depth altered sample %d", i)
		}
	}
}

func TestHarmonicTremoloStaysFinite(t *testing.T) {
	tr := NewHarmonicTremolo()
	if err := tr.Prepare(phaserTestRate, phaserTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	tr.UpdateParameters(map[int]float64{0: 0.6, 1: 1, 2: 0.5, 3: 1})
	tr.Reset()

	out := processMono(t, tr, modTone(int(phaserTestRate), 440, 0.5))
	if analyze.HasNonFinite(out) {
		t.Fatal("non-finite output")
	}
	if analyze.RMS(out[len(out)/2:]) < 0.01 {
		t.Error("harmonic tremolo silenced the signal")
	}
}

func TestRingModulatorSuppressesCarrierlessFundamental(t *testing.T) {
	r := NewRingModulator()
	if err := r.Prepare(phaserTestRate, phaserTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// Carrier near 283 Hz, full depth, fully wet: a 1 kHz tone moves
	// into sidebands on either side.
	r.UpdateParameters(map[int]float64{0: 0.5, 1: 0.5, 2: 1, 3: 1})
	r.Reset()

	n := int(phaserTestRate)
	out := processMono(t, r, modTone(n, 1000, 0.5))

	peak, err := analyze.DominantFrequency(out[n/2:], phaserTestRate, 500, 2000)
	if err != nil {
		t.Fatalf("DominantFrequency: %v", err)
	}
	if math.Abs(peak-1000) < 50 {
		t.Errorf("fundamental survives full-depth ring mod: peak at %g Hz", peak)
	}
}

func TestFrequencyShifterMovesTone(t *testing.T) {
	f := NewFrequencyShifter()
	if err := f.Prepare(phaserTestRate, phaserTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// Shift about 150 Hz upward, fully wet.
	f.UpdateParameters(map[int]float64{0: 0.75, 1: 0.5, 2: 1, 3: 1})
	f.Reset()

	n := int(phaserTestRate)
	out := processMono(t, f, modTone(n, 440, 0.5))

	want := 440 + core.ExpMap(0.75, 0.5, 1000)
	peak, err := analyze.DominantFrequency(out[n/2:], phaserTestRate, 300, 900)
	if err != nil {
		t.Fatalf("DominantFrequency: %v", err)
	}
	if math.Abs(peak-want) > 30 {
		t.Errorf("shifted tone at %g Hz, want near %g", peak, want)
	}
}

func TestStereoChorusThickensAndDecorrelates(t *testing.T) {
	c := NewStereoChorus()
	if err := c.Prepare(phaserTestRate, phaserTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	c.UpdateParameters(map[int]float64{0: 0.4, 1: 0.7, 2: 0.3, 3: 0.2, 4: 1, 5: 0.5})
	c.Reset()

	n := int(phaserTestRate)
	input := modTone(n, 440, 0.5)
	left := make([]float64, n)
	right := make([]float64, n)
	copy(left, input)
	copy(right, input)

	for pos := 0; pos < n; pos += phaserTestBlock {
		end := pos + phaserTestBlock
		if end > n {
			end = n
		}
		c.Process([][]float64{left[pos:end], right[pos:end]})
	}

	if analyze.HasNonFinite(left) || analyze.HasNonFinite(right) {
		t.Fatal("non-finite output")
	}

	diffDry, diffLR := 0.0, 0.0
	for i := n / 2; i < n; i++ {
		diffDry += (left[i] - input[i]) * (left[i] - input[i])
		diffLR += (left[i] - right[i]) * (left[i] - right[i])
	}
	if diffDry < 1e-6 {
		t.Error("chorus left the signal untouched")
	}
	if diffLR < 1e-6 {
		t.Error("full width produced identical channels")
	}
}

func TestResonantChorusStaysBounded(t *testing.T) {
	c := NewResonantChorus()
	if err := c.Prepare(phaserTestRate, phaserTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	c.UpdateParameters(map[int]float64{0: 0.6, 1: 1, 2: 1, 3: 1, 4: 1})
	c.Reset()

	out := processMono(t, c, modTone(int(phaserTestRate*2), 440, 0.5))
	if analyze.HasNonFinite(out) {
		t.Fatal("non-finite output")
	}
	if peak := analyze.Peak(out); peak > 4 {
		t.Errorf("resonant chorus peak %g", peak)
	}
}

func TestRotarySpeakerSpinsTheImage(t *testing.T) {
	r := NewRotarySpeaker()
	if err := r.Prepare(phaserTestRate, phaserTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// Fast rotor, full width.
	r.UpdateParameters(map[int]float64{0: 1, 1: 1, 2: 0.3, 3: 1, 4: 1})
	r.Reset()

	n := int(phaserTestRate * 2)
	input := modTone(n, 440, 0.5)
	left := make([]float64, n)
	right := make([]float64, n)
	copy(left, input)
	copy(right, input)

	for pos := 0; pos < n; pos += phaserTestBlock {
		end := pos + phaserTestBlock
		if end > n {
			end = n
		}
		r.Process([][]float64{left[pos:end], right[pos:end]})
	}

	if analyze.HasNonFinite(left) || analyze.HasNonFinite(right) {
		t.Fatal("non-finite output")
	}

	// The horn pans around, so left and right envelopes trade places.
	win := 4800
	swing := 0.0
	for pos := n / 2; pos+win <= n; pos += win {
		l := analyze.RMS(left[pos : pos+win])
		rr := analyze.RMS(right[pos : pos+win])
		swing = math.Max(swing, math.Abs(l-rr)/math.Max(l, rr))
	}
	if swing < 0.02 {
		t.Errorf("rotary image is static: max channel imbalance %g", swing)
	}
}

func TestRingModulatorZeroDepthKeepsLowEnd(t *testing.T) {
	r := NewRingModulator()
	if err := r.Prepare(phaserTestRate, phaserTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	r.UpdateParameters(map[int]float64{2: 0, 3: 1})
	r.Reset()

	// Depth zero leaves a unity carrier, so the wet path is the input
	// through the output DC blocker alone.
	input := modTone(int(phaserTestRate), 200, 0.4)
	out := processMono(t, r, input)

	tail := len(input) / 2
	ratio := analyze.RMS(out[tail:]) / analyze.RMS(input[tail:])
	if ratio < 0.9 || ratio > 1.1 {
		t.Errorf("zero-depth gain at 200 Hz = %.3f, want near unity", ratio)
	}
}
