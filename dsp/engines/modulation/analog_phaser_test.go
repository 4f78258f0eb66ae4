package modulation

import (
	"math"
	"testing"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/analyze"
)

const (
	phaserTestRate  = 48000.0
	phaserTestBlock = 512
)

func processMono(t *testing.T, e interface {
	Process(block [][]float64)
}, input []float64) []float64 {
	t.Helper()

	out := make([]float64, len(input))
	for pos := 0; pos < len(input); pos += phaserTestBlock {
		end := pos + phaserTestBlock
		if end > len(input) {
			end = len(input)
		}
		block := make([]float64, end-pos)
		copy(block, input[pos:end])
		e.Process([][]float64{block})
		copy(out[pos:end], block)
	}
	return out
}

func TestAnalogPhaserCarvesNotches(t *testing.T) {
	p := NewAnalogPhaser()
	if err := p.Prepare(phaserTestRate, phaserTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	p.UpdateParameters(map[int]float64{
		0: 0,   // rate near zero freezes the sweep
		1: 0.2, // depth
		2: 0,   // feedback
		3: 1,   // stages: full ladder
		7: 0.5, // mix: equal dry and wet for full cancellation
	})
	p.Reset()

	// Impulse response after the smoothers settle. The impulse sits at
	// the frame center where the analysis window has full weight.
	warm := make([]float64, 8192)
	processMono(t, p, warm)

	input := make([]float64, 8192)
	input[len(input)/2] = 1
	out := processMono(t, p, input)

	mags, binHz, err := analyze.Spectrum(out, phaserTestRate)
	if err != nil {
		t.Fatalf("Spectrum: %v", err)
	}

	notches := analyze.CountNotches(mags, binHz, 100, 12000, 3)
	if notches < 3 {
		t.Errorf("found %d notches deeper than 3 dB, want at least 3", notches)
	}
}

func TestAnalogPhaserStageQuartiles(t *testing.T) {
	cases := []struct {
		norm   float64
		stages int
	}{
		{0.0, 2},
		{0.26, 4},
		{0.51, 6},
		{0.76, 8},
		{1.0, 8},
	}
	for _, tc := range cases {
		if got := activeStageCount(tc.norm); got != tc.stages {
			t.Errorf("activeStageCount(%.2f) = %d, want %d", tc.norm, got, tc.stages)
		}
	}
}

func TestAnalogPhaserHighFeedbackStaysBounded(t *testing.T) {
	p := NewAnalogPhaser()
	if err := p.Prepare(phaserTestRate, phaserTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	p.UpdateParameters(map[int]float64{
		1: 1,    // depth
		2: 0.95, // feedback
		3: 1,    // stages
		6: 1,    // resonance
		7: 0.5,  // mix
	})
	p.Reset()

	input := make([]float64, int(8*phaserTestRate))
	for i := range input {
		input[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/phaserTestRate)
	}
	out := processMono(t, p, input)

	if analyze.HasNonFinite(out) {
		t.Fatal("non-finite output")
	}

	inPeak := analyze.Peak(input)
	outPeak := analyze.Peak(out)
	if outPeak > inPeak*2 {
		t.Errorf("peak %.3f exceeds 6 dB above input peak %.3f", outPeak, inPeak)
	}
}

func TestAnalogPhaserStereoSpreadDecorrelates(t *testing.T) {
	p := NewAnalogPhaser()
	if err := p.Prepare(phaserTestRate, phaserTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	p.UpdateParameters(map[int]float64{
		0: 0.5,
		1: 1,
		4: 1, // stereo spread
		7: 1, // fully wet
	})
	p.Reset()

	n := int(2 * phaserTestRate)
	l := make([]float64, n)
	r := make([]float64, n)
	diff := 0.0
	for pos := 0; pos < n; pos += phaserTestBlock {
		end := pos + phaserTestBlock
		if end > n {
			end = n
		}
		for i := pos; i < end; i++ {
			s := 0.5 * math.Sin(2*math.Pi*440*float64(i)/phaserTestRate)
			l[i-pos] = s
			r[i-pos] = s
		}
		block := [][]float64{l[:end-pos], r[:end-pos]}
		p.Process(block)
		for i := 0; i < end-pos; i++ {
			diff += math.Abs(block[0][i] - block[1][i])
		}
	}

	if diff < 1 {
		t.Errorf("left and right outputs are nearly identical (diff %.4f), spread has no effect", diff)
	}
}

func TestAnalogPhaserResetReproduces(t *testing.T) {
	p := NewAnalogPhaser()
	if err := p.Prepare(phaserTestRate, phaserTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	p.UpdateParameters(map[int]float64{0: 0.6, 1: 0.8, 2: 0.5, 7: 1})
	p.Reset()

	input := make([]float64, int(phaserTestRate/2))
	for i := range input {
		input[i] = 0.4 * math.Sin(2*math.Pi*220*float64(i)/phaserTestRate)
	}

	first := processMono(t, p, input)
	p.Reset()
	second := processMono(t, p, input)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("outputs diverge at sample %d", i)
		}
	}
}

func TestAnalogPhaserWetPathKeepsLowEnd(t *testing.T) {
	p := NewAnalogPhaser()
	if err := p.Prepare(phaserTestRate, phaserTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	p.UpdateParameters(map[int]float64{
		0: 0,   // rate near zero
		1: 0.1, // depth
		2: 0,   // feedback
		7: 1,   // wet only
	})
	p.Reset()

	// The allpass ladder has unity magnitude, so a low tone through the
	// wet path should come back at input level minus only the DC
	// blockers' fractional-dB droop.
	input := modTone(int(phaserTestRate), 200, 0.4)
	out := processMono(t, p, input)

	tail := len(input) / 2
	ratio := analyze.RMS(out[tail:]) / analyze.RMS(input[tail:])
	if ratio < 0.85 || ratio > 1.15 {
		t.Errorf("wet-path gain at 200 Hz = %.3f, want near unity", ratio)
	}
}
