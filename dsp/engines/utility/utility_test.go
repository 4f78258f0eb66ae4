package utility

import (
	"math"
	"testing"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/analyze"
)

const (
	utilTestRate  = 48000.0
	utilTestBlock = 512
)

type stereoEngine interface {
	Process(block [][]float64)
}

func runStereo(e stereoEngine, left, right []float64) ([]float64, []float64) {
	n := len(left)
	outL := make([]float64, n)
	outR := make([]float64, n)
	for pos := 0; pos < n; pos += utilTestBlock {
		end := pos + utilTestBlock
		if end > n {
			end = n
		}
		l := make([]float64, end-pos)
		r := make([]float64, end-pos)
		copy(l, left[pos:end])
		copy(r, right[pos:end])
		e.Process([][]float64{l, r})
		copy(outL[pos:end], l)
		copy(outR[pos:end], r)
	}
	return outL, outR
}

func toneAt(n int, freq, amp float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amp * math.Sin(2*math.Pi*freq*float64(i)/utilTestRate)
	}
	return out
}

func TestGainUtilityGainAccuracy(t *testing.T) {
	g := NewGainUtility()
	if err := g.Prepare(utilTestRate, utilTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// 0.5 + 12/36 maps to +12 dB.
	g.UpdateParameters(map[int]float64{0: 0.5 + 12.0/36.0, 1: 0.5, 2: 0, 3: 1})
	g.Reset()

	n := 24000
	input := toneAt(n, 1000, 0.1)
	outL, _ := runStereo(g, input, append([]float64(nil), input...))

	gotDB := 20 * math.Log10(analyze.RMS(outL[n/2:])/analyze.RMS(input[n/2:]))
	if math.Abs(gotDB-12) > 0.1 {
		t.Errorf("gain = %.3f dB, want 12 +-0.1", gotDB)
	}
}

func TestGainUtilityInvertFlipsPolarity(t *testing.T) {
	g := NewGainUtility()
	if err := g.Prepare(utilTestRate, utilTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	g.UpdateParameters(map[int]float64{0: 0.5, 1: 0.5, 2: 1, 3: 1})
	g.Reset()

	input := toneAt(4800, 440, 0.5)
	outL, _ := runStereo(g, input, append([]float64(nil), input...))

	for i := range input {
		if math.Abs(outL[i]+input[i]) > 1e-9 {
			t.Fatalf("sample %d not inverted: %g vs %g", i, outL[i], input[i])
		}
	}
}

func TestGainUtilityHardPanSilencesOppositeSide(t *testing.T) {
	g := NewGainUtility()
	if err := g.Prepare(utilTestRate, utilTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	g.UpdateParameters(map[int]float64{0: 0.5, 1: 1, 2: 0, 3: 1})
	g.Reset()

	n := 24000
	input := toneAt(n, 440, 0.5)
	outL, outR := runStereo(g, input, append([]float64(nil), input...))

	if l := analyze.RMS(outL[n/2:]); l > 0.01 {
		t.Errorf("left not silenced by hard right pan: RMS %g", l)
	}
	if r := analyze.RMS(outR[n/2:]); r < analyze.RMS(input[n/2:]) {
		t.Errorf("right lost level on hard pan: RMS %g", r)
	}
}

func TestMidSideRoundTrip(t *testing.T) {
	m := NewMidSideProcessor()
	if err := m.Prepare(utilTestRate, utilTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// Neutral gains leave the pair untouched.
	m.UpdateParameters(map[int]float64{0: 0.5, 1: 0.5, 2: 0.5, 3: 1})
	m.Reset()

	left := toneAt(4800, 300, 0.4)
	right := toneAt(4800, 700, 0.3)
	outL, outR := runStereo(m, left, right)

	for i := range left {
		if math.Abs(outL[i]-left[i]) > 1e-9 || math.Abs(outR[i]-right[i]) > 1e-9 {
			t.Fatalf("neutral settings altered sample %d", i)
		}
	}
}

func TestMidSideZeroSideCollapsesToMono(t *testing.T) {
	m := NewMidSideProcessor()
	if err := m.Prepare(utilTestRate, utilTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// Side gain 0 mutes the side component outright.
	m.UpdateParameters(map[int]float64{0: 0.5, 1: 0, 2: 0.5, 3: 1})
	m.Reset()

	n := 24000
	left := toneAt(n, 300, 0.4)
	right := toneAt(n, 700, 0.3)
	outL, outR := runStereo(m, left, right)

	side := make([]float64, n)
	mid := make([]float64, n)
	for i := range side {
		side[i] = (outL[i] - outR[i]) * 0.5
		mid[i] = (outL[i] + outR[i]) * 0.5
	}
	if s, md := analyze.RMS(side[n/2:]), analyze.RMS(mid[n/2:]); s > md*0.1 {
		t.Errorf("side content survives -24 dB side gain: side %g, mid %g", s, md)
	}
}

func TestMonoMakerRemovesLowSide(t *testing.T) {
	m := NewMonoMaker()
	if err := m.Prepare(utilTestRate, utilTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// Crossover at 500 Hz, full amount.
	m.UpdateParameters(map[int]float64{0: 1, 1: 1, 2: 1})
	m.Reset()

	n := 48000
	lowSide := toneAt(n, 60, 0.3)
	highSide := toneAt(n, 6000, 0.3)
	left := make([]float64, n)
	right := make([]float64, n)
	for i := range left {
		left[i] = lowSide[i] + highSide[i]
		right[i] = -lowSide[i] - highSide[i]
	}
	outL, outR := runStereo(m, left, right)

	side := make([]float64, n)
	for i := range side {
		side[i] = (outL[i] - outR[i]) * 0.5
	}
	tail := side[n/2:]

	low, err := bandRMS(tail, 60)
	if err != nil {
		t.Fatal(err)
	}
	high, err := bandRMS(tail, 6000)
	if err != nil {
		t.Fatal(err)
	}
	if low > high*0.3 {
		t.Errorf("low side not folded to mono: 60 Hz %g, 6 kHz %g", low, high)
	}
}

// bandRMS estimates the level of a single tone in x from its spectrum bin.
func bandRMS(x []float64, freq float64) (float64, error) {
	mags, binHz, err := analyze.Spectrum(x, utilTestRate)
	if err != nil {
		return 0, err
	}
	bin := int(freq/binHz + 0.5)
	peak := 0.0
	for b := bin - 2; b <= bin+2 && b < len(mags); b++ {
		if b >= 0 && mags[b] > peak {
			peak = mags[b]
		}
	}
	return peak, nil
}

func TestPhaseAlignDelayOffset(t *testing.T) {
	peakIndex := func(x []float64) int {
		idx, peak := 0, 0.0
		for i, v := range x {
			if a := math.Abs(v); a > peak {
				idx, peak = i, a
			}
		}
		return idx
	}

	run := func(delayNorm float64) (int, int) {
		p := NewPhaseAlign()
		if err := p.Prepare(utilTestRate, utilTestBlock); err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		// Low rotation keeps the allpass out of the way of the timing check.
		p.UpdateParameters(map[int]float64{0: delayNorm, 1: 0, 2: 0, 3: 1})
		p.Reset()

		n := 2048
		left := make([]float64, n)
		right := make([]float64, n)
		left[0] = 1
		right[0] = 1
		outL, outR := runStereo(p, left, right)
		return peakIndex(outL), peakIndex(outR)
	}

	base := int(alignMaxDelaySecs * utilTestRate)

	l, r := run(0.5)
	if d := r - l; d < -2 || d > 2 {
		t.Errorf("centre setting skews channels by %d samples", d)
	}
	if l < base-2 || l > base+2 {
		t.Errorf("centre delay %d samples, want about %d", l, base)
	}

	l, r = run(1)
	if d := r - l; d < base-3 || d > base+3 {
		t.Errorf("full delay offsets right by %d samples, want about %d", d, base)
	}

	l, r = run(0)
	if r > 3 {
		// Offset -base cancels the centre delay down to the 1 sample floor.
		t.Errorf("minimum delay leaves right at %d samples", r)
	}
	_ = l
}

func TestPhaseAlignPolarityFlip(t *testing.T) {
	p := NewPhaseAlign()
	if err := p.Prepare(utilTestRate, utilTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// Rotation at the top of its range keeps the allpass corner far
	// above the test tone, so the flip dominates the correlation.
	p.UpdateParameters(map[int]float64{0: 0.5, 1: 1, 2: 1, 3: 1})
	p.Reset()

	n := 24000
	tone := toneAt(n, 440, 0.5)
	outL, outR := runStereo(p, tone, append([]float64(nil), tone...))

	// Same centre delay on both channels, so the flip shows up as an
	// anti-correlated pair.
	dot := 0.0
	for i := n / 2; i < n; i++ {
		dot += outL[i] * outR[i]
	}
	if dot >= 0 {
		t.Errorf("expected anti-correlated channels after polarity flip, dot %g", dot)
	}
}

func TestUtilityGainsMaxSettingsStayBounded(t *testing.T) {
	engines := []struct {
		name string
		e    interface {
			Prepare(sampleRate float64, maxBlockSize int) error
			Reset()
			UpdateParameters(map[int]float64)
			Process(block [][]float64)
			NumParameters() int
		}
	}{
		{"gain utility", NewGainUtility()},
		{"mid-side", NewMidSideProcessor()},
	}
	for _, tc := range engines {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.e.Prepare(utilTestRate, utilTestBlock); err != nil {
				t.Fatalf("Prepare: %v", err)
			}
			all := make(map[int]float64, tc.e.NumParameters())
			for p := 0; p < tc.e.NumParameters(); p++ {
				all[p] = 1
			}
			tc.e.UpdateParameters(all)
			tc.e.Reset()

			// Half-scale noise with every control pinned high.
			seed := uint64(0x85EBCA6B)
			left := make([]float64, int(utilTestRate))
			right := make([]float64, len(left))
			for i := range left {
				seed = seed*6364136223846793005 + 1442695040888963407
				left[i] = (float64(seed>>11)/float64(1<<53)*2 - 1) * 0.5
				seed = seed*6364136223846793005 + 1442695040888963407
				right[i] = (float64(seed>>11)/float64(1<<53)*2 - 1) * 0.5
			}
			outL, outR := runStereo(tc.e, left, right)

			if analyze.HasNonFinite(outL) || analyze.HasNonFinite(outR) {
				t.Fatal("non-finite output")
			}
			if peak := math.Max(analyze.Peak(outL), analyze.Peak(outR)); peak > 10 {
				t.Errorf("peak %.2f at maximum settings, want under 10", peak)
			}
		})
	}
}

func TestStereoOnlyUtilitiesPassMonoThrough(t *testing.T) {
	maker := NewMonoMaker()
	if err := maker.Prepare(utilTestRate, utilTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	align := NewPhaseAlign()
	if err := align.Prepare(utilTestRate, utilTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}

	engines := []struct {
		name string
		e    stereoEngine
	}{
		{"mono maker", maker},
		{"phase align", align},
	}
	for _, tc := range engines {
		t.Run(tc.name, func(t *testing.T) {
			input := toneAt(4800, 440, 0.5)
			out := make([]float64, len(input))
			copy(out, input)
			for pos := 0; pos < len(out); pos += utilTestBlock {
				end := pos + utilTestBlock
				if end > len(out) {
					end = len(out)
				}
				tc.e.Process([][]float64{out[pos:end]})
			}
			for i := range out {
				if out[i] != input[i] {
					t.Fatalf("mono sample %d altered: %g != %g", i, out[i], input[i])
				}
			}
		})
	}
}
