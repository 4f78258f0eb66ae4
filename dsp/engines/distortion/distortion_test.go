package distortion

import (
	"math"
	"testing"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/analyze"
)

const (
	distTestRate  = 48000.0
	distTestBlock = 512
)

type monoEngine interface {
	Process(block [][]float64)
}

func runMono(e monoEngine, input []float64) []float64 {
	out := make([]float64, len(input))
	for pos := 0; pos < len(input); pos += distTestBlock {
		end := pos + distTestBlock
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

func sine(n int, freq, amplitude float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = amplitude * math.Sin(2*math.Pi*freq*float64(i)/distTestRate)
	}
	return out
}

// harmonicLevel returns the spectral magnitude nearest freq.
func harmonicLevel(t *testing.T, signal []float64, freq float64) float64 {
	t.Helper()

	mags, binHz, err := analyze.Spectrum(signal, distTestRate)
	if err != nil {
		t.Fatalf("Spectrum: %v", err)
	}
	bin := int(freq/binHz + 0.5)
	if bin >= len(mags) {
		t.Fatalf("frequency %.0f beyond spectrum", freq)
	}
	return mags[bin]
}

func TestBitCrusherQuantizesToFewLevels(t *testing.T) {
	b := NewBitCrusher()
	if err := b.Prepare(distTestRate, distTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	b.UpdateParameters(map[int]float64{
		0: 1.0 / 15.0, // 2 bits: 3 levels
		1: 0,          // no decimation
		2: 1,
	})
	b.Reset()

	input := sine(4096, 100, 0.9)
	out := runMono(b, input)

	distinct := map[float64]struct{}{}
	for _, v := range out {
		distinct[v] = struct{}{}
	}
	// Round(x*3)/3 over a full-scale sine lands on at most 7 values.
	if len(distinct) > 7 {
		t.Errorf("expected at most 7 output levels at 2 bits, got %d", len(distinct))
	}
}

func TestBitCrusherDecimationHoldsSamples(t *testing.T) {
	b := NewBitCrusher()
	if err := b.Prepare(distTestRate, distTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	b.UpdateParameters(map[int]float64{
		0: 1,          // full bit depth
		1: 9.0 / 49.0, // hold each value 10 samples
		2: 1,
	})
	b.Reset()

	input := sine(2048, 997, 0.5)
	out := runMono(b, input)

	// Count runs of identical consecutive values.
	runs := 0
	for i := 1; i < len(out); i++ {
		if out[i] == out[i-1] {
			runs++
		}
	}
	if runs < len(out)/2 {
		t.Errorf("decimation not holding: %d repeated samples of %d", runs, len(out))
	}
}

func TestKStyleOverdriveAddsOddHarmonics(t *testing.T) {
	k := NewKStyleOverdrive()
	if err := k.Prepare(distTestRate, distTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	k.UpdateParameters(map[int]float64{
		0: 0.9, // heavy drive
		1: 1,   // tone open
		2: 0.7,
		3: 1,
	})
	k.Reset()

	input := sine(int(distTestRate/2), 750, 0.5)
	out := runMono(k, input)
	tail := out[len(out)/2:]

	fund := harmonicLevel(t, tail, 750)
	third := harmonicLevel(t, tail, 2250)
	if fund <= 0 {
		t.Fatal("no fundamental in output")
	}
	thirdDB := 20 * math.Log10(third/fund)
	if thirdDB < -40 {
		t.Errorf("third harmonic at %.1f dB below fundamental, drive is not distorting", -thirdDB)
	}
}

func TestWaveFolderBoundsOutput(t *testing.T) {
	w := NewWaveFolder()
	if err := w.Prepare(distTestRate, distTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	w.UpdateParameters(map[int]float64{0: 1, 1: 1, 2: 1, 3: 1})
	w.Reset()

	input := sine(int(distTestRate/4), 220, 1)
	out := runMono(w, input)

	if analyze.HasNonFinite(out) {
		t.Fatal("non-finite output")
	}
	if peak := analyze.Peak(out); peak > 4 {
		t.Errorf("folded output peak %.2f", peak)
	}

	// Folding at full depth is not monotonic: the waveform must cross
	// back through zero more often than the input does.
	crossIn, crossOut := zeroCrossings(input), zeroCrossings(out)
	if crossOut <= crossIn {
		t.Errorf("no folding: %d crossings in, %d out", crossIn, crossOut)
	}
}

func zeroCrossings(buf []float64) int {
	n := 0
	for i := 1; i < len(buf); i++ {
		if (buf[i] >= 0) != (buf[i-1] >= 0) {
			n++
		}
	}
	return n
}

func TestHarmonicExciterAddsHighEnd(t *testing.T) {
	e := NewHarmonicExciter()
	if err := e.Prepare(distTestRate, distTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	e.UpdateParameters(map[int]float64{
		0: 1,   // full amount
		1: 0.3, // tune low so the test tone is in the excite band
		3: 1,
	})
	e.Reset()

	input := sine(int(distTestRate/2), 4000, 0.4)
	out := runMono(e, input)
	tail := out[len(out)/2:]

	// Excitation generates content above the source tone.
	srcHigh := harmonicLevel(t, input[len(input)/2:], 8000)
	outHigh := harmonicLevel(t, tail, 8000)
	if outHigh <= srcHigh*2 {
		t.Errorf("no added harmonics at 8 kHz: in %.3g out %.3g", srcHigh, outHigh)
	}
}

func TestRodentDistortionHardClips(t *testing.T) {
	r := NewRodentDistortion()
	if err := r.Prepare(distTestRate, distTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	r.UpdateParameters(map[int]float64{0: 1, 1: 0.5, 2: 1, 3: 1})
	r.Reset()

	input := sine(int(distTestRate/4), 330, 0.8)
	out := runMono(r, input)

	if analyze.HasNonFinite(out) {
		t.Fatal("non-finite output")
	}

	// Crest factor collapses toward 1 when the wave is clipped square.
	tail := out[len(out)/2:]
	crest := analyze.Peak(tail) / analyze.RMS(tail)
	if crest > 1.25 {
		t.Errorf("crest factor %.2f, expected near-square output", crest)
	}
}

func TestMultibandSaturatorPerBandDrive(t *testing.T) {
	m := NewMultibandSaturator()
	if err := m.Prepare(distTestRate, distTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// Drive only the low band; a high tone should stay cleaner.
	m.UpdateParameters(map[int]float64{0: 1, 1: 0, 2: 0, 3: 0.5, 4: 1})
	m.Reset()

	low := sine(int(distTestRate/2), 100, 0.6)
	outLow := runMono(m, low)

	m.Reset()
	high := sine(int(distTestRate/2), 6000, 0.6)
	outHigh := runMono(m, high)

	lowThird := harmonicLevel(t, outLow[len(outLow)/2:], 300)
	lowFund := harmonicLevel(t, outLow[len(outLow)/2:], 100)
	highThird := harmonicLevel(t, outHigh[len(outHigh)/2:], 18000)
	highFund := harmonicLevel(t, outHigh[len(outHigh)/2:], 6000)

	lowRatio := lowThird / lowFund
	highRatio := highThird / highFund
	if lowRatio <= highRatio {
		t.Errorf("low band not dirtier than high: %.4f vs %.4f", lowRatio, highRatio)
	}
}

func TestVintageTubePreampAsymmetry(t *testing.T) {
	p := NewVintageTubePreamp()
	if err := p.Prepare(distTestRate, distTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	p.UpdateParameters(map[int]float64{
		0: 0.8, // drive
		1: 1,   // full bias
		2: 1,
		3: 0.5,
		4: 1,
	})
	p.Reset()

	input := sine(int(distTestRate/2), 440, 0.5)
	out := runMono(p, input)
	tail := out[len(out)/2:]

	// Bias skews the transfer curve, which shows up as even harmonics.
	second := harmonicLevel(t, tail, 880)
	fund := harmonicLevel(t, tail, 440)
	if fund <= 0 || second/fund < 0.001 {
		t.Errorf("no even harmonic content: fund %.3g second %.3g", fund, second)
	}
}
