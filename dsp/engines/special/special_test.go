package special

import (
	"math"
	"math/rand"
	"testing"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/analyze"
)

const (
	spcTestRate  = 48000.0
	spcTestBlock = 512
)

type monoEngine interface {
	Process(block [][]float64)
}

func runMono(e monoEngine, input []float64) []float64 {
	out := make([]float64, len(input))
	for pos := 0; pos < len(input); pos += spcTestBlock {
		end := pos + spcTestBlock
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

func rmsOf(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

func checkFinite(t *testing.T, out []float64, limit float64) {
	t.Helper()
	for i, v := range out {
		if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > limit {
			t.Fatalf("unstable output %g at sample %d", v, i)
		}
	}
}

func TestSpectralFreezeSustainsAfterInputStops(t *testing.T) {
	f := NewSpectralFreeze()
	if err := f.Prepare(spcTestRate, spcTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	f.UpdateParameters(map[int]float64{0: 1, 1: 0, 2: 0.5, 3: 1})
	f.Reset()

	// One second of tone, then one second of silence. The frozen
	// spectrum keeps ringing through the silent half.
	n := int(spcTestRate * 2)
	input := make([]float64, n)
	for i := 0; i < n/2; i++ {
		input[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/spcTestRate)
	}
	out := runMono(f, input)

	held := rmsOf(out[n-24000:])
	if held < 0.01 {
		t.Errorf("frozen tail RMS %g, expected a sustained tone", held)
	}

	peak, err := analyze.DominantFrequency(out[n-8192:], spcTestRate, 100, 2000)
	if err != nil {
		t.Fatalf("DominantFrequency: %v", err)
	}
	if math.Abs(peak-440) > 30 {
		t.Errorf("frozen tone at %g Hz, want near 440", peak)
	}
}

func TestSpectralFreezeBypassedPassesAudio(t *testing.T) {
	f := NewSpectralFreeze()
	if err := f.Prepare(spcTestRate, spcTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	f.UpdateParameters(map[int]float64{0: 0, 1: 0, 2: 0.5, 3: 1})
	f.Reset()

	n := int(spcTestRate)
	input := make([]float64, n)
	for i := range input {
		input[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/spcTestRate)
	}
	out := runMono(f, input)

	// Past the analysis latency the resynthesis tracks the input level.
	inRMS := rmsOf(input[n/2:])
	outRMS := rmsOf(out[n/2:])
	if outRMS < inRMS*0.5 || outRMS > inRMS*2 {
		t.Errorf("unfrozen resynthesis RMS %g, input %g", outRMS, inRMS)
	}
}

func TestSpectralGateMutesQuietInput(t *testing.T) {
	g := NewSpectralGate()
	if err := g.Prepare(spcTestRate, spcTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	g.UpdateParameters(map[int]float64{0: 0.8, 1: 1, 2: 0.1, 3: 0.1, 4: 1})
	g.Reset()

	n := int(spcTestRate * 2)
	quiet := make([]float64, n)
	for i := range quiet {
		quiet[i] = 0.001 * math.Sin(2*math.Pi*440*float64(i)/spcTestRate)
	}
	out := runMono(g, quiet)

	if gated := rmsOf(out[n/2:]); gated > rmsOf(quiet)*0.3 {
		t.Errorf("quiet signal not reduced: gated RMS %g", gated)
	}

	g.UpdateParameters(map[int]float64{0: 0.1})
	g.Reset()
	loud := make([]float64, n)
	for i := range loud {
		loud[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/spcTestRate)
	}
	out = runMono(g, loud)
	if open := rmsOf(out[n/2:]); open < rmsOf(loud)*0.5 {
		t.Errorf("loud signal over-reduced at low threshold: RMS %g", open)
	}
}

func TestPhasedVocoderShiftsPitch(t *testing.T) {
	v := NewPhasedVocoder()
	if err := v.Prepare(spcTestRate, spcTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// Pitch 0.75 is +0.5 octave, ratio sqrt(2).
	v.UpdateParameters(map[int]float64{0: 0.75, 1: 0, 2: 0, 3: 1})
	v.Reset()

	n := int(spcTestRate * 2)
	input := make([]float64, n)
	for i := range input {
		input[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/spcTestRate)
	}
	out := runMono(v, input)
	checkFinite(t, out, 4)

	peak, err := analyze.DominantFrequency(out[n-8192:], spcTestRate, 200, 2000)
	if err != nil {
		t.Fatalf("DominantFrequency: %v", err)
	}
	want := 440 * math.Sqrt2
	if math.Abs(peak-want) > 60 {
		t.Errorf("shifted peak at %g Hz, want near %g", peak, want)
	}
}

func TestGranularCloudResetReproduces(t *testing.T) {
	g := NewGranularCloud()
	if err := g.Prepare(spcTestRate, spcTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	g.UpdateParameters(map[int]float64{0: 0.7, 1: 0.4, 2: 0.6, 3: 0.5, 4: 1})
	g.Reset()

	rng := rand.New(rand.NewSource(7))
	input := make([]float64, 48000)
	for i := range input {
		input[i] = 0.5 * (rng.Float64()*2 - 1)
	}

	first := runMono(g, input)
	g.Reset()
	second := runMono(g, input)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("grain schedule diverges at sample %d", i)
		}
	}
	checkFinite(t, first, 4)
	if rmsOf(first[24000:]) < 1e-4 {
		t.Error("cloud produced no grains")
	}
}

func TestFeedbackNetworkStaysBoundedAtMaxFeedback(t *testing.T) {
	f := NewFeedbackNetwork()
	if err := f.Prepare(spcTestRate, spcTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	f.UpdateParameters(map[int]float64{0: 1, 1: 1, 2: 1, 3: 1})
	f.Reset()

	n := int(spcTestRate * 6)
	input := make([]float64, n)
	for i := 0; i < n/3; i++ {
		input[i] = 0.5 * math.Sin(2*math.Pi*220*float64(i)/spcTestRate)
	}
	out := runMono(f, input)

	checkFinite(t, out, 8)
	if rmsOf(out[n/3:n/2]) < 1e-5 {
		t.Error("network has no tail after input stops")
	}
}

func TestChaosGeneratorModulatesDeterministically(t *testing.T) {
	c := NewChaosGenerator()
	if err := c.Prepare(spcTestRate, spcTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	c.UpdateParameters(map[int]float64{0: 0.6, 1: 1, 2: 0, 3: 0.2, 4: 1})
	c.Reset()

	n := int(spcTestRate * 2)
	input := make([]float64, n)
	for i := range input {
		input[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/spcTestRate)
	}

	first := runMono(c, input)
	c.Reset()
	second := runMono(c, input)

	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("chaos trajectory diverges at sample %d", i)
		}
	}
	checkFinite(t, first, 4)

	// Full-depth amplitude chaos must actually move the gain around.
	ratios := make([]float64, 0, 8)
	for seg := 0; seg < 8; seg++ {
		lo := seg * n / 8
		ratios = append(ratios, rmsOf(first[lo:lo+n/8]))
	}
	minR, maxR := ratios[0], ratios[0]
	for _, r := range ratios[1:] {
		minR = math.Min(minR, r)
		maxR = math.Max(maxR, r)
	}
	if maxR < minR*1.05 {
		t.Errorf("chaos modulation too static: RMS range %g..%g", minR, maxR)
	}
}
