package spatial

import (
	"math"
	"testing"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/analyze"
)

const (
	spaTestRate  = 48000.0
	spaTestBlock = 512
)

type stereoEngine interface {
	Process(block [][]float64)
}

func runStereo(e stereoEngine, left, right []float64) ([]float64, []float64) {
	n := len(left)
	outL := make([]float64, n)
	outR := make([]float64, n)
	for pos := 0; pos < n; pos += spaTestBlock {
		end := pos + spaTestBlock
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

// stereoTone builds a left/right pair with a given mid and side tone.
func stereoTone(n int, midHz, sideHz, midAmp, sideAmp float64) ([]float64, []float64) {
	left := make([]float64, n)
	right := make([]float64, n)
	for i := range left {
		t := float64(i) / spaTestRate
		mid := midAmp * math.Sin(2*math.Pi*midHz*t)
		side := sideAmp * math.Sin(2*math.Pi*sideHz*t)
		left[i] = mid + side
		right[i] = mid - side
	}
	return left, right
}

func sideRMS(left, right []float64) float64 {
	side := make([]float64, len(left))
	for i := range side {
		side[i] = (left[i] - right[i]) * 0.5
	}
	return analyze.RMS(side)
}

func TestStereoWidenerScalesSide(t *testing.T) {
	n := int(spaTestRate)
	left, right := stereoTone(n, 300, 2000, 0.4, 0.2)
	base := sideRMS(left[n/2:], right[n/2:])

	widths := []float64{0.25, 0.5, 1.0} // side gains 0.5, 1, 2
	got := make([]float64, len(widths))
	for k, w := range widths {
		e := NewStereoWidener()
		if err := e.Prepare(spaTestRate, spaTestBlock); err != nil {
			t.Fatalf("Prepare: %v", err)
		}
		e.UpdateParameters(map[int]float64{0: w, 1: 0, 2: 1})
		e.Reset()
		outL, outR := runStereo(e, left, right)
		got[k] = sideRMS(outL[n/2:], outR[n/2:])
	}

	if math.Abs(got[1]-base) > base*0.1 {
		t.Errorf("unity width changed side level: %g vs %g", got[1], base)
	}
	if got[0] > base*0.7 || got[2] < base*1.5 {
		t.Errorf("side does not track width: narrow %g, base %g, wide %g", got[0], base, got[2])
	}
}

func TestStereoWidenerKeepsBassMono(t *testing.T) {
	e := NewStereoWidener()
	if err := e.Prepare(spaTestRate, spaTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// Full bass-mono folds side content below the crossover.
	e.UpdateParameters(map[int]float64{0: 0.5, 1: 1, 2: 1})
	e.Reset()

	n := int(spaTestRate)
	left, right := stereoTone(n, 1000, 60, 0.2, 0.3) // side tone well below crossover
	outL, outR := runStereo(e, left, right)

	if got := sideRMS(outL[n/2:], outR[n/2:]); got > sideRMS(left[n/2:], right[n/2:])*0.4 {
		t.Errorf("low side content survives bass mono: %g", got)
	}
}

func TestStereoWidenerMonoInputPassesThrough(t *testing.T) {
	e := NewStereoWidener()
	if err := e.Prepare(spaTestRate, spaTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	e.UpdateParameters(map[int]float64{0: 1, 1: 1, 2: 1})
	e.Reset()

	input := make([]float64, 4800)
	for i := range input {
		input[i] = 0.5 * math.Sin(2*math.Pi*440*float64(i)/spaTestRate)
	}
	block := make([]float64, len(input))
	copy(block, input)
	e.Process([][]float64{block})

	for i := range block {
		if block[i] != input[i] {
			t.Fatalf("mono input altered at sample %d", i)
		}
	}
}

func TestStereoImagerRotationMovesEnergy(t *testing.T) {
	e := NewStereoImager()
	if err := e.Prepare(spaTestRate, spaTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	// Rotation hard right, neutral width and center.
	e.UpdateParameters(map[int]float64{0: 0.5, 1: 0.5, 2: 1, 3: 1})
	e.Reset()

	n := int(spaTestRate / 2)
	mono := make([]float64, n)
	for i := range mono {
		mono[i] = 0.4 * math.Sin(2*math.Pi*500*float64(i)/spaTestRate)
	}
	left := make([]float64, n)
	copy(left, mono)
	right := make([]float64, n)
	copy(right, mono)

	outL, outR := runStereo(e, left, right)

	lr := analyze.RMS(outL[n/2:])
	rr := analyze.RMS(outR[n/2:])
	if math.Abs(lr-rr) < 0.05*math.Max(lr, rr) {
		t.Errorf("rotation left the image centered: L %g, R %g", lr, rr)
	}
}

func TestDimensionExpanderDecorrelates(t *testing.T) {
	e := NewDimensionExpander()
	if err := e.Prepare(spaTestRate, spaTestBlock); err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	e.UpdateParameters(map[int]float64{0: 0.7, 1: 1, 2: 0.7, 3: 1})
	e.Reset()

	n := int(spaTestRate)
	mono := make([]float64, n)
	for i := range mono {
		mono[i] = 0.4 * math.Sin(2*math.Pi*440*float64(i)/spaTestRate)
	}
	left := make([]float64, n)
	copy(left, mono)
	right := make([]float64, n)
	copy(right, mono)

	outL, outR := runStereo(e, left, right)

	if analyze.HasNonFinite(outL) || analyze.HasNonFinite(outR) {
		t.Fatal("non-finite output")
	}
	if got := sideRMS(outL[n/2:], outR[n/2:]); got < 0.01 {
		t.Errorf("expander left a mono source mono: side RMS %g", got)
	}
}
