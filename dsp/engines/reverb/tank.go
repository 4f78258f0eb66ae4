// Package reverb implements the reverberation engines: plate, spring,
// convolution, shimmer, and gated.
package reverb

import "github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"

// Comb and allpass tunings in samples at the 44.1 kHz reference rate,
// the classic Schroeder/Freeverb set. Prepare rescales them to the
// running rate; the right channel adds a fixed spread.
var (
	tankCombTuning    = [8]int{1116, 1188, 1277, 1356, 1422, 1491, 1557, 1617}
	tankAllpassTuning = [4]int{556, 441, 341, 225}
)

const (
	tankReferenceRate = 44100.0
	tankStereoSpread  = 23
	tankInputGain     = 0.015
)

type tankComb struct {
	buffer   []float64
	index    int
	store    float64
	feedback float64
	damp     float64
}

func (c *tankComb) process(input float64) float64 {
	output := c.buffer[c.index]

	c.store = output + (c.store-output)*c.damp
	c.store = core.FlushDenormals(c.store)

	c.buffer[c.index] = input + c.store*c.feedback
	c.index++
	if c.index >= len(c.buffer) {
		c.index = 0
	}

	return output
}

func (c *tankComb) reset() {
	core.Zero(c.buffer)
	c.index = 0
	c.store = 0
}

type tankAllpass struct {
	buffer []float64
	index  int
}

func (a *tankAllpass) process(input float64) float64 {
	bufOut := a.buffer[a.index]
	output := bufOut - input

	a.buffer[a.index] = input + bufOut*0.5
	a.index++
	if a.index >= len(a.buffer) {
		a.index = 0
	}

	return core.FlushDenormals(output)
}

func (a *tankAllpass) reset() {
	core.Zero(a.buffer)
	a.index = 0
}

// tank is one channel of a Freeverb-style reverb: eight parallel
// lowpass-feedback combs into four series allpasses.
type tank struct {
	combs   [8]tankComb
	allpass [4]tankAllpass
}

// newTank builds a tank scaled to the sample rate. spread offsets every
// line length, decorrelating the two channels of a stereo pair.
func newTank(sampleRate float64, spread int) *tank {
	scale := sampleRate / tankReferenceRate

	t := &tank{}
	for i := range t.combs {
		size := int(float64(tankCombTuning[i])*scale) + spread
		t.combs[i].buffer = make([]float64, size)
	}
	for i := range t.allpass {
		size := int(float64(tankAllpassTuning[i])*scale) + spread
		t.allpass[i].buffer = make([]float64, size)
	}

	return t
}

// setDecay maps room size and damping onto the comb coefficients.
func (t *tank) setDecay(size, damping float64) {
	feedback := 0.7 + size*0.28
	damp := damping * 0.8

	for i := range t.combs {
		t.combs[i].feedback = feedback
		t.combs[i].damp = damp
	}
}

func (t *tank) process(input float64) float64 {
	in := input * tankInputGain

	out := 0.0
	for i := range t.combs {
		out += t.combs[i].process(in)
	}

	for i := range t.allpass {
		out = t.allpass[i].process(out)
	}

	return out
}

func (t *tank) reset() {
	for i := range t.combs {
		t.combs[i].reset()
	}
	for i := range t.allpass {
		t.allpass[i].reset()
	}
}
