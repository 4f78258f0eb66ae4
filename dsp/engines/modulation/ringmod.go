package modulation

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

// RingModulator multiplies the input with a sine carrier. Depth blends
// between amplitude modulation (carrier biased positive) and true ring
// modulation, and the fine control stretches the coarse frequency by up
// to one octave.
type RingModulator struct {
	engine.Unit

	carrier dsputil.LFO
	dcOut   [2]dsputil.DCBlocker
}

// NewRingModulator returns an unprepared ring modulator.
func NewRingModulator() *RingModulator {
	return &RingModulator{
		Unit: engine.NewUnit("Ring Modulator",
			engine.ParamSpec{Name: "Frequency", Default: 0.4},
			engine.ParamSpec{Name: "Fine", Default: 0.5},
			engine.ParamSpec{Name: "Depth", Default: 1.0},
			engine.ParamSpec{Name: "Mix", Default: 0.5},
		),
	}
}

// Prepare declares the running conditions.
func (r *RingModulator) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := r.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	r.Reset()

	return nil
}

// Reset re-phases the carrier.
func (r *RingModulator) Reset() {
	r.carrier.Reset()
	for ch := range r.dcOut {
		r.dcOut[ch] = dsputil.NewDCBlocker()
	}
	r.Params().Snap()
}

// Process runs the modulator in place.
func (r *RingModulator) Process(block [][]float64) {
	if len(block) == 0 || !r.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := r.Params()
	sampleRate := r.SampleRate()

	for i := range block[0] {
		coarse := core.ExpMap(params.At(0).Next(), 20, 4000)
		fine := math.Pow(2, params.At(1).Next()-0.5)
		depth := params.At(2).Next()
		mix := params.At(3).Next()

		r.carrier.SetRate(coarse*fine, sampleRate)
		r.carrier.Advance()

		// Depth 0 is unity carrier (no modulation), depth 1 is full ring.
		carrier := 1 - depth + depth*r.carrier.Sine()

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]
			wet := r.dcOut[ch].Process(dry * carrier)
			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

// hilbertPair is an IIR quadrature network: two parallel four-section
// allpass cascades whose outputs sit 90 degrees apart across the audio
// band. Section form: y[n] = c*(x[n] + y[n-2]) - x[n-2].
type hilbertPair struct {
	xa, ya [4][2]float64
	xb, yb [4][2]float64
	delayB float64
}

var (
	hilbertCoeffsA = [4]float64{0.6923877778065, 0.9360654322959, 0.9882295226860, 0.9987488452737}
	hilbertCoeffsB = [4]float64{0.4021921162426, 0.8561710882420, 0.9722909545651, 0.9952884791278}
)

func (h *hilbertPair) process(x float64) (inPhase, quadrature float64) {
	a := x
	for s := range hilbertCoeffsA {
		y := hilbertCoeffsA[s]*(a+h.ya[s][1]) - h.xa[s][1]
		h.xa[s][1] = h.xa[s][0]
		h.xa[s][0] = a
		h.ya[s][1] = h.ya[s][0]
		h.ya[s][0] = y + 1e-25
		a = y
	}

	b := x
	for s := range hilbertCoeffsB {
		y := hilbertCoeffsB[s]*(b+h.yb[s][1]) - h.xb[s][1]
		h.xb[s][1] = h.xb[s][0]
		h.xb[s][0] = b
		h.yb[s][1] = h.yb[s][0]
		h.yb[s][0] = y + 1e-25
		b = y
	}

	// Path B lags one sample to complete the 90 degree relationship.
	quadrature = h.delayB
	h.delayB = b

	return a, quadrature
}

func (h *hilbertPair) reset() {
	*h = hilbertPair{}
}

// FrequencyShifter is a Bode-style single-sideband shifter. A quadrature
// network splits the input into in-phase and 90-degree components, and a
// complex oscillator selects the up or down sideband. Unlike a pitch
// shifter it moves every partial by the same number of Hz, so harmonic
// material turns inharmonic.
type FrequencyShifter struct {
	engine.Unit

	hilbert [2]hilbertPair
	osc     dsputil.LFO
}

// NewFrequencyShifter returns an unprepared frequency shifter.
func NewFrequencyShifter() *FrequencyShifter {
	return &FrequencyShifter{
		Unit: engine.NewUnit("Frequency Shifter",
			engine.ParamSpec{Name: "Shift", Default: 0.2},
			engine.ParamSpec{Name: "Fine", Default: 0.5},
			engine.ParamSpec{Name: "Direction", Default: 1.0},
			engine.ParamSpec{Name: "Mix", Default: 0.5},
		),
	}
}

// Prepare declares the running conditions.
func (f *FrequencyShifter) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := f.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	f.Reset()

	return nil
}

// Reset clears the quadrature network and oscillator.
func (f *FrequencyShifter) Reset() {
	for ch := range f.hilbert {
		f.hilbert[ch].reset()
	}
	f.osc.Reset()
	f.Params().Snap()
}

// Process runs the shifter in place.
func (f *FrequencyShifter) Process(block [][]float64) {
	if len(block) == 0 || !f.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := f.Params()
	sampleRate := f.SampleRate()

	for i := range block[0] {
		shift := core.ExpMap(params.At(0).Next(), 0.5, 1000)
		fine := params.At(1).Next()*2 - 1
		direction := params.At(2).Next()*2 - 1
		mix := params.At(3).Next()

		f.osc.SetRate(shift*(1+fine*0.1), sampleRate)
		f.osc.Advance()

		cosW := math.Cos(f.osc.Phase())
		sinW := f.osc.Sine()

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]
			inPhase, quadrature := f.hilbert[ch].process(dry)

			up := inPhase*cosW - quadrature*sinW
			down := inPhase*cosW + quadrature*sinW

			// Direction blends down (-1) through dry-ish center to up (+1).
			wet := 0.5*(1+direction)*up + 0.5*(1-direction)*down

			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}
