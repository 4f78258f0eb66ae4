// Package modulation implements the modulation-family engines: choruses,
// phaser, ring modulator, frequency shifter, tremolos, and rotary speaker.
package modulation

import (
	"math"
	"math/rand"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

// Analog phaser parameter indices.
const (
	PhaserParamRate = iota
	PhaserParamDepth
	PhaserParamFeedback
	PhaserParamStages
	PhaserParamSpread
	PhaserParamCenter
	PhaserParamResonance
	PhaserParamMix
)

const (
	phaserMaxStages    = 8
	phaserMinCenterHz  = 200.0
	phaserMaxCenterHz  = 2000.0
	phaserMinRateHz    = 0.02
	phaserMaxRateHz    = 10.0
	phaserMaxFeedback  = 0.95
	phaserWobbleRatio  = 3.7
	phaserWobbleAmount = 0.1
	phaserThermalMax   = 0.02
	phaserDriftSeed    = 0x5EED
)

type phaserAllpass struct {
	x1, y1 float64
}

func (s *phaserAllpass) process(x, a float64) float64 {
	y := a*x + s.x1 - a*s.y1
	s.x1 = x
	s.y1 = y + 1e-25

	return y
}

func (s *phaserAllpass) reset() {
	s.x1 = 0
	s.y1 = 0
}

type phaserChannel struct {
	stages   [phaserMaxStages]phaserAllpass
	feedback float64
	dcIn     dsputil.DCBlocker
	dcOut    dsputil.DCBlocker
}

func (c *phaserChannel) reset() {
	for i := range c.stages {
		c.stages[i].reset()
	}

	c.feedback = 0
	c.dcIn = dsputil.NewDCBlocker()
	c.dcOut = dsputil.NewDCBlocker()
}

// AnalogPhaser is a stereo cascaded-allpass phaser with a blended
// triangle/sine LFO, soft-clipped feedback, and a bounded thermal/aging
// drift model emulating analog component variation.
//
// The right channel's LFO lags the left by spread*0.5 radians. The drift
// model is seeded deterministically, so Reset restores the exact
// post-Prepare state.
type AnalogPhaser struct {
	engine.Unit

	channels [2]phaserChannel

	lfo        dsputil.LFO
	wobble     dsputil.LFO
	drift      [phaserMaxStages]float64
	rng        *rand.Rand
	thermalEps float64
	thermalTgt float64
	thermalCtr int
	thermalLen int
	agingSecs  float64
}

// NewAnalogPhaser returns an unprepared analog phaser.
func NewAnalogPhaser() *AnalogPhaser {
	p := &AnalogPhaser{
		Unit: engine.NewUnit("Analog Phaser",
			engine.ParamSpec{Name: "Rate", Default: 0.3},
			engine.ParamSpec{Name: "Depth", Default: 0.5},
			engine.ParamSpec{Name: "Feedback", Default: 0.3},
			engine.ParamSpec{Name: "Stages", Default: 0.5, Coeff: 0.999},
			engine.ParamSpec{Name: "Stereo Spread", Default: 0.5},
			engine.ParamSpec{Name: "Center", Default: 0.5},
			engine.ParamSpec{Name: "Resonance", Default: 0.2},
			engine.ParamSpec{Name: "Mix", Default: 0.5},
		),
	}

	// Component tolerances are fixed per instance, like a physical unit.
	rng := rand.New(rand.NewSource(phaserDriftSeed))
	for i := range p.drift {
		p.drift[i] = (rng.Float64()*2 - 1) * 0.01
	}

	return p
}

// Prepare declares the running conditions and resets the drift model.
func (p *AnalogPhaser) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := p.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	// Thermal target re-randomizes every ~2 s.
	p.thermalLen = int(2 * sampleRate)
	p.Reset()

	return nil
}

// Reset returns every filter, oscillator, and drift state to the
// post-Prepare rest state.
func (p *AnalogPhaser) Reset() {
	for i := range p.channels {
		p.channels[i].reset()
	}

	p.lfo.Reset()
	p.wobble.Reset()
	p.rng = rand.New(rand.NewSource(phaserDriftSeed + 1))
	p.thermalEps = 0
	p.thermalTgt = 0
	p.thermalCtr = 0
	p.agingSecs = 0
	p.Params().Snap()
}

// activeStageCount maps the stages parameter's quartile onto {2, 4, 6, 8}.
func activeStageCount(norm float64) int {
	quartile := int(norm * 4)
	if quartile > 3 {
		quartile = 3
	}

	return 2 * (quartile + 1)
}

// Process runs the phaser in place.
func (p *AnalogPhaser) Process(block [][]float64) {
	if len(block) == 0 || !p.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := p.Params()
	sampleRate := p.SampleRate()
	invRate := 1.0 / sampleRate
	aging := math.Min(p.agingSecs/36000, 0.5)

	for i := range block[0] {
		rate := core.ExpMap(params.At(PhaserParamRate).Next(), phaserMinRateHz, phaserMaxRateHz)
		depth := params.At(PhaserParamDepth).Next()
		feedback := params.At(PhaserParamFeedback).Next() * phaserMaxFeedback
		stagesNorm := params.At(PhaserParamStages).Next()
		spread := params.At(PhaserParamSpread).Next()
		center := core.ExpMap(params.At(PhaserParamCenter).Next(), phaserMinCenterHz, phaserMaxCenterHz)
		resonance := params.At(PhaserParamResonance).Next()
		mix := params.At(PhaserParamMix).Next()

		p.advanceThermal()

		p.lfo.SetRate(rate, sampleRate)
		p.wobble.SetRate(rate*phaserWobbleRatio, sampleRate)
		p.lfo.Advance()
		p.wobble.Advance()

		active := activeStageCount(stagesNorm)
		thermal := 1 + p.thermalEps

		fbGain := feedback * (1 + aging*0.1) * (1 + resonance*2) * thermal
		if fbGain > phaserMaxFeedback {
			fbGain = phaserMaxFeedback
		}

		for ch := 0; ch < channels; ch++ {
			state := &p.channels[ch]

			phaseOffset := 0.0
			if ch == 1 {
				phaseOffset = -spread * 0.5
			}

			lfoValue := dsputil.TriangleAt(p.lfo.Phase()+phaseOffset)*0.7 +
				p.lfo.SineAt(phaseOffset)*0.3 +
				phaserWobbleAmount*p.wobble.SineAt(phaseOffset)

			modFreq := center * thermal *
				math.Pow(2, lfoValue*depth*(1-aging*0.1))

			dry := block[ch][i]
			x := state.dcIn.Process(dry)

			fb := dsputil.AsymSoftClip(state.feedback, aging*0.2)
			y := x + fb*fbGain

			for k := 0; k < active; k++ {
				stageFreq := modFreq * math.Pow(1.1, float64(k)) * (1 + p.drift[k])
				y = state.stages[k].process(y, phaserCoefficient(stageFreq, invRate))
			}

			state.feedback = y

			drive := 1 + resonance*0.25
			wet := math.Tanh(y*drive) / drive
			wet += aging * 0.02 * wet * wet
			wet = state.dcOut.Process(wet)

			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}

		p.agingSecs += invRate
	}
}

// advanceThermal steps the slow thermal drift: a one-pole walk toward a
// bounded target that re-randomizes every couple of seconds.
func (p *AnalogPhaser) advanceThermal() {
	if p.thermalCtr <= 0 {
		p.thermalTgt = (p.rng.Float64()*2 - 1) * phaserThermalMax
		p.thermalCtr = p.thermalLen
		if p.thermalCtr <= 0 {
			p.thermalCtr = 96000
		}
	}

	p.thermalCtr--
	p.thermalEps += (p.thermalTgt - p.thermalEps) * 2e-5
}

// phaserCoefficient computes the first-order allpass coefficient
// a = (tan(pi f/fs) - 1)/(tan(pi f/fs) + 1), clamped below Nyquist.
func phaserCoefficient(freqHz, invRate float64) float64 {
	fNorm := freqHz * invRate
	if fNorm < 1e-6 {
		fNorm = 1e-6
	} else if fNorm > 0.49 {
		fNorm = 0.49
	}

	t := math.Tan(math.Pi * fNorm)
	if math.IsInf(t, 0) || math.IsNaN(t) {
		return 0
	}

	return (t - 1) / (t + 1)
}
