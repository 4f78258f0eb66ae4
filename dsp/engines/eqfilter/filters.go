package eqfilter

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/delay"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

// ladderState is one channel of the four-pole ladder: the four stage
// outputs plus the unit-delayed feedback tap.
type ladderState struct {
	stage [4]float64
	last  float64
}

func (s *ladderState) reset() {
	*s = ladderState{}
}

// LadderFilter is a four-pole transistor-ladder low-pass with tanh
// saturation inside the loop. Resonance feeds the fourth stage back to
// the input; the passband loss that brings is partially made up so the
// filter does not fall silent under self-oscillation levels.
type LadderFilter struct {
	engine.Unit

	channels [2]ladderState
}

// NewLadderFilter returns an unprepared ladder filter.
func NewLadderFilter() *LadderFilter {
	return &LadderFilter{
		Unit: engine.NewUnit("Ladder Filter",
			engine.ParamSpec{Name: "Cutoff", Default: 0.6},
			engine.ParamSpec{Name: "Resonance", Default: 0.2},
			engine.ParamSpec{Name: "Drive", Default: 0.2},
			engine.ParamSpec{Name: "Vintage", Default: 0.3},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (l *LadderFilter) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := l.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	l.Reset()

	return nil
}

// Reset clears the ladder stages.
func (l *LadderFilter) Reset() {
	for ch := range l.channels {
		l.channels[ch].reset()
	}
	l.Params().Snap()
}

// Process runs the ladder in place.
func (l *LadderFilter) Process(block [][]float64) {
	if len(block) == 0 || !l.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := l.Params()
	sampleRate := l.SampleRate()

	for i := range block[0] {
		cutoff := core.ExpMap(params.At(0).Next(), 20, 18000)
		resonance := params.At(1).Next() * 4
		drive := 1 + params.At(2).Next()*9
		vintage := params.At(3).Next()
		mix := params.At(4).Next()

		fc := cutoff / sampleRate
		if fc > 0.45 {
			fc = 0.45
		}

		// Tuned one-pole coefficient with a cubic correction term that
		// keeps the cutoff honest into the top octaves.
		g := 1 - math.Exp(-2*math.Pi*fc)
		g = core.Clamp(g*(1.0+0.5*g*g), 0, 0.99)

		comp := 1 + resonance*0.5

		for ch := 0; ch < channels; ch++ {
			state := &l.channels[ch]
			dry := block[ch][i]

			in := math.Tanh(dry * drive)
			fb := state.last * resonance
			x := in - fb

			for s := 0; s < 4; s++ {
				prev := x
				if s > 0 {
					prev = state.stage[s-1]
				}

				next := state.stage[s] + g*(math.Tanh(prev*(1+vintage*0.4))-math.Tanh(state.stage[s]))
				state.stage[s] = core.FlushDenormals(next)
			}

			state.last = state.stage[3]

			wet := state.stage[3] * comp / drive
			if vintage > 0 {
				wet = dsputil.AsymSoftClip(wet*1.2, vintage*0.1) / 1.2
			}

			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

// svfState is one channel of the Chamberlin state-variable topology.
type svfState struct {
	low, band float64
}

// StateVariableFilter is a state-variable filter whose mode control
// morphs continuously low-pass to band-pass to high-pass.
type StateVariableFilter struct {
	engine.Unit

	channels [2]svfState
}

// NewStateVariableFilter returns an unprepared state-variable filter.
func NewStateVariableFilter() *StateVariableFilter {
	return &StateVariableFilter{
		Unit: engine.NewUnit("State Variable Filter",
			engine.ParamSpec{Name: "Cutoff", Default: 0.5},
			engine.ParamSpec{Name: "Resonance", Default: 0.3},
			engine.ParamSpec{Name: "Mode", Default: 0.0},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (s *StateVariableFilter) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := s.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	s.Reset()

	return nil
}

// Reset clears the integrators.
func (s *StateVariableFilter) Reset() {
	for ch := range s.channels {
		s.channels[ch] = svfState{}
	}
	s.Params().Snap()
}

// Process runs the filter in place.
func (s *StateVariableFilter) Process(block [][]float64) {
	if len(block) == 0 || !s.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := s.Params()
	sampleRate := s.SampleRate()

	for i := range block[0] {
		cutoff := core.ExpMap(params.At(0).Next(), 20, 16000)
		resonance := params.At(1).Next()
		mode := params.At(2).Next()
		mix := params.At(3).Next()

		f := 2 * math.Sin(math.Pi*core.Clamp(cutoff/sampleRate, 0, 0.22))
		// The two-integrator loop is stable only while f*f+2*f*q < 4,
		// so the damping is capped against the current tuning with a
		// tenth of headroom.
		q := 1.25 * (1 - resonance*0.97)
		if limit := (3.6 - f*f) / (2 * f); q > limit {
			q = limit
		}

		for ch := 0; ch < channels; ch++ {
			state := &s.channels[ch]
			dry := block[ch][i]

			state.low += f * state.band
			high := dry - state.low - q*state.band
			state.band += f * high
			state.low = core.FlushDenormals(state.low)
			state.band = core.FlushDenormals(state.band)

			var wet float64
			if mode < 0.5 {
				k := mode * 2
				wet = state.low + (state.band-state.low)*k
			} else {
				k := (mode - 0.5) * 2
				wet = state.band + (high-state.band)*k
			}

			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

// EnvelopeFilter is an auto-wah: a resonant band-pass swept by the
// input's own envelope. Direction inverts the sweep for down-wah.
type EnvelopeFilter struct {
	engine.Unit

	follower dsputil.EnvelopeFollower
	channels [2]svfState
}

// NewEnvelopeFilter returns an unprepared envelope filter.
func NewEnvelopeFilter() *EnvelopeFilter {
	return &EnvelopeFilter{
		Unit: engine.NewUnit("Envelope Filter",
			engine.ParamSpec{Name: "Sensitivity", Default: 0.5},
			engine.ParamSpec{Name: "Range", Default: 0.6},
			engine.ParamSpec{Name: "Resonance", Default: 0.6},
			engine.ParamSpec{Name: "Direction", Default: 1.0},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (e *EnvelopeFilter) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := e.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	e.follower.SetTimes(5, 120, sampleRate)
	e.Reset()

	return nil
}

// Reset clears envelope and filter state.
func (e *EnvelopeFilter) Reset() {
	e.follower.Reset()
	for ch := range e.channels {
		e.channels[ch] = svfState{}
	}
	e.Params().Snap()
}

// Process runs the envelope filter in place.
func (e *EnvelopeFilter) Process(block [][]float64) {
	if len(block) == 0 || !e.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := e.Params()
	sampleRate := e.SampleRate()

	for i := range block[0] {
		sensitivity := params.At(0).Next()
		sweepRange := params.At(1).Next()
		resonance := params.At(2).Next()
		direction := params.At(3).Next()
		mix := params.At(4).Next()

		level := math.Abs(block[0][i])
		if channels > 1 {
			if r := math.Abs(block[1][i]); r > level {
				level = r
			}
		}

		env := core.Clamp01(e.follower.Process(level) * (1 + sensitivity*15))
		sweep := env
		if direction < 0.5 {
			sweep = 1 - env
		}

		freq := core.ExpMap(sweep*sweepRange, 250, 2500)
		f := 2 * math.Sin(math.Pi*core.Clamp(freq/sampleRate, 0, 0.22))
		q := 1.25 * (1 - resonance*0.95)

		for ch := 0; ch < channels; ch++ {
			state := &e.channels[ch]
			dry := block[ch][i]

			state.low += f * state.band
			high := dry - state.low - q*state.band
			state.band += f * high
			state.low = core.FlushDenormals(state.low)
			state.band = core.FlushDenormals(state.band)

			block[ch][i] = dsputil.DryWet(dry, state.band, mix)
		}
	}
}

// CombResonator is a tuned feedback comb with damping in the loop. It
// rings at the set frequency and its harmonics, turning broadband input
// into pitched material.
type CombResonator struct {
	engine.Unit

	lines [2]*delay.Line
	damps [2]dsputil.OnePole
}

// NewCombResonator returns an unprepared comb resonator.
func NewCombResonator() *CombResonator {
	return &CombResonator{
		Unit: engine.NewUnit("Comb Resonator",
			engine.ParamSpec{Name: "Frequency", Default: 0.5},
			engine.ParamSpec{Name: "Feedback", Default: 0.7},
			engine.ParamSpec{Name: "Damping", Default: 0.3},
			engine.ParamSpec{Name: "Mix", Default: 0.5},
		),
	}
}

// Prepare sizes the comb for the lowest tunable frequency.
func (c *CombResonator) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := c.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := range c.lines {
		// 25 Hz fundamental at the bottom of the range.
		line, err := delay.NewForDuration(1.0/25.0, sampleRate)
		if err != nil {
			return err
		}
		c.lines[ch] = line
	}

	c.Reset()

	return nil
}

// Reset clears the comb and damping state.
func (c *CombResonator) Reset() {
	for ch := range c.lines {
		if c.lines[ch] != nil {
			c.lines[ch].Reset()
		}
		c.damps[ch].Reset()
	}
	c.Params().Snap()
}

// Process runs the resonator in place.
func (c *CombResonator) Process(block [][]float64) {
	if len(block) == 0 || !c.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := c.Params()
	sampleRate := c.SampleRate()

	for i := range block[0] {
		freq := core.ExpMap(params.At(0).Next(), 25, 2000)
		feedback := params.At(1).Next() * 0.98
		damping := params.At(2).Next()
		mix := params.At(3).Next()

		period := sampleRate / freq

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			tap := c.lines[ch].ReadFractional(period)
			c.damps[ch].SetCutoff(core.ExpMap(1-damping, 500, 12000), sampleRate)
			damped := c.damps[ch].Process(tap)

			c.lines[ch].Write(dry + damped*feedback)

			block[ch][i] = dsputil.DryWet(dry, tap, mix)
		}
	}
}
