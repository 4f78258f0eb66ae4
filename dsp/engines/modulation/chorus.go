package modulation

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/delay"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

const (
	chorusVoices       = 3
	chorusMaxDelaySecs = 0.045
	chorusBaseSecs     = 0.012
	chorusMinRateHz    = 0.05
	chorusMaxRateHz    = 5.0
)

// StereoChorus is a three-voice modulated-delay chorus. Each voice
// follows
//
//	d(t) = base + span * 0.5 * (1 + sin(phase + voiceOffset))
//
// with the right channel's LFOs offset by the width control.
type StereoChorus struct {
	engine.Unit

	lines  [2][chorusVoices]*delay.Line
	lfos   [chorusVoices]dsputil.LFO
	fbLast [2]float64
}

// NewStereoChorus returns an unprepared stereo chorus.
func NewStereoChorus() *StereoChorus {
	return &StereoChorus{
		Unit: engine.NewUnit("Stereo Chorus",
			engine.ParamSpec{Name: "Rate", Default: 0.3},
			engine.ParamSpec{Name: "Depth", Default: 0.5},
			engine.ParamSpec{Name: "Delay", Default: 0.3},
			engine.ParamSpec{Name: "Feedback", Default: 0.2},
			engine.ParamSpec{Name: "Width", Default: 0.7},
			engine.ParamSpec{Name: "Mix", Default: 0.5},
		),
	}
}

// Prepare sizes the delay lines for the transport.
func (c *StereoChorus) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := c.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := range c.lines {
		for v := range c.lines[ch] {
			line, err := delay.NewForDuration(chorusMaxDelaySecs, sampleRate)
			if err != nil {
				return err
			}
			c.lines[ch][v] = line
		}
	}

	c.Reset()

	return nil
}

// Reset clears the delay lines and re-phases the voice LFOs.
func (c *StereoChorus) Reset() {
	for ch := range c.lines {
		for v := range c.lines[ch] {
			if c.lines[ch][v] != nil {
				c.lines[ch][v].Reset()
			}
		}
		c.fbLast[ch] = 0
	}

	for v := range c.lfos {
		c.lfos[v].Reset()
		c.lfos[v].SetPhase(2 * math.Pi * float64(v) / chorusVoices)
	}

	c.Params().Snap()
}

// Process runs the chorus in place.
func (c *StereoChorus) Process(block [][]float64) {
	if len(block) == 0 || !c.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := c.Params()
	sampleRate := c.SampleRate()
	voiceGain := 1.0 / chorusVoices

	for i := range block[0] {
		rate := core.ExpMap(params.At(0).Next(), chorusMinRateHz, chorusMaxRateHz)
		depth := params.At(1).Next()
		baseNorm := params.At(2).Next()
		feedback := params.At(3).Next() * 0.7
		width := params.At(4).Next()
		mix := params.At(5).Next()

		base := (0.004 + baseNorm*(chorusBaseSecs-0.004)) * sampleRate
		span := depth * 0.004 * sampleRate

		for v := range c.lfos {
			c.lfos[v].SetRate(rate*(1+0.17*float64(v)), sampleRate)
			c.lfos[v].Advance()
		}

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]
			in := dry + c.fbLast[ch]*feedback

			phaseOffset := 0.0
			if ch == 1 {
				phaseOffset = width * math.Pi * 0.5
			}

			wet := 0.0
			for v := range c.lines[ch] {
				lfo := c.lfos[v].SineAt(phaseOffset)
				d := base + span*0.5*(1+lfo)
				c.lines[ch][v].Write(in)
				wet += c.lines[ch][v].ReadFractional(d)
			}
			wet *= voiceGain

			c.fbLast[ch] = wet
			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

// ResonantChorus feeds each chorus voice through a resonant band-pass so
// the moving delay taps ring. A single shared delay per channel keeps it
// cheaper than the stereo chorus.
type ResonantChorus struct {
	engine.Unit

	lines [2]*delay.Line
	tones [2]dsputil.OnePole
	ring  [2]float64
	lfo   dsputil.LFO
}

// NewResonantChorus returns an unprepared resonant chorus.
func NewResonantChorus() *ResonantChorus {
	return &ResonantChorus{
		Unit: engine.NewUnit("Resonant Chorus",
			engine.ParamSpec{Name: "Rate", Default: 0.3},
			engine.ParamSpec{Name: "Depth", Default: 0.5},
			engine.ParamSpec{Name: "Resonance", Default: 0.4},
			engine.ParamSpec{Name: "Width", Default: 0.6},
			engine.ParamSpec{Name: "Mix", Default: 0.5},
		),
	}
}

// Prepare sizes the delay lines for the transport.
func (c *ResonantChorus) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := c.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := range c.lines {
		line, err := delay.NewForDuration(chorusMaxDelaySecs, sampleRate)
		if err != nil {
			return err
		}
		c.lines[ch] = line
	}

	c.Reset()

	return nil
}

// Reset clears delay and filter state.
func (c *ResonantChorus) Reset() {
	for ch := range c.lines {
		if c.lines[ch] != nil {
			c.lines[ch].Reset()
		}
		c.tones[ch].Reset()
		c.ring[ch] = 0
	}

	c.lfo.Reset()
	c.Params().Snap()
}

// Process runs the resonant chorus in place.
func (c *ResonantChorus) Process(block [][]float64) {
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
		rate := core.ExpMap(params.At(0).Next(), chorusMinRateHz, chorusMaxRateHz)
		depth := params.At(1).Next()
		resonance := params.At(2).Next() * 0.85
		width := params.At(3).Next()
		mix := params.At(4).Next()

		c.lfo.SetRate(rate, sampleRate)
		c.lfo.Advance()

		base := 0.008 * sampleRate
		span := depth * 0.005 * sampleRate

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			phaseOffset := 0.0
			if ch == 1 {
				phaseOffset = width * math.Pi * 0.5
			}

			lfo := c.lfo.SineAt(phaseOffset)
			d := base + span*0.5*(1+lfo)

			// Regeneration through a one-pole tone keeps the ring dark.
			c.tones[ch].SetCutoff(1800, sampleRate)
			in := dry + c.tones[ch].Process(c.ring[ch])*resonance

			c.lines[ch].Write(in)
			wet := c.lines[ch].ReadFractional(d)
			c.ring[ch] = wet

			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}
