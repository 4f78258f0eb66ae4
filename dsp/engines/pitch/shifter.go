package pitch

import (
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

// PitchShifter parameter indices. Mix sits at index 2; the remaining
// controls refine the shifting behavior.
const (
	ShifterParamPitch = iota
	ShifterParamFormant
	ShifterParamMix
	ShifterParamWindow
	ShifterParamGate
	ShifterParamGrain
	ShifterParamFeedback
	ShifterParamWidth
)

// PitchShifter is a time-domain pitch shifter built on per-channel
// pitch-synchronous overlap-add streams. Epoch detection is internal,
// derived from autocorrelation over the input history; no external mark
// stream is required.
//
// The wet path lags the dry input by the stream latency (a few maximum
// pitch periods), which keeps every grain's next-epoch midpoint
// available at render time.
type PitchShifter struct {
	engine.Unit

	streams [2]*psolaStream
	formant [2]dsputil.OnePole
	gateEnv dsputil.EnvelopeFollower
	gate    float64

	inBuf [2][]float64
	wet   [2][]float64
	fbBuf [2][]float64
}

// NewPitchShifter returns an unprepared pitch shifter.
func NewPitchShifter() *PitchShifter {
	return &PitchShifter{
		Unit: engine.NewUnit("Pitch Shifter",
			engine.ParamSpec{Name: "Pitch", Default: 0.5},
			engine.ParamSpec{Name: "Formant", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
			engine.ParamSpec{Name: "Window", Default: 0.5},
			engine.ParamSpec{Name: "Gate", Default: 0.0},
			engine.ParamSpec{Name: "Grain", Default: 0.5},
			engine.ParamSpec{Name: "Feedback", Default: 0.0},
			engine.ParamSpec{Name: "Width", Default: 0.5},
		),
	}
}

// Prepare sizes the history rings and workspaces for the transport.
func (p *PitchShifter) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := p.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := 0; ch < 2; ch++ {
		p.streams[ch] = newPsolaStream(sampleRate, maxBlockSize)
		p.inBuf[ch] = make([]float64, maxBlockSize)
		p.wet[ch] = make([]float64, maxBlockSize)
		p.fbBuf[ch] = make([]float64, maxBlockSize)
	}

	p.gateEnv.SetTimes(2, 80, sampleRate)
	p.Reset()

	return nil
}

// Latency returns the wet-path delay in samples, or 0 before Prepare.
func (p *PitchShifter) Latency() int {
	if p.streams[0] == nil {
		return 0
	}

	return p.streams[0].Latency()
}

// Reset returns both streams to their acquiring state.
func (p *PitchShifter) Reset() {
	for ch := 0; ch < 2; ch++ {
		if p.streams[ch] != nil {
			p.streams[ch].reset()
			core.Zero(p.fbBuf[ch])
		}
	}

	for ch := range p.formant {
		p.formant[ch].Reset()
	}

	p.gateEnv.Reset()
	p.gate = 0
	p.Params().Snap()
}

// Process runs the shifter in place.
func (p *PitchShifter) Process(block [][]float64) {
	if len(block) == 0 || !p.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	n := len(block[0])
	if n > p.MaxBlock() {
		n = p.MaxBlock()
	}

	params := p.Params()
	sampleRate := p.SampleRate()

	// Grain scheduling wants one ratio per block; the smoothed value at
	// block start serves.
	alpha := core.SemitonesToRatio(params.At(ShifterParamPitch).Current()*24 - 12)
	winScale := 0.75 + params.At(ShifterParamWindow).Current()*0.75
	feedback := params.At(ShifterParamFeedback).Current() * 0.6

	for ch := 0; ch < channels; ch++ {
		for i := 0; i < n; i++ {
			p.inBuf[ch][i] = block[ch][i] + p.fbBuf[ch][i]*feedback
		}

		p.streams[ch].process(p.inBuf[ch][:n], p.wet[ch][:n], alpha, winScale)
		copy(p.fbBuf[ch][:n], p.wet[ch][:n])
	}

	gateCoeff := core.OnePoleCoeff(8, sampleRate)

	for i := 0; i < n; i++ {
		params.At(ShifterParamPitch).Next()
		formantTilt := params.At(ShifterParamFormant).Next() - 0.5
		mix := params.At(ShifterParamMix).Next()
		params.At(ShifterParamWindow).Next()
		gateThresh := params.At(ShifterParamGate).Next()
		params.At(ShifterParamGrain).Next()
		params.At(ShifterParamFeedback).Next()
		width := params.At(ShifterParamWidth).Next() * 2

		level := p.gateEnv.Process(block[0][i])

		gateTarget := 1.0
		if gateThresh > 0 && level < core.DBToLinear(-80+gateThresh*60) {
			gateTarget = 0
		}
		p.gate = gateTarget + (p.gate-gateTarget)*gateCoeff

		for ch := 0; ch < channels; ch++ {
			w := p.wet[ch][i] * p.gate

			// Formant control tilts the wet spectrum rather than moving
			// true formants; cheap and artifact free.
			p.formant[ch].SetCutoff(core.ExpMap(0.5+formantTilt, 500, 8000), sampleRate)
			low := p.formant[ch].Process(w)
			w = low*(1-formantTilt) + (w-low)*(1+formantTilt)

			p.wet[ch][i] = w
		}

		if channels == 2 {
			mid := (p.wet[0][i] + p.wet[1][i]) * 0.5
			side := (p.wet[0][i] - p.wet[1][i]) * 0.5 * width
			p.wet[0][i] = mid + side
			p.wet[1][i] = mid - side
		}

		for ch := 0; ch < channels; ch++ {
			block[ch][i] = dsputil.DryWet(block[ch][i], p.wet[ch][i], mix)
		}
	}
}

// step2Fraction exposes the grain schedule statistics of the first
// channel's stream for verification.
func (p *PitchShifter) step2Fraction() float64 {
	if p.streams[0] == nil {
		return 0
	}

	return p.streams[0].step2Fraction()
}
