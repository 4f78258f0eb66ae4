package special

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/delay"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

// Prime-ish base lengths keep the four loops inharmonic.
var networkBaseSecs = [4]float64{0.0297, 0.0371, 0.0411, 0.0437}

// FeedbackNetwork is a four-line feedback delay network with an
// orthogonal Hadamard mix in the loop. High feedback turns it into a
// metallic resonator rather than a reverb; the loop is energy
// preserving up to the damping filters, so it rings without blowing up.
type FeedbackNetwork struct {
	engine.Unit

	lines [4]*delay.Line
	damp  [4]dsputil.OnePole
	lfo   dsputil.LFO
}

// NewFeedbackNetwork returns an unprepared network.
func NewFeedbackNetwork() *FeedbackNetwork {
	return &FeedbackNetwork{
		Unit: engine.NewUnit("Feedback Network",
			engine.ParamSpec{Name: "Feedback", Default: 0.5},
			engine.ParamSpec{Name: "Size", Default: 0.5},
			engine.ParamSpec{Name: "Modulation", Default: 0.2},
			engine.ParamSpec{Name: "Mix", Default: 0.5},
		),
	}
}

func (f *FeedbackNetwork) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := f.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for k := 0; k < 4; k++ {
		// Size scales up to 4x the base lengths.
		line, err := delay.NewForDuration(networkBaseSecs[k]*4+0.005, sampleRate)
		if err != nil {
			return err
		}
		f.lines[k] = line
	}

	f.Reset()

	return nil
}

func (f *FeedbackNetwork) Reset() {
	for k := 0; k < 4; k++ {
		if f.lines[k] != nil {
			f.lines[k].Reset()
		}
		f.damp[k].Reset()
	}
	f.lfo.Reset()
	f.Params().Snap()
}

func (f *FeedbackNetwork) Process(block [][]float64) {
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
		feedback := params.At(0).Next() * 0.97
		size := params.At(1).Next()
		modulation := params.At(2).Next()
		mix := params.At(3).Next()

		f.lfo.SetRate(0.3, sampleRate)
		f.lfo.Advance()

		lengthScale := (0.5 + size*3.5) * sampleRate

		in := block[0][i]
		if channels > 1 {
			in = (in + block[1][i]) * 0.5
		}

		var taps [4]float64
		for k := 0; k < 4; k++ {
			modDepth := modulation * 0.002 * sampleRate
			tap := networkBaseSecs[k]*lengthScale + modDepth*f.lfo.SineAt(float64(k)*math.Pi*0.5)
			if tap < 1 {
				tap = 1
			}
			taps[k] = f.damp[k].Process(f.lines[k].ReadFractional(tap))
		}

		// 4x4 Hadamard, scaled by 1/2 to keep it orthonormal.
		const h = 0.5
		m0 := h * (taps[0] + taps[1] + taps[2] + taps[3])
		m1 := h * (taps[0] - taps[1] + taps[2] - taps[3])
		m2 := h * (taps[0] + taps[1] - taps[2] - taps[3])
		m3 := h * (taps[0] - taps[1] - taps[2] + taps[3])

		dampHz := core.ExpMap(1-feedback/0.97*0.5, 2000, 14000)
		for k := 0; k < 4; k++ {
			f.damp[k].SetCutoff(dampHz, sampleRate)
		}

		f.lines[0].Write(core.FlushDenormals(in + m0*feedback))
		f.lines[1].Write(core.FlushDenormals(in*0.7 + m1*feedback))
		f.lines[2].Write(core.FlushDenormals(in*0.5 + m2*feedback))
		f.lines[3].Write(core.FlushDenormals(in*0.3 + m3*feedback))

		wetL := taps[0] + taps[2]*0.7
		wetR := taps[1] + taps[3]*0.7

		block[0][i] = dsputil.DryWet(block[0][i], wetL, mix)
		if channels > 1 {
			block[1][i] = dsputil.DryWet(block[1][i], wetR, mix)
		}
	}
}
