package modulation

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

// ClassicTremolo is an amplitude tremolo with a morphable LFO shape and
// an adjustable stereo phase offset. Shape sweeps sine through triangle
// into a rounded square.
type ClassicTremolo struct {
	engine.Unit

	lfo dsputil.LFO
}

// NewClassicTremolo returns an unprepared tremolo.
func NewClassicTremolo() *ClassicTremolo {
	return &ClassicTremolo{
		Unit: engine.NewUnit("Classic Tremolo",
			engine.ParamSpec{Name: "Rate", Default: 0.4},
			engine.ParamSpec{Name: "Depth", Default: 0.5},
			engine.ParamSpec{Name: "Shape", Default: 0.0},
			engine.ParamSpec{Name: "Stereo", Default: 0.0},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (t *ClassicTremolo) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := t.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	t.Reset()

	return nil
}

// Reset re-phases the LFO.
func (t *ClassicTremolo) Reset() {
	t.lfo.Reset()
	t.Params().Snap()
}

// tremoloShape morphs sine (0) to triangle (0.5) to rounded square (1).
func tremoloShape(phase, shape float64) float64 {
	sine := math.Sin(phase)
	tri := dsputil.TriangleAt(phase + math.Pi/2)

	if shape < 0.5 {
		k := shape * 2
		return sine + (tri-sine)*k
	}

	k := (shape - 0.5) * 2
	square := math.Tanh(sine * 5)

	return tri + (square-tri)*k
}

// Process runs the tremolo in place.
func (t *ClassicTremolo) Process(block [][]float64) {
	if len(block) == 0 || !t.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := t.Params()
	sampleRate := t.SampleRate()

	for i := range block[0] {
		rate := core.ExpMap(params.At(0).Next(), 0.1, 20)
		depth := params.At(1).Next()
		shape := params.At(2).Next()
		stereo := params.At(3).Next()
		mix := params.At(4).Next()

		t.lfo.SetRate(rate, sampleRate)
		t.lfo.Advance()

		for ch := 0; ch < channels; ch++ {
			phase := t.lfo.Phase()
			if ch == 1 {
				phase += stereo * math.Pi
			}

			gain := 1 - depth*0.5*(1+tremoloShape(phase, shape))

			dry := block[ch][i]
			block[ch][i] = dsputil.DryWet(dry, dry*gain, mix)
		}
	}
}

// HarmonicTremolo splits the signal at a crossover and modulates the two
// bands with opposite LFO polarity, producing the phasey brownface
// throb rather than plain volume pumping.
type HarmonicTremolo struct {
	engine.Unit

	split [2]dsputil.OnePole
	lfo   dsputil.LFO
}

// NewHarmonicTremolo returns an unprepared harmonic tremolo.
func NewHarmonicTremolo() *HarmonicTremolo {
	return &HarmonicTremolo{
		Unit: engine.NewUnit("Harmonic Tremolo",
			engine.ParamSpec{Name: "Rate", Default: 0.35},
			engine.ParamSpec{Name: "Depth", Default: 0.6},
			engine.ParamSpec{Name: "Crossover", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (t *HarmonicTremolo) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := t.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	t.Reset()

	return nil
}

// Reset clears the crossover filters and re-phases the LFO.
func (t *HarmonicTremolo) Reset() {
	for ch := range t.split {
		t.split[ch].Reset()
	}
	t.lfo.Reset()
	t.Params().Snap()
}

// Process runs the harmonic tremolo in place.
func (t *HarmonicTremolo) Process(block [][]float64) {
	if len(block) == 0 || !t.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := t.Params()
	sampleRate := t.SampleRate()

	for i := range block[0] {
		rate := core.ExpMap(params.At(0).Next(), 0.1, 12)
		depth := params.At(1).Next()
		crossover := core.ExpMap(params.At(2).Next(), 200, 2000)
		mix := params.At(3).Next()

		t.lfo.SetRate(rate, sampleRate)
		t.lfo.Advance()

		mod := 0.5 * (1 + t.lfo.Sine())
		lowGain := 1 - depth*mod
		highGain := 1 - depth*(1-mod)

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			t.split[ch].SetCutoff(crossover, sampleRate)
			low := t.split[ch].Process(dry)
			high := dry - low

			wet := low*lowGain + high*highGain
			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}
