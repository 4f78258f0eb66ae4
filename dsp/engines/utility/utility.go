// Package utility implements the routing and gain staging engines.
// These are deliberately plain: no saturation, no modulation, just
// clean level and phase arithmetic.
package utility

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/delay"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

// MidSideProcessor gives independent gain over the mid and side signals
// plus a clean output trim.
type MidSideProcessor struct {
	engine.Unit
}

// NewMidSideProcessor returns an unprepared processor.
func NewMidSideProcessor() *MidSideProcessor {
	return &MidSideProcessor{
		Unit: engine.NewUnit("Mid-Side Processor",
			engine.ParamSpec{Name: "Mid Gain", Default: 0.5},
			engine.ParamSpec{Name: "Side Gain", Default: 0.5},
			engine.ParamSpec{Name: "Output", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

func (m *MidSideProcessor) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := m.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}
	m.Reset()
	return nil
}

func (m *MidSideProcessor) Reset() { m.Params().Snap() }

func (m *MidSideProcessor) Process(block [][]float64) {
	if len(block) == 0 || !m.Prepared() {
		return
	}

	params := m.Params()
	stereo := len(block) >= 2

	for i := range block[0] {
		// Linear gains, unity at 0.5: the bottom of the range mutes the
		// component outright, which doubles as a mono fold-down (side 0)
		// or a vocal-cut (mid 0).
		midGain := params.At(0).Next() * 2
		sideGain := params.At(1).Next() * 2
		output := core.DBToLinear((params.At(2).Next() - 0.5) * 12)
		mix := params.At(3).Next()

		l := block[0][i]
		r := l
		if stereo {
			r = block[1][i]
		}

		mid := (l + r) * 0.5 * midGain
		side := (l - r) * 0.5 * sideGain

		block[0][i] = dsputil.DryWet(l, (mid+side)*output, mix)
		if stereo {
			block[1][i] = dsputil.DryWet(r, (mid-side)*output, mix)
		}
	}
}

// GainUtility is a clean gain, pan, and polarity stage.
type GainUtility struct {
	engine.Unit
}

// NewGainUtility returns an unprepared gain stage.
func NewGainUtility() *GainUtility {
	return &GainUtility{
		Unit: engine.NewUnit("Gain Utility",
			engine.ParamSpec{Name: "Gain", Default: 0.5},
			engine.ParamSpec{Name: "Pan", Default: 0.5},
			engine.ParamSpec{Name: "Invert", Default: 0.0},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

func (g *GainUtility) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := g.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}
	g.Reset()
	return nil
}

func (g *GainUtility) Reset() { g.Params().Snap() }

func (g *GainUtility) Process(block [][]float64) {
	if len(block) == 0 || !g.Prepared() {
		return
	}

	params := g.Params()
	stereo := len(block) >= 2

	for i := range block[0] {
		gain := core.DBToLinear((params.At(0).Next() - 0.5) * 36)
		pan := params.At(1).Next()
		invert := params.At(2).Next() > 0.5
		mix := params.At(3).Next()

		// Constant power pan law.
		panL := math.Cos(pan*math.Pi*0.5) * math.Sqrt2
		panR := math.Sin(pan*math.Pi*0.5) * math.Sqrt2

		sign := 1.0
		if invert {
			sign = -1
		}

		l := block[0][i]
		block[0][i] = dsputil.DryWet(l, l*gain*panL*sign, mix)
		if stereo {
			r := block[1][i]
			block[1][i] = dsputil.DryWet(r, r*gain*panR*sign, mix)
		}
	}
}

// MonoMaker folds the stereo field to mono below an adjustable
// frequency, which keeps low end phase coherent for vinyl and club
// playback.
type MonoMaker struct {
	engine.Unit

	sideLP dsputil.OnePole
}

// NewMonoMaker returns an unprepared mono maker.
func NewMonoMaker() *MonoMaker {
	return &MonoMaker{
		Unit: engine.NewUnit("Mono Maker",
			engine.ParamSpec{Name: "Frequency", Default: 0.4},
			engine.ParamSpec{Name: "Amount", Default: 1.0},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

func (m *MonoMaker) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := m.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}
	m.Reset()
	return nil
}

func (m *MonoMaker) Reset() {
	m.sideLP.Reset()
	m.Params().Snap()
}

func (m *MonoMaker) Process(block [][]float64) {
	if len(block) == 0 || !m.Prepared() {
		return
	}

	params := m.Params()
	sampleRate := m.SampleRate()

	if len(block) < 2 {
		for range block[0] {
			params.At(0).Next()
			params.At(1).Next()
			params.At(2).Next()
		}
		return
	}

	for i := range block[0] {
		frequency := params.At(0).Next()
		amount := params.At(1).Next()
		mix := params.At(2).Next()

		m.sideLP.SetCutoff(core.ExpMap(frequency, 20, 500), sampleRate)

		l, r := block[0][i], block[1][i]
		mid := (l + r) * 0.5
		side := (l - r) * 0.5

		sideLow := m.sideLP.Process(side)
		wetSide := side - sideLow*amount

		block[0][i] = dsputil.DryWet(l, mid+wetSide, mix)
		block[1][i] = dsputil.DryWet(r, mid-wetSide, mix)
	}
}

const alignMaxDelaySecs = 0.005

// PhaseAlign nudges the right channel against the left with a
// fractional delay, a first order allpass phase rotation, and a
// polarity flip. Useful for lining up multi-mic sources.
type PhaseAlign struct {
	engine.Unit

	lines [2]*delay.Line
	ap1   float64 // allpass state
}

// NewPhaseAlign returns an unprepared aligner.
func NewPhaseAlign() *PhaseAlign {
	return &PhaseAlign{
		Unit: engine.NewUnit("Phase Align",
			engine.ParamSpec{Name: "Delay", Default: 0.5},
			engine.ParamSpec{Name: "Rotation", Default: 0.5},
			engine.ParamSpec{Name: "Polarity", Default: 0.0},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

func (p *PhaseAlign) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := p.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := 0; ch < 2; ch++ {
		line, err := delay.NewForDuration(alignMaxDelaySecs*2+0.001, sampleRate)
		if err != nil {
			return err
		}
		p.lines[ch] = line
	}

	p.Reset()

	return nil
}

func (p *PhaseAlign) Reset() {
	for ch := 0; ch < 2; ch++ {
		if p.lines[ch] != nil {
			p.lines[ch].Reset()
		}
	}
	p.ap1 = 0
	p.Params().Snap()
}

// Latency reports the centre delay both channels share.
func (p *PhaseAlign) Latency() int {
	return int(alignMaxDelaySecs * p.SampleRate())
}

func (p *PhaseAlign) Process(block [][]float64) {
	if len(block) == 0 || !p.Prepared() {
		return
	}

	params := p.Params()
	sampleRate := p.SampleRate()

	if len(block) < 2 {
		for range block[0] {
			params.At(0).Next()
			params.At(1).Next()
			params.At(2).Next()
			params.At(3).Next()
		}
		return
	}

	for i := range block[0] {
		delayNorm := params.At(0).Next()
		rotation := params.At(1).Next()
		polarity := params.At(2).Next() > 0.5
		mix := params.At(3).Next()

		// Both channels sit at the centre delay; 0.5 means no relative
		// shift, and the offset moves the right channel either way.
		base := alignMaxDelaySecs * sampleRate
		offset := (delayNorm - 0.5) * 2 * alignMaxDelaySecs * sampleRate
		tap := base + offset
		if tap < 1 {
			tap = 1
		}

		l, r := block[0][i], block[1][i]
		p.lines[0].Write(l)
		p.lines[1].Write(r)

		block[0][i] = dsputil.DryWet(l, p.lines[0].ReadFractional(base), mix)
		delayed := p.lines[1].ReadFractional(tap)

		// First order allpass sweeps 90 degrees through the mids.
		fc := core.ExpMap(rotation, 100, 8000)
		t := math.Tan(math.Pi * fc / sampleRate)
		a := (t - 1) / (t + 1)
		ap := a*delayed + p.ap1
		p.ap1 = delayed - a*ap

		if polarity {
			ap = -ap
		}

		block[1][i] = dsputil.DryWet(r, ap, mix)
	}
}
