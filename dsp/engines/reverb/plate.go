package reverb

import (
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/delay"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

// PlateReverb is a dense studio plate: a predelay into two decorrelated
// comb/allpass tanks with width control over the wet image.
type PlateReverb struct {
	engine.Unit

	tanks    [2]*tank
	predelay [2]*delay.Line
}

// NewPlateReverb returns an unprepared plate reverb.
func NewPlateReverb() *PlateReverb {
	return &PlateReverb{
		Unit: engine.NewUnit("Plate Reverb",
			engine.ParamSpec{Name: "Size", Default: 0.5},
			engine.ParamSpec{Name: "Damping", Default: 0.5},
			engine.ParamSpec{Name: "Predelay", Default: 0.1},
			engine.ParamSpec{Name: "Width", Default: 1.0},
			engine.ParamSpec{Name: "Mix", Default: 0.3},
		),
	}
}

// Prepare builds the tanks for the transport.
func (p *PlateReverb) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := p.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := 0; ch < 2; ch++ {
		p.tanks[ch] = newTank(sampleRate, ch*tankStereoSpread)

		line, err := delay.NewForDuration(0.1, sampleRate)
		if err != nil {
			return err
		}
		p.predelay[ch] = line
	}

	p.Reset()

	return nil
}

// Reset clears the tanks and predelay.
func (p *PlateReverb) Reset() {
	for ch := 0; ch < 2; ch++ {
		if p.tanks[ch] != nil {
			p.tanks[ch].reset()
		}
		if p.predelay[ch] != nil {
			p.predelay[ch].Reset()
		}
	}
	p.Params().Snap()
}

// Process runs the plate in place.
func (p *PlateReverb) Process(block [][]float64) {
	if len(block) == 0 || !p.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := p.Params()
	sampleRate := p.SampleRate()

	for i := range block[0] {
		size := params.At(0).Next()
		damping := params.At(1).Next()
		predelaySecs := params.At(2).Next() * 0.09
		width := params.At(3).Next()
		mix := params.At(4).Next()

		for ch := 0; ch < 2; ch++ {
			p.tanks[ch].setDecay(size, damping)
		}

		// Both tanks hear the summed input, Freeverb style.
		in := block[0][i]
		if channels > 1 {
			in = (in + block[1][i]) * 0.5
		}

		var wet [2]float64
		for ch := 0; ch < 2; ch++ {
			p.predelay[ch].Write(in)
			delayed := p.predelay[ch].ReadFractional(predelaySecs*sampleRate + 1)
			wet[ch] = p.tanks[ch].process(delayed)
		}

		if channels == 2 {
			mid := (wet[0] + wet[1]) * 0.5
			side := (wet[0] - wet[1]) * 0.5 * width
			wet[0] = mid + side
			wet[1] = mid - side
		}

		for ch := 0; ch < channels; ch++ {
			block[ch][i] = dsputil.DryWet(block[ch][i], wet[ch], mix)
		}
	}
}

// GatedReverb is the eighties drum trick: a big bright tank chopped by
// an envelope-triggered gate with a fixed hold and fast cutoff.
type GatedReverb struct {
	engine.Unit

	tanks    [2]*tank
	env      dsputil.EnvelopeFollower
	gate     float64
	holdLeft int
}

// NewGatedReverb returns an unprepared gated reverb.
func NewGatedReverb() *GatedReverb {
	return &GatedReverb{
		Unit: engine.NewUnit("Gated Reverb",
			engine.ParamSpec{Name: "Size", Default: 0.7},
			engine.ParamSpec{Name: "Gate Time", Default: 0.4},
			engine.ParamSpec{Name: "Threshold", Default: 0.3},
			engine.ParamSpec{Name: "Mix", Default: 0.4},
		),
	}
}

// Prepare builds the tanks for the transport.
func (g *GatedReverb) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := g.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := 0; ch < 2; ch++ {
		g.tanks[ch] = newTank(sampleRate, ch*tankStereoSpread)
	}

	g.env.SetTimes(1, 50, sampleRate)
	g.Reset()

	return nil
}

// Reset clears the tanks and closes the gate.
func (g *GatedReverb) Reset() {
	for ch := 0; ch < 2; ch++ {
		if g.tanks[ch] != nil {
			g.tanks[ch].reset()
		}
	}

	g.env.Reset()
	g.gate = 0
	g.holdLeft = 0
	g.Params().Snap()
}

// Process runs the gated reverb in place.
func (g *GatedReverb) Process(block [][]float64) {
	if len(block) == 0 || !g.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := g.Params()
	sampleRate := g.SampleRate()

	for i := range block[0] {
		size := params.At(0).Next()
		gateSecs := 0.05 + params.At(1).Next()*0.45
		threshold := params.At(2).Next() * 0.5
		mix := params.At(3).Next()

		for ch := 0; ch < 2; ch++ {
			g.tanks[ch].setDecay(size, 0.2)
		}

		in := block[0][i]
		if channels > 1 {
			in = (in + block[1][i]) * 0.5
		}

		// Retrigger the hold window on every hit above threshold.
		if g.env.Process(in) > threshold {
			g.holdLeft = int(gateSecs * sampleRate)
		}

		gateTarget := 0.0
		if g.holdLeft > 0 {
			g.holdLeft--
			gateTarget = 1
		}
		// Fast open, abrupt close.
		coeff := 0.999
		if gateTarget > g.gate {
			coeff = 0.9
		}
		g.gate = gateTarget + (g.gate-gateTarget)*coeff

		for ch := 0; ch < channels; ch++ {
			wet := g.tanks[ch].process(in) * g.gate
			block[ch][i] = dsputil.DryWet(block[ch][i], wet, mix)
		}
	}
}
