// Package spatial implements the stereo field engines: widening,
// imaging, and dimension expansion. All of them work on a mid/side
// decomposition and pass mono input through with at most a gain change.
package spatial

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/delay"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

func encodeMS(l, r float64) (mid, side float64) {
	return (l + r) * 0.5, (l - r) * 0.5
}

func decodeMS(mid, side float64) (l, r float64) {
	return mid + side, mid - side
}

// StereoWidener scales the side channel while keeping low frequencies
// mono below an adjustable crossover, so the widened mix stays solid on
// single-speaker playback.
type StereoWidener struct {
	engine.Unit

	bassLP [2]dsputil.OnePole
}

// NewStereoWidener returns an unprepared widener.
func NewStereoWidener() *StereoWidener {
	return &StereoWidener{
		Unit: engine.NewUnit("Stereo Widener",
			engine.ParamSpec{Name: "Width", Default: 0.5},
			engine.ParamSpec{Name: "Bass Mono", Default: 0.3},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

func (w *StereoWidener) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := w.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}
	w.Reset()
	return nil
}

func (w *StereoWidener) Reset() {
	for ch := range w.bassLP {
		w.bassLP[ch].Reset()
	}
	w.Params().Snap()
}

func (w *StereoWidener) Process(block [][]float64) {
	if len(block) == 0 || !w.Prepared() {
		return
	}

	params := w.Params()
	sampleRate := w.SampleRate()

	if len(block) < 2 {
		// Mono input has no side channel to widen.
		for range block[0] {
			params.At(0).Next()
			params.At(1).Next()
			params.At(2).Next()
		}
		return
	}

	for i := range block[0] {
		width := params.At(0).Next() * 2
		bassMono := params.At(1).Next()
		mix := params.At(2).Next()

		crossover := 40 + bassMono*260
		w.bassLP[0].SetCutoff(crossover, sampleRate)
		w.bassLP[1].SetCutoff(crossover, sampleRate)

		l, r := block[0][i], block[1][i]
		mid, side := encodeMS(l, r)

		// Only the side content above the crossover is scaled.
		sideLow := w.bassLP[0].Process(side)
		sideHigh := side - sideLow
		wetSide := sideLow*(1-bassMono) + sideHigh*width

		wl, wr := decodeMS(mid, wetSide)
		block[0][i] = dsputil.DryWet(l, wl, mix)
		block[1][i] = dsputil.DryWet(r, wr, mix)
	}
}

// StereoImager rebalances mid against side and rotates the stereo field.
type StereoImager struct {
	engine.Unit
}

// NewStereoImager returns an unprepared imager.
func NewStereoImager() *StereoImager {
	return &StereoImager{
		Unit: engine.NewUnit("Stereo Imager",
			engine.ParamSpec{Name: "Width", Default: 0.5},
			engine.ParamSpec{Name: "Center", Default: 0.5},
			engine.ParamSpec{Name: "Rotation", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

func (s *StereoImager) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := s.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}
	s.Reset()
	return nil
}

func (s *StereoImager) Reset() { s.Params().Snap() }

func (s *StereoImager) Process(block [][]float64) {
	if len(block) == 0 || !s.Prepared() {
		return
	}

	params := s.Params()
	stereo := len(block) >= 2

	for i := range block[0] {
		width := params.At(0).Next() * 2
		center := params.At(1).Next() * 2
		rotation := (params.At(2).Next() - 0.5) * math.Pi * 0.5
		mix := params.At(3).Next()

		l := block[0][i]
		r := l
		if stereo {
			r = block[1][i]
		}

		mid, side := encodeMS(l, r)
		mid *= center
		side *= width

		wl, wr := decodeMS(mid, side)

		// Rotation pans the whole field without collapsing it.
		cosA, sinA := math.Cos(rotation), math.Sin(rotation)
		rl := wl*cosA - wr*sinA
		rr := wl*sinA + wr*cosA

		block[0][i] = dsputil.DryWet(l, rl, mix)
		if stereo {
			block[1][i] = dsputil.DryWet(r, rr, mix)
		}
	}
}

const expanderMaxDelaySecs = 0.030

// DimensionExpander is a chorus-derived spatialiser. Two short
// modulated delays are cross fed into the opposite channel in
// antiphase, which pushes energy outside the speakers without audible
// pitch movement.
type DimensionExpander struct {
	engine.Unit

	lines [2]*delay.Line
	lfo   dsputil.LFO
	tone  [2]dsputil.OnePole
}

// NewDimensionExpander returns an unprepared expander.
func NewDimensionExpander() *DimensionExpander {
	return &DimensionExpander{
		Unit: engine.NewUnit("Dimension Expander",
			engine.ParamSpec{Name: "Size", Default: 0.5},
			engine.ParamSpec{Name: "Amount", Default: 0.5},
			engine.ParamSpec{Name: "Brightness", Default: 0.7},
			engine.ParamSpec{Name: "Mix", Default: 0.5},
		),
	}
}

func (d *DimensionExpander) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := d.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := 0; ch < 2; ch++ {
		line, err := delay.NewForDuration(expanderMaxDelaySecs+0.005, sampleRate)
		if err != nil {
			return err
		}
		d.lines[ch] = line
	}

	d.Reset()

	return nil
}

func (d *DimensionExpander) Reset() {
	for ch := 0; ch < 2; ch++ {
		if d.lines[ch] != nil {
			d.lines[ch].Reset()
		}
		d.tone[ch].Reset()
	}
	d.lfo.Reset()
	d.Params().Snap()
}

func (d *DimensionExpander) Process(block [][]float64) {
	if len(block) == 0 || !d.Prepared() {
		return
	}

	params := d.Params()
	sampleRate := d.SampleRate()
	stereo := len(block) >= 2

	for i := range block[0] {
		size := params.At(0).Next()
		amount := params.At(1).Next()
		brightness := params.At(2).Next()
		mix := params.At(3).Next()

		d.lfo.SetRate(0.25, sampleRate)
		d.lfo.Advance()

		base := (0.008 + size*0.018) * sampleRate
		span := amount * 0.004 * sampleRate

		cutoff := core.ExpMap(brightness, 1500, 14000)
		d.tone[0].SetCutoff(cutoff, sampleRate)
		d.tone[1].SetCutoff(cutoff, sampleRate)

		l := block[0][i]
		r := l
		if stereo {
			r = block[1][i]
		}

		d.lines[0].Write(l)
		d.lines[1].Write(r)

		tapL := base + span*d.lfo.Sine()
		tapR := base + span*d.lfo.SineAt(math.Pi*0.5)

		wetL := d.tone[0].Process(d.lines[0].ReadFractional(tapL + 1))
		wetR := d.tone[1].Process(d.lines[1].ReadFractional(tapR + 1))

		// Antiphase crossfeed widens without comb colouring the mono sum.
		outL := l + (wetR-wetL)*amount
		outR := r + (wetL-wetR)*amount

		block[0][i] = dsputil.DryWet(l, outL, mix)
		if stereo {
			block[1][i] = dsputil.DryWet(r, outR, mix)
		}
	}
}
