// Package distortion implements the saturation and waveshaping engines,
// from gentle tube color through fuzz and digital bit reduction.
package distortion

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/filter/biquad"
)

// VintageTubePreamp is a two-stage triode-style saturator. Each stage
// clips asymmetrically around a bias point and the interstage coupling
// cap is modeled by a DC blocker, so heavy drive produces the duty-cycle
// shift characteristic of cathode-biased stages.
type VintageTubePreamp struct {
	engine.Unit

	coupling [2][2]dsputil.DCBlocker
	tone     [2]dsputil.OnePole
}

// NewVintageTubePreamp returns an unprepared tube preamp.
func NewVintageTubePreamp() *VintageTubePreamp {
	p := &VintageTubePreamp{
		Unit: engine.NewUnit("Vintage Tube Preamp",
			engine.ParamSpec{Name: "Drive", Default: 0.3},
			engine.ParamSpec{Name: "Bias", Default: 0.5},
			engine.ParamSpec{Name: "Tone", Default: 0.5},
			engine.ParamSpec{Name: "Output", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}

	for ch := range p.coupling {
		for s := range p.coupling[ch] {
			p.coupling[ch][s] = dsputil.NewDCBlocker()
		}
	}

	return p
}

// Prepare declares the running conditions.
func (p *VintageTubePreamp) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := p.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	p.Reset()

	return nil
}

// Reset clears coupling and tone state.
func (p *VintageTubePreamp) Reset() {
	for ch := range p.coupling {
		for s := range p.coupling[ch] {
			p.coupling[ch][s].Reset()
		}
		p.tone[ch].Reset()
	}
	p.Params().Snap()
}

// Process runs the preamp in place.
func (p *VintageTubePreamp) Process(block [][]float64) {
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
		drive := 1 + params.At(0).Next()*14
		bias := (params.At(1).Next() - 0.5) * 0.6
		tone := params.At(2).Next()
		output := core.DBToLinear(params.At(3).Next()*24 - 12)
		mix := params.At(4).Next()

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			// First stage runs hotter than the second.
			v := dsputil.AsymSoftClip(dry*drive, bias)
			v = p.coupling[ch][0].Process(v)
			v = dsputil.AsymSoftClip(v*0.7*drive*0.5, -bias*0.5)
			v = p.coupling[ch][1].Process(v)

			p.tone[ch].SetCutoff(core.ExpMap(tone, 800, 12000), sampleRate)
			v = p.tone[ch].Process(v)

			wet := v / math.Sqrt(drive) * output
			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

// foldOnce reflects x into [-1, 1].
func foldOnce(x float64) float64 {
	for x > 1 || x < -1 {
		if x > 1 {
			x = 2 - x
		} else {
			x = -2 - x
		}
	}

	return x
}

// WaveFolder is a West-coast style folder: gain pushes the signal past
// the fold boundaries and the wave reflects back, stacking harmonics.
// Symmetry shifts the fold center for even-order content.
type WaveFolder struct {
	engine.Unit

	dc [2]dsputil.DCBlocker
}

// NewWaveFolder returns an unprepared wave folder.
func NewWaveFolder() *WaveFolder {
	w := &WaveFolder{
		Unit: engine.NewUnit("Wave Folder",
			engine.ParamSpec{Name: "Fold", Default: 0.2},
			engine.ParamSpec{Name: "Symmetry", Default: 0.5},
			engine.ParamSpec{Name: "Output", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}

	for ch := range w.dc {
		w.dc[ch] = dsputil.NewDCBlocker()
	}

	return w
}

// Prepare declares the running conditions.
func (w *WaveFolder) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := w.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	w.Reset()

	return nil
}

// Reset clears the DC blockers.
func (w *WaveFolder) Reset() {
	for ch := range w.dc {
		w.dc[ch].Reset()
	}
	w.Params().Snap()
}

// Process runs the folder in place.
func (w *WaveFolder) Process(block [][]float64) {
	if len(block) == 0 || !w.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := w.Params()

	for i := range block[0] {
		fold := 1 + params.At(0).Next()*15
		symmetry := (params.At(1).Next() - 0.5) * 1.2
		// The folder already pins the wet path inside [-1, 1], so the
		// output trim only needs a modest range either way.
		output := core.DBToLinear((params.At(2).Next() - 0.5) * 12)
		mix := params.At(3).Next()

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			folded := foldOnce(dry*fold + symmetry)
			wet := w.dc[ch].Process(folded) * output

			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

// HarmonicExciter synthesizes new top-octave content by saturating the
// band above the tune point and mixing it back in, the classic aural
// exciter recipe.
type HarmonicExciter struct {
	engine.Unit

	split   [2]biquad.Section
	counter int
}

// NewHarmonicExciter returns an unprepared exciter.
func NewHarmonicExciter() *HarmonicExciter {
	return &HarmonicExciter{
		Unit: engine.NewUnit("Harmonic Exciter",
			engine.ParamSpec{Name: "Amount", Default: 0.3},
			engine.ParamSpec{Name: "Tune", Default: 0.5},
			engine.ParamSpec{Name: "Warmth", Default: 0.2},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (h *HarmonicExciter) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := h.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	h.Reset()

	return nil
}

// Reset clears the crossover state.
func (h *HarmonicExciter) Reset() {
	for ch := range h.split {
		h.split[ch].Reset()
		h.split[ch].Coefficients = biquad.Identity()
	}
	h.counter = 0
	h.Params().Snap()
}

// Process runs the exciter in place.
func (h *HarmonicExciter) Process(block [][]float64) {
	if len(block) == 0 || !h.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := h.Params()
	sampleRate := h.SampleRate()

	for i := range block[0] {
		amount := params.At(0).Next()
		tune := core.ExpMap(params.At(1).Next(), 1000, 8000)
		warmth := params.At(2).Next()
		mix := params.At(3).Next()

		if h.counter == 0 {
			coeffs := biquad.Highpass(tune, 0.707, sampleRate)
			for ch := range h.split {
				h.split[ch].Coefficients = coeffs
			}
		}

		if h.counter++; h.counter >= 32 {
			h.counter = 0
		}

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			highs := h.split[ch].ProcessSample(dry)
			excited := dsputil.AsymSoftClip(highs*4, warmth*0.3) * 0.5

			wet := dry + excited*amount
			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

// BitCrusher quantizes amplitude to a reduced bit depth and decimates
// the sample rate with a zero-order hold.
type BitCrusher struct {
	engine.Unit

	held  [2]float64
	phase float64
}

// NewBitCrusher returns an unprepared bit crusher.
func NewBitCrusher() *BitCrusher {
	return &BitCrusher{
		Unit: engine.NewUnit("Bit Crusher",
			engine.ParamSpec{Name: "Bits", Default: 1.0},
			engine.ParamSpec{Name: "Downsample", Default: 0.0},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (b *BitCrusher) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := b.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	b.Reset()

	return nil
}

// Reset clears the hold registers.
func (b *BitCrusher) Reset() {
	b.held[0] = 0
	b.held[1] = 0
	b.phase = 0
	b.Params().Snap()
}

// Process runs the crusher in place.
func (b *BitCrusher) Process(block [][]float64) {
	if len(block) == 0 || !b.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := b.Params()

	for i := range block[0] {
		bits := 1 + params.At(0).Next()*15
		decimation := 1 + params.At(1).Next()*49
		mix := params.At(2).Next()

		levels := math.Pow(2, bits) - 1

		b.phase += 1
		sampleNow := b.phase >= decimation
		if sampleNow {
			b.phase -= decimation
		}

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			if sampleNow {
				clipped := dsputil.HardClip(dry, 1)
				b.held[ch] = math.Round(clipped*levels) / levels
			}

			block[ch][i] = dsputil.DryWet(dry, b.held[ch], mix)
		}
	}
}

// Multiband crossover points.
const (
	multibandLowHz  = 250.0
	multibandHighHz = 3000.0
)

// MultibandSaturator splits the signal into three bands and saturates
// each with its own drive weighting, so bass can be driven hard without
// smearing the top end.
type MultibandSaturator struct {
	engine.Unit

	lowSplit  [2]biquad.Section
	highSplit [2]biquad.Section
	counter   int
}

// NewMultibandSaturator returns an unprepared multiband saturator.
func NewMultibandSaturator() *MultibandSaturator {
	return &MultibandSaturator{
		Unit: engine.NewUnit("Multiband Saturator",
			engine.ParamSpec{Name: "Low Drive", Default: 0.3},
			engine.ParamSpec{Name: "Mid Drive", Default: 0.2},
			engine.ParamSpec{Name: "High Drive", Default: 0.15},
			engine.ParamSpec{Name: "Output", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (m *MultibandSaturator) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := m.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	m.Reset()

	return nil
}

// Reset clears the crossover state.
func (m *MultibandSaturator) Reset() {
	for ch := 0; ch < 2; ch++ {
		m.lowSplit[ch].Reset()
		m.highSplit[ch].Reset()
		m.lowSplit[ch].Coefficients = biquad.Identity()
		m.highSplit[ch].Coefficients = biquad.Identity()
	}
	m.counter = 0
	m.Params().Snap()
}

// Process runs the saturator in place.
func (m *MultibandSaturator) Process(block [][]float64) {
	if len(block) == 0 || !m.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := m.Params()
	sampleRate := m.SampleRate()

	if m.counter == 0 {
		lowC := biquad.Lowpass(multibandLowHz, 0.707, sampleRate)
		highC := biquad.Highpass(multibandHighHz, 0.707, sampleRate)
		for ch := 0; ch < 2; ch++ {
			m.lowSplit[ch].Coefficients = lowC
			m.highSplit[ch].Coefficients = highC
		}
		m.counter = 1
	}

	for i := range block[0] {
		lowDrive := 1 + params.At(0).Next()*9
		midDrive := 1 + params.At(1).Next()*9
		highDrive := 1 + params.At(2).Next()*9
		output := core.DBToLinear(params.At(3).Next()*24 - 12)
		mix := params.At(4).Next()

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			low := m.lowSplit[ch].ProcessSample(dry)
			high := m.highSplit[ch].ProcessSample(dry)
			mid := dry - low - high

			wet := math.Tanh(low*lowDrive)/lowDrive +
				math.Tanh(mid*midDrive)/midDrive +
				math.Tanh(high*highDrive)/highDrive
			wet *= output * 1.5

			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}
