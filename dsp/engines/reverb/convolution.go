package reverb

import (
	"math"
	"math/rand"

	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/delay"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

const (
	convPartSize  = 1024
	convFFTSize   = 2 * convPartSize
	convMaxIRSecs = 3.0
	convMinIRSecs = 0.25
)

// irCharacter shapes the synthetic impulse response.
type irCharacter struct {
	name      string
	decayMul  float64 // scales the Size decay time
	dampBase  float64 // baseline high frequency loss
	earlyGain float64 // level of the discrete early tap cluster
}

var irCharacters = [4]irCharacter{
	{name: "Room", decayMul: 0.45, dampBase: 0.35, earlyGain: 0.8},
	{name: "Plate", decayMul: 0.8, dampBase: 0.1, earlyGain: 0.3},
	{name: "Hall", decayMul: 1.0, dampBase: 0.3, earlyGain: 0.5},
	{name: "Cathedral", decayMul: 1.0, dampBase: 0.55, earlyGain: 0.4},
}

// partConv is a uniform partitioned overlap-add convolver. The impulse
// response is cut into convPartSize slices, each held as a spectrum, and
// input spectra are kept in a frequency delay line so every hop costs one
// forward and one inverse transform. Latency is one partition.
type partConv struct {
	plan  *algofft.Plan[complex128]
	parts int // active partitions

	spectra [][]complex128 // IR partition spectra
	fdl     [][]complex128 // input spectra ring, newest at head
	head    int

	scratch []complex128
	acc     []complex128
	overlap []float64

	inFill  []float64
	inCount int
	outBuf  []float64
	outPos  int
}

func newPartConv(maxParts int) (*partConv, error) {
	plan, err := algofft.NewPlan64(convFFTSize)
	if err != nil {
		return nil, err
	}

	pc := &partConv{
		plan:    plan,
		spectra: make([][]complex128, maxParts),
		fdl:     make([][]complex128, maxParts),
		scratch: make([]complex128, convFFTSize),
		acc:     make([]complex128, convFFTSize),
		overlap: make([]float64, convPartSize),
		inFill:  make([]float64, convPartSize),
		outBuf:  make([]float64, convPartSize),
	}
	for p := 0; p < maxParts; p++ {
		pc.spectra[p] = make([]complex128, convFFTSize)
		pc.fdl[p] = make([]complex128, convFFTSize)
	}

	return pc, nil
}

// setIR transforms ir into partition spectra. Only buffers allocated at
// construction are touched, so this is safe on the audio thread even
// though it is expensive.
func (pc *partConv) setIR(ir []float64) error {
	parts := (len(ir) + convPartSize - 1) / convPartSize
	if parts > len(pc.spectra) {
		parts = len(pc.spectra)
	}
	if parts < 1 {
		parts = 1
	}
	pc.parts = parts

	for p := 0; p < parts; p++ {
		for i := range pc.scratch {
			pc.scratch[i] = 0
		}
		start := p * convPartSize
		for i := 0; i < convPartSize && start+i < len(ir); i++ {
			pc.scratch[i] = complex(ir[start+i], 0)
		}
		if err := pc.plan.Forward(pc.spectra[p], pc.scratch); err != nil {
			return err
		}
	}

	return nil
}

func (pc *partConv) reset() {
	for p := range pc.fdl {
		for i := range pc.fdl[p] {
			pc.fdl[p][i] = 0
		}
	}
	for i := range pc.overlap {
		pc.overlap[i] = 0
	}
	for i := range pc.inFill {
		pc.inFill[i] = 0
	}
	for i := range pc.outBuf {
		pc.outBuf[i] = 0
	}
	pc.head = 0
	pc.inCount = 0
	pc.outPos = 0
}

// process runs one sample through the convolver. Output lags the input
// by exactly one partition.
func (pc *partConv) process(x float64) float64 {
	pc.inFill[pc.inCount] = x
	pc.inCount++
	out := pc.outBuf[pc.outPos]
	pc.outPos++

	if pc.inCount == convPartSize {
		pc.hop()
		pc.inCount = 0
		pc.outPos = 0
	}

	return out
}

func (pc *partConv) hop() {
	pc.head--
	if pc.head < 0 {
		pc.head = len(pc.fdl) - 1
	}

	for i := 0; i < convPartSize; i++ {
		pc.scratch[i] = complex(pc.inFill[i], 0)
	}
	for i := convPartSize; i < convFFTSize; i++ {
		pc.scratch[i] = 0
	}
	if err := pc.plan.Forward(pc.fdl[pc.head], pc.scratch); err != nil {
		return
	}

	for i := range pc.acc {
		pc.acc[i] = 0
	}
	for p := 0; p < pc.parts; p++ {
		slot := pc.fdl[(pc.head+p)%len(pc.fdl)]
		spec := pc.spectra[p]
		for i := range pc.acc {
			pc.acc[i] += slot[i] * spec[i]
		}
	}

	if err := pc.plan.Inverse(pc.acc, pc.acc); err != nil {
		return
	}

	for i := 0; i < convPartSize; i++ {
		pc.outBuf[i] = real(pc.acc[i]) + pc.overlap[i]
		pc.overlap[i] = real(pc.acc[convPartSize+i])
	}
}

// ConvolutionReverb convolves the input with a synthetic impulse
// response built from shaped decaying noise. The response is rendered
// into fixed buffers at Prepare and re-rendered in place whenever the
// character parameters settle on new values.
type ConvolutionReverb struct {
	engine.Unit

	conv     [2]*partConv
	predelay [2]*delay.Line
	ir       []float64
	irRng    [2]int64

	builtSelect  int
	builtSize    float64
	builtDamping float64
}

// NewConvolutionReverb returns an unprepared convolution reverb.
func NewConvolutionReverb() *ConvolutionReverb {
	return &ConvolutionReverb{
		Unit: engine.NewUnit("Convolution Reverb",
			engine.ParamSpec{Name: "IR Select", Default: 0.5},
			engine.ParamSpec{Name: "Size", Default: 0.6},
			engine.ParamSpec{Name: "Damping", Default: 0.4},
			engine.ParamSpec{Name: "Predelay", Default: 0.0},
			engine.ParamSpec{Name: "Mix", Default: 0.3},
		),
		irRng: [2]int64{0x19F3, 0x52C7},
	}
}

// Prepare allocates the convolvers and renders the initial response.
func (c *ConvolutionReverb) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := c.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	maxIRLen := int(convMaxIRSecs * sampleRate)
	maxParts := (maxIRLen + convPartSize - 1) / convPartSize
	c.ir = make([]float64, maxIRLen)

	for ch := 0; ch < 2; ch++ {
		pc, err := newPartConv(maxParts)
		if err != nil {
			return err
		}
		c.conv[ch] = pc

		line, err := delay.NewForDuration(0.2, sampleRate)
		if err != nil {
			return err
		}
		c.predelay[ch] = line
	}

	c.Reset()

	params := c.Params()
	if err := c.renderIR(params.At(0).Current(), params.At(1).Current(), params.At(2).Current()); err != nil {
		return err
	}

	return nil
}

// Reset clears the convolver state but keeps the rendered response.
func (c *ConvolutionReverb) Reset() {
	for ch := 0; ch < 2; ch++ {
		if c.conv[ch] != nil {
			c.conv[ch].reset()
		}
		if c.predelay[ch] != nil {
			c.predelay[ch].Reset()
		}
	}
	c.Params().Snap()
}

// Latency reports the one-partition delay of the convolver in samples.
func (c *ConvolutionReverb) Latency() int { return convPartSize }

func irSelectIndex(norm float64) int {
	idx := int(norm * float64(len(irCharacters)))
	if idx >= len(irCharacters) {
		idx = len(irCharacters) - 1
	}
	if idx < 0 {
		idx = 0
	}
	return idx
}

// renderIR fills c.ir with shaped decaying noise and loads it into both
// convolvers. The right channel uses a different noise seed so the tail
// decorrelates across the field.
func (c *ConvolutionReverb) renderIR(selNorm, size, damping float64) error {
	sampleRate := c.SampleRate()
	sel := irSelectIndex(selNorm)
	char := irCharacters[sel]

	decaySecs := (convMinIRSecs + size*(convMaxIRSecs-convMinIRSecs)) * char.decayMul
	if decaySecs < convMinIRSecs {
		decaySecs = convMinIRSecs
	}
	irLen := int(decaySecs * 1.2 * sampleRate)
	if irLen > len(c.ir) {
		irLen = len(c.ir)
	}

	damp := char.dampBase + damping*(1-char.dampBase)*0.9

	for ch := 0; ch < 2; ch++ {
		rng := rand.New(rand.NewSource(c.irRng[ch] + int64(sel)))

		lp := 0.0
		energy := 0.0
		for i := 0; i < irLen; i++ {
			t := float64(i) / sampleRate
			env := math.Exp(-6.9 * t / decaySecs)

			// High frequency loss grows along the tail.
			g := 1 - damp*(0.3+0.7*t/decaySecs)
			if g < 0.02 {
				g = 0.02
			}
			lp += (rng.Float64()*2 - 1 - lp) * g
			c.ir[i] = lp * env
			energy += c.ir[i] * c.ir[i]
		}

		// Sparse early cluster over the first 40 ms.
		earlyRng := rand.New(rand.NewSource(c.irRng[ch] ^ 0x3A))
		for k := 0; k < 8; k++ {
			pos := int(earlyRng.Float64() * 0.04 * sampleRate)
			if pos < irLen {
				c.ir[pos] += (earlyRng.Float64()*2 - 1) * char.earlyGain
			}
		}

		if energy > 1e-12 {
			scale := 0.25 / math.Sqrt(energy)
			for i := 0; i < irLen; i++ {
				c.ir[i] *= scale
			}
		}

		if err := c.conv[ch].setIR(c.ir[:irLen]); err != nil {
			return err
		}
	}

	c.builtSelect = sel
	c.builtSize = size
	c.builtDamping = damping

	return nil
}

// Process runs the reverb in place.
func (c *ConvolutionReverb) Process(block [][]float64) {
	if len(block) == 0 || !c.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := c.Params()
	sampleRate := c.SampleRate()

	// Re-render when the character parameters have moved. The check is
	// per block so a sweep settles into one rebuild, not hundreds.
	sel := irSelectIndex(params.At(0).Target())
	size := params.At(1).Target()
	damping := params.At(2).Target()
	if sel != c.builtSelect ||
		math.Abs(size-c.builtSize) > 0.02 ||
		math.Abs(damping-c.builtDamping) > 0.02 {
		if err := c.renderIR(params.At(0).Target(), size, damping); err != nil {
			return
		}
	}

	for i := range block[0] {
		params.At(0).Next()
		params.At(1).Next()
		params.At(2).Next()
		predelaySecs := params.At(3).Next() * 0.15
		mix := params.At(4).Next()

		predelaySamples := predelaySecs * sampleRate

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			c.predelay[ch].Write(dry)
			delayed := c.predelay[ch].ReadFractional(predelaySamples + 1)

			wet := c.conv[ch].process(delayed)
			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}
