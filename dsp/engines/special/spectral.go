package special

import (
	"math"
	"math/rand"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

const stftHalf = stftFrameSize / 2

// writeBin stores a half-spectrum bin and its conjugate mirror so the
// inverse transform stays real valued.
func writeBin(spectrum []complex128, k int, v complex128) {
	spectrum[k] = v
	if k > 0 && k < stftHalf {
		spectrum[stftFrameSize-k] = complex(real(v), -imag(v))
	}
}

// SpectralFreeze captures the magnitude spectrum and sustains it with
// per-bin phase advance while the freeze control is held.
type SpectralFreeze struct {
	engine.Unit

	stft     [2]*stftStream
	heldMag  [2][]float64
	phaseAcc [2][]float64
	omega    []float64

	frozen [2]bool

	// parameter snapshots read by the hop callbacks
	hopEngage bool
	hopBlend  float64
	hopTilt   float64
}

// NewSpectralFreeze returns an unprepared freeze engine.
func NewSpectralFreeze() *SpectralFreeze {
	return &SpectralFreeze{
		Unit: engine.NewUnit("Spectral Freeze",
			engine.ParamSpec{Name: "Freeze", Default: 0.0},
			engine.ParamSpec{Name: "Blend", Default: 0.0},
			engine.ParamSpec{Name: "Brightness", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

func (s *SpectralFreeze) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := s.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	s.omega = make([]float64, stftHalf+1)
	for k := range s.omega {
		s.omega[k] = 2 * math.Pi * float64(k) * float64(stftHopSize) / float64(stftFrameSize)
	}

	for ch := 0; ch < 2; ch++ {
		chIdx := ch
		stream, err := newSTFTStream(func(spectrum []complex128) {
			s.hopTransform(chIdx, spectrum)
		})
		if err != nil {
			return err
		}
		s.stft[ch] = stream
		s.heldMag[ch] = make([]float64, stftHalf+1)
		s.phaseAcc[ch] = make([]float64, stftHalf+1)
	}

	s.Reset()

	return nil
}

func (s *SpectralFreeze) Reset() {
	for ch := 0; ch < 2; ch++ {
		if s.stft[ch] != nil {
			s.stft[ch].reset()
		}
		for k := range s.heldMag[ch] {
			s.heldMag[ch][k] = 0
			s.phaseAcc[ch][k] = 0
		}
		s.frozen[ch] = false
	}
	s.Params().Snap()
}

// Latency reports the analysis frame delay in samples.
func (s *SpectralFreeze) Latency() int { return stftFrameSize }

func (s *SpectralFreeze) Process(block [][]float64) {
	if len(block) == 0 || !s.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := s.Params()

	for i := range block[0] {
		freeze := params.At(0).Next()
		blend := params.At(1).Next()
		brightness := params.At(2).Next()
		mix := params.At(3).Next()

		s.hopEngage = freeze > 0.5
		s.hopBlend = blend
		s.hopTilt = (brightness - 0.5) * 2

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]
			wet := s.stft[ch].process(dry)
			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

func (s *SpectralFreeze) hopTransform(ch int, spectrum []complex128) {
	held := s.heldMag[ch]
	acc := s.phaseAcc[ch]

	if !s.hopEngage {
		s.frozen[ch] = false
		return
	}

	if !s.frozen[ch] {
		for k := 0; k <= stftHalf; k++ {
			re, im := real(spectrum[k]), imag(spectrum[k])
			held[k] = math.Hypot(re, im)
			acc[k] = math.Atan2(im, re)
		}
		s.frozen[ch] = true
		return
	}

	blend := s.hopBlend
	tilt := s.hopTilt

	for k := 0; k <= stftHalf; k++ {
		if blend > 0 {
			live := math.Hypot(real(spectrum[k]), imag(spectrum[k]))
			held[k] += (live - held[k]) * blend * 0.25
		}

		mag := held[k]
		if tilt != 0 {
			// Linear spectral tilt, +-12 dB across the band.
			frac := float64(k) / float64(stftHalf)
			mag *= math.Pow(10, tilt*12*(frac-0.5)/20)
		}

		acc[k] += s.omega[k]
		if acc[k] > math.Pi {
			acc[k] -= 2 * math.Pi * math.Trunc(acc[k]/(2*math.Pi)+0.5)
		}
		writeBin(spectrum, k, complex(mag*math.Cos(acc[k]), mag*math.Sin(acc[k])))
	}
}

// SpectralGate attenuates bins whose magnitude stays below a threshold,
// with per-bin attack and release smoothing at the hop rate.
type SpectralGate struct {
	engine.Unit

	stft [2]*stftStream
	env  [2][]float64

	hopThreshold float64
	hopReduction float64
	hopAttack    float64
	hopRelease   float64
}

// NewSpectralGate returns an unprepared spectral gate.
func NewSpectralGate() *SpectralGate {
	return &SpectralGate{
		Unit: engine.NewUnit("Spectral Gate",
			engine.ParamSpec{Name: "Threshold", Default: 0.3},
			engine.ParamSpec{Name: "Reduction", Default: 0.8},
			engine.ParamSpec{Name: "Attack", Default: 0.3},
			engine.ParamSpec{Name: "Release", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

func (g *SpectralGate) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := g.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := 0; ch < 2; ch++ {
		chIdx := ch
		stream, err := newSTFTStream(func(spectrum []complex128) {
			g.hopTransform(chIdx, spectrum)
		})
		if err != nil {
			return err
		}
		g.stft[ch] = stream
		g.env[ch] = make([]float64, stftHalf+1)
	}

	g.Reset()

	return nil
}

func (g *SpectralGate) Reset() {
	for ch := 0; ch < 2; ch++ {
		if g.stft[ch] != nil {
			g.stft[ch].reset()
		}
		for k := range g.env[ch] {
			g.env[ch][k] = 0
		}
	}
	g.Params().Snap()
}

// Latency reports the analysis frame delay in samples.
func (g *SpectralGate) Latency() int { return stftFrameSize }

func (g *SpectralGate) Process(block [][]float64) {
	if len(block) == 0 || !g.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := g.Params()
	sampleRate := g.SampleRate()
	hopSecs := float64(stftHopSize) / sampleRate

	for i := range block[0] {
		threshold := params.At(0).Next()
		reduction := params.At(1).Next()
		attack := params.At(2).Next()
		release := params.At(3).Next()
		mix := params.At(4).Next()

		// Threshold maps to -80..0 dBFS against windowed bin magnitude.
		g.hopThreshold = math.Pow(10, (-80+threshold*80)/20) * float64(stftFrameSize) * 0.25
		g.hopReduction = math.Pow(10, -reduction*60/20)
		g.hopAttack = 1 - math.Exp(-hopSecs/(0.001+attack*0.05))
		g.hopRelease = 1 - math.Exp(-hopSecs/(0.02+release*0.5))

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]
			wet := g.stft[ch].process(dry)
			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

func (g *SpectralGate) hopTransform(ch int, spectrum []complex128) {
	env := g.env[ch]

	for k := 0; k <= stftHalf; k++ {
		mag := math.Hypot(real(spectrum[k]), imag(spectrum[k]))

		target := g.hopReduction
		if mag > g.hopThreshold {
			target = 1
		}

		coeff := g.hopRelease
		if target > env[k] {
			coeff = g.hopAttack
		}
		env[k] += (target - env[k]) * coeff

		writeBin(spectrum, k, spectrum[k]*complex(env[k], 0))
	}
}

// PhasedVocoder is a phase vocoder pitch shifter with a character morph
// from natural phase propagation through robotic zero phase to
// whisper-style randomised phase.
type PhasedVocoder struct {
	engine.Unit

	stft       [2]*stftStream
	prevPhase  [2][]float64
	synthPhase [2][]float64
	mag        []float64
	freq       []float64
	rng        *rand.Rand

	hopRatio     float64
	hopCharacter float64
	hopSmear     float64
}

// NewPhasedVocoder returns an unprepared vocoder.
func NewPhasedVocoder() *PhasedVocoder {
	return &PhasedVocoder{
		Unit: engine.NewUnit("Phased Vocoder",
			engine.ParamSpec{Name: "Pitch", Default: 0.5},
			engine.ParamSpec{Name: "Character", Default: 0.0},
			engine.ParamSpec{Name: "Smear", Default: 0.0},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
		rng: rand.New(rand.NewSource(0x70C0)),
	}
}

func (p *PhasedVocoder) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := p.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := 0; ch < 2; ch++ {
		chIdx := ch
		stream, err := newSTFTStream(func(spectrum []complex128) {
			p.hopTransform(chIdx, spectrum)
		})
		if err != nil {
			return err
		}
		p.stft[ch] = stream
		p.prevPhase[ch] = make([]float64, stftHalf+1)
		p.synthPhase[ch] = make([]float64, stftHalf+1)
	}
	p.mag = make([]float64, stftHalf+1)
	p.freq = make([]float64, stftHalf+1)

	p.Reset()

	return nil
}

func (p *PhasedVocoder) Reset() {
	for ch := 0; ch < 2; ch++ {
		if p.stft[ch] != nil {
			p.stft[ch].reset()
		}
		for k := range p.prevPhase[ch] {
			p.prevPhase[ch][k] = 0
			p.synthPhase[ch][k] = 0
		}
	}
	p.rng = rand.New(rand.NewSource(0x70C0))
	p.Params().Snap()
}

// Latency reports the analysis frame delay in samples.
func (p *PhasedVocoder) Latency() int { return stftFrameSize }

func (p *PhasedVocoder) Process(block [][]float64) {
	if len(block) == 0 || !p.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := p.Params()

	for i := range block[0] {
		pitch := params.At(0).Next()
		character := params.At(1).Next()
		smear := params.At(2).Next()
		mix := params.At(3).Next()

		p.hopRatio = math.Pow(2, pitch*2-1) // one octave either way
		p.hopCharacter = character
		p.hopSmear = smear

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]
			wet := p.stft[ch].process(dry)
			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

func wrapPhase(x float64) float64 {
	return x - 2*math.Pi*math.Round(x/(2*math.Pi))
}

func (p *PhasedVocoder) hopTransform(ch int, spectrum []complex128) {
	prev := p.prevPhase[ch]
	synth := p.synthPhase[ch]
	ratio := p.hopRatio
	smear := p.hopSmear

	binCenter := 2 * math.Pi / float64(stftFrameSize)
	expected := binCenter * float64(stftHopSize)

	// Analysis: true bin frequency from the phase increment.
	for k := 0; k <= stftHalf; k++ {
		re, im := real(spectrum[k]), imag(spectrum[k])
		p.mag[k] = math.Hypot(re, im)
		phase := math.Atan2(im, re)

		delta := wrapPhase(phase - prev[k] - expected*float64(k))
		p.freq[k] = (expected*float64(k) + delta) / float64(stftHopSize)
		prev[k] = phase

		spectrum[k] = 0
		if k > 0 && k < stftHalf {
			spectrum[stftFrameSize-k] = 0
		}
	}

	// Synthesis: bins land at k*ratio with scaled frequency.
	for k := 0; k <= stftHalf; k++ {
		j := int(math.Round(float64(k) * ratio))
		if j < 0 || j > stftHalf {
			continue
		}

		mag := p.mag[k]
		if smear > 0 && k > 0 && k < stftHalf {
			mag = mag*(1-smear*0.5) + (p.mag[k-1]+p.mag[k+1])*smear*0.25
		}

		synth[j] += p.freq[k] * ratio * float64(stftHopSize)
		synth[j] = wrapPhase(synth[j])

		phase := synth[j]
		switch {
		case p.hopCharacter >= 0.5:
			// Whisper: random phase, scaled in by the upper half.
			w := (p.hopCharacter - 0.5) * 2
			phase = phase*(1-w) + (p.rng.Float64()*2*math.Pi-math.Pi)*w
		case p.hopCharacter > 0:
			// Robot: phase pulled toward zero.
			phase *= 1 - p.hopCharacter*2
		}

		cur := spectrum[j]
		writeBin(spectrum, j, cur+complex(mag*math.Cos(phase), mag*math.Sin(phase)))
	}
}
