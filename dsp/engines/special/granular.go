package special

import (
	"math"
	"math/rand"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/delay"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

const (
	cloudMaxGrains     = 24
	cloudBufferSecs    = 2.0
	cloudMaxGrainSecs  = 0.4
	cloudSpawnRngSeed  = 0x6A17
	cloudMaxPositional = 0.8 // fraction of the buffer grains may reach back
)

type grain struct {
	active bool
	offset float64 // delay behind the write head at spawn, in samples
	rate   float64 // playback rate, 1 = original pitch
	age    float64 // samples elapsed
	dur    float64 // total grain length in samples
	gainL  float64
	gainR  float64
}

// GranularCloud scatters short enveloped grains taken from a rolling
// capture of the input. Density controls spawn probability, pitch sets
// the per-grain playback rate, and texture randomises position and pan.
type GranularCloud struct {
	engine.Unit

	lines  [2]*delay.Line
	grains [cloudMaxGrains]grain
	rng    *rand.Rand
}

// NewGranularCloud returns an unprepared cloud engine.
func NewGranularCloud() *GranularCloud {
	return &GranularCloud{
		Unit: engine.NewUnit("Granular Cloud",
			engine.ParamSpec{Name: "Density", Default: 0.5},
			engine.ParamSpec{Name: "Size", Default: 0.5},
			engine.ParamSpec{Name: "Pitch", Default: 0.5},
			engine.ParamSpec{Name: "Texture", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 0.5},
		),
		rng: rand.New(rand.NewSource(cloudSpawnRngSeed)),
	}
}

func (g *GranularCloud) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := g.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := 0; ch < 2; ch++ {
		line, err := delay.NewForDuration(cloudBufferSecs, sampleRate)
		if err != nil {
			return err
		}
		g.lines[ch] = line
	}

	g.Reset()

	return nil
}

func (g *GranularCloud) Reset() {
	for ch := 0; ch < 2; ch++ {
		if g.lines[ch] != nil {
			g.lines[ch].Reset()
		}
	}
	for i := range g.grains {
		g.grains[i] = grain{}
	}
	g.rng = rand.New(rand.NewSource(cloudSpawnRngSeed))
	g.Params().Snap()
}

func (g *GranularCloud) spawn(size, pitch, texture, sampleRate float64) {
	var slot *grain
	for i := range g.grains {
		if !g.grains[i].active {
			slot = &g.grains[i]
			break
		}
	}
	if slot == nil {
		return
	}

	dur := (0.02 + size*cloudMaxGrainSecs) * sampleRate

	semis := (pitch*2 - 1) * 12
	rate := core.SemitonesToRatio(semis)
	if texture > 0 {
		rate *= core.SemitonesToRatio((g.rng.Float64()*2 - 1) * texture * 2)
	}

	reach := (0.05 + texture*cloudMaxPositional) * cloudBufferSecs * sampleRate
	offset := dur + g.rng.Float64()*reach

	pan := 0.5 + (g.rng.Float64()-0.5)*texture
	*slot = grain{
		active: true,
		offset: offset,
		rate:   rate,
		dur:    dur,
		gainL:  math.Cos(pan * math.Pi * 0.5),
		gainR:  math.Sin(pan * math.Pi * 0.5),
	}
}

func (g *GranularCloud) Process(block [][]float64) {
	if len(block) == 0 || !g.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := g.Params()
	sampleRate := g.SampleRate()
	maxOffset := cloudBufferSecs*sampleRate - 4

	for i := range block[0] {
		density := params.At(0).Next()
		size := params.At(1).Next()
		pitch := params.At(2).Next()
		texture := params.At(3).Next()
		mix := params.At(4).Next()

		for ch := 0; ch < channels; ch++ {
			g.lines[ch].Write(block[ch][i])
		}

		spawnPerSec := core.ExpMap(density, 2, 120)
		if g.rng.Float64() < spawnPerSec/sampleRate {
			g.spawn(size, pitch, texture, sampleRate)
		}

		var wetL, wetR float64
		for gi := range g.grains {
			gr := &g.grains[gi]
			if !gr.active {
				continue
			}

			// Rate above 1 walks the tap toward the write head.
			tap := gr.offset + gr.age*(1-gr.rate)
			if tap < 1 || tap > maxOffset {
				gr.active = false
				continue
			}

			env := 0.5 * (1 - math.Cos(2*math.Pi*gr.age/gr.dur))
			s := g.lines[0].ReadFractional(tap)
			s2 := s
			if channels > 1 {
				s2 = g.lines[1].ReadFractional(tap)
			}

			wetL += s * env * gr.gainL
			wetR += s2 * env * gr.gainR

			gr.age++
			if gr.age >= gr.dur {
				gr.active = false
			}
		}

		block[0][i] = dsputil.DryWet(block[0][i], wetL, mix)
		if channels > 1 {
			block[1][i] = dsputil.DryWet(block[1][i], wetR, mix)
		}
	}
}
