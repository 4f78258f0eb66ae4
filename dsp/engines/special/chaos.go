package special

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

// lorenz integrates the Lorenz attractor with the classic sigma 10,
// rho 28, beta 8/3 parameters. The state stays bounded, so the
// normalised coordinates make a well behaved modulation source.
type lorenz struct {
	x, y, z float64
}

func (l *lorenz) reset() {
	l.x, l.y, l.z = 0.1, 0, 0
}

func (l *lorenz) step(dt float64) {
	const (
		sigma = 10.0
		rho   = 28.0
		beta  = 8.0 / 3.0
	)
	dx := sigma * (l.y - l.x)
	dy := l.x*(rho-l.z) - l.y
	dz := l.x*l.y - beta*l.z
	l.x += dx * dt
	l.y += dy * dt
	l.z += dz * dt
}

// normX returns the x coordinate scaled to roughly [-1, 1].
func (l *lorenz) normX() float64 { return core.Clamp(l.x/20, -1, 1) }

// normZ returns the z coordinate scaled to roughly [0, 1].
func (l *lorenz) normZ() float64 { return core.Clamp(l.z/50, 0, 1) }

// ChaosGenerator modulates the signal from a Lorenz attractor. Target
// morphs the modulation destination from amplitude through filter
// cutoff to pitch-like comb detune, and smoothing slews the raw
// attractor output.
type ChaosGenerator struct {
	engine.Unit

	attractor lorenz
	smoothX   float64
	smoothZ   float64
	filt      [2]dsputil.OnePole
	ringPhase float64
}

// NewChaosGenerator returns an unprepared chaos engine.
func NewChaosGenerator() *ChaosGenerator {
	return &ChaosGenerator{
		Unit: engine.NewUnit("Chaos Generator",
			engine.ParamSpec{Name: "Rate", Default: 0.3},
			engine.ParamSpec{Name: "Depth", Default: 0.5},
			engine.ParamSpec{Name: "Target", Default: 0.0},
			engine.ParamSpec{Name: "Smoothing", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 0.5},
		),
	}
}

func (c *ChaosGenerator) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := c.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}
	c.Reset()
	return nil
}

func (c *ChaosGenerator) Reset() {
	c.attractor.reset()
	c.smoothX = 0
	c.smoothZ = 0
	for ch := range c.filt {
		c.filt[ch].Reset()
	}
	c.ringPhase = 0
	c.Params().Snap()
}

func (c *ChaosGenerator) Process(block [][]float64) {
	if len(block) == 0 || !c.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := c.Params()
	sampleRate := c.SampleRate()

	for i := range block[0] {
		rate := params.At(0).Next()
		depth := params.At(1).Next()
		target := params.At(2).Next()
		smoothing := params.At(3).Next()
		mix := params.At(4).Next()

		// dt sets how fast the attractor orbits relative to audio rate.
		dt := core.ExpMap(rate, 0.5, 200) / sampleRate
		c.attractor.step(dt)

		coeff := 1 - smoothing*0.999
		c.smoothX += (c.attractor.normX() - c.smoothX) * coeff
		c.smoothZ += (c.attractor.normZ() - c.smoothZ) * coeff

		ampMod := 1 - depth*0.5*(1+c.smoothX)
		cutoff := core.ExpMap(0.5+0.5*c.smoothX*depth, 200, 12000)
		ringHz := 30 + c.smoothZ*depth*400

		c.ringPhase += 2 * math.Pi * ringHz / sampleRate
		if c.ringPhase > 2*math.Pi {
			c.ringPhase -= 2 * math.Pi
		}
		ring := math.Sin(c.ringPhase)

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			c.filt[ch].SetCutoff(cutoff, sampleRate)
			filtered := c.filt[ch].Process(dry)

			// Morph amplitude -> filter -> ring as Target rises.
			var wet float64
			switch {
			case target < 0.5:
				t := target * 2
				wet = dry*ampMod*(1-t) + filtered*t
			default:
				t := (target - 0.5) * 2
				wet = filtered*(1-t) + dry*ring*t
			}

			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}
