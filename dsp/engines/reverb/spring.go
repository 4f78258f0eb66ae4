package reverb

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/delay"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/filter/biquad"
)

const springAllpassCount = 12

// SpringReverb models a spring pan: a cascade of allpass sections gives
// the dispersive "boing" (high frequencies travel the coil faster), a
// short feedback loop gives the decay, and a chirp filter exaggerates
// the drip on transients.
type SpringReverb struct {
	engine.Unit

	disperse [2][springAllpassCount]biquad.Section
	loops    [2]*delay.Line
	damps    [2]dsputil.OnePole
	chirp    [2]biquad.Section
	counter  int
}

// NewSpringReverb returns an unprepared spring reverb.
func NewSpringReverb() *SpringReverb {
	return &SpringReverb{
		Unit: engine.NewUnit("Spring Reverb",
			engine.ParamSpec{Name: "Tension", Default: 0.5},
			engine.ParamSpec{Name: "Damping", Default: 0.4},
			engine.ParamSpec{Name: "Drip", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 0.35},
		),
	}
}

// Prepare sizes the coil loop for the transport.
func (s *SpringReverb) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := s.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := 0; ch < 2; ch++ {
		line, err := delay.NewForDuration(0.08, sampleRate)
		if err != nil {
			return err
		}
		s.loops[ch] = line
	}

	s.Reset()

	return nil
}

// Reset clears the coil state.
func (s *SpringReverb) Reset() {
	for ch := 0; ch < 2; ch++ {
		for i := range s.disperse[ch] {
			s.disperse[ch][i].Reset()
			s.disperse[ch][i].Coefficients = biquad.Identity()
		}
		if s.loops[ch] != nil {
			s.loops[ch].Reset()
		}
		s.damps[ch].Reset()
		s.chirp[ch].Reset()
		s.chirp[ch].Coefficients = biquad.Identity()
	}

	s.counter = 0
	s.Params().Snap()
}

// Process runs the spring in place.
func (s *SpringReverb) Process(block [][]float64) {
	if len(block) == 0 || !s.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := s.Params()
	sampleRate := s.SampleRate()

	for i := range block[0] {
		tension := params.At(0).Next()
		damping := params.At(1).Next()
		drip := params.At(2).Next()
		mix := params.At(3).Next()

		if s.counter == 0 {
			// Dispersion allpasses cluster around the coil's resonant
			// band; tension pulls the cluster upward.
			base := core.ExpMap(tension, 900, 3200)
			for ch := 0; ch < 2; ch++ {
				for k := range s.disperse[ch] {
					freq := base * (1 + 0.11*float64(k)) * (1 + 0.015*float64(ch))
					s.disperse[ch][k].Coefficients = biquad.Allpass(freq, 4, sampleRate)
				}
				s.chirp[ch].Coefficients = biquad.Bandpass(base*1.4, 6, sampleRate)
			}
		}

		if s.counter++; s.counter >= 64 {
			s.counter = 0
		}

		loopSecs := 0.033 + (1-tension)*0.03
		feedback := 0.55 - damping*0.3

		in := block[0][i]
		if channels > 1 {
			in = (in + block[1][i]) * 0.5
		}

		for ch := 0; ch < channels; ch++ {
			tail := s.loops[ch].ReadFractional(loopSecs * sampleRate * (1 + 0.02*float64(ch)))

			s.damps[ch].SetCutoff(core.ExpMap(1-damping, 1500, 6000), sampleRate)
			tail = s.damps[ch].Process(tail)

			v := in + tail*feedback
			for k := range s.disperse[ch] {
				v = s.disperse[ch][k].ProcessSample(v)
			}

			// Drip: nonlinear emphasis of the chirpy band.
			chirped := s.chirp[ch].ProcessSample(v)
			v += math.Tanh(chirped*3) * drip * 0.4

			s.loops[ch].Write(v)

			block[ch][i] = dsputil.DryWet(block[ch][i], v, mix)
		}
	}
}
