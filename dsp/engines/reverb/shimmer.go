package reverb

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/delay"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

const shimmerWindowSecs = 0.080

// octaveUp is a granular octave shifter: two taps sweep backwards
// through a short window at double speed and crossfade at the wraps.
type octaveUp struct {
	line  *delay.Line
	phase float64
}

func (o *octaveUp) process(x, windowSamples float64) float64 {
	o.line.Write(x)

	o.phase -= 1 // tap recedes at 2x effective read speed
	for o.phase < 0 {
		o.phase += windowSamples
	}

	tapA := o.phase
	tapB := tapA + windowSamples*0.5
	if tapB >= windowSamples {
		tapB -= windowSamples
	}

	gainA := math.Sin(math.Pi * tapA / windowSamples)
	gainB := math.Sin(math.Pi * tapB / windowSamples)

	norm := gainA + gainB
	if norm < 1e-9 {
		norm = 1
	}

	return (o.line.ReadFractional(tapA+1)*gainA + o.line.ReadFractional(tapB+1)*gainB) / norm
}

// ShimmerReverb is a plate tank with an octave-up voice inside the
// regeneration path, so each pass through the tail climbs an octave and
// the decay blooms into choral highs.
type ShimmerReverb struct {
	engine.Unit

	tanks [2]*tank
	shift [2]octaveUp
	tone  [2]dsputil.OnePole
	regen [2]float64
}

// NewShimmerReverb returns an unprepared shimmer reverb.
func NewShimmerReverb() *ShimmerReverb {
	return &ShimmerReverb{
		Unit: engine.NewUnit("Shimmer Reverb",
			engine.ParamSpec{Name: "Size", Default: 0.7},
			engine.ParamSpec{Name: "Shimmer", Default: 0.5},
			engine.ParamSpec{Name: "Tone", Default: 0.6},
			engine.ParamSpec{Name: "Feedback", Default: 0.4},
			engine.ParamSpec{Name: "Mix", Default: 0.35},
		),
	}
}

// Prepare builds the tanks and shifter windows for the transport.
func (s *ShimmerReverb) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := s.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := 0; ch < 2; ch++ {
		s.tanks[ch] = newTank(sampleRate, ch*tankStereoSpread)

		line, err := delay.NewForDuration(shimmerWindowSecs+0.01, sampleRate)
		if err != nil {
			return err
		}
		s.shift[ch].line = line
	}

	s.Reset()

	return nil
}

// Reset clears tanks, shifters, and the regeneration taps.
func (s *ShimmerReverb) Reset() {
	for ch := 0; ch < 2; ch++ {
		if s.tanks[ch] != nil {
			s.tanks[ch].reset()
		}
		if s.shift[ch].line != nil {
			s.shift[ch].line.Reset()
		}
		s.shift[ch].phase = float64(ch) * shimmerWindowSecs * s.SampleRate() * 0.25
		s.tone[ch].Reset()
		s.regen[ch] = 0
	}
	s.Params().Snap()
}

// Process runs the shimmer in place.
func (s *ShimmerReverb) Process(block [][]float64) {
	if len(block) == 0 || !s.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := s.Params()
	sampleRate := s.SampleRate()
	windowSamples := shimmerWindowSecs * sampleRate

	for i := range block[0] {
		size := params.At(0).Next()
		shimmer := params.At(1).Next()
		tone := params.At(2).Next()
		feedback := params.At(3).Next() * 0.7
		mix := params.At(4).Next()

		in := block[0][i]
		if channels > 1 {
			in = (in + block[1][i]) * 0.5
		}

		for ch := 0; ch < 2; ch++ {
			s.tanks[ch].setDecay(size, 0.3)
		}

		var wet [2]float64
		for ch := 0; ch < channels; ch++ {
			tankIn := in + s.regen[ch]*feedback
			out := s.tanks[ch].process(tankIn)

			// The shifted tail re-enters the tank next sample.
			lifted := s.shift[ch].process(out, windowSamples)
			s.tone[ch].SetCutoff(core.ExpMap(tone, 1000, 12000), sampleRate)
			s.regen[ch] = s.tone[ch].Process(out*(1-shimmer) + lifted*shimmer)

			wet[ch] = out + lifted*shimmer*0.7
		}

		for ch := 0; ch < channels; ch++ {
			block[ch][i] = dsputil.DryWet(block[ch][i], wet[ch], mix)
		}
	}
}
