package modulation

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/delay"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

// Rotor speeds in Hz, fast/slow, for the treble horn and the bass drum.
const (
	hornSlowHz = 0.8
	hornFastHz = 6.8
	drumSlowHz = 0.7
	drumFastHz = 5.7

	rotaryCrossoverHz = 800.0
	rotaryMaxDopplerS = 0.0015
)

// RotarySpeaker models a two-rotor cabinet: the signal splits at the
// crossover into a drum (bass) and horn (treble) path, each with its own
// rotor applying Doppler delay modulation and amplitude throb. The speed
// control crossfades slow/fast targets; the rotors slew toward them at a
// rate set by the acceleration control, so speed changes spin up rather
// than jump.
type RotarySpeaker struct {
	engine.Unit

	split     [2]dsputil.OnePole
	hornLines [2]*delay.Line
	drumLines [2]*delay.Line
	hornLFO   dsputil.LFO
	drumLFO   dsputil.LFO
	hornHz    float64
	drumHz    float64
}

// NewRotarySpeaker returns an unprepared rotary speaker.
func NewRotarySpeaker() *RotarySpeaker {
	return &RotarySpeaker{
		Unit: engine.NewUnit("Rotary Speaker",
			engine.ParamSpec{Name: "Speed", Default: 0.0},
			engine.ParamSpec{Name: "Acceleration", Default: 0.5},
			engine.ParamSpec{Name: "Drive", Default: 0.2},
			engine.ParamSpec{Name: "Width", Default: 0.8},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare sizes the Doppler delays for the transport.
func (r *RotarySpeaker) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := r.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := 0; ch < 2; ch++ {
		horn, err := delay.NewForDuration(rotaryMaxDopplerS*2, sampleRate)
		if err != nil {
			return err
		}
		drum, err := delay.NewForDuration(rotaryMaxDopplerS*2, sampleRate)
		if err != nil {
			return err
		}
		r.hornLines[ch] = horn
		r.drumLines[ch] = drum
	}

	r.Reset()

	return nil
}

// Reset stops the rotors at their slow-speed rest position.
func (r *RotarySpeaker) Reset() {
	for ch := 0; ch < 2; ch++ {
		r.split[ch].Reset()
		if r.hornLines[ch] != nil {
			r.hornLines[ch].Reset()
		}
		if r.drumLines[ch] != nil {
			r.drumLines[ch].Reset()
		}
	}

	r.hornLFO.Reset()
	r.drumLFO.Reset()
	r.drumLFO.SetPhase(math.Pi / 3)
	r.hornHz = hornSlowHz
	r.drumHz = drumSlowHz
	r.Params().Snap()
}

// Process runs the cabinet in place.
func (r *RotarySpeaker) Process(block [][]float64) {
	if len(block) == 0 || !r.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := r.Params()
	sampleRate := r.SampleRate()

	for i := range block[0] {
		speed := params.At(0).Next()
		accel := params.At(1).Next()
		drive := params.At(2).Next()
		width := params.At(3).Next()
		mix := params.At(4).Next()

		hornTarget := hornSlowHz + speed*(hornFastHz-hornSlowHz)
		drumTarget := drumSlowHz + speed*(drumFastHz-drumSlowHz)

		// Slew time runs ~4 s down to ~0.25 s across the control.
		slew := 1 - math.Exp(-1.0/((4.05-accel*3.8)*sampleRate))
		r.hornHz += (hornTarget - r.hornHz) * slew
		r.drumHz += (drumTarget - r.drumHz) * slew

		r.hornLFO.SetRate(r.hornHz, sampleRate)
		r.drumLFO.SetRate(r.drumHz, sampleRate)
		r.hornLFO.Advance()
		r.drumLFO.Advance()

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			// Mic pair: opposite sides of the cabinet.
			micPhase := 0.0
			if ch == 1 {
				micPhase = math.Pi * width
			}

			driven := math.Tanh(dry*(1+drive*4)) / (1 + drive*2)

			r.split[ch].SetCutoff(rotaryCrossoverHz, sampleRate)
			low := r.split[ch].Process(driven)
			high := driven - low

			hornMod := r.hornLFO.SineAt(micPhase)
			drumMod := r.drumLFO.SineAt(micPhase)

			r.hornLines[ch].Write(high)
			r.drumLines[ch].Write(low)

			hornDelay := (1 + hornMod) * rotaryMaxDopplerS * 0.5 * sampleRate
			drumDelay := (1 + drumMod) * rotaryMaxDopplerS * 0.25 * sampleRate

			horn := r.hornLines[ch].ReadFractional(hornDelay) * (1 + 0.35*hornMod)
			drum := r.drumLines[ch].ReadFractional(drumDelay) * (1 + 0.2*drumMod)

			block[ch][i] = dsputil.DryWet(dry, horn+drum, mix)
		}
	}
}
