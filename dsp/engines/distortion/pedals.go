package distortion

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/filter/biquad"
)

// MuffFuzz is a big-box fuzz: two cascaded clipping stages separated by
// a mid-scooped tone stack. Sustain drives the stages; the tone control
// tilts between the scooped and flat voicings.
type MuffFuzz struct {
	engine.Unit

	input   [2]dsputil.DCBlocker
	scoop   [2]biquad.Section
	tone    [2]dsputil.OnePole
	counter int
}

// NewMuffFuzz returns an unprepared fuzz.
func NewMuffFuzz() *MuffFuzz {
	f := &MuffFuzz{
		Unit: engine.NewUnit("Muff Fuzz",
			engine.ParamSpec{Name: "Sustain", Default: 0.4},
			engine.ParamSpec{Name: "Tone", Default: 0.5},
			engine.ParamSpec{Name: "Volume", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}

	for ch := range f.input {
		f.input[ch] = dsputil.NewDCBlocker()
	}

	return f
}

// Prepare declares the running conditions.
func (f *MuffFuzz) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := f.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	f.Reset()

	return nil
}

// Reset clears all filter state.
func (f *MuffFuzz) Reset() {
	for ch := range f.input {
		f.input[ch].Reset()
		f.scoop[ch].Reset()
		f.scoop[ch].Coefficients = biquad.Identity()
		f.tone[ch].Reset()
	}
	f.counter = 0
	f.Params().Snap()
}

// Process runs the fuzz in place.
func (f *MuffFuzz) Process(block [][]float64) {
	if len(block) == 0 || !f.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := f.Params()
	sampleRate := f.SampleRate()

	for i := range block[0] {
		sustain := params.At(0).Next()
		tone := params.At(1).Next()
		volume := core.DBToLinear(params.At(2).Next()*30 - 18)
		mix := params.At(3).Next()

		if f.counter == 0 {
			// Mid scoop deepens as tone rolls dark.
			scoopDB := -4 - (1-tone)*8
			coeffs := biquad.Peak(750, 0.6, scoopDB, sampleRate)
			for ch := range f.scoop {
				f.scoop[ch].Coefficients = coeffs
			}
		}

		if f.counter++; f.counter >= 32 {
			f.counter = 0
		}

		drive := 3 + sustain*60

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			v := f.input[ch].Process(dry)
			v = math.Tanh(v * drive)
			v = f.scoop[ch].ProcessSample(v)
			v = math.Tanh(v * 2.5)

			f.tone[ch].SetCutoff(core.ExpMap(tone, 600, 8000), sampleRate)
			wet := f.tone[ch].Process(v) * volume

			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

// RodentDistortion is a hard-clipping pedal: big op-amp gain into
// silicon diodes, then a passive low-pass filter control.
type RodentDistortion struct {
	engine.Unit

	input  [2]dsputil.DCBlocker
	filter [2]dsputil.OnePole
}

// NewRodentDistortion returns an unprepared distortion.
func NewRodentDistortion() *RodentDistortion {
	d := &RodentDistortion{
		Unit: engine.NewUnit("Rodent Distortion",
			engine.ParamSpec{Name: "Distortion", Default: 0.4},
			engine.ParamSpec{Name: "Filter", Default: 0.5},
			engine.ParamSpec{Name: "Volume", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}

	for ch := range d.input {
		d.input[ch] = dsputil.NewDCBlocker()
	}

	return d
}

// Prepare declares the running conditions.
func (d *RodentDistortion) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := d.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	d.Reset()

	return nil
}

// Reset clears the filter state.
func (d *RodentDistortion) Reset() {
	for ch := range d.input {
		d.input[ch].Reset()
		d.filter[ch].Reset()
	}
	d.Params().Snap()
}

// Process runs the distortion in place.
func (d *RodentDistortion) Process(block [][]float64) {
	if len(block) == 0 || !d.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := d.Params()
	sampleRate := d.SampleRate()

	for i := range block[0] {
		gain := 2 + params.At(0).Next()*200
		cutoff := core.ExpMap(1-params.At(1).Next(), 500, 12000)
		volume := core.DBToLinear(params.At(2).Next()*30 - 18)
		mix := params.At(3).Next()

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			v := d.input[ch].Process(dry) * gain

			// Silicon diode pair: linear-ish to the knee, then flat.
			v = dsputil.HardClip(v, 0.7)
			v += 0.08 * math.Tanh(v*3)

			d.filter[ch].SetCutoff(cutoff, sampleRate)
			wet := d.filter[ch].Process(v) * volume

			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

// KStyleOverdrive is a smooth mid-forward overdrive: soft asymmetric
// clipping around a mid hump, with a gentle treble control after.
type KStyleOverdrive struct {
	engine.Unit

	hump    [2]biquad.Section
	tone    [2]dsputil.OnePole
	counter int
}

// NewKStyleOverdrive returns an unprepared overdrive.
func NewKStyleOverdrive() *KStyleOverdrive {
	return &KStyleOverdrive{
		Unit: engine.NewUnit("K-Style Overdrive",
			engine.ParamSpec{Name: "Drive", Default: 0.3},
			engine.ParamSpec{Name: "Tone", Default: 0.5},
			engine.ParamSpec{Name: "Level", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (k *KStyleOverdrive) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := k.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	k.Reset()

	return nil
}

// Reset clears the filter state.
func (k *KStyleOverdrive) Reset() {
	for ch := range k.hump {
		k.hump[ch].Reset()
		k.hump[ch].Coefficients = biquad.Identity()
		k.tone[ch].Reset()
	}
	k.counter = 0
	k.Params().Snap()
}

// Process runs the overdrive in place.
func (k *KStyleOverdrive) Process(block [][]float64) {
	if len(block) == 0 || !k.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := k.Params()
	sampleRate := k.SampleRate()

	if k.counter == 0 {
		coeffs := biquad.Peak(720, 0.9, 5, sampleRate)
		for ch := range k.hump {
			k.hump[ch].Coefficients = coeffs
		}
		k.counter = 1
	}

	for i := range block[0] {
		drive := 1.5 + params.At(0).Next()*18
		tone := params.At(1).Next()
		level := core.DBToLinear(params.At(2).Next()*24 - 12)
		mix := params.At(3).Next()

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			v := k.hump[ch].ProcessSample(dry)
			v = dsputil.AsymSoftClip(v*drive, 0.2) / math.Sqrt(drive)

			k.tone[ch].SetCutoff(core.ExpMap(tone, 1200, 10000), sampleRate)
			wet := k.tone[ch].Process(v) * level

			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}
