package eqfilter

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/filter/biquad"
)

// vowel holds the first three formant centers and their relative levels
// for a sung vowel. Values follow published soprano/alto averages,
// rounded; the exact numbers matter less than their ratios.
type vowel struct {
	freq [3]float64
	gain [3]float64
}

var vowelTable = [5]vowel{
	{freq: [3]float64{800, 1150, 2900}, gain: [3]float64{1.0, 0.50, 0.10}}, // A
	{freq: [3]float64{400, 2000, 2800}, gain: [3]float64{1.0, 0.35, 0.16}}, // E
	{freq: [3]float64{350, 2300, 3000}, gain: [3]float64{1.0, 0.25, 0.12}}, // I
	{freq: [3]float64{450, 800, 2830}, gain: [3]float64{1.0, 0.55, 0.063}}, // O
	{freq: [3]float64{325, 700, 2700}, gain: [3]float64{1.0, 0.45, 0.032}}, // U
}

// interpolateVowel blends the vowel table at a fractional position in
// [0, 1] spanning A through U. Formant centers interpolate
// geometrically so the sweep is perceptually even.
func interpolateVowel(position float64) vowel {
	position = core.Clamp01(position) * float64(len(vowelTable)-1)
	idx := int(position)
	if idx >= len(vowelTable)-1 {
		return vowelTable[len(vowelTable)-1]
	}

	frac := position - float64(idx)
	a, b := vowelTable[idx], vowelTable[idx+1]

	var out vowel
	for f := 0; f < 3; f++ {
		out.freq[f] = a.freq[f] * math.Pow(b.freq[f]/a.freq[f], frac)
		out.gain[f] = a.gain[f] + (b.gain[f]-a.gain[f])*frac
	}

	return out
}

// formantBank is three parallel band-pass sections for one channel.
type formantBank struct {
	sections [3]biquad.Section
}

func (b *formantBank) design(v vowel, q, brightness, sampleRate float64) {
	for f := range b.sections {
		b.sections[f].Coefficients = biquad.Bandpass(v.freq[f]*(1+brightness*0.2), q, sampleRate)
	}
}

func (b *formantBank) process(x float64, v vowel, brightness float64) float64 {
	out := 0.0
	for f := range b.sections {
		gain := v.gain[f]
		if f > 0 {
			gain *= 1 + brightness
		}
		out += b.sections[f].ProcessSample(x) * gain
	}

	return out * 2
}

func (b *formantBank) reset() {
	for f := range b.sections {
		b.sections[f].Reset()
		b.sections[f].Coefficients = biquad.Identity()
	}
}

// FormantFilter sweeps a three-formant vowel bank A through U.
type FormantFilter struct {
	engine.Unit

	banks   [2]formantBank
	counter int
}

// NewFormantFilter returns an unprepared formant filter.
func NewFormantFilter() *FormantFilter {
	return &FormantFilter{
		Unit: engine.NewUnit("Formant Filter",
			engine.ParamSpec{Name: "Vowel", Default: 0.0},
			engine.ParamSpec{Name: "Resonance", Default: 0.5},
			engine.ParamSpec{Name: "Brightness", Default: 0.3},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (f *FormantFilter) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := f.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	f.Reset()

	return nil
}

// Reset clears the filter banks.
func (f *FormantFilter) Reset() {
	for ch := range f.banks {
		f.banks[ch].reset()
	}
	f.counter = 0
	f.Params().Snap()
}

// Process runs the formant filter in place.
func (f *FormantFilter) Process(block [][]float64) {
	if len(block) == 0 || !f.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := f.Params()
	sampleRate := f.SampleRate()

	var current vowel
	var brightness float64

	for i := range block[0] {
		position := params.At(0).Next()
		resonance := params.At(1).Next()
		brightness = params.At(2).Next()
		mix := params.At(3).Next()

		if f.counter == 0 {
			current = interpolateVowel(position)
			q := 4 + resonance*16
			for ch := range f.banks {
				f.banks[ch].design(current, q, brightness, sampleRate)
			}
		}

		if f.counter++; f.counter >= eqRedesignInterval {
			f.counter = 0
		}

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]
			wet := f.banks[ch].process(dry, current, brightness)
			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

// VocalFormantFilter morphs between two selectable vowels, which makes
// talking-wah motions possible under automation of the morph control.
type VocalFormantFilter struct {
	engine.Unit

	banks   [2]formantBank
	counter int
}

// NewVocalFormantFilter returns an unprepared vocal formant filter.
func NewVocalFormantFilter() *VocalFormantFilter {
	return &VocalFormantFilter{
		Unit: engine.NewUnit("Vocal Formant Filter",
			engine.ParamSpec{Name: "Vowel 1", Default: 0.0},
			engine.ParamSpec{Name: "Vowel 2", Default: 0.75},
			engine.ParamSpec{Name: "Morph", Default: 0.0},
			engine.ParamSpec{Name: "Resonance", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (v *VocalFormantFilter) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := v.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	v.Reset()

	return nil
}

// Reset clears the filter banks.
func (v *VocalFormantFilter) Reset() {
	for ch := range v.banks {
		v.banks[ch].reset()
	}
	v.counter = 0
	v.Params().Snap()
}

// Process runs the vocal formant filter in place.
func (v *VocalFormantFilter) Process(block [][]float64) {
	if len(block) == 0 || !v.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := v.Params()
	sampleRate := v.SampleRate()

	var current vowel

	for i := range block[0] {
		pos1 := params.At(0).Next()
		pos2 := params.At(1).Next()
		morph := params.At(2).Next()
		resonance := params.At(3).Next()
		mix := params.At(4).Next()

		if v.counter == 0 {
			a := interpolateVowel(pos1)
			b := interpolateVowel(pos2)

			for f := 0; f < 3; f++ {
				current.freq[f] = a.freq[f] * math.Pow(b.freq[f]/a.freq[f], morph)
				current.gain[f] = a.gain[f] + (b.gain[f]-a.gain[f])*morph
			}

			q := 4 + resonance*16
			for ch := range v.banks {
				v.banks[ch].design(current, q, 0, sampleRate)
			}
		}

		if v.counter++; v.counter >= eqRedesignInterval {
			v.counter = 0
		}

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]
			wet := v.banks[ch].process(dry, current, 0)
			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}
