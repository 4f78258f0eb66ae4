// Package eqfilter implements the equalizer and filter engines: dynamic,
// parametric and console EQs, ladder and state-variable filters, formant
// and vowel filters, the envelope filter, and the comb resonator.
package eqfilter

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/filter/biquad"
)

// eqRedesignInterval is how many samples pass between coefficient
// redesigns. Smoothed parameters drift slowly, so redesigning every
// sample buys nothing audible.
const eqRedesignInterval = 32

// DynamicEQ is a single-band bell whose gain is driven by the level
// inside the band: above the threshold the static gain is pulled toward
// zero by the ratio, giving frequency-selective compression.
type DynamicEQ struct {
	engine.Unit

	bands    [2]biquad.Section
	detector biquad.Section
	env      float64
	counter  int
	lastGain float64
}

// NewDynamicEQ returns an unprepared dynamic EQ.
func NewDynamicEQ() *DynamicEQ {
	return &DynamicEQ{
		Unit: engine.NewUnit("Dynamic EQ",
			engine.ParamSpec{Name: "Frequency", Default: 0.5},
			engine.ParamSpec{Name: "Threshold", Default: 0.5},
			engine.ParamSpec{Name: "Ratio", Default: 0.3},
			engine.ParamSpec{Name: "Attack", Default: 0.3},
			engine.ParamSpec{Name: "Release", Default: 0.4},
			engine.ParamSpec{Name: "Gain", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (d *DynamicEQ) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := d.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	d.Reset()

	return nil
}

// Reset clears filters and detector.
func (d *DynamicEQ) Reset() {
	for ch := range d.bands {
		d.bands[ch].Reset()
		d.bands[ch].Coefficients = biquad.Identity()
	}

	d.detector.Reset()
	d.detector.Coefficients = biquad.Identity()
	d.env = 0
	d.counter = 0
	d.lastGain = 0
	d.Params().Snap()
}

// Process runs the dynamic EQ in place.
func (d *DynamicEQ) Process(block [][]float64) {
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
		freq := core.ExpMap(params.At(0).Next(), 60, 12000)
		thresholdDB := -48 + params.At(1).Next()*48
		ratio := 1 + params.At(2).Next()*9
		attackMs := 0.5 + params.At(3).Next()*49.5
		releaseMs := 20 + params.At(4).Next()*480
		staticDB := params.At(5).Next()*30 - 15
		mix := params.At(6).Next()

		// Detector listens through a bandpass at the band frequency.
		if d.counter == 0 {
			d.detector.Coefficients = biquad.Bandpass(freq, 1.4, sampleRate)
		}

		inBand := d.detector.ProcessSample(block[0][i])
		level := math.Abs(inBand)

		coeff := core.OnePoleCoeff(releaseMs, sampleRate)
		if level > d.env {
			coeff = core.OnePoleCoeff(attackMs, sampleRate)
		}
		d.env = level + (d.env-level)*coeff
		d.env = core.FlushDenormals(d.env)

		overDB := core.LinearToDB(d.env) - thresholdDB
		dynamicDB := staticDB
		if overDB > 0 {
			reduce := overDB * (1 - 1/ratio)
			if staticDB >= 0 {
				dynamicDB = math.Max(staticDB-reduce, 0)
			} else {
				dynamicDB = math.Min(staticDB+reduce, 0)
			}
		}

		if d.counter == 0 || math.Abs(dynamicDB-d.lastGain) > 0.25 {
			coeffs := biquad.Peak(freq, 1.0, dynamicDB, sampleRate)
			for ch := range d.bands {
				d.bands[ch].Coefficients = coeffs
			}
			d.lastGain = dynamicDB
		}

		if d.counter++; d.counter >= eqRedesignInterval {
			d.counter = 0
		}

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]
			wet := d.bands[ch].ProcessSample(dry)
			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

// ParametricEQ is a three-band equalizer: low shelf, fully parametric
// mid bell, and high shelf.
type ParametricEQ struct {
	engine.Unit

	low     [2]biquad.Section
	mid     [2]biquad.Section
	high    [2]biquad.Section
	counter int
}

// NewParametricEQ returns an unprepared parametric EQ.
func NewParametricEQ() *ParametricEQ {
	return &ParametricEQ{
		Unit: engine.NewUnit("Parametric EQ",
			engine.ParamSpec{Name: "Low Freq", Default: 0.3},
			engine.ParamSpec{Name: "Low Gain", Default: 0.5},
			engine.ParamSpec{Name: "Mid Freq", Default: 0.5},
			engine.ParamSpec{Name: "Mid Gain", Default: 0.5},
			engine.ParamSpec{Name: "Mid Q", Default: 0.3},
			engine.ParamSpec{Name: "High Freq", Default: 0.7},
			engine.ParamSpec{Name: "High Gain", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (p *ParametricEQ) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := p.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	p.Reset()

	return nil
}

// Reset clears all band state.
func (p *ParametricEQ) Reset() {
	for ch := 0; ch < 2; ch++ {
		p.low[ch].Reset()
		p.mid[ch].Reset()
		p.high[ch].Reset()
		p.low[ch].Coefficients = biquad.Identity()
		p.mid[ch].Coefficients = biquad.Identity()
		p.high[ch].Coefficients = biquad.Identity()
	}

	p.counter = 0
	p.Params().Snap()
}

// Process runs the EQ in place.
func (p *ParametricEQ) Process(block [][]float64) {
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
		lowFreq := core.ExpMap(params.At(0).Next(), 30, 500)
		lowGain := params.At(1).Next()*30 - 15
		midFreq := core.ExpMap(params.At(2).Next(), 200, 8000)
		midGain := params.At(3).Next()*30 - 15
		midQ := 0.3 + params.At(4).Next()*9.7
		highFreq := core.ExpMap(params.At(5).Next(), 2000, 18000)
		highGain := params.At(6).Next()*30 - 15
		mix := params.At(7).Next()

		if p.counter == 0 {
			lowC := biquad.LowShelf(lowFreq, 0.9, lowGain, sampleRate)
			midC := biquad.Peak(midFreq, midQ, midGain, sampleRate)
			highC := biquad.HighShelf(highFreq, 0.9, highGain, sampleRate)
			for ch := 0; ch < 2; ch++ {
				p.low[ch].Coefficients = lowC
				p.mid[ch].Coefficients = midC
				p.high[ch].Coefficients = highC
			}
		}

		if p.counter++; p.counter >= eqRedesignInterval {
			p.counter = 0
		}

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]
			wet := p.high[ch].ProcessSample(p.mid[ch].ProcessSample(p.low[ch].ProcessSample(dry)))
			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

// Console EQ band centers, fixed like the hardware it nods to.
var consoleBandHz = [4]float64{80, 400, 2500, 10000}

// VintageConsoleEQ is a four-band channel-strip EQ with fixed band
// centers, broad proportional-Q bells, and a transformer-style drive
// stage after the filters.
type VintageConsoleEQ struct {
	engine.Unit

	bands   [2][4]biquad.Section
	dc      [2]dsputil.DCBlocker
	counter int
}

// NewVintageConsoleEQ returns an unprepared console EQ.
func NewVintageConsoleEQ() *VintageConsoleEQ {
	return &VintageConsoleEQ{
		Unit: engine.NewUnit("Vintage Console EQ",
			engine.ParamSpec{Name: "Low", Default: 0.5},
			engine.ParamSpec{Name: "Low Mid", Default: 0.5},
			engine.ParamSpec{Name: "High Mid", Default: 0.5},
			engine.ParamSpec{Name: "High", Default: 0.5},
			engine.ParamSpec{Name: "Drive", Default: 0.2},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (v *VintageConsoleEQ) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := v.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	v.Reset()

	return nil
}

// Reset clears all band state.
func (v *VintageConsoleEQ) Reset() {
	for ch := 0; ch < 2; ch++ {
		for b := range v.bands[ch] {
			v.bands[ch][b].Reset()
			v.bands[ch][b].Coefficients = biquad.Identity()
		}
		v.dc[ch] = dsputil.NewDCBlocker()
	}

	v.counter = 0
	v.Params().Snap()
}

// Process runs the console EQ in place.
func (v *VintageConsoleEQ) Process(block [][]float64) {
	if len(block) == 0 || !v.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := v.Params()
	sampleRate := v.SampleRate()

	for i := range block[0] {
		var gains [4]float64
		for b := 0; b < 4; b++ {
			gains[b] = params.At(b).Next()*24 - 12
		}
		drive := params.At(4).Next()
		mix := params.At(5).Next()

		if v.counter == 0 {
			for b := 0; b < 4; b++ {
				// Proportional Q: broader strokes at small boosts.
				q := 0.5 + math.Abs(gains[b])*0.08
				coeffs := biquad.Peak(consoleBandHz[b], q, gains[b], sampleRate)
				for ch := 0; ch < 2; ch++ {
					v.bands[ch][b].Coefficients = coeffs
				}
			}
		}

		if v.counter++; v.counter >= eqRedesignInterval {
			v.counter = 0
		}

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			wet := dry
			for b := range v.bands[ch] {
				wet = v.bands[ch][b].ProcessSample(wet)
			}

			if drive > 0 {
				amount := 1 + drive*3
				saturated := math.Tanh(wet*amount) / amount
				wet = v.dc[ch].Process(dsputil.DryWet(wet, saturated, 0.6))
			}

			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}
