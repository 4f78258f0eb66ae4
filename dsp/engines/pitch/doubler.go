package pitch

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/delay"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

const (
	doublerWindowSecs = 0.030
	doublerMaxDetune  = 25.0 // cents per side
)

// detuneVoice is a delay-line micro pitch shifter: two taps ramp through
// the buffer at a rate offset of (1 - ratio) and crossfade at the wrap
// points, the classic dual-sawtooth doubler trick.
type detuneVoice struct {
	line  *delay.Line
	phase float64
}

func (v *detuneVoice) process(x, ratio, windowSamples float64) float64 {
	v.line.Write(x)

	v.phase += 1 - ratio
	for v.phase >= windowSamples {
		v.phase -= windowSamples
	}
	for v.phase < 0 {
		v.phase += windowSamples
	}

	tapA := v.phase
	tapB := tapA + windowSamples*0.5
	if tapB >= windowSamples {
		tapB -= windowSamples
	}

	// Equal-power crossfade keyed to tap position: the half-window tap
	// offset makes the two gains sin/cos pairs, so level holds even
	// though the taps sit at unrelated phases of the input.
	fade := tapA / windowSamples
	gainA := math.Sin(math.Pi * fade)
	fadeB := tapB / windowSamples
	gainB := math.Sin(math.Pi * fadeB)

	return v.line.ReadFractional(tapA+1)*gainA + v.line.ReadFractional(tapB+1)*gainB
}

// DetuneDoubler thickens the input with two micro-detuned voices, one
// sharp and one flat, spread across the stereo field.
type DetuneDoubler struct {
	engine.Unit

	up   [2]detuneVoice
	down [2]detuneVoice
}

// NewDetuneDoubler returns an unprepared doubler.
func NewDetuneDoubler() *DetuneDoubler {
	return &DetuneDoubler{
		Unit: engine.NewUnit("Detune Doubler",
			engine.ParamSpec{Name: "Detune", Default: 0.4},
			engine.ParamSpec{Name: "Delay", Default: 0.2},
			engine.ParamSpec{Name: "Width", Default: 0.7},
			engine.ParamSpec{Name: "Mix", Default: 0.5},
		),
	}
}

// Prepare sizes the voice buffers for the transport.
func (d *DetuneDoubler) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := d.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := 0; ch < 2; ch++ {
		for _, v := range []*detuneVoice{&d.up[ch], &d.down[ch]} {
			line, err := delay.NewForDuration(doublerWindowSecs*2+0.02, sampleRate)
			if err != nil {
				return err
			}
			v.line = line
		}
	}

	d.Reset()

	return nil
}

// Reset clears the voice buffers and tap phases.
func (d *DetuneDoubler) Reset() {
	for ch := 0; ch < 2; ch++ {
		for _, v := range []*detuneVoice{&d.up[ch], &d.down[ch]} {
			if v.line != nil {
				v.line.Reset()
			}
			v.phase = 0
		}
		// Stagger the second channel so the voices never align.
		d.down[ch].phase = doublerWindowSecs * d.SampleRate() * 0.5
	}

	d.Params().Snap()
}

// Process runs the doubler in place.
func (d *DetuneDoubler) Process(block [][]float64) {
	if len(block) == 0 || !d.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := d.Params()
	sampleRate := d.SampleRate()
	windowSamples := doublerWindowSecs * sampleRate

	for i := range block[0] {
		cents := params.At(0).Next() * doublerMaxDetune
		predelay := params.At(1).Next() * 0.015 * sampleRate
		width := params.At(2).Next()
		mix := params.At(3).Next()

		ratioUp := math.Pow(2, cents/1200)
		ratioDown := math.Pow(2, -cents/1200)

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			up := d.up[ch].process(dry, ratioUp, windowSamples+predelay)
			down := d.down[ch].process(dry, ratioDown, windowSamples+predelay)

			// Width pans the sharp voice one way, flat the other.
			// Equal-power weights: the voices beat against each other,
			// so powers add rather than amplitudes.
			var wet float64
			if channels == 2 {
				near := math.Sqrt((1 + width) * 0.5)
				far := math.Sqrt((1 - width) * 0.5)
				if ch == 0 {
					wet = up*near + down*far
				} else {
					wet = up*far + down*near
				}
			} else {
				wet = (up + down) * math.Sqrt2 * 0.5
			}

			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

// Scale interval tables for the harmonizer, in semitones from the key
// root.
var harmonizerScales = [4][]int{
	{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, // chromatic
	{0, 2, 4, 5, 7, 9, 11},                 // major
	{0, 2, 3, 5, 7, 8, 10},                 // natural minor
	{0, 3, 5, 7, 10},                       // minor pentatonic
}

// IntelligentHarmonizer adds a harmony voice a scale-aware interval
// above or below the input. The voice is a pitch-synchronous stream
// whose ratio is requantized whenever the detected input pitch moves,
// so the harmony stays inside the chosen key.
type IntelligentHarmonizer struct {
	engine.Unit

	streams [2]*psolaStream
	inBuf   [2][]float64
	wet     [2][]float64
	alpha   float64
}

// NewIntelligentHarmonizer returns an unprepared harmonizer.
func NewIntelligentHarmonizer() *IntelligentHarmonizer {
	return &IntelligentHarmonizer{
		Unit: engine.NewUnit("Intelligent Harmonizer",
			engine.ParamSpec{Name: "Interval", Default: 0.75}, // +3rd-ish
			engine.ParamSpec{Name: "Key", Default: 0.0},
			engine.ParamSpec{Name: "Scale", Default: 0.25},
			engine.ParamSpec{Name: "Level", Default: 0.7},
			engine.ParamSpec{Name: "Mix", Default: 0.5},
		),
	}
}

// Prepare sizes the harmony stream for the transport.
func (h *IntelligentHarmonizer) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := h.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := 0; ch < 2; ch++ {
		h.streams[ch] = newPsolaStream(sampleRate, maxBlockSize)
		h.inBuf[ch] = core.EnsureLen(h.inBuf[ch], maxBlockSize)
		h.wet[ch] = core.EnsureLen(h.wet[ch], maxBlockSize)
	}

	h.Reset()

	return nil
}

// Reset returns the harmony streams to their acquiring state.
func (h *IntelligentHarmonizer) Reset() {
	for ch := 0; ch < 2; ch++ {
		if h.streams[ch] != nil {
			h.streams[ch].reset()
		}
	}

	h.alpha = 1
	h.Params().Snap()
}

// snapToScale returns the nearest note of the scale at or below/above
// the candidate, searching outward.
func snapToScale(note, root int, scale []int) int {
	for offset := 0; offset <= 6; offset++ {
		for _, cand := range [2]int{note - offset, note + offset} {
			pc := ((cand-root)%12 + 12) % 12
			for _, deg := range scale {
				if pc == deg {
					return cand
				}
			}
		}
	}

	return note
}

// Process runs the harmonizer in place.
func (h *IntelligentHarmonizer) Process(block [][]float64) {
	if len(block) == 0 || !h.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	n := len(block[0])
	if n > h.MaxBlock() {
		n = h.MaxBlock()
	}

	params := h.Params()

	interval := int(math.Round(params.At(0).Current()*24 - 12))
	root := int(params.At(1).Current()*11 + 0.5)
	scaleIdx := int(params.At(2).Current() * 3.99)
	scale := harmonizerScales[scaleIdx]

	// Requantize the ratio from the detected pitch so the interval lands
	// on a scale note.
	if period := h.streams[0].period; period > 0 && h.streams[0].running {
		f0 := h.SampleRate() / period
		note := int(math.Round(69 + 12*math.Log2(f0/440)))
		target := snapToScale(note+interval, root, scale)
		h.alpha = core.Clamp(core.SemitonesToRatio(float64(target-note)), 0.5, 2)
	} else {
		h.alpha = core.Clamp(core.SemitonesToRatio(float64(interval)), 0.5, 2)
	}

	for ch := 0; ch < channels; ch++ {
		copy(h.inBuf[ch][:n], block[ch][:n])
		h.streams[ch].process(h.inBuf[ch][:n], h.wet[ch][:n], h.alpha, 1)
	}

	for i := 0; i < n; i++ {
		params.At(0).Next()
		params.At(1).Next()
		params.At(2).Next()
		level := params.At(3).Next()
		mix := params.At(4).Next()

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]
			wet := dry + h.wet[ch][i]*level
			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}
