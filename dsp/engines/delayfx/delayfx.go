// Package delayfx implements the echo engines: tape, digital, drum, and
// bucket-brigade delays plus the buffer repeater.
package delayfx

import (
	"math"
	"math/rand"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/delay"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

const maxEchoSecs = 2.0

// TapeEcho is a tape-loop delay: the repeat path runs through tape
// saturation and a head-bump tone, and the motor drifts with wow and
// flutter so repeats detune slightly.
type TapeEcho struct {
	engine.Unit

	lines    [2]*delay.Line
	tone     [2]dsputil.OnePole
	wow      dsputil.LFO
	flutter  dsputil.LFO
	rng      *rand.Rand
	noiseAmt float64
}

// NewTapeEcho returns an unprepared tape echo.
func NewTapeEcho() *TapeEcho {
	return &TapeEcho{
		Unit: engine.NewUnit("Tape Echo",
			engine.ParamSpec{Name: "Time", Default: 0.4},
			engine.ParamSpec{Name: "Feedback", Default: 0.4},
			engine.ParamSpec{Name: "Wow & Flutter", Default: 0.3},
			engine.ParamSpec{Name: "Saturation", Default: 0.3},
			engine.ParamSpec{Name: "Mix", Default: 0.35},
		),
	}
}

// Prepare sizes the loop for the transport.
func (t *TapeEcho) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := t.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := range t.lines {
		line, err := delay.NewForDuration(maxEchoSecs*1.05, sampleRate)
		if err != nil {
			return err
		}
		t.lines[ch] = line
	}

	t.Reset()

	return nil
}

// Reset clears the loop and restarts the motor drift.
func (t *TapeEcho) Reset() {
	for ch := range t.lines {
		if t.lines[ch] != nil {
			t.lines[ch].Reset()
		}
		t.tone[ch].Reset()
	}

	t.wow.Reset()
	t.flutter.Reset()
	t.flutter.SetPhase(1.3)
	t.rng = rand.New(rand.NewSource(0x7A9E))
	t.noiseAmt = 0
	t.Params().Snap()
}

// Process runs the echo in place.
func (t *TapeEcho) Process(block [][]float64) {
	if len(block) == 0 || !t.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := t.Params()
	sampleRate := t.SampleRate()

	t.wow.SetRate(0.7, sampleRate)
	t.flutter.SetRate(6.3, sampleRate)

	for i := range block[0] {
		timeSecs := 0.03 + params.At(0).Next()*(maxEchoSecs-0.03)
		feedback := params.At(1).Next() * 0.85
		drift := params.At(2).Next()
		saturation := params.At(3).Next()
		mix := params.At(4).Next()

		t.wow.Advance()
		t.flutter.Advance()

		// Wow is a slow percent-scale stretch, flutter a fast shiver.
		mod := 1 + drift*(0.003*t.wow.Sine()+0.0006*t.flutter.Sine())
		delaySamples := timeSecs * mod * sampleRate

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			repeat := t.lines[ch].ReadFractional(delaySamples)

			// Each pass over the head loses highs and gains grit.
			t.tone[ch].SetCutoff(4500-saturation*2000, sampleRate)
			colored := t.tone[ch].Process(repeat)
			colored = math.Tanh(colored * (1 + saturation*3))
			colored += (t.rng.Float64() - 0.5) * 0.0004 * drift

			t.lines[ch].Write(dry + colored*feedback)

			block[ch][i] = dsputil.DryWet(dry, repeat, mix)
		}
	}
}

// DigitalDelay is a clean delay with feedback filtering and a ping-pong
// control that bounces repeats across the stereo pair.
type DigitalDelay struct {
	engine.Unit

	lines [2]*delay.Line
	damp  [2]dsputil.OnePole
}

// NewDigitalDelay returns an unprepared digital delay.
func NewDigitalDelay() *DigitalDelay {
	return &DigitalDelay{
		Unit: engine.NewUnit("Digital Delay",
			engine.ParamSpec{Name: "Time", Default: 0.35},
			engine.ParamSpec{Name: "Feedback", Default: 0.35},
			engine.ParamSpec{Name: "Tone", Default: 0.7},
			engine.ParamSpec{Name: "Ping Pong", Default: 0.0},
			engine.ParamSpec{Name: "Mix", Default: 0.35},
		),
	}
}

// Prepare sizes the lines for the transport.
func (d *DigitalDelay) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := d.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := range d.lines {
		line, err := delay.NewForDuration(maxEchoSecs, sampleRate)
		if err != nil {
			return err
		}
		d.lines[ch] = line
	}

	d.Reset()

	return nil
}

// Reset clears the lines.
func (d *DigitalDelay) Reset() {
	for ch := range d.lines {
		if d.lines[ch] != nil {
			d.lines[ch].Reset()
		}
		d.damp[ch].Reset()
	}
	d.Params().Snap()
}

// Process runs the delay in place.
func (d *DigitalDelay) Process(block [][]float64) {
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
		timeSecs := 0.01 + params.At(0).Next()*(maxEchoSecs-0.01)
		feedback := params.At(1).Next() * 0.95
		tone := params.At(2).Next()
		pingPong := params.At(3).Next()
		mix := params.At(4).Next()

		delaySamples := timeSecs * sampleRate

		var taps [2]float64
		for ch := 0; ch < channels; ch++ {
			taps[ch] = d.lines[ch].ReadFractional(delaySamples)
		}

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			// Ping-pong routes this channel's feedback to the other line.
			cross := ch
			if channels == 2 {
				cross = 1 - ch
			}
			repeat := taps[ch]*(1-pingPong) + taps[cross]*pingPong

			d.damp[ch].SetCutoff(core.ExpMap(tone, 800, 16000), sampleRate)
			d.lines[ch].Write(dry + d.damp[ch].Process(repeat)*feedback)

			block[ch][i] = dsputil.DryWet(dry, taps[ch], mix)
		}
	}
}

// Fixed playback-head positions of the drum echo as fractions of the
// time control.
var drumHeads = [3]float64{1.0, 0.6180, 0.3819}

// MagneticDrumEcho models a rotating-drum echo with three playback
// heads at golden-ratio spacings, each darker than the last.
type MagneticDrumEcho struct {
	engine.Unit

	lines [2]*delay.Line
	tones [2][3]dsputil.OnePole
}

// NewMagneticDrumEcho returns an unprepared drum echo.
func NewMagneticDrumEcho() *MagneticDrumEcho {
	return &MagneticDrumEcho{
		Unit: engine.NewUnit("Magnetic Drum Echo",
			engine.ParamSpec{Name: "Time", Default: 0.4},
			engine.ParamSpec{Name: "Feedback", Default: 0.4},
			engine.ParamSpec{Name: "Head Blend", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 0.35},
		),
	}
}

// Prepare sizes the drum for the transport.
func (m *MagneticDrumEcho) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := m.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := range m.lines {
		line, err := delay.NewForDuration(1.2, sampleRate)
		if err != nil {
			return err
		}
		m.lines[ch] = line
	}

	m.Reset()

	return nil
}

// Reset clears the drum surface.
func (m *MagneticDrumEcho) Reset() {
	for ch := range m.lines {
		if m.lines[ch] != nil {
			m.lines[ch].Reset()
		}
		for h := range m.tones[ch] {
			m.tones[ch][h].Reset()
		}
	}
	m.Params().Snap()
}

// Process runs the drum echo in place.
func (m *MagneticDrumEcho) Process(block [][]float64) {
	if len(block) == 0 || !m.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := m.Params()
	sampleRate := m.SampleRate()

	for i := range block[0] {
		timeSecs := 0.05 + params.At(0).Next()*1.1
		feedback := params.At(1).Next() * 0.8
		blend := params.At(2).Next()
		mix := params.At(3).Next()

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			sum := 0.0
			norm := 0.0
			for h := range drumHeads {
				gain := 1.0
				if h > 0 {
					// Later heads fade in with the blend control.
					gain = blend * (1 - 0.25*float64(h))
				}

				tap := m.lines[ch].ReadFractional(timeSecs * drumHeads[h] * sampleRate)
				m.tones[ch][h].SetCutoff(3500-float64(h)*800, sampleRate)
				sum += m.tones[ch][h].Process(tap) * gain
				norm += gain
			}

			if norm > 0 {
				sum /= norm
			}

			m.lines[ch].Write(dry + math.Tanh(sum*1.2)*feedback)

			block[ch][i] = dsputil.DryWet(dry, sum, mix)
		}
	}
}

// BucketBrigadeDelay models an analog BBD chip: the delay time sets the
// clock rate, and slower clocks cost bandwidth, so long delays get dark
// and gritty. The companding stage adds the characteristic soft squash.
type BucketBrigadeDelay struct {
	engine.Unit

	lines  [2]*delay.Line
	preLP  [2]dsputil.OnePole
	postLP [2]dsputil.OnePole
	clock  dsputil.LFO
}

// NewBucketBrigadeDelay returns an unprepared BBD.
func NewBucketBrigadeDelay() *BucketBrigadeDelay {
	return &BucketBrigadeDelay{
		Unit: engine.NewUnit("Bucket Brigade Delay",
			engine.ParamSpec{Name: "Time", Default: 0.3},
			engine.ParamSpec{Name: "Feedback", Default: 0.4},
			engine.ParamSpec{Name: "Clock Noise", Default: 0.2},
			engine.ParamSpec{Name: "Modulation", Default: 0.2},
			engine.ParamSpec{Name: "Mix", Default: 0.4},
		),
	}
}

// Prepare sizes the bucket chain for the transport.
func (b *BucketBrigadeDelay) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := b.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := range b.lines {
		line, err := delay.NewForDuration(0.8, sampleRate)
		if err != nil {
			return err
		}
		b.lines[ch] = line
	}

	b.Reset()

	return nil
}

// Reset clears the chain.
func (b *BucketBrigadeDelay) Reset() {
	for ch := range b.lines {
		if b.lines[ch] != nil {
			b.lines[ch].Reset()
		}
		b.preLP[ch].Reset()
		b.postLP[ch].Reset()
	}
	b.clock.Reset()
	b.Params().Snap()
}

// Process runs the BBD in place.
func (b *BucketBrigadeDelay) Process(block [][]float64) {
	if len(block) == 0 || !b.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := b.Params()
	sampleRate := b.SampleRate()

	b.clock.SetRate(0.9, sampleRate)

	for i := range block[0] {
		timeSecs := 0.02 + params.At(0).Next()*0.58
		feedback := params.At(1).Next() * 0.85
		grit := params.At(2).Next()
		modDepth := params.At(3).Next()
		mix := params.At(4).Next()

		b.clock.Advance()

		// Anti-alias bandwidth tracks the virtual clock: longer delay,
		// darker chain.
		bandwidth := core.Clamp(3000/(timeSecs/0.02), 800, 8000)

		mod := 1 + modDepth*0.004*b.clock.Sine()
		delaySamples := timeSecs * mod * sampleRate

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			tap := b.lines[ch].ReadFractional(delaySamples)
			b.postLP[ch].SetCutoff(bandwidth, sampleRate)
			tap = b.postLP[ch].Process(tap)

			// Compand: squash in, expand out, leaving residue.
			tap = math.Tanh(tap*1.5) / 1.5
			tap += tap * tap * tap * grit * 0.3

			b.preLP[ch].SetCutoff(bandwidth, sampleRate)
			in := b.preLP[ch].Process(dry + tap*feedback)
			b.lines[ch].Write(in)

			block[ch][i] = dsputil.DryWet(dry, tap, mix)
		}
	}
}

// BufferRepeat captures a short loop and retriggers it at a set rate,
// a glitch/stutter effect. Repeat probability decides per cycle whether
// the loop or the live input passes.
type BufferRepeat struct {
	engine.Unit

	loop    [2][]float64
	loopLen int
	pos     int
	capture bool
	rng     *rand.Rand
	gateOn  bool
}

// NewBufferRepeat returns an unprepared buffer repeater.
func NewBufferRepeat() *BufferRepeat {
	return &BufferRepeat{
		Unit: engine.NewUnit("Buffer Repeat",
			engine.ParamSpec{Name: "Size", Default: 0.4},
			engine.ParamSpec{Name: "Probability", Default: 0.5},
			engine.ParamSpec{Name: "Decay", Default: 0.8},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare sizes the capture buffer for the transport.
func (r *BufferRepeat) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := r.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	size := int(0.5 * sampleRate)
	for ch := range r.loop {
		r.loop[ch] = make([]float64, size)
	}

	r.Reset()

	return nil
}

// Reset clears the loop and capture state.
func (r *BufferRepeat) Reset() {
	for ch := range r.loop {
		core.Zero(r.loop[ch])
	}

	r.loopLen = 0
	r.pos = 0
	r.capture = true
	r.gateOn = false
	r.rng = rand.New(rand.NewSource(0xB0F))
	r.Params().Snap()
}

// Process runs the repeater in place.
func (r *BufferRepeat) Process(block [][]float64) {
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
		size := params.At(0).Next()
		probability := params.At(1).Next()
		decay := params.At(2).Next()
		mix := params.At(3).Next()

		want := int(core.ExpMap(size, 0.02, 0.5) * sampleRate)
		if want > len(r.loop[0]) {
			want = len(r.loop[0])
		}
		if r.loopLen == 0 {
			r.loopLen = want
		}

		if r.pos >= r.loopLen {
			// Cycle boundary: decide capture vs repeat, adopt new size.
			r.pos = 0
			r.loopLen = want
			r.gateOn = r.rng.Float64() < probability
			r.capture = !r.gateOn
		}

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]

			var wet float64
			if r.capture {
				r.loop[ch][r.pos] = dry
				wet = dry
			} else {
				wet = r.loop[ch][r.pos]
				r.loop[ch][r.pos] *= decay
			}

			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}

		r.pos++
	}
}
