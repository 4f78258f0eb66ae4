// Package dsputil holds the small state machines shared by the engine
// implementations: LFOs, DC blockers, envelope followers, one-pole
// filters, and waveshapers. Everything here is allocation free and owned
// by a single engine instance.
package dsputil

import "math"

const twoPi = 2 * math.Pi

// LFO is a phase-accumulator low-frequency oscillator.
type LFO struct {
	phase float64
	inc   float64
}

// SetRate sets the oscillation rate in Hz at the given sample rate.
func (l *LFO) SetRate(rateHz, sampleRate float64) {
	if sampleRate <= 0 {
		l.inc = 0
		return
	}

	l.inc = twoPi * rateHz / sampleRate
}

// SetPhase sets the current phase in radians.
func (l *LFO) SetPhase(phase float64) {
	l.phase = math.Mod(phase, twoPi)
	if l.phase < 0 {
		l.phase += twoPi
	}
}

// Phase returns the current phase in radians.
func (l *LFO) Phase() float64 { return l.phase }

// Advance steps the phase by one sample and returns the new phase.
func (l *LFO) Advance() float64 {
	l.phase += l.inc
	if l.phase >= twoPi {
		l.phase -= twoPi
	}

	return l.phase
}

// Sine returns sin(phase) without advancing.
func (l *LFO) Sine() float64 { return math.Sin(l.phase) }

// SineAt returns sin(phase + offset) without advancing.
func (l *LFO) SineAt(offset float64) float64 { return math.Sin(l.phase + offset) }

// Triangle returns a bipolar triangle in [-1, 1] without advancing.
func (l *LFO) Triangle() float64 { return TriangleAt(l.phase) }

// TriangleAt returns a bipolar triangle of the given phase in radians.
func TriangleAt(phase float64) float64 {
	p := math.Mod(phase, twoPi)
	if p < 0 {
		p += twoPi
	}

	t := p / twoPi
	if t < 0.5 {
		return 4*t - 1
	}

	return 3 - 4*t
}

// Reset returns the oscillator to phase zero.
func (l *LFO) Reset() { l.phase = 0 }

// DCBlocker is a one-pole high-pass that removes DC offsets from
// feedback paths. The pole at 0.995 keeps droop negligible above ~40 Hz.
type DCBlocker struct {
	x1, y1 float64
	pole   float64
}

// NewDCBlocker returns a blocker with the standard 0.995 pole.
func NewDCBlocker() DCBlocker {
	return DCBlocker{pole: 0.995}
}

// Process filters one sample.
func (d *DCBlocker) Process(x float64) float64 {
	y := x - d.x1 + d.pole*d.y1
	d.x1 = x
	// The tiny offset keeps the state out of denormal range when the
	// input falls silent.
	d.y1 = y + 1e-25

	return y
}

// Reset clears the filter state.
func (d *DCBlocker) Reset() {
	d.x1 = 0
	d.y1 = 0
}

// EnvelopeFollower tracks the rectified signal level with separate
// attack and release time constants.
type EnvelopeFollower struct {
	env     float64
	attack  float64
	release float64
}

// SetTimes configures attack and release in milliseconds.
func (e *EnvelopeFollower) SetTimes(attackMs, releaseMs, sampleRate float64) {
	e.attack = onePoleTime(attackMs, sampleRate)
	e.release = onePoleTime(releaseMs, sampleRate)
}

func onePoleTime(timeMs, sampleRate float64) float64 {
	if timeMs <= 0 || sampleRate <= 0 {
		return 0
	}

	return math.Exp(-1000.0 / (timeMs * sampleRate))
}

// Process feeds one sample and returns the envelope.
func (e *EnvelopeFollower) Process(x float64) float64 {
	level := math.Abs(x)

	coeff := e.release
	if level > e.env {
		coeff = e.attack
	}

	e.env = level + (e.env-level)*coeff
	if e.env < 1e-25 {
		e.env = 0
	}

	return e.env
}

// Value returns the envelope without feeding a sample.
func (e *EnvelopeFollower) Value() float64 { return e.env }

// Reset clears the envelope.
func (e *EnvelopeFollower) Reset() { e.env = 0 }

// OnePole is a single-pole low-pass filter usable for tone controls and
// control-signal smoothing.
type OnePole struct {
	state float64
	coeff float64
}

// SetCutoff sets the -3 dB point in Hz.
func (o *OnePole) SetCutoff(freqHz, sampleRate float64) {
	if freqHz <= 0 || sampleRate <= 0 {
		o.coeff = 0
		return
	}

	c := math.Exp(-twoPi * freqHz / sampleRate)
	if c < 0 {
		c = 0
	} else if c > 0.99999 {
		c = 0.99999
	}

	o.coeff = c
}

// Process filters one sample (low-pass output).
func (o *OnePole) Process(x float64) float64 {
	o.state = x + (o.state-x)*o.coeff
	o.state += 1e-25

	return o.state
}

// Highpass filters one sample and returns the complementary high-pass
// output.
func (o *OnePole) Highpass(x float64) float64 {
	return x - o.Process(x)
}

// Reset clears the filter state.
func (o *OnePole) Reset() { o.state = 0 }

// SoftClip is a symmetric tanh saturator.
func SoftClip(x float64) float64 {
	return math.Tanh(x)
}

// AsymSoftClip saturates with a bias offset, producing even harmonics.
// The output is re-centered so silence stays silent.
func AsymSoftClip(x, bias float64) float64 {
	return math.Tanh(x+bias) - math.Tanh(bias)
}

// HardClip limits x to [-limit, limit].
func HardClip(x, limit float64) float64 {
	if x > limit {
		return limit
	}

	if x < -limit {
		return -limit
	}

	return x
}

// DryWet mixes dry and wet linearly: mix 0 returns dry, 1 returns wet.
func DryWet(dry, wet, mix float64) float64 {
	return dry + (wet-dry)*mix
}
