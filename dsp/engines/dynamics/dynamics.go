// Package dynamics implements the gain-control engines: compressors,
// transient shaper, noise gate, and the mastering limiter.
//
// All detectors are stereo linked on the louder channel and work in the
// log domain for smooth knee behavior.
package dynamics

import (
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/delay"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/internal/dsputil"
)

// linkedLevel returns the louder instantaneous magnitude across channels.
func linkedLevel(block [][]float64, channels, i int) float64 {
	level := math.Abs(block[0][i])
	if channels > 1 {
		if r := math.Abs(block[1][i]); r > level {
			level = r
		}
	}

	return level
}

// softKneeGainDB computes gain reduction in dB for a level at levelDB
// against a soft-knee compression curve.
func softKneeGainDB(levelDB, thresholdDB, ratio, kneeDB float64) float64 {
	over := levelDB - thresholdDB
	half := kneeDB * 0.5

	switch {
	case over <= -half:
		return 0
	case over >= half:
		return over * (1/ratio - 1)
	default:
		t := over + half
		return t * t / (2 * kneeDB) * (1/ratio - 1)
	}
}

// VintageOptoCompressor models an optical leveling amplifier. The light
// cell attacks in tens of milliseconds and releases in two stages, slow
// when it has been driven hard for a while. The emphasis control tilts
// the detector toward highs and the harmonics control adds gentle even
// order color on the makeup stage.
type VintageOptoCompressor struct {
	engine.Unit

	env      float64
	memory   float64
	emphasis dsputil.OnePole
}

// NewVintageOptoCompressor returns an unprepared opto compressor.
func NewVintageOptoCompressor() *VintageOptoCompressor {
	return &VintageOptoCompressor{
		Unit: engine.NewUnit("Vintage Opto Compressor",
			engine.ParamSpec{Name: "Gain", Default: 0.5},
			engine.ParamSpec{Name: "Peak Reduction", Default: 0.4},
			engine.ParamSpec{Name: "Emphasis", Default: 0.0},
			engine.ParamSpec{Name: "Speed", Default: 0.5},
			engine.ParamSpec{Name: "Harmonics", Default: 0.2},
			engine.ParamSpec{Name: "Output", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (c *VintageOptoCompressor) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := c.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	c.Reset()

	return nil
}

// Reset clears the cell state.
func (c *VintageOptoCompressor) Reset() {
	c.env = 0
	c.memory = 0
	c.emphasis.Reset()
	c.Params().Snap()
}

// Process runs the compressor in place.
func (c *VintageOptoCompressor) Process(block [][]float64) {
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
		inGain := core.DBToLinear(params.At(0).Next()*24 - 12)
		reduction := params.At(1).Next()
		emphasisAmt := params.At(2).Next()
		speed := params.At(3).Next()
		harmonics := params.At(4).Next()
		outGain := core.DBToLinear(params.At(5).Next()*24 - 12)
		mix := params.At(6).Next()

		level := linkedLevel(block, channels, i) * inGain

		// Emphasis shifts detector sensitivity toward the highs.
		c.emphasis.SetCutoff(2000, sampleRate)
		bright := c.emphasis.Highpass(level)
		detect := level + bright*emphasisAmt*2

		attackMs := 15.0 - speed*10
		attack := core.OnePoleCoeff(attackMs, sampleRate)

		// Two-stage opto release: the cell remembers sustained
		// reduction and lets go slower the longer it was held.
		fastMs := 60.0 + (1-speed)*140
		slowMs := 500.0 + (1-speed)*2500
		releaseMs := fastMs + (slowMs-fastMs)*c.memory
		release := core.OnePoleCoeff(releaseMs, sampleRate)

		coeff := release
		if detect > c.env {
			coeff = attack
		}
		c.env = detect + (c.env-detect)*coeff
		c.env = core.FlushDenormals(c.env)

		levelDB := core.LinearToDB(c.env)
		thresholdDB := -8 - reduction*32
		grDB := softKneeGainDB(levelDB, thresholdDB, 3+reduction*5, 12)

		memTarget := core.Clamp01(-grDB / 12)
		memCoeff := core.OnePoleCoeff(1500, sampleRate)
		c.memory = memTarget + (c.memory-memTarget)*memCoeff

		gain := core.DBToLinear(grDB)

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]
			wet := dry * inGain * gain

			if harmonics > 0 {
				wet = dsputil.DryWet(wet, dsputil.AsymSoftClip(wet, 0.15), harmonics*0.5)
			}

			wet *= outGain
			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}

// ClassicCompressor is a clean VCA-style soft-knee compressor with
// conventional threshold, ratio, and time controls.
type ClassicCompressor struct {
	engine.Unit

	env float64
}

// NewClassicCompressor returns an unprepared compressor.
func NewClassicCompressor() *ClassicCompressor {
	return &ClassicCompressor{
		Unit: engine.NewUnit("Classic Compressor",
			engine.ParamSpec{Name: "Threshold", Default: 0.5},
			engine.ParamSpec{Name: "Ratio", Default: 0.3},
			engine.ParamSpec{Name: "Attack", Default: 0.3},
			engine.ParamSpec{Name: "Release", Default: 0.4},
			engine.ParamSpec{Name: "Makeup", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (c *ClassicCompressor) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := c.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	c.Reset()

	return nil
}

// Reset clears the detector.
func (c *ClassicCompressor) Reset() {
	c.env = 0
	c.Params().Snap()
}

// Process runs the compressor in place.
func (c *ClassicCompressor) Process(block [][]float64) {
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
		thresholdDB := -60 + params.At(0).Next()*60
		ratio := 1 + params.At(1).Next()*19
		attackMs := 0.1 + params.At(2).Next()*99.9
		releaseMs := 10 + params.At(3).Next()*990
		makeup := core.DBToLinear(params.At(4).Next() * 24)
		mix := params.At(5).Next()

		attack := core.OnePoleCoeff(attackMs, sampleRate)
		release := core.OnePoleCoeff(releaseMs, sampleRate)

		level := linkedLevel(block, channels, i)

		coeff := release
		if level > c.env {
			coeff = attack
		}
		c.env = level + (c.env-level)*coeff
		c.env = core.FlushDenormals(c.env)

		grDB := softKneeGainDB(core.LinearToDB(c.env), thresholdDB, ratio, 6)
		gain := core.DBToLinear(grDB) * makeup

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]
			block[ch][i] = dsputil.DryWet(dry, dry*gain, mix)
		}
	}
}

// TransientShaper separates attack from sustain by comparing a fast and
// a slow envelope and applies independent gain to each portion.
type TransientShaper struct {
	engine.Unit

	fast dsputil.EnvelopeFollower
	slow dsputil.EnvelopeFollower
}

// NewTransientShaper returns an unprepared transient shaper.
func NewTransientShaper() *TransientShaper {
	return &TransientShaper{
		Unit: engine.NewUnit("Transient Shaper",
			engine.ParamSpec{Name: "Attack", Default: 0.5},
			engine.ParamSpec{Name: "Sustain", Default: 0.5},
			engine.ParamSpec{Name: "Output", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (t *TransientShaper) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := t.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	t.fast.SetTimes(0.5, 50, sampleRate)
	t.slow.SetTimes(25, 150, sampleRate)
	t.Reset()

	return nil
}

// Reset clears both envelopes.
func (t *TransientShaper) Reset() {
	t.fast.Reset()
	t.slow.Reset()
	t.Params().Snap()
}

// Process runs the shaper in place.
func (t *TransientShaper) Process(block [][]float64) {
	if len(block) == 0 || !t.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := t.Params()

	for i := range block[0] {
		attackAmt := params.At(0).Next()*2 - 1
		sustainAmt := params.At(1).Next()*2 - 1
		outGain := core.DBToLinear(params.At(2).Next()*24 - 12)
		mix := params.At(3).Next()

		level := linkedLevel(block, channels, i)
		fast := t.fast.Process(level)
		slow := t.slow.Process(level)

		// Positive difference marks the attack portion.
		transient := core.Clamp01((fast - slow) * 4)
		sustain := 1 - transient

		gainDB := attackAmt*12*transient + sustainAmt*12*sustain
		gain := core.DBToLinear(gainDB) * outGain

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]
			block[ch][i] = dsputil.DryWet(dry, dry*gain, mix)
		}
	}
}

// gateState tracks where the noise gate is in its open/hold/close cycle.
type gateState int

const (
	gateClosed gateState = iota
	gateOpen
	gateHolding
)

// NoiseGate is a downward expander with hysteresis and a hold stage.
// The close threshold sits 4 dB under the open threshold so levels
// hovering near the threshold do not chatter.
type NoiseGate struct {
	engine.Unit

	env      float64
	gain     float64
	state    gateState
	holdLeft int
}

// NewNoiseGate returns an unprepared gate.
func NewNoiseGate() *NoiseGate {
	return &NoiseGate{
		Unit: engine.NewUnit("Noise Gate",
			engine.ParamSpec{Name: "Threshold", Default: 0.3},
			engine.ParamSpec{Name: "Range", Default: 0.8},
			engine.ParamSpec{Name: "Attack", Default: 0.2},
			engine.ParamSpec{Name: "Hold", Default: 0.3},
			engine.ParamSpec{Name: "Release", Default: 0.4},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare declares the running conditions.
func (g *NoiseGate) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := g.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	g.Reset()

	return nil
}

// Reset closes the gate.
func (g *NoiseGate) Reset() {
	g.env = 0
	g.gain = 0
	g.state = gateClosed
	g.holdLeft = 0
	g.Params().Snap()
}

// Process runs the gate in place.
func (g *NoiseGate) Process(block [][]float64) {
	if len(block) == 0 || !g.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := g.Params()
	sampleRate := g.SampleRate()
	envCoeff := core.OnePoleCoeff(2, sampleRate)

	for i := range block[0] {
		openDB := -72 + params.At(0).Next()*66
		rangeDB := params.At(1).Next() * 80
		attackMs := 0.05 + params.At(2).Next()*20
		holdMs := params.At(3).Next() * 500
		releaseMs := 5 + params.At(4).Next()*995
		mix := params.At(5).Next()

		closeDB := openDB - 4

		level := linkedLevel(block, channels, i)
		g.env = level + (g.env-level)*envCoeff
		g.env = core.FlushDenormals(g.env)
		levelDB := core.LinearToDB(g.env)

		switch g.state {
		case gateClosed:
			if levelDB > openDB {
				g.state = gateOpen
			}
		case gateOpen:
			if levelDB < closeDB {
				g.state = gateHolding
				g.holdLeft = int(holdMs * 0.001 * sampleRate)
			}
		case gateHolding:
			if levelDB > openDB {
				g.state = gateOpen
			} else if g.holdLeft--; g.holdLeft <= 0 {
				g.state = gateClosed
			}
		}

		target := core.DBToLinear(-rangeDB)
		coeff := core.OnePoleCoeff(releaseMs, sampleRate)
		if g.state != gateClosed {
			target = 1
			coeff = core.OnePoleCoeff(attackMs, sampleRate)
		}

		g.gain = target + (g.gain-target)*coeff

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]
			block[ch][i] = dsputil.DryWet(dry, dry*g.gain, mix)
		}
	}
}

const limiterLookaheadSecs = 0.005

// MasteringLimiter is a lookahead brickwall limiter. The audio path is
// delayed by the lookahead while the gain computer reacts to the
// undelayed signal, so peaks are caught before they pass; a final hard
// ceiling guards against inter-stage overshoot.
type MasteringLimiter struct {
	engine.Unit

	lines     [2]*delay.Line
	gain      float64
	lookahead int
}

// NewMasteringLimiter returns an unprepared limiter.
func NewMasteringLimiter() *MasteringLimiter {
	return &MasteringLimiter{
		Unit: engine.NewUnit("Mastering Limiter",
			engine.ParamSpec{Name: "Threshold", Default: 0.8},
			engine.ParamSpec{Name: "Ceiling", Default: 0.95},
			engine.ParamSpec{Name: "Release", Default: 0.3},
			engine.ParamSpec{Name: "Lookahead", Default: 0.5},
			engine.ParamSpec{Name: "Mix", Default: 1.0},
		),
	}
}

// Prepare sizes the lookahead delay for the transport.
func (l *MasteringLimiter) Prepare(sampleRate float64, maxBlockSize int) error {
	if err := l.SetTransport(sampleRate, maxBlockSize); err != nil {
		return err
	}

	for ch := range l.lines {
		line, err := delay.NewForDuration(limiterLookaheadSecs, sampleRate)
		if err != nil {
			return err
		}
		l.lines[ch] = line
	}

	l.Reset()

	return nil
}

// Reset clears the delay and gain state.
func (l *MasteringLimiter) Reset() {
	for ch := range l.lines {
		if l.lines[ch] != nil {
			l.lines[ch].Reset()
		}
	}

	l.gain = 1
	l.Params().Snap()
}

// Process runs the limiter in place.
func (l *MasteringLimiter) Process(block [][]float64) {
	if len(block) == 0 || !l.Prepared() {
		return
	}

	channels := len(block)
	if channels > engine.MaxChannels {
		channels = engine.MaxChannels
	}

	params := l.Params()
	sampleRate := l.SampleRate()

	for i := range block[0] {
		thresholdDB := -24 + params.At(0).Next()*24
		ceilingDB := -12 + params.At(1).Next()*12
		releaseMs := 20 + params.At(2).Next()*980
		lookNorm := params.At(3).Next()
		mix := params.At(4).Next()

		threshold := core.DBToLinear(thresholdDB)
		ceiling := core.DBToLinear(ceilingDB)
		lookSamples := int(lookNorm * limiterLookaheadSecs * sampleRate)

		level := linkedLevel(block, channels, i)

		target := 1.0
		if level > threshold {
			target = threshold / level
		}

		if target < l.gain {
			// Reach the target just as the peak leaves the delay.
			attack := 0.0
			if lookSamples > 1 {
				attack = math.Exp(-4.0 / float64(lookSamples))
			}
			l.gain = target + (l.gain-target)*attack
		} else {
			release := core.OnePoleCoeff(releaseMs, sampleRate)
			l.gain = target + (l.gain-target)*release
		}

		for ch := 0; ch < channels; ch++ {
			dry := block[ch][i]
			l.lines[ch].Write(dry)

			wet := l.lines[ch].Read(lookSamples) * l.gain
			wet = dsputil.HardClip(wet, ceiling)

			block[ch][i] = dsputil.DryWet(dry, wet, mix)
		}
	}
}
