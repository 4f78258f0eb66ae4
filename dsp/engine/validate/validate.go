// Package validate audits the catalogue, factory, and engine contract
// consistency. It runs off the audio thread on transient instances and
// never touches a live chain.
package validate

import (
	"math"
	"math/rand"
	"time"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine/catalog"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/probe"
)

// Level selects how deep the audit goes. Each level includes everything
// below it.
type Level int

const (
	// Basic checks that every catalogue ID constructs.
	Basic Level = iota
	// Standard adds parameter shape checks after prepare.
	Standard
	// Comprehensive adds signal probes and mix semantics.
	Comprehensive
	// Paranoid adds parameter sweeps and prepare/reset cycling.
	Paranoid
)

func (l Level) String() string {
	switch l {
	case Basic:
		return "basic"
	case Standard:
		return "standard"
	case Comprehensive:
		return "comprehensive"
	case Paranoid:
		return "paranoid"
	}
	return "unknown"
}

// Severity ranks a violation.
type Severity int

const (
	// Warning marks shape or cosmetic issues.
	Warning Severity = iota
	// Critical marks missing engines or non-finite output.
	Critical
)

func (s Severity) String() string {
	if s == Critical {
		return "critical"
	}
	return "warning"
}

// Violation is one audit finding.
type Violation struct {
	Type        string
	Engine      catalog.ID
	Description string
	Severity    Severity
	Time        time.Time
}

// Factory constructs an engine for an ID, nil when out of range.
type Factory func(catalog.ID) engine.Engine

const (
	auditSampleRate = 48000.0
	auditBlockSize  = 512
	auditSineHz     = 1000.0
	auditAmplitude  = 0.5
	// warmupBlocks covers the longest engine latency (PSOLA, STFT,
	// partitioned convolution) before behavior is judged.
	auditWarmupBlocks = 20
	auditPeakCeiling  = 10.0
)

// Run audits every catalogue ID at the given level using create.
func Run(level Level, create Factory) *Report {
	r := &Report{
		Level:    level,
		Checksum: catalog.Checksum(),
		Started:  time.Now(),
	}

	if create(catalog.ID(-1)) != nil {
		r.add("existence", -1, "out-of-range ID -1 produced an engine", Critical)
	}
	if create(catalog.ID(catalog.Count)) != nil {
		r.add("existence", catalog.Count, "out-of-range ID produced an engine", Critical)
	}

	for id := catalog.ID(0); id < catalog.Count; id++ {
		r.Checked++
		auditEngine(r, level, create, id)
	}

	r.Finished = time.Now()
	return r
}

func auditEngine(r *Report, level Level, create Factory, id catalog.ID) {
	meta, ok := catalog.Lookup(id)
	if !ok {
		r.add("catalog", id, "no metadata row", Critical)
		return
	}

	e := create(id)
	if e == nil {
		r.add("existence", id, "factory returned nil", Critical)
		return
	}

	if level < Standard {
		return
	}

	if err := e.Prepare(auditSampleRate, auditBlockSize); err != nil {
		r.add("prepare", id, "prepare failed: "+err.Error(), Critical)
		return
	}

	if got := e.NumParameters(); got != meta.NumParams {
		r.addf("shape", id, Critical,
			"parameter count %d does not match catalogue %d", got, meta.NumParams)
	}
	if id != catalog.None {
		if meta.MixIndex < 0 || meta.MixIndex >= meta.NumParams {
			r.addf("shape", id, Critical, "mix index %d out of range", meta.MixIndex)
		}
	}
	if e.Name() != meta.Name {
		r.addf("shape", id, Warning,
			"engine name %q does not match catalogue %q", e.Name(), meta.Name)
	}
	for p := 0; p < e.NumParameters(); p++ {
		if e.ParameterName(p) == "" {
			r.addf("shape", id, Warning, "parameter %d has no name", p)
		}
	}

	if level < Comprehensive {
		return
	}

	probeSignals(r, e, id)
	if id != catalog.None {
		probeMix(r, e, id, meta.MixIndex)
	}

	if level < Paranoid {
		return
	}

	probeStability(r, e, id)
}

func fillSine(block [][]float64, startSample int) {
	probe.QuadratureSine(block, auditSampleRate, auditSineHz, auditAmplitude, startSample)
}

func fillNoise(block [][]float64, rng *rand.Rand) {
	for ch := range block {
		probe.Noise(block[ch], rng, auditAmplitude)
	}
}

func newBlock() [][]float64 {
	return [][]float64{
		make([]float64, auditBlockSize),
		make([]float64, auditBlockSize),
	}
}

func zeroBlock(block [][]float64) {
	for ch := range block {
		for i := range block[ch] {
			block[ch][i] = 0
		}
	}
}

func blockPeak(block [][]float64) float64 {
	peak := 0.0
	for ch := range block {
		for i := range block[ch] {
			if a := math.Abs(block[ch][i]); a > peak {
				peak = a
			}
		}
	}
	return peak
}

func blockFinite(block [][]float64) bool {
	for ch := range block {
		for i := range block[ch] {
			v := block[ch][i]
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

// probeSignals feeds zero, impulse, sine, and noise and requires finite
// bounded output for each.
func probeSignals(r *Report, e engine.Engine, id catalog.ID) {
	block := newBlock()
	rng := rand.New(rand.NewSource(0xA0D17))

	probes := []struct {
		name string
		fill func(iter int)
	}{
		{"zero", func(int) { zeroBlock(block) }},
		{"impulse", func(iter int) {
			zeroBlock(block)
			if iter == 0 {
				probe.Impulse(block[0], auditAmplitude)
				probe.Impulse(block[1], auditAmplitude)
			}
		}},
		{"sine", func(iter int) { fillSine(block, iter*auditBlockSize) }},
		{"noise", func(int) { fillNoise(block, rng) }},
	}

	for _, probe := range probes {
		e.Reset()
		for iter := 0; iter < auditWarmupBlocks; iter++ {
			probe.fill(iter)
			inPeak := blockPeak(block)
			e.Process(block)

			if !blockFinite(block) {
				r.addf("behavior", id, Critical, "non-finite output on %s probe", probe.name)
				return
			}
			ceiling := auditPeakCeiling
			if limit := inPeak * auditPeakCeiling; limit > 1 && limit < ceiling {
				ceiling = limit
			}
			if blockPeak(block) > ceiling {
				r.addf("behavior", id, Critical,
					"peak %.2f above ceiling on %s probe", blockPeak(block), probe.name)
				return
			}
		}
	}
}

// probeMix checks that mix 0 is dry and mix 1 changes the signal. All
// other parameters sit at 0.8 so engines whose defaults are transparent
// still have to act.
func probeMix(r *Report, e engine.Engine, id catalog.ID, mixIndex int) {
	if mixIndex < 0 || mixIndex >= e.NumParameters() {
		return
	}

	block := newBlock()
	ref := newBlock()
	params := map[int]float64{}
	for p := 0; p < e.NumParameters(); p++ {
		params[p] = 0.8
	}

	// Dry check: residual against the input must sit below -60 dB.
	params[mixIndex] = 0
	e.UpdateParameters(params)
	e.Reset()

	var residual, level float64
	for iter := 0; iter < auditWarmupBlocks; iter++ {
		fillSine(block, iter*auditBlockSize)
		fillSine(ref, iter*auditBlockSize)
		e.Process(block)

		if iter < auditWarmupBlocks/2 {
			continue
		}
		for ch := range block {
			for i := range block[ch] {
				d := block[ch][i] - ref[ch][i]
				residual += d * d
				level += ref[ch][i] * ref[ch][i]
			}
		}
	}
	if level > 0 && residual > level*1e-6 {
		db := 10 * math.Log10(residual/level)
		r.addf("mix", id, Critical, "mix 0 residual %.1f dB above -60 dB floor", db)
	}

	// Wet check: the processed signal has to differ.
	params[mixIndex] = 1
	e.UpdateParameters(params)
	e.Reset()

	var diff, peak float64
	for iter := 0; iter < auditWarmupBlocks; iter++ {
		fillSine(block, iter*auditBlockSize)
		fillSine(ref, iter*auditBlockSize)
		e.Process(block)

		if iter < auditWarmupBlocks/2 {
			continue
		}
		for ch := range block {
			for i := range block[ch] {
				if d := math.Abs(block[ch][i] - ref[ch][i]); d > diff {
					diff = d
				}
				if a := math.Abs(ref[ch][i]); a > peak {
					peak = a
				}
			}
		}
	}
	if peak > 0 && diff/peak < 0.001 {
		r.add("mix", id, "mix 1 output is indistinguishable from input", Warning)
	}
}

// probeStability sweeps each parameter through {0, 0.5, 1} and cycles
// prepare/reset, requiring finite bounded output throughout.
func probeStability(r *Report, e engine.Engine, id catalog.ID) {
	block := newBlock()
	rng := rand.New(rand.NewSource(0x57AB))
	sweep := []float64{0, 0.5, 1}

	for p := 0; p < e.NumParameters(); p++ {
		for _, v := range sweep {
			e.UpdateParameters(map[int]float64{p: v})
			e.Reset()

			for iter := 0; iter < 4; iter++ {
				fillNoise(block, rng)
				e.Process(block)
				if !blockFinite(block) {
					r.addf("stability", id, Critical,
						"non-finite output sweeping parameter %d to %.1f", p, v)
					return
				}
				if blockPeak(block) > auditPeakCeiling {
					r.addf("stability", id, Critical,
						"peak %.2f sweeping parameter %d to %.1f", blockPeak(block), p, v)
					return
				}
			}
		}
	}

	for cycle := 0; cycle < 5; cycle++ {
		if err := e.Prepare(auditSampleRate, auditBlockSize); err != nil {
			r.addf("stability", id, Critical, "prepare cycle %d failed: %s", cycle, err)
			return
		}
		e.Reset()
		fillNoise(block, rng)
		e.Process(block)
		if !blockFinite(block) {
			r.addf("stability", id, Critical,
				"non-finite output after prepare cycle %d", cycle)
			return
		}
	}
}
