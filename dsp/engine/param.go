package engine

import (
	"math"
	"sync/atomic"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
)

// DefaultSmoothingCoeff is the per-sample one-pole coefficient used when a
// parameter spec does not choose its own. At 48 kHz it settles in a few
// milliseconds, fast enough for automation and slow enough to avoid zipper
// noise.
const DefaultSmoothingCoeff = 0.995

// ParamSpec declares one normalized parameter of an engine.
type ParamSpec struct {
	Name    string
	Default float64
	// Coeff overrides the smoothing coefficient; 0 selects
	// DefaultSmoothingCoeff.
	Coeff float64
}

// Param is a smoothed normalized parameter. The target is published with an
// atomic store from any thread; current is owned by the audio thread.
type Param struct {
	name    string
	def     float64
	coeff   float64
	target  atomic.Uint64
	current float64
}

func (p *Param) init(spec ParamSpec) {
	p.name = spec.Name
	p.def = core.Clamp01(spec.Default)
	p.coeff = spec.Coeff
	if p.coeff <= 0 || p.coeff >= 1 {
		p.coeff = DefaultSmoothingCoeff
	}

	p.target.Store(math.Float64bits(p.def))
	p.current = p.def
}

// SetTarget publishes a new normalized target. Non-finite values are
// ignored; out-of-range values are clamped.
func (p *Param) SetTarget(v float64) {
	if !core.IsFinite(v) {
		return
	}

	p.target.Store(math.Float64bits(core.Clamp01(v)))
}

// Target returns the most recently published target.
func (p *Param) Target() float64 {
	return math.Float64frombits(p.target.Load())
}

// Next advances the smoother by one sample and returns the new current
// value. Audio thread only.
func (p *Param) Next() float64 {
	t := p.Target()
	p.current = t + (p.current-t)*p.coeff
	p.current = core.FlushDenormals(p.current-t) + t

	return p.current
}

// Current returns the smoothed value without advancing.
func (p *Param) Current() float64 {
	return p.current
}

// Snap jumps the smoother to its target. Used by Prepare and Reset so the
// rest state matches the published parameters immediately.
func (p *Param) Snap() {
	p.current = p.Target()
}

// ParamSet bundles an engine's parameters and drives its introspection.
type ParamSet struct {
	params []Param
}

// NewParamSet builds a set from the given specs. Engines construct their
// set once; the backing storage never moves afterwards, which keeps the
// atomic fields valid.
func NewParamSet(specs ...ParamSpec) *ParamSet {
	if len(specs) > MaxParameters {
		specs = specs[:MaxParameters]
	}

	set := &ParamSet{params: make([]Param, len(specs))}
	for i, spec := range specs {
		set.params[i].init(spec)
	}

	return set
}

// Len returns the parameter count.
func (s *ParamSet) Len() int {
	return len(s.params)
}

// Name returns the display name of parameter index, or "" out of range.
func (s *ParamSet) Name(index int) string {
	if index < 0 || index >= len(s.params) {
		return ""
	}

	return s.params[index].name
}

// At returns the parameter at index, or nil out of range.
func (s *ParamSet) At(index int) *Param {
	if index < 0 || index >= len(s.params) {
		return nil
	}

	return &s.params[index]
}

// Update publishes sparse normalized targets. Unknown indices and
// non-finite values are ignored.
func (s *ParamSet) Update(values map[int]float64) {
	for index, v := range values {
		if index < 0 || index >= len(s.params) {
			continue
		}

		s.params[index].SetTarget(v)
	}
}

// Snap jumps every smoother to its target.
func (s *ParamSet) Snap() {
	for i := range s.params {
		s.params[i].Snap()
	}
}
