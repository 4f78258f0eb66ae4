package engine

import "fmt"

// Unit carries the plumbing every concrete engine shares: the parameter
// set, display name, and transport state. Engines embed Unit and add
// their DSP state; Prepare implementations call SetTransport before
// sizing buffers.
type Unit struct {
	params     *ParamSet
	name       string
	sampleRate float64
	maxBlock   int
}

// NewUnit builds the shared state for a named engine with the given
// parameter specs.
func NewUnit(name string, specs ...ParamSpec) Unit {
	return Unit{
		params: NewParamSet(specs...),
		name:   name,
	}
}

// SetTransport validates and stores the running conditions. Smoothers are
// snapped so the rest state reflects the published targets.
func (u *Unit) SetTransport(sampleRate float64, maxBlockSize int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("%s: sample rate must be > 0: %f", u.name, sampleRate)
	}

	if maxBlockSize <= 0 {
		return fmt.Errorf("%s: max block size must be > 0: %d", u.name, maxBlockSize)
	}

	u.sampleRate = sampleRate
	u.maxBlock = maxBlockSize
	u.params.Snap()

	return nil
}

// SampleRate returns the prepared sample rate, or 0 before Prepare.
func (u *Unit) SampleRate() float64 { return u.sampleRate }

// MaxBlock returns the prepared maximum block size, or 0 before Prepare.
func (u *Unit) MaxBlock() int { return u.maxBlock }

// Prepared reports whether SetTransport has been called.
func (u *Unit) Prepared() bool { return u.sampleRate > 0 }

// Params exposes the parameter set to the owning engine.
func (u *Unit) Params() *ParamSet { return u.params }

// UpdateParameters publishes sparse normalized targets.
func (u *Unit) UpdateParameters(values map[int]float64) {
	u.params.Update(values)
}

// NumParameters returns the parameter count.
func (u *Unit) NumParameters() int { return u.params.Len() }

// ParameterName returns the display name for index, or "".
func (u *Unit) ParameterName(index int) string { return u.params.Name(index) }

// Name returns the engine display name.
func (u *Unit) Name() string { return u.name }
