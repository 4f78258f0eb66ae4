// Package engine defines the uniform processing contract implemented by
// every effect in the catalogue, plus the smoothed-parameter plumbing all
// implementations share.
//
// The host interacts with effects only through [Engine]: construct via the
// factory, call Prepare once per transport change, then Process repeatedly
// on the audio thread. Parameter updates arrive from other threads through
// UpdateParameters; publication is lock free and the audio thread converges
// on new targets via per-parameter one-pole smoothing.
package engine

// MaxChannels is the widest block the contract supports.
const MaxChannels = 2

// MaxParameters bounds the per-engine parameter count.
const MaxParameters = 15

// Engine is the polymorphic capability set of one DSP unit.
//
// Process transforms the block in place and must not allocate, block, or
// panic; any finite input within [-10, 10] must produce finite output.
// Reset returns the unit to its post-Prepare rest state without
// reallocating. UpdateParameters accepts sparse normalized values in [0,1]
// and ignores unknown indices; it is safe to call concurrently with
// Process.
type Engine interface {
	Prepare(sampleRate float64, maxBlockSize int) error
	Process(block [][]float64)
	Reset()
	UpdateParameters(values map[int]float64)
	NumParameters() int
	ParameterName(index int) string
	Name() string
}
