package engine

import "fmt"

// Bypass is the ID-0 engine: a trivial pass-through with no parameters.
// Process leaves the block untouched.
type Bypass struct {
	prepared bool
}

// NewBypass returns a bypass engine.
func NewBypass() *Bypass {
	return &Bypass{}
}

// Prepare validates the running conditions; nothing is allocated.
func (b *Bypass) Prepare(sampleRate float64, maxBlockSize int) error {
	if sampleRate <= 0 {
		return fmt.Errorf("bypass sample rate must be > 0: %f", sampleRate)
	}

	if maxBlockSize <= 0 {
		return fmt.Errorf("bypass max block size must be > 0: %d", maxBlockSize)
	}

	b.prepared = true

	return nil
}

// Process is a no-op; the block already contains the output.
func (b *Bypass) Process(_ [][]float64) {}

// Reset is a no-op.
func (b *Bypass) Reset() {}

// UpdateParameters ignores all updates; there are no parameters.
func (b *Bypass) UpdateParameters(_ map[int]float64) {}

// NumParameters returns 0.
func (b *Bypass) NumParameters() int { return 0 }

// ParameterName returns "" for every index.
func (b *Bypass) ParameterName(_ int) string { return "" }

// Name returns the catalogue display name.
func (b *Bypass) Name() string { return "None" }
