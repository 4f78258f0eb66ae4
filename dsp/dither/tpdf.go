// Package dither requantizes float samples to fixed-point PCM with
// triangular dither. The diagnostic CLI uses it whenever engine output
// leaves the float domain for a 16 bit probe file.
package dither

import (
	"fmt"
	"math"
	"math/rand"
)

// TPDF is a triangular-PDF dithering quantizer. The dither spans one
// LSB peak to peak, which decorrelates the quantization error from the
// signal without modulating the noise floor.
type TPDF struct {
	rng       *rand.Rand
	fullScale float64
}

// NewTPDF returns a quantizer for the given bit depth, seeded so a
// render is reproducible.
func NewTPDF(bitDepth int, seed int64) (*TPDF, error) {
	if bitDepth < 2 || bitDepth > 32 {
		return nil, fmt.Errorf("dither: bit depth must be in [2,32]: %d", bitDepth)
	}

	return &TPDF{
		rng:       rand.New(rand.NewSource(seed)),
		fullScale: float64(int64(1)<<(bitDepth-1)) - 1,
	}, nil
}

// Quantize maps v in [-1, 1] to a signed PCM code at the configured
// depth. Input outside [-1, 1] clips to full scale.
func (d *TPDF) Quantize(v float64) int {
	noise := (d.rng.Float64() - 0.5) + (d.rng.Float64() - 0.5)
	x := math.Round(v*d.fullScale + noise)

	if x > d.fullScale {
		x = d.fullScale
	}
	if x < -d.fullScale-1 {
		x = -d.fullScale - 1
	}
	return int(x)
}
