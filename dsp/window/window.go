// Package window generates the analysis and grain windows used by the
// engine runtime. Only the shapes the engines actually consume are
// provided; coefficients are generated on demand or filled into
// caller-owned scratch to keep audio-path code allocation free.
package window

import (
	"math"

	"github.com/cwbudde/algo-vecmath"
)

// Type identifies a window function.
type Type int

const (
	TypeRectangular Type = iota
	TypeHann
	TypeHamming
	TypeBlackman
)

// Make returns freshly allocated symmetric window coefficients of length n.
func Make(t Type, n int) []float64 {
	if n <= 0 {
		return nil
	}

	out := make([]float64, n)
	Fill(t, out)

	return out
}

// Fill writes symmetric window coefficients into dst without allocating.
func Fill(t Type, dst []float64) {
	n := len(dst)
	if n == 0 {
		return
	}

	if n == 1 {
		dst[0] = 1
		return
	}

	inv := 1.0 / float64(n-1)

	switch t {
	case TypeHann:
		for i := range dst {
			dst[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)*inv)
		}
	case TypeHamming:
		for i := range dst {
			dst[i] = 0.54 - 0.46*math.Cos(2*math.Pi*float64(i)*inv)
		}
	case TypeBlackman:
		for i := range dst {
			phase := 2 * math.Pi * float64(i) * inv
			dst[i] = 0.42 - 0.5*math.Cos(phase) + 0.08*math.Cos(2*phase)
		}
	default:
		for i := range dst {
			dst[i] = 1
		}
	}
}

// Apply multiplies samples by coeffs element-wise in place.
// Lengths must match; extra samples are left untouched.
func Apply(samples, coeffs []float64) {
	n := len(samples)
	if len(coeffs) < n {
		n = len(coeffs)
	}

	vecmath.MulBlockInPlace(samples[:n], coeffs[:n])
}
