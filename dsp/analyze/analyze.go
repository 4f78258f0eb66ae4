// Package analyze provides offline measurement helpers for the engine
// runtime: magnitude spectra, fundamental-frequency estimation, and level
// statistics. The validator and the engine test suites are its consumers;
// nothing here runs on the audio path.
package analyze

import (
	"fmt"
	"math"
	"sort"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/stat"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/window"
)

// Peak returns the maximum absolute sample value.
func Peak(buf []float64) float64 {
	if len(buf) == 0 {
		return 0
	}

	return vecmath.MaxAbs(buf)
}

// RMS returns the root-mean-square level of buf.
func RMS(buf []float64) float64 {
	if len(buf) == 0 {
		return 0
	}

	return math.Sqrt(vecmath.DotProduct(buf, buf) / float64(len(buf)))
}

// HasNonFinite reports whether buf contains NaN or Inf samples.
func HasNonFinite(buf []float64) bool {
	for _, v := range buf {
		if !core.IsFinite(v) {
			return true
		}
	}

	return false
}

// Median returns the median of values. The input is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

// Spectrum returns the single-sided magnitude spectrum of signal after Hann
// windowing, along with the width of one frequency bin in Hz. The FFT size is
// the next power of two >= len(signal).
func Spectrum(signal []float64, sampleRate float64) ([]float64, float64, error) {
	if len(signal) == 0 {
		return nil, 0, fmt.Errorf("analyze: empty signal")
	}

	if !core.IsFinitePositive(sampleRate) {
		return nil, 0, fmt.Errorf("analyze: sample rate must be > 0 and finite: %f", sampleRate)
	}

	fftSize := core.NextPowerOfTwo(len(signal))

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, 0, fmt.Errorf("analyze: fft plan: %w", err)
	}

	coeffs := window.Make(window.TypeHann, len(signal))

	inData := make([]complex128, fftSize)
	for i, v := range signal {
		inData[i] = complex(v*coeffs[i], 0)
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, inData); err != nil {
		return nil, 0, fmt.Errorf("analyze: forward fft: %w", err)
	}

	half := fftSize / 2
	re := make([]float64, half)
	im := make([]float64, half)
	for i := range half {
		re[i] = real(out[i])
		im[i] = imag(out[i])
	}

	mags := make([]float64, half)
	vecmath.Magnitude(mags, re, im)

	return mags, sampleRate / float64(fftSize), nil
}

// DominantFrequency returns the frequency in Hz of the strongest spectral
// bin between minHz and maxHz, refined by parabolic interpolation.
func DominantFrequency(signal []float64, sampleRate, minHz, maxHz float64) (float64, error) {
	mags, binHz, err := Spectrum(signal, sampleRate)
	if err != nil {
		return 0, err
	}

	lo := int(minHz / binHz)
	hi := int(maxHz / binHz)
	if lo < 1 {
		lo = 1
	}
	if hi >= len(mags) {
		hi = len(mags) - 1
	}
	if hi <= lo {
		return 0, fmt.Errorf("analyze: empty search band [%f, %f] Hz", minHz, maxHz)
	}

	best := lo
	for k := lo; k <= hi; k++ {
		if mags[k] > mags[best] {
			best = k
		}
	}

	freq := float64(best) * binHz
	if best > 0 && best < len(mags)-1 {
		a, b, c := mags[best-1], mags[best], mags[best+1]
		denom := a - 2*b + c
		if math.Abs(denom) > 1e-18 {
			freq += 0.5 * (a - c) / denom * binHz
		}
	}

	return freq, nil
}

// CountNotches counts local spectral minima between minHz and maxHz that sit
// at least depthDB below the surrounding spectrum. Neighbors are measured a
// few bins away so that a wide notch still registers once.
func CountNotches(mags []float64, binHz, minHz, maxHz, depthDB float64) int {
	if binHz <= 0 || len(mags) == 0 {
		return 0
	}

	lo := int(minHz / binHz)
	hi := int(maxHz / binHz)
	if lo < 4 {
		lo = 4
	}
	if hi > len(mags)-5 {
		hi = len(mags) - 5
	}

	span := int(100 / binHz)
	if span < 4 {
		span = 4
	}

	depth := core.DBToLinear(depthDB)
	count := 0
	lastNotch := -1

	for k := lo; k <= hi; k++ {
		if mags[k] > mags[k-1] || mags[k] >= mags[k+1] {
			continue
		}

		left := maxInRange(mags, k-span, k-2)
		right := maxInRange(mags, k+2, k+span)
		floor := math.Min(left, right)
		if floor <= 0 {
			continue
		}

		if mags[k]*depth <= floor {
			if lastNotch >= 0 && k-lastNotch < span {
				continue
			}

			count++
			lastNotch = k
		}
	}

	return count
}

func maxInRange(mags []float64, lo, hi int) float64 {
	if lo < 0 {
		lo = 0
	}
	if hi >= len(mags) {
		hi = len(mags) - 1
	}

	best := 0.0
	for k := lo; k <= hi; k++ {
		if mags[k] > best {
			best = mags[k]
		}
	}

	return best
}
