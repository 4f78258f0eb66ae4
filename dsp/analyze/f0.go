package analyze

import (
	"fmt"
	"math"

	"github.com/cwbudde/algo-vecmath"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
)

const f0MinWindowFactor = 3

// EstimateF0 estimates the fundamental frequency of signal in Hz using
// normalized autocorrelation over the lag band [fs/maxHz, fs/minHz].
// It returns the refined frequency and the peak correlation in [0,1];
// a correlation below ~0.3 means the signal is not usefully periodic.
func EstimateF0(signal []float64, sampleRate, minHz, maxHz float64) (float64, float64, error) {
	return EstimateF0Scratch(signal, nil, sampleRate, minHz, maxHz)
}

// EstimateF0Scratch is EstimateF0 with a caller-provided score scratch of
// at least fs/minHz+1 elements, for callers that cannot allocate. A nil
// or short scratch falls back to allocating.
func EstimateF0Scratch(signal, scratch []float64, sampleRate, minHz, maxHz float64) (float64, float64, error) {
	if !core.IsFinitePositive(sampleRate) {
		return 0, 0, fmt.Errorf("analyze: sample rate must be > 0 and finite: %f", sampleRate)
	}

	if minHz <= 0 || maxHz <= minHz {
		return 0, 0, fmt.Errorf("analyze: invalid F0 band [%f, %f] Hz", minHz, maxHz)
	}

	minLag := int(sampleRate / maxHz)
	maxLag := int(sampleRate / minHz)
	if minLag < 2 {
		minLag = 2
	}

	if len(signal) < maxLag*f0MinWindowFactor {
		return 0, 0, fmt.Errorf("analyze: signal too short for F0 band: %d samples, need %d",
			len(signal), maxLag*f0MinWindowFactor)
	}

	n := len(signal) - maxLag

	bestLag := minLag
	bestScore := -1.0

	scores := scratch
	if len(scores) < maxLag+1 {
		scores = make([]float64, maxLag+1)
	} else {
		scores = scores[:maxLag+1]
		core.Zero(scores)
	}

	for lag := minLag; lag <= maxLag; lag++ {
		a := signal[:n]
		b := signal[lag : lag+n]

		dot := vecmath.DotProduct(a, b)
		aa := vecmath.DotProduct(a, a)
		bb := vecmath.DotProduct(b, b)
		if aa <= 0 || bb <= 0 {
			continue
		}

		score := dot / math.Sqrt(aa*bb)
		scores[lag] = score

		if score > bestScore {
			bestScore = score
			bestLag = lag
		}
	}

	if bestScore <= 0 {
		return 0, 0, nil
	}

	// Octave-error guard: prefer the shortest lag whose score is nearly as
	// good as the best, since multiples of the true period correlate too.
	for lag := minLag; lag < bestLag; lag++ {
		if scores[lag] >= bestScore*0.99 {
			bestLag = lag
			bestScore = scores[lag]
			break
		}
	}

	refined := float64(bestLag)
	if bestLag > minLag && bestLag < maxLag {
		a, b, c := scores[bestLag-1], scores[bestLag], scores[bestLag+1]
		denom := a - 2*b + c
		if denom < -1e-18 {
			refined += 0.5 * (a - c) / denom
		}
	}

	return sampleRate / refined, bestScore, nil
}
