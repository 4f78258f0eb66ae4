// Package probe generates the deterministic test signals used by the
// engine audit and the diagnostic CLI: sines, impulses, seeded noise,
// and exponential sweeps. Everything here is reproducible from its
// arguments; nothing reads global state.
package probe

import (
	"fmt"
	"math"
	"math/rand"
)

// Sine writes amplitude*sin(2*pi*freq*t + phase) into dst, where t
// counts from startSample at the given rate. Successive calls with
// advancing startSample produce one continuous tone.
func Sine(dst []float64, sampleRate, freq, amplitude, phase float64, startSample int) {
	w := 2 * math.Pi * freq / sampleRate
	for i := range dst {
		dst[i] = amplitude * math.Sin(w*float64(startSample+i)+phase)
	}
}

// QuadratureSine fills a stereo block with the same tone, the right
// channel a quarter cycle ahead. The offset puts real energy on the
// side channel, so mid/side engines cannot pass the probe by ignoring
// their input.
func QuadratureSine(block [][]float64, sampleRate, freq, amplitude float64, startSample int) {
	if len(block) == 0 {
		return
	}
	Sine(block[0], sampleRate, freq, amplitude, 0, startSample)
	if len(block) > 1 {
		Sine(block[1], sampleRate, freq, amplitude, math.Pi/2, startSample)
	}
}

// Impulse zeroes dst and sets the first sample to amplitude.
func Impulse(dst []float64, amplitude float64) {
	for i := range dst {
		dst[i] = 0
	}
	if len(dst) > 0 {
		dst[0] = amplitude
	}
}

// Noise fills dst with uniform noise in [-amplitude, amplitude] drawn
// from rng. Callers own the seed, so the same rng gives the same probe.
func Noise(dst []float64, rng *rand.Rand, amplitude float64) {
	for i := range dst {
		dst[i] = (rng.Float64()*2 - 1) * amplitude
	}
}

// ExpSweep streams an exponential sine sweep block by block with
// continuous phase.
type ExpSweep struct {
	sampleRate float64
	startHz    float64
	ratio      float64
	amplitude  float64
	total      int

	pos   int
	phase float64
}

// NewExpSweep builds a sweep from startHz to endHz lasting total
// samples at sampleRate.
func NewExpSweep(sampleRate, startHz, endHz, amplitude float64, total int) (*ExpSweep, error) {
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("probe: sample rate must be > 0 and finite: %f", sampleRate)
	}
	if startHz <= 0 || endHz <= 0 {
		return nil, fmt.Errorf("probe: sweep endpoints must be > 0: %f..%f", startHz, endHz)
	}
	if endHz >= sampleRate/2 {
		return nil, fmt.Errorf("probe: sweep end %f above Nyquist for rate %f", endHz, sampleRate)
	}
	if total <= 0 {
		return nil, fmt.Errorf("probe: sweep length must be > 0 samples: %d", total)
	}

	return &ExpSweep{
		sampleRate: sampleRate,
		startHz:    startHz,
		ratio:      endHz / startHz,
		amplitude:  amplitude,
		total:      total,
	}, nil
}

// Fill writes the next stretch of the sweep into dst and reports how
// many samples it produced. Once the sweep is exhausted it returns 0
// and leaves dst untouched.
func (s *ExpSweep) Fill(dst []float64) int {
	n := 0
	for ; n < len(dst) && s.pos < s.total; n++ {
		t := float64(s.pos) / float64(s.total)
		freq := s.startHz * math.Pow(s.ratio, t)
		s.phase += 2 * math.Pi * freq / s.sampleRate
		dst[n] = s.amplitude * math.Sin(s.phase)
		s.pos++
	}
	return n
}

// Remaining reports how many samples the sweep has left.
func (s *ExpSweep) Remaining() int {
	return s.total - s.pos
}
