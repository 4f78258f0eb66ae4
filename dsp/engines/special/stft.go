// Package special implements the spectral and generative engines:
// freeze, spectral gate, phase vocoder, granular cloud, chaos
// modulation, and the feedback delay network.
package special

import (
	algofft "github.com/MeKo-Christian/algo-fft"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/window"
)

const (
	stftFrameSize = 2048
	stftHopSize   = stftFrameSize / 4
)

// stftStream is a sample-in, sample-out STFT pipeline. Samples collect
// into an analysis frame; every hop the frame is windowed, transformed,
// handed to the owner for spectral work, inverted, and overlap-added.
// Output lags the input by one frame.
type stftStream struct {
	plan      *algofft.Plan[complex128]
	win       []float64
	transform func(spectrum []complex128)

	frame    []float64    // sliding time-domain frame, newest at the end
	spectrum []complex128 // scratch shared by forward and inverse
	outAcc   []float64    // overlap-add accumulator
	outBuf   []float64    // drained hop, consumed sample by sample

	fill int // samples collected toward the next hop
	pos  int // read position in outBuf
}

func newSTFTStream(transform func(spectrum []complex128)) (*stftStream, error) {
	plan, err := algofft.NewPlan64(stftFrameSize)
	if err != nil {
		return nil, err
	}

	s := &stftStream{
		plan:      plan,
		win:       window.Make(window.TypeHann, stftFrameSize),
		transform: transform,
		frame:     make([]float64, stftFrameSize),
		spectrum:  make([]complex128, stftFrameSize),
		outAcc:    make([]float64, stftFrameSize),
		outBuf:    make([]float64, stftHopSize),
	}

	return s, nil
}

func (s *stftStream) reset() {
	for i := range s.frame {
		s.frame[i] = 0
	}
	for i := range s.spectrum {
		s.spectrum[i] = 0
	}
	for i := range s.outAcc {
		s.outAcc[i] = 0
	}
	for i := range s.outBuf {
		s.outBuf[i] = 0
	}
	s.fill = 0
	s.pos = 0
}

// process pushes one sample and pops one delayed sample. The transform
// installed at construction runs once per hop and may rewrite the
// spectrum in place.
func (s *stftStream) process(x float64) float64 {
	idx := stftFrameSize - stftHopSize + s.fill
	s.frame[idx] = x
	out := s.outBuf[s.pos]
	s.fill++
	s.pos++

	if s.fill == stftHopSize {
		s.hop()
		s.fill = 0
		s.pos = 0
	}

	return out
}

func (s *stftStream) hop() {
	for i := 0; i < stftFrameSize; i++ {
		s.spectrum[i] = complex(s.frame[i]*s.win[i], 0)
	}
	if err := s.plan.Forward(s.spectrum, s.spectrum); err != nil {
		return
	}

	s.transform(s.spectrum)

	if err := s.plan.Inverse(s.spectrum, s.spectrum); err != nil {
		return
	}

	// Hann at 75% overlap sums to 1.5 per hop.
	const olaNorm = 1.0 / 1.5
	for i := 0; i < stftFrameSize; i++ {
		s.outAcc[i] += real(s.spectrum[i]) * s.win[i] * olaNorm
	}

	copy(s.outBuf, s.outAcc[:stftHopSize])
	copy(s.outAcc, s.outAcc[stftHopSize:])
	for i := stftFrameSize - stftHopSize; i < stftFrameSize; i++ {
		s.outAcc[i] = 0
	}

	copy(s.frame, s.frame[stftHopSize:])
}
