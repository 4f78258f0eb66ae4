// Package delay provides the circular delay line shared by the echo,
// modulation, and reverb engines.
package delay

import (
	"fmt"
	"math"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/interp"
)

// Line is a circular delay line with integer and fractional reads.
type Line struct {
	buffer   []float64
	writePos int
}

// New returns a delay line of fixed size in samples.
func New(size int) (*Line, error) {
	if size <= 0 {
		return nil, fmt.Errorf("delay size must be > 0: %d", size)
	}
	return &Line{buffer: make([]float64, size)}, nil
}

// NewForDuration returns a delay line sized for the given duration.
func NewForDuration(seconds, sampleRate float64) (*Line, error) {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return nil, fmt.Errorf("delay duration must be > 0 and finite: %f", seconds)
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return nil, fmt.Errorf("delay sample rate must be > 0 and finite: %f", sampleRate)
	}
	// +4 keeps the Hermite neighborhood valid at the maximum delay.
	return New(int(math.Ceil(seconds*sampleRate)) + 4)
}

// Len returns internal buffer size.
func (d *Line) Len() int {
	return len(d.buffer)
}

// Write writes one sample.
func (d *Line) Write(sample float64) {
	d.buffer[d.writePos] = sample
	d.writePos++
	if d.writePos >= len(d.buffer) {
		d.writePos = 0
	}
}

// Read reads an integer delay in samples. Delay 0 is the most recently
// written sample.
func (d *Line) Read(delay int) float64 {
	size := len(d.buffer)
	if size == 0 {
		return 0
	}
	if delay < 0 {
		delay = 0
	} else if delay >= size {
		delay = size - 1
	}
	readPos := d.writePos - 1 - delay
	if readPos < 0 {
		readPos += size
	}
	return d.buffer[readPos]
}

// ReadLinear reads a fractional delay with linear interpolation.
func (d *Line) ReadLinear(delay float64) float64 {
	if len(d.buffer) == 0 {
		return 0
	}
	if delay < 0 {
		delay = 0
	}
	maxDelay := float64(len(d.buffer) - 2)
	if delay > maxDelay {
		delay = maxDelay
	}

	p := int(delay)
	t := delay - float64(p)
	return interp.Linear(t, d.Read(p), d.Read(p+1))
}

// ReadFractional reads a fractional delay with cubic Hermite interpolation.
func (d *Line) ReadFractional(delay float64) float64 {
	size := len(d.buffer)
	if size == 0 {
		return 0
	}
	if delay < 1 {
		delay = 1
	}
	maxDelay := float64(size - 3)
	if delay > maxDelay {
		delay = maxDelay
	}

	p := int(math.Floor(delay))
	t := delay - float64(p)

	xm1 := d.Read(p - 1)
	x0 := d.Read(p)
	x1 := d.Read(p + 1)
	x2 := d.Read(p + 2)
	return interp.Hermite4(t, xm1, x0, x1, x2)
}

// Reset clears line state.
func (d *Line) Reset() {
	for i := range d.buffer {
		d.buffer[i] = 0
	}
	d.writePos = 0
}
