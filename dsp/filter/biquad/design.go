package biquad

import "math"

const nyquistSafetyRatio = 0.49

// clampFreq keeps design frequencies inside a numerically safe band.
func clampFreq(freqHz, sampleRate float64) float64 {
	maxFreq := nyquistSafetyRatio * sampleRate
	if freqHz < 1 {
		return 1
	}
	if freqHz > maxFreq {
		return maxFreq
	}
	return freqHz
}

func clampQ(q float64) float64 {
	if q < 0.025 {
		return 0.025
	}
	if q > 40 {
		return 40
	}
	return q
}

// Lowpass designs a second-order lowpass at freqHz with quality q.
func Lowpass(freqHz, q, sampleRate float64) Coefficients {
	w0 := 2 * math.Pi * clampFreq(freqHz, sampleRate) / sampleRate
	sin, cos := math.Sincos(w0)
	alpha := sin / (2 * clampQ(q))

	a0 := 1 + alpha
	return Coefficients{
		B0: (1 - cos) / 2 / a0,
		B1: (1 - cos) / a0,
		B2: (1 - cos) / 2 / a0,
		A1: -2 * cos / a0,
		A2: (1 - alpha) / a0,
	}
}

// Highpass designs a second-order highpass at freqHz with quality q.
func Highpass(freqHz, q, sampleRate float64) Coefficients {
	w0 := 2 * math.Pi * clampFreq(freqHz, sampleRate) / sampleRate
	sin, cos := math.Sincos(w0)
	alpha := sin / (2 * clampQ(q))

	a0 := 1 + alpha
	return Coefficients{
		B0: (1 + cos) / 2 / a0,
		B1: -(1 + cos) / a0,
		B2: (1 + cos) / 2 / a0,
		A1: -2 * cos / a0,
		A2: (1 - alpha) / a0,
	}
}

// Bandpass designs a constant-peak-gain bandpass at freqHz with quality q.
func Bandpass(freqHz, q, sampleRate float64) Coefficients {
	w0 := 2 * math.Pi * clampFreq(freqHz, sampleRate) / sampleRate
	sin, cos := math.Sincos(w0)
	alpha := sin / (2 * clampQ(q))

	a0 := 1 + alpha
	return Coefficients{
		B0: alpha / a0,
		B1: 0,
		B2: -alpha / a0,
		A1: -2 * cos / a0,
		A2: (1 - alpha) / a0,
	}
}

// Notch designs a second-order notch at freqHz with quality q.
func Notch(freqHz, q, sampleRate float64) Coefficients {
	w0 := 2 * math.Pi * clampFreq(freqHz, sampleRate) / sampleRate
	sin, cos := math.Sincos(w0)
	alpha := sin / (2 * clampQ(q))

	a0 := 1 + alpha
	return Coefficients{
		B0: 1 / a0,
		B1: -2 * cos / a0,
		B2: 1 / a0,
		A1: -2 * cos / a0,
		A2: (1 - alpha) / a0,
	}
}

// Allpass designs a second-order allpass at freqHz with quality q.
func Allpass(freqHz, q, sampleRate float64) Coefficients {
	w0 := 2 * math.Pi * clampFreq(freqHz, sampleRate) / sampleRate
	sin, cos := math.Sincos(w0)
	alpha := sin / (2 * clampQ(q))

	a0 := 1 + alpha
	return Coefficients{
		B0: (1 - alpha) / a0,
		B1: -2 * cos / a0,
		B2: (1 + alpha) / a0,
		A1: -2 * cos / a0,
		A2: (1 - alpha) / a0,
	}
}

// Peak designs a peaking EQ at freqHz with quality q and gain in dB.
func Peak(freqHz, q, gainDB, sampleRate float64) Coefficients {
	w0 := 2 * math.Pi * clampFreq(freqHz, sampleRate) / sampleRate
	sin, cos := math.Sincos(w0)
	alpha := sin / (2 * clampQ(q))
	a := math.Pow(10, gainDB/40)

	a0 := 1 + alpha/a
	return Coefficients{
		B0: (1 + alpha*a) / a0,
		B1: -2 * cos / a0,
		B2: (1 - alpha*a) / a0,
		A1: -2 * cos / a0,
		A2: (1 - alpha/a) / a0,
	}
}

// LowShelf designs a low shelf at freqHz with slope s and gain in dB.
func LowShelf(freqHz, s, gainDB, sampleRate float64) Coefficients {
	return shelf(freqHz, s, gainDB, sampleRate, false)
}

// HighShelf designs a high shelf at freqHz with slope s and gain in dB.
func HighShelf(freqHz, s, gainDB, sampleRate float64) Coefficients {
	return shelf(freqHz, s, gainDB, sampleRate, true)
}

func shelf(freqHz, s, gainDB, sampleRate float64, high bool) Coefficients {
	if s <= 0 {
		s = 1
	}

	w0 := 2 * math.Pi * clampFreq(freqHz, sampleRate) / sampleRate
	sin, cos := math.Sincos(w0)
	a := math.Pow(10, gainDB/40)
	alpha := sin / 2 * math.Sqrt((a+1/a)*(1/s-1)+2)
	beta := 2 * math.Sqrt(a) * alpha

	g := 1.0
	if high {
		g = -1.0
	}

	a0 := (a + 1) + g*(a-1)*cos + beta
	return Coefficients{
		B0: a * ((a + 1) - g*(a-1)*cos + beta) / a0,
		B1: 2 * g * a * ((a - 1) - g*(a+1)*cos) / a0,
		B2: a * ((a + 1) - g*(a-1)*cos - beta) / a0,
		A1: -2 * g * ((a - 1) + g*(a+1)*cos) / a0,
		A2: ((a + 1) + g*(a-1)*cos - beta) / a0,
	}
}
