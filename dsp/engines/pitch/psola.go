// Package pitch implements the pitch-manipulation engines: the
// pitch-synchronous overlap-add shifter, the detune doubler, and the
// scale-aware harmonizer.
package pitch

import (
	"math"
	"sort"

	"github.com/cwbudde/algo-vecmath"
	"gonum.org/v1/gonum/stat"

	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/analyze"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/core"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/window"
)

// Pitch tracking band for the epoch detector.
const (
	psolaMinF0 = 60.0
	psolaMaxF0 = 800.0
)

const (
	// History retained beyond the oldest live epoch so grain extraction
	// and the alignment search always have data.
	psolaHistoryMargin = 8192

	// WSOLA: search reach as a fraction of the reference period, core as
	// the central fraction of the grain, and the per-sample shift
	// penalty that stops phase walking.
	psolaSearchFraction = 0.1
	psolaCoreFraction   = 0.6
	psolaShiftPenalty   = 0.002

	psolaMinGrain   = 32
	psolaMaxEpochs  = 512
	psolaSpacingMax = 16

	// Window-sum divisor floor at drain time. Full grain coverage sits
	// near or above 1; sparse coverage at large downshifts keeps its
	// natural skirts instead of being boosted back up.
	psolaNormFloor = 0.25
)

// epochMark is one detected glottal-pulse (or pseudo-period) position.
type epochMark struct {
	n      int64   // absolute sample index of the mark
	t0     float64 // local period estimate in samples
	rms    float64 // rms over one period around the mark
	voiced bool
}

// psolaStream is a single-channel pitch-synchronous overlap-add shifter.
//
// All positions are absolute sample indices from stream start, so grain
// scheduling survives block boundaries. Input history and the synthesis
// accumulation buffer are power-of-two rings. The stream renders with a
// fixed latency of a few maximum periods, which gives the epoch detector
// enough lead to supply the next-epoch midpoint of every grain.
type psolaStream struct {
	sampleRate float64

	hist     []float64
	histMask int64
	writeAbs int64

	out     []float64
	norm    []float64
	outMask int64

	epochs     []epochMark
	epCount    int
	lastEpochN int64
	period     float64

	refT0    float64
	spacings []float64
	dirty    bool

	running bool
	synTime float64
	kInt    int
	acc     float64

	prevWin    []float64
	prevLen    int
	prevEnergy float64
	rmsEnv     float64

	analysis  []float64
	f0Scratch []float64
	win       []float64
	seg       []float64

	latency   int
	maxPeriod int
	minPeriod int
	maxGrain  int

	stepTotal int
	step2     int
}

func newPsolaStream(sampleRate float64, maxBlock int) *psolaStream {
	s := &psolaStream{sampleRate: sampleRate}

	s.maxPeriod = int(sampleRate / psolaMinF0)
	s.minPeriod = int(sampleRate / psolaMaxF0)
	if s.minPeriod < 16 {
		s.minPeriod = 16
	}

	s.maxGrain = 3*s.maxPeriod | 1
	s.latency = 3 * s.maxPeriod

	histSize := core.NextPowerOfTwo(psolaHistoryMargin + maxBlock + 8*s.maxPeriod)
	outSize := core.NextPowerOfTwo(s.latency + maxBlock + 6*s.maxPeriod)

	s.hist = make([]float64, histSize)
	s.histMask = int64(histSize - 1)
	s.out = make([]float64, outSize)
	s.norm = make([]float64, outSize)
	s.outMask = int64(outSize - 1)

	s.epochs = make([]epochMark, 0, psolaMaxEpochs)
	s.spacings = make([]float64, psolaSpacingMax)

	searchMax := int(psolaSearchFraction*float64(s.maxPeriod)) + 4
	s.prevWin = make([]float64, s.maxGrain)
	s.win = make([]float64, s.maxGrain)
	s.seg = make([]float64, s.maxGrain+2*searchMax)

	analysisLen := 4 * s.maxPeriod
	s.analysis = make([]float64, analysisLen)
	s.f0Scratch = make([]float64, s.maxPeriod+1)

	s.reset()

	return s
}

func (s *psolaStream) reset() {
	core.Zero(s.hist)
	core.Zero(s.out)
	core.Zero(s.norm)

	s.writeAbs = 0
	s.epochs = s.epochs[:0]
	s.epCount = 0
	s.lastEpochN = 0
	s.period = s.sampleRate / 200 // neutral starting period, 5 ms
	s.refT0 = s.period
	s.dirty = false
	s.running = false
	s.synTime = 0
	s.kInt = 0
	s.acc = 0
	s.prevLen = 0
	s.prevEnergy = 0
	s.rmsEnv = 0
	s.stepTotal = 0
	s.step2 = 0
}

// Latency returns the fixed synthesis delay in samples.
func (s *psolaStream) Latency() int { return s.latency }

// step2Fraction reports the long-run share of two-epoch advances in the
// grain schedule.
func (s *psolaStream) step2Fraction() float64 {
	if s.stepTotal == 0 {
		return 0
	}

	return float64(s.step2) / float64(s.stepTotal)
}

func (s *psolaStream) histAt(abs int64) float64 {
	if abs < 0 || abs >= s.writeAbs || abs < s.writeAbs-int64(len(s.hist)) {
		return 0
	}

	return s.hist[abs&s.histMask]
}

// process shifts input by ratio alpha into output (same length). The
// output lags the input by Latency samples; until history and at least
// four epochs exist the output is silence.
func (s *psolaStream) process(input, output []float64, alpha, winScale float64) {
	n := len(input)
	if n == 0 {
		return
	}

	for _, x := range input {
		s.hist[s.writeAbs&s.histMask] = x
		s.writeAbs++
	}

	s.detectEpochs()
	s.prune()

	if !core.IsFinitePositive(alpha) {
		core.Zero(output[:n])
		s.drainOutput(output[:n], false)
		return
	}

	if !s.running {
		s.tryStart()
	}

	if s.running {
		s.render(alpha, winScale)
	}

	s.drainOutput(output[:n], s.running)
}

// drainOutput copies the consumable synthesis range into output and
// clears it behind the read point so the ring can wrap cleanly.
func (s *psolaStream) drainOutput(output []float64, live bool) {
	n := int64(len(output))
	start := s.writeAbs - n - int64(s.latency)

	for j := int64(0); j < n; j++ {
		abs := start + j
		if abs < 0 || !live {
			output[j] = 0
			continue
		}

		idx := abs & s.outMask
		weight := s.norm[idx]
		if weight < psolaNormFloor {
			weight = psolaNormFloor
		}
		output[j] = s.out[idx] / weight
		s.out[idx] = 0
		s.norm[idx] = 0
	}

	if !live {
		// Consumed cells still need clearing while silent.
		for j := int64(0); j < n; j++ {
			if abs := start + j; abs >= 0 {
				s.out[abs&s.outMask] = 0
				s.norm[abs&s.outMask] = 0
			}
		}
	}
}

// detectEpochs updates the period estimate from autocorrelation over the
// recent history and extends the epoch stream up to half a period behind
// the write head.
func (s *psolaStream) detectEpochs() {
	aLen := int64(len(s.analysis))
	if s.writeAbs < aLen {
		return
	}

	for j := int64(0); j < aLen; j++ {
		s.analysis[j] = s.hist[(s.writeAbs-aLen+j)&s.histMask]
	}

	voiced := false
	f0, conf, err := analyze.EstimateF0Scratch(s.analysis, s.f0Scratch, s.sampleRate, psolaMinF0, psolaMaxF0)
	if err == nil && f0 > 0 && conf >= 0.3 {
		s.period = core.Clamp(s.sampleRate/f0, float64(s.minPeriod), float64(s.maxPeriod))
		voiced = true
	}

	if s.lastEpochN == 0 && s.epCount == 0 {
		s.lastEpochN = s.writeAbs - aLen
	}

	margin := int64(s.period/2) + 2

	for {
		cand := s.lastEpochN + int64(s.period)
		if cand >= s.writeAbs-margin {
			break
		}

		// Refine onto the local amplitude peak.
		reach := int64(s.period / 4)
		best := cand
		bestV := -1.0
		for t := cand - reach; t <= cand+reach; t++ {
			if v := math.Abs(s.histAt(t)); v > bestV {
				bestV = v
				best = t
			}
		}

		half := int64(s.period / 2)
		sum := 0.0
		for t := best - half; t <= best+half; t++ {
			v := s.histAt(t)
			sum += v * v
		}
		rms := math.Sqrt(sum / float64(2*half+1))

		s.pushEpoch(epochMark{n: best, t0: s.period, rms: rms, voiced: voiced})
		s.lastEpochN = best
	}
}

func (s *psolaStream) pushEpoch(e epochMark) {
	if s.epCount == cap(s.epochs) {
		// Force room; the schedule lives near the tail.
		drop := s.epCount / 4
		copy(s.epochs, s.epochs[drop:s.epCount])
		s.epCount -= drop
		s.epochs = s.epochs[:s.epCount]
		s.kInt -= drop
		if s.kInt < 1 {
			s.kInt = 1
		}
	}

	s.epochs = append(s.epochs, e)
	s.epCount++
	s.dirty = true
}

// prune drops epochs that history can no longer address.
func (s *psolaStream) prune() {
	oldest := s.writeAbs - int64(len(s.hist)-psolaHistoryMargin)
	drop := 0
	for drop < s.epCount && s.epochs[drop].n < oldest {
		drop++
	}

	if drop == 0 {
		return
	}

	copy(s.epochs, s.epochs[drop:s.epCount])
	s.epCount -= drop
	s.epochs = s.epochs[:s.epCount]
	s.kInt -= drop
	if s.kInt < 1 {
		s.kInt = 1
	}
}

// tryStart flips to running once enough epochs surround the consume
// point.
func (s *psolaStream) tryStart() {
	if s.epCount < 4 || s.writeAbs <= int64(s.latency) {
		return
	}

	consume := s.writeAbs - int64(s.latency)
	k := 1
	for k < s.epCount-2 && s.epochs[k].n < consume {
		k++
	}

	if k >= s.epCount-1 {
		return
	}

	s.running = true
	s.kInt = k
	s.synTime = float64(s.epochs[k].n)
	s.acc = 0
	s.prevLen = 0
	s.prevEnergy = 0
	s.rmsEnv = s.epochs[k].rms
}

func (s *psolaStream) updateRefT0() {
	if !s.dirty || s.epCount < 2 {
		return
	}

	m := s.epCount - 1
	if m > psolaSpacingMax {
		m = psolaSpacingMax
	}

	for i := 0; i < m; i++ {
		s.spacings[i] = float64(s.epochs[s.epCount-1-i].n - s.epochs[s.epCount-2-i].n)
	}

	sp := s.spacings[:m]
	sort.Float64s(sp)
	s.refT0 = core.Clamp(stat.Quantile(0.5, stat.Empirical, sp, nil),
		float64(s.minPeriod), float64(s.maxPeriod))
	s.dirty = false
}

// render emits grains until the synthesis cursor covers the consumable
// range of this block plus half a period of lead.
func (s *psolaStream) render(alpha, winScale float64) {
	s.updateRefT0()

	target := float64(s.writeAbs-int64(s.latency)) + s.refT0*0.5

	for s.synTime <= target {
		if s.kInt < 1 {
			s.kInt = 1
		}
		if s.kInt > s.epCount-2 {
			return // stalled: next block supplies more epochs
		}

		s.emitGrain(alpha, winScale)

		synHop := s.refT0 / alpha
		s.synTime += synHop

		s.acc += 1 / alpha
		step := int(math.Floor(s.acc))
		// Downshift must advance every grain; upshift reuses epochs, so
		// step 0 is legitimate there and keeps the long-run advance rate
		// at 1/alpha.
		if step < 1 && alpha <= 1 {
			step = 1
		}
		if step < 0 {
			step = 0
		}
		s.acc -= float64(step)

		s.kInt += step
		s.stepTotal++
		if step == 2 {
			s.step2++
		}
	}
}

func (s *psolaStream) emitGrain(alpha, winScale float64) {
	e := s.epochs[s.kInt]
	prevMid := float64(e.n+s.epochs[s.kInt-1].n) * 0.5
	nextMid := float64(e.n+s.epochs[s.kInt+1].n) * 0.5

	// Two local periods per grain at winScale 1, the classic
	// pitch-synchronous choice: adjacent grains then overlap-add to a
	// near-constant window sum at unity ratio.
	grainLen := int((nextMid - prevMid) * 2 * winScale)
	if grainLen < psolaMinGrain {
		grainLen = psolaMinGrain
	}
	if grainLen > s.maxGrain {
		grainLen = s.maxGrain
	}
	if grainLen%2 == 0 {
		grainLen++
	}
	half := grainLen / 2

	searchW := int(psolaSearchFraction * s.refT0)
	if max := (len(s.seg) - grainLen) / 2; searchW > max {
		searchW = max
	}
	if searchW < 0 {
		searchW = 0
	}

	segLen := grainLen + 2*searchW
	for j := 0; j < segLen; j++ {
		s.seg[j] = s.histAt(e.n - int64(half) - int64(searchW) + int64(j))
	}

	bestD := 0
	coreN := int(psolaCoreFraction * float64(grainLen))
	if s.prevLen > 0 {
		if pc := int(psolaCoreFraction * float64(s.prevLen)); pc < coreN {
			coreN = pc
		}
	}
	if coreN < 8 {
		coreN = 8
	}
	if coreN > grainLen {
		coreN = grainLen
	}

	coreOff := (grainLen - coreN) / 2

	var prevCore []float64
	var prevCoreEnergy float64
	if s.prevLen > 0 && s.prevEnergy > 1e-12 {
		pOff := (s.prevLen - coreN) / 2
		if pOff < 0 {
			pOff = 0
		}
		prevCore = s.prevWin[pOff : pOff+coreN]
		prevCoreEnergy = vecmath.DotProduct(prevCore, prevCore)
	}

	if prevCore != nil && prevCoreEnergy > 1e-12 && searchW > 0 {
		bestScore := math.Inf(-1)
		for d := -searchW; d <= searchW; d++ {
			cur := s.seg[searchW+d+coreOff : searchW+d+coreOff+coreN]

			num := vecmath.DotProduct(cur, prevCore)
			den := math.Sqrt(vecmath.DotProduct(cur, cur) * prevCoreEnergy)

			score := 0.0
			if den > 0 {
				score = num / den
			}
			score -= psolaShiftPenalty * math.Abs(float64(d))

			if score > bestScore {
				bestScore = score
				bestD = d
			}
		}
	}

	grain := s.seg[searchW+bestD : searchW+bestD+grainLen]

	sgn := 1.0
	if prevCore != nil {
		cur := s.seg[searchW+bestD+coreOff : searchW+bestD+coreOff+coreN]
		if vecmath.DotProduct(cur, prevCore) < 0 {
			sgn = -1
		}
	}

	// Slow RMS envelope; the ratio evens out grain-to-grain level
	// wobble. Overall level is restored at drain time by dividing out
	// the accumulated window sum.
	s.rmsEnv += (e.rms - s.rmsEnv) * 0.1

	gain := 0.0
	if e.rms > 1e-8 {
		gain = core.Clamp(s.rmsEnv/e.rms, 0, 3)
	}
	gain *= sgn

	window.Fill(window.TypeHann, s.win[:grainLen])

	start := int64(math.Round(s.synTime)) - int64(half)
	outFloor := s.writeAbs - int64(len(s.out))

	if gain != 0 {
		for j := 0; j < grainLen; j++ {
			abs := start + int64(j)
			if abs < 0 || abs < outFloor {
				continue
			}

			idx := abs & s.outMask
			s.out[idx] += s.win[j] * grain[j] * gain
			s.norm[idx] += s.win[j]
		}
	}

	for j := 0; j < grainLen; j++ {
		s.prevWin[j] = s.win[j] * grain[j] * sgn
	}
	s.prevLen = grainLen
	s.prevEnergy = vecmath.DotProduct(s.prevWin[:grainLen], s.prevWin[:grainLen])
}
