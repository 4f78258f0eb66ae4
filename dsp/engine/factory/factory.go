// Package factory maps catalogue IDs to engine constructors. It is the
// only package that imports every engine family, so hosts can depend on
// a single entry point.
package factory

import (
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engine/catalog"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/delayfx"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/distortion"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/dynamics"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/eqfilter"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/modulation"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/pitch"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/reverb"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/spatial"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/special"
	"github.com/blewistrumpet-lang/phoenix-dsp/dsp/engines/utility"
)

// Create returns a fresh unprepared engine for id, or nil when id is
// outside the catalogue. ID 0 returns the bypass.
func Create(id catalog.ID) engine.Engine {
	switch id {
	case catalog.None:
		return engine.NewBypass()

	case catalog.VintageOptoCompressor:
		return dynamics.NewVintageOptoCompressor()
	case catalog.ClassicCompressor:
		return dynamics.NewClassicCompressor()
	case catalog.TransientShaper:
		return dynamics.NewTransientShaper()
	case catalog.NoiseGate:
		return dynamics.NewNoiseGate()
	case catalog.MasteringLimiter:
		return dynamics.NewMasteringLimiter()

	case catalog.DynamicEQ:
		return eqfilter.NewDynamicEQ()
	case catalog.ParametricEQ:
		return eqfilter.NewParametricEQ()
	case catalog.VintageConsoleEQ:
		return eqfilter.NewVintageConsoleEQ()
	case catalog.LadderFilter:
		return eqfilter.NewLadderFilter()
	case catalog.StateVariableFilter:
		return eqfilter.NewStateVariableFilter()
	case catalog.FormantFilter:
		return eqfilter.NewFormantFilter()
	case catalog.EnvelopeFilter:
		return eqfilter.NewEnvelopeFilter()
	case catalog.CombResonator:
		return eqfilter.NewCombResonator()
	case catalog.VocalFormantFilter:
		return eqfilter.NewVocalFormantFilter()

	case catalog.VintageTubePreamp:
		return distortion.NewVintageTubePreamp()
	case catalog.WaveFolder:
		return distortion.NewWaveFolder()
	case catalog.HarmonicExciter:
		return distortion.NewHarmonicExciter()
	case catalog.BitCrusher:
		return distortion.NewBitCrusher()
	case catalog.MultibandSaturator:
		return distortion.NewMultibandSaturator()
	case catalog.MuffFuzz:
		return distortion.NewMuffFuzz()
	case catalog.RodentDistortion:
		return distortion.NewRodentDistortion()
	case catalog.KStyleOverdrive:
		return distortion.NewKStyleOverdrive()

	case catalog.StereoChorus:
		return modulation.NewStereoChorus()
	case catalog.ResonantChorus:
		return modulation.NewResonantChorus()
	case catalog.AnalogPhaser:
		return modulation.NewAnalogPhaser()
	case catalog.RingModulator:
		return modulation.NewRingModulator()
	case catalog.FrequencyShifter:
		return modulation.NewFrequencyShifter()
	case catalog.HarmonicTremolo:
		return modulation.NewHarmonicTremolo()
	case catalog.ClassicTremolo:
		return modulation.NewClassicTremolo()
	case catalog.RotarySpeaker:
		return modulation.NewRotarySpeaker()

	case catalog.PitchShifter:
		return pitch.NewPitchShifter()
	case catalog.DetuneDoubler:
		return pitch.NewDetuneDoubler()
	case catalog.IntelligentHarmonizer:
		return pitch.NewIntelligentHarmonizer()

	case catalog.TapeEcho:
		return delayfx.NewTapeEcho()
	case catalog.DigitalDelay:
		return delayfx.NewDigitalDelay()
	case catalog.MagneticDrumEcho:
		return delayfx.NewMagneticDrumEcho()
	case catalog.BucketBrigadeDelay:
		return delayfx.NewBucketBrigadeDelay()
	case catalog.BufferRepeat:
		return delayfx.NewBufferRepeat()

	case catalog.PlateReverb:
		return reverb.NewPlateReverb()
	case catalog.SpringReverb:
		return reverb.NewSpringReverb()
	case catalog.ConvolutionReverb:
		return reverb.NewConvolutionReverb()
	case catalog.ShimmerReverb:
		return reverb.NewShimmerReverb()
	case catalog.GatedReverb:
		return reverb.NewGatedReverb()

	case catalog.StereoWidener:
		return spatial.NewStereoWidener()
	case catalog.StereoImager:
		return spatial.NewStereoImager()
	case catalog.DimensionExpander:
		return spatial.NewDimensionExpander()

	case catalog.SpectralFreeze:
		return special.NewSpectralFreeze()
	case catalog.SpectralGate:
		return special.NewSpectralGate()
	case catalog.PhasedVocoder:
		return special.NewPhasedVocoder()
	case catalog.GranularCloud:
		return special.NewGranularCloud()
	case catalog.ChaosGenerator:
		return special.NewChaosGenerator()
	case catalog.FeedbackNetwork:
		return special.NewFeedbackNetwork()

	case catalog.MidSideProcessor:
		return utility.NewMidSideProcessor()
	case catalog.GainUtility:
		return utility.NewGainUtility()
	case catalog.MonoMaker:
		return utility.NewMonoMaker()
	case catalog.PhaseAlign:
		return utility.NewPhaseAlign()
	}

	return nil
}

// CreateAll instantiates every catalogue entry in ID order. Entries are
// unprepared; callers own the Prepare calls.
func CreateAll() []engine.Engine {
	engines := make([]engine.Engine, catalog.Count)
	for id := catalog.ID(0); id < catalog.Count; id++ {
		engines[id] = Create(id)
	}
	return engines
}
