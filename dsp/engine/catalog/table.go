package catalog

// table is the authoritative catalogue. Row order follows the ID constants
// and is part of the wire contract: names, parameter counts, and mix
// indices may only change together with a preset migration.
var table = [Count]Metadata{
	None:                  {Name: "None", Category: CategorySpecial, NumParams: 0, MixIndex: -1},
	VintageOptoCompressor: {Name: "Vintage Opto Compressor", Category: CategoryDynamics, NumParams: 7, MixIndex: 6, Platinum: true},
	ClassicCompressor:     {Name: "Classic Compressor", Category: CategoryDynamics, NumParams: 6, MixIndex: 5, Studio: true},
	TransientShaper:       {Name: "Transient Shaper", Category: CategoryDynamics, NumParams: 4, MixIndex: 3},
	NoiseGate:             {Name: "Noise Gate", Category: CategoryDynamics, NumParams: 6, MixIndex: 5},
	MasteringLimiter:      {Name: "Mastering Limiter", Category: CategoryDynamics, NumParams: 5, MixIndex: 4, Studio: true},
	DynamicEQ:             {Name: "Dynamic EQ", Category: CategoryEQFilter, NumParams: 7, MixIndex: 6, Studio: true},
	ParametricEQ:          {Name: "Parametric EQ", Category: CategoryEQFilter, NumParams: 8, MixIndex: 7, Studio: true},
	VintageConsoleEQ:      {Name: "Vintage Console EQ", Category: CategoryEQFilter, NumParams: 6, MixIndex: 5},
	LadderFilter:          {Name: "Ladder Filter", Category: CategoryEQFilter, NumParams: 5, MixIndex: 4, Platinum: true},
	StateVariableFilter:   {Name: "State Variable Filter", Category: CategoryEQFilter, NumParams: 4, MixIndex: 3},
	FormantFilter:         {Name: "Formant Filter", Category: CategoryEQFilter, NumParams: 4, MixIndex: 3},
	EnvelopeFilter:        {Name: "Envelope Filter", Category: CategoryEQFilter, NumParams: 5, MixIndex: 4},
	CombResonator:         {Name: "Comb Resonator", Category: CategoryEQFilter, NumParams: 4, MixIndex: 3},
	VocalFormantFilter:    {Name: "Vocal Formant Filter", Category: CategoryEQFilter, NumParams: 5, MixIndex: 4},
	VintageTubePreamp:     {Name: "Vintage Tube Preamp", Category: CategoryDistortion, NumParams: 5, MixIndex: 4, Platinum: true},
	WaveFolder:            {Name: "Wave Folder", Category: CategoryDistortion, NumParams: 4, MixIndex: 3},
	HarmonicExciter:       {Name: "Harmonic Exciter", Category: CategoryDistortion, NumParams: 4, MixIndex: 3},
	BitCrusher:            {Name: "Bit Crusher", Category: CategoryDistortion, NumParams: 3, MixIndex: 2},
	MultibandSaturator:    {Name: "Multiband Saturator", Category: CategoryDistortion, NumParams: 5, MixIndex: 4},
	MuffFuzz:              {Name: "Muff Fuzz", Category: CategoryDistortion, NumParams: 4, MixIndex: 3},
	RodentDistortion:      {Name: "Rodent Distortion", Category: CategoryDistortion, NumParams: 4, MixIndex: 3},
	KStyleOverdrive:       {Name: "K-Style Overdrive", Category: CategoryDistortion, NumParams: 4, MixIndex: 3},
	StereoChorus:          {Name: "Stereo Chorus", Category: CategoryModulation, NumParams: 6, MixIndex: 5},
	ResonantChorus:        {Name: "Resonant Chorus", Category: CategoryModulation, NumParams: 5, MixIndex: 4},
	AnalogPhaser:          {Name: "Analog Phaser", Category: CategoryModulation, NumParams: 8, MixIndex: 7, Platinum: true},
	RingModulator:         {Name: "Ring Modulator", Category: CategoryModulation, NumParams: 4, MixIndex: 3},
	FrequencyShifter:      {Name: "Frequency Shifter", Category: CategoryModulation, NumParams: 4, MixIndex: 3},
	HarmonicTremolo:       {Name: "Harmonic Tremolo", Category: CategoryModulation, NumParams: 4, MixIndex: 3},
	ClassicTremolo:        {Name: "Classic Tremolo", Category: CategoryModulation, NumParams: 5, MixIndex: 4},
	RotarySpeaker:         {Name: "Rotary Speaker", Category: CategoryModulation, NumParams: 5, MixIndex: 4},
	PitchShifter:          {Name: "Pitch Shifter", Category: CategoryModulation, NumParams: 8, MixIndex: 2, Platinum: true},
	DetuneDoubler:         {Name: "Detune Doubler", Category: CategoryModulation, NumParams: 4, MixIndex: 3},
	IntelligentHarmonizer: {Name: "Intelligent Harmonizer", Category: CategoryModulation, NumParams: 5, MixIndex: 4, HighCost: true},
	TapeEcho:              {Name: "Tape Echo", Category: CategoryDelay, NumParams: 5, MixIndex: 4, Platinum: true},
	DigitalDelay:          {Name: "Digital Delay", Category: CategoryDelay, NumParams: 5, MixIndex: 4},
	MagneticDrumEcho:      {Name: "Magnetic Drum Echo", Category: CategoryDelay, NumParams: 4, MixIndex: 3},
	BucketBrigadeDelay:    {Name: "Bucket Brigade Delay", Category: CategoryDelay, NumParams: 5, MixIndex: 4},
	BufferRepeat:          {Name: "Buffer Repeat", Category: CategoryDelay, NumParams: 4, MixIndex: 3},
	PlateReverb:           {Name: "Plate Reverb", Category: CategoryReverb, NumParams: 5, MixIndex: 4},
	SpringReverb:          {Name: "Spring Reverb", Category: CategoryReverb, NumParams: 4, MixIndex: 3},
	ConvolutionReverb:     {Name: "Convolution Reverb", Category: CategoryReverb, NumParams: 5, MixIndex: 4, HighCost: true},
	ShimmerReverb:         {Name: "Shimmer Reverb", Category: CategoryReverb, NumParams: 5, MixIndex: 4, HighCost: true, Platinum: true},
	GatedReverb:           {Name: "Gated Reverb", Category: CategoryReverb, NumParams: 4, MixIndex: 3},
	StereoWidener:         {Name: "Stereo Widener", Category: CategorySpatial, NumParams: 3, MixIndex: 2},
	StereoImager:          {Name: "Stereo Imager", Category: CategorySpatial, NumParams: 4, MixIndex: 3},
	DimensionExpander:     {Name: "Dimension Expander", Category: CategorySpatial, NumParams: 4, MixIndex: 3},
	SpectralFreeze:        {Name: "Spectral Freeze", Category: CategorySpecial, NumParams: 4, MixIndex: 3, HighCost: true},
	SpectralGate:          {Name: "Spectral Gate", Category: CategorySpecial, NumParams: 5, MixIndex: 4, HighCost: true},
	PhasedVocoder:         {Name: "Phased Vocoder", Category: CategorySpecial, NumParams: 4, MixIndex: 3, HighCost: true},
	GranularCloud:         {Name: "Granular Cloud", Category: CategorySpecial, NumParams: 5, MixIndex: 4, HighCost: true},
	ChaosGenerator:        {Name: "Chaos Generator", Category: CategorySpecial, NumParams: 5, MixIndex: 4},
	FeedbackNetwork:       {Name: "Feedback Network", Category: CategorySpecial, NumParams: 4, MixIndex: 3},
	MidSideProcessor:      {Name: "Mid-Side Processor", Category: CategoryUtility, NumParams: 4, MixIndex: 3, Studio: true},
	GainUtility:           {Name: "Gain Utility", Category: CategoryUtility, NumParams: 4, MixIndex: 3},
	MonoMaker:             {Name: "Mono Maker", Category: CategoryUtility, NumParams: 3, MixIndex: 2},
	PhaseAlign:            {Name: "Phase Align", Category: CategoryUtility, NumParams: 4, MixIndex: 3},
}
