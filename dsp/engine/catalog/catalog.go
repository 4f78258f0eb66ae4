// Package catalog is the static table describing every engine in the
// runtime. Engine IDs are wire stable: presets and automation reference
// them by number, so rows must never be renumbered or removed. The factory
// and the validator both derive from this table; it is the only
// cross-component static data in the runtime.
package catalog

import (
	"fmt"
	"hash/fnv"
)

// ID identifies an engine. Valid IDs are 0..Count-1; 0 is the bypass.
type ID int

// Count is the number of catalogue entries.
const Count = 57

// Engine IDs. The numbering is canonical for both the factory and preset
// serialization.
const (
	None ID = iota
	VintageOptoCompressor
	ClassicCompressor
	TransientShaper
	NoiseGate
	MasteringLimiter
	DynamicEQ
	ParametricEQ
	VintageConsoleEQ
	LadderFilter
	StateVariableFilter
	FormantFilter
	EnvelopeFilter
	CombResonator
	VocalFormantFilter
	VintageTubePreamp
	WaveFolder
	HarmonicExciter
	BitCrusher
	MultibandSaturator
	MuffFuzz
	RodentDistortion
	KStyleOverdrive
	StereoChorus
	ResonantChorus
	AnalogPhaser
	RingModulator
	FrequencyShifter
	HarmonicTremolo
	ClassicTremolo
	RotarySpeaker
	PitchShifter
	DetuneDoubler
	IntelligentHarmonizer
	TapeEcho
	DigitalDelay
	MagneticDrumEcho
	BucketBrigadeDelay
	BufferRepeat
	PlateReverb
	SpringReverb
	ConvolutionReverb
	ShimmerReverb
	GatedReverb
	StereoWidener
	StereoImager
	DimensionExpander
	SpectralFreeze
	SpectralGate
	PhasedVocoder
	GranularCloud
	ChaosGenerator
	FeedbackNetwork
	MidSideProcessor
	GainUtility
	MonoMaker
	PhaseAlign
)

// Valid reports whether id is inside the catalogue range.
func (id ID) Valid() bool {
	return id >= 0 && id < Count
}

// String returns the display name, or a placeholder for invalid IDs.
func (id ID) String() string {
	if !id.Valid() {
		return fmt.Sprintf("invalid(%d)", int(id))
	}

	return table[id].Name
}

// Category groups engines for browsing. Pure metadata; it does not affect
// processing.
type Category int

const (
	CategorySpecial Category = iota
	CategoryDynamics
	CategoryEQFilter
	CategoryDistortion
	CategoryModulation
	CategoryDelay
	CategoryReverb
	CategorySpatial
	CategoryUtility

	categoryCount
)

var categoryNames = [categoryCount]string{
	"Special",
	"Dynamics",
	"EQ/Filter",
	"Distortion",
	"Modulation",
	"Delay",
	"Reverb",
	"Spatial",
	"Utility",
}

// String returns the category display name.
func (c Category) String() string {
	if c < 0 || c >= categoryCount {
		return fmt.Sprintf("invalid(%d)", int(c))
	}

	return categoryNames[c]
}

// Metadata describes one catalogue row.
type Metadata struct {
	// Name is the stable display name.
	Name string
	// Category is browsing metadata.
	Category Category
	// NumParams is the declared parameter count in [0, 15].
	NumParams int
	// MixIndex is the index of the dry/wet mix parameter, or -1 for the
	// bypass engine only.
	MixIndex int
	// HighCost marks spectral/convolution/granular engines.
	HighCost bool
	// Studio marks studio-grade variants.
	Studio bool
	// Platinum marks flagship algorithm variants.
	Platinum bool
}

// Lookup returns the metadata row for id.
func Lookup(id ID) (Metadata, bool) {
	if !id.Valid() {
		return Metadata{}, false
	}

	return table[id], true
}

// ByCategory returns the IDs in category c in ascending order.
func ByCategory(c Category) []ID {
	var ids []ID
	for id := ID(0); id < Count; id++ {
		if table[id].Category == c {
			ids = append(ids, id)
		}
	}

	return ids
}

// Checksum returns a stable FNV-1a hash over every row, used to detect
// accidental catalogue divergence at build time.
func Checksum() uint64 {
	h := fnv.New64a()
	for id := ID(0); id < Count; id++ {
		m := table[id]
		fmt.Fprintf(h, "%d|%s|%d|%d|%d|%t|%t|%t\n",
			int(id), m.Name, int(m.Category), m.NumParams, m.MixIndex,
			m.HighCost, m.Studio, m.Platinum)
	}

	return h.Sum64()
}
