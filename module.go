// Package xm implements a deterministic playback engine for FastTracker II
// Extended Module (XM) files, version 1.04. Given the raw bytes of a module
// it produces a stream of stereo float32 audio frames, bit-identical across
// runs and architectures for the same input and sample rate.
package xm

const (
	sampleNameLength     = 22
	instrumentNameLength = 22
	moduleNameLength     = 20
	trackerNameLength    = 20
	patternOrderTableLen = 256
	numNotes             = 96
	maxEnvelopePoints    = 12
	maxRowsPerPattern    = 256
	rampingPoints        = 31
	maxVolume            = 64
	maxFadeoutVolume     = 32768
	maxPanning           = 256
	maxEnvelopeValue     = 64
	minBPM               = 32
	maxBPM               = 255

	// keyOffNote is the internal sentinel a loaded pattern slot uses for a
	// key-off row (the XM format itself stores this as note value 97).
	keyOffNote = 128

	rampingVolumeRamp = 1.0 / 128.0
	amplification     = 0.25
)

// FrequencyType selects how a module maps notes to periods and periods to
// frequencies.
type FrequencyType uint8

const (
	LinearFrequencies FrequencyType = iota
	AmigaFrequencies
)

// LoopType selects how a sample's read position wraps once it reaches the
// loop point.
type LoopType uint8

const (
	NoLoop LoopType = iota
	ForwardLoop
	PingPongLoop
)

// EnvelopePoint is one (frame, value) vertex of a piecewise-linear envelope.
type EnvelopePoint struct {
	Frame uint16
	Value uint8 // 0..=maxEnvelopeValue
}

// Envelope is the up-to-12-point volume or panning envelope carried by an
// instrument.
type Envelope struct {
	Points         [maxEnvelopePoints]EnvelopePoint
	NumPoints      uint8
	SustainPoint   uint8
	LoopStartPoint uint8
	LoopEndPoint   uint8
	Enabled        bool
	SustainEnabled bool
	LoopEnabled    bool
}

// Sample is one waveform belonging to an instrument. Waveform data has
// already been delta-decoded and, for 16-bit samples, the length/loop
// offsets have already been halved into sample points (see load.go).
type Sample struct {
	Name            string
	Index           uint32 // offset into the owning Module's SampleData
	Length          uint32
	LoopStart       uint32
	LoopLength      uint32
	LoopEnd         uint32
	Volume          uint8 // 0..=maxVolume
	Panning         uint8 // 0..maxPanning-1
	LoopType        LoopType
	Bits            uint8 // 8 or 16
	FineTune        int8
	RelativeNote    int8
	LatestTrigger   uint64
}

// Instrument groups up to 128 samples under a 96-note lookup table plus
// shared envelopes, fadeout and autovibrato parameters.
type Instrument struct {
	Name            string
	SamplesIndex    uint16 // offset into Module.Samples
	NumSamples      uint16
	SampleOfNotes   [numNotes]uint8
	VolumeEnvelope  Envelope
	PanningEnvelope Envelope
	VolumeFadeout   uint16
	VibratoType     uint8
	VibratoSweep    uint8
	VibratoDepth    uint8
	VibratoRate     uint8
	Muted           bool
	LatestTrigger   uint64
}

// PatternSlot is the intersection of one row and one channel.
type PatternSlot struct {
	Note         uint8 // 0 = none, 1..96 = note, keyOffNote = key off
	Instrument   uint8 // 0 = none, 1..128
	VolumeColumn uint8
	EffectType   uint8
	EffectParam  uint8
}

// Pattern is a run of rows, each row being NumChannels contiguous slots in
// the owning Module's Slots arena.
type Pattern struct {
	SlotsIndex uint32
	NumRows    uint16
}

// Module is the fully-parsed representation of an XM file. After load only
// the instruments' Muted flags and the LatestTrigger stamps of instruments
// and samples change. Every slice below is allocated exactly once, during
// NewContext's prescan+load pass, and never grows afterwards (see load.go).
type Module struct {
	Name             string
	TrackerName      string
	Length           uint16 // entries used in PatternTable
	RestartPosition  uint16
	NumChannels      uint16
	NumPatterns      uint16
	NumInstruments   uint16
	FrequencyType    FrequencyType
	InitialTempo     uint16
	InitialBPM       uint16
	PatternTable     [patternOrderTableLen]uint8

	Patterns    []Pattern
	Slots       []PatternSlot
	Instruments []Instrument
	Samples     []Sample
	SampleData  []float32 // normalized to [-1, 1]
}
