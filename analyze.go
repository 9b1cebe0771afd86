package xm

import "fmt"

const (
	waveformSine = iota
	waveformRampDown
	waveformSquare
	waveformRandom
)

// AnalyzeOutputSize bounds the length, including the terminating NUL a C
// caller would append, of the string Analyze produces.
const AnalyzeOutputSize = 22 + 41 + 36 + 31 + 31 + 1

// Analyze walks every pattern slot and instrument in the module once and
// reports which effects, volume-column commands, oscillator waveforms and
// envelope features it actually exercises, formatted as a set of build
// defines. A size-constrained rebuild of the engine can feed these straight
// to the compiler to strip every feature the module never touches.
//
// Effects form a 64-bit mask over effect types (a 000 slot does not count
// as an arpeggio), volume effects a 16-bit mask over the column's top
// nibble, waveforms a bit per oscillator shape gathered from E4x/E7x
// control commands and instrument autovibrato, and envelopes four bits for
// volume envelope, panning envelope, fadeout and autovibrato. Each mask is
// reported complemented, as the features safe to disable.
func (c *Context) Analyze() string {
	var usedEffects uint64
	var usedVolumeEffects uint16
	var usedWaveforms uint16
	var usedEnvelopes uint16

	for i := range c.module.Slots {
		s := &c.module.Slots[i]

		if s.EffectType == 0 {
			if s.EffectParam != 0 {
				usedEffects |= 1
			}
		} else if s.EffectType < 64 {
			usedEffects |= 1 << uint(s.EffectType)
		}

		usedVolumeEffects |= 1 << uint(s.VolumeColumn>>4)

		if s.EffectType == 0xE {
			sub := s.EffectParam >> 4
			if sub == 4 || sub == 7 {
				usedWaveforms |= 1 << uint(s.EffectParam&3)
			}
		}
	}

	for i := range c.module.Instruments {
		in := &c.module.Instruments[i]
		if in.VolumeEnvelope.NumPoints > 0 {
			usedEnvelopes |= 1
		}
		if in.PanningEnvelope.NumPoints > 0 {
			usedEnvelopes |= 2
		}
		if in.VolumeFadeout > 0 {
			usedEnvelopes |= 4
		}
		if in.VibratoDepth > 0 && (in.VibratoRate > 0 || in.VibratoType == waveformSquare) {
			usedEnvelopes |= 8
			usedWaveforms |= 1 << uint(in.VibratoType&3)
		}
	}

	freqTypes := "1"
	if c.module.FrequencyType == AmigaFrequencies {
		freqTypes = "2"
	}

	return fmt.Sprintf(
		"-DXM_FREQUENCY_TYPES=%s -DXM_DISABLED_EFFECTS=0x%016X"+
			" -DXM_DISABLED_VOLUME_EFFECTS=0x%04X"+
			" -DXM_DISABLED_ENVELOPES=0x%04X -DXM_DISABLED_WAVEFORMS=0x%04X",
		freqTypes,
		^usedEffects,
		^usedVolumeEffects,
		^usedEnvelopes,
		^usedWaveforms,
	)
}
