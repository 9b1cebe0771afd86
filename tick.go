package xm

import "math"

// tick is the per-tick heartbeat: row runs once at the start of the row
// (tick 0), then every tick applies continuous effects, advances envelopes
// and autovibrato, and recomputes the channel's target mix volume.
func (c *Context) tick() {
	if c.currentTick == 0 {
		c.row()
	}

	for i := range c.channels {
		c.tickChannel(&c.channels[i])
	}

	c.currentTick++
	if uint16(c.currentTick) >= c.tempo+uint16(c.extraTicks) {
		c.currentTick = 0
		c.extraTicks = 0
	}

	c.remainingSamplesInTick += float32(c.rate) / (float32(c.bpm) * 0.4)
}

func (c *Context) tickChannel(ch *channelState) {
	c.updateEnvelopes(ch)
	c.autovibrato(ch)

	if ch.shouldResetArpeggio && !hasArpeggio(ch.current) {
		ch.shouldResetArpeggio = false
		ch.arpNoteOffset = 0
		c.updateFrequency(ch)
	}
	if ch.shouldResetVibrato && !hasVibrato(ch.current) {
		ch.shouldResetVibrato = false
		ch.vibratoNoteOffset = 0
		c.updateFrequency(ch)
	}

	s := ch.current

	if c.currentTick > 0 {
		switch s.VolumeColumn >> 4 {
		case 0x6: // volume slide down
			paramSlide(&ch.volume, s.VolumeColumn&0x0F, maxVolume)
		case 0x7: // volume slide up
			paramSlide(&ch.volume, s.VolumeColumn<<4, maxVolume)
		case 0xB:
			// This vibrato does not reset pitch when discontinued.
			ch.shouldResetVibrato = false
			c.vibrato(ch)
		case 0xD: // panning slide left
			paramSlide(&ch.panning, s.VolumeColumn&0x0F, maxPanning)
		case 0xE: // panning slide right
			paramSlide(&ch.panning, s.VolumeColumn<<4, maxPanning)
		case 0xF: // tone portamento
			c.tonePortamento(ch)
		}
	}

	switch s.EffectType {
	case 0:
		if s.EffectParam != 0 {
			ch.shouldResetArpeggio = true
			c.arpeggio(ch)
		}
	case 1:
		if c.currentTick > 0 {
			c.pitchSlide(ch, -float32(ch.portamentoUpParam))
		}
	case 2:
		if c.currentTick > 0 {
			c.pitchSlide(ch, float32(ch.portamentoDownParam))
		}
	case 3:
		if c.currentTick > 0 {
			c.tonePortamento(ch)
		}
	case 4:
		if c.currentTick > 0 {
			ch.shouldResetVibrato = true
			c.vibrato(ch)
		}
	case 5:
		if c.currentTick > 0 {
			c.tonePortamento(ch)
			paramSlide(&ch.volume, ch.volumeSlideParam, maxVolume)
		}
	case 6:
		if c.currentTick > 0 {
			ch.shouldResetVibrato = true
			c.vibrato(ch)
			paramSlide(&ch.volume, ch.volumeSlideParam, maxVolume)
		}
	case 7:
		if c.currentTick > 0 {
			c.tremolo(ch)
		}
	case 0xA:
		if c.currentTick > 0 {
			paramSlide(&ch.volume, ch.volumeSlideParam, maxVolume)
		}
	case 0xE:
		switch s.EffectParam >> 4 {
		case 0x9:
			y := s.EffectParam & 0x0F
			if c.currentTick != 0 && y != 0 && c.currentTick%y == 0 {
				c.triggerNote(ch, triggerKeepVolume)
				c.updateEnvelopes(ch)
			}
		case 0xC:
			if s.EffectParam&0x0F == c.currentTick {
				cutNote(ch)
			}
		case 0xD:
			if ch.noteDelayParam == c.currentTick {
				c.handleNoteAndInstrument(ch, ch.current)
				c.updateEnvelopes(ch)
			}
		}
	case 17:
		if c.currentTick > 0 {
			paramSlide(&c.globalVolume, ch.globalVolumeSlideParam, maxVolume)
		}
	case 20:
		// Kxx: key off. Despite appearances the param is meaningful: it's
		// the tick at which key-off fires, including tick 0.
		if c.currentTick == s.EffectParam {
			c.keyOff(ch)
		}
	case 25:
		if c.currentTick > 0 {
			paramSlide(&ch.panning, ch.panningSlideParam, maxPanning)
		}
	case 27:
		if c.currentTick > 0 {
			c.multiRetrigNote(ch)
		}
	case 29:
		if c.currentTick > 0 {
			x := uint16(ch.tremorParam >> 4)
			y := uint16(ch.tremorParam & 0x0F)
			ch.tremorOn = uint16(c.currentTick-1)%(x+y+2) > x
		}
	}

	c.updateMixVolume(ch)
}

// updateMixVolume recomputes a channel's target left/right mix volume.
// Volume stays 32-bit fixed point until the final normalization by
// math.MaxInt32. Channel, envelope and global volume peak at 64 and fadeout
// at 32767, so the product (fadeout ÷8) peaks at 1073709056, just under
// 2^30: a channel at full volume normalizes to about 0.5. The
// envelope-adjusted panning is truncated into a
// uint8 before the square-root split, wrap included; that is what FT2's
// arithmetic does.
func (c *Context) updateMixVolume(ch *channelState) {
	var volume float32
	if ch.tremorOn {
		volume = 0
	} else {
		vol := int32(ch.volume) + int32(ch.tremoloVolumeOffset)
		if vol < 0 {
			vol = 0
		}
		if vol > maxVolume {
			vol = maxVolume
		}

		base := vol * int32(ch.volumeEnvelopeVolume) * int32(ch.fadeoutVolume) / 8 * int32(c.globalVolume)
		volume = float32(base) / float32(math.MaxInt32)
	}

	halfEnv := maxEnvelopeValue / 2
	centered := int(ch.panning) - maxPanning/2
	if centered < 0 {
		centered = -centered
	}
	panning := uint8(int(ch.panning) +
		(int(ch.panningEnvelopePanning)-halfEnv)*(maxPanning/2-centered)/halfEnv)

	left := float32(math.Sqrt(float64(maxPanning-int(panning)) / float64(maxPanning)))
	right := float32(math.Sqrt(float64(panning) / float64(maxPanning)))

	ch.targetVolume[0] = volume * left
	ch.targetVolume[1] = volume * right
}
