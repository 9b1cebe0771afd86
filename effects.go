package xm

// updateFrequency recomputes a channel's Hz frequency and per-sample step
// from its current period plus arpeggio/vibrato offsets.
func (c *Context) updateFrequency(ch *channelState) {
	noteOffset := float32(ch.arpNoteOffset)
	periodOffset := float32(8*int(ch.vibratoNoteOffset)+int(ch.autovibratoNoteOffset)) / 128.0
	ch.frequency = frequency(c.module.FrequencyType, ch.period, noteOffset, periodOffset)
	ch.step = ch.frequency / float32(c.rate)
}

// pitchSlide applies a raw period offset (already signed for direction),
// scaled by the linear-mode-only 4x coefficient, and clamps the period from
// below at zero.
func (c *Context) pitchSlide(ch *channelState, periodOffset float32) {
	periodOffset *= pitchSlideCoefficient(c.module.FrequencyType)
	ch.period += periodOffset
	if ch.period < 0 {
		ch.period = 0
	}
	c.updateFrequency(ch)
}

// tonePortamento slides the channel period one step toward its target. A
// 3xx issued before any note has set a target does nothing until a real
// target note arrives.
func (c *Context) tonePortamento(ch *channelState) {
	if ch.tonePortamentoTargetPeriod == 0 {
		return
	}
	incr := float32(ch.tonePortamentoParam) * pitchSlideCoefficient(c.module.FrequencyType)
	if ch.period != ch.tonePortamentoTargetPeriod {
		slideTowards(&ch.period, ch.tonePortamentoTargetPeriod, incr)
		c.updateFrequency(ch)
	}
}

func slideTowards(cur *float32, target, step float32) {
	if *cur < target {
		*cur += step
		if *cur > target {
			*cur = target
		}
	} else if *cur > target {
		*cur -= step
		if *cur < target {
			*cur = target
		}
	}
}

func (c *Context) autovibrato(ch *channelState) {
	instr := c.instrumentAt(ch.instrumentIdx)
	if instr == nil {
		return
	}

	sweep := uint8(255)
	if ch.autovibratoTicks < uint16(instr.VibratoSweep) {
		sweep = uint8(ch.autovibratoTicks)
	}

	ch.autovibratoTicks += uint16(instr.VibratoRate)
	ch.autovibratoNoteOffset = int8(int32(c.waveform(instr.VibratoType, uint8(ch.autovibratoTicks>>2))) *
		int32(instr.VibratoDepth) * int32(sweep) / (16 * 256))
	c.updateFrequency(ch)
}

func (c *Context) vibrato(ch *channelState) {
	ch.vibratoTicks += ch.vibratoParam >> 4
	ch.vibratoNoteOffset = int8(int32(c.waveform(ch.vibratoControlParam, ch.vibratoTicks)) *
		int32(ch.vibratoParam&0x0F) / 0x0F)
	c.updateFrequency(ch)
}

func (c *Context) tremolo(ch *channelState) {
	ch.tremoloTicks += ch.tremoloParam >> 4
	ch.tremoloVolumeOffset = int8(-int32(c.waveform(ch.tremoloControlParam, ch.tremoloTicks)) *
		int32(ch.tremoloParam&0x0F) * 4 / 128)
}

var retrigAdd = [16]uint8{0, 0, 0, 0, 0, 0, 0, 0, 0, 1, 2, 4, 8, 16, 0, 0}
var retrigSub = [16]uint8{0, 1, 2, 4, 8, 16, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
var retrigMul = [16]uint8{1, 1, 1, 1, 1, 1, 2, 1, 1, 1, 1, 1, 1, 1, 3, 2}
var retrigDiv = [16]uint8{1, 1, 1, 1, 1, 1, 3, 2, 1, 1, 1, 1, 1, 1, 2, 1}

func (c *Context) multiRetrigNote(ch *channelState) {
	y := ch.multiRetrigParam & 0x0F
	if y == 0 || c.currentTick%y != 0 {
		return
	}

	c.triggerNote(ch, triggerKeepVolume|triggerKeepEnvelope)

	instr := c.instrumentAt(ch.instrumentIdx)
	if ch.current.VolumeColumn != 0 || (instr != nil && instr.VolumeEnvelope.Enabled) {
		return
	}

	x := ch.multiRetrigParam >> 4
	if ch.volume < retrigSub[x] {
		ch.volume = retrigSub[x]
	}
	ch.volume = ((ch.volume - retrigSub[x] + retrigAdd[x]) * retrigMul[x]) / retrigDiv[x]
	if ch.volume > maxVolume {
		ch.volume = maxVolume
	}
}

// arpeggio rotates the note offset through {0, y, x}. The three-cycle is
// phased by tempo mod 3 the way FT2 phases it: at tempo 6 the six ticks
// read 0 y x 0 y x, at tempo 5 the five ticks read 0 x 0 y x, at tempo 4
// the four ticks read 0 0 y x.
func (c *Context) arpeggio(ch *channelState) {
	offset := uint16(c.tempo) % 3

	switch offset {
	case 2:
		if c.currentTick == 1 {
			ch.arpNoteOffset = ch.current.EffectParam >> 4
			c.updateFrequency(ch)
			return
		}
		fallthrough
	case 1:
		if c.currentTick == 0 {
			ch.arpNoteOffset = 0
			c.updateFrequency(ch)
			return
		}
	}

	switch (uint16(c.currentTick) - offset) % 3 {
	case 0:
		ch.arpNoteOffset = 0
	case 1:
		ch.arpNoteOffset = ch.current.EffectParam & 0x0F
	case 2:
		ch.arpNoteOffset = ch.current.EffectParam >> 4
	}
	c.updateFrequency(ch)
}
