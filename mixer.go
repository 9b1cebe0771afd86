package xm

// samplePointAt reads one raw waveform point of smp. Loaded sample data is
// already normalized float32, so this is a plain arena read.
func (c *Context) samplePointAt(smp *Sample, k uint32) float32 {
	return c.module.SampleData[smp.Index+k]
}

// nextOfSample produces the channel's next raw (unvolumed) waveform value
// and advances its read position by one output frame's worth of step,
// applying the sample's loop-type wrap math. A channel whose sample was
// detached mid-crossfade still returns the fading tail of the previous
// note for the remaining ramping frames.
func (c *Context) nextOfSample(ch *channelState) float32 {
	if ch.instrumentIdx < 0 || ch.sampleIdx < 0 {
		return rampTail(ch, 0)
	}
	smp := c.sampleAt(ch.sampleIdx)
	if smp.Length == 0 {
		return 0
	}

	a := uint32(ch.samplePosition)
	t := ch.samplePosition - float32(a)
	var b uint32
	ch.samplePosition += ch.step

	switch smp.LoopType {
	case NoLoop:
		if ch.samplePosition >= float32(smp.Length) {
			ch.sampleIdx = -1
			b = a
			break
		}
		if a+1 < smp.Length {
			b = a + 1
		} else {
			b = a
		}

	case ForwardLoop:
		// length=6, loop_start=2, loop_end=6 reads
		// 0 1 (2 3 4 5) (2 3 4 5) ...
		for ch.samplePosition >= float32(smp.LoopEnd) {
			ch.samplePosition -= float32(smp.LoopLength)
		}
		if a+1 == smp.LoopEnd {
			b = smp.LoopStart
		} else {
			b = a + 1
		}

	case PingPongLoop:
		// length=6, loop_start=2, loop_end=6 reads
		// 0 1 (2 3 4 5 5 4 3 2) (2 3 4 5 5 4 3 2) ...
		for ch.samplePosition >= float32(smp.LoopEnd+smp.LoopLength) {
			ch.samplePosition -= float32(smp.LoopLength * 2)
		}
		if a < smp.LoopEnd {
			// First half of the loop, read forwards.
			if a+1 == smp.LoopEnd {
				b = a
			} else {
				b = a + 1
			}
		} else {
			// Second half, reflect the read position and go
			// backwards: loop_end maps to loop_end-1,
			// loop_end+loop_length-1 maps to loop_start.
			a = smp.LoopEnd*2 - 1 - a
			if a == smp.LoopStart {
				b = a
			} else {
				b = a - 1
			}
		}
	}

	u := c.samplePointAt(smp, a)
	u = interpolate(u, c.samplePointAt(smp, b), t)
	return rampTail(ch, u)
}

// nextOfChannel produces one stereo output frame for a single channel. The
// sample position always advances, even while the channel is muted or the
// loop limit has silenced output, so that unmuting resumes in the right
// place.
func (c *Context) nextOfChannel(ch *channelState, outLR *[2]float32) {
	outLR[0], outLR[1] = 0, 0
	fval := c.nextOfSample(ch) * c.amplification

	if ch.muted {
		return
	}
	if instr := c.instrumentAt(ch.instrumentIdx); instr != nil && instr.Muted {
		return
	}
	if c.maxLoopCount > 0 && c.loopCount >= c.maxLoopCount {
		return
	}

	outLR[0] = fval * ch.actualVolume[0]
	outLR[1] = fval * ch.actualVolume[1]

	ch.frameCount++
	ch.actualVolume[0] = applyRamping(ch.actualVolume[0], ch.targetVolume[0], c.volumeRamp)
	ch.actualVolume[1] = applyRamping(ch.actualVolume[1], ch.targetVolume[1], c.volumeRamp)
}

// sample produces one mixed stereo frame, running the sequencer first if
// this frame begins a new tick. The mixed pair is clamped to [-1, 1]; a
// pathological module can still sum past full scale.
func (c *Context) sample(outLR *[2]float32) {
	if c.remainingSamplesInTick <= 0 {
		c.tick()
	}
	c.remainingSamplesInTick--

	outLR[0], outLR[1] = 0, 0
	var chLR [2]float32
	for i := range c.channels {
		c.nextOfChannel(&c.channels[i], &chLR)
		outLR[0] += chLR[0]
		outLR[1] += chLR[1]
	}

	outLR[0] = clamp1(outLR[0])
	outLR[1] = clamp1(outLR[1])
}

// sampleUnmixed fills out, which must have room for two floats per
// channel, with each channel's unsummed contribution for this frame.
func (c *Context) sampleUnmixed(out []float32) {
	if c.remainingSamplesInTick <= 0 {
		c.tick()
	}
	c.remainingSamplesInTick--

	var chLR [2]float32
	for i := range c.channels {
		c.nextOfChannel(&c.channels[i], &chLR)
		out[2*i] = clamp1(chLR[0])
		out[2*i+1] = clamp1(chLR[1])
	}
}

func clamp1(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}

// Generate fills out, which must have an even length, with interleaved
// stereo float32 frames in [-1, 1]. Once the module has looped
// maxLoopCount times (see SetMaxLoopCount) the frames are silence.
func (c *Context) Generate(out []float32) {
	n := len(out) / 2
	c.generatedSamples += uint64(n)
	var frame [2]float32
	for i := 0; i < n; i++ {
		c.sample(&frame)
		out[2*i], out[2*i+1] = frame[0], frame[1]
	}
}

// GenerateUnmixed fills out with one stereo pair per channel per output
// frame (len(out) must equal frames * NumChannels() * 2); summing every
// channel's pair for a given frame reproduces Generate's mixed output for
// that frame up to the final full-scale clamp.
func (c *Context) GenerateUnmixed(out []float32) {
	nc := int(c.module.NumChannels)
	if nc == 0 {
		return
	}
	n := len(out) / (2 * nc)
	c.generatedSamples += uint64(n)
	for i := 0; i < n; i++ {
		c.sampleUnmixed(out[i*2*nc : (i+1)*2*nc])
	}
}
