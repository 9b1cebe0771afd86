package xm

// envelopeLerp linearly interpolates between points a and b at frame
// position pos, in exact integer arithmetic.
func envelopeLerp(a, b EnvelopePoint, pos uint16) uint8 {
	if pos >= b.Frame {
		return b.Value
	}
	return uint8((uint32(b.Value)*uint32(pos-a.Frame) + uint32(a.Value)*uint32(b.Frame-pos)) / uint32(b.Frame-a.Frame))
}

// envelopeTick advances one envelope's frame counter by one tick (unless
// sustaining or a loop boundary needs folding back) and writes the
// interpolated value for the current position into outval.
func envelopeTick(sustained bool, env *Envelope, counter *uint16, outval *uint8) {
	if sustained && env.SustainEnabled && *counter == env.Points[env.SustainPoint].Frame {
		*outval = env.Points[env.SustainPoint].Value
		return
	}

	if env.LoopEnabled {
		loopStart := env.Points[env.LoopStartPoint].Frame
		loopEnd := env.Points[env.LoopEndPoint].Frame
		if *counter == loopEnd {
			*counter -= loopEnd - loopStart
		}
	}

	for j := int(env.NumPoints) - 1; j > 0; j-- {
		if *counter < env.Points[j-1].Frame {
			continue
		}
		*outval = envelopeLerp(env.Points[j-1], env.Points[j], *counter)
		*counter++
		return
	}
}

// updateEnvelopes advances a channel's volume and panning envelopes (and
// fadeout) by one tick. Instrument-less channels have nothing to advance.
func (c *Context) updateEnvelopes(ch *channelState) {
	instr := c.instrumentAt(ch.instrumentIdx)
	if instr == nil {
		return
	}

	if !ch.sustained {
		if ch.fadeoutVolume < instr.VolumeFadeout {
			ch.fadeoutVolume = 0
		} else {
			ch.fadeoutVolume -= instr.VolumeFadeout
		}
	}

	if instr.VolumeEnvelope.Enabled {
		envelopeTick(ch.sustained, &instr.VolumeEnvelope, &ch.volumeEnvelopeFrameCount, &ch.volumeEnvelopeVolume)
	}
	if instr.PanningEnvelope.Enabled {
		envelopeTick(ch.sustained, &instr.PanningEnvelope, &ch.panningEnvelopeFrameCount, &ch.panningEnvelopePanning)
	}
}
