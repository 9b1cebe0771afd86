//go:build !xm_noramp

package xm

// applyRamping slides actual towards target by at most step per frame,
// smoothing out the zipper noise of instant volume jumps on note
// transitions. Build with -tags xm_noramp to disable.
func applyRamping(actual, target, step float32) float32 {
	if actual < target {
		actual += step
		if actual > target {
			actual = target
		}
	} else if actual > target {
		actual -= step
		if actual < target {
			actual = target
		}
	}
	return actual
}

// rampTail cross-fades the snapshot tail of the channel's previous note
// into its first rampingPoints frames after a trigger. Past the window it
// passes u through untouched.
func rampTail(ch *channelState, u float32) float32 {
	if ch.frameCount < rampingPoints {
		return lerp(ch.endOfPreviousSample[ch.frameCount], u,
			float32(ch.frameCount)/float32(rampingPoints))
	}
	return u
}
