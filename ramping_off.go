//go:build xm_noramp

package xm

// applyRamping jumps straight to target: volume changes take effect on the
// very next frame.
func applyRamping(actual, target, step float32) float32 {
	return target
}

// rampTail passes u through; there is no cross-fade window without
// ramping.
func rampTail(ch *channelState, u float32) float32 {
	return u
}
