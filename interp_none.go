//go:build xm_nointerp

package xm

// interpolate drops the second sample point and the fractional position:
// nearest-point-below sample reads, no smoothing.
func interpolate(a, b, frac float32) float32 {
	return a
}
