//go:build !xm_nointerp

package xm

// interpolate linearly blends between two consecutive sample points at
// fractional position frac (0..1). Build with -tags xm_nointerp to disable.
func interpolate(a, b, frac float32) float32 {
	return a + (b-a)*frac
}
