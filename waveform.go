package xm

// sineLUT is a quarter-period table of 128*sin(2*pi*x/64) for x in 0..15;
// waveform() mirrors it across the remaining three quarters.
var sineLUT = [16]int8{
	0, 12, 24, 37, 48, 60, 71, 81,
	90, 98, 106, 112, 118, 122, 125, 127,
}

// waveform evaluates one of the four oscillator shapes vibrato, tremolo and
// autovibrato all share: sine, ramp-down, square and a pseudo-random LCG.
// The LCG's seed lives on the context (nextRand), not as a package-level
// global, so that distinct contexts stay deterministic independent of each
// other and of call order.
func (c *Context) waveform(shape uint8, step uint8) int8 {
	step %= 0x40

	switch shape & 3 {
	case 2: // square
		if step < 0x20 {
			return -128
		}
		return 127

	case 0: // sine
		var idx uint8
		if step&0x10 != 0 {
			idx = 0xF - (step & 0xF)
		} else {
			idx = step & 0xF
		}
		if step < 0x20 {
			return -sineLUT[idx]
		}
		return sineLUT[idx]

	case 1: // ramp down
		return int8(127 - int(step)*4)

	default: // pseudo-random
		c.nextRand = c.nextRand*1103515245 + 12345
		return int8((c.nextRand >> 16) & 0xFF)
	}
}
