package xm

import (
	"math"
	"unsafe"
)

// bufReader gives bounded, zero-padded access to module bytes: any read
// that runs past the end of the buffer returns zero bytes rather than
// erroring, so the loader never touches out-of-bounds memory no matter how
// truncated its input is.
type bufReader struct {
	data []byte
}

func (r bufReader) u8(offset int) uint8 {
	if offset < 0 || offset >= len(r.data) {
		return 0
	}
	return r.data[offset]
}

func (r bufReader) u16(offset int) uint16 {
	return uint16(r.u8(offset)) | uint16(r.u8(offset+1))<<8
}

func (r bufReader) u32(offset int) uint32 {
	return uint32(r.u16(offset)) | uint32(r.u16(offset+2))<<16
}

// memcpyPad copies n bytes starting at offset into dst, zero-padding
// whatever part of the range lies past the end of the buffer.
func (r bufReader) memcpyPad(dst []byte, offset, n int) {
	for i := 0; i < n; i++ {
		dst[i] = r.u8(offset + i)
	}
}

func (r bufReader) stringAt(offset, n int) string {
	buf := make([]byte, n)
	r.memcpyPad(buf, offset, n)
	end := n
	for end > 0 && (buf[end-1] == 0 || buf[end-1] == ' ') {
		end--
	}
	return string(buf[:end])
}

// PrescanResult holds the exact table sizes a module will need, computed by
// a single forward walk over the byte stream. It lets NewContext carve
// every slice in Module to its final size up front, so no allocation
// happens once playback starts.
type PrescanResult struct {
	numChannels    uint16
	numPatterns    uint16
	numInstruments uint16
	moduleLength   uint16

	totalSlots      uint64
	totalSamples    uint64
	totalSampleData uint64
}

// ArenaSize returns the total number of bytes of live playback state a
// context built from this prescan will hold, summed over every table, the
// per-channel state and the row-loop counter. Returns -1 if the total
// exceeds math.MaxInt32, in which case NewContext fails with ErrOutOfMemory.
func (p PrescanResult) ArenaSize() int {
	size := uint64(unsafe.Sizeof(Context{}))
	size += uint64(p.numPatterns) * uint64(unsafe.Sizeof(Pattern{}))
	size += p.totalSlots * uint64(unsafe.Sizeof(PatternSlot{}))
	size += uint64(p.numInstruments) * uint64(unsafe.Sizeof(Instrument{}))
	size += p.totalSamples * uint64(unsafe.Sizeof(Sample{}))
	size += p.totalSampleData * uint64(unsafe.Sizeof(float32(0)))
	size += uint64(p.numChannels) * uint64(unsafe.Sizeof(channelState{}))
	size += uint64(maxRowsPerPattern) * uint64(p.moduleLength)
	if size > math.MaxInt32 {
		return -1
	}
	return int(size)
}

// Prescan walks the module header, pattern headers, instrument headers and
// sample headers (but not their waveform payloads byte-by-byte) to compute
// how large every Module table must be. It performs no allocation.
func Prescan(data []byte) (PrescanResult, error) {
	if err := checkSanityPreload(data); err != nil {
		return PrescanResult{}, err
	}

	r := bufReader{data}
	var out PrescanResult

	offset := 60
	out.moduleLength = r.u16(offset + 4)
	out.numChannels = r.u16(offset + 8)
	out.numPatterns = r.u16(offset + 10)
	out.numInstruments = r.u16(offset + 12)

	headerSize := r.u32(offset)
	offset += int(headerSize)

	for i := uint16(0); i < out.numPatterns; i++ {
		numRows := clampNumRows(r.u16(offset + 5))
		packedSize := r.u16(offset + 7)
		out.totalSlots += uint64(numRows) * uint64(out.numChannels)

		offset += int(r.u32(offset)) + int(packedSize)
	}

	for i := uint16(0); i < out.numInstruments; i++ {
		numSamples := r.u16(offset + 27)
		out.totalSamples += uint64(numSamples)

		var sampleHeaderSize uint32
		if numSamples > 0 {
			sampleHeaderSize = r.u32(offset + 29)
		}

		offset += int(r.u32(offset))

		var dataBytes uint64
		for j := uint16(0); j < numSamples; j++ {
			dataBytes += uint64(r.u32(offset))
			offset += int(sampleHeaderSize)
		}
		out.totalSampleData += dataBytes
		offset += int(dataBytes)
	}

	return out, nil
}

// clampNumRows forces a pattern's stored row count into the 1..256 range
// both Prescan and loadModule agree on, so the slot arena they size and
// fill from the same headers always line up.
func clampNumRows(rows uint16) uint16 {
	if rows == 0 {
		return 1
	}
	if rows > maxRowsPerPattern {
		return maxRowsPerPattern
	}
	return rows
}

// checkSanityPreload validates the bytes at the head of the buffer are
// plausibly an XM 1.04 module, before any allocation is attempted.
func checkSanityPreload(data []byte) error {
	if len(data) < 60 {
		return ErrMalformed
	}
	if string(data[0:17]) != "Extended Module: " {
		return ErrMalformed
	}
	if data[37] != 0x1A {
		return ErrMalformed
	}
	if data[58] != 0x04 || data[59] != 0x01 {
		return ErrMalformed
	}
	return nil
}
