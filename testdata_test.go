package xm

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"testing"

	clone "github.com/huandu/go-clone/generic"
)

const testSampleLength = 64

// testSampleSpec and testInstrumentSpec describe fixture instruments at the
// level of the file format, so every test context still goes through
// Prescan and the real loader.
type testSampleSpec struct {
	data       []int8  // 8-bit PCM, pre-delta-encoding
	data16     []int16 // 16-bit PCM, used instead of data when bits == 16
	bits       uint8   // 0 means 8
	loopType   LoopType
	loopStart  uint32 // in sample points
	loopLength uint32 // in sample points
	volume     uint8
	panning    uint8
	fineTune   int8
	relNote    int8
}

type testInstrumentSpec struct {
	samples       []testSampleSpec
	sampleOfNotes [numNotes]uint8
	volEnv        Envelope
	panEnv        Envelope
	fadeout       uint16
	vibType       uint8
	vibSweep      uint8
	vibDepth      uint8
	vibRate       uint8
}

// testInstruments is the shared fixture bank: one instrument holding one
// flat 8-bit sample at full volume, centre panning, forward loop over the
// whole waveform. Tests that need a variation deep-clone the bank first so
// the shared template stays pristine across tests.
var testInstruments = []testInstrumentSpec{
	{
		samples: []testSampleSpec{{
			data:       flatSampleData(testSampleLength, 64),
			loopType:   ForwardLoop,
			loopLength: testSampleLength,
			volume:     64,
			panning:    128,
		}},
	},
}

func cloneTestInstruments() []testInstrumentSpec {
	return clone.Clone(testInstruments)
}

func flatSampleData(n int, v int8) []int8 {
	d := make([]int8, n)
	for i := range d {
		d[i] = v
	}
	return d
}

func rampSampleData(n int, step int8) []int8 {
	d := make([]int8, n)
	for i := range d {
		d[i] = int8(i) * step
	}
	return d
}

// newContextWithTestPattern builds a one-pattern module from rows of test
// notation (see decodeTestCol) over the shared instrument bank.
func newContextWithTestPattern(t *testing.T, rows [][]string) *Context {
	t.Helper()
	return newContextWithTestPatterns(t, []uint8{0}, [][][]string{rows}, cloneTestInstruments())
}

func newContextWithTestPatterns(t *testing.T, pot []uint8, patterns [][][]string, instruments []testInstrumentSpec) *Context {
	t.Helper()
	ctx, err := NewContext(buildTestXM(pot, patterns, instruments), 44100)
	if err != nil {
		t.Fatalf("could not create test context: %v", err)
	}
	return ctx
}

func emptyTestRows(rows, channels int) [][]string {
	out := make([][]string, rows)
	for i := range out {
		out[i] = make([]string, channels)
	}
	return out
}

// buildTestXM assembles a complete XM 1.04 byte stream: header, one block
// per pattern (uncompressed slot packing), then the instrument bank with
// delta-encoded sample payloads.
func buildTestXM(pot []uint8, patterns [][][]string, instruments []testInstrumentSpec) []byte {
	numChannels := len(patterns[0][0])

	var buf []byte
	buf = append(buf, []byte("Extended Module: ")...)
	buf = append(buf, make([]byte, moduleNameLength)...)
	buf = append(buf, 0x1A)
	buf = append(buf, make([]byte, trackerNameLength)...)
	buf = appendU16(buf, 0x0104)

	header := make([]byte, 0, 276)
	header = appendU32(header, 276)
	header = appendU16(header, uint16(len(pot)))
	header = appendU16(header, 0) // restart position
	header = appendU16(header, uint16(numChannels))
	header = appendU16(header, uint16(len(patterns)))
	header = appendU16(header, uint16(len(instruments)))
	header = appendU16(header, 1)   // linear frequencies
	header = appendU16(header, 6)   // tempo
	header = appendU16(header, 125) // bpm
	table := make([]byte, patternOrderTableLen)
	copy(table, pot)
	header = append(header, table...)
	buf = append(buf, header...)

	for _, rows := range patterns {
		packed := encodeTestPattern(rows)
		buf = appendU32(buf, 9)
		buf = append(buf, 0) // packing type
		buf = appendU16(buf, uint16(len(rows)))
		buf = appendU16(buf, uint16(len(packed)))
		buf = append(buf, packed...)
	}

	for _, ins := range instruments {
		buf = appendTestInstrument(buf, ins)
	}

	return buf
}

func encodeTestPattern(rows [][]string) []byte {
	var out []byte
	for _, row := range rows {
		for _, col := range row {
			note, instr, vol, eff, param := decodeTestCol(col)
			out = append(out, note, instr, vol, eff, param)
		}
	}
	return out
}

// decodeTestCol turns one column of test notation into the five raw slot
// bytes as they appear in the file:
//
//	"C-5 01 40 A0F"  play C-5 with instrument 1, volume column 0x40,
//	                 effect A param 0x0F
//	"=== .. .. ..."  key off
//	""               empty slot
//
// Effect letters follow tracker convention: 0-9 and A-F are the hex
// effects, G and later continue upwards (G=16, H=17, ... X=33).
func decodeTestCol(col string) (note, instr, vol, eff, param uint8) {
	if col == "" {
		return
	}
	parts := strings.Fields(col)
	if len(parts) != 4 {
		panic(fmt.Sprintf("malformed test column %q", col))
	}
	note = decodeTestNote(parts[0])
	instr = uint8(decodeTestInt(parts[1], 10))
	vol = uint8(decodeTestInt(parts[2], 16))
	if parts[3] != "..." {
		eff = decodeTestEffectType(parts[3][0])
		param = uint8(decodeTestInt(parts[3][1:3], 16))
	}
	return
}

var testNoteNames = []string{
	"C-", "C#", "D-", "D#", "E-", "F-", "F#", "G-", "G#", "A-", "A#", "B-",
}

func decodeTestNote(s string) uint8 {
	switch s {
	case "...":
		return 0
	case "===":
		return numNotes + 1 // key off as stored in the file
	}
	for i, name := range testNoteNames {
		if s[0:2] == name {
			return uint8(1 + 12*int(s[2]-'0') + i)
		}
	}
	panic(fmt.Sprintf("invalid test note %q", s))
}

func decodeTestInt(s string, base int) int {
	if s == ".." {
		return 0
	}
	v, err := strconv.ParseUint(s, base, 8)
	if err != nil {
		panic(err)
	}
	return int(v)
}

func decodeTestEffectType(c byte) uint8 {
	switch {
	case c >= '0' && c <= '9':
		return c - '0'
	case c >= 'A' && c <= 'Z':
		return c - 'A' + 10
	}
	panic(fmt.Sprintf("invalid test effect letter %q", c))
}

func appendTestInstrument(buf []byte, ins testInstrumentSpec) []byte {
	if len(ins.samples) == 0 {
		hdr := make([]byte, 29)
		binary.LittleEndian.PutUint32(hdr[0:], 29)
		return append(buf, hdr...)
	}

	hdr := make([]byte, 263)
	binary.LittleEndian.PutUint32(hdr[0:], 263)
	binary.LittleEndian.PutUint16(hdr[27:], uint16(len(ins.samples)))
	binary.LittleEndian.PutUint32(hdr[29:], 40) // sample header size
	copy(hdr[33:], ins.sampleOfNotes[:])

	putEnvelope := func(points, count, flagsAt int, env Envelope) {
		for i := 0; i < int(env.NumPoints); i++ {
			binary.LittleEndian.PutUint16(hdr[points+4*i:], env.Points[i].Frame)
			binary.LittleEndian.PutUint16(hdr[points+4*i+2:], uint16(env.Points[i].Value))
		}
		hdr[count] = env.NumPoints
		var flags uint8
		if env.Enabled {
			flags |= 1
		}
		if env.SustainEnabled {
			flags |= 2
		}
		if env.LoopEnabled {
			flags |= 4
		}
		hdr[flagsAt] = flags
	}
	putEnvelope(129, 225, 233, ins.volEnv)
	putEnvelope(177, 226, 234, ins.panEnv)
	hdr[227] = ins.volEnv.SustainPoint
	hdr[228] = ins.volEnv.LoopStartPoint
	hdr[229] = ins.volEnv.LoopEndPoint
	hdr[230] = ins.panEnv.SustainPoint
	hdr[231] = ins.panEnv.LoopStartPoint
	hdr[232] = ins.panEnv.LoopEndPoint
	hdr[235] = ins.vibType
	hdr[236] = ins.vibSweep
	hdr[237] = ins.vibDepth
	hdr[238] = ins.vibRate
	binary.LittleEndian.PutUint16(hdr[239:], ins.fadeout)
	buf = append(buf, hdr...)

	for _, s := range ins.samples {
		buf = appendTestSampleHeader(buf, s)
	}
	for _, s := range ins.samples {
		buf = appendTestSampleData(buf, s)
	}
	return buf
}

func appendTestSampleHeader(buf []byte, s testSampleSpec) []byte {
	hdr := make([]byte, 40)
	byteScale := uint32(1)
	length := uint32(len(s.data))
	if s.bits == 16 {
		byteScale = 2
		length = uint32(len(s.data16))
	}
	binary.LittleEndian.PutUint32(hdr[0:], length*byteScale)
	binary.LittleEndian.PutUint32(hdr[4:], s.loopStart*byteScale)
	binary.LittleEndian.PutUint32(hdr[8:], s.loopLength*byteScale)
	hdr[12] = s.volume
	hdr[13] = uint8(s.fineTune)
	flags := uint8(s.loopType)
	if s.bits == 16 {
		flags |= 1 << 4
	}
	hdr[14] = flags
	hdr[15] = s.panning
	hdr[16] = uint8(s.relNote)
	return append(buf, hdr...)
}

func appendTestSampleData(buf []byte, s testSampleSpec) []byte {
	if s.bits == 16 {
		var prev int16
		for _, v := range s.data16 {
			buf = appendU16(buf, uint16(v-prev))
			prev = v
		}
		return buf
	}
	var prev int8
	for _, v := range s.data {
		buf = append(buf, uint8(v-prev))
		prev = v
	}
	return buf
}

// buildMinimalXM assembles the smallest valid XM 1.04 byte stream this
// loader accepts: empty patterns, no instruments.
func buildMinimalXM(numChannels, numPatterns, patternRows uint16) []byte {
	var buf []byte

	buf = append(buf, []byte("Extended Module: ")...)
	buf = append(buf, make([]byte, moduleNameLength)...)
	buf = append(buf, 0x1A)
	buf = append(buf, make([]byte, trackerNameLength)...)
	buf = appendU16(buf, 0x0104) // version

	header := make([]byte, 0, 276)
	header = appendU32(header, 276) // header size, including this field
	header = appendU16(header, 1)   // song length
	header = appendU16(header, 0)   // restart position
	header = appendU16(header, numChannels)
	header = appendU16(header, numPatterns)
	header = appendU16(header, 0)                 // num instruments
	header = appendU16(header, 1)                 // flags: linear frequencies
	header = appendU16(header, 6)                 // tempo
	header = appendU16(header, 125)               // bpm
	header = append(header, make([]byte, 256)...) // pattern order table
	buf = append(buf, header...)

	for i := uint16(0); i < numPatterns; i++ {
		pat := make([]byte, 0, 9)
		pat = appendU32(pat, 9)
		pat = append(pat, 0) // packing type
		pat = appendU16(pat, patternRows)
		pat = appendU16(pat, 0) // packed size, empty rows
		buf = append(buf, pat...)
	}

	return buf
}

func appendU16(b []byte, v uint16) []byte {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return append(b, tmp[:]...)
}

func appendU32(b []byte, v uint32) []byte {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return append(b, tmp[:]...)
}
