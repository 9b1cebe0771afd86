package xm

import "testing"

func TestCheckSanityPreloadRejectsTruncated(t *testing.T) {
	if err := checkSanityPreload(make([]byte, 10)); err != ErrMalformed {
		t.Errorf("expected ErrMalformed for a too-short buffer, got %v", err)
	}
}

func TestCheckSanityPreloadRejectsBadMagic(t *testing.T) {
	data := buildMinimalXM(4, 1, 16)
	data[0] = 'x'
	if err := checkSanityPreload(data); err != ErrMalformed {
		t.Errorf("expected ErrMalformed for bad magic, got %v", err)
	}
}

func TestPrescanMinimalModule(t *testing.T) {
	data := buildMinimalXM(4, 2, 16)

	pre, err := Prescan(data)
	if err != nil {
		t.Fatalf("Prescan failed: %v", err)
	}
	if pre.numChannels != 4 {
		t.Errorf("expected 4 channels, got %d", pre.numChannels)
	}
	if pre.numPatterns != 2 {
		t.Errorf("expected 2 patterns, got %d", pre.numPatterns)
	}
	if pre.totalSlots != 2*16*4 {
		t.Errorf("expected %d total slots, got %d", 2*16*4, pre.totalSlots)
	}
	if pre.totalSamples != 0 || pre.totalSampleData != 0 {
		t.Errorf("expected no samples in an instrument-less module, got %d/%d", pre.totalSamples, pre.totalSampleData)
	}
}

func TestBoundedReadsPastEndReturnZero(t *testing.T) {
	r := bufReader{data: []byte{1, 2, 3}}
	if got := r.u8(100); got != 0 {
		t.Errorf("expected 0 reading past end, got %d", got)
	}
	if got := r.u32(1); got != 0x00000302 {
		t.Errorf("expected partial-then-zero read 0x302, got 0x%x", got)
	}
}
