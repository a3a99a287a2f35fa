package vmem

import (
	"errors"
	"testing"

	"github.com/il2cppcore/il2cppcore/ilerr"
)

func newBase() *Base {
	data := make([]byte, 0x2000)
	for i := range data {
		data[i] = byte(i)
	}
	return &Base{
		Data: data,
		Word: 8,
		SegList: []Segment{
			{Name: ".text", VA: 0x1000, Size: 0x1000, FileOffset: 0x0, FileSize: 0x1000, Readable: true, Executable: true},
			{Name: ".bss", VA: 0x2000, Size: 0x1000, FileOffset: 0x1000, FileSize: 0x500, Readable: true, Writable: true},
		},
	}
}

func TestVAToOffsetWithinSegment(t *testing.T) {
	b := newBase()
	off, err := b.VAToOffset(0x1010)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if off != 0x10 {
		t.Fatalf("expected offset 0x10, got %#x", off)
	}
}

func TestVAToOffsetUnmapped(t *testing.T) {
	b := newBase()
	_, err := b.VAToOffset(0x5000)
	var ie *ilerr.Error
	if !errors.As(err, &ie) || ie.Kind != ilerr.UnmappedAddress {
		t.Fatalf("expected UnmappedAddress, got %v", err)
	}
}

func TestVAToOffsetZeroFilledTail(t *testing.T) {
	b := newBase()
	// .bss: VA 0x2000-0x3000, but only 0x500 bytes are file-backed.
	_, err := b.VAToOffset(0x2600)
	var ie *ilerr.Error
	if !errors.As(err, &ie) || ie.Kind != ilerr.UnmappedAddress {
		t.Fatalf("expected UnmappedAddress for zero-filled tail, got %v", err)
	}
}

func TestOffsetToVARoundTrip(t *testing.T) {
	b := newBase()
	for _, va := range []uint64{0x1000, 0x1234, 0x1fff, 0x2000, 0x24ff} {
		off, err := b.VAToOffset(va)
		if err != nil {
			t.Fatalf("VAToOffset(%#x): %v", va, err)
		}
		back, err := b.OffsetToVA(off)
		if err != nil {
			t.Fatalf("OffsetToVA(%#x): %v", off, err)
		}
		if back != va {
			t.Fatalf("round trip mismatch: va=%#x offset=%#x back=%#x", va, off, back)
		}
	}
}

func TestReadAtReturnsExactBytes(t *testing.T) {
	b := newBase()
	got, err := b.ReadAt(0x1010, 4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []byte{0x10, 0x11, 0x12, 0x13}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ReadAt mismatch at %d: got %#x want %#x", i, got[i], want[i])
		}
	}
}

func TestReadAtPastSegmentEndFails(t *testing.T) {
	b := newBase()
	_, err := b.ReadAt(0x1ffc, 16)
	if err == nil {
		t.Fatal("expected error reading past segment end")
	}
}

func TestReadAtNegativeSize(t *testing.T) {
	b := newBase()
	_, err := b.ReadAt(0x1000, -1)
	var ie *ilerr.Error
	if !errors.As(err, &ie) || ie.Kind != ilerr.UnmappedAddress {
		t.Fatalf("expected UnmappedAddress for negative size, got %v", err)
	}
}

func TestWordSizeSegmentsEntryPointBytes(t *testing.T) {
	b := newBase()
	b.Entry = 0x1100
	b.Word = 4
	if b.WordSize() != 4 {
		t.Fatalf("expected word size 4, got %d", b.WordSize())
	}
	if len(b.Segments()) != 2 {
		t.Fatalf("expected 2 segments, got %d", len(b.Segments()))
	}
	if b.EntryPoint() != 0x1100 {
		t.Fatalf("expected entry point 0x1100, got %#x", b.EntryPoint())
	}
	if len(b.Bytes()) != 0x2000 {
		t.Fatalf("expected 0x2000 bytes, got %#x", len(b.Bytes()))
	}
}
