package registration

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/il2cppcore/il2cppcore/ilerr"
	"github.com/il2cppcore/il2cppcore/vmem"
)

// fakeImage is a minimal 64-bit, single-segment vmem.Image for exercising
// the locator without a real executable loader.
func fakeImage(data []byte) vmem.Image {
	b := &vmem.Base{
		Data: data,
		Word: 8,
		SegList: []vmem.Segment{
			{Name: ".data", VA: 0x10000, Size: uint64(len(data)), FileOffset: 0, FileSize: uint64(len(data)), Readable: true, Writable: true},
		},
	}
	return b
}

func putWord(buf []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(buf[off:], v)
}

func TestCodeRegistrationFieldCount(t *testing.T) {
	cases := []struct {
		version float64
		want    int
	}{
		{16, 13},
		{24.5, 13},
		{29, 14},
		{29.1, 16},
		{31, 16},
	}
	for _, c := range cases {
		if got := codeRegistrationFieldCount(c.version); got != c.want {
			t.Fatalf("codeRegistrationFieldCount(%v) = %d, want %d", c.version, got, c.want)
		}
	}
}

// buildFakeRegistrationBlob lays out, at fixed offsets, a CodeRegistration-
// shaped struct (seeded with methodsCount) and a MetadataRegistration-shaped
// struct (seeded with typeDefsCount), each with every follow-on pointer
// field pointing back into the same mapped segment so the locator's score
// reaches 100%.
func buildFakeRegistrationBlob(methodsCount, typeDefsCount uint64, crFields, mrFields int) []byte {
	word := 8
	crOff := 0x100
	mrOff := 0x400
	size := mrOff + mrFields*word + 0x100
	buf := make([]byte, size)

	putWord(buf, crOff, methodsCount)
	for i := 1; i < crFields; i++ {
		putWord(buf, crOff+i*word, 0x10000+uint64(crOff)) // points back into segment
	}

	putWord(buf, mrOff, typeDefsCount)
	for i := 1; i < mrFields; i++ {
		putWord(buf, mrOff+i*word, 0x10000+uint64(mrOff))
	}

	return buf
}

func TestLocateFindsBothRecords(t *testing.T) {
	methodsCount := uint64(40)
	typeDefsCount := uint64(10)
	data := buildFakeRegistrationBlob(methodsCount, typeDefsCount, 13, metadataRegistrationFieldCount)
	img := fakeImage(data)

	st, err := Locate(img, 24.1, methodsCount, typeDefsCount, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.CodeRegistrationVA != 0x10000+0x100 {
		t.Fatalf("unexpected CodeRegistration VA: %#x", st.CodeRegistrationVA)
	}
	if st.MetadataRegistrationVA != 0x10000+0x400 {
		t.Fatalf("unexpected MetadataRegistration VA: %#x", st.MetadataRegistrationVA)
	}
	if len(st.CodeRegistrationFields) != 13 {
		t.Fatalf("expected 13 CodeRegistration fields, got %d", len(st.CodeRegistrationFields))
	}
}

func TestLocateFailsWhenNoCandidateMatches(t *testing.T) {
	img := fakeImage(make([]byte, 0x1000))
	_, err := Locate(img, 24.1, 40, 10, DefaultOptions())
	var ie *ilerr.Error
	if !errors.As(err, &ie) || ie.Kind != ilerr.RegistrationNotFound {
		t.Fatalf("expected RegistrationNotFound, got %v", err)
	}
}

func TestLocateRejectsPartialScoreByDefault(t *testing.T) {
	methodsCount := uint64(40)
	typeDefsCount := uint64(10)
	data := buildFakeRegistrationBlob(methodsCount, typeDefsCount, 13, metadataRegistrationFieldCount)

	// Corrupt one CodeRegistration follow-on pointer so it no longer
	// dereferences into the mapped segment.
	putWord(data, 0x100+1*8, 0xdeadbeef)
	img := fakeImage(data)

	_, err := Locate(img, 24.1, methodsCount, typeDefsCount, DefaultOptions())
	var ie *ilerr.Error
	if !errors.As(err, &ie) || ie.Kind != ilerr.RegistrationNotFound {
		t.Fatalf("expected RegistrationNotFound with RequireFullScore, got %v", err)
	}
}

// symImage wraps a Base with a symbol table, standing in for an
// unstripped ELF/Mach-O build.
type symImage struct {
	*vmem.Base
	syms map[string]uint64
}

func (s *symImage) Symbol(name string) (uint64, bool) {
	va, ok := s.syms[name]
	return va, ok
}

func TestLocatePrefersSymbolsOverScan(t *testing.T) {
	// Seed the blob with counts the scan would never match, so only the
	// symbol fast path can succeed.
	data := buildFakeRegistrationBlob(999, 888, 13, metadataRegistrationFieldCount)
	img := &symImage{
		Base: &vmem.Base{
			Data: data,
			Word: 8,
			SegList: []vmem.Segment{
				{Name: ".data", VA: 0x10000, Size: uint64(len(data)), FileOffset: 0, FileSize: uint64(len(data)), Readable: true, Writable: true},
			},
		},
		syms: map[string]uint64{
			"g_CodeRegistration":     0x10000 + 0x100,
			"g_MetadataRegistration": 0x10000 + 0x400,
		},
	}

	st, err := Locate(img, 24.1, 40, 10, DefaultOptions())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if st.CodeRegistrationVA != 0x10000+0x100 || st.MetadataRegistrationVA != 0x10000+0x400 {
		t.Fatalf("expected symbol-resolved VAs, got %#x / %#x", st.CodeRegistrationVA, st.MetadataRegistrationVA)
	}
	if st.CodeRegistrationFields[0] != 999 {
		t.Fatalf("expected fields read from the symbol address, got %v", st.CodeRegistrationFields)
	}
}

func TestLocateSkipsNonReadableSegments(t *testing.T) {
	methodsCount := uint64(40)
	typeDefsCount := uint64(10)
	data := buildFakeRegistrationBlob(methodsCount, typeDefsCount, 13, metadataRegistrationFieldCount)

	b := &vmem.Base{
		Data: data,
		Word: 8,
		SegList: []vmem.Segment{
			{Name: ".data", VA: 0x10000, Size: uint64(len(data)), FileOffset: 0, FileSize: uint64(len(data))},
		},
	}

	_, err := Locate(b, 24.1, methodsCount, typeDefsCount, DefaultOptions())
	var ie *ilerr.Error
	if !errors.As(err, &ie) || ie.Kind != ilerr.RegistrationNotFound {
		t.Fatalf("expected the scan to skip a non-readable segment, got %v", err)
	}
}

func TestLocateAcceptsPartialScoreWhenRelaxed(t *testing.T) {
	methodsCount := uint64(40)
	typeDefsCount := uint64(10)
	data := buildFakeRegistrationBlob(methodsCount, typeDefsCount, 13, metadataRegistrationFieldCount)
	putWord(data, 0x100+1*8, 0xdeadbeef)
	img := fakeImage(data)

	st, err := Locate(img, 24.1, methodsCount, typeDefsCount, Options{RequireFullScore: false})
	if err != nil {
		t.Fatalf("unexpected error with relaxed scoring: %v", err)
	}
	if st.CodeRegistrationVA != 0x10000+0x100 {
		t.Fatalf("unexpected CodeRegistration VA: %#x", st.CodeRegistrationVA)
	}
}
