// Package vmem provides a format-agnostic view over an IL2CPP host
// executable: a flat list of loaded segments and virtual-address <->
// file-offset translation, shared by every per-format loader. Everything
// downstream of a loader (registration scanning, type resolution) works
// against this view and never branches on container format again.
package vmem

import "github.com/il2cppcore/il2cppcore/ilerr"

// Segment is one mapped region of an executable image: its preferred
// virtual address, its size once loaded, where its initialized bytes
// live in the file, and its mapping protection.
type Segment struct {
	Name       string
	VA         uint64
	Size       uint64
	FileOffset uint64
	FileSize   uint64
	Readable   bool
	Writable   bool
	Executable bool
}

// contains reports whether va falls within this segment's virtual range.
func (s Segment) contains(va uint64) bool {
	return va >= s.VA && va < s.VA+s.Size
}

// Image is the common surface every per-format loader exposes to the
// registration locator and resolver.
type Image interface {
	// WordSize is 4 for 32-bit images, 8 for 64-bit images.
	WordSize() int
	// Segments returns every loaded segment in file order.
	Segments() []Segment
	// VAToOffset translates a virtual address to a file offset.
	VAToOffset(va uint64) (uint64, error)
	// OffsetToVA translates a file offset back to a virtual address.
	OffsetToVA(off uint64) (uint64, error)
	// ReadAt returns size bytes read starting at the given virtual address.
	ReadAt(va uint64, size int) ([]byte, error)
	// EntryPoint is the image's preferred entry-point virtual address, when
	// the format records one (0 if not applicable, e.g. a bare NSO module).
	EntryPoint() uint64
	// Bytes returns the whole backing file, for scanners that need to
	// search raw file content.
	Bytes() []byte
}

// SymbolSource is implemented by images whose format retained a symbol
// table. Shipped IL2CPP binaries are almost always stripped, so every
// consumer must treat this as an opportunistic fast path and fall back to
// scanning when the lookup misses.
type SymbolSource interface {
	Symbol(name string) (uint64, bool)
}

// Base implements the Segment-list bookkeeping (linear segment lookup,
// bounds checking) shared by every loader; each loader embeds it and only
// supplies format parsing, filling in Data, Word, Entry and SegList.
type Base struct {
	Data    []byte
	Word    int
	Entry   uint64
	SegList []Segment
}

func (b *Base) WordSize() int       { return b.Word }
func (b *Base) Segments() []Segment { return b.SegList }
func (b *Base) EntryPoint() uint64  { return b.Entry }
func (b *Base) Bytes() []byte       { return b.Data }

func (b *Base) segmentByVA(va uint64) *Segment {
	for i := range b.SegList {
		if b.SegList[i].contains(va) {
			return &b.SegList[i]
		}
	}
	return nil
}

func (b *Base) segmentByOffset(off uint64) *Segment {
	for i := range b.SegList {
		s := &b.SegList[i]
		if off >= s.FileOffset && off < s.FileOffset+s.FileSize {
			return s
		}
	}
	return nil
}

// VAToOffset translates a virtual address into a file offset using the
// segment table. A va that falls within a segment's virtual range but past
// its FileSize (a zero-filled tail, e.g. .bss) has no file-backed offset
// and returns an ilerr.UnmappedAddress error.
func (b *Base) VAToOffset(va uint64) (uint64, error) {
	s := b.segmentByVA(va)
	if s == nil {
		return 0, ilerr.New(ilerr.UnmappedAddress, "virtual address is not within any loaded segment").WithVA(va)
	}
	delta := va - s.VA
	if delta >= s.FileSize {
		return 0, ilerr.New(ilerr.UnmappedAddress, "virtual address falls in a zero-filled tail").WithVA(va)
	}
	return s.FileOffset + delta, nil
}

// OffsetToVA is the inverse of VAToOffset.
func (b *Base) OffsetToVA(off uint64) (uint64, error) {
	s := b.segmentByOffset(off)
	if s == nil {
		return 0, ilerr.New(ilerr.UnmappedAddress, "file offset is not within any loaded segment").WithOffset(int64(off))
	}
	return s.VA + (off - s.FileOffset), nil
}

// ReadAt reads size bytes of virtual memory starting at va. The whole
// range must be file-backed within one segment; a read that would run
// into a zero-filled tail or cross a segment boundary is rejected rather
// than silently truncated.
func (b *Base) ReadAt(va uint64, size int) ([]byte, error) {
	if size < 0 {
		return nil, ilerr.New(ilerr.UnmappedAddress, "negative read size").WithVA(va)
	}
	s := b.segmentByVA(va)
	if s == nil {
		return nil, ilerr.New(ilerr.UnmappedAddress, "virtual address is not within any loaded segment").WithVA(va)
	}
	delta := va - s.VA
	if delta >= s.FileSize {
		return nil, ilerr.New(ilerr.UnmappedAddress, "virtual address falls in a zero-filled tail").WithVA(va)
	}
	if uint64(size) > s.FileSize-delta {
		return nil, ilerr.New(ilerr.UnexpectedEof, "read runs past end of segment").WithVA(va)
	}
	off := s.FileOffset + delta
	end := off + uint64(size)
	if end > uint64(len(b.Data)) || end < off {
		return nil, ilerr.New(ilerr.UnexpectedEof, "read runs past end of file").WithVA(va)
	}
	return b.Data[off:end], nil
}
