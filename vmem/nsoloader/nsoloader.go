// Package nsoloader decodes Nintendo Switch NSO0 modules: a fixed header
// naming three LZ4-compressed segments (.text, .rodata, .data) plus an
// uncompressed .bss tail. Segments use raw LZ4 block compression, not the
// framed format, hence lz4.UncompressBlock.
package nsoloader

import (
	"encoding/binary"

	"github.com/il2cppcore/il2cppcore/ilerr"
	"github.com/il2cppcore/il2cppcore/vmem"
	"github.com/pierrec/lz4/v4"
)

const (
	magic      = "NSO0"
	headerSize = 0x100

	flagTextCompressed = 1 << 0
	flagRoCompressed   = 1 << 1
	flagDataCompressed = 1 << 2
)

type segmentHeader struct {
	FileOffset   uint32
	MemoryOffset uint32
	DecompSize   uint32
}

// Image is a decoded NSO module implementing vmem.Image. Segment.FileSize
// is the decompressed segment length; it equals Segment.Size for .text and
// .rodata, while .data's Size also covers the zero-filled .bss tail. LZ4
// segments are expanded once at load time, so downstream readers always
// see decompressed bytes regardless of how the module was stored on disk.
type Image struct {
	vmem.Base
}

// Load decompresses an NSO0 module's three segments and exposes them as a
// vmem.Image. The returned Image.Bytes() is the decompressed "flattened"
// image, not the original compressed file.
func Load(data []byte) (*Image, error) {
	if len(data) < headerSize {
		return nil, ilerr.New(ilerr.MalformedBinary, "file too small to contain an NSO0 header")
	}
	if string(data[0:4]) != magic {
		return nil, ilerr.New(ilerr.MalformedBinary, "NSO0 magic not found")
	}

	flags := binary.LittleEndian.Uint32(data[0x0C:])
	text := readSegmentHeader(data[0x10:])
	ro := readSegmentHeader(data[0x20:])
	dat := readSegmentHeader(data[0x30:])
	bssSize := binary.LittleEndian.Uint32(data[0x3C:])
	textCompSize := binary.LittleEndian.Uint32(data[0x60:])
	roCompSize := binary.LittleEndian.Uint32(data[0x64:])
	dataCompSize := binary.LittleEndian.Uint32(data[0x68:])

	textBytes, err := extract(data, text.FileOffset, textCompSize, text.DecompSize, flags&flagTextCompressed != 0)
	if err != nil {
		return nil, ilerr.Wrap(ilerr.MalformedBinary, ".text segment", err)
	}
	roBytes, err := extract(data, ro.FileOffset, roCompSize, ro.DecompSize, flags&flagRoCompressed != 0)
	if err != nil {
		return nil, ilerr.Wrap(ilerr.MalformedBinary, ".rodata segment", err)
	}
	dataBytes, err := extract(data, dat.FileOffset, dataCompSize, dat.DecompSize, flags&flagDataCompressed != 0)
	if err != nil {
		return nil, ilerr.Wrap(ilerr.MalformedBinary, ".data segment", err)
	}

	// Flatten the three segments plus a zero-filled .bss tail into one
	// contiguous buffer addressed by MemoryOffset, the layout every other
	// loader's vmem.Base assumes.
	flatSize := dat.MemoryOffset + uint32(len(dataBytes)) + bssSize
	flat := make([]byte, flatSize)
	copy(flat[text.MemoryOffset:], textBytes)
	copy(flat[ro.MemoryOffset:], roBytes)
	copy(flat[dat.MemoryOffset:], dataBytes)

	segs := []vmem.Segment{
		{Name: ".text", VA: uint64(text.MemoryOffset), Size: uint64(len(textBytes)), FileOffset: uint64(text.MemoryOffset), FileSize: uint64(len(textBytes)), Readable: true, Executable: true},
		{Name: ".rodata", VA: uint64(ro.MemoryOffset), Size: uint64(len(roBytes)), FileOffset: uint64(ro.MemoryOffset), FileSize: uint64(len(roBytes)), Readable: true},
		{Name: ".data", VA: uint64(dat.MemoryOffset), Size: uint64(len(dataBytes)) + uint64(bssSize), FileOffset: uint64(dat.MemoryOffset), FileSize: uint64(len(dataBytes)), Readable: true, Writable: true},
	}

	return &Image{Base: vmem.Base{
		Data:    flat,
		Word:    8,
		Entry:   uint64(text.MemoryOffset),
		SegList: segs,
	}}, nil
}

func readSegmentHeader(b []byte) segmentHeader {
	return segmentHeader{
		FileOffset:   binary.LittleEndian.Uint32(b[0:]),
		MemoryOffset: binary.LittleEndian.Uint32(b[4:]),
		DecompSize:   binary.LittleEndian.Uint32(b[8:]),
	}
}

// extract returns a segment's decompressed bytes, running it through LZ4
// block decompression when compressed is set.
func extract(data []byte, fileOffset, compSize, decompSize uint32, compressed bool) ([]byte, error) {
	end := uint64(fileOffset) + uint64(compSize)
	if end > uint64(len(data)) {
		return nil, ilerr.New(ilerr.UnexpectedEof, "segment runs past end of file").WithOffset(int64(fileOffset))
	}
	src := data[fileOffset:end]
	if !compressed {
		return src, nil
	}
	dst := make([]byte, decompSize)
	n, err := lz4.UncompressBlock(src, dst)
	if err != nil {
		return nil, err
	}
	return dst[:n], nil
}
