// Package wasmloader parses the handful of a WebAssembly module's binary
// sections IL2CPP scanning needs: the memory section (for linear memory
// size) and the data section (for the segments that seed it), flattening
// them into one byte buffer addressed by linear-memory offset. The module
// format is a byte-oriented (id, size, payload) section stream with
// LEB128-encoded integers; nothing else of it matters here, so the walk
// is done directly rather than through a full wasm runtime dependency.
package wasmloader

import (
	"encoding/binary"

	"github.com/il2cppcore/il2cppcore/ilerr"
	"github.com/il2cppcore/il2cppcore/vmem"
)

const (
	wasmVersion = 1

	sectionMemory = 5
	sectionData   = 11

	pageSize = 65536
)

// Image is a parsed WASM module implementing vmem.Image. Virtual addresses
// are linear-memory byte offsets, the only address space a WASM module
// has.
type Image struct {
	vmem.Base
}

// Load parses a WASM module out of data.
func Load(data []byte) (*Image, error) {
	if len(data) < 8 || string(data[0:4]) != "\x00asm" {
		return nil, ilerr.New(ilerr.MalformedBinary, "WASM magic not found")
	}
	if binary.LittleEndian.Uint32(data[4:8]) != wasmVersion {
		return nil, ilerr.New(ilerr.UnsupportedBinaryFormat, "unsupported WASM binary version")
	}

	var memPages uint32
	type dataSeg struct {
		offset uint32
		bytes  []byte
	}
	var segs []dataSeg

	pos := 8
	for pos < len(data) {
		id := data[pos]
		pos++
		size, n, err := readULEB128(data[pos:])
		if err != nil {
			return nil, ilerr.Wrap(ilerr.MalformedBinary, "reading section header", err)
		}
		pos += n
		end := pos + int(size)
		if end > len(data) {
			return nil, ilerr.New(ilerr.UnexpectedEof, "section runs past end of file")
		}
		body := data[pos:end]

		switch id {
		case sectionMemory:
			pages, err := parseMemorySection(body)
			if err != nil {
				return nil, err
			}
			memPages = pages
		case sectionData:
			parsed, err := parseDataSection(body)
			if err != nil {
				return nil, err
			}
			for _, p := range parsed {
				segs = append(segs, dataSeg{offset: p.offset, bytes: p.bytes})
			}
		}
		pos = end
	}

	memSize := uint64(memPages) * pageSize
	for _, s := range segs {
		if need := uint64(s.offset) + uint64(len(s.bytes)); need > memSize {
			memSize = need
		}
	}

	flat := make([]byte, memSize)
	var vsegs []vmem.Segment
	for _, s := range segs {
		copy(flat[s.offset:], s.bytes)
		vsegs = append(vsegs, vmem.Segment{
			VA:         uint64(s.offset),
			Size:       uint64(len(s.bytes)),
			FileOffset: uint64(s.offset),
			FileSize:   uint64(len(s.bytes)),
			Readable:   true,
			Writable:   true,
		})
	}
	if len(vsegs) == 0 {
		vsegs = []vmem.Segment{{VA: 0, Size: memSize, FileOffset: 0, FileSize: memSize, Readable: true, Writable: true}}
	}

	return &Image{Base: vmem.Base{
		Data:    flat,
		Word:    4,
		SegList: vsegs,
	}}, nil
}

func parseMemorySection(body []byte) (uint32, error) {
	count, n, err := readULEB128(body)
	if err != nil || count == 0 {
		return 0, err
	}
	pos := n + 1 // skip the limits flags byte
	minPages, _, err := readULEB128(body[pos:])
	if err != nil {
		return 0, err
	}
	return uint32(minPages), nil
}

type parsedDataSeg struct {
	offset uint32
	bytes  []byte
}

func parseDataSection(body []byte) ([]parsedDataSeg, error) {
	count, n, err := readULEB128(body)
	if err != nil {
		return nil, err
	}
	pos := n
	out := make([]parsedDataSeg, 0, count)
	for i := uint64(0); i < count; i++ {
		memidx, n, err := readULEB128(body[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		_ = memidx

		// Offset expression: i32.const <sleb128> end (0x41 ... 0x0b).
		if pos >= len(body) || body[pos] != 0x41 {
			return nil, ilerr.New(ilerr.MalformedBinary, "unsupported data segment offset expression")
		}
		pos++
		offset, n, err := readSLEB128(body[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		if pos >= len(body) || body[pos] != 0x0b {
			return nil, ilerr.New(ilerr.MalformedBinary, "malformed offset expression terminator")
		}
		pos++

		size, n, err := readULEB128(body[pos:])
		if err != nil {
			return nil, err
		}
		pos += n
		end := pos + int(size)
		if end > len(body) {
			return nil, ilerr.New(ilerr.UnexpectedEof, "data segment runs past end of section")
		}
		out = append(out, parsedDataSeg{offset: uint32(offset), bytes: body[pos:end]})
		pos = end
	}
	return out, nil
}

func readULEB128(b []byte) (uint64, int, error) {
	var result uint64
	var shift uint
	for i := 0; i < len(b); i++ {
		byt := b[i]
		result |= uint64(byt&0x7f) << shift
		if byt&0x80 == 0 {
			return result, i + 1, nil
		}
		shift += 7
	}
	return 0, 0, ilerr.New(ilerr.UnexpectedEof, "truncated LEB128 value")
}

func readSLEB128(b []byte) (int64, int, error) {
	var result int64
	var shift uint
	var byt byte
	i := 0
	for ; i < len(b); i++ {
		byt = b[i]
		result |= int64(byt&0x7f) << shift
		shift += 7
		if byt&0x80 == 0 {
			break
		}
	}
	if i == len(b) {
		return 0, 0, ilerr.New(ilerr.UnexpectedEof, "truncated LEB128 value")
	}
	if shift < 64 && byt&0x40 != 0 {
		result |= -1 << shift
	}
	return result, i + 1, nil
}
