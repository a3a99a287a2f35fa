// Package peloader parses a PE executable into a vmem.Image: the
// DOS-stub/NT-header/section-table walk and RVA<->offset translation,
// trimmed to what IL2CPP scanning needs (locating segments and
// translating addresses; no import/export/resource directory parsing).
package peloader

import (
	"bytes"
	"encoding/binary"

	"github.com/il2cppcore/il2cppcore/ilerr"
	"github.com/il2cppcore/il2cppcore/vmem"
)

const (
	imageDOSSignature     = 0x5A4D // MZ
	imageNTSignature      = 0x00004550
	optionalHeader32Magic = 0x10b
	optionalHeader64Magic = 0x20b

	imageScnMemExecute = 0x20000000
	imageScnMemRead    = 0x40000000
	imageScnMemWrite   = 0x80000000
)

// dosHeader is the subset of IMAGE_DOS_HEADER this loader needs.
type dosHeader struct {
	Magic              uint16
	_                  [29]uint16
	AddressOfNewHeader uint32
}

type fileHeader struct {
	Machine              uint16
	NumberOfSections     uint16
	TimeDateStamp        uint32
	PointerToSymbolTable uint32
	NumberOfSymbols      uint32
	SizeOfOptionalHeader uint16
	Characteristics      uint16
}

type sectionHeader struct {
	Name                 [8]byte
	VirtualSize          uint32
	VirtualAddress       uint32
	SizeOfRawData        uint32
	PointerToRawData     uint32
	PointerToRelocations uint32
	PointerToLineNumbers uint32
	NumberOfRelocations  uint16
	NumberOfLineNumbers  uint16
	Characteristics      uint32
}

// Image is a parsed PE file implementing vmem.Image.
type Image struct {
	vmem.Base

	Machine          uint16
	ImageBase        uint64
	SectionAlignment uint32
	FileAlignment    uint32
}

// Load parses a PE image out of data.
func Load(data []byte) (*Image, error) {
	if len(data) < 64 {
		return nil, ilerr.New(ilerr.MalformedBinary, "file too small to contain a DOS header")
	}

	var dos dosHeader
	if err := binary.Read(bytes.NewReader(data[:64]), binary.LittleEndian, &dos); err != nil {
		return nil, ilerr.Wrap(ilerr.MalformedBinary, "reading DOS header", err)
	}
	if dos.Magic != imageDOSSignature {
		return nil, ilerr.New(ilerr.MalformedBinary, "DOS header magic not found")
	}
	if dos.AddressOfNewHeader < 4 || uint64(dos.AddressOfNewHeader) >= uint64(len(data)) {
		return nil, ilerr.New(ilerr.MalformedBinary, "invalid e_lfanew value")
	}

	ntOff := dos.AddressOfNewHeader
	if int(ntOff)+4+20 > len(data) {
		return nil, ilerr.New(ilerr.MalformedBinary, "NT header offset beyond file")
	}
	sig := binary.LittleEndian.Uint32(data[ntOff:])
	if sig != imageNTSignature {
		return nil, ilerr.New(ilerr.MalformedBinary, "PE signature not found")
	}

	var fh fileHeader
	fhOff := ntOff + 4
	if err := binary.Read(bytes.NewReader(data[fhOff:fhOff+20]), binary.LittleEndian, &fh); err != nil {
		return nil, ilerr.Wrap(ilerr.MalformedBinary, "reading file header", err)
	}

	optOff := fhOff + 20
	if int(optOff)+2 > len(data) {
		return nil, ilerr.New(ilerr.MalformedBinary, "optional header beyond file")
	}
	magic := binary.LittleEndian.Uint16(data[optOff:])

	var (
		is64             bool
		imageBase        uint64
		sectionAlignment uint32
		fileAlignment    uint32
		entry            uint64
	)
	switch magic {
	case optionalHeader32Magic:
		is64 = false
		entry = uint64(binary.LittleEndian.Uint32(data[optOff+16:]))
		sectionAlignment = binary.LittleEndian.Uint32(data[optOff+32:])
		fileAlignment = binary.LittleEndian.Uint32(data[optOff+36:])
		imageBase = uint64(binary.LittleEndian.Uint32(data[optOff+28:]))
	case optionalHeader64Magic:
		is64 = true
		entry = uint64(binary.LittleEndian.Uint32(data[optOff+16:]))
		sectionAlignment = binary.LittleEndian.Uint32(data[optOff+32:])
		fileAlignment = binary.LittleEndian.Uint32(data[optOff+36:])
		imageBase = binary.LittleEndian.Uint64(data[optOff+24:])
	default:
		return nil, ilerr.New(ilerr.MalformedBinary, "optional header magic not found")
	}

	secOff := optOff + uint32(fh.SizeOfOptionalHeader)
	segs := make([]vmem.Segment, 0, fh.NumberOfSections)
	for i := 0; i < int(fh.NumberOfSections); i++ {
		off := int(secOff) + i*40
		if off+40 > len(data) {
			break
		}
		var sh sectionHeader
		if err := binary.Read(bytes.NewReader(data[off:off+40]), binary.LittleEndian, &sh); err != nil {
			return nil, ilerr.Wrap(ilerr.MalformedBinary, "reading section header", err)
		}
		name := bytes.TrimRight(sh.Name[:], "\x00")
		fileOffset := adjustFileAlignment(sh.PointerToRawData, fileAlignment)
		va := adjustSectionAlignment(sh.VirtualAddress, sectionAlignment, fileAlignment)
		size := sh.VirtualSize
		if size == 0 {
			size = sh.SizeOfRawData
		}
		segs = append(segs, vmem.Segment{
			Name:       string(name),
			VA:         imageBase + uint64(va),
			Size:       uint64(size),
			FileOffset: uint64(fileOffset),
			FileSize:   uint64(sh.SizeOfRawData),
			Readable:   sh.Characteristics&imageScnMemRead != 0,
			Writable:   sh.Characteristics&imageScnMemWrite != 0,
			Executable: sh.Characteristics&imageScnMemExecute != 0,
		})
	}

	word := 4
	if is64 {
		word = 8
	}

	img := &Image{
		Base: vmem.Base{
			Data:    data,
			Word:    word,
			Entry:   imageBase + entry,
			SegList: segs,
		},
		Machine:          fh.Machine,
		ImageBase:        imageBase,
		SectionAlignment: sectionAlignment,
		FileAlignment:    fileAlignment,
	}
	return img, nil
}

// adjustFileAlignment rounds PointerToRawData down to the 0x200 sector
// boundary the loader uses whenever the declared file alignment is at
// least that large, matching how Windows maps sections.
func adjustFileAlignment(va, fileAlignment uint32) uint32 {
	const hardcoded = 0x200
	if fileAlignment < hardcoded {
		return va
	}
	return (va / 0x200) * 0x200
}

// adjustSectionAlignment rounds VirtualAddress down to the effective
// section alignment, falling back to the file alignment for images whose
// declared section alignment is below a page.
func adjustSectionAlignment(va, sectionAlignment, fileAlignment uint32) uint32 {
	if sectionAlignment < 0x1000 {
		sectionAlignment = fileAlignment
	}
	if sectionAlignment != 0 && va%sectionAlignment != 0 {
		return sectionAlignment * (va / sectionAlignment)
	}
	return va
}
