// Package macholoader adapts blacktop/go-macho into a vmem.Image: the
// load-command walk yields the segment table and each segment's vm_prot
// bits, and the symbol table (when the binary kept one) backs
// vmem.SymbolSource.
package macholoader

import (
	"bytes"

	"github.com/blacktop/go-macho"
	"github.com/blacktop/go-macho/types"

	"github.com/il2cppcore/il2cppcore/ilerr"
	"github.com/il2cppcore/il2cppcore/vmem"
)

// Image is a parsed (thin) Mach-O file implementing vmem.Image and, when
// the binary kept its symbol table, vmem.SymbolSource.
type Image struct {
	vmem.Base

	CPU types.CPU

	symbols map[string]uint64
}

// Symbol looks up a symbol's virtual address.
func (i *Image) Symbol(name string) (uint64, bool) {
	va, ok := i.symbols[name]
	return va, ok
}

// Load parses a single-architecture Mach-O image out of data.
func Load(data []byte) (*Image, error) {
	f, err := macho.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, ilerr.Wrap(ilerr.MalformedBinary, "parsing Mach-O", err)
	}
	defer f.Close()

	word := 4
	if f.Magic == types.Magic64 {
		word = 8
	}

	var segs []vmem.Segment
	var entry uint64
	for _, seg := range f.Segments() {
		segs = append(segs, vmem.Segment{
			Name:       seg.Name,
			VA:         seg.Addr,
			Size:       seg.Memsz,
			FileOffset: seg.Offset,
			FileSize:   seg.Filesz,
			Readable:   seg.Prot.Read(),
			Writable:   seg.Prot.Write(),
			Executable: seg.Prot.Execute(),
		})
		if seg.Name == "__TEXT" {
			entry = seg.Addr
		}
	}

	symbols := make(map[string]uint64)
	if f.Symtab != nil {
		for _, s := range f.Symtab.Syms {
			symbols[s.Name] = s.Value
		}
	}

	return &Image{
		Base: vmem.Base{
			Data:    data,
			Word:    word,
			Entry:   entry,
			SegList: segs,
		},
		CPU:     f.CPU,
		symbols: symbols,
	}, nil
}

// LoadFat picks the first slice matching wantCPU out of a universal
// (FAT) Mach-O, the container format IL2CPP's iOS/macOS builds ship as
// when they carry more than one architecture.
func LoadFat(data []byte, wantCPU types.CPU) (*Image, error) {
	ff, err := macho.NewFatFile(bytes.NewReader(data))
	if err != nil {
		return nil, ilerr.Wrap(ilerr.MalformedBinary, "parsing fat Mach-O", err)
	}
	defer ff.Close()

	for _, arch := range ff.Arches {
		if arch.CPU != wantCPU {
			continue
		}
		end := uint64(arch.Offset) + uint64(arch.Size)
		if end > uint64(len(data)) {
			return nil, ilerr.New(ilerr.MalformedBinary, "fat arch slice runs past end of file")
		}
		return Load(data[arch.Offset:end])
	}
	return nil, ilerr.New(ilerr.UnsupportedBinaryFormat, "no matching architecture in fat Mach-O")
}
