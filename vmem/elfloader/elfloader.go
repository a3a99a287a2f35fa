// Package elfloader adapts debug/elf into a vmem.Image. ELF's
// program-header table is simple enough that the standard library's
// decoder already covers everything a segment-oriented view needs.
package elfloader

import (
	"bytes"
	"debug/elf"

	"github.com/il2cppcore/il2cppcore/ilerr"
	"github.com/il2cppcore/il2cppcore/vmem"
)

// Image is a parsed ELF file implementing vmem.Image and, when the
// binary kept its symbol table, vmem.SymbolSource.
type Image struct {
	vmem.Base

	Machine elf.Machine

	symbols map[string]uint64
}

// Symbol looks up a (static or dynamic) symbol's virtual address.
func (i *Image) Symbol(name string) (uint64, bool) {
	va, ok := i.symbols[name]
	return va, ok
}

// Load parses an ELF image out of data, mapping every PT_LOAD program
// header into a vmem.Segment.
func Load(data []byte) (*Image, error) {
	f, err := elf.NewFile(bytes.NewReader(data))
	if err != nil {
		return nil, ilerr.Wrap(ilerr.MalformedBinary, "parsing ELF", err)
	}
	defer f.Close()

	word := 4
	if f.Class == elf.ELFCLASS64 {
		word = 8
	}

	var segs []vmem.Segment
	for _, prog := range f.Progs {
		if prog.Type != elf.PT_LOAD {
			continue
		}
		segs = append(segs, vmem.Segment{
			VA:         prog.Vaddr,
			Size:       prog.Memsz,
			FileOffset: prog.Off,
			FileSize:   prog.Filesz,
			Readable:   prog.Flags&elf.PF_R != 0,
			Writable:   prog.Flags&elf.PF_W != 0,
			Executable: prog.Flags&elf.PF_X != 0,
		})
	}
	for _, s := range f.Sections {
		if s.Flags&elf.SHF_ALLOC == 0 || s.Addr == 0 {
			continue
		}
		segs = append(segs, vmem.Segment{
			Name:       s.Name,
			VA:         s.Addr,
			Size:       s.Size,
			FileOffset: s.Offset,
			FileSize:   sectionFileSize(s),
			Readable:   true,
			Writable:   s.Flags&elf.SHF_WRITE != 0,
			Executable: s.Flags&elf.SHF_EXECINSTR != 0,
		})
	}

	// Symbols survive only in unstripped builds; both lookups failing is
	// the normal case and not an error.
	symbols := make(map[string]uint64)
	if syms, err := f.Symbols(); err == nil {
		for _, s := range syms {
			symbols[s.Name] = s.Value
		}
	}
	if syms, err := f.DynamicSymbols(); err == nil {
		for _, s := range syms {
			symbols[s.Name] = s.Value
		}
	}

	return &Image{
		Base: vmem.Base{
			Data:    data,
			Word:    word,
			Entry:   f.Entry,
			SegList: segs,
		},
		Machine: f.Machine,
		symbols: symbols,
	}, nil
}

// sectionFileSize reports how many of a section's bytes are actually
// file-backed (SHT_NOBITS sections, e.g. .bss, occupy no file space).
func sectionFileSize(s *elf.Section) uint64 {
	if s.Type == elf.SHT_NOBITS {
		return 0
	}
	return s.Size
}
