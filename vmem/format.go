package vmem

import (
	"bytes"

	"github.com/il2cppcore/il2cppcore/ilerr"
)

// Format identifies the executable container an IL2CPP host binary was
// built as.
type Format int

const (
	FormatUnknown Format = iota
	FormatELF
	FormatPE
	FormatMachO
	FormatMachOFat
	FormatNSO
	FormatWASM
)

func (f Format) String() string {
	switch f {
	case FormatELF:
		return "ELF"
	case FormatPE:
		return "PE"
	case FormatMachO:
		return "Mach-O"
	case FormatMachOFat:
		return "Mach-O (fat)"
	case FormatNSO:
		return "NSO"
	case FormatWASM:
		return "WASM"
	default:
		return "unknown"
	}
}

var (
	elfMagic    = []byte{0x7f, 'E', 'L', 'F'}
	peMagic     = []byte{'M', 'Z'}
	nsoMagic    = []byte{'N', 'S', 'O', '0'}
	wasmMagic   = []byte{0x00, 'a', 's', 'm'}
	machoMagics = [][4]byte{
		{0xfe, 0xed, 0xfa, 0xce}, // 32-bit big endian
		{0xce, 0xfa, 0xed, 0xfe}, // 32-bit little endian
		{0xfe, 0xed, 0xfa, 0xcf}, // 64-bit big endian
		{0xcf, 0xfa, 0xed, 0xfe}, // 64-bit little endian
	}
	machoFatMagics = [][4]byte{
		{0xca, 0xfe, 0xba, 0xbe},
		{0xbe, 0xba, 0xfe, 0xca},
	}
)

// Detect sniffs an executable's container format from its leading bytes.
func Detect(data []byte) (Format, error) {
	if len(data) < 4 {
		return FormatUnknown, ilerr.New(ilerr.UnsupportedBinaryFormat, "file too small to contain a recognizable header")
	}
	if bytes.HasPrefix(data, elfMagic) {
		return FormatELF, nil
	}
	if bytes.HasPrefix(data, peMagic) {
		return FormatPE, nil
	}
	if bytes.HasPrefix(data, nsoMagic) {
		return FormatNSO, nil
	}
	if bytes.HasPrefix(data, wasmMagic) {
		return FormatWASM, nil
	}
	var head [4]byte
	copy(head[:], data[:4])
	for _, m := range machoMagics {
		if head == m {
			return FormatMachO, nil
		}
	}
	for _, m := range machoFatMagics {
		if head == m {
			return FormatMachOFat, nil
		}
	}
	return FormatUnknown, ilerr.New(ilerr.UnsupportedBinaryFormat, "no known executable magic matched")
}
