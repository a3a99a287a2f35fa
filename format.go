package il2cppcore

import (
	"fmt"

	"github.com/blacktop/go-macho/types"

	"github.com/il2cppcore/il2cppcore/ilerr"
	"github.com/il2cppcore/il2cppcore/vmem"
	"github.com/il2cppcore/il2cppcore/vmem/elfloader"
	"github.com/il2cppcore/il2cppcore/vmem/macholoader"
	"github.com/il2cppcore/il2cppcore/vmem/nsoloader"
	"github.com/il2cppcore/il2cppcore/vmem/peloader"
	"github.com/il2cppcore/il2cppcore/vmem/wasmloader"
)

// loadImage dispatches a raw binary to the loader matching its detected
// format. It lives here, not in vmem, because the loader packages
// each depend on vmem but must not depend on one another or be depended
// on by it (no cycle); the root package is the one place that may import
// every loader. The dispatch is recover-guarded: a panic inside a format
// parser surfaces as MalformedBinary instead of unwinding the caller.
func loadImage(data []byte) (img vmem.Image, err error) {
	defer func() {
		if r := recover(); r != nil {
			img = nil
			err = ilerr.New(ilerr.MalformedBinary, fmt.Sprintf("parsing binary: %v", r))
		}
	}()

	format, err := vmem.Detect(data)
	if err != nil {
		return nil, err
	}

	switch format {
	case vmem.FormatPE:
		return peloader.Load(data)
	case vmem.FormatELF:
		return elfloader.Load(data)
	case vmem.FormatMachO:
		return macholoader.Load(data)
	case vmem.FormatMachOFat:
		// IL2CPP's fat Mach-O builds are nearly always iOS arm64 plus a
		// (32-bit, pre-2017) armv7 slice; arm64 is the overwhelmingly
		// common deployment target to dump, so it's the fixed choice
		// here rather than a configuration knob.
		return macholoader.LoadFat(data, types.CPUArm64)
	case vmem.FormatNSO:
		return nsoloader.Load(data)
	case vmem.FormatWASM:
		return wasmloader.Load(data)
	default:
		return nil, ilerr.New(ilerr.UnsupportedBinaryFormat, "no loader registered for detected format")
	}
}
