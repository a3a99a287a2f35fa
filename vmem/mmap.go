package vmem

import (
	"os"

	"github.com/edsrzf/mmap-go"
)

// MappedFile is an mmap'd executable on disk. il2cppcore routinely
// processes binaries in the hundreds of megabytes (stripped Unity
// players), where a full read-into-memory copy is wasteful when the
// registration locator and resolver only ever need read access.
type MappedFile struct {
	f    *os.File
	data mmap.MMap
}

// Open maps path read-only into memory.
func Open(path string) (*MappedFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &MappedFile{f: f, data: data}, nil
}

// Bytes returns the mapped content.
func (m *MappedFile) Bytes() []byte { return m.data }

// Close unmaps the file and closes the underlying descriptor.
func (m *MappedFile) Close() error {
	err := m.data.Unmap()
	if cerr := m.f.Close(); err == nil {
		err = cerr
	}
	return err
}
