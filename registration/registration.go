// Package registration implements plus_search: locating CodeRegistration
// and MetadataRegistration in a stripped IL2CPP binary by scanning for
// the table-count constants derived from metadata, rather than by symbol
// lookup (the common case once Unity strips symbols).
package registration

import (
	"encoding/binary"

	"github.com/il2cppcore/il2cppcore/ilerr"
	"github.com/il2cppcore/il2cppcore/vmem"
)

// codeRegistrationFieldCount is the version-sensitive width of the
// CodeRegistration struct in pointer-sized words. The seed hit is taken
// as the struct's first field, and this many words are read from there
// so every following pointer field can be validated.
func codeRegistrationFieldCount(metadataVersion float64) int {
	switch {
	case metadataVersion >= 29.1:
		return 16
	case metadataVersion >= 29:
		return 14
	default:
		return 13
	}
}

// metadataRegistrationFieldCount is fixed across the version range this
// implementation targets (16..31): unlike CodeRegistration, the
// MetadataRegistration layout did not grow a compatibility field during
// that range.
const metadataRegistrationFieldCount = 21

// Options configures the locator's matching strictness.
type Options struct {
	// RequireFullScore, when true (the default), requires every follow-on
	// field that looks like a pointer (a value at or above the image's
	// lowest segment VA) to land in a readable segment. When
	// false, the locator accepts the highest-scoring candidate even if
	// some follow-on pointers don't resolve.
	RequireFullScore bool
}

// DefaultOptions requires all primary pointers of the layout to
// dereference into readable memory before a candidate is accepted.
func DefaultOptions() Options { return Options{RequireFullScore: true} }

// State is the located registration: the virtual addresses of the two
// root records plus the raw pointer-sized fields read from each, for the
// executor to interpret.
type State struct {
	CodeRegistrationVA     uint64
	CodeRegistrationFields []uint64

	MetadataRegistrationVA     uint64
	MetadataRegistrationFields []uint64
}

type candidate struct {
	va     uint64
	fields []uint64
	score  int
	total  int
}

// Symbol names the registration roots keep in an unstripped binary.
const (
	codeRegistrationSymbol     = "g_CodeRegistration"
	metadataRegistrationSymbol = "g_MetadataRegistration"
)

// Locate resolves both root records: by symbol lookup when the binary
// kept its symbol table, otherwise by plus_search.
func Locate(img vmem.Image, metadataVersion float64, methodsCount, typeDefsCount uint64, opts Options) (*State, error) {
	crFieldCount := codeRegistrationFieldCount(metadataVersion)

	if st, ok := fromSymbols(img, crFieldCount); ok {
		return st, nil
	}

	cr, err := search(img, methodsCount, crFieldCount, opts)
	if err != nil {
		return nil, ilerr.Wrap(ilerr.RegistrationNotFound, "CodeRegistration", err)
	}

	mr, err := search(img, typeDefsCount, metadataRegistrationFieldCount, opts)
	if err != nil {
		return nil, ilerr.Wrap(ilerr.RegistrationNotFound, "MetadataRegistration", err)
	}

	return &State{
		CodeRegistrationVA:         cr.va,
		CodeRegistrationFields:     cr.fields,
		MetadataRegistrationVA:     mr.va,
		MetadataRegistrationFields: mr.fields,
	}, nil
}

// fromSymbols reads both root records directly when the image still
// carries their symbols. Both symbols must resolve and both structs must
// read cleanly; anything short of that falls back to the scan.
func fromSymbols(img vmem.Image, crFieldCount int) (*State, bool) {
	src, ok := img.(vmem.SymbolSource)
	if !ok {
		return nil, false
	}
	crVA, okCR := src.Symbol(codeRegistrationSymbol)
	mrVA, okMR := src.Symbol(metadataRegistrationSymbol)
	if !okCR || !okMR {
		return nil, false
	}
	word := img.WordSize()
	crFields, ok := readStruct(img, crVA, crFieldCount, word)
	if !ok {
		return nil, false
	}
	mrFields, ok := readStruct(img, mrVA, metadataRegistrationFieldCount, word)
	if !ok {
		return nil, false
	}
	return &State{
		CodeRegistrationVA:         crVA,
		CodeRegistrationFields:     crFields,
		MetadataRegistrationVA:     mrVA,
		MetadataRegistrationFields: mrFields,
	}, true
}

// search scans every readable segment for seed as a pointer-sized
// little-endian integer, treats each hit as the first (count) field of a
// fieldCount-word struct, and scores candidates by how many subsequent
// pointer-like words (at or above the lowest segment VA) resolve into
// readable segments. The highest-scoring candidate wins; ties break
// on lowest virtual address.
func search(img vmem.Image, seed uint64, fieldCount int, opts Options) (candidate, error) {
	word := img.WordSize()
	var best candidate
	haveBest := false

	for _, seg := range img.Segments() {
		if !seg.Readable {
			continue
		}
		data, err := img.ReadAt(seg.VA, int(seg.FileSize))
		if err != nil {
			continue
		}
		for off := 0; off+word <= len(data); off += word {
			if readWord(data[off:], word) != seed {
				continue
			}
			va := seg.VA + uint64(off)
			fields, ok := readStruct(img, va, fieldCount, word)
			if !ok {
				continue
			}
			score, total := scoreFields(img, fields)
			c := candidate{va: va, fields: fields, score: score, total: total}
			if !candidateMeetsThreshold(c, opts) {
				continue
			}
			if !haveBest || c.score > best.score || (c.score == best.score && c.va < best.va) {
				best = c
				haveBest = true
			}
		}
	}

	if !haveBest {
		return candidate{}, ilerr.New(ilerr.RegistrationNotFound, "no candidate met the scoring threshold")
	}
	return best, nil
}

func candidateMeetsThreshold(c candidate, opts Options) bool {
	if !opts.RequireFullScore {
		return true
	}
	return c.score == c.total
}

// readStruct reads fieldCount consecutive pointer-sized words starting at
// va, the first of which is the already-matched seed/count field.
func readStruct(img vmem.Image, va uint64, fieldCount, word int) ([]uint64, bool) {
	buf, err := img.ReadAt(va, fieldCount*word)
	if err != nil {
		return nil, false
	}
	fields := make([]uint64, fieldCount)
	for i := 0; i < fieldCount; i++ {
		fields[i] = readWord(buf[i*word:], word)
	}
	return fields, true
}

// scoreFields counts, among the follow-on fields (every field after the
// count field at index 0), how many land inside a readable segment. Only
// pointer-like values participate: a word below the image's lowest
// mapped address is a count or flag field, not a pointer, and carries no
// signal either way.
func scoreFields(img vmem.Image, fields []uint64) (score, total int) {
	floor := lowestSegmentVA(img)
	for _, f := range fields[1:] {
		if f < floor {
			continue
		}
		total++
		if inReadableSegment(img, f) {
			score++
		}
	}
	return score, total
}

func lowestSegmentVA(img vmem.Image) uint64 {
	segs := img.Segments()
	if len(segs) == 0 {
		return 0
	}
	min := segs[0].VA
	for _, s := range segs[1:] {
		if s.VA < min {
			min = s.VA
		}
	}
	return min
}

func inReadableSegment(img vmem.Image, va uint64) bool {
	for _, seg := range img.Segments() {
		if seg.Readable && va >= seg.VA && va < seg.VA+seg.Size {
			return true
		}
	}
	return false
}

func readWord(b []byte, word int) uint64 {
	switch word {
	case 4:
		return uint64(binary.LittleEndian.Uint32(b))
	case 8:
		return binary.LittleEndian.Uint64(b)
	default:
		return 0
	}
}
