package metadata

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"

	"github.com/il2cppcore/il2cppcore/ilerr"
)

// rawHeader builds a minimal global-metadata.dat prefix: magic, raw version,
// and a full table directory where every TableID in overrides gets the
// given (offset, size); everything else is zeroed.
func rawHeader(version int32, overrides map[TableID]TableSlice) []byte {
	var buf bytes.Buffer
	binary.Write(&buf, binary.LittleEndian, uint32(Magic))
	binary.Write(&buf, binary.LittleEndian, version)

	pairs := make([]int32, tableDirLen)
	for i, id := range tableOrder {
		if 2*i+1 >= len(pairs) {
			break
		}
		if s, ok := overrides[id]; ok {
			pairs[2*i] = s.Offset
			pairs[2*i+1] = s.Size
		}
	}
	for _, v := range pairs {
		binary.Write(&buf, binary.LittleEndian, v)
	}
	return buf.Bytes()
}

func TestParseHeaderMagicMismatch(t *testing.T) {
	data := rawHeader(24, nil)
	data[0] ^= 0xFF
	_, err := ParseHeader(data, nil)
	if err == nil {
		t.Fatal("expected error on bad magic")
	}
	var ie *ilerr.Error
	if !errors.As(err, &ie) || ie.Kind != ilerr.MalformedMetadata {
		t.Fatalf("expected MalformedMetadata, got %v", err)
	}
}

func TestParseHeaderVersionOutOfRange(t *testing.T) {
	data := rawHeader(5, nil)
	_, err := ParseHeader(data, nil)
	var ie *ilerr.Error
	if !errors.As(err, &ie) || ie.Kind != ilerr.UnsupportedVersion {
		t.Fatalf("expected UnsupportedVersion, got %v", err)
	}
}

func TestParseHeaderForceVersionBypassesRefinement(t *testing.T) {
	data := rawHeader(24, nil)
	forced := 24.3
	hdr, err := ParseHeader(data, &forced)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hdr.Version != 24.3 {
		t.Fatalf("expected forced version 24.3, got %v", hdr.Version)
	}
}

func TestRefineVersion24ExactMatch(t *testing.T) {
	tables := map[TableID]TableSlice{
		TableTypeDefinition: {Offset: 1000, Size: 100},
	}
	v, err := refineVersion(24, tables)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 24.1 {
		t.Fatalf("expected 24.1, got %v", v)
	}
}

func TestRefineVersion27ExactMatch(t *testing.T) {
	tables := map[TableID]TableSlice{
		TableMethodDefinition: {Offset: 2000, Size: 48},
	}
	v, err := refineVersion(27, tables)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 27.1 {
		t.Fatalf("expected 27.1, got %v", v)
	}
}

func TestRefineVersion24_3ViaImagesTable(t *testing.T) {
	// 24.2 and 24.3 share a type-def width; the images table (which grew
	// code_gen_module_index at 24.3) breaks the tie.
	tables := map[TableID]TableSlice{
		TableTypeDefinition: {Offset: 1000, Size: 104},
		TableImages:         {Offset: 2000, Size: 44},
	}
	v, err := refineVersion(24, tables)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 24.3 {
		t.Fatalf("expected 24.3, got %v", v)
	}
}

func TestRefineVersionNoCandidateIsAmbiguous(t *testing.T) {
	tables := map[TableID]TableSlice{
		TableTypeDefinition: {Offset: 1000, Size: 0},
	}
	_, err := refineVersion(24, tables)
	var ie *ilerr.Error
	if !errors.As(err, &ie) || ie.Kind != ilerr.AmbiguousVersion {
		t.Fatalf("expected AmbiguousVersion, got %v", err)
	}
}

func TestRefineVersionMultipleCandidatesIsAmbiguous(t *testing.T) {
	// 104 is the type-def record width of both 24.2 and 24.3 (they differ
	// only in the images table), so with no images table present this is
	// genuinely ambiguous without an explicit force_version.
	tables := map[TableID]TableSlice{
		TableTypeDefinition: {Offset: 1000, Size: 104},
	}
	_, err := refineVersion(24, tables)
	var ie *ilerr.Error
	if !errors.As(err, &ie) || ie.Kind != ilerr.AmbiguousVersion {
		t.Fatalf("expected AmbiguousVersion, got %v", err)
	}
}

func TestIsGeneric29_1(t *testing.T) {
	if isGeneric29_1(map[TableID]TableSlice{TableGenericParameterConstraint: {Size: 8}}) != true {
		t.Fatal("expected size 8 to be detected as 29.1")
	}
	if isGeneric29_1(map[TableID]TableSlice{TableGenericParameterConstraint: {Size: 4}}) != false {
		t.Fatal("expected size 4 to be detected as 29.0")
	}
	if isGeneric29_1(map[TableID]TableSlice{}) != false {
		t.Fatal("expected missing table to default to 29.0")
	}
}

func TestParseHeaderRefines29(t *testing.T) {
	data := rawHeader(29, map[TableID]TableSlice{
		TableGenericParameterConstraint: {Offset: 500, Size: 16},
	})
	hdr, err := ParseHeader(data, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hdr.Version != 29.1 {
		t.Fatalf("expected 29.1, got %v", hdr.Version)
	}
}
