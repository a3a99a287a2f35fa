// Package metadata decodes global-metadata.dat: the schema-versioned
// binary blob IL2CPP emits alongside the native executable.
package metadata

import (
	"github.com/il2cppcore/il2cppcore/bstream"
	"github.com/il2cppcore/il2cppcore/ilerr"
)

// Magic is the fixed 4-byte signature every global-metadata.dat begins
// with.
const Magic = 0xFAB11BAF

// MinVersion and MaxVersion bound the header versions this decoder
// understands.
const (
	MinVersion = 16
	MaxVersion = 31
)

// tableDirLen is the number of int32 directory entries following the
// header: one (offset, size) pair per TableID in tableOrder. Older (<24)
// images carry a shorter directory on disk; they are still read
// positionally, so trailing entries beyond what the image actually wrote
// hold whatever bytes follow and are ignored by the tables the decoder
// never consults at those versions.
var tableDirLen = 2 * len(tableOrder)

// Header is the decoded global-metadata.dat header: the magic, the
// resolved (possibly refined) version, and the byte offset/size of every
// table.
type Header struct {
	Version float64
	Tables  map[TableID]TableSlice
}

// TableSlice is a (offset, size) pair describing where one table's bytes
// live in the metadata blob.
type TableSlice struct {
	Offset int32
	Size   int32
}

// ParseHeader reads the magic, the raw integer version, every (offset,
// size) table-directory pair, and then runs version refinement for the
// ambiguous major versions (24 and 27).
func ParseHeader(data []byte, forceVersion *float64) (Header, error) {
	r := bstream.New(data)

	magic, err := r.U32()
	if err != nil {
		return Header{}, ilerr.Wrap(ilerr.MalformedMetadata, "reading magic", err)
	}
	if magic != Magic {
		return Header{}, ilerr.New(ilerr.MalformedMetadata, "magic mismatch, not a global-metadata.dat")
	}

	rawVersion, err := r.I32()
	if err != nil {
		return Header{}, ilerr.Wrap(ilerr.MalformedMetadata, "reading version", err)
	}
	if rawVersion < MinVersion || rawVersion > MaxVersion {
		return Header{}, ilerr.New(ilerr.UnsupportedVersion, "version outside 16..31").WithIndex(int64(rawVersion))
	}

	offsets, err := r.ReadInt32Array(tableDirLen)
	if err != nil {
		return Header{}, ilerr.Wrap(ilerr.MalformedMetadata, "reading table directory", err)
	}

	tables := make(map[TableID]TableSlice, len(tableOrder))
	for i, id := range tableOrder {
		if 2*i+1 >= len(offsets) {
			break
		}
		tables[id] = TableSlice{Offset: offsets[2*i], Size: offsets[2*i+1]}
	}

	version := float64(rawVersion)
	if forceVersion != nil {
		version = *forceVersion
	} else if rawVersion == 24 || rawVersion == 27 {
		refined, err := refineVersion(rawVersion, tables)
		if err != nil {
			return Header{}, err
		}
		version = refined
	} else if rawVersion == 29 {
		if isGeneric29_1(tables) {
			version = 29.1
		}
	}

	return Header{Version: version, Tables: tables}, nil
}

// refinementProbes are the tables whose record width changed somewhere in
// the ambiguous 24.x/27.x range, paired with their versioned schemas.
// Deriving the expected widths from the same schemas the decoder will use
// keeps refinement and decoding in lockstep.
var refinementProbes = []struct {
	id     TableID
	schema bstream.Schema
}{
	{TableTypeDefinition, typeDefinitionSchema},
	{TableMethodDefinition, methodDefinitionSchema},
	{TableImages, imageSchema},
}

// refineVersion disambiguates the 24.x/27.x minors: for each candidate
// minor version, every present, non-empty probe table's declared byte
// size must be an exact multiple of that candidate's record width. An
// absent or empty table carries no version signal. Exactly one surviving
// candidate wins; zero or several is AmbiguousVersion.
func refineVersion(major int32, tables map[TableID]TableSlice) (float64, error) {
	var minors []float64
	switch major {
	case 24:
		minors = []float64{24.1, 24.2, 24.3, 24.4, 24.5}
	case 27:
		minors = []float64{27.1, 27.2}
	default:
		return float64(major), nil
	}

	var matches []float64
	for _, minor := range minors {
		ok := true
		probed := false
		for _, p := range refinementProbes {
			slice, have := tables[p.id]
			if !have || slice.Size == 0 {
				continue
			}
			width := int32(p.schema.Compile(minor).Size)
			if width == 0 || slice.Size%width != 0 {
				ok = false
				break
			}
			probed = true
		}
		if ok && probed {
			matches = append(matches, minor)
		}
	}

	switch len(matches) {
	case 1:
		return matches[0], nil
	case 0:
		return 0, ilerr.New(ilerr.AmbiguousVersion, "no candidate minor version matched table sizes exactly")
	default:
		return 0, ilerr.New(ilerr.AmbiguousVersion, "more than one candidate minor version matched table sizes")
	}
}

// genericParameterConstraintRecordSize29_0 and ...29_1 are the expected
// per-record byte widths used to disambiguate 29.0 from 29.1: 29.1 added
// a field to generic_parameter_constraints, widening each record from 4
// to 8 bytes.
const (
	genericParameterConstraintRecordSize29_0 = 4
	genericParameterConstraintRecordSize29_1 = 8
)

// isGeneric29_1 distinguishes 29.1 from 29.0 by checking whether the
// generic_parameter_constraints table's declared size is a non-zero
// multiple of the wider 29.1 record width. Every multiple of 8 is also a
// multiple of 4, so a 29.0 table with an even number of 4-byte records
// is reported as 29.1 as well; only an odd 29.0 record count reads as
// 29.0.
func isGeneric29_1(tables map[TableID]TableSlice) bool {
	s, ok := tables[TableGenericParameterConstraint]
	if !ok || s.Size == 0 {
		return false
	}
	return s.Size%genericParameterConstraintRecordSize29_1 == 0
}
