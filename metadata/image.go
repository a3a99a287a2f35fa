package metadata

import (
	"github.com/il2cppcore/il2cppcore/bstream"
	"github.com/il2cppcore/il2cppcore/ilerr"
)

// Metadata is the fully decoded global-metadata.dat: the resolved
// version plus every table as a read-only indexed sequence. Once
// constructed it is never mutated.
type Metadata struct {
	Version float64

	StringBlob        []byte
	StringLiteralData []byte

	StringLiterals              []StringLiteral
	Events                      []EventDefinition
	Properties                  []PropertyDefinition
	Methods                     []MethodDefinition
	ParameterDefaultValues      []DefaultValue
	FieldDefaultValues          []DefaultValue
	Parameters                  []ParameterDefinition
	Fields                      []FieldDefinition
	GenericParameters           []GenericParameter
	GenericParameterConstraints []GenericParameterConstraint
	GenericContainers           []GenericContainer
	NestedTypes                 []int32
	Interfaces                  []int32
	VTableMethods               []int32
	InterfaceOffsets            []InterfaceOffset
	TypeDefs                    []TypeDefinition
	Images                      []ImageDefinition
	Assemblies                  []Assembly
	FieldRefs                   []FieldRef
	AttributeTypeRanges         []AttributeTypeRange
	AttributeTypes              []int32
	MetadataUsageLists          []MetadataUsageList
	MetadataUsagePairs          []MetadataUsagePair
}

// Decode parses the full global-metadata.dat byte slice: the header and
// then every table it points to. forceVersion, when non-nil, overrides
// both the header's declared version and minor-version refinement.
func Decode(data []byte, forceVersion *float64) (*Metadata, error) {
	hdr, err := ParseHeader(data, forceVersion)
	if err != nil {
		return nil, err
	}

	r := bstream.New(data)
	m := &Metadata{Version: hdr.Version}

	if s, ok := hdr.Tables[TableString]; ok {
		m.StringBlob, err = r.SliceAt(int(s.Offset), int(s.Size))
		if err != nil {
			return nil, ilerr.Wrap(ilerr.MalformedMetadata, "string blob", err)
		}
	}
	if s, ok := hdr.Tables[TableStringLiteralData]; ok {
		m.StringLiteralData, err = r.SliceAt(int(s.Offset), int(s.Size))
		if err != nil {
			return nil, ilerr.Wrap(ilerr.MalformedMetadata, "string literal data", err)
		}
	}

	if m.StringLiterals, err = decodeTable(r, hdr.Tables[TableStringLiteral], stringLiteralSchema, hdr.Version, "string_literals", buildStringLiteral); err != nil {
		return nil, err
	}
	if m.Events, err = decodeTable(r, hdr.Tables[TableEvents], eventDefinitionSchema, hdr.Version, "events", buildEventDefinition); err != nil {
		return nil, err
	}
	if m.Properties, err = decodeTable(r, hdr.Tables[TableProperties], propertyDefinitionSchema, hdr.Version, "properties", buildPropertyDefinition); err != nil {
		return nil, err
	}
	if m.Methods, err = decodeTable(r, hdr.Tables[TableMethods], methodDefinitionSchema, hdr.Version, "method_defs", buildMethodDefinition); err != nil {
		return nil, err
	}
	if m.ParameterDefaultValues, err = decodeTable(r, hdr.Tables[TableParameterDefaultValues], fieldOrParamDefaultValueSchema, hdr.Version, "parameter_defaults", buildDefaultValue); err != nil {
		return nil, err
	}
	if m.FieldDefaultValues, err = decodeTable(r, hdr.Tables[TableFieldDefaultValues], fieldOrParamDefaultValueSchema, hdr.Version, "field_defaults", buildDefaultValue); err != nil {
		return nil, err
	}
	if m.Parameters, err = decodeTable(r, hdr.Tables[TableParameters], parameterDefinitionSchema, hdr.Version, "parameter_defs", buildParameterDefinition); err != nil {
		return nil, err
	}
	if m.Fields, err = decodeTable(r, hdr.Tables[TableFields], fieldDefinitionSchema, hdr.Version, "field_defs", buildFieldDefinition); err != nil {
		return nil, err
	}
	if m.GenericParameters, err = decodeTable(r, hdr.Tables[TableGenericParameters], genericParameterSchema, hdr.Version, "generic_parameters", buildGenericParameter); err != nil {
		return nil, err
	}
	if m.GenericParameterConstraints, err = decodeTable(r, hdr.Tables[TableGenericParameterConstraint], genericParameterConstraintSchema, hdr.Version, "generic_parameter_constraints", buildGenericParameterConstraint); err != nil {
		return nil, err
	}
	if m.GenericContainers, err = decodeTable(r, hdr.Tables[TableGenericContainers], genericContainerSchema, hdr.Version, "generic_containers", buildGenericContainer); err != nil {
		return nil, err
	}
	if m.NestedTypes, err = decodeIndexTable(r, hdr.Tables[TableNestedTypes], "nested_types"); err != nil {
		return nil, err
	}
	if m.Interfaces, err = decodeIndexTable(r, hdr.Tables[TableInterfaces], "interfaces"); err != nil {
		return nil, err
	}
	if m.VTableMethods, err = decodeIndexTable(r, hdr.Tables[TableVTableMethods], "vtable_methods"); err != nil {
		return nil, err
	}
	if m.InterfaceOffsets, err = decodeTable(r, hdr.Tables[TableInterfaceOffsets], interfaceOffsetSchema, hdr.Version, "interface_offsets", buildInterfaceOffset); err != nil {
		return nil, err
	}
	if m.TypeDefs, err = decodeTable(r, hdr.Tables[TableTypeDefinition], typeDefinitionSchema, hdr.Version, "type_defs", buildTypeDefinition); err != nil {
		return nil, err
	}
	if m.Images, err = decodeTable(r, hdr.Tables[TableImages], imageSchema, hdr.Version, "images", buildImage); err != nil {
		return nil, err
	}
	if m.Assemblies, err = decodeTable(r, hdr.Tables[TableAssemblies], assemblySchema, hdr.Version, "assemblies", buildAssembly); err != nil {
		return nil, err
	}
	if m.FieldRefs, err = decodeTable(r, hdr.Tables[TableFieldRefs], fieldRefSchema, hdr.Version, "field_ref_defs", buildFieldRef); err != nil {
		return nil, err
	}
	if hdr.Version >= 21 {
		if m.AttributeTypeRanges, err = decodeTable(r, hdr.Tables[TableAttributeDataRange], attributeTypeRangeSchema, hdr.Version, "attribute_type_ranges", buildAttributeTypeRange); err != nil {
			return nil, err
		}
	} else {
		if m.AttributeTypes, err = decodeIndexTable(r, hdr.Tables[TableAttributeDataRange], "custom_attribute_types"); err != nil {
			return nil, err
		}
	}
	if m.MetadataUsageLists, err = decodeMetadataUsageLists(r, hdr, hdr.Version); err != nil {
		return nil, err
	}
	if m.MetadataUsagePairs, err = decodeMetadataUsagePairs(r, hdr); err != nil {
		return nil, err
	}

	return m, nil
}

// String resolves a byte offset into the string blob to the NUL-
// terminated name it points at. Offsets are the ids every name_index
// field in the metadata tables carries.
func (m *Metadata) String(offset int32) (string, error) {
	if offset < 0 || int(offset) > len(m.StringBlob) {
		return "", ilerr.New(ilerr.CorruptIndex, "string offset out of range").WithOffset(int64(offset))
	}
	r := bstream.New(m.StringBlob)
	s, err := r.NulStringAt(int(offset))
	if err != nil {
		return "", ilerr.Wrap(ilerr.MalformedString, "string blob", err).WithOffset(int64(offset))
	}
	return s, nil
}

// StringLiteralBytes returns the raw bytes backing the string literal at
// the given index, sliced out of string_literal_data by its (length,
// data_index) record.
func (m *Metadata) StringLiteralBytes(index int) ([]byte, error) {
	if index < 0 || index >= len(m.StringLiterals) {
		return nil, ilerr.New(ilerr.CorruptIndex, "string literal index out of range").WithIndex(int64(index))
	}
	lit := m.StringLiterals[index]
	start := int(lit.DataIndex)
	end := start + int(lit.Length)
	if start < 0 || end < start || end > len(m.StringLiteralData) {
		return nil, ilerr.New(ilerr.CorruptIndex, "string literal data out of range").WithIndex(int64(index))
	}
	return m.StringLiteralData[start:end], nil
}

// decodeIndexTable reads a table that is nothing but a dense array of
// int32 indices (nested_types, interfaces, vtable_methods, and the
// pre-v21 custom_attribute_types table).
func decodeIndexTable(r *bstream.Reader, slice TableSlice, name string) ([]int32, error) {
	if slice.Size == 0 {
		return nil, nil
	}
	if slice.Size%4 != 0 {
		return nil, ilerr.New(ilerr.MalformedMetadata, name+": size not a multiple of 4").WithOffset(int64(slice.Offset))
	}
	if err := r.Seek(int(slice.Offset)); err != nil {
		return nil, ilerr.Wrap(ilerr.MalformedMetadata, name, err)
	}
	vals, err := r.ReadInt32Array(int(slice.Size) / 4)
	if err != nil {
		return nil, ilerr.Wrap(ilerr.MalformedMetadata, name, err).WithOffset(int64(slice.Offset))
	}
	return vals, nil
}

func decodeMetadataUsageLists(r *bstream.Reader, hdr Header, version float64) ([]MetadataUsageList, error) {
	// Pre-v19 metadata images (before metadata_usage was introduced) and
	// v27+ images (metadata usage moved to inline Il2CppType/token
	// indirection, no separate list table) have no usage lists at all.
	if version < 19 || version >= 27 {
		return nil, nil
	}
	return decodeTable(r, hdr.Tables[TableMetadataUsageLists], metadataUsageListSchema, version, "metadata_usage_lists", buildMetadataUsageList)
}

func decodeMetadataUsagePairs(r *bstream.Reader, hdr Header) ([]MetadataUsagePair, error) {
	if hdr.Version < 19 || hdr.Version >= 27 {
		return nil, nil
	}
	return decodeTable(r, hdr.Tables[TableMetadataUsagePairs], metadataUsagePairSchema, hdr.Version, "metadata_usage_pairs", buildMetadataUsagePair)
}
