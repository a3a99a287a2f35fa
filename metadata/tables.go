package metadata

import (
	"github.com/il2cppcore/il2cppcore/bstream"
	"github.com/il2cppcore/il2cppcore/ilerr"
)

// TypeDefinition mirrors Il2CppTypeDefinition: the central per-type record
// joining a name, its member ranges, and its generic container.
type TypeDefinition struct {
	NameIndex             int32
	NamespaceIndex        int32
	ByValTypeIndex        int32
	ByRefTypeIndex        int32
	DeclaringTypeIndex    int32
	ParentIndex           int32
	ElementTypeIndex      int32
	GenericContainerIndex int32
	Flags                 uint32
	FieldStart            int32
	MethodStart           int32
	EventStart            int32
	PropertyStart         int32
	NestedTypesStart      int32
	InterfacesStart       int32
	VTableStart           int32
	InterfaceOffsetsStart int32
	MethodCount           uint16
	PropertyCount         uint16
	FieldCount            uint16
	EventCount            uint16
	NestedTypeCount       uint16
	VTableCount           uint16
	InterfacesCount       uint16
	InterfaceOffsetsCount uint16
	Bitfield              uint32
	Token                 uint32
	PackingSize           int32
	ClassSize             int32
	NativeSize            int32
}

// MethodDefinition mirrors Il2CppMethodDefinition.
type MethodDefinition struct {
	NameIndex             int32
	DeclaringType         int32
	ReturnType            int32
	ParameterStart        int32
	GenericContainerIndex int32
	Token                 uint32
	Flags                 uint16
	IFlags                uint16
	Slot                  uint16
	ParameterCount        uint16
	InvokerIndex          int32
	ReversePInvokeWrapper int32
	// MethodIndex is the on-disk index into the owning image's
	// CodeGenModule.methodPointers table; -1 means the method has no
	// native code body (abstract, interface, or extern) and must not
	// resolve to an address.
	MethodIndex int32
}

// FieldDefinition mirrors Il2CppFieldDefinition.
type FieldDefinition struct {
	NameIndex int32
	TypeIndex int32
	Token     uint32
}

// ParameterDefinition mirrors Il2CppParameterDefinition.
type ParameterDefinition struct {
	NameIndex int32
	Token     uint32
	TypeIndex int32
}

// PropertyDefinition mirrors Il2CppPropertyDefinition.
type PropertyDefinition struct {
	NameIndex int32
	Get       int32
	Set       int32
	Attrs     uint32
	Token     uint32
}

// EventDefinition mirrors Il2CppEventDefinition.
type EventDefinition struct {
	NameIndex int32
	TypeIndex int32
	Add       int32
	Remove    int32
	Raise     int32
	Token     uint32
}

// GenericContainer mirrors Il2CppGenericContainer.
type GenericContainer struct {
	OwnerIndex            int32
	TypeArgc              int32
	IsMethod              int32
	GenericParameterStart int32
}

// GenericParameter mirrors Il2CppGenericParameter.
type GenericParameter struct {
	OwnerIndex       int32
	NameIndex        int32
	ConstraintsStart int16
	ConstraintsCount int16
	Num              uint16
	Flags            uint16
}

// GenericParameterConstraint is a single type-index constraint row.
type GenericParameterConstraint struct {
	TypeIndex int32
}

// DefaultValue is shared by field and parameter default-value tables.
type DefaultValue struct {
	OwnerIndex int32
	TypeIndex  int32
	DataIndex  int32
}

// FieldRef identifies a field within a (possibly generic) declaring type.
type FieldRef struct {
	TypeIndex  int32
	FieldIndex int32
}

// AttributeTypeRange is a [Start, Start+Count) slice into the attribute
// type-index table. Only images of version 21 and later carry ranges;
// for pre-21 images Metadata.AttributeTypeRanges stays empty and the
// bare per-owner indices are decoded into Metadata.AttributeTypes.
type AttributeTypeRange struct {
	Start int32
	Count int32
}

// InterfaceOffset pairs an implemented interface's type index with this
// type's vtable offset for it.
type InterfaceOffset struct {
	InterfaceTypeIndex int32
	Offset             int32
}

// MetadataUsageList is a [Start, Start+Count) slice into the
// metadata_usage_pairs table for one metadata-usage-list kind.
type MetadataUsageList struct {
	Start int32
	Count int32
}

// MetadataUsagePair binds a runtime usage slot to an encoded (kind,
// source index) pair.
type MetadataUsagePair struct {
	DestinationIndex   int32
	EncodedSourceIndex int32
}

// StringLiteral is a (length, data offset) pair into the
// string_literal_data table.
type StringLiteral struct {
	Length    int32
	DataIndex int32
}

// ImageDefinition mirrors Il2CppImageDefinition: one managed assembly's member
// ranges.
type ImageDefinition struct {
	NameIndex          int32
	AssemblyIndex      int32
	TypeStart          int32
	TypeCount          uint32
	ExportedTypeStart  int32
	ExportedTypeCount  uint32
	EntryPointIndex    int32
	Token              uint32
	CodeGenModuleIndex int32
}

// Assembly mirrors Il2CppAssemblyDefinition.
type Assembly struct {
	ImageIndex     int32
	Token          uint32
	NameIndex      int32
	Major          uint32
	Minor          uint32
	Build          uint32
	Revision       uint32
}

// decodeTable reads rowCount records of schema's compiled shape out of r
// starting at slice.Offset, converting each via build. rowCount is
// inferred from slice.Size / record width; a size that is not an exact
// multiple of the record width is a structural fault, not a short row.
func decodeTable[T any](r *bstream.Reader, slice TableSlice, schema bstream.Schema, version float64, name string, build func(bstream.Record) T) ([]T, error) {
	if slice.Size == 0 {
		return nil, nil
	}
	cs := schema.Compile(version)
	if cs.Size == 0 {
		return nil, nil
	}
	if slice.Size%int32(cs.Size) != 0 {
		return nil, ilerr.New(ilerr.MalformedMetadata, name+": table size is not a multiple of its record width").WithOffset(int64(slice.Offset))
	}
	count := int(slice.Size) / cs.Size
	if err := r.Seek(int(slice.Offset)); err != nil {
		return nil, ilerr.Wrap(ilerr.MalformedMetadata, name+": table offset out of range", err)
	}
	out := make([]T, count)
	for i := 0; i < count; i++ {
		rec, err := r.ReadRecord(cs)
		if err != nil {
			return nil, ilerr.Wrap(ilerr.MalformedMetadata, name, err).WithIndex(int64(i))
		}
		out[i] = build(rec)
	}
	return out, nil
}

func buildTypeDefinition(rec bstream.Record) TypeDefinition {
	return TypeDefinition{
		NameIndex:             rec.Int32("name_index"),
		NamespaceIndex:        rec.Int32("namespace_index"),
		ByValTypeIndex:        rec.Int32("byval_type_index"),
		ByRefTypeIndex:        rec.Int32("byref_type_index"),
		DeclaringTypeIndex:    rec.Int32("declaring_type_index"),
		ParentIndex:           rec.Int32("parent_index"),
		ElementTypeIndex:      rec.Int32("element_type_index"),
		GenericContainerIndex: rec.Int32("generic_container_index"),
		Flags:                 uint32(rec.Uint("flags")),
		FieldStart:            rec.Int32("field_start"),
		MethodStart:           rec.Int32("method_start"),
		EventStart:            rec.Int32("event_start"),
		PropertyStart:         rec.Int32("property_start"),
		NestedTypesStart:      rec.Int32("nested_types_start"),
		InterfacesStart:       rec.Int32("interfaces_start"),
		VTableStart:           rec.Int32("vtable_start"),
		InterfaceOffsetsStart: rec.Int32("interface_offsets_start"),
		MethodCount:           uint16(rec.Uint("method_count")),
		PropertyCount:         uint16(rec.Uint("property_count")),
		FieldCount:            uint16(rec.Uint("field_count")),
		EventCount:            uint16(rec.Uint("event_count")),
		NestedTypeCount:       uint16(rec.Uint("nested_type_count")),
		VTableCount:           uint16(rec.Uint("vtable_count")),
		InterfacesCount:       uint16(rec.Uint("interfaces_count")),
		InterfaceOffsetsCount: uint16(rec.Uint("interface_offsets_count")),
		Bitfield:              uint32(rec.Uint("bitfield")),
		Token:                 uint32(rec.Uint("token")),
		PackingSize:           rec.Int32("packing_size"),
		ClassSize:             rec.Int32("class_size"),
		NativeSize:            rec.Int32("native_size"),
	}
}

func buildMethodDefinition(rec bstream.Record) MethodDefinition {
	return MethodDefinition{
		NameIndex:             rec.Int32("name_index"),
		DeclaringType:         rec.Int32("declaring_type"),
		ReturnType:            rec.Int32("return_type"),
		ParameterStart:        rec.Int32("parameter_start"),
		GenericContainerIndex: rec.Int32("generic_container_index"),
		Token:                 uint32(rec.Uint("token")),
		Flags:                 uint16(rec.Uint("flags")),
		IFlags:                uint16(rec.Uint("iflags")),
		Slot:                  uint16(rec.Uint("slot")),
		ParameterCount:        uint16(rec.Uint("parameter_count")),
		InvokerIndex:          rec.Int32("invoker_index"),
		ReversePInvokeWrapper: rec.Int32("reverse_pinvoke_wrapper_index"),
		MethodIndex:           rec.Int32("method_index"),
	}
}

func buildFieldDefinition(rec bstream.Record) FieldDefinition {
	return FieldDefinition{
		NameIndex: rec.Int32("name_index"),
		TypeIndex: rec.Int32("type_index"),
		Token:     uint32(rec.Uint("token")),
	}
}

func buildParameterDefinition(rec bstream.Record) ParameterDefinition {
	return ParameterDefinition{
		NameIndex: rec.Int32("name_index"),
		Token:     uint32(rec.Uint("token")),
		TypeIndex: rec.Int32("type_index"),
	}
}

func buildPropertyDefinition(rec bstream.Record) PropertyDefinition {
	return PropertyDefinition{
		NameIndex: rec.Int32("name_index"),
		Get:       rec.Int32("get"),
		Set:       rec.Int32("set"),
		Attrs:     uint32(rec.Uint("attrs")),
		Token:     uint32(rec.Uint("token")),
	}
}

func buildEventDefinition(rec bstream.Record) EventDefinition {
	return EventDefinition{
		NameIndex: rec.Int32("name_index"),
		TypeIndex: rec.Int32("type_index"),
		Add:       rec.Int32("add"),
		Remove:    rec.Int32("remove"),
		Raise:     rec.Int32("raise"),
		Token:     uint32(rec.Uint("token")),
	}
}

func buildGenericContainer(rec bstream.Record) GenericContainer {
	return GenericContainer{
		OwnerIndex:            rec.Int32("owner_index"),
		TypeArgc:              rec.Int32("type_argc"),
		IsMethod:              rec.Int32("is_method"),
		GenericParameterStart: rec.Int32("generic_parameter_start"),
	}
}

func buildGenericParameter(rec bstream.Record) GenericParameter {
	return GenericParameter{
		OwnerIndex:       rec.Int32("owner_index"),
		NameIndex:        rec.Int32("name_index"),
		ConstraintsStart: rec.Int16("constraints_start"),
		ConstraintsCount: rec.Int16("constraints_count"),
		Num:              uint16(rec.Uint("num")),
		Flags:            uint16(rec.Uint("flags")),
	}
}

func buildGenericParameterConstraint(rec bstream.Record) GenericParameterConstraint {
	return GenericParameterConstraint{TypeIndex: rec.Int32("type_index")}
}

func buildDefaultValue(rec bstream.Record) DefaultValue {
	return DefaultValue{
		OwnerIndex: rec.Int32("owner_index"),
		TypeIndex:  rec.Int32("type_index"),
		DataIndex:  rec.Int32("data_index"),
	}
}

func buildFieldRef(rec bstream.Record) FieldRef {
	return FieldRef{
		TypeIndex:  rec.Int32("type_index"),
		FieldIndex: rec.Int32("field_index"),
	}
}

func buildAttributeTypeRange(rec bstream.Record) AttributeTypeRange {
	return AttributeTypeRange{Start: rec.Int32("start"), Count: rec.Int32("count")}
}

func buildInterfaceOffset(rec bstream.Record) InterfaceOffset {
	return InterfaceOffset{
		InterfaceTypeIndex: rec.Int32("interface_type_index"),
		Offset:             rec.Int32("offset"),
	}
}

func buildMetadataUsageList(rec bstream.Record) MetadataUsageList {
	return MetadataUsageList{Start: rec.Int32("start"), Count: rec.Int32("count")}
}

func buildMetadataUsagePair(rec bstream.Record) MetadataUsagePair {
	return MetadataUsagePair{
		DestinationIndex:   rec.Int32("destination_index"),
		EncodedSourceIndex: rec.Int32("encoded_source_index"),
	}
}

func buildStringLiteral(rec bstream.Record) StringLiteral {
	return StringLiteral{Length: rec.Int32("length"), DataIndex: rec.Int32("data_index")}
}

func buildImage(rec bstream.Record) ImageDefinition {
	return ImageDefinition{
		NameIndex:          rec.Int32("name"),
		AssemblyIndex:      rec.Int32("assembly_index"),
		TypeStart:          rec.Int32("type_start"),
		TypeCount:          uint32(rec.Uint("type_count")),
		ExportedTypeStart:  rec.Int32("exported_type_start"),
		ExportedTypeCount:  uint32(rec.Uint("exported_type_count")),
		EntryPointIndex:    rec.Int32("entry_point_index"),
		Token:              uint32(rec.Uint("token")),
		CodeGenModuleIndex: rec.Int32("code_gen_module_index"),
	}
}

func buildAssembly(rec bstream.Record) Assembly {
	return Assembly{
		ImageIndex: rec.Int32("image_index"),
		Token:      uint32(rec.Uint("token")),
		NameIndex:  rec.Int32("name_index"),
		Major:      uint32(rec.Uint("major")),
		Minor:      uint32(rec.Uint("minor")),
		Build:      uint32(rec.Uint("build")),
		Revision:   uint32(rec.Uint("revision")),
	}
}

// The nested_types, interfaces, and vtable_methods tables are all bare
// int32 index tables; decodeIndexTable (image.go) reads them with the
// generic batch-array reader directly (bstream.ReadInt32Array) rather
// than through decodeTable, since there is nothing to name-map.
