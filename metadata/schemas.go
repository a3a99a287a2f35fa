package metadata

import "github.com/il2cppcore/il2cppcore/bstream"

// Each schema below enumerates one record type's fields in declaration
// order with the version range each field is present in. Only the handful
// of record types whose shape actually changed across the 16..31 version
// range carry MinVersion/MaxVersion gates; the rest are effectively
// fixed-width and simply Compile to their one and only shape regardless
// of version.

// imageSchema is the per-assembly Il2CppImageDefinition record. The
// code_gen_module_index field (joining each image to its per-assembly
// method pointer table) arrived at 24.3; together with the type-def
// ladder it disambiguates the otherwise size-identical 24.2/24.3 pair.
var imageSchema = bstream.Schema{
	{Name: "name", Width: 4},
	{Name: "assembly_index", Width: 4},
	{Name: "type_start", Width: 4},
	{Name: "type_count", Width: 4},
	{Name: "exported_type_start", Width: 4},
	{Name: "exported_type_count", Width: 4},
	{Name: "entry_point_index", Width: 4},
	{Name: "token", Width: 4},
	{Name: "custom_attribute_start", Width: 4, MinVersion: 21},
	{Name: "custom_attribute_count", Width: 4, MinVersion: 21},
	{Name: "code_gen_module_index", Width: 4, MinVersion: 24.3},
}

// assemblySchema is Il2CppAssemblyDefinition: one row per managed
// assembly, identifying its owning image and name components.
var assemblySchema = bstream.Schema{
	{Name: "image_index", Width: 4},
	{Name: "token", Width: 4},
	{Name: "referenced_assembly_start", Width: 4},
	{Name: "referenced_assembly_count", Width: 4},
	{Name: "name_index", Width: 4},
	{Name: "culture_index", Width: 4},
	{Name: "hash_value_index", Width: 4},
	{Name: "public_key_index", Width: 4},
	{Name: "hash_alg", Width: 4},
	{Name: "hash_len", Width: 4},
	{Name: "flags", Width: 4},
	{Name: "major", Width: 4},
	{Name: "minor", Width: 4},
	{Name: "build", Width: 4},
	{Name: "revision", Width: 4},
	{Name: "public_key_token_0", Width: 4},
	{Name: "public_key_token_1", Width: 4},
}

// typeDefinitionSchema is Il2CppTypeDefinition. The trailing layout
// fields arrived one minor at a time across the 24.x range (packing_size
// at 24.2, class_size at 24.4, native_size at 24.5), which is exactly the
// per-record size ladder the 24.x refinement in header.go climbs.
var typeDefinitionSchema = bstream.Schema{
	{Name: "name_index", Width: 4},
	{Name: "namespace_index", Width: 4},
	{Name: "byval_type_index", Width: 4},
	{Name: "byref_type_index", Width: 4},
	{Name: "declaring_type_index", Width: 4},
	{Name: "parent_index", Width: 4},
	{Name: "element_type_index", Width: 4},
	{Name: "generic_container_index", Width: 4},
	{Name: "flags", Width: 4},
	{Name: "field_start", Width: 4},
	{Name: "method_start", Width: 4},
	{Name: "event_start", Width: 4},
	{Name: "property_start", Width: 4},
	{Name: "nested_types_start", Width: 4},
	{Name: "interfaces_start", Width: 4},
	{Name: "vtable_start", Width: 4},
	{Name: "interface_offsets_start", Width: 4},
	{Name: "method_count", Width: 2},
	{Name: "property_count", Width: 2},
	{Name: "field_count", Width: 2},
	{Name: "event_count", Width: 2},
	{Name: "nested_type_count", Width: 2},
	{Name: "vtable_count", Width: 2},
	{Name: "interfaces_count", Width: 2},
	{Name: "interface_offsets_count", Width: 2},
	{Name: "bitfield", Width: 4},
	{Name: "token", Width: 4},
	{Name: "custom_attribute_index", Width: 4, MaxVersion: 20.9},
	{Name: "custom_attribute_start", Width: 4, MinVersion: 21},
	{Name: "custom_attribute_count", Width: 4, MinVersion: 21},
	{Name: "packing_size", Width: 4, MinVersion: 24.2},
	{Name: "class_size", Width: 4, MinVersion: 24.4},
	{Name: "native_size", Width: 4, MinVersion: 24.5},
}

// methodDefinitionSchema is Il2CppMethodDefinition. invoker_index joined
// the record at 24.4; 27.2 split the reverse-P/Invoke wrapper index out
// into its own field, which is the size delta the 27.1/27.2 refinement in
// header.go looks for.
var methodDefinitionSchema = bstream.Schema{
	{Name: "name_index", Width: 4},
	{Name: "declaring_type", Width: 4},
	{Name: "return_type", Width: 4},
	{Name: "parameter_start", Width: 4},
	{Name: "generic_container_index", Width: 4},
	// method_index indexes the owning image's CodeGenModule.methodPointers;
	// -1 marks a method with no code body (abstract, interface, or
	// extern), which must never resolve to a VA.
	{Name: "method_index", Width: 4, Signed: true},
	{Name: "token", Width: 4},
	{Name: "flags", Width: 2},
	{Name: "iflags", Width: 2},
	{Name: "slot", Width: 2},
	{Name: "parameter_count", Width: 2},
	{Name: "custom_attribute_index", Width: 4, MaxVersion: 20.9},
	{Name: "custom_attribute_start", Width: 4, MinVersion: 21},
	{Name: "custom_attribute_count", Width: 4, MinVersion: 21},
	{Name: "invoker_index", Width: 4, MinVersion: 24.4},
	{Name: "reverse_pinvoke_wrapper_index", Width: 4, MinVersion: 27.2},
}

// fieldDefinitionSchema is Il2CppFieldDefinition.
var fieldDefinitionSchema = bstream.Schema{
	{Name: "name_index", Width: 4},
	{Name: "type_index", Width: 4},
	{Name: "token", Width: 4},
	{Name: "custom_attribute_index", Width: 4, MaxVersion: 20.9},
	{Name: "custom_attribute_start", Width: 4, MinVersion: 21},
	{Name: "custom_attribute_count", Width: 4, MinVersion: 21},
}

// parameterDefinitionSchema is Il2CppParameterDefinition.
var parameterDefinitionSchema = bstream.Schema{
	{Name: "name_index", Width: 4},
	{Name: "token", Width: 4},
	{Name: "type_index", Width: 4},
}

// propertyDefinitionSchema is Il2CppPropertyDefinition.
var propertyDefinitionSchema = bstream.Schema{
	{Name: "name_index", Width: 4},
	{Name: "get", Width: 4},
	{Name: "set", Width: 4},
	{Name: "attrs", Width: 4},
	{Name: "token", Width: 4},
	{Name: "custom_attribute_index", Width: 4, MaxVersion: 20.9},
	{Name: "custom_attribute_start", Width: 4, MinVersion: 21},
	{Name: "custom_attribute_count", Width: 4, MinVersion: 21},
}

// eventDefinitionSchema is Il2CppEventDefinition.
var eventDefinitionSchema = bstream.Schema{
	{Name: "name_index", Width: 4},
	{Name: "type_index", Width: 4},
	{Name: "add", Width: 4},
	{Name: "remove", Width: 4},
	{Name: "raise", Width: 4},
	{Name: "token", Width: 4},
	{Name: "custom_attribute_index", Width: 4, MaxVersion: 20.9},
	{Name: "custom_attribute_start", Width: 4, MinVersion: 21},
	{Name: "custom_attribute_count", Width: 4, MinVersion: 21},
}

// genericContainerSchema is Il2CppGenericContainer.
var genericContainerSchema = bstream.Schema{
	{Name: "owner_index", Width: 4},
	{Name: "type_argc", Width: 4},
	{Name: "is_method", Width: 4},
	{Name: "generic_parameter_start", Width: 4},
}

// genericParameterSchema is Il2CppGenericParameter.
var genericParameterSchema = bstream.Schema{
	{Name: "owner_index", Width: 4},
	{Name: "name_index", Width: 4},
	{Name: "constraints_start", Width: 2},
	{Name: "constraints_count", Width: 2},
	{Name: "num", Width: 2},
	{Name: "flags", Width: 2},
}

// genericParameterConstraintSchema is a single type-index row; widened by
// one field at 29.1 (see header.go's isGeneric29_1).
var genericParameterConstraintSchema = bstream.Schema{
	{Name: "type_index", Width: 4},
	{Name: "extra", Width: 4, MinVersion: 29.1},
}

// fieldOrParamDefaultValueSchema is shared by Il2CppFieldDefaultValue and
// Il2CppParameterDefaultValue: both are (owner index, type index, data
// blob index) triples.
var fieldOrParamDefaultValueSchema = bstream.Schema{
	{Name: "owner_index", Width: 4},
	{Name: "type_index", Width: 4},
	{Name: "data_index", Width: 4},
}

// fieldRefSchema is Il2CppFieldRef.
var fieldRefSchema = bstream.Schema{
	{Name: "type_index", Width: 4},
	{Name: "field_index", Width: 4},
}

// attributeTypeRangeSchema is Il2CppCustomAttributeTypeRange (>=21) or, for
// older images, a bare Il2CppCustomAttributeTypeIndex handled by
// decodeIndexTable (image.go) instead.
var attributeTypeRangeSchema = bstream.Schema{
	{Name: "start", Width: 4},
	{Name: "count", Width: 4},
}

// interfaceOffsetSchema is Il2CppInterfaceOffsetPair.
var interfaceOffsetSchema = bstream.Schema{
	{Name: "interface_type_index", Width: 4},
	{Name: "offset", Width: 4},
}

// metadataUsageListSchema is Il2CppMetadataUsageList.
var metadataUsageListSchema = bstream.Schema{
	{Name: "start", Width: 4},
	{Name: "count", Width: 4},
}

// metadataUsagePairSchema is Il2CppMetadataUsagePair: a destination slot
// index plus an encoded (usage kind, source index) value.
var metadataUsagePairSchema = bstream.Schema{
	{Name: "destination_index", Width: 4},
	{Name: "encoded_source_index", Width: 4},
}

// stringLiteralSchema is Il2CppStringLiteral: (length, data-blob offset)
// pairs indexing into the string_literal_data table.
var stringLiteralSchema = bstream.Schema{
	{Name: "length", Width: 4},
	{Name: "data_index", Width: 4},
}
