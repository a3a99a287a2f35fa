package metadata

// TableID identifies one of the fixed set of tables a global-metadata.dat
// image carries. The order here is the on-disk order of the
// (offset, size) directory pairs following the header for metadata
// versions >= 24; versions before that carry a shorter prefix of this
// same sequence.
type TableID int

const (
	TableStringLiteral TableID = iota
	TableStringLiteralData
	TableString
	TableEvents
	TableProperties
	TableMethods
	TableParameterDefaultValues
	TableFieldDefaultValues
	TableFieldAndParameterDefaultValueData
	TableFieldMarshaledSizes
	TableParameters
	TableFields
	TableGenericParameters
	TableGenericParameterConstraint
	TableGenericContainers
	TableNestedTypes
	TableInterfaces
	TableVTableMethods
	TableInterfaceOffsets
	TableTypeDefinition
	TableImages
	TableAssemblies
	TableMetadataUsageLists
	TableMetadataUsagePairs
	TableFieldRefs
	TableReferencedAssemblies
	TableAttributeData
	TableAttributeDataRange
	TableUnresolvedIndirectCallParameterTypes
	TableUnresolvedIndirectCallParameterRanges
	TableWindowsRuntimeTypeNames
	TableWindowsRuntimeStrings
	TableExportedTypeDefinitions
)

// TableMethodDefinition aliases the method table for call sites that talk
// about method definitions specifically.
const TableMethodDefinition = TableMethods

// tableOrder is the positional order the header directory uses. Only the
// first len(tableOrder) pairs of the 62-pair v24+ directory are consumed;
// images from earlier major versions simply have a shorter directory and
// trailing TableIDs are absent from Header.Tables.
var tableOrder = []TableID{
	TableStringLiteral,
	TableStringLiteralData,
	TableString,
	TableEvents,
	TableProperties,
	TableMethods,
	TableParameterDefaultValues,
	TableFieldDefaultValues,
	TableFieldAndParameterDefaultValueData,
	TableFieldMarshaledSizes,
	TableParameters,
	TableFields,
	TableGenericParameters,
	TableGenericParameterConstraint,
	TableGenericContainers,
	TableNestedTypes,
	TableInterfaces,
	TableVTableMethods,
	TableInterfaceOffsets,
	TableTypeDefinition,
	TableImages,
	TableAssemblies,
	TableMetadataUsageLists,
	TableMetadataUsagePairs,
	TableFieldRefs,
	TableReferencedAssemblies,
	TableAttributeData,
	TableAttributeDataRange,
	TableUnresolvedIndirectCallParameterTypes,
	TableUnresolvedIndirectCallParameterRanges,
	TableWindowsRuntimeTypeNames,
	TableWindowsRuntimeStrings,
	TableExportedTypeDefinitions,
}
