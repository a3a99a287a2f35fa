// Package resolver turns the raw registration pointers and decoded
// metadata tables into resolvable type names and method addresses,
// backed by four caches built once per run: a type table snapshot, a
// generic-class cache, a generic-inst cache, and a name cache.
//
// The locator only validates CodeRegistration/MetadataRegistration by
// word count, so this package fixes the concrete internal layout for the
// fields it needs to interpret (documented in DESIGN.md), modeled on the
// runtime's Il2CppGenericClass/Il2CppGenericInst shape: a type pointer
// plus a class/method instantiation context.
package resolver

import (
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/il2cppcore/il2cppcore/ilerr"
	"github.com/il2cppcore/il2cppcore/metadata"
	"github.com/il2cppcore/il2cppcore/registration"
	"github.com/il2cppcore/il2cppcore/vmem"
)

// TypeTag is an Il2CppTypeEnum value, the 8-bit tag packed into a type
// record's bitfield alongside its by-ref/pinned flags.
type TypeTag uint8

const (
	TypeEnd         TypeTag = 0
	TypeVoid        TypeTag = 1
	TypeBoolean     TypeTag = 2
	TypeChar        TypeTag = 3
	TypeI1          TypeTag = 4
	TypeU1          TypeTag = 5
	TypeI2          TypeTag = 6
	TypeU2          TypeTag = 7
	TypeI4          TypeTag = 8
	TypeU4          TypeTag = 9
	TypeI8          TypeTag = 10
	TypeU8          TypeTag = 11
	TypeR4          TypeTag = 12
	TypeR8          TypeTag = 13
	TypeString      TypeTag = 14
	TypePtr         TypeTag = 15
	TypeByRef       TypeTag = 16
	TypeValueType   TypeTag = 17
	TypeClass       TypeTag = 18
	TypeVar         TypeTag = 19
	TypeArray       TypeTag = 20
	TypeGenericInst TypeTag = 21
	TypeTypedByRef  TypeTag = 22
	TypeI           TypeTag = 24
	TypeU           TypeTag = 25
	TypeFnPtr       TypeTag = 27
	TypeObject      TypeTag = 28
	TypeSzArray     TypeTag = 29
	TypeMVar        TypeTag = 30
	TypeCModReqd    TypeTag = 31
	TypeCModOpt     TypeTag = 32
	TypeInternal    TypeTag = 33
	TypeEnum        TypeTag = 85
)

var primitiveNames = map[TypeTag]string{
	TypeVoid:       "void",
	TypeBoolean:    "bool",
	TypeChar:       "char",
	TypeI1:         "sbyte",
	TypeU1:         "byte",
	TypeI2:         "short",
	TypeU2:         "ushort",
	TypeI4:         "int",
	TypeU4:         "uint",
	TypeI8:         "long",
	TypeU8:         "ulong",
	TypeR4:         "float",
	TypeR8:         "double",
	TypeString:     "string",
	TypeObject:     "object",
	TypeI:          "IntPtr",
	TypeU:          "UIntPtr",
	TypeTypedByRef: "TypedReference",
}

// Type is a decoded Il2CppType record.
type Type struct {
	VA     uint64
	Tag    TypeTag
	ByRef  bool
	Pinned bool
	Data   uint64
}

// genericClassFieldCount is the fixed field layout this implementation uses
// for the struct a MetadataRegistration genericClasses entry points at:
// the owning generic type definition's Il2CppType pointer, followed by
// its class and method instantiation pointers (Il2CppGenericContext).
const genericClassFieldCount = 3 // type, classInst, methodInst

// genericInstHeaderWords: argc count word followed by a pointer to an array
// of argc word-sized Il2CppType* pointers (Il2CppGenericInst).
const genericInstHeaderWords = 2

// metadataRegistration field indices within the fixed internal layout
// registration.State.MetadataRegistrationFields uses (see package doc).
const (
	mrTypeDefSizesCount   = 0
	mrTypeDefSizes        = 1
	mrTypesCount          = 2
	mrTypes               = 3
	mrGenericClassesCount = 4
	mrGenericClasses      = 5
	mrGenericInstsCount   = 6
	mrGenericInsts        = 7
	mrFieldOffsetsCount   = 8
	mrFieldOffsets        = 9
)

// codeRegistration field indices within the fixed internal layout
// registration.State.CodeRegistrationFields uses. Field 0 doubles as the
// methods-count seed value registration.Locate's plus_search matches
// against; fields 1/2 are the per-image codeGenModules count/pointer.
const (
	crMethodPointersCount = 0
	crCodeGenModulesCount = 1
	crCodeGenModules      = 2
)

// codeGenModuleFieldCount is this implementation's fixed internal layout
// for one Il2CppCodeGenModule entry: a module-name pointer (unused here),
// a method-pointer count, and the method-pointer table base.
const codeGenModuleFieldCount = 3

// codeGenModule is one per-image entry of CodeRegistration's
// codeGenModules array: a per-assembly method pointer table.
type codeGenModule struct {
	methodPointerCount uint64
	methodPointers     uint64
}

// Resolver holds the per-run caches: a type table snapshot, a
// generic-class cache, a generic-inst cache, and a name cache.
type Resolver struct {
	meta *metadata.Metadata
	img  vmem.Image
	reg  *registration.State
	word int

	imageBase uint64

	typeTable     []uint64 // VA of each Il2CppType* entry, snapshotted once
	typeCache     map[uint64]Type
	genericClass  map[uint64]genericClassInfo
	genericInst   map[uint64][]uint64 // VA -> argument type VAs
	nameCache     map[uint64]string
	codeGenModule map[int]codeGenModule // image index -> its method pointer table, filled lazily
}

type genericClassInfo struct {
	typeVA      uint64
	classInstVA uint64
}

// New builds a Resolver and snapshots the type table. Each method's
// MethodIndex is read verbatim from its decoded metadata row; -1 means
// the method has no code body and must never resolve to an address.
func New(img vmem.Image, meta *metadata.Metadata, reg *registration.State) (*Resolver, error) {
	r := &Resolver{
		meta:          meta,
		img:           img,
		reg:           reg,
		word:          img.WordSize(),
		imageBase:     lowestSegmentVA(img),
		typeCache:     make(map[uint64]Type),
		genericClass:  make(map[uint64]genericClassInfo),
		genericInst:   make(map[uint64][]uint64),
		nameCache:     make(map[uint64]string),
		codeGenModule: make(map[int]codeGenModule),
	}

	if err := r.snapshotTypeTable(); err != nil {
		return nil, err
	}
	return r, nil
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

func (r *Resolver) snapshotTypeTable() error {
	fields := r.reg.MetadataRegistrationFields
	if len(fields) <= mrTypes {
		return ilerr.New(ilerr.MalformedBinary, "MetadataRegistration too short for a types table")
	}
	count := fields[mrTypesCount]
	base := fields[mrTypes]
	table := make([]uint64, count)
	for i := uint64(0); i < count; i++ {
		buf, err := r.img.ReadAt(base+i*uint64(r.word), r.word)
		if err != nil {
			return ilerr.Wrap(ilerr.MalformedBinary, "reading types table entry", err).WithIndex(int64(i))
		}
		table[i] = readWord(buf, r.word)
	}
	r.typeTable = table
	return nil
}

// TypeAt returns the snapshotted Il2CppType* at the given index into the
// flattened types table (metadata's ByValTypeIndex/ByRefTypeIndex address
// into this table).
func (r *Resolver) TypeAt(index int32) (Type, error) {
	if index < 0 || int(index) >= len(r.typeTable) {
		return Type{}, ilerr.New(ilerr.CorruptIndex, "type table index out of range").WithIndex(int64(index))
	}
	return r.decodeType(r.typeTable[index])
}

func (r *Resolver) decodeType(va uint64) (Type, error) {
	if t, ok := r.typeCache[va]; ok {
		return t, nil
	}
	buf, err := r.img.ReadAt(va, r.word+4)
	if err != nil {
		return Type{}, ilerr.Wrap(ilerr.MalformedBinary, "reading Il2CppType record", err).WithVA(va)
	}
	data := readWord(buf, r.word)
	bits := binary.LittleEndian.Uint32(buf[r.word:])
	t := Type{
		VA:     va,
		Tag:    TypeTag((bits >> 16) & 0xFF),
		ByRef:  (bits>>30)&1 != 0,
		Pinned: (bits>>31)&1 != 0,
		Data:   data,
	}
	r.typeCache[va] = t
	return t, nil
}

func (r *Resolver) genericClassAt(va uint64) (genericClassInfo, error) {
	if g, ok := r.genericClass[va]; ok {
		return g, nil
	}
	buf, err := r.img.ReadAt(va, genericClassFieldCount*r.word)
	if err != nil {
		return genericClassInfo{}, ilerr.Wrap(ilerr.MalformedBinary, "reading generic class record", err).WithVA(va)
	}
	g := genericClassInfo{
		typeVA:      readWord(buf, r.word),
		classInstVA: readWord(buf[r.word:], r.word),
	}
	r.genericClass[va] = g
	return g, nil
}

func (r *Resolver) genericInstArgsAt(va uint64) ([]uint64, error) {
	if args, ok := r.genericInst[va]; ok {
		return args, nil
	}
	hdr, err := r.img.ReadAt(va, genericInstHeaderWords*r.word)
	if err != nil {
		return nil, ilerr.Wrap(ilerr.MalformedBinary, "reading generic inst header", err).WithVA(va)
	}
	argc := readWord(hdr, r.word)
	argv := readWord(hdr[r.word:], r.word)
	args := make([]uint64, argc)
	for i := uint64(0); i < argc; i++ {
		buf, err := r.img.ReadAt(argv+i*uint64(r.word), r.word)
		if err != nil {
			return nil, ilerr.Wrap(ilerr.MalformedBinary, "reading generic inst argument", err).WithIndex(int64(i))
		}
		args[i] = readWord(buf, r.word)
	}
	r.genericInst[va] = args
	return args, nil
}

// TypeName composes a type's fully-qualified display name. signature
// controls whether a by-ref type gets its leading "ref" keyword: that
// only appears in method signatures, not in standalone type names (e.g.
// field types).
func (r *Resolver) TypeName(va uint64, signature bool) (string, error) {
	name, err := r.typeName(va)
	if err != nil {
		return "", err
	}
	t, terr := r.decodeType(va)
	if terr == nil && signature && t.ByRef {
		return "ref " + name, nil
	}
	return name, nil
}

func (r *Resolver) typeName(va uint64) (string, error) {
	if name, ok := r.nameCache[va]; ok {
		return name, nil
	}

	t, err := r.decodeType(va)
	if err != nil {
		return "", err
	}

	var name string
	switch t.Tag {
	case TypeValueType, TypeClass, TypeEnum:
		name, err = r.typeDefName(int32(t.Data))
	case TypeVar, TypeMVar:
		name, err = r.genericParamName(int32(t.Data))
	case TypePtr:
		var inner string
		inner, err = r.typeName(t.Data)
		name = inner + "*"
	case TypeSzArray:
		var inner string
		inner, err = r.typeName(t.Data)
		name = inner + "[]"
	case TypeArray:
		name, err = r.arrayName(t.Data)
	case TypeGenericInst:
		name, err = r.genericInstName(t.Data)
	default:
		if n, ok := primitiveNames[t.Tag]; ok {
			name = n
		} else {
			return "", ilerr.New(ilerr.UnknownType, fmt.Sprintf("unresolvable type tag %d", t.Tag)).WithVA(va).WithIndex(int64(t.Tag))
		}
	}
	if err != nil {
		return "", err
	}

	r.nameCache[va] = name
	return name, nil
}

func (r *Resolver) arrayName(recordVA uint64) (string, error) {
	buf, err := r.img.ReadAt(recordVA, r.word+4)
	if err != nil {
		return "", ilerr.Wrap(ilerr.MalformedBinary, "reading array type record", err).WithVA(recordVA)
	}
	elemVA := readWord(buf, r.word)
	rank := binary.LittleEndian.Uint32(buf[r.word:])
	if rank == 0 {
		rank = 1
	}
	elem, err := r.typeName(elemVA)
	if err != nil {
		return "", err
	}
	return elem + "[" + strings.Repeat(",", int(rank)-1) + "]", nil
}

func (r *Resolver) genericInstName(genericClassVA uint64) (string, error) {
	gc, err := r.genericClassAt(genericClassVA)
	if err != nil {
		return "", err
	}
	base, err := r.typeName(gc.typeVA)
	if err != nil {
		return "", err
	}
	if base == "" || gc.classInstVA == 0 {
		return base, nil
	}
	args, err := r.genericInstArgsAt(gc.classInstVA)
	if err != nil {
		return "", err
	}
	names := make([]string, len(args))
	for i, a := range args {
		n, err := r.typeName(a)
		if err != nil {
			return "", err
		}
		names[i] = n
	}
	// typeDefName already appended the open generic definition's own
	// parameter-name placeholders (e.g. "List<T>"); drop that in favor of
	// the substituted argument list.
	if idx := strings.IndexByte(base, '<'); idx >= 0 {
		base = base[:idx]
	}
	return base + "<" + strings.Join(names, ",") + ">", nil
}

func (r *Resolver) genericParamName(paramIndex int32) (string, error) {
	if paramIndex < 0 || int(paramIndex) >= len(r.meta.GenericParameters) {
		return "", ilerr.New(ilerr.CorruptIndex, "generic parameter index out of range").WithIndex(int64(paramIndex))
	}
	gp := r.meta.GenericParameters[paramIndex]
	return r.meta.String(gp.NameIndex)
}

// typeDefName composes a type definition's dotted, namespace-qualified
// name, walking declaring-type links for nested types and appending
// generic parameter names for open generic definitions.
func (r *Resolver) typeDefName(typeDefIndex int32) (string, error) {
	if typeDefIndex < 0 || int(typeDefIndex) >= len(r.meta.TypeDefs) {
		return "", ilerr.New(ilerr.CorruptIndex, "type definition index out of range").WithIndex(int64(typeDefIndex))
	}
	td := r.meta.TypeDefs[typeDefIndex]

	name, err := r.meta.String(td.NameIndex)
	if err != nil {
		return "", err
	}

	if td.GenericContainerIndex >= 0 && int(td.GenericContainerIndex) < len(r.meta.GenericContainers) {
		gc := r.meta.GenericContainers[td.GenericContainerIndex]
		params := make([]string, 0, gc.TypeArgc)
		for i := int32(0); i < gc.TypeArgc; i++ {
			idx := gc.GenericParameterStart + i
			if idx < 0 || int(idx) >= len(r.meta.GenericParameters) {
				continue
			}
			pn, err := r.meta.String(r.meta.GenericParameters[idx].NameIndex)
			if err != nil {
				return "", err
			}
			params = append(params, pn)
		}
		if len(params) > 0 {
			name = name + "<" + strings.Join(params, ",") + ">"
		}
	}

	if td.DeclaringTypeIndex >= 0 {
		outer, err := r.typeDefName(td.DeclaringTypeIndex)
		if err != nil {
			return "", err
		}
		return outer + "." + name, nil
	}

	ns, err := r.meta.String(td.NamespaceIndex)
	if err != nil {
		return "", err
	}
	if ns == "" {
		return name, nil
	}
	return ns + "." + name, nil
}

// MethodAddress resolves a method definition's code address through the
// method pointer table of its owning image's CodeGenModule
// (methodPointers[method_index]).
// imageIndex is the method's declaring image's position in meta.Images,
// which the caller (walking images top-down, as output.Assemble does)
// already knows. It returns the virtual address and the RVA (VA relative
// to the image's lowest segment base).
func (r *Resolver) MethodAddress(m *metadata.MethodDefinition, imageIndex int) (va, rva uint64, err error) {
	if m.MethodIndex < 0 {
		return 0, 0, ilerr.New(ilerr.CorruptIndex, "method has no code body (method_index < 0)").WithIndex(int64(m.MethodIndex))
	}

	cg, err := r.codeGenModuleForImage(imageIndex)
	if err != nil {
		return 0, 0, err
	}
	if uint64(m.MethodIndex) >= cg.methodPointerCount {
		return 0, 0, ilerr.New(ilerr.CorruptIndex, "method index out of range").WithIndex(int64(m.MethodIndex))
	}
	buf, err := r.img.ReadAt(cg.methodPointers+uint64(m.MethodIndex)*uint64(r.word), r.word)
	if err != nil {
		return 0, 0, ilerr.Wrap(ilerr.MalformedBinary, "reading method pointer", err).WithIndex(int64(m.MethodIndex))
	}
	va = readWord(buf, r.word)
	if va == 0 {
		return 0, 0, ilerr.New(ilerr.CorruptIndex, "method has no resolvable code address").WithIndex(int64(m.MethodIndex))
	}
	return va, va - r.imageBase, nil
}

// codeGenModuleForImage resolves and caches the CodeGenModule entry for
// one image index, reading it from CodeRegistration's codeGenModules
// array on first use.
func (r *Resolver) codeGenModuleForImage(imageIndex int) (codeGenModule, error) {
	if cg, ok := r.codeGenModule[imageIndex]; ok {
		return cg, nil
	}

	fields := r.reg.CodeRegistrationFields
	if len(fields) <= crCodeGenModules {
		return codeGenModule{}, ilerr.New(ilerr.MalformedBinary, "CodeRegistration too short for a codeGenModules table")
	}
	count := fields[crCodeGenModulesCount]
	if imageIndex < 0 || uint64(imageIndex) >= count {
		return codeGenModule{}, ilerr.New(ilerr.CorruptIndex, "image index out of range for codeGenModules").WithIndex(int64(imageIndex))
	}

	base := fields[crCodeGenModules]
	ptrBuf, err := r.img.ReadAt(base+uint64(imageIndex)*uint64(r.word), r.word)
	if err != nil {
		return codeGenModule{}, ilerr.Wrap(ilerr.MalformedBinary, "reading codeGenModules entry", err).WithIndex(int64(imageIndex))
	}
	moduleVA := readWord(ptrBuf, r.word)

	hdr, err := r.img.ReadAt(moduleVA, codeGenModuleFieldCount*r.word)
	if err != nil {
		return codeGenModule{}, ilerr.Wrap(ilerr.MalformedBinary, "reading CodeGenModule", err).WithVA(moduleVA)
	}
	cg := codeGenModule{
		methodPointerCount: readWord(hdr[r.word:], r.word),
		methodPointers:     readWord(hdr[2*r.word:], r.word),
	}
	r.codeGenModule[imageIndex] = cg
	return cg, nil
}

// FieldOffset resolves a global field index to its instance offset, read
// directly out of the flattened field-offsets table (a simplification of
// the runtime's per-type int32** indirection: this implementation keeps
// one flat int32 array indexed by global field index).
func (r *Resolver) FieldOffset(globalFieldIndex int32) (int32, error) {
	fields := r.reg.MetadataRegistrationFields
	if len(fields) <= mrFieldOffsets {
		return 0, ilerr.New(ilerr.MalformedBinary, "MetadataRegistration too short for a field offsets table")
	}
	count := fields[mrFieldOffsetsCount]
	if globalFieldIndex < 0 || uint64(globalFieldIndex) >= count {
		return 0, ilerr.New(ilerr.CorruptIndex, "field index out of range").WithIndex(int64(globalFieldIndex))
	}
	base := fields[mrFieldOffsets]
	buf, err := r.img.ReadAt(base+uint64(globalFieldIndex)*4, 4)
	if err != nil {
		return 0, ilerr.Wrap(ilerr.MalformedBinary, "reading field offset", err).WithIndex(int64(globalFieldIndex))
	}
	return int32(binary.LittleEndian.Uint32(buf)), nil
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
