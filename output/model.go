// Package output synthesizes the four artifacts of a dump: dump.cs,
// il2cpp.h, script.json, and stringliteral.json. model.go builds the
// intermediate per-type view every writer renders from, so each writer
// stays a straightforward walk over already-resolved data.
package output

import (
	"errors"
	"fmt"
	"sort"

	"github.com/il2cppcore/il2cppcore/ilerr"
	"github.com/il2cppcore/il2cppcore/metadata"
	"github.com/il2cppcore/il2cppcore/resolver"
)

// Options is the subset of the top-level Config that controls what
// output synthesis includes. Kept independent of the root package's
// Config type so this package has no import-cycle back to it.
type Options struct {
	DumpMethod       bool
	DumpField        bool
	DumpProperty     bool
	DumpAttribute    bool
	DumpFieldOffset  bool
	DumpMethodOffset bool
	DumpTypeDefIndex bool
	GenerateScript   bool
}

// Field is a resolved field ready for rendering.
type Field struct {
	Name      string
	TypeName  string
	Offset    int32
	HasOffset bool
	Static    bool
}

// Parameter is a resolved method parameter.
type Parameter struct {
	Name     string
	TypeName string
}

// Method is a resolved method ready for rendering. Address/RVA are only
// populated when the code pointer resolved; a failed address lookup
// degrades just that method's annotation, it isn't fatal for the run.
type Method struct {
	Name       string
	ReturnType string
	Parameters []Parameter
	VA         uint64
	RVA        uint64
	HasAddress bool
	Static     bool
	Virtual    bool
	Abstract   bool
}

// Property is a resolved property.
type Property struct {
	Name     string
	TypeName string
	HasGet   bool
	HasSet   bool
}

// Event is a resolved event.
type Event struct {
	Name     string
	TypeName string
}

// Type is one fully-resolved type definition.
type Type struct {
	Index         int32
	Name          string
	Namespace     string
	FullName      string
	Kind          string // class, struct, interface, enum
	Modifiers     []string
	BaseType      string
	Interfaces    []string
	Fields        []Field
	Methods       []Method
	Properties    []Property
	Events        []Event
	NestedIndices []int32
	ImageName     string
	Attributes    []string
}

// Model is every resolved type, in image-then-declaration order.
type Model struct {
	Types []Type
}

// Assemble walks every image's type range and resolves each type
// definition into renderable form.
func Assemble(meta *metadata.Metadata, res *resolver.Resolver, opts Options) (*Model, error) {
	var types []Type

	for imgIdx, img := range meta.Images {
		imgName, err := meta.String(img.NameIndex)
		if err != nil {
			return nil, err
		}
		start := img.TypeStart
		end := start + int32(img.TypeCount)
		for i := start; i < end; i++ {
			if i < 0 || int(i) >= len(meta.TypeDefs) {
				return nil, ilerr.New(ilerr.CorruptIndex, "image type range out of bounds").WithIndex(int64(i))
			}
			t, err, panicked := assembleTypeGuarded(meta, res, i, imgName, imgIdx, opts)
			if panicked {
				continue
			}
			if err != nil {
				return nil, err
			}
			types = append(types, t)
		}
	}

	return &Model{Types: types}, nil
}

// assembleTypeGuarded wraps assembleType in a recover guard: a panic
// while assembling one malformed type skips that type rather than
// unwinding the whole emission loop.
func assembleTypeGuarded(meta *metadata.Metadata, res *resolver.Resolver, idx int32, imgName string, imgIdx int, opts Options) (t Type, err error, panicked bool) {
	defer func() {
		if recover() != nil {
			panicked = true
		}
	}()
	t, err = assembleType(meta, res, idx, imgName, imgIdx, opts)
	return t, err, false
}

func assembleType(meta *metadata.Metadata, res *resolver.Resolver, idx int32, imgName string, imgIdx int, opts Options) (Type, error) {
	td := meta.TypeDefs[idx]

	name, err := meta.String(td.NameIndex)
	if err != nil {
		return Type{}, err
	}
	ns, err := meta.String(td.NamespaceIndex)
	if err != nil {
		return Type{}, err
	}

	kind, modifiers := classify(res, td)

	var baseType string
	if td.ParentIndex >= 0 {
		baseType, err = res.TypeName(typeVAFromIndex(res, td.ParentIndex), false)
		if err != nil && !ilerr.KindOf(ilerr.UnknownType).Is(err) {
			return Type{}, err
		} else if err != nil {
			baseType = unknownTypeLabel(err)
		}
	}

	ifaces := make([]string, 0, td.InterfacesCount)
	for i := int32(0); i < int32(td.InterfacesCount); i++ {
		pos := int32(td.InterfacesStart) + i
		if pos < 0 || int(pos) >= len(meta.Interfaces) {
			return Type{}, ilerr.New(ilerr.CorruptIndex, "interface range out of bounds").WithIndex(int64(pos))
		}
		n, err := res.TypeName(typeVAFromIndex(res, meta.Interfaces[pos]), false)
		if err != nil {
			n = unknownTypeLabel(err)
		}
		ifaces = append(ifaces, n)
	}

	t := Type{
		Index:      idx,
		Name:       name,
		Namespace:  ns,
		FullName:   joinNamespace(ns, name),
		Kind:       kind,
		Modifiers:  modifiers,
		BaseType:   baseType,
		Interfaces: ifaces,
		ImageName:  imgName,
	}

	if opts.DumpField {
		t.Fields, err = assembleFields(meta, res, td, opts)
		if err != nil {
			return Type{}, err
		}
	}
	if opts.DumpMethod {
		t.Methods, err = assembleMethods(meta, res, td, imgIdx, opts)
		if err != nil {
			return Type{}, err
		}
	}
	if opts.DumpProperty {
		t.Properties, err = assembleProperties(meta, res, td)
		if err != nil {
			return Type{}, err
		}
	}
	t.Events, err = assembleEvents(meta, res, td)
	if err != nil {
		return Type{}, err
	}

	for i := int32(0); i < int32(td.NestedTypeCount); i++ {
		pos := int32(td.NestedTypesStart) + i
		if pos < 0 || int(pos) >= len(meta.NestedTypes) {
			return Type{}, ilerr.New(ilerr.CorruptIndex, "nested type range out of bounds").WithIndex(int64(pos))
		}
		t.NestedIndices = append(t.NestedIndices, meta.NestedTypes[pos])
	}

	if opts.DumpAttribute {
		t.Attributes = assembleAttributes(meta, res, idx)
	}

	return t, nil
}

// assembleAttributes resolves a type definition's custom attribute type
// names out of the parallel attribute_type_ranges/custom_attribute_types
// tables (indexed directly by type definition index, the same convention
// every other per-type parallel table here uses). A type with no
// attribute range, or an out-of-range one, simply has no attributes.
func assembleAttributes(meta *metadata.Metadata, res *resolver.Resolver, typeDefIndex int32) []string {
	if typeDefIndex < 0 || int(typeDefIndex) >= len(meta.AttributeTypeRanges) {
		return nil
	}
	rng := meta.AttributeTypeRanges[typeDefIndex]
	var names []string
	for i := int32(0); i < rng.Count; i++ {
		pos := rng.Start + i
		if pos < 0 || int(pos) >= len(meta.AttributeTypes) {
			continue
		}
		n, err := res.TypeName(typeVAFromIndex(res, meta.AttributeTypes[pos]), false)
		if err != nil {
			continue
		}
		names = append(names, n)
	}
	return names
}

// typeVAFromIndex resolves a metadata type-table index to the decoded
// Il2CppType's own VA, the handle every resolver.TypeName call expects.
func typeVAFromIndex(res *resolver.Resolver, typeIndex int32) uint64 {
	t, err := res.TypeAt(typeIndex)
	if err != nil {
		return 0
	}
	return t.VA
}

// unknownTypeLabel renders an unresolvable type reference as
// UnknownType(<tag>) so writers can keep going; it is the one failure
// mode recovered locally instead of propagated.
func unknownTypeLabel(err error) string {
	var ie *ilerr.Error
	if errors.As(err, &ie) && ie.Kind == ilerr.UnknownType && ie.Ctx.HasIndex {
		return fmt.Sprintf("UnknownType(%d)", ie.Ctx.Index)
	}
	return "UnknownType"
}

const (
	typeAttrVisibilityMask = 0x7
	typeAttrNestedPublic   = 0x2
	typeAttrLayoutMask     = 0x18
	typeAttrInterface      = 0x20
	typeAttrAbstract       = 0x80
	typeAttrSealed         = 0x100
)

func classify(res *resolver.Resolver, td metadata.TypeDefinition) (kind string, modifiers []string) {
	switch td.Flags & typeAttrVisibilityMask {
	case 0:
		modifiers = append(modifiers, "internal")
	case 1:
		modifiers = append(modifiers, "public")
	default:
		if td.Flags&typeAttrVisibilityMask >= typeAttrNestedPublic {
			modifiers = append(modifiers, "public")
		} else {
			modifiers = append(modifiers, "private")
		}
	}

	kind = "class"
	if td.Flags&typeAttrInterface != 0 {
		kind = "interface"
	} else if td.ParentIndex >= 0 {
		parentName, perr := res.TypeName(typeVAFromIndex(res, td.ParentIndex), false)
		if perr == nil {
			switch parentName {
			case "System.ValueType":
				kind = "struct"
			case "System.Enum":
				kind = "enum"
			}
		}
	}

	if kind == "class" {
		abstract := td.Flags&typeAttrAbstract != 0
		sealed := td.Flags&typeAttrSealed != 0
		switch {
		case abstract && sealed:
			modifiers = append(modifiers, "static")
		case abstract:
			modifiers = append(modifiers, "abstract")
		case sealed:
			modifiers = append(modifiers, "sealed")
		}
	}

	return kind, modifiers
}

func joinNamespace(ns, name string) string {
	if ns == "" {
		return name
	}
	return ns + "." + name
}

func assembleFields(meta *metadata.Metadata, res *resolver.Resolver, td metadata.TypeDefinition, opts Options) ([]Field, error) {
	var out []Field
	for i := int32(0); i < int32(td.FieldCount); i++ {
		globalIdx := td.FieldStart + i
		if globalIdx < 0 || int(globalIdx) >= len(meta.Fields) {
			return nil, ilerr.New(ilerr.CorruptIndex, "field range out of bounds").WithIndex(int64(globalIdx))
		}
		fd := meta.Fields[globalIdx]
		name, err := meta.String(fd.NameIndex)
		if err != nil {
			return nil, err
		}
		typeName, terr := res.TypeName(typeVAFromIndex(res, fd.TypeIndex), false)
		if terr != nil {
			typeName = unknownTypeLabel(terr)
		}
		f := Field{Name: name, TypeName: typeName}
		if opts.DumpFieldOffset {
			off, oerr := res.FieldOffset(globalIdx)
			if oerr == nil {
				f.Offset = off
				f.HasOffset = true
			}
		}
		out = append(out, f)
	}
	return out, nil
}

func assembleMethods(meta *metadata.Metadata, res *resolver.Resolver, td metadata.TypeDefinition, imgIdx int, opts Options) ([]Method, error) {
	var out []Method
	for i := int32(0); i < int32(td.MethodCount); i++ {
		globalIdx := td.MethodStart + i
		if globalIdx < 0 || int(globalIdx) >= len(meta.Methods) {
			return nil, ilerr.New(ilerr.CorruptIndex, "method range out of bounds").WithIndex(int64(globalIdx))
		}
		md := &meta.Methods[globalIdx]
		name, err := meta.String(md.NameIndex)
		if err != nil {
			return nil, err
		}
		retName, rerr := res.TypeName(typeVAFromIndex(res, md.ReturnType), false)
		if rerr != nil {
			retName = unknownTypeLabel(rerr)
		}

		var params []Parameter
		for p := int32(0); p < int32(md.ParameterCount); p++ {
			pi := md.ParameterStart + p
			if pi < 0 || int(pi) >= len(meta.Parameters) {
				return nil, ilerr.New(ilerr.CorruptIndex, "parameter range out of bounds").WithIndex(int64(pi))
			}
			pd := meta.Parameters[pi]
			pname, err := meta.String(pd.NameIndex)
			if err != nil {
				return nil, err
			}
			ptype, perr := res.TypeName(typeVAFromIndex(res, pd.TypeIndex), true)
			if perr != nil {
				ptype = unknownTypeLabel(perr)
			}
			params = append(params, Parameter{Name: pname, TypeName: ptype})
		}

		m := Method{
			Name:       name,
			ReturnType: retName,
			Parameters: params,
			Static:     md.Flags&0x10 != 0,
			Virtual:    md.Flags&0x40 != 0,
			Abstract:   md.Flags&0x400 != 0,
		}
		if opts.DumpMethodOffset {
			va, rva, aerr := res.MethodAddress(md, imgIdx)
			if aerr == nil {
				m.VA, m.RVA, m.HasAddress = va, rva, true
			}
		}
		out = append(out, m)
	}
	return out, nil
}

func assembleProperties(meta *metadata.Metadata, res *resolver.Resolver, td metadata.TypeDefinition) ([]Property, error) {
	var out []Property
	for i := int32(0); i < int32(td.PropertyCount); i++ {
		pos := int32(td.PropertyStart) + i
		if pos < 0 || int(pos) >= len(meta.Properties) {
			return nil, ilerr.New(ilerr.CorruptIndex, "property range out of bounds").WithIndex(int64(pos))
		}
		pd := meta.Properties[pos]
		name, err := meta.String(pd.NameIndex)
		if err != nil {
			return nil, err
		}
		p := Property{Name: name, HasGet: pd.Get >= 0, HasSet: pd.Set >= 0}
		if gi := td.MethodStart + pd.Get; pd.Get >= 0 && gi >= 0 && int(gi) < len(meta.Methods) {
			getter := meta.Methods[gi]
			tn, terr := res.TypeName(typeVAFromIndex(res, getter.ReturnType), false)
			if terr == nil {
				p.TypeName = tn
			}
		}
		out = append(out, p)
	}
	return out, nil
}

func assembleEvents(meta *metadata.Metadata, res *resolver.Resolver, td metadata.TypeDefinition) ([]Event, error) {
	var out []Event
	for i := int32(0); i < int32(td.EventCount); i++ {
		pos := int32(td.EventStart) + i
		if pos < 0 || int(pos) >= len(meta.Events) {
			return nil, ilerr.New(ilerr.CorruptIndex, "event range out of bounds").WithIndex(int64(pos))
		}
		ed := meta.Events[pos]
		name, err := meta.String(ed.NameIndex)
		if err != nil {
			return nil, err
		}
		tn, terr := res.TypeName(typeVAFromIndex(res, ed.TypeIndex), false)
		if terr != nil {
			tn = unknownTypeLabel(terr)
		}
		out = append(out, Event{Name: name, TypeName: tn})
	}
	return out, nil
}

// sortedScriptEntries orders script.json's method and string-literal
// entries ascending by address. Equal addresses tie-break on name then
// value so the output is a pure function of its input.
func sortedScriptEntries(entries []scriptEntry) {
	sort.Slice(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Address != b.Address {
			return a.Address < b.Address
		}
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.Value < b.Value
	})
}
