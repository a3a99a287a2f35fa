package output

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Header renders il2cpp.h: one C struct per type, fields in declaration
// order, emitted in dependency-topological order with cycles broken by an
// incomplete ("struct Foo;") forward declaration.
func Header(m *Model, opts Options) []byte {
	var buf bytes.Buffer
	buf.WriteString("#pragma once\n\n")

	order, cyclic := topoOrder(m.Types)
	for _, idx := range cyclic {
		fmt.Fprintf(&buf, "struct %s;\n", structName(m.Types[idx]))
	}
	if len(cyclic) > 0 {
		buf.WriteByte('\n')
	}

	for _, idx := range order {
		writeStruct(&buf, m.Types[idx], opts)
	}
	return buf.Bytes()
}

func structName(t Type) string {
	return strings.NewReplacer(".", "_", "<", "_", ">", "_", ",", "_").Replace(t.FullName)
}

func writeStruct(buf *bytes.Buffer, t Type, opts Options) {
	fmt.Fprintf(buf, "struct %s // %s\n{\n", structName(t), t.Kind)
	for _, f := range t.Fields {
		line := fmt.Sprintf("\t%s %s;", cType(f.TypeName), f.Name)
		if opts.DumpFieldOffset && f.HasOffset {
			line += fmt.Sprintf(" // 0x%X", f.Offset)
		}
		fmt.Fprintln(buf, line)
	}
	fmt.Fprintln(buf, "};")
	buf.WriteByte('\n')
}

var primitiveCTypes = map[string]string{
	"bool":   "bool",
	"byte":   "uint8_t",
	"sbyte":  "int8_t",
	"char":   "uint16_t",
	"short":  "int16_t",
	"ushort": "uint16_t",
	"int":    "int32_t",
	"uint":   "uint32_t",
	"long":   "int64_t",
	"ulong":  "uint64_t",
	"float":  "float",
	"double": "double",
	"string": "Il2CppString*",
	"object": "Il2CppObject*",
	"IntPtr": "intptr_t",
	"UIntPtr": "uintptr_t",
}

// cType maps a resolved C# display name to a C struct field type. Pointer
// and array suffixes are preserved by emitting the referenced type as a
// pointer, matching every other reference-typed field in an IL2CPP
// struct dump.
func cType(name string) string {
	if strings.HasSuffix(name, "*") {
		return cType(strings.TrimSuffix(name, "*")) + "*"
	}
	if strings.HasSuffix(name, "[]") {
		return "Il2CppArray*"
	}
	if c, ok := primitiveCTypes[name]; ok {
		return c
	}
	return structName(Type{FullName: name}) + "*"
}

// topoOrder returns type indices in dependency order (base/field types
// before dependents) and the subset that had to be broken out of a cycle
// as a forward declaration.
func topoOrder(types []Type) (order []int, cyclic []int) {
	byName := make(map[string]int, len(types))
	for i, t := range types {
		byName[t.FullName] = i
	}

	const (
		white = 0
		gray  = 1
		black = 2
	)
	state := make([]int, len(types))
	cyclicSet := make(map[int]bool)

	var visit func(i int, stack []int)
	visit = func(i int, stack []int) {
		if state[i] == black {
			return
		}
		if state[i] == gray {
			cyclicSet[i] = true
			return
		}
		state[i] = gray
		stack = append(stack, i)

		for _, f := range types[i].Fields {
			depName := strings.TrimSuffix(strings.TrimSuffix(f.TypeName, "*"), "[]")
			if dep, ok := byName[depName]; ok && dep != i {
				visit(dep, stack)
			}
		}

		state[i] = black
		order = append(order, i)
	}

	for i := range types {
		if state[i] == white {
			visit(i, nil)
		}
	}

	for i := range cyclicSet {
		cyclic = append(cyclic, i)
	}
	sort.Ints(cyclic)
	return order, cyclic
}
