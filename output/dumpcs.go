package output

import (
	"bytes"
	"fmt"
	"strings"
)

// DumpCS renders dump.cs: one pseudo-C# declaration per type, in image
// then declaration order, 2-space indented, with attributes, fields,
// methods, properties, and events. Identical input produces
// byte-identical output.
func DumpCS(m *Model, opts Options) []byte {
	var buf bytes.Buffer
	currentImage := ""
	for _, t := range m.Types {
		if t.ImageName != currentImage {
			if currentImage != "" {
				buf.WriteByte('\n')
			}
			fmt.Fprintf(&buf, "// Image: %s\n", t.ImageName)
			currentImage = t.ImageName
		}
		writeType(&buf, t, opts, 0)
	}
	return buf.Bytes()
}

func writeType(buf *bytes.Buffer, t Type, opts Options, depth int) {
	indent := strings.Repeat("  ", depth)

	if opts.DumpTypeDefIndex {
		fmt.Fprintf(buf, "%s// TypeDefIndex: %d\n", indent, t.Index)
	}
	for _, a := range t.Attributes {
		fmt.Fprintf(buf, "%s[%s]\n", indent, a)
	}

	header := indent + strings.Join(t.Modifiers, " ")
	if len(t.Modifiers) > 0 {
		header += " "
	}
	header += t.Kind + " " + t.FullName

	var bases []string
	if t.BaseType != "" && t.BaseType != "System.Object" && t.BaseType != "System.ValueType" {
		bases = append(bases, t.BaseType)
	}
	bases = append(bases, t.Interfaces...)
	if len(bases) > 0 {
		header += " : " + strings.Join(bases, ", ")
	}

	fmt.Fprintln(buf, header)
	fmt.Fprintln(buf, indent+"{")

	inner := depth + 1
	innerIndent := strings.Repeat("  ", inner)

	for _, f := range t.Fields {
		line := innerIndent + f.TypeName + " " + f.Name + ";"
		if f.HasOffset {
			line += fmt.Sprintf(" // 0x%X", f.Offset)
		}
		fmt.Fprintln(buf, line)
	}

	for _, p := range t.Properties {
		accessors := ""
		if p.HasGet {
			accessors += "get; "
		}
		if p.HasSet {
			accessors += "set; "
		}
		fmt.Fprintf(buf, "%s%s %s { %s}\n", innerIndent, p.TypeName, p.Name, accessors)
	}

	for _, e := range t.Events {
		fmt.Fprintf(buf, "%sevent %s %s;\n", innerIndent, e.TypeName, e.Name)
	}

	for _, mth := range t.Methods {
		params := make([]string, len(mth.Parameters))
		for i, p := range mth.Parameters {
			params[i] = p.TypeName + " " + p.Name
		}
		modifiers := ""
		if mth.Static {
			modifiers += "static "
		}
		if mth.Abstract {
			modifiers += "abstract "
		} else if mth.Virtual {
			modifiers += "virtual "
		}
		line := fmt.Sprintf("%s%s%s %s(%s);", innerIndent, modifiers, mth.ReturnType, mth.Name, strings.Join(params, ", "))
		if mth.HasAddress {
			line += fmt.Sprintf(" // RVA: 0x%X VA: 0x%X", mth.RVA, mth.VA)
		}
		fmt.Fprintln(buf, line)
	}

	fmt.Fprintln(buf, indent+"}")
}
