package il2cppcore

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/il2cppcore/il2cppcore/metadata"
)

// The fixtures below assemble a complete dump input in memory: a v24.1
// global-metadata.dat with three type definitions and one method, and a
// WebAssembly module whose data section carries the CodeRegistration/
// MetadataRegistration structs the locator has to find by scanning.

const (
	fixtureDataBase = 0x1000 // linear address of the WASM data segment

	fixtureCodeRegVA     = fixtureDataBase
	fixtureCodeGenArrVA  = fixtureDataBase + 0x100
	fixtureCodeGenModVA  = fixtureDataBase + 0x110
	fixtureMethodPtrsVA  = fixtureDataBase + 0x120
	fixtureMetaRegVA     = fixtureDataBase + 0x200
	fixtureTypesTableVA  = fixtureDataBase + 0x300
	fixtureTypeRecordVA  = fixtureDataBase + 0x340
	fixtureMethodCodeVA  = 0x2000 // reported address; intentionally outside the data segment
	fixtureDataBlobSize  = 0x400
	fixtureTypeDefsCount = 3
)

type blobWriter struct {
	buf []byte
}

func (w *blobWriter) putU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[off:], v)
}

// buildRegistrationBlob lays out everything the 32-bit locator and
// resolver read out of the binary: CodeRegistration seeded with the
// body-method count, its one-image codeGenModules chain, the method
// pointer table, MetadataRegistration seeded with the type-def count,
// and the single-entry Il2CppType* table.
func buildRegistrationBlob() []byte {
	w := &blobWriter{buf: make([]byte, fixtureDataBlobSize)}

	rel := func(va uint32) int { return int(va - fixtureDataBase) }

	// CodeRegistration: methodsCount, codeGenModulesCount, codeGenModules.
	w.putU32(rel(fixtureCodeRegVA), 1)
	w.putU32(rel(fixtureCodeRegVA)+4, 1)
	w.putU32(rel(fixtureCodeRegVA)+8, fixtureCodeGenArrVA)

	// codeGenModules[0] -> module -> (name, count, methodPointers).
	w.putU32(rel(fixtureCodeGenArrVA), fixtureCodeGenModVA)
	w.putU32(rel(fixtureCodeGenModVA)+4, 1)
	w.putU32(rel(fixtureCodeGenModVA)+8, fixtureMethodPtrsVA)
	w.putU32(rel(fixtureMethodPtrsVA), fixtureMethodCodeVA)

	// MetadataRegistration: typeDefsCount, then the types table pair.
	w.putU32(rel(fixtureMetaRegVA), fixtureTypeDefsCount)
	w.putU32(rel(fixtureMetaRegVA)+2*4, 1)
	w.putU32(rel(fixtureMetaRegVA)+3*4, fixtureTypesTableVA)

	// types[0] -> an Il2CppType record tagged int32.
	w.putU32(rel(fixtureTypesTableVA), fixtureTypeRecordVA)
	w.putU32(rel(fixtureTypeRecordVA)+4, 8<<16) // tag 8 = int

	return w.buf
}

func uleb(v uint32) []byte {
	var out []byte
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		out = append(out, b)
		if v == 0 {
			return out
		}
	}
}

// buildWASMBinary wraps the registration blob in a minimal but valid
// module: magic, version, a one-page memory section, and one data
// segment at fixtureDataBase.
func buildWASMBinary(blob []byte) []byte {
	var out bytes.Buffer
	out.Write([]byte{0x00, 'a', 's', 'm', 1, 0, 0, 0})

	memBody := []byte{0x01, 0x00, 0x01} // one memory, flags 0, min 1 page
	out.WriteByte(5)
	out.Write(uleb(uint32(len(memBody))))
	out.Write(memBody)

	var seg bytes.Buffer
	seg.WriteByte(0x01) // one segment
	seg.WriteByte(0x00) // memory index 0
	seg.WriteByte(0x41) // i32.const
	seg.Write([]byte{0x80, 0x20})
	seg.WriteByte(0x0b) // end
	seg.Write(uleb(uint32(len(blob))))
	seg.Write(blob)

	out.WriteByte(11)
	out.Write(uleb(uint32(seg.Len())))
	out.Write(seg.Bytes())
	return out.Bytes()
}

// metadataBuilder accumulates table payloads and emits a full
// global-metadata.dat image around them.
type metadataBuilder struct {
	tables map[metadata.TableID][]byte
}

func (b *metadataBuilder) emit(version int32) []byte {
	dirCount := int(metadata.TableExportedTypeDefinitions) + 1
	base := 4 + 4 + dirCount*8

	var body bytes.Buffer
	offsets := make(map[metadata.TableID][2]int32)
	for id := metadata.TableID(0); id < metadata.TableID(dirCount); id++ {
		data, ok := b.tables[id]
		if !ok {
			continue
		}
		offsets[id] = [2]int32{int32(base + body.Len()), int32(len(data))}
		body.Write(data)
	}

	var out bytes.Buffer
	binary.Write(&out, binary.LittleEndian, uint32(metadata.Magic))
	binary.Write(&out, binary.LittleEndian, version)
	for id := metadata.TableID(0); id < metadata.TableID(dirCount); id++ {
		pair := offsets[id]
		binary.Write(&out, binary.LittleEndian, pair[0])
		binary.Write(&out, binary.LittleEndian, pair[1])
	}
	out.Write(body.Bytes())
	return out.Bytes()
}

func i32s(vals ...int32) []byte {
	var out bytes.Buffer
	for _, v := range vals {
		binary.Write(&out, binary.LittleEndian, v)
	}
	return out.Bytes()
}

func u16s(vals ...uint16) []byte {
	var out bytes.Buffer
	for _, v := range vals {
		binary.Write(&out, binary.LittleEndian, v)
	}
	return out.Bytes()
}

// buildFixtureMetadata assembles a v24 image whose table sizes refine to
// 24.1: three public classes in one assembly, the first with a single
// parameterless void-free method ("Run") whose method_index is 0.
func buildFixtureMetadata() []byte {
	names := []string{"Assembly-CSharp.dll", "", "A", "B", "C", "Run"}
	var blob []byte
	off := make(map[string]int32)
	for _, s := range names {
		off[s] = int32(len(blob))
		blob = append(blob, []byte(s)...)
		blob = append(blob, 0)
	}

	typeDef := func(name string, methodStart int32, methodCount uint16) []byte {
		var row bytes.Buffer
		row.Write(i32s(
			off[name], off[""], // name, namespace
			0, 0, // byval, byref type indices
			-1, -1, // declaring, parent
			0, -1, // element, generic container
			1,           // flags: public
			0,           // field start
			methodStart, // method start
			0, 0, 0, 0, 0, 0, // event/property/nested/interfaces/vtable/interface_offsets starts
		))
		row.Write(u16s(methodCount, 0, 0, 0, 0, 0, 0, 0))
		row.Write(i32s(0, 0, 0, 0)) // bitfield, token, attribute start/count
		return row.Bytes()
	}

	var typeDefs bytes.Buffer
	typeDefs.Write(typeDef("A", 0, 1))
	typeDefs.Write(typeDef("B", 0, 0))
	typeDefs.Write(typeDef("C", 0, 0))

	var method bytes.Buffer
	method.Write(i32s(off["Run"], 0, 0, 0, -1, 0, 0)) // name, declaring, return, param start, generic container, method_index, token
	method.Write(u16s(0, 0, 0, 0))                    // flags, iflags, slot, param count
	method.Write(i32s(0, 0))                          // attribute start/count

	image := i32s(off["Assembly-CSharp.dll"], 0, 0, fixtureTypeDefsCount, 0, 0, -1, 0, 0, 0)

	literal := i32s(2, 0) // length 2, offset 0 into "hi"

	b := &metadataBuilder{tables: map[metadata.TableID][]byte{
		metadata.TableString:            blob,
		metadata.TableTypeDefinition:    typeDefs.Bytes(),
		metadata.TableMethods:           method.Bytes(),
		metadata.TableImages:            image,
		metadata.TableStringLiteral:     literal,
		metadata.TableStringLiteralData: []byte("hi"),
	}}
	return b.emit(24)
}

func TestDumpEndToEndWASM(t *testing.T) {
	binaryBytes := buildWASMBinary(buildRegistrationBlob())
	metadataBytes := buildFixtureMetadata()

	artifacts, err := Dump(binaryBytes, metadataBytes, DefaultConfig())
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}

	for _, name := range []string{"dump.cs", "il2cpp.h", "script.json", "stringliteral.json"} {
		if _, ok := artifacts[name]; !ok {
			t.Fatalf("missing artifact %q; got %v", name, artifacts)
		}
	}

	cs := string(artifacts["dump.cs"])
	for _, want := range []string{
		"// Image: Assembly-CSharp.dll",
		"public class A",
		"public class B",
		"public class C",
		"int Run();",
	} {
		if !strings.Contains(cs, want) {
			t.Fatalf("dump.cs missing %q:\n%s", want, cs)
		}
	}
	if !strings.Contains(cs, "RVA: 0x1000 VA: 0x2000") {
		t.Fatalf("expected Run's code address annotation, got:\n%s", cs)
	}

	script := string(artifacts["script.json"])
	if !strings.Contains(script, `"name": "A.Run"`) {
		t.Fatalf("script.json missing method entry:\n%s", script)
	}
	if !strings.Contains(script, `"value": "hi"`) {
		t.Fatalf("script.json missing string literal entry:\n%s", script)
	}

	literals := string(artifacts["stringliteral.json"])
	if !strings.Contains(literals, `"value": "hi"`) {
		t.Fatalf("stringliteral.json missing literal:\n%s", literals)
	}
}

func TestDumpDeterministic(t *testing.T) {
	binaryBytes := buildWASMBinary(buildRegistrationBlob())
	metadataBytes := buildFixtureMetadata()

	first, err := Dump(binaryBytes, metadataBytes, DefaultConfig())
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	second, err := Dump(binaryBytes, metadataBytes, DefaultConfig())
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("artifact sets differ: %d vs %d", len(first), len(second))
	}
	for name, content := range first {
		if !bytes.Equal(content, second[name]) {
			t.Fatalf("artifact %q differs between runs", name)
		}
	}
}

func TestDumpRejectsUnknownBinaryFormat(t *testing.T) {
	metadataBytes := buildFixtureMetadata()
	_, err := Dump([]byte{1, 2, 3, 4, 5, 6, 7, 8}, metadataBytes, DefaultConfig())
	if err == nil {
		t.Fatal("expected an error for an unrecognizable binary")
	}
}

func TestDumpNoScript(t *testing.T) {
	binaryBytes := buildWASMBinary(buildRegistrationBlob())
	metadataBytes := buildFixtureMetadata()

	cfg := DefaultConfig()
	cfg.GenerateScript = false
	artifacts, err := Dump(binaryBytes, metadataBytes, cfg)
	if err != nil {
		t.Fatalf("Dump: %v", err)
	}
	if _, ok := artifacts["script.json"]; ok {
		t.Fatal("expected script.json to be skipped")
	}
	if _, ok := artifacts["dump.cs"]; !ok {
		t.Fatal("expected dump.cs to still be produced")
	}
}
