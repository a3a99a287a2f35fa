package output

import (
	"strings"
	"testing"
)

func TestCTypeMapsPrimitivesPointersArrays(t *testing.T) {
	cases := map[string]string{
		"int":      "int32_t",
		"bool":     "bool",
		"string":   "Il2CppString*",
		"int*":     "int32_t*",
		"int[]":    "Il2CppArray*",
		"Game.Foo": "Game_Foo*",
	}
	for in, want := range cases {
		if got := cType(in); got != want {
			t.Fatalf("cType(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestStructNameSanitizesGenericPunctuation(t *testing.T) {
	got := structName(Type{FullName: "Game.List<Game.Foo>"})
	if strings.ContainsAny(got, ".<>,") {
		t.Fatalf("expected no punctuation in struct name, got %q", got)
	}
}

func TestHeaderEmitsOneStructPerType(t *testing.T) {
	m := &Model{Types: []Type{
		{FullName: "Game.Foo", Kind: "class", Fields: []Field{{Name: "x", TypeName: "int"}}},
		{FullName: "Game.Bar", Kind: "struct"},
	}}
	out := string(Header(m, Options{}))
	if !strings.Contains(out, "struct Game_Foo") {
		t.Fatalf("expected a struct for Game.Foo, got:\n%s", out)
	}
	if !strings.Contains(out, "struct Game_Bar") {
		t.Fatalf("expected a struct for Game.Bar, got:\n%s", out)
	}
	if !strings.Contains(out, "int32_t x;") {
		t.Fatalf("expected field x rendered as int32_t, got:\n%s", out)
	}
}

func TestTopoOrderBreaksCycles(t *testing.T) {
	// Foo has a field of type Bar, Bar has a field of type Foo: a genuine
	// cycle that must be broken with a forward declaration, not an infinite
	// recursion.
	types := []Type{
		{FullName: "Game.Foo", Fields: []Field{{TypeName: "Game.Bar*"}}},
		{FullName: "Game.Bar", Fields: []Field{{TypeName: "Game.Foo*"}}},
	}
	order, cyclic := topoOrder(types)
	if len(order) != len(types) {
		t.Fatalf("expected every type to appear in the emission order, got %v", order)
	}
	if len(cyclic) == 0 {
		t.Fatal("expected at least one type to be flagged as part of a cycle")
	}
}

func TestHeaderHandlesSelfReferentialCycleWithoutPanicking(t *testing.T) {
	m := &Model{Types: []Type{
		{FullName: "Game.Node", Fields: []Field{{Name: "next", TypeName: "Game.Node*"}}},
	}}
	out := string(Header(m, Options{}))
	if !strings.Contains(out, "struct Game_Node") {
		t.Fatalf("expected the self-referential type to still be emitted, got:\n%s", out)
	}
}
