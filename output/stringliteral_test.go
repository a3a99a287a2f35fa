package output

import (
	"encoding/json"
	"testing"

	"github.com/il2cppcore/il2cppcore/metadata"
)

func TestStringLiteralsSortedByIndexAndByteExact(t *testing.T) {
	meta := &metadata.Metadata{
		StringLiteralData: []byte("helloworld"),
		StringLiterals: []metadata.StringLiteral{
			{Length: 5, DataIndex: 5}, // "world"
			{Length: 5, DataIndex: 0}, // "hello"
		},
	}
	data, err := StringLiterals(meta)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var entries []literalEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		t.Fatalf("unexpected unmarshal error: %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Index != 0 || entries[0].Value != "world" {
		t.Fatalf("expected index 0 to be 'world' (by declaration order), got %+v", entries[0])
	}
	if entries[1].Index != 1 || entries[1].Value != "hello" {
		t.Fatalf("expected index 1 to be 'hello', got %+v", entries[1])
	}
}

func TestStringLiteralsOutOfRangeDataFails(t *testing.T) {
	meta := &metadata.Metadata{
		StringLiteralData: []byte("short"),
		StringLiterals:    []metadata.StringLiteral{{Length: 100, DataIndex: 0}},
	}
	_, err := StringLiterals(meta)
	if err == nil {
		t.Fatal("expected an error for a literal whose length exceeds the data blob")
	}
}
