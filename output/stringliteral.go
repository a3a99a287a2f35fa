package output

import (
	"encoding/json"
	"sort"

	"github.com/il2cppcore/il2cppcore/metadata"
)

// literalEntry is one row of stringliteral.json: {index, offset, length,
// value}, sorted ascending by index.
type literalEntry struct {
	Index  int    `json:"index"`
	Offset int32  `json:"offset"`
	Length int32  `json:"length"`
	Value  string `json:"value"`
}

// StringLiterals renders stringliteral.json straight out of the
// metadata's string-literal table; it needs no resolver, only the
// string-literal blob metadata.Decode already sliced out.
func StringLiterals(meta *metadata.Metadata) ([]byte, error) {
	entries := make([]literalEntry, 0, len(meta.StringLiterals))
	for i, lit := range meta.StringLiterals {
		raw, err := meta.StringLiteralBytes(i)
		if err != nil {
			return nil, err
		}
		entries = append(entries, literalEntry{
			Index:  i,
			Offset: lit.DataIndex,
			Length: lit.Length,
			Value:  string(raw),
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Index < entries[j].Index })
	return json.MarshalIndent(entries, "", "  ")
}
