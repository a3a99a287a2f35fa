package output

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// scriptEntry is one row of script.json: a resolvable method
// ({address, name, signature}) or a string literal ({address, value}),
// all in one ascending-address array.
type scriptEntry struct {
	Address uint64 `json:"address"`
	// Name is present on method rows only; string-literal rows carry
	// Value instead.
	Name string `json:"name,omitempty"`
	// Signature is empty on string-literal entries, which carry Value
	// instead, so omitempty leaves the key out of those rows.
	Signature string `json:"signature,omitempty"`
	Value     string `json:"value,omitempty"`
}

// Script renders script.json from a resolved Model plus the metadata's
// string-literal table. Both method and literal rows share one
// ascending-by-address array.
func Script(m *Model, literalAddresses map[int]uint64, literalValues map[int]string) ([]byte, error) {
	var entries []scriptEntry

	for _, t := range m.Types {
		for _, mth := range t.Methods {
			if !mth.HasAddress {
				continue
			}
			params := make([]string, len(mth.Parameters))
			for i, p := range mth.Parameters {
				params[i] = p.TypeName
			}
			sig := fmt.Sprintf("%s %s.%s(%s)", mth.ReturnType, t.FullName, mth.Name, strings.Join(params, ", "))
			entries = append(entries, scriptEntry{Address: mth.VA, Name: t.FullName + "." + mth.Name, Signature: sig})
		}
	}

	// Walk literals in index order so repeat runs emit byte-identical
	// output regardless of map iteration order.
	idxs := make([]int, 0, len(literalAddresses))
	for idx := range literalAddresses {
		idxs = append(idxs, idx)
	}
	sort.Ints(idxs)
	for _, idx := range idxs {
		entries = append(entries, scriptEntry{Address: literalAddresses[idx], Value: literalValues[idx]})
	}

	sortedScriptEntries(entries)
	return json.MarshalIndent(entries, "", "  ")
}
