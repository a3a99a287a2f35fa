package bstream

import "fmt"

// Field describes one field of a versioned record: its name (for error
// messages and reflection-free decoding), its width in bytes, whether it
// is signed, and the inclusive version range in which it is present.
// MaxVersion of zero means "present from MinVersion onward, no upper
// bound" (the common case).
type Field struct {
	Name       string
	Width      int
	Signed     bool
	MinVersion float64
	MaxVersion float64
}

// present reports whether this field exists at the given schema version.
func (f Field) present(version float64) bool {
	if version < f.MinVersion {
		return false
	}
	if f.MaxVersion != 0 && version > f.MaxVersion {
		return false
	}
	return true
}

// Schema enumerates, in field order, the shape of one record type across
// every version it has ever had. It is declared once per record type and
// reused for every element of that record's table.
type Schema []Field

// CompiledSchema is a schema pre-filtered down to exactly the fields
// present at one version, in order, with a precomputed total byte width.
// Building one of these once per (record type, version) and reusing it
// is the primary performance win here: metadata arrays are iterated
// hundreds of thousands of times.
type CompiledSchema struct {
	Fields []Field
	Size   int
}

// Compile filters s down to the fields live at version and precomputes
// their total size. Fields absent at this version contribute a zero value
// on decode rather than occupying space in the record.
func (s Schema) Compile(version float64) CompiledSchema {
	cs := CompiledSchema{}
	for _, f := range s {
		if f.present(version) {
			cs.Fields = append(cs.Fields, f)
			cs.Size += f.Width
		}
	}
	return cs
}

// schemaCache memoizes CompiledSchema by (schema identity, version) so a
// hot record type is only ever recompiled once per distinct version seen
// in a process, even across many metadata images.
type schemaCache struct {
	m map[cacheKey]CompiledSchema
}

type cacheKey struct {
	schema  string
	version float64
}

// NewSchemaCache builds an empty memoization cache for CompileNamed.
func NewSchemaCache() *schemaCache {
	return &schemaCache{m: make(map[cacheKey]CompiledSchema)}
}

// CompileNamed compiles s for version, keyed by name, reusing a prior
// compilation for the same (name, version) pair if one exists.
func (c *schemaCache) CompileNamed(name string, s Schema, version float64) CompiledSchema {
	key := cacheKey{schema: name, version: version}
	if cs, ok := c.m[key]; ok {
		return cs
	}
	cs := s.Compile(version)
	c.m[key] = cs
	return cs
}

// Record is a decoded versioned record: field name -> raw unsigned value.
// Every value is stored zero-extended, whatever the field's Signed flag
// says; callers that need the signed form can wrap with int64(int32(v))
// etc. for 4-byte fields, or use Int32/Int16 below.
type Record map[string]uint64

// ReadRecord decodes one record at the cursor using a precompiled schema,
// advancing the cursor by cs.Size bytes. Fields absent at this version
// (filtered out during Compile) are simply never set in the returned map,
// so callers see a zero value for Record.Uint of an absent field.
func (r *Reader) ReadRecord(cs CompiledSchema) (Record, error) {
	rec := make(Record, len(cs.Fields))
	for _, f := range cs.Fields {
		v, err := r.Uint(f.Width)
		if err != nil {
			return nil, fmt.Errorf("bstream: field %q: %w", f.Name, err)
		}
		rec[f.Name] = v
	}
	return rec, nil
}

// Uint returns the raw field value, or zero if the field was absent at
// this record's compiled version.
func (rec Record) Uint(name string) uint64 { return rec[name] }

// Int32 returns a field's value reinterpreted as a signed 32-bit integer,
// the common case for metadata indices (which are -1 for "absent").
func (rec Record) Int32(name string) int32 { return int32(rec[name]) }

// Int16 returns a field's value reinterpreted as a signed 16-bit integer.
func (rec Record) Int16(name string) int16 { return int16(rec[name]) }
