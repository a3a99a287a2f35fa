// Package il2cppcore turns an IL2CPP binary plus its global-metadata.dat
// into dump.cs / il2cpp.h / script.json / stringliteral.json, the way
// file.go's File.Parse() pipeline turns raw PE bytes into a populated
// File: decode the structured format, locate the runtime state, resolve
// references against it, and render.
package il2cppcore

import "github.com/il2cppcore/il2cppcore/internal/ilog"

// Config selects what Dump emits and how versions are detected. Every
// boolean defaults to true; the two version overrides default to unset
// (nil), meaning "detect from the input".
type Config struct {
	DumpMethod       bool
	DumpField        bool
	DumpProperty     bool
	DumpAttribute    bool
	DumpFieldOffset  bool
	DumpMethodOffset bool
	DumpTypeDefIndex bool
	GenerateScript   bool

	// ForceIl2CppVersion overrides the version used to interpret the
	// binary's CodeRegistration layout, independent of the metadata
	// version detected from the .dat file.
	ForceIl2CppVersion *float64
	// ForceVersion overrides global-metadata.dat's own detected version.
	ForceVersion *float64

	// Logger receives one line per pipeline stage; it is threaded
	// explicitly through the call, never held as package state. A nil
	// Logger falls back to ilog's default stdout logger.
	Logger ilog.Logger
}

// DefaultConfig returns the documented defaults: everything on, no
// version overrides.
func DefaultConfig() Config {
	return Config{
		DumpMethod:       true,
		DumpField:        true,
		DumpProperty:     true,
		DumpAttribute:    true,
		DumpFieldOffset:  true,
		DumpMethodOffset: true,
		DumpTypeDefIndex: true,
		GenerateScript:   true,
	}
}
