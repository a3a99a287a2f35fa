// Package ilerr defines the tagged error taxonomy shared by every stage
// of il2cppcore. Each error carries a Context describing where in the
// input it was raised: a byte offset, a table index, or a virtual
// address, whichever applies.
package ilerr

import "fmt"

// Kind is one of the error categories a dump can fail with.
type Kind string

const (
	UnsupportedVersion      Kind = "UnsupportedVersion"
	AmbiguousVersion        Kind = "AmbiguousVersion"
	MalformedMetadata       Kind = "MalformedMetadata"
	UnsupportedBinaryFormat Kind = "UnsupportedBinaryFormat"
	MalformedBinary         Kind = "MalformedBinary"
	UnmappedAddress         Kind = "UnmappedAddress"
	RegistrationNotFound    Kind = "RegistrationNotFound"
	CorruptIndex            Kind = "CorruptIndex"
	UnexpectedEof           Kind = "UnexpectedEof"
	MalformedString         Kind = "MalformedString"

	// UnknownType is the one kind the executor recovers from locally: an
	// unrecognized Il2CppType tag degrades output (rendered as
	// UnknownType(<tag>)) rather than aborting the run.
	UnknownType Kind = "UnknownType"
)

// Context carries the offset, index, or virtual address at fault,
// whichever applies. Offset, Index and VA appear in the formatted message
// only when their Has* flag is set, and Detail only when it is non-empty.
type Context struct {
	Offset    int64
	Index     int64
	VA        uint64
	HasOffset bool
	HasIndex  bool
	HasVA     bool
	Detail    string
}

// Error is the concrete error value returned across every core stage
// boundary; no panic escapes a package.
type Error struct {
	Kind Kind
	Ctx  Context
	Err  error // wrapped cause, if any
}

func (e *Error) Error() string {
	msg := string(e.Kind)
	if e.Ctx.Detail != "" {
		msg += ": " + e.Ctx.Detail
	}
	if e.Ctx.HasOffset {
		msg += fmt.Sprintf(" (offset=%#x)", e.Ctx.Offset)
	}
	if e.Ctx.HasIndex {
		msg += fmt.Sprintf(" (index=%d)", e.Ctx.Index)
	}
	if e.Ctx.HasVA {
		msg += fmt.Sprintf(" (va=%#x)", e.Ctx.VA)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is allows errors.Is(err, ilerr.RegistrationNotFound) style checks by
// comparing Kind against a bare Kind value wrapped as an *Error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// New builds a plain error of the given kind with a human-readable detail.
func New(kind Kind, detail string) *Error {
	return &Error{Kind: kind, Ctx: Context{Detail: detail}}
}

// Wrap builds an error of the given kind wrapping an underlying cause.
func Wrap(kind Kind, detail string, err error) *Error {
	return &Error{Kind: kind, Ctx: Context{Detail: detail}, Err: err}
}

// WithOffset attaches a byte offset to the error context and returns e for
// chaining, e.g. ilerr.New(ilerr.MalformedMetadata, "...").WithOffset(off).
func (e *Error) WithOffset(off int64) *Error {
	e.Ctx.Offset = off
	e.Ctx.HasOffset = true
	return e
}

// WithIndex attaches a table/array index to the error context.
func (e *Error) WithIndex(idx int64) *Error {
	e.Ctx.Index = idx
	e.Ctx.HasIndex = true
	return e
}

// WithVA attaches a virtual address to the error context.
func (e *Error) WithVA(va uint64) *Error {
	e.Ctx.VA = va
	e.Ctx.HasVA = true
	return e
}

// Sentinel bare-kind values for errors.Is comparisons against a Kind only
// (e.g. `errors.Is(err, ilerr.KindOf(ilerr.RegistrationNotFound))`).
func KindOf(k Kind) *Error { return &Error{Kind: k} }
