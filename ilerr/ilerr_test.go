package ilerr

import (
	"errors"
	"testing"
)

func TestErrorMessageIncludesContext(t *testing.T) {
	err := New(CorruptIndex, "type_defs").WithIndex(42)
	msg := err.Error()
	if msg == "" {
		t.Fatal("empty error message")
	}
	if !errors.Is(err, KindOf(CorruptIndex)) {
		t.Fatalf("errors.Is should match same Kind: %v", msg)
	}
	if errors.Is(err, KindOf(UnexpectedEof)) {
		t.Fatalf("errors.Is should not match different Kind")
	}
}

func TestWrapUnwrap(t *testing.T) {
	cause := errors.New("boom")
	err := Wrap(MalformedBinary, "segment overlap", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("Wrap should preserve Unwrap chain to cause")
	}
}
