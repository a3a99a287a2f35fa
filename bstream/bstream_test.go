package bstream

import (
	"reflect"
	"testing"
)

func TestReadPrimitives(t *testing.T) {
	buf := []byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08}
	r := New(buf)

	u8, err := r.U8()
	if err != nil || u8 != 0x01 {
		t.Fatalf("U8 = %v, %v", u8, err)
	}

	u16, err := r.U16()
	if err != nil || u16 != 0x0302 {
		t.Fatalf("U16 = %#x, %v", u16, err)
	}

	u32, err := r.U32()
	if err != nil || u32 != 0x07060504 {
		t.Fatalf("U32 = %#x, %v", u32, err)
	}

	if r.Remaining() != 1 {
		t.Fatalf("Remaining = %d, want 1", r.Remaining())
	}
}

func TestReadPastEndFails(t *testing.T) {
	r := New([]byte{0x01})
	if _, err := r.U32(); err != ErrUnexpectedEof {
		t.Fatalf("U32 on short buffer = %v, want ErrUnexpectedEof", err)
	}
}

func TestSeekBounds(t *testing.T) {
	r := New(make([]byte, 4))
	if err := r.Seek(4); err != nil {
		t.Fatalf("Seek(len) failed: %v", err)
	}
	if err := r.Seek(5); err != ErrUnexpectedEof {
		t.Fatalf("Seek(len+1) = %v, want ErrUnexpectedEof", err)
	}
	if err := r.Seek(-1); err != ErrUnexpectedEof {
		t.Fatalf("Seek(-1) = %v, want ErrUnexpectedEof", err)
	}
}

func TestNulStringAt(t *testing.T) {
	buf := []byte("hello\x00world\x00")
	r := New(buf)

	s, err := r.NulStringAt(0)
	if err != nil || s != "hello" {
		t.Fatalf("NulStringAt(0) = %q, %v", s, err)
	}

	s, err = r.NulStringAt(6)
	if err != nil || s != "world" {
		t.Fatalf("NulStringAt(6) = %q, %v", s, err)
	}
}

func TestNulStringAtMalformed(t *testing.T) {
	buf := []byte("no terminator")
	r := New(buf)
	if _, err := r.NulStringAt(0); err != ErrMalformedString {
		t.Fatalf("NulStringAt = %v, want ErrMalformedString", err)
	}
}

func TestReadUintArray(t *testing.T) {
	buf := []byte{1, 0, 0, 0, 2, 0, 0, 0, 3, 0, 0, 0}
	r := New(buf)
	got, err := r.ReadUintArray(3, 4)
	if err != nil {
		t.Fatal(err)
	}
	want := []uint64{1, 2, 3}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ReadUintArray = %v, want %v", got, want)
	}
}

func TestReadInt32ArrayNegative(t *testing.T) {
	buf := []byte{0xff, 0xff, 0xff, 0xff, 0x02, 0x00, 0x00, 0x00}
	r := New(buf)
	got, err := r.ReadInt32Array(2)
	if err != nil {
		t.Fatal(err)
	}
	want := []int32{-1, 2}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ReadInt32Array = %v, want %v", got, want)
	}
}

func TestWordSize(t *testing.T) {
	buf := make([]byte, 16)
	buf[0] = 0xef
	buf[7] = 0x01
	r := New(buf)
	v, err := r.Word(8)
	if err != nil {
		t.Fatal(err)
	}
	if v != 0x01000000000000ef {
		t.Fatalf("Word(8) = %#x", v)
	}
}
