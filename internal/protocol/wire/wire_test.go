package wire

import (
	"bytes"
	"errors"
	"math"
	"testing"
)

func TestWriterReaderRoundTrip(t *testing.T) {
	w := NewWriter(64)
	w.Int64(math.MaxInt64)
	w.Int64(-1)
	w.Uint8(7)
	w.Uint16(9000)
	w.Text("client-a")
	w.Blob([]byte{1, 2, 3})
	w.Blob(nil)

	r := NewReader(w.Bytes())
	if v := r.Int64(); v != math.MaxInt64 {
		t.Fatalf("int64 max got=%d", v)
	}
	if v := r.Int64(); v != -1 {
		t.Fatalf("int64 -1 got=%d", v)
	}
	if v := r.Uint8(); v != 7 {
		t.Fatalf("uint8 got=%d", v)
	}
	if v := r.Uint16(); v != 9000 {
		t.Fatalf("uint16 got=%d", v)
	}
	if v := r.Text(); v != "client-a" {
		t.Fatalf("string got=%q", v)
	}
	if v := r.Blob(); !bytes.Equal(v, []byte{1, 2, 3}) {
		t.Fatalf("blob got=%v", v)
	}
	if v := r.Blob(); len(v) != 0 {
		t.Fatalf("empty blob got=%v", v)
	}
	if err := r.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestInt64IsBigEndian(t *testing.T) {
	w := NewWriter(8)
	w.Int64(0x0102030405060708)
	if !bytes.Equal(w.Bytes(), []byte{1, 2, 3, 4, 5, 6, 7, 8}) {
		t.Fatalf("unexpected encoding: %v", w.Bytes())
	}
}

func TestReaderStickyTruncation(t *testing.T) {
	r := NewReader([]byte{0, 0, 0})
	if v := r.Int64(); v != 0 {
		t.Fatalf("expected zero value, got %d", v)
	}
	if v := r.Uint8(); v != 0 {
		t.Fatalf("reads after failure must return zero, got %d", v)
	}
	if !errors.Is(r.Err(), ErrTruncated) {
		t.Fatalf("expected ErrTruncated, got %v", r.Err())
	}
	if !errors.Is(r.Close(), ErrTruncated) {
		t.Fatalf("close should report sticky error")
	}
}

func TestReaderTrailingBytes(t *testing.T) {
	r := NewReader([]byte{1, 2})
	r.Uint8()
	if err := r.Close(); !errors.Is(err, ErrTrailingBytes) {
		t.Fatalf("expected ErrTrailingBytes, got %v", err)
	}
}

func TestReaderRejectsOversizedLengths(t *testing.T) {
	w := NewWriter(8)
	w.Uint32(1 << 30)
	r := NewReader(w.Bytes())
	if b := r.Blob(); b != nil {
		t.Fatalf("expected nil blob")
	}
	if !errors.Is(r.Err(), ErrTooLong) {
		t.Fatalf("expected ErrTooLong, got %v", r.Err())
	}

	r = NewReader(w.Bytes())
	if n := r.Count(4); n != 0 || !errors.Is(r.Err(), ErrTooLong) {
		t.Fatalf("expected count rejection, n=%d err=%v", n, r.Err())
	}
}
