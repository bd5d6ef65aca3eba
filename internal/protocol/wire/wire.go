// Package wire holds the big-endian body primitives shared by every message
// binding. Writers never fail; readers keep the first error and return zero
// values afterwards so a binding can read its whole field list and check
// Err once.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	ErrTruncated     = errors.New("wire: truncated data")
	ErrTrailingBytes = errors.New("wire: trailing bytes")
	ErrTooLong       = errors.New("wire: length exceeds remaining data")
)

type Writer struct {
	buf []byte
}

func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

func (w *Writer) Bytes() []byte {
	return w.buf
}

func (w *Writer) Len() int {
	return len(w.buf)
}

func (w *Writer) Uint8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *Writer) Uint16(v uint16) {
	w.buf = binary.BigEndian.AppendUint16(w.buf, v)
}

func (w *Writer) Uint32(v uint32) {
	w.buf = binary.BigEndian.AppendUint32(w.buf, v)
}

func (w *Writer) Int64(v int64) {
	w.buf = binary.BigEndian.AppendUint64(w.buf, uint64(v))
}

// Raw appends b without a length prefix.
func (w *Writer) Raw(b []byte) {
	w.buf = append(w.buf, b...)
}

// Blob appends b with a u32 length prefix.
func (w *Writer) Blob(b []byte) {
	w.Uint32(uint32(len(b)))
	w.buf = append(w.buf, b...)
}

func (w *Writer) Text(s string) {
	w.Uint32(uint32(len(s)))
	w.buf = append(w.buf, s...)
}

type Reader struct {
	buf []byte
	off int
	err error
}

func NewReader(b []byte) *Reader {
	return &Reader{buf: b}
}

func (r *Reader) Err() error {
	return r.err
}

func (r *Reader) Offset() int {
	return r.off
}

func (r *Reader) Remaining() int {
	return len(r.buf) - r.off
}

// Close reports the sticky error, or ErrTrailingBytes if input is left over.
func (r *Reader) Close() error {
	if r.err != nil {
		return r.err
	}
	if n := r.Remaining(); n != 0 {
		return fmt.Errorf("%w: %d", ErrTrailingBytes, n)
	}
	return nil
}

func (r *Reader) fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.Remaining() < n {
		r.fail(fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrTruncated, n, r.off, r.Remaining()))
		return nil
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) Uint8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) Uint16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

func (r *Reader) Uint32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}

func (r *Reader) Int64() int64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return int64(binary.BigEndian.Uint64(b))
}

// Count reads a u32 element count and bounds it by the bytes left, assuming
// each element takes at least minSize bytes.
func (r *Reader) Count(minSize int) int {
	n := r.Uint32()
	if r.err != nil {
		return 0
	}
	if minSize < 1 {
		minSize = 1
	}
	if uint64(n)*uint64(minSize) > uint64(r.Remaining()) || uint64(n) > math.MaxInt32 {
		r.fail(fmt.Errorf("%w: count %d", ErrTooLong, n))
		return 0
	}
	return int(n)
}

// Blob reads a u32 length-prefixed byte slice. The result is a copy.
func (r *Reader) Blob() []byte {
	n := r.Uint32()
	if r.err != nil {
		return nil
	}
	if uint64(n) > uint64(r.Remaining()) {
		r.fail(fmt.Errorf("%w: blob length %d", ErrTooLong, n))
		return nil
	}
	b := r.take(int(n))
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

func (r *Reader) Text() string {
	n := r.Uint32()
	if r.err != nil {
		return ""
	}
	if uint64(n) > uint64(r.Remaining()) {
		r.fail(fmt.Errorf("%w: string length %d", ErrTooLong, n))
		return ""
	}
	return string(r.take(int(n)))
}

// Rest consumes and returns everything left, leaving the reader empty.
func (r *Reader) Rest() []byte {
	if r.err != nil {
		return nil
	}
	return r.take(r.Remaining())
}
