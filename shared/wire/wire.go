// Package wire implements the fixed binary layout shared by client and server.
//
// Fields are written in declaration order with no tags or schema version:
// fixed-width little-endian integers, IEEE754 floats, u32 enum discriminants
// and u64 length prefixes for strings and sequences. A protocol change
// therefore requires matching client and server builds.
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"unicode/utf8"
)

var (
	ErrShortBuffer   = errors.New("wire: short buffer")
	ErrTrailingBytes = errors.New("wire: trailing bytes")
	ErrLength        = errors.New("wire: length exceeds input")
	ErrInvalidUTF8   = errors.New("wire: invalid utf-8 string")
	ErrUnknownTag    = errors.New("wire: unknown discriminant")
)

var le = binary.LittleEndian

// Writer appends encoded values to a byte slice.
type Writer struct {
	buf []byte
}

func NewWriter(sizeHint int) *Writer {
	return &Writer{buf: make([]byte, 0, sizeHint)}
}

func (w *Writer) U8(v uint8) { w.buf = append(w.buf, v) }

func (w *Writer) U16(v uint16) { w.buf = le.AppendUint16(w.buf, v) }

func (w *Writer) U32(v uint32) { w.buf = le.AppendUint32(w.buf, v) }

func (w *Writer) U64(v uint64) { w.buf = le.AppendUint64(w.buf, v) }

func (w *Writer) F32(v float32) { w.U32(math.Float32bits(v)) }

// Tag writes an enum discriminant.
func (w *Writer) Tag(v uint32) { w.U32(v) }

// Len writes a sequence length prefix.
func (w *Writer) Len(n int) { w.U64(uint64(n)) }

func (w *Writer) String(s string) {
	w.Len(len(s))
	w.buf = append(w.buf, s...)
}

// Bytes returns the encoded buffer.
func (w *Writer) Bytes() []byte { return w.buf }

// Reader decodes values from a byte slice. The first error sticks; later reads
// return zero values so callers can check Err once.
type Reader struct {
	data []byte
	off  int
	err  error
}

func NewReader(data []byte) *Reader {
	return &Reader{data: data}
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.data)-r.off < n {
		r.err = fmt.Errorf("need %d bytes at offset %d: %w", n, r.off, ErrShortBuffer)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return le.Uint16(b)
}

func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return le.Uint32(b)
}

func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}
	return le.Uint64(b)
}

func (r *Reader) F32() float32 { return math.Float32frombits(r.U32()) }

func (r *Reader) Tag() uint32 { return r.U32() }

// Len reads a sequence length prefix. elemSize is the minimum encoded size of
// one element; a length that cannot fit in the remaining input is rejected
// before anything is allocated.
func (r *Reader) Len(elemSize int) int {
	n := r.U64()
	if r.err != nil {
		return 0
	}
	if elemSize < 1 {
		elemSize = 1
	}
	if n > uint64(r.Remaining()/elemSize) {
		r.err = fmt.Errorf("length %d: %w", n, ErrLength)
		return 0
	}
	return int(n)
}

func (r *Reader) String() string {
	n := r.Len(1)
	b := r.take(n)
	if b == nil {
		return ""
	}
	if !utf8.Valid(b) {
		r.err = ErrInvalidUTF8
		return ""
	}
	return string(b)
}

// Fail records err unless an earlier error is already set.
func (r *Reader) Fail(err error) {
	if r.err == nil {
		r.err = err
	}
}

func (r *Reader) Remaining() int { return len(r.data) - r.off }

func (r *Reader) Err() error { return r.err }

// Finish returns the sticky error, or ErrTrailingBytes when input is left over.
func (r *Reader) Finish() error {
	if r.err != nil {
		return r.err
	}
	if r.off != len(r.data) {
		return fmt.Errorf("%d unread: %w", len(r.data)-r.off, ErrTrailingBytes)
	}
	return nil
}

// Raw appends b without a length prefix.
func (w *Writer) Raw(b []byte) { w.buf = append(w.buf, b...) }

// Rest consumes and returns every unread byte.
func (r *Reader) Rest() []byte {
	if r.err != nil {
		return nil
	}
	b := r.data[r.off:]
	r.off = len(r.data)
	return b
}
