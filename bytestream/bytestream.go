// Package bytestream provides a seekable, bounds-checked view over an
// in-memory byte stream, with typed little-endian primitive reads. Every
// parser in this module reads through a Reader rather than touching a
// []byte directly, so that no numeric decode ever reinterprets unaligned
// memory: every multi-byte value passes through encoding/binary.
package bytestream

import (
	"encoding/binary"
	"fmt"
)

// ErrEOF is returned when a read would run past the end of the stream.
type ErrEOF struct {
	Pos, Want, Len int
}

func (e *ErrEOF) Error() string {
	return fmt.Sprintf("bytestream: read of %d bytes at %d exceeds length %d", e.Want, e.Pos, e.Len)
}

// Reader is a read-only, seekable cursor over a byte slice.
//
// It never panics on out-of-range reads; every read method that can run
// past the end of the data returns an *ErrEOF and leaves the cursor
// unmoved, so a caller can recover by seeking to a known-good position.
type Reader struct {
	data []byte
	pos  int
}

// New wraps data in a Reader positioned at offset 0.
func New(data []byte) *Reader {
	return &Reader{data: data}
}

// Len returns the total length of the underlying data.
func (r *Reader) Len() int { return len(r.data) }

// Bytes returns the full underlying data the Reader was constructed with.
// Callers must not mutate the returned slice.
func (r *Reader) Bytes() []byte { return r.data }

// Tell returns the current cursor position.
func (r *Reader) Tell() int { return r.pos }

// EndOfStream reports whether the cursor has reached the end of the data.
func (r *Reader) EndOfStream() bool { return r.pos >= len(r.data) }

// SeekAbs moves the cursor to an absolute position. It does not validate
// that pos is within bounds; reads from an out-of-bounds position fail.
func (r *Reader) SeekAbs(pos int) {
	r.pos = pos
}

// CheckPosition reports whether pos is a valid, readable offset, without
// moving the cursor.
func (r *Reader) CheckPosition(pos int) bool {
	return pos >= 0 && pos <= len(r.data)
}

// Skip advances the cursor by n bytes without reading.
func (r *Reader) Skip(n int) {
	r.pos += n
}

// Read returns the next n bytes and advances the cursor. The returned
// slice aliases the underlying data; callers must not mutate it.
func (r *Reader) Read(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, &ErrEOF{Pos: r.pos, Want: n, Len: len(r.data)}
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// Peek is like Read but does not advance the cursor.
func (r *Reader) Peek(n int) ([]byte, error) {
	if n < 0 || r.pos+n > len(r.data) {
		return nil, &ErrEOF{Pos: r.pos, Want: n, Len: len(r.data)}
	}
	return r.data[r.pos : r.pos+n], nil
}

// U8 reads one unsigned byte.
func (r *Reader) U8() (uint8, error) {
	b, err := r.Read(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// I8 reads one signed byte.
func (r *Reader) I8() (int8, error) {
	v, err := r.U8()
	return int8(v), err
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() (uint16, error) {
	b, err := r.Read(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

// I16 reads a little-endian int16.
func (r *Reader) I16() (int16, error) {
	v, err := r.U16()
	return int16(v), err
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() (uint32, error) {
	b, err := r.Read(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// I32 reads a little-endian int32.
func (r *Reader) I32() (int32, error) {
	v, err := r.U32()
	return int32(v), err
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() (uint64, error) {
	b, err := r.Read(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// Slice returns data[start:end] after checking the bounds, or an *ErrEOF
// when the range falls outside data. The result aliases data.
func Slice(data []byte, start, end int) ([]byte, error) {
	if start < 0 || end > len(data) || start > end {
		return nil, &ErrEOF{Pos: start, Want: end - start, Len: len(data)}
	}
	return data[start:end], nil
}
