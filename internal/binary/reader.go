// Package binary provides type-safe binary reading primitives with bounds checking
package binary

import (
	"fmt"
	"io"

	"github.com/tagmeld/tagmeld/internal/types"
)

// SafeReader wraps io.ReaderAt with bounds checking and helpful error messages.
type SafeReader struct {
	r    io.ReaderAt
	path string
	size int64
}

// NewSafeReader creates a new SafeReader.
func NewSafeReader(r io.ReaderAt, size int64, path string) *SafeReader {
	return &SafeReader{
		r:    r,
		size: size,
		path: path,
	}
}

// Path returns the file path associated with this reader.
func (sr *SafeReader) Path() string {
	return sr.path
}

// Size returns the total size of the underlying input.
func (sr *SafeReader) Size() int64 {
	return sr.size
}

// ReadAt reads bytes at the given offset with context for error messages.
func (sr *SafeReader) ReadAt(b []byte, off int64, what string) error {
	if off < 0 || off >= sr.size || off+int64(len(b)) > sr.size {
		return &types.OutOfBoundsError{
			Path:   sr.path,
			What:   what,
			Offset: off,
			Length: len(b),
			Size:   sr.size,
		}
	}

	n, err := sr.r.ReadAt(b, off)
	if err != nil && err != io.EOF {
		return fmt.Errorf("%s: failed to read %s at offset %d: %w", sr.path, what, off, err)
	}

	if n < len(b) {
		return fmt.Errorf("%s: short read for %s at offset %d: got %d bytes, expected %d: %w",
			sr.path, what, off, n, len(b), types.ErrTruncatedData)
	}

	return nil
}

// Read reads a big-endian value of type T from the given offset.
// T must be uint8, uint16, uint32, or uint64.
func Read[T uint8 | uint16 | uint32 | uint64](sr *SafeReader, off int64, what string) (T, error) {
	return ReadEndian[T](sr, off, what, BigEndian)
}

// ReadUint24 reads a 24-bit unsigned integer at the given offset.
func (sr *SafeReader) ReadUint24(off int64, what string, endian Endianness) (uint32, error) {
	buf := make([]byte, 3)
	if err := sr.ReadAt(buf, off, what); err != nil {
		return 0, err
	}
	if endian == LittleEndian {
		return uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16, nil
	}
	return uint32(buf[0])<<16 | uint32(buf[1])<<8 | uint32(buf[2]), nil
}

// Reader provides sequential reading with automatic offset tracking.
type Reader struct {
	*SafeReader
	offset int64
}

// NewReader creates a new Reader starting at the given offset.
func NewReader(sr *SafeReader, offset int64) *Reader {
	return &Reader{
		SafeReader: sr,
		offset:     offset,
	}
}

// ReadValue reads a big-endian numeric value and advances the offset.
func ReadValue[T uint8 | uint16 | uint32 | uint64](r *Reader, what string) (T, error) {
	return ReadValueEndian[T](r, what, BigEndian)
}

// ReadValueLE reads a little-endian numeric value and advances the offset.
func ReadValueLE[T uint8 | uint16 | uint32 | uint64](r *Reader, what string) (T, error) {
	return ReadValueEndian[T](r, what, LittleEndian)
}

// ReadValueEndian reads a numeric value with explicit byte order and
// advances the offset.
func ReadValueEndian[T uint8 | uint16 | uint32 | uint64](r *Reader, what string, endian Endianness) (T, error) {
	val, err := ReadEndian[T](r.SafeReader, r.offset, what, endian)
	if err != nil {
		var zero T
		return zero, err
	}
	r.offset += int64(sizeOf[T]())
	return val, nil
}

// ReadUint24 reads a 24-bit unsigned integer and advances the offset.
func (r *Reader) ReadUint24(what string, endian Endianness) (uint32, error) {
	val, err := r.SafeReader.ReadUint24(r.offset, what, endian)
	if err != nil {
		return 0, err
	}
	r.offset += 3
	return val, nil
}

// ReadBytes reads length bytes and advances the offset.
func (r *Reader) ReadBytes(length int, what string) ([]byte, error) {
	buf := make([]byte, length)
	if err := r.SafeReader.ReadAt(buf, r.offset, what); err != nil {
		return nil, err
	}
	r.offset += int64(length)
	return buf, nil
}

// ReadString reads a string of the given length and advances the offset.
func (r *Reader) ReadString(length int, what string) (string, error) {
	buf, err := r.ReadBytes(length, what)
	if err != nil {
		return "", err
	}
	return string(buf), nil
}

// Skip advances the offset by n bytes.
func (r *Reader) Skip(n int64) {
	r.offset += n
}

// Seek moves the offset to an absolute position.
func (r *Reader) Seek(off int64) {
	r.offset = off
}

// Offset returns the current offset.
func (r *Reader) Offset() int64 {
	return r.offset
}

// ChainReader allows chaining multiple reads with deferred error checking.
// This avoids repetitive "if err != nil" checks.
type ChainReader struct {
	*Reader
	err error
}

// NewChainReader creates a new ChainReader.
func NewChainReader(r *Reader) *ChainReader {
	return &ChainReader{Reader: r}
}

// ReadChained reads a big-endian value with deferred error checking.
// If a previous read failed, returns zero value without attempting read.
func ReadChained[T uint8 | uint16 | uint32 | uint64](cr *ChainReader, what string) T {
	return ReadChainedEndian[T](cr, what, BigEndian)
}

// ReadChainedLE reads a little-endian value with deferred error checking.
func ReadChainedLE[T uint8 | uint16 | uint32 | uint64](cr *ChainReader, what string) T {
	return ReadChainedEndian[T](cr, what, LittleEndian)
}

// ReadChainedEndian reads a value with explicit byte order and deferred
// error checking.
func ReadChainedEndian[T uint8 | uint16 | uint32 | uint64](cr *ChainReader, what string, endian Endianness) T {
	if cr.err != nil {
		var zero T
		return zero
	}
	val, err := ReadValueEndian[T](cr.Reader, what, endian)
	if err != nil {
		cr.err = err
		var zero T
		return zero
	}
	return val
}

// String reads a string, accumulating any error.
func (cr *ChainReader) String(length int, what string) string {
	if cr.err != nil {
		return ""
	}
	val, err := cr.Reader.ReadString(length, what)
	if err != nil {
		cr.err = err
		return ""
	}
	return val
}

// Bytes reads raw bytes, accumulating any error.
func (cr *ChainReader) Bytes(length int, what string) []byte {
	if cr.err != nil {
		return nil
	}
	val, err := cr.Reader.ReadBytes(length, what)
	if err != nil {
		cr.err = err
		return nil
	}
	return val
}

// Error returns the accumulated error, if any.
func (cr *ChainReader) Error() error {
	return cr.err
}
