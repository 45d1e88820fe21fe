package types

import (
	"errors"
	"fmt"
)

// Closed set of failure kinds. Every typed failure the engine surfaces
// wraps exactly one of these sentinels, so callers dispatch with
// errors.Is instead of matching strings.
var (
	// ErrNoDataFound means an expected structure is missing where
	// absence is legal (e.g. a file without a tag).
	ErrNoDataFound = errors.New("no data found")
	// ErrInvalidData means a magic/signature mismatch, malformed
	// length or impossible field.
	ErrInvalidData = errors.New("invalid data")
	// ErrTruncatedData means the input ended mid-structure.
	ErrTruncatedData = errors.New("truncated data")
	// ErrUnsupportedFormat means the structure is recognised but not
	// handled (e.g. an encrypted ID3 frame).
	ErrUnsupportedFormat = errors.New("unsupported format")
	// ErrVersionNotSupported means the container or tag version is
	// outside the supported range.
	ErrVersionNotSupported = errors.New("version not supported")
)

// OutOfBoundsError is returned when attempting to read beyond file bounds.
type OutOfBoundsError struct {
	Path   string
	What   string
	Offset int64
	Length int
	Size   int64
}

func (e *OutOfBoundsError) Error() string {
	if e.Offset >= e.Size {
		return fmt.Sprintf("%s: offset %d out of bounds (file size: %d) while reading %s",
			e.Path, e.Offset, e.Size, e.What)
	}
	return fmt.Sprintf("%s: read of %d bytes at offset %d would exceed file size %d while reading %s",
		e.Path, e.Length, e.Offset, e.Size, e.What)
}

// Unwrap ties out-of-bounds reads to the truncation kind.
func (e *OutOfBoundsError) Unwrap() error {
	return ErrTruncatedData
}

// UnsupportedFormatError is returned when no parser handles the file.
type UnsupportedFormatError struct {
	Path   string
	Reason string
}

func (e *UnsupportedFormatError) Error() string {
	return fmt.Sprintf("%s: unsupported format: %s", e.Path, e.Reason)
}

// Unwrap ties the error to the unsupported-format kind.
func (e *UnsupportedFormatError) Unwrap() error {
	return ErrUnsupportedFormat
}

// CorruptedFileError is returned when container structure is invalid.
type CorruptedFileError struct {
	Path   string
	Reason string
	Offset int64
}

func (e *CorruptedFileError) Error() string {
	return fmt.Sprintf("%s: corrupted file at offset %d: %s", e.Path, e.Offset, e.Reason)
}

// Unwrap ties the error to the invalid-data kind.
func (e *CorruptedFileError) Unwrap() error {
	return ErrInvalidData
}

// UnsupportedWriteError indicates write is not supported for a format.
type UnsupportedWriteError struct {
	Reason string
	Format Format
}

func (e *UnsupportedWriteError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("write not supported for %s: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("write not supported for %s", e.Format)
}

// Unwrap ties the error to the unsupported-format kind.
func (e *UnsupportedWriteError) Unwrap() error {
	return ErrUnsupportedFormat
}
