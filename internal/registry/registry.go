// Package registry manages format-specific parsers and writers.
package registry

import (
	"io"

	"github.com/tagmeld/tagmeld/internal/types"
)

// FormatParser is the interface all format parsers implement.
type FormatParser interface {
	// Parse extracts tags and technical metadata from a media file.
	// Non-fatal anomalies are accumulated on the returned File's
	// Notifications; a nil error with Critical notifications means
	// best-effort partial data.
	Parse(r io.ReaderAt, size int64, path string) (*types.File, error)
}

// FormatWriter is the interface format rewrite planners implement.
type FormatWriter interface {
	// Write serialises the file's tags into a new container stream on w,
	// copying the audio payload from original bit-for-bit. The planner
	// decides padding reuse and the minimal rewrite layout; padding is
	// the preferred amount of reserved space, in bytes.
	Write(w io.Writer, file *types.File, original io.ReaderAt, originalSize int64, padding int64) error
}

// parsers maps formats to their parsers.
var parsers = make(map[types.Format]FormatParser)

// writers maps formats to their writers.
var writers = make(map[types.Format]FormatWriter)

// Register registers a parser for a format.
// This is called by format packages during initialization (init functions).
func Register(format types.Format, parser FormatParser) {
	parsers[format] = parser
}

// Get returns the parser for a given format.
// Returns nil if no parser is registered for the format.
func Get(format types.Format) FormatParser {
	return parsers[format]
}

// RegisterWriter registers a writer for a format.
// This is called by format packages during initialization (init functions).
func RegisterWriter(format types.Format, writer FormatWriter) {
	writers[format] = writer
}

// GetWriter returns the writer for a given format.
// Returns nil if no writer is registered for the format.
func GetWriter(format types.Format) FormatWriter {
	return writers[format]
}
