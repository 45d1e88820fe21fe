package tagmeld

import (
	"io"

	"github.com/tagmeld/tagmeld/internal/types"
)

// Format is an alias to types.Format.
// Re-exporting from internal/types to maintain a single public surface.
type Format = types.Format

// Re-export all format constants.
const (
	FormatUnknown  = types.FormatUnknown
	FormatFLAC     = types.FormatFLAC
	FormatMP3      = types.FormatMP3
	FormatMP4      = types.FormatMP4
	FormatOgg      = types.FormatOgg
	FormatOpus     = types.FormatOpus
	FormatMatroska = types.FormatMatroska
	FormatWAV      = types.FormatWAV
	FormatAIFF     = types.FormatAIFF
)

// DetectFormat is a wrapper around types.DetectFormat.
// Maintains the public API while delegating to internal implementation.
func DetectFormat(r io.ReaderAt, size int64, path string) (Format, error) {
	return types.DetectFormat(r, size, path)
}
