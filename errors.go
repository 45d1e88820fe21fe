package tagmeld

import (
	"github.com/tagmeld/tagmeld/internal/types"
)

// Closed set of failure kinds, re-exported from internal/types. Every
// typed failure the engine surfaces wraps exactly one of these, so
// callers dispatch with errors.Is.
var (
	// ErrNoDataFound means an expected structure is missing where
	// absence is legal (e.g. a file without a tag).
	ErrNoDataFound = types.ErrNoDataFound
	// ErrInvalidData means a magic/signature mismatch, malformed
	// length or impossible field.
	ErrInvalidData = types.ErrInvalidData
	// ErrTruncatedData means the input ended mid-structure.
	ErrTruncatedData = types.ErrTruncatedData
	// ErrUnsupportedFormat means the structure is recognised but not
	// handled (e.g. an encrypted ID3 frame).
	ErrUnsupportedFormat = types.ErrUnsupportedFormat
	// ErrVersionNotSupported means the container or tag version is
	// outside the supported range.
	ErrVersionNotSupported = types.ErrVersionNotSupported
)

// OutOfBoundsError is an alias to types.OutOfBoundsError.
// Re-exporting from internal/types to maintain a single public surface.
type OutOfBoundsError = types.OutOfBoundsError

// UnsupportedFormatError is an alias to types.UnsupportedFormatError.
// Re-exporting from internal/types to maintain a single public surface.
type UnsupportedFormatError = types.UnsupportedFormatError

// CorruptedFileError is an alias to types.CorruptedFileError.
// Re-exporting from internal/types to maintain a single public surface.
type CorruptedFileError = types.CorruptedFileError

// UnsupportedWriteError is an alias to types.UnsupportedWriteError.
// Re-exporting from internal/types to maintain a single public surface.
type UnsupportedWriteError = types.UnsupportedWriteError

// Notification is an alias to types.Notification.
// Re-exporting from internal/types to maintain a single public surface.
type Notification = types.Notification

// NotificationLevel grades the severity of a notification.
type NotificationLevel = types.NotificationLevel

// Notification levels.
const (
	LevelInfo     = types.LevelInfo
	LevelWarning  = types.LevelWarning
	LevelCritical = types.LevelCritical
)
