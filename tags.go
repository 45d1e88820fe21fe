package tagmeld

import (
	"time"

	"github.com/tagmeld/tagmeld/internal/types"
)

// Tag is the capability contract every concrete tag format implements:
// canonical-field access, format identity and encoding policy.
// Re-exported from internal/types.
type Tag = types.Tag

// TagType identifies a concrete tag format.
type TagType = types.TagType

// Re-export all tag type constants.
const (
	TagVorbisComment = types.TagVorbisComment
	TagId3v1         = types.TagId3v1
	TagId3v2         = types.TagId3v2
	TagMp4           = types.TagMp4
	TagMatroska      = types.TagMatroska
)

// TagValue is the tagged union every field value carries.
// Re-exported from internal/types.
type TagValue = types.TagValue

// TextEncoding identifies the character encoding of a text value.
type TextEncoding = types.TextEncoding

// Re-export the text encodings.
const (
	EncodingUnspecified = types.EncodingUnspecified
	EncodingLatin1      = types.EncodingLatin1
	EncodingUTF8        = types.EncodingUTF8
	EncodingUTF16LE     = types.EncodingUTF16LE
	EncodingUTF16BE     = types.EncodingUTF16BE
)

// KnownField is the canonical, format-independent field enumeration.
type KnownField = types.KnownField

// Re-export the canonical fields.
const (
	FieldInvalid         = types.FieldInvalid
	FieldTitle           = types.FieldTitle
	FieldAlbum           = types.FieldAlbum
	FieldArtist          = types.FieldArtist
	FieldAlbumArtist     = types.FieldAlbumArtist
	FieldGenre           = types.FieldGenre
	FieldYear            = types.FieldYear
	FieldComment         = types.FieldComment
	FieldTrackPosition   = types.FieldTrackPosition
	FieldDiskPosition    = types.FieldDiskPosition
	FieldComposer        = types.FieldComposer
	FieldEncoder         = types.FieldEncoder
	FieldEncoderSettings = types.FieldEncoderSettings
	FieldBpm             = types.FieldBpm
	FieldCover           = types.FieldCover
	FieldRating          = types.FieldRating
	FieldGrouping        = types.FieldGrouping
	FieldDescription     = types.FieldDescription
	FieldLyrics          = types.FieldLyrics
	FieldLyricist        = types.FieldLyricist
	FieldRecordLabel     = types.FieldRecordLabel
	FieldPerformers      = types.FieldPerformers
	FieldCopyright       = types.FieldCopyright
	FieldLanguage        = types.FieldLanguage
)

// AudioInfo represents technical audio properties.
// Re-exported from internal/types.
type AudioInfo = types.AudioInfo

// Value constructors, re-exported so callers can build values without
// importing internal packages.

// NewText creates a UTF-8 text value.
func NewText(s string) TagValue { return types.NewText(s) }

// NewTextWith creates a text value from raw bytes in the given encoding.
func NewTextWith(data []byte, enc TextEncoding) TagValue { return types.NewTextWith(data, enc) }

// NewInteger creates an integer value.
func NewInteger(n int32) TagValue { return types.NewInteger(n) }

// NewStandardGenreIndex creates a value referencing the ID3v1 genre table.
func NewStandardGenreIndex(i uint8) TagValue { return types.NewStandardGenreIndex(i) }

// NewDateTime creates a date/time value.
func NewDateTime(t time.Time) TagValue { return types.NewDateTime(t) }

// NewBinary creates a raw binary value.
func NewBinary(data []byte) TagValue { return types.NewBinary(data) }

// NewPicture creates a picture value.
func NewPicture(data []byte, mimeType, description string) TagValue {
	return types.NewPicture(data, mimeType, description)
}

// EmptyValue returns the shared empty sentinel.
func EmptyValue() TagValue { return types.EmptyValue() }

// StandardGenreName returns the genre name for a standard genre index.
func StandardGenreName(index uint8) string { return types.StandardGenreName(index) }

// StandardGenreIndex resolves a genre name to its table index.
func StandardGenreIndex(name string) (uint8, bool) { return types.StandardGenreIndex(name) }
