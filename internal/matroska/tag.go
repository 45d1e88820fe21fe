package matroska

import (
	"strings"

	"github.com/tagmeld/tagmeld/internal/tagbase"
	"github.com/tagmeld/tagmeld/internal/types"
)

// Field is one SimpleTag: a name, a string or binary value, a language
// and the target-type value of the enclosing Tag element.
type Field struct {
	name       string
	language   string
	value      types.TagValue
	targetType uint64
}

// NewField creates a field with the given SimpleTag name and value.
func NewField(name string, value types.TagValue) *Field {
	return &Field{name: name, value: value}
}

// Name returns the SimpleTag name verbatim.
func (f *Field) Name() string { return f.name }

// Language returns the SimpleTag language ("" when undefined).
func (f *Field) Language() string { return f.language }

// TargetType returns the enclosing Tag's target-type value
// (e.g. 50 for album-level tags), 0 when absent.
func (f *Field) TargetType() uint64 { return f.targetType }

// TagValue returns the field's value.
func (f *Field) TagValue() types.TagValue { return f.value }

// SetTagValue replaces the field's value.
func (f *Field) SetTagValue(v types.TagValue) { f.value = v }

// Tag is the parsed Tags hierarchy of one Matroska segment. Matroska
// tags are read-only: SetValue mutates only the in-memory view and
// there is no maker.
type Tag struct {
	fields tagbase.FieldMap[string, *Field]
}

// NewTag creates an empty tag.
func NewTag() *Tag {
	return &Tag{fields: tagbase.New[string, *Field](tagbase.EqualFoldASCII)}
}

// Type identifies the format.
func (t *Tag) Type() types.TagType { return types.TagMatroska }

// TypeName returns the format name.
func (t *Tag) TypeName() string { return "Matroska tag" }

// ProposedTextEncoding returns UTF-8; EBML strings are always UTF-8.
func (t *Tag) ProposedTextEncoding() types.TextEncoding { return types.EncodingUTF8 }

// CanEncodingBeUsed accepts only UTF-8.
func (t *Tag) CanEncodingBeUsed(enc types.TextEncoding) bool {
	return enc == types.EncodingUTF8
}

// Fields exposes the raw field map.
func (t *Tag) Fields() *tagbase.FieldMap[string, *Field] { return &t.fields }

// FieldID translates a canonical field to its SimpleTag name, "" when
// not representable.
func (t *Tag) FieldID(field types.KnownField) string {
	switch field {
	case types.FieldTitle:
		return "TITLE"
	case types.FieldArtist:
		return "ARTIST"
	case types.FieldGenre:
		return "GENRE"
	case types.FieldYear:
		return "DATE_RELEASED"
	case types.FieldComment:
		return "COMMENT"
	case types.FieldComposer:
		return "COMPOSER"
	case types.FieldEncoder:
		return "ENCODER"
	case types.FieldEncoderSettings:
		return "ENCODER_SETTINGS"
	case types.FieldBpm:
		return "BPM"
	case types.FieldDescription:
		return "DESCRIPTION"
	case types.FieldLyrics:
		return "LYRICS"
	case types.FieldLyricist:
		return "LYRICIST"
	case types.FieldRecordLabel:
		return "LABEL"
	case types.FieldPerformers:
		return "LEAD_PERFORMER"
	case types.FieldCopyright:
		return "COPYRIGHT"
	case types.FieldRating:
		return "RATING"
	default:
		return ""
	}
}

// KnownFieldOf translates a SimpleTag name to its canonical field.
func (t *Tag) KnownFieldOf(name string) types.KnownField {
	switch strings.ToUpper(name) {
	case "TITLE":
		return types.FieldTitle
	case "ARTIST":
		return types.FieldArtist
	case "GENRE":
		return types.FieldGenre
	case "DATE_RELEASED":
		return types.FieldYear
	case "COMMENT":
		return types.FieldComment
	case "COMPOSER":
		return types.FieldComposer
	case "ENCODER":
		return types.FieldEncoder
	case "ENCODER_SETTINGS":
		return types.FieldEncoderSettings
	case "BPM":
		return types.FieldBpm
	case "DESCRIPTION":
		return types.FieldDescription
	case "LYRICS":
		return types.FieldLyrics
	case "LYRICIST":
		return types.FieldLyricist
	case "LABEL":
		return types.FieldRecordLabel
	case "LEAD_PERFORMER":
		return types.FieldPerformers
	case "COPYRIGHT":
		return types.FieldCopyright
	case "RATING":
		return types.FieldRating
	default:
		return types.FieldInvalid
	}
}

// Value returns the first matching field's value.
func (t *Tag) Value(field types.KnownField) types.TagValue {
	id := t.FieldID(field)
	if id == "" {
		return types.EmptyValue()
	}
	return t.fields.Value(id)
}

// SetValue updates the in-memory view. Matroska files are never
// rewritten, so the change does not reach disk.
func (t *Tag) SetValue(field types.KnownField, value types.TagValue) bool {
	id := t.FieldID(field)
	if id == "" {
		return false
	}
	if value.Kind() == types.ValueText && !t.CanEncodingBeUsed(value.Encoding()) {
		return false
	}
	t.fields.SetValue(id, value, func(id string, v types.TagValue) *Field {
		return NewField(id, v)
	})
	return true
}

// HasField reports whether the canonical field is present.
func (t *Tag) HasField(field types.KnownField) bool {
	id := t.FieldID(field)
	return id != "" && t.fields.HasField(id)
}
