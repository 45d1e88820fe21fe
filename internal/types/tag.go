package types

// TagType identifies a concrete tag format.
type TagType int

const (
	// TagUnspecified is the zero value.
	TagUnspecified TagType = iota
	// TagVorbisComment is a Vorbis comment (FLAC, Ogg Vorbis, Opus).
	TagVorbisComment
	// TagId3v1 is an ID3v1 trailer tag.
	TagId3v1
	// TagId3v2 is an ID3v2.2/2.3/2.4 tag.
	TagId3v2
	// TagMp4 is an iTunes-style ilst tag.
	TagMp4
	// TagMatroska is a Matroska Tags element.
	TagMatroska
)

// String returns the tag type name.
func (t TagType) String() string {
	switch t {
	case TagVorbisComment:
		return "Vorbis comment"
	case TagId3v1:
		return "ID3v1 tag"
	case TagId3v2:
		return "ID3v2 tag"
	case TagMp4:
		return "MP4/iTunes tag"
	case TagMatroska:
		return "Matroska tag"
	default:
		return "unspecified"
	}
}

// Tag is the capability contract every concrete tag format implements.
//
// Concrete tags compose a tagbase.FieldMap for storage and override the
// generic single-id behavior only where the format demands aliasing
// (MP4 genre, extended atoms).
type Tag interface {
	// Type identifies the concrete format.
	Type() TagType
	// TypeName returns a short human-readable format name.
	TypeName() string

	// Value returns the value of the first field matching the canonical
	// field, or the empty sentinel when absent.
	Value(field KnownField) TagValue
	// SetValue replaces the first matching field (or inserts one).
	// Returns false when the field is not representable in this format
	// or the value's encoding is not acceptable.
	SetValue(field KnownField, value TagValue) bool
	// HasField reports whether a non-empty field for the canonical
	// field is present.
	HasField(field KnownField) bool

	// ProposedTextEncoding is the encoding the format prefers.
	ProposedTextEncoding() TextEncoding
	// CanEncodingBeUsed reports whether the format can store text in
	// the given encoding.
	CanEncodingBeUsed(enc TextEncoding) bool
}
