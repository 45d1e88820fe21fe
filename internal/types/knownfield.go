package types

// KnownField is the engine's canonical, format-independent field
// enumeration. Concrete tags translate their native identifiers
// (Vorbis keyword, ID3 frame id, MP4 FourCC, Matroska tag name) to
// and from this enumeration.
type KnownField int

const (
	// FieldInvalid marks an identifier with no canonical equivalent.
	FieldInvalid KnownField = iota
	FieldTitle
	FieldAlbum
	FieldArtist
	FieldAlbumArtist
	FieldGenre
	FieldYear
	FieldComment
	FieldTrackPosition
	FieldDiskPosition
	FieldComposer
	FieldEncoder
	FieldEncoderSettings
	FieldBpm
	FieldCover
	FieldRating
	FieldGrouping
	FieldDescription
	FieldLyrics
	FieldLyricist
	FieldRecordLabel
	FieldPerformers
	FieldCopyright
	FieldLanguage
)

// String returns the field name.
func (f KnownField) String() string {
	switch f {
	case FieldTitle:
		return "title"
	case FieldAlbum:
		return "album"
	case FieldArtist:
		return "artist"
	case FieldAlbumArtist:
		return "album artist"
	case FieldGenre:
		return "genre"
	case FieldYear:
		return "year"
	case FieldComment:
		return "comment"
	case FieldTrackPosition:
		return "track position"
	case FieldDiskPosition:
		return "disk position"
	case FieldComposer:
		return "composer"
	case FieldEncoder:
		return "encoder"
	case FieldEncoderSettings:
		return "encoder settings"
	case FieldBpm:
		return "bpm"
	case FieldCover:
		return "cover"
	case FieldRating:
		return "rating"
	case FieldGrouping:
		return "grouping"
	case FieldDescription:
		return "description"
	case FieldLyrics:
		return "lyrics"
	case FieldLyricist:
		return "lyricist"
	case FieldRecordLabel:
		return "record label"
	case FieldPerformers:
		return "performers"
	case FieldCopyright:
		return "copyright"
	case FieldLanguage:
		return "language"
	default:
		return "invalid"
	}
}

// KnownFields returns every canonical field except FieldInvalid, in
// declaration order. Useful for iterating mapping tables.
func KnownFields() []KnownField {
	fields := make([]KnownField, 0, int(FieldLanguage))
	for f := FieldTitle; f <= FieldLanguage; f++ {
		fields = append(fields, f)
	}
	return fields
}
