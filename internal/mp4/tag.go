package mp4

import (
	"fmt"
	"strconv"

	"github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/tagbase"
	"github.com/tagmeld/tagmeld/internal/types"
)

// Tag is the iTunes-style metadata list found at moov/udta/meta/ilst.
type Tag struct {
	version string
	fields  tagbase.FieldMap[uint32, *Field]
}

// NewTag creates an empty tag.
func NewTag() *Tag {
	return &Tag{fields: tagbase.New[uint32, *Field](tagbase.EqualExact[uint32])}
}

// Type identifies the format.
func (t *Tag) Type() types.TagType { return types.TagMp4 }

// TypeName returns the format name.
func (t *Tag) TypeName() string { return "MP4/iTunes tag" }

// Version returns the hdlr atom's version byte as text, "" when no
// hdlr atom was found.
func (t *Tag) Version() string { return t.version }

// ProposedTextEncoding prefers UTF-8.
func (t *Tag) ProposedTextEncoding() types.TextEncoding { return types.EncodingUTF8 }

// CanEncodingBeUsed accepts UTF-8 and big-endian UTF-16.
func (t *Tag) CanEncodingBeUsed(enc types.TextEncoding) bool {
	return enc == types.EncodingUTF8 || enc == types.EncodingUTF16BE
}

// Fields exposes the raw field map for bulk edits (covers, extended
// atoms).
func (t *Tag) Fields() *tagbase.FieldMap[uint32, *Field] { return &t.fields }

// FieldID translates a canonical field to its atom id, 0 when not
// representable. Genre maps to the free-text atom; the gnre alias is
// handled by Value/SetValue.
func (t *Tag) FieldID(field types.KnownField) uint32 {
	switch field {
	case types.FieldAlbum:
		return tagAlbum
	case types.FieldArtist:
		return tagArtist
	case types.FieldAlbumArtist:
		return tagAlbumArtist
	case types.FieldTitle:
		return tagTitle
	case types.FieldYear:
		return tagYear
	case types.FieldComment:
		return tagComment
	case types.FieldGenre:
		return tagGenre
	case types.FieldTrackPosition:
		return tagTrackPosition
	case types.FieldDiskPosition:
		return tagDiskPosition
	case types.FieldComposer:
		return tagComposer
	case types.FieldEncoder:
		return tagEncoder
	case types.FieldBpm:
		return tagBpm
	case types.FieldCover:
		return tagCover
	case types.FieldRating:
		return tagRating
	case types.FieldGrouping:
		return tagGrouping
	case types.FieldDescription:
		return tagDescription
	case types.FieldLyrics:
		return tagLyrics
	case types.FieldRecordLabel:
		return tagRecordLabel
	case types.FieldPerformers:
		return tagPerformers
	case types.FieldLyricist:
		return tagLyricist
	case types.FieldCopyright:
		return tagCopyright
	case types.FieldEncoderSettings:
		return tagExtended
	default:
		return 0
	}
}

// KnownFieldOf translates an atom id to its canonical field. Both genre
// atoms coalesce to the genre field.
func (t *Tag) KnownFieldOf(id uint32) types.KnownField {
	switch id {
	case tagAlbum:
		return types.FieldAlbum
	case tagArtist:
		return types.FieldArtist
	case tagAlbumArtist:
		return types.FieldAlbumArtist
	case tagTitle:
		return types.FieldTitle
	case tagYear:
		return types.FieldYear
	case tagComment:
		return types.FieldComment
	case tagGenre, tagPreDefinedGenre:
		return types.FieldGenre
	case tagTrackPosition:
		return types.FieldTrackPosition
	case tagDiskPosition:
		return types.FieldDiskPosition
	case tagComposer:
		return types.FieldComposer
	case tagEncoder:
		return types.FieldEncoder
	case tagBpm:
		return types.FieldBpm
	case tagCover:
		return types.FieldCover
	case tagRating:
		return types.FieldRating
	case tagGrouping:
		return types.FieldGrouping
	case tagDescription:
		return types.FieldDescription
	case tagLyrics:
		return types.FieldLyrics
	case tagRecordLabel:
		return types.FieldRecordLabel
	case tagPerformers:
		return types.FieldPerformers
	case tagLyricist:
		return types.FieldLyricist
	case tagCopyright:
		return types.FieldCopyright
	default:
		return types.FieldInvalid
	}
}

// Value returns the first matching field's value. Genre falls back to
// the pre-defined gnre atom; encoder settings resolve through the
// iTunes extended atom.
func (t *Tag) Value(field types.KnownField) types.TagValue {
	switch field {
	case types.FieldGenre:
		if v := t.fields.Value(tagGenre); !v.IsEmpty() {
			return v
		}
		return t.fields.Value(tagPreDefinedGenre)
	case types.FieldEncoderSettings:
		return t.ExtendedValue(MeaniTunes, NameCdec)
	default:
		id := t.FieldID(field)
		if id == 0 {
			return types.EmptyValue()
		}
		return t.fields.Value(id)
	}
}

// ExtendedValue returns the value of the extended atom with the given
// mean and name attributes.
func (t *Tag) ExtendedValue(mean, name string) types.TagValue {
	for _, f := range t.fields.All(tagExtended) {
		if f.mean == mean && f.name == name {
			return f.TagValue()
		}
	}
	return types.EmptyValue()
}

// SetValue replaces the first matching field or inserts one. Setting
// one genre representation clears the other.
func (t *Tag) SetValue(field types.KnownField, value types.TagValue) bool {
	if value.Kind() == types.ValueText && !t.CanEncodingBeUsed(value.Encoding()) {
		return false
	}
	switch field {
	case types.FieldGenre:
		if value.Kind() == types.ValueStandardGenreIndex {
			t.fields.Erase(tagGenre)
			t.fields.SetValue(tagPreDefinedGenre, value, func(id uint32, v types.TagValue) *Field {
				return NewField(id, v)
			})
			return true
		}
		t.fields.Erase(tagPreDefinedGenre)
		t.fields.SetValue(tagGenre, value, func(id uint32, v types.TagValue) *Field {
			return NewField(id, v)
		})
		return true
	case types.FieldEncoderSettings:
		return t.SetExtendedValue(MeaniTunes, NameCdec, value)
	default:
		id := t.FieldID(field)
		if id == 0 {
			return false
		}
		t.fields.SetValue(id, value, func(id uint32, v types.TagValue) *Field {
			return NewField(id, v)
		})
		return true
	}
}

// SetExtendedValue assigns the extended atom keyed by (mean, name).
func (t *Tag) SetExtendedValue(mean, name string, value types.TagValue) bool {
	for _, f := range t.fields.All(tagExtended) {
		if f.mean == mean && f.name == name {
			f.SetTagValue(value)
			return true
		}
	}
	t.fields.Insert(tagExtended, NewExtendedField(mean, name, value))
	return true
}

// HasField reports whether the canonical field is present; either genre
// representation counts.
func (t *Tag) HasField(field types.KnownField) bool {
	switch field {
	case types.FieldGenre:
		return t.fields.HasField(tagGenre) || t.fields.HasField(tagPreDefinedGenre)
	case types.FieldEncoderSettings:
		return !t.ExtendedValue(MeaniTunes, NameCdec).IsEmpty()
	default:
		id := t.FieldID(field)
		return id != 0 && t.fields.HasField(id)
	}
}

// Parse reads the tag from a meta atom. A missing ilst is
// ErrNoDataFound; a field that cannot be parsed is skipped with its
// diagnostics kept.
func (t *Tag) Parse(tree *Tree, metaRef AtomRef, diag *types.Diag) error {
	const context = "parsing MP4 tag"

	hdlrRef, err := tree.ChildByID(metaRef, atomHdlr)
	if err != nil {
		diag.Critical(context, "unable to parse child atoms of meta atom (stores hdlr and ilst atoms)")
	}
	if hdlrRef != NoAtom {
		t.parseHandler(tree, hdlrRef, diag)
	} else {
		t.version = ""
	}

	ilstRef, err := tree.ChildByID(metaRef, atomIlst)
	if err != nil {
		diag.Critical(context, "unable to parse child atoms of meta atom (stores hdlr and ilst atoms)")
	}
	if ilstRef == NoAtom {
		diag.Warn(context, "no ilst atom found (stores attached meta information)")
		return fmt.Errorf("%s: %w", context, types.ErrNoDataFound)
	}

	children, err := tree.Children(ilstRef)
	if err != nil {
		diag.Critical(context, fmt.Sprintf("ilst children could not be scanned: %v", err))
	}
	for _, childRef := range children {
		field := &Field{}
		if err := field.Parse(tree, childRef, diag); err != nil {
			continue
		}
		t.fields.Insert(field.ID(), field)
	}
	return nil
}

// parseHandler validates the hdlr atom and remembers its version.
func (t *Tag) parseHandler(tree *Tree, hdlrRef AtomRef, diag *types.Diag) {
	const context = "parsing MP4 tag"
	atom := tree.Atom(hdlrRef)
	r := binary.NewReader(tree.sr, atom.DataOffset())
	cr := binary.NewChainReader(r)
	version := binary.ReadChained[uint8](cr, "hdlr version")
	flags := cr.Bytes(3, "hdlr flags")
	predefined := binary.ReadChained[uint32](cr, "hdlr predefined")
	handlerType := binary.ReadChained[uint64](cr, "hdlr handler type")
	if cr.Error() != nil {
		diag.WarnAt(context, "hdlr atom is truncated", atom.Offset)
		return
	}
	if version != 0 {
		diag.Warn(context, "version is unknown")
	}
	if flags[0] != 0 || flags[1] != 0 || flags[2] != 0 {
		diag.Warn(context, "flags (hdlr atom) aren't set to 0")
	}
	if predefined != 0 {
		diag.Warn(context, "predefined 32-bit integer (hdlr atom) isn't set to 0")
	}
	if handlerType != 0x6d6469726170706c { // "mdirappl"
		diag.Warn(context, "handler type (value in hdlr atom) is unknown; trying to parse meta information anyhow")
	}
	t.version = strconv.Itoa(int(version))
}
