// Package vorbis implements the Vorbis comment tag format.
//
// Vorbis comments are used by Ogg Vorbis, Opus and FLAC. The layout is
// a vendor string followed by a list of UTF-8 "KEY=VALUE" strings; keys
// are ASCII and matched case-insensitively but stored verbatim so a
// rewrite round-trips the original spelling.
package vorbis

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/tagbase"
	"github.com/tagmeld/tagmeld/internal/types"
)

// Flags control which parts of the comment layout are present.
type Flags uint8

const (
	// NoSignature omits the leading "\x03vorbis" packet signature
	// (FLAC metadata blocks, Opus tags).
	NoSignature Flags = 1 << iota
	// NoFramingByte omits the trailing framing byte (FLAC, Opus).
	NoFramingByte
	// NoCovers suppresses METADATA_BLOCK_PICTURE fields when making;
	// used when the surrounding container writes pictures as separate
	// blocks (FLAC).
	NoCovers
)

// signature is the Vorbis comment header packet signature.
var signature = []byte{3, 'v', 'o', 'r', 'b', 'i', 's'}

// Field is one comment entry: the verbatim key plus a value. For cover
// fields the FLAC picture type byte rides along as the field's extras.
type Field struct {
	id       string
	value    types.TagValue
	typeInfo uint8
}

// NewField creates a field with the given key and value.
func NewField(id string, value types.TagValue) *Field {
	return &Field{id: id, value: value}
}

// ID returns the verbatim comment key.
func (f *Field) ID() string { return f.id }

// TagValue returns the field's value.
func (f *Field) TagValue() types.TagValue { return f.value }

// SetTagValue replaces the field's value.
func (f *Field) SetTagValue(v types.TagValue) { f.value = v }

// TypeInfo returns the cover picture type byte.
func (f *Field) TypeInfo() uint8 { return f.typeInfo }

// SetTypeInfo sets the cover picture type byte.
func (f *Field) SetTypeInfo(t uint8) { f.typeInfo = t }

// Comment is a parsed Vorbis comment tag.
type Comment struct {
	vendor types.TagValue
	fields tagbase.FieldMap[string, *Field]
}

// NewComment creates an empty comment.
func NewComment() *Comment {
	return &Comment{fields: tagbase.New[string, *Field](tagbase.EqualFoldASCII)}
}

// Type identifies the format.
func (c *Comment) Type() types.TagType { return types.TagVorbisComment }

// TypeName returns the format name.
func (c *Comment) TypeName() string { return "Vorbis comment" }

// ProposedTextEncoding returns UTF-8; the only encoding the format accepts.
func (c *Comment) ProposedTextEncoding() types.TextEncoding { return types.EncodingUTF8 }

// CanEncodingBeUsed accepts only UTF-8.
func (c *Comment) CanEncodingBeUsed(enc types.TextEncoding) bool {
	return enc == types.EncodingUTF8
}

// Vendor returns the vendor string value.
func (c *Comment) Vendor() types.TagValue { return c.vendor }

// SetVendor replaces the vendor string value.
func (c *Comment) SetVendor(v types.TagValue) { c.vendor = v }

// Fields exposes the raw field map for bulk edits (multiple covers,
// custom keys).
func (c *Comment) Fields() *tagbase.FieldMap[string, *Field] { return &c.fields }

// FieldID translates a canonical field to the comment key the format
// uses, or "" when the field is not representable.
func (c *Comment) FieldID(field types.KnownField) string {
	switch field {
	case types.FieldTitle:
		return "TITLE"
	case types.FieldAlbum:
		return "ALBUM"
	case types.FieldArtist:
		return "ARTIST"
	case types.FieldAlbumArtist:
		return "ALBUMARTIST"
	case types.FieldGenre:
		return "GENRE"
	case types.FieldYear:
		return "DATE"
	case types.FieldComment:
		return "COMMENT"
	case types.FieldTrackPosition:
		return "TRACKNUMBER"
	case types.FieldDiskPosition:
		return "DISCNUMBER"
	case types.FieldComposer:
		return "COMPOSER"
	case types.FieldEncoder:
		return "ENCODER"
	case types.FieldEncoderSettings:
		return "ENCODER_OPTIONS"
	case types.FieldBpm:
		return "BPM"
	case types.FieldCover:
		return "METADATA_BLOCK_PICTURE"
	case types.FieldRating:
		return "RATING"
	case types.FieldGrouping:
		return "GROUPING"
	case types.FieldLyrics:
		return "LYRICS"
	case types.FieldLyricist:
		return "LYRICIST"
	case types.FieldRecordLabel:
		return "LABEL"
	case types.FieldPerformers:
		return "PERFORMER"
	case types.FieldCopyright:
		return "COPYRIGHT"
	case types.FieldLanguage:
		return "LANGUAGE"
	default:
		return ""
	}
}

// KnownFieldOf translates a comment key to its canonical field.
// DESCRIPTION is folded into the comment field the same way readers of
// this format treat it.
func (c *Comment) KnownFieldOf(id string) types.KnownField {
	switch strings.ToUpper(id) {
	case "TITLE":
		return types.FieldTitle
	case "ALBUM":
		return types.FieldAlbum
	case "ARTIST":
		return types.FieldArtist
	case "ALBUMARTIST":
		return types.FieldAlbumArtist
	case "GENRE":
		return types.FieldGenre
	case "DATE":
		return types.FieldYear
	case "COMMENT", "DESCRIPTION":
		return types.FieldComment
	case "TRACKNUMBER":
		return types.FieldTrackPosition
	case "DISCNUMBER":
		return types.FieldDiskPosition
	case "COMPOSER":
		return types.FieldComposer
	case "ENCODER":
		return types.FieldEncoder
	case "ENCODER_OPTIONS":
		return types.FieldEncoderSettings
	case "BPM":
		return types.FieldBpm
	case "METADATA_BLOCK_PICTURE":
		return types.FieldCover
	case "RATING":
		return types.FieldRating
	case "GROUPING":
		return types.FieldGrouping
	case "LYRICS":
		return types.FieldLyrics
	case "LYRICIST":
		return types.FieldLyricist
	case "LABEL":
		return types.FieldRecordLabel
	case "PERFORMER":
		return types.FieldPerformers
	case "COPYRIGHT":
		return types.FieldCopyright
	case "LANGUAGE":
		return types.FieldLanguage
	default:
		return types.FieldInvalid
	}
}

// Value returns the value of the first field matching the canonical
// field. COMMENT falls back to DESCRIPTION when absent.
func (c *Comment) Value(field types.KnownField) types.TagValue {
	if field == types.FieldComment {
		if v := c.fields.Value("COMMENT"); !v.IsEmpty() {
			return v
		}
		return c.fields.Value("DESCRIPTION")
	}
	id := c.FieldID(field)
	if id == "" {
		return types.EmptyValue()
	}
	return c.fields.Value(id)
}

// SetValue replaces the first matching field or inserts one. Returns
// false when the field is not representable or the value's text
// encoding is not UTF-8.
func (c *Comment) SetValue(field types.KnownField, value types.TagValue) bool {
	id := c.FieldID(field)
	if id == "" {
		return false
	}
	if value.Kind() == types.ValueText && !c.CanEncodingBeUsed(value.Encoding()) {
		return false
	}
	c.fields.SetValue(id, value, func(id string, v types.TagValue) *Field {
		return NewField(id, v)
	})
	return true
}

// HasField reports whether the canonical field is present and non-empty.
func (c *Comment) HasField(field types.KnownField) bool {
	if field == types.FieldComment {
		return c.fields.HasField("COMMENT") || c.fields.HasField("DESCRIPTION")
	}
	id := c.FieldID(field)
	return id != "" && c.fields.HasField(id)
}

// Parse reads a Vorbis comment from r. maxSize bounds the comment
// payload (the FLAC block size or the Ogg packet length); the parser
// never reads past it. Truncation is fatal; a missing framing byte is
// reported as a warning.
func (c *Comment) Parse(r *binary.Reader, maxSize int64, flags Flags, diag *types.Diag) error {
	const context = "parsing Vorbis comment"
	end := r.Offset() + maxSize

	if flags&NoSignature == 0 {
		sig, err := r.ReadBytes(len(signature), "Vorbis comment signature")
		if err != nil {
			return fmt.Errorf("%s: %w", context, err)
		}
		if string(sig) != string(signature) {
			diag.CriticalAt(context, "signature is invalid", r.Offset())
			return fmt.Errorf("%s: signature mismatch: %w", context, types.ErrInvalidData)
		}
	}

	vendorLen, err := binary.ReadValueLE[uint32](r, "vendor length")
	if err != nil {
		return fmt.Errorf("%s: %w", context, err)
	}
	if r.Offset()+int64(vendorLen) > end {
		diag.CriticalAt(context, "vendor string exceeds comment size", r.Offset())
		return fmt.Errorf("%s: vendor string: %w", context, types.ErrTruncatedData)
	}
	vendor, err := r.ReadBytes(int(vendorLen), "vendor string")
	if err != nil {
		return fmt.Errorf("%s: %w", context, err)
	}
	c.vendor = types.NewTextWith(vendor, types.EncodingUTF8)

	count, err := binary.ReadValueLE[uint32](r, "comment count")
	if err != nil {
		return fmt.Errorf("%s: %w", context, err)
	}

	for i := uint32(0); i < count; i++ {
		if r.Offset()+4 > end {
			diag.CriticalAt(context, fmt.Sprintf("comment %d is truncated", i), r.Offset())
			return fmt.Errorf("%s: comment %d length: %w", context, i, types.ErrTruncatedData)
		}
		length, err := binary.ReadValueLE[uint32](r, "comment length")
		if err != nil {
			return fmt.Errorf("%s: %w", context, err)
		}
		if r.Offset()+int64(length) > end {
			diag.CriticalAt(context, fmt.Sprintf("comment %d exceeds comment size", i), r.Offset())
			return fmt.Errorf("%s: comment %d: %w", context, i, types.ErrTruncatedData)
		}
		payload, err := r.ReadBytes(int(length), "comment")
		if err != nil {
			return fmt.Errorf("%s: %w", context, err)
		}
		c.parseField(string(payload), diag)
	}

	if flags&NoFramingByte == 0 {
		if r.Offset() >= end {
			diag.Warn(context, "framing byte is missing")
		} else {
			framing, err := binary.ReadValue[uint8](r, "framing byte")
			if err != nil {
				return fmt.Errorf("%s: %w", context, err)
			}
			if framing&0x01 == 0 {
				diag.Warn(context, "framing bit is not set")
			}
		}
	}

	return nil
}

// parseField splits one "KEY=VALUE" comment and stores it. The key is
// stored verbatim; only the known-field mapping uppercases it.
func (c *Comment) parseField(comment string, diag *types.Diag) {
	const context = "parsing Vorbis comment"
	eq := strings.IndexByte(comment, '=')
	if eq < 0 {
		diag.Warn(context, fmt.Sprintf("comment %q has no '=' separator and was skipped", comment))
		return
	}
	key, value := comment[:eq], comment[eq+1:]

	if strings.EqualFold(key, "METADATA_BLOCK_PICTURE") {
		c.parseCoverField(key, value, diag)
		return
	}

	c.fields.Insert(key, NewField(key, types.NewText(value)))
}

// parseCoverField base64-decodes a METADATA_BLOCK_PICTURE value into a
// picture field. A bad cover degrades to a warning.
func (c *Comment) parseCoverField(key, value string, diag *types.Diag) {
	const context = "parsing Vorbis comment"
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		diag.Warn(context, fmt.Sprintf("cover field is not valid base64: %v", err))
		return
	}
	var block PictureBlock
	if err := block.ParseBytes(raw); err != nil {
		diag.Warn(context, fmt.Sprintf("cover field holds an invalid picture block: %v", err))
		return
	}
	field := NewField(key, types.NewPicture(block.Data, block.MimeType, block.Description))
	field.SetTypeInfo(uint8(block.PictureType))
	c.fields.Insert(key, field)
}

// RequiredSize returns the number of bytes Make will produce with the
// given flags.
func (c *Comment) RequiredSize(flags Flags) int64 {
	size := int64(0)
	if flags&NoSignature == 0 {
		size += int64(len(signature))
	}
	size += 4 + int64(len(c.vendor.Data()))
	size += 4
	for id, field := range c.fields.Fields() {
		payload, ok := c.fieldPayload(id, field, flags)
		if !ok {
			continue
		}
		size += 4 + int64(len(payload))
	}
	if flags&NoFramingByte == 0 {
		size++
	}
	return size
}

// Make writes the comment. Field order is the order fields were parsed
// or inserted in, so a parse/make cycle is order-preserving.
func (c *Comment) Make(sw *binary.SafeWriter, flags Flags) error {
	if flags&NoSignature == 0 {
		if err := sw.WriteBytes(signature); err != nil {
			return err
		}
	}

	vendor := c.vendor.Data()
	if err := binary.WriteLE(sw, uint32(len(vendor))); err != nil {
		return err
	}
	if err := sw.WriteBytes(vendor); err != nil {
		return err
	}

	var comments []string
	for id, field := range c.fields.Fields() {
		payload, ok := c.fieldPayload(id, field, flags)
		if !ok {
			continue
		}
		comments = append(comments, payload)
	}

	if err := binary.WriteLE(sw, uint32(len(comments))); err != nil {
		return err
	}
	for _, payload := range comments {
		if err := binary.WriteLE(sw, uint32(len(payload))); err != nil {
			return err
		}
		if err := sw.WriteString(payload); err != nil {
			return err
		}
	}

	if flags&NoFramingByte == 0 {
		if err := binary.Write(sw, uint8(0x01)); err != nil {
			return err
		}
	}
	return nil
}

// fieldPayload renders one field to its "KEY=VALUE" payload. Empty
// fields and (with NoCovers) cover fields are skipped.
func (c *Comment) fieldPayload(id string, field *Field, flags Flags) (string, bool) {
	value := field.TagValue()
	if value.IsEmpty() {
		return "", false
	}
	if value.Kind() == types.ValuePicture {
		if flags&NoCovers != 0 {
			return "", false
		}
		block := NewPictureBlock(value, uint32(field.TypeInfo()))
		return id + "=" + base64.StdEncoding.EncodeToString(block.Bytes()), true
	}
	return id + "=" + value.String(), true
}
