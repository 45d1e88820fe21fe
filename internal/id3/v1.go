// Package id3 implements ID3v1 and ID3v2 tags and the MP3 rewrite
// planner.
package id3

import (
	"bytes"
	"fmt"

	"github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/types"
)

// v1Size is the fixed size of an ID3v1 trailer tag.
const v1Size = 128

// V1Tag is the 128-byte trailer tag. Fields are fixed-width Latin-1
// slots; no field map is needed.
type V1Tag struct {
	Title   string
	Artist  string
	Album   string
	Year    string
	Comment string
	Track   uint8
	Genre   uint8
	// HasGenre distinguishes genre 0 (Blues) from an unset slot (0xFF).
	HasGenre bool
}

// Type identifies the format.
func (t *V1Tag) Type() types.TagType { return types.TagId3v1 }

// TypeName returns the format name.
func (t *V1Tag) TypeName() string { return "ID3v1 tag" }

// ProposedTextEncoding returns Latin-1; the only encoding ID3v1 can hold.
func (t *V1Tag) ProposedTextEncoding() types.TextEncoding { return types.EncodingLatin1 }

// CanEncodingBeUsed accepts only Latin-1.
func (t *V1Tag) CanEncodingBeUsed(enc types.TextEncoding) bool {
	return enc == types.EncodingLatin1
}

// Value returns the slot's value for the canonical field.
func (t *V1Tag) Value(field types.KnownField) types.TagValue {
	switch field {
	case types.FieldTitle:
		return v1Text(t.Title)
	case types.FieldArtist:
		return v1Text(t.Artist)
	case types.FieldAlbum:
		return v1Text(t.Album)
	case types.FieldYear:
		return v1Text(t.Year)
	case types.FieldComment:
		return v1Text(t.Comment)
	case types.FieldTrackPosition:
		if t.Track == 0 {
			return types.EmptyValue()
		}
		return types.NewInteger(int32(t.Track))
	case types.FieldGenre:
		if !t.HasGenre {
			return types.EmptyValue()
		}
		return types.NewStandardGenreIndex(t.Genre)
	default:
		return types.EmptyValue()
	}
}

func v1Text(s string) types.TagValue {
	if s == "" {
		return types.EmptyValue()
	}
	return types.NewText(s)
}

// SetValue assigns a slot. Values are truncated to the slot width when
// made.
func (t *V1Tag) SetValue(field types.KnownField, value types.TagValue) bool {
	switch field {
	case types.FieldTitle:
		t.Title = value.String()
	case types.FieldArtist:
		t.Artist = value.String()
	case types.FieldAlbum:
		t.Album = value.String()
	case types.FieldYear:
		t.Year = value.String()
	case types.FieldComment:
		t.Comment = value.String()
	case types.FieldTrackPosition:
		n, err := value.ToInteger()
		if err != nil || n < 0 || n > 0xFF {
			return false
		}
		t.Track = uint8(n)
	case types.FieldGenre:
		index, err := value.ToStandardGenreIndex()
		if err != nil {
			return false
		}
		t.Genre = index
		t.HasGenre = true
	default:
		return false
	}
	return true
}

// HasField reports whether the slot holds a value.
func (t *V1Tag) HasField(field types.KnownField) bool {
	return !t.Value(field).IsEmpty()
}

// ParseV1 reads an ID3v1 tag from the last 128 bytes of the input.
// Returns ErrNoDataFound when no tag is present.
func ParseV1(sr *binary.SafeReader) (*V1Tag, error) {
	const context = "parsing ID3v1 tag"
	if sr.Size() < v1Size {
		return nil, fmt.Errorf("%s: %w", context, types.ErrNoDataFound)
	}
	buf := make([]byte, v1Size)
	if err := sr.ReadAt(buf, sr.Size()-v1Size, "ID3v1 tag"); err != nil {
		return nil, fmt.Errorf("%s: %w", context, err)
	}
	if string(buf[:3]) != "TAG" {
		return nil, fmt.Errorf("%s: %w", context, types.ErrNoDataFound)
	}

	tag := &V1Tag{
		Title:  v1Slot(buf[3:33]),
		Artist: v1Slot(buf[33:63]),
		Album:  v1Slot(buf[63:93]),
		Year:   v1Slot(buf[93:97]),
	}
	// ID3v1.1: a zero byte at comment[28] marks the track number slot.
	if buf[125] == 0 && buf[126] != 0 {
		tag.Comment = v1Slot(buf[97:125])
		tag.Track = buf[126]
	} else {
		tag.Comment = v1Slot(buf[97:127])
	}
	if buf[127] != 0xFF {
		tag.Genre = buf[127]
		tag.HasGenre = true
	}
	return tag, nil
}

// v1Slot trims the zero/space padding of a fixed-width slot and decodes
// it as Latin-1.
func v1Slot(b []byte) string {
	b = bytes.TrimRight(b, "\x00 ")
	if len(b) == 0 {
		return ""
	}
	return types.NewTextWith(b, types.EncodingLatin1).String()
}

// Make writes the 128-byte tag.
func (t *V1Tag) Make(sw *binary.SafeWriter) error {
	buf := make([]byte, v1Size)
	copy(buf, "TAG")
	writeV1Slot(buf[3:33], t.Title)
	writeV1Slot(buf[33:63], t.Artist)
	writeV1Slot(buf[63:93], t.Album)
	writeV1Slot(buf[93:97], t.Year)
	if t.Track > 0 {
		writeV1Slot(buf[97:125], t.Comment)
		buf[125] = 0
		buf[126] = t.Track
	} else {
		writeV1Slot(buf[97:127], t.Comment)
	}
	if t.HasGenre {
		buf[127] = t.Genre
	} else {
		buf[127] = 0xFF
	}
	return sw.WriteBytes(buf)
}

// writeV1Slot encodes text as Latin-1 into a fixed slot, truncating.
func writeV1Slot(dst []byte, s string) {
	encoded, err := types.NewText(s).ConvertTo(types.EncodingLatin1)
	if err != nil {
		// Characters outside Latin-1: degrade per rune.
		raw := make([]byte, 0, len(s))
		for _, r := range s {
			if r < 0x100 {
				raw = append(raw, byte(r))
			} else {
				raw = append(raw, '?')
			}
		}
		copy(dst, raw)
		return
	}
	copy(dst, encoded.Data())
}
