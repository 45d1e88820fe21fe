package types

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// TextEncoding identifies the character encoding a text value is stored in.
//
// The declared encoding of a TagValue is authoritative: readers translate
// on access, writers emit the stored bytes as-is.
type TextEncoding int

const (
	// EncodingUnspecified means the encoding was not declared by the container.
	EncodingUnspecified TextEncoding = iota
	// EncodingLatin1 is ISO 8859-1, used by ID3v1 and ID3v2 encoding byte 0.
	EncodingLatin1
	// EncodingUTF8 is used by Vorbis comments, MP4 data atoms and ID3v2.4.
	EncodingUTF8
	// EncodingUTF16LE is UTF-16 little-endian (ID3v2 "UTF-16 with BOM").
	EncodingUTF16LE
	// EncodingUTF16BE is UTF-16 big-endian (ID3v2.4 encoding byte 2, MP4 type 2).
	EncodingUTF16BE
)

// String returns a human-readable encoding name.
func (e TextEncoding) String() string {
	switch e {
	case EncodingLatin1:
		return "ISO-8859-1"
	case EncodingUTF8:
		return "UTF-8"
	case EncodingUTF16LE:
		return "UTF-16LE"
	case EncodingUTF16BE:
		return "UTF-16BE"
	default:
		return "unspecified"
	}
}

func (e TextEncoding) codec() encoding.Encoding {
	switch e {
	case EncodingLatin1:
		return charmap.ISO8859_1
	case EncodingUTF16LE:
		return unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case EncodingUTF16BE:
		return unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	default:
		// UTF-8 and unspecified bytes pass through unchanged.
		return nil
	}
}

// ValueKind discriminates the variants of a TagValue.
type ValueKind int

const (
	// ValueEmpty is the absent-value sentinel.
	ValueEmpty ValueKind = iota
	// ValueText holds text bytes in a declared encoding.
	ValueText
	// ValueInteger holds a signed 32-bit integer.
	ValueInteger
	// ValueStandardGenreIndex holds an index into the ID3v1 genre table.
	ValueStandardGenreIndex
	// ValueDateTime holds a point in time.
	ValueDateTime
	// ValueBinary holds raw bytes.
	ValueBinary
	// ValuePicture holds image data plus MIME type and description.
	ValuePicture
)

// String returns the kind name.
func (k ValueKind) String() string {
	switch k {
	case ValueText:
		return "text"
	case ValueInteger:
		return "integer"
	case ValueStandardGenreIndex:
		return "standard genre index"
	case ValueDateTime:
		return "date/time"
	case ValueBinary:
		return "binary"
	case ValuePicture:
		return "picture"
	default:
		return "empty"
	}
}

// TagValue is the tagged union every field value in the engine carries.
//
// A TagValue is either empty, text with a declared encoding, an integer,
// a standard genre index, a date/time, raw binary, or a picture. The
// zero value is the empty sentinel.
//
// Values are immutable once constructed; SetValue replaces, it never
// mutates in place.
type TagValue struct {
	ts   time.Time
	mime string
	desc string
	data []byte
	kind ValueKind
	enc  TextEncoding
	num  int64
}

// emptyValue is the shared immutable empty sentinel.
var emptyValue = TagValue{}

// EmptyValue returns the shared empty sentinel.
func EmptyValue() TagValue {
	return emptyValue
}

// NewText creates a UTF-8 text value from a Go string.
func NewText(s string) TagValue {
	return TagValue{kind: ValueText, data: []byte(s), enc: EncodingUTF8}
}

// NewTextWith creates a text value from raw bytes in the given encoding.
func NewTextWith(data []byte, enc TextEncoding) TagValue {
	return TagValue{kind: ValueText, data: bytes.Clone(data), enc: enc}
}

// NewInteger creates an integer value.
func NewInteger(n int32) TagValue {
	return TagValue{kind: ValueInteger, num: int64(n)}
}

// NewStandardGenreIndex creates a value referencing the ID3v1 genre table.
func NewStandardGenreIndex(i uint8) TagValue {
	return TagValue{kind: ValueStandardGenreIndex, num: int64(i)}
}

// NewDateTime creates a date/time value.
func NewDateTime(t time.Time) TagValue {
	return TagValue{kind: ValueDateTime, ts: t}
}

// NewBinary creates a raw binary value.
func NewBinary(data []byte) TagValue {
	return TagValue{kind: ValueBinary, data: bytes.Clone(data)}
}

// NewPicture creates a picture value. The picture type byte is format
// metadata and belongs in the owning field's extras, not here.
func NewPicture(data []byte, mimeType, description string) TagValue {
	return TagValue{kind: ValuePicture, data: bytes.Clone(data), mime: mimeType, desc: description}
}

// Kind returns the variant of the value.
func (v TagValue) Kind() ValueKind {
	return v.kind
}

// IsEmpty reports whether the value is the empty sentinel or has no payload.
func (v TagValue) IsEmpty() bool {
	switch v.kind {
	case ValueEmpty:
		return true
	case ValueText, ValueBinary, ValuePicture:
		return len(v.data) == 0
	case ValueDateTime:
		return v.ts.IsZero()
	default:
		return false
	}
}

// Data returns the raw payload bytes (text in its declared encoding,
// binary data, or picture data). The returned slice must not be modified.
func (v TagValue) Data() []byte {
	return v.data
}

// Encoding returns the declared text encoding.
func (v TagValue) Encoding() TextEncoding {
	return v.enc
}

// MIMEType returns the picture MIME type, empty for non-picture values.
func (v TagValue) MIMEType() string {
	return v.mime
}

// Description returns the picture description, empty for non-picture values.
func (v TagValue) Description() string {
	return v.desc
}

// String decodes the value to a UTF-8 Go string.
//
// Text is re-encoded from its declared encoding. Integers and genre
// indexes are formatted; genre indexes resolve through the standard
// genre table when possible. Binary and picture values yield an empty
// string.
func (v TagValue) String() string {
	s, _ := v.ToString()
	return s
}

// ToString decodes the value to UTF-8, reporting translation failures.
func (v TagValue) ToString() (string, error) {
	switch v.kind {
	case ValueEmpty, ValueBinary, ValuePicture:
		return "", nil
	case ValueInteger:
		return strconv.FormatInt(v.num, 10), nil
	case ValueStandardGenreIndex:
		if name := StandardGenreName(uint8(v.num)); name != "" {
			return name, nil
		}
		return strconv.FormatInt(v.num, 10), nil
	case ValueDateTime:
		return v.ts.Format(time.RFC3339), nil
	}
	codec := v.enc.codec()
	if codec == nil {
		return string(v.data), nil
	}
	decoded, err := codec.NewDecoder().Bytes(v.data)
	if err != nil {
		return "", fmt.Errorf("decode %s text: %w", v.enc, err)
	}
	return string(decoded), nil
}

// ToInteger interprets the value as a signed 32-bit integer.
func (v TagValue) ToInteger() (int32, error) {
	switch v.kind {
	case ValueInteger, ValueStandardGenreIndex:
		return int32(v.num), nil
	case ValueText:
		s, err := v.ToString()
		if err != nil {
			return 0, err
		}
		n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not an integer", ErrInvalidData, s)
		}
		return int32(n), nil
	case ValueEmpty:
		return 0, nil
	}
	return 0, fmt.Errorf("%w: cannot convert %s value to integer", ErrInvalidData, v.kind)
}

// ToStandardGenreIndex interprets the value as an index into the standard
// genre table, resolving genre names back to their index.
func (v TagValue) ToStandardGenreIndex() (uint8, error) {
	switch v.kind {
	case ValueStandardGenreIndex:
		return uint8(v.num), nil
	case ValueInteger:
		if v.num < 0 || v.num > 0xFF {
			return 0, fmt.Errorf("%w: %d is not a standard genre index", ErrInvalidData, v.num)
		}
		return uint8(v.num), nil
	case ValueText:
		s, err := v.ToString()
		if err != nil {
			return 0, err
		}
		if i, ok := StandardGenreIndex(s); ok {
			return i, nil
		}
		return 0, fmt.Errorf("%w: %q is not a standard genre", ErrInvalidData, s)
	}
	return 0, fmt.Errorf("%w: cannot convert %s value to genre index", ErrInvalidData, v.kind)
}

// ToDateTime interprets the value as a point in time. Text values are
// parsed as RFC 3339, "2006-01-02" or a bare year.
func (v TagValue) ToDateTime() (time.Time, error) {
	switch v.kind {
	case ValueDateTime:
		return v.ts, nil
	case ValueText:
		s, err := v.ToString()
		if err != nil {
			return time.Time{}, err
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02", "2006"} {
			if t, err := time.Parse(layout, s); err == nil {
				return t, nil
			}
		}
		return time.Time{}, fmt.Errorf("%w: %q is not a date", ErrInvalidData, s)
	}
	return time.Time{}, fmt.Errorf("%w: cannot convert %s value to date", ErrInvalidData, v.kind)
}

// ConvertTo returns a copy of a text value re-encoded to the target
// encoding. Non-text values and same-encoding conversions are returned
// unchanged.
func (v TagValue) ConvertTo(enc TextEncoding) (TagValue, error) {
	if v.kind != ValueText || v.enc == enc || enc == EncodingUnspecified {
		return v, nil
	}
	s, err := v.ToString()
	if err != nil {
		return emptyValue, err
	}
	out := []byte(s)
	if codec := enc.codec(); codec != nil {
		out, err = codec.NewEncoder().Bytes(out)
		if err != nil {
			return emptyValue, fmt.Errorf("encode %s text: %w", enc, err)
		}
	}
	return TagValue{kind: ValueText, data: out, enc: enc}, nil
}

// Equal reports whether two values have the same kind and decode to the
// same content. Text values compare by decoded string, so the same text
// in different encodings is equal.
func (v TagValue) Equal(other TagValue) bool {
	if v.kind != other.kind {
		return false
	}
	switch v.kind {
	case ValueEmpty:
		return true
	case ValueText:
		a, errA := v.ToString()
		b, errB := other.ToString()
		return errA == nil && errB == nil && a == b
	case ValueInteger, ValueStandardGenreIndex:
		return v.num == other.num
	case ValueDateTime:
		return v.ts.Equal(other.ts)
	case ValuePicture:
		return bytes.Equal(v.data, other.data) && v.mime == other.mime && v.desc == other.desc
	default:
		return bytes.Equal(v.data, other.data)
	}
}
