package id3

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/tagmeld/tagmeld/internal/types"
)

// Frame is one ID3v2 frame: its 4-character id, a value and the
// format-specific extras (flags, COMM/USLT language and description,
// APIC picture type).
type Frame struct {
	id          string
	language    string
	description string
	value       types.TagValue
	flags       uint16
	pictureType byte
}

// NewFrame creates a frame with the given id and value.
func NewFrame(id string, value types.TagValue) *Frame {
	return &Frame{id: id, value: value}
}

// ID returns the 4-character frame id.
func (f *Frame) ID() string { return f.id }

// Flags returns the frame's status and format flags.
func (f *Frame) Flags() uint16 { return f.flags }

// Language returns the 3-byte language of COMM/USLT frames.
func (f *Frame) Language() string { return f.language }

// SetLanguage sets the COMM/USLT language.
func (f *Frame) SetLanguage(lang string) { f.language = lang }

// Description returns the frame description (COMM/USLT/TXXX/APIC).
func (f *Frame) Description() string { return f.description }

// SetDescription sets the frame description.
func (f *Frame) SetDescription(d string) { f.description = d }

// PictureType returns the APIC picture type byte.
func (f *Frame) PictureType() byte { return f.pictureType }

// SetPictureType sets the APIC picture type byte.
func (f *Frame) SetPictureType(t byte) { f.pictureType = t }

// TagValue returns the frame's value.
func (f *Frame) TagValue() types.TagValue { return f.value }

// SetTagValue replaces the frame's value.
func (f *Frame) SetTagValue(v types.TagValue) { f.value = v }

// Text encoding indicator bytes.
const (
	encLatin1  = 0
	encUTF16   = 1 // UTF-16 with BOM
	encUTF16BE = 2 // ID3v2.4 only
	encUTF8    = 3 // ID3v2.4 only
)

// decodeText lifts encoding-indicated bytes into a text value. UTF-16
// with BOM resolves the byte order and strips the BOM.
func decodeText(enc byte, data []byte) types.TagValue {
	switch enc {
	case encLatin1:
		return types.NewTextWith(trimTerminator(data, false), types.EncodingLatin1)
	case encUTF16:
		data = trimTerminator(data, true)
		if len(data) >= 2 {
			switch {
			case data[0] == 0xFF && data[1] == 0xFE:
				return types.NewTextWith(data[2:], types.EncodingUTF16LE)
			case data[0] == 0xFE && data[1] == 0xFF:
				return types.NewTextWith(data[2:], types.EncodingUTF16BE)
			}
		}
		return types.NewTextWith(data, types.EncodingUTF16LE)
	case encUTF16BE:
		return types.NewTextWith(trimTerminator(data, true), types.EncodingUTF16BE)
	default:
		return types.NewTextWith(trimTerminator(data, false), types.EncodingUTF8)
	}
}

// trimTerminator drops trailing null terminator(s).
func trimTerminator(data []byte, wide bool) []byte {
	if wide {
		for len(data) >= 2 && data[len(data)-1] == 0 && data[len(data)-2] == 0 {
			data = data[:len(data)-2]
		}
		return data
	}
	return bytes.TrimRight(data, "\x00")
}

// splitTerminated splits at the first null terminator of the encoding's
// width, returning the prefix and the remainder.
func splitTerminated(enc byte, data []byte) (head, rest []byte) {
	wide := enc == encUTF16 || enc == encUTF16BE
	if !wide {
		if i := bytes.IndexByte(data, 0); i >= 0 {
			return data[:i], data[i+1:]
		}
		return data, nil
	}
	for i := 0; i+1 < len(data); i += 2 {
		if data[i] == 0 && data[i+1] == 0 {
			return data[:i], data[i+2:]
		}
	}
	return data, nil
}

// parseContent decodes the frame's payload. The payload must already be
// de-unsynchronised.
func (f *Frame) parseContent(data []byte, diag *types.Diag) {
	const context = "parsing ID3v2 frame"
	switch {
	case f.id == "TXXX":
		if len(data) < 1 {
			return
		}
		enc := data[0]
		desc, rest := splitTerminated(enc, data[1:])
		f.description = decodeText(enc, desc).String()
		f.value = decodeText(enc, rest)

	case f.id == "COMM" || f.id == "USLT":
		if len(data) < 4 {
			diag.Warn(context, fmt.Sprintf("%s frame is too short", f.id))
			return
		}
		enc := data[0]
		f.language = string(data[1:4])
		desc, rest := splitTerminated(enc, data[4:])
		f.description = decodeText(enc, desc).String()
		f.value = decodeText(enc, rest)

	case f.id == "APIC":
		f.parsePicture(data, diag)

	case f.id == "TCON":
		if len(data) < 1 {
			return
		}
		f.value = parseGenre(decodeText(data[0], data[1:]))

	case strings.HasPrefix(f.id, "T"):
		if len(data) < 1 {
			return
		}
		f.value = decodeText(data[0], data[1:])

	default:
		f.value = types.NewBinary(data)
	}
}

// parsePicture decodes an APIC frame: encoding, MIME (Latin-1,
// null-terminated), picture type, description, data.
func (f *Frame) parsePicture(data []byte, diag *types.Diag) {
	const context = "parsing ID3v2 frame"
	if len(data) < 2 {
		diag.Warn(context, "APIC frame is too short")
		return
	}
	enc := data[0]
	mime, rest := splitTerminated(encLatin1, data[1:])
	if len(rest) < 1 {
		diag.Warn(context, "APIC frame is truncated")
		return
	}
	f.pictureType = rest[0]
	desc, picture := splitTerminated(enc, rest[1:])
	f.description = decodeText(enc, desc).String()
	f.value = types.NewPicture(picture, string(mime), f.description)
}

// parseGenre resolves ID3v1-style genre references: "(17)", a bare
// number, or free text.
func parseGenre(v types.TagValue) types.TagValue {
	s := v.String()
	trimmed := strings.TrimSpace(s)
	if strings.HasPrefix(trimmed, "(") && strings.HasSuffix(trimmed, ")") {
		trimmed = trimmed[1 : len(trimmed)-1]
	}
	if n, err := strconv.Atoi(trimmed); err == nil && n >= 0 && n <= 0xFF {
		return types.NewStandardGenreIndex(uint8(n))
	}
	return v
}

// encodeText renders a text value with its encoding indicator for the
// given tag version. ID3v2.3 cannot hold UTF-8 or BOM-less UTF-16BE:
// UTF-16BE becomes UTF-16 with BOM, and UTF-8 (or unspecified) text
// becomes Latin-1 when that is lossless and UTF-16 with BOM otherwise.
func encodeText(v types.TagValue, version uint8) (byte, []byte, error) {
	switch v.Encoding() {
	case types.EncodingLatin1:
		return encLatin1, v.Data(), nil
	case types.EncodingUTF16LE:
		return encUTF16, append([]byte{0xFF, 0xFE}, v.Data()...), nil
	case types.EncodingUTF16BE:
		if version >= 4 {
			return encUTF16BE, v.Data(), nil
		}
		converted, err := v.ConvertTo(types.EncodingUTF16LE)
		if err != nil {
			return 0, nil, err
		}
		return encUTF16, append([]byte{0xFF, 0xFE}, converted.Data()...), nil
	default:
		if version >= 4 {
			converted, err := v.ConvertTo(types.EncodingUTF8)
			if err != nil {
				return 0, nil, err
			}
			return encUTF8, converted.Data(), nil
		}
		// Latin-1 when lossless, UTF-16 otherwise.
		if converted, err := v.ConvertTo(types.EncodingLatin1); err == nil {
			return encLatin1, converted.Data(), nil
		}
		converted, err := v.ConvertTo(types.EncodingUTF16LE)
		if err != nil {
			return 0, nil, err
		}
		return encUTF16, append([]byte{0xFF, 0xFE}, converted.Data()...), nil
	}
}

// terminator returns the null terminator for an encoding byte.
func terminator(enc byte) []byte {
	if enc == encUTF16 || enc == encUTF16BE {
		return []byte{0, 0}
	}
	return []byte{0}
}

// makeContent renders the frame payload for the given tag version.
func (f *Frame) makeContent(version uint8) ([]byte, error) {
	switch {
	case f.id == "TXXX":
		enc, text, err := encodeText(f.value, version)
		if err != nil {
			return nil, err
		}
		descValue := types.NewText(f.description)
		_, desc, err := encodeTextAs(descValue, enc)
		if err != nil {
			return nil, err
		}
		out := []byte{enc}
		out = append(out, desc...)
		out = append(out, terminator(enc)...)
		return append(out, text...), nil

	case f.id == "COMM" || f.id == "USLT":
		enc, text, err := encodeText(f.value, version)
		if err != nil {
			return nil, err
		}
		lang := f.language
		if len(lang) != 3 {
			lang = "XXX"
		}
		_, desc, err := encodeTextAs(types.NewText(f.description), enc)
		if err != nil {
			return nil, err
		}
		out := []byte{enc}
		out = append(out, lang...)
		out = append(out, desc...)
		out = append(out, terminator(enc)...)
		return append(out, text...), nil

	case f.id == "APIC":
		out := []byte{encUTF8}
		if version < 4 {
			out[0] = encLatin1
		}
		mime := f.value.MIMEType()
		out = append(out, mime...)
		out = append(out, 0)
		out = append(out, f.pictureType)
		_, desc, err := encodeTextAs(types.NewText(f.description), out[0])
		if err != nil {
			return nil, err
		}
		out = append(out, desc...)
		out = append(out, terminator(out[0])...)
		return append(out, f.value.Data()...), nil

	case strings.HasPrefix(f.id, "T"):
		value := f.value
		if value.Kind() == types.ValueStandardGenreIndex {
			// TCON: write the genre name.
			value = types.NewText(value.String())
		}
		if value.Kind() != types.ValueText {
			value = types.NewText(value.String())
		}
		enc, text, err := encodeText(value, version)
		if err != nil {
			return nil, err
		}
		return append([]byte{enc}, text...), nil

	default:
		return f.value.Data(), nil
	}
}

// encodeTextAs renders a text value with a specific encoding byte.
func encodeTextAs(v types.TagValue, enc byte) (byte, []byte, error) {
	var target types.TextEncoding
	switch enc {
	case encLatin1:
		target = types.EncodingLatin1
	case encUTF16:
		target = types.EncodingUTF16LE
	case encUTF16BE:
		target = types.EncodingUTF16BE
	default:
		target = types.EncodingUTF8
	}
	converted, err := v.ConvertTo(target)
	if err != nil {
		return enc, nil, err
	}
	data := converted.Data()
	if enc == encUTF16 {
		data = append([]byte{0xFF, 0xFE}, data...)
	}
	return enc, data, nil
}
