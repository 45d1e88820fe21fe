package mp4

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/types"
)

// Field is one ilst entry. The atom's FourCC is the field id; extended
// "----" atoms additionally carry mean and name attributes. The data
// atom's type indicator and locale ride along for round-tripping.
type Field struct {
	mean          string
	name          string
	value         types.TagValue
	id            uint32
	typeIndicator uint32
	locale        uint32
}

// NewField creates a field for a plain tag atom.
func NewField(id uint32, value types.TagValue) *Field {
	return &Field{id: id, value: value}
}

// NewExtendedField creates a "----" field keyed by (mean, name).
func NewExtendedField(mean, name string, value types.TagValue) *Field {
	return &Field{id: tagExtended, mean: mean, name: name, value: value}
}

// ID returns the atom FourCC.
func (f *Field) ID() uint32 { return f.id }

// Mean returns the extended mean attribute ("" for plain fields).
func (f *Field) Mean() string { return f.mean }

// Name returns the extended name attribute ("" for plain fields).
func (f *Field) Name() string { return f.name }

// TypeIndicator returns the data atom's well-known type.
func (f *Field) TypeIndicator() uint32 { return f.typeIndicator }

// TagValue returns the field's value.
func (f *Field) TagValue() types.TagValue { return f.value }

// SetTagValue replaces the field's value.
func (f *Field) SetTagValue(v types.TagValue) { f.value = v }

// Parse lifts one ilst child atom into the field.
func (f *Field) Parse(t *Tree, ref AtomRef, diag *types.Diag) error {
	const context = "parsing MP4 tag field"
	atom := t.Atom(ref)
	f.id = atom.ID

	if f.id == tagExtended {
		if err := f.parseExtendedAttributes(t, ref, diag); err != nil {
			return err
		}
	}

	dataRef, err := t.ChildByID(ref, atomData)
	if err != nil {
		return err
	}
	if dataRef == NoAtom {
		diag.WarnAt(context, fmt.Sprintf("tag atom %q has no data atom", FourCCString(f.id)), atom.Offset)
		return fmt.Errorf("%s: no data atom: %w", context, types.ErrNoDataFound)
	}

	data := t.Atom(dataRef)
	if data.DataSize() < 8 {
		return fmt.Errorf("%s: data atom of %q is too small: %w", context, FourCCString(f.id), types.ErrTruncatedData)
	}
	r := binary.NewReader(t.sr, data.DataOffset())
	cr := binary.NewChainReader(r)
	f.typeIndicator = binary.ReadChained[uint32](cr, "data type indicator")
	f.locale = binary.ReadChained[uint32](cr, "data locale")
	payload := cr.Bytes(int(data.DataSize()-8), "data payload")
	if err := cr.Error(); err != nil {
		return fmt.Errorf("%s: %w", context, err)
	}

	f.value = f.decodePayload(payload, diag)
	return nil
}

// parseExtendedAttributes reads the mean and name sub-atoms of a
// "----" atom. Both carry a 4-byte version/flags prefix.
func (f *Field) parseExtendedAttributes(t *Tree, ref AtomRef, diag *types.Diag) error {
	const context = "parsing MP4 tag field"
	for _, sub := range []struct {
		id   uint32
		dest *string
	}{{atomMean, &f.mean}, {atomName, &f.name}} {
		subRef, err := t.ChildByID(ref, sub.id)
		if err != nil {
			return err
		}
		if subRef == NoAtom {
			diag.Warn(context, fmt.Sprintf("extended atom has no %s attribute", FourCCString(sub.id)))
			continue
		}
		atom := t.Atom(subRef)
		if atom.DataSize() < 4 {
			continue
		}
		buf := make([]byte, atom.DataSize()-4)
		if err := t.sr.ReadAt(buf, atom.DataOffset()+4, "extended attribute"); err != nil {
			return fmt.Errorf("%s: %w", context, err)
		}
		*sub.dest = string(buf)
	}
	return nil
}

// decodePayload lifts the raw data payload into a typed value based on
// the type indicator and the field id.
func (f *Field) decodePayload(payload []byte, diag *types.Diag) types.TagValue {
	const context = "parsing MP4 tag field"
	switch f.typeIndicator {
	case typeUTF8:
		return types.NewTextWith(payload, types.EncodingUTF8)
	case typeUTF16:
		return types.NewTextWith(payload, types.EncodingUTF16BE)
	case typeJPEG:
		return types.NewPicture(payload, "image/jpeg", "")
	case typePNG:
		return types.NewPicture(payload, "image/png", "")
	case typeSignedInt, typeUnsignedInt:
		return decodeInteger(payload)
	}

	// Type indicator 0: well-known binary layouts by field id.
	switch f.id {
	case tagTrackPosition, tagDiskPosition:
		if len(payload) >= 6 {
			pos := uint32(payload[2])<<8 | uint32(payload[3])
			total := uint32(payload[4])<<8 | uint32(payload[5])
			if total > 0 {
				return types.NewText(fmt.Sprintf("%d/%d", pos, total))
			}
			return types.NewText(strconv.Itoa(int(pos)))
		}
		diag.Warn(context, fmt.Sprintf("%q field is too short", FourCCString(f.id)))
	case tagPreDefinedGenre:
		if len(payload) >= 2 {
			index := uint32(payload[0])<<8 | uint32(payload[1])
			if index <= 0xFF {
				return types.NewStandardGenreIndex(uint8(index))
			}
		}
		diag.Warn(context, "gnre field holds no valid genre index")
	}
	return types.NewBinary(payload)
}

// decodeInteger reads a 1/2/4/8 byte big-endian integer payload.
func decodeInteger(payload []byte) types.TagValue {
	var n int64
	switch len(payload) {
	case 1:
		n = int64(payload[0])
	case 2:
		n = int64(uint16(payload[0])<<8 | uint16(payload[1]))
	case 4:
		n = int64(uint32(payload[0])<<24 | uint32(payload[1])<<16 | uint32(payload[2])<<8 | uint32(payload[3]))
	case 8:
		for _, b := range payload {
			n = n<<8 | int64(b)
		}
	default:
		return types.NewBinary(payload)
	}
	return types.NewInteger(int32(n))
}

// FieldMaker snapshots one field's serialised form. Obtained via
// PrepareMaking; the field must not be mutated before Make.
type FieldMaker struct {
	field   *Field
	payload []byte
	err     error
}

// PrepareMaking computes the field's on-disk payload.
func (f *Field) PrepareMaking() *FieldMaker {
	m := &FieldMaker{field: f}
	m.payload, m.err = f.encodePayload()
	return m
}

// Err reports whether the field could be encoded.
func (m *FieldMaker) Err() error {
	return m.err
}

// RequiredSize returns the total size of the field atom.
func (m *FieldMaker) RequiredSize() int64 {
	size := int64(8) // field atom header
	if m.field.id == tagExtended {
		size += 8 + 4 + int64(len(m.field.mean)) // mean atom
		size += 8 + 4 + int64(len(m.field.name)) // name atom
	}
	size += 8 + 8 + int64(len(m.payload)) // data atom
	return size
}

// Make writes the field atom.
func (m *FieldMaker) Make(sw *binary.SafeWriter) error {
	if m.err != nil {
		return m.err
	}
	if err := binary.Write(sw, uint32(m.RequiredSize())); err != nil {
		return err
	}
	if err := binary.Write(sw, m.field.id); err != nil {
		return err
	}
	if m.field.id == tagExtended {
		for _, sub := range []struct {
			id   uint32
			text string
		}{{atomMean, m.field.mean}, {atomName, m.field.name}} {
			if err := binary.Write(sw, uint32(8+4+len(sub.text))); err != nil {
				return err
			}
			if err := binary.Write(sw, sub.id); err != nil {
				return err
			}
			if err := binary.Write(sw, uint32(0)); err != nil {
				return err
			}
			if err := sw.WriteString(sub.text); err != nil {
				return err
			}
		}
	}
	if err := binary.Write(sw, uint32(8+8+len(m.payload))); err != nil {
		return err
	}
	if err := binary.Write(sw, atomData); err != nil {
		return err
	}
	if err := binary.Write(sw, m.field.encodedTypeIndicator()); err != nil {
		return err
	}
	if err := binary.Write(sw, m.field.locale); err != nil {
		return err
	}
	return sw.WriteBytes(m.payload)
}

// encodedTypeIndicator decides the data atom type the value serialises
// with.
func (f *Field) encodedTypeIndicator() uint32 {
	switch f.value.Kind() {
	case types.ValueText:
		switch f.id {
		case tagTrackPosition, tagDiskPosition:
			return typeBinary
		}
		if f.value.Encoding() == types.EncodingUTF16BE {
			return typeUTF16
		}
		return typeUTF8
	case types.ValueInteger:
		return typeSignedInt
	case types.ValueStandardGenreIndex:
		if f.id == tagPreDefinedGenre {
			return typeBinary
		}
		return typeSignedInt
	case types.ValuePicture:
		switch f.value.MIMEType() {
		case "image/jpeg":
			return typeJPEG
		case "image/png":
			return typePNG
		}
		return typeBinary
	default:
		return typeBinary
	}
}

// encodePayload renders the value into the data atom payload.
func (f *Field) encodePayload() ([]byte, error) {
	switch f.id {
	case tagTrackPosition, tagDiskPosition:
		return encodePosition(f.value)
	case tagPreDefinedGenre:
		index, err := f.value.ToStandardGenreIndex()
		if err != nil {
			return nil, err
		}
		return []byte{0, index}, nil
	case tagBpm:
		n, err := f.value.ToInteger()
		if err != nil {
			return nil, err
		}
		return []byte{byte(n >> 8), byte(n)}, nil
	case tagRating:
		n, err := f.value.ToInteger()
		if err != nil {
			return nil, err
		}
		return []byte{byte(n)}, nil
	}

	switch f.value.Kind() {
	case types.ValueText:
		if f.value.Encoding() == types.EncodingUTF16BE {
			return f.value.Data(), nil
		}
		converted, err := f.value.ConvertTo(types.EncodingUTF8)
		if err != nil {
			return nil, err
		}
		return converted.Data(), nil
	case types.ValueInteger, types.ValueStandardGenreIndex:
		n, err := f.value.ToInteger()
		if err != nil {
			return nil, err
		}
		return []byte{byte(n >> 24), byte(n >> 16), byte(n >> 8), byte(n)}, nil
	default:
		return f.value.Data(), nil
	}
}

// encodePosition renders "n/of" text or an integer into the 8-byte
// position layout trkn and disk use.
func encodePosition(v types.TagValue) ([]byte, error) {
	var pos, total int
	switch v.Kind() {
	case types.ValueInteger:
		n, _ := v.ToInteger() //nolint:errcheck // Kind checked above
		pos = int(n)
	case types.ValueText:
		s, err := v.ToString()
		if err != nil {
			return nil, err
		}
		parts := strings.SplitN(s, "/", 2)
		pos, err = strconv.Atoi(strings.TrimSpace(parts[0]))
		if err != nil {
			return nil, fmt.Errorf("position %q is not numeric: %w", s, types.ErrInvalidData)
		}
		if len(parts) == 2 {
			total, err = strconv.Atoi(strings.TrimSpace(parts[1]))
			if err != nil {
				return nil, fmt.Errorf("position total %q is not numeric: %w", s, types.ErrInvalidData)
			}
		}
	default:
		return nil, fmt.Errorf("cannot encode %s value as position: %w", v.Kind(), types.ErrInvalidData)
	}
	return []byte{0, 0, byte(pos >> 8), byte(pos), byte(total >> 8), byte(total), 0, 0}, nil
}
