package id3

import (
	"encoding/binary"
	"fmt"
	"strings"

	binutil "github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/tagbase"
	"github.com/tagmeld/tagmeld/internal/types"
)

// Tag header flags.
const (
	headerFlagUnsync   = 0x80
	headerFlagExtended = 0x40
	headerFlagFooter   = 0x10
)

// Frame format flags.
const (
	// ID3v2.3 format byte (second flags byte).
	v3FlagCompression = 0x80
	v3FlagEncryption  = 0x40
	// ID3v2.4 format byte.
	v4FlagCompression = 0x08
	v4FlagEncryption  = 0x04
	v4FlagUnsync      = 0x02
	v4FlagDataLength  = 0x01
)

// v22Frames maps ID3v2.2 3-character ids to their modern equivalents.
// Version 2.2 is read-only; parsed frames are stored under the modern
// id and written back as ID3v2.4.
var v22Frames = map[string]string{
	"TT1": "TIT1", "TT2": "TIT2", "TT3": "TIT3",
	"TP1": "TPE1", "TP2": "TPE2", "TAL": "TALB",
	"TCO": "TCON", "TYE": "TYER", "TRK": "TRCK",
	"TPA": "TPOS", "TCM": "TCOM", "TEN": "TENC",
	"TSS": "TSSE", "TBP": "TBPM", "TPB": "TPUB",
	"TCR": "TCOP", "TLA": "TLAN", "TXT": "TEXT",
	"COM": "COMM", "ULT": "USLT", "PIC": "APIC",
	"TXX": "TXXX",
}

// V2Tag is an ID3v2.2/2.3/2.4 tag. Frames are kept in an ordered
// multimap keyed by the 4-character frame id (2.2 ids are translated
// on read).
type V2Tag struct {
	fields       tagbase.FieldMap[string, *Frame]
	MajorVersion uint8
	Revision     uint8
}

// NewV2Tag creates an empty ID3v2.4 tag.
func NewV2Tag() *V2Tag {
	return &V2Tag{
		fields:       tagbase.New[string, *Frame](tagbase.EqualExact[string]),
		MajorVersion: 4,
	}
}

// Type identifies the format.
func (t *V2Tag) Type() types.TagType { return types.TagId3v2 }

// TypeName returns the format name.
func (t *V2Tag) TypeName() string {
	return fmt.Sprintf("ID3v2.%d tag", t.MajorVersion)
}

// ProposedTextEncoding prefers UTF-8 for v2.4 and UTF-16 below.
func (t *V2Tag) ProposedTextEncoding() types.TextEncoding {
	if t.MajorVersion >= 4 {
		return types.EncodingUTF8
	}
	return types.EncodingUTF16LE
}

// CanEncodingBeUsed reports the encodings the tag version can store.
func (t *V2Tag) CanEncodingBeUsed(enc types.TextEncoding) bool {
	switch enc {
	case types.EncodingLatin1, types.EncodingUTF16LE:
		return true
	case types.EncodingUTF8, types.EncodingUTF16BE:
		return t.MajorVersion >= 4
	default:
		return false
	}
}

// Fields exposes the raw frame map.
func (t *V2Tag) Fields() *tagbase.FieldMap[string, *Frame] { return &t.fields }

// FieldID translates a canonical field to a frame id, "" when not
// representable. The year frame depends on the tag version.
func (t *V2Tag) FieldID(field types.KnownField) string {
	switch field {
	case types.FieldTitle:
		return "TIT2"
	case types.FieldAlbum:
		return "TALB"
	case types.FieldArtist:
		return "TPE1"
	case types.FieldAlbumArtist:
		return "TPE2"
	case types.FieldGenre:
		return "TCON"
	case types.FieldYear:
		if t.MajorVersion >= 4 {
			return "TDRC"
		}
		return "TYER"
	case types.FieldComment:
		return "COMM"
	case types.FieldTrackPosition:
		return "TRCK"
	case types.FieldDiskPosition:
		return "TPOS"
	case types.FieldComposer:
		return "TCOM"
	case types.FieldEncoder:
		return "TENC"
	case types.FieldEncoderSettings:
		return "TSSE"
	case types.FieldBpm:
		return "TBPM"
	case types.FieldCover:
		return "APIC"
	case types.FieldGrouping:
		return "TIT1"
	case types.FieldDescription:
		return "TIT3"
	case types.FieldLyrics:
		return "USLT"
	case types.FieldLyricist:
		return "TEXT"
	case types.FieldRecordLabel:
		return "TPUB"
	case types.FieldCopyright:
		return "TCOP"
	case types.FieldLanguage:
		return "TLAN"
	default:
		return ""
	}
}

// KnownFieldOf translates a frame id to its canonical field.
func (t *V2Tag) KnownFieldOf(id string) types.KnownField {
	switch id {
	case "TIT2":
		return types.FieldTitle
	case "TALB":
		return types.FieldAlbum
	case "TPE1":
		return types.FieldArtist
	case "TPE2":
		return types.FieldAlbumArtist
	case "TCON":
		return types.FieldGenre
	case "TDRC", "TYER":
		return types.FieldYear
	case "COMM":
		return types.FieldComment
	case "TRCK":
		return types.FieldTrackPosition
	case "TPOS":
		return types.FieldDiskPosition
	case "TCOM":
		return types.FieldComposer
	case "TENC":
		return types.FieldEncoder
	case "TSSE":
		return types.FieldEncoderSettings
	case "TBPM":
		return types.FieldBpm
	case "APIC":
		return types.FieldCover
	case "TIT1":
		return types.FieldGrouping
	case "TIT3":
		return types.FieldDescription
	case "USLT":
		return types.FieldLyrics
	case "TEXT":
		return types.FieldLyricist
	case "TPUB":
		return types.FieldRecordLabel
	case "TCOP":
		return types.FieldCopyright
	case "TLAN":
		return types.FieldLanguage
	default:
		return types.FieldInvalid
	}
}

// Value returns the first matching frame's value. TDRC and TYER both
// answer for the year field.
func (t *V2Tag) Value(field types.KnownField) types.TagValue {
	if field == types.FieldYear {
		if v := t.fields.Value("TDRC"); !v.IsEmpty() {
			return v
		}
		return t.fields.Value("TYER")
	}
	id := t.FieldID(field)
	if id == "" {
		return types.EmptyValue()
	}
	return t.fields.Value(id)
}

// SetValue replaces the first matching frame or inserts one. Text in an
// encoding the tag version cannot store is converted first: to Latin-1
// when that is lossless, to UTF-16 otherwise.
func (t *V2Tag) SetValue(field types.KnownField, value types.TagValue) bool {
	if value.Kind() == types.ValueText && !t.CanEncodingBeUsed(value.Encoding()) {
		converted, err := value.ConvertTo(types.EncodingLatin1)
		if err != nil {
			converted, err = value.ConvertTo(types.EncodingUTF16LE)
		}
		if err != nil {
			return false
		}
		value = converted
	}
	id := t.FieldID(field)
	if id == "" {
		return false
	}
	t.fields.SetValue(id, value, func(id string, v types.TagValue) *Frame {
		frame := NewFrame(id, v)
		if id == "COMM" || id == "USLT" {
			frame.SetLanguage("XXX")
		}
		return frame
	})
	return true
}

// HasField reports whether the canonical field is present.
func (t *V2Tag) HasField(field types.KnownField) bool {
	if field == types.FieldYear {
		return t.fields.HasField("TDRC") || t.fields.HasField("TYER")
	}
	id := t.FieldID(field)
	return id != "" && t.fields.HasField(id)
}

// ParseV2 reads an ID3v2 tag at the given offset. Returns the tag and
// its total on-disk size (header, frames, padding and footer). A frame
// that cannot be parsed is skipped with a notification.
func ParseV2(sr *binutil.SafeReader, offset int64, diag *types.Diag) (*V2Tag, int64, error) {
	const context = "parsing ID3v2 tag"

	header := make([]byte, 10)
	if err := sr.ReadAt(header, offset, "ID3v2 header"); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", context, err)
	}
	if string(header[:3]) != "ID3" {
		return nil, 0, fmt.Errorf("%s: %w", context, types.ErrNoDataFound)
	}

	tag := NewV2Tag()
	tag.MajorVersion = header[3]
	tag.Revision = header[4]
	flags := header[5]
	size := int64(DecodeSyncsafe(header[6:10]))
	totalSize := 10 + size
	if flags&headerFlagFooter != 0 {
		totalSize += 10
	}

	if tag.MajorVersion < 2 || tag.MajorVersion > 4 {
		diag.Critical(context, fmt.Sprintf("ID3v2.%d is not supported", tag.MajorVersion))
		return nil, totalSize, fmt.Errorf("%s: ID3v2.%d: %w", context, tag.MajorVersion, types.ErrVersionNotSupported)
	}

	body := make([]byte, size)
	if err := sr.ReadAt(body, offset+10, "ID3v2 frames"); err != nil {
		return nil, 0, fmt.Errorf("%s: %w", context, err)
	}

	// Tag-level unsynchronisation (v2.2/v2.3) covers the whole body;
	// v2.4 flags individual frames instead.
	if flags&headerFlagUnsync != 0 && tag.MajorVersion < 4 {
		body = removeUnsync(body)
	}

	pos := 0
	if flags&headerFlagExtended != 0 && tag.MajorVersion >= 3 {
		pos += extendedHeaderSize(tag.MajorVersion, body)
	}

	for pos < len(body) {
		n, done := tag.parseFrame(body, pos, diag)
		if done {
			break
		}
		pos = n
	}
	return tag, totalSize, nil
}

// extendedHeaderSize returns how many bytes the extended header takes.
func extendedHeaderSize(version uint8, body []byte) int {
	if len(body) < 4 {
		return len(body)
	}
	if version >= 4 {
		// v2.4: syncsafe, size includes itself.
		return int(DecodeSyncsafe(body[:4]))
	}
	// v2.3: plain size excluding the 4 size bytes.
	return int(binary.BigEndian.Uint32(body[:4])) + 4
}

// parseFrame reads one frame starting at pos, returning the next
// position and whether padding ended the frame area.
func (t *V2Tag) parseFrame(body []byte, pos int, diag *types.Diag) (int, bool) {
	const context = "parsing ID3v2 frame"

	idLen, headerLen := 4, 10
	if t.MajorVersion == 2 {
		idLen, headerLen = 3, 6
	}
	if pos+headerLen > len(body) || body[pos] == 0 {
		return pos, true
	}

	id := string(body[pos : pos+idLen])
	var size int
	var flags uint16
	switch t.MajorVersion {
	case 2:
		size = int(body[pos+3])<<16 | int(body[pos+4])<<8 | int(body[pos+5])
	case 3:
		size = int(binary.BigEndian.Uint32(body[pos+4 : pos+8]))
		flags = binary.BigEndian.Uint16(body[pos+8 : pos+10])
	default:
		size = int(DecodeSyncsafe(body[pos+4 : pos+8]))
		flags = binary.BigEndian.Uint16(body[pos+8 : pos+10])
	}

	next := pos + headerLen + size
	if size < 0 || next > len(body) {
		diag.Warn(context, fmt.Sprintf("frame %q exceeds the tag and was dropped", id))
		return pos, true
	}
	data := body[pos+headerLen : next]

	if t.MajorVersion == 2 {
		mapped, ok := v22Frames[id]
		if !ok {
			diag.Info(context, fmt.Sprintf("frame %q has no modern equivalent and was skipped", id))
			return next, false
		}
		id = mapped
	}

	// Compressed or encrypted frames are recognised but not handled.
	compressed := (t.MajorVersion == 3 && flags&v3FlagCompression != 0) ||
		(t.MajorVersion >= 4 && flags&v4FlagCompression != 0)
	encrypted := (t.MajorVersion == 3 && flags&v3FlagEncryption != 0) ||
		(t.MajorVersion >= 4 && flags&v4FlagEncryption != 0)
	if compressed || encrypted {
		diag.Warn(context, fmt.Sprintf("frame %q is compressed or encrypted and was skipped", id))
		return next, false
	}

	// v2.4 per-frame unsynchronisation.
	if t.MajorVersion >= 4 && flags&v4FlagUnsync != 0 {
		data = removeUnsync(data)
	}
	if t.MajorVersion >= 4 && flags&v4FlagDataLength != 0 && len(data) >= 4 {
		data = data[4:]
	}

	frame := &Frame{id: id, flags: flags}
	if t.MajorVersion == 2 && id == "APIC" {
		frame.parseV22Picture(data, diag)
	} else {
		frame.parseContent(data, diag)
	}
	t.fields.Insert(id, frame)
	return next, false
}

// parseV22Picture decodes the v2.2 PIC layout, which carries a 3-byte
// image format instead of a MIME type.
func (f *Frame) parseV22Picture(data []byte, diag *types.Diag) {
	const context = "parsing ID3v2 frame"
	if len(data) < 6 {
		diag.Warn(context, "PIC frame is too short")
		return
	}
	enc := data[0]
	format := strings.ToUpper(string(data[1:4]))
	mime := "image/jpeg"
	if format == "PNG" {
		mime = "image/png"
	}
	f.pictureType = data[4]
	desc, picture := splitTerminated(enc, data[5:])
	f.description = decodeText(enc, desc).String()
	f.value = types.NewPicture(picture, mime, f.description)
}

// RequiredSize returns the size of the tag Make will produce, excluding
// padding.
func (t *V2Tag) RequiredSize() (int64, error) {
	size := int64(10)
	for _, frame := range t.fields.Fields() {
		if frame.TagValue().IsEmpty() {
			continue
		}
		content, err := frame.makeContent(t.versionForMake())
		if err != nil {
			return 0, err
		}
		size += 10 + int64(len(content))
	}
	return size, nil
}

// versionForMake returns the version frames serialise with: parsed 2.3
// tags stay 2.3, everything else is written as 2.4.
func (t *V2Tag) versionForMake() uint8 {
	if t.MajorVersion == 3 {
		return 3
	}
	return 4
}

// Make writes the tag with the given amount of trailing padding.
// Frame sizes are syncsafe for v2.4 and plain 32-bit for v2.3.
func (t *V2Tag) Make(sw *binutil.SafeWriter, padding int64, diag *types.Diag) error {
	const context = "making ID3v2 tag"
	version := t.versionForMake()

	var frames []byte
	for _, frame := range t.fields.Fields() {
		if frame.TagValue().IsEmpty() {
			continue
		}
		content, err := frame.makeContent(version)
		if err != nil {
			diag.Warn(context, fmt.Sprintf("frame %q could not be serialised: %v", frame.ID(), err))
			continue
		}
		header := make([]byte, 10)
		copy(header, frame.ID())
		if version >= 4 {
			sizeBytes := EncodeSyncsafe(uint32(len(content)))
			copy(header[4:8], sizeBytes[:])
		} else {
			binary.BigEndian.PutUint32(header[4:8], uint32(len(content)))
		}
		frames = append(frames, header...)
		frames = append(frames, content...)
	}

	bodySize := int64(len(frames)) + padding
	header := make([]byte, 10)
	copy(header, "ID3")
	header[3] = version
	header[4] = 0
	header[5] = 0
	sizeBytes := EncodeSyncsafe(uint32(bodySize))
	copy(header[6:10], sizeBytes[:])

	if err := sw.WriteBytes(header); err != nil {
		return err
	}
	if err := sw.WriteBytes(frames); err != nil {
		return err
	}
	return sw.WriteZeroes(padding)
}
