package id3

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binutil "github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/types"
)

func TestSyncsafe(t *testing.T) {
	tests := []struct {
		decoded uint32
		encoded [4]byte
	}{
		{0, [4]byte{0, 0, 0, 0}},
		{0x7F, [4]byte{0, 0, 0, 0x7F}},
		{0x80, [4]byte{0, 0, 0x01, 0x00}},
		{257, [4]byte{0, 0, 0x02, 0x01}},
		{0x0FFFFFFF, [4]byte{0x7F, 0x7F, 0x7F, 0x7F}},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.encoded, EncodeSyncsafe(tc.decoded))
		assert.Equal(t, tc.decoded, DecodeSyncsafe(tc.encoded[:]))
	}
}

func TestUnsyncRoundTrip(t *testing.T) {
	data := []byte{0x12, 0xFF, 0xE0, 0xFF, 0x00, 0xFF}
	assert.Equal(t, data, removeUnsync(applyUnsync(data)))
}

func reparseV2(t *testing.T, tag *V2Tag, padding int64) (*V2Tag, types.Diag) {
	t.Helper()
	var buf bytes.Buffer
	var diag types.Diag
	require.NoError(t, tag.Make(binutil.NewSafeWriter(&buf), padding, &diag))
	assert.Empty(t, diag)

	raw := buf.Bytes()
	sr := binutil.NewSafeReader(bytes.NewReader(raw), int64(len(raw)), "test.mp3")
	parsed, totalSize, err := ParseV2(sr, 0, &diag)
	require.NoError(t, err)
	assert.Equal(t, int64(len(raw)), totalSize)
	return parsed, diag
}

func TestV2CommentRoundTrip(t *testing.T) {
	tag := NewV2Tag()
	frame := NewFrame("COMM", types.NewText("ripped"))
	frame.SetLanguage("eng")
	tag.Fields().Insert("COMM", frame)

	parsed, diag := reparseV2(t, tag, 0)
	assert.Empty(t, diag)

	assert.Equal(t, "ripped", parsed.Value(types.FieldComment).String())
	comm, ok := parsed.Fields().First("COMM")
	require.True(t, ok)
	assert.Equal(t, "eng", comm.Language())
	assert.Equal(t, "", comm.Description())
}

func TestV2TextFrames(t *testing.T) {
	tag := NewV2Tag()
	tag.SetValue(types.FieldTitle, types.NewText("Tïtle Ω"))
	tag.SetValue(types.FieldArtist, types.NewText("Artist"))
	tag.SetValue(types.FieldYear, types.NewText("2016"))
	tag.SetValue(types.FieldTrackPosition, types.NewText("3/12"))

	parsed, _ := reparseV2(t, tag, 64)
	assert.Equal(t, "Tïtle Ω", parsed.Value(types.FieldTitle).String())
	assert.Equal(t, "Artist", parsed.Value(types.FieldArtist).String())
	assert.Equal(t, "2016", parsed.Value(types.FieldYear).String())
	assert.Equal(t, "3/12", parsed.Value(types.FieldTrackPosition).String())
	// v2.4 stores the year as TDRC.
	assert.True(t, parsed.Fields().HasField("TDRC"))
}

func TestV23PlainSizesAndEncodings(t *testing.T) {
	tag := NewV2Tag()
	tag.MajorVersion = 3
	tag.SetValue(types.FieldTitle, types.NewText("Müller"))

	var buf bytes.Buffer
	var diag types.Diag
	require.NoError(t, tag.Make(binutil.NewSafeWriter(&buf), 0, &diag))
	raw := buf.Bytes()
	assert.Equal(t, uint8(3), raw[3])

	// v2.3 frame sizes are plain 32-bit integers.
	frameSize := binary.BigEndian.Uint32(raw[14:18])
	// Latin-1 is lossless for "Müller": encoding byte 0 + 6 bytes.
	assert.Equal(t, uint32(7), frameSize)
	assert.Equal(t, byte(encLatin1), raw[20])

	sr := binutil.NewSafeReader(bytes.NewReader(raw), int64(len(raw)), "test.mp3")
	parsed, _, err := ParseV2(sr, 0, &diag)
	require.NoError(t, err)
	assert.Equal(t, "Müller", parsed.Value(types.FieldTitle).String())
	assert.Equal(t, uint8(3), parsed.MajorVersion)
}

func TestV2EncodingIndicators(t *testing.T) {
	// One frame per encoding byte, all decoding to the same text.
	text := "Grüße"
	utf16le := mustConvert(t, types.NewText(text), types.EncodingUTF16LE)
	utf16be := mustConvert(t, types.NewText(text), types.EncodingUTF16BE)
	latin1 := mustConvert(t, types.NewText(text), types.EncodingLatin1)

	for _, tc := range []struct {
		name string
		enc  byte
		data []byte
	}{
		{"latin1", encLatin1, latin1.Data()},
		{"utf16 BOM LE", encUTF16, append([]byte{0xFF, 0xFE}, utf16le.Data()...)},
		{"utf16 BOM BE", encUTF16, append([]byte{0xFE, 0xFF}, utf16be.Data()...)},
		{"utf16be", encUTF16BE, utf16be.Data()},
		{"utf8", encUTF8, []byte(text)},
	} {
		t.Run(tc.name, func(t *testing.T) {
			got := decodeText(tc.enc, tc.data)
			assert.Equal(t, text, got.String())
		})
	}
}

func mustConvert(t *testing.T, v types.TagValue, enc types.TextEncoding) types.TagValue {
	t.Helper()
	out, err := v.ConvertTo(enc)
	require.NoError(t, err)
	return out
}

func TestV2CoverRoundTrip(t *testing.T) {
	tag := NewV2Tag()
	picture := types.NewPicture([]byte{0x89, 'P', 'N', 'G', 1, 2}, "image/png", "front")
	frame := NewFrame("APIC", picture)
	frame.SetPictureType(3)
	frame.SetDescription("front")
	tag.Fields().Insert("APIC", frame)

	parsed, _ := reparseV2(t, tag, 0)
	cover, ok := parsed.Fields().First("APIC")
	require.True(t, ok)
	assert.Equal(t, byte(3), cover.PictureType())
	assert.Equal(t, picture.Data(), cover.TagValue().Data())
	assert.Equal(t, "image/png", cover.TagValue().MIMEType())
	assert.Equal(t, "front", cover.Description())
}

func TestV2GenreReferences(t *testing.T) {
	for _, tc := range []struct {
		raw  string
		want string
	}{
		{"(17)", "Rock"},
		{"17", "Rock"},
		{"Free Jazz", "Free Jazz"},
	} {
		v := parseGenre(types.NewText(tc.raw))
		assert.Equal(t, tc.want, v.String())
	}
}

func TestV2SkipsEncryptedFrames(t *testing.T) {
	tag := NewV2Tag()
	tag.SetValue(types.FieldTitle, types.NewText("kept"))

	var buf bytes.Buffer
	var diag types.Diag
	require.NoError(t, tag.Make(binutil.NewSafeWriter(&buf), 0, &diag))
	raw := buf.Bytes()
	// Flag the frame as encrypted (v2.4 format byte).
	raw[19] |= v4FlagEncryption

	sr := binutil.NewSafeReader(bytes.NewReader(raw), int64(len(raw)), "test.mp3")
	parsed, _, err := ParseV2(sr, 0, &diag)
	require.NoError(t, err)
	assert.False(t, parsed.HasField(types.FieldTitle))
	require.NotEmpty(t, diag)
	assert.Equal(t, types.LevelWarning, diag[len(diag)-1].Level)
}

func TestV22FrameTranslation(t *testing.T) {
	// Hand-built ID3v2.2 tag with a TT2 frame.
	content := append([]byte{encLatin1}, "Old School"...)
	frame := append([]byte("TT2"), byte(len(content)>>16), byte(len(content)>>8), byte(len(content)))
	frame = append(frame, content...)

	body := frame
	header := []byte{'I', 'D', '3', 2, 0, 0}
	size := EncodeSyncsafe(uint32(len(body)))
	header = append(header, size[:]...)
	raw := append(header, body...)

	sr := binutil.NewSafeReader(bytes.NewReader(raw), int64(len(raw)), "test.mp3")
	var diag types.Diag
	parsed, _, err := ParseV2(sr, 0, &diag)
	require.NoError(t, err)
	assert.Equal(t, "Old School", parsed.Value(types.FieldTitle).String())
	assert.True(t, parsed.Fields().HasField("TIT2"))
}

func TestV1RoundTrip(t *testing.T) {
	tag := &V1Tag{
		Title:    "Title",
		Artist:   "Artist",
		Album:    "Album",
		Year:     "1999",
		Comment:  "Comment",
		Track:    7,
		Genre:    17,
		HasGenre: true,
	}
	var buf bytes.Buffer
	require.NoError(t, tag.Make(binutil.NewSafeWriter(&buf)))
	require.Equal(t, v1Size, buf.Len())

	sr := binutil.NewSafeReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()), "test.mp3")
	parsed, err := ParseV1(sr)
	require.NoError(t, err)
	assert.Equal(t, tag.Title, parsed.Title)
	assert.Equal(t, tag.Artist, parsed.Artist)
	assert.Equal(t, tag.Year, parsed.Year)
	assert.Equal(t, tag.Comment, parsed.Comment)
	assert.Equal(t, uint8(7), parsed.Track)
	assert.Equal(t, "Rock", parsed.Value(types.FieldGenre).String())
}

func TestFieldIDInverse(t *testing.T) {
	for _, version := range []uint8{3, 4} {
		tag := NewV2Tag()
		tag.MajorVersion = version
		for _, field := range types.KnownFields() {
			id := tag.FieldID(field)
			if id == "" {
				continue
			}
			assert.Equal(t, field, tag.KnownFieldOf(id), "v2.%d known field of %q", version, id)
		}
	}
}

// mpegFrameHeader builds a valid MPEG-1 Layer 3 header: 44100 Hz,
// 128 kbit/s, stereo.
func mpegFrameHeader() []byte {
	return []byte{0xFF, 0xFB, 0x90, 0x00}
}

func buildMP3(t *testing.T, v2 *V2Tag, padding int64, audio []byte, v1 *V1Tag) []byte {
	t.Helper()
	var buf bytes.Buffer
	sw := binutil.NewSafeWriter(&buf)
	if v2 != nil {
		var diag types.Diag
		require.NoError(t, v2.Make(sw, padding, &diag))
	}
	require.NoError(t, sw.WriteBytes(audio))
	if v1 != nil {
		require.NoError(t, v1.Make(sw))
	}
	return buf.Bytes()
}

func TestParserReadsBothTags(t *testing.T) {
	v2 := NewV2Tag()
	v2.SetValue(types.FieldTitle, types.NewText("v2 title"))
	v1 := &V1Tag{Title: "v1 title"}
	audio := append(mpegFrameHeader(), make([]byte, 400)...)
	raw := buildMP3(t, v2, 32, audio, v1)

	p := &parser{}
	file, err := p.Parse(bytes.NewReader(raw), int64(len(raw)), "test.mp3")
	require.NoError(t, err)

	require.NotNil(t, file.Tag(types.TagId3v2))
	require.NotNil(t, file.Tag(types.TagId3v1))
	assert.Equal(t, "v2 title", file.Lookup(types.FieldTitle).String())

	layout := file.Container_.(*Layout)
	assert.Equal(t, layout.TagRegionSize, layout.AudioStart)
	assert.Equal(t, int64(len(raw))-v1Size, layout.AudioEnd)
	assert.Equal(t, 44100, file.Audio.SampleRate)
	assert.Equal(t, 128000, file.Audio.Bitrate)
}

func TestWriterRewritesInPlaceWhenTagFits(t *testing.T) {
	v2 := NewV2Tag()
	v2.SetValue(types.FieldTitle, types.NewText("a title that leaves room"))
	audio := append(mpegFrameHeader(), make([]byte, 200)...)
	raw := buildMP3(t, v2, 256, audio, nil)

	p := &parser{}
	file, err := p.Parse(bytes.NewReader(raw), int64(len(raw)), "test.mp3")
	require.NoError(t, err)
	layout := file.Container_.(*Layout)

	tag := file.Tag(types.TagId3v2).(*V2Tag)
	tag.SetValue(types.FieldTitle, types.NewText("short"))

	var out bytes.Buffer
	require.NoError(t, (&writer{}).Write(&out, file, bytes.NewReader(raw), int64(len(raw)), 1024))
	rewritten := out.Bytes()

	// The shrunken tag is padded back to the original region size, so
	// the audio keeps its offset and the file length is unchanged.
	assert.Equal(t, len(raw), len(rewritten))
	assert.Equal(t, raw[layout.AudioStart:], rewritten[layout.AudioStart:])

	reFile, err := p.Parse(bytes.NewReader(rewritten), int64(len(rewritten)), "out.mp3")
	require.NoError(t, err)
	assert.Equal(t, "short", reFile.Lookup(types.FieldTitle).String())
}

func TestWriterGrowsTagWhenNeeded(t *testing.T) {
	v2 := NewV2Tag()
	v2.SetValue(types.FieldTitle, types.NewText("x"))
	audio := append(mpegFrameHeader(), make([]byte, 100)...)
	raw := buildMP3(t, v2, 0, audio, nil)

	p := &parser{}
	file, err := p.Parse(bytes.NewReader(raw), int64(len(raw)), "test.mp3")
	require.NoError(t, err)

	tag := file.Tag(types.TagId3v2).(*V2Tag)
	tag.SetValue(types.FieldLyrics, types.NewText(string(make([]byte, 512))))

	var out bytes.Buffer
	require.NoError(t, (&writer{}).Write(&out, file, bytes.NewReader(raw), int64(len(raw)), 128))
	rewritten := out.Bytes()
	assert.Greater(t, len(rewritten), len(raw))

	// Audio survived the shift.
	assert.True(t, bytes.HasSuffix(rewritten, audio))
}

func TestXingFlagSemantics(t *testing.T) {
	// First frame with a Xing header: frames field and bytes field.
	frame := make([]byte, 200)
	copy(frame, mpegFrameHeader())
	xingOffset := 4 + 32 // MPEG-1 stereo side info
	copy(frame[xingOffset:], "Xing")
	binary.BigEndian.PutUint32(frame[xingOffset+4:], XingHasFramesField|XingHasBytesField)
	binary.BigEndian.PutUint32(frame[xingOffset+8:], 1000)   // frame count
	binary.BigEndian.PutUint32(frame[xingOffset+12:], 64000) // bytes

	sr := binutil.NewSafeReader(bytes.NewReader(frame), int64(len(frame)), "test.mp3")
	parsed, err := ParseMpegFrame(sr, 0)
	require.NoError(t, err)

	require.True(t, parsed.IsXingHeaderAvailable())
	assert.True(t, parsed.IsXingFramefieldPresent())
	// The bytes-field accessor must test the bytes flag, not the frames
	// flag.
	assert.True(t, parsed.IsXingBytesfieldPresent())
	assert.False(t, parsed.IsXingTocFieldPresent())
	assert.Equal(t, uint32(1000), parsed.XingFrameCount())
	assert.Equal(t, uint32(64000), parsed.XingBytesField())

	// Only the bytes flag set: frames accessor false, bytes accessor true.
	binary.BigEndian.PutUint32(frame[xingOffset+4:], XingHasBytesField)
	binary.BigEndian.PutUint32(frame[xingOffset+8:], 64000)
	sr = binutil.NewSafeReader(bytes.NewReader(frame), int64(len(frame)), "test.mp3")
	parsed, err = ParseMpegFrame(sr, 0)
	require.NoError(t, err)
	assert.False(t, parsed.IsXingFramefieldPresent())
	assert.True(t, parsed.IsXingBytesfieldPresent())
	assert.Equal(t, uint32(64000), parsed.XingBytesField())
}
