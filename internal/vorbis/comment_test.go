package vorbis

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/types"
)

// roundTrip serialises a comment and parses it back with the same flags.
func roundTrip(t *testing.T, c *Comment, flags Flags) (*Comment, types.Diag) {
	t.Helper()

	var buf bytes.Buffer
	sw := binary.NewSafeWriter(&buf)
	require.NoError(t, c.Make(sw, flags))

	raw := buf.Bytes()
	sr := binary.NewSafeReader(bytes.NewReader(raw), int64(len(raw)), "test")
	parsed := NewComment()
	var diag types.Diag
	require.NoError(t, parsed.Parse(binary.NewReader(sr, 0), int64(len(raw)), flags, &diag))
	return parsed, diag
}

func TestCommentRoundTrip(t *testing.T) {
	c := NewComment()
	c.SetVendor(types.NewText("Xiph.Org libVorbis I 20150105"))
	c.Fields().Insert("TITLE", NewField("TITLE", types.NewText("A")))
	c.Fields().Insert("ARTIST", NewField("ARTIST", types.NewText("B")))
	c.Fields().Insert("ARTIST", NewField("ARTIST", types.NewText("C")))
	c.Fields().Insert("ALBUM", NewField("ALBUM", types.NewText("Ω")))

	parsed, diag := roundTrip(t, c, NoSignature|NoFramingByte)
	assert.Empty(t, diag)

	assert.Equal(t, "Xiph.Org libVorbis I 20150105", parsed.Vendor().String())

	// Field order must be preserved across the round trip.
	var order []string
	var values []string
	for id, f := range parsed.Fields().Fields() {
		order = append(order, id)
		values = append(values, f.TagValue().String())
	}
	assert.Equal(t, []string{"TITLE", "ARTIST", "ARTIST", "ALBUM"}, order)
	assert.Equal(t, []string{"A", "B", "C", "Ω"}, values)

	// Both ARTIST values survive in order.
	artists := parsed.Fields().All("ARTIST")
	require.Len(t, artists, 2)
	assert.Equal(t, "B", artists[0].TagValue().String())
	assert.Equal(t, "C", artists[1].TagValue().String())

	// UTF-8 payload decodes to the right rune.
	assert.Equal(t, "Ω", parsed.Value(types.FieldAlbum).String())
}

func TestCommentSignatureAndFraming(t *testing.T) {
	c := NewComment()
	c.SetVendor(types.NewText("vendor"))
	c.SetValue(types.FieldTitle, types.NewText("Hello"))

	parsed, diag := roundTrip(t, c, 0)
	assert.Empty(t, diag)
	assert.Equal(t, "Hello", parsed.Value(types.FieldTitle).String())
}

func TestCommentInvalidSignature(t *testing.T) {
	raw := []byte("\x03sirbov....")
	sr := binary.NewSafeReader(bytes.NewReader(raw), int64(len(raw)), "test")
	var diag types.Diag
	err := NewComment().Parse(binary.NewReader(sr, 0), int64(len(raw)), 0, &diag)
	require.ErrorIs(t, err, types.ErrInvalidData)
}

func TestCommentTruncated(t *testing.T) {
	// Vendor length claims more bytes than the payload has.
	raw := []byte{0xFF, 0x00, 0x00, 0x00, 'x'}
	sr := binary.NewSafeReader(bytes.NewReader(raw), int64(len(raw)), "test")
	var diag types.Diag
	err := NewComment().Parse(binary.NewReader(sr, 0), int64(len(raw)), NoSignature|NoFramingByte, &diag)
	require.ErrorIs(t, err, types.ErrTruncatedData)
}

func TestCommentMissingFramingByteIsWarning(t *testing.T) {
	c := NewComment()
	c.SetValue(types.FieldTitle, types.NewText("x"))

	var buf bytes.Buffer
	require.NoError(t, c.Make(binary.NewSafeWriter(&buf), NoSignature|NoFramingByte))

	raw := buf.Bytes()
	sr := binary.NewSafeReader(bytes.NewReader(raw), int64(len(raw)), "test")
	parsed := NewComment()
	var diag types.Diag
	// Expect a framing byte that is not there: non-fatal.
	require.NoError(t, parsed.Parse(binary.NewReader(sr, 0), int64(len(raw)), NoSignature, &diag))
	require.Len(t, diag, 1)
	assert.Equal(t, types.LevelWarning, diag[0].Level)
}

func TestCommentEncodingPolicy(t *testing.T) {
	c := NewComment()

	assert.True(t, c.CanEncodingBeUsed(types.EncodingUTF8))
	assert.False(t, c.CanEncodingBeUsed(types.EncodingLatin1))
	assert.False(t, c.CanEncodingBeUsed(types.EncodingUTF16LE))

	latin := types.NewTextWith([]byte{0xE9}, types.EncodingLatin1)
	assert.False(t, c.SetValue(types.FieldTitle, latin))
	assert.True(t, c.SetValue(types.FieldTitle, types.NewText("ok")))
}

func TestCommentFieldIDInverse(t *testing.T) {
	c := NewComment()
	for _, field := range types.KnownFields() {
		id := c.FieldID(field)
		if id == "" {
			continue
		}
		assert.Equal(t, field, c.KnownFieldOf(id), "known field of %q", id)
	}
}

func TestCommentKeyCaseInsensitive(t *testing.T) {
	c := NewComment()
	c.Fields().Insert("Title", NewField("Title", types.NewText("lower")))

	// Lookup by canonical uppercase key matches the verbatim mixed-case key.
	assert.Equal(t, "lower", c.Value(types.FieldTitle).String())

	parsed, _ := roundTrip(t, c, NoSignature|NoFramingByte)
	// Verbatim spelling survives the round trip.
	f, ok := parsed.Fields().First("TITLE")
	require.True(t, ok)
	assert.Equal(t, "Title", f.ID())
}

func TestCommentDescriptionFallback(t *testing.T) {
	c := NewComment()
	c.Fields().Insert("DESCRIPTION", NewField("DESCRIPTION", types.NewText("desc")))
	assert.Equal(t, "desc", c.Value(types.FieldComment).String())
	assert.True(t, c.HasField(types.FieldComment))
}

func TestCommentCoverRoundTrip(t *testing.T) {
	// Tiny fake JPEG payload; dimension probing simply finds nothing.
	data := []byte{0xFF, 0xD8, 0xFF, 0xE0, 1, 2, 3, 4}

	c := NewComment()
	field := NewField("METADATA_BLOCK_PICTURE", types.NewPicture(data, "image/jpeg", "front"))
	field.SetTypeInfo(3)
	c.Fields().Insert("METADATA_BLOCK_PICTURE", field)

	parsed, diag := roundTrip(t, c, NoSignature|NoFramingByte)
	assert.Empty(t, diag)

	cover, ok := parsed.Fields().First("METADATA_BLOCK_PICTURE")
	require.True(t, ok)
	assert.Equal(t, uint8(3), cover.TypeInfo())
	value := cover.TagValue()
	assert.Equal(t, types.ValuePicture, value.Kind())
	assert.Equal(t, data, value.Data())
	assert.Equal(t, "image/jpeg", value.MIMEType())
	assert.Equal(t, "front", value.Description())
}

func TestCommentNoCovers(t *testing.T) {
	c := NewComment()
	c.SetValue(types.FieldTitle, types.NewText("t"))
	field := NewField("METADATA_BLOCK_PICTURE", types.NewPicture([]byte{1}, "image/png", ""))
	c.Fields().Insert("METADATA_BLOCK_PICTURE", field)

	parsed, _ := roundTrip(t, c, NoSignature|NoFramingByte|NoCovers)
	assert.False(t, parsed.HasField(types.FieldCover))
	assert.True(t, parsed.HasField(types.FieldTitle))
}

func TestCommentRequiredSize(t *testing.T) {
	c := NewComment()
	c.SetVendor(types.NewText("v"))
	c.SetValue(types.FieldTitle, types.NewText("Hello"))

	for _, flags := range []Flags{0, NoSignature | NoFramingByte} {
		var buf bytes.Buffer
		require.NoError(t, c.Make(binary.NewSafeWriter(&buf), flags))
		assert.Equal(t, int64(buf.Len()), c.RequiredSize(flags))
	}
}
