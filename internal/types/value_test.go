package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagValueKinds(t *testing.T) {
	assert.True(t, EmptyValue().IsEmpty())
	assert.Equal(t, ValueEmpty, EmptyValue().Kind())

	text := NewText("hello")
	assert.Equal(t, ValueText, text.Kind())
	assert.False(t, text.IsEmpty())
	assert.Equal(t, "hello", text.String())

	assert.True(t, NewText("").IsEmpty())
	assert.True(t, NewBinary(nil).IsEmpty())
	assert.False(t, NewInteger(0).IsEmpty())
}

func TestTagValueEncodings(t *testing.T) {
	// "é" in each encoding.
	for _, tc := range []struct {
		name string
		data []byte
		enc  TextEncoding
	}{
		{"latin1", []byte{0xE9}, EncodingLatin1},
		{"utf8", []byte{0xC3, 0xA9}, EncodingUTF8},
		{"utf16le", []byte{0xE9, 0x00}, EncodingUTF16LE},
		{"utf16be", []byte{0x00, 0xE9}, EncodingUTF16BE},
	} {
		t.Run(tc.name, func(t *testing.T) {
			v := NewTextWith(tc.data, tc.enc)
			assert.Equal(t, "é", v.String())
			assert.Equal(t, tc.enc, v.Encoding())
		})
	}
}

func TestTagValueConvertTo(t *testing.T) {
	v := NewText("Grüße")

	latin, err := v.ConvertTo(EncodingLatin1)
	require.NoError(t, err)
	assert.Equal(t, []byte{'G', 'r', 0xFC, 0xDF, 'e'}, latin.Data())
	assert.Equal(t, "Grüße", latin.String())

	utf16, err := latin.ConvertTo(EncodingUTF16BE)
	require.NoError(t, err)
	assert.Equal(t, "Grüße", utf16.String())

	// Characters outside Latin-1 cannot convert.
	_, err = NewText("Ω").ConvertTo(EncodingLatin1)
	assert.Error(t, err)

	// Same-encoding conversion is the identity.
	same, err := v.ConvertTo(EncodingUTF8)
	require.NoError(t, err)
	assert.Equal(t, v.Data(), same.Data())
}

func TestTagValueEqualAcrossEncodings(t *testing.T) {
	utf8 := NewText("é")
	latin := NewTextWith([]byte{0xE9}, EncodingLatin1)
	assert.True(t, utf8.Equal(latin))
	assert.False(t, utf8.Equal(NewText("e")))
	assert.False(t, utf8.Equal(NewInteger(1)))
}

func TestTagValueToInteger(t *testing.T) {
	n, err := NewInteger(42).ToInteger()
	require.NoError(t, err)
	assert.Equal(t, int32(42), n)

	n, err = NewText(" 17 ").ToInteger()
	require.NoError(t, err)
	assert.Equal(t, int32(17), n)

	_, err = NewText("x").ToInteger()
	assert.ErrorIs(t, err, ErrInvalidData)

	_, err = NewBinary([]byte{1}).ToInteger()
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestTagValueGenre(t *testing.T) {
	v := NewStandardGenreIndex(17)
	assert.Equal(t, "Rock", v.String())

	index, err := NewText("Rock").ToStandardGenreIndex()
	require.NoError(t, err)
	assert.Equal(t, uint8(17), index)

	index, err = NewText("rock").ToStandardGenreIndex()
	require.NoError(t, err)
	assert.Equal(t, uint8(17), index)

	_, err = NewText("Not A Genre").ToStandardGenreIndex()
	assert.ErrorIs(t, err, ErrInvalidData)

	assert.Equal(t, "", StandardGenreName(250))
}

func TestTagValueDateTime(t *testing.T) {
	ts := time.Date(2016, 4, 23, 0, 0, 0, 0, time.UTC)
	v := NewDateTime(ts)
	got, err := v.ToDateTime()
	require.NoError(t, err)
	assert.True(t, ts.Equal(got))

	got, err = NewText("2016-04-23").ToDateTime()
	require.NoError(t, err)
	assert.Equal(t, 2016, got.Year())

	got, err = NewText("2016").ToDateTime()
	require.NoError(t, err)
	assert.Equal(t, 2016, got.Year())

	_, err = NewText("not a date").ToDateTime()
	assert.ErrorIs(t, err, ErrInvalidData)
}

func TestTagValuePicture(t *testing.T) {
	v := NewPicture([]byte{1, 2}, "image/png", "front")
	assert.Equal(t, ValuePicture, v.Kind())
	assert.Equal(t, "image/png", v.MIMEType())
	assert.Equal(t, "front", v.Description())
	// Pictures render as empty strings, never as raw bytes.
	assert.Equal(t, "", v.String())
}
