package binary

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteEndian(t *testing.T) {
	var buf bytes.Buffer
	sw := NewSafeWriter(&buf)

	require.NoError(t, Write(sw, uint8(0x01)))
	require.NoError(t, Write(sw, uint16(0x0203)))
	require.NoError(t, Write(sw, uint32(0x04050607)))
	require.NoError(t, WriteLE(sw, uint32(0x04050607)))
	require.NoError(t, Write(sw, uint64(0x08090A0B0C0D0E0F)))

	assert.Equal(t, []byte{
		0x01,
		0x02, 0x03,
		0x04, 0x05, 0x06, 0x07,
		0x07, 0x06, 0x05, 0x04,
		0x08, 0x09, 0x0A, 0x0B, 0x0C, 0x0D, 0x0E, 0x0F,
	}, buf.Bytes())
	assert.Equal(t, int64(19), sw.Offset())
}

func TestWriteUint24(t *testing.T) {
	var buf bytes.Buffer
	sw := NewSafeWriter(&buf)

	require.NoError(t, sw.WriteUint24(0x010203, BigEndian))
	require.NoError(t, sw.WriteUint24(0x010203, LittleEndian))
	assert.Equal(t, []byte{0x01, 0x02, 0x03, 0x03, 0x02, 0x01}, buf.Bytes())
}

func TestWriteZeroes(t *testing.T) {
	var buf bytes.Buffer
	sw := NewSafeWriter(&buf)

	require.NoError(t, sw.WriteZeroes(1000))
	assert.Equal(t, 1000, buf.Len())
	assert.Equal(t, int64(1000), sw.Offset())
	assert.Equal(t, make([]byte, 1000), buf.Bytes())
}

func TestCopyRange(t *testing.T) {
	src := make([]byte, 200*1024)
	for i := range src {
		src[i] = byte(i)
	}
	sr := NewSafeReader(bytes.NewReader(src), int64(len(src)), "src.bin")

	var buf bytes.Buffer
	sw := NewSafeWriter(&buf)
	require.NoError(t, sw.CopyRange(sr, 10, int64(len(src))-10, "payload"))
	assert.Equal(t, src[10:], buf.Bytes())

	// Out-of-range copies surface the reader's bounds error.
	require.Error(t, sw.CopyRange(sr, 10, int64(len(src)), "too much"))
}
