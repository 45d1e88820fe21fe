package flac

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binutil "github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/types"
	"github.com/tagmeld/tagmeld/internal/vorbis"
)

// blockHeader encodes a 4-byte FLAC metadata block header.
func blockHeader(isLast bool, blockType uint8, dataSize uint32) []byte {
	raw := dataSize & 0x00FFFFFF
	raw |= uint32(blockType) << 24
	if isLast {
		raw |= 1 << 31
	}
	out := make([]byte, 4)
	binary.BigEndian.PutUint32(out, raw)
	return out
}

// streamInfoBlock builds a 34-byte STREAMINFO with the packed sample
// parameters.
func streamInfoBlock(sampleRate, channels, bits uint64, totalSamples uint64) []byte {
	data := make([]byte, 34)
	packed := sampleRate<<44 | (channels-1)<<41 | (bits-1)<<36 | totalSamples
	binary.BigEndian.PutUint64(data[10:18], packed)
	return data
}

// vorbisBlock serialises a Vorbis comment block payload (no signature,
// no framing byte).
func vorbisBlock(vendor string, comments ...string) []byte {
	var buf bytes.Buffer
	lenLE := func(n int) {
		var b [4]byte
		binary.LittleEndian.PutUint32(b[:], uint32(n))
		buf.Write(b[:])
	}
	lenLE(len(vendor))
	buf.WriteString(vendor)
	lenLE(len(comments))
	for _, c := range comments {
		lenLE(len(c))
		buf.WriteString(c)
	}
	return buf.Bytes()
}

// buildFlac assembles a synthetic FLAC stream.
func buildFlac(blocks ...[]byte) []byte {
	var buf bytes.Buffer
	buf.WriteString("fLaC")
	for _, b := range blocks {
		buf.Write(b)
	}
	buf.WriteString("audio-frames-go-here")
	return buf.Bytes()
}

func parseStream(t *testing.T, raw []byte) (*Stream, types.Diag) {
	t.Helper()
	sr := binutil.NewSafeReader(bytes.NewReader(raw), int64(len(raw)), "test.flac")
	stream := NewStream(sr, 0)
	var diag types.Diag
	require.NoError(t, stream.Parse(&diag))
	return stream, diag
}

func TestStreamParse(t *testing.T) {
	vc := vorbisBlock("reference libFLAC", "TITLE=Hello", "ARTIST=World")
	raw := buildFlac(
		append(blockHeader(false, blockTypeStreamInfo, 34), streamInfoBlock(44100, 2, 16, 441000)...),
		append(blockHeader(false, blockTypeVorbisComment, uint32(len(vc))), vc...),
		append(blockHeader(true, blockTypePadding, 1024), make([]byte, 1024)...),
	)

	stream, diag := parseStream(t, raw)
	assert.Empty(t, diag)

	require.NotNil(t, stream.Comment)
	assert.Equal(t, "Hello", stream.Comment.Value(types.FieldTitle).String())
	assert.Equal(t, "World", stream.Comment.Value(types.FieldArtist).String())
	assert.Equal(t, "reference libFLAC", stream.Comment.Vendor().String())

	assert.Equal(t, int64(4+38+(4+len(vc))+1028), stream.StreamOffset)
	assert.Equal(t, int64(1028), stream.PaddingSize)

	assert.Equal(t, 44100, stream.Info.SampleRate)
	assert.Equal(t, 2, stream.Info.Channels)
	assert.Equal(t, 16, stream.Info.BitDepth)
	assert.Equal(t, uint64(441000), stream.Info.TotalSamples)
	assert.Equal(t, 10.0, stream.Info.Duration.Seconds())
}

func TestStreamParseBadSignature(t *testing.T) {
	raw := []byte("flaCnope")
	sr := binutil.NewSafeReader(bytes.NewReader(raw), int64(len(raw)), "test.flac")
	var diag types.Diag
	err := NewStream(sr, 0).Parse(&diag)
	require.ErrorIs(t, err, types.ErrInvalidData)
	require.NotEmpty(t, diag)
	assert.Equal(t, types.LevelCritical, diag[0].Level)
}

func TestStreamParseTruncatedStreamInfo(t *testing.T) {
	// STREAMINFO announces 10 bytes: reported as Critical, parsing continues.
	vc := vorbisBlock("v", "TITLE=x")
	raw := buildFlac(
		append(blockHeader(false, blockTypeStreamInfo, 10), make([]byte, 10)...),
		append(blockHeader(true, blockTypeVorbisComment, uint32(len(vc))), vc...),
	)
	stream, diag := parseStream(t, raw)
	require.NotEmpty(t, diag)
	assert.Equal(t, types.LevelCritical, diag[0].Level)
	assert.Equal(t, "x", stream.Comment.Value(types.FieldTitle).String())
}

func TestStreamParsePictureBlock(t *testing.T) {
	pic := vorbis.NewPictureBlock(types.NewPicture([]byte{1, 2, 3}, "image/png", "back"), 4)
	picData := pic.Bytes()
	raw := buildFlac(
		append(blockHeader(false, blockTypeStreamInfo, 34), streamInfoBlock(48000, 1, 24, 0)...),
		append(blockHeader(true, blockTypePicture, uint32(len(picData))), picData...),
	)

	stream, diag := parseStream(t, raw)
	assert.Empty(t, diag)

	// A comment is created on demand to hold the cover.
	require.NotNil(t, stream.Comment)
	assert.Equal(t, types.EngineIdentifier(), stream.Comment.Vendor().String())
	cover, ok := stream.Comment.Fields().First("METADATA_BLOCK_PICTURE")
	require.True(t, ok)
	assert.Equal(t, uint8(4), cover.TypeInfo())
	assert.Equal(t, []byte{1, 2, 3}, cover.TagValue().Data())
}

func TestStreamParseMergesMultipleComments(t *testing.T) {
	vc1 := vorbisBlock("vendor one", "TITLE=first")
	vc2 := vorbisBlock("vendor two", "ARTIST=second")
	raw := buildFlac(
		append(blockHeader(false, blockTypeVorbisComment, uint32(len(vc1))), vc1...),
		append(blockHeader(true, blockTypeVorbisComment, uint32(len(vc2))), vc2...),
	)
	stream, _ := parseStream(t, raw)
	assert.Equal(t, "first", stream.Comment.Value(types.FieldTitle).String())
	assert.Equal(t, "second", stream.Comment.Value(types.FieldArtist).String())
}

// parsedBlock is one block of a made header's metadata chain as read
// back by chainOf for layout checks.
type parsedBlock struct {
	blockType uint8
	size      uint32
	isLast    bool
}

func chainOf(t *testing.T, raw []byte) []parsedBlock {
	t.Helper()
	require.Equal(t, "fLaC", string(raw[:4]))
	var blocks []parsedBlock
	off := 4
	for {
		require.Less(t, off+4, len(raw)+1)
		word := binary.BigEndian.Uint32(raw[off : off+4])
		b := parsedBlock{
			isLast:    word>>31 == 1,
			blockType: uint8(word >> 24 & 0x7F),
			size:      word & 0x00FFFFFF,
		}
		blocks = append(blocks, b)
		off += 4 + int(b.size)
		if b.isLast {
			break
		}
	}
	return blocks
}

func TestMakeHeaderWithCover(t *testing.T) {
	vc := vorbisBlock("reference libFLAC", "TITLE=Hello", "ARTIST=World")
	raw := buildFlac(
		append(blockHeader(false, blockTypeStreamInfo, 34), streamInfoBlock(44100, 2, 16, 441000)...),
		append(blockHeader(false, blockTypeVorbisComment, uint32(len(vc))), vc...),
		append(blockHeader(true, blockTypePadding, 1024), make([]byte, 1024)...),
	)
	stream, _ := parseStream(t, raw)

	// Add a 10 000 byte cover.
	cover := make([]byte, 10000)
	coverID := stream.Comment.FieldID(types.FieldCover)
	field := vorbis.NewField(coverID, types.NewPicture(cover, "image/jpeg", ""))
	field.SetTypeInfo(3)
	stream.Comment.Fields().Insert(coverID, field)

	var out bytes.Buffer
	sw := binutil.NewSafeWriter(&out)
	lastOffset, err := stream.MakeHeader(sw)
	require.NoError(t, err)

	made := out.Bytes()
	blocks := chainOf(t, made)
	require.Len(t, blocks, 3)

	// STREAMINFO unchanged, then the comment, then the picture; padding
	// dropped; exactly the final block carries isLast.
	assert.Equal(t, uint8(blockTypeStreamInfo), blocks[0].blockType)
	assert.False(t, blocks[0].isLast)
	assert.Equal(t, uint8(blockTypeVorbisComment), blocks[1].blockType)
	assert.False(t, blocks[1].isLast)
	assert.Equal(t, uint8(blockTypePicture), blocks[2].blockType)
	assert.True(t, blocks[2].isLast)

	// The picture block holds the cover plus its fixed layout overhead.
	assert.Greater(t, int(blocks[2].size), 10000)

	// The returned offset points at the last (picture) block header.
	assert.Equal(t, int64(len(made))-int64(blocks[2].size)-4, lastOffset)

	// Re-parse the made header: the comment has no picture comment field,
	// the cover comes back as a PICTURE block.
	reparsed, diag := parseStream(t, append(made, "audio"...))
	assert.Empty(t, diag)
	covers := reparsed.Comment.Fields().All("METADATA_BLOCK_PICTURE")
	require.Len(t, covers, 1)
	assert.Equal(t, cover, covers[0].TagValue().Data())
	assert.Equal(t, "Hello", reparsed.Comment.Value(types.FieldTitle).String())
}

func TestWriterKeepsAudioOffsetWhenHeaderFits(t *testing.T) {
	vc := vorbisBlock("vendor", "TITLE=Old Title Long Enough")
	raw := buildFlac(
		append(blockHeader(false, blockTypeStreamInfo, 34), streamInfoBlock(44100, 2, 16, 0)...),
		append(blockHeader(false, blockTypeVorbisComment, uint32(len(vc))), vc...),
		append(blockHeader(true, blockTypePadding, 1024), make([]byte, 1024)...),
	)
	stream, _ := parseStream(t, raw)
	stream.Comment.SetValue(types.FieldTitle, types.NewText("New"))

	file := &types.File{Path: "test.flac", Format: types.FormatFLAC, Size: int64(len(raw)), Container_: stream}
	var out bytes.Buffer
	require.NoError(t, (&writer{}).Write(&out, file, bytes.NewReader(raw), int64(len(raw)), 4096))

	rewritten := out.Bytes()
	// Audio stays at the original offset thanks to padding reuse.
	assert.Equal(t, int64(len(raw)), int64(len(rewritten)))
	assert.Equal(t, raw[stream.StreamOffset:], rewritten[stream.StreamOffset:])

	reparsed, diag := parseStream(t, rewritten)
	assert.Empty(t, diag)
	assert.Equal(t, "New", reparsed.Comment.Value(types.FieldTitle).String())

	// Exactly one terminal block and it is the padding.
	blocks := chainOf(t, rewritten)
	last := blocks[len(blocks)-1]
	assert.Equal(t, uint8(blockTypePadding), last.blockType)
	assert.True(t, last.isLast)
}

func TestMakePaddingRejectsTinySize(t *testing.T) {
	var out bytes.Buffer
	err := MakePadding(binutil.NewSafeWriter(&out), 3, true)
	require.ErrorIs(t, err, types.ErrInvalidData)
}
