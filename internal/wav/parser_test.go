package wav

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	binutil "github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/id3"
	"github.com/tagmeld/tagmeld/internal/types"
)

// chunk serialises one RIFF chunk with word alignment.
func chunk(id string, payload []byte) []byte {
	out := make([]byte, 8, 8+len(payload))
	copy(out, id)
	binary.LittleEndian.PutUint32(out[4:8], uint32(len(payload)))
	out = append(out, payload...)
	if len(payload)%2 == 1 {
		out = append(out, 0)
	}
	return out
}

// fmtChunk builds a 16-byte PCM fmt chunk.
func fmtChunk(channels, sampleRate, bits int) []byte {
	payload := make([]byte, 16)
	binary.LittleEndian.PutUint16(payload[0:2], 1) // PCM
	binary.LittleEndian.PutUint16(payload[2:4], uint16(channels))
	binary.LittleEndian.PutUint32(payload[4:8], uint32(sampleRate))
	byteRate := sampleRate * channels * bits / 8
	binary.LittleEndian.PutUint32(payload[8:12], uint32(byteRate))
	binary.LittleEndian.PutUint16(payload[12:14], uint16(channels*bits/8))
	binary.LittleEndian.PutUint16(payload[14:16], uint16(bits))
	return chunk("fmt ", payload)
}

func buildWav(t *testing.T, withTag bool, audio []byte) []byte {
	t.Helper()
	body := fmtChunk(2, 44100, 16)
	if withTag {
		tag := id3.NewV2Tag()
		tag.SetValue(types.FieldTitle, types.NewText("Wave Title"))
		tag.SetValue(types.FieldArtist, types.NewText("Wave Artist"))
		var buf bytes.Buffer
		var diag types.Diag
		require.NoError(t, tag.Make(binutil.NewSafeWriter(&buf), 0, &diag))
		body = append(body, chunk("id3 ", buf.Bytes())...)
	}
	body = append(body, chunk("data", audio)...)

	out := make([]byte, 12, 12+len(body))
	copy(out, "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(4+len(body)))
	copy(out[8:12], "WAVE")
	return append(out, body...)
}

func TestParseWavWithID3Chunk(t *testing.T) {
	raw := buildWav(t, true, make([]byte, 44100*4))

	p := &parser{}
	file, err := p.Parse(bytes.NewReader(raw), int64(len(raw)), "test.wav")
	require.NoError(t, err)
	assert.Empty(t, file.Notifications)

	tag := file.Tag(types.TagId3v2)
	require.NotNil(t, tag)
	assert.Equal(t, "Wave Title", tag.Value(types.FieldTitle).String())
	assert.Equal(t, "Wave Artist", tag.Value(types.FieldArtist).String())

	assert.Equal(t, 2, file.Audio.Channels)
	assert.Equal(t, 44100, file.Audio.SampleRate)
	assert.Equal(t, 16, file.Audio.BitDepth)
	// One second of 16-bit stereo at 44.1 kHz.
	assert.InDelta(t, 1.0, file.Audio.Duration.Seconds(), 0.01)
}

func TestParseWavWithoutTag(t *testing.T) {
	raw := buildWav(t, false, make([]byte, 100))

	p := &parser{}
	file, err := p.Parse(bytes.NewReader(raw), int64(len(raw)), "test.wav")
	require.NoError(t, err)
	assert.Empty(t, file.Tags)
	assert.Equal(t, 44100, file.Audio.SampleRate)
}

func TestParseWavRejectsGarbage(t *testing.T) {
	raw := []byte("RIFFxxxxNOPE")
	p := &parser{}
	_, err := p.Parse(bytes.NewReader(raw), int64(len(raw)), "test.wav")
	require.Error(t, err)
}
