package ogg

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

// vorbisIdent builds a minimal Vorbis identification header packet.
func vorbisIdent(channels byte, sampleRate uint32) []byte {
	data := make([]byte, 30)
	data[0] = 1
	copy(data[1:7], "vorbis")
	data[11] = channels
	binary.LittleEndian.PutUint32(data[12:16], sampleRate)
	binary.LittleEndian.PutUint32(data[20:24], 192000)
	data[29] = 1
	return data
}

// vorbisCommentPacket builds a comment header packet with signature and
// framing byte.
func vorbisCommentPacket(t *testing.T, vendor string, fields map[string]string) []byte {
	t.Helper()
	c := vorbis.NewComment()
	c.SetVendor(types.NewText(vendor))
	for k, v := range fields {
		c.Fields().Insert(k, vorbis.NewField(k, types.NewText(v)))
	}
	var buf bytes.Buffer
	require.NoError(t, c.Make(binutil.NewSafeWriter(&buf), 0))
	return buf.Bytes()
}

// buildStream lays packets out onto pages the way an encoder would:
// ident alone on the BOS page, remaining header packets on the next
// page(s), one audio packet per page after that.
func buildStream(t *testing.T, serial uint32, ident []byte, header [][]byte, audio [][]byte) []byte {
	t.Helper()
	var out bytes.Buffer
	sw := binutil.NewSafeWriter(&out)

	require.NoError(t, MakePage(sw, Page{
		HeaderType: FlagBOS,
		Serial:     serial,
		Sequence:   0,
		Segments:   LaceSegments(len(ident)),
	}, ident))

	var lacing []byte
	var payload []byte
	for _, p := range header {
		lacing = append(lacing, LaceSegments(len(p))...)
		payload = append(payload, p...)
	}
	require.LessOrEqual(t, len(lacing), maxSegments, "test header packets must fit one page")
	require.NoError(t, MakePage(sw, Page{
		Serial:   serial,
		Sequence: 1,
		Segments: lacing,
	}, payload))

	seq := uint32(2)
	for i, p := range audio {
		header := Page{
			GranulePos: uint64((i + 1) * 1024),
			Serial:     serial,
			Sequence:   seq,
			Segments:   LaceSegments(len(p)),
		}
		if i == len(audio)-1 {
			header.HeaderType = FlagEOS
		}
		require.NoError(t, MakePage(sw, header, p))
		seq++
	}
	return out.Bytes()
}

func packetsOf(t *testing.T, raw []byte) [][]byte {
	t.Helper()
	sr := binutil.NewSafeReader(bytes.NewReader(raw), int64(len(raw)), "test.ogg")
	it := NewIterator(sr)
	it.VerifyCRC = true
	var diag types.Diag
	require.NoError(t, it.ReadPages(&diag))
	assert.Empty(t, diag)
	packets, err := it.Packets()
	require.NoError(t, err)
	out := make([][]byte, len(packets))
	for i, p := range packets {
		out[i] = p.Data
	}
	return out
}

func TestLaceSegments(t *testing.T) {
	assert.Equal(t, []byte{0}, LaceSegments(0))
	assert.Equal(t, []byte{42}, LaceSegments(42))
	assert.Equal(t, []byte{255, 0}, LaceSegments(255))
	assert.Equal(t, []byte{255, 255, 10}, LaceSegments(520))
}

func TestIteratorJoinsPacketsAcrossPages(t *testing.T) {
	// A 600-byte packet split across two pages: 510 bytes on the first
	// (two full segments), 90 on the second.
	packet := make([]byte, 600)
	for i := range packet {
		packet[i] = byte(i)
	}

	var out bytes.Buffer
	sw := binutil.NewSafeWriter(&out)
	require.NoError(t, MakePage(sw, Page{
		HeaderType: FlagBOS,
		Serial:     7,
		Sequence:   0,
		Segments:   []byte{255, 255},
	}, packet[:510]))
	require.NoError(t, MakePage(sw, Page{
		HeaderType: FlagContinued | FlagEOS,
		Serial:     7,
		Sequence:   1,
		Segments:   []byte{90},
	}, packet[510:]))

	packets := packetsOf(t, out.Bytes())
	require.Len(t, packets, 1)
	assert.Equal(t, packet, packets[0])
}

func TestPageCRCDetectsCorruption(t *testing.T) {
	var out bytes.Buffer
	sw := binutil.NewSafeWriter(&out)
	require.NoError(t, MakePage(sw, Page{
		HeaderType: FlagBOS | FlagEOS,
		Serial:     1,
		Segments:   []byte{3},
	}, []byte{1, 2, 3}))

	raw := out.Bytes()
	raw[len(raw)-1] ^= 0xFF

	sr := binutil.NewSafeReader(bytes.NewReader(raw), int64(len(raw)), "test.ogg")
	page, err := ParsePage(sr, 0)
	require.NoError(t, err)
	require.Error(t, page.Verify(sr))
}

func TestParseVorbisStream(t *testing.T) {
	comment := vorbisCommentPacket(t, "Xiph.Org libVorbis I 20150105", map[string]string{
		"TITLE":  "Hello",
		"ARTIST": "World",
	})
	setup := append([]byte{5, 'v', 'o', 'r', 'b', 'i', 's'}, make([]byte, 64)...)
	raw := buildStream(t, 0xCAFE, vorbisIdent(2, 44100), [][]byte{comment, setup},
		[][]byte{make([]byte, 100), make([]byte, 120)})

	p := &parser{}
	file, err := p.Parse(bytes.NewReader(raw), int64(len(raw)), "test.ogg")
	require.NoError(t, err)
	assert.Empty(t, file.Notifications)

	assert.Equal(t, types.FormatOgg, file.Format)
	assert.Equal(t, "Vorbis", file.Audio.Codec)
	assert.Equal(t, 2, file.Audio.Channels)
	assert.Equal(t, 44100, file.Audio.SampleRate)

	layout := file.Container_.(*Layout)
	assert.Equal(t, uint32(0xCAFE), layout.Serial)
	assert.Equal(t, 1, layout.HeaderEndPage)
	require.NotNil(t, layout.Comment)
	assert.Equal(t, "Hello", layout.Comment.Value(types.FieldTitle).String())
	assert.Equal(t, "World", layout.Comment.Value(types.FieldArtist).String())

	// TotalSamples is the last granule position (2*1024).
	assert.Equal(t, uint64(2048), file.Audio.TotalSamples)
}

func TestRewritePreservesPacketSequence(t *testing.T) {
	comment := vorbisCommentPacket(t, "vendor", map[string]string{"TITLE": "Old"})
	setup := append([]byte{5, 'v', 'o', 'r', 'b', 'i', 's'}, make([]byte, 300)...)
	audio := [][]byte{make([]byte, 100), make([]byte, 520), make([]byte, 7)}
	for _, a := range audio {
		for i := range a {
			a[i] = byte(i * 3)
		}
	}
	raw := buildStream(t, 0xBEEF, vorbisIdent(2, 48000), [][]byte{comment, setup}, audio)

	p := &parser{}
	file, err := p.Parse(bytes.NewReader(raw), int64(len(raw)), "test.ogg")
	require.NoError(t, err)

	layout := file.Container_.(*Layout)
	layout.Comment.SetValue(types.FieldTitle, types.NewText("A considerably longer replacement title"))

	var out bytes.Buffer
	require.NoError(t, (&writer{}).Write(&out, file, bytes.NewReader(raw), int64(len(raw)), 0))
	rewritten := out.Bytes()

	before := packetsOf(t, raw)
	after := packetsOf(t, rewritten)
	require.Len(t, after, len(before))

	// Packet 0 (ident) and packets 2.. (setup + audio) are identical;
	// only the comment packet changed.
	assert.Equal(t, before[0], after[0])
	for i := 2; i < len(before); i++ {
		assert.Equal(t, before[i], after[i], "packet %d", i)
	}

	// Serial numbers and granule positions survive; sequence numbers
	// are consecutive.
	sr := binutil.NewSafeReader(bytes.NewReader(rewritten), int64(len(rewritten)), "out.ogg")
	it := NewIterator(sr)
	var diag types.Diag
	require.NoError(t, it.ReadPages(&diag))
	var lastGranule uint64
	for i, page := range it.Pages() {
		assert.Equal(t, uint32(0xBEEF), page.Serial)
		assert.Equal(t, uint32(i), page.Sequence)
		if page.GranulePos != 0 {
			lastGranule = page.GranulePos
		}
	}
	assert.Equal(t, uint64(3*1024), lastGranule)

	// The rewritten comment parses back.
	reFile, err := p.Parse(bytes.NewReader(rewritten), int64(len(rewritten)), "out.ogg")
	require.NoError(t, err)
	reLayout := reFile.Container_.(*Layout)
	assert.Equal(t, "A considerably longer replacement title", reLayout.Comment.Value(types.FieldTitle).String())
}

func TestParseOpusStream(t *testing.T) {
	ident := make([]byte, 19)
	copy(ident, "OpusHead")
	ident[8] = 1
	ident[9] = 2
	binary.LittleEndian.PutUint16(ident[10:12], 312)
	binary.LittleEndian.PutUint32(ident[12:16], 48000)

	c := vorbis.NewComment()
	c.SetVendor(types.NewText("libopus 1.3"))
	c.SetValue(types.FieldTitle, types.NewText("Opus Title"))
	var commentBuf bytes.Buffer
	require.NoError(t, c.Make(binutil.NewSafeWriter(&commentBuf), vorbis.NoSignature|vorbis.NoFramingByte))
	comment := append([]byte("OpusTags"), commentBuf.Bytes()...)

	raw := buildStream(t, 9, ident, [][]byte{comment}, [][]byte{make([]byte, 50)})

	p := &parser{opus: true}
	file, err := p.Parse(bytes.NewReader(raw), int64(len(raw)), "test.opus")
	require.NoError(t, err)

	assert.Equal(t, types.FormatOpus, file.Format)
	assert.Equal(t, "Opus", file.Audio.Codec)
	layout := file.Container_.(*Layout)
	require.NotNil(t, layout.Comment)
	assert.Equal(t, "Opus Title", layout.Comment.Value(types.FieldTitle).String())
	assert.Nil(t, layout.Setup)
	// 1024 granule minus 312 pre-skip samples.
	assert.Equal(t, uint64(712), file.Audio.TotalSamples)
}
