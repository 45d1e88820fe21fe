package ogg

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"time"

	binutil "github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/registry"
	"github.com/tagmeld/tagmeld/internal/types"
	"github.com/tagmeld/tagmeld/internal/vorbis"
)

// Layout captures what the rewriter needs to re-frame a parsed stream:
// the page list, the header packets and where the audio pages begin.
type Layout struct {
	Comment *vorbis.Comment
	// Ident is the identification header packet, copied verbatim on
	// rewrite.
	Ident []byte
	// Setup is the Vorbis setup header packet; nil for Opus.
	Setup []byte
	// Pages is every page of the logical bitstream.
	Pages []*Page
	// HeaderEndPage is the index of the last page holding header
	// packets; audio pages follow it.
	HeaderEndPage int
	Serial        uint32
	PreSkip       uint16
	Opus          bool
}

// parser implements registry.FormatParser for Ogg Vorbis and Opus.
type parser struct {
	opus bool
}

// Parse reads the identification and comment headers of the first
// logical bitstream. The comment parser is handed exactly the comment
// packet's bytes, so it can never read past the packet's end.
func (p *parser) Parse(r io.ReaderAt, size int64, path string) (*types.File, error) {
	context := "parsing Ogg stream"
	if p.opus {
		context = "parsing Opus stream"
	}

	sr := binutil.NewSafeReader(r, size, path)
	it := NewIterator(sr)
	var diag types.Diag
	if err := it.ReadPages(&diag); err != nil {
		return nil, err
	}

	layout := &Layout{Serial: it.Serial(), Pages: it.Pages(), Opus: p.opus}
	file := &types.File{
		Path:       path,
		Size:       size,
		Container_: layout,
	}
	if p.opus {
		file.Format = types.FormatOpus
	} else {
		file.Format = types.FormatOgg
	}

	ident, err := it.NextPacket()
	if err != nil {
		return nil, fmt.Errorf("%s: identification header: %w", context, err)
	}
	layout.Ident = ident.Data
	if err := p.parseIdent(ident.Data, file, layout); err != nil {
		return nil, err
	}

	commentPacket, err := it.NextPacket()
	if err != nil {
		return nil, fmt.Errorf("%s: comment header: %w", context, err)
	}
	layout.HeaderEndPage = commentPacket.EndPage

	comment := vorbis.NewComment()
	if err := p.parseComment(commentPacket.Data, comment, &diag); err != nil {
		diag.Critical(context, fmt.Sprintf("comment header could not be parsed: %v", err))
	} else {
		layout.Comment = comment
		file.Tags = append(file.Tags, comment)
	}

	if !p.opus {
		setup, err := it.NextPacket()
		if err != nil {
			diag.Critical(context, "setup header is missing")
		} else {
			layout.Setup = setup.Data
			layout.HeaderEndPage = setup.EndPage
		}
	}

	p.fillDuration(file, layout)
	file.Notifications = diag
	return file, nil
}

// parseIdent decodes the identification header packet.
func (p *parser) parseIdent(data []byte, file *types.File, layout *Layout) error {
	if p.opus {
		if len(data) < 19 || string(data[:8]) != "OpusHead" {
			return fmt.Errorf("parsing Opus stream: OpusHead signature not found: %w", types.ErrInvalidData)
		}
		layout.PreSkip = binary.LittleEndian.Uint16(data[10:12])
		file.Audio.Container = "Ogg"
		file.Audio.Codec = "Opus"
		file.Audio.Channels = int(data[9])
		file.Audio.SampleRate = int(binary.LittleEndian.Uint32(data[12:16]))
		return nil
	}

	if len(data) < 30 || data[0] != 1 || string(data[1:7]) != "vorbis" {
		return fmt.Errorf("parsing Ogg stream: Vorbis identification signature not found: %w", types.ErrInvalidData)
	}
	file.Audio.Container = "Ogg"
	file.Audio.Codec = "Vorbis"
	file.Audio.Channels = int(data[11])
	file.Audio.SampleRate = int(binary.LittleEndian.Uint32(data[12:16]))
	file.Audio.Bitrate = int(int32(binary.LittleEndian.Uint32(data[20:24])))
	return nil
}

// parseComment decodes the comment header packet. Vorbis carries the
// "\x03vorbis" signature and a framing byte; Opus replaces them with a
// bare "OpusTags" magic.
func (p *parser) parseComment(data []byte, comment *vorbis.Comment, diag *types.Diag) error {
	if p.opus {
		if len(data) < 8 || string(data[:8]) != "OpusTags" {
			return fmt.Errorf("OpusTags signature not found: %w", types.ErrInvalidData)
		}
		body := data[8:]
		sr := binutil.NewSafeReader(bytes.NewReader(body), int64(len(body)), "OpusTags")
		return comment.Parse(binutil.NewReader(sr, 0), int64(len(body)), vorbis.NoSignature|vorbis.NoFramingByte, diag)
	}
	sr := binutil.NewSafeReader(bytes.NewReader(data), int64(len(data)), "Vorbis comment packet")
	return comment.Parse(binutil.NewReader(sr, 0), int64(len(data)), 0, diag)
}

// fillDuration derives the duration from the last granule position.
func (p *parser) fillDuration(file *types.File, layout *Layout) {
	var granule uint64
	for i := len(layout.Pages) - 1; i >= 0; i-- {
		g := layout.Pages[i].GranulePos
		if g != 0 && g != ^uint64(0) {
			granule = g
			break
		}
	}
	if granule == 0 {
		return
	}
	if p.opus {
		// Opus granules run at 48kHz regardless of the input rate.
		samples := granule - uint64(layout.PreSkip)
		file.Audio.TotalSamples = samples
		file.Audio.Duration = time.Duration(float64(samples) / 48000 * float64(time.Second))
		return
	}
	file.Audio.TotalSamples = granule
	if file.Audio.SampleRate > 0 {
		file.Audio.Duration = time.Duration(float64(granule) / float64(file.Audio.SampleRate) * float64(time.Second))
	}
}

func init() {
	registry.Register(types.FormatOgg, &parser{opus: false})
	registry.Register(types.FormatOpus, &parser{opus: true})
	registry.RegisterWriter(types.FormatOgg, &writer{opus: false})
	registry.RegisterWriter(types.FormatOpus, &writer{opus: true})
}
