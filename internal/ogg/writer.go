package ogg

import (
	"bytes"
	"fmt"
	"io"

	binutil "github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/types"
	"github.com/tagmeld/tagmeld/internal/vorbis"
)

// writer implements registry.FormatWriter for Ogg Vorbis and Opus.
//
// The comment packet is rebuilt and the header pages re-laced; audio
// pages keep their payload, serial number and granule position but get
// new sequence numbers and recomputed checksums. Packet boundaries are
// preserved exactly.
type writer struct {
	opus bool
}

func (w *writer) Write(out io.Writer, file *types.File, original io.ReaderAt, originalSize int64, _ int64) error {
	const context = "making Ogg stream"
	layout, ok := file.Container_.(*Layout)
	if !ok {
		return fmt.Errorf("%s: file was not parsed as Ogg: %w", context, types.ErrInvalidData)
	}

	sw := binutil.NewSafeWriter(out)

	// Page 0: the identification header always sits alone on the first
	// page.
	ident := Page{
		HeaderType: FlagBOS,
		Serial:     layout.Serial,
		Sequence:   0,
		Segments:   LaceSegments(len(layout.Ident)),
	}
	if err := MakePage(sw, ident, layout.Ident); err != nil {
		return err
	}

	// Re-lace the rebuilt comment packet (and, for Vorbis, the setup
	// packet) into fresh header pages.
	commentPacket, err := w.makeCommentPacket(layout)
	if err != nil {
		return err
	}
	headerPackets := [][]byte{commentPacket}
	if layout.Setup != nil {
		headerPackets = append(headerPackets, layout.Setup)
	}
	sequence, err := w.writePackets(sw, headerPackets, layout.Serial, 1)
	if err != nil {
		return err
	}

	// Audio pages: payload untouched, sequence renumbered, CRC redone.
	sr := binutil.NewSafeReader(original, originalSize, file.Path)
	for i := layout.HeaderEndPage + 1; i < len(layout.Pages); i++ {
		page := layout.Pages[i]
		payload := make([]byte, page.DataSize())
		if err := sr.ReadAt(payload, page.DataOffset, "Ogg page payload"); err != nil {
			return err
		}
		header := Page{
			HeaderType: page.HeaderType,
			GranulePos: page.GranulePos,
			Serial:     page.Serial,
			Sequence:   sequence,
			Segments:   page.Segments,
		}
		if err := MakePage(sw, header, payload); err != nil {
			return err
		}
		sequence++
	}
	return nil
}

// makeCommentPacket serialises the comment header packet.
func (w *writer) makeCommentPacket(layout *Layout) ([]byte, error) {
	comment := layout.Comment
	if comment == nil {
		comment = vorbis.NewComment()
		comment.SetVendor(types.NewText(types.EngineIdentifier()))
	}
	var buf bytes.Buffer
	bw := binutil.NewSafeWriter(&buf)
	if w.opus {
		if err := bw.WriteString("OpusTags"); err != nil {
			return nil, err
		}
		if err := comment.Make(bw, vorbis.NoSignature|vorbis.NoFramingByte); err != nil {
			return nil, err
		}
	} else {
		if err := comment.Make(bw, 0); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// writePackets laces the packets into pages of at most 255 segments,
// setting the continuation flag on pages that start mid-packet.
// Header pages carry granule position 0. Returns the next sequence
// number.
func (w *writer) writePackets(sw *binutil.SafeWriter, packets [][]byte, serial, sequence uint32) (uint32, error) {
	var lacing []byte
	var payload []byte
	for _, p := range packets {
		lacing = append(lacing, LaceSegments(len(p))...)
		payload = append(payload, p...)
	}

	continued := false
	consumed := 0
	for len(lacing) > 0 {
		n := len(lacing)
		if n > maxSegments {
			n = maxSegments
		}
		segments := lacing[:n]
		lacing = lacing[n:]

		dataSize := 0
		for _, s := range segments {
			dataSize += int(s)
		}

		header := Page{
			Serial:   serial,
			Sequence: sequence,
			Segments: segments,
		}
		if continued {
			header.HeaderType = FlagContinued
		}
		if err := MakePage(sw, header, payload[consumed:consumed+dataSize]); err != nil {
			return sequence, err
		}
		consumed += dataSize
		sequence++
		// The next page continues a packet when this one ended on a
		// full 255-byte lacing value.
		continued = segments[len(segments)-1] == 255
	}
	return sequence, nil
}
