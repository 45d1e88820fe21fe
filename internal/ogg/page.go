// Package ogg implements Ogg page framing: page parsing, a logical
// packet iterator and the re-framing rewriter used to update Vorbis
// and Opus comment headers.
package ogg

import (
	"encoding/binary"
	"fmt"

	binutil "github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/types"
)

// Header type flags.
const (
	// FlagContinued marks a page whose first segment continues the
	// previous page's last packet.
	FlagContinued = 0x01
	// FlagBOS marks the first page of a logical bitstream.
	FlagBOS = 0x02
	// FlagEOS marks the last page of a logical bitstream.
	FlagEOS = 0x04
)

// maxSegments is the Ogg limit of 255 segments per page.
const maxSegments = 255

// Page describes one Ogg page: the fixed 27-byte header, the segment
// table and where its payload lives in the file.
type Page struct {
	Segments   []byte
	Offset     int64
	DataOffset int64
	GranulePos uint64
	Serial     uint32
	Sequence   uint32
	Checksum   uint32
	HeaderType byte
}

// DataSize sums the segment table.
func (p *Page) DataSize() int64 {
	total := int64(0)
	for _, s := range p.Segments {
		total += int64(s)
	}
	return total
}

// HeaderSize returns 27 plus the segment table length.
func (p *Page) HeaderSize() int64 {
	return 27 + int64(len(p.Segments))
}

// TotalSize returns the page size including payload.
func (p *Page) TotalSize() int64 {
	return p.HeaderSize() + p.DataSize()
}

// IsEOS reports whether the page ends its logical bitstream.
func (p *Page) IsEOS() bool {
	return p.HeaderType&FlagEOS != 0
}

// ParsePage reads a page header at the given offset.
func ParsePage(sr *binutil.SafeReader, offset int64) (*Page, error) {
	const context = "parsing Ogg page"
	magic := make([]byte, 4)
	if err := sr.ReadAt(magic, offset, "Ogg capture pattern"); err != nil {
		return nil, fmt.Errorf("%s: %w", context, err)
	}
	if string(magic) != "OggS" {
		return nil, fmt.Errorf("%s: capture pattern not found at offset %d: %w", context, offset, types.ErrInvalidData)
	}

	r := binutil.NewReader(sr, offset+4)
	cr := binutil.NewChainReader(r)
	version := binutil.ReadChained[uint8](cr, "stream structure version")
	headerType := binutil.ReadChained[uint8](cr, "header type")
	granule := binutil.ReadChainedLE[uint64](cr, "granule position")
	serial := binutil.ReadChainedLE[uint32](cr, "serial number")
	sequence := binutil.ReadChainedLE[uint32](cr, "sequence number")
	checksum := binutil.ReadChainedLE[uint32](cr, "checksum")
	segmentCount := binutil.ReadChained[uint8](cr, "segment count")
	segments := cr.Bytes(int(segmentCount), "segment table")
	if err := cr.Error(); err != nil {
		return nil, fmt.Errorf("%s: %w", context, err)
	}
	if version != 0 {
		return nil, fmt.Errorf("%s: stream structure version %d: %w", context, version, types.ErrVersionNotSupported)
	}

	return &Page{
		Offset:     offset,
		HeaderType: headerType,
		GranulePos: granule,
		Serial:     serial,
		Sequence:   sequence,
		Checksum:   checksum,
		Segments:   segments,
		DataOffset: offset + 27 + int64(segmentCount),
	}, nil
}

// Verify recomputes the page checksum from the file and compares it.
func (p *Page) Verify(sr *binutil.SafeReader) error {
	raw := make([]byte, p.TotalSize())
	if err := sr.ReadAt(raw, p.Offset, "Ogg page"); err != nil {
		return err
	}
	if got := PageCRC(raw); got != p.Checksum {
		return fmt.Errorf("parsing Ogg page: checksum mismatch at offset %d (computed 0x%08x, stored 0x%08x): %w",
			p.Offset, got, p.Checksum, types.ErrInvalidData)
	}
	return nil
}

// MakePage serialises a page with the given payload, computing the
// checksum. The segment table must match the payload length.
func MakePage(sw *binutil.SafeWriter, header Page, payload []byte) error {
	raw := make([]byte, 27+len(header.Segments)+len(payload))
	copy(raw, "OggS")
	raw[4] = 0
	raw[5] = header.HeaderType
	binary.LittleEndian.PutUint64(raw[6:14], header.GranulePos)
	binary.LittleEndian.PutUint32(raw[14:18], header.Serial)
	binary.LittleEndian.PutUint32(raw[18:22], header.Sequence)
	// Checksum (raw[22:26]) is patched after the payload is in place.
	raw[26] = byte(len(header.Segments))
	copy(raw[27:], header.Segments)
	copy(raw[27+len(header.Segments):], payload)

	binary.LittleEndian.PutUint32(raw[22:26], PageCRC(raw))
	return sw.WriteBytes(raw)
}

// LaceSegments builds the segment table for a packet of the given
// length. A packet whose length is a multiple of 255 ends with a zero
// lacing value; a packet longer than 255*255 spills onto the next page
// (the caller splits it).
func LaceSegments(length int) []byte {
	var segments []byte
	for length >= 255 {
		segments = append(segments, 255)
		length -= 255
	}
	return append(segments, byte(length))
}
