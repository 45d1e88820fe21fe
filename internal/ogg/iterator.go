package ogg

import (
	"errors"
	"fmt"

	binutil "github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/types"
)

// Packet is one logical packet reassembled from page segments, along
// with the page span it was read from.
type Packet struct {
	Data      []byte
	StartPage int
	EndPage   int
}

// Iterator presents the logical view over an Ogg physical stream:
// pages of one serial number, a (page, segment) cursor, and packet
// reassembly that joins 255-byte lacing runs across page boundaries.
type Iterator struct {
	sr      *binutil.SafeReader
	pages   []*Page
	serial  uint32
	pageIdx int
	segIdx  int

	// VerifyCRC enables per-page checksum validation during ReadPages.
	VerifyCRC bool
}

// NewIterator creates an iterator over the stream starting at offset 0.
func NewIterator(sr *binutil.SafeReader) *Iterator {
	return &Iterator{sr: sr}
}

// Pages returns the scanned pages.
func (it *Iterator) Pages() []*Page {
	return it.pages
}

// Serial returns the serial number of the logical bitstream being read.
func (it *Iterator) Serial() uint32 {
	return it.serial
}

// ReadPages scans every page of the stream. The logical bitstream is
// the one the first page belongs to; pages of other serial numbers
// (multiplexed streams) are skipped with a warning. Scanning stops at
// the end of input or after a page flagged EOS.
func (it *Iterator) ReadPages(diag *types.Diag) error {
	const context = "parsing Ogg stream"
	offset := int64(0)
	skippedSerial := false
	for offset < it.sr.Size() {
		page, err := ParsePage(it.sr, offset)
		if err != nil {
			if len(it.pages) == 0 {
				return err
			}
			diag.CriticalAt(context, fmt.Sprintf("page could not be parsed, stopping: %v", err), offset)
			break
		}
		if it.VerifyCRC {
			if err := page.Verify(it.sr); err != nil {
				diag.WarnAt(context, fmt.Sprintf("page %d has a bad checksum", page.Sequence), offset)
			}
		}

		if len(it.pages) == 0 {
			it.serial = page.Serial
		}
		if page.Serial == it.serial {
			it.pages = append(it.pages, page)
		} else if !skippedSerial {
			diag.Warn(context, "multiplexed logical bitstreams found; only the first is read")
			skippedSerial = true
		}

		offset += page.TotalSize()
		if page.Serial == it.serial && page.IsEOS() {
			break
		}
	}
	if len(it.pages) == 0 {
		return fmt.Errorf("%s: no pages found: %w", context, types.ErrNoDataFound)
	}
	return nil
}

// CurrentPage returns the cursor's page index.
func (it *Iterator) CurrentPage() int {
	return it.pageIdx
}

// CurrentSegment returns the cursor's segment index within the page.
func (it *Iterator) CurrentSegment() int {
	return it.segIdx
}

// NextPacket reassembles the packet under the cursor and advances past
// it. Segments of exactly 255 bytes continue the packet, across page
// boundaries when needed. Returns ErrNoDataFound when the stream is
// exhausted and ErrTruncatedData when a packet runs past the last page.
func (it *Iterator) NextPacket() (*Packet, error) {
	const context = "parsing Ogg stream"
	if it.pageIdx >= len(it.pages) {
		return nil, fmt.Errorf("%s: %w", context, types.ErrNoDataFound)
	}

	packet := &Packet{StartPage: it.pageIdx}
	for {
		if it.pageIdx >= len(it.pages) {
			return nil, fmt.Errorf("%s: packet continues past the last page: %w", context, types.ErrTruncatedData)
		}
		page := it.pages[it.pageIdx]
		if it.segIdx >= len(page.Segments) {
			// Page exhausted mid-packet; the packet continues on the
			// next page of the same serial.
			it.pageIdx++
			it.segIdx = 0
			continue
		}

		segLen := page.Segments[it.segIdx]
		if segLen > 0 {
			segOffset := page.DataOffset
			for i := 0; i < it.segIdx; i++ {
				segOffset += int64(page.Segments[i])
			}
			buf := make([]byte, segLen)
			if err := it.sr.ReadAt(buf, segOffset, "Ogg segment"); err != nil {
				return nil, fmt.Errorf("%s: %w", context, err)
			}
			packet.Data = append(packet.Data, buf...)
		}
		packet.EndPage = it.pageIdx
		it.segIdx++

		if segLen < 255 {
			// A short segment terminates the packet.
			it.advancePastEmptyTail()
			return packet, nil
		}
	}
}

// advancePastEmptyTail moves the cursor to the next page when the
// current one has no segments left, so CurrentPage is accurate and the
// end-of-stream check in NextPacket fires.
func (it *Iterator) advancePastEmptyTail() {
	for it.pageIdx < len(it.pages) && it.segIdx >= len(it.pages[it.pageIdx].Segments) {
		it.pageIdx++
		it.segIdx = 0
	}
}

// Packets reassembles every remaining packet.
func (it *Iterator) Packets() ([]*Packet, error) {
	var packets []*Packet
	for {
		p, err := it.NextPacket()
		if err != nil {
			if errors.Is(err, types.ErrNoDataFound) {
				return packets, nil
			}
			return packets, err
		}
		packets = append(packets, p)
	}
}
