package flac

import (
	"fmt"
	"io"

	"github.com/aler9/writerseeker"

	"github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/types"
)

// writer implements registry.FormatWriter for FLAC files.
//
// The plan: re-make the metadata chain into memory, then lay it out so
// the audio frames keep their original offset whenever the new chain
// fits into the old chain plus its padding. Audio is copied verbatim.
type writer struct{}

func (w *writer) Write(out io.Writer, file *types.File, original io.ReaderAt, originalSize int64, padding int64) error {
	stream, ok := file.Container_.(*Stream)
	if !ok {
		return fmt.Errorf("writing FLAC stream: file was not parsed as FLAC: %w", types.ErrInvalidData)
	}

	// Assemble the new metadata chain in memory; the last block header
	// offset is needed to fix up isLast when padding is appended.
	buf := &writerseeker.WriterSeeker{}
	bw := binary.NewSafeWriter(buf)
	lastStartOffset, err := stream.MakeHeader(bw)
	if err != nil {
		return err
	}
	header := buf.Bytes()

	// Reuse the window the old chain occupied when the new one fits,
	// so the audio frames keep their offset.
	oldChainSize := stream.StreamOffset // chain starts at offset 0 incl. signature
	padSize := int64(0)
	if gap := oldChainSize - int64(len(header)); gap >= 4 {
		padSize = gap
	} else if gap != 0 && padding >= 4 {
		padSize = padding
	}

	sw := binary.NewSafeWriter(out)
	if padSize > 0 {
		// The padding block becomes the terminal block of the chain.
		header[lastStartOffset] &^= 0x80
		if err := sw.WriteBytes(header); err != nil {
			return err
		}
		if err := MakePadding(sw, padSize, true); err != nil {
			return err
		}
	} else {
		// No padding: the last emitted block terminates the chain.
		header[lastStartOffset] |= 0x80
		if err := sw.WriteBytes(header); err != nil {
			return err
		}
	}

	sr := binary.NewSafeReader(original, originalSize, file.Path)
	return sw.CopyRange(sr, stream.StreamOffset, originalSize-stream.StreamOffset, "audio frames")
}
