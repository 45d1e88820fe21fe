package mp4

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/aler9/writerseeker"

	binutil "github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/types"
)

// writer implements registry.FormatWriter for ISO-BMFF files.
//
// Only moov/udta/meta is rebuilt. Everything outside moov is copied
// verbatim; when the rebuilt moov changes size and the mdat atom sits
// behind it, every stco/co64 chunk offset is shifted by the delta.
type writer struct{}

func (w *writer) Write(out io.Writer, file *types.File, original io.ReaderAt, originalSize int64, _ int64) error {
	const context = "making MP4 container"
	layout, ok := file.Container_.(*Layout)
	if !ok {
		return fmt.Errorf("%s: file was not parsed as MP4: %w", context, types.ErrInvalidData)
	}
	tag, _ := file.Tag(types.TagMp4).(*Tag)
	if tag == nil {
		tag = NewTag()
	}

	tree := layout.Tree
	moovRef := tree.RootByID(atomMoov)
	if moovRef == NoAtom {
		return fmt.Errorf("%s: no moov atom: %w", context, types.ErrNoDataFound)
	}
	moov := tree.Atom(moovRef)
	if moov.HeaderSize != 8 {
		return fmt.Errorf("%s: moov atoms with 64-bit sizes are not rewritten: %w", context, types.ErrUnsupportedFormat)
	}

	// Serialise the new meta atom into memory; the buffer seeks are
	// what lets the maker emit length-prefixed atoms in one pass.
	metaBuf := &writerseeker.WriterSeeker{}
	var diag types.Diag
	maker := tag.PrepareMaking(&diag)
	if err := maker.Make(binutil.NewSafeWriter(metaBuf), &diag); err != nil {
		return err
	}
	file.Notifications = append(file.Notifications, diag...)
	newMeta := metaBuf.Bytes()

	newMoov, err := w.spliceMoov(tree, moovRef, newMeta)
	if err != nil {
		return err
	}

	delta := int64(len(newMoov)) - int64(moov.TotalSize)
	mdatRef := tree.RootByID(atomMdat)
	if delta != 0 && mdatRef != NoAtom && tree.Atom(mdatRef).Offset > moov.Offset {
		if err := patchChunkOffsets(newMoov, delta); err != nil {
			return err
		}
	}

	sr := binutil.NewSafeReader(original, originalSize, file.Path)
	sw := binutil.NewSafeWriter(out)
	if moov.Offset > 0 {
		if err := sw.CopyRange(sr, 0, moov.Offset, "atoms before moov"); err != nil {
			return err
		}
	}
	if err := sw.WriteBytes(newMoov); err != nil {
		return err
	}
	tail := moov.Offset + int64(moov.TotalSize)
	return sw.CopyRange(sr, tail, originalSize-tail, "atoms after moov")
}

// spliceMoov reads the original moov atom and replaces (or inserts)
// the meta atom inside udta, fixing the ancestor sizes.
func (w *writer) spliceMoov(tree *Tree, moovRef AtomRef, newMeta []byte) ([]byte, error) {
	const context = "making MP4 container"
	moov := tree.Atom(moovRef)

	original := make([]byte, moov.TotalSize)
	if err := tree.sr.ReadAt(original, moov.Offset, "moov atom"); err != nil {
		return nil, err
	}

	udtaRef, err := tree.ChildByID(moovRef, atomUdta)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	switch {
	case udtaRef == NoAtom:
		// No user data yet: append a fresh udta wrapping the meta.
		buf.Write(original)
		var header [8]byte
		binary.BigEndian.PutUint32(header[:4], uint32(8+len(newMeta)))
		binary.BigEndian.PutUint32(header[4:], atomUdta)
		buf.Write(header[:])
		buf.Write(newMeta)

	default:
		udta := tree.Atom(udtaRef)
		if udta.HeaderSize != 8 {
			return nil, fmt.Errorf("%s: udta atoms with 64-bit sizes are not rewritten: %w", context, types.ErrUnsupportedFormat)
		}
		metaRef, err := tree.ChildByID(udtaRef, atomMeta)
		if err != nil {
			return nil, err
		}
		relUdta := udta.Offset - moov.Offset
		if metaRef == NoAtom {
			// Insert the meta at the end of udta.
			end := relUdta + int64(udta.TotalSize)
			buf.Write(original[:end])
			buf.Write(newMeta)
			buf.Write(original[end:])
		} else {
			meta := tree.Atom(metaRef)
			relMeta := meta.Offset - moov.Offset
			buf.Write(original[:relMeta])
			buf.Write(newMeta)
			buf.Write(original[relMeta+int64(meta.TotalSize):])
		}
		// The udta size grows by the delta.
		out := buf.Bytes()
		oldMetaSize := int64(0)
		if metaRef != NoAtom {
			oldMetaSize = int64(tree.Atom(metaRef).TotalSize)
		}
		udtaDelta := int64(len(newMeta)) - oldMetaSize
		binary.BigEndian.PutUint32(out[relUdta:relUdta+4], uint32(int64(udta.TotalSize)+udtaDelta))
	}

	// The moov size is simply the new buffer length.
	out := buf.Bytes()
	binary.BigEndian.PutUint32(out[:4], uint32(len(out)))
	return out, nil
}

// patchChunkOffsets walks the rebuilt moov buffer and shifts every
// stco/co64 entry by delta.
func patchChunkOffsets(moov []byte, delta int64) error {
	return walkForChunkOffsets(moov, 8, int64(len(moov)), delta)
}

func walkForChunkOffsets(buf []byte, start, end, delta int64) error {
	offset := start
	for offset+8 <= end {
		size := int64(binary.BigEndian.Uint32(buf[offset : offset+4]))
		id := binary.BigEndian.Uint32(buf[offset+4 : offset+8])
		if size < 8 || offset+size > end {
			return fmt.Errorf("making MP4 container: malformed atom inside moov: %w", types.ErrInvalidData)
		}
		switch id {
		case atomTrak, atomMdia, atomMinf, atomStbl:
			if err := walkForChunkOffsets(buf, offset+8, offset+size, delta); err != nil {
				return err
			}
		case atomStco:
			count := int64(binary.BigEndian.Uint32(buf[offset+12 : offset+16]))
			for i := int64(0); i < count; i++ {
				at := offset + 16 + i*4
				old := binary.BigEndian.Uint32(buf[at : at+4])
				binary.BigEndian.PutUint32(buf[at:at+4], uint32(int64(old)+delta))
			}
		case atomCo64:
			count := int64(binary.BigEndian.Uint32(buf[offset+12 : offset+16]))
			for i := int64(0); i < count; i++ {
				at := offset + 16 + i*8
				old := binary.BigEndian.Uint64(buf[at : at+8])
				binary.BigEndian.PutUint64(buf[at:at+8], uint64(int64(old)+delta))
			}
		}
		offset += size
	}
	return nil
}
