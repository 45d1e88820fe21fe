package mp4

import (
	"github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/types"
)

// hdlrData is the fixed 37 bytes written after every made meta atom's
// header: the meta atom's 4-byte version/flags, then a 33-byte hdlr
// atom with handler type "mdirappl" and no name.
var hdlrData = [37]byte{
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x21, 0x68, 0x64, 0x6C, 0x72, 0x00, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x6D, 0x64, 0x69, 0x72, 0x61, 0x70, 0x70, 0x6C,
	0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00,
}

// TagMaker snapshots a tag's serialised form. The tag must not be
// mutated between PrepareMaking and Make.
type TagMaker struct {
	makers   []*FieldMaker
	metaSize int64
	ilstSize int64
}

// PrepareMaking sizes the tag. When both the free-text and pre-defined
// genre atoms exist only the free-text one is written.
func (t *Tag) PrepareMaking(diag *types.Diag) *TagMaker {
	const context = "making MP4 tag"
	m := &TagMaker{
		// meta head + hdlr atom
		metaSize: 8 + int64(len(hdlrData)),
		// ilst head
		ilstSize: 8,
	}
	omitPreDefinedGenre := t.fields.Count(tagPreDefinedGenre) > 0 && t.fields.Count(tagGenre) > 0
	for id, field := range t.fields.Fields() {
		if field.TagValue().IsEmpty() {
			continue
		}
		if omitPreDefinedGenre && id == tagPreDefinedGenre {
			continue
		}
		maker := field.PrepareMaking()
		if err := maker.Err(); err != nil {
			diag.Warn(context, "field could not be serialised: "+err.Error())
			continue
		}
		m.makers = append(m.makers, maker)
		m.ilstSize += maker.RequiredSize()
	}
	if m.ilstSize != 8 {
		m.metaSize += m.ilstSize
	}
	return m
}

// RequiredSize returns the size of the meta atom about to be written.
func (m *TagMaker) RequiredSize() int64 {
	return m.metaSize
}

// Make writes the meta atom: header, fixed hdlr, then ilst with every
// field. An empty tag writes no ilst and leaves a warning.
func (m *TagMaker) Make(sw *binary.SafeWriter, diag *types.Diag) error {
	if err := binary.Write(sw, uint32(m.metaSize)); err != nil {
		return err
	}
	if err := binary.Write(sw, atomMeta); err != nil {
		return err
	}
	if err := sw.WriteBytes(hdlrData[:]); err != nil {
		return err
	}
	if m.ilstSize == 8 {
		diag.Warn("making MP4 tag", "tag is empty")
		return nil
	}
	if err := binary.Write(sw, uint32(m.ilstSize)); err != nil {
		return err
	}
	if err := binary.Write(sw, atomIlst); err != nil {
		return err
	}
	for _, maker := range m.makers {
		if err := maker.Make(sw); err != nil {
			return err
		}
	}
	return nil
}
