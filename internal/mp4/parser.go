package mp4

import (
	"errors"
	"io"
	"time"

	"github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/registry"
	"github.com/tagmeld/tagmeld/internal/types"
)

// Layout keeps the parsed atom tree for the rewrite planner.
type Layout struct {
	Tree *Tree
}

// parser implements registry.FormatParser for ISO-BMFF files.
type parser struct{}

func (p *parser) Parse(r io.ReaderAt, size int64, path string) (*types.File, error) {
	sr := binary.NewSafeReader(r, size, path)
	tree, err := NewTree(sr)
	if err != nil {
		return nil, err
	}

	var diag types.Diag
	file := &types.File{
		Path:       path,
		Format:     types.FormatMP4,
		Size:       size,
		Container_: &Layout{Tree: tree},
	}
	file.Audio.Container = "MP4"

	metaRef, err := tree.Path(atomMoov, atomUdta, atomMeta)
	if err != nil {
		diag.Critical("parsing MP4 tag", "user data atoms could not be scanned: "+err.Error())
	}
	if metaRef != NoAtom {
		tag := NewTag()
		if err := tag.Parse(tree, metaRef, &diag); err != nil && !errors.Is(err, types.ErrNoDataFound) {
			diag.Critical("parsing MP4 tag", err.Error())
		} else if err == nil {
			file.Tags = append(file.Tags, tag)
		}
	}

	p.parseMovieHeader(tree, file, &diag)
	p.parseCodec(tree, file)

	file.Notifications = diag
	return file, nil
}

// parseMovieHeader derives the duration from mvhd.
func (p *parser) parseMovieHeader(tree *Tree, file *types.File, diag *types.Diag) {
	mvhdRef, err := tree.Path(atomMoov, atomMvhd)
	if err != nil || mvhdRef == NoAtom {
		return
	}
	atom := tree.Atom(mvhdRef)
	version, err := binary.Read[uint8](tree.sr, atom.DataOffset(), "mvhd version")
	if err != nil {
		return
	}

	var timescale uint32
	var duration uint64
	switch version {
	case 0:
		// version/flags + creation + modification, both 32-bit
		ts, err1 := binary.Read[uint32](tree.sr, atom.DataOffset()+12, "mvhd timescale")
		d, err2 := binary.Read[uint32](tree.sr, atom.DataOffset()+16, "mvhd duration")
		if err1 != nil || err2 != nil {
			return
		}
		timescale, duration = ts, uint64(d)
	case 1:
		// creation and modification are 64-bit
		ts, err1 := binary.Read[uint32](tree.sr, atom.DataOffset()+20, "mvhd timescale")
		d, err2 := binary.Read[uint64](tree.sr, atom.DataOffset()+24, "mvhd duration")
		if err1 != nil || err2 != nil {
			return
		}
		timescale, duration = ts, d
	default:
		diag.Warn("parsing MP4 stream", "mvhd version is unknown")
		return
	}
	if timescale > 0 {
		file.Audio.Duration = time.Duration(float64(duration) / float64(timescale) * float64(time.Second))
	}
}

// parseCodec reads the first sample description's format FourCC.
func (p *parser) parseCodec(tree *Tree, file *types.File) {
	stsdRef, err := tree.Path(atomMoov, atomTrak, atomMdia, atomMinf, atomStbl, atomStsd)
	if err != nil || stsdRef == NoAtom {
		return
	}
	atom := tree.Atom(stsdRef)
	if atom.DataSize() < 16 {
		return
	}
	// version/flags + entry count, then the first entry's size and format.
	format, err := binary.Read[uint32](tree.sr, atom.DataOffset()+12, "sample description format")
	if err != nil {
		return
	}
	file.Audio.Codec = FourCCString(format)
}

func init() {
	registry.Register(types.FormatMP4, &parser{})
	registry.RegisterWriter(types.FormatMP4, &writer{})
}
