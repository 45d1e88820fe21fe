package matroska

import (
	"fmt"
	"io"
	"time"

	"github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/registry"
	"github.com/tagmeld/tagmeld/internal/types"
)

// parser implements registry.FormatParser for Matroska/WebM files.
type parser struct{}

func (p *parser) Parse(r io.ReaderAt, size int64, path string) (*types.File, error) {
	const context = "parsing Matroska file"
	sr := binary.NewSafeReader(r, size, path)
	var diag types.Diag

	file := &types.File{
		Path:   path,
		Format: types.FormatMatroska,
		Size:   size,
	}
	file.Audio.Container = "Matroska"

	head, err := readElement(sr, 0)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", context, err)
	}
	if head.id != idEBML {
		return nil, &types.CorruptedFileError{Path: path, Reason: "EBML header not found"}
	}

	var segment element
	foundSegment := false
	err = walk(sr, head.end(), size, func(e element) (bool, error) {
		if e.id == idSegment {
			segment = e
			foundSegment = true
			return false, nil
		}
		return true, nil
	})
	if err != nil || !foundSegment {
		diag.Critical(context, "no segment element found")
		file.Notifications = diag
		return file, nil
	}

	tag := NewTag()
	timestampScale := uint64(1000000)
	var duration float64
	// Info elements are read after every Tags element, so the segment
	// title only fills in for a missing TITLE SimpleTag.
	var infos []element
	err = walk(sr, segment.dataOffset, segment.end(), func(e element) (bool, error) {
		switch e.id {
		case idInfo:
			infos = append(infos, e)
		case idTags:
			p.parseTags(sr, e, tag, &diag)
		}
		return true, nil
	})
	if err != nil {
		diag.CriticalAt(context, fmt.Sprintf("segment children could not be walked: %v", err), segment.dataOffset)
	}
	for _, info := range infos {
		p.parseInfo(sr, info, &timestampScale, &duration, tag, &diag)
	}

	if duration > 0 {
		file.Audio.Duration = time.Duration(duration * float64(timestampScale))
	}
	if tag.Fields().Len() > 0 {
		file.Tags = append(file.Tags, tag)
	}
	file.Notifications = diag
	return file, nil
}

// parseInfo reads the segment info: timestamp scale, duration and the
// segment title (folded into the tag's title when no TITLE SimpleTag
// exists).
func (p *parser) parseInfo(sr *binary.SafeReader, info element, scale *uint64, duration *float64, tag *Tag, diag *types.Diag) {
	const context = "parsing Matroska file"
	err := walk(sr, info.dataOffset, info.end(), func(e element) (bool, error) {
		switch e.id {
		case idTimestampScale:
			if v, err := readUint(sr, e); err == nil {
				*scale = v
			}
		case idDuration:
			if v, err := readFloat(sr, e); err == nil {
				*duration = v
			}
		case idTitle:
			if s, err := readString(sr, e); err == nil && s != "" && !tag.HasField(types.FieldTitle) {
				tag.Fields().Insert("TITLE", NewField("TITLE", types.NewText(s)))
			}
		}
		return true, nil
	})
	if err != nil {
		diag.WarnAt(context, fmt.Sprintf("info element could not be walked: %v", err), info.dataOffset)
	}
}

// parseTags walks Tags → Tag → SimpleTag. A failure inside one Tag
// element is reported and the walk continues with the next sibling.
func (p *parser) parseTags(sr *binary.SafeReader, tags element, tag *Tag, diag *types.Diag) {
	const context = "parsing Matroska tag"
	_ = walk(sr, tags.dataOffset, tags.end(), func(e element) (bool, error) { //nolint:errcheck // Per-element isolation below
		if e.id != idTag {
			return true, nil
		}
		targetType := uint64(0)
		err := walk(sr, e.dataOffset, e.end(), func(child element) (bool, error) {
			switch child.id {
			case idTargets:
				_ = walk(sr, child.dataOffset, child.end(), func(target element) (bool, error) { //nolint:errcheck // Optional
					if target.id == idTargetTypeValue {
						if v, err := readUint(sr, target); err == nil {
							targetType = v
						}
					}
					return true, nil
				})
			case idSimpleTag:
				if field := p.parseSimpleTag(sr, child, diag); field != nil {
					field.targetType = targetType
					tag.Fields().Insert(field.Name(), field)
				}
			}
			return true, nil
		})
		if err != nil {
			diag.CriticalAt(context, fmt.Sprintf("tag element could not be parsed: %v", err), e.dataOffset)
		}
		return true, nil
	})
}

// parseSimpleTag reads one SimpleTag element. SimpleTag elements nested
// inside it are not read.
func (p *parser) parseSimpleTag(sr *binary.SafeReader, e element, diag *types.Diag) *Field {
	const context = "parsing Matroska tag"
	field := &Field{}
	err := walk(sr, e.dataOffset, e.end(), func(child element) (bool, error) {
		switch child.id {
		case idTagName:
			s, err := readString(sr, child)
			if err != nil {
				return false, err
			}
			field.name = s
		case idTagLanguage:
			if s, err := readString(sr, child); err == nil {
				field.language = s
			}
		case idTagString:
			s, err := readString(sr, child)
			if err != nil {
				return false, err
			}
			field.value = types.NewText(s)
		case idTagBinary:
			buf := make([]byte, child.dataSize)
			if err := sr.ReadAt(buf, child.dataOffset, "SimpleTag binary"); err != nil {
				return false, err
			}
			field.value = types.NewBinary(buf)
		}
		return true, nil
	})
	if err != nil {
		diag.WarnAt(context, fmt.Sprintf("SimpleTag could not be parsed: %v", err), e.dataOffset)
		return nil
	}
	if field.name == "" {
		return nil
	}
	return field
}

func init() {
	registry.Register(types.FormatMatroska, &parser{})
}
