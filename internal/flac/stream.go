// Package flac implements parsing and rewriting of raw FLAC streams.
//
// A FLAC stream is the "fLaC" signature followed by a chain of metadata
// blocks and then the audio frames. The tag lives in a VORBIS_COMMENT
// block; covers live in separate PICTURE blocks and are folded into the
// comment's cover field on parse.
package flac

import (
	"fmt"
	"time"

	"github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/types"
	"github.com/tagmeld/tagmeld/internal/vorbis"
)

// Metadata block types
const (
	blockTypeStreamInfo    = 0
	blockTypePadding       = 1
	blockTypeApplication   = 2
	blockTypeSeekTable     = 3
	blockTypeVorbisComment = 4
	blockTypeCueSheet      = 5
	blockTypePicture       = 6
)

const parseContext = "parsing FLAC stream"

// streamInfoSize is the fixed size of a STREAMINFO block.
const streamInfoSize = 34

// BlockHeader is the 4-byte FLAC metadata block header:
// 1 bit isLast, 7 bits type, 24 bits data size (big-endian).
type BlockHeader struct {
	DataSize uint32
	Type     uint8
	IsLast   bool
}

// ParseHeader decodes the header from its 4-byte serialisation.
func (h *BlockHeader) ParseHeader(raw uint32) {
	h.IsLast = raw>>31 == 1
	h.Type = uint8(raw >> 24 & 0x7F)
	h.DataSize = raw & 0x00FFFFFF
}

// MakeHeader writes the 4-byte serialisation.
func (h *BlockHeader) MakeHeader(sw *binary.SafeWriter) error {
	raw := h.DataSize & 0x00FFFFFF
	raw |= uint32(h.Type&0x7F) << 24
	if h.IsLast {
		raw |= 1 << 31
	}
	return binary.Write(sw, raw)
}

// Stream is a parsed FLAC stream: its Vorbis comment (with covers
// folded in), technical info, and the layout facts the rewrite planner
// needs.
type Stream struct {
	// Comment is the stream's Vorbis comment; nil when the stream has
	// neither a VORBIS_COMMENT nor a PICTURE block.
	Comment *vorbis.Comment
	// Info carries the STREAMINFO-derived technical properties.
	Info types.AudioInfo
	// PaddingSize is the total size of all PADDING blocks including
	// their 4-byte headers.
	PaddingSize int64
	// StreamOffset is the absolute offset of the first audio frame.
	StreamOffset int64

	sr          *binary.SafeReader
	startOffset int64
}

// NewStream creates a stream for the media at startOffset within sr.
func NewStream(sr *binary.SafeReader, startOffset int64) *Stream {
	return &Stream{sr: sr, startOffset: startOffset}
}

// CreateComment returns the stream's Vorbis comment, creating an empty
// one (vendor set to the engine identifier) if none exists yet.
func (s *Stream) CreateComment() *vorbis.Comment {
	if s.Comment == nil {
		s.Comment = vorbis.NewComment()
		s.Comment.SetVendor(types.NewText(types.EngineIdentifier()))
	}
	return s.Comment
}

// RemoveComment drops the assigned comment, reporting whether one was
// assigned.
func (s *Stream) RemoveComment() bool {
	if s.Comment == nil {
		return false
	}
	s.Comment = nil
	return true
}

// Parse walks the metadata block chain. Failures inside one block are
// reported as Critical notifications and parsing continues with the
// next block; a bad signature or a truncated chain is fatal.
func (s *Stream) Parse(diag *types.Diag) error {
	sig, err := binary.Read[uint32](s.sr, s.startOffset, "FLAC signature")
	if err != nil {
		return fmt.Errorf("%s: %w", parseContext, err)
	}
	if sig != 0x664C6143 { // "fLaC"
		diag.CriticalAt(parseContext, "signature (fLaC) not found", s.startOffset)
		return &types.CorruptedFileError{
			Path:   s.sr.Path(),
			Offset: s.startOffset,
			Reason: "invalid FLAC signature",
		}
	}

	offset := s.startOffset + 4
	for {
		raw, err := binary.Read[uint32](s.sr, offset, "metadata block header")
		if err != nil {
			return fmt.Errorf("%s: %w", parseContext, err)
		}
		var header BlockHeader
		header.ParseHeader(raw)
		offset += 4

		switch header.Type {
		case blockTypeStreamInfo:
			if header.DataSize >= streamInfoSize {
				if err := s.parseStreamInfo(offset); err != nil {
					diag.CriticalAt(parseContext, fmt.Sprintf("STREAMINFO could not be parsed: %v", err), offset)
				}
			} else {
				diag.CriticalAt(parseContext, "STREAMINFO is truncated and will be ignored", offset)
			}

		case blockTypeVorbisComment:
			// Multiple comment blocks are merged into one.
			comment := s.CreateComment()
			r := binary.NewReader(s.sr, offset)
			if err := comment.Parse(r, int64(header.DataSize), vorbis.NoSignature|vorbis.NoFramingByte, diag); err != nil {
				diag.CriticalAt(parseContext, fmt.Sprintf("Vorbis comment could not be parsed: %v", err), offset)
			}

		case blockTypePicture:
			s.parsePicture(offset, header.DataSize, diag)

		case blockTypePadding:
			s.PaddingSize += 4 + int64(header.DataSize)

		default:
			// Preserved verbatim on rewrite.
		}

		offset += int64(header.DataSize)
		if header.IsLast {
			break
		}
	}

	s.StreamOffset = offset
	s.Info.Container = "FLAC"
	s.Info.Codec = "FLAC"
	s.Info.Lossless = true
	return nil
}

// parseStreamInfo unpacks the bit-packed tail of the STREAMINFO block:
// sample rate (20 bits), channels-1 (3), bits/sample-1 (5) and total
// samples (36).
func (s *Stream) parseStreamInfo(offset int64) error {
	data := make([]byte, streamInfoSize)
	if err := s.sr.ReadAt(data, offset, "STREAMINFO block"); err != nil {
		return err
	}

	packed := uint64(data[10])<<56 | uint64(data[11])<<48 | uint64(data[12])<<40 | uint64(data[13])<<32 |
		uint64(data[14])<<24 | uint64(data[15])<<16 | uint64(data[16])<<8 | uint64(data[17])

	sampleRate := packed >> 44 & 0xFFFFF
	channels := (packed>>41)&0x7 + 1
	bitsPerSample := (packed>>36)&0x1F + 1
	totalSamples := packed & 0xFFFFFFFFF

	s.Info.SampleRate = int(sampleRate)
	s.Info.Channels = int(channels)
	s.Info.BitDepth = int(bitsPerSample)
	s.Info.TotalSamples = totalSamples
	if sampleRate > 0 {
		seconds := float64(totalSamples) / float64(sampleRate)
		s.Info.Duration = time.Duration(seconds * float64(time.Second))
	}
	return nil
}

// parsePicture folds a PICTURE block into the comment's cover field,
// creating the comment on demand.
func (s *Stream) parsePicture(offset int64, dataSize uint32, diag *types.Diag) {
	var block PictureBlock
	r := binary.NewReader(s.sr, offset)
	if err := block.Parse(r, int64(dataSize)); err != nil {
		diag.CriticalAt(parseContext, fmt.Sprintf("PICTURE block is truncated and will be ignored: %v", err), offset)
		return
	}
	if len(block.Data) == 0 {
		diag.WarnAt(parseContext, "PICTURE block contains no picture", offset)
		return
	}
	comment := s.CreateComment()
	coverID := comment.FieldID(types.FieldCover)
	field := vorbis.NewField(coverID, block.Value())
	field.SetTypeInfo(uint8(block.PictureType))
	comment.Fields().Insert(coverID, field)
}

// PictureBlock aliases the shared FLAC picture block codec.
type PictureBlock = vorbis.PictureBlock

// MakeHeader writes the FLAC signature and metadata blocks to sw.
//
// Every block of the original stream is copied verbatim except:
//
//   - the Vorbis comment, which is re-made from the current Comment
//     (covers suppressed)
//   - PICTURE blocks, re-made from the comment's cover fields
//   - PADDING blocks, which are skipped
//
// The isLast flag is set on the final emitted block and cleared on all
// earlier ones. When the stream has no Vorbis comment, only copied
// blocks are emitted and none of them carries the isLast flag. Returns
// the offset (within the output) of the last block header, so the
// caller can set or clear its isLast flag when it decides on padding.
func (s *Stream) MakeHeader(sw *binary.SafeWriter) (int64, error) {
	if err := binary.Write(sw, uint32(0x664C6143)); err != nil {
		return 0, err
	}

	lastStartOffset := int64(0)

	// Copy the blocks that are not re-made.
	offset := s.startOffset + 4
	for {
		raw, err := binary.Read[uint32](s.sr, offset, "metadata block header")
		if err != nil {
			return 0, err
		}
		var header BlockHeader
		header.ParseHeader(raw)

		switch header.Type {
		case blockTypeVorbisComment, blockTypePicture, blockTypePadding:
			// Written separately / dropped.
		default:
			lastStartOffset = sw.Offset()
			copyHeader := header
			copyHeader.IsLast = false
			if err := copyHeader.MakeHeader(sw); err != nil {
				return 0, err
			}
			if err := sw.CopyRange(s.sr, offset+4, int64(header.DataSize), "metadata block"); err != nil {
				return 0, err
			}
		}

		offset += 4 + int64(header.DataSize)
		if header.IsLast {
			break
		}
	}

	if s.Comment == nil {
		return lastStartOffset, nil
	}

	// Covers are written as separate PICTURE blocks, never inside the
	// comment.
	coverID := s.Comment.FieldID(types.FieldCover)
	covers := s.Comment.Fields().All(coverID)

	commentHeader := BlockHeader{
		Type:     blockTypeVorbisComment,
		DataSize: uint32(s.Comment.RequiredSize(vorbis.NoSignature | vorbis.NoFramingByte | vorbis.NoCovers)),
		IsLast:   len(covers) == 0,
	}
	lastStartOffset = sw.Offset()
	if err := commentHeader.MakeHeader(sw); err != nil {
		return 0, err
	}
	if err := s.Comment.Make(sw, vorbis.NoSignature|vorbis.NoFramingByte|vorbis.NoCovers); err != nil {
		return 0, err
	}

	for i, cover := range covers {
		block := vorbis.NewPictureBlock(cover.TagValue(), uint32(cover.TypeInfo()))
		pictureHeader := BlockHeader{
			Type:     blockTypePicture,
			DataSize: uint32(block.RequiredSize()),
			IsLast:   i == len(covers)-1,
		}
		lastStartOffset = sw.Offset()
		if err := pictureHeader.MakeHeader(sw); err != nil {
			return 0, err
		}
		if err := block.Make(sw); err != nil {
			return 0, err
		}
	}

	return lastStartOffset, nil
}

// MakePadding writes a PADDING block of the given total size (header
// included) to sw. Size must be at least 4 bytes.
func MakePadding(sw *binary.SafeWriter, size int64, isLast bool) error {
	if size < 4 {
		return fmt.Errorf("padding of %d bytes is too small: %w", size, types.ErrInvalidData)
	}
	header := BlockHeader{
		Type:     blockTypePadding,
		DataSize: uint32(size - 4),
		IsLast:   isLast,
	}
	if err := header.MakeHeader(sw); err != nil {
		return err
	}
	return sw.WriteZeroes(size - 4)
}
