package vorbis

import (
	"bytes"
	"fmt"
	"image"

	// Cover dimension probing for the formats covers actually come in.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/gabriel-vasile/mimetype"

	"github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/types"
)

// PictureBlock is the FLAC PICTURE metadata block layout. The same
// byte layout, base64-encoded, is the METADATA_BLOCK_PICTURE Vorbis
// comment field, which is why the codec lives here.
type PictureBlock struct {
	MimeType    string
	Description string
	Data        []byte
	PictureType uint32
	Width       uint32
	Height      uint32
	Depth       uint32
	Colors      uint32
}

// NewPictureBlock builds a block from a picture value and the owning
// field's picture type byte. The MIME type is sniffed from the data
// when the value does not declare one, and the dimensions are probed
// from the image header when decodable.
func NewPictureBlock(value types.TagValue, pictureType uint32) *PictureBlock {
	block := &PictureBlock{
		PictureType: pictureType,
		MimeType:    value.MIMEType(),
		Description: value.Description(),
		Data:        value.Data(),
	}
	if block.MimeType == "" {
		block.MimeType = mimetype.Detect(block.Data).String()
	}
	if cfg, _, err := image.DecodeConfig(bytes.NewReader(block.Data)); err == nil {
		block.Width = uint32(cfg.Width)
		block.Height = uint32(cfg.Height)
	}
	return block
}

// Value lifts the block into a picture TagValue. The picture type byte
// is left for the caller to stash in the field's extras.
func (p *PictureBlock) Value() types.TagValue {
	return types.NewPicture(p.Data, p.MimeType, p.Description)
}

// RequiredSize returns the serialised size of the block data.
func (p *PictureBlock) RequiredSize() int64 {
	return 4 + 4 + int64(len(p.MimeType)) + 4 + int64(len(p.Description)) + 4*4 + 4 + int64(len(p.Data))
}

// Parse reads the block from r; maxSize bounds the block data.
func (p *PictureBlock) Parse(r *binary.Reader, maxSize int64) error {
	end := r.Offset() + maxSize
	cr := binary.NewChainReader(r)

	p.PictureType = binary.ReadChained[uint32](cr, "picture type")
	mimeLen := binary.ReadChained[uint32](cr, "MIME type length")
	p.MimeType = cr.String(int(mimeLen), "MIME type")
	descLen := binary.ReadChained[uint32](cr, "description length")
	p.Description = cr.String(int(descLen), "description")
	p.Width = binary.ReadChained[uint32](cr, "width")
	p.Height = binary.ReadChained[uint32](cr, "height")
	p.Depth = binary.ReadChained[uint32](cr, "color depth")
	p.Colors = binary.ReadChained[uint32](cr, "indexed colors")
	dataLen := binary.ReadChained[uint32](cr, "picture data length")
	if err := cr.Error(); err != nil {
		return fmt.Errorf("parsing picture block: %w", err)
	}
	if r.Offset()+int64(dataLen) > end {
		return fmt.Errorf("parsing picture block: data exceeds block size: %w", types.ErrTruncatedData)
	}
	data, err := r.ReadBytes(int(dataLen), "picture data")
	if err != nil {
		return fmt.Errorf("parsing picture block: %w", err)
	}
	p.Data = data
	return nil
}

// ParseBytes parses a block from a raw byte slice (the base64-decoded
// METADATA_BLOCK_PICTURE payload).
func (p *PictureBlock) ParseBytes(raw []byte) error {
	sr := binary.NewSafeReader(bytes.NewReader(raw), int64(len(raw)), "picture block")
	return p.Parse(binary.NewReader(sr, 0), int64(len(raw)))
}

// Make writes the block data (without any surrounding block header).
func (p *PictureBlock) Make(sw *binary.SafeWriter) error {
	if err := binary.Write(sw, p.PictureType); err != nil {
		return err
	}
	if err := binary.Write(sw, uint32(len(p.MimeType))); err != nil {
		return err
	}
	if err := sw.WriteString(p.MimeType); err != nil {
		return err
	}
	if err := binary.Write(sw, uint32(len(p.Description))); err != nil {
		return err
	}
	if err := sw.WriteString(p.Description); err != nil {
		return err
	}
	for _, v := range []uint32{p.Width, p.Height, p.Depth, p.Colors} {
		if err := binary.Write(sw, v); err != nil {
			return err
		}
	}
	if err := binary.Write(sw, uint32(len(p.Data))); err != nil {
		return err
	}
	return sw.WriteBytes(p.Data)
}

// Bytes serialises the block to a fresh slice.
func (p *PictureBlock) Bytes() []byte {
	var buf bytes.Buffer
	sw := binary.NewSafeWriter(&buf)
	// Writing to a bytes.Buffer cannot fail.
	_ = p.Make(sw) //nolint:errcheck
	return buf.Bytes()
}
