package flac

import (
	"io"

	"github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/registry"
	"github.com/tagmeld/tagmeld/internal/types"
)

// parser implements the registry.FormatParser interface for FLAC files
type parser struct{}

// Parse parses a FLAC file and extracts metadata
func (p *parser) Parse(r io.ReaderAt, size int64, path string) (*types.File, error) {
	sr := binary.NewSafeReader(r, size, path)

	stream := NewStream(sr, 0)
	var diag types.Diag
	if err := stream.Parse(&diag); err != nil {
		return nil, err
	}

	file := &types.File{
		Path:          path,
		Format:        types.FormatFLAC,
		Size:          size,
		Audio:         stream.Info,
		Notifications: diag,
		Container_:    stream,
	}
	if stream.Comment != nil {
		file.Tags = append(file.Tags, stream.Comment)
	}

	// FLAC is variable bitrate; estimate from payload size and duration.
	if file.Audio.Duration > 0 {
		payload := size - stream.StreamOffset
		file.Audio.Bitrate = int(float64(payload*8) / file.Audio.Duration.Seconds())
	}

	return file, nil
}

// init registers the FLAC parser and writer
func init() {
	registry.Register(types.FormatFLAC, &parser{})
	registry.RegisterWriter(types.FormatFLAC, &writer{})
}
