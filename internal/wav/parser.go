// Package wav reads metadata from RIFF/WAVE files. Tags travel in an
// "id3 " chunk holding a plain ID3v2 tag; technical info comes from
// the fmt chunk. WAV files are read-only.
package wav

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/go-audio/riff"

	binutil "github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/id3"
	"github.com/tagmeld/tagmeld/internal/registry"
	"github.com/tagmeld/tagmeld/internal/types"
)

// id3ChunkIDs are the chunk ids ID3 tags are stored under; both
// spellings occur in the wild.
var id3ChunkIDs = [][4]byte{
	{'i', 'd', '3', ' '},
	{'I', 'D', '3', ' '},
}

// parser implements registry.FormatParser for WAV files.
type parser struct{}

func (p *parser) Parse(r io.ReaderAt, size int64, path string) (*types.File, error) {
	const context = "parsing WAV file"
	var diag types.Diag

	file := &types.File{
		Path:   path,
		Format: types.FormatWAV,
		Size:   size,
	}
	file.Audio.Container = "RIFF/WAVE"
	file.Audio.Codec = "PCM"
	file.Audio.Lossless = true

	rp := riff.New(io.NewSectionReader(r, 0, size))
	if err := rp.ParseHeaders(); err != nil {
		return nil, &types.CorruptedFileError{Path: path, Reason: "invalid RIFF headers"}
	}
	if rp.Format != riff.WavFormatID {
		return nil, &types.CorruptedFileError{Path: path, Reason: "RIFF form type is not WAVE"}
	}

	var dataSize int64
	for {
		chunk, err := rp.NextChunk()
		if err != nil {
			break
		}
		switch {
		case chunk.ID == riff.FmtID:
			if err := chunk.DecodeWavHeader(rp); err != nil {
				diag.Warn(context, fmt.Sprintf("fmt chunk could not be decoded: %v", err))
			} else {
				file.Audio.Channels = int(rp.NumChannels)
				file.Audio.SampleRate = int(rp.SampleRate)
				file.Audio.BitDepth = int(rp.BitsPerSample)
				file.Audio.Bitrate = int(rp.AvgBytesPerSec) * 8
			}
		case isID3Chunk(chunk.ID):
			raw := make([]byte, chunk.Size)
			if _, err := io.ReadFull(chunk, raw); err != nil {
				diag.Warn(context, fmt.Sprintf("id3 chunk is truncated: %v", err))
				break
			}
			sr := binutil.NewSafeReader(bytes.NewReader(raw), int64(len(raw)), path)
			tag, _, err := id3.ParseV2(sr, 0, &diag)
			if err != nil {
				diag.Critical(context, fmt.Sprintf("id3 chunk could not be parsed: %v", err))
				break
			}
			file.Tags = append(file.Tags, tag)
		case chunk.ID == riff.DataFormatID:
			dataSize = int64(chunk.Size)
		}
		chunk.Done()
		// Chunks are word-aligned: an odd-sized chunk is followed by a
		// pad byte that its size does not count.
		if chunk.Size%2 == 1 {
			if _, err := io.CopyN(io.Discard, chunk.R, 1); err != nil {
				break
			}
		}
	}

	if file.Audio.Bitrate > 0 && dataSize > 0 {
		file.Audio.Duration = time.Duration(float64(dataSize*8) / float64(file.Audio.Bitrate) * float64(time.Second))
	}

	file.Notifications = diag
	return file, nil
}

func isID3Chunk(id [4]byte) bool {
	for _, candidate := range id3ChunkIDs {
		if id == candidate {
			return true
		}
	}
	return false
}

func init() {
	registry.Register(types.FormatWAV, &parser{})
}
