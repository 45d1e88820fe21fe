package id3

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/registry"
	"github.com/tagmeld/tagmeld/internal/types"
)

// Layout records the MP3 file regions the rewrite planner works with.
type Layout struct {
	// TagRegionSize is the size of the leading ID3v2 tag including its
	// padding; 0 when the file has no ID3v2 tag.
	TagRegionSize int64
	// AudioStart is the offset of the first audio frame.
	AudioStart int64
	// AudioEnd is the offset just past the audio (before any ID3v1 tag).
	AudioEnd int64
}

// parser implements registry.FormatParser for MPEG audio files.
type parser struct{}

func (p *parser) Parse(r io.ReaderAt, size int64, path string) (*types.File, error) {
	const context = "parsing MP3 file"
	sr := binary.NewSafeReader(r, size, path)
	var diag types.Diag

	file := &types.File{
		Path:   path,
		Format: types.FormatMP3,
		Size:   size,
	}
	layout := &Layout{AudioEnd: size}
	file.Container_ = layout

	// Leading ID3v2 tag.
	v2, totalSize, err := ParseV2(sr, 0, &diag)
	switch {
	case err == nil:
		file.Tags = append(file.Tags, v2)
		layout.TagRegionSize = totalSize
		layout.AudioStart = totalSize
	case errors.Is(err, types.ErrNoDataFound):
		// No tag is legal.
	case errors.Is(err, types.ErrVersionNotSupported):
		layout.TagRegionSize = totalSize
		layout.AudioStart = totalSize
	default:
		diag.Critical(context, fmt.Sprintf("ID3v2 tag could not be parsed: %v", err))
	}

	// Trailing ID3v1 tag.
	if v1, err := ParseV1(sr); err == nil {
		file.Tags = append(file.Tags, v1)
		layout.AudioEnd = size - v1Size
	}

	p.parseAudio(sr, file, layout, &diag)
	file.Notifications = diag
	return file, nil
}

// parseAudio locates the first MPEG frame and derives the technical
// info, preferring the Xing fields when present.
func (p *parser) parseAudio(sr *binary.SafeReader, file *types.File, layout *Layout, diag *types.Diag) {
	const context = "parsing MP3 file"

	offset, frame := p.findFirstFrame(sr, layout)
	if frame == nil {
		diag.Critical(context, "no MPEG frame sync found")
		return
	}
	layout.AudioStart = offset

	file.Audio.Container = "MPEG"
	file.Audio.Codec = fmt.Sprintf("MPEG-%g Layer %d", frame.MpegVersion(), frame.Layer())
	file.Audio.SampleRate = int(frame.SamplingFrequency())
	if frame.ChannelMode() == ChannelModeSingleChannel {
		file.Audio.Channels = 1
	} else {
		file.Audio.Channels = 2
	}

	audioBytes := layout.AudioEnd - layout.AudioStart
	if frame.IsXingBytesfieldPresent() {
		audioBytes = int64(frame.XingBytesField())
	}

	rate := frame.SamplingFrequency()
	switch {
	case frame.IsXingFramefieldPresent() && rate > 0:
		samples := uint64(frame.XingFrameCount()) * uint64(frame.SampleCount())
		file.Audio.TotalSamples = samples
		file.Audio.Duration = time.Duration(float64(samples) / float64(rate) * float64(time.Second))
		if file.Audio.Duration > 0 {
			file.Audio.Bitrate = int(float64(audioBytes*8) / file.Audio.Duration.Seconds())
		}
	case frame.Bitrate() > 0:
		file.Audio.Bitrate = int(frame.Bitrate()) * 1000
		file.Audio.Duration = time.Duration(float64(audioBytes*8) / float64(file.Audio.Bitrate) * float64(time.Second))
	}
}

// findFirstFrame scans forward from the tag region for the frame sync,
// tolerating stray padding bytes before the audio.
func (p *parser) findFirstFrame(sr *binary.SafeReader, layout *Layout) (int64, *MpegFrame) {
	const scanWindow = 16 * 1024
	offset := layout.AudioStart
	end := layout.AudioEnd
	if end > offset+scanWindow {
		end = offset + scanWindow
	}
	for ; offset+4 <= end; offset++ {
		frame, err := ParseMpegFrame(sr, offset)
		if err != nil {
			continue
		}
		if frame.Layer() == 0 || frame.SamplingFrequency() == 0 {
			continue
		}
		return offset, frame
	}
	return layout.AudioStart, nil
}

// writer implements registry.FormatWriter for MPEG audio files.
//
// The new ID3v2 tag is written in place when it fits into the existing
// tag region (padding absorbs the difference, so the audio keeps its
// offset); otherwise the audio is shifted and the region re-sized with
// fresh padding.
type writer struct{}

func (w *writer) Write(out io.Writer, file *types.File, original io.ReaderAt, originalSize int64, padding int64) error {
	const context = "making MP3 file"
	layout, ok := file.Container_.(*Layout)
	if !ok {
		return fmt.Errorf("%s: file was not parsed as MP3: %w", context, types.ErrInvalidData)
	}

	sw := binary.NewSafeWriter(out)
	sr := binary.NewSafeReader(original, originalSize, file.Path)
	var diag types.Diag

	if v2, ok := file.Tag(types.TagId3v2).(*V2Tag); ok {
		required, err := v2.RequiredSize()
		if err != nil {
			return err
		}
		tagPadding := padding
		if required <= layout.AudioStart {
			// In-place window: fill the existing region exactly.
			tagPadding = layout.AudioStart - required
		}
		if err := v2.Make(sw, tagPadding, &diag); err != nil {
			return err
		}
		file.Notifications = append(file.Notifications, diag...)
	}

	if err := sw.CopyRange(sr, layout.AudioStart, layout.AudioEnd-layout.AudioStart, "audio frames"); err != nil {
		return err
	}

	if v1, ok := file.Tag(types.TagId3v1).(*V1Tag); ok {
		return v1.Make(sw)
	}
	return nil
}

func init() {
	registry.Register(types.FormatMP3, &parser{})
	registry.RegisterWriter(types.FormatMP3, &writer{})
}
