package id3

import (
	"fmt"

	"github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/types"
)

// MpegChannelMode specifies the channel mode of an MPEG audio frame.
type MpegChannelMode int

const (
	// ChannelModeStereo is plain stereo.
	ChannelModeStereo MpegChannelMode = iota
	// ChannelModeJointStereo is joint stereo.
	ChannelModeJointStereo
	// ChannelModeDualChannel carries two independent channels.
	ChannelModeDualChannel
	// ChannelModeSingleChannel is mono.
	ChannelModeSingleChannel
	// ChannelModeUnspecified marks an unknown mode.
	ChannelModeUnspecified
)

// Xing header flags.
const (
	// XingHasFramesField marks the frame count field as present.
	XingHasFramesField = 0x1
	// XingHasBytesField marks the byte count field as present.
	XingHasBytesField = 0x2
	// XingHasTocField marks the TOC as present.
	XingHasTocField = 0x4
	// XingHasQualityIndicator marks the quality indicator as present.
	XingHasQualityIndicator = 0x8
)

// frameSync is the 11-bit MPEG frame synchronisation pattern.
const frameSync = 0xFFE00000

// bitrateTable maps [mpeg1][layer-1][bitrate index] to kbit/s.
var bitrateTable = [2][3][15]uint32{
	{ // MPEG-1
		{0, 32, 64, 96, 128, 160, 192, 224, 256, 288, 320, 352, 384, 416, 448},
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320, 384},
		{0, 32, 40, 48, 56, 64, 80, 96, 112, 128, 160, 192, 224, 256, 320},
	},
	{ // MPEG-2/2.5
		{0, 32, 48, 56, 64, 80, 96, 112, 128, 144, 160, 176, 192, 224, 256},
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
		{0, 8, 16, 24, 32, 40, 48, 56, 64, 80, 96, 112, 128, 144, 160},
	},
}

// MpegFrame is a parsed MPEG audio frame header, including the Xing
// header of the first frame when present.
type MpegFrame struct {
	header         uint32
	xingHeader     uint64
	xingFlags      uint32
	xingFrameCount uint32
	xingBytesField uint32
	xingQuality    uint32
}

// ParseMpegFrame reads the frame header (and any Xing header) at the
// given offset.
func ParseMpegFrame(sr *binary.SafeReader, offset int64) (*MpegFrame, error) {
	const context = "parsing MPEG audio frame"
	header, err := binary.Read[uint32](sr, offset, "MPEG frame header")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", context, err)
	}
	f := &MpegFrame{header: header}
	if !f.IsValid() {
		return nil, fmt.Errorf("%s: frame sync not found: %w", context, types.ErrInvalidData)
	}

	// The Xing header sits at a fixed offset inside the first frame.
	xingOffset := offset + f.xingHeaderOffset()
	if xing, err := binary.Read[uint64](sr, xingOffset, "Xing header"); err == nil {
		f.xingHeader = xing
		if f.IsXingHeaderAvailable() {
			f.xingFlags = uint32(xing)
			r := binary.NewReader(sr, xingOffset+8)
			if f.IsXingFramefieldPresent() {
				f.xingFrameCount, _ = binary.ReadValue[uint32](r, "Xing frame count") //nolint:errcheck // Optional field
			}
			if f.IsXingBytesfieldPresent() {
				f.xingBytesField, _ = binary.ReadValue[uint32](r, "Xing bytes field") //nolint:errcheck // Optional field
			}
			if f.IsXingTocFieldPresent() {
				r.Skip(100)
			}
			if f.IsXingQualityIndicatorFieldPresent() {
				f.xingQuality, _ = binary.ReadValue[uint32](r, "Xing quality indicator") //nolint:errcheck // Optional field
			}
		}
	}
	return f, nil
}

// IsValid reports whether the header carries the sync pattern.
func (f *MpegFrame) IsValid() bool {
	return f.header&frameSync == frameSync
}

// MpegVersion returns 1.0, 2.0 or 2.5; 0 when unknown.
func (f *MpegFrame) MpegVersion() float64 {
	switch f.header & 0x180000 {
	case 0x180000:
		return 1.0
	case 0x100000:
		return 2.0
	case 0x000000:
		return 2.5
	default:
		return 0
	}
}

// Layer returns the MPEG layer (1-3); 0 when unknown.
func (f *MpegFrame) Layer() int {
	switch f.header & 0x60000 {
	case 0x60000:
		return 1
	case 0x40000:
		return 2
	case 0x20000:
		return 3
	default:
		return 0
	}
}

// Bitrate returns the bitrate in kbit/s; 0 when unknown.
func (f *MpegFrame) Bitrate() uint32 {
	version := f.MpegVersion()
	layer := f.Layer()
	if version == 0 || layer == 0 {
		return 0
	}
	row := 1
	if version == 1.0 {
		row = 0
	}
	index := f.header & 0xF000 >> 12
	if index >= 15 {
		return 0
	}
	return bitrateTable[row][layer-1][index]
}

// SamplingFrequency returns the sampling rate in Hz; 0 when unknown.
func (f *MpegFrame) SamplingFrequency() uint32 {
	var base uint32
	switch f.header & 0xC00 {
	case 0x000:
		base = 44100
	case 0x400:
		base = 48000
	case 0x800:
		base = 32000
	default:
		return 0
	}
	switch f.MpegVersion() {
	case 1.0:
		return base
	case 2.0:
		return base / 2
	case 2.5:
		return base / 4
	default:
		return 0
	}
}

// ChannelMode returns the channel mode.
func (f *MpegFrame) ChannelMode() MpegChannelMode {
	switch f.header & 0xC0 {
	case 0x00:
		return ChannelModeStereo
	case 0x40:
		return ChannelModeJointStereo
	case 0x80:
		return ChannelModeDualChannel
	case 0xC0:
		return ChannelModeSingleChannel
	default:
		return ChannelModeUnspecified
	}
}

// SampleCount returns samples per frame for the layer.
func (f *MpegFrame) SampleCount() uint32 {
	switch f.Layer() {
	case 1:
		return 384
	case 2:
		return 1152
	case 3:
		if f.MpegVersion() == 1.0 {
			return 1152
		}
		return 576
	default:
		return 0
	}
}

// xingHeaderOffset returns where the Xing header starts relative to the
// frame: 4-byte header plus the side information, whose size depends on
// version and channel mode.
func (f *MpegFrame) xingHeaderOffset() int64 {
	mono := f.ChannelMode() == ChannelModeSingleChannel
	if f.MpegVersion() == 1.0 {
		if mono {
			return 4 + 17
		}
		return 4 + 32
	}
	if mono {
		return 4 + 9
	}
	return 4 + 17
}

// IsXingHeaderAvailable reports whether a "Xing" or "Info" header was
// found.
func (f *MpegFrame) IsXingHeaderAvailable() bool {
	magic := f.xingHeader & 0xFFFFFFFF00000000
	return magic == 0x58696e6700000000 || magic == 0x496e666f00000000
}

// IsXingFramefieldPresent reports whether the frame count field exists.
func (f *MpegFrame) IsXingFramefieldPresent() bool {
	return f.IsXingHeaderAvailable() && f.xingFlags&XingHasFramesField != 0
}

// IsXingBytesfieldPresent reports whether the byte count field exists.
func (f *MpegFrame) IsXingBytesfieldPresent() bool {
	return f.IsXingHeaderAvailable() && f.xingFlags&XingHasBytesField != 0
}

// IsXingTocFieldPresent reports whether the TOC exists.
func (f *MpegFrame) IsXingTocFieldPresent() bool {
	return f.IsXingHeaderAvailable() && f.xingFlags&XingHasTocField != 0
}

// IsXingQualityIndicatorFieldPresent reports whether the quality
// indicator exists.
func (f *MpegFrame) IsXingQualityIndicatorFieldPresent() bool {
	return f.IsXingHeaderAvailable() && f.xingFlags&XingHasQualityIndicator != 0
}

// XingFrameCount returns the Xing frame count, 0 when absent.
func (f *MpegFrame) XingFrameCount() uint32 {
	return f.xingFrameCount
}

// XingBytesField returns the Xing byte count, 0 when absent.
func (f *MpegFrame) XingBytesField() uint32 {
	return f.xingBytesField
}

// XingQualityIndicator returns the Xing quality indicator, 0 when absent.
func (f *MpegFrame) XingQualityIndicator() uint32 {
	return f.xingQuality
}
