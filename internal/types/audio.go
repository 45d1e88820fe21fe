package types

import (
	"fmt"
	"time"
)

// AudioInfo represents technical audio properties.
//
// AudioInfo provides format-agnostic access to audio technical metadata
// such as duration, sample rate, bit depth, and codec information. The
// engine never decodes audio; everything here comes from container
// headers (STREAMINFO, mvhd, MPEG frame headers, Ogg granule positions).
type AudioInfo struct {
	Codec        string
	Container    string
	Duration     time.Duration
	TotalSamples uint64
	SampleRate   int
	BitDepth     int
	Channels     int
	Bitrate      int
	Lossless     bool
}

// String returns a human-readable representation of the audio info.
// Example output: "FLAC 44.1kHz 16-bit stereo lossless".
func (a AudioInfo) String() string {
	parts := []string{a.Codec}
	if a.SampleRate > 0 {
		parts = append(parts, fmt.Sprintf("%.1fkHz", float64(a.SampleRate)/1000))
	}
	if a.BitDepth > 0 {
		parts = append(parts, fmt.Sprintf("%d-bit", a.BitDepth))
	}
	if ch := channelDescription(a.Channels); ch != "" {
		parts = append(parts, ch)
	}
	if a.Lossless {
		parts = append(parts, "lossless")
	} else if a.Bitrate > 0 {
		parts = append(parts, fmt.Sprintf("%dkbps", a.Bitrate/1000))
	}
	return join(parts, " ")
}

// channelDescription returns a human-readable channel description.
func channelDescription(channels int) string {
	switch channels {
	case 0:
		return ""
	case 1:
		return "mono"
	case 2:
		return "stereo"
	case 4:
		return "quad"
	case 6:
		return "5.1"
	case 8:
		return "7.1"
	default:
		return fmt.Sprintf("%dch", channels)
	}
}

// join concatenates strings with a separator, skipping empty strings.
func join(parts []string, sep string) string {
	var result string
	for i, part := range parts {
		if part == "" {
			continue
		}
		if i > 0 && result != "" {
			result += sep
		}
		result += part
	}
	return result
}

// IsHighRes returns true if the audio is high-resolution
// (sample rate > 48kHz or bit depth > 16).
func (a AudioInfo) IsHighRes() bool {
	return a.SampleRate > 48000 || a.BitDepth > 16
}
