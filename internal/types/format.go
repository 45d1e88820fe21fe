package types

import (
	"io"
)

// Format represents the detected container format.
type Format int

const (
	// FormatUnknown represents an unknown or unsupported format.
	FormatUnknown Format = iota
	// FormatFLAC represents raw FLAC streams.
	FormatFLAC
	// FormatMP3 represents MPEG audio files.
	FormatMP3
	// FormatMP4 represents ISO-BMFF (MP4/M4A/M4B) files.
	FormatMP4
	// FormatOgg represents Ogg Vorbis files.
	FormatOgg
	// FormatOpus represents Ogg Opus files.
	FormatOpus
	// FormatMatroska represents Matroska and WebM files.
	FormatMatroska
	// FormatWAV represents RIFF/WAVE files.
	FormatWAV
	// FormatAIFF represents AIFF files.
	FormatAIFF
)

// String returns the format name.
func (f Format) String() string {
	switch f {
	case FormatFLAC:
		return "FLAC"
	case FormatMP3:
		return "MP3"
	case FormatMP4:
		return "MP4"
	case FormatOgg:
		return "Ogg Vorbis"
	case FormatOpus:
		return "Opus"
	case FormatMatroska:
		return "Matroska"
	case FormatWAV:
		return "WAV"
	case FormatAIFF:
		return "AIFF"
	default:
		return "Unknown"
	}
}

// Extensions returns common file extensions for this format.
func (f Format) Extensions() []string {
	switch f {
	case FormatFLAC:
		return []string{".flac"}
	case FormatMP3:
		return []string{".mp3"}
	case FormatMP4:
		return []string{".m4a", ".m4b", ".mp4", ".m4p"}
	case FormatOgg:
		return []string{".ogg", ".oga"}
	case FormatOpus:
		return []string{".opus"}
	case FormatMatroska:
		return []string{".mkv", ".mka", ".webm"}
	case FormatWAV:
		return []string{".wav"}
	case FormatAIFF:
		return []string{".aiff", ".aif"}
	default:
		return nil
	}
}

// DetectFormat determines the container format by examining magic bytes.
//
// Supported: FLAC, MP3 (ID3 tag or bare frame sync), MP4/M4A/M4B,
// Ogg Vorbis, Opus, Matroska/WebM, WAV, AIFF. Detection reads only file
// signatures; it does not validate the whole structure.
//
// The reader is used directly rather than through a SafeReader so the
// binary package can depend on types for its error values.
func DetectFormat(r io.ReaderAt, size int64, path string) (Format, error) { //nolint:gocyclo // Format detection requires checking multiple magic byte patterns
	if size < 4 {
		return FormatUnknown, &UnsupportedFormatError{
			Path:   path,
			Reason: "file too small",
		}
	}

	magic := make([]byte, 4)
	if _, err := r.ReadAt(magic, 0); err != nil {
		return FormatUnknown, &UnsupportedFormatError{
			Path:   path,
			Reason: "failed to read file header",
		}
	}

	// FLAC (fLaC = 0x664C6143)
	if string(magic) == "fLaC" {
		return FormatFLAC, nil
	}

	// ID3v2 tag (MP3 or tagged WAV payload; bare ID3 means MP3)
	if string(magic[:3]) == "ID3" {
		return FormatMP3, nil
	}

	// MP3 frame sync (11 set bits) for files without an ID3 tag
	if magic[0] == 0xFF && (magic[1]&0xE0) == 0xE0 {
		return FormatMP3, nil
	}

	// EBML magic for Matroska/WebM
	if magic[0] == 0x1A && magic[1] == 0x45 && magic[2] == 0xDF && magic[3] == 0xA3 {
		return FormatMatroska, nil
	}

	// Ogg (OggS) - Vorbis or Opus, decided by the first packet's magic
	if string(magic) == "OggS" { //nolint:nestif // Nested structure is clearer than extracting to separate function
		// Ogg page header: 27 bytes fixed + segment table (variable).
		// Minimum needed: 27 (header) + 1 (segment table) + 8 (OpusHead).
		if size >= 36 {
			segCount := make([]byte, 1)
			if _, err := r.ReadAt(segCount, 26); err == nil {
				packetOffset := int64(27 + int(segCount[0]))
				if packetOffset+8 <= size {
					codecMagic := make([]byte, 8)
					if _, err := r.ReadAt(codecMagic, packetOffset); err == nil {
						if string(codecMagic) == "OpusHead" {
							return FormatOpus, nil
						}
					}
				}
			}
		}
		return FormatOgg, nil
	}

	// RIFF/WAV (RIFF....WAVE)
	if string(magic) == "RIFF" && size >= 12 {
		waveTag := make([]byte, 4)
		if _, err := r.ReadAt(waveTag, 8); err == nil {
			if string(waveTag) == "WAVE" {
				return FormatWAV, nil
			}
		}
	}

	// AIFF (FORM....AIFF)
	if string(magic) == "FORM" && size >= 12 {
		aiffTag := make([]byte, 4)
		if _, err := r.ReadAt(aiffTag, 8); err == nil {
			if string(aiffTag) == "AIFF" || string(aiffTag) == "AIFC" {
				return FormatAIFF, nil
			}
		}
	}

	// ISO-BMFF: any file starting with an ftyp atom
	if size >= 12 {
		ftyp := make([]byte, 4)
		if _, err := r.ReadAt(ftyp, 4); err == nil && string(ftyp) == "ftyp" {
			return FormatMP4, nil
		}
	}

	return FormatUnknown, &UnsupportedFormatError{
		Path:   path,
		Reason: "unsupported file format",
	}
}
