// Package tagmeld provides multi-format audio/video tag reading and
// rewriting.
//
// Given a media file (FLAC, MP3, MP4/M4A, Ogg Vorbis, Opus,
// Matroska/WebM, WAV), tagmeld locates the embedded metadata, parses it
// into a uniform tag model, lets you edit it, and serialises the result
// back into the original container while preserving the audio payload
// bit-for-bit.
//
// # Quick Start
//
// Reading metadata from a media file:
//
//	file, err := tagmeld.Open("song.flac")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer file.Close()
//
//	fmt.Println(file.Lookup(tagmeld.FieldArtist), "-", file.Lookup(tagmeld.FieldTitle))
//	fmt.Println("Duration:", file.Audio.Duration)
//
// Editing and writing back:
//
//	for _, tag := range file.Tags {
//		tag.SetValue(tagmeld.FieldTitle, tagmeld.NewText("New Title"))
//	}
//	if err := file.Save(); err != nil {
//		log.Fatal(err)
//	}
//
// # Supported Formats
//
//   - FLAC: metadata block chain, Vorbis comments, PICTURE blocks (read/write)
//   - MP3: ID3v1, ID3v2.2 (read), ID3v2.3/2.4 (read/write)
//   - MP4/M4A/M4B: iTunes-style ilst atoms, extended "----" atoms (read/write)
//   - Ogg Vorbis / Opus: comment packet rebuild with page re-framing (read/write)
//   - Matroska/WebM: Tag/SimpleTag hierarchy (read-only)
//   - WAV: ID3v2 in a RIFF chunk (read-only)
//
// # The Tag Model
//
// Every format lifts its native fields into the same shape: a multimap
// from a native identifier (Vorbis keyword, ID3 frame id, MP4 FourCC)
// to fields carrying a TagValue. The KnownField enumeration normalises
// the native identifiers, so
//
//	tag.Value(tagmeld.FieldGenre)
//
// answers for a TCON frame, a ©gen or gnre atom, or a GENRE comment
// alike. Raw field access stays available on the concrete tag types for
// format-specific work (multiple covers, iTunes extended atoms).
//
// # Rewriting
//
// Save never re-encodes audio. Each format's rewrite planner computes a
// minimal layout: FLAC reuses its padding block so the audio frames
// keep their offset, ID3v2 rewrites in place while the tag fits its
// region, MP4 shifts stco/co64 chunk offsets only when the moov atom
// actually changes size, and Ogg re-frames pages with fresh sequence
// numbers and checksums while preserving packet boundaries exactly.
//
// # Error Handling
//
// Damage inside one metadata block, atom or frame is isolated: the
// engine records a Notification and continues with the next sibling.
// Only container-level problems (bad signature, truncated top level)
// surface as errors, each wrapping one of the closed error kinds
// (ErrInvalidData, ErrTruncatedData, ...) for errors.Is dispatch.
//
//	if len(file.Notifications) > 0 {
//		for _, n := range file.Notifications {
//			log.Println(n)
//		}
//	}
//
// # Concurrency
//
// Parsing and making are single-threaded, synchronous and blocking; a
// File is not safe for concurrent mutation. Independent files may be
// processed in parallel — OpenMany does exactly that.
package tagmeld
