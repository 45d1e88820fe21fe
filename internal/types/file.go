// Package types provides the core data model of the tag engine.
//
// This package defines the TagValue union, the KnownField enumeration,
// the Tag capability contract, notifications, typed errors and the File
// type that carries the result of parsing one media file.
package types

import (
	"io"
)

// File represents an opened media file with parsed metadata.
//
// File provides access to every tag found in the container (a file may
// carry more than one, e.g. an MP3 with both ID3v2 and ID3v1), technical
// audio properties, and the diagnostics accumulated while parsing.
//
// The underlying reader stays open for the lifetime of the File so that
// a later Save can copy the audio payload without re-opening the file.
type File struct {
	Reader_       io.ReaderAt //nolint:revive // Underscore indicates internal/unexported semantics
	Container_    interface{} //nolint:revive // Underscore indicates internal/unexported semantics
	Path          string
	Tags          []Tag
	Notifications Diag
	Audio         AudioInfo
	Format        Format
	Size          int64
}

// Tag returns the first tag of the given type, or nil.
func (f *File) Tag(t TagType) Tag {
	for _, tag := range f.Tags {
		if tag.Type() == t {
			return tag
		}
	}
	return nil
}

// Lookup returns the value of the canonical field from the first tag
// that has it, in tag order. Returns the empty sentinel when no tag
// carries the field.
func (f *File) Lookup(field KnownField) TagValue {
	for _, tag := range f.Tags {
		if tag.HasField(field) {
			return tag.Value(field)
		}
	}
	return EmptyValue()
}
