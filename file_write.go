package tagmeld

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/tagmeld/tagmeld/internal/registry"
	"github.com/tagmeld/tagmeld/internal/types"
)

// Save writes modified metadata back to the original file.
//
// This is an atomic operation: writes to a temporary file first, then renames
// to the original path. If any step fails, the original file remains unchanged.
//
// The format's rewrite planner decides the layout: padding is reused
// where possible so the audio payload keeps its offset, and the audio
// bytes are always copied verbatim from the original.
//
// Options can be provided to customize save behavior:
//
//	err := file.Save(
//	    tagmeld.WithBackup(".bak"),
//	    tagmeld.WithValidation(),
//	)
//
// Returns UnsupportedWriteError for read-only formats (Matroska, WAV).
func (f *File) Save(opts ...SaveOption) error {
	return f.SaveAs(f.Path, opts...)
}

// SaveAs writes the file to a new location.
//
// This is an atomic operation: writes to a temporary file first, then renames
// to the output path. If any step fails, any partially written data is cleaned up.
//
// Options can be provided to customize save behavior:
//
//	err := file.SaveAs("/new/path/song.m4a",
//	    tagmeld.WithBackup(".bak"),
//	    tagmeld.WithValidation(),
//	)
//
// Returns UnsupportedWriteError for read-only formats (Matroska, WAV).
func (f *File) SaveAs(outputPath string, opts ...SaveOption) error { //nolint:gocyclo // Atomic file operations require sequential steps
	options := defaultSaveOptions()
	for _, opt := range opts {
		opt(options)
	}

	writer := registry.GetWriter(f.Format)
	if writer == nil {
		return &types.UnsupportedWriteError{
			Format: f.Format,
			Reason: "no writer registered",
		}
	}

	if f.Reader_ == nil {
		return fmt.Errorf("file not open: reader is nil")
	}

	// Original file's mod time, if it is to be preserved.
	var origInfo os.FileInfo
	if options.preserveModTime {
		info, err := os.Stat(f.Path)
		if err == nil {
			origInfo = info
		}
	}

	// Create temp file in same directory as output (for atomic rename).
	outputDir := filepath.Dir(outputPath)
	tempFile, err := os.CreateTemp(outputDir, ".tagmeld-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	success := false
	defer func() {
		if !success {
			_ = tempFile.Close()    //nolint:errcheck // Best effort cleanup
			_ = os.Remove(tempPath) //nolint:errcheck // Best effort cleanup
		}
	}()

	if err := writer.Write(tempFile, &f.File, f.Reader_, f.Size, options.padding); err != nil {
		return fmt.Errorf("write: %w", err)
	}

	if err := tempFile.Sync(); err != nil {
		return fmt.Errorf("sync temp file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	// Backup the previous output before replacing it.
	if options.backupSuffix != "" {
		backupPath := outputPath + options.backupSuffix
		if _, err := os.Stat(outputPath); err == nil {
			if err := os.Rename(outputPath, backupPath); err != nil {
				return fmt.Errorf("create backup: %w", err)
			}
		}
	}

	if err := os.Rename(tempPath, outputPath); err != nil {
		return fmt.Errorf("rename temp to output: %w", err)
	}
	success = true

	if options.preserveModTime && origInfo != nil {
		_ = os.Chtimes(outputPath, origInfo.ModTime(), origInfo.ModTime()) //nolint:errcheck // Non-fatal: file was written successfully
	}

	if options.validate {
		if err := f.validateWrittenFile(outputPath); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
	}

	return nil
}

// validateWrittenFile re-opens the file and compares key metadata fields.
func (f *File) validateWrittenFile(path string) error {
	written, err := Open(path)
	if err != nil {
		return fmt.Errorf("re-open: %w", err)
	}
	defer written.Close() //nolint:errcheck // Best effort close

	for _, field := range []KnownField{FieldTitle, FieldArtist, FieldAlbum} {
		got := written.Lookup(field).String()
		want := f.Lookup(field).String()
		if got != want {
			return fmt.Errorf("%s mismatch: got %q, want %q", field, got, want)
		}
	}
	return nil
}
