package tagmeld

import (
	"context"
	"fmt"
	"io"
	"os"
	"runtime"

	"golang.org/x/sync/errgroup"

	"github.com/tagmeld/tagmeld/internal/registry"
	"github.com/tagmeld/tagmeld/internal/types"
)

// File represents an opened media file with parsed metadata.
//
// File gives access to every tag found in the container (a file may
// carry more than one, e.g. an MP3 with both ID3v2 and ID3v1), the
// technical audio properties, and the notifications accumulated while
// parsing.
//
// Always call Close() when done to release file resources:
//
//	file, err := tagmeld.Open("song.flac")
//	if err != nil {
//		return err
//	}
//	defer file.Close()
type File struct {
	types.File
}

// Open opens a media file and reads its metadata.
//
// Supported formats: FLAC, MP3, MP4/M4A/M4B, Ogg Vorbis, Opus,
// Matroska/WebM, WAV.
//
// Audio payload is never read into memory; only the metadata regions
// are parsed. If the file has recoverable damage, Open returns partial
// data with notifications instead of an error — check
// File.Notifications for details.
//
// Example:
//
//	file, err := tagmeld.Open("song.flac")
//	if err != nil {
//		return err
//	}
//	defer file.Close()
//	fmt.Println(file.Lookup(tagmeld.FieldTitle))
func Open(path string, opts ...Option) (*File, error) {
	options := defaultOptions()
	for _, opt := range opts {
		opt(options)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	stat, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat file: %w", err)
	}

	file, err := openReader(f, stat.Size(), path, options)
	if err != nil {
		f.Close()
		return nil, err
	}

	// Keep the file handle; Save copies the audio payload from it.
	file.Reader_ = f
	return file, nil
}

// openReader opens from an io.ReaderAt (internal, for testing).
func openReader(r io.ReaderAt, size int64, path string, options *openOptions) (*File, error) {
	format, err := DetectFormat(r, size, path)
	if err != nil {
		return nil, err
	}

	parser := registry.Get(format)
	if parser == nil {
		return nil, &UnsupportedFormatError{
			Path:   path,
			Reason: fmt.Sprintf("no parser available for format %s", format),
		}
	}

	parsed, err := parser.Parse(r, size, path)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", format, err)
	}

	parsed.Path = path
	parsed.Format = format
	parsed.Size = size
	parsed.Reader_ = r

	if options.strictParsing {
		for _, n := range parsed.Notifications {
			if n.Level == LevelCritical {
				return nil, fmt.Errorf("strict parsing failed: %s", n.Message)
			}
		}
	}
	if options.ignoreNotifications {
		parsed.Notifications = nil
	}

	return &File{File: *parsed}, nil
}

// Close releases resources held by the file.
//
// After Close is called, the File should not be used.
func (f *File) Close() error {
	if closer, ok := f.Reader_.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}

// Covers returns every cover picture carried by the file's tags, in
// tag order.
func (f *File) Covers() []TagValue {
	var covers []TagValue
	for _, tag := range f.Tags {
		if v := tag.Value(FieldCover); !v.IsEmpty() {
			covers = append(covers, v)
		}
	}
	return covers
}

// OpenContext opens a file with context support for cancellation.
//
// The context is checked before parsing starts; parsing itself is a
// short synchronous operation against local metadata regions.
//
//	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
//	defer cancel()
//	file, err := tagmeld.OpenContext(ctx, "song.flac")
func OpenContext(ctx context.Context, path string, opts ...Option) (*File, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return Open(path, opts...)
}

// OpenMany opens multiple files concurrently.
//
// Each file gets its own reader and tag tree, so parsing them in
// parallel is safe; concurrency is capped at the CPU count. The first
// error cancels the remaining work and closes the already-opened
// files.
//
//	files, err := tagmeld.OpenMany(ctx, paths...)
func OpenMany(ctx context.Context, paths ...string) ([]*File, error) {
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	files := make([]*File, len(paths))
	for i, path := range paths {
		g.Go(func() error {
			file, err := OpenContext(ctx, path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			files[i] = file
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, f := range files {
			if f != nil {
				f.Close()
			}
		}
		return nil, err
	}
	return files, nil
}
