package tagmeld

// Format packages register their parsers and rewrite planners in their
// init functions; importing them here makes Open work out of the box.
import (
	_ "github.com/tagmeld/tagmeld/internal/flac"
	_ "github.com/tagmeld/tagmeld/internal/id3"
	_ "github.com/tagmeld/tagmeld/internal/matroska"
	_ "github.com/tagmeld/tagmeld/internal/mp4"
	_ "github.com/tagmeld/tagmeld/internal/ogg"
	_ "github.com/tagmeld/tagmeld/internal/wav"
)
