package tagmeld

// Option configures behavior when opening media files.
//
// Options use the functional options pattern for clean, extensible APIs.
//
// Example:
//
//	file, err := tagmeld.Open("song.flac",
//	    tagmeld.WithStrictParsing(),
//	)
type Option func(*openOptions)

// openOptions holds configuration for opening files.
type openOptions struct {
	strictParsing       bool // Fail on any critical notification
	ignoreNotifications bool // Suppress all notifications
}

// defaultOptions returns the default configuration.
func defaultOptions() *openOptions {
	return &openOptions{}
}

// WithStrictParsing treats any critical notification as a fatal error.
//
// By default, tagmeld continues parsing when it encounters issues like
// a truncated metadata block or an undecodable frame, returning
// best-effort data plus notifications.
//
// With strict parsing enabled, a critical notification becomes a fatal
// error.
//
// Example:
//
//	file, err := tagmeld.Open("song.flac", tagmeld.WithStrictParsing())
//	// err != nil if any critical issue is encountered
func WithStrictParsing() Option {
	return func(o *openOptions) {
		o.strictParsing = true
	}
}

// WithIgnoreNotifications suppresses all notifications.
//
// By default, notifications about non-fatal issues (invalid encodings,
// skipped frames, etc.) are collected in File.Notifications. This
// option discards them.
//
// Example:
//
//	file, err := tagmeld.Open("song.flac", tagmeld.WithIgnoreNotifications())
//	// file.Notifications will always be empty
func WithIgnoreNotifications() Option {
	return func(o *openOptions) {
		o.ignoreNotifications = true
	}
}
