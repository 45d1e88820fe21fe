package tagmeld

// SaveOption configures behavior when saving media files.
//
// Options use the functional options pattern for clean, extensible APIs.
//
// Example:
//
//	err := file.Save(
//	    tagmeld.WithBackup(".bak"),
//	    tagmeld.WithValidation(),
//	)
type SaveOption func(*saveOptions)

// defaultPadding is the reserved space a rewrite adds when the tag no
// longer fits its existing region, so the next edit can happen without
// shifting the audio again.
const defaultPadding = 4096

// saveOptions holds configuration for saving files.
type saveOptions struct {
	backupSuffix    string // Suffix for backup file (e.g., ".bak")
	padding         int64  // Preferred reserved space after the tag
	validate        bool   // Re-read after write to verify
	preserveModTime bool   // Keep original modification time
}

// defaultSaveOptions returns the default configuration for saving.
func defaultSaveOptions() *saveOptions {
	return &saveOptions{
		padding: defaultPadding,
	}
}

// WithBackup creates a backup of the original file before saving.
//
// The backup file will have the specified suffix appended to the original
// filename. For example, WithBackup(".bak") will create "song.mp3.bak"
// before modifying "song.mp3".
//
// If the backup file already exists, it will be overwritten.
//
// Example:
//
//	err := file.Save(tagmeld.WithBackup(".bak"))
//	// Original file preserved as song.mp3.bak
func WithBackup(suffix string) SaveOption {
	return func(o *saveOptions) {
		o.backupSuffix = suffix
	}
}

// WithValidation re-reads the file after writing to verify integrity.
//
// After saving, the file is re-opened and parsed to ensure the written
// data can be read back correctly. This adds overhead but provides
// confidence that the save operation succeeded.
//
// Example:
//
//	err := file.Save(tagmeld.WithValidation())
//	// File is re-read after save to verify
func WithValidation() SaveOption {
	return func(o *saveOptions) {
		o.validate = true
	}
}

// WithPreserveModTime keeps the original file modification time.
//
// By default, saving updates the file's modification time to the current
// time. This option preserves the original modification time.
//
// Example:
//
//	err := file.Save(tagmeld.WithPreserveModTime())
//	// File modification time unchanged
func WithPreserveModTime() SaveOption {
	return func(o *saveOptions) {
		o.preserveModTime = true
	}
}

// WithPadding sets the preferred reserved space written after a tag
// when its region has to grow. Larger padding makes future in-place
// rewrites more likely; 0 disables reserved space.
//
// Example:
//
//	err := file.Save(tagmeld.WithPadding(16 * 1024))
func WithPadding(bytes int64) SaveOption {
	return func(o *saveOptions) {
		if bytes >= 0 {
			o.padding = bytes
		}
	}
}
