package types

import "fmt"

// NotificationLevel grades the severity of a parse/make diagnostic.
type NotificationLevel int

const (
	// LevelInfo is purely informational.
	LevelInfo NotificationLevel = iota
	// LevelWarning marks a non-fatal anomaly; the operation succeeded.
	LevelWarning
	// LevelCritical accompanies either a best-effort partial result or
	// a returned failure.
	LevelCritical
)

// String returns the level name.
func (l NotificationLevel) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelCritical:
		return "critical"
	default:
		return "info"
	}
}

// Notification is a diagnostic produced while parsing or making a tag.
//
// Notifications are accumulated on the owning Diag and retrievable after
// the operation; they replace any kind of shared mutable logging sink.
type Notification struct {
	// Context names the operation, e.g. "parsing MP4 tag".
	Context string
	// Message is a short English description of the anomaly.
	Message string
	// Offset is the file offset the anomaly relates to, 0 if not applicable.
	Offset int64
	// Level grades the severity.
	Level NotificationLevel
}

// String returns a human-readable rendering.
func (n Notification) String() string {
	if n.Offset > 0 {
		return fmt.Sprintf("%s: %s (at offset %d): %s", n.Level, n.Context, n.Offset, n.Message)
	}
	return fmt.Sprintf("%s: %s: %s", n.Level, n.Context, n.Message)
}

// Diag collects notifications for one parse or make operation.
//
// The zero value is ready to use. Parsers take a *Diag instead of
// holding a sink themselves, so diagnostics stay with the operation
// that produced them.
type Diag []Notification

// Info appends an informational notification.
func (d *Diag) Info(context, message string) {
	*d = append(*d, Notification{Level: LevelInfo, Context: context, Message: message})
}

// Warn appends a warning.
func (d *Diag) Warn(context, message string) {
	*d = append(*d, Notification{Level: LevelWarning, Context: context, Message: message})
}

// Critical appends a critical notification.
func (d *Diag) Critical(context, message string) {
	*d = append(*d, Notification{Level: LevelCritical, Context: context, Message: message})
}

// WarnAt appends a warning tied to a file offset.
func (d *Diag) WarnAt(context, message string, offset int64) {
	*d = append(*d, Notification{Level: LevelWarning, Context: context, Message: message, Offset: offset})
}

// CriticalAt appends a critical notification tied to a file offset.
func (d *Diag) CriticalAt(context, message string, offset int64) {
	*d = append(*d, Notification{Level: LevelCritical, Context: context, Message: message, Offset: offset})
}

// HasCritical reports whether any critical notification was recorded.
func (d Diag) HasCritical() bool {
	for _, n := range d {
		if n.Level == LevelCritical {
			return true
		}
	}
	return false
}
