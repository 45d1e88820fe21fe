// Package tagbase provides the generic field-map storage concrete tag
// formats compose.
//
// The engine's tag formats all boil down to a multimap from a native
// identifier (Vorbis keyword, ID3 frame id, MP4 FourCC, Matroska tag
// name) to fields carrying a TagValue plus format-specific attributes.
// FieldMap implements that multimap once, parameterised by identifier
// type and comparer; concrete tags add only the identifier↔KnownField
// translation and format-specific aliasing on top.
package tagbase

import (
	"iter"
	"strings"

	"github.com/tagmeld/tagmeld/internal/types"
)

// TagField is the access contract a format's field type gives the map.
type TagField interface {
	// TagValue returns the field's value.
	TagValue() types.TagValue
	// SetTagValue replaces the field's value.
	SetTagValue(types.TagValue)
}

// Comparer decides identifier equality for one format.
type Comparer[I any] func(a, b I) bool

// EqualExact compares identifiers with ==. Used for ID3 frame ids and
// MP4 FourCCs.
func EqualExact[I comparable](a, b I) bool {
	return a == b
}

// EqualFoldASCII compares string identifiers case-insensitively, the
// way Vorbis comment keys are matched.
func EqualFoldASCII(a, b string) bool {
	return strings.EqualFold(a, b)
}

type entry[I any, F TagField] struct {
	id    I
	field F
}

// FieldMap is an ordered multimap from identifier to field.
//
// Insertion order is preserved across the whole map, so making a tag
// reproduces the field order it was parsed with. A key may map to
// multiple fields (multiple covers, multiple COMM frames).
//
// The zero value of FieldMap is not usable; construct with New.
type FieldMap[I any, F TagField] struct {
	entries []entry[I, F]
	eq      Comparer[I]
}

// New creates a FieldMap using the given identifier comparer.
func New[I any, F TagField](eq Comparer[I]) FieldMap[I, F] {
	return FieldMap[I, F]{eq: eq}
}

// Len returns the total number of fields.
func (m *FieldMap[I, F]) Len() int {
	return len(m.entries)
}

// Count returns how many fields the identifier maps to.
func (m *FieldMap[I, F]) Count(id I) int {
	n := 0
	for i := range m.entries {
		if m.eq(m.entries[i].id, id) {
			n++
		}
	}
	return n
}

// First returns the first field matching the identifier.
func (m *FieldMap[I, F]) First(id I) (F, bool) {
	for i := range m.entries {
		if m.eq(m.entries[i].id, id) {
			return m.entries[i].field, true
		}
	}
	var zero F
	return zero, false
}

// All returns every field matching the identifier, in insertion order.
func (m *FieldMap[I, F]) All(id I) []F {
	var out []F
	for i := range m.entries {
		if m.eq(m.entries[i].id, id) {
			out = append(out, m.entries[i].field)
		}
	}
	return out
}

// Insert appends a field under the identifier, after any existing
// fields with the same identifier.
func (m *FieldMap[I, F]) Insert(id I, field F) {
	m.entries = append(m.entries, entry[I, F]{id: id, field: field})
}

// Erase removes every field matching the identifier and returns how
// many were removed.
func (m *FieldMap[I, F]) Erase(id I) int {
	kept := m.entries[:0]
	removed := 0
	for i := range m.entries {
		if m.eq(m.entries[i].id, id) {
			removed++
			continue
		}
		kept = append(kept, m.entries[i])
	}
	m.entries = kept
	return removed
}

// Fields iterates over all (identifier, field) pairs in insertion order.
func (m *FieldMap[I, F]) Fields() iter.Seq2[I, F] {
	return func(yield func(I, F) bool) {
		for i := range m.entries {
			if !yield(m.entries[i].id, m.entries[i].field) {
				return
			}
		}
	}
}

// Value returns the value of the first field matching the identifier,
// or the shared empty sentinel. This is the generic single-id case of
// the tag contract; formats with aliasing call it per alias.
func (m *FieldMap[I, F]) Value(id I) types.TagValue {
	if f, ok := m.First(id); ok {
		return f.TagValue()
	}
	return types.EmptyValue()
}

// SetValue replaces the value of the first field matching the
// identifier, or inserts a new field built by newField. Extras on an
// existing field are preserved.
func (m *FieldMap[I, F]) SetValue(id I, value types.TagValue, newField func(I, types.TagValue) F) {
	for i := range m.entries {
		if m.eq(m.entries[i].id, id) {
			m.entries[i].field.SetTagValue(value)
			return
		}
	}
	m.Insert(id, newField(id, value))
}

// HasField reports whether a non-empty field exists for the identifier.
func (m *FieldMap[I, F]) HasField(id I) bool {
	if f, ok := m.First(id); ok {
		return !f.TagValue().IsEmpty()
	}
	return false
}
