// Package mp4 implements ISO-BMFF atom traversal and the iTunes-style
// ilst tag.
package mp4

import (
	"fmt"

	"github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/types"
)

// AtomRef is an index handle into a Tree's arena. Handles stay valid
// for the lifetime of the tree, which avoids pointer cycles between
// parents and children and makes re-entry cheap.
type AtomRef int32

// NoAtom is the null handle.
const NoAtom AtomRef = -1

// Atom describes one ISO-BMFF box. Children are discovered lazily.
type Atom struct {
	Offset     int64
	TotalSize  uint64
	HeaderSize int64
	ID         uint32
	parent     AtomRef
	firstChild AtomRef
	next       AtomRef
	scanned    bool
}

// DataOffset returns the absolute offset of the atom payload.
func (a *Atom) DataOffset() int64 {
	return a.Offset + a.HeaderSize
}

// DataSize returns the payload size.
func (a *Atom) DataSize() int64 {
	if a.TotalSize < uint64(a.HeaderSize) {
		return 0
	}
	return int64(a.TotalSize) - a.HeaderSize
}

// IsContainer reports whether the atom type is a structural container
// whose payload is a sequence of child atoms.
func (a *Atom) IsContainer() bool {
	return containerAtoms[a.ID]
}

// Tree is an arena of atom descriptors built top-down on demand.
type Tree struct {
	sr    *binary.SafeReader
	atoms []Atom
	roots []AtomRef
}

// NewTree creates a tree over the given reader. Top-level atoms are
// scanned immediately; children on demand.
func NewTree(sr *binary.SafeReader) (*Tree, error) {
	t := &Tree{sr: sr}
	refs, err := t.scanRange(0, sr.Size(), NoAtom)
	if err != nil {
		return nil, err
	}
	t.roots = refs
	return t, nil
}

// Atom resolves a handle.
func (t *Tree) Atom(ref AtomRef) *Atom {
	return &t.atoms[ref]
}

// Roots returns the top-level atoms.
func (t *Tree) Roots() []AtomRef {
	return t.roots
}

// readHeader reads one atom header at offset; end bounds the parent.
func (t *Tree) readHeader(offset, end int64, parent AtomRef) (Atom, error) {
	size32, err := binary.Read[uint32](t.sr, offset, "atom size")
	if err != nil {
		return Atom{}, err
	}
	id, err := binary.Read[uint32](t.sr, offset+4, "atom id")
	if err != nil {
		return Atom{}, err
	}

	atom := Atom{
		Offset:     offset,
		ID:         id,
		HeaderSize: 8,
		parent:     parent,
		firstChild: NoAtom,
		next:       NoAtom,
	}

	switch size32 {
	case 0:
		// Size 0 means "to the end of the enclosing scope".
		atom.TotalSize = uint64(end - offset)
	case 1:
		large, err := binary.Read[uint64](t.sr, offset+8, "large atom size")
		if err != nil {
			return Atom{}, err
		}
		atom.TotalSize = large
		atom.HeaderSize = 16
	default:
		atom.TotalSize = uint64(size32)
	}

	if atom.TotalSize < uint64(atom.HeaderSize) {
		return Atom{}, &types.CorruptedFileError{
			Path:   t.sr.Path(),
			Offset: offset,
			Reason: fmt.Sprintf("atom %q has impossible size %d", FourCCString(id), atom.TotalSize),
		}
	}
	if offset+int64(atom.TotalSize) > end {
		return Atom{}, &types.CorruptedFileError{
			Path:   t.sr.Path(),
			Offset: offset,
			Reason: fmt.Sprintf("atom %q exceeds its parent", FourCCString(id)),
		}
	}
	return atom, nil
}

// scanRange reads sibling atoms covering [start, end).
func (t *Tree) scanRange(start, end int64, parent AtomRef) ([]AtomRef, error) {
	var refs []AtomRef
	offset := start
	for offset+8 <= end {
		atom, err := t.readHeader(offset, end, parent)
		if err != nil {
			return refs, err
		}
		ref := AtomRef(len(t.atoms))
		t.atoms = append(t.atoms, atom)
		if len(refs) > 0 {
			t.atoms[refs[len(refs)-1]].next = ref
		}
		refs = append(refs, ref)
		offset += int64(atom.TotalSize)
	}
	return refs, nil
}

// childScanOffset returns where an atom's children start. The meta atom
// carries an anomalous 4-byte version/flags block after its header in
// Apple's layout; both its presence and absence are tolerated: when the
// word at offset+4 is a printable FourCC the first child starts right
// at the payload, otherwise the version/flags block is skipped.
func (t *Tree) childScanOffset(ref AtomRef) int64 {
	atom := t.Atom(ref)
	offset := atom.DataOffset()
	if atom.ID != atomMeta || atom.DataSize() < 8 {
		return offset
	}
	probe, err := binary.Read[uint32](t.sr, offset+4, "meta child probe")
	if err != nil {
		return offset
	}
	if isPrintableFourCC(probe) {
		return offset
	}
	return offset + 4
}

// isPrintableFourCC reports whether every byte of the id is printable
// ASCII (or the copyright sign iTunes atoms use).
func isPrintableFourCC(id uint32) bool {
	for _, c := range [4]byte{byte(id >> 24), byte(id >> 16), byte(id >> 8), byte(id)} {
		if (c < 0x20 || c >= 0x7F) && c != 0xA9 {
			return false
		}
	}
	return true
}

// Children returns the atom's child atoms, scanning them on first use.
// Callers only descend into atoms whose payload is a sequence of child
// atoms (the container set plus ilst entries and extended atoms).
func (t *Tree) Children(ref AtomRef) ([]AtomRef, error) {
	atom := t.Atom(ref)
	if !atom.scanned {
		start := t.childScanOffset(ref)
		end := atom.Offset + int64(atom.TotalSize)
		refs, err := t.scanRange(start, end, ref)
		// Re-resolve: scanRange may have grown the arena.
		atom = t.Atom(ref)
		atom.scanned = true
		if len(refs) > 0 {
			atom.firstChild = refs[0]
		}
		if err != nil {
			return refs, err
		}
		return refs, nil
	}
	var refs []AtomRef
	for child := atom.firstChild; child != NoAtom; child = t.Atom(child).next {
		refs = append(refs, child)
	}
	return refs, nil
}

// ChildByID streams the atom's children and returns the first with the
// given id, or NoAtom.
func (t *Tree) ChildByID(ref AtomRef, id uint32) (AtomRef, error) {
	children, err := t.Children(ref)
	if err != nil {
		return NoAtom, err
	}
	for _, c := range children {
		if t.Atom(c).ID == id {
			return c, nil
		}
	}
	return NoAtom, nil
}

// RootByID returns the first top-level atom with the given id.
func (t *Tree) RootByID(id uint32) AtomRef {
	for _, r := range t.roots {
		if t.Atom(r).ID == id {
			return r
		}
	}
	return NoAtom
}

// Path descends from a top-level atom through the given child ids.
func (t *Tree) Path(ids ...uint32) (AtomRef, error) {
	if len(ids) == 0 {
		return NoAtom, nil
	}
	ref := t.RootByID(ids[0])
	for _, id := range ids[1:] {
		if ref == NoAtom {
			return NoAtom, nil
		}
		var err error
		ref, err = t.ChildByID(ref, id)
		if err != nil {
			return NoAtom, err
		}
	}
	return ref, nil
}
