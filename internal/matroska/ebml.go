// Package matroska reads the Tag/SimpleTag hierarchy of Matroska and
// WebM files. Matroska tags are read-only; the engine never rewrites
// EBML structures.
package matroska

import (
	"fmt"
	"math"
	"math/bits"

	"github.com/tagmeld/tagmeld/internal/binary"
	"github.com/tagmeld/tagmeld/internal/types"
)

func float32FromBits(v uint32) float32 { return math.Float32frombits(v) }
func float64FromBits(v uint64) float64 { return math.Float64frombits(v) }

// Element ids used by the tag reader.
const (
	idEBML            = 0x1A45DFA3
	idSegment         = 0x18538067
	idInfo            = 0x1549A966
	idTimestampScale  = 0x2AD7B1
	idDuration        = 0x4489
	idTitle           = 0x7BA9
	idMuxingApp       = 0x4D80
	idTags            = 0x1254C367
	idTag             = 0x7373
	idTargets         = 0x63C0
	idTargetTypeValue = 0x68CA
	idSimpleTag       = 0x67C8
	idTagName         = 0x45A3
	idTagLanguage     = 0x447A
	idTagString       = 0x4487
	idTagBinary       = 0x4485
)

// unknownSize marks an element whose size is all vint value bits set.
const unknownSize = int64(-1)

// element is one parsed EBML element header.
type element struct {
	id         uint32
	dataOffset int64
	dataSize   int64
}

func (e *element) end() int64 {
	return e.dataOffset + e.dataSize
}

// readVint reads an EBML variable-length integer at offset. keepMarker
// controls whether the length marker bit stays in the value (element
// ids keep it, sizes strip it). Returns the value and its width.
func readVint(sr *binary.SafeReader, offset int64, keepMarker bool) (uint64, int, error) {
	first, err := binary.Read[uint8](sr, offset, "EBML vint")
	if err != nil {
		return 0, 0, err
	}
	if first == 0 {
		return 0, 0, fmt.Errorf("parsing EBML: invalid vint marker: %w", types.ErrInvalidData)
	}
	width := bits.LeadingZeros8(first) + 1
	value := uint64(first)
	if !keepMarker {
		value &= 0xFF >> width
	}
	for i := 1; i < width; i++ {
		b, err := binary.Read[uint8](sr, offset+int64(i), "EBML vint")
		if err != nil {
			return 0, 0, err
		}
		value = value<<8 | uint64(b)
	}
	return value, width, nil
}

// readElement parses the element header at offset.
func readElement(sr *binary.SafeReader, offset int64) (element, error) {
	id, idWidth, err := readVint(sr, offset, true)
	if err != nil {
		return element{}, err
	}
	size, sizeWidth, err := readVint(sr, offset+int64(idWidth), false)
	if err != nil {
		return element{}, err
	}
	e := element{
		id:         uint32(id),
		dataOffset: offset + int64(idWidth) + int64(sizeWidth),
		dataSize:   int64(size),
	}
	// All value bits set means "unknown size" (streamed segments).
	if size == 1<<(7*sizeWidth)-1 {
		e.dataSize = unknownSize
	}
	return e, nil
}

// walk iterates the child elements of [start, end), calling fn for
// each. fn returning false stops the walk.
func walk(sr *binary.SafeReader, start, end int64, fn func(element) (bool, error)) error {
	offset := start
	for offset < end {
		e, err := readElement(sr, offset)
		if err != nil {
			return err
		}
		if e.dataSize == unknownSize {
			// An unknown-size element runs to the end of its parent.
			e.dataSize = end - e.dataOffset
		}
		cont, err := fn(e)
		if err != nil {
			return err
		}
		if !cont {
			return nil
		}
		offset = e.end()
	}
	return nil
}

// readUint reads an unsigned EBML integer payload (1-8 bytes).
func readUint(sr *binary.SafeReader, e element) (uint64, error) {
	if e.dataSize < 0 || e.dataSize > 8 {
		return 0, fmt.Errorf("parsing EBML: integer of %d bytes: %w", e.dataSize, types.ErrInvalidData)
	}
	buf := make([]byte, e.dataSize)
	if err := sr.ReadAt(buf, e.dataOffset, "EBML integer"); err != nil {
		return 0, err
	}
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v, nil
}

// readString reads a UTF-8 EBML string payload.
func readString(sr *binary.SafeReader, e element) (string, error) {
	buf := make([]byte, e.dataSize)
	if err := sr.ReadAt(buf, e.dataOffset, "EBML string"); err != nil {
		return "", err
	}
	// Strings may be zero-padded.
	for i, b := range buf {
		if b == 0 {
			return string(buf[:i]), nil
		}
	}
	return string(buf), nil
}

// readFloat reads a 4- or 8-byte EBML float payload.
func readFloat(sr *binary.SafeReader, e element) (float64, error) {
	switch e.dataSize {
	case 4:
		v, err := binary.Read[uint32](sr, e.dataOffset, "EBML float")
		if err != nil {
			return 0, err
		}
		return float64(float32FromBits(v)), nil
	case 8:
		v, err := binary.Read[uint64](sr, e.dataOffset, "EBML float")
		if err != nil {
			return 0, err
		}
		return float64FromBits(v), nil
	default:
		return 0, fmt.Errorf("parsing EBML: float of %d bytes: %w", e.dataSize, types.ErrInvalidData)
	}
}
