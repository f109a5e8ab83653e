// Package codec converts between handle values and the slot information embedded in them.
//
// A handle is a positive int32 laid out as follows, least significant bit first:
//
//	bits  0..7   slot index
//	bits  8..23  generation, never 0
//	bits 24..25  handle type
//	bits 26..31  reserved, always 0
//
// Because every slot carries its own generation counter that advances each time the slot
// is reused, a handle that outlives its slot no longer matches the value stored in the
// table and is rejected instead of resolving to the slot's new occupant.
package codec

import (
	"fmt"

	"github.com/camreq/hdltable/hdlutils"
	"github.com/cockroachdb/errors"
)

const (
	IndexBits      = 8
	GenerationBits = 16
	TypeBits       = 2

	generationShift = IndexBits
	typeShift       = IndexBits + GenerationBits
	reservedShift   = typeShift + TypeBits

	indexMask      = 1<<IndexBits - 1
	generationMask = 1<<GenerationBits - 1
	typeMask       = 1<<TypeBits - 1

	// MaxCapacity is the largest number of slots a handle can address
	MaxCapacity = 1 << IndexBits
)

// Handle is the externally visible identifier of a session, device, or link. The zero value
// is never a valid handle.
type Handle int32

const NoHandle Handle = 0

// Fields holds the information decoded from a handle value
type Fields struct {
	Index      int
	Generation uint16
	Type       Type
}

// Encode builds the handle value for a slot index, generation, and type
func Encode(index int, generation uint16, handleType Type) (Handle, error) {
	if index < 0 || index >= MaxCapacity {
		return NoHandle, errors.Newf("slot index %d cannot be encoded in %d bits", index, IndexBits)
	}
	if generation == 0 {
		return NoHandle, errors.New("generation 0 is reserved")
	}
	if !handleType.IsValid() {
		return NoHandle, errors.Newf("cannot encode handle of type %s", handleType)
	}

	value := uint32(index) |
		uint32(generation)<<generationShift |
		uint32(handleType)<<typeShift

	return Handle(value), nil
}

// Decode extracts the slot index, generation, and type from a handle value. It only checks
// that the value is well-formed; whether the handle is still live is up to the owning table.
func Decode(h Handle) (Fields, error) {
	if h == NoHandle {
		return Fields{}, errors.Wrap(hdlutils.ErrInvalidHandle, "handle is zero")
	}

	value := uint32(h)
	if value>>reservedShift != 0 {
		return Fields{}, errors.Wrapf(hdlutils.ErrInvalidHandle, "handle 0x%x has reserved bits set", value)
	}

	fields := Fields{
		Index:      int(value & indexMask),
		Generation: uint16((value >> generationShift) & generationMask),
		Type:       Type((value >> typeShift) & typeMask),
	}

	if fields.Generation == 0 {
		return Fields{}, errors.Wrapf(hdlutils.ErrInvalidHandle, "handle 0x%x has no generation", value)
	}
	if !fields.Type.IsValid() {
		return Fields{}, errors.Wrapf(hdlutils.ErrInvalidHandle, "handle 0x%x has unknown type %d", value, uint8(fields.Type))
	}

	return fields, nil
}

// NextGeneration advances a slot's generation counter, skipping 0 when it wraps
func NextGeneration(generation uint16) uint16 {
	generation++
	if generation == 0 {
		generation = 1
	}
	return generation
}

// Index returns the slot index embedded in a handle without validating it
func (h Handle) Index() int {
	return int(uint32(h) & indexMask)
}

func (h Handle) String() string {
	return fmt.Sprintf("0x%08x", uint32(h))
}
