// Package bitmap tracks slot occupancy for a fixed-capacity handle table. Each slot is
// represented by one bit, and free slots are always handed out lowest index first so that
// handle values stay small and allocation order is reproducible.
package bitmap

import (
	"github.com/bits-and-blooms/bitset"
	"github.com/camreq/hdltable/hdlutils"
	"github.com/pkg/errors"
)

var (
	// ErrBitNotSet is returned by Clear when the slot being released is not marked as in use
	ErrBitNotSet = errors.New("slot is not marked as in use")
	// ErrIndexOutOfRange is returned when a slot index lies outside the bitmap
	ErrIndexOutOfRange = errors.New("slot index out of range")
)

// Bitmap is an occupancy bit vector with one bit per slot. It is not safe for concurrent use;
// the owning table serializes access.
type Bitmap struct {
	bits     *bitset.BitSet
	capacity uint
}

// New creates a Bitmap able to track capacity slots, all of them free
func New(capacity int) *Bitmap {
	if capacity < 0 {
		panic("bitmap capacity must not be negative")
	}

	return &Bitmap{
		bits:     bitset.New(uint(capacity)),
		capacity: uint(capacity),
	}
}

// Capacity returns the number of slots tracked by this bitmap
func (b *Bitmap) Capacity() int {
	return int(b.capacity)
}

// Count returns the number of slots currently in use
func (b *Bitmap) Count() int {
	return int(b.bits.Count())
}

// IsSet returns true if the slot at index is in use. Out of range indices are never in use.
func (b *Bitmap) IsSet(index int) bool {
	if index < 0 || uint(index) >= b.capacity {
		return false
	}
	return b.bits.Test(uint(index))
}

// FindAndSetFree marks the lowest free slot as in use and returns its index. If every slot
// is in use, hdlutils.ErrTableFull is returned.
func (b *Bitmap) FindAndSetFree() (int, error) {
	index, found := b.bits.NextClear(0)
	if !found || index >= b.capacity {
		return -1, errors.Wrapf(hdlutils.ErrTableFull, "all %d slots are in use", b.capacity)
	}

	b.bits.Set(index)
	return int(index), nil
}

// Clear marks the slot at index as free. Clearing a slot that is already free returns
// ErrBitNotSet and leaves the bitmap unchanged.
func (b *Bitmap) Clear(index int) error {
	if index < 0 || uint(index) >= b.capacity {
		return errors.Wrapf(ErrIndexOutOfRange, "index %d, capacity %d", index, b.capacity)
	}

	if !b.bits.Test(uint(index)) {
		return errors.Wrapf(ErrBitNotSet, "index %d", index)
	}

	b.bits.Clear(uint(index))
	return nil
}

// Reset marks every slot as free
func (b *Bitmap) Reset() {
	b.bits.ClearAll()
}

// VisitSet calls visit once for each in-use slot, in ascending order, until visit returns false
func (b *Bitmap) VisitSet(visit func(index int) bool) {
	for i, found := b.bits.NextSet(0); found && i < b.capacity; i, found = b.bits.NextSet(i + 1) {
		if !visit(int(i)) {
			return
		}
	}
}
