package hdltable

import (
	"context"
	"fmt"
	"sync/atomic"

	"github.com/camreq/hdltable/hdlutils"
	"github.com/camreq/hdltable/hdlutils/bitmap"
	"github.com/camreq/hdltable/hdlutils/codec"
	"github.com/camreq/hdltable/internal/ratelog"
	"github.com/camreq/hdltable/internal/utils"
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slog"
)

// anyType is passed to lookup by operations that accept a handle of any type
const anyType codec.Type = 0

// Table is a fixed-capacity handle table. All methods are safe for concurrent use unless the
// table was created with TableCreateExternallySynchronized.
type Table struct {
	logger      *slog.Logger
	diagnostics *ratelog.Logger
	mutex       utils.OptionalRWMutex
	createFlags CreateFlags
	observer    LeakObserver

	records []handleRecord
	bitmap  *bitmap.Bitmap
	// children counts the live device and link handles owned by each session that has any
	children *swiss.Map[Handle, int]

	createdCount       int
	destroyedCount     int
	sweptCount         int
	tableFullCount     int
	highWaterMark      int
	invalidHandleCount atomic.Int64
}

var _ hdlutils.Validatable = &Table{}

// Capacity returns the number of slots in the table, or 0 once the table has been destroyed
func (t *Table) Capacity() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	return len(t.records)
}

// Len returns the number of active handles of all types
func (t *Table) Len() int {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if t.bitmap == nil {
		return 0
	}
	return t.bitmap.Count()
}

// IsEmpty returns true if the table holds no active handles
func (t *Table) IsEmpty() bool {
	return t.Len() == 0
}

// CreateSession creates a session handle. Device and link handles are created under a session.
func (t *Table) CreateSession(priv any) (Handle, error) {
	t.mutex.Lock()
	handle, err := t.createSession(priv)
	t.mutex.Unlock()

	if err != nil {
		return NoHandle, err
	}

	hdlutils.DebugValidate(t)
	return handle, nil
}

func (t *Table) createSession(priv any) (Handle, error) {
	if !t.initialized() {
		return NoHandle, hdlutils.ErrNotInitialized
	}

	index, record, err := t.allocate(codec.TypeSession)
	if err != nil {
		return NoHandle, err
	}

	record.session = record.value
	record.priv = priv

	t.logger.LogAttrs(context.Background(), slog.LevelDebug, "Table::CreateSession",
		slog.String("handle", record.value.String()),
		slog.Int("index", index))

	return record.value, nil
}

// CreateDevice creates a device handle owned by info.SessionHandle
func (t *Table) CreateDevice(info DeviceCreateInfo) (Handle, error) {
	return t.createOwned(codec.TypeDevice, info)
}

// CreateLink creates a link handle owned by info.SessionHandle. Links and devices are drawn from
// the same pool of slots as sessions.
func (t *Table) CreateLink(info DeviceCreateInfo) (Handle, error) {
	return t.createOwned(codec.TypeLink, info)
}

func (t *Table) createOwned(hdlType codec.Type, info DeviceCreateInfo) (Handle, error) {
	t.mutex.Lock()
	handle, err := t.createOwnedLocked(hdlType, info)
	t.mutex.Unlock()

	if err != nil {
		return NoHandle, err
	}

	hdlutils.DebugValidate(t)
	return handle, nil
}

func (t *Table) createOwnedLocked(hdlType codec.Type, info DeviceCreateInfo) (Handle, error) {
	if !t.initialized() {
		return NoHandle, hdlutils.ErrNotInitialized
	}

	_, err := t.lookup(info.SessionHandle, codec.TypeSession)
	if err != nil {
		return NoHandle, errors.Wrapf(err, "cannot create %s handle", hdlType)
	}

	index, record, err := t.allocate(hdlType)
	if err != nil {
		return NoHandle, err
	}

	record.session = info.SessionHandle
	record.domainTag = info.DomainTag
	record.v4l2SubDevFlag = info.V4L2SubDevFlag
	record.mediaEntityFlag = info.MediaEntityFlag
	record.ops = info.Ops
	record.priv = info.Priv

	count, _ := t.children.Get(info.SessionHandle)
	t.children.Put(info.SessionHandle, count+1)

	t.logger.LogAttrs(context.Background(), slog.LevelDebug, "Table::CreateHandle",
		slog.String("type", hdlType.String()),
		slog.String("handle", record.value.String()),
		slog.String("session", info.SessionHandle.String()),
		slog.Int("index", index))

	return record.value, nil
}

// allocate claims the lowest free slot and mints a handle for it. The caller fills in the
// remaining fields of the returned record.
func (t *Table) allocate(hdlType codec.Type) (int, *handleRecord, error) {
	index, err := t.bitmap.FindAndSetFree()
	if err != nil {
		t.tableFullCount++
		return -1, nil, errors.Wrapf(err, "cannot create %s handle", hdlType)
	}

	record := &t.records[index]
	if record.state != codec.StateFree {
		panic(fmt.Sprintf("slot %d was free in the bitmap but holds active handle %s", index, record.value))
	}

	generation := codec.NextGeneration(record.generation)
	value, err := codec.Encode(index, generation, hdlType)
	if err != nil {
		clearErr := t.bitmap.Clear(index)
		if clearErr != nil {
			panic(fmt.Sprintf("failed to return slot %d after encoding error: %+v", index, clearErr))
		}
		return -1, nil, err
	}

	record.generation = generation
	record.value = value
	record.hdlType = hdlType
	record.state = codec.StateActive

	t.createdCount++
	if active := t.bitmap.Count(); active > t.highWaterMark {
		t.highWaterMark = active
	}

	return index, record, nil
}

// DestroyDevice destroys a device handle
func (t *Table) DestroyDevice(handle Handle) error {
	return t.destroyOwned(codec.TypeDevice, handle)
}

// DestroyLink destroys a link handle
func (t *Table) DestroyLink(handle Handle) error {
	return t.destroyOwned(codec.TypeLink, handle)
}

func (t *Table) destroyOwned(hdlType codec.Type, handle Handle) error {
	t.mutex.Lock()
	err := t.destroyOwnedLocked(hdlType, handle)
	t.mutex.Unlock()

	if err != nil {
		return err
	}

	hdlutils.DebugValidate(t)
	return nil
}

func (t *Table) destroyOwnedLocked(hdlType codec.Type, handle Handle) error {
	if !t.initialized() {
		return hdlutils.ErrNotInitialized
	}

	record, err := t.lookup(handle, hdlType)
	if err != nil {
		return errors.Wrapf(err, "cannot destroy %s handle", hdlType)
	}

	t.logger.LogAttrs(context.Background(), slog.LevelDebug, "Table::DestroyHandle",
		slog.String("type", hdlType.String()),
		slog.String("handle", handle.String()))

	err = t.release(handle.Index(), record)
	if err != nil {
		return err
	}

	t.destroyedCount++
	return nil
}

// DestroySession destroys a session handle. If the session still owns device or link handles,
// hdlutils.ErrSessionBusy is returned and nothing is destroyed, unless the table was created with
// TableCreateCascadeSessionDestroy, in which case the owned handles are destroyed first.
func (t *Table) DestroySession(handle Handle) error {
	t.mutex.Lock()
	_, err := t.destroySession(handle, t.createFlags&TableCreateCascadeSessionDestroy != 0)
	t.mutex.Unlock()

	if err != nil {
		return err
	}

	hdlutils.DebugValidate(t)
	return nil
}

// ReleaseSession destroys every device and link handle owned by a session and then the session
// itself. It returns the number of owned handles that were destroyed.
func (t *Table) ReleaseSession(handle Handle) (int, error) {
	t.mutex.Lock()
	released, err := t.destroySession(handle, true)
	t.mutex.Unlock()

	if err != nil {
		return 0, err
	}

	hdlutils.DebugValidate(t)
	return released, nil
}

func (t *Table) destroySession(handle Handle, cascade bool) (int, error) {
	if !t.initialized() {
		return 0, hdlutils.ErrNotInitialized
	}

	record, err := t.lookup(handle, codec.TypeSession)
	if err != nil {
		return 0, errors.Wrap(err, "cannot destroy session handle")
	}

	owned, _ := t.children.Get(handle)
	if owned > 0 && !cascade {
		return 0, errors.Wrapf(hdlutils.ErrSessionBusy, "session %s owns %d handles", handle, owned)
	}

	released := 0
	if owned > 0 {
		var indices []int
		t.bitmap.VisitSet(func(index int) bool {
			child := &t.records[index]
			if child.hdlType != codec.TypeSession && child.session == handle {
				indices = append(indices, index)
			}
			return true
		})

		for _, index := range indices {
			err = t.release(index, &t.records[index])
			if err != nil {
				return released, err
			}
			released++
			t.destroyedCount++
		}
	}

	t.logger.LogAttrs(context.Background(), slog.LevelDebug, "Table::DestroySession",
		slog.String("handle", handle.String()),
		slog.Int("released", released))

	err = t.release(handle.Index(), record)
	if err != nil {
		return released, err
	}

	t.destroyedCount++
	return released, nil
}

// release frees an active slot. The slot must be the one at index.
func (t *Table) release(index int, record *handleRecord) error {
	err := t.bitmap.Clear(index)
	if err != nil {
		return errors.Wrapf(err, "slot %d holding handle %s", index, record.value)
	}

	if record.hdlType != codec.TypeSession {
		count, ok := t.children.Get(record.session)
		if ok && count > 1 {
			t.children.Put(record.session, count-1)
		} else {
			t.children.Delete(record.session)
		}
	} else {
		t.children.Delete(record.value)
	}

	record.reset()
	return nil
}

// PrivateData returns the private data stored with a handle of any type
func (t *Table) PrivateData(handle Handle) (any, error) {
	var priv any
	err := t.read(handle, anyType, func(record *handleRecord) {
		priv = record.priv
	})
	return priv, err
}

// SessionPrivateData returns the private data stored with a session handle
func (t *Table) SessionPrivateData(handle Handle) (any, error) {
	var priv any
	err := t.read(handle, codec.TypeSession, func(record *handleRecord) {
		priv = record.priv
	})
	return priv, err
}

// LinkPrivateData returns the private data stored with a link handle
func (t *Table) LinkPrivateData(handle Handle) (any, error) {
	var priv any
	err := t.read(handle, codec.TypeLink, func(record *handleRecord) {
		priv = record.priv
	})
	return priv, err
}

// Ops returns the ops stored with a handle of any type. Session handles carry no ops.
func (t *Table) Ops(handle Handle) (any, error) {
	var ops any
	err := t.read(handle, anyType, func(record *handleRecord) {
		ops = record.ops
	})
	return ops, err
}

// SessionOf returns the session that owns a device or link handle. A session handle is its own
// session.
func (t *Table) SessionOf(handle Handle) (Handle, error) {
	session := NoHandle
	err := t.read(handle, anyType, func(record *handleRecord) {
		session = record.session
	})
	return session, err
}

// DomainTag returns the domain tag stored with a device or link handle. Session handles return 0.
func (t *Table) DomainTag(handle Handle) (uint64, error) {
	var tag uint64
	err := t.read(handle, anyType, func(record *handleRecord) {
		tag = record.domainTag
	})
	return tag, err
}

// TypeOf returns the type of a live handle
func (t *Table) TypeOf(handle Handle) (HandleType, error) {
	var hdlType HandleType
	err := t.read(handle, anyType, func(record *handleRecord) {
		hdlType = record.hdlType
	})
	return hdlType, err
}

func (t *Table) read(handle Handle, expected codec.Type, visit func(record *handleRecord)) error {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if !t.initialized() {
		return hdlutils.ErrNotInitialized
	}

	record, err := t.lookup(handle, expected)
	if err != nil {
		return err
	}

	visit(record)
	return nil
}

// lookup resolves a handle to its live record. The table lock must be held.
func (t *Table) lookup(handle Handle, expected codec.Type) (*handleRecord, error) {
	fields, err := codec.Decode(handle)
	if err != nil {
		return nil, t.invalidHandle(handle, err)
	}

	if fields.Index >= len(t.records) {
		return nil, t.invalidHandle(handle, errors.Wrapf(hdlutils.ErrInvalidHandle,
			"handle %s refers to slot %d, table capacity is %d", handle, fields.Index, len(t.records)))
	}

	if expected != anyType && fields.Type != expected {
		return nil, t.invalidHandle(handle, errors.Wrapf(hdlutils.ErrInvalidHandle,
			"handle %s is a %s handle, expected %s", handle, fields.Type, expected))
	}

	record := &t.records[fields.Index]
	if record.state != codec.StateActive {
		return nil, t.invalidHandle(handle, errors.Wrapf(hdlutils.ErrInvalidHandle,
			"handle %s refers to free slot %d", handle, fields.Index))
	}

	if record.value != handle {
		return nil, t.invalidHandle(handle, errors.Wrapf(hdlutils.ErrInvalidHandle,
			"handle %s is stale, slot %d now holds %s", handle, fields.Index, record.value))
	}

	return record, nil
}

func (t *Table) invalidHandle(handle Handle, err error) error {
	t.invalidHandleCount.Add(1)
	t.diagnostics.LogAttrs(context.Background(), slog.LevelWarn, "[INVALID HANDLE] rejected handle",
		slog.String("handle", handle.String()),
		slog.Any("error", err))
	return err
}

func (t *Table) initialized() bool {
	return t.records != nil
}

// Validate performs internal consistency checks on the table. When the table is functioning
// correctly, it should not be possible for this method to return an error.
func (t *Table) Validate() error {
	t.mutex.RLock()
	defer t.mutex.RUnlock()

	if !t.initialized() {
		return hdlutils.ErrNotInitialized
	}

	if t.bitmap.Capacity() != len(t.records) {
		return errors.Newf("bitmap tracks %d slots but the table has %d", t.bitmap.Capacity(), len(t.records))
	}

	activeCount := 0
	owned := make(map[Handle]int)
	for index := range t.records {
		record := &t.records[index]
		active := record.state == codec.StateActive

		if active != t.bitmap.IsSet(index) {
			return errors.Newf("slot %d is %s but its bitmap bit is %t", index, record.state, t.bitmap.IsSet(index))
		}

		if !active {
			if record.value != NoHandle || record.session != NoHandle || record.ops != nil || record.priv != nil {
				return errors.Newf("free slot %d retains data from a previous handle", index)
			}
			continue
		}

		activeCount++
		fields, err := codec.Decode(record.value)
		if err != nil {
			return errors.Wrapf(err, "slot %d holds an undecodable handle", index)
		}
		if fields.Index != index || fields.Type != record.hdlType || fields.Generation != record.generation {
			return errors.Newf("slot %d holds handle %s which decodes to slot %d, type %s, generation %d",
				index, record.value, fields.Index, fields.Type, fields.Generation)
		}

		if record.hdlType == codec.TypeSession {
			if record.session != record.value {
				return errors.Newf("session handle %s lists %s as its session", record.value, record.session)
			}
		} else {
			owned[record.session]++
		}
	}

	if activeCount != t.bitmap.Count() {
		return errors.Newf("%d slots are active but %d bitmap bits are set", activeCount, t.bitmap.Count())
	}

	if t.children.Count() != len(owned) {
		return errors.Newf("%d sessions are listed as owning handles but %d actually do", t.children.Count(), len(owned))
	}

	var err error
	t.children.Iter(func(session Handle, count int) bool {
		if owned[session] != count {
			err = errors.Newf("session %s is listed as owning %d handles but owns %d", session, count, owned[session])
			return true
		}
		return false
	})

	return err
}
