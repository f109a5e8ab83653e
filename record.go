package hdltable

import (
	"fmt"

	"github.com/camreq/hdltable/hdlutils/codec"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
)

type (
	Handle     = codec.Handle
	HandleType = codec.Type
)

const NoHandle = codec.NoHandle

// DeviceCreateInfo describes a device or link handle to be created
type DeviceCreateInfo struct {
	// SessionHandle is the session that will own the new handle. It must be a live session handle.
	SessionHandle Handle
	// DomainTag identifies the device family or subsystem the handle belongs to. It is stored and
	// reported, never interpreted.
	DomainTag uint64

	// V4L2SubDevFlag and MediaEntityFlag are carried for the benefit of the request manager and
	// appear in detailed stats output only
	V4L2SubDevFlag  int32
	MediaEntityFlag int32

	// Ops is the capability table of the device. It must outlive the handle.
	Ops any
	// Priv is the private data of the device. The table does not own it.
	Priv any
}

// LeakRecord describes a handle that was still active when the table was swept
type LeakRecord struct {
	Handle    Handle
	Session   Handle
	Type      HandleType
	DomainTag uint64
	Priv      any
}

// LeakObserver is notified once for each handle freed by a sweep
type LeakObserver interface {
	HandleLeaked(record LeakRecord)
}

type handleRecord struct {
	session    Handle
	value      Handle
	hdlType    codec.Type
	state      codec.State
	generation uint16

	domainTag       uint64
	v4l2SubDevFlag  int32
	mediaEntityFlag int32
	ops             any
	priv            any
}

// reset returns the record to the free state. The generation survives so that the next
// occupant of the slot receives a different handle value.
func (r *handleRecord) reset() {
	generation := r.generation
	*r = handleRecord{generation: generation}
}

func (r *handleRecord) leakRecord() LeakRecord {
	return LeakRecord{
		Handle:    r.value,
		Session:   r.session,
		Type:      r.hdlType,
		DomainTag: r.domainTag,
		Priv:      r.priv,
	}
}

func (r *handleRecord) printParameters(json *jwriter.ObjectState) {
	json.Name("Handle").String(r.value.String())
	json.Name("Type").String(r.hdlType.String())
	json.Name("Session").String(r.session.String())

	if r.hdlType != codec.TypeSession {
		json.Name("DomainTag").String(fmt.Sprintf("0x%x", r.domainTag))
		json.Name("V4L2SubDev").Bool(r.v4l2SubDevFlag != 0)
		json.Name("MediaEntity").Bool(r.mediaEntityFlag != 0)
	}

	if r.ops != nil {
		json.Name("Ops").String(fmt.Sprintf("%T", r.ops))
	}
	if r.priv != nil {
		json.Name("Priv").String(fmt.Sprintf("%T", r.priv))
	}
}
