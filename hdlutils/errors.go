package hdlutils

import "github.com/cockroachdb/errors"

var (
	// ErrTableFull is returned when a handle is requested but every slot in the table is active
	ErrTableFull = errors.New("handle table is full")
	// ErrInvalidHandle is returned when a handle is zero, malformed, stale, refers to a free slot, or has the
	// wrong type for the requested operation
	ErrInvalidHandle = errors.New("invalid handle")
	// ErrNotInitialized is returned from any operation made against a table that has not been created or
	// has already been destroyed
	ErrNotInitialized = errors.New("handle table is not initialized")
	// ErrAlreadyInitialized is returned when the process-wide table is initialized a second time
	ErrAlreadyInitialized = errors.New("handle table is already initialized")
	// ErrSessionBusy is returned when a session is destroyed while device or link handles still refer to it
	ErrSessionBusy = errors.New("session still owns device or link handles")
)
