package hdltable

import (
	"sync"

	"github.com/camreq/hdltable/hdlutils"
	"golang.org/x/exp/slog"
)

var (
	defaultTableLock sync.RWMutex
	defaultTable     *Table
)

// Init creates the process-wide table used by the package-level functions. It must be called
// once before any of them; a second call returns hdlutils.ErrAlreadyInitialized.
func Init(logger *slog.Logger, options CreateOptions) error {
	defaultTableLock.Lock()
	defer defaultTableLock.Unlock()

	if defaultTable != nil {
		return hdlutils.ErrAlreadyInitialized
	}

	table, err := New(logger, options)
	if err != nil {
		return err
	}

	defaultTable = table
	return nil
}

// Deinit destroys the process-wide table. Handles that are still active are treated as described
// in Table.Destroy. If Destroy fails, the process-wide table remains in place.
func Deinit() error {
	defaultTableLock.Lock()
	defer defaultTableLock.Unlock()

	if defaultTable == nil {
		return hdlutils.ErrNotInitialized
	}

	err := defaultTable.Destroy()
	if err != nil {
		return err
	}

	defaultTable = nil
	return nil
}

// Default returns the process-wide table
func Default() (*Table, error) {
	defaultTableLock.RLock()
	defer defaultTableLock.RUnlock()

	if defaultTable == nil {
		return nil, hdlutils.ErrNotInitialized
	}
	return defaultTable, nil
}

// CreateSessionHandle creates a session handle in the process-wide table
func CreateSessionHandle(priv any) (Handle, error) {
	table, err := Default()
	if err != nil {
		return NoHandle, err
	}
	return table.CreateSession(priv)
}

// CreateDeviceHandle creates a device handle in the process-wide table
func CreateDeviceHandle(info DeviceCreateInfo) (Handle, error) {
	table, err := Default()
	if err != nil {
		return NoHandle, err
	}
	return table.CreateDevice(info)
}

// CreateLinkHandle creates a link handle in the process-wide table
func CreateLinkHandle(info DeviceCreateInfo) (Handle, error) {
	table, err := Default()
	if err != nil {
		return NoHandle, err
	}
	return table.CreateLink(info)
}

// DevicePrivateData returns the private data of a handle of any type in the process-wide table
func DevicePrivateData(handle Handle) (any, error) {
	table, err := Default()
	if err != nil {
		return nil, err
	}
	return table.PrivateData(handle)
}

// SessionPrivateData returns the private data of a session handle in the process-wide table
func SessionPrivateData(handle Handle) (any, error) {
	table, err := Default()
	if err != nil {
		return nil, err
	}
	return table.SessionPrivateData(handle)
}

// LinkPrivateData returns the private data of a link handle in the process-wide table
func LinkPrivateData(handle Handle) (any, error) {
	table, err := Default()
	if err != nil {
		return nil, err
	}
	return table.LinkPrivateData(handle)
}

// DeviceOps returns the ops of a handle of any type in the process-wide table
func DeviceOps(handle Handle) (any, error) {
	table, err := Default()
	if err != nil {
		return nil, err
	}
	return table.Ops(handle)
}

// DestroyDeviceHandle destroys a device handle in the process-wide table
func DestroyDeviceHandle(handle Handle) error {
	table, err := Default()
	if err != nil {
		return err
	}
	return table.DestroyDevice(handle)
}

// DestroyLinkHandle destroys a link handle in the process-wide table
func DestroyLinkHandle(handle Handle) error {
	table, err := Default()
	if err != nil {
		return err
	}
	return table.DestroyLink(handle)
}

// DestroySessionHandle destroys a session handle in the process-wide table
func DestroySessionHandle(handle Handle) error {
	table, err := Default()
	if err != nil {
		return err
	}
	return table.DestroySession(handle)
}

// FreeHandles frees every active handle in the process-wide table, logging each as stale
func FreeHandles() (int, error) {
	table, err := Default()
	if err != nil {
		return 0, err
	}
	return table.FreeAll(), nil
}
