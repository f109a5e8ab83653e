// Package hdltable is the handle table of the camera request manager. It mints, validates,
// resolves, and destroys the opaque integer handles through which the request manager core and
// the individual camera drivers refer to sessions, devices, and links.
//
// # Handles
//
// A session handle is created first and owns any number of device and link handles:
//
//	table, err := hdltable.New(logger, hdltable.CreateOptions{})
//
//	session, err := table.CreateSession(coreSession)
//	device, err := table.CreateDevice(hdltable.DeviceCreateInfo{
//	    SessionHandle: session,
//	    DomainTag:     ispDomain,
//	    Ops:           ispOps,
//	    Priv:          ispContext,
//	})
//
//	ops, err := table.Ops(device)
//
// Sessions, devices, and links share a single fixed pool of DefaultMaxHandles slots. Ops and
// private data are stored as given and handed back verbatim; the table never inspects them.
//
// # Stale handles
//
// Every handle embeds a per-slot generation. Once a handle is destroyed, any further use of it
// fails with hdlutils.ErrInvalidHandle, even after its slot has been handed to a new object.
//
// # Sessions and teardown
//
// DestroySession refuses to destroy a session that still owns device or link handles and returns
// hdlutils.ErrSessionBusy, unless the table was created with TableCreateCascadeSessionDestroy.
// ReleaseSession destroys a session together with everything it owns. When a client goes away
// without cleaning up, FreeAll logs every handle that is still active and frees it.
//
// # Process-wide table
//
// Drivers that expect a single table per process can use Init and Deinit together with the
// package-level wrappers such as CreateSessionHandle and DeviceOps.
package hdltable
