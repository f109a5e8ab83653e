package hdltable

import (
	"strings"
	"time"

	"github.com/camreq/hdltable/hdlutils"
	"github.com/camreq/hdltable/hdlutils/bitmap"
	"github.com/camreq/hdltable/hdlutils/codec"
	"github.com/camreq/hdltable/internal/ratelog"
	"github.com/camreq/hdltable/internal/utils"
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slog"
)

//go:generate mockgen -destination=./mocks/mock_leak_observer.go -package=mocks github.com/camreq/hdltable LeakObserver

// CreateFlags indicate specific table behaviors to activate or deactivate
type CreateFlags int32

const (
	// TableCreateExternallySynchronized ensures that the table will not be synchronized internally.
	// The consumer must guarantee it is used from only one goroutine at a time or is synchronized
	// by some other mechanism.
	TableCreateExternallySynchronized CreateFlags = 1 << iota
	// TableCreateCascadeSessionDestroy causes DestroySession to destroy every device and link
	// handle owned by the session instead of failing with hdlutils.ErrSessionBusy
	TableCreateCascadeSessionDestroy
)

var createFlagsMapping = []struct {
	flag CreateFlags
	name string
}{
	{TableCreateExternallySynchronized, "TableCreateExternallySynchronized"},
	{TableCreateCascadeSessionDestroy, "TableCreateCascadeSessionDestroy"},
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}

	var names []string
	for _, mapping := range createFlagsMapping {
		if f&mapping.flag != 0 {
			names = append(names, mapping.name)
			f &^= mapping.flag
		}
	}
	if f != 0 {
		names = append(names, "Unknown")
	}

	return strings.Join(names, "|")
}

const (
	// DefaultMaxHandles is the number of slots in a table when CreateOptions.MaxHandles is left
	// at zero
	DefaultMaxHandles int = 128
	// defaultDiagnosticInterval is the minimum spacing between invalid-handle diagnostics when
	// CreateOptions.DiagnosticInterval is left at zero
	defaultDiagnosticInterval = 5 * time.Second
	diagnosticBurst           = 1
)

// CreateOptions contains optional settings when creating a table
type CreateOptions struct {
	// Flags indicates specific table behaviors to activate or deactivate
	Flags CreateFlags
	// MaxHandles is the number of slots shared by sessions, devices, and links. It must be between
	// 1 and codec.MaxCapacity.
	MaxHandles int
	// LeakObserver is optional. When present, it is told about every handle freed by FreeAll or by
	// Destroy.
	LeakObserver LeakObserver
	// DiagnosticInterval limits how often use of an invalid handle is logged
	DiagnosticInterval time.Duration
}

// New creates a new Table with every slot free
//
// logger - Destination for diagnostics. If nil, slog.Default() is used.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) (*Table, error) {
	if logger == nil {
		logger = slog.Default()
	}

	maxHandles := options.MaxHandles
	if maxHandles == 0 {
		maxHandles = DefaultMaxHandles
	}
	err := hdlutils.CheckRange(maxHandles, 1, codec.MaxCapacity, "CreateOptions.MaxHandles")
	if err != nil {
		return nil, err
	}

	diagnosticInterval := options.DiagnosticInterval
	if diagnosticInterval < 0 {
		return nil, errors.Newf("CreateOptions.DiagnosticInterval must not be negative, got %s", diagnosticInterval)
	} else if diagnosticInterval == 0 {
		diagnosticInterval = defaultDiagnosticInterval
	}

	table := &Table{
		logger:      logger,
		diagnostics: ratelog.New(logger, diagnosticInterval, diagnosticBurst),
		mutex:       utils.OptionalRWMutex{UseMutex: options.Flags&TableCreateExternallySynchronized == 0},
		createFlags: options.Flags,
		observer:    options.LeakObserver,

		records:  make([]handleRecord, maxHandles),
		bitmap:   bitmap.New(maxHandles),
		children: swiss.NewMap[Handle, int](uint32(maxHandles)),
	}

	return table, nil
}
