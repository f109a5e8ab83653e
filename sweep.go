package hdltable

import (
	"context"

	"github.com/camreq/hdltable/hdlutils"
	"github.com/camreq/hdltable/hdlutils/codec"
	"github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"golang.org/x/exp/slog"
)

// FreeAll frees every handle that is still active, regardless of which sessions own which
// devices and links, and returns how many were freed. Each one is logged as stale and reported
// to the table's LeakObserver. This is intended for use after a client exits without releasing
// its handles; afterward the table holds no active handles.
func (t *Table) FreeAll() int {
	t.mutex.Lock()
	leaks := t.sweep()
	t.mutex.Unlock()

	t.reportLeaks(leaks)
	return len(leaks)
}

// sweep frees every active slot and returns a record of each one. The table lock must be held.
func (t *Table) sweep() []LeakRecord {
	if !t.initialized() {
		return nil
	}

	leaks := t.collectLeaks()
	for _, leak := range leaks {
		index := leak.Handle.Index()
		err := t.bitmap.Clear(index)
		if err != nil {
			// collectLeaks only returns slots whose bits are set
			panic(errors.Wrapf(err, "sweeping slot %d", index))
		}
		t.records[index].reset()
	}

	t.children = swiss.NewMap[Handle, int](uint32(len(t.records)))
	t.sweptCount += len(leaks)

	return leaks
}

func (t *Table) collectLeaks() []LeakRecord {
	var leaks []LeakRecord
	t.bitmap.VisitSet(func(index int) bool {
		leaks = append(leaks, t.records[index].leakRecord())
		return true
	})
	return leaks
}

func (t *Table) reportLeaks(leaks []LeakRecord) {
	// Owned handles first, then sessions, the order in which a well-behaved client releases them
	for _, sessions := range []bool{false, true} {
		for _, leak := range leaks {
			if (leak.Type == codec.TypeSession) != sessions {
				continue
			}

			t.logger.LogAttrs(context.Background(), slog.LevelWarn, "[STALE HANDLE] unreleased handle",
				slog.String("type", leak.Type.String()),
				slog.String("handle", leak.Handle.String()),
				slog.String("session", leak.Session.String()),
				slog.Uint64("domainTag", leak.DomainTag),
				slog.Any("priv", leak.Priv),
			)

			if t.observer != nil {
				t.observer.HandleLeaked(leak)
			}
		}
	}
}

// Destroy tears the table down. Handles that are still active are logged as stale. Normally they
// are then freed and Destroy succeeds; when built with the debug_hdl_table tag, Destroy instead
// returns an error and leaves the table intact. After a successful Destroy, every method returns
// hdlutils.ErrNotInitialized.
func (t *Table) Destroy() error {
	t.mutex.Lock()

	if !t.initialized() {
		t.mutex.Unlock()
		return hdlutils.ErrNotInitialized
	}

	if hdlutils.StrictTeardown && t.bitmap.Count() > 0 {
		leaks := t.collectLeaks()
		t.mutex.Unlock()

		for _, leak := range leaks {
			t.logger.LogAttrs(context.Background(), slog.LevelError, "[STALE HANDLE] handle outlived its table",
				slog.String("type", leak.Type.String()),
				slog.String("handle", leak.Handle.String()),
				slog.String("session", leak.Session.String()),
				slog.Uint64("domainTag", leak.DomainTag),
			)
		}
		return errors.Newf("%d handles were not released before the destruction of this table", len(leaks))
	}

	leaks := t.sweep()
	t.records = nil
	t.bitmap = nil
	t.children = nil
	t.mutex.Unlock()

	t.reportLeaks(leaks)
	return nil
}
