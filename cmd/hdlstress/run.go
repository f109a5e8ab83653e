package main

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	"github.com/camreq/hdltable"
	"github.com/camreq/hdltable/hdlutils"
	"github.com/camreq/hdltable/hdlutils/codec"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"golang.org/x/exp/slog"
)

// client is stored as the private data of every handle a stress client opens
type client struct {
	id string
}

// device is stored as the ops of every device and link handle
type device struct {
	owner string
	index int
}

// Report summarizes a stress run
type Report struct {
	Sessions  int64
	Released  int64
	Crashed   int64
	Reaped    int64
	TableFull int64
	Swept     int
	Stats     string
}

type runner struct {
	cfg    Config
	logger *slog.Logger
	table  *hdltable.Table

	// crashed receives sessions abandoned by clients that are still running, so they can be reclaimed
	// the way the request manager reclaims a client's handles when its file is closed
	crashed chan hdltable.Handle

	sessions  atomic.Int64
	released  atomic.Int64
	crashes   atomic.Int64
	reaped    atomic.Int64
	tableFull atomic.Int64
}

// Run drives cfg.Clients concurrent clients against a fresh table, then sweeps whatever they left
// behind and validates the table
func Run(ctx context.Context, logger *slog.Logger, cfg Config) (Report, error) {
	table, err := hdltable.New(logger, hdltable.CreateOptions{
		MaxHandles:   cfg.Capacity,
		LeakObserver: leakLogger{logger: logger},
	})
	if err != nil {
		return Report{}, err
	}

	r := &runner{
		cfg:     cfg,
		logger:  logger,
		table:   table,
		crashed: make(chan hdltable.Handle, cfg.Capacity),
	}

	reaperDone := make(chan struct{})
	go func() {
		defer close(reaperDone)
		r.reap()
	}()

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	var wg sync.WaitGroup
	errs := make(chan error, cfg.Clients)
	for i := 0; i < cfg.Clients; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			c := &client{id: uuid.NewString()}
			err := r.runClient(ctx, c, rand.New(rand.NewSource(seed+int64(i))))
			if err != nil {
				errs <- errors.Wrapf(err, "client %s", c.id)
			}
		}(i)
	}

	wg.Wait()
	close(r.crashed)
	<-reaperDone
	close(errs)

	for clientErr := range errs {
		err = errors.CombineErrors(err, clientErr)
	}
	if err != nil {
		return Report{}, err
	}

	// The clients have exited: anything still in the table was abandoned on their last iteration
	swept := table.FreeAll()

	err = table.Validate()
	if err != nil {
		return Report{}, errors.Wrap(err, "table failed validation after the run")
	}

	report := Report{
		Sessions:  r.sessions.Load(),
		Released:  r.released.Load(),
		Crashed:   r.crashes.Load(),
		Reaped:    r.reaped.Load(),
		TableFull: r.tableFull.Load(),
		Swept:     swept,
		Stats:     table.BuildStatsString(cfg.Detailed),
	}

	if !table.IsEmpty() {
		return report, errors.Newf("%d handles remain after sweeping", table.Len())
	}

	return report, table.Destroy()
}

func (r *runner) reap() {
	for session := range r.crashed {
		released, err := r.table.ReleaseSession(session)
		if err != nil {
			r.logger.LogAttrs(context.Background(), slog.LevelError, "failed to reclaim abandoned session",
				slog.String("session", session.String()),
				slog.Any("error", err))
			continue
		}

		r.reaped.Add(int64(released) + 1)
	}
}

func (r *runner) runClient(ctx context.Context, c *client, rng *rand.Rand) error {
	for iteration := 0; iteration < r.cfg.Iterations; iteration++ {
		if ctx.Err() != nil {
			return nil
		}

		last := iteration == r.cfg.Iterations-1
		err := r.runSession(c, rng, last)
		if err != nil {
			return err
		}
	}

	return nil
}

// runSession opens a session with its devices and link, checks that every handle resolves to what
// was stored, and then either closes everything or abandons it
func (r *runner) runSession(c *client, rng *rand.Rand, last bool) error {
	session, err := r.table.CreateSession(c)
	if errors.Is(err, hdlutils.ErrTableFull) {
		r.tableFull.Add(1)
		return nil
	} else if err != nil {
		return err
	}
	r.sessions.Add(1)

	var owned []hdltable.Handle
	for i := 0; i <= r.cfg.Devices; i++ {
		info := hdltable.DeviceCreateInfo{
			SessionHandle: session,
			DomainTag:     uint64(i),
			Ops:           &device{owner: c.id, index: i},
			Priv:          c,
		}

		var handle hdltable.Handle
		if i == r.cfg.Devices {
			handle, err = r.table.CreateLink(info)
		} else {
			handle, err = r.table.CreateDevice(info)
		}

		if errors.Is(err, hdlutils.ErrTableFull) {
			r.tableFull.Add(1)
			break
		} else if err != nil {
			return err
		}
		owned = append(owned, handle)
	}

	for i, handle := range owned {
		ops, err := r.table.Ops(handle)
		if err != nil {
			return err
		}

		dev, ok := ops.(*device)
		if !ok || dev.owner != c.id || dev.index != i {
			return errors.Newf("handle %s resolved to %+v, which belongs to another client", handle, ops)
		}
	}

	if rng.Float64() < r.cfg.CrashRate {
		r.crashes.Add(1)
		if !last {
			r.crashed <- session
		}
		return nil
	}

	for _, handle := range owned {
		hdlType, err := r.table.TypeOf(handle)
		if err != nil {
			return err
		}

		if hdlType == codec.TypeLink {
			err = r.table.DestroyLink(handle)
		} else {
			err = r.table.DestroyDevice(handle)
		}
		if err != nil {
			return err
		}
		r.released.Add(1)
	}

	err = r.table.DestroySession(session)
	if err != nil {
		return err
	}
	r.released.Add(1)
	return nil
}

type leakLogger struct {
	logger *slog.Logger
}

func (l leakLogger) HandleLeaked(record hdltable.LeakRecord) {
	owner := "unknown"
	if c, ok := record.Priv.(*client); ok {
		owner = c.id
	}

	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "reclaimed handle",
		slog.String("handle", record.Handle.String()),
		slog.String("client", owner))
}
