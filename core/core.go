// Package core is the scheduler of spec.md §4.3/§4.7: it owns the plugin
// registry, the per-plane task pool and the cancellation hierarchy, and
// drives each plane block's simulation loop against its clock.
//
// Grounded on _examples/mmp-vice/server/manager.go's SimManager shape — a
// mutex-protected map of live sessions, one goroutine per session, uuid
// session identifiers, and cancellation via a context derived from a
// shared root — adapted from HTTP sim sessions to simulated-clock-paced
// plane tasks.
package core

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/WindLX/fly-ruler/clock"
	"github.com/WindLX/fly-ruler/config"
	"github.com/WindLX/fly-ruler/ferr"
	"github.com/WindLX/fly-ruler/log"
	fmath "github.com/WindLX/fly-ruler/math"
	"github.com/WindLX/fly-ruler/mech"
	"github.com/WindLX/fly-ruler/model"
	"github.com/WindLX/fly-ruler/plane"
	"github.com/WindLX/fly-ruler/plugin"
	"github.com/WindLX/fly-ruler/trim"
	"github.com/WindLX/fly-ruler/util"
	"github.com/WindLX/fly-ruler/xchan"
)

// Output is one plane block update tagged with the plane's id, the shape
// published on a plane's output channel (spec.md §4.8).
type Output struct {
	ID     string
	Result plane.Output
}

// PlaneConfig configures a single PushPlane call: target flight condition,
// trim condition selector, scripted control-surface deflection and solver
// overrides (SPEC_FULL.md §12).
type PlaneConfig struct {
	Target      trim.Target
	Condition   trim.Condition
	Deflection  [3]float64
	TrimOptions trim.Options
}

// Handle lets a caller stop a single plane without tearing down the core.
type Handle struct {
	cancel context.CancelFunc
}

// Stop cancels the plane's task; its output channel closes once the task
// observes cancellation.
func (h Handle) Stop() { h.cancel() }

type planeEntry struct {
	id     string
	cancel context.CancelFunc
	model  *model.AerodynamicModel
}

// Core is the long-lived scheduler: one per daemon process.
type Core struct {
	mu        util.LoggingMutex
	planes    map[string]*planeEntry
	lg        *log.Logger
	trimCache *trim.Cache
	cfg       config.Config
	registry  *plugin.Registry

	tasks      *errgroup.Group
	rootCtx    context.Context
	rootCancel context.CancelFunc
}

// New builds a Core bound to cfg and a populated plugin registry, with its
// own root cancellation context. Every plane task is run under an
// errgroup.Group so Shutdown can wait for each one's exit sequence (plugin
// Delete, output-channel close) to finish rather than returning the moment
// cancellation is requested.
func New(cfg config.Config, registry *plugin.Registry, lg *log.Logger) *Core {
	ctx, cancel := context.WithCancel(context.Background())
	return &Core{
		planes:     make(map[string]*planeEntry),
		lg:         lg,
		trimCache:  trim.NewCache(cfg.TrimCacheSize),
		cfg:        cfg,
		registry:   registry,
		tasks:      &errgroup.Group{},
		rootCtx:    ctx,
		rootCancel: cancel,
	}
}

// RootContext returns the core's root cancellation context, the parent for
// any client-group token the RPC server derives (spec.md §4.7).
func (c *Core) RootContext() context.Context { return c.rootCtx }

// ModelInfos returns the loaded-plugin snapshot for GetModelInfos
// (spec.md §4.9).
func (c *Core) ModelInfos() []plugin.ModelInfoTuple {
	return c.registry.Snapshot()
}

func (c *Core) registryLookup(id string) (*plugin.Descriptor, bool) {
	return c.registry.Get(id)
}

// Shutdown cancels every plane task and the root context, then blocks until
// each plane task has run its exit sequence (plugin Delete, output-channel
// close) to completion via the errgroup.Group all plane tasks are spawned
// under.
func (c *Core) Shutdown() {
	c.rootCancel()
	_ = c.tasks.Wait()
}

func (c *Core) newClock() clock.Clock {
	if c.cfg.Clock.Mode == config.ClockFixedStep {
		return clock.NewFixedStep(c.cfg.Clock.Delta, c.cfg.Clock.Scale)
	}
	return clock.NewRealtime(c.cfg.Clock.Scale)
}

// PushPlane solves trim for the requested target and condition, builds a
// plane block, and spawns its simulation task under a cancellation context
// derived from parentCtx (a client-group token, or c.rootCtx for a global
// plane). It returns the new plane's id, its output receiver, an input
// sender for control updates, a stop handle, and the trim solution used to
// seed it (spec.md §4.7 "PushPlane").
func (c *Core) PushPlane(parentCtx context.Context, modelName string, pc PlaneConfig) (
	id string, out *xchan.Receiver[Output], in xchan.Sender[fmath.Vector], handle Handle, trimOut trim.Output, err error,
) {
	desc, ok := c.registryLookup(modelName)
	if !ok {
		return "", nil, xchan.Sender[fmath.Vector]{}, Handle{}, trim.Output{}, ferr.ErrModelNotAvailable
	}
	if desc.State() != plugin.Enabled {
		return "", nil, xchan.Sender[fmath.Vector]{}, Handle{}, trim.Output{}, ferr.ErrModelNotAvailable
	}

	aero := model.New(desc)
	plant, err := mech.New(aero)
	if err != nil {
		return "", nil, xchan.Sender[fmath.Vector]{}, Handle{}, trim.Output{}, err
	}

	trimOut, err = trim.Solve(modelName, plant, pc.Target, pc.Condition, pc.TrimOptions, c.trimCache)
	if err != nil {
		return "", nil, xchan.Sender[fmath.Vector]{}, Handle{}, trim.Output{}, err
	}

	id = uuid.NewString()
	if err := aero.Init(id, trimOut.State, trimOut.Control); err != nil {
		return "", nil, xchan.Sender[fmath.Vector]{}, Handle{}, trim.Output{}, err
	}

	cl, err := planeLimitsOf(aero)
	if err != nil {
		_ = aero.Delete(id)
		return "", nil, xchan.Sender[fmath.Vector]{}, Handle{}, trim.Output{}, err
	}

	block := plane.New(id, plant, trimOut, pc.Deflection, cl)

	ctx, cancel := context.WithCancel(parentCtx)
	outChan := xchan.NewOutput(xchan.Timed[Output]{Time: 0, Payload: Output{ID: id, Result: plane.Output{
		State: trimOut.State, Control: trimOut.Control, Lef: trimOut.Lef, Extend: trimOut.Extend,
	}}})
	inChan := xchan.NewInput[fmath.Vector](16)

	entry := &planeEntry{id: id, cancel: cancel, model: aero}
	c.mu.Lock(c.lg)
	c.planes[id] = entry
	c.mu.Unlock(c.lg)

	c.tasks.Go(func() error {
		c.runPlane(ctx, id, block, aero, inChan, outChan)
		return nil
	})

	return id, outChan.Subscribe(), inChan.Sender(), Handle{cancel: cancel}, trimOut, nil
}

// runPlane drives one plane block until ctx is cancelled or the input
// channel closes, then deletes the plugin's native instance exactly once
// (spec.md §4.3 "exit: Delete id exactly once"). A dedicated goroutine
// drains the input channel — Input is a single-reader channel (xchan
// doc) — caching the latest control under a mutex that the tick loop
// reads without blocking.
func (c *Core) runPlane(ctx context.Context, id string, block *plane.Block, aero *model.AerodynamicModel, in *xchan.Input[fmath.Vector], out *xchan.Output[Output]) {
	defer c.lg.CatchAndReportCrash()
	defer func() {
		c.mu.Lock(c.lg)
		delete(c.planes, id)
		c.mu.Unlock(c.lg)
		if err := aero.Delete(id); err != nil {
			c.lg.Warnf("plane %s: delete: %v", id, err)
		}
		out.Close()
	}()

	var controlMu sync.Mutex
	control := fmath.Vector{0, 0, 0, 0}
	if in.HasLast() {
		control = in.Last()
	}

	controllerDropped := make(chan struct{})
	go func() {
		defer close(controllerDropped)
		for ctx.Err() == nil {
			v, ok := in.Recv(ctx)
			if !ok {
				return
			}
			if ctx.Err() != nil {
				return
			}
			controlMu.Lock()
			control = v
			controlMu.Unlock()
		}
	}()

	cl := c.newClock()
	cl.Start()

	for {
		select {
		case <-ctx.Done():
			return
		case <-controllerDropped:
			c.lg.Warnf("plane %s: %v", id, &ferr.ControllerDroppedError{PlaneID: id})
			return
		default:
		}

		t := cl.Now().Seconds()

		controlMu.Lock()
		u := control
		controlMu.Unlock()

		result, err := block.Update(u, t)
		if err != nil {
			if ferr.IsFatalToPlane(err) {
				c.lg.Errorf("plane %s: fatal: %v", id, err)
				return
			}
			c.lg.Warnf("plane %s: step: %v", id, err)
			continue
		}

		out.Send(xchan.Timed[Output]{Time: t, Payload: Output{ID: id, Result: result}})
	}
}

// RemovePlane stops a plane's task; its entry is removed once the task
// observes cancellation and finishes its exit sequence.
func (c *Core) RemovePlane(id string) error {
	c.mu.Lock(c.lg)
	entry, ok := c.planes[id]
	c.mu.Unlock(c.lg)
	if !ok {
		return fmt.Errorf("fly-ruler: no such plane %s", id)
	}
	entry.cancel()
	return nil
}

func planeLimitsOf(aero *model.AerodynamicModel) (plugin.ControlLimit, error) {
	return aero.LoadCtrlLimits()
}
