// Package rpcserver is the TCP front end of spec.md §4.9: it accepts
// connections, decodes ServiceCall frames with the wire codec, dispatches
// them onto the core scheduler, and streams PlaneMessage/LostPlane/
// NewPlane publications back as ServiceCallResponse frames.
//
// Grounded on _examples/mmp-vice/server/dispatcher.go's per-call
// "defer sd.sm.lg.CatchAndReportCrash()" idiom and manager.go's
// mutex-protected session map, adapted from net/rpc-over-HTTP request/
// response pairs to this daemon's raw length-prefixed frame protocol and
// its extra unsolicited publication stream (spec.md §4.8's per-client
// output channel).
package rpcserver

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/WindLX/fly-ruler/config"
	"github.com/WindLX/fly-ruler/core"
	"github.com/WindLX/fly-ruler/ferr"
	"github.com/WindLX/fly-ruler/log"
	fmath "github.com/WindLX/fly-ruler/math"
	"github.com/WindLX/fly-ruler/trim"
	"github.com/WindLX/fly-ruler/util"
	"github.com/WindLX/fly-ruler/wire"
	"github.com/WindLX/fly-ruler/xchan"
)

// Server owns the listener and the set of live connections.
type Server struct {
	cfg  config.Config
	core *core.Core
	lg   *log.Logger

	mu    sync.Mutex
	conns map[string]*connection
}

// New builds a Server bound to a running Core.
func New(cfg config.Config, c *core.Core, lg *log.Logger) *Server {
	return &Server{cfg: cfg, core: c, lg: lg, conns: make(map[string]*connection)}
}

// ListenAndServe accepts connections on cfg.ListenAddr until ctx is
// cancelled or Accept fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	lis, err := net.Listen("tcp", s.cfg.ListenAddr)
	if err != nil {
		return &ferr.IoError{Op: "listen " + s.cfg.ListenAddr, Err: err}
	}
	s.lg.Infof("listening on %s", s.cfg.ListenAddr)

	go func() {
		<-ctx.Done()
		_ = lis.Close()
	}()

	for {
		nc, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			return &ferr.IoError{Op: "accept", Err: err}
		}
		go s.serve(ctx, s.wrapConn(nc))
	}
}

// wrapConn optionally wraps an accepted connection in zstd framing
// (spec.md has no wire-level compression requirement, but SPEC_FULL.md's
// domain stack reserves this as an opt-in operator knob since plane-state
// frames are small and frequent).
func (s *Server) wrapConn(nc net.Conn) net.Conn {
	if !s.cfg.Compress {
		return nc
	}
	cc, err := util.MakeCompressedConn(nc)
	if err != nil {
		s.lg.Warnf("zstd wrap failed, continuing uncompressed: %v", err)
		return nc
	}
	return cc
}

// connection is one client's private request/response/publication state:
// writeMu serialises every frame written back to the socket, a reader
// goroutine decodes incoming ServiceCall frames, and a cancellation
// token (a child of the core's root context) scopes every plane this
// client pushed (spec.md §4.7 "client-group token").
type connection struct {
	id     string
	nc     net.Conn
	lg     *log.Logger
	core   *core.Core
	cfg    config.Config

	writeMu sync.Mutex

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	planes  map[string]core.Handle
	control map[string]func(fmath.Vector)

	lastActivity time.Time
}

func (s *Server) serve(ctx context.Context, nc net.Conn) {
	defer s.lg.CatchAndReportCrash()
	defer nc.Close()

	connCtx, cancel := context.WithCancel(s.core.RootContext())
	c := &connection{
		id:           uuid.NewString(),
		nc:           nc,
		lg:           s.lg,
		core:         s.core,
		cfg:          s.cfg,
		ctx:          connCtx,
		cancel:       cancel,
		planes:       make(map[string]core.Handle),
		control:      make(map[string]func(fmath.Vector)),
		lastActivity: time.Now(),
	}

	s.mu.Lock()
	s.conns[c.id] = c
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.conns, c.id)
		s.mu.Unlock()
	}()

	go c.watchLiveness(s.cfg.TickTimeout)

	defer c.cancel()
	c.readLoop()
}

// readLoop decodes ServiceCall frames until the connection closes or its
// context is cancelled, dispatching each one and writing back one reply
// ServiceCallResponse (spec.md §4.9's request/response pairing); a
// successful PushPlane reply is followed by a NewPlane frame. Output frames,
// and the LostPlane frame sent when a plane's output channel closes, are
// written concurrently by per-plane viewer goroutines spawned from
// handlePushPlane.
func (c *connection) readLoop() {
	for {
		if c.ctx.Err() != nil {
			return
		}
		_ = c.nc.SetReadDeadline(time.Now().Add(c.cfg.TickTimeout))
		payload, err := wire.ReadFrame(c.nc)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return
			}
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				c.lg.Warnf("conn %s: read timeout, closing", c.id)
				return
			}
			c.lg.Warnf("conn %s: read frame: %v", c.id, err)
			return
		}
		c.mu.Lock()
		c.lastActivity = time.Now()
		c.mu.Unlock()

		req, err := wire.DecodeRequest(payload)
		if err != nil {
			c.writeResponse(&wire.Response{Kind: wire.ResponseError, Err: err.Error()})
			continue
		}
		c.dispatch(req)
	}
}

// watchLiveness closes the connection if no frame has arrived within
// timeout, the tick-based liveness/deadline enforcement of spec.md §4.9.
func (c *connection) watchLiveness(timeout time.Duration) {
	ticker := time.NewTicker(timeout / 2)
	defer ticker.Stop()
	for {
		select {
		case <-c.ctx.Done():
			return
		case <-ticker.C:
			c.mu.Lock()
			idle := time.Since(c.lastActivity)
			c.mu.Unlock()
			if idle > timeout {
				c.lg.Warnf("conn %s: idle %s exceeds tick timeout %s, closing", c.id, idle, timeout)
				_ = c.nc.Close()
				return
			}
		}
	}
}

func (c *connection) writeResponse(r *wire.Response) {
	payload := wire.EncodeResponse(r)
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if err := wire.WriteFrame(c.nc, payload); err != nil {
		c.lg.Warnf("conn %s: write frame: %v", c.id, err)
	}
}

func (c *connection) dispatch(req *wire.Request) {
	switch req.Kind {
	case wire.RequestGetModelInfos:
		c.handleGetModelInfos(req)
	case wire.RequestPushPlane:
		c.handlePushPlane(req)
	case wire.RequestSendControl:
		c.handleSendControl(req)
	case wire.RequestRemovePlane:
		c.handleRemovePlane(req)
	case wire.RequestTick:
		c.writeResponse(&wire.Response{Name: req.Name, Kind: wire.ResponseError})
	default:
		c.writeResponse(&wire.Response{Name: req.Name, Kind: wire.ResponseError, Err: "unknown request kind"})
	}
}

func (c *connection) handleGetModelInfos(req *wire.Request) {
	infos := c.core.ModelInfos()
	out := make([]wire.PluginInfoTuple, len(infos))
	for i, info := range infos {
		out[i] = wire.PluginInfoTuple{
			ID: info.ID, Name: info.Info.Name, Author: info.Info.Author,
			Version: info.Info.Version, Description: info.Info.Description,
			State: int32(info.State),
		}
	}
	c.writeResponse(&wire.Response{Name: req.Name, Kind: wire.ResponseGetModelInfos, Infos: out})
}

func conditionFromWire(v int32) trim.Condition {
	switch v {
	case 1:
		return trim.Turning
	case 2:
		return trim.PullUp
	case 3:
		return trim.Roll
	default:
		return trim.WingsLevel
	}
}

// planeConfigFromRequest builds a core.PlaneConfig from a PushPlane request.
// When the request omits PlaneInitCfg (spec.md line 172: "plane_init_cfg?"
// is optional), every field comes from the daemon's configured plane
// defaults (config.PlaneDefaults). When it carries one, its altitude,
// velocity, condition and deflection are used as given, and each solver
// override falls back to the configured default when it is not positive.
func (c *connection) planeConfigFromRequest(req *wire.Request) core.PlaneConfig {
	def := c.cfg.PlaneDefault
	pc := core.PlaneConfig{
		Target:      trim.Target{Altitude: def.Altitude, Velocity: def.Velocity},
		Condition:   trim.WingsLevel,
		Deflection:  def.Deflection,
		TrimOptions: trim.Options{MaxFunEvals: def.MaxFunEvals, MaxIter: def.MaxIter, TolFun: def.TolFun, TolX: def.TolX},
	}
	switch def.Condition {
	case "turning":
		pc.Condition = trim.Turning
	case "pull_up":
		pc.Condition = trim.PullUp
	case "roll":
		pc.Condition = trim.Roll
	}
	if req.PlaneInitCfg != nil {
		cfg := req.PlaneInitCfg
		pc.Target = trim.Target{Altitude: cfg.Altitude, Velocity: cfg.Velocity}
		pc.Condition = conditionFromWire(cfg.Condition)
		pc.Deflection = cfg.Deflection
		if cfg.MaxFunEvals > 0 {
			pc.TrimOptions.MaxFunEvals = int(cfg.MaxFunEvals)
		}
		if cfg.MaxIter > 0 {
			pc.TrimOptions.MaxIter = int(cfg.MaxIter)
		}
		if cfg.TolFun > 0 {
			pc.TrimOptions.TolFun = cfg.TolFun
		}
		if cfg.TolX > 0 {
			pc.TrimOptions.TolX = cfg.TolX
		}
	}
	return pc
}

func (c *connection) handlePushPlane(req *wire.Request) {
	pc := c.planeConfigFromRequest(req)
	id, outRx, inTx, handle, _, err := c.core.PushPlane(c.ctx, req.ModelID, pc)
	if err != nil {
		c.writeResponse(&wire.Response{Name: req.Name, Kind: wire.ResponseError, Err: err.Error()})
		return
	}

	c.mu.Lock()
	c.planes[id] = handle
	c.control[id] = func(u fmath.Vector) { inTx.TrySend(u) }
	c.mu.Unlock()

	c.writeResponse(&wire.Response{Name: req.Name, Kind: wire.ResponsePushPlane, PlaneID: id})
	c.writeResponse(&wire.Response{Kind: wire.ResponseNewPlane, New: id})

	go c.viewPlane(id, outRx)
}

// viewPlane streams published plane-block outputs to this client until its
// Receiver reports the output channel closed (the plane task exited),
// publishing a final LostPlane frame — spec.md §4.8's "single-writer,
// multi-reader" output channel read by a per-client viewer task.
func (c *connection) viewPlane(id string, rx *xchan.Receiver[core.Output]) {
	defer c.lg.CatchAndReportCrash()
	for {
		timed, ok := rx.Changed()
		if !ok {
			c.mu.Lock()
			delete(c.planes, id)
			delete(c.control, id)
			c.mu.Unlock()
			c.writeResponse(&wire.Response{Kind: wire.ResponseLostPlane, Lost: id})
			return
		}
		if c.ctx.Err() != nil {
			return
		}
		r := timed.Payload.Result
		c.writeResponse(&wire.Response{
			Kind: wire.ResponseOutput,
			Message: &wire.PlaneMessage{
				ID:   timed.Payload.ID,
				Time: timed.Time,
				State: wire.PlaneState{
					State:   [12]float64(r.State),
					Control: [4]float64(r.Control),
					Lef:     r.Lef,
					Extend:  [6]float64(r.Extend.Vector()),
				},
			},
		})
	}
}

func (c *connection) handleSendControl(req *wire.Request) {
	c.mu.Lock()
	send, ok := c.control[req.PlaneID]
	c.mu.Unlock()
	if !ok || req.Control == nil {
		c.writeResponse(&wire.Response{Name: req.Name, Kind: wire.ResponseError, Err: "unknown plane or missing control"})
		return
	}
	send(fmath.Vector{req.Control.Thrust, req.Control.Elevator, req.Control.Aileron, req.Control.Rudder})
	c.writeResponse(&wire.Response{Name: req.Name, Kind: wire.ResponseAck})
}

func (c *connection) handleRemovePlane(req *wire.Request) {
	c.mu.Lock()
	handle, ok := c.planes[req.PlaneID]
	delete(c.planes, req.PlaneID)
	delete(c.control, req.PlaneID)
	c.mu.Unlock()
	if !ok {
		c.writeResponse(&wire.Response{Name: req.Name, Kind: wire.ResponseError, Err: "unknown plane"})
		return
	}
	handle.Stop()
	c.writeResponse(&wire.Response{Name: req.Name, Kind: wire.ResponseLostPlane, Lost: req.PlaneID})
}
