package engine

import (
	"context"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/softioc/softioc-go/pkg/beacon"
	"github.com/softioc/softioc-go/pkg/log"
	"github.com/softioc/softioc-go/pkg/metrics"
	"github.com/softioc/softioc-go/pkg/pv"
	"github.com/softioc/softioc-go/pkg/transport"
	"github.com/softioc/softioc-go/pkg/wire"
)

// Context is a bound engine. It exists from Bind until Destroy.
type Context struct {
	engine     *Engine
	config     Config
	vars       map[string]pv.ProcessVariable
	server     *transport.Server
	announcers []beacon.Announcer

	logger  *slog.Logger
	plog    log.Logger
	metrics metrics.EngineMetrics

	runCtx context.Context
	cancel context.CancelFunc

	// mu guards sessions and subs. Taken after a variable's lock by
	// PostEvent and before a session's lock.
	mu       sync.RWMutex
	sessions map[*transport.ServerConn]*session
	subs     map[string]map[uint32]*subscription
	subCount int

	nextSubID atomic.Uint32
	writers   sync.WaitGroup

	shutdownOnce sync.Once
	shutdownCh   chan struct{}
	shutdownErr  error
	destroyed    atomic.Bool
}

func newContext(e *Engine, cfg Config, vars map[string]pv.ProcessVariable) *Context {
	runCtx, cancel := context.WithCancel(context.Background())
	return &Context{
		engine:     e,
		config:     cfg,
		vars:       vars,
		logger:     e.logger,
		plog:       e.plog,
		metrics:    e.metrics,
		runCtx:     runCtx,
		cancel:     cancel,
		sessions:   make(map[*transport.ServerConn]*session),
		subs:       make(map[string]map[uint32]*subscription),
		shutdownCh: make(chan struct{}),
	}
}

// Config returns the parsed configuration.
func (c *Context) Config() Config {
	return c.config
}

// Addr returns the listen address.
func (c *Context) Addr() net.Addr {
	return c.server.Addr()
}

// Run blocks until Shutdown when timeout is zero or negative. With a
// positive timeout it returns after the timeout or at Shutdown, whichever
// comes first.
func (c *Context) Run(timeout time.Duration) error {
	if c.destroyed.Load() {
		return ErrContextDestroyed
	}
	if timeout <= 0 {
		<-c.shutdownCh
		return nil
	}
	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-c.shutdownCh:
	case <-t.C:
	}
	return nil
}

// Done is closed when Shutdown completes.
func (c *Context) Done() <-chan struct{} {
	return c.shutdownCh
}

// Shutdown stops beacons, closes the listener and every connection and
// waits for their goroutines. Requests in flight either complete or are
// answered with StatusBusy. Later calls return the first result.
func (c *Context) Shutdown() error {
	if c.destroyed.Load() {
		return ErrContextDestroyed
	}
	return c.shutdown()
}

func (c *Context) shutdown() error {
	c.shutdownOnce.Do(func() {
		c.cancel()
		for _, a := range c.announcers {
			a.Stop()
		}
		c.shutdownErr = c.server.Stop()
		c.writers.Wait()
		close(c.shutdownCh)

		c.logger.Info("engine shut down")
		c.logState("BOUND", "SHUTDOWN", "")
	})
	return c.shutdownErr
}

// Destroy shuts the context down if needed, detaches it from every
// variable and releases the engine for a new Bind. A second call returns
// ErrContextDestroyed.
func (c *Context) Destroy() error {
	if c.destroyed.Swap(true) {
		return ErrContextDestroyed
	}
	err := c.shutdown()
	for _, v := range c.vars {
		v.Attach(nil)
	}
	c.engine.release(c)
	return err
}

// ConnectionCount returns the number of connected clients.
func (c *Context) ConnectionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.sessions)
}

// SubscriptionCount returns the number of live subscriptions.
func (c *Context) SubscriptionCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.subCount
}

// PostEvent queues a monitor event for every subscription on name whose
// mask intersects mask. It never blocks on the network.
func (c *Context) PostEvent(name string, mask pv.EventMask, r pv.Reading) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, sub := range c.subs[name] {
		if !sub.mask.Intersects(mask) {
			continue
		}
		ev := &wire.Event{
			SubscriptionID: sub.id,
			Name:           name,
			Mask:           mask,
			Reading:        r,
		}
		if sub.session.enqueueEvent(ev) {
			c.metrics.RecordEventPosted()
		} else {
			c.metrics.RecordEventDropped()
		}
	}
}

func (c *Context) onConnect(conn *transport.ServerConn) {
	s := newSession(c, conn)

	c.mu.Lock()
	c.sessions[conn] = s
	n := len(c.sessions)
	c.mu.Unlock()

	c.writers.Add(1)
	go s.writeLoop()

	c.metrics.RecordConnectionAccepted()
	c.metrics.SetActiveConnections(n)
	c.logger.Debug("client connected", "conn", conn.ConnID(), "remote", conn.RemoteAddr().String())
}

// onDisconnect runs on the connection's goroutine after its read loop
// ends, so no request of that connection is in flight.
func (c *Context) onDisconnect(conn *transport.ServerConn) {
	c.mu.Lock()
	s, ok := c.sessions[conn]
	if !ok {
		c.mu.Unlock()
		return
	}
	delete(c.sessions, conn)
	dropped := s.close()
	for _, sub := range dropped {
		delete(c.subs[sub.name], sub.id)
		if len(c.subs[sub.name]) == 0 {
			delete(c.subs, sub.name)
		}
	}
	c.subCount -= len(dropped)
	n, subs := len(c.sessions), c.subCount
	c.mu.Unlock()

	for _, sub := range dropped {
		sub.pv.Unsubscribe()
	}

	c.metrics.RecordConnectionClosed()
	c.metrics.SetActiveConnections(n)
	c.metrics.SetSubscriptions(subs)
	c.logger.Debug("client disconnected", "conn", conn.ConnID(), "subscriptions", len(dropped))
}

func (c *Context) onError(conn *transport.ServerConn, err error) {
	connID := ""
	if conn != nil {
		connID = conn.ConnID()
	}
	c.logger.Warn("transport error", "conn", connID, "error", err)
	c.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: connID,
		Layer:        log.LayerTransport,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerTransport,
			Message: err.Error(),
		},
	})
}

func (c *Context) logState(oldState, newState, reason string) {
	c.plog.Log(log.Event{
		Timestamp: time.Now(),
		Layer:     log.LayerServer,
		Category:  log.CategoryState,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntityServer,
			OldState: oldState,
			NewState: newState,
			Reason:   reason,
		},
	})
}

var _ pv.EventSink = (*Context)(nil)
