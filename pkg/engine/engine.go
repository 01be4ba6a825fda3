package engine

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"

	"github.com/softioc/softioc-go/pkg/beacon"
	"github.com/softioc/softioc-go/pkg/log"
	"github.com/softioc/softioc-go/pkg/metrics"
	"github.com/softioc/softioc-go/pkg/pv"
	"github.com/softioc/softioc-go/pkg/timestamp"
	"github.com/softioc/softioc-go/pkg/transport"
)

// Engine errors.
var (
	ErrNilVariable      = errors.New("nil process variable")
	ErrDuplicateName    = errors.New("duplicate process variable name")
	ErrAlreadyBound     = errors.New("engine already bound")
	ErrBind             = errors.New("bind failed")
	ErrContextDestroyed = errors.New("context destroyed")

	// ErrTransient marks a failure to deliver a response or event to a
	// client. The connection is closed; the variable is unaffected.
	ErrTransient = errors.New("transient transport error")
)

// DefaultMaxQueuedEvents is the number of undelivered events a connection
// may hold before further events for it are dropped.
const DefaultMaxQueuedEvents = 1024

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithProtocolLogger sets the protocol event sink.
func WithProtocolLogger(l log.Logger) Option {
	return func(e *Engine) { e.plog = l }
}

// WithMetrics sets the metrics collector.
func WithMetrics(m metrics.EngineMetrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithClock sets the clock used to stamp beacons.
func WithClock(c timestamp.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithMaxQueuedEvents sets the per-connection event backlog limit.
func WithMaxQueuedEvents(n int) Option {
	return func(e *Engine) { e.maxQueued = n }
}

// Engine serves registered process variables. Variables are registered
// before Bind; the set is fixed while a Context is live.
type Engine struct {
	logger    *slog.Logger
	plog      log.Logger
	metrics   metrics.EngineMetrics
	clock     timestamp.Clock
	maxQueued int

	mu    sync.Mutex
	vars  map[string]pv.ProcessVariable
	order []string
	bound *Context
}

// New creates an engine with no variables.
func New(opts ...Option) *Engine {
	e := &Engine{
		vars:      make(map[string]pv.ProcessVariable),
		clock:     timestamp.SystemClock{},
		maxQueued: DefaultMaxQueuedEvents,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	e.plog = log.OrNoop(e.plog)
	e.metrics = metrics.OrNoop(e.metrics)
	if e.maxQueued <= 0 {
		e.maxQueued = DefaultMaxQueuedEvents
	}
	return e
}

// RegisterVariable adds v to the served set.
func (e *Engine) RegisterVariable(v pv.ProcessVariable) error {
	if v == nil {
		return ErrNilVariable
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.bound != nil {
		return ErrAlreadyBound
	}
	name := v.Name()
	if _, exists := e.vars[name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}
	e.vars[name] = v
	e.order = append(e.order, name)
	return nil
}

// Lookup returns the variable registered under name.
func (e *Engine) Lookup(name string) (pv.ProcessVariable, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.vars[name]
	return v, ok
}

// Names returns the registered names in registration order.
func (e *Engine) Names() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.order...)
}

// Bind parses opts, starts listening and announcing, and attaches the
// returned Context as every variable's event sink. Listen and TLS
// failures wrap ErrBind; bad option values wrap ErrInvalidConfig.
func (e *Engine) Bind(ctx context.Context, opts map[string]string) (*Context, error) {
	cfg, err := ParseConfig(opts)
	if err != nil {
		return nil, err
	}
	for _, key := range cfg.Unknown {
		e.logger.Warn("ignoring unknown option", "key", key)
	}

	var tlsConf *tls.Config
	if cfg.TLSCertFile != "" {
		tlsConf, err = transport.LoadServerTLSConfig(cfg.TLSCertFile, cfg.TLSKeyFile)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBind, err)
		}
	}

	e.mu.Lock()
	if e.bound != nil {
		e.mu.Unlock()
		return nil, ErrAlreadyBound
	}
	vars := make(map[string]pv.ProcessVariable, len(e.vars))
	for name, v := range e.vars {
		vars[name] = v
	}
	c := newContext(e, cfg, vars)
	e.bound = c
	e.mu.Unlock()

	c.server = transport.NewServer(transport.ServerConfig{
		Address:        cfg.Address(),
		TLSConfig:      tlsConf,
		MaxMessageSize: transport.MaxMessageSizeFor(cfg.MaxArrayBytes),
		MaxConnections: cfg.MaxConnections,
		ReusePort:      cfg.ReusePort,
		IgnoreAddrs:    cfg.IgnoreAddrs,
		Logger:         e.plog,
		OnConnect:      c.onConnect,
		OnDisconnect:   c.onDisconnect,
		OnMessage:      c.handleMessage,
		OnError:        c.onError,
	})
	if err := c.server.Start(c.runCtx); err != nil {
		c.cancel()
		e.release(c)
		return nil, fmt.Errorf("%w: %w", ErrBind, err)
	}

	for _, v := range vars {
		v.Attach(c)
	}
	c.startBeacons(ctx)

	e.logger.Info("engine bound", "addr", c.Addr().String(), "pvs", len(vars), "tls", tlsConf != nil)
	c.logState("", "BOUND", "")
	return c, nil
}

func (e *Engine) release(c *Context) {
	e.mu.Lock()
	if e.bound == c {
		e.bound = nil
	}
	e.mu.Unlock()
}

func (c *Context) startBeacons(ctx context.Context) {
	port := 0
	if tcp, ok := c.Addr().(*net.TCPAddr); ok {
		port = tcp.Port
	}

	addrs := append([]string(nil), c.config.BeaconAddrs...)
	if c.config.AutoBeaconAddrs {
		ips, err := beacon.AutoAddrList()
		if err != nil {
			c.logger.Warn("auto beacon address list", "error", err)
		}
		for _, ip := range ips {
			addrs = append(addrs, net.JoinHostPort(ip.String(), fmt.Sprint(c.config.BeaconPort)))
		}
	}

	if len(addrs) > 0 {
		a := beacon.NewUDPAnnouncer(beacon.UDPConfig{
			Addrs:      addrs,
			Period:     c.config.BeaconPeriod,
			ServerPort: uint16(port),
			PVCount:    len(c.vars),
			Clock:      c.engine.clock,
			Logger:     c.logger,
		})
		if err := a.Start(c.runCtx); err != nil {
			c.logger.Warn("beacons disabled", "error", err)
		} else {
			c.announcers = append(c.announcers, a)
		}
	}

	if c.config.MDNSAdvertise {
		a := beacon.NewMDNSAnnouncer(beacon.MDNSConfig{
			Instance: c.config.MDNSInstance,
			Port:     port,
			PVCount:  len(c.vars),
			TTL:      2 * c.config.BeaconPeriod,
		})
		if err := a.Start(ctx); err != nil {
			c.logger.Warn("mDNS advertising disabled", "error", err)
		} else {
			c.announcers = append(c.announcers, a)
		}
	}
}
