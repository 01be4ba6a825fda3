package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net"
	"sync"

	"github.com/softioc/softioc-go/pkg/engine"
	"github.com/softioc/softioc-go/pkg/log"
	"github.com/softioc/softioc-go/pkg/metrics"
	"github.com/softioc/softioc-go/pkg/pv"
	"github.com/softioc/softioc-go/pkg/timestamp"
)

// Option configures a Server.
type Option func(*options)

type options struct {
	engine  Engine
	logger  *slog.Logger
	plog    log.Logger
	metrics metrics.EngineMetrics
	clock   timestamp.Clock
	config  map[string]string
}

// WithEngine replaces the default engine. Protocol logger, metrics and
// clock options only apply to the default engine.
func WithEngine(e Engine) Option {
	return func(o *options) { o.engine = e }
}

// WithLogger sets the operational logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithProtocolLogger sets the protocol event sink of the default engine.
func WithProtocolLogger(l log.Logger) Option {
	return func(o *options) { o.plog = l }
}

// WithMetrics sets the metrics collector of the default engine.
func WithMetrics(m metrics.EngineMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithClock sets the beacon clock of the default engine.
func WithClock(c timestamp.Clock) Option {
	return func(o *options) { o.clock = c }
}

// WithConfiguration sets initial configuration options.
func WithConfiguration(config map[string]string) Option {
	return func(o *options) {
		if o.config == nil {
			o.config = make(map[string]string, len(config))
		}
		maps.Copy(o.config, config)
	}
}

// Server hosts process variables on an engine.
type Server struct {
	vars   map[string]pv.ProcessVariable
	names  []string
	engine Engine
	logger *slog.Logger

	mu      sync.Mutex
	state   State
	config  map[string]string
	ectx    EngineContext
	runDone chan struct{}
}

// New creates a server for vars and registers each with the engine.
func New(vars []pv.ProcessVariable, opts ...Option) (*Server, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if o.config == nil {
		o.config = make(map[string]string)
	}

	if len(vars) == 0 {
		return nil, fmt.Errorf("%w: no process variables", ErrConstruction)
	}
	registry := make(map[string]pv.ProcessVariable, len(vars))
	names := make([]string, 0, len(vars))
	for i, v := range vars {
		if v == nil {
			return nil, fmt.Errorf("%w: process variable %d is nil", ErrConstruction, i)
		}
		name := v.Name()
		if name == "" {
			return nil, fmt.Errorf("%w: process variable %d has no name", ErrConstruction, i)
		}
		if _, dup := registry[name]; dup {
			return nil, fmt.Errorf("%w: duplicate name %q", ErrConstruction, name)
		}
		registry[name] = v
		names = append(names, name)
	}

	eng := o.engine
	if eng == nil {
		engOpts := []engine.Option{
			engine.WithLogger(o.logger),
			engine.WithProtocolLogger(o.plog),
			engine.WithMetrics(o.metrics),
		}
		if o.clock != nil {
			engOpts = append(engOpts, engine.WithClock(o.clock))
		}
		eng = WrapEngine(engine.New(engOpts...))
	}
	for _, name := range names {
		if err := eng.RegisterVariable(registry[name]); err != nil {
			return nil, fmt.Errorf("%w: register %q: %w", ErrConstruction, name, err)
		}
	}

	return &Server{
		vars:   registry,
		names:  names,
		engine: eng,
		logger: o.logger,
		config: o.config,
	}, nil
}

// Configure sets one option. Only valid while Idle. Values are checked by
// the engine at Start.
func (s *Server) Configure(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateIdle {
		return fmt.Errorf("%w: configure in state %s", ErrIllegalState, s.state)
	}
	s.config[key] = value
	return nil
}

// Configuration returns a copy of the options.
func (s *Server) Configuration() map[string]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return maps.Clone(s.config)
}

// State returns the lifecycle state.
func (s *Server) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Addr returns the engine's listen address while running, or nil.
func (s *Server) Addr() net.Addr {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ectx == nil {
		return nil
	}
	return s.ectx.Addr()
}

// Variable returns the variable registered under name.
func (s *Server) Variable(name string) (pv.ProcessVariable, bool) {
	v, ok := s.vars[name]
	return v, ok
}

// Names returns the variable names in construction order.
func (s *Server) Names() []string {
	return append([]string(nil), s.names...)
}

// Start binds the engine and runs it until Stop, cancellation of ctx, or
// engine termination. A bind failure wraps ErrStartup and returns the
// server to Idle.
func (s *Server) Start(ctx context.Context) error {
	return s.start(ctx, nil)
}

// start runs the lifecycle; onBound, if set, is called once with the bind
// result before the run loop is entered.
func (s *Server) start(ctx context.Context, onBound func(error)) error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: start in state %s", ErrIllegalState, state)
	}
	s.state = StateStarting
	config := maps.Clone(s.config)
	done := make(chan struct{})
	s.runDone = done
	s.mu.Unlock()
	defer close(done)

	s.logger.Info("server starting", "pvs", len(s.names))

	ectx, err := s.engine.Bind(ctx, config)
	if err != nil {
		s.setState(StateIdle)
		err = fmt.Errorf("%w: %w", ErrStartup, err)
		s.logger.Error("server failed to start", "error", err)
		if onBound != nil {
			onBound(err)
		}
		return err
	}

	s.mu.Lock()
	s.ectx = ectx
	s.state = StateRunning
	s.mu.Unlock()
	s.logger.Info("server running", "addr", addrString(ectx.Addr()))
	if onBound != nil {
		onBound(nil)
	}

	stopWatch := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			if err := s.Stop(); err != nil {
				s.logger.Debug("stop on cancellation", "error", err)
			}
		case <-stopWatch:
		}
	}()

	runErr := ectx.Run(0)
	close(stopWatch)

	s.mu.Lock()
	selfTerminated := s.state == StateRunning
	if selfTerminated {
		s.state = StateStopped
		s.ectx = nil
	}
	s.mu.Unlock()

	if selfTerminated {
		// The engine ended without Stop; release it here.
		_ = ectx.Shutdown()
		_ = ectx.Destroy()
		s.logger.Warn("engine terminated", "error", runErr)
		if runErr != nil {
			return fmt.Errorf("engine terminated: %w", runErr)
		}
	}
	return nil
}

// Stop shuts the engine down and waits for Start to return. Only valid
// while Running; a stopped server cannot be restarted.
func (s *Server) Stop() error {
	s.mu.Lock()
	if s.state != StateRunning {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("%w: stop in state %s", ErrIllegalState, state)
	}
	s.state = StateStopping
	ectx := s.ectx
	done := s.runDone
	s.mu.Unlock()

	s.logger.Info("server stopping")
	err := ectx.Shutdown()
	if derr := ectx.Destroy(); err == nil {
		err = derr
	}
	<-done

	s.mu.Lock()
	s.state = StateStopped
	s.ectx = nil
	s.mu.Unlock()
	s.logger.Info("server stopped")
	return err
}

func (s *Server) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func addrString(a net.Addr) string {
	if a == nil {
		return ""
	}
	return a.String()
}
