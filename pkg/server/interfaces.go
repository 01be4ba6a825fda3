package server

import (
	"context"
	"net"
	"time"

	"github.com/softioc/softioc-go/pkg/engine"
	"github.com/softioc/softioc-go/pkg/pv"
)

// Engine is the protocol engine a Server drives.
type Engine interface {
	RegisterVariable(v pv.ProcessVariable) error
	Bind(ctx context.Context, config map[string]string) (EngineContext, error)
}

// EngineContext is a bound engine.
type EngineContext interface {
	// Run blocks until shutdown when timeout is zero.
	Run(timeout time.Duration) error
	Shutdown() error
	Destroy() error
	Addr() net.Addr
}

// WrapEngine adapts an *engine.Engine to Engine.
func WrapEngine(e *engine.Engine) Engine {
	return engineAdapter{e: e}
}

type engineAdapter struct {
	e *engine.Engine
}

func (a engineAdapter) RegisterVariable(v pv.ProcessVariable) error {
	return a.e.RegisterVariable(v)
}

func (a engineAdapter) Bind(ctx context.Context, config map[string]string) (EngineContext, error) {
	c, err := a.e.Bind(ctx, config)
	if err != nil {
		return nil, err
	}
	return c, nil
}

var (
	_ Engine        = engineAdapter{}
	_ EngineContext = (*engine.Context)(nil)
)
