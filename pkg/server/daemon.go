package server

import (
	"context"
	"sync"
)

// Daemon tracks a server started with StartAsDaemon.
type Daemon struct {
	bound     chan error
	boundDone chan struct{}
	boundErr  error
	boundOnce sync.Once

	done chan struct{}
	err  error
}

// StartAsDaemon runs Start on a new goroutine. Errors are logged and
// recorded on the returned Daemon.
func (s *Server) StartAsDaemon(ctx context.Context) *Daemon {
	d := &Daemon{
		bound:     make(chan error, 1),
		boundDone: make(chan struct{}),
		done:      make(chan struct{}),
	}
	go func() {
		err := s.start(ctx, d.signalBound)
		if err != nil {
			s.logger.Error("daemon exited", "error", err)
		}
		// Covers errors returned before the bind was attempted.
		d.signalBound(err)
		d.err = err
		close(d.done)
	}()
	return d
}

func (d *Daemon) signalBound(err error) {
	d.boundOnce.Do(func() {
		d.boundErr = err
		d.bound <- err
		close(d.boundDone)
	})
}

// Bound delivers the bind result once: nil when the engine is serving,
// otherwise the startup error.
func (d *Daemon) Bound() <-chan error {
	return d.bound
}

// WaitBound blocks until the bind result is known or ctx is done. It may
// be called any number of times.
func (d *Daemon) WaitBound(ctx context.Context) error {
	select {
	case <-d.boundDone:
		return d.boundErr
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Done is closed when the server's run loop has returned.
func (d *Daemon) Done() <-chan struct{} {
	return d.done
}

// Err returns the error Start returned. Valid after Done is closed.
func (d *Daemon) Err() error {
	select {
	case <-d.done:
		return d.err
	default:
		return nil
	}
}
