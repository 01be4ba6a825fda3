package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/eapache/queue"

	"github.com/softioc/softioc-go/pkg/log"
	"github.com/softioc/softioc-go/pkg/pv"
	"github.com/softioc/softioc-go/pkg/transport"
	"github.com/softioc/softioc-go/pkg/wire"
)

// subscription is one monitor held by a connection.
type subscription struct {
	id      uint32
	name    string
	mask    pv.EventMask
	pv      pv.ProcessVariable
	session *session
}

// outbound is a queued frame: an encoded response or an event encoded by
// the writer.
type outbound struct {
	data  []byte
	event *wire.Event
}

// session is the engine state of one connection.
type session struct {
	ctx  *Context
	conn *transport.ServerConn

	mu      sync.Mutex
	pending *queue.Queue
	events  int
	subs    map[uint32]*subscription
	closed  bool

	wake chan struct{}
}

func newSession(c *Context, conn *transport.ServerConn) *session {
	return &session{
		ctx:     c,
		conn:    conn,
		pending: queue.New(),
		subs:    make(map[uint32]*subscription),
		wake:    make(chan struct{}, 1),
	}
}

// enqueueLocked appends o. The caller holds s.mu.
func (s *session) enqueueLocked(o outbound) {
	s.pending.Add(o)
	if o.event != nil {
		s.events++
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

func (s *session) enqueueResponse(data []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.enqueueLocked(outbound{data: data})
	}
}

// enqueueEvent reports whether ev was queued.
func (s *session) enqueueEvent(ev *wire.Event) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.events >= s.ctx.engine.maxQueued {
		return false
	}
	s.enqueueLocked(outbound{event: ev})
	return true
}

// close marks the session closed and returns its subscriptions. The
// caller holds ctx.mu.
func (s *session) close() []*subscription {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	subs := make([]*subscription, 0, len(s.subs))
	for _, sub := range s.subs {
		subs = append(subs, sub)
	}
	s.subs = nil
	return subs
}

func (s *session) next() (outbound, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending.Length() == 0 {
		return outbound{}, false
	}
	o := s.pending.Remove().(outbound)
	if o.event != nil {
		s.events--
	}
	return o, true
}

func (s *session) writeLoop() {
	defer s.ctx.writers.Done()
	defer s.discard()

	for {
		select {
		case <-s.wake:
		case <-s.conn.Done():
			return
		}
		for {
			o, ok := s.next()
			if !ok {
				break
			}
			data := o.data
			if o.event != nil {
				var err error
				data, err = wire.EncodeEvent(o.event)
				if err != nil {
					s.ctx.logger.Error("encode event", "pv", o.event.Name, "error", err)
					s.ctx.metrics.RecordEventDropped()
					continue
				}
				s.logEvent(o.event)
			}
			if err := s.conn.Send(data); err != nil {
				s.ctx.transientError(s, err)
				return
			}
		}
	}
}

// discard drops whatever is still queued after the writer stops.
func (s *session) discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for s.pending.Length() > 0 {
		if o := s.pending.Remove().(outbound); o.event != nil {
			s.ctx.metrics.RecordEventDropped()
		}
	}
	s.events = 0
}

func (s *session) logEvent(ev *wire.Event) {
	subID := ev.SubscriptionID
	s.ctx.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.conn.ConnID(),
		Direction:    log.DirectionOut,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		PVName:       ev.Name,
		Message: &log.MessageEvent{
			Type:           wire.MessageTypeEvent,
			MessageID:      wire.EventMessageID,
			SubscriptionID: &subID,
			Payload:        ev.Reading.Value,
		},
	})
}

// transientError records a failed send and closes the connection, which
// in turn cancels its subscriptions.
func (c *Context) transientError(s *session, err error) {
	err = fmt.Errorf("%w: %s: %w", ErrTransient, s.conn.ConnID(), err)
	c.logger.Warn("send failed, closing connection", "conn", s.conn.ConnID(), "remote", s.conn.RemoteAddr().String(), "error", err)
	c.metrics.RecordTransientError()
	c.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.conn.ConnID(),
		Direction:    log.DirectionOut,
		Layer:        log.LayerWire,
		Category:     log.CategoryError,
		Error: &log.ErrorEventData{
			Layer:   log.LayerWire,
			Message: err.Error(),
			Context: "send",
		},
	})
	s.conn.Close()
}
