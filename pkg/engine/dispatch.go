package engine

import (
	"context"
	"errors"
	"time"

	"github.com/softioc/softioc-go/pkg/log"
	"github.com/softioc/softioc-go/pkg/pv"
	"github.com/softioc/softioc-go/pkg/transport"
	"github.com/softioc/softioc-go/pkg/wire"
)

// DefaultSubscribeMask is used when a Subscribe request carries no mask.
const DefaultSubscribeMask = pv.EventValue | pv.EventAlarm

// describer is implemented by variables that carry a description.
type describer interface {
	Description() string
}

// handleMessage decodes and answers one request. It runs on the
// connection's read loop, so requests of one connection are handled in
// order.
func (c *Context) handleMessage(conn *transport.ServerConn, data []byte) {
	start := time.Now()

	c.mu.RLock()
	s := c.sessions[conn]
	c.mu.RUnlock()
	if s == nil {
		return
	}

	req, err := wire.DecodeRequest(data)
	if err != nil {
		if req == nil || req.MessageID == wire.EventMessageID {
			c.logger.Debug("dropping undecodable message", "conn", conn.ConnID(), "error", err)
			c.onError(conn, err)
			return
		}
		status := wire.StatusInvalidRequest
		if errors.Is(err, wire.ErrInvalidOperation) {
			status = wire.StatusUnsupported
		}
		c.respond(s, req, errorResponse(req.MessageID, status, err.Error()), start)
		return
	}

	c.logRequest(s, req)

	switch req.Operation {
	case wire.OpSearch:
		c.respond(s, req, c.handleSearch(req), start)
	case wire.OpRead:
		c.respond(s, req, c.handleRead(req), start)
	case wire.OpWrite:
		c.respond(s, req, c.handleWrite(req), start)
	case wire.OpSubscribe:
		c.handleSubscribe(s, req, start)
	case wire.OpUnsubscribe:
		c.handleUnsubscribe(s, req, start)
	default:
		c.respond(s, req, errorResponse(req.MessageID, wire.StatusUnsupported, "unknown operation"), start)
	}
}

func (c *Context) handleSearch(req *wire.Request) *wire.Response {
	v, ok := c.vars[req.Name]
	if !ok {
		return errorResponse(req.MessageID, wire.StatusNotFound, "no such process variable")
	}
	info := &wire.Info{Type: v.Type(), Count: v.Count()}
	if d, ok := v.(describer); ok {
		info.Description = d.Description()
	}
	return &wire.Response{
		MessageID: req.MessageID,
		Status:    wire.StatusSuccess,
		Info:      info,
	}
}

func (c *Context) handleRead(req *wire.Request) *wire.Response {
	v, ok := c.vars[req.Name]
	if !ok {
		return errorResponse(req.MessageID, wire.StatusNotFound, "no such process variable")
	}
	r, err := v.Read(c.runCtx)
	if err != nil {
		return c.failure(req, err)
	}
	return &wire.Response{
		MessageID: req.MessageID,
		Status:    wire.StatusSuccess,
		Reading:   &r,
	}
}

func (c *Context) handleWrite(req *wire.Request) *wire.Response {
	v, ok := c.vars[req.Name]
	if !ok {
		return errorResponse(req.MessageID, wire.StatusNotFound, "no such process variable")
	}
	if err := v.Write(c.runCtx, req.Payload); err != nil {
		return c.failure(req, err)
	}
	return &wire.Response{
		MessageID: req.MessageID,
		Status:    wire.StatusSuccess,
	}
}

// handleSubscribe raises the variable's interest count first, outside the
// engine locks, then registers the subscription and queues the response
// under the same locks so no event for it can be queued ahead of the
// response.
func (c *Context) handleSubscribe(s *session, req *wire.Request, start time.Time) {
	v, ok := c.vars[req.Name]
	if !ok {
		c.respond(s, req, errorResponse(req.MessageID, wire.StatusNotFound, "no such process variable"), start)
		return
	}
	mask := req.Mask
	if mask == 0 {
		mask = DefaultSubscribeMask
	}

	sub := &subscription{
		id:      c.nextSubID.Add(1),
		name:    req.Name,
		mask:    mask,
		pv:      v,
		session: s,
	}
	resp := &wire.Response{
		MessageID:      req.MessageID,
		SubscriptionID: sub.id,
		Status:         wire.StatusSuccess,
	}
	data, err := wire.EncodeResponse(resp)
	if err != nil {
		c.respond(s, req, errorResponse(req.MessageID, wire.StatusInternal, err.Error()), start)
		return
	}

	v.Subscribe()

	c.mu.Lock()
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		c.mu.Unlock()
		v.Unsubscribe()
		return
	}
	if c.subs[sub.name] == nil {
		c.subs[sub.name] = make(map[uint32]*subscription)
	}
	c.subs[sub.name][sub.id] = sub
	s.subs[sub.id] = sub
	s.enqueueLocked(outbound{data: data})
	s.mu.Unlock()
	c.subCount++
	n := c.subCount
	c.mu.Unlock()

	c.metrics.SetSubscriptions(n)
	c.finish(s, req, resp, start)
	c.logSubscription(s, sub, "", "ACTIVE")
}

// handleUnsubscribe removes the registration first, so events already
// queued precede the response and none follow it.
func (c *Context) handleUnsubscribe(s *session, req *wire.Request, start time.Time) {
	c.mu.Lock()
	s.mu.Lock()
	sub, ok := s.subs[req.SubscriptionID]
	if ok {
		delete(s.subs, sub.id)
		delete(c.subs[sub.name], sub.id)
		if len(c.subs[sub.name]) == 0 {
			delete(c.subs, sub.name)
		}
		c.subCount--
	}
	n := c.subCount
	s.mu.Unlock()
	c.mu.Unlock()

	if !ok {
		c.respond(s, req, errorResponse(req.MessageID, wire.StatusNotFound, "no such subscription"), start)
		return
	}

	sub.pv.Unsubscribe()
	c.metrics.SetSubscriptions(n)
	c.respond(s, req, &wire.Response{MessageID: req.MessageID, Status: wire.StatusSuccess}, start)
	c.logSubscription(s, sub, "ACTIVE", "CANCELLED")
}

// failure maps a variable error to a response status.
func (c *Context) failure(req *wire.Request, err error) *wire.Response {
	switch {
	case errors.Is(err, pv.ErrInvalidValue):
		return errorResponse(req.MessageID, wire.StatusInvalidValue, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return errorResponse(req.MessageID, wire.StatusBusy, "server shutting down")
	default:
		c.logger.Error("request failed", "operation", req.Operation.String(), "pv", req.Name, "error", err)
		return errorResponse(req.MessageID, wire.StatusInternal, err.Error())
	}
}

// respond encodes and queues resp.
func (c *Context) respond(s *session, req *wire.Request, resp *wire.Response, start time.Time) {
	data, err := wire.EncodeResponse(resp)
	if err != nil {
		c.logger.Error("encode response", "msg_id", resp.MessageID, "error", err)
		return
	}
	s.enqueueResponse(data)
	c.finish(s, req, resp, start)
}

// finish records metrics and the protocol log entry for a queued response.
func (c *Context) finish(s *session, req *wire.Request, resp *wire.Response, start time.Time) {
	elapsed := time.Since(start)
	c.metrics.RecordRequest(req.Operation.String(), resp.Status.String(), elapsed)

	status := resp.Status
	msg := &log.MessageEvent{
		Type:           wire.MessageTypeResponse,
		MessageID:      resp.MessageID,
		Status:         &status,
		ProcessingTime: &elapsed,
	}
	if resp.SubscriptionID != 0 {
		subID := resp.SubscriptionID
		msg.SubscriptionID = &subID
	}
	if resp.Reading != nil {
		msg.Payload = resp.Reading.Value
	}
	c.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.conn.ConnID(),
		Direction:    log.DirectionOut,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		RemoteAddr:   s.conn.RemoteAddr().String(),
		PVName:       req.Name,
		Message:      msg,
	})
}

func (c *Context) logRequest(s *session, req *wire.Request) {
	op := req.Operation
	msg := &log.MessageEvent{
		Type:      wire.MessageTypeRequest,
		MessageID: req.MessageID,
		Operation: &op,
		Payload:   req.Payload,
	}
	if req.SubscriptionID != 0 {
		subID := req.SubscriptionID
		msg.SubscriptionID = &subID
	}
	c.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.conn.ConnID(),
		Direction:    log.DirectionIn,
		Layer:        log.LayerWire,
		Category:     log.CategoryMessage,
		RemoteAddr:   s.conn.RemoteAddr().String(),
		PVName:       req.Name,
		Message:      msg,
	})
}

func (c *Context) logSubscription(s *session, sub *subscription, oldState, newState string) {
	c.plog.Log(log.Event{
		Timestamp:    time.Now(),
		ConnectionID: s.conn.ConnID(),
		Layer:        log.LayerServer,
		Category:     log.CategoryState,
		PVName:       sub.name,
		StateChange: &log.StateChangeEvent{
			Entity:   log.StateEntitySubscription,
			OldState: oldState,
			NewState: newState,
			Reason:   sub.mask.String(),
		},
	})
}

func errorResponse(msgID uint32, status wire.Status, message string) *wire.Response {
	return &wire.Response{
		MessageID: msgID,
		Status:    status,
		Error:     message,
	}
}
