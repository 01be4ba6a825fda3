package client

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/softioc/softioc-go/pkg/log"
	"github.com/softioc/softioc-go/pkg/pv"
	"github.com/softioc/softioc-go/pkg/transport"
	"github.com/softioc/softioc-go/pkg/wire"
)

// Client errors.
var (
	ErrRequestTimeout  = errors.New("request timed out")
	ErrClientClosed    = errors.New("client is closed")
	ErrUnexpectedReply = errors.New("unexpected reply")
)

// Defaults.
const (
	DefaultTimeout     = 5 * time.Second
	DefaultEventBuffer = 64
)

// Config configures Dial.
type Config struct {
	// TLSConfig enables TLS when non-nil.
	TLSConfig *tls.Config

	// Timeout bounds each request when ctx has no deadline (default 5s).
	Timeout time.Duration

	// MaxMessageSize is the frame limit (default transport default).
	MaxMessageSize uint32

	// EventBuffer is the channel capacity of each subscription
	// (default 64). Events arriving at a full channel are dropped.
	EventBuffer int

	// Logger for operational messages (optional).
	Logger *slog.Logger

	// ProtocolLogger receives frame events (optional).
	ProtocolLogger log.Logger
}

// pendingRequest waits for one response. onResponse, if set, runs on the
// read loop before the response is handed to the caller.
type pendingRequest struct {
	ch         chan *wire.Response
	onResponse func(*wire.Response)
}

// Client is a connection to one server.
type Client struct {
	conn   *transport.ClientConn
	config Config
	logger *slog.Logger

	nextMsgID atomic.Uint32

	mu      sync.Mutex
	pending map[uint32]*pendingRequest
	subs    map[uint32]*Subscription
	closed  bool
	err     error

	done chan struct{}
}

// Dial connects to a server at address.
func Dial(ctx context.Context, address string, config Config) (*Client, error) {
	if config.Timeout <= 0 {
		config.Timeout = DefaultTimeout
	}
	if config.EventBuffer <= 0 {
		config.EventBuffer = DefaultEventBuffer
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	conn, err := transport.Dial(ctx, address, transport.DialConfig{
		TLSConfig:      config.TLSConfig,
		MaxMessageSize: config.MaxMessageSize,
		Logger:         config.ProtocolLogger,
	})
	if err != nil {
		return nil, err
	}

	c := &Client{
		conn:    conn,
		config:  config,
		logger:  config.Logger.With("server", address),
		pending: make(map[uint32]*pendingRequest),
		subs:    make(map[uint32]*Subscription),
		done:    make(chan struct{}),
	}
	go c.readLoop()
	return c, nil
}

// Done is closed when the connection ends.
func (c *Client) Done() <-chan struct{} {
	return c.done
}

// Err returns the error that ended the connection, or nil while open.
func (c *Client) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Close closes the connection. Pending requests fail with
// ErrClientClosed and subscription channels are closed.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	err := c.conn.Close()
	<-c.done
	return err
}

// Search resolves name to its type and element count.
func (c *Client) Search(ctx context.Context, name string) (*wire.Info, error) {
	resp, err := c.roundTrip(ctx, &wire.Request{Operation: wire.OpSearch, Name: name}, nil)
	if err != nil {
		return nil, err
	}
	if resp.Info == nil {
		return nil, fmt.Errorf("%w: search response without info", ErrUnexpectedReply)
	}
	return resp.Info, nil
}

// Read returns the current reading of name.
func (c *Client) Read(ctx context.Context, name string) (pv.Reading, error) {
	resp, err := c.roundTrip(ctx, &wire.Request{Operation: wire.OpRead, Name: name}, nil)
	if err != nil {
		return pv.Reading{}, err
	}
	if resp.Reading == nil {
		return pv.Reading{}, fmt.Errorf("%w: read response without reading", ErrUnexpectedReply)
	}
	return *resp.Reading, nil
}

// Write sets name to value.
func (c *Client) Write(ctx context.Context, name string, value any) error {
	_, err := c.roundTrip(ctx, &wire.Request{Operation: wire.OpWrite, Name: name, Payload: value}, nil)
	return err
}

// Subscribe starts a monitor on name. A zero mask uses the server
// default. The current value is not replayed; read it separately if
// needed.
func (c *Client) Subscribe(ctx context.Context, name string, mask pv.EventMask) (*Subscription, error) {
	var registered atomic.Pointer[Subscription]
	register := func(resp *wire.Response) {
		if !resp.IsSuccess() {
			return
		}
		sub := &Subscription{
			client: c,
			id:     resp.SubscriptionID,
			name:   name,
			events: make(chan wire.Event, c.config.EventBuffer),
		}
		c.mu.Lock()
		c.subs[sub.id] = sub
		c.mu.Unlock()
		registered.Store(sub)
	}

	_, err := c.roundTrip(ctx, &wire.Request{Operation: wire.OpSubscribe, Name: name, Mask: mask}, register)
	if err != nil {
		if sub := registered.Load(); sub != nil {
			// Timed out after the server accepted; cancel in the background.
			go sub.Cancel(context.Background())
		}
		return nil, err
	}
	return registered.Load(), nil
}

func (c *Client) unsubscribe(ctx context.Context, sub *Subscription) error {
	release := func(resp *wire.Response) {
		if resp.IsSuccess() {
			c.removeSub(sub.id)
		}
	}
	_, err := c.roundTrip(ctx, &wire.Request{Operation: wire.OpUnsubscribe, SubscriptionID: sub.id}, release)
	return err
}

// roundTrip sends req and waits for its response. A non-success status
// is returned as a *wire.StatusError.
func (c *Client) roundTrip(ctx context.Context, req *wire.Request, onResponse func(*wire.Response)) (*wire.Response, error) {
	req.MessageID = c.nextMessageID()

	data, err := wire.EncodeRequest(req)
	if err != nil {
		return nil, err
	}

	p := &pendingRequest{ch: make(chan *wire.Response, 1), onResponse: onResponse}
	c.mu.Lock()
	if c.closed || c.err != nil {
		c.mu.Unlock()
		return nil, ErrClientClosed
	}
	c.pending[req.MessageID] = p
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, req.MessageID)
		c.mu.Unlock()
	}()

	if err := c.conn.Send(data); err != nil {
		return nil, fmt.Errorf("send %s: %w", req.Operation, err)
	}

	var timeout <-chan time.Time
	if _, ok := ctx.Deadline(); !ok {
		t := time.NewTimer(c.config.Timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timeout:
		return nil, ErrRequestTimeout
	case resp, ok := <-p.ch:
		if !ok {
			return nil, ErrClientClosed
		}
		if err := resp.Err(); err != nil {
			return resp, err
		}
		return resp, nil
	}
}

// nextMessageID skips zero, which is reserved for events.
func (c *Client) nextMessageID() uint32 {
	for {
		if id := c.nextMsgID.Add(1); id != wire.EventMessageID {
			return id
		}
	}
}

func (c *Client) readLoop() {
	var loopErr error
	defer func() { c.shutdown(loopErr) }()

	for {
		data, err := c.conn.Receive(0)
		if err != nil {
			loopErr = err
			return
		}

		mt, err := wire.PeekMessageType(data)
		if err != nil {
			c.logger.Debug("dropping undecodable frame", "error", err)
			continue
		}

		switch mt {
		case wire.MessageTypeResponse:
			resp, err := wire.DecodeResponse(data)
			if err != nil {
				c.logger.Debug("dropping bad response", "error", err)
				continue
			}
			c.deliverResponse(resp)
		case wire.MessageTypeEvent:
			ev, err := wire.DecodeEvent(data)
			if err != nil {
				c.logger.Debug("dropping bad event", "error", err)
				continue
			}
			c.deliverEvent(ev)
		default:
			c.logger.Debug("ignoring message", "type", mt.String())
		}
	}
}

func (c *Client) deliverResponse(resp *wire.Response) {
	c.mu.Lock()
	p, ok := c.pending[resp.MessageID]
	c.mu.Unlock()
	if !ok {
		c.logger.Debug("response for unknown request", "msg_id", resp.MessageID)
		return
	}
	if p.onResponse != nil {
		p.onResponse(resp)
	}
	select {
	case p.ch <- resp:
	default:
	}
}

func (c *Client) deliverEvent(ev *wire.Event) {
	c.mu.Lock()
	sub, ok := c.subs[ev.SubscriptionID]
	c.mu.Unlock()
	if !ok {
		return
	}
	select {
	case sub.events <- *ev:
	default:
		sub.dropped.Add(1)
	}
}

// removeSub closes the subscription channel. Only the read loop and
// shutdown call it, so the channel is never written after close.
func (c *Client) removeSub(id uint32) {
	c.mu.Lock()
	sub, ok := c.subs[id]
	delete(c.subs, id)
	c.mu.Unlock()
	if ok {
		close(sub.events)
	}
}

func (c *Client) shutdown(err error) {
	c.mu.Lock()
	if c.closed || errors.Is(err, transport.ErrConnectionClosed) {
		err = ErrClientClosed
	}
	c.err = err
	c.closed = true
	pending := c.pending
	c.pending = make(map[uint32]*pendingRequest)
	subs := c.subs
	c.subs = make(map[uint32]*Subscription)
	c.mu.Unlock()

	c.conn.Close()
	for _, p := range pending {
		close(p.ch)
	}
	for _, sub := range subs {
		close(sub.events)
	}
	close(c.done)
}

// Subscription is an active monitor.
type Subscription struct {
	client  *Client
	id      uint32
	name    string
	events  chan wire.Event
	dropped atomic.Uint64
}

// ID returns the server-assigned subscription ID.
func (s *Subscription) ID() uint32 { return s.id }

// Name returns the monitored variable name.
func (s *Subscription) Name() string { return s.name }

// Events delivers monitor events. The channel is closed after Cancel or
// when the connection ends.
func (s *Subscription) Events() <-chan wire.Event { return s.events }

// Dropped returns the number of events discarded because the channel was
// full.
func (s *Subscription) Dropped() uint64 { return s.dropped.Load() }

// Cancel unsubscribes. Events already in flight are still delivered
// before the channel closes.
func (s *Subscription) Cancel(ctx context.Context) error {
	return s.client.unsubscribe(ctx, s)
}
