// Package gateway bridges process variables to browsers.
//
// Routes:
//
//	GET /ws?pv=NAME    websocket; streams the current reading, then one
//	                   JSON message per monitor event
//	GET /pv/{name}     current reading as JSON
//	PUT /pv/{name}     {"value": ...}; only when writes are enabled
//
// The gateway talks to a PV server through a Source, normally a
// *client.Client connected to the local server.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/softioc/softioc-go/pkg/client"
	"github.com/softioc/softioc-go/pkg/pv"
	"github.com/softioc/softioc-go/pkg/wire"
)

// Source reads, writes and monitors process variables.
type Source interface {
	Read(ctx context.Context, name string) (pv.Reading, error)
	Write(ctx context.Context, name string, value any) error
	Subscribe(ctx context.Context, name string, mask pv.EventMask) (*client.Subscription, error)
}

var _ Source = (*client.Client)(nil)

// DefaultWriteTimeout bounds one websocket write.
const DefaultWriteTimeout = 5 * time.Second

// Config configures a Gateway.
type Config struct {
	// AllowWrites enables PUT /pv/{name}.
	AllowWrites bool

	// WriteTimeout bounds websocket writes (default DefaultWriteTimeout).
	WriteTimeout time.Duration

	// CheckOrigin overrides the websocket origin check. Nil accepts
	// same-origin requests only.
	CheckOrigin func(r *http.Request) bool

	Logger *slog.Logger
}

// Message is the JSON form of a reading sent to clients.
type Message struct {
	Type      string    `json:"type"`
	PV        string    `json:"pv"`
	Value     any       `json:"value"`
	Status    string    `json:"status"`
	Severity  string    `json:"severity"`
	Timestamp time.Time `json:"timestamp"`
	Events    string    `json:"events,omitempty"`
}

// Message types.
const (
	TypeInitial = "initial"
	TypeEvent   = "event"
	TypeReading = "reading"
	TypeError   = "error"
)

func newMessage(typ, name string, r pv.Reading) Message {
	return Message{
		Type:      typ,
		PV:        name,
		Value:     r.Value,
		Status:    r.Status.String(),
		Severity:  r.Severity.String(),
		Timestamp: r.Timestamp.Time(),
	}
}

// Gateway is an http.Handler serving the routes above.
type Gateway struct {
	src      Source
	cfg      Config
	logger   *slog.Logger
	upgrader websocket.Upgrader
	mux      *http.ServeMux
}

// New creates a gateway for src.
func New(src Source, cfg Config) *Gateway {
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	g := &Gateway{
		src:    src,
		cfg:    cfg,
		logger: cfg.Logger.With("component", "gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     cfg.CheckOrigin,
		},
		mux: http.NewServeMux(),
	}
	g.mux.HandleFunc("GET /ws", g.serveWS)
	g.mux.HandleFunc("GET /pv/{name}", g.serveRead)
	g.mux.HandleFunc("PUT /pv/{name}", g.serveWrite)
	return g
}

// ServeHTTP implements http.Handler.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	g.mux.ServeHTTP(w, r)
}

func (g *Gateway) serveRead(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")
	reading, err := g.src.Read(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newMessage(TypeReading, name, reading))
}

func (g *Gateway) serveWrite(w http.ResponseWriter, r *http.Request) {
	if !g.cfg.AllowWrites {
		http.Error(w, "writes disabled", http.StatusForbidden)
		return
	}
	var body struct {
		Value any `json:"value"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&body); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}
	name := r.PathValue("name")
	if err := g.src.Write(r.Context(), name, body.Value); err != nil {
		writeError(w, err)
		return
	}
	g.logger.Info("pv written", "pv", name, "remote", r.RemoteAddr)
	w.WriteHeader(http.StatusNoContent)
}

func (g *Gateway) serveWS(w http.ResponseWriter, r *http.Request) {
	name := r.URL.Query().Get("pv")
	if name == "" {
		http.Error(w, "missing pv parameter", http.StatusBadRequest)
		return
	}

	// Subscribe before the initial read so no update falls in between.
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	sub, err := g.src.Subscribe(ctx, name, pv.EventValue|pv.EventAlarm)
	if err != nil {
		writeError(w, err)
		return
	}
	defer sub.Cancel(context.WithoutCancel(ctx))

	initial, err := g.src.Read(ctx, name)
	if err != nil {
		writeError(w, err)
		return
	}

	conn, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.logger.Debug("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	session := uuid.NewString()
	logger := g.logger.With("session", session, "pv", name)
	logger.Info("websocket opened", "remote", r.RemoteAddr)
	defer logger.Info("websocket closed")

	// Reads only service control frames; any error ends the session.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := g.send(conn, newMessage(TypeInitial, name, initial)); err != nil {
		logger.Debug("send failed", "error", err)
		return
	}
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				g.send(conn, Message{Type: TypeError, PV: name, Value: "monitor ended"})
				return
			}
			if err := g.send(conn, eventMessage(ev)); err != nil {
				logger.Debug("send failed", "error", err)
				return
			}
		case <-ctx.Done():
			conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		}
	}
}

func eventMessage(ev wire.Event) Message {
	m := newMessage(TypeEvent, ev.Name, ev.Reading)
	m.Events = ev.Mask.String()
	return m
}

func (g *Gateway) send(conn *websocket.Conn, m Message) error {
	conn.SetWriteDeadline(time.Now().Add(g.cfg.WriteTimeout))
	return conn.WriteJSON(m)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps protocol statuses to HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var se *wire.StatusError
	if errors.As(err, &se) {
		switch se.Status {
		case wire.StatusNotFound:
			status = http.StatusNotFound
		case wire.StatusInvalidValue, wire.StatusInvalidRequest:
			status = http.StatusBadRequest
		case wire.StatusBusy:
			status = http.StatusServiceUnavailable
		}
	}
	http.Error(w, err.Error(), status)
}
