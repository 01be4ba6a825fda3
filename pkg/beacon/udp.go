package beacon

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/softioc/softioc-go/pkg/timestamp"
	"github.com/softioc/softioc-go/pkg/wire"
)

// UDPConfig configures a UDPAnnouncer.
type UDPConfig struct {
	// Addrs are host:port destinations.
	Addrs []string

	// Period between beacons (default 15s).
	Period time.Duration

	// ServerPort is the TCP port carried in each beacon.
	ServerPort uint16

	// PVCount is the number of served variables.
	PVCount int

	// Clock stamps beacons (default SystemClock).
	Clock timestamp.Clock

	// Logger for send failures (optional).
	Logger *slog.Logger
}

// UDPAnnouncer sends periodic beacon datagrams.
type UDPAnnouncer struct {
	config UDPConfig

	mu       sync.Mutex
	conn     net.PacketConn
	dests    []*net.UDPAddr
	sequence uint32
	cancel   context.CancelFunc
	wg       sync.WaitGroup
}

// NewUDPAnnouncer creates an announcer. It does not send until Start.
func NewUDPAnnouncer(config UDPConfig) *UDPAnnouncer {
	if config.Period <= 0 {
		config.Period = DefaultPeriod
	}
	if config.Clock == nil {
		config.Clock = timestamp.SystemClock{}
	}
	if config.Logger == nil {
		config.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &UDPAnnouncer{config: config}
}

// Start resolves the destinations, sends the first beacon and schedules
// the rest.
func (a *UDPAnnouncer) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.cancel != nil {
		return ErrAlreadyStarted
	}
	if len(a.config.Addrs) == 0 {
		return ErrNoAddresses
	}

	dests := make([]*net.UDPAddr, 0, len(a.config.Addrs))
	for _, addr := range a.config.Addrs {
		ua, err := net.ResolveUDPAddr("udp4", addr)
		if err != nil {
			return fmt.Errorf("resolve beacon address %q: %w", addr, err)
		}
		dests = append(dests, ua)
	}

	lc := net.ListenConfig{Control: broadcastControl}
	conn, err := lc.ListenPacket(ctx, "udp4", ":0")
	if err != nil {
		return fmt.Errorf("open beacon socket: %w", err)
	}
	a.conn = conn
	a.dests = dests

	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.sendLocked()

	a.wg.Add(1)
	go a.loop(runCtx)
	return nil
}

// Stop ends the beacon loop and closes the socket.
func (a *UDPAnnouncer) Stop() {
	a.mu.Lock()
	cancel := a.cancel
	a.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	a.wg.Wait()

	a.mu.Lock()
	if a.conn != nil {
		a.conn.Close()
		a.conn = nil
	}
	a.mu.Unlock()
}

// Sequence returns the number of beacons sent so far.
func (a *UDPAnnouncer) Sequence() uint32 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sequence
}

func (a *UDPAnnouncer) loop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.Period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.mu.Lock()
			a.sendLocked()
			a.mu.Unlock()
		}
	}
}

func (a *UDPAnnouncer) sendLocked() {
	data, err := wire.EncodeBeacon(&wire.Beacon{
		Version:    wire.ProtocolVersion,
		Sequence:   a.sequence,
		ServerPort: a.config.ServerPort,
		Stamp:      timestamp.FromTime(a.config.Clock.Now()),
		PVCount:    a.config.PVCount,
	})
	if err != nil {
		a.config.Logger.Error("encode beacon", "error", err)
		return
	}
	a.sequence++

	for _, dest := range a.dests {
		if _, err := a.conn.WriteTo(data, dest); err != nil {
			a.config.Logger.Debug("beacon send failed", "dest", dest.String(), "error", err)
		}
	}
}

// Received is a beacon seen by a Listener.
type Received struct {
	From   net.Addr
	Beacon *wire.Beacon
}

// Listen receives beacons on addr until ctx is cancelled. Undecodable
// datagrams are skipped. The returned channel is closed when listening
// ends.
func Listen(ctx context.Context, addr string) (<-chan Received, net.Addr, error) {
	lc := net.ListenConfig{}
	conn, err := lc.ListenPacket(ctx, "udp4", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("listen for beacons: %w", err)
	}

	out := make(chan Received)
	go func() {
		<-ctx.Done()
		conn.Close()
	}()
	go func() {
		defer close(out)
		buf := make([]byte, 1500)
		for {
			n, from, err := conn.ReadFrom(buf)
			if err != nil {
				return
			}
			b, err := wire.DecodeBeacon(buf[:n])
			if err != nil {
				continue
			}
			select {
			case out <- Received{From: from, Beacon: b}:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, conn.LocalAddr(), nil
}
