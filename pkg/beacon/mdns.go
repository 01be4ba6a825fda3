package beacon

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"

	"github.com/softioc/softioc-go/pkg/wire"
)

// DNS-SD constants.
const (
	ServiceType = "_softioc._tcp"
	Domain      = "local."

	TXTKeyPVCount = "pvs"
	TXTKeyVersion = "ver"

	DefaultInstance    = "softioc"
	MaxInstanceNameLen = 63
)

// MDNSConfig configures an MDNSAnnouncer.
type MDNSConfig struct {
	// Instance is the DNS-SD instance name (default "softioc").
	Instance string

	// Port is the TCP port of the server.
	Port int

	// PVCount is published in the TXT record.
	PVCount int

	// Interface restricts advertising to one interface. Empty means all.
	Interface string

	// TTL for the records. Zero uses the zeroconf default.
	TTL time.Duration
}

// MDNSAnnouncer registers the server with DNS-SD.
type MDNSAnnouncer struct {
	config MDNSConfig

	mu     sync.Mutex
	server *zeroconf.Server
}

// NewMDNSAnnouncer creates an announcer. It does not register until Start.
func NewMDNSAnnouncer(config MDNSConfig) *MDNSAnnouncer {
	if config.Instance == "" {
		config.Instance = DefaultInstance
	}
	if len(config.Instance) > MaxInstanceNameLen {
		config.Instance = config.Instance[:MaxInstanceNameLen]
	}
	return &MDNSAnnouncer{config: config}
}

// Start registers the service.
func (a *MDNSAnnouncer) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		return ErrAlreadyStarted
	}

	var opts []zeroconf.ServerOption
	if a.config.TTL > 0 {
		opts = append(opts, zeroconf.TTL(uint32(a.config.TTL.Seconds())))
	}

	server, err := zeroconf.Register(
		a.config.Instance,
		ServiceType,
		Domain,
		a.config.Port,
		EncodeTXT(a.config.PVCount),
		interfaces(a.config.Interface),
		opts...,
	)
	if err != nil {
		return fmt.Errorf("failed to register mDNS service: %w", err)
	}
	a.server = server
	return nil
}

// Stop withdraws the service.
func (a *MDNSAnnouncer) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.server != nil {
		a.server.Shutdown()
		a.server = nil
	}
}

// UpdatePVCount republishes the TXT record with a new count.
func (a *MDNSAnnouncer) UpdatePVCount(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.config.PVCount = n
	if a.server != nil {
		a.server.SetText(EncodeTXT(n))
	}
}

// EncodeTXT builds the TXT record strings.
func EncodeTXT(pvCount int) []string {
	return []string{
		TXTKeyPVCount + "=" + strconv.Itoa(pvCount),
		TXTKeyVersion + "=" + strconv.Itoa(int(wire.ProtocolVersion)),
	}
}

// DecodeTXT parses TXT record strings. Unknown keys are ignored.
func DecodeTXT(txt []string) (pvCount int, version int, err error) {
	for _, kv := range txt {
		key, value, ok := strings.Cut(kv, "=")
		if !ok {
			continue
		}
		switch key {
		case TXTKeyPVCount:
			if pvCount, err = strconv.Atoi(value); err != nil {
				return 0, 0, fmt.Errorf("invalid %s: %q", TXTKeyPVCount, value)
			}
		case TXTKeyVersion:
			if version, err = strconv.Atoi(value); err != nil {
				return 0, 0, fmt.Errorf("invalid %s: %q", TXTKeyVersion, value)
			}
		}
	}
	return pvCount, version, nil
}

// Service is a server found by Browse.
type Service struct {
	Instance  string
	Host      string
	Port      int
	Addresses []string
	PVCount   int
	Version   int
}

// Browse looks for servers until ctx is done. Each instance is reported
// once.
func Browse(ctx context.Context, iface string) (<-chan Service, error) {
	entries := make(chan *zeroconf.ServiceEntry)
	removed := make(chan *zeroconf.ServiceEntry)
	out := make(chan Service)

	var opts []zeroconf.ClientOption
	if ifs := interfaces(iface); ifs != nil {
		opts = append(opts, zeroconf.SelectIfaces(ifs))
	}

	go func() {
		defer close(out)
		seen := make(map[string]bool)
		for {
			select {
			case entry, ok := <-entries:
				if !ok {
					return
				}
				if seen[entry.Instance] {
					continue
				}
				seen[entry.Instance] = true
				svc := Service{
					Instance: entry.Instance,
					Host:     entry.HostName,
					Port:     entry.Port,
				}
				svc.PVCount, svc.Version, _ = DecodeTXT(entry.Text)
				for _, ip := range entry.AddrIPv4 {
					svc.Addresses = append(svc.Addresses, ip.String())
				}
				for _, ip := range entry.AddrIPv6 {
					svc.Addresses = append(svc.Addresses, ip.String())
				}
				select {
				case out <- svc:
				case <-ctx.Done():
					return
				}
			case _, ok := <-removed:
				if !ok {
					removed = nil
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	go func() {
		_ = zeroconf.Browse(ctx, ServiceType, Domain, entries, removed, opts...)
	}()

	return out, nil
}

// interfaces returns the named interface, or nil for all interfaces.
func interfaces(name string) []net.Interface {
	if name == "" {
		return nil
	}
	iface, err := net.InterfaceByName(name)
	if err != nil {
		return nil
	}
	return []net.Interface{*iface}
}
