package commands

import (
	"context"
	"fmt"
	"io"
	"net"

	"github.com/softioc/softioc-go/pkg/beacon"
)

// RunDiscoverBeacons prints UDP beacons received on addr until ctx is done.
func RunDiscoverBeacons(ctx context.Context, addr string, w io.Writer) error {
	ch, local, err := beacon.Listen(ctx, addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "listening for beacons on %s\n", local)

	seen := make(map[string]uint32)
	for rx := range ch {
		host, _, _ := net.SplitHostPort(rx.From.String())
		server := net.JoinHostPort(host, fmt.Sprint(rx.Beacon.ServerPort))
		last, known := seen[server]
		seen[server] = rx.Beacon.Sequence
		if known && rx.Beacon.Sequence == last+1 {
			continue
		}
		fmt.Fprintf(w, "%-22s seq=%d pvs=%d version=%d\n",
			server, rx.Beacon.Sequence, rx.Beacon.PVCount, rx.Beacon.Version)
	}
	return nil
}

// RunDiscoverMDNS prints servers advertised over mDNS until ctx is done.
func RunDiscoverMDNS(ctx context.Context, iface string, w io.Writer) error {
	ch, err := beacon.Browse(ctx, iface)
	if err != nil {
		return err
	}
	for svc := range ch {
		fmt.Fprintf(w, "%-24s %s:%d pvs=%d addrs=%v\n",
			svc.Instance, svc.Host, svc.Port, svc.PVCount, svc.Addresses)
	}
	return nil
}
