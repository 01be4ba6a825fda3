package beacon

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// AutoAddrList returns the IPv4 broadcast address of every interface that
// is up and supports broadcast. Loopback interfaces are skipped.
func AutoAddrList() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("list interfaces: %w", err)
	}

	var out []net.IP
	seen := make(map[string]bool)
	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagBroadcast == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}
		for _, a := range addrs {
			ipnet, ok := a.(*net.IPNet)
			if !ok {
				continue
			}
			bcast := BroadcastAddr(ipnet)
			if bcast == nil || seen[bcast.String()] {
				continue
			}
			seen[bcast.String()] = true
			out = append(out, bcast)
		}
	}
	return out, nil
}

// BroadcastAddr returns the directed broadcast address of an IPv4 network,
// or nil for IPv6 networks.
func BroadcastAddr(n *net.IPNet) net.IP {
	ip4 := n.IP.To4()
	if ip4 == nil {
		return nil
	}
	mask := n.Mask
	if len(mask) == net.IPv6len {
		mask = mask[12:]
	}
	if len(mask) != net.IPv4len {
		return nil
	}
	out := make(net.IP, net.IPv4len)
	for i := range ip4 {
		out[i] = ip4[i] | ^mask[i]
	}
	return out
}

// ParseAddrList parses a space-separated list of host[:port] entries.
// Entries without a port get defaultPort.
func ParseAddrList(s string, defaultPort int) ([]string, error) {
	var out []string
	for _, field := range strings.Fields(s) {
		host, port, err := net.SplitHostPort(field)
		if err != nil {
			// No port given.
			host, port = field, strconv.Itoa(defaultPort)
		}
		if host == "" {
			return nil, fmt.Errorf("invalid beacon address %q", field)
		}
		if n, err := strconv.Atoi(port); err != nil || n <= 0 || n > 65535 {
			return nil, fmt.Errorf("invalid beacon port in %q", field)
		}
		out = append(out, net.JoinHostPort(host, port))
	}
	return out, nil
}
