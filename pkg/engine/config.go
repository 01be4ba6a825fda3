package engine

import (
	"errors"
	"fmt"
	"net"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/softioc/softioc-go/pkg/beacon"
	"github.com/softioc/softioc-go/pkg/transport"
)

// Option keys accepted by Bind.
const (
	KeyServerAddr         = "server_addr"
	KeyServerPort         = "server_port"
	KeyMaxConnections     = "max_connections"
	KeyReusePort          = "reuse_port"
	KeyIgnoreAddrList     = "ignore_addr_list"
	KeyMaxArrayBytes      = "max_array_bytes"
	KeyBeaconAddrList     = "beacon_addr_list"
	KeyAutoBeaconAddrList = "auto_beacon_addr_list"
	KeyBeaconPort         = "beacon_port"
	KeyBeaconPeriod       = "beacon_period"
	KeyMDNSAdvertise      = "mdns_advertise"
	KeyMDNSInstance       = "mdns_instance"
	KeyTLSCertFile        = "tls_cert_file"
	KeyTLSKeyFile         = "tls_key_file"
)

// DefaultServerPort is the TCP port used when server_port is not set.
const DefaultServerPort = 5064

// ErrInvalidConfig is returned for option values that cannot be parsed.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the parsed form of the Bind option map.
type Config struct {
	ServerAddr      string
	ServerPort      int
	MaxConnections  int
	ReusePort       bool
	IgnoreAddrs     []net.IP
	MaxArrayBytes   int
	BeaconAddrs     []string
	AutoBeaconAddrs bool
	BeaconPort      int
	BeaconPeriod    time.Duration
	MDNSAdvertise   bool
	MDNSInstance    string
	TLSCertFile     string
	TLSKeyFile      string

	// Unknown lists keys that were not recognized, sorted.
	Unknown []string
}

// DefaultConfig returns the configuration used for an empty option map.
func DefaultConfig() Config {
	return Config{
		ServerPort:      DefaultServerPort,
		MaxArrayBytes:   transport.DefaultMaxArrayBytes,
		AutoBeaconAddrs: true,
		BeaconPort:      beacon.DefaultPort,
		BeaconPeriod:    beacon.DefaultPeriod,
		MDNSInstance:    beacon.DefaultInstance,
	}
}

// ParseConfig parses an option map over DefaultConfig. Unknown keys are
// recorded in Config.Unknown, not rejected.
func ParseConfig(opts map[string]string) (Config, error) {
	c := DefaultConfig()

	// Beacon addresses need the final beacon port.
	if v, ok := opts[KeyBeaconPort]; ok {
		n, err := parsePort(v, false)
		if err != nil {
			return Config{}, optionError(KeyBeaconPort, v, err)
		}
		c.BeaconPort = n
	}

	for key, value := range opts {
		var err error
		switch key {
		case KeyServerAddr:
			c.ServerAddr = strings.TrimSpace(value)
		case KeyServerPort:
			c.ServerPort, err = parsePort(value, true)
		case KeyMaxConnections:
			c.MaxConnections, err = parseNonNegative(value)
		case KeyReusePort:
			c.ReusePort, err = parseBool(value)
		case KeyIgnoreAddrList:
			c.IgnoreAddrs, err = parseIPList(value)
		case KeyMaxArrayBytes:
			c.MaxArrayBytes, err = parseNonNegative(value)
			if err == nil && c.MaxArrayBytes == 0 {
				err = errors.New("must be positive")
			}
		case KeyBeaconAddrList:
			// Parsed below once beacon_port is known.
		case KeyAutoBeaconAddrList:
			c.AutoBeaconAddrs, err = parseBool(value)
		case KeyBeaconPort:
			// Parsed above.
		case KeyBeaconPeriod:
			c.BeaconPeriod, err = parsePeriod(value)
		case KeyMDNSAdvertise:
			c.MDNSAdvertise, err = parseBool(value)
		case KeyMDNSInstance:
			c.MDNSInstance = strings.TrimSpace(value)
		case KeyTLSCertFile:
			c.TLSCertFile = strings.TrimSpace(value)
		case KeyTLSKeyFile:
			c.TLSKeyFile = strings.TrimSpace(value)
		default:
			c.Unknown = append(c.Unknown, key)
		}
		if err != nil {
			return Config{}, optionError(key, value, err)
		}
	}

	if v, ok := opts[KeyBeaconAddrList]; ok {
		addrs, err := beacon.ParseAddrList(v, c.BeaconPort)
		if err != nil {
			return Config{}, optionError(KeyBeaconAddrList, v, err)
		}
		c.BeaconAddrs = addrs
	}

	if (c.TLSCertFile == "") != (c.TLSKeyFile == "") {
		return Config{}, fmt.Errorf("%w: %s and %s must be set together", ErrInvalidConfig, KeyTLSCertFile, KeyTLSKeyFile)
	}

	sort.Strings(c.Unknown)
	return c, nil
}

// Address returns the listen address.
func (c Config) Address() string {
	return net.JoinHostPort(c.ServerAddr, strconv.Itoa(c.ServerPort))
}

func optionError(key, value string, err error) error {
	return fmt.Errorf("%w: %s=%q: %v", ErrInvalidConfig, key, value, err)
}

func parsePort(s string, allowZero bool) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 || n > 65535 || (n == 0 && !allowZero) {
		return 0, errors.New("port out of range")
	}
	return n, nil
}

func parseNonNegative(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("must not be negative")
	}
	return n, nil
}

// parseBool accepts strconv.ParseBool forms plus YES/NO.
func parseBool(s string) (bool, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "YES", "Y", "ON":
		return true, nil
	case "NO", "N", "OFF":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(s))
}

func parseIPList(s string) ([]net.IP, error) {
	var out []net.IP
	for _, field := range strings.Fields(s) {
		ip := net.ParseIP(field)
		if ip == nil {
			return nil, fmt.Errorf("not an IP address: %q", field)
		}
		out = append(out, ip)
	}
	return out, nil
}

// parsePeriod reads a period in seconds, fractional values allowed.
func parsePeriod(s string) (time.Duration, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, err
	}
	if f <= 0 {
		return 0, errors.New("must be positive")
	}
	return time.Duration(f * float64(time.Second)), nil
}
