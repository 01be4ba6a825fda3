// Command pvctl reads, writes and monitors process variables.
//
// Usage:
//
//	pvctl <command> [flags] [args]
//
// Commands:
//
//	get       Read one or more PVs
//	put       Write a PV
//	monitor   Print monitor events
//	info      Show PV type, count and description
//	shell     Interactive prompt
//	log       View a protocol capture file
//	discover  Listen for server beacons or mDNS advertisements
//
// Examples:
//
//	pvctl get -server 127.0.0.1:5064 TEMP
//	pvctl put TEMP 21.5
//	pvctl monitor -mask value,alarm TEMP PRESSURE
//	pvctl log -direction in softioc.plog
//	pvctl discover -mdns
package main

import (
	"context"
	"crypto/tls"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/softioc/softioc-go/cmd/pvctl/commands"
	"github.com/softioc/softioc-go/pkg/client"
	"github.com/softioc/softioc-go/pkg/log"
	"github.com/softioc/softioc-go/pkg/transport"
)

const usage = `pvctl - process variable client

Usage:
  pvctl <command> [flags] [args]

Commands:
  get       Read one or more PVs
  put       Write a PV
  monitor   Print monitor events
  info      Show PV type, count and description
  shell     Interactive prompt
  log       View a protocol capture file
  discover  Listen for server beacons or mDNS advertisements

Use "pvctl <command> -help" for more information about a command.
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cmd, args := os.Args[1], os.Args[2:]
	var err error
	switch cmd {
	case "get":
		err = runGet(ctx, args)
	case "put":
		err = runPut(ctx, args)
	case "monitor":
		err = runMonitor(ctx, args)
	case "info":
		err = runInfo(ctx, args)
	case "shell":
		err = runShell(ctx, args)
	case "log":
		err = runLog(args)
	case "discover":
		err = runDiscover(ctx, args)
	case "-h", "-help", "--help", "help":
		fmt.Print(usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// connFlags are shared by commands that talk to a server.
type connFlags struct {
	server   *string
	timeout  *time.Duration
	insecure *bool
	useTLS   *bool
}

func addConnFlags(fs *flag.FlagSet) connFlags {
	return connFlags{
		server:   fs.String("server", envOr("SOFTIOC_SERVER", "127.0.0.1:5064"), "Server address (env SOFTIOC_SERVER)"),
		timeout:  fs.Duration("timeout", client.DefaultTimeout, "Request timeout"),
		useTLS:   fs.Bool("tls", false, "Connect with TLS"),
		insecure: fs.Bool("insecure", false, "Skip TLS certificate verification"),
	}
}

func (f connFlags) dial(ctx context.Context) (*client.Client, error) {
	var tlsConf *tls.Config
	if *f.useTLS {
		var err error
		tlsConf, err = transport.NewClientTLSConfig(transport.ClientTLSOptions{InsecureSkipVerify: *f.insecure})
		if err != nil {
			return nil, err
		}
	}
	return client.Dial(ctx, *f.server, client.Config{TLSConfig: tlsConf, Timeout: *f.timeout})
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func newFlagSet(name, synopsis string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "pvctl %s\n\nUsage:\n  pvctl %s\n\nFlags:\n", name, synopsis)
		fs.PrintDefaults()
	}
	return fs
}

func runGet(ctx context.Context, args []string) error {
	fs := newFlagSet("get", "get [flags] <pv>...")
	conn := addConnFlags(fs)
	fs.Parse(args)
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}
	c, err := conn.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return commands.RunGet(ctx, c, fs.Args(), os.Stdout)
}

func runPut(ctx context.Context, args []string) error {
	fs := newFlagSet("put", "put [flags] <pv> <value>")
	conn := addConnFlags(fs)
	fs.Parse(args)
	if fs.NArg() < 2 {
		fs.Usage()
		os.Exit(1)
	}
	c, err := conn.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return commands.RunPut(ctx, c, fs.Arg(0), fs.Arg(1), os.Stdout)
}

func runInfo(ctx context.Context, args []string) error {
	fs := newFlagSet("info", "info [flags] <pv>...")
	conn := addConnFlags(fs)
	fs.Parse(args)
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}
	c, err := conn.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return commands.RunInfo(ctx, c, fs.Args(), os.Stdout)
}

func runMonitor(ctx context.Context, args []string) error {
	fs := newFlagSet("monitor", "monitor [flags] <pv>...")
	conn := addConnFlags(fs)
	maskFlag := fs.String("mask", "value,alarm", "Event kinds: value, log, alarm")
	count := fs.Int("n", 0, "Stop after n events (0: until interrupted)")
	fs.Parse(args)
	if fs.NArg() == 0 {
		fs.Usage()
		os.Exit(1)
	}
	mask, err := commands.ParseMask(*maskFlag)
	if err != nil {
		return err
	}
	c, err := conn.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return commands.RunMonitor(ctx, c, fs.Args(), mask, *count, os.Stdout)
}

func runShell(ctx context.Context, args []string) error {
	fs := newFlagSet("shell", "shell [flags]")
	conn := addConnFlags(fs)
	fs.Parse(args)
	c, err := conn.dial(ctx)
	if err != nil {
		return err
	}
	defer c.Close()
	return commands.NewShell(c, *conn.timeout).Run(ctx)
}

func runLog(args []string) error {
	fs := newFlagSet("log", "log [flags] <file>")
	layer := fs.String("layer", "", "Filter by layer (transport, wire, server)")
	direction := fs.String("direction", "", "Filter by direction (in, out)")
	connID := fs.String("conn-id", "", "Filter by connection ID")
	pvName := fs.String("pv", "", "Filter by PV name")
	pvPrefix := fs.String("pv-prefix", "", "Filter by PV name prefix")
	op := fs.String("op", "", "Filter by operation (search, read, write, subscribe, unsubscribe)")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fs.Usage()
		os.Exit(1)
	}

	filter := log.Filter{ConnectionID: *connID, PVName: *pvName, PVPrefix: *pvPrefix}
	if *op != "" {
		o, err := commands.ParseOperationFlag(*op)
		if err != nil {
			return err
		}
		filter.Operation = &o
	}
	if *layer != "" {
		l, err := commands.ParseLayerFlag(*layer)
		if err != nil {
			return err
		}
		filter.Layer = &l
	}
	if *direction != "" {
		d, err := commands.ParseDirectionFlag(*direction)
		if err != nil {
			return err
		}
		filter.Direction = &d
	}
	return commands.RunLog(fs.Arg(0), filter, os.Stdout)
}

func runDiscover(ctx context.Context, args []string) error {
	fs := newFlagSet("discover", "discover [flags]")
	mdns := fs.Bool("mdns", false, "Browse mDNS instead of listening for UDP beacons")
	addr := fs.String("addr", ":5065", "UDP beacon listen address")
	iface := fs.String("iface", "", "mDNS interface (default: all)")
	duration := fs.Duration("duration", 0, "Stop after this long (0: until interrupted)")
	fs.Parse(args)

	if *duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *duration)
		defer cancel()
	}
	if *mdns {
		return commands.RunDiscoverMDNS(ctx, *iface, os.Stdout)
	}
	return commands.RunDiscoverBeacons(ctx, *addr, os.Stdout)
}
