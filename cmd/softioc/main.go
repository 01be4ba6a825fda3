// Command softioc serves process variables loaded from a YAML database.
//
// Usage:
//
//	softioc [flags]
//
// Flags:
//
//	-config string     Configuration file path
//	-db string         PV database file (overrides server.database)
//	-log-level string  Log level: debug, info, warn, error (overrides logging.level)
//	-simulate          Add simulated PVs (heartbeat counter, sine wave)
//	-prefix string     Name prefix for simulated PVs (default "SIM:")
//
// Examples:
//
//	# Serve a database with default settings
//	softioc -db ioc.yaml
//
//	# Simulated PVs only, verbose
//	softioc -simulate -log-level debug
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/softioc/softioc-go/pkg/autosave"
	"github.com/softioc/softioc-go/pkg/client"
	"github.com/softioc/softioc-go/pkg/config"
	"github.com/softioc/softioc-go/pkg/gateway"
	plog "github.com/softioc/softioc-go/pkg/log"
	"github.com/softioc/softioc-go/pkg/metrics"
	prommetrics "github.com/softioc/softioc-go/pkg/metrics/prometheus"
	"github.com/softioc/softioc-go/pkg/pv"
	"github.com/softioc/softioc-go/pkg/pvdb"
	"github.com/softioc/softioc-go/pkg/server"
)

// Flags holds the command line.
type Flags struct {
	ConfigFile string
	Database   string
	LogLevel   string
	Simulate   bool
	Prefix     string
}

func parseFlags(args []string) (Flags, error) {
	var f Flags
	fs := flag.NewFlagSet("softioc", flag.ContinueOnError)
	fs.StringVar(&f.ConfigFile, "config", "", "Configuration file path")
	fs.StringVar(&f.Database, "db", "", "PV database file (overrides server.database)")
	fs.StringVar(&f.LogLevel, "log-level", "", "Log level: debug, info, warn, error")
	fs.BoolVar(&f.Simulate, "simulate", false, "Add simulated PVs")
	fs.StringVar(&f.Prefix, "prefix", "SIM:", "Name prefix for simulated PVs")
	err := fs.Parse(args)
	return f, err
}

func main() {
	flags, err := parseFlags(os.Args[1:])
	if err != nil {
		os.Exit(2)
	}
	if err := run(flags); err != nil {
		fmt.Fprintf(os.Stderr, "softioc: %v\n", err)
		os.Exit(1)
	}
}

func run(flags Flags) error {
	cfg, err := config.Load(flags.ConfigFile)
	if err != nil {
		return err
	}
	if flags.Database != "" {
		cfg.Server.Database = flags.Database
	}
	if flags.LogLevel != "" {
		cfg.Logging.Level = flags.LogLevel
	}

	logger, logCloser, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return err
	}
	defer logCloser.Close()

	vars, sim, err := loadVariables(cfg, flags)
	if err != nil {
		return err
	}
	logger.Info("process variables loaded", "count", len(vars))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := []server.Option{
		server.WithLogger(logger),
		server.WithConfiguration(cfg.Server.Options),
	}

	protoLog, closeProtoLog, err := protocolLogger(cfg, logger)
	if err != nil {
		return err
	}
	defer closeProtoLog()
	opts = append(opts, server.WithProtocolLogger(protoLog))

	if cfg.Metrics.Enabled {
		reg := metrics.NewRegistry()
		opts = append(opts, server.WithMetrics(prommetrics.NewEngineMetrics(reg)))
		msrv := metrics.NewServer(metrics.ServerConfig{Address: cfg.Metrics.Address, Port: cfg.Metrics.Port}, reg, logger)
		go func() {
			if err := msrv.Start(ctx); err != nil {
				logger.Error("metrics server", "error", err)
			}
		}()
	}

	var saver *autosave.Manager
	if cfg.Autosave.Enabled {
		store, err := autosave.NewStore(cfg.Autosave.Backend, cfg.Autosave.BackendOptions())
		if err != nil {
			return err
		}
		defer store.Close()
		saver = autosave.NewManager(store, vars, autosave.ManagerConfig{Period: cfg.Autosave.Period, Logger: logger})
		if _, err := saver.Restore(ctx); err != nil {
			logger.Warn("autosave restore failed", "error", err)
		}
	}

	srv, err := server.New(vars, opts...)
	if err != nil {
		return err
	}

	daemon := srv.StartAsDaemon(ctx)
	if err := daemon.WaitBound(ctx); err != nil {
		return err
	}
	logger.Info("softioc running", "addr", srv.Addr().String(), "pvs", len(vars))

	saveDone := make(chan struct{})
	if saver != nil {
		go func() {
			defer close(saveDone)
			if err := saver.Run(ctx); err != nil {
				logger.Error("final autosave failed", "error", err)
			}
		}()
	} else {
		close(saveDone)
	}

	if sim != nil {
		go sim.run(ctx, logger)
	}

	var httpSrv *http.Server
	if cfg.Gateway.Enabled {
		httpSrv, err = startGateway(ctx, cfg, srv, logger)
		if err != nil {
			logger.Error("gateway disabled", "error", err)
		}
	}

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case <-daemon.Done():
		logger.Error("server exited", "error", daemon.Err())
	}
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if httpSrv != nil {
		httpSrv.Shutdown(shutdownCtx)
	}
	select {
	case <-daemon.Done():
	case <-shutdownCtx.Done():
		return errors.New("shutdown timed out")
	}
	select {
	case <-saveDone:
	case <-shutdownCtx.Done():
		return errors.New("autosave timed out")
	}
	return daemon.Err()
}

// loadVariables builds the database and simulated variables.
func loadVariables(cfg *config.Config, flags Flags) ([]pv.ProcessVariable, *simulation, error) {
	var vars []pv.ProcessVariable
	if cfg.Server.Database != "" {
		loaded, err := pvdb.Load(cfg.Server.Database)
		if err != nil {
			return nil, nil, err
		}
		vars = append(vars, loaded...)
	}

	var sim *simulation
	if flags.Simulate {
		sim = newSimulation(flags.Prefix)
		vars = append(vars, sim.variables()...)
	}
	if len(vars) == 0 {
		return nil, nil, errors.New("no process variables: set -db, server.database or -simulate")
	}
	return vars, sim, nil
}

// protocolLogger returns the protocol event sink: the capture file when
// configured, and debug-level slog output.
func protocolLogger(cfg *config.Config, logger *slog.Logger) (plog.Logger, func(), error) {
	sinks := []plog.Logger{}
	closeFn := func() {}
	if logger.Enabled(context.Background(), slog.LevelDebug) {
		sinks = append(sinks, plog.NewSlogAdapter(logger))
	}
	if cfg.ProtocolLog.Path != "" {
		fl, err := plog.NewFileLogger(cfg.ProtocolLog.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("protocol log: %w", err)
		}
		sinks = append(sinks, fl)
		closeFn = func() { fl.Close() }
		logger.Info("protocol capture enabled", "path", fl.Path())
	}
	if len(sinks) == 0 {
		return plog.NoopLogger{}, closeFn, nil
	}
	return plog.NewMultiLogger(sinks...), closeFn, nil
}

// startGateway connects a client to the running server and serves the
// websocket bridge until ctx ends.
func startGateway(ctx context.Context, cfg *config.Config, srv *server.Server, logger *slog.Logger) (*http.Server, error) {
	cl, err := client.Dial(ctx, srv.Addr().String(), client.Config{Logger: logger})
	if err != nil {
		return nil, fmt.Errorf("gateway client: %w", err)
	}
	context.AfterFunc(ctx, func() { cl.Close() })

	httpSrv := &http.Server{
		Addr:              cfg.Gateway.Address,
		Handler:           gateway.New(cl, gateway.Config{Logger: logger}),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("gateway listening", "addr", cfg.Gateway.Address)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("gateway failed", "error", err)
		}
	}()
	return httpSrv, nil
}
