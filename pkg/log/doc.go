// Package log provides structured protocol logging for softioc.
//
// This package defines the Logger interface and Event types for capturing
// protocol-level events at the transport, wire and server layers. It is
// separate from operational logging (slog): protocol capture is a
// machine-readable trace of what crossed the wire and how connections,
// subscriptions and the server changed state.
//
// There is no package-level logger. Servers and engines receive a Logger
// at construction:
//
//	// Development: protocol events on the console
//	server.WithProtocolLogger(log.NewSlogAdapter(slog.Default()))
//
//	// Production: binary capture file
//	fl, _ := log.NewFileLogger("/var/log/softioc/ioc.plog")
//	server.WithProtocolLogger(fl)
//
//	// Both
//	server.WithProtocolLogger(log.NewMultiLogger(log.NewSlogAdapter(slog.Default()), fl))
//
// # File Format
//
// Capture files are a stream of CBOR-encoded Events. "pvctl log" prints
// them with optional filtering.
package log
