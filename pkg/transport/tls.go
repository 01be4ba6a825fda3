package transport

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
)

// ALPNProtocol is the ALPN identifier negotiated on TLS connections.
const ALPNProtocol = "softioc/1"

// TLS errors.
var (
	ErrNoCertificate = errors.New("server certificate is required")
	ErrNotTLS13      = errors.New("connection is not TLS 1.3")
	ErrWrongALPN     = errors.New("unexpected ALPN protocol")
)

// NewServerTLSConfig creates a TLS 1.3 server configuration. Clients are
// not asked for certificates.
func NewServerTLSConfig(cert tls.Certificate) (*tls.Config, error) {
	if len(cert.Certificate) == 0 {
		return nil, ErrNoCertificate
	}
	return &tls.Config{
		// TLS 1.3 only, no fallback
		MinVersion:   tls.VersionTLS13,
		MaxVersion:   tls.VersionTLS13,
		Certificates: []tls.Certificate{cert},
		NextProtos:   []string{ALPNProtocol},
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
		SessionTicketsDisabled: true,
	}, nil
}

// LoadServerTLSConfig reads a PEM certificate and key and returns a server
// configuration for them.
func LoadServerTLSConfig(certFile, keyFile string) (*tls.Config, error) {
	cert, err := tls.LoadX509KeyPair(certFile, keyFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load key pair: %w", err)
	}
	return NewServerTLSConfig(cert)
}

// ClientTLSOptions configures client-side TLS.
type ClientTLSOptions struct {
	// RootCAFile is a PEM bundle of trusted server certificates. Empty
	// means the system pool.
	RootCAFile string

	// ServerName overrides the name verified against the certificate.
	ServerName string

	// InsecureSkipVerify disables certificate verification. Tests only.
	InsecureSkipVerify bool
}

// NewClientTLSConfig creates a TLS 1.3 client configuration.
func NewClientTLSConfig(opts ClientTLSOptions) (*tls.Config, error) {
	var roots *x509.CertPool
	if opts.RootCAFile != "" {
		pem, err := os.ReadFile(opts.RootCAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read root CA file: %w", err)
		}
		roots = x509.NewCertPool()
		if !roots.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates found in %s", opts.RootCAFile)
		}
	}
	return &tls.Config{
		MinVersion:         tls.VersionTLS13,
		MaxVersion:         tls.VersionTLS13,
		RootCAs:            roots,
		ServerName:         opts.ServerName,
		NextProtos:         []string{ALPNProtocol},
		InsecureSkipVerify: opts.InsecureSkipVerify,
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
		},
		SessionTicketsDisabled: true,
	}, nil
}

// VerifyConnection checks that a handshake negotiated TLS 1.3 and the
// softioc ALPN protocol.
func VerifyConnection(state tls.ConnectionState) error {
	if state.Version != tls.VersionTLS13 {
		return fmt.Errorf("%w: version %x", ErrNotTLS13, state.Version)
	}
	if state.NegotiatedProtocol != ALPNProtocol {
		return fmt.Errorf("%w: %q", ErrWrongALPN, state.NegotiatedProtocol)
	}
	return nil
}
