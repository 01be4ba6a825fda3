package softioc_test

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/softioc/softioc-go/pkg/autosave"
	"github.com/softioc/softioc-go/pkg/client"
	"github.com/softioc/softioc-go/pkg/engine"
	"github.com/softioc/softioc-go/pkg/pv"
	"github.com/softioc/softioc-go/pkg/pvdb"
	"github.com/softioc/softioc-go/pkg/server"
	"github.com/softioc/softioc-go/pkg/transport"
)

const testDB = `
records:
  - name: TEST:SETPOINT
    type: double
    value: 20.5
    description: Heater setpoint
  - name: TEST:MODE
    type: string
    value: auto
  - name: TEST:COUNT
    type: long
    value: 0
  - name: TEST:PROFILE
    type: double_array
    count: 4
`

func startServer(t *testing.T, vars []pv.ProcessVariable, extra map[string]string) (*server.Server, string) {
	t.Helper()
	config := map[string]string{
		engine.KeyServerAddr:         "127.0.0.1",
		engine.KeyServerPort:         "0",
		engine.KeyAutoBeaconAddrList: "NO",
	}
	for k, v := range extra {
		config[k] = v
	}

	srv, err := server.New(vars, server.WithConfiguration(config))
	if err != nil {
		t.Fatalf("Failed to create server: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	daemon := srv.StartAsDaemon(context.Background())
	if err := daemon.WaitBound(ctx); err != nil {
		t.Fatalf("Server did not bind: %v", err)
	}
	t.Cleanup(func() {
		if err := srv.Stop(); err != nil {
			t.Errorf("Stop: %v", err)
		}
		<-daemon.Done()
	})
	return srv, srv.Addr().String()
}

func dial(t *testing.T, addr string, cfg client.Config) *client.Client {
	t.Helper()
	cfg.Timeout = 2 * time.Second
	c, err := client.Dial(context.Background(), addr, cfg)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

// TestE2E_ReadWriteTLS serves a YAML database over TLS and reads and
// writes every type.
func TestE2E_ReadWriteTLS(t *testing.T) {
	certFile, keyFile := writeSelfSignedCert(t, "localhost")

	vars, err := pvdb.Parse([]byte(testDB))
	if err != nil {
		t.Fatalf("Failed to parse database: %v", err)
	}
	_, addr := startServer(t, vars, map[string]string{
		engine.KeyTLSCertFile: certFile,
		engine.KeyTLSKeyFile:  keyFile,
	})

	tlsConf, err := transport.NewClientTLSConfig(transport.ClientTLSOptions{
		RootCAFile: certFile,
		ServerName: "localhost",
	})
	if err != nil {
		t.Fatalf("Failed to create client TLS config: %v", err)
	}
	c := dial(t, addr, client.Config{TLSConfig: tlsConf})
	ctx := context.Background()

	info, err := c.Search(ctx, "TEST:PROFILE")
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if info.Type != pv.TypeDoubleArray || info.Count != 4 {
		t.Errorf("TEST:PROFILE info = %+v", info)
	}

	writes := []struct {
		name  string
		value any
	}{
		{"TEST:SETPOINT", 22.25},
		{"TEST:MODE", "manual"},
		{"TEST:COUNT", int64(42)},
		{"TEST:PROFILE", []float64{1, 2, 3, 4}},
	}
	for _, w := range writes {
		if err := c.Write(ctx, w.name, w.value); err != nil {
			t.Fatalf("Write %s failed: %v", w.name, err)
		}
	}

	r, err := c.Read(ctx, "TEST:SETPOINT")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if got, ok := r.Value.(float64); !ok || got != 22.25 {
		t.Errorf("TEST:SETPOINT = %v (%T), want 22.25", r.Value, r.Value)
	}
	if r.Timestamp.IsZero() {
		t.Error("reading has a zero timestamp")
	}

	r, err = c.Read(ctx, "TEST:MODE")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if r.Value != "manual" {
		t.Errorf("TEST:MODE = %v, want manual", r.Value)
	}

	if err := c.Write(ctx, "TEST:PROFILE", []float64{1, 2, 3, 4, 5}); err == nil {
		t.Error("oversized array write succeeded")
	}
}

// TestE2E_SubscribeNotify checks that a server-side SetValue reaches a
// monitoring client with the committed value.
func TestE2E_SubscribeNotify(t *testing.T) {
	count := pv.NewLong("TEST:COUNT", 0)
	_, addr := startServer(t, []pv.ProcessVariable{count}, nil)
	c := dial(t, addr, client.Config{})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	sub, err := c.Subscribe(ctx, "TEST:COUNT", pv.EventValue)
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	if !count.Interested() {
		t.Fatal("variable not interested after subscribe")
	}

	before := time.Now()
	for i := int32(1); i <= 3; i++ {
		count.SetValue(i)
	}

	for want := int64(1); want <= 3; want++ {
		select {
		case ev := <-sub.Events():
			if got := toInt64(ev.Reading.Value); got != want {
				t.Errorf("event value = %v, want %d", ev.Reading.Value, want)
			}
			if ev.Reading.Timestamp.Time().Before(before.Add(-time.Second)) {
				t.Errorf("event timestamp %v predates update", ev.Reading.Timestamp)
			}
		case <-ctx.Done():
			t.Fatalf("timed out waiting for event %d", want)
		}
	}

	if err := sub.Cancel(ctx); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for count.Interested() && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if count.Interested() {
		t.Error("variable still interested after cancel")
	}
}

// TestE2E_AutosaveRestart saves values written by a client and restores
// them into a fresh database.
func TestE2E_AutosaveRestart(t *testing.T) {
	path := filepath.Join(t.TempDir(), "autosave.json")
	ctx := context.Background()

	vars, err := pvdb.Parse([]byte(testDB))
	if err != nil {
		t.Fatalf("Failed to parse database: %v", err)
	}
	_, addr := startServer(t, vars, nil)
	c := dial(t, addr, client.Config{})
	if err := c.Write(ctx, "TEST:SETPOINT", 18.0); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	mgr := autosave.NewManager(autosave.NewFileStore(path), vars, autosave.ManagerConfig{})
	if err := mgr.Save(ctx); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	fresh, err := pvdb.Parse([]byte(testDB))
	if err != nil {
		t.Fatalf("Failed to parse database: %v", err)
	}
	n, err := autosave.NewManager(autosave.NewFileStore(path), fresh, autosave.ManagerConfig{}).Restore(ctx)
	if err != nil {
		t.Fatalf("Restore failed: %v", err)
	}
	if n != len(fresh) {
		t.Errorf("restored %d values, want %d", n, len(fresh))
	}

	_, addr = startServer(t, fresh, nil)
	c = dial(t, addr, client.Config{})
	r, err := c.Read(ctx, "TEST:SETPOINT")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if r.Value != 18.0 {
		t.Errorf("restored TEST:SETPOINT = %v, want 18", r.Value)
	}
}

func toInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case uint64:
		return int64(x)
	case float64:
		return int64(x)
	default:
		return -1
	}
}

// writeSelfSignedCert writes a PEM certificate and key for commonName and
// 127.0.0.1 to a temp dir.
func writeSelfSignedCert(t *testing.T, commonName string) (certFile, keyFile string) {
	t.Helper()
	priv, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate key: %v", err)
	}

	template := x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject: pkix.Name{
			CommonName: commonName,
		},
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(24 * time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature | x509.KeyUsageCertSign,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  true,
		IPAddresses:           []net.IP{net.ParseIP("127.0.0.1")},
		DNSNames:              []string{commonName},
	}
	certDER, err := x509.CreateCertificate(rand.Reader, &template, &template, &priv.PublicKey, priv)
	if err != nil {
		t.Fatalf("Failed to create certificate: %v", err)
	}
	keyDER, err := x509.MarshalECPrivateKey(priv)
	if err != nil {
		t.Fatalf("Failed to marshal key: %v", err)
	}

	dir := t.TempDir()
	certFile = filepath.Join(dir, "server.crt")
	keyFile = filepath.Join(dir, "server.key")
	if err := os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: certDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600); err != nil {
		t.Fatal(err)
	}
	return certFile, keyFile
}
