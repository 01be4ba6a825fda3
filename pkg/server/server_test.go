package server_test

import (
	"context"
	"errors"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/softioc/softioc-go/pkg/client"
	"github.com/softioc/softioc-go/pkg/engine"
	"github.com/softioc/softioc-go/pkg/pv"
	"github.com/softioc/softioc-go/pkg/server"
	"github.com/softioc/softioc-go/pkg/server/mocks"
)

func localConfig() map[string]string {
	return map[string]string{
		engine.KeyServerAddr:         "127.0.0.1",
		engine.KeyServerPort:         "0",
		engine.KeyAutoBeaconAddrList: "NO",
	}
}

// blockingContext returns an engine context whose Run blocks until
// Shutdown is called.
func blockingContext(t *testing.T) *mocks.MockEngineContext {
	ectx := mocks.NewMockEngineContext(t)
	stopped := make(chan struct{})
	var once sync.Once

	ectx.EXPECT().Addr().Return(&net.TCPAddr{IP: net.IPv4(127, 0, 0, 1), Port: 5064}).Maybe()
	ectx.EXPECT().Run(time.Duration(0)).RunAndReturn(func(time.Duration) error {
		<-stopped
		return nil
	})
	ectx.EXPECT().Shutdown().RunAndReturn(func() error {
		once.Do(func() { close(stopped) })
		return nil
	})
	ectx.EXPECT().Destroy().Return(nil)
	return ectx
}

func mockEngine(t *testing.T) *mocks.MockEngine {
	eng := mocks.NewMockEngine(t)
	eng.EXPECT().RegisterVariable(mock.Anything).Return(nil)
	return eng
}

func waitDone(t *testing.T, d *server.Daemon) {
	t.Helper()
	select {
	case <-d.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("daemon did not finish")
	}
}

func TestNewRejectsInvalidSets(t *testing.T) {
	tests := []struct {
		name string
		vars []pv.ProcessVariable
	}{
		{"empty", nil},
		{"nil entry", []pv.ProcessVariable{pv.NewDouble("A", 0), nil}},
		{"no name", []pv.ProcessVariable{pv.NewDouble("", 0)}},
		{"duplicate", []pv.ProcessVariable{pv.NewDouble("A", 0), pv.NewString("A", "")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := server.New(tt.vars)
			assert.ErrorIs(t, err, server.ErrConstruction)
		})
	}
}

func TestNewRegisterFailure(t *testing.T) {
	eng := mocks.NewMockEngine(t)
	eng.EXPECT().RegisterVariable(mock.Anything).Return(errors.New("boom"))

	_, err := server.New([]pv.ProcessVariable{pv.NewDouble("A", 0)}, server.WithEngine(eng))
	assert.ErrorIs(t, err, server.ErrConstruction)
}

func TestNewRegistry(t *testing.T) {
	a := pv.NewDouble("A", 1)
	b := pv.NewString("B", "x")
	srv, err := server.New([]pv.ProcessVariable{b, a}, server.WithEngine(mockEngine(t)))
	require.NoError(t, err)

	assert.Equal(t, []string{"B", "A"}, srv.Names())
	got, ok := srv.Variable("A")
	require.True(t, ok)
	assert.Same(t, a, got)
	_, ok = srv.Variable("C")
	assert.False(t, ok)
	assert.Equal(t, server.StateIdle, srv.State())
	assert.Nil(t, srv.Addr())
}

func TestConfiguration(t *testing.T) {
	srv, err := server.New([]pv.ProcessVariable{pv.NewDouble("A", 0)},
		server.WithEngine(mockEngine(t)),
		server.WithConfiguration(map[string]string{engine.KeyServerPort: "6000"}))
	require.NoError(t, err)

	require.NoError(t, srv.Configure(engine.KeyMaxConnections, "4"))

	cfg := srv.Configuration()
	assert.Equal(t, "6000", cfg[engine.KeyServerPort])
	assert.Equal(t, "4", cfg[engine.KeyMaxConnections])

	cfg[engine.KeyServerPort] = "1"
	assert.Equal(t, "6000", srv.Configuration()[engine.KeyServerPort], "Configuration must return a copy")
}

func TestStartBindFailure(t *testing.T) {
	eng := mockEngine(t)
	eng.EXPECT().Bind(mock.Anything, mock.Anything).Return(nil, engine.ErrBind)

	srv, err := server.New([]pv.ProcessVariable{pv.NewDouble("A", 0)}, server.WithEngine(eng))
	require.NoError(t, err)

	err = srv.Start(context.Background())
	assert.ErrorIs(t, err, server.ErrStartup)
	assert.ErrorIs(t, err, engine.ErrBind)
	assert.Equal(t, server.StateIdle, srv.State())

	// Idle again, so configuration is mutable.
	assert.NoError(t, srv.Configure(engine.KeyServerPort, "0"))
}

func TestStartPassesConfiguration(t *testing.T) {
	var got map[string]string
	eng := mockEngine(t)
	eng.EXPECT().Bind(mock.Anything, mock.Anything).
		Run(func(_ context.Context, config map[string]string) { got = config }).
		Return(nil, errors.New("refused"))

	srv, err := server.New([]pv.ProcessVariable{pv.NewDouble("A", 0)},
		server.WithEngine(eng),
		server.WithConfiguration(localConfig()))
	require.NoError(t, err)

	_ = srv.Start(context.Background())
	assert.Equal(t, localConfig(), got)
}

func TestLifecycle(t *testing.T) {
	eng := mockEngine(t)
	ectx := blockingContext(t)
	eng.EXPECT().Bind(mock.Anything, mock.Anything).Return(ectx, nil).Once()

	srv, err := server.New([]pv.ProcessVariable{pv.NewDouble("A", 0)}, server.WithEngine(eng))
	require.NoError(t, err)

	assert.ErrorIs(t, srv.Stop(), server.ErrIllegalState, "stop before start")

	d := srv.StartAsDaemon(context.Background())
	require.NoError(t, d.WaitBound(context.Background()))
	assert.Equal(t, server.StateRunning, srv.State())
	assert.Equal(t, "127.0.0.1:5064", srv.Addr().String())

	assert.ErrorIs(t, srv.Start(context.Background()), server.ErrIllegalState)
	assert.ErrorIs(t, srv.Configure(engine.KeyServerPort, "1"), server.ErrIllegalState)

	require.NoError(t, srv.Stop())
	waitDone(t, d)
	assert.NoError(t, d.Err())
	assert.Equal(t, server.StateStopped, srv.State())
	assert.Nil(t, srv.Addr())

	assert.ErrorIs(t, srv.Stop(), server.ErrIllegalState, "second stop")
	assert.ErrorIs(t, srv.Start(context.Background()), server.ErrIllegalState, "restart")
}

func TestContextCancellationStops(t *testing.T) {
	eng := mockEngine(t)
	eng.EXPECT().Bind(mock.Anything, mock.Anything).Return(blockingContext(t), nil)

	srv, err := server.New([]pv.ProcessVariable{pv.NewDouble("A", 0)}, server.WithEngine(eng))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	d := srv.StartAsDaemon(ctx)
	require.NoError(t, <-d.Bound())

	cancel()
	waitDone(t, d)
	assert.NoError(t, d.Err())
	assert.Eventually(t, func() bool { return srv.State() == server.StateStopped },
		2*time.Second, 10*time.Millisecond)
}

func TestEngineTermination(t *testing.T) {
	failure := errors.New("listener lost")
	ectx := mocks.NewMockEngineContext(t)
	ectx.EXPECT().Addr().Return(nil).Maybe()
	ectx.EXPECT().Run(time.Duration(0)).Return(failure)
	ectx.EXPECT().Shutdown().Return(nil)
	ectx.EXPECT().Destroy().Return(nil)

	eng := mockEngine(t)
	eng.EXPECT().Bind(mock.Anything, mock.Anything).Return(ectx, nil)

	srv, err := server.New([]pv.ProcessVariable{pv.NewDouble("A", 0)}, server.WithEngine(eng))
	require.NoError(t, err)

	err = srv.Start(context.Background())
	assert.ErrorIs(t, err, failure)
	assert.Equal(t, server.StateStopped, srv.State())
}

func TestDaemonBindFailure(t *testing.T) {
	eng := mockEngine(t)
	eng.EXPECT().Bind(mock.Anything, mock.Anything).Return(nil, engine.ErrBind)

	srv, err := server.New([]pv.ProcessVariable{pv.NewDouble("A", 0)}, server.WithEngine(eng))
	require.NoError(t, err)

	d := srv.StartAsDaemon(context.Background())
	select {
	case err := <-d.Bound():
		assert.ErrorIs(t, err, server.ErrStartup)
	case <-time.After(2 * time.Second):
		t.Fatal("no bind result")
	}
	waitDone(t, d)
	assert.ErrorIs(t, d.Err(), server.ErrStartup)
	assert.ErrorIs(t, d.WaitBound(context.Background()), server.ErrStartup)
}

func TestServeWithEngine(t *testing.T) {
	temp := pv.NewDouble("TEMP", 21.5)
	srv, err := server.New([]pv.ProcessVariable{temp, pv.NewString("NAME", "ioc")},
		server.WithConfiguration(localConfig()))
	require.NoError(t, err)

	d := srv.StartAsDaemon(context.Background())
	require.NoError(t, d.WaitBound(context.Background()))
	t.Cleanup(func() {
		if srv.State() == server.StateRunning {
			srv.Stop()
		}
	})

	cl, err := client.Dial(context.Background(), srv.Addr().String(), client.Config{Timeout: 2 * time.Second})
	require.NoError(t, err)
	defer cl.Close()

	r, err := cl.Read(context.Background(), "TEMP")
	require.NoError(t, err)
	assert.Equal(t, 21.5, r.Value)

	require.NoError(t, cl.Write(context.Background(), "TEMP", 30.0))
	assert.Equal(t, 30.0, temp.Value())

	require.NoError(t, srv.Stop())
	waitDone(t, d)

	select {
	case <-cl.Done():
	case <-time.After(2 * time.Second):
		t.Error("client connection survived Stop")
	}
}
