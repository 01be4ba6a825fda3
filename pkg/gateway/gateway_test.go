package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/softioc/softioc-go/pkg/client"
	"github.com/softioc/softioc-go/pkg/engine"
	"github.com/softioc/softioc-go/pkg/gateway"
	"github.com/softioc/softioc-go/pkg/pv"
)

type fixture struct {
	temp *pv.Variable[float64]
	http *httptest.Server
}

func setup(t *testing.T, cfg gateway.Config) fixture {
	t.Helper()
	temp := pv.NewDouble("TEMP", 20)

	e := engine.New()
	require.NoError(t, e.RegisterVariable(temp))
	c, err := e.Bind(context.Background(), map[string]string{
		engine.KeyServerAddr:         "127.0.0.1",
		engine.KeyServerPort:         "0",
		engine.KeyAutoBeaconAddrList: "NO",
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Destroy() })

	cl, err := client.Dial(context.Background(), c.Addr().String(), client.Config{Timeout: 2 * time.Second})
	require.NoError(t, err)
	t.Cleanup(func() { cl.Close() })

	srv := httptest.NewServer(gateway.New(cl, cfg))
	t.Cleanup(srv.Close)
	return fixture{temp: temp, http: srv}
}

func readMessage(t *testing.T, conn *websocket.Conn) gateway.Message {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var m gateway.Message
	require.NoError(t, conn.ReadJSON(&m))
	return m
}

func TestWebsocketStreamsEvents(t *testing.T) {
	f := setup(t, gateway.Config{})

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws?pv=TEMP"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	initial := readMessage(t, conn)
	assert.Equal(t, gateway.TypeInitial, initial.Type)
	assert.Equal(t, "TEMP", initial.PV)
	assert.Equal(t, 20.0, initial.Value)

	f.temp.SetValue(25)
	f.temp.SetValue(26)

	first := readMessage(t, conn)
	assert.Equal(t, gateway.TypeEvent, first.Type)
	assert.Equal(t, 25.0, first.Value)
	assert.Equal(t, 26.0, readMessage(t, conn).Value)
}

func TestWebsocketUnknownPV(t *testing.T) {
	f := setup(t, gateway.Config{})

	url := "ws" + strings.TrimPrefix(f.http.URL, "http") + "/ws?pv=NOPE"
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestWebsocketMissingParameter(t *testing.T) {
	f := setup(t, gateway.Config{})

	resp, err := http.Get(f.http.URL + "/ws")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestReadEndpoint(t *testing.T) {
	f := setup(t, gateway.Config{})

	resp, err := http.Get(f.http.URL + "/pv/TEMP")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var m gateway.Message
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&m))
	assert.Equal(t, gateway.TypeReading, m.Type)
	assert.Equal(t, 20.0, m.Value)
	assert.Equal(t, "NO_ALARM", m.Severity)

	resp, err = http.Get(f.http.URL + "/pv/NOPE")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func put(t *testing.T, url, body string) int {
	t.Helper()
	req, err := http.NewRequest(http.MethodPut, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	return resp.StatusCode
}

func TestWriteEndpoint(t *testing.T) {
	t.Run("disabled", func(t *testing.T) {
		f := setup(t, gateway.Config{})
		assert.Equal(t, http.StatusForbidden, put(t, f.http.URL+"/pv/TEMP", `{"value": 1}`))
		assert.Equal(t, 20.0, f.temp.Value())
	})

	t.Run("enabled", func(t *testing.T) {
		f := setup(t, gateway.Config{AllowWrites: true})
		assert.Equal(t, http.StatusNoContent, put(t, f.http.URL+"/pv/TEMP", `{"value": 42.5}`))
		assert.Equal(t, 42.5, f.temp.Value())

		assert.Equal(t, http.StatusBadRequest, put(t, f.http.URL+"/pv/TEMP", `{"value": "hot"}`))
		assert.Equal(t, http.StatusBadRequest, put(t, f.http.URL+"/pv/TEMP", `not json`))
		assert.Equal(t, 42.5, f.temp.Value())
	})
}
