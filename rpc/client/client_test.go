package client_test

import (
	"bytes"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/ValentinKolb/tKV/lib/ext"
	"github.com/ValentinKolb/tKV/lib/ext/builtin"
	"github.com/ValentinKolb/tKV/rpc/client"
	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/server"
	"github.com/ValentinKolb/tKV/rpc/transport/udp"
	"github.com/ValentinKolb/tKV/rpc/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// startServer runs a server with the default bootstrap plus a writable "put" extension
func startServer(t *testing.T) string {
	t.Helper()

	config := common.DefaultServerConfig()
	config.AdminEndpoint = ""
	config.LogLevel = "error"

	s := server.NewRPCServer(config, udp.NewUDPServerTransport(config.BufferSize, 4))
	require.NoError(t, s.Provision())
	require.NoError(t, s.Master().Extensions().Load("builtin:put", 1, "put", ext.WithAccess(ext.AccessWrite)))

	conn, err := net.ListenPacket("udp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- s.ServeConn(conn) }()
	t.Cleanup(func() {
		require.NoError(t, s.Close())
		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Error("server did not stop")
		}
	})
	return conn.LocalAddr().String()
}

func connect(t *testing.T, endpoint string) client.IClient {
	t.Helper()
	c, err := client.NewRPCClient(common.ClientConfig{
		Endpoint:      endpoint,
		TimeoutSecond: 5,
		RetryCount:    2,
	}, udp.NewUDPClientTransport())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func requireStatus(t *testing.T, err error, want wire.Status) {
	t.Helper()
	status, ok := client.StatusOf(err)
	require.True(t, ok, "expected a status error, got %v", err)
	assert.Equal(t, want, status)
}

func TestGetOverUDP(t *testing.T) {
	c := connect(t, startServer(t))

	value, err := c.Get(1, 1, bytes.Repeat([]byte{1}, 30))
	require.NoError(t, err)
	assert.Equal(t, bytes.Repeat([]byte{91}, 100), value)

	_, err = c.Get(1, 1, []byte("missing"))
	requireStatus(t, err, wire.StatusObjectDoesNotExist)

	_, err = c.Get(1, 2, []byte("missing"))
	requireStatus(t, err, wire.StatusTableDoesNotExist)

	_, err = c.Get(2, 1, []byte("missing"))
	requireStatus(t, err, wire.StatusTenantDoesNotExist)
}

func TestInvokeOverUDP(t *testing.T) {
	c := connect(t, startServer(t))

	require.NoError(t, c.Invoke(1, "get", nil))

	args, err := builtin.EncodeArgs(builtin.Args{Table: 1, Key: []byte("new"), Value: []byte("stored by put")})
	require.NoError(t, err)
	require.NoError(t, c.Invoke(1, "put", args))

	value, err := c.Get(1, 1, []byte("new"))
	require.NoError(t, err)
	assert.Equal(t, []byte("stored by put"), value)

	requireStatus(t, c.Invoke(1, "missing", nil), wire.StatusExtensionDoesNotExist)
	requireStatus(t, c.Invoke(1, "", nil), wire.StatusMalformedRequest)
	requireStatus(t, c.Invoke(3, "get", nil), wire.StatusTenantDoesNotExist)

	// put without arguments fails inside the extension
	requireStatus(t, c.Invoke(1, "put", nil), wire.StatusExtensionError)
}

func TestKeyTooLong(t *testing.T) {
	c := connect(t, startServer(t))
	_, err := c.Get(1, 1, make([]byte, 70000))
	assert.True(t, errors.Is(err, client.ErrKeyTooLong))
}

func TestStatusOf(t *testing.T) {
	_, ok := client.StatusOf(errors.New("timeout"))
	assert.False(t, ok)

	status, ok := client.StatusOf(wire.StatusInternalError.Err())
	assert.True(t, ok)
	assert.Equal(t, wire.StatusInternalError, status)
}
