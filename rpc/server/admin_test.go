package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ValentinKolb/tKV/lib/store"
	"github.com/ValentinKolb/tKV/rpc/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestAdminHealth(t *testing.T) {
	admin := NewAdminServer(newTestMaster(t))
	rec := get(t, admin.Routes(), "/healthz")
	require.Equal(t, http.StatusOK, rec.Code)

	var health HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Status)
	assert.Equal(t, admin.Instance(), health.Instance)
	assert.Len(t, health.Instance, 36)
}

func TestAdminTenants(t *testing.T) {
	admin := NewAdminServer(newTestMaster(t))
	h := admin.Routes()

	rec := get(t, h, "/tenants")
	require.Equal(t, http.StatusOK, rec.Code)

	var tenants []TenantInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tenants))
	require.Len(t, tenants, 1)
	assert.Equal(t, wire.TenantID(1), tenants[0].ID)
	assert.Equal(t, []TableInfo{{ID: 1, Entries: 1}}, tenants[0].Tables)
	require.Len(t, tenants[0].Extensions, 1)
	assert.Equal(t, "get", tenants[0].Extensions[0].Name)
	assert.Equal(t, "read", tenants[0].Extensions[0].Access)

	rec = get(t, h, "/tenants/1")
	require.Equal(t, http.StatusOK, rec.Code)
	var single TenantInfo
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &single))
	assert.Equal(t, tenants[0].Extensions, single.Extensions)
	require.Len(t, single.Tables, 1)
	require.NotNil(t, single.Tables[0].Stats, "a single tenant includes table statistics")
	assert.Equal(t, store.SizeSummary{Count: 1, Total: 30, Mean: 30, P50: 30, P99: 30, Max: 30}, single.Tables[0].Stats.Keys)
	assert.Equal(t, store.SizeSummary{Count: 1, Total: 100, Mean: 100, P50: 100, P99: 100, Max: 100}, single.Tables[0].Stats.Values)

	assert.Equal(t, http.StatusNotFound, get(t, h, "/tenants/2").Code)
	assert.Equal(t, http.StatusBadRequest, get(t, h, "/tenants/abc").Code)
}

func TestAdminMetrics(t *testing.T) {
	m := newTestMaster(t)
	req := newRequest(t, getRequest(1, 1, defaultKey), defaultKey)
	dispatch(t, m, req, 1024)

	h := NewAdminServer(m).Routes()

	rec := get(t, h, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `tkv_requests_total{opcode="get",status="ok"} 1`)
	assert.Contains(t, rec.Body.String(), `tkv_request_duration_seconds_bucket{opcode="get"`)

	rec = get(t, h, "/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	var stats map[string]map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &stats))
	assert.EqualValues(t, 1, stats["dispatch"]["count"])
}

// serveAdmin starts the admin api on a loopback listener and returns its address and the
// result channel of Serve
func serveAdmin(t *testing.T, admin *AdminServer) (string, <-chan error) {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	done := make(chan error, 1)
	go func() { done <- admin.Serve(l) }()
	return l.Addr().String(), done
}

func requireStopped(t *testing.T, addr string, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("admin api still serving after Shutdown")
	}

	client := &http.Client{Timeout: time.Second}
	_, err := client.Get("http://" + addr + "/healthz")
	assert.Error(t, err, "the listener must be closed")
}

func TestAdminShutdownRightAfterServe(t *testing.T) {
	admin := NewAdminServer(newTestMaster(t))
	addr, done := serveAdmin(t, admin)

	// Serve may not have started yet
	require.NoError(t, admin.Shutdown(context.Background()))
	requireStopped(t, addr, done)
}

func TestAdminShutdownWhileServing(t *testing.T) {
	admin := NewAdminServer(newTestMaster(t))
	addr, done := serveAdmin(t, admin)

	require.Eventually(t, func() bool {
		resp, err := http.Get("http://" + addr + "/healthz")
		if err != nil {
			return false
		}
		_ = resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, admin.Shutdown(context.Background()))
	requireStopped(t, addr, done)
}
