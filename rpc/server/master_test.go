package server

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/ValentinKolb/tKV/lib/ext"
	"github.com/ValentinKolb/tKV/lib/ext/builtin"
	"github.com/ValentinKolb/tKV/lib/ext/mocks"
	"github.com/ValentinKolb/tKV/lib/provision"
	"github.com/ValentinKolb/tKV/lib/tenant"
	"github.com/ValentinKolb/tKV/rpc/packet"
	"github.com/ValentinKolb/tKV/rpc/wire"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// transport header used by all tests
var frameHeader = []byte{0xa1, 0xa2, 0xa3, 0xa4, 0xa5, 0xa6, 0xa7, 0xa8}

var (
	defaultKey   = bytes.Repeat([]byte{1}, 30)
	defaultValue = bytes.Repeat([]byte{91}, 100)
)

// newTestMaster returns a master provisioned with the default bootstrap
func newTestMaster(t *testing.T) *Master {
	t.Helper()
	registry := tenant.NewRegistry()
	manager := ext.NewManager()
	require.NoError(t, provision.Apply(provision.Default(), registry, manager))
	return NewMaster(registry, manager)
}

// newRequest builds a request parsed up to the transport header
func newRequest(t *testing.T, parts ...[]byte) *packet.Buffer {
	t.Helper()
	b := packet.New(4096)
	_, err := b.PushHeader(frameHeader)
	require.NoError(t, err)
	for _, p := range parts {
		require.NoError(t, b.AppendPayload(p))
	}
	return b
}

// newResponse builds an empty response positioned at the transport header
func newResponse(t *testing.T, capacity int) *packet.Buffer {
	t.Helper()
	b := packet.New(capacity)
	_, err := b.PushHeader(frameHeader)
	require.NoError(t, err)
	return b
}

// dispatch runs a request and returns the RPC part of the response
func dispatch(t *testing.T, m *Master, req *packet.Buffer, respCapacity int) []byte {
	t.Helper()
	resp := newResponse(t, respCapacity)

	gotReq, gotResp := m.Dispatch(req, resp)
	require.Same(t, req, gotReq)
	require.Same(t, resp, gotResp)

	// both buffers end at the transport header boundary
	assert.Equal(t, 1, gotReq.Depth())
	assert.Equal(t, 1, gotResp.Depth())
	assert.Equal(t, frameHeader, gotResp.Header())
	return gotResp.Payload()
}

func getRequest(tenantID wire.TenantID, tableID wire.TableID, key []byte) []byte {
	return wire.NewGetRequest(tenantID, tableID, uint16(len(key)))
}

// parseGetResponse splits a get response into header and value
func parseGetResponse(t *testing.T, rpc []byte) (wire.GetResponse, []byte) {
	t.Helper()
	hdr, err := wire.AsGetResponse(rpc)
	require.NoError(t, err)
	return hdr, rpc[wire.GetResponseLen:]
}

func invokeRequest(tenantID wire.TenantID, name string, args []byte) [][]byte {
	return [][]byte{wire.NewInvokeRequest(tenantID, uint32(len(name)), uint32(len(args))), []byte(name), args}
}

func invokeStatus(t *testing.T, m *Master, parts [][]byte) wire.Status {
	t.Helper()
	rpc := dispatch(t, m, newRequest(t, parts...), 1024)
	hdr, err := wire.AsInvokeResponse(rpc)
	require.NoError(t, err)
	assert.Len(t, rpc, wire.InvokeResponseLen, "invoke responses carry no payload")
	assert.Equal(t, wire.OpInvoke, hdr.Common().OpCode())
	return hdr.Status()
}

// --------------------------------------------------------------------------
// Get
// --------------------------------------------------------------------------

func TestGetProvisionedKey(t *testing.T) {
	m := newTestMaster(t)
	req := newRequest(t, getRequest(1, 1, defaultKey), defaultKey)

	hdr, value := parseGetResponse(t, dispatch(t, m, req, 1024))
	assert.Equal(t, wire.StatusOk, hdr.Status())
	assert.Equal(t, wire.OpGet, hdr.Common().OpCode())
	assert.Equal(t, wire.TenantID(1), hdr.Common().Tenant())
	assert.Equal(t, uint32(100), hdr.ValueLength())
	assert.Equal(t, defaultValue, value)
	assert.Equal(t, uint64(1), m.Metrics().Requests(wire.OpGet, wire.StatusOk))
}

func TestGetLookupMisses(t *testing.T) {
	m := newTestMaster(t)

	tests := []struct {
		name   string
		tenant wire.TenantID
		table  wire.TableID
		key    []byte
		want   wire.Status
	}{
		{"unknown tenant", 2, 1, defaultKey, wire.StatusTenantDoesNotExist},
		{"unknown table", 1, 2, defaultKey, wire.StatusTableDoesNotExist},
		{"unknown table other key", 1, 2, []byte("anything"), wire.StatusTableDoesNotExist},
		{"unknown key", 1, 1, []byte("missing"), wire.StatusObjectDoesNotExist},
		{"key prefix", 1, 1, defaultKey[:29], wire.StatusObjectDoesNotExist},
		{"empty key", 1, 1, nil, wire.StatusObjectDoesNotExist},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(t, getRequest(tt.tenant, tt.table, tt.key), tt.key)
			hdr, value := parseGetResponse(t, dispatch(t, m, req, 1024))
			assert.Equal(t, tt.want, hdr.Status())
			assert.Equal(t, uint32(0), hdr.ValueLength())
			assert.Empty(t, value, "payload is only present on success")
		})
	}
}

func TestGetKeyLengthExceedsPayload(t *testing.T) {
	m := newTestMaster(t)

	for _, short := range []int{0, 1, 29} {
		t.Run(fmt.Sprintf("%d of 30 bytes", short), func(t *testing.T) {
			req := newRequest(t, wire.NewGetRequest(1, 1, 30), defaultKey[:short])
			hdr, value := parseGetResponse(t, dispatch(t, m, req, 1024))
			assert.Equal(t, wire.StatusMalformedRequest, hdr.Status())
			assert.Empty(t, value)
		})
	}
}

func TestGetTrailingBytesAreIgnored(t *testing.T) {
	m := newTestMaster(t)
	req := newRequest(t, getRequest(1, 1, defaultKey), defaultKey, []byte("trailing"))

	hdr, value := parseGetResponse(t, dispatch(t, m, req, 1024))
	assert.Equal(t, wire.StatusOk, hdr.Status())
	assert.Equal(t, defaultValue, value)
}

func TestGetTruncatedHeader(t *testing.T) {
	m := newTestMaster(t)
	full := getRequest(1, 1, defaultKey)
	req := newRequest(t, full[:wire.GetRequestLen-1])

	rpc := dispatch(t, m, req, 1024)
	require.Len(t, rpc, wire.ErrorResponseLen)
	hdr := wire.Common(rpc)
	assert.Equal(t, wire.StatusMalformedRequest, hdr.Status())
	assert.Equal(t, wire.OpGet, hdr.OpCode())
	assert.Equal(t, wire.TenantID(1), hdr.Tenant())
}

func TestGetValueDoesNotFitIntoResponse(t *testing.T) {
	m := newTestMaster(t)
	req := newRequest(t, getRequest(1, 1, defaultKey), defaultKey)

	// room for the headers and half of the value
	capacity := len(frameHeader) + wire.GetResponseLen + 50
	hdr, value := parseGetResponse(t, dispatch(t, m, req, capacity))
	assert.Equal(t, wire.StatusInternalError, hdr.Status())
	assert.Equal(t, uint32(0), hdr.ValueLength())
	assert.Empty(t, value, "a failed append must not leave a partial value")
}

func TestPutThenGet(t *testing.T) {
	m := newTestMaster(t)
	table, err := m.Registry().Table(1, 1)
	require.NoError(t, err)

	entries := map[string][]byte{
		"":                  []byte("empty key"),
		"k":                 {},
		"binary\x00\xff":    {0, 1, 2, 3},
		string(defaultKey):  []byte("overwritten"),
		"large":             bytes.Repeat([]byte{7}, 3000),
		"another key":       []byte("value"),
		"\xff\xfe\xfd\xfc":  []byte("invalid utf-8 keys are fine"),
		"key with a length": bytes.Repeat([]byte("v"), 255),
	}

	for k, v := range entries {
		table.Put([]byte(k), v)
	}

	for k, v := range entries {
		req := newRequest(t, getRequest(1, 1, []byte(k)), []byte(k))
		hdr, value := parseGetResponse(t, dispatch(t, m, req, 4096))
		require.Equal(t, wire.StatusOk, hdr.Status(), "key %q", k)
		assert.Equal(t, uint32(len(value)), hdr.ValueLength())
		assert.True(t, bytes.Equal(v, value), "key %q", k)
	}
}

// --------------------------------------------------------------------------
// Invoke
// --------------------------------------------------------------------------

func TestInvokeProvisionedExtension(t *testing.T) {
	m := newTestMaster(t)
	assert.Equal(t, wire.StatusOk, invokeStatus(t, m, invokeRequest(1, "get", nil)))
}

func TestInvokeMalformed(t *testing.T) {
	m := newTestMaster(t)

	tests := []struct {
		name  string
		parts [][]byte
	}{
		{"args missing", [][]byte{wire.NewInvokeRequest(1, 3, 10), []byte("get"), []byte("short")}},
		{"name missing", [][]byte{wire.NewInvokeRequest(1, 3, 0), []byte("ge")}},
		{"length overflow", [][]byte{wire.NewInvokeRequest(1, 0xffffffff, 0xffffffff), []byte("get")}},
		{"empty name", invokeRequest(1, "", nil)},
		{"invalid utf-8", [][]byte{wire.NewInvokeRequest(1, 2, 0), {0xc3, 0x28}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, wire.StatusMalformedRequest, invokeStatus(t, m, tt.parts))
		})
	}
}

func TestInvokeTruncatedHeader(t *testing.T) {
	m := newTestMaster(t)
	full := wire.NewInvokeRequest(1, 3, 0)

	rpc := dispatch(t, m, newRequest(t, full[:wire.InvokeRequestLen-4]), 1024)
	require.Len(t, rpc, wire.ErrorResponseLen)
	assert.Equal(t, wire.StatusMalformedRequest, wire.Common(rpc).Status())
	assert.Equal(t, wire.OpInvoke, wire.Common(rpc).OpCode())
}

func TestInvokeUnknownTenantDoesNotCall(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := newTestMaster(t)

	// bound to a tenant that was never provisioned, any call fails the test
	mockExt := mocks.NewMockExtension(ctrl)
	require.NoError(t, m.Extensions().Register(mockExt, 9, "spy"))

	assert.Equal(t, wire.StatusTenantDoesNotExist, invokeStatus(t, m, invokeRequest(9, "spy", []byte("args"))))
}

func TestInvokeUnknownExtension(t *testing.T) {
	m := newTestMaster(t)
	assert.Equal(t, wire.StatusExtensionDoesNotExist, invokeStatus(t, m, invokeRequest(1, "missing", nil)))
}

func TestInvokeForwardsArguments(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := newTestMaster(t)

	mockExt := mocks.NewMockExtension(ctrl)
	require.NoError(t, m.Extensions().Register(mockExt, 1, "echo"))

	args := []byte{0, 1, 2, 0xff, 'a', 'r', 'g', 's'}
	mockExt.EXPECT().Invoke(gomock.Any(), args).DoAndReturn(func(db ext.DB, _ []byte) error {
		assert.Equal(t, wire.TenantID(1), db.Tenant())
		return nil
	})

	assert.Equal(t, wire.StatusOk, invokeStatus(t, m, invokeRequest(1, "echo", args)))
}

func TestInvokeHandleMatchesAccess(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := newTestMaster(t)

	writer := mocks.NewMockExtension(ctrl)
	require.NoError(t, m.Extensions().Register(writer, 1, "writer", ext.WithAccess(ext.AccessWrite)))
	writer.EXPECT().Invoke(gomock.Any(), gomock.Any()).DoAndReturn(func(db ext.DB, _ []byte) error {
		w, ok := db.(ext.WriterDB)
		require.True(t, ok)
		return w.Put(1, []byte("written"), []byte("by extension"))
	})

	none := mocks.NewMockExtension(ctrl)
	require.NoError(t, m.Extensions().Register(none, 1, "none"))
	none.EXPECT().Invoke(gomock.Any(), gomock.Any()).DoAndReturn(func(db ext.DB, _ []byte) error {
		_, isReader := db.(ext.ReaderDB)
		assert.False(t, isReader)
		return nil
	})

	assert.Equal(t, wire.StatusOk, invokeStatus(t, m, invokeRequest(1, "writer", nil)))
	assert.Equal(t, wire.StatusOk, invokeStatus(t, m, invokeRequest(1, "none", nil)))

	req := newRequest(t, getRequest(1, 1, []byte("written")), []byte("written"))
	hdr, value := parseGetResponse(t, dispatch(t, m, req, 1024))
	assert.Equal(t, wire.StatusOk, hdr.Status())
	assert.Equal(t, []byte("by extension"), value)
}

func TestInvokeExtensionFailures(t *testing.T) {
	ctrl := gomock.NewController(t)
	m := newTestMaster(t)

	failing := mocks.NewMockExtension(ctrl)
	require.NoError(t, m.Extensions().Register(failing, 1, "failing"))
	failing.EXPECT().Invoke(gomock.Any(), gomock.Any()).Return(errors.New("boom"))

	panicking := mocks.NewMockExtension(ctrl)
	require.NoError(t, m.Extensions().Register(panicking, 1, "panicking"))
	panicking.EXPECT().Invoke(gomock.Any(), gomock.Any()).Do(func(ext.DB, []byte) { panic("bug") })

	assert.Equal(t, wire.StatusExtensionError, invokeStatus(t, m, invokeRequest(1, "failing", nil)))
	assert.Equal(t, wire.StatusExtensionError, invokeStatus(t, m, invokeRequest(1, "panicking", nil)))

	// the builtin get reports a missing key as an extension error
	args, err := builtin.EncodeArgs(builtin.Args{Table: 1, Key: []byte("x")})
	require.NoError(t, err)
	assert.Equal(t, wire.StatusExtensionError, invokeStatus(t, m, invokeRequest(1, "get", args)))
}

// --------------------------------------------------------------------------
// Unsupported and malformed requests
// --------------------------------------------------------------------------

func TestUnsupportedOpcode(t *testing.T) {
	m := newTestMaster(t)

	for _, op := range []wire.OpCode{wire.OpInvalid, 3, 0x7f, 0xff} {
		t.Run(op.String()+fmt.Sprint(uint8(op)), func(t *testing.T) {
			rpcHeader := wire.NewErrorResponse(op, 1, wire.StatusPending)
			req := newRequest(t, rpcHeader, []byte("payload"))
			before := append([]byte(nil), req.Bytes()...)

			rpc := dispatch(t, m, req, 1024)

			assert.Equal(t, before, req.Bytes(), "the request must be byte-identical")
			require.Len(t, rpc, wire.ErrorResponseLen)
			hdr := wire.Common(rpc)
			assert.Equal(t, wire.StatusUnsupportedOperation, hdr.Status())
			assert.Equal(t, op, hdr.OpCode())
			assert.Equal(t, wire.TenantID(1), hdr.Tenant())
		})
	}
	assert.Equal(t, uint64(4), m.Metrics().Requests(wire.OpInvalid, wire.StatusUnsupportedOperation))
}

func TestRequestShorterThanCommonHeader(t *testing.T) {
	m := newTestMaster(t)

	for _, size := range []int{0, 1, wire.CommonHeaderLen - 1} {
		req := newRequest(t, bytes.Repeat([]byte{byte(wire.OpGet)}, size))
		rpc := dispatch(t, m, req, 1024)
		require.Len(t, rpc, wire.ErrorResponseLen)
		assert.Equal(t, wire.StatusMalformedRequest, wire.Common(rpc).Status())
	}
}

func TestResponseWithoutRoomForHeader(t *testing.T) {
	m := newTestMaster(t)
	req := newRequest(t, getRequest(1, 1, defaultKey), defaultKey)

	resp := newResponse(t, len(frameHeader)+4)
	_, resp = m.Dispatch(req, resp)
	assert.Equal(t, 1, resp.Depth())
	assert.Empty(t, resp.Payload())
	assert.Equal(t, uint64(1), m.Metrics().Requests(wire.OpGet, wire.StatusInternalError))
}

// --------------------------------------------------------------------------
// Concurrency
// --------------------------------------------------------------------------

func TestConcurrentDispatch(t *testing.T) {
	m := newTestMaster(t)
	table, _ := m.Registry().Table(1, 1)

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := make([]byte, 8)
				binary.LittleEndian.PutUint32(key, uint32(w))
				binary.LittleEndian.PutUint32(key[4:], uint32(i))
				table.Put(key, key)

				req := newRequest(t, getRequest(1, 1, key), key)
				resp := newResponse(t, 256)
				_, resp = m.Dispatch(req, resp)

				hdr, err := wire.AsGetResponse(resp.Payload())
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, wire.StatusOk, hdr.Status())
				assert.Equal(t, key, resp.Payload()[wire.GetResponseLen:])
			}
		}(w)
	}
	wg.Wait()
	assert.Equal(t, uint64(1600), m.Metrics().Requests(wire.OpGet, wire.StatusOk))
}
