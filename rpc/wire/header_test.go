package wire

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetRequestLayout(t *testing.T) {
	b := NewGetRequest(7, 0x0102030405060708, 30)
	require.Len(t, b, GetRequestLen)

	// little endian layout, status reserved as pending
	assert.Equal(t, byte(OpGet), b[0])
	assert.Equal(t, byte(StatusPending), b[1])
	assert.Equal(t, []byte{7, 0, 0, 0}, b[4:8])
	assert.Equal(t, []byte{8, 7, 6, 5, 4, 3, 2, 1}, b[8:16])
	assert.Equal(t, []byte{30, 0}, b[16:18])

	h, err := AsGetRequest(b)
	require.NoError(t, err)
	assert.Equal(t, TenantID(7), h.Tenant())
	assert.Equal(t, TableID(0x0102030405060708), h.Table())
	assert.Equal(t, uint16(30), h.KeyLength())
	assert.Equal(t, OpGet, h.Common().OpCode())
}

func TestGetResponseMutatesInPlace(t *testing.T) {
	buf := append(NewGetResponse(3), 0xFF) // trailing byte must not be touched
	h, err := AsGetResponse(buf)
	require.NoError(t, err)

	h.SetStatus(StatusOk)
	h.SetValueLength(100)

	assert.Equal(t, byte(StatusOk), buf[1])
	assert.Equal(t, []byte{100, 0, 0, 0}, buf[8:12])
	assert.Equal(t, byte(0xFF), buf[12])
	assert.Equal(t, uint32(100), h.ValueLength())
	assert.Equal(t, StatusOk, h.Status())
}

func TestInvokeRequestLayout(t *testing.T) {
	b := NewInvokeRequest(1, 3, 513)
	h, err := AsInvokeRequest(b)
	require.NoError(t, err)

	assert.Equal(t, OpInvoke, h.Common().OpCode())
	assert.Equal(t, TenantID(1), h.Tenant())
	assert.Equal(t, uint32(3), h.NameLength())
	assert.Equal(t, uint32(513), h.ArgsLength())
}

func TestShortBuffersAreRejected(t *testing.T) {
	tests := []struct {
		name string
		fn   func([]byte) error
		size int
	}{
		{"common", func(b []byte) error { _, err := AsCommon(b); return err }, CommonHeaderLen},
		{"get request", func(b []byte) error { _, err := AsGetRequest(b); return err }, GetRequestLen},
		{"get response", func(b []byte) error { _, err := AsGetResponse(b); return err }, GetResponseLen},
		{"invoke request", func(b []byte) error { _, err := AsInvokeRequest(b); return err }, InvokeRequestLen},
		{"invoke response", func(b []byte) error { _, err := AsInvokeResponse(b); return err }, InvokeResponseLen},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, errors.Is(tt.fn(make([]byte, tt.size-1)), ErrShortHeader))
			assert.NoError(t, tt.fn(make([]byte, tt.size)))
		})
	}
}

func TestPeekOpCode(t *testing.T) {
	assert.Equal(t, OpGet, PeekOpCode(NewGetRequest(1, 1, 0)))
	assert.Equal(t, OpInvoke, PeekOpCode(NewInvokeRequest(1, 0, 0)))
	assert.Equal(t, OpInvalid, PeekOpCode([]byte{byte(OpGet)}))
	assert.False(t, OpCode(42).Valid())
}

func TestErrorResponse(t *testing.T) {
	b := NewErrorResponse(OpCode(42), 9, StatusUnsupportedOperation)
	h, err := AsCommon(b)
	require.NoError(t, err)

	assert.Equal(t, OpCode(42), h.OpCode())
	assert.Equal(t, TenantID(9), h.Tenant())
	assert.Equal(t, StatusUnsupportedOperation, h.Status())
}

func TestStatusErr(t *testing.T) {
	assert.NoError(t, StatusOk.Err())

	var se *StatusError
	require.True(t, errors.As(StatusTableDoesNotExist.Err(), &se))
	assert.Equal(t, StatusTableDoesNotExist, se.Status)
	assert.Contains(t, se.Error(), "table does not exist")
}
