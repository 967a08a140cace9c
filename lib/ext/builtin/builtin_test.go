package builtin

import (
	"errors"
	"testing"

	"github.com/ValentinKolb/tKV/lib/ext"
	"github.com/ValentinKolb/tKV/lib/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) *tenant.Tenant {
	t.Helper()
	r := tenant.NewRegistry()
	tn := r.CreateTenant(1)
	table, err := r.CreateTable(1, 1)
	require.NoError(t, err)
	table.Put([]byte("present"), []byte("value"))
	return tn
}

func mustArgs(t *testing.T, args Args) []byte {
	t.Helper()
	b, err := EncodeArgs(args)
	require.NoError(t, err)
	return b
}

func TestArgsEncoding(t *testing.T) {
	in := Args{Table: 7, Key: []byte("k"), Value: []byte{0, 1}}
	out, err := DecodeArgs(mustArgs(t, in))
	require.NoError(t, err)
	assert.Equal(t, in, out)

	_, err = DecodeArgs([]byte{0xc1})
	assert.Error(t, err)
}

func TestGet(t *testing.T) {
	tn := setup(t)
	reader := ext.NewHandle(tn, ext.AccessRead)

	assert.NoError(t, get(ext.NullDB(1), nil), "get without args only acknowledges the call")
	assert.NoError(t, get(reader, mustArgs(t, Args{Table: 1, Key: []byte("present")})))

	err := get(reader, mustArgs(t, Args{Table: 1, Key: []byte("absent")}))
	assert.True(t, errors.Is(err, ErrNotFound))

	err = get(reader, mustArgs(t, Args{Table: 2, Key: []byte("present")}))
	assert.True(t, errors.Is(err, tenant.ErrTableDoesNotExist))

	err = get(ext.NullDB(1), mustArgs(t, Args{Table: 1, Key: []byte("present")}))
	assert.True(t, errors.Is(err, ErrAccessDenied))
}

func TestPut(t *testing.T) {
	tn := setup(t)
	args := mustArgs(t, Args{Table: 1, Key: []byte("new"), Value: []byte("v")})

	assert.True(t, errors.Is(put(ext.NewHandle(tn, ext.AccessRead), args), ErrAccessDenied))
	assert.True(t, errors.Is(put(ext.NewHandle(tn, ext.AccessWrite), nil), ErrMissingArgs))

	require.NoError(t, put(ext.NewHandle(tn, ext.AccessWrite), args))
	table, _ := tn.Table(1)
	v, ok := table.Get([]byte("new"))
	require.True(t, ok)
	assert.Equal(t, []byte("v"), v)
}

func TestRegistered(t *testing.T) {
	names := ext.Builtins()
	for _, name := range []string{"get", "put", "noop"} {
		assert.Contains(t, names, name)
	}
}
