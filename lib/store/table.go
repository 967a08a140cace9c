package store

import (
	"unsafe"

	"github.com/puzpuzpuz/xsync/v3"
)

type tableImpl struct {
	data *xsync.MapOf[string, []byte]
}

// NewTable creates a new, empty in-memory table.
//
// The table is backed by a xsync.MapOf, reads never block and writes only lock the
// bucket of the written key, so provisioning writes can run concurrently with lookups.
func NewTable() ITable {
	return &tableImpl{
		data: xsync.NewMapOf[string, []byte](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (t *tableImpl) Get(key []byte) ([]byte, bool) {
	return t.data.Load(lookupKey(key))
}

func (t *tableImpl) Put(key, value []byte) {
	// Copy value to prevent memory corruption if the caller reuses its buffer
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)

	// string(key) allocates a copy, the stored key is therefore independent of the caller
	t.data.Store(string(key), valueCopy)
}

func (t *tableImpl) Len() int {
	return t.data.Size()
}

func (t *tableImpl) Range(fn func(key, value []byte) bool) {
	t.data.Range(func(k string, v []byte) bool {
		return fn([]byte(k), v)
	})
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// lookupKey converts key to a string without copying.
// The result must only be used for lookups and never be stored, since it aliases key.
func lookupKey(key []byte) string {
	if len(key) == 0 {
		return ""
	}
	return unsafe.String(unsafe.SliceData(key), len(key))
}
