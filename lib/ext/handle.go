package ext

import (
	"github.com/ValentinKolb/tKV/lib/tenant"
	"github.com/ValentinKolb/tKV/rpc/wire"
)

// NewHandle creates the data-access handle for an extension of the given tenant.
// The dynamic type of the returned handle implements exactly the interfaces the access
// level permits: DB for AccessNone, ReaderDB for AccessRead and WriterDB for AccessWrite.
func NewHandle(t *tenant.Tenant, access Access) DB {
	switch access {
	case AccessRead:
		return &readerDB{tenant: t}
	case AccessWrite:
		return &writerDB{readerDB{tenant: t}}
	default:
		return NullDB(t.ID())
	}
}

// --------------------------------------------------------------------------
// No access
// --------------------------------------------------------------------------

// NullDB is a handle without any data access. It is used for extensions that do not
// need storage and as the safe default.
type NullDB wire.TenantID

func (n NullDB) Tenant() wire.TenantID {
	return wire.TenantID(n)
}

// --------------------------------------------------------------------------
// Read access
// --------------------------------------------------------------------------

type readerDB struct {
	tenant *tenant.Tenant
}

func (r *readerDB) Tenant() wire.TenantID {
	return r.tenant.ID()
}

func (r *readerDB) Get(tableID wire.TableID, key []byte) ([]byte, bool, error) {
	table, ok := r.tenant.Table(tableID)
	if !ok {
		return nil, false, tenant.ErrTableDoesNotExist
	}
	value, ok := table.Get(key)
	if !ok {
		return nil, false, nil
	}

	// stored values are shared and immutable, extensions only ever see a copy
	valueCopy := make([]byte, len(value))
	copy(valueCopy, value)
	return valueCopy, true, nil
}

// --------------------------------------------------------------------------
// Read and write access
// --------------------------------------------------------------------------

type writerDB struct {
	readerDB
}

func (w *writerDB) Put(tableID wire.TableID, key, value []byte) error {
	table, ok := w.tenant.Table(tableID)
	if !ok {
		return tenant.ErrTableDoesNotExist
	}
	table.Put(key, value)
	return nil
}
