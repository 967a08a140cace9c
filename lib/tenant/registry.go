package tenant

import (
	"errors"
	"fmt"
	"sort"

	"github.com/ValentinKolb/tKV/lib/store"
	"github.com/ValentinKolb/tKV/rpc/wire"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("store")

var (
	// ErrTenantDoesNotExist is returned when a tenant id is not provisioned
	ErrTenantDoesNotExist = errors.New("tenant does not exist")
	// ErrTableDoesNotExist is returned when a tenant exists but has no table with the given id
	ErrTableDoesNotExist = errors.New("table does not exist")
)

// --------------------------------------------------------------------------
// Tenant
// --------------------------------------------------------------------------

// Tenant is the isolated namespace of a single tenant. It owns its tables.
type Tenant struct {
	id     wire.TenantID
	tables *xsync.MapOf[wire.TableID, store.ITable]
}

func newTenant(id wire.TenantID) *Tenant {
	return &Tenant{
		id:     id,
		tables: xsync.NewMapOf[wire.TableID, store.ITable](),
	}
}

// ID returns the id of the tenant.
func (t *Tenant) ID() wire.TenantID {
	return t.id
}

// Table returns the table with the given id.
func (t *Tenant) Table(id wire.TableID) (store.ITable, bool) {
	return t.tables.Load(id)
}

// TableIDs returns the ids of all tables of the tenant in ascending order.
func (t *Tenant) TableIDs() []wire.TableID {
	ids := make([]wire.TableID, 0, t.tables.Size())
	t.tables.Range(func(id wire.TableID, _ store.ITable) bool {
		ids = append(ids, id)
		return true
	})
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// createTable returns the table with the given id, creating an empty one if needed
func (t *Tenant) createTable(id wire.TableID) (store.ITable, bool) {
	table, loaded := t.tables.LoadOrCompute(id, func() store.ITable {
		return store.NewTable()
	})
	return table, !loaded
}

// --------------------------------------------------------------------------
// Registry
// --------------------------------------------------------------------------

// Registry maps tenant ids to tenants.
//
// Lookups are served from xsync.MapOf instances on both levels (tenants and tables),
// they never take a lock. Creation of tenants and tables is atomic per id, so
// provisioning may run concurrently with request serving.
type Registry struct {
	tenants *xsync.MapOf[wire.TenantID, *Tenant]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		tenants: xsync.NewMapOf[wire.TenantID, *Tenant](),
	}
}

// TenantExists reports whether the tenant is provisioned.
func (r *Registry) TenantExists(id wire.TenantID) bool {
	_, ok := r.tenants.Load(id)
	return ok
}

// Tenant returns the tenant with the given id.
func (r *Registry) Tenant(id wire.TenantID) (*Tenant, bool) {
	return r.tenants.Load(id)
}

// Table resolves a (tenant, table) pair.
// A missing tenant yields ErrTenantDoesNotExist, a missing table of an existing tenant
// yields ErrTableDoesNotExist. Both errors can be matched with errors.Is.
func (r *Registry) Table(tenantID wire.TenantID, tableID wire.TableID) (store.ITable, error) {
	t, ok := r.tenants.Load(tenantID)
	if !ok {
		return nil, ErrTenantDoesNotExist
	}
	table, ok := t.Table(tableID)
	if !ok {
		return nil, ErrTableDoesNotExist
	}
	return table, nil
}

// CreateTenant provisions a tenant. Creating an existing tenant returns the existing one.
func (r *Registry) CreateTenant(id wire.TenantID) *Tenant {
	t, loaded := r.tenants.LoadOrCompute(id, func() *Tenant {
		return newTenant(id)
	})
	if !loaded {
		log.Infof("created tenant %d", id)
	}
	return t
}

// CreateTable provisions an empty table for an existing tenant.
// If the table already exists, it is returned unchanged.
func (r *Registry) CreateTable(tenantID wire.TenantID, tableID wire.TableID) (store.ITable, error) {
	t, ok := r.tenants.Load(tenantID)
	if !ok {
		return nil, fmt.Errorf("cannot create table %d: %w (tenant %d)", tableID, ErrTenantDoesNotExist, tenantID)
	}
	table, created := t.createTable(tableID)
	if created {
		log.Infof("created table %d for tenant %d", tableID, tenantID)
	}
	return table, nil
}

// Tenants returns all tenants ordered by id.
func (r *Registry) Tenants() []*Tenant {
	tenants := make([]*Tenant, 0, r.tenants.Size())
	r.tenants.Range(func(_ wire.TenantID, t *Tenant) bool {
		tenants = append(tenants, t)
		return true
	})
	sort.Slice(tenants, func(i, j int) bool { return tenants[i].id < tenants[j].id })
	return tenants
}
