// Package tenant implements the registry of tenants and their tables.
//
// Every request is scoped to exactly one tenant. A tenant owns a set of tables
// (store.ITable) identified by a wire.TableID, tables of different tenants are
// never visible to each other.
//
// The registry distinguishes a missing tenant (ErrTenantDoesNotExist) from a missing
// table of an existing tenant (ErrTableDoesNotExist), these map to different status
// codes on the wire.
//
// Tenants and tables are created at provisioning time (see package provision) and
// live for the lifetime of the process.
package tenant
