// Package store provides the key-value tables that hold the data of a tenant.
//
// The package focuses on:
//   - A small interface (ITable) for exact-match key-value lookups and writes
//   - A lock-free in-memory implementation suitable for the request hot path
//
// Key Components:
//
//   - ITable Interface: Get/Put on opaque byte keys and values plus Len/Range for
//     introspection (admin api, tests). Values are immutable once stored, Get hands
//     out the stored slice without copying it.
//
//   - NewTable: Factory for the in-memory implementation backed by xsync.MapOf.
//     Put copies key and value exactly once, Get performs the lookup with a
//     non-allocating view of the key.
//
//   - Stats / SizeHistogram: Key and value size summaries of a table, computed with
//     a single Range scan. Used by the admin api.
//
// Thread Safety:
//
//	All operations are safe for concurrent use. A Put is atomic with respect to
//	concurrent Gets of the same key: a reader either sees the old or the new value.
package store
