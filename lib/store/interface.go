package store

// ITable is the interface of a single key–value table owned by a tenant.
//
// Keys are compared by exact byte equality. Values are opaque and immutable once stored,
// implementations must therefore never hand out a slice that is written to later.
// There is no eviction, expiry or size bound.
type ITable interface {
	// Get returns the value stored for key. The boolean return value indicates whether a
	// value was found. The returned slice is shared with the table and must not be modified.
	Get(key []byte) (value []byte, ok bool)
	// Put inserts or overwrites the value for key.
	// The table keeps its own copy of key and value, callers may reuse their buffers.
	Put(key, value []byte)
	// Len returns the number of entries in the table.
	Len() int
	// Range calls fn for every entry until fn returns false. No ordering is guaranteed.
	Range(fn func(key, value []byte) bool)
}
