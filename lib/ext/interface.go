package ext

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/tKV/rpc/wire"
)

//go:generate mockgen -destination=mocks/mock_extension.go -package=mocks github.com/ValentinKolb/tKV/lib/ext Extension

// Extension is the invocation contract of server-side extension code.
//
// Extensions run in-process with the privileges of the server. The only data they can
// reach is what the db handle exposes: a plain DB grants no data access at all, a
// ReaderDB allows reads and a WriterDB additionally allows writes, always scoped to the
// tenant that owns the extension. Extensions discover their capabilities with a type
// assertion on db.
type Extension interface {
	// Invoke runs the extension with the argument bytes of the request.
	// args aliases the request buffer and is only valid until Invoke returns.
	// A returned error is reported to the client as an extension error.
	Invoke(db DB, args []byte) error
}

// ExtensionFunc adapts an ordinary function to the Extension interface.
type ExtensionFunc func(db DB, args []byte) error

// Invoke calls f(db, args).
func (f ExtensionFunc) Invoke(db DB, args []byte) error {
	return f(db, args)
}

// --------------------------------------------------------------------------
// Capability Handles
// --------------------------------------------------------------------------

// DB is the data-access handle with no storage capabilities.
type DB interface {
	// Tenant returns the tenant the handle is scoped to.
	Tenant() wire.TenantID
}

// ReaderDB is a handle that allows reading the tables of its tenant.
type ReaderDB interface {
	DB
	// Get returns a copy of the value stored for key in the given table.
	// The boolean return value indicates whether a value was found. An error is
	// returned if the table does not exist.
	Get(table wire.TableID, key []byte) (value []byte, ok bool, err error)
}

// WriterDB is a handle that allows reading and writing the tables of its tenant.
type WriterDB interface {
	ReaderDB
	// Put inserts or overwrites the value for key in the given table.
	// An error is returned if the table does not exist.
	Put(table wire.TableID, key, value []byte) error
}

// --------------------------------------------------------------------------
// Access Levels
// --------------------------------------------------------------------------

// Access is the level of data access granted to an extension.
type Access uint8

const (
	AccessNone  Access = iota // DB handle: no data access
	AccessRead                // ReaderDB handle
	AccessWrite               // WriterDB handle
)

// String returns the string representation of an Access level.
func (a Access) String() string {
	switch a {
	case AccessNone:
		return "none"
	case AccessRead:
		return "read"
	case AccessWrite:
		return "write"
	default:
		return "unknown"
	}
}

// ParseAccess converts a string (none, read, write) to an Access level.
// An empty string is parsed as AccessNone.
func ParseAccess(s string) (Access, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "none":
		return AccessNone, nil
	case "read", "ro":
		return AccessRead, nil
	case "write", "rw":
		return AccessWrite, nil
	default:
		return AccessNone, fmt.Errorf("invalid access level %q (expected one of: none, read, write)", s)
	}
}
