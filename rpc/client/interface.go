package client

import (
	"github.com/ValentinKolb/tKV/rpc/wire"
)

// IClient is the client side of the tKV RPC protocol.
//
// A request that reaches the server but is answered with a status other than ok returns
// a *wire.StatusError (see StatusOf). Transport failures are returned as is.
type IClient interface {
	// Get returns the value stored for key in a table of the tenant
	Get(tenant wire.TenantID, table wire.TableID, key []byte) (value []byte, err error)
	// Invoke calls the named extension of the tenant with the argument bytes
	Invoke(tenant wire.TenantID, name string, args []byte) error
	// Close closes the underlying transport
	Close() error
}
