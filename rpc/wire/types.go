package wire

import (
	"encoding/json"
	"fmt"
)

// --------------------------------------------------------------------------
// Identifiers
// --------------------------------------------------------------------------

// TenantID identifies a tenant. It is assigned out of band when the tenant is provisioned.
type TenantID uint32

// TableID identifies a table inside the namespace of a single tenant.
type TableID uint64

// --------------------------------------------------------------------------
// OpCode Definition
// --------------------------------------------------------------------------

// OpCode selects the kind of RPC carried by a request.
type OpCode uint8

const (
	OpInvalid OpCode = iota // Never sent by a well-behaved client
	OpGet                   // Lookup of a single key in a tenant table
	OpInvoke                // Invocation of a tenant extension
)

// Valid reports whether the opcode is one the dispatcher knows how to handle.
func (o OpCode) Valid() bool {
	return o == OpGet || o == OpInvoke
}

// String returns the string representation of an OpCode.
func (o OpCode) String() string {
	switch o {
	case OpGet:
		return "get"
	case OpInvoke:
		return "invoke"
	default:
		return "unknown"
	}
}

// --------------------------------------------------------------------------
// Status Definition
// --------------------------------------------------------------------------

// Status is the outcome written into the common header of every response.
type Status uint8

const (
	StatusPending               Status = iota // 0: Header pushed, handler did not set an outcome yet
	StatusOk                                  // 1: Request handled successfully
	StatusMalformedRequest                    // 2: A length field did not match the payload or the name was invalid
	StatusTenantDoesNotExist                  // 3: The tenant is not provisioned
	StatusTableDoesNotExist                   // 4: The tenant has no table with the given id
	StatusObjectDoesNotExist                  // 5: The table has no entry for the key
	StatusInternalError                       // 6: The response could not be built (e.g. buffer too small)
	StatusUnsupportedOperation                // 7: The opcode is not known
	StatusExtensionDoesNotExist               // 8: The tenant has no extension with the given name
	StatusExtensionError                      // 9: The extension returned an error or panicked
)

// String returns the string representation of a Status.
func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusOk:
		return "ok"
	case StatusMalformedRequest:
		return "malformed request"
	case StatusTenantDoesNotExist:
		return "tenant does not exist"
	case StatusTableDoesNotExist:
		return "table does not exist"
	case StatusObjectDoesNotExist:
		return "object does not exist"
	case StatusInternalError:
		return "internal error"
	case StatusUnsupportedOperation:
		return "unsupported operation"
	case StatusExtensionDoesNotExist:
		return "extension does not exist"
	case StatusExtensionError:
		return "extension error"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// MarshalJSON implements the json.Marshaler interface for Status.
// This allows Status to be serialized as a string in JSON (e.g. for the admin api).
func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Err converts a non-ok status into an error. It returns nil for StatusOk.
func (s Status) Err() error {
	if s == StatusOk {
		return nil
	}
	return &StatusError{Status: s}
}

// StatusError is returned by clients when a response carries a non-ok status.
type StatusError struct {
	Status Status
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("rpc failed with status %d (%s)", uint8(e.Status), e.Status)
}
