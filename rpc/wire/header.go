package wire

import (
	"encoding/binary"
	"errors"
)

// --------------------------------------------------------------------------
// Header Layout
// --------------------------------------------------------------------------

/*
	All headers are fixed-layout little endian structures. Every header starts with the
	common header:

	  offset  size  field
	  0       1     opcode
	  1       1     status (reserved in requests)
	  2       2     reserved
	  4       4     tenant

	The kind-specific fields follow directly after the common header.
*/

const (
	CommonHeaderLen   = 8
	GetRequestLen     = CommonHeaderLen + 8 + 2 // + table id + key length
	GetResponseLen    = CommonHeaderLen + 4     // + value length
	InvokeRequestLen  = CommonHeaderLen + 4 + 4 // + name length + args length
	InvokeResponseLen = CommonHeaderLen
	ErrorResponseLen  = CommonHeaderLen
)

const (
	offOpcode = 0
	offStatus = 1
	offTenant = 4

	offGetTable    = CommonHeaderLen
	offGetKeyLen   = CommonHeaderLen + 8
	offGetValueLen = CommonHeaderLen
	offInvokeName  = CommonHeaderLen
	offInvokeArgs  = CommonHeaderLen + 4
)

// ErrShortHeader is returned when a byte slice is too small to hold the requested header
var ErrShortHeader = errors.New("wire: buffer too short for header")

// --------------------------------------------------------------------------
// Common Header
// --------------------------------------------------------------------------

// Common is a zero-copy view of the common header shared by all requests and responses.
// Accessors read and write straight into the underlying buffer.
type Common []byte

// PeekOpCode reads the opcode of a request without interpreting the rest of the header.
// It returns OpInvalid if the buffer is too short to contain a common header.
func PeekOpCode(b []byte) OpCode {
	if len(b) < CommonHeaderLen {
		return OpInvalid
	}
	return OpCode(b[offOpcode])
}

// AsCommon interprets b as a common header.
func AsCommon(b []byte) (Common, error) {
	if len(b) < CommonHeaderLen {
		return nil, ErrShortHeader
	}
	return Common(b[:CommonHeaderLen]), nil
}

func (h Common) OpCode() OpCode { return OpCode(h[offOpcode]) }
func (h Common) SetOpCode(op OpCode) { h[offOpcode] = byte(op) }
func (h Common) Status() Status { return Status(h[offStatus]) }
func (h Common) SetStatus(s Status) { h[offStatus] = byte(s) }
func (h Common) Tenant() TenantID { return TenantID(binary.LittleEndian.Uint32(h[offTenant:])) }
func (h Common) SetTenant(t TenantID) { binary.LittleEndian.PutUint32(h[offTenant:], uint32(t)) }

// init writes a fresh common header (status pending, reserved bytes zeroed)
func (h Common) init(op OpCode, tenant TenantID) {
	h[offOpcode] = byte(op)
	h[offStatus] = byte(StatusPending)
	h[2], h[3] = 0, 0
	h.SetTenant(tenant)
}

// --------------------------------------------------------------------------
// Get
// --------------------------------------------------------------------------

// GetRequest is a zero-copy view of a Get request header.
type GetRequest []byte

// AsGetRequest interprets b as a Get request header.
func AsGetRequest(b []byte) (GetRequest, error) {
	if len(b) < GetRequestLen {
		return nil, ErrShortHeader
	}
	return GetRequest(b[:GetRequestLen]), nil
}

// NewGetRequest encodes a Get request header for the given key length.
func NewGetRequest(tenant TenantID, table TableID, keyLength uint16) []byte {
	b := make([]byte, GetRequestLen)
	Common(b).init(OpGet, tenant)
	binary.LittleEndian.PutUint64(b[offGetTable:], uint64(table))
	binary.LittleEndian.PutUint16(b[offGetKeyLen:], keyLength)
	return b
}

func (h GetRequest) Common() Common { return Common(h[:CommonHeaderLen]) }
func (h GetRequest) Tenant() TenantID { return h.Common().Tenant() }
func (h GetRequest) Table() TableID { return TableID(binary.LittleEndian.Uint64(h[offGetTable:])) }
func (h GetRequest) KeyLength() uint16 { return binary.LittleEndian.Uint16(h[offGetKeyLen:]) }

// GetResponse is a zero-copy view of a Get response header.
type GetResponse []byte

// AsGetResponse interprets b as a Get response header.
func AsGetResponse(b []byte) (GetResponse, error) {
	if len(b) < GetResponseLen {
		return nil, ErrShortHeader
	}
	return GetResponse(b[:GetResponseLen]), nil
}

// NewGetResponse encodes a fresh Get response header with status pending and value length 0.
func NewGetResponse(tenant TenantID) []byte {
	b := make([]byte, GetResponseLen)
	Common(b).init(OpGet, tenant)
	return b
}

func (h GetResponse) Common() Common { return Common(h[:CommonHeaderLen]) }
func (h GetResponse) Status() Status { return h.Common().Status() }
func (h GetResponse) SetStatus(s Status) { h.Common().SetStatus(s) }
func (h GetResponse) ValueLength() uint32 { return binary.LittleEndian.Uint32(h[offGetValueLen:]) }
func (h GetResponse) SetValueLength(n uint32) { binary.LittleEndian.PutUint32(h[offGetValueLen:], n) }

// --------------------------------------------------------------------------
// Invoke
// --------------------------------------------------------------------------

// InvokeRequest is a zero-copy view of an Invoke request header.
type InvokeRequest []byte

// AsInvokeRequest interprets b as an Invoke request header.
func AsInvokeRequest(b []byte) (InvokeRequest, error) {
	if len(b) < InvokeRequestLen {
		return nil, ErrShortHeader
	}
	return InvokeRequest(b[:InvokeRequestLen]), nil
}

// NewInvokeRequest encodes an Invoke request header for the given name and args lengths.
func NewInvokeRequest(tenant TenantID, nameLength, argsLength uint32) []byte {
	b := make([]byte, InvokeRequestLen)
	Common(b).init(OpInvoke, tenant)
	binary.LittleEndian.PutUint32(b[offInvokeName:], nameLength)
	binary.LittleEndian.PutUint32(b[offInvokeArgs:], argsLength)
	return b
}

func (h InvokeRequest) Common() Common { return Common(h[:CommonHeaderLen]) }
func (h InvokeRequest) Tenant() TenantID { return h.Common().Tenant() }
func (h InvokeRequest) NameLength() uint32 { return binary.LittleEndian.Uint32(h[offInvokeName:]) }
func (h InvokeRequest) ArgsLength() uint32 { return binary.LittleEndian.Uint32(h[offInvokeArgs:]) }

// InvokeResponse is a zero-copy view of an Invoke response header.
type InvokeResponse []byte

// AsInvokeResponse interprets b as an Invoke response header.
func AsInvokeResponse(b []byte) (InvokeResponse, error) {
	if len(b) < InvokeResponseLen {
		return nil, ErrShortHeader
	}
	return InvokeResponse(b[:InvokeResponseLen]), nil
}

// NewInvokeResponse encodes a fresh Invoke response header with status pending.
func NewInvokeResponse(tenant TenantID) []byte {
	b := make([]byte, InvokeResponseLen)
	Common(b).init(OpInvoke, tenant)
	return b
}

func (h InvokeResponse) Common() Common { return Common(h[:CommonHeaderLen]) }
func (h InvokeResponse) Status() Status { return h.Common().Status() }
func (h InvokeResponse) SetStatus(s Status) { h.Common().SetStatus(s) }

// --------------------------------------------------------------------------
// Error
// --------------------------------------------------------------------------

// NewErrorResponse encodes a header-only response carrying the given status.
// The opcode of the request is echoed so that clients can correlate the failure.
func NewErrorResponse(op OpCode, tenant TenantID, status Status) []byte {
	b := make([]byte, ErrorResponseLen)
	Common(b).init(op, tenant)
	Common(b).SetStatus(status)
	return b
}
