// Package wire defines the binary wire format of the tKV RPC protocol.
//
// Every request and response starts with a fixed 8 byte common header carrying the
// opcode, the status and the tenant. Kind specific fields follow the common header,
// variable length data (keys, values, extension names and arguments) follows in the
// payload of the packet.
//
// Headers are exposed as zero-copy views over byte slices (GetRequest, GetResponse,
// InvokeRequest, InvokeResponse). The As* constructors check that the slice is long
// enough before any field is accessed, so a view can never read out of bounds. Length
// fields read from a request view are NOT validated against the payload here, this is
// the responsibility of the handler that slices the payload.
//
// Status codes:
//
//	Pending(0) Ok(1) MalformedRequest(2) TenantDoesNotExist(3) TableDoesNotExist(4)
//	ObjectDoesNotExist(5) InternalError(6) UnsupportedOperation(7)
//	ExtensionDoesNotExist(8) ExtensionError(9)
package wire
