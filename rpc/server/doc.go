// Package server implements the request processing core of tKV.
//
// Key Components:
//
//   - Master: Owns the tenant registry and the extension manager and dispatches
//     requests. Dispatch takes a request buffer parsed up to the transport header and a
//     pre-allocated response buffer, routes by opcode and builds the response in place.
//
//   - Metrics: Request counters per opcode and status, dispatch and extension latency.
//
//   - AdminServer: HTTP api (/healthz, /metrics, /stats, /tenants) for operators.
//
//   - RPCServer: Wires master, transport and admin api together and provisions the
//     master at start.
//
// Request lifecycle:
//
//	Received  request parsed up to the transport header
//	Parsed    request header of the opcode parsed, response header pushed (status pending)
//	Handled   handler finished, status (and payload) written
//	Deparsed  both buffers rewound to the transport header
//
// Every path ends Deparsed with a response header, including malformed requests and
// unknown opcodes (status UnsupportedOperation, the request is left untouched).
//
// Get: the key is looked up in a table of the tenant. Missing tenant, table and key map
// to distinct statuses. On success the value is appended to the response and the value
// length field is set to the number of bytes actually appended.
//
// Invoke: the name must be non-empty UTF-8, the argument bytes are passed to the
// extension together with a data handle limited to the access level the extension was
// loaded with. Extension errors and panics map to ExtensionError.
//
// Thread Safety:
//
//	Dispatch is safe for concurrent use with distinct buffer pairs. Provisioning may run
//	concurrently with serving.
package server
