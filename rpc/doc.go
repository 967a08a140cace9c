// Package rpc contains the request/response layer of tKV.
//
// The package is organized into several subpackages:
//
//   - wire: The binary message format. Fixed size little-endian headers that are
//     read and written in place, and the status codes carried by every response.
//
//   - packet: Buffers with explicit head and tail room. The server pushes and pulls
//     headers on them without copying payloads.
//
//   - transport: Datagram transports (UDP, unixgram) and the request id framing that
//     lets a client match responses to requests.
//
//   - server: The dispatcher (Master) that answers get and invoke requests from the
//     tenant registry and the extension manager, plus the HTTP admin api.
//
//   - client: The client side of the protocol.
//
//   - common: Configuration structures and logging shared by all of the above.
package rpc
