// Package base implements the datagram transport shared by the udp and unix transports.
// The protocol specific parts (creating and connecting sockets) are injected as connectors.
//
// Key Components:
//
//   - IClientConnector/IServerConnector: Interfaces for protocol-specific socket
//     operations.
//
//   - serverTransport: Reads datagrams into pooled buffers and hands each request to a
//     bounded pool of worker goroutines. The request is parsed up to the frame header,
//     the response buffer is prepared with the same frame header, so the handler only
//     deals with the RPC layer.
//
//   - clientTransport: Sends requests over a connected datagram socket and correlates
//     responses by request id. Lost datagrams are covered by timeouts and retries with
//     exponential backoff, every attempt uses a fresh request id.
//
// Performance Optimizations:
//
//   - Buffer Pooling: The server reuses request and response buffers through a
//     sync.Pool, a request is handled without allocating new buffers.
//
//   - Bounded Concurrency: A counting semaphore limits the number of requests handled
//     at the same time, a slow request occupies one worker slot.
//
// Thread Safety:
//
//	Send may be called concurrently. The server handles requests concurrently, each
//	request owns its buffer pair exclusively while it is handled.
package base
