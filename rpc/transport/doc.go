// Package transport defines the interfaces for moving RPC messages between clients and
// the server.
//
// Every RPC message travels in its own datagram, prefixed by a frame header carrying a
// request id (see FrameHeaderLen). The frame header is the transport header of the RPC
// layer: the server hands requests to its handler parsed up to this boundary and expects
// the response deparsed back to it.
//
// Key Components:
//
//   - IRPCClientTransport: Client side, correlates responses with requests by id.
//
//   - IRPCServerTransport: Server side, receives datagrams and calls the handler.
//
//   - ServerHandleFunc: Function type for request handling callbacks.
//
// Implementations live in the sub packages udp and unix, both built on base.
package transport
