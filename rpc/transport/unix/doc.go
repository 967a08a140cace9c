// Package unix implements the unixgram socket transport of the RPC system. It provides
// the unix specific connectors for the base transport.
//
// Unix datagram sockets have no ephemeral addresses, every client therefore binds its
// own socket file in the temp directory which is removed again on Close.
//
// Use this transport for clients on the same host, it avoids the network stack entirely.
package unix
