// Package udp implements the UDP transport of the RPC system. It provides the UDP
// specific connectors for the base transport, see the base package documentation for
// the frame format, buffer pooling and the worker pool.
//
// One request or response is one datagram, the default buffer size of 64 KB therefore
// covers the largest possible UDP payload. On the server, the kernel receive buffer is
// sized to hold a full worker pool of datagrams.
package udp
