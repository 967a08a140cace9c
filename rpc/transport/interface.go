package transport

import (
	"net"

	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/packet"
)

// FrameHeaderLen is the size of the frame header that precedes every RPC message in a
// datagram. It holds the request id (uint64, little endian) which the response echoes.
const FrameHeaderLen = 8

// --------------------------------------------------------------------------
// Server Transport
// --------------------------------------------------------------------------

// ServerHandleFunc is a function type that handles incoming requests.
// The transport calls it with the request parsed up to and including the frame header
// and a response buffer that already carries the frame header. The handler returns both
// buffers deparsed back to the frame header, the bytes of the response are sent as is.
type ServerHandleFunc func(req, resp *packet.Buffer) (*packet.Buffer, *packet.Buffer)

// IRPCServerTransport is the interface for the RPC transport layer
type IRPCServerTransport interface {
	// RegisterHandler registers a handler for the transport layer
	// This handler is called for every received request
	RegisterHandler(handler ServerHandleFunc)
	// Listen creates the socket described by config and serves it until Close is called
	Listen(config common.ServerConfig) error
	// Serve handles requests received on an already opened socket until Close is called
	Serve(conn net.PacketConn) error
	// Close stops serving and closes the socket
	Close() error
}

// --------------------------------------------------------------------------
// Client Transport
// --------------------------------------------------------------------------

// IRPCClientTransport is the interface for the RPC client transport
type IRPCClientTransport interface {
	// Connect initializes the transport with the given configuration
	Connect(config common.ClientConfig) error
	// Send sends an RPC message to the server and returns the RPC message of the response.
	// Both messages exclude the frame header.
	Send(req []byte) (resp []byte, err error)
	// Close closes the transport connection
	Close() error
}
