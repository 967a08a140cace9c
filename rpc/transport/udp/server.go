package udp

import (
	"fmt"
	"net"

	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/transport"
	"github.com/ValentinKolb/tKV/rpc/transport/base"
)

const (
	defaultBufferSize = 64 * 1024 // 64 KB, the largest possible UDP payload
	defaultWorkers    = 64
)

// serverConnector implements the IServerConnector interface for UDP sockets
type serverConnector struct{}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IServerConnector)
// --------------------------------------------------------------------------

func (c *serverConnector) GetName() string {
	return "udp"
}

func (c *serverConnector) Listen(config common.ServerConfig) (net.PacketConn, error) {
	conn, err := net.ListenPacket("udp", config.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to create UDP socket: %w", err)
	}

	// Size the kernel receive buffer for a full worker pool of datagrams.
	// The kernel may cap the value, a failure is not fatal.
	if udpConn, ok := conn.(*net.UDPConn); ok && config.BufferSize > 0 {
		if err := udpConn.SetReadBuffer(config.BufferSize * max(config.Workers, 1)); err != nil {
			base.Logger.Warningf("Failed to set UDP read buffer: %v", err)
		}
	}

	return conn, nil
}

// --------------------------------------------------------------------------
// Server Transport Factory Method
// --------------------------------------------------------------------------

// NewUDPDefaultServerTransport creates a new UDP server transport with default buffer size and workers
func NewUDPDefaultServerTransport() transport.IRPCServerTransport {
	return NewUDPServerTransport(defaultBufferSize, defaultWorkers)
}

// NewUDPServerTransport creates a new UDP server transport with specified buffer size and workers
func NewUDPServerTransport(bufferSize, workers int) transport.IRPCServerTransport {
	return base.NewBaseServerTransport(&serverConnector{}, bufferSize, workers)
}
