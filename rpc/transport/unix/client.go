package unix

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"github.com/ValentinKolb/tKV/rpc/transport"
	"github.com/ValentinKolb/tKV/rpc/transport/base"
	"github.com/google/uuid"
)

// clientConnector implements the IClientConnector interface for unixgram sockets
type clientConnector struct{}

// boundConn removes the client socket file when the connection is closed
type boundConn struct {
	*net.UnixConn
	path string
}

func (c *boundConn) Close() error {
	err := c.UnixConn.Close()
	if rmErr := os.Remove(c.path); rmErr != nil && !os.IsNotExist(rmErr) && err == nil {
		err = rmErr
	}
	return err
}

// --------------------------------------------------------------------------
// Interface Methods (docu see base.IClientConnector)
// --------------------------------------------------------------------------

func (c *clientConnector) GetName() string {
	return "unix"
}

// Connect binds the client to its own socket file, the server needs an address to reply to
func (c *clientConnector) Connect(endpoint string) (net.Conn, error) {
	localPath := filepath.Join(os.TempDir(), fmt.Sprintf("tkv-client-%s.sock", uuid.NewString()[:8]))

	laddr := &net.UnixAddr{Name: localPath, Net: "unixgram"}
	raddr := &net.UnixAddr{Name: endpoint, Net: "unixgram"}

	conn, err := net.DialUnix("unixgram", laddr, raddr)
	if err != nil {
		_ = os.Remove(localPath)
		return nil, err
	}
	return &boundConn{UnixConn: conn, path: localPath}, nil
}

// --------------------------------------------------------------------------
// Client Transport Factory Method
// --------------------------------------------------------------------------

// NewUnixClientTransport creates a new Unix client transport
func NewUnixClientTransport() transport.IRPCClientTransport {
	return base.NewBaseClientTransport(&clientConnector{})
}
