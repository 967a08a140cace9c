package client

import (
	"errors"
	"fmt"
	"math"

	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/transport"
	"github.com/ValentinKolb/tKV/rpc/wire"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("rpc")

var (
	// ErrKeyTooLong is returned for keys that do not fit the 16 bit key length field
	ErrKeyTooLong = errors.New("key too long")
	// ErrUnexpectedResponse is returned when a response does not match its request
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// NewRPCClient creates a new RPC client
// The function connects the transport with the given config
func NewRPCClient(config common.ClientConfig, transport transport.IRPCClientTransport) (IClient, error) {
	if err := transport.Connect(config); err != nil {
		return nil, err
	}
	return &rpcClient{
		config:    config,
		transport: transport,
	}, nil
}

type rpcClient struct {
	config    common.ClientConfig
	transport transport.IRPCClientTransport
}

// --------------------------------------------------------------------------
// Interface Methods (docu see client.IClient)
// --------------------------------------------------------------------------

func (c *rpcClient) Get(tenant wire.TenantID, table wire.TableID, key []byte) ([]byte, error) {
	if len(key) > math.MaxUint16 {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrKeyTooLong, len(key), math.MaxUint16)
	}

	req := append(wire.NewGetRequest(tenant, table, uint16(len(key))), key...)
	resp, err := c.transport.Send(req)
	if err != nil {
		return nil, err
	}

	if err := checkResponse(resp, wire.OpGet); err != nil {
		return nil, err
	}

	hdr, err := wire.AsGetResponse(resp)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	value := resp[wire.GetResponseLen:]
	if uint64(hdr.ValueLength()) != uint64(len(value)) {
		return nil, fmt.Errorf("%w: value length %d but %d bytes received", ErrUnexpectedResponse, hdr.ValueLength(), len(value))
	}
	return value, nil
}

func (c *rpcClient) Invoke(tenant wire.TenantID, name string, args []byte) error {
	req := make([]byte, 0, wire.InvokeRequestLen+len(name)+len(args))
	req = append(req, wire.NewInvokeRequest(tenant, uint32(len(name)), uint32(len(args)))...)
	req = append(req, name...)
	req = append(req, args...)

	resp, err := c.transport.Send(req)
	if err != nil {
		return err
	}
	return checkResponse(resp, wire.OpInvoke)
}

func (c *rpcClient) Close() error {
	return c.transport.Close()
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// checkResponse validates the common header of a response and converts its status into an error
func checkResponse(resp []byte, op wire.OpCode) error {
	hdr, err := wire.AsCommon(resp)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedResponse, err)
	}
	if hdr.OpCode() != op {
		return fmt.Errorf("%w: opcode %s for a %s request", ErrUnexpectedResponse, hdr.OpCode(), op)
	}
	return hdr.Status().Err()
}

// StatusOf extracts the status of a failed request. The boolean is false if err was not
// caused by a response status (e.g. a timeout).
func StatusOf(err error) (wire.Status, bool) {
	var statusErr *wire.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Status, true
	}
	return wire.StatusPending, false
}
