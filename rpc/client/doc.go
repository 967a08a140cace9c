// Package client implements the RPC client of tKV.
//
// NewRPCClient connects a client transport (udp or unix) and returns an IClient that
// encodes Get and Invoke requests in the binary wire format and decodes the responses.
// A response with a status other than ok is returned as *wire.StatusError, use StatusOf
// to inspect it.
//
// Usage Example:
//
//	c, err := client.NewRPCClient(common.ClientConfig{
//	  Endpoint:      "127.0.0.1:7400",
//	  TimeoutSecond: 5,
//	  RetryCount:    3,
//	}, udp.NewUDPClientTransport())
//	if err != nil {
//	  return err
//	}
//	defer c.Close()
//
//	value, err := c.Get(1, 1, key)
//	if status, ok := client.StatusOf(err); ok && status == wire.StatusObjectDoesNotExist {
//	  // not found
//	}
//
// Thread Safety:
//
//	The client can be used concurrently from multiple goroutines.
package client
