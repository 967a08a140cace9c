// Package packet implements the buffer abstraction the RPC core works on.
//
// A Buffer models a network frame that is interpreted layer by layer: the transport
// parses its own header, the dispatcher parses the RPC header on top of it, and both
// rewind ("deparse") the buffer to the transport boundary before the frame is handed
// back. Response buffers are pre-allocated with a fixed capacity; headers are pushed
// and the payload is appended in place.
//
// Usage:
//
//	req := packet.Wrap(frame)
//	_, _ = req.ParseHeader(transport.FrameHeaderLen) // transport boundary
//	hdr, err := req.ParseHeader(wire.GetRequestLen)  // rpc layer
//	...
//	_ = req.DeparseTo(1)
package packet
