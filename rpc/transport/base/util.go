package base

import (
	"encoding/binary"
	"fmt"

	"github.com/ValentinKolb/tKV/rpc/transport"
)

// putFrame writes the frame header followed by msg into a new datagram
func putFrame(requestID uint64, msg []byte) []byte {
	frame := make([]byte, transport.FrameHeaderLen+len(msg))
	binary.LittleEndian.PutUint64(frame[:transport.FrameHeaderLen], requestID)
	copy(frame[transport.FrameHeaderLen:], msg)
	return frame
}

// readFrame splits a datagram into its request id and the RPC message.
// The returned message aliases frame.
func readFrame(frame []byte) (uint64, []byte, error) {
	if len(frame) < transport.FrameHeaderLen {
		return 0, nil, fmt.Errorf("frame of %d bytes is shorter than the frame header", len(frame))
	}
	return binary.LittleEndian.Uint64(frame[:transport.FrameHeaderLen]), frame[transport.FrameHeaderLen:], nil
}
