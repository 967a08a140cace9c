package packet

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSpace is returned when a push or append would exceed the capacity of the buffer
	ErrNoSpace = errors.New("packet: not enough capacity")
	// ErrShortPayload is returned when the payload is too short to be parsed as the requested header
	ErrShortPayload = errors.New("packet: payload too short for header")
	// ErrNoHeader is returned when deparsing a buffer without any parsed or pushed header
	ErrNoHeader = errors.New("packet: no header to deparse")
)

// layer is a single header within the buffer
type layer struct {
	off  int
	size int
}

// Buffer is a packet-like byte buffer with a stack of protocol layers.
//
// The bytes of a buffer are always interpreted relative to the top-most layer: the
// current header is the top layer, the payload is everything after it. A buffer can be
// interpreted at a deeper protocol layer either by parsing the next bytes of the payload
// as a header (ParseHeader) or by inserting a new header in front of the payload
// (PushHeader). Deparse removes the top layer again, so that its bytes become part of the
// payload of the layer below. None of these operations copy the payload except PushHeader
// on a non-empty payload.
//
// The capacity of a buffer is fixed when it is created and is never grown, the backing
// array of all returned slices therefore stays valid for the lifetime of the buffer.
//
// Thread-safety: A buffer must only be used by a single goroutine at a time.
type Buffer struct {
	data   []byte
	layers []layer
}

// New creates an empty buffer that can hold up to capacity bytes.
func New(capacity int) *Buffer {
	return &Buffer{
		data:   make([]byte, 0, capacity),
		layers: make([]layer, 0, 4),
	}
}

// Wrap creates a buffer over an existing frame. The buffer takes ownership of frame,
// its capacity is used for later pushes and appends.
func Wrap(frame []byte) *Buffer {
	return &Buffer{
		data:   frame,
		layers: make([]layer, 0, 4),
	}
}

// --------------------------------------------------------------------------
// Accessors
// --------------------------------------------------------------------------

// Depth returns the number of headers currently parsed or pushed.
func (b *Buffer) Depth() int {
	return len(b.layers)
}

// Len returns the number of valid bytes (all headers plus payload).
func (b *Buffer) Len() int {
	return len(b.data)
}

// Cap returns the maximum number of bytes the buffer can hold.
func (b *Buffer) Cap() int {
	return cap(b.data)
}

// Bytes returns all valid bytes of the buffer, independent of the current layer.
func (b *Buffer) Bytes() []byte {
	return b.data
}

// Header returns the bytes of the top-most header or nil if there is none.
// The returned slice aliases the buffer, writes to it modify the header in place.
func (b *Buffer) Header() []byte {
	if len(b.layers) == 0 {
		return nil
	}
	l := b.layers[len(b.layers)-1]
	return b.data[l.off : l.off+l.size : l.off+l.size]
}

// Payload returns the bytes following the top-most header.
// The returned slice aliases the buffer but cannot be used to grow it.
func (b *Buffer) Payload() []byte {
	end := b.headerEnd()
	return b.data[end:len(b.data):len(b.data)]
}

// headerEnd returns the offset of the first payload byte
func (b *Buffer) headerEnd() int {
	if len(b.layers) == 0 {
		return 0
	}
	l := b.layers[len(b.layers)-1]
	return l.off + l.size
}

// --------------------------------------------------------------------------
// Layer Operations
// --------------------------------------------------------------------------

// ParseHeader interprets the next size bytes of the payload as a header and makes it
// the new top layer. The header bytes are returned without copying.
func (b *Buffer) ParseHeader(size int) ([]byte, error) {
	if size < 0 {
		return nil, fmt.Errorf("packet: negative header size %d", size)
	}
	off := b.headerEnd()
	if len(b.data)-off < size {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrShortPayload, size, len(b.data)-off)
	}
	b.layers = append(b.layers, layer{off: off, size: size})
	return b.Header(), nil
}

// PushHeader writes hdr directly after the current header and makes it the new top layer.
// An existing payload is moved behind the new header. The in-buffer copy of the header
// is returned, writes to it modify the header in place.
func (b *Buffer) PushHeader(hdr []byte) ([]byte, error) {
	off := b.headerEnd()
	n := len(hdr)
	if len(b.data)+n > cap(b.data) {
		return nil, fmt.Errorf("%w: push of %d bytes into %d/%d", ErrNoSpace, n, len(b.data), cap(b.data))
	}

	oldLen := len(b.data)
	b.data = b.data[:oldLen+n]
	if oldLen > off {
		copy(b.data[off+n:], b.data[off:oldLen])
	}
	copy(b.data[off:off+n], hdr)

	b.layers = append(b.layers, layer{off: off, size: n})
	return b.Header(), nil
}

// AppendPayload adds p to the tail of the payload.
// Nothing is written if p does not fit into the remaining capacity.
func (b *Buffer) AppendPayload(p []byte) error {
	if len(b.data)+len(p) > cap(b.data) {
		return fmt.Errorf("%w: append of %d bytes into %d/%d", ErrNoSpace, len(p), len(b.data), cap(b.data))
	}
	b.data = append(b.data, p...)
	return nil
}

// Deparse removes the top-most layer, its bytes become part of the payload of the layer below.
func (b *Buffer) Deparse() error {
	if len(b.layers) == 0 {
		return ErrNoHeader
	}
	b.layers = b.layers[:len(b.layers)-1]
	return nil
}

// DeparseTo removes layers until exactly depth layers are left.
func (b *Buffer) DeparseTo(depth int) error {
	if depth < 0 || depth > len(b.layers) {
		return fmt.Errorf("packet: cannot deparse to depth %d (current depth %d)", depth, len(b.layers))
	}
	b.layers = b.layers[:depth]
	return nil
}

// Fill resets the buffer and lets read write a new frame directly into its backing array.
// read receives the full capacity and returns the number of bytes it wrote.
func (b *Buffer) Fill(read func(p []byte) (int, error)) error {
	b.Reset()
	n, err := read(b.data[:cap(b.data)])
	if err != nil {
		return err
	}
	if n < 0 || n > cap(b.data) {
		return fmt.Errorf("packet: invalid fill length %d (capacity %d)", n, cap(b.data))
	}
	b.data = b.data[:n]
	return nil
}

// Reset drops all layers and bytes but keeps the capacity.
func (b *Buffer) Reset() {
	b.data = b.data[:0]
	b.layers = b.layers[:0]
}
