package base

import (
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/packet"
	"github.com/ValentinKolb/tKV/rpc/transport"
)

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IServerConnector defines the interface for transport-specific server operations
type IServerConnector interface {
	// Listen creates the datagram socket described by the configuration
	Listen(config common.ServerConfig) (net.PacketConn, error)

	// GetName returns the name of the transport type (e.g., "udp", "unix")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// bufferPair is the pooled request and response buffer of one in-flight request
type bufferPair struct {
	req  *packet.Buffer
	resp *packet.Buffer
}

// serverTransport implements the core server transport functionality
type serverTransport struct {
	connector  IServerConnector
	handler    transport.ServerHandleFunc
	bufferPool *sync.Pool
	bufferSize int
	maxWorkers int

	connMu sync.Mutex
	conn   net.PacketConn
	closed atomic.Bool
}

// -----------------------------------------------------------
// Transport Factory Method (used for udp, unix)
// -----------------------------------------------------------

// NewBaseServerTransport creates a new base server transport with a bounded worker pool.
// bufferSize is the maximum datagram size, maxWorkers the number of requests handled concurrently.
func NewBaseServerTransport(connector IServerConnector, bufferSize int, maxWorkers int) transport.IRPCServerTransport {
	// minimum one worker
	maxWorkers = max(maxWorkers, 1)

	return &serverTransport{
		connector:  connector,
		bufferSize: bufferSize,
		maxWorkers: maxWorkers,
		bufferPool: &sync.Pool{
			New: func() interface{} {
				return &bufferPair{
					req:  packet.New(bufferSize),
					resp: packet.New(bufferSize),
				}
			},
		},
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCServerTransport)
// --------------------------------------------------------------------------

func (t *serverTransport) RegisterHandler(handler transport.ServerHandleFunc) {
	t.handler = handler
}

func (t *serverTransport) Listen(config common.ServerConfig) error {
	conn, err := t.connector.Listen(config)
	if err != nil {
		return fmt.Errorf("failed to create socket: %w", err)
	}

	Logger.Infof("Starting %s server on %s with %d workers", t.connector.GetName(), conn.LocalAddr(), t.maxWorkers)
	return t.Serve(conn)
}

func (t *serverTransport) Serve(conn net.PacketConn) error {
	if t.handler == nil {
		return errors.New("no handler registered")
	}

	t.connMu.Lock()
	if t.closed.Load() {
		t.connMu.Unlock()
		return net.ErrClosed
	}
	t.conn = conn
	t.connMu.Unlock()

	// The buffered channel acts as a counting semaphore for the workers
	workerSemaphore := make(chan struct{}, t.maxWorkers)
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		pair := t.bufferPool.Get().(*bufferPair)

		var addr net.Addr
		err := pair.req.Fill(func(p []byte) (int, error) {
			n, from, err := conn.ReadFrom(p)
			addr = from
			return n, err
		})
		if err != nil {
			t.bufferPool.Put(pair)
			if t.closed.Load() || errors.Is(err, net.ErrClosed) {
				Logger.Infof("Stopped %s server", t.connector.GetName())
				return nil
			}
			Logger.Errorf("Read error: %v", err)
			continue
		}

		// Acquire a slot in the semaphore (blocks if maxWorkers is reached)
		workerSemaphore <- struct{}{}
		wg.Add(1)

		go func() {
			defer func() {
				t.bufferPool.Put(pair)
				<-workerSemaphore
				wg.Done()
			}()
			t.handleDatagram(conn, addr, pair)
		}()
	}
}

func (t *serverTransport) Close() error {
	t.closed.Store(true)

	t.connMu.Lock()
	defer t.connMu.Unlock()
	if t.conn == nil {
		return nil
	}
	return t.conn.Close()
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// handleDatagram processes a single request and writes the response back to the sender
func (t *serverTransport) handleDatagram(conn net.PacketConn, addr net.Addr, pair *bufferPair) {
	frameHeader, err := pair.req.ParseHeader(transport.FrameHeaderLen)
	if err != nil {
		Logger.Warningf("Dropping datagram from %s: %v", addr, err)
		return
	}

	requestID, _, _ := readFrame(frameHeader)

	pair.resp.Reset()
	if _, err := pair.resp.PushHeader(frameHeader); err != nil {
		Logger.Errorf("Failed to prepare response for %s: %v", addr, err)
		return
	}

	start := time.Now()
	_, resp := t.handler(pair.req, pair.resp)
	Logger.Debugf("Processed request %d from %s took %s", requestID, addr, time.Since(start))

	if _, err := conn.WriteTo(resp.Bytes(), addr); err != nil {
		Logger.Errorf("Failed to write response to %s: %v", addr, err)
	}
}
