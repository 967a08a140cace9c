package base

import (
	"errors"
	"fmt"
	"math/rand"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var Logger = logger.GetLogger("transport/rpc")

// ErrTimeout is returned when no response arrived within the configured timeout
var ErrTimeout = errors.New("request timed out")

const defaultClientBufferSize = 64 * 1024

// -----------------------------------------------------------
// Interface Definitions for dependency injection
// -----------------------------------------------------------

// IClientConnector defines the interface for transport-specific connection operations
type IClientConnector interface {
	// Connect creates a datagram socket connected to the endpoint
	Connect(endpoint string) (net.Conn, error)

	// GetName returns the name of the transport type (e.g., "udp", "unix")
	GetName() string
}

// -----------------------------------------------------------
// Helper Types
// -----------------------------------------------------------

// clientTransport implements the core client transport functionality
// independent of the specific transport medium (udp, unix)
type clientTransport struct {
	connector     IClientConnector
	config        common.ClientConfig
	conn          net.Conn
	writeMu       sync.Mutex
	pending       *xsync.MapOf[uint64, chan []byte]
	nextRequestID atomic.Uint64
	stopCh        chan struct{}
	readerDone    chan struct{}
}

// -----------------------------------------------------------
// Transport Factory Method (used for udp, unix)
// -----------------------------------------------------------

// NewBaseClientTransport creates a new base client transport with the specified connector
func NewBaseClientTransport(connector IClientConnector) transport.IRPCClientTransport {
	return &clientTransport{
		connector: connector,
		pending:   xsync.NewMapOf[uint64, chan []byte](),
	}
}

// --------------------------------------------------------------------------
// Interface Methods (docu see transport.IRPCClientTransport)
// --------------------------------------------------------------------------

func (t *clientTransport) Connect(config common.ClientConfig) error {
	if config.Endpoint == "" {
		return fmt.Errorf("no endpoint provided")
	}
	if t.conn != nil {
		return fmt.Errorf("already connected to %s", t.config.Endpoint)
	}

	conn, err := t.connector.Connect(config.Endpoint)
	if err != nil {
		return fmt.Errorf("failed to connect to %s: %w", config.Endpoint, err)
	}

	t.config = config
	t.conn = conn
	t.stopCh = make(chan struct{})
	t.readerDone = make(chan struct{})

	bufferSize := config.BufferSize
	if bufferSize <= 0 {
		bufferSize = defaultClientBufferSize
	}
	go t.readResponses(bufferSize)

	Logger.Infof("Connected to %s using %s transport", config.Endpoint, t.connector.GetName())
	return nil
}

func (t *clientTransport) Send(req []byte) (resp []byte, err error) {
	if t.conn == nil {
		return nil, fmt.Errorf("transport is not connected")
	}

	// Define the send function to be used in retries
	send := func() ([]byte, error) {
		// every attempt uses its own id, late responses of earlier attempts are dropped
		requestID := t.nextRequestID.Add(1)

		respCh := make(chan []byte, 1)
		t.pending.Store(requestID, respCh)
		defer t.pending.Delete(requestID)

		frame := putFrame(requestID, req)

		t.writeMu.Lock()
		_, err := t.conn.Write(frame)
		t.writeMu.Unlock()
		if err != nil {
			return nil, err
		}

		// Wait for response or timeout
		var timeoutCh <-chan time.Time
		if t.config.TimeoutSecond > 0 {
			timer := time.NewTimer(time.Duration(t.config.TimeoutSecond) * time.Second)
			defer timer.Stop()
			timeoutCh = timer.C
		}

		select {
		case data := <-respCh:
			return data, nil
		case <-timeoutCh:
			return nil, ErrTimeout
		case <-t.stopCh:
			return nil, net.ErrClosed
		}
	}

	var lastErr error

	// We always try at least once
	maxRetries := max(t.config.RetryCount, 1)

	// Initial backoff duration in milliseconds
	backoffMs := 50

	for i := 0; i < maxRetries; i++ {
		data, err := send()
		if err == nil {
			return data, nil
		}
		if errors.Is(err, net.ErrClosed) {
			return nil, err
		}

		lastErr = err
		Logger.Debugf("Request attempt %d/%d failed: %v", i+1, maxRetries, err)

		if i < maxRetries-1 {
			// Exponential backoff with a small random jitter (+-10%)
			jitter := float64(backoffMs) * (0.9 + 0.2*rand.Float64())
			time.Sleep(time.Duration(jitter) * time.Millisecond)
			backoffMs *= 2
		}
	}

	return nil, fmt.Errorf("failed to send request after %d attempts: %w", maxRetries, lastErr)
}

func (t *clientTransport) Close() error {
	if t.conn == nil {
		return nil
	}
	close(t.stopCh)
	err := t.conn.Close()
	<-t.readerDone
	t.conn = nil
	return err
}

// --------------------------------------------------------------------------
// Helper Methods
// --------------------------------------------------------------------------

// readResponses reads datagrams in a loop and hands them to the waiting requests
func (t *clientTransport) readResponses(bufferSize int) {
	defer close(t.readerDone)
	buf := make([]byte, bufferSize)

	for {
		n, err := t.conn.Read(buf)
		if err != nil {
			select {
			case <-t.stopCh:
				return
			default:
			}
			if errors.Is(err, net.ErrClosed) {
				return
			}
			// e.g. connection refused while the server is not (yet) listening
			Logger.Debugf("Error reading response from %s: %v", t.config.Endpoint, err)
			continue
		}

		requestID, msg, err := readFrame(buf[:n])
		if err != nil {
			Logger.Warningf("Dropping response from %s: %v", t.config.Endpoint, err)
			continue
		}

		respCh, found := t.pending.LoadAndDelete(requestID)
		if !found {
			Logger.Warningf("Received response for unknown request ID %d", requestID)
			continue
		}

		data := make([]byte, len(msg))
		copy(data, msg)
		respCh <- data
	}
}
