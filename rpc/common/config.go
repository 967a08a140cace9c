package common

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Transport types
// --------------------------------------------------------------------------

const (
	// TransportUDP serves datagrams on a UDP socket (endpoint host:port)
	TransportUDP = "udp"
	// TransportUnix serves datagrams on a unixgram socket (endpoint is a file path)
	TransportUnix = "unix"
)

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of the RPC server.
type ServerConfig struct {
	// datagram transport settings
	Transport     string
	Endpoint      string
	BufferSize    int
	Workers       int
	TimeoutSecond int64

	// admin HTTP api, disabled if empty
	AdminEndpoint string

	// provisioning manifest, the default bootstrap is used if empty
	Manifest string

	// Logging configuration
	LogLevel string
}

// DefaultServerConfig returns the configuration used when no flags are given
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Transport:     TransportUDP,
		Endpoint:      "127.0.0.1:7400",
		BufferSize:    64 * 1024,
		Workers:       64,
		TimeoutSecond: 5,
		AdminEndpoint: "127.0.0.1:7401",
		LogLevel:      "info",
	}
}

// Validate checks the configuration for values the server cannot run with
func (c *ServerConfig) Validate() error {
	var errs []error
	if c.Transport != TransportUDP && c.Transport != TransportUnix {
		errs = append(errs, fmt.Errorf("unknown transport %q (expected %s or %s)", c.Transport, TransportUDP, TransportUnix))
	}
	if c.Endpoint == "" {
		errs = append(errs, errors.New("endpoint must not be empty"))
	}
	if c.BufferSize < 64 {
		errs = append(errs, fmt.Errorf("buffer size %d is too small (minimum 64 bytes)", c.BufferSize))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("at least one worker is required, got %d", c.Workers))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Transport", c.Transport)
	addField("Endpoint", c.Endpoint)
	addField("Buffer Size", fmt.Sprintf("%d bytes", c.BufferSize))
	addField("Workers", strconv.Itoa(c.Workers))
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))

	// Admin api
	addSection("Admin API")
	if c.AdminEndpoint == "" {
		addField("Endpoint", "disabled")
	} else {
		addField("Endpoint", c.AdminEndpoint)
	}

	// Provisioning
	addSection("Provisioning")
	if c.Manifest == "" {
		addField("Manifest", "default bootstrap")
	} else {
		addField("Manifest", c.Manifest)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.LogLevel)

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientConfig holds the configuration of the RPC client.
type ClientConfig struct {
	Transport     string
	Endpoint      string
	BufferSize    int
	TimeoutSecond int
	RetryCount    int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Transport", c.Transport)
	addField("Endpoint", c.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.RetryCount))

	return sb.String()
}
