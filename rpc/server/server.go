package server

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/ValentinKolb/tKV/lib/ext"
	"github.com/ValentinKolb/tKV/lib/provision"
	"github.com/ValentinKolb/tKV/lib/tenant"
	"github.com/ValentinKolb/tKV/rpc/common"
	"github.com/ValentinKolb/tKV/rpc/transport"
	"github.com/lni/dragonboat/v4/logger"

	// builtin extensions are available to every server
	_ "github.com/ValentinKolb/tKV/lib/ext/builtin"
)

var Logger = logger.GetLogger("rpc")

// RPCServer wires the master to a transport and the admin api.
type RPCServer struct {
	config    common.ServerConfig
	transport transport.IRPCServerTransport
	master    *Master
	admin     *AdminServer

	provisionOnce sync.Once
	provisionErr  error
}

// NewRPCServer creates a new RPC server
// It takes a config and transport as parameters
//
// Usage:
//
//	s := server.NewRPCServer(
//		config,
//		udp.NewUDPServerTransport(config.BufferSize, config.Workers),
//	)
//
//	if err := s.Serve(); err != nil {
//		panic(err)
//	}
func NewRPCServer(config common.ServerConfig, transport transport.IRPCServerTransport) *RPCServer {
	// https://github.com/golang/go/issues/17393
	if runtime.GOOS == "darwin" {
		signal.Ignore(syscall.Signal(0xd))
	}

	// components are bound to a logger on their first message, provisioning must not come first.
	// An invalid level is reported by Serve.
	_ = common.InitLoggers(config.LogLevel)

	s := &RPCServer{
		config:    config,
		transport: transport,
		master:    NewMaster(tenant.NewRegistry(), ext.NewManager()),
	}
	if config.AdminEndpoint != "" {
		s.admin = NewAdminServer(s.master)
	}
	return s
}

// Master returns the state the server dispatches requests against
func (s *RPCServer) Master() *Master {
	return s.master
}

// Provision loads the manifest of the configuration (or the default bootstrap if none is
// configured) into the master. It runs only once, Serve calls it implicitly.
func (s *RPCServer) Provision() error {
	s.provisionOnce.Do(func() {
		manifest := provision.Default()
		if s.config.Manifest != "" {
			var err error
			if manifest, err = provision.Load(s.config.Manifest); err != nil {
				s.provisionErr = err
				return
			}
		}
		if err := provision.Apply(manifest, s.master.Registry(), s.master.Extensions()); err != nil {
			s.provisionErr = fmt.Errorf("failed to provision: %w", err)
		}
	})
	return s.provisionErr
}

// init prepares everything but the transport
func (s *RPCServer) init() error {
	if err := common.InitLoggers(s.config.LogLevel); err != nil {
		return err
	}

	Logger.Infof("Created RPC Server")
	Logger.Infof(s.config.String())

	if err := s.Provision(); err != nil {
		return err
	}

	if s.config.AdminEndpoint != "" {
		l, err := net.Listen("tcp", s.config.AdminEndpoint)
		if err != nil {
			return fmt.Errorf("failed to listen for admin api: %w", err)
		}
		go func() {
			if err := s.admin.Serve(l); err != nil {
				adminLogger.Errorf("%v", err)
			}
		}()
	}

	// Configure the transport layer
	s.transport.RegisterHandler(s.master.Dispatch)

	Logger.Infof("tKV setup completed successfully")
	return nil
}

// Serve starts the RPC server
// This function will also provision the master and start the admin api and the transport layer.
// It blocks until Close is called.
func (s *RPCServer) Serve() error {
	if err := s.init(); err != nil {
		return err
	}
	return s.transport.Listen(s.config)
}

// ServeConn is like Serve but uses an already opened socket instead of the configured endpoint
func (s *RPCServer) ServeConn(conn net.PacketConn) error {
	if err := s.init(); err != nil {
		return err
	}
	return s.transport.Serve(conn)
}

// Close stops the transport and the admin api
func (s *RPCServer) Close() error {
	if s.admin != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.admin.Shutdown(ctx); err != nil {
			adminLogger.Warningf("failed to stop admin api: %v", err)
		}
	}
	return s.transport.Close()
}
