package server

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/ValentinKolb/tKV/lib/ext"
	"github.com/ValentinKolb/tKV/lib/tenant"
	"github.com/ValentinKolb/tKV/rpc/packet"
	"github.com/ValentinKolb/tKV/rpc/wire"
)

// Master owns the state every request is served from: the tenant registry and the
// extension manager. It is initialised once at start and shared by all workers.
type Master struct {
	registry   *tenant.Registry
	extensions *ext.Manager
	metrics    *Metrics
}

// NewMaster creates a master over a (provisioned) registry and extension manager
func NewMaster(registry *tenant.Registry, extensions *ext.Manager) *Master {
	return &Master{
		registry:   registry,
		extensions: extensions,
		metrics:    NewMetrics(),
	}
}

func (m *Master) Registry() *tenant.Registry { return m.registry }
func (m *Master) Extensions() *ext.Manager   { return m.extensions }
func (m *Master) Metrics() *Metrics          { return m.metrics }

// --------------------------------------------------------------------------
// Dispatch
// --------------------------------------------------------------------------

// Dispatch handles a single request.
//
// req must be parsed up to the transport header, resp must be positioned at the same
// boundary with an empty payload. The handler of the opcode parses the RPC header of
// req, pushes a response header into resp and records the outcome in its status. On
// return both buffers are deparsed back to the depth they were passed in with, resp
// always carries a response header (capacity permitting).
//
// Dispatch never blocks on I/O, it is safe to call concurrently for distinct buffer pairs.
func (m *Master) Dispatch(req, resp *packet.Buffer) (*packet.Buffer, *packet.Buffer) {
	start := time.Now()
	reqDepth, respDepth := req.Depth(), resp.Depth()

	var (
		op     wire.OpCode
		status wire.Status
	)
	if payload := req.Payload(); len(payload) < wire.CommonHeaderLen {
		if len(payload) > 0 {
			op = wire.OpCode(payload[0])
		}
		status = m.reject(resp, op, 0, wire.StatusMalformedRequest)
	} else {
		op = wire.PeekOpCode(payload)
		switch op {
		case wire.OpGet:
			status = m.handleGet(req, resp)
		case wire.OpInvoke:
			status = m.handleInvoke(req, resp)
		default:
			// the request stays untouched, only the response gets an error header
			common := wire.Common(payload[:wire.CommonHeaderLen])
			status = m.reject(resp, op, common.Tenant(), wire.StatusUnsupportedOperation)
		}
	}

	// rewind both buffers to the transport header boundary
	if err := req.DeparseTo(reqDepth); err != nil {
		Logger.Errorf("failed to deparse request: %v", err)
	}
	if err := resp.DeparseTo(respDepth); err != nil {
		Logger.Errorf("failed to deparse response: %v", err)
	}

	m.metrics.observe(op, status, start)
	return req, resp
}

// reject pushes a header-only error response
func (m *Master) reject(resp *packet.Buffer, op wire.OpCode, tenantID wire.TenantID, status wire.Status) wire.Status {
	if _, err := resp.PushHeader(wire.NewErrorResponse(op, tenantID, status)); err != nil {
		Logger.Errorf("failed to push error response (%s): %v", status, err)
		return wire.StatusInternalError
	}
	return status
}

// --------------------------------------------------------------------------
// Get
// --------------------------------------------------------------------------

// handleGet looks up a single key and appends its value to the response
func (m *Master) handleGet(req, resp *packet.Buffer) wire.Status {
	raw, err := req.ParseHeader(wire.GetRequestLen)
	if err != nil {
		tenantID := wire.Common(req.Payload()[:wire.CommonHeaderLen]).Tenant()
		return m.reject(resp, wire.OpGet, tenantID, wire.StatusMalformedRequest)
	}
	hdr := wire.GetRequest(raw)
	tenantID, tableID := hdr.Tenant(), hdr.Table()
	keyLength := int(hdr.KeyLength())

	rawResp, err := resp.PushHeader(wire.NewGetResponse(tenantID))
	if err != nil {
		Logger.Errorf("failed to push get response: %v", err)
		return wire.StatusInternalError
	}
	respHdr := wire.GetResponse(rawResp)

	status := m.get(req.Payload(), keyLength, tenantID, tableID, resp)
	if status == wire.StatusOk {
		// the value length always reflects what actually is in the response
		respHdr.SetValueLength(uint32(len(resp.Payload())))
	}
	respHdr.SetStatus(status)
	return status
}

// get resolves the key and appends the value, it returns the status of the lookup
func (m *Master) get(payload []byte, keyLength int, tenantID wire.TenantID, tableID wire.TableID, resp *packet.Buffer) wire.Status {
	if len(payload) < keyLength {
		return wire.StatusMalformedRequest
	}
	key := payload[:keyLength]

	table, err := m.registry.Table(tenantID, tableID)
	switch {
	case errors.Is(err, tenant.ErrTenantDoesNotExist):
		return wire.StatusTenantDoesNotExist
	case errors.Is(err, tenant.ErrTableDoesNotExist):
		return wire.StatusTableDoesNotExist
	case err != nil:
		return wire.StatusInternalError
	}

	value, ok := table.Get(key)
	if !ok {
		return wire.StatusObjectDoesNotExist
	}

	if err := resp.AppendPayload(value); err != nil {
		Logger.Warningf("value of %d bytes does not fit into the response (tenant %d, table %d): %v", len(value), tenantID, tableID, err)
		return wire.StatusInternalError
	}
	return wire.StatusOk
}

// --------------------------------------------------------------------------
// Invoke
// --------------------------------------------------------------------------

// handleInvoke calls an extension of the tenant with the argument bytes of the request
func (m *Master) handleInvoke(req, resp *packet.Buffer) wire.Status {
	raw, err := req.ParseHeader(wire.InvokeRequestLen)
	if err != nil {
		tenantID := wire.Common(req.Payload()[:wire.CommonHeaderLen]).Tenant()
		return m.reject(resp, wire.OpInvoke, tenantID, wire.StatusMalformedRequest)
	}
	hdr := wire.InvokeRequest(raw)
	tenantID := hdr.Tenant()

	rawResp, err := resp.PushHeader(wire.NewInvokeResponse(tenantID))
	if err != nil {
		Logger.Errorf("failed to push invoke response: %v", err)
		return wire.StatusInternalError
	}
	respHdr := wire.InvokeResponse(rawResp)

	status := m.invoke(req.Payload(), uint64(hdr.NameLength()), uint64(hdr.ArgsLength()), tenantID)
	respHdr.SetStatus(status)
	return status
}

// invoke validates the name and calls the extension, it returns the status of the call
func (m *Master) invoke(payload []byte, nameLength, argsLength uint64, tenantID wire.TenantID) wire.Status {
	// both lengths are 32 bit, their sum cannot overflow in 64 bit
	if uint64(len(payload)) < nameLength+argsLength {
		return wire.StatusMalformedRequest
	}
	rawName := payload[:nameLength]
	args := payload[nameLength : nameLength+argsLength]

	if len(rawName) == 0 || !utf8.Valid(rawName) {
		return wire.StatusMalformedRequest
	}
	name := string(rawName)

	t, ok := m.registry.Tenant(tenantID)
	if !ok {
		return wire.StatusTenantDoesNotExist
	}

	access, ok := m.extensions.Access(tenantID, name)
	if !ok {
		return wire.StatusExtensionDoesNotExist
	}

	start := time.Now()
	err := m.extensions.Call(ext.NewHandle(t, access), tenantID, name, args)
	m.metrics.observeExtension(err, start)

	switch {
	case err == nil:
		return wire.StatusOk
	case errors.Is(err, ext.ErrExtensionNotFound):
		return wire.StatusExtensionDoesNotExist
	default:
		Logger.Debugf("invoke of %q for tenant %d failed: %v", name, tenantID, err)
		return wire.StatusExtensionError
	}
}
