package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/ValentinKolb/tKV/lib/ext"
	"github.com/ValentinKolb/tKV/lib/store"
	"github.com/ValentinKolb/tKV/lib/tenant"
	"github.com/ValentinKolb/tKV/rpc/wire"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/lni/dragonboat/v4/logger"
)

var adminLogger = logger.GetLogger("admin")

// --------------------------------------------------------------------------
// Response Types
// --------------------------------------------------------------------------

// HealthResponse is returned by GET /healthz
type HealthResponse struct {
	Status   string `json:"status"`
	Instance string `json:"instance"`
	Uptime   string `json:"uptime"`
}

// TableInfo describes a table in GET /tenants. Size statistics need a full scan of the
// table and are only included for a single tenant (GET /tenants/{tenantID}).
type TableInfo struct {
	ID      wire.TableID      `json:"id"`
	Entries int               `json:"entries"`
	Stats   *store.TableStats `json:"stats,omitempty"`
}

// TenantInfo describes a tenant in GET /tenants
type TenantInfo struct {
	ID         wire.TenantID `json:"id"`
	Tables     []TableInfo   `json:"tables"`
	Extensions []ext.Info    `json:"extensions"`
}

// ErrorResponse is returned for failed admin requests
type ErrorResponse struct {
	Error string `json:"error"`
}

// --------------------------------------------------------------------------
// Admin Server
// --------------------------------------------------------------------------

// AdminServer exposes health, metrics and the provisioned state over HTTP.
type AdminServer struct {
	master   *Master
	instance string
	started  time.Time
	server   *http.Server
}

// NewAdminServer creates the admin api for a master. Every server instance gets a random id.
func NewAdminServer(master *Master) *AdminServer {
	a := &AdminServer{
		master:   master,
		instance: uuid.NewString(),
		started:  time.Now(),
	}
	a.server = &http.Server{
		Handler:      a.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return a
}

// Instance returns the id of this server instance
func (a *AdminServer) Instance() string {
	return a.instance
}

// Routes builds the router of the admin api
func (a *AdminServer) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(a.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", a.handleHealth)
	r.Get("/metrics", a.handleMetrics)
	r.Get("/stats", a.handleStats)
	r.Route("/tenants", func(r chi.Router) {
		r.Get("/", a.handleTenants)
		r.Get("/{tenantID}", a.handleTenant)
	})
	return r
}

// Serve serves the admin api on the listener until Shutdown is called.
// After Shutdown, Serve returns immediately and closes l.
func (a *AdminServer) Serve(l net.Listener) error {
	adminLogger.Infof("admin api listening on %s (instance %s)", l.Addr(), a.instance)
	if err := a.server.Serve(l); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("admin server error: %w", err)
	}
	return nil
}

// Shutdown gracefully stops the admin api
func (a *AdminServer) Shutdown(ctx context.Context) error {
	return a.server.Shutdown(ctx)
}

// --------------------------------------------------------------------------
// Handlers
// --------------------------------------------------------------------------

func (a *AdminServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	respondJSON(w, http.StatusOK, HealthResponse{
		Status:   "ok",
		Instance: a.instance,
		Uptime:   time.Since(a.started).Truncate(time.Second).String(),
	})
}

func (a *AdminServer) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4")
	a.master.Metrics().WritePrometheus(w)
}

func (a *AdminServer) handleStats(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	a.master.Metrics().WriteJSON(w)
}

func (a *AdminServer) handleTenants(w http.ResponseWriter, _ *http.Request) {
	tenants := a.master.Registry().Tenants()
	infos := make([]TenantInfo, 0, len(tenants))
	for _, t := range tenants {
		infos = append(infos, a.describe(t, false))
	}
	respondJSON(w, http.StatusOK, infos)
}

func (a *AdminServer) handleTenant(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(chi.URLParam(r, "tenantID"), 10, 32)
	if err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid tenant id"})
		return
	}
	t, ok := a.master.Registry().Tenant(wire.TenantID(id))
	if !ok {
		respondJSON(w, http.StatusNotFound, ErrorResponse{Error: tenant.ErrTenantDoesNotExist.Error()})
		return
	}
	respondJSON(w, http.StatusOK, a.describe(t, true))
}

// describe builds the admin view of a tenant
func (a *AdminServer) describe(t *tenant.Tenant, withStats bool) TenantInfo {
	info := TenantInfo{
		ID:         t.ID(),
		Tables:     []TableInfo{},
		Extensions: a.master.Extensions().Extensions(t.ID()),
	}
	if info.Extensions == nil {
		info.Extensions = []ext.Info{}
	}
	for _, id := range t.TableIDs() {
		table, ok := t.Table(id)
		if !ok {
			continue
		}
		tableInfo := TableInfo{ID: id, Entries: table.Len()}
		if withStats {
			stats := store.Stats(table)
			tableInfo.Stats = &stats
		}
		info.Tables = append(info.Tables, tableInfo)
	}
	return info
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

// loggingMiddleware logs every admin request at debug level
func (a *AdminServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		adminLogger.Debugf("%s %s -> %d (%s, request %s)", r.Method, r.URL.Path, ww.Status(), time.Since(start), middleware.GetReqID(r.Context()))
	})
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		adminLogger.Warningf("failed to encode response: %v", err)
	}
}
