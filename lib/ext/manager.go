package ext

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/ValentinKolb/tKV/rpc/wire"
	"github.com/lni/dragonboat/v4/logger"
	"github.com/puzpuzpuz/xsync/v3"
)

var log = logger.GetLogger("ext")

// BuiltinPrefix marks an extension source that refers to a compiled-in extension
// (e.g. "builtin:get"). Any other source is treated as the path to a Go plugin.
const BuiltinPrefix = "builtin:"

var (
	// ErrExtensionNotFound is returned when a tenant has no extension with the given name
	ErrExtensionNotFound = errors.New("extension not found")
	// ErrAlreadyLoaded is returned when an extension name is loaded twice for the same tenant
	ErrAlreadyLoaded = errors.New("extension already loaded")
	// ErrUnknownBuiltin is returned when a builtin source names an unregistered extension
	ErrUnknownBuiltin = errors.New("unknown builtin extension")
	// ErrTenantMismatch is returned when a call is made with a handle of another tenant
	ErrTenantMismatch = errors.New("data handle belongs to another tenant")
	// ErrPanic is wrapped by a CallError when the extension panicked
	ErrPanic = errors.New("extension panicked")
)

// CallError reports a failure of extension code.
type CallError struct {
	Tenant wire.TenantID
	Name   string
	Err    error
}

func (e *CallError) Error() string {
	return fmt.Sprintf("extension %q of tenant %d failed: %v", e.Name, e.Tenant, e.Err)
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// --------------------------------------------------------------------------
// Builtin Registry
// --------------------------------------------------------------------------

var (
	builtinsMu sync.RWMutex
	builtins   = map[string]func() Extension{}
)

// RegisterBuiltin makes a compiled-in extension available under "builtin:<name>".
// It is meant to be called from init functions and panics on duplicate names.
func RegisterBuiltin(name string, factory func() Extension) {
	builtinsMu.Lock()
	defer builtinsMu.Unlock()
	if _, exists := builtins[name]; exists {
		panic(fmt.Sprintf("ext: builtin %q registered twice", name))
	}
	builtins[name] = factory
}

// Builtins returns the names of all registered builtin extensions.
func Builtins() []string {
	builtinsMu.RLock()
	defer builtinsMu.RUnlock()
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func lookupBuiltin(name string) (Extension, error) {
	builtinsMu.RLock()
	factory, ok := builtins[name]
	builtinsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownBuiltin, name)
	}
	return factory(), nil
}

// --------------------------------------------------------------------------
// Load Options
// --------------------------------------------------------------------------

type loadOptions struct {
	access   Access
	checksum string
}

// LoadOption configures how an extension is loaded.
type LoadOption func(*loadOptions)

func newLoadOptions(opts []LoadOption) loadOptions {
	o := loadOptions{access: AccessNone}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithAccess sets the data access granted to the extension (default: AccessNone).
func WithAccess(access Access) LoadOption {
	return func(o *loadOptions) { o.access = access }
}

// WithChecksum sets the expected hex encoded BLAKE3 checksum of a plugin file.
// The plugin is only opened if the file matches. Ignored for builtin extensions.
func WithChecksum(checksum string) LoadOption {
	return func(o *loadOptions) { o.checksum = strings.ToLower(strings.TrimSpace(checksum)) }
}

// --------------------------------------------------------------------------
// Manager
// --------------------------------------------------------------------------

// Info describes a loaded extension.
type Info struct {
	Tenant wire.TenantID `json:"tenant"`
	Name   string        `json:"name"`
	Source string        `json:"source"`
	Access string        `json:"access"`
}

type recordKey struct {
	tenant wire.TenantID
	name   string
}

type record struct {
	info   Info
	access Access
	ext    Extension
}

// Manager binds (tenant, name) pairs to loaded extensions and invokes them.
//
// Thread-safety: All methods are safe for concurrent use. Loading is expected to happen
// at provisioning time, but may run concurrently with calls.
type Manager struct {
	records *xsync.MapOf[recordKey, *record]
}

// NewManager creates a manager without any loaded extensions.
func NewManager() *Manager {
	return &Manager{
		records: xsync.NewMapOf[recordKey, *record](),
	}
}

// Load binds the extension found at source to the given tenant and name.
//
// Source is either "builtin:<name>" for a compiled-in extension or the path to a Go
// plugin exporting a symbol named "Extension" that implements the Extension interface.
func (m *Manager) Load(source string, tenant wire.TenantID, name string, opts ...LoadOption) error {
	o := newLoadOptions(opts)

	var (
		e   Extension
		err error
	)
	if builtin, ok := strings.CutPrefix(source, BuiltinPrefix); ok {
		e, err = lookupBuiltin(builtin)
	} else {
		e, err = openPlugin(source, o.checksum)
	}
	if err != nil {
		return fmt.Errorf("failed to load extension %q for tenant %d: %w", name, tenant, err)
	}

	return m.bind(e, source, tenant, name, o)
}

// Register binds an extension value that already lives in the process (e.g. when tKV is
// embedded as a library) to the given tenant and name.
func (m *Manager) Register(e Extension, tenant wire.TenantID, name string, opts ...LoadOption) error {
	if e == nil {
		return fmt.Errorf("cannot register extension %q for tenant %d: extension is nil", name, tenant)
	}
	return m.bind(e, "inline", tenant, name, newLoadOptions(opts))
}

// bind stores the record for a loaded extension
func (m *Manager) bind(e Extension, source string, tenant wire.TenantID, name string, o loadOptions) error {
	if name == "" {
		return fmt.Errorf("cannot load %q: empty extension name", source)
	}

	rec := &record{
		info: Info{
			Tenant: tenant,
			Name:   name,
			Source: source,
			Access: o.access.String(),
		},
		access: o.access,
		ext:    e,
	}
	if _, loaded := m.records.LoadOrStore(recordKey{tenant, name}, rec); loaded {
		return fmt.Errorf("%w: %q for tenant %d", ErrAlreadyLoaded, name, tenant)
	}

	log.Infof("loaded extension %q for tenant %d from %s (access: %s)", name, tenant, source, o.access)
	return nil
}

// Access returns the access level granted to an extension.
func (m *Manager) Access(tenant wire.TenantID, name string) (Access, bool) {
	rec, ok := m.records.Load(recordKey{tenant, name})
	if !ok {
		return AccessNone, false
	}
	return rec.access, true
}

// Call invokes the named extension of the tenant with the given handle and arguments.
//
// ErrExtensionNotFound is returned if the extension is not loaded. Failures of the
// extension itself, including panics, are returned as *CallError.
func (m *Manager) Call(db DB, tenant wire.TenantID, name string, args []byte) (err error) {
	rec, ok := m.records.Load(recordKey{tenant, name})
	if !ok {
		return fmt.Errorf("%w: %q for tenant %d", ErrExtensionNotFound, name, tenant)
	}
	if db == nil {
		db = NullDB(tenant)
	}
	if db.Tenant() != tenant {
		return fmt.Errorf("%w: handle of tenant %d used for tenant %d", ErrTenantMismatch, db.Tenant(), tenant)
	}

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("extension %q of tenant %d panicked: %v", name, tenant, r)
			err = &CallError{Tenant: tenant, Name: name, Err: fmt.Errorf("%w: %v", ErrPanic, r)}
		}
	}()

	if callErr := rec.ext.Invoke(db, args); callErr != nil {
		return &CallError{Tenant: tenant, Name: name, Err: callErr}
	}
	return nil
}

// Extensions returns all extensions of a tenant ordered by name.
func (m *Manager) Extensions(tenant wire.TenantID) []Info {
	var infos []Info
	m.records.Range(func(k recordKey, rec *record) bool {
		if k.tenant == tenant {
			infos = append(infos, rec.info)
		}
		return true
	})
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })
	return infos
}
