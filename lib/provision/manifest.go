package provision

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ValentinKolb/tKV/lib/ext"
	"github.com/ValentinKolb/tKV/rpc/wire"
	"gopkg.in/yaml.v3"
)

// BoltSeedPrefix marks a seed that is imported from a bbolt database file
const BoltSeedPrefix = "bolt:"

// Manifest describes the tenants, tables, entries and extensions a server starts with.
type Manifest struct {
	Tenants []TenantSpec `yaml:"tenants"`
	// Seeds are imported after the tenants of the manifest were created (e.g. "bolt:seed.db").
	// Relative paths are resolved against the directory of the manifest.
	Seeds []string `yaml:"seeds,omitempty"`
}

// TenantSpec describes a single tenant.
type TenantSpec struct {
	ID         wire.TenantID   `yaml:"id"`
	Tables     []TableSpec     `yaml:"tables,omitempty"`
	Extensions []ExtensionSpec `yaml:"extensions,omitempty"`
}

// TableSpec describes a table and its initial content.
type TableSpec struct {
	ID      wire.TableID `yaml:"id"`
	Entries []EntrySpec  `yaml:"entries,omitempty"`
}

// EntrySpec is a single key value pair.
type EntrySpec struct {
	Key   Blob `yaml:"key"`
	Value Blob `yaml:"value"`
}

// ExtensionSpec binds an extension to the tenant it is listed under.
type ExtensionSpec struct {
	Name     string `yaml:"name"`
	Source   string `yaml:"source"`
	Access   string `yaml:"access,omitempty"`
	Checksum string `yaml:"checksum,omitempty"`
}

// --------------------------------------------------------------------------
// Blob
// --------------------------------------------------------------------------

// Blob is a byte string in a manifest. Exactly one of its forms must be set:
//
//	key: plain text              # scalar shorthand for text
//	key: {text: plain text}
//	key: {hex: "0a0b0c"}
//	key: {fill: 1, len: 30}      # 30 bytes with value 0x01
type Blob struct {
	Text string `yaml:"text,omitempty"`
	Hex  string `yaml:"hex,omitempty"`
	Fill *uint8 `yaml:"fill,omitempty"`
	Len  int    `yaml:"len,omitempty"`
}

// FillBlob returns a blob of n bytes with value b
func FillBlob(b byte, n int) Blob {
	return Blob{Fill: &b, Len: n}
}

// UnmarshalYAML accepts the scalar shorthand in addition to the mapping form
func (b *Blob) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		*b = Blob{Text: node.Value}
		return nil
	}
	type plain Blob
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*b = Blob(p)
	return nil
}

// Bytes returns the bytes described by the blob
func (b Blob) Bytes() ([]byte, error) {
	forms := 0
	if b.Text != "" {
		forms++
	}
	if b.Hex != "" {
		forms++
	}
	if b.Fill != nil {
		forms++
	}
	if forms > 1 {
		return nil, errors.New("blob must use only one of text, hex or fill")
	}

	switch {
	case b.Hex != "":
		v, err := hex.DecodeString(b.Hex)
		if err != nil {
			return nil, fmt.Errorf("invalid hex blob: %w", err)
		}
		return v, nil
	case b.Fill != nil:
		if b.Len < 0 {
			return nil, fmt.Errorf("invalid fill length %d", b.Len)
		}
		return bytes.Repeat([]byte{*b.Fill}, b.Len), nil
	default:
		return []byte(b.Text), nil
	}
}

// --------------------------------------------------------------------------
// Loading
// --------------------------------------------------------------------------

// Default returns the manifest used when the server is started without one: tenant 1 with
// table 1 holding a single entry (30 bytes of 0x01 mapped to 100 bytes of 91) and the
// builtin "get" extension with read access.
func Default() *Manifest {
	return &Manifest{
		Tenants: []TenantSpec{{
			ID: 1,
			Tables: []TableSpec{{
				ID: 1,
				Entries: []EntrySpec{{
					Key:   FillBlob(1, 30),
					Value: FillBlob(91, 100),
				}},
			}},
			Extensions: []ExtensionSpec{{
				Name:   "get",
				Source: "builtin:get",
				Access: "read",
			}},
		}},
	}
}

// Load reads and validates a manifest file
func Load(path string) (*Manifest, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve manifest path %q: %w", path, err)
	}

	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("invalid manifest %s: %w", absPath, err)
	}

	// seeds are relative to the manifest
	dir := filepath.Dir(absPath)
	for i, seed := range m.Seeds {
		if p, ok := strings.CutPrefix(seed, BoltSeedPrefix); ok && !filepath.IsAbs(p) {
			m.Seeds[i] = BoltSeedPrefix + filepath.Join(dir, p)
		}
	}
	return m, nil
}

// Parse decodes and validates a manifest. Unknown fields are rejected.
func Parse(data []byte) (*Manifest, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var m Manifest
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("failed to decode: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Marshal encodes the manifest as YAML
func (m *Manifest) Marshal() ([]byte, error) {
	return yaml.Marshal(m)
}

// Validate checks the manifest for duplicates and malformed values
func (m *Manifest) Validate() error {
	var errs []error
	tenants := make(map[wire.TenantID]bool)

	for _, t := range m.Tenants {
		if tenants[t.ID] {
			errs = append(errs, fmt.Errorf("tenant %d: defined twice", t.ID))
		}
		tenants[t.ID] = true

		tables := make(map[wire.TableID]bool)
		for _, tbl := range t.Tables {
			if tables[tbl.ID] {
				errs = append(errs, fmt.Errorf("tenant %d: table %d defined twice", t.ID, tbl.ID))
			}
			tables[tbl.ID] = true

			for i, e := range tbl.Entries {
				if _, err := e.Key.Bytes(); err != nil {
					errs = append(errs, fmt.Errorf("tenant %d table %d entry %d: key: %w", t.ID, tbl.ID, i, err))
				}
				if _, err := e.Value.Bytes(); err != nil {
					errs = append(errs, fmt.Errorf("tenant %d table %d entry %d: value: %w", t.ID, tbl.ID, i, err))
				}
			}
		}

		names := make(map[string]bool)
		for _, e := range t.Extensions {
			switch {
			case e.Name == "":
				errs = append(errs, fmt.Errorf("tenant %d: extension without name", t.ID))
			case names[e.Name]:
				errs = append(errs, fmt.Errorf("tenant %d: extension %q defined twice", t.ID, e.Name))
			}
			names[e.Name] = true
			if e.Source == "" {
				errs = append(errs, fmt.Errorf("tenant %d: extension %q has no source", t.ID, e.Name))
			}
			if _, err := ext.ParseAccess(e.Access); err != nil {
				errs = append(errs, fmt.Errorf("tenant %d: extension %q: %w", t.ID, e.Name, err))
			}
		}
	}

	for _, seed := range m.Seeds {
		if !strings.HasPrefix(seed, BoltSeedPrefix) {
			errs = append(errs, fmt.Errorf("seed %q: unsupported format (expected %s<path>)", seed, BoltSeedPrefix))
		}
	}
	return errors.Join(errs...)
}
