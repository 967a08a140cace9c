package provision

import (
	"fmt"
	"strings"

	"github.com/ValentinKolb/tKV/lib/ext"
	"github.com/ValentinKolb/tKV/lib/tenant"
	"github.com/lni/dragonboat/v4/logger"
)

var log = logger.GetLogger("provision")

// Apply creates everything the manifest describes in the registry and loads the extensions
// into the manager. Tenants and tables that already exist are reused, entries overwrite.
//
// Order: tenants and tables with their entries, then seeds, then extensions. Apply stops
// at the first error, everything created up to that point stays in place.
func Apply(m *Manifest, registry *tenant.Registry, manager *ext.Manager) error {
	for _, ts := range m.Tenants {
		registry.CreateTenant(ts.ID)

		for _, tbl := range ts.Tables {
			table, err := registry.CreateTable(ts.ID, tbl.ID)
			if err != nil {
				return fmt.Errorf("failed to create table %d of tenant %d: %w", tbl.ID, ts.ID, err)
			}
			for i, e := range tbl.Entries {
				key, err := e.Key.Bytes()
				if err != nil {
					return fmt.Errorf("tenant %d table %d entry %d: %w", ts.ID, tbl.ID, i, err)
				}
				value, err := e.Value.Bytes()
				if err != nil {
					return fmt.Errorf("tenant %d table %d entry %d: %w", ts.ID, tbl.ID, i, err)
				}
				table.Put(key, value)
			}
			log.Debugf("provisioned table %d of tenant %d with %d entries", tbl.ID, ts.ID, len(tbl.Entries))
		}
	}

	for _, seed := range m.Seeds {
		path, ok := strings.CutPrefix(seed, BoltSeedPrefix)
		if !ok {
			return fmt.Errorf("seed %q: unsupported format", seed)
		}
		n, err := ImportBolt(path, registry)
		if err != nil {
			return err
		}
		log.Infof("imported %d entries from %s", n, path)
	}

	for _, ts := range m.Tenants {
		for _, es := range ts.Extensions {
			access, err := ext.ParseAccess(es.Access)
			if err != nil {
				return fmt.Errorf("extension %q of tenant %d: %w", es.Name, ts.ID, err)
			}
			opts := []ext.LoadOption{ext.WithAccess(access)}
			if es.Checksum != "" {
				opts = append(opts, ext.WithChecksum(es.Checksum))
			}
			if err := manager.Load(es.Source, ts.ID, es.Name, opts...); err != nil {
				return err
			}
		}
	}

	log.Infof("provisioned %d tenants", len(m.Tenants))
	return nil
}
