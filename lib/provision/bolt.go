package provision

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ValentinKolb/tKV/lib/tenant"
	"github.com/ValentinKolb/tKV/rpc/wire"
	"go.etcd.io/bbolt"
)

/*
	Layout of a seed database:

	  tenant-<id>          top level bucket per tenant (decimal id)
	    table-<id>         nested bucket per table (decimal id)
	      key -> value     entries of the table

	Buckets with other names are ignored.
*/

const (
	tenantBucketPrefix = "tenant-"
	tableBucketPrefix  = "table-"
)

// ImportBolt copies all tenants, tables and entries of a seed database into the registry and
// returns the number of imported entries. Missing tenants and tables are created.
func ImportBolt(path string, registry *tenant.Registry) (int, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{ReadOnly: true, Timeout: time.Second})
	if err != nil {
		return 0, fmt.Errorf("failed to open seed %s: %w", path, err)
	}
	defer db.Close()

	count := 0
	err = db.View(func(tx *bbolt.Tx) error {
		return tx.ForEach(func(name []byte, tb *bbolt.Bucket) error {
			tenantID, ok := parseBucketID(name, tenantBucketPrefix, 32)
			if !ok {
				log.Debugf("seed %s: skipping bucket %q", path, name)
				return nil
			}
			tid := wire.TenantID(tenantID)
			registry.CreateTenant(tid)

			return tb.ForEach(func(name, v []byte) error {
				// only nested buckets (nil value) hold tables
				if v != nil {
					return nil
				}
				tableID, ok := parseBucketID(name, tableBucketPrefix, 64)
				if !ok {
					log.Debugf("seed %s: skipping bucket %q of tenant %d", path, name, tid)
					return nil
				}
				table, err := registry.CreateTable(tid, wire.TableID(tableID))
				if err != nil {
					return err
				}
				return tb.Bucket(name).ForEach(func(k, v []byte) error {
					// nested buckets have a nil value
					if v == nil {
						return nil
					}
					table.Put(k, v)
					count++
					return nil
				})
			})
		})
	})
	if err != nil {
		return count, fmt.Errorf("failed to import seed %s: %w", path, err)
	}
	return count, nil
}

// ExportBolt writes all tenants and tables of the registry into a seed database
func ExportBolt(path string, registry *tenant.Registry) error {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open seed %s: %w", path, err)
	}
	defer db.Close()

	return db.Update(func(tx *bbolt.Tx) error {
		for _, t := range registry.Tenants() {
			tb, err := tx.CreateBucketIfNotExists([]byte(tenantBucketPrefix + strconv.FormatUint(uint64(t.ID()), 10)))
			if err != nil {
				return err
			}
			for _, tableID := range t.TableIDs() {
				table, _ := t.Table(tableID)
				b, err := tb.CreateBucketIfNotExists([]byte(tableBucketPrefix + strconv.FormatUint(uint64(tableID), 10)))
				if err != nil {
					return err
				}
				var putErr error
				table.Range(func(k, v []byte) bool {
					putErr = b.Put(k, v)
					return putErr == nil
				})
				if putErr != nil {
					return putErr
				}
			}
		}
		return nil
	})
}

// parseBucketID extracts the decimal id of a bucket name with the given prefix
func parseBucketID(name []byte, prefix string, bitSize int) (uint64, bool) {
	s, ok := strings.CutPrefix(string(name), prefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(s, 10, bitSize)
	if err != nil {
		return 0, false
	}
	return id, true
}
