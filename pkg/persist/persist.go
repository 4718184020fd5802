// Package persist implements an optional bbolt-backed snapshot/restore
// adapter over pkg/store's in-memory Store, per the reference JSON
// snapshot format: one bucket per top-level field (entries,
// verification status, private keys). It is a convenience for the CLI
// and is never required by the core engine, which operates entirely
// against the in-memory Store.
package persist

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/meridiandb/meridian/pkg/dag"
	"github.com/meridiandb/meridian/pkg/log"
	"github.com/meridiandb/meridian/pkg/metrics"
	"github.com/meridiandb/meridian/pkg/store"
	"github.com/meridiandb/meridian/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketEntries      = []byte("entries")
	bucketVerification = []byte("verification")
	bucketPrivateKeys  = []byte("private_keys")
)

var persistLog = log.WithComponent("persist")

// BoltPersister snapshots and restores an in-memory Store's content to
// a bbolt file, one bucket per domain type.
type BoltPersister struct {
	db *bolt.DB
}

// Open opens (creating if absent) a bbolt database under dataDir/meridian.db,
// ensuring all three buckets exist.
func Open(dataDir string) (*BoltPersister, error) {
	dbPath := filepath.Join(dataDir, "meridian.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open persistence database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{bucketEntries, bucketVerification, bucketPrivateKeys} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &BoltPersister{db: db}, nil
}

// Close closes the underlying bbolt database.
func (p *BoltPersister) Close() error {
	return p.db.Close()
}

// Snapshot writes s's entire content (entries, verification statuses,
// private keys) to the bbolt database, overwriting any previous
// snapshot.
func (p *BoltPersister) Snapshot(s *store.InMemoryStore) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SnapshotDuration)

	entries, verification, keys := s.Snapshot()

	err := p.db.Update(func(tx *bolt.Tx) error {
		if err := writeBucket(tx, bucketEntries, func(put func(k string, v []byte) error) error {
			for id, entry := range entries {
				data, err := json.Marshal(entry)
				if err != nil {
					log.WithEntryID(persistLog, string(id)).Error().Err(err).Msg("failed to encode entry")
					return fmt.Errorf("failed to encode entry %s: %w", id, err)
				}
				if err := put(string(id), data); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}

		if err := writeBucket(tx, bucketVerification, func(put func(k string, v []byte) error) error {
			for id, status := range verification {
				if err := put(string(id), []byte(status)); err != nil {
					return err
				}
			}
			return nil
		}); err != nil {
			return err
		}

		return writeBucket(tx, bucketPrivateKeys, func(put func(k string, v []byte) error) error {
			for name, key := range keys {
				if err := put(name, []byte(key)); err != nil {
					return err
				}
			}
			return nil
		})
	})

	if err != nil {
		metrics.SnapshotsTotal.WithLabelValues("snapshot", "error").Inc()
		persistLog.Error().Err(err).Msg("snapshot failed")
		return err
	}
	metrics.SnapshotsTotal.WithLabelValues("snapshot", "ok").Inc()
	persistLog.Debug().Int("entries", len(entries)).Msg("snapshot written")
	return nil
}

// Load reads a previously written snapshot and restores it into s,
// replacing all of s's current state.
func (p *BoltPersister) Load(s *store.InMemoryStore) error {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.SnapshotDuration)

	entries := make(map[types.ID]*dag.Entry)
	verification := make(map[types.ID]types.VerificationStatus)
	keys := make(map[string]store.PrivateKeyBytes)

	err := p.db.View(func(tx *bolt.Tx) error {
		if err := tx.Bucket(bucketEntries).ForEach(func(k, v []byte) error {
			var entry dag.Entry
			if err := json.Unmarshal(v, &entry); err != nil {
				log.WithEntryID(persistLog, string(k)).Error().Err(err).Msg("failed to decode entry")
				return fmt.Errorf("failed to decode entry %s: %w", k, err)
			}
			entries[types.ID(k)] = &entry
			return nil
		}); err != nil {
			return err
		}

		if err := tx.Bucket(bucketVerification).ForEach(func(k, v []byte) error {
			verification[types.ID(k)] = types.VerificationStatus(v)
			return nil
		}); err != nil {
			return err
		}

		return tx.Bucket(bucketPrivateKeys).ForEach(func(k, v []byte) error {
			cp := make(store.PrivateKeyBytes, len(v))
			copy(cp, v)
			keys[string(k)] = cp
			return nil
		})
	})

	if err != nil {
		metrics.SnapshotsTotal.WithLabelValues("restore", "error").Inc()
		persistLog.Error().Err(err).Msg("restore failed")
		return err
	}

	s.Restore(entries, verification, keys)
	metrics.SnapshotsTotal.WithLabelValues("restore", "ok").Inc()
	persistLog.Debug().Int("entries", len(entries)).Msg("snapshot loaded")
	return nil
}

func writeBucket(tx *bolt.Tx, name []byte, fill func(put func(k string, v []byte) error) error) error {
	b := tx.Bucket(name)
	// Clear the bucket before re-populating it, so a snapshot never
	// leaves behind entries removed since the last write.
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		if err := c.Delete(); err != nil {
			return err
		}
	}
	return fill(func(k string, v []byte) error {
		return b.Put([]byte(k), v)
	})
}
