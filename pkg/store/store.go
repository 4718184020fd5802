// Package store implements the content-addressed entry repository: an
// in-memory backend holding entries and their verification status, a
// private-key vault, and the DAG traversal services (tips, heights,
// history) that operate over it. See pkg/persist for an optional
// bbolt-backed snapshot/restore adapter over the same wire format.
package store

import (
	"sort"
	"sync"

	"github.com/meridiandb/meridian/pkg/dag"
	"github.com/meridiandb/meridian/pkg/log"
	"github.com/meridiandb/meridian/pkg/types"
)

// Store is the content-addressed entry repository described in the data
// model: entries keyed by ID, verification status per entry, a
// private-key vault, and an advisory materialization cache.
type Store interface {
	Get(id types.ID) (*dag.Entry, error)
	Put(status types.VerificationStatus, entry *dag.Entry) (types.ID, error)
	GetVerification(id types.ID) (types.VerificationStatus, error)
	UpdateVerification(id types.ID, status types.VerificationStatus) error
	ByVerification(status types.VerificationStatus) ([]types.ID, error)

	Tips(tree types.ID) ([]types.ID, error)
	SubtreeTips(tree types.ID, subtree string) ([]types.ID, error)
	Heights(tree types.ID, subtree *string) (map[types.ID]uint64, error)
	History(tree types.ID, tips []types.ID) ([]*dag.Entry, error)
	SubtreeHistory(tree types.ID, subtree string, tips []types.ID) ([]*dag.Entry, error)
	AllTopLevelRoots() ([]types.ID, error)

	StorePrivateKey(name string, key PrivateKeyBytes) error
	GetPrivateKey(name string) (PrivateKeyBytes, error)
	ListPrivateKeys() ([]string, error)
	RemovePrivateKey(name string) error

	// CachedMaterialization and CacheMaterialization implement the
	// advisory materialization cache keyed by (tree, subtree, sorted tips).
	CachedMaterialization(tree types.ID, subtree string, tips []types.ID) (string, bool)
	CacheMaterialization(tree types.ID, subtree string, tips []types.ID, state string)
}

// PrivateKeyBytes is a raw Ed25519 private key (matching the layout of
// crypto/ed25519.PrivateKey), kept here rather than importing
// crypto/ed25519 directly so the store package has no dependency on
// pkg/auth's signing concerns.
type PrivateKeyBytes []byte

// InMemoryStore is the reference Store implementation: a single mutex
// protects all state, matching the spec's "store is a single shared
// mutable resource" concurrency model.
type InMemoryStore struct {
	mu sync.Mutex

	entries      map[types.ID]*dag.Entry
	verification map[types.ID]types.VerificationStatus
	privateKeys  map[string]PrivateKeyBytes
	cache        map[cacheKey]string
}

type cacheKey struct {
	tree    types.ID
	subtree string
	tipHash string
}

// New returns an empty InMemoryStore.
func New() *InMemoryStore {
	return &InMemoryStore{
		entries:      make(map[types.ID]*dag.Entry),
		verification: make(map[types.ID]types.VerificationStatus),
		privateKeys:  make(map[string]PrivateKeyBytes),
		cache:        make(map[cacheKey]string),
	}
}

var storeLog = log.WithComponent("store")

// Get retrieves an entry by ID, failing NotFound if unknown.
func (s *InMemoryStore) Get(id types.ID) (*dag.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return nil, types.NewError(types.KindNotFound, "no entry with id "+string(id))
	}
	return e, nil
}

// Put inserts or overwrites entry, keyed by its own content-addressed ID;
// overwrites are idempotent since entries are immutable once identical.
func (s *InMemoryStore) Put(status types.VerificationStatus, entry *dag.Entry) (types.ID, error) {
	id, err := entry.ID()
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[id] = entry
	s.verification[id] = status
	storeLog.Debug().Str("entry_id", string(id)).Str("status", string(status)).Msg("entry stored")
	return id, nil
}

// GetVerification returns the verification status of a known entry.
func (s *InMemoryStore) GetVerification(id types.ID) (types.VerificationStatus, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return "", types.NewError(types.KindNotFound, "no entry with id "+string(id))
	}
	status, ok := s.verification[id]
	if !ok {
		return types.Unverified, nil
	}
	return status, nil
}

// UpdateVerification changes the verification status of a known entry
// without touching the entry itself (a failed re-validation never
// removes the entry, per the error handling policy).
func (s *InMemoryStore) UpdateVerification(id types.ID, status types.VerificationStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return types.NewError(types.KindNotFound, "no entry with id "+string(id))
	}
	s.verification[id] = status
	return nil
}

// ByVerification returns every entry ID currently carrying status.
func (s *InMemoryStore) ByVerification(status types.VerificationStatus) ([]types.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var ids []types.ID
	for id, st := range s.verification {
		if st == status {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

// AllTopLevelRoots returns every entry that defines its own tree.
func (s *InMemoryStore) AllTopLevelRoots() ([]types.ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var roots []types.ID
	for id, e := range s.entries {
		if e.IsTopLevelRoot() {
			roots = append(roots, id)
		}
	}
	sort.Slice(roots, func(i, j int) bool { return roots[i] < roots[j] })
	return roots, nil
}

// --- private-key vault ---

// StorePrivateKey saves key under name, overwriting any existing key
// with the same name.
func (s *InMemoryStore) StorePrivateKey(name string, key PrivateKeyBytes) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := make(PrivateKeyBytes, len(key))
	copy(cp, key)
	s.privateKeys[name] = cp
	return nil
}

// GetPrivateKey retrieves a named key, failing NotFound if absent.
func (s *InMemoryStore) GetPrivateKey(name string) (PrivateKeyBytes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, ok := s.privateKeys[name]
	if !ok {
		return nil, types.NewError(types.KindNotFound, "no private key named "+name)
	}
	cp := make(PrivateKeyBytes, len(key))
	copy(cp, key)
	return cp, nil
}

// ListPrivateKeys returns the sorted names of every stored key.
func (s *InMemoryStore) ListPrivateKeys() ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make([]string, 0, len(s.privateKeys))
	for name := range s.privateKeys {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// RemovePrivateKey deletes a named key; removing an absent key succeeds
// (idempotent), per the failure model.
func (s *InMemoryStore) RemovePrivateKey(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.privateKeys, name)
	return nil
}

// --- materialization cache ---

// CachedMaterialization returns the cached merged CRDT state for
// (tree, subtree, tips) if present. The cache is advisory: a miss never
// indicates an error, only that the caller must recompute.
func (s *InMemoryStore) CachedMaterialization(tree types.ID, subtree string, tips []types.ID) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.cache[cacheKeyFor(tree, subtree, tips)]
	return v, ok
}

// CacheMaterialization stores the merged CRDT state for (tree, subtree, tips).
func (s *InMemoryStore) CacheMaterialization(tree types.ID, subtree string, tips []types.ID, state string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache[cacheKeyFor(tree, subtree, tips)] = state
}

func cacheKeyFor(tree types.ID, subtree string, tips []types.ID) cacheKey {
	sorted := make([]string, len(tips))
	for i, t := range tips {
		sorted[i] = string(t)
	}
	sort.Strings(sorted)
	hash := ""
	for _, t := range sorted {
		hash += t + "\x00"
	}
	return cacheKey{tree: tree, subtree: subtree, tipHash: hash}
}

// Snapshot returns a point-in-time, lock-protected copy of the entries,
// verification and private-key maps for use by pkg/persist. It is not part of the
// Store interface: callers needing this must type-assert to *InMemoryStore.
func (s *InMemoryStore) Snapshot() (map[types.ID]*dag.Entry, map[types.ID]types.VerificationStatus, map[string]PrivateKeyBytes) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries := make(map[types.ID]*dag.Entry, len(s.entries))
	for k, v := range s.entries {
		entries[k] = v
	}
	verification := make(map[types.ID]types.VerificationStatus, len(s.verification))
	for k, v := range s.verification {
		verification[k] = v
	}
	keys := make(map[string]PrivateKeyBytes, len(s.privateKeys))
	for k, v := range s.privateKeys {
		cp := make(PrivateKeyBytes, len(v))
		copy(cp, v)
		keys[k] = cp
	}
	return entries, verification, keys
}

// Restore replaces all state in s with the given maps, used by
// pkg/persist when loading a snapshot.
func (s *InMemoryStore) Restore(entries map[types.ID]*dag.Entry, verification map[types.ID]types.VerificationStatus, keys map[string]PrivateKeyBytes) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = entries
	s.verification = verification
	s.privateKeys = keys
	s.cache = make(map[cacheKey]string)
}
