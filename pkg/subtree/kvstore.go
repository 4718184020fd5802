package subtree

import (
	"github.com/meridiandb/meridian/pkg/atomicop"
	"github.com/meridiandb/meridian/pkg/crdt"
	"github.com/meridiandb/meridian/pkg/types"
)

// KVStore is a flat key-value SubTree backed by a KVOverWrite CRDT.
type KVStore struct {
	name string
	op   *atomicop.AtomicOp
}

// NewKVStore returns a handle for name staging changes through op.
func NewKVStore(op *atomicop.AtomicOp, name string) *KVStore {
	return &KVStore{name: name, op: op}
}

// Name implements SubTree.
func (k *KVStore) Name() string { return k.name }

// Get returns the value for key, preferring data staged locally within
// this operation over the merged historical state.
func (k *KVStore) Get(key string) (string, error) {
	if local, staged, err := localState(k.op, k.name); err != nil {
		return "", err
	} else if staged {
		if v, ok := local.Get(key); ok {
			return v, nil
		}
	}

	full, err := fullState(k.op, k.name)
	if err != nil {
		return "", err
	}
	if v, ok := full.Get(key); ok {
		return v, nil
	}
	return "", types.NewError(types.KindNotFound, "no value for key "+key)
}

// Set stages key=value for commit: the locally staged map (starting
// empty if nothing has been staged yet in this operation) is updated
// and re-staged, leaving reconciliation with historical state to the
// CRDT merge performed when the subtree is read (materialized).
func (k *KVStore) Set(key, value string) error {
	local, staged, err := localState(k.op, k.name)
	if err != nil {
		return err
	}
	if !staged {
		local = crdt.NewKVOverWrite()
	}
	local.Set(key, value)
	return stage(k.op, k.name, local)
}

// GetAll returns the full merged view (historical state merged with any
// locally staged changes, staged data taking precedence).
func (k *KVStore) GetAll() (map[string]string, error) {
	full, err := fullState(k.op, k.name)
	if err != nil {
		return nil, err
	}
	local, staged, err := localState(k.op, k.name)
	if err != nil {
		return nil, err
	}
	if staged {
		merged, err := full.Merge(local)
		if err != nil {
			return nil, err
		}
		full = merged
	}

	result := make(map[string]string)
	for key, v := range full.AsMap() {
		if v != nil {
			result[key] = *v
		}
	}
	return result, nil
}
