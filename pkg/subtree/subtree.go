// Package subtree implements the typed, CRDT-backed handles applications
// use to read and stage writes to a named partition of a tree: KVStore
// for flat key-value data and RowStore[T] for UUID-keyed records. Both
// wrap a KVOverWrite CRDT staged through an AtomicOp.
package subtree

import (
	"encoding/json"

	"github.com/meridiandb/meridian/pkg/atomicop"
	"github.com/meridiandb/meridian/pkg/crdt"
	"github.com/meridiandb/meridian/pkg/store"
	"github.com/meridiandb/meridian/pkg/types"
)

// SubTree is implemented by every named-partition handle: it is
// constructed from an in-flight AtomicOp and knows its own subtree name.
type SubTree interface {
	Name() string
}

// fullState returns the CRDT-merged historical state of name as a
// KVOverWrite, using the parent tips op captured when it first touched
// name.
func fullState(op *atomicop.AtomicOp, name string) (*crdt.KVOverWrite, error) {
	parents, err := op.Parents(name)
	if err != nil {
		return nil, err
	}
	if len(parents) == 0 {
		return crdt.NewKVOverWrite(), nil
	}
	return store.MaterializeKVOverWrite(op.Store(), op.Tree(), name, parents)
}

func localState(op *atomicop.AtomicOp, name string) (*crdt.KVOverWrite, bool, error) {
	payload, staged := op.GetLocalData(name)
	if !staged || payload == "" {
		return nil, false, nil
	}
	kv := crdt.NewKVOverWrite()
	if err := json.Unmarshal([]byte(payload), kv); err != nil {
		return nil, false, types.Wrap(types.KindSerialization, "failed to decode staged subtree data", err)
	}
	return kv, true, nil
}

func stage(op *atomicop.AtomicOp, name string, kv *crdt.KVOverWrite) error {
	b, err := json.Marshal(kv)
	if err != nil {
		return types.Wrap(types.KindSerialization, "failed to encode subtree data", err)
	}
	return op.UpdateSubtree(name, string(b))
}
