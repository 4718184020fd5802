package subtree

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/meridiandb/meridian/pkg/atomicop"
	"github.com/meridiandb/meridian/pkg/crdt"
	"github.com/meridiandb/meridian/pkg/types"
)

// RowStore is a record-oriented SubTree: a table of JSON-serialized
// records of type T, keyed by a UUIDv4 primary key generated on Insert.
type RowStore[T any] struct {
	name string
	op   *atomicop.AtomicOp
}

// NewRowStore returns a handle for name staging changes through op.
func NewRowStore[T any](op *atomicop.AtomicOp, name string) *RowStore[T] {
	return &RowStore[T]{name: name, op: op}
}

// Name implements SubTree.
func (r *RowStore[T]) Name() string { return r.name }

// Get retrieves the record stored under key, preferring locally staged
// data over merged historical state.
func (r *RowStore[T]) Get(key string) (T, error) {
	var zero T

	if local, staged, err := localState(r.op, r.name); err != nil {
		return zero, err
	} else if staged {
		if v, ok := local.Get(key); ok {
			var row T
			if err := json.Unmarshal([]byte(v), &row); err != nil {
				return zero, types.Wrap(types.KindSerialization, "failed to decode row", err)
			}
			return row, nil
		}
	}

	full, err := fullState(r.op, r.name)
	if err != nil {
		return zero, err
	}
	v, ok := full.Get(key)
	if !ok {
		return zero, types.NewError(types.KindNotFound, "no row with key "+key)
	}
	var row T
	if err := json.Unmarshal([]byte(v), &row); err != nil {
		return zero, types.Wrap(types.KindSerialization, "failed to decode row", err)
	}
	return row, nil
}

// Insert stages row under a newly generated UUIDv4 primary key, which it
// returns.
func (r *RowStore[T]) Insert(row T) (string, error) {
	key := uuid.NewString()
	if err := r.Set(key, row); err != nil {
		return "", err
	}
	return key, nil
}

// Set stages row under the given primary key, creating it if absent or
// fully replacing it if present.
func (r *RowStore[T]) Set(key string, row T) error {
	serialized, err := json.Marshal(row)
	if err != nil {
		return types.Wrap(types.KindSerialization, "failed to encode row", err)
	}

	local, staged, err := localState(r.op, r.name)
	if err != nil {
		return err
	}
	if !staged {
		local = crdt.NewKVOverWrite()
	}
	local.Set(key, string(serialized))
	return stage(r.op, r.name, local)
}

// Search returns every (key, row) pair, from the merged view of staged
// and historical state, for which predicate returns true.
func (r *RowStore[T]) Search(predicate func(T) bool) ([]RowMatch[T], error) {
	full, err := fullState(r.op, r.name)
	if err != nil {
		return nil, err
	}
	local, staged, err := localState(r.op, r.name)
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

	var matches []RowMatch[T]
	for key, v := range full.AsMap() {
		if v == nil {
			continue
		}
		var row T
		if err := json.Unmarshal([]byte(*v), &row); err != nil {
			return nil, types.Wrap(types.KindSerialization, "failed to decode row", err)
		}
		if predicate(row) {
			matches = append(matches, RowMatch[T]{Key: key, Row: row})
		}
	}
	return matches, nil
}

// RowMatch is one result of RowStore.Search.
type RowMatch[T any] struct {
	Key string
	Row T
}
