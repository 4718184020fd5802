package store

import (
	"encoding/json"

	"github.com/meridiandb/meridian/pkg/crdt"
	"github.com/meridiandb/meridian/pkg/metrics"
	"github.com/meridiandb/meridian/pkg/types"
)

// MaterializeKVOverWrite returns the CRDT-merged KVOverWrite state of
// subtree within tree, as of tips, consulting the store's advisory
// materialization cache before recomputing from SubtreeHistory.
func MaterializeKVOverWrite(s Store, tree types.ID, subtree string, tips []types.ID) (*crdt.KVOverWrite, error) {
	if len(tips) == 0 {
		return crdt.NewKVOverWrite(), nil
	}

	if cached, ok := s.CachedMaterialization(tree, subtree, tips); ok {
		metrics.MaterializationCacheHits.Inc()
		kv := crdt.NewKVOverWrite()
		if err := json.Unmarshal([]byte(cached), kv); err != nil {
			return nil, types.Wrap(types.KindSerialization, "failed to decode cached subtree state", err)
		}
		return kv, nil
	}
	metrics.MaterializationCacheMisses.Inc()

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.MaterializationDuration)

	history, err := s.SubtreeHistory(tree, subtree, tips)
	if err != nil {
		return nil, err
	}

	result := crdt.NewKVOverWrite()
	for _, e := range history {
		payload, err := e.Data(subtree)
		if err != nil || payload == "" {
			continue
		}
		var next crdt.KVOverWrite
		if err := json.Unmarshal([]byte(payload), &next); err != nil {
			return nil, types.Wrap(types.KindSerialization, "failed to decode subtree payload", err)
		}
		merged, err := result.Merge(&next)
		if err != nil {
			return nil, err
		}
		result = merged
	}

	if b, err := json.Marshal(result); err == nil {
		s.CacheMaterialization(tree, subtree, tips, string(b))
	}
	return result, nil
}

// MaterializeKVNested is MaterializeKVOverWrite's counterpart for
// nested-map subtrees (used by _settings).
func MaterializeKVNested(s Store, tree types.ID, subtree string, tips []types.ID) (*crdt.KVNested, error) {
	if len(tips) == 0 {
		return crdt.NewKVNested(), nil
	}

	if cached, ok := s.CachedMaterialization(tree, subtree, tips); ok {
		metrics.MaterializationCacheHits.Inc()
		var m crdt.KVNested
		if err := json.Unmarshal([]byte(cached), &m); err != nil {
			return nil, types.Wrap(types.KindSerialization, "failed to decode cached subtree state", err)
		}
		return &m, nil
	}
	metrics.MaterializationCacheMisses.Inc()

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.MaterializationDuration)

	history, err := s.SubtreeHistory(tree, subtree, tips)
	if err != nil {
		return nil, err
	}

	result := crdt.NewKVNested()
	for _, e := range history {
		payload, err := e.Data(subtree)
		if err != nil || payload == "" {
			continue
		}
		var next crdt.KVNested
		if err := json.Unmarshal([]byte(payload), &next); err != nil {
			return nil, types.Wrap(types.KindSerialization, "failed to decode subtree payload", err)
		}
		merged, err := result.Merge(&next)
		if err != nil {
			return nil, err
		}
		result = merged
	}

	if b, err := json.Marshal(result); err == nil {
		s.CacheMaterialization(tree, subtree, tips, string(b))
	}
	return result, nil
}
