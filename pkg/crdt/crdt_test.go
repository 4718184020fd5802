package crdt

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKVOverWriteSetGetRemove(t *testing.T) {
	kv := NewKVOverWrite()
	kv.Set("k1", "v1")

	v, ok := kv.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "v1", v)

	prev, existed := kv.Remove("k1")
	assert.True(t, existed)
	assert.Equal(t, "v1", prev)

	_, ok = kv.Get("k1")
	assert.False(t, ok)
}

func TestKVOverWriteRemoveAbsentIsIdempotent(t *testing.T) {
	kv := NewKVOverWrite()
	_, existed := kv.Remove("missing")
	assert.False(t, existed)
}

func TestKVOverWriteMergeOtherWins(t *testing.T) {
	a := NewKVOverWrite()
	a.Set("k1", "v1").Set("k2", "v2")

	b := NewKVOverWrite()
	b.Set("k1", "v1-prime")
	b.Remove("k2")

	merged, err := a.Merge(b)
	require.NoError(t, err)

	v, ok := merged.Get("k1")
	require.True(t, ok)
	assert.Equal(t, "v1-prime", v)

	_, ok = merged.Get("k2")
	assert.False(t, ok, "k2 must read as absent after tombstone merge")

	_, tombstoned := merged.AsMap()["k2"]
	assert.True(t, tombstoned, "tombstone must still be visible in AsMap")
}

func TestKVOverWriteJSONRoundTrip(t *testing.T) {
	kv := NewKVOverWrite()
	kv.Set("a", "1")
	kv.Remove("b")

	data, err := json.Marshal(kv)
	require.NoError(t, err)

	var decoded KVOverWrite
	require.NoError(t, json.Unmarshal(data, &decoded))

	v, ok := decoded.Get("a")
	require.True(t, ok)
	assert.Equal(t, "1", v)
	_, ok = decoded.Get("b")
	assert.False(t, ok)
}

func TestKVNestedMergeRecursesIntoMaps(t *testing.T) {
	old := NewKVNested()
	inner := NewKVNested().SetString("x", "1")
	old.SetMap("nested", inner)
	old.SetString("keep", "mine")

	incoming := NewKVNested()
	innerUpdate := NewKVNested().SetString("y", "2")
	incoming.SetMap("nested", innerUpdate)

	merged, err := old.Merge(incoming)
	require.NoError(t, err)

	keep, ok := merged.Get("keep")
	require.True(t, ok)
	s, _ := keep.IsString()
	assert.Equal(t, "mine", s)

	nestedVal, ok := merged.Get("nested")
	require.True(t, ok)
	nestedMap, isMap := nestedVal.IsMap()
	require.True(t, isMap)

	xVal, ok := nestedMap.Get("x")
	require.True(t, ok, "keys only present in old map must survive recursive merge")
	xs, _ := xVal.IsString()
	assert.Equal(t, "1", xs)

	yVal, ok := nestedMap.Get("y")
	require.True(t, ok)
	ys, _ := yVal.IsString()
	assert.Equal(t, "2", ys)
}

func TestKVNestedTombstoneWinsOverMap(t *testing.T) {
	old := NewKVNested()
	old.SetMap("k", NewKVNested().SetString("a", "1"))

	incoming := NewKVNested()
	incoming.Set("k", DeletedValue())

	merged, err := old.Merge(incoming)
	require.NoError(t, err)

	_, ok := merged.Get("k")
	assert.False(t, ok, "tombstone must absorb a map at the same key")
}

func TestKVNestedStringOverwritesMap(t *testing.T) {
	old := NewKVNested()
	old.SetMap("k", NewKVNested().SetString("a", "1"))

	incoming := NewKVNested()
	incoming.SetString("k", "flat now")

	merged, err := old.Merge(incoming)
	require.NoError(t, err)

	v, ok := merged.Get("k")
	require.True(t, ok)
	s, isStr := v.IsString()
	require.True(t, isStr)
	assert.Equal(t, "flat now", s)
}

func TestKVNestedMergeIdempotentAndIdentity(t *testing.T) {
	x := NewKVNested().SetString("a", "1")

	selfMerged, err := x.Merge(x)
	require.NoError(t, err)
	v, _ := selfMerged.Get("a")
	s, _ := v.IsString()
	assert.Equal(t, "1", s, "x merge x must equal x")

	empty := NewKVNested()
	mergedWithEmpty, err := empty.Merge(x)
	require.NoError(t, err)
	v2, _ := mergedWithEmpty.Get("a")
	s2, _ := v2.IsString()
	assert.Equal(t, "1", s2, "empty merge x must equal x")
}

func TestKVNestedJSONRoundTrip(t *testing.T) {
	n := NewKVNested()
	n.SetString("a", "1")
	n.SetMap("nested", NewKVNested().SetString("b", "2"))
	n.Remove("c")

	data, err := json.Marshal(n)
	require.NoError(t, err)

	var decoded KVNested
	require.NoError(t, json.Unmarshal(data, &decoded))

	v, ok := decoded.Get("a")
	require.True(t, ok)
	s, _ := v.IsString()
	assert.Equal(t, "1", s)

	nestedVal, ok := decoded.Get("nested")
	require.True(t, ok)
	nestedMap, _ := nestedVal.IsMap()
	bv, ok := nestedMap.Get("b")
	require.True(t, ok)
	bs, _ := bv.IsString()
	assert.Equal(t, "2", bs)

	_, ok = decoded.Get("c")
	assert.False(t, ok)
}
