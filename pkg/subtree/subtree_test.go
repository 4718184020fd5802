package subtree

import (
	"testing"

	"github.com/meridiandb/meridian/pkg/atomicop"
	"github.com/meridiandb/meridian/pkg/dag"
	"github.com/meridiandb/meridian/pkg/store"
	"github.com/meridiandb/meridian/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTree(t *testing.T, s store.Store) types.ID {
	t.Helper()
	id, err := s.Put(types.Verified, dag.NewTopLevelRoot(""))
	require.NoError(t, err)
	return id
}

func TestKVStoreSetThenGetWithinSameOperation(t *testing.T) {
	s := store.New()
	tree := newTree(t, s)

	op, err := atomicop.New(s, tree)
	require.NoError(t, err)
	kv := NewKVStore(op, "kv")

	require.NoError(t, kv.Set("a", "1"))
	v, err := kv.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestKVStoreGetFallsBackToHistoricalState(t *testing.T) {
	s := store.New()
	tree := newTree(t, s)

	op1, err := atomicop.New(s, tree)
	require.NoError(t, err)
	require.NoError(t, NewKVStore(op1, "kv").Set("a", "1"))
	_, err = op1.Commit()
	require.NoError(t, err)

	op2, err := atomicop.New(s, tree)
	require.NoError(t, err)
	kv2 := NewKVStore(op2, "kv")
	v, err := kv2.Get("a")
	require.NoError(t, err)
	assert.Equal(t, "1", v)
}

func TestKVStoreGetAllMergesStagedAndHistorical(t *testing.T) {
	s := store.New()
	tree := newTree(t, s)

	op1, err := atomicop.New(s, tree)
	require.NoError(t, err)
	require.NoError(t, NewKVStore(op1, "kv").Set("a", "1"))
	_, err = op1.Commit()
	require.NoError(t, err)

	op2, err := atomicop.New(s, tree)
	require.NoError(t, err)
	kv2 := NewKVStore(op2, "kv")
	require.NoError(t, kv2.Set("b", "2"))

	all, err := kv2.GetAll()
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"a": "1", "b": "2"}, all)
}

func TestKVStoreGetMissingKeyIsNotFound(t *testing.T) {
	s := store.New()
	tree := newTree(t, s)
	op, err := atomicop.New(s, tree)
	require.NoError(t, err)

	_, err = NewKVStore(op, "kv").Get("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

type testRow struct {
	Name string `json:"name"`
	Age  int    `json:"age"`
}

func TestRowStoreInsertGetAndSearch(t *testing.T) {
	s := store.New()
	tree := newTree(t, s)
	op, err := atomicop.New(s, tree)
	require.NoError(t, err)

	rows := NewRowStore[testRow](op, "people")
	key, err := rows.Insert(testRow{Name: "ada", Age: 30})
	require.NoError(t, err)

	got, err := rows.Get(key)
	require.NoError(t, err)
	assert.Equal(t, testRow{Name: "ada", Age: 30}, got)

	_, err = rows.Insert(testRow{Name: "bo", Age: 20})
	require.NoError(t, err)

	matches, err := rows.Search(func(r testRow) bool { return r.Age >= 25 })
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "ada", matches[0].Row.Name)
}

func TestRowStoreGetMissingIsNotFound(t *testing.T) {
	s := store.New()
	tree := newTree(t, s)
	op, err := atomicop.New(s, tree)
	require.NoError(t, err)

	rows := NewRowStore[testRow](op, "people")
	_, err = rows.Get("missing")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestRowStoreSetReplacesExistingRow(t *testing.T) {
	s := store.New()
	tree := newTree(t, s)
	op, err := atomicop.New(s, tree)
	require.NoError(t, err)

	rows := NewRowStore[testRow](op, "people")
	require.NoError(t, rows.Set("fixed-key", testRow{Name: "ada", Age: 30}))
	require.NoError(t, rows.Set("fixed-key", testRow{Name: "ada", Age: 31}))

	got, err := rows.Get("fixed-key")
	require.NoError(t, err)
	assert.Equal(t, 31, got.Age)
}
