package database

import (
	"testing"

	"github.com/meridiandb/meridian/pkg/crdt"
	"github.com/meridiandb/meridian/pkg/store"
	"github.com/meridiandb/meridian/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTreeDefaultProducesDistinctRoots(t *testing.T) {
	db := New(store.New())

	a, err := db.NewTreeDefault()
	require.NoError(t, err)
	b, err := db.NewTreeDefault()
	require.NoError(t, err)

	assert.NotEqual(t, a.RootID(), b.RootID())
}

func TestLoadTreeWrapsExistingRoot(t *testing.T) {
	db := New(store.New())
	settings := crdt.NewKVNested()
	settings.SetString("name", "orders")
	created, err := db.NewTree(settings)
	require.NoError(t, err)

	loaded, err := db.LoadTree(created.RootID())
	require.NoError(t, err)
	name, err := loaded.Name()
	require.NoError(t, err)
	assert.Equal(t, "orders", name)
}

func TestLoadTreeUnknownRootFails(t *testing.T) {
	db := New(store.New())
	_, err := db.LoadTree(types.ID("does-not-exist"))
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAllTreesReturnsEveryTopLevelRoot(t *testing.T) {
	db := New(store.New())
	_, err := db.NewTreeDefault()
	require.NoError(t, err)
	_, err = db.NewTreeDefault()
	require.NoError(t, err)

	all, err := db.AllTrees()
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestFindTreeMatchesByName(t *testing.T) {
	db := New(store.New())

	withName := crdt.NewKVNested()
	withName.SetString("name", "customers")
	_, err := db.NewTree(withName)
	require.NoError(t, err)

	other := crdt.NewKVNested()
	other.SetString("name", "orders")
	_, err = db.NewTree(other)
	require.NoError(t, err)

	found, err := db.FindTree("customers")
	require.NoError(t, err)
	require.Len(t, found, 1)
	name, err := found[0].Name()
	require.NoError(t, err)
	assert.Equal(t, "customers", name)
}

func TestFindTreeNoMatchFails(t *testing.T) {
	db := New(store.New())
	_, err := db.FindTree("nonexistent")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestAddPrivateKeyGeneratesAndStores(t *testing.T) {
	db := New(store.New())
	pub, err := db.AddPrivateKey("laptop")
	require.NoError(t, err)
	assert.NotEmpty(t, pub)

	names, err := db.ListPrivateKeys()
	require.NoError(t, err)
	assert.Contains(t, names, "laptop")

	fetched, err := db.GetPublicKey("laptop")
	require.NoError(t, err)
	assert.Equal(t, pub, fetched)
}

func TestRemovePrivateKeyIsIdempotent(t *testing.T) {
	db := New(store.New())
	_, err := db.AddPrivateKey("laptop")
	require.NoError(t, err)

	require.NoError(t, db.RemovePrivateKey("laptop"))
	require.NoError(t, db.RemovePrivateKey("laptop"))

	_, err = db.GetPublicKey("laptop")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
