package atomicop

import (
	"encoding/json"
	"testing"

	"github.com/meridiandb/meridian/pkg/auth"
	"github.com/meridiandb/meridian/pkg/crdt"
	"github.com/meridiandb/meridian/pkg/dag"
	"github.com/meridiandb/meridian/pkg/store"
	"github.com/meridiandb/meridian/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// settingsPayload wraps an auth KVNested as the "auth" key of a
// _settings KVNested payload, the shape AtomicOp.resolveAuthSettingsLocked
// expects to find.
func settingsPayload(t *testing.T, authSection *crdt.KVNested) string {
	t.Helper()
	settings := crdt.NewKVNested()
	settings.SetMap("auth", authSection)
	b, err := json.Marshal(settings)
	require.NoError(t, err)
	return string(b)
}

func newTestTree(t *testing.T, s store.Store) types.ID {
	t.Helper()
	id, err := s.Put(types.Verified, dag.NewTopLevelRoot(""))
	require.NoError(t, err)
	return id
}

func TestCommitProducesSingleEntryAndAdvancesTips(t *testing.T) {
	s := store.New()
	tree := newTestTree(t, s)

	op, err := New(s, tree)
	require.NoError(t, err)
	require.NoError(t, op.UpdateSubtree("kv", `{"data":{"a":"1"}}`))

	id, err := op.Commit()
	require.NoError(t, err)

	tips, err := s.Tips(tree)
	require.NoError(t, err)
	assert.Equal(t, []types.ID{id}, tips)
}

func TestCommitIsIdempotentlyRejectedOnReuse(t *testing.T) {
	s := store.New()
	tree := newTestTree(t, s)

	op, err := New(s, tree)
	require.NoError(t, err)
	_, err = op.Commit()
	require.NoError(t, err)

	_, err = op.Commit()
	assert.ErrorIs(t, err, types.ErrAlreadyCommitted)
}

func TestUpdateSubtreeAfterCommitFails(t *testing.T) {
	s := store.New()
	tree := newTestTree(t, s)

	op, err := New(s, tree)
	require.NoError(t, err)
	_, err = op.Commit()
	require.NoError(t, err)

	err = op.UpdateSubtree("kv", "{}")
	assert.ErrorIs(t, err, types.ErrAlreadyCommitted)
}

func TestAuthenticatedCommitSignsAndVerifies(t *testing.T) {
	s := store.New()
	tree := newTestTree(t, s)

	priv, pub, err := auth.GenerateKeypair()
	require.NoError(t, err)
	require.NoError(t, s.StorePrivateKey("laptop", store.PrivateKeyBytes(priv)))

	settingsOp, err := New(s, tree)
	require.NoError(t, err)
	authSettings := auth.NewAuthSettings()
	authSettings.AddKey("laptop", auth.AuthKey{PublicKey: auth.FormatPublicKey(pub), Permissions: auth.Admin(10), Status: auth.StatusActive})
	require.NoError(t, settingsOp.UpdateSubtree("_settings", settingsPayload(t, authSettings.AsKVNested())))
	_, err = settingsOp.Commit()
	require.NoError(t, err)

	op, err := NewAuthenticated(s, tree, "laptop")
	require.NoError(t, err)
	require.NoError(t, op.UpdateSubtree("kv", `{"data":{"a":"1"}}`))

	id, err := op.Commit()
	require.NoError(t, err)

	status, err := s.GetVerification(id)
	require.NoError(t, err)
	assert.Equal(t, types.Verified, status)
}

func TestAuthenticatedCommitRejectsInsufficientPermission(t *testing.T) {
	s := store.New()
	tree := newTestTree(t, s)

	priv, pub, err := auth.GenerateKeypair()
	require.NoError(t, err)
	require.NoError(t, s.StorePrivateKey("reader", store.PrivateKeyBytes(priv)))

	settingsOp, err := New(s, tree)
	require.NoError(t, err)
	authSettings := auth.NewAuthSettings()
	authSettings.AddKey("reader", auth.AuthKey{PublicKey: auth.FormatPublicKey(pub), Permissions: auth.Read(), Status: auth.StatusActive})
	require.NoError(t, settingsOp.UpdateSubtree("_settings", settingsPayload(t, authSettings.AsKVNested())))
	_, err = settingsOp.Commit()
	require.NoError(t, err)

	op, err := NewAuthenticated(s, tree, "reader")
	require.NoError(t, err)
	require.NoError(t, op.UpdateSubtree("kv", `{"data":{"a":"1"}}`))

	_, err = op.Commit()
	assert.Error(t, err)
}
