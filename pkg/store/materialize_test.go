package store

import (
	"encoding/json"
	"testing"

	"github.com/meridiandb/meridian/pkg/crdt"
	"github.com/meridiandb/meridian/pkg/dag"
	"github.com/meridiandb/meridian/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func putSubtreeEntry(t *testing.T, s *InMemoryStore, root types.ID, subtree string, kv *crdt.KVOverWrite, parents []types.ID) types.ID {
	t.Helper()
	b, err := json.Marshal(kv)
	require.NoError(t, err)
	e := &dag.Entry{
		Root:     root,
		Main:     dag.SubtreeNode{Payload: "", Parents: parents},
		Subtrees: map[string]dag.SubtreeNode{subtree: {Payload: string(b), Parents: parents}},
	}
	id, err := s.Put(types.Verified, e)
	require.NoError(t, err)
	return id
}

func TestMaterializeKVOverWriteMergesHistory(t *testing.T) {
	s := New()
	root := dag.NewTopLevelRoot("")
	rootID, err := s.Put(types.Verified, root)
	require.NoError(t, err)

	first := crdt.NewKVOverWrite().Set("a", "1")
	firstID := putSubtreeEntry(t, s, rootID, "kv", first, []types.ID{rootID})

	second := crdt.NewKVOverWrite().Set("b", "2")
	secondID := putSubtreeEntry(t, s, rootID, "kv", second, []types.ID{firstID})

	merged, err := MaterializeKVOverWrite(s, rootID, "kv", []types.ID{secondID})
	require.NoError(t, err)

	a, ok := merged.Get("a")
	assert.True(t, ok)
	assert.Equal(t, "1", a)
	b, ok := merged.Get("b")
	assert.True(t, ok)
	assert.Equal(t, "2", b)
}

func TestMaterializeKVOverWriteEmptyTipsReturnsEmpty(t *testing.T) {
	s := New()
	merged, err := MaterializeKVOverWrite(s, "tree", "kv", nil)
	require.NoError(t, err)
	_, ok := merged.Get("anything")
	assert.False(t, ok)
}
