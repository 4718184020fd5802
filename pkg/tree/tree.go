// Package tree implements Tree, the façade over one content-addressed
// tree: creating operations, reading tips and settings, and handing out
// read-only subtree viewers.
package tree

import (
	"encoding/json"

	"github.com/meridiandb/meridian/pkg/atomicop"
	"github.com/meridiandb/meridian/pkg/auth"
	"github.com/meridiandb/meridian/pkg/crdt"
	"github.com/meridiandb/meridian/pkg/dag"
	"github.com/meridiandb/meridian/pkg/store"
	"github.com/meridiandb/meridian/pkg/subtree"
	"github.com/meridiandb/meridian/pkg/types"
)

const settingsSubtree = "_settings"

// Tree is a handle onto one tree's history, identified by the ID of its
// top-level root entry.
type Tree struct {
	root types.ID
	st   store.Store
}

// New creates a fresh tree: a top-level root entry carrying an empty
// _settings.auth section, persisted unverified (no key yet exists to
// sign a bootstrap commit).
func New(st store.Store, name string) (*Tree, error) {
	settings := crdt.NewKVNested()
	settings.SetString("name", name)
	return NewWithSettings(st, settings)
}

// NewWithSettings creates a fresh tree whose _settings section is
// seeded with the given KVNested (e.g. carrying a "name" field and any
// caller-supplied tags), always adding an empty "auth" map if the
// caller didn't already set one, persisted unverified.
func NewWithSettings(st store.Store, settings *crdt.KVNested) (*Tree, error) {
	if _, ok := settings.Get("auth"); !ok {
		settings.SetMap("auth", crdt.NewKVNested())
	}

	payload, err := json.Marshal(settings)
	if err != nil {
		return nil, types.Wrap(types.KindSerialization, "failed to encode initial settings", err)
	}

	root := dag.NewTopLevelRoot("")
	root.Subtrees[settingsSubtree] = dag.SubtreeNode{Payload: string(payload)}

	rootID, err := st.Put(types.Unverified, root)
	if err != nil {
		return nil, err
	}
	return &Tree{root: rootID, st: st}, nil
}

// FromID wraps an existing root entry ID as a Tree handle, failing
// NotFound if it does not exist.
func FromID(st store.Store, root types.ID) (*Tree, error) {
	if _, err := st.Get(root); err != nil {
		return nil, err
	}
	return &Tree{root: root, st: st}, nil
}

// RootID returns this tree's identifying root entry ID.
func (t *Tree) RootID() types.ID { return t.root }

// Name returns the tree's name as recorded in its settings.
func (t *Tree) Name() (string, error) {
	settings, err := t.settingsNested()
	if err != nil {
		return "", err
	}
	v, ok := settings.Get("name")
	if !ok {
		return "", types.NewError(types.KindNotFound, "tree has no name set")
	}
	name, _ := v.IsString()
	return name, nil
}

// NewOperation starts an unauthenticated AtomicOp against this tree.
func (t *Tree) NewOperation() (*atomicop.AtomicOp, error) {
	return atomicop.New(t.st, t.root)
}

// NewAuthenticatedOperation starts an AtomicOp that will be signed with
// the named private key at commit time.
func (t *Tree) NewAuthenticatedOperation(keyName string) (*atomicop.AtomicOp, error) {
	return atomicop.NewAuthenticated(t.st, t.root, keyName)
}

// Tips returns the current tips of the main tree history.
func (t *Tree) Tips() ([]types.ID, error) {
	return t.st.Tips(t.root)
}

// TipEntries returns the full Entry objects for the current tips.
func (t *Tree) TipEntries() ([]*dag.Entry, error) {
	tips, err := t.st.Tips(t.root)
	if err != nil {
		return nil, err
	}
	return t.entriesFor(tips)
}

// SubtreeTips returns the current tips of the named subtree.
func (t *Tree) SubtreeTips(name string) ([]types.ID, error) {
	return t.st.SubtreeTips(t.root, name)
}

// SubtreeTipEntries returns the full Entry objects for a subtree's
// current tips.
func (t *Tree) SubtreeTipEntries(name string) ([]*dag.Entry, error) {
	tips, err := t.st.SubtreeTips(t.root, name)
	if err != nil {
		return nil, err
	}
	return t.entriesFor(tips)
}

func (t *Tree) entriesFor(ids []types.ID) ([]*dag.Entry, error) {
	entries := make([]*dag.Entry, 0, len(ids))
	for _, id := range ids {
		e, err := t.st.Get(id)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (t *Tree) settingsNested() (*crdt.KVNested, error) {
	tips, err := t.st.SubtreeTips(t.root, settingsSubtree)
	if err != nil {
		return nil, err
	}
	return store.MaterializeKVNested(t.st, t.root, settingsSubtree, tips)
}

// Settings returns the merged auth settings view for the tree.
func (t *Tree) Settings() (*auth.AuthSettings, error) {
	nested, err := t.settingsNested()
	if err != nil {
		return nil, err
	}
	authSection, ok := nested.Get("auth")
	if !ok {
		return auth.NewAuthSettings(), nil
	}
	authMap, ok := authSection.IsMap()
	if !ok {
		return nil, types.NewError(types.KindSerialization, "_settings.auth must be a nested map")
	}
	return auth.FromKVNested(authMap), nil
}

// GetSubtreeViewer returns a read-only KVStore view of name as it
// currently stands. Changes staged through the returned handle are
// never committed: its underlying operation is discarded.
func (t *Tree) GetSubtreeViewer(name string) (*subtree.KVStore, error) {
	op, err := atomicop.New(t.st, t.root)
	if err != nil {
		return nil, err
	}
	return subtree.NewKVStore(op, name), nil
}

// GetRowSubtreeViewer is GetSubtreeViewer's RowStore[T] counterpart.
func GetRowSubtreeViewer[T any](t *Tree, name string) (*subtree.RowStore[T], error) {
	op, err := atomicop.New(t.st, t.root)
	if err != nil {
		return nil, err
	}
	return subtree.NewRowStore[T](op, name), nil
}
