// Package database implements Database, the top-level handle onto a
// shared store: a registry of named trees plus the private-key vault
// façade used to generate and import signing keys.
package database

import (
	"crypto/ed25519"
	"math/rand"

	"github.com/meridiandb/meridian/pkg/auth"
	"github.com/meridiandb/meridian/pkg/crdt"
	"github.com/meridiandb/meridian/pkg/log"
	"github.com/meridiandb/meridian/pkg/store"
	"github.com/meridiandb/meridian/pkg/tree"
	"github.com/meridiandb/meridian/pkg/types"
)

var dbLog = log.WithComponent("database")

// Database is a collection of trees sharing one store.
type Database struct {
	store store.Store
}

// New wraps st as a Database.
func New(st store.Store) *Database {
	return &Database{store: st}
}

// Store exposes the underlying store, e.g. for pkg/persist snapshotting.
func (d *Database) Store() store.Store {
	return d.store
}

// NewTree creates a tree whose _settings section is seeded with the
// given KVNested (which should at least set "name").
func (d *Database) NewTree(settings *crdt.KVNested) (*tree.Tree, error) {
	t, err := tree.NewWithSettings(d.store, settings)
	if err != nil {
		dbLog.Error().Err(err).Msg("failed to create tree")
		return nil, err
	}
	log.WithTreeID(dbLog, string(t.RootID())).Debug().Msg("tree created")
	return t, nil
}

// NewTreeDefault creates a tree with no name setting and a random unique
// tag, so repeated calls never collide on content-addressed root IDs.
func (d *Database) NewTreeDefault() (*tree.Tree, error) {
	settings := crdt.NewKVNested()
	settings.SetString("tree_tag", randomTag())
	return d.NewTree(settings)
}

// LoadTree wraps an existing tree by its root entry ID, failing
// NotFound if the root is unknown to the store.
func (d *Database) LoadTree(rootID types.ID) (*tree.Tree, error) {
	return tree.FromID(d.store, rootID)
}

// AllTrees returns every tree whose root entry is a top-level root in
// the store.
func (d *Database) AllTrees() ([]*tree.Tree, error) {
	roots, err := d.store.AllTopLevelRoots()
	if err != nil {
		return nil, err
	}
	trees := make([]*tree.Tree, 0, len(roots))
	for _, root := range roots {
		t, err := tree.FromID(d.store, root)
		if err != nil {
			return nil, err
		}
		trees = append(trees, t)
	}
	return trees, nil
}

// FindTree returns every tree whose "name" setting equals name. Trees
// whose name cannot be read are skipped rather than failing the whole
// search. Fails NotFound if nothing matches.
func (d *Database) FindTree(name string) ([]*tree.Tree, error) {
	all, err := d.AllTrees()
	if err != nil {
		return nil, err
	}

	var matches []*tree.Tree
	for _, t := range all {
		treeName, err := t.Name()
		if err != nil {
			continue
		}
		if treeName == name {
			matches = append(matches, t)
		}
	}
	if len(matches) == 0 {
		return nil, types.NewError(types.KindNotFound, "no tree named "+name)
	}
	return matches, nil
}

// --- key-vault façade ---

// AddPrivateKey generates a fresh Ed25519 keypair, stores the private
// key under name, and returns the public key.
func (d *Database) AddPrivateKey(name string) (ed25519.PublicKey, error) {
	priv, pub, err := auth.GenerateKeypair()
	if err != nil {
		return nil, err
	}
	if err := d.store.StorePrivateKey(name, store.PrivateKeyBytes(priv)); err != nil {
		return nil, err
	}
	dbLog.Debug().Str("key_name", name).Msg("private key generated")
	return pub, nil
}

// ImportPrivateKey stores an existing Ed25519 private key under name,
// overwriting any previous key with that name.
func (d *Database) ImportPrivateKey(name string, priv ed25519.PrivateKey) error {
	if err := d.store.StorePrivateKey(name, store.PrivateKeyBytes(priv)); err != nil {
		return err
	}
	dbLog.Debug().Str("key_name", name).Msg("private key imported")
	return nil
}

// GetPublicKey returns the public key corresponding to a stored private
// key, failing NotFound if name is unknown.
func (d *Database) GetPublicKey(name string) (ed25519.PublicKey, error) {
	raw, err := d.store.GetPrivateKey(name)
	if err != nil {
		return nil, err
	}
	priv := ed25519.PrivateKey(raw)
	return priv.Public().(ed25519.PublicKey), nil
}

// GetFormattedPublicKey is GetPublicKey followed by auth.FormatPublicKey.
func (d *Database) GetFormattedPublicKey(name string) (string, error) {
	pub, err := d.GetPublicKey(name)
	if err != nil {
		return "", err
	}
	return auth.FormatPublicKey(pub), nil
}

// ListPrivateKeys returns the sorted names of every stored key.
func (d *Database) ListPrivateKeys() ([]string, error) {
	return d.store.ListPrivateKeys()
}

// RemovePrivateKey deletes a named key; removing an absent key succeeds.
func (d *Database) RemovePrivateKey(name string) error {
	if err := d.store.RemovePrivateKey(name); err != nil {
		return err
	}
	dbLog.Debug().Str("key_name", name).Msg("private key removed")
	return nil
}

func randomTag() string {
	const alphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	b := make([]byte, 16)
	for i := range b {
		b[i] = alphabet[rand.Intn(len(alphabet))]
	}
	return string(b)
}
