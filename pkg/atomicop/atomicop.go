// Package atomicop implements AtomicOp, the single-entry transaction
// that stages changes across one or more subtrees and produces exactly
// one committed Entry. subtree.SubTree implementations stage their
// changes through an AtomicOp rather than writing to the store
// directly.
package atomicop

import (
	"sync"

	"github.com/meridiandb/meridian/pkg/auth"
	"github.com/meridiandb/meridian/pkg/dag"
	"github.com/meridiandb/meridian/pkg/log"
	"github.com/meridiandb/meridian/pkg/metrics"
	"github.com/meridiandb/meridian/pkg/store"
	"github.com/meridiandb/meridian/pkg/types"
)

const settingsSubtree = "_settings"

var opLog = log.WithComponent("atomicop")

// AtomicOp stages one commit's worth of changes. It is not safe for
// concurrent use by multiple goroutines; callers needing concurrent
// writers should serialize at the Tree or Database level.
type AtomicOp struct {
	mu        sync.Mutex
	st        store.Store
	tree      types.ID
	entry     *dag.Entry
	keyName   string // "" means unauthenticated
	committed bool
}

// New creates an unauthenticated operation against tree: the entry's
// main parents are captured as tree's current tips at this moment.
func New(st store.Store, tree types.ID) (*AtomicOp, error) {
	tips, err := st.Tips(tree)
	if err != nil {
		return nil, err
	}
	return &AtomicOp{
		st:   st,
		tree: tree,
		entry: &dag.Entry{
			Root:     tree,
			Main:     dag.SubtreeNode{Payload: "", Parents: tips},
			Subtrees: map[string]dag.SubtreeNode{},
		},
	}, nil
}

// NewAuthenticated creates an operation that will be signed with the
// named private key at commit time, and whose AuthId names that key.
func NewAuthenticated(st store.Store, tree types.ID, keyName string) (*AtomicOp, error) {
	op, err := New(st, tree)
	if err != nil {
		return nil, err
	}
	op.keyName = keyName
	op.entry.Auth.ID = dag.DirectAuthID(keyName)
	return op, nil
}

// ensureSubtreeLocked lazily captures subtree's current tips the first
// time this operation touches it; must be called with mu held.
func (op *AtomicOp) ensureSubtreeLocked(name string) error {
	if _, ok := op.entry.Subtrees[name]; ok {
		return nil
	}
	tips, err := op.st.SubtreeTips(op.tree, name)
	if err != nil {
		return err
	}
	op.entry.Subtrees[name] = dag.SubtreeNode{Payload: "", Parents: tips}
	log.WithSubtree(log.WithTreeID(opLog, string(op.tree)), name).
		Debug().Int("parents", len(tips)).Msg("subtree tips captured")
	return nil
}

// UpdateSubtree stages data as the new payload for the named subtree,
// capturing its tips on first touch.
func (op *AtomicOp) UpdateSubtree(name, data string) error {
	op.mu.Lock()
	defer op.mu.Unlock()

	if op.committed {
		return types.NewError(types.KindAlreadyCommitted, "operation has already been committed")
	}
	if err := op.ensureSubtreeLocked(name); err != nil {
		return err
	}
	node := op.entry.Subtrees[name]
	node.Payload = data
	op.entry.Subtrees[name] = node
	return nil
}

// GetLocalData returns the payload currently staged for name within
// this operation, and whether anything has been staged yet.
func (op *AtomicOp) GetLocalData(name string) (string, bool) {
	op.mu.Lock()
	defer op.mu.Unlock()

	node, ok := op.entry.Subtrees[name]
	if !ok {
		return "", false
	}
	return node.Payload, true
}

// Parents returns the parent tips captured for name (capturing them now
// if this is the first access), for use by SubTree implementations that
// call store.MaterializeKVOverWrite/MaterializeKVNested directly.
func (op *AtomicOp) Parents(name string) ([]types.ID, error) {
	op.mu.Lock()
	defer op.mu.Unlock()

	if op.committed {
		return nil, types.NewError(types.KindAlreadyCommitted, "operation has already been committed")
	}
	if err := op.ensureSubtreeLocked(name); err != nil {
		return nil, err
	}
	return append([]types.ID{}, op.entry.Subtrees[name].Parents...), nil
}

// Store exposes the underlying store so SubTree implementations can
// materialize CRDT state directly.
func (op *AtomicOp) Store() store.Store {
	return op.st
}

// Tree returns the tree this operation belongs to.
func (op *AtomicOp) Tree() types.ID {
	return op.tree
}

// Commit finalizes the staged entry: empty subtrees are dropped, the
// entry is signed if this operation is authenticated, permission is
// checked against the tree's current _settings.auth, the signature and
// key status are validated (a failure returns an Authentication error
// and stores nothing), and the entry is persisted as Verified, or as
// Unverified when the operation is unauthenticated. Calling Commit a
// second time fails with AlreadyCommitted — AtomicOp is single-use.
func (op *AtomicOp) Commit() (types.ID, error) {
	op.mu.Lock()
	defer op.mu.Unlock()

	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.CommitDuration)

	if op.committed {
		return "", types.NewError(types.KindAlreadyCommitted, "operation has already been committed")
	}

	finalEntry := op.entry.RemoveEmptySubtrees()

	status := types.Unverified
	if op.keyName != "" {
		priv, err := op.st.GetPrivateKey(op.keyName)
		if err != nil {
			return "", err
		}

		settings, err := op.resolveAuthSettingsLocked()
		if err != nil {
			return "", err
		}

		requiredOp := auth.OpWriteData
		if _, touchesSettings := finalEntry.Subtrees[settingsSubtree]; touchesSettings {
			requiredOp = auth.OpWriteSettings
		}

		validator := auth.NewValidator()
		if settings != nil && len(settings.GetAllKeys()) > 0 {
			resolved, err := validator.ResolveAuthKey(finalEntry.Auth.ID, settings)
			if err != nil {
				return "", err
			}
			if !validator.CheckPermission(resolved, requiredOp) {
				metrics.ValidationFailuresTotal.WithLabelValues("permission_denied").Inc()
				return "", types.NewError(types.KindAuthentication, "key "+op.keyName+" lacks permission for this commit")
			}
		}

		sig, err := auth.SignEntry(finalEntry, priv)
		if err != nil {
			return "", err
		}
		finalEntry.Auth.Signature = &sig

		ok, err := op.validateFinal(finalEntry, settings, validator)
		if err != nil {
			return "", err
		}
		if !ok {
			metrics.ValidationFailuresTotal.WithLabelValues("signature_or_key_status").Inc()
			return "", types.NewError(types.KindAuthentication, "key "+op.keyName+" failed signature or key-status validation")
		}
		status = types.Verified
	}

	id, err := op.st.Put(status, finalEntry)
	if err != nil {
		return "", err
	}

	op.committed = true
	metrics.CommitsTotal.WithLabelValues(string(status)).Inc()
	entryLog := log.WithEntryID(log.WithTreeID(opLog, string(op.tree)), string(id))
	entryLog.Debug().Str("status", string(status)).Msg("operation committed")
	return id, nil
}

func (op *AtomicOp) validateFinal(entry *dag.Entry, settings *auth.AuthSettings, validator *auth.Validator) (bool, error) {
	return validator.ValidateEntry(entry, settings)
}

// resolveAuthSettingsLocked materializes the tree's _settings.auth
// section as it stood at the tips this operation captured for
// _settings, or at the tree's current _settings tips if this operation
// never touched that subtree.
func (op *AtomicOp) resolveAuthSettingsLocked() (*auth.AuthSettings, error) {
	tips, ok := op.entry.Subtrees[settingsSubtree]
	var parentTips []types.ID
	if ok {
		parentTips = tips.Parents
	} else {
		current, err := op.st.SubtreeTips(op.tree, settingsSubtree)
		if err != nil {
			return nil, err
		}
		parentTips = current
	}

	if len(parentTips) == 0 {
		return nil, nil
	}

	nested, err := store.MaterializeKVNested(op.st, op.tree, settingsSubtree, parentTips)
	if err != nil {
		return nil, err
	}
	authSection, ok := nested.Get("auth")
	if !ok {
		return nil, nil
	}
	authMap, ok := authSection.IsMap()
	if !ok {
		return nil, types.NewError(types.KindSerialization, "_settings.auth must be a nested map")
	}
	return auth.FromKVNested(authMap), nil
}
