// Package dag implements the immutable, content-addressed Entry type and
// its canonical serialization. An Entry is the atomic unit of the
// Merkle-DAG: it carries a main payload plus zero or more named subtree
// payloads, each with its own parent set, and an optional authentication
// stamp. Two entries with equal canonical form always have equal IDs.
package dag

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/meridiandb/meridian/pkg/types"
)

// AuthIDType distinguishes the two AuthId variants.
type AuthIDType string

const (
	AuthIDDirect   AuthIDType = "direct"
	AuthIDUserTree AuthIDType = "user_tree"
)

// AuthId identifies which key authenticates an entry. Direct names a key
// in the tree's _settings.auth map by id; an empty key id is the sentinel
// for "unsigned". UserTree is reserved for a future phase and always
// fails validation.
type AuthId struct {
	Type     AuthIDType
	KeyID    string       // set when Type == AuthIDDirect
	UserTree *UserTreeRef // set when Type == AuthIDUserTree
}

// UserTreeRef is the reserved delegation-to-another-tree auth variant.
// It is part of the data model but MUST fail validation in this phase.
type UserTreeRef struct {
	ID   string
	Tips []types.ID
	Key  *AuthId
}

// DirectAuthID builds a Direct AuthId for the given key id.
func DirectAuthID(keyID string) AuthId {
	return AuthId{Type: AuthIDDirect, KeyID: keyID}
}

// UnsignedAuthID is the sentinel AuthId used by unsigned entries.
func UnsignedAuthID() AuthId {
	return DirectAuthID("")
}

// IsUnsigned reports whether id is the Direct("") unsigned sentinel. The
// zero AuthId (as produced by a struct literal that never sets Auth) has
// an empty Type and is treated the same way, so entries built without
// explicit auth are unsigned by default.
func (id AuthId) IsUnsigned() bool {
	return (id.Type == AuthIDDirect || id.Type == "") && id.KeyID == ""
}

// AuthInfo is the auth stamp carried by every entry.
type AuthInfo struct {
	ID        AuthId
	Signature *string // base64-encoded Ed25519 signature, nil if unsigned
}

// SubtreeNode is the payload and parent set for one named partition of an
// entry (the main tree uses the same shape under Entry.Main).
type SubtreeNode struct {
	Payload string
	Parents []types.ID
}

// Entry is the immutable, content-addressed unit of the DAG.
type Entry struct {
	// Root is the ID of the tree's top-level root entry. A top-level
	// root entry itself has Root == "".
	Root types.ID
	// Main carries tree settings (on the root entry) or arbitrary main
	// data (on others).
	Main SubtreeNode
	// Subtrees holds zero or more named, independently-parented partitions.
	Subtrees map[string]SubtreeNode
	Auth     AuthInfo
	// Metadata is an opaque side channel (e.g. a snapshot of settings
	// tips at commit time). It is included in canonical form.
	Metadata *string
}

// NewTopLevelRoot builds a root entry carrying settingsPayload as its
// main payload, with no parents and Root == "".
func NewTopLevelRoot(settingsPayload string) *Entry {
	return &Entry{
		Root:     "",
		Main:     SubtreeNode{Payload: settingsPayload},
		Subtrees: map[string]SubtreeNode{},
	}
}

// IsTopLevelRoot reports whether e defines its own tree (Root == "").
func (e *Entry) IsTopLevelRoot() bool {
	return e.Root == ""
}

// IsUnsigned reports whether e carries no real authentication: its
// AuthId is the Direct("") sentinel AND it carries no signature. Both
// halves matter — a Direct("") id with a signature attached, or a
// non-sentinel id with no signature, is a malformed entry, not an
// unsigned one, and must fall through to key resolution so it fails
// there instead of bypassing validation.
func (e *Entry) IsUnsigned() bool {
	return e.Auth.ID.IsUnsigned() && e.Auth.Signature == nil
}

// InTree reports whether e belongs to the tree rooted at root: either e
// is itself that root entry, or e.Root equals root.
func (e *Entry) InTree(root types.ID, selfID types.ID) bool {
	if e.IsTopLevelRoot() {
		return selfID == root
	}
	return e.Root == root
}

// InSubtree reports whether e carries a (possibly empty) payload for the
// named subtree.
func (e *Entry) InSubtree(name string) bool {
	_, ok := e.Subtrees[name]
	return ok
}

// Parents returns the main parent set.
func (e *Entry) Parents() []types.ID {
	return e.Main.Parents
}

// SubtreeParents returns the parent set for the named subtree, or nil if
// the entry does not carry that subtree.
func (e *Entry) SubtreeParents(name string) []types.ID {
	if node, ok := e.Subtrees[name]; ok {
		return node.Parents
	}
	return nil
}

// SubtreeNames returns the sorted list of subtree names carried by e.
func (e *Entry) SubtreeNames() []string {
	names := make([]string, 0, len(e.Subtrees))
	for name := range e.Subtrees {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Data returns the payload for the named subtree, failing NotFound if e
// does not carry that subtree.
func (e *Entry) Data(name string) (string, error) {
	node, ok := e.Subtrees[name]
	if !ok {
		return "", types.NewError(types.KindNotFound, "entry has no subtree "+name)
	}
	return node.Payload, nil
}

// SetRoot sets the tree root this entry belongs to.
func (e *Entry) SetRoot(root types.ID) {
	e.Root = root
}

// SetParents replaces the main parent set.
func (e *Entry) SetParents(parents []types.ID) {
	e.Main.Parents = parents
}

// SetSubtreeParents replaces the parent set for the named subtree,
// creating the subtree slot if it does not already exist.
func (e *Entry) SetSubtreeParents(name string, parents []types.ID) {
	node := e.Subtrees[name]
	node.Parents = parents
	e.Subtrees[name] = node
}

// RemoveEmptySubtrees returns a copy of e with every subtree whose
// payload is the empty string removed, per the commit-time canonicalization
// rule (invariant 3).
func (e *Entry) RemoveEmptySubtrees() *Entry {
	clone := e.clone()
	for name, node := range clone.Subtrees {
		if node.Payload == "" {
			delete(clone.Subtrees, name)
		}
	}
	return clone
}

func (e *Entry) clone() *Entry {
	subtrees := make(map[string]SubtreeNode, len(e.Subtrees))
	for k, v := range e.Subtrees {
		parents := make([]types.ID, len(v.Parents))
		copy(parents, v.Parents)
		subtrees[k] = SubtreeNode{Payload: v.Payload, Parents: parents}
	}
	mainParents := make([]types.ID, len(e.Main.Parents))
	copy(mainParents, e.Main.Parents)

	var metadata *string
	if e.Metadata != nil {
		m := *e.Metadata
		metadata = &m
	}

	var sig *string
	if e.Auth.Signature != nil {
		s := *e.Auth.Signature
		sig = &s
	}

	return &Entry{
		Root:     e.Root,
		Main:     SubtreeNode{Payload: e.Main.Payload, Parents: mainParents},
		Subtrees: subtrees,
		Auth:     AuthInfo{ID: e.Auth.ID, Signature: sig},
		Metadata: metadata,
	}
}

// --- canonical wire form ---

type authIDWire struct {
	ID    string      `json:"id,omitempty"`
	Key   *authIDWire `json:"key,omitempty"`
	KeyID string      `json:"key_id,omitempty"`
	Tips  []string    `json:"tips,omitempty"`
	Type  string      `json:"type"`
}

func toAuthIDWire(id AuthId) authIDWire {
	wire := authIDWire{Type: string(id.Type)}
	switch id.Type {
	case AuthIDUserTree:
		if id.UserTree != nil {
			wire.ID = id.UserTree.ID
			wire.Tips = sortedIDStrings(id.UserTree.Tips)
			if id.UserTree.Key != nil {
				nested := toAuthIDWire(*id.UserTree.Key)
				wire.Key = &nested
			}
		}
	default:
		wire.KeyID = id.KeyID
	}
	return wire
}

type authInfoWire struct {
	ID        authIDWire `json:"id"`
	Signature *string    `json:"signature"`
}

type subtreeNodeWire struct {
	Parents []string `json:"parents"`
	Payload string   `json:"payload"`
}

func toSubtreeNodeWire(n SubtreeNode) subtreeNodeWire {
	return subtreeNodeWire{Parents: sortedIDStrings(n.Parents), Payload: n.Payload}
}

type entryWire struct {
	Auth     authInfoWire               `json:"auth"`
	Main     subtreeNodeWire            `json:"main"`
	Metadata *string                    `json:"metadata"`
	Root     string                     `json:"root"`
	Subtrees map[string]subtreeNodeWire `json:"subtrees"`
}

func (e *Entry) toWire(includeSignature bool) entryWire {
	subtrees := make(map[string]subtreeNodeWire, len(e.Subtrees))
	for name, node := range e.Subtrees {
		subtrees[name] = toSubtreeNodeWire(node)
	}

	var sig *string
	if includeSignature {
		sig = e.Auth.Signature
	}

	return entryWire{
		Auth:     authInfoWire{ID: toAuthIDWire(e.Auth.ID), Signature: sig},
		Main:     toSubtreeNodeWire(e.Main),
		Metadata: e.Metadata,
		Root:     string(e.Root),
		Subtrees: subtrees,
	}
}

func sortedIDStrings(ids []types.ID) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		s := string(id)
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// canonicalize marshals e to its canonical JSON form: sorted parent sets
// with duplicates removed (Go's encoding/json already sorts map keys,
// which covers the Subtrees map), and either including or excluding the
// signature field.
func (e *Entry) canonicalize(includeSignature bool) ([]byte, error) {
	wire := e.toWire(includeSignature)
	b, err := json.Marshal(wire)
	if err != nil {
		return nil, types.Wrap(types.KindSerialization, "failed to canonicalize entry", err)
	}
	return b, nil
}

// SigningBytes returns the canonical form of e with the signature slot
// cleared — this is what gets Ed25519-signed and verified.
func (e *Entry) SigningBytes() ([]byte, error) {
	return e.canonicalize(false)
}

// ID computes the content-addressed identifier of e: a hex SHA-256 digest
// of the canonical form including the signature field (the reference
// policy for the hashing open question — see DESIGN.md).
func (e *Entry) ID() (types.ID, error) {
	b, err := e.canonicalize(true)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(b)
	return types.ID(hex.EncodeToString(sum[:])), nil
}
