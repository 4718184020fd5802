package auth

import (
	"math"

	"github.com/meridiandb/meridian/pkg/crdt"
	"github.com/meridiandb/meridian/pkg/dag"
	"github.com/meridiandb/meridian/pkg/types"
)

// AuthSettings is a view over the _settings.auth portion of a tree's
// settings KVNested: it does not implement CRDT merge itself, since
// merging happens one level up at the settings subtree. It is only a
// convenience layer for reading and writing auth entries.
type AuthSettings struct {
	inner *crdt.KVNested
}

// NewAuthSettings returns an empty auth settings view.
func NewAuthSettings() *AuthSettings {
	return &AuthSettings{inner: crdt.NewKVNested()}
}

// FromKVNested wraps an existing KVNested (typically read out of
// _settings.auth) as an AuthSettings view.
func FromKVNested(inner *crdt.KVNested) *AuthSettings {
	return &AuthSettings{inner: inner}
}

// AsKVNested returns the underlying KVNested for storage back into
// _settings.auth.
func (s *AuthSettings) AsKVNested() *crdt.KVNested {
	return s.inner
}

// AddKey adds or overwrites an authentication key entry.
func (s *AuthSettings) AddKey(id string, key AuthKey) {
	s.inner.Set(id, key.ToNestedValue())
}

// AddUserTree adds or overwrites a reserved user-tree delegation entry.
func (s *AuthSettings) AddUserTree(id string, ref dag.UserTreeRef) {
	s.inner.Set(id, UserTreeRefToNestedValue(ref))
}

// RevokeKey sets the status of an existing key entry to Revoked,
// failing Authentication if id does not name a key entry.
func (s *AuthSettings) RevokeKey(id string) error {
	key, err := s.GetKey(id)
	if err != nil {
		return err
	}
	key.Status = StatusRevoked
	s.AddKey(id, key)
	return nil
}

// GetKey returns the key entry stored at id, failing Authentication if
// absent or not parseable as an AuthKey.
func (s *AuthSettings) GetKey(id string) (AuthKey, error) {
	v, ok := s.inner.Get(id)
	if !ok {
		return AuthKey{}, types.NewError(types.KindAuthentication, "key not found: "+id)
	}
	key, err := AuthKeyFromNestedValue(v)
	if err != nil {
		return AuthKey{}, types.Wrap(types.KindAuthentication, "invalid auth key format for "+id, err)
	}
	return key, nil
}

// GetAllKeys returns every entry under _settings.auth that parses as an
// AuthKey, skipping anything else (e.g. user-tree references).
func (s *AuthSettings) GetAllKeys() map[string]AuthKey {
	keys := make(map[string]AuthKey)
	for id, v := range s.inner.AsMap() {
		if v.IsDeleted() {
			continue
		}
		if key, err := AuthKeyFromNestedValue(v); err == nil {
			keys[id] = key
		}
	}
	return keys
}

// ValidateEntryAuth resolves authID against the current settings state,
// using only the settings in effect at call time (no merge-time
// validation). UserTree references always fail: they are reserved for a
// later phase.
func (s *AuthSettings) ValidateEntryAuth(authID dag.AuthId) (ResolvedAuth, error) {
	switch authID.Type {
	case dag.AuthIDDirect:
		key, err := s.GetKey(authID.KeyID)
		if err != nil {
			return ResolvedAuth{}, err
		}
		pub, err := ParsePublicKey(key.PublicKey)
		if err != nil {
			return ResolvedAuth{}, err
		}
		return ResolvedAuth{
			PublicKey:           pub,
			EffectivePermission: key.Permissions,
			KeyStatus:           key.Status,
		}, nil
	case dag.AuthIDUserTree:
		return ResolvedAuth{}, types.NewError(types.KindAuthentication, "user auth trees are not yet implemented")
	default:
		return ResolvedAuth{}, types.NewError(types.KindAuthentication, "unknown auth id type")
	}
}

// CanModifyKey reports whether signingKey, already confirmed to hold
// Admin permission, is allowed to modify the key entry named
// targetKeyID: Admin may always modify a Write key regardless of
// priority, and otherwise a key may only modify a target of equal or
// lower priority (equal-or-higher priority number). A target that does
// not yet exist may always be created.
func (s *AuthSettings) CanModifyKey(signingKey ResolvedAuth, targetKeyID string) (bool, error) {
	if !signingKey.EffectivePermission.CanAdmin() {
		return false, nil
	}

	signingPriority, ok := signingKey.EffectivePermission.PriorityValue()
	if !ok {
		signingPriority = math.MaxUint32
	}

	target, err := s.GetKey(targetKeyID)
	if err != nil {
		// Target does not exist: creation is always allowed for an Admin.
		return true, nil
	}

	if target.Permissions.CanWrite() && !target.Permissions.CanAdmin() {
		return true, nil
	}

	targetPriority, ok := target.Permissions.PriorityValue()
	if !ok {
		targetPriority = math.MaxUint32
	}

	return signingPriority <= targetPriority, nil
}
