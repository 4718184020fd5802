package auth

import (
	"github.com/meridiandb/meridian/pkg/dag"
	"github.com/meridiandb/meridian/pkg/types"
)

// Operation distinguishes the two permission checks a commit can require.
type Operation int

const (
	// OpWriteData is required to write to any non-settings subtree.
	OpWriteData Operation = iota
	// OpWriteSettings is required to write to the _settings subtree.
	OpWriteSettings
)

// Validator runs the entry-time authentication pipeline: unsigned and
// empty-settings bypasses, key resolution, active-status check, and
// signature verification. It holds no state of its own — settings are
// passed in per call since they vary per tree and per commit.
type Validator struct{}

// NewValidator returns a stateless Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// ValidateEntry reports whether entry is authenticated against settings.
// settings may be nil, meaning the tree carries no _settings.auth section
// at all; a nil or empty settings view allows any entry through
// (backward compatibility with unsigned trees). Otherwise the entry's
// AuthId must resolve to an Active key whose signature verifies.
func (v *Validator) ValidateEntry(entry *dag.Entry, settings *AuthSettings) (bool, error) {
	if entry.IsUnsigned() {
		return true, nil
	}

	if settings == nil || len(settings.GetAllKeys()) == 0 {
		return true, nil
	}

	resolved, err := settings.ValidateEntryAuth(entry.Auth.ID)
	if err != nil {
		return false, err
	}

	if resolved.KeyStatus != StatusActive {
		return false, nil
	}

	return VerifyEntrySignature(entry, resolved.PublicKey)
}

// CheckPermission reports whether resolved carries sufficient permission
// to perform op.
func (v *Validator) CheckPermission(resolved ResolvedAuth, op Operation) bool {
	switch op {
	case OpWriteData:
		return resolved.EffectivePermission.CanWrite() || resolved.EffectivePermission.CanAdmin()
	case OpWriteSettings:
		return resolved.EffectivePermission.CanAdmin()
	default:
		return false
	}
}

// ResolveAuthKey resolves authID against settings, failing Authentication
// if settings is nil (no auth configuration present to resolve against).
func (v *Validator) ResolveAuthKey(authID dag.AuthId, settings *AuthSettings) (ResolvedAuth, error) {
	if settings == nil {
		return ResolvedAuth{}, types.NewError(types.KindAuthentication, "no auth configuration found")
	}
	return settings.ValidateEntryAuth(authID)
}
