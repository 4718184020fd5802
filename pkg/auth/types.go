package auth

import (
	"crypto/ed25519"

	"github.com/meridiandb/meridian/pkg/crdt"
	"github.com/meridiandb/meridian/pkg/dag"
	"github.com/meridiandb/meridian/pkg/types"
)

// AuthKey is an entry in a tree's _settings.auth map: a public key string,
// its permission, and its lifecycle status.
type AuthKey struct {
	PublicKey   string
	Permissions Permission
	Status      KeyStatus
}

// ResolvedAuth is the outcome of resolving an AuthId against the current
// auth settings: the public key material plus the effective permission
// and status to enforce.
type ResolvedAuth struct {
	PublicKey          ed25519.PublicKey
	EffectivePermission Permission
	KeyStatus          KeyStatus
}

const (
	fieldKey        = "key"
	fieldPermission = "permissions"
	fieldStatus     = "status"
	fieldLevel      = "level"
	fieldPriority   = "priority"

	levelRead  = "read"
	levelWrite = "write"
	levelAdmin = "admin"
)

func permissionToNested(p Permission) *crdt.KVNested {
	m := crdt.NewKVNested()
	switch p.Level {
	case LevelRead:
		m.SetString(fieldLevel, levelRead)
	case LevelWrite:
		m.SetString(fieldLevel, levelWrite)
		m.SetString(fieldPriority, formatUint(p.Priority))
	case LevelAdmin:
		m.SetString(fieldLevel, levelAdmin)
		m.SetString(fieldPriority, formatUint(p.Priority))
	}
	return m
}

func permissionFromNested(m *crdt.KVNested) (Permission, error) {
	levelVal, ok := m.Get(fieldLevel)
	if !ok {
		return Permission{}, types.NewError(types.KindSerialization, "permission missing level field")
	}
	level, _ := levelVal.IsString()

	priority := uint32(0)
	if pv, ok := m.Get(fieldPriority); ok {
		s, _ := pv.IsString()
		parsed, err := parseUint(s)
		if err != nil {
			return Permission{}, types.Wrap(types.KindSerialization, "invalid permission priority", err)
		}
		priority = parsed
	}

	switch level {
	case levelRead:
		return Read(), nil
	case levelWrite:
		return Write(priority), nil
	case levelAdmin:
		return Admin(priority), nil
	default:
		return Permission{}, types.NewError(types.KindSerialization, "unknown permission level "+level)
	}
}

// ToNestedValue converts k into the KVNested representation stored under
// its key id in _settings.auth.
func (k AuthKey) ToNestedValue() crdt.NestedValue {
	m := crdt.NewKVNested()
	m.SetString(fieldKey, k.PublicKey)
	m.SetMap(fieldPermission, permissionToNested(k.Permissions))
	m.SetString(fieldStatus, string(k.Status))
	return crdt.NewMapValue(m)
}

// AuthKeyFromNestedValue parses an AuthKey back out of a NestedValue,
// failing Serialization if the shape does not match.
func AuthKeyFromNestedValue(v crdt.NestedValue) (AuthKey, error) {
	m, ok := v.IsMap()
	if !ok {
		return AuthKey{}, types.NewError(types.KindSerialization, "auth key value is not a map")
	}

	keyVal, ok := m.Get(fieldKey)
	if !ok {
		return AuthKey{}, types.NewError(types.KindSerialization, "auth key missing key field")
	}
	keyStr, _ := keyVal.IsString()

	permVal, ok := m.Get(fieldPermission)
	if !ok {
		return AuthKey{}, types.NewError(types.KindSerialization, "auth key missing permissions field")
	}
	permMap, ok := permVal.IsMap()
	if !ok {
		return AuthKey{}, types.NewError(types.KindSerialization, "auth key permissions is not a map")
	}
	perm, err := permissionFromNested(permMap)
	if err != nil {
		return AuthKey{}, err
	}

	statusVal, ok := m.Get(fieldStatus)
	if !ok {
		return AuthKey{}, types.NewError(types.KindSerialization, "auth key missing status field")
	}
	statusStr, _ := statusVal.IsString()

	return AuthKey{PublicKey: keyStr, Permissions: perm, Status: KeyStatus(statusStr)}, nil
}

// UserTreeRefToNestedValue converts ref into its KVNested representation,
// storing its ID and Tips; ref.Key is not stored, and this package has no
// function that parses the value back. Resolving a UserTree AuthId always
// fails (see AuthSettings.ValidateEntryAuth).
func UserTreeRefToNestedValue(ref dag.UserTreeRef) crdt.NestedValue {
	m := crdt.NewKVNested()
	m.SetString("id", ref.ID)
	tips := make([]string, len(ref.Tips))
	for i, t := range ref.Tips {
		tips[i] = string(t)
	}
	tipsMap := crdt.NewKVNested()
	for i, t := range tips {
		tipsMap.SetString(formatUint(uint32(i)), t)
	}
	m.SetMap("tips", tipsMap)
	return crdt.NewMapValue(m)
}
