// Package auth implements the authentication and authorization layer:
// the permission lattice, Ed25519 key handling, the auth settings view
// over a tree's _settings subtree, and the validator that gates commits.
package auth

import "math"

// Level distinguishes the three permission tiers.
type Level int

const (
	LevelRead Level = iota
	LevelWrite
	LevelAdmin
)

// Permission is a value in the lattice Read < Write(p) < Admin(p).
// Priority is meaningful only at the Write/Admin levels; lower numeric
// priority is administratively stronger.
type Permission struct {
	Level    Level
	Priority uint32 // only meaningful when Level != LevelRead
}

// Read is the no-priority, lowest permission.
func Read() Permission { return Permission{Level: LevelRead} }

// Write builds a Write permission with the given priority.
func Write(priority uint32) Permission { return Permission{Level: LevelWrite, Priority: priority} }

// Admin builds an Admin permission with the given priority.
func Admin(priority uint32) Permission { return Permission{Level: LevelAdmin, Priority: priority} }

// CanWrite reports whether p permits data writes (Write or Admin).
func (p Permission) CanWrite() bool {
	return p.Level == LevelWrite || p.Level == LevelAdmin
}

// CanAdmin reports whether p permits settings writes and key administration.
func (p Permission) CanAdmin() bool {
	return p.Level == LevelAdmin
}

// PriorityValue returns p's priority if it has one (Write/Admin), or
// false for Read.
func (p Permission) PriorityValue() (uint32, bool) {
	if p.Level == LevelRead {
		return 0, false
	}
	return p.Priority, true
}

// OrderingValue maps p onto a single total order per the data model:
// Read = 0; Write(p) = 1 + (Uint32Max - p); Admin(p) = 1 + 2*Uint32Max - p.
// A strictly higher value here means a strictly stronger permission, and
// within a level a lower numeric priority yields a higher ordering value.
func (p Permission) OrderingValue() uint64 {
	const maxU32 = uint64(math.MaxUint32)
	switch p.Level {
	case LevelRead:
		return 0
	case LevelWrite:
		return 1 + (maxU32 - uint64(p.Priority))
	case LevelAdmin:
		return 1 + 2*maxU32 - uint64(p.Priority)
	default:
		return 0
	}
}

// Less reports whether p is strictly weaker than other in the total order.
func (p Permission) Less(other Permission) bool {
	return p.OrderingValue() < other.OrderingValue()
}

// KeyStatus is the lifecycle state of an authentication key.
type KeyStatus string

const (
	StatusActive  KeyStatus = "active"
	StatusRevoked KeyStatus = "revoked"
)
