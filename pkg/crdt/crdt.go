// Package crdt implements the last-write-wins, tombstone-aware CRDT
// substrate used for tree settings and subtree payloads: a flat
// KVOverWrite map and a recursively nested KVNested map.
package crdt

import "encoding/json"

// Data is the marker interface for any type meridian can store as a
// subtree payload: it must round-trip through JSON.
type Data interface{}

// CRDT is a type with a deterministic, associative merge: given two
// states reachable from a common ancestor, Merge produces the state that
// reconciles them. self is the older value; other is layered on top.
type CRDT[T any] interface {
	Merge(other T) (T, error)
}

// KVOverWrite is a flat last-write-wins map from string keys to optional
// string values. A nil value represents a tombstone (deleted key); keys
// absent from the map were never set.
type KVOverWrite struct {
	data map[string]*string
}

// NewKVOverWrite returns an empty KVOverWrite.
func NewKVOverWrite() *KVOverWrite {
	return &KVOverWrite{data: make(map[string]*string)}
}

// KVOverWriteFromMap builds a KVOverWrite from a plain string map; every
// value is wrapped as present (not a tombstone).
func KVOverWriteFromMap(initial map[string]string) *KVOverWrite {
	kv := NewKVOverWrite()
	for k, v := range initial {
		val := v
		kv.data[k] = &val
	}
	return kv
}

// Get returns the value for key and whether it is present (false for
// absent or tombstoned keys).
func (kv *KVOverWrite) Get(key string) (string, bool) {
	if kv == nil || kv.data == nil {
		return "", false
	}
	v, ok := kv.data[key]
	if !ok || v == nil {
		return "", false
	}
	return *v, true
}

// Set stores value for key, overwriting any prior value or tombstone.
func (kv *KVOverWrite) Set(key, value string) *KVOverWrite {
	if kv.data == nil {
		kv.data = make(map[string]*string)
	}
	v := value
	kv.data[key] = &v
	return kv
}

// Remove writes a tombstone for key, returning the previous value if one
// existed. The tombstone is written even if the key was absent or already
// tombstoned; the call then returns ("", false).
func (kv *KVOverWrite) Remove(key string) (string, bool) {
	if kv.data == nil {
		kv.data = make(map[string]*string)
	}
	prev, existed := kv.data[key]
	kv.data[key] = nil
	if existed && prev != nil {
		return *prev, true
	}
	return "", false
}

// AsMap returns the underlying map, including tombstones as nil values.
// Callers must not retain it across mutating calls.
func (kv *KVOverWrite) AsMap() map[string]*string {
	if kv.data == nil {
		return map[string]*string{}
	}
	return kv.data
}

// Merge implements CRDT: keys set in other overwrite keys in kv; keys
// present only in kv are preserved.
func (kv *KVOverWrite) Merge(other *KVOverWrite) (*KVOverWrite, error) {
	merged := NewKVOverWrite()
	for k, v := range kv.AsMap() {
		merged.data[k] = v
	}
	for k, v := range other.AsMap() {
		merged.data[k] = v
	}
	return merged, nil
}

type kvOverWriteWire struct {
	Data map[string]*string `json:"data"`
}

// MarshalJSON encodes the map, preserving tombstones as JSON null.
func (kv *KVOverWrite) MarshalJSON() ([]byte, error) {
	return json.Marshal(kvOverWriteWire{Data: kv.AsMap()})
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (kv *KVOverWrite) UnmarshalJSON(b []byte) error {
	var wire kvOverWriteWire
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	if wire.Data == nil {
		wire.Data = make(map[string]*string)
	}
	kv.data = wire.Data
	return nil
}

// NestedValue is a tagged value inside a KVNested map: either a string
// leaf, a nested map, or a tombstone.
type NestedValue struct {
	kind nestedKind
	str  string
	m    *KVNested
}

type nestedKind int

const (
	kindString nestedKind = iota
	kindMap
	kindDeleted
)

// NewStringValue builds a string-leaf NestedValue.
func NewStringValue(s string) NestedValue {
	return NestedValue{kind: kindString, str: s}
}

// NewMapValue builds a nested-map NestedValue.
func NewMapValue(m *KVNested) NestedValue {
	return NestedValue{kind: kindMap, m: m}
}

// DeletedValue is the tombstone NestedValue.
func DeletedValue() NestedValue {
	return NestedValue{kind: kindDeleted}
}

// IsDeleted reports whether v is a tombstone.
func (v NestedValue) IsDeleted() bool { return v.kind == kindDeleted }

// IsString reports whether v is a string leaf, returning it if so.
func (v NestedValue) IsString() (string, bool) {
	if v.kind == kindString {
		return v.str, true
	}
	return "", false
}

// IsMap reports whether v is a nested map, returning it if so.
func (v NestedValue) IsMap() (*KVNested, bool) {
	if v.kind == kindMap {
		return v.m, true
	}
	return nil, false
}

type nestedValueWire struct {
	Type string       `json:"type"`
	Str  string       `json:"str,omitempty"`
	Map  *kvNestedWire `json:"map,omitempty"`
}

func (v NestedValue) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindString:
		return json.Marshal(nestedValueWire{Type: "string", Str: v.str})
	case kindMap:
		wire := v.m.toWire()
		return json.Marshal(nestedValueWire{Type: "map", Map: &wire})
	default:
		return json.Marshal(nestedValueWire{Type: "deleted"})
	}
}

func (v *NestedValue) UnmarshalJSON(b []byte) error {
	var wire nestedValueWire
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	switch wire.Type {
	case "string":
		*v = NewStringValue(wire.Str)
	case "map":
		var m KVNested
		if wire.Map != nil {
			m.fromWire(*wire.Map)
		} else {
			m = *NewKVNested()
		}
		*v = NewMapValue(&m)
	default:
		*v = DeletedValue()
	}
	return nil
}

// KVNested is a recursively nested, last-write-wins map. Values are
// strings, nested KVNested maps, or tombstones; see Merge for the merge
// rule.
type KVNested struct {
	data map[string]NestedValue
}

// NewKVNested returns an empty KVNested.
func NewKVNested() *KVNested {
	return &KVNested{data: make(map[string]NestedValue)}
}

// Get returns the value at key, or (zero, false) if the key is absent or
// tombstoned — callers needing to see tombstones explicitly should use AsMap.
func (n *KVNested) Get(key string) (NestedValue, bool) {
	if n == nil || n.data == nil {
		return NestedValue{}, false
	}
	v, ok := n.data[key]
	if !ok || v.IsDeleted() {
		return NestedValue{}, false
	}
	return v, true
}

// Set stores an arbitrary NestedValue at key.
func (n *KVNested) Set(key string, value NestedValue) *KVNested {
	if n.data == nil {
		n.data = make(map[string]NestedValue)
	}
	n.data[key] = value
	return n
}

// SetString stores a string leaf at key.
func (n *KVNested) SetString(key, value string) *KVNested {
	return n.Set(key, NewStringValue(value))
}

// SetMap stores a nested map at key.
func (n *KVNested) SetMap(key string, value *KVNested) *KVNested {
	return n.Set(key, NewMapValue(value))
}

// Remove writes a tombstone at key, returning the previous value unless it
// was already absent or a tombstone.
func (n *KVNested) Remove(key string) (NestedValue, bool) {
	if n.data == nil {
		n.data = make(map[string]NestedValue)
	}
	prev, existed := n.data[key]
	n.data[key] = DeletedValue()
	if existed && !prev.IsDeleted() {
		return prev, true
	}
	return NestedValue{}, false
}

// AsMap returns the underlying map, including tombstones. Callers must
// not retain it across mutating calls.
func (n *KVNested) AsMap() map[string]NestedValue {
	if n.data == nil {
		return map[string]NestedValue{}
	}
	return n.data
}

// Merge implements the recursive LWW merge rule from the data model: for
// each key in other, a tombstone or string wins outright; a map merges
// recursively with any existing map in n, and otherwise overwrites.
// Keys present only in n are preserved unchanged.
func (n *KVNested) Merge(other *KVNested) (*KVNested, error) {
	result := make(map[string]NestedValue, len(n.AsMap()))
	for k, v := range n.AsMap() {
		result[k] = v
	}

	for k, ov := range other.AsMap() {
		switch {
		case ov.IsDeleted():
			result[k] = ov
		case func() bool { _, ok := ov.IsString(); return ok }():
			result[k] = ov
		default:
			otherMap, _ := ov.IsMap()
			if existing, ok := result[k]; ok {
				if existingMap, isMap := existing.IsMap(); isMap {
					merged, err := existingMap.Merge(otherMap)
					if err != nil {
						return nil, err
					}
					result[k] = NewMapValue(merged)
					continue
				}
			}
			result[k] = ov
		}
	}

	return &KVNested{data: result}, nil
}

type kvNestedWire struct {
	Data map[string]NestedValue `json:"data"`
}

func (n *KVNested) toWire() kvNestedWire {
	return kvNestedWire{Data: n.AsMap()}
}

func (n *KVNested) fromWire(wire kvNestedWire) {
	if wire.Data == nil {
		wire.Data = make(map[string]NestedValue)
	}
	n.data = wire.Data
}

// MarshalJSON encodes the nested map.
func (n *KVNested) MarshalJSON() ([]byte, error) {
	wire := n.toWire()
	return json.Marshal(wire)
}

// UnmarshalJSON decodes the wire form produced by MarshalJSON.
func (n *KVNested) UnmarshalJSON(b []byte) error {
	var wire kvNestedWire
	if err := json.Unmarshal(b, &wire); err != nil {
		return err
	}
	n.fromWire(wire)
	return nil
}
