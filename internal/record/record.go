package record

import (
	"fmt"
	"sort"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// RecordType identifies a kind of record (e.g. "Account").
// Comparable and stable for the duration of a build session.
type RecordType string

// Identity is an opaque record identifier. The empty string means unset.
//
// Identities are assigned by the backing store on commit, or synthesized
// by the mock store. This package never generates them.
type Identity string

// Entity is a mutable field/value container of one RecordType.
type Entity struct {
	recordType RecordType
	identity   Identity
	fields     map[string]any
}

// NewEntity creates an empty entity of the given type with no identity.
func NewEntity(t RecordType) *Entity {
	return &Entity{
		recordType: t,
		fields:     make(map[string]any),
	}
}

// RecordType returns the entity's type.
func (e *Entity) RecordType() RecordType {
	return e.recordType
}

// Identity returns the entity's identity, or "" if unset.
func (e *Entity) Identity() Identity {
	return e.identity
}

// HasIdentity reports whether an identity has been assigned.
func (e *Entity) HasIdentity() bool {
	return e.identity != ""
}

// SetIdentity assigns the identity. Assigning the empty identity is a no-op
// so callers cannot accidentally clear one that a store already stamped.
func (e *Entity) SetIdentity(id Identity) {
	if id == "" {
		return
	}
	e.identity = id
}

// Set assigns a field value, overwriting any previous value.
func (e *Entity) Set(field string, value any) {
	e.fields[field] = value
}

// Get returns the field value and whether it has been set.
func (e *Entity) Get(field string) (any, bool) {
	v, ok := e.fields[field]
	return v, ok
}

// FieldNames returns the names of all set fields, sorted.
func (e *Entity) FieldNames() []string {
	names := make([]string, 0, len(e.fields))
	for name := range e.fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns a shallow copy of the field map.
func (e *Entity) Snapshot() map[string]any {
	out := make(map[string]any, len(e.fields))
	for k, v := range e.fields {
		out[k] = v
	}
	return out
}

// Matches reports whether every field/value pair in the filter compares
// equal (canonically) to the entity's current value for that field.
// A filter field the entity has never set does not match.
func (e *Entity) Matches(filter map[string]any) bool {
	for field, want := range filter {
		got, ok := e.fields[field]
		if !ok {
			return false
		}
		if Canonical(got) != Canonical(want) {
			return false
		}
	}
	return true
}

// Canonical renders a value into its canonical string form for key and
// filter comparison. Strings are NFC-normalized; integer kinds collapse
// to base-10 so int(5) and int64(5) compare equal; nil renders empty.
func Canonical(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return norm.NFC.String(val)
	case []byte:
		return norm.NFC.String(string(val))
	case Identity:
		return norm.NFC.String(string(val))
	case RecordType:
		return norm.NFC.String(string(val))
	case bool:
		return strconv.FormatBool(val)
	case int:
		return strconv.FormatInt(int64(val), 10)
	case int32:
		return strconv.FormatInt(int64(val), 10)
	case int64:
		return strconv.FormatInt(val, 10)
	case uint:
		return strconv.FormatUint(uint64(val), 10)
	case uint64:
		return strconv.FormatUint(val, 10)
	case float32:
		return strconv.FormatFloat(float64(val), 'g', -1, 32)
	case float64:
		return strconv.FormatFloat(val, 'g', -1, 64)
	default:
		return norm.NFC.String(fmt.Sprintf("%v", val))
	}
}
