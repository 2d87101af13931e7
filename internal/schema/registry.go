package schema

import (
	"fmt"
	"sort"

	"github.com/roach88/stagehand/internal/record"
)

// TypeInfo describes one record type's static metadata.
type TypeInfo struct {
	// Type is the record type this metadata describes.
	Type record.RecordType

	// Table is the backing store table name. Optional for mock-only use.
	Table string

	// ExternalIDField names the uniquely-valued business field used for
	// external-id references, if the type has one.
	ExternalIDField string

	// Relationships maps relationship field names to the record type
	// the field points at.
	Relationships map[string]record.RecordType

	// Discoverable lists fields watched for discovery by default.
	Discoverable []string

	// Setup marks types whose records belong to the setup/configuration
	// partition and join the first commit batch.
	Setup bool
}

// UnknownTypeError reports a registry lookup for an unregistered type.
type UnknownTypeError struct {
	Type record.RecordType
}

func (e *UnknownTypeError) Error() string {
	return fmt.Sprintf("unknown record type: %s", e.Type)
}

// InvalidRelationshipFieldError reports an attempt to derive a target
// type from a field that is not a relationship field. This signals
// misconfiguration and is surfaced at the point of use, never retried.
type InvalidRelationshipFieldError struct {
	Type  record.RecordType
	Field string
}

func (e *InvalidRelationshipFieldError) Error() string {
	return fmt.Sprintf("field %s.%s is not a relationship field", e.Type, e.Field)
}

// Registry maps record types to their static metadata.
type Registry struct {
	types map[record.RecordType]TypeInfo
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[record.RecordType]TypeInfo)}
}

// Register adds metadata for a type. Registering the same type twice
// replaces the earlier entry.
func (r *Registry) Register(info TypeInfo) error {
	if info.Type == "" {
		return fmt.Errorf("register type info: empty record type")
	}
	r.types[info.Type] = info
	return nil
}

// Lookup returns the metadata for a type.
func (r *Registry) Lookup(t record.RecordType) (TypeInfo, bool) {
	info, ok := r.types[t]
	return info, ok
}

// Types returns all registered record types, sorted.
func (r *Registry) Types() []record.RecordType {
	out := make([]record.RecordType, 0, len(r.types))
	for t := range r.types {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// RelationshipTarget derives the record type a relationship field points
// at. Returns InvalidRelationshipFieldError when the field is not a
// declared relationship field, or UnknownTypeError when the source type
// is not registered.
func (r *Registry) RelationshipTarget(t record.RecordType, field string) (record.RecordType, error) {
	info, ok := r.types[t]
	if !ok {
		return "", &UnknownTypeError{Type: t}
	}
	target, ok := info.Relationships[field]
	if !ok {
		return "", &InvalidRelationshipFieldError{Type: t, Field: field}
	}
	return target, nil
}

// IsExternalIDField reports whether field is the external-id field of
// the given type.
func (r *Registry) IsExternalIDField(t record.RecordType, field string) bool {
	info, ok := r.types[t]
	if !ok {
		return false
	}
	return info.ExternalIDField != "" && info.ExternalIDField == field
}

// Table returns the backing table name for a type.
func (r *Registry) Table(t record.RecordType) (string, error) {
	info, ok := r.types[t]
	if !ok {
		return "", &UnknownTypeError{Type: t}
	}
	if info.Table == "" {
		return "", fmt.Errorf("record type %s has no table mapping", t)
	}
	return info.Table, nil
}
