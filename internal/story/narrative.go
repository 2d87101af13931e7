package story

import (
	"fmt"
	"sort"

	"github.com/roach88/stagehand/internal/builder"
	"github.com/roach88/stagehand/internal/record"
	"github.com/roach88/stagehand/internal/schema"
	"github.com/roach88/stagehand/internal/session"
)

// Narrative is a named, fixed persona: it always builds the same
// conceptual record via one builder. Its record type is static metadata
// readable without building anything.
type Narrative interface {
	// RecordType returns the type of record this narrative produces.
	RecordType() record.RecordType

	// NewBuilder creates this narrative's builder in the session.
	NewBuilder(s *session.Session) (builder.Builder, error)
}

// RecordNarrative is the generic narrative: a record type plus a fixed
// set of field values. Scenario files assemble stories from these.
type RecordNarrative struct {
	Type   record.RecordType
	Fields map[string]any
}

// RecordType returns the narrative's record type.
func (n *RecordNarrative) RecordType() record.RecordType {
	return n.Type
}

// NewBuilder creates a standard builder and assigns the narrative's
// fields in sorted order, so discovery observes them deterministically.
func (n *RecordNarrative) NewBuilder(s *session.Session) (builder.Builder, error) {
	if _, ok := s.Registry().Lookup(n.Type); !ok {
		return nil, fmt.Errorf("narrative: %w", &schema.UnknownTypeError{Type: n.Type})
	}
	b := s.NewBuilder(n.Type)

	fields := make([]string, 0, len(n.Fields))
	for field := range n.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	for _, field := range fields {
		b.SetField(field, n.Fields[field])
	}
	return b, nil
}
