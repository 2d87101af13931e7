package story

import (
	"fmt"
	"log/slog"

	"github.com/roach88/stagehand/internal/builder"
	"github.com/roach88/stagehand/internal/session"
)

// Relation declaratively links a narrator's local relationship field to
// a record built elsewhere in the session, identified by a field value
// on the target narrative's record type. Relations only drive discovery
// lookups at build time; they hold no builder references themselves.
type Relation struct {
	// Field is the relationship field on the narrator's record.
	Field string

	// Target is the narrative whose record type the relation points at.
	// Only its RecordType is read.
	Target Narrative

	// TargetField and TargetValue identify the target record, e.g.
	// (Name, "Acme").
	TargetField string
	TargetValue any
}

// Narrator is the runtime handle to one narrative: how many times to
// build it and which relations to wire on each build.
type Narrator struct {
	Narrative Narrative
	Count     int
	Relations []Relation
}

// NewNarrator creates a narrator. A count below one builds once.
func NewNarrator(n Narrative, count int, relations ...Relation) *Narrator {
	return &Narrator{Narrative: n, Count: count, Relations: relations}
}

// Standalone reports whether the narrator declares no relations.
// Standalone narrators build before relation-bearing ones so they can
// serve as discovery targets.
func (n *Narrator) Standalone() bool {
	return len(n.Relations) == 0
}

func (n *Narrator) repeat() int {
	if n.Count < 1 {
		return 1
	}
	return n.Count
}

// Build instantiates the narrative's builder and, for a relation-
// bearing narrator, resolves each relation through discovery. A
// relation whose target was never built in this session is skipped: the
// story build order, not the narrator, is responsible for targets
// existing. A discovered target is wired via an external-id reference
// when the relation's target field is the target type's external-id
// field, and via a parent link otherwise.
func (n *Narrator) Build(s *session.Session) (builder.Builder, error) {
	if n.Narrative == nil {
		return nil, fmt.Errorf("narrator has no narrative")
	}
	b, err := n.Narrative.NewBuilder(s)
	if err != nil {
		return nil, fmt.Errorf("build narrative %s: %w", n.Narrative.RecordType(), err)
	}
	if n.Standalone() {
		return b, nil
	}

	for _, rel := range n.Relations {
		if rel.Target == nil {
			slog.Warn("relation has no target narrative, skipping",
				"type", string(b.GetRecordType()), "field", rel.Field)
			continue
		}
		targetType := rel.Target.RecordType()

		match, ok := s.Discovery().DiscoverRelationshipFor(targetType, rel.TargetField, rel.TargetValue)
		if !ok {
			slog.Debug("relation target not built in session, skipping",
				"type", string(b.GetRecordType()), "field", rel.Field,
				"target", string(targetType), "targetField", rel.TargetField)
			continue
		}

		if s.Registry().IsExternalIDField(targetType, rel.TargetField) {
			if _, err := b.SetReference(rel.Field, rel.TargetField, rel.TargetValue); err != nil {
				return nil, fmt.Errorf("wire relation %s.%s: %w", b.GetRecordType(), rel.Field, err)
			}
		} else {
			b.SetParent(rel.Field, match)
		}
	}
	return b, nil
}
