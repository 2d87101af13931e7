package story

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/stagehand/internal/builder"
	"github.com/roach88/stagehand/internal/session"
)

// Story is a composed tree of narrators and sub-stories describing one
// cohesive multi-record scenario.
type Story struct {
	Name      string
	Narrators []*Narrator
	Related   []*Story

	initialized bool
	prime       builder.Builder
}

// New creates a story.
func New(name string) *Story {
	return &Story{Name: name}
}

// Narrate appends a narrator and returns the story for chaining.
func (st *Story) Narrate(n *Narrator) *Story {
	st.Narrators = append(st.Narrators, n)
	return st
}

// Relate appends a related sub-story, built before this story's own
// narrators so its builders can serve as relation targets.
func (st *Story) Relate(related *Story) *Story {
	st.Related = append(st.Related, related)
	return st
}

// Initialize pre-registers every relation's target field as
// discoverable on the target record type, across the whole story tree,
// so the discovery lookups in Build can succeed. Idempotent, recursing
// into related stories first.
//
// A relation whose target metadata cannot be resolved is skipped with a
// warning rather than failing the build: the relation is simply left
// unmapped.
func (st *Story) Initialize(s *session.Session) {
	if st.initialized {
		return
	}
	st.initialized = true

	for _, related := range st.Related {
		related.Initialize(s)
	}

	for _, n := range st.Narrators {
		if n.Standalone() {
			continue
		}
		for _, rel := range n.Relations {
			if rel.Target == nil {
				slog.Warn("relation has no target narrative, leaving unmapped",
					"story", st.Name, "field", rel.Field)
				continue
			}
			targetType := rel.Target.RecordType()
			if targetType == "" {
				slog.Warn("relation target narrative has no record type, leaving unmapped",
					"story", st.Name, "field", rel.Field)
				continue
			}
			s.Discovery().SetDiscoverableField(targetType, rel.TargetField)
		}
	}
}

// Build initializes the tree once, then builds related stories,
// standalone narrators, and relation-bearing narrators, in that order,
// each narrator repeated per its configured count. Returns the prime
// builder: the first builder the build produced, the story's entry
// point for Persist and Mock.
func (st *Story) Build(s *session.Session) (builder.Builder, error) {
	st.Initialize(s)

	var prime builder.Builder
	keep := func(b builder.Builder) {
		if prime == nil {
			prime = b
		}
	}

	for _, related := range st.Related {
		b, err := related.Build(s)
		if err != nil {
			return nil, fmt.Errorf("story %s: %w", st.Name, err)
		}
		keep(b)
	}

	for _, phase := range []bool{true, false} {
		for _, n := range st.Narrators {
			if n.Standalone() != phase {
				continue
			}
			for i := 0; i < n.repeat(); i++ {
				b, err := n.Build(s)
				if err != nil {
					return nil, fmt.Errorf("story %s: %w", st.Name, err)
				}
				keep(b)
			}
		}
	}

	st.prime = prime
	return prime, nil
}

// Persist builds the story and commits the session through its unit of
// work, in dependency order.
func (st *Story) Persist(ctx context.Context, s *session.Session) error {
	prime, err := st.Build(s)
	if err != nil {
		return err
	}
	if prime == nil {
		return fmt.Errorf("story %s produced no builders", st.Name)
	}
	return prime.Persist(ctx)
}

// Mock builds the story and produces the session's in-memory dataset.
func (st *Story) Mock(ctx context.Context, s *session.Session) error {
	prime, err := st.Build(s)
	if err != nil {
		return err
	}
	if prime == nil {
		return fmt.Errorf("story %s produced no builders", st.Name)
	}
	return prime.Mock(ctx)
}
