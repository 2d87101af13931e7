package mockstore

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/roach88/stagehand/internal/builder"
	"github.com/roach88/stagehand/internal/discovery"
	"github.com/roach88/stagehand/internal/record"
)

// IdentityGenerator produces synthetic identities for mock entities.
type IdentityGenerator interface {
	Next(t record.RecordType) record.Identity
}

type uuidGenerator struct{}

func (uuidGenerator) Next(record.RecordType) record.Identity {
	return record.Identity(uuid.NewString())
}

// NewUUIDGenerator returns the default generator: random UUIDv4 per
// identity, globally unique across types.
func NewUUIDGenerator() IdentityGenerator {
	return uuidGenerator{}
}

// Store is an in-memory per-type entity collection.
type Store struct {
	gen     IdentityGenerator
	records map[record.RecordType][]*record.Entity
	seen    map[*record.Entity]bool
}

// New creates a store with UUID identity generation.
func New() *Store {
	return NewWithGenerator(NewUUIDGenerator())
}

// NewWithGenerator creates a store with a custom identity generator.
// Tests inject a sequence generator here for deterministic output.
func NewWithGenerator(gen IdentityGenerator) *Store {
	return &Store{
		gen:     gen,
		records: make(map[record.RecordType][]*record.Entity),
		seen:    make(map[*record.Entity]bool),
	}
}

// GenerateID assigns a synthetic identity to the entity if it has none.
// No-op when an identity is already set.
func (s *Store) GenerateID(e *record.Entity) {
	if e.HasIdentity() {
		return
	}
	e.SetIdentity(s.gen.Next(e.RecordType()))
}

// GenerateIDs assigns identities to every builder's entity lacking one.
func (s *Store) GenerateIDs(builders []builder.Builder) {
	for _, b := range builders {
		s.GenerateID(b.GetEntity())
	}
}

// GenerateRelationships backfills relationship fields on every builder:
// relation-map entries get the parent's identity; external references
// get the identity of the sibling builder of the target type whose
// external-id field value matches. An unmatched reference leaves the
// field unset.
func (s *Store) GenerateRelationships(g *discovery.Graph, builders []builder.Builder) {
	for _, b := range builders {
		entity := b.GetEntity()
		for field, parent := range g.ParentsOf(b) {
			entity.Set(field, parent.GetIdentity())
		}
		for _, ref := range g.ReferencesOf(b) {
			sibling, ok := findByExternalID(builders, ref)
			if !ok {
				slog.Debug("external reference unmatched",
					"type", string(b.GetRecordType()), "field", ref.Field,
					"target", string(ref.TargetType))
				continue
			}
			entity.Set(ref.Field, sibling.GetIdentity())
		}
	}
}

func findByExternalID(builders []builder.Builder, ref discovery.ExternalReference) (builder.Builder, bool) {
	want := record.Canonical(ref.Value)
	for _, candidate := range builders {
		if candidate.GetRecordType() != ref.TargetType {
			continue
		}
		v, ok := candidate.GetEntity().Get(ref.ExternalIDField)
		if ok && record.Canonical(v) == want {
			return candidate, true
		}
	}
	return nil, false
}

// Store appends the entity into its type's collection. The same entity
// (by reference) is never stored twice.
func (s *Store) Store(e *record.Entity) {
	if s.seen[e] {
		return
	}
	s.seen[e] = true
	s.records[e.RecordType()] = append(s.records[e.RecordType()], e)
}

// StoreAll appends every entity, with the same reference deduplication.
func (s *Store) StoreAll(entities []*record.Entity) {
	for _, e := range entities {
		s.Store(e)
	}
}

// Ingest stores the entity of every builder in the set.
func (s *Store) Ingest(builders []builder.Builder) {
	for _, b := range builders {
		s.Store(b.GetEntity())
	}
}

// Retrieve returns all entities of a type in insertion order, or nil
// when the type has never been stored.
func (s *Store) Retrieve(t record.RecordType) []*record.Entity {
	entities, ok := s.records[t]
	if !ok {
		return nil
	}
	out := make([]*record.Entity, len(entities))
	copy(out, entities)
	return out
}

// RetrieveByFilter returns the entities of a type matching every
// field/value pair in the filter (conjunctive, stringified equality).
// Returns nil when the type is unknown or nothing matches.
func (s *Store) RetrieveByFilter(t record.RecordType, filter map[string]any) []*record.Entity {
	entities, ok := s.records[t]
	if !ok {
		return nil
	}
	var out []*record.Entity
	for _, e := range entities {
		if e.Matches(filter) {
			out = append(out, e)
		}
	}
	return out
}

// Types returns the stored record types, sorted.
func (s *Store) Types() []record.RecordType {
	out := make([]record.RecordType, 0, len(s.records))
	for t := range s.records {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Render produces a deterministic text dump of the dataset: types
// sorted, entities in insertion order, fields sorted. Used for golden
// comparison and CLI text output.
func (s *Store) Render() string {
	var sb strings.Builder
	for _, t := range s.Types() {
		for _, e := range s.records[t] {
			sb.WriteString(string(t))
			sb.WriteString(" id=")
			sb.WriteString(string(e.Identity()))
			for _, field := range e.FieldNames() {
				v, _ := e.Get(field)
				sb.WriteString(fmt.Sprintf(" %s=%s", field, record.Canonical(v)))
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}
