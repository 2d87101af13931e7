package discovery

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/roach88/stagehand/internal/builder"
	"github.com/roach88/stagehand/internal/record"
	"github.com/roach88/stagehand/internal/schema"
)

// ExistingRecord is one row returned by a batched existence query:
// the identity of a record already present in the backing store, plus
// the watched field and value it was matched on.
type ExistingRecord struct {
	Identity record.Identity
	Field    string
	Value    any
}

// Finder is the existence-query collaborator. Given a record type and
// candidate values per watched field, it returns matching existing
// records. Called at most once per record type per build session.
type Finder interface {
	FindExisting(ctx context.Context, t record.RecordType, candidates map[string][]any) ([]ExistingRecord, error)
}

// ExternalReference expresses a relationship via a uniquely-valued
// business field on the target instead of a generated identity. It is
// resolved at commit/mock time by scanning sibling builders of the
// target type.
type ExternalReference struct {
	// Field is the relationship field on the source entity.
	Field string

	// TargetType is the record type the relationship points at, derived
	// from the field's declared target.
	TargetType record.RecordType

	// ExternalIDField is the target type's external-id field.
	ExternalIDField string

	// Value is the external-id value to match.
	Value any
}

type discoveryKey struct {
	recordType record.RecordType
	field      string
	value      string // canonical form
}

type syncRule struct {
	target      builder.Builder
	targetField string
}

type syncKey struct {
	source builder.Builder
	field  string
}

// Graph tracks discoverable fields, discovery keys, relation maps,
// external references, and sync rules for one build session.
type Graph struct {
	registry *schema.Registry

	// watched: type -> set of watched field names.
	watched map[record.RecordType]map[string]bool

	// keys: (type, field, canonical value) -> first builder to claim it.
	keys map[discoveryKey]builder.Builder

	// observed: type -> field -> canonical value -> original value.
	// Feeds the batched existence query.
	observed map[record.RecordType]map[string]map[string]any

	// parents: child builder -> relationship field -> parent builder.
	parents map[builder.Builder]map[string]builder.Builder

	// refs: source builder -> recorded external references.
	refs map[builder.Builder][]ExternalReference

	// syncRules: (source, field) -> mirrored (target, field) pairs.
	syncRules map[syncKey][]syncRule

	// syncing guards against mutually-mirrored rules re-firing forever.
	syncing map[syncKey]bool
}

// NewGraph creates an empty discovery graph bound to a registry.
func NewGraph(registry *schema.Registry) *Graph {
	return &Graph{
		registry:  registry,
		watched:   make(map[record.RecordType]map[string]bool),
		keys:      make(map[discoveryKey]builder.Builder),
		observed:  make(map[record.RecordType]map[string]map[string]any),
		parents:   make(map[builder.Builder]map[string]builder.Builder),
		refs:      make(map[builder.Builder][]ExternalReference),
		syncRules: make(map[syncKey][]syncRule),
		syncing:   make(map[syncKey]bool),
	}
}

// SetDiscoverableField adds field to the type's watched set. Idempotent.
func (g *Graph) SetDiscoverableField(t record.RecordType, field string) {
	if g.watched[t] == nil {
		g.watched[t] = make(map[string]bool)
	}
	g.watched[t][field] = true
}

// IsDiscoverable reports whether field is watched for the type.
func (g *Graph) IsDiscoverable(t record.RecordType, field string) bool {
	return g.watched[t][field]
}

// Observe records a field assignment. Assignments to unwatched fields
// are ignored. For watched fields the (type, field, value) key maps to
// the assigning builder; an existing key held by a different builder is
// left untouched (first-seen wins), while the owning builder may
// re-register its own key freely.
func (g *Graph) Observe(b builder.Builder, field string, value any) {
	t := b.GetRecordType()
	if !g.watched[t][field] {
		return
	}

	canonical := record.Canonical(value)
	key := discoveryKey{recordType: t, field: field, value: canonical}
	if existing, ok := g.keys[key]; !ok || existing == b {
		g.keys[key] = b
	} else {
		slog.Debug("discovery key already claimed",
			"type", string(t), "field", field, "value", canonical)
	}

	if g.observed[t] == nil {
		g.observed[t] = make(map[string]map[string]any)
	}
	if g.observed[t][field] == nil {
		g.observed[t][field] = make(map[string]any)
	}
	g.observed[t][field][canonical] = value
}

// DiscoverRelationshipFor looks up the builder registered under the
// (type, field, value) key. A miss is an expected outcome, not an
// error: the second return is false and the caller decides fallback.
func (g *Graph) DiscoverRelationshipFor(t record.RecordType, field string, value any) (builder.Builder, bool) {
	b, ok := g.keys[discoveryKey{recordType: t, field: field, value: record.Canonical(value)}]
	return b, ok
}

// SetParent installs parent as the relationship target for field on
// source. Replacing a different existing parent unregisters the old
// parent and its ancestor chain from the commit set: the last relation
// registered for a field wins. Any sync rule declared for (source,
// field) then mirrors the new parent onto its target.
func (g *Graph) SetParent(source builder.Builder, field string, parent builder.Builder) {
	if g.parents[source] == nil {
		g.parents[source] = make(map[string]builder.Builder)
	}
	if old, ok := g.parents[source][field]; ok && old != parent {
		old.UnregisterIncludingParents()
	}
	g.parents[source][field] = parent

	g.fireSyncRules(source, field, parent)
}

func (g *Graph) fireSyncRules(source builder.Builder, field string, parent builder.Builder) {
	key := syncKey{source: source, field: field}
	if g.syncing[key] {
		return
	}
	rules := g.syncRules[key]
	if len(rules) == 0 {
		return
	}

	g.syncing[key] = true
	defer delete(g.syncing, key)

	for _, rule := range rules {
		g.SetParent(rule.target, rule.targetField, parent)
	}
}

// SyncOnChange declares that whenever source's parent for sourceField
// changes, target's parent for targetField is updated to match. Used to
// keep mirrored relationships consistent across builders that model the
// same conceptual link from two sides.
func (g *Graph) SyncOnChange(source builder.Builder, sourceField string, target builder.Builder, targetField string) {
	key := syncKey{source: source, field: sourceField}
	g.syncRules[key] = append(g.syncRules[key], syncRule{target: target, targetField: targetField})
}

// ParentsOf returns a copy of the relation map for a builder.
func (g *Graph) ParentsOf(b builder.Builder) map[string]builder.Builder {
	src := g.parents[b]
	out := make(map[string]builder.Builder, len(src))
	for field, parent := range src {
		out[field] = parent
	}
	return out
}

// SetReference records an external-id reference on source and returns
// the inferred target type. Fails when field is not a declared
// relationship field of the source type: that is misconfiguration,
// reported and never retried.
func (g *Graph) SetReference(source builder.Builder, field, externalIDField string, value any) (record.RecordType, error) {
	targetType, err := g.registry.RelationshipTarget(source.GetRecordType(), field)
	if err != nil {
		return "", fmt.Errorf("set reference %s.%s: %w", source.GetRecordType(), field, err)
	}
	g.refs[source] = append(g.refs[source], ExternalReference{
		Field:           field,
		TargetType:      targetType,
		ExternalIDField: externalIDField,
		Value:           value,
	})
	return targetType, nil
}

// ReferencesOf returns the external references recorded for a builder.
func (g *Graph) ReferencesOf(b builder.Builder) []ExternalReference {
	refs := g.refs[b]
	out := make([]ExternalReference, len(refs))
	copy(out, refs)
	return out
}

// ResolvePreexisting issues one batched existence query per record type
// that has at least one watched field holding at least one observed
// value, and stamps returned identities onto the matching builders.
//
// Stamping is deliberately conservative: a builder receives an identity
// only when it has none yet and its current field value matches the
// returned value exactly. An identity already set is never overwritten.
func (g *Graph) ResolvePreexisting(ctx context.Context, finder Finder) error {
	for _, t := range g.typesWithObservations() {
		candidates := make(map[string][]any)
		for field, values := range g.observed[t] {
			if !g.watched[t][field] {
				continue
			}
			canonicals := make([]string, 0, len(values))
			for c := range values {
				canonicals = append(canonicals, c)
			}
			sort.Strings(canonicals)
			for _, c := range canonicals {
				candidates[field] = append(candidates[field], values[c])
			}
		}
		if len(candidates) == 0 {
			continue
		}

		existing, err := finder.FindExisting(ctx, t, candidates)
		if err != nil {
			return fmt.Errorf("resolve preexisting %s: %w", t, err)
		}
		slog.Debug("existence query resolved",
			"type", string(t), "fields", len(candidates), "matches", len(existing))

		for _, rec := range existing {
			g.stamp(t, rec)
		}
	}
	return nil
}

func (g *Graph) stamp(t record.RecordType, rec ExistingRecord) {
	key := discoveryKey{recordType: t, field: rec.Field, value: record.Canonical(rec.Value)}
	b, ok := g.keys[key]
	if !ok || b.GetIdentity() != "" {
		return
	}
	current, set := b.GetEntity().Get(rec.Field)
	if !set || record.Canonical(current) != record.Canonical(rec.Value) {
		return
	}
	b.GetEntity().SetIdentity(rec.Identity)
}

// typesWithObservations returns the record types that have recorded
// values, sorted so existence queries run in a stable order.
func (g *Graph) typesWithObservations() []record.RecordType {
	out := make([]record.RecordType, 0, len(g.observed))
	for t := range g.observed {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
