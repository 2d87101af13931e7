package session

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/roach88/stagehand/internal/builder"
	"github.com/roach88/stagehand/internal/depgraph"
	"github.com/roach88/stagehand/internal/discovery"
	"github.com/roach88/stagehand/internal/mockstore"
	"github.com/roach88/stagehand/internal/record"
	"github.com/roach88/stagehand/internal/schema"
)

// Batch is one dependency-ordered slice of the commit set: all
// registered builders of a single record type and partition.
type Batch struct {
	Type     record.RecordType
	Setup    bool
	Builders []builder.Builder
}

// CommitPlan is everything a unit of work needs to persist a session:
// the batches in commit order, the discovery graph carrying relation
// maps and external references, and the full registered builder set for
// external-id scans.
type CommitPlan struct {
	Batches  []Batch
	Graph    *discovery.Graph
	Builders []builder.Builder
}

// UnitOfWork is the commit collaborator. It persists batches in the
// given order, resolves relationship fields from the plan's graph, and
// assigns identities on success. Failures are fatal for the session.
type UnitOfWork interface {
	Commit(ctx context.Context, plan *CommitPlan) error
}

// Session is the per-build context. Zero sharing across builds: every
// session constructs fresh graphs.
type Session struct {
	registry *schema.Registry
	graph    *discovery.Graph
	finder   discovery.Finder
	uow      UnitOfWork
	idgen    mockstore.IdentityGenerator
	builders []builder.Builder
	mock     *mockstore.Store
}

// Option configures a session at construction time.
type Option func(*Session)

// WithFinder installs the existence-query collaborator used by Persist
// to deduplicate against pre-existing records.
func WithFinder(f discovery.Finder) Option {
	return func(s *Session) { s.finder = f }
}

// WithUnitOfWork installs the commit collaborator used by Persist.
func WithUnitOfWork(u UnitOfWork) Option {
	return func(s *Session) { s.uow = u }
}

// WithIdentityGenerator overrides the mock store's identity generator.
func WithIdentityGenerator(g mockstore.IdentityGenerator) Option {
	return func(s *Session) { s.idgen = g }
}

// New creates a session with fresh discovery state.
func New(registry *schema.Registry, opts ...Option) *Session {
	s := &Session{
		registry: registry,
		graph:    discovery.NewGraph(registry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Registry returns the session's type metadata registry.
func (s *Session) Registry() *schema.Registry {
	return s.registry
}

// Graph returns the discovery surface builders report to.
func (s *Session) Graph() builder.Graph {
	return s.graph
}

// Discovery returns the full discovery graph for components that need
// lookups and relation maps, not just the builder-facing surface.
func (s *Session) Discovery() *discovery.Graph {
	return s.graph
}

// Track adds a builder to the session's builder set and registers its
// type's default discoverable fields.
func (s *Session) Track(b builder.Builder) {
	t := b.GetRecordType()
	if info, ok := s.registry.Lookup(t); ok {
		for _, field := range info.Discoverable {
			s.graph.SetDiscoverableField(t, field)
		}
	}
	s.builders = append(s.builders, b)
}

// NewBuilder creates and tracks a standard builder for the type.
func (s *Session) NewBuilder(t record.RecordType) *builder.RecordBuilder {
	return builder.New(s, t)
}

// Builders returns every tracked builder in creation order.
func (s *Session) Builders() []builder.Builder {
	out := make([]builder.Builder, len(s.builders))
	copy(out, s.builders)
	return out
}

// registered returns the tracked builders currently in the commit set.
func (s *Session) registered() []builder.Builder {
	var out []builder.Builder
	for _, b := range s.builders {
		if b.IsRegistered() {
			out = append(out, b)
		}
	}
	return out
}

// Persist commits the registered builder set through the unit of work.
//
// Pipeline: resolve pre-existing records (one batched existence query
// per type, when a finder is configured), derive the type dependency
// graph from the session's relation maps and external references, sort
// it topologically, and hand the ordered batches to the unit of work.
// Setup-partition batches precede regular batches, each internally in
// dependency order.
func (s *Session) Persist(ctx context.Context) error {
	if s.uow == nil {
		return fmt.Errorf("persist: no unit of work configured")
	}

	if s.finder != nil {
		if err := s.graph.ResolvePreexisting(ctx, s.finder); err != nil {
			return fmt.Errorf("persist: %w", err)
		}
	}

	registered := s.registered()
	order, err := s.commitOrder(registered)
	if err != nil {
		return fmt.Errorf("persist: %w", err)
	}

	plan := &CommitPlan{
		Batches:  s.batches(registered, order),
		Graph:    s.graph,
		Builders: registered,
	}
	if err := s.uow.Commit(ctx, plan); err != nil {
		return fmt.Errorf("persist: %w", err)
	}

	slog.Info("session persisted",
		"builders", len(registered), "batches", len(plan.Batches))
	return nil
}

// commitOrder builds the type dependency graph from relation maps and
// external references, then sorts it. Same-type relationships (e.g. a
// contact reporting to another contact) do not create edges: they stay
// within one batch.
func (s *Session) commitOrder(registered []builder.Builder) ([]record.RecordType, error) {
	deps := depgraph.New()
	for _, b := range registered {
		childType := b.GetRecordType()
		deps.Node(childType)
		for _, parent := range s.graph.ParentsOf(b) {
			if parent.GetRecordType() == childType {
				continue
			}
			if err := deps.Edge(childType, parent.GetRecordType()); err != nil {
				return nil, err
			}
		}
		for _, ref := range s.graph.ReferencesOf(b) {
			if ref.TargetType == childType {
				continue
			}
			if err := deps.Edge(childType, ref.TargetType); err != nil {
				return nil, err
			}
		}
	}
	return deps.Sort()
}

// batches groups registered builders into commit batches: all setup
// batches first, then regular batches, each sequence in type
// dependency order. Empty batches are dropped.
func (s *Session) batches(registered []builder.Builder, order []record.RecordType) []Batch {
	byType := make(map[record.RecordType][]builder.Builder)
	for _, b := range registered {
		byType[b.GetRecordType()] = append(byType[b.GetRecordType()], b)
	}

	var batches []Batch
	for _, setup := range []bool{true, false} {
		for _, t := range order {
			var members []builder.Builder
			for _, b := range byType[t] {
				if b.IsSetupEntity() == setup {
					members = append(members, b)
				}
			}
			if len(members) > 0 {
				batches = append(batches, Batch{Type: t, Setup: setup, Builders: members})
			}
		}
	}
	return batches
}

// Mock produces the in-memory dataset for the registered builder set:
// synthetic identities, backfilled relationships, per-type collections.
// The result is available from MockData until the next Mock call.
func (s *Session) Mock(ctx context.Context) error {
	_ = ctx // no I/O: mocking never suspends

	gen := s.idgen
	if gen == nil {
		gen = mockstore.NewUUIDGenerator()
	}
	store := mockstore.NewWithGenerator(gen)

	registered := s.registered()
	store.GenerateIDs(registered)
	store.GenerateRelationships(s.graph, registered)
	store.Ingest(registered)

	s.mock = store
	slog.Debug("session mocked", "builders", len(registered))
	return nil
}

// MockData returns the dataset produced by the last Mock call, or nil.
func (s *Session) MockData() *mockstore.Store {
	return s.mock
}
