package builder

import (
	"context"

	"github.com/roach88/stagehand/internal/record"
	"github.com/roach88/stagehand/internal/schema"
)

// Builder is the capability contract every record producer satisfies.
//
// The core treats any implementer uniformly: discovery keys map to
// Builders, relation maps link Builders, the mock store ingests
// Builders, and stories wire Builders together.
type Builder interface {
	// GetEntity returns the single entity this builder owns.
	GetEntity() *record.Entity

	// GetIdentity returns the owned entity's identity, or "" if unset.
	GetIdentity() record.Identity

	// GetRecordType returns the owned entity's record type.
	GetRecordType() record.RecordType

	// IsSetupEntity reports whether the entity targets the
	// setup/configuration partition, which joins the first commit batch.
	IsSetupEntity() bool

	// IsRegistered reports whether the builder is part of the current
	// commit set. Builders start registered; a superseded parent chain
	// is unregistered without being discarded.
	IsRegistered() bool

	// SetField assigns a field value and notifies discovery, so watched
	// fields become lookup keys.
	SetField(field string, value any)

	// SetParent links a relationship field to a parent builder. The
	// parent's identity is stamped into the field at commit/mock time.
	SetParent(field string, parent Builder)

	// SetReference links a relationship field to a target record by the
	// value of the target type's external-id field, resolved by scanning
	// sibling builders at commit/mock time. Returns the inferred target
	// type, or an error when field is not a relationship field.
	SetReference(field, externalIDField string, value any) (record.RecordType, error)

	// RegisterIncludingParents re-adds this builder and its ancestor
	// chain to the commit set.
	RegisterIncludingParents()

	// UnregisterIncludingParents removes this builder and its ancestor
	// chain from the commit set.
	UnregisterIncludingParents()

	// Build finalizes the builder and returns it.
	Build() Builder

	// Persist commits the session's full builder set through the
	// session's unit of work, in dependency order.
	Persist(ctx context.Context) error

	// Mock produces the session's in-memory dataset with synthetic
	// identities and resolved relationships.
	Mock(ctx context.Context) error
}

// Graph is the discovery surface builders talk to. Implemented by
// *discovery.Graph; declared here so builders need not import it.
type Graph interface {
	Observe(b Builder, field string, value any)
	SetParent(source Builder, field string, parent Builder)
	SetReference(source Builder, field, externalIDField string, value any) (record.RecordType, error)
	ParentsOf(b Builder) map[string]Builder
}

// Session is the per-build context builders are created against.
// Implemented by *session.Session.
type Session interface {
	Graph() Graph
	Registry() *schema.Registry

	// Track adds a builder to the session's builder set.
	Track(b Builder)

	Persist(ctx context.Context) error
	Mock(ctx context.Context) error
}
