package builder

import (
	"context"

	"github.com/roach88/stagehand/internal/record"
)

// RecordBuilder is the standard Builder implementation. It owns a fresh
// entity and reports all field assignments and links to the session's
// discovery graph.
type RecordBuilder struct {
	session    Session
	entity     *record.Entity
	setup      bool
	registered bool
}

// New creates a RecordBuilder for the given type, tracks it in the
// session, and registers the type's default discoverable fields and
// setup partition from the session's registry.
func New(sess Session, t record.RecordType) *RecordBuilder {
	b := &RecordBuilder{
		session:    sess,
		entity:     record.NewEntity(t),
		registered: true,
	}
	if info, ok := sess.Registry().Lookup(t); ok {
		b.setup = info.Setup
	}
	sess.Track(b)
	return b
}

func (b *RecordBuilder) GetEntity() *record.Entity {
	return b.entity
}

func (b *RecordBuilder) GetIdentity() record.Identity {
	return b.entity.Identity()
}

func (b *RecordBuilder) GetRecordType() record.RecordType {
	return b.entity.RecordType()
}

func (b *RecordBuilder) IsSetupEntity() bool {
	return b.setup
}

func (b *RecordBuilder) IsRegistered() bool {
	return b.registered
}

// MarkSetup moves the builder into the setup/configuration partition.
func (b *RecordBuilder) MarkSetup() {
	b.setup = true
}

// SetField assigns the field on the owned entity and reports the
// assignment to discovery, where watched fields become lookup keys.
func (b *RecordBuilder) SetField(field string, value any) {
	b.entity.Set(field, value)
	b.session.Graph().Observe(b, field, value)
}

// SetFields assigns every field in the map. Iteration order is
// irrelevant: field assignments are independent.
func (b *RecordBuilder) SetFields(fields map[string]any) {
	for field, value := range fields {
		b.SetField(field, value)
	}
}

// SetParent installs parent as the relationship target for field.
// Replacing an existing parent unregisters the old parent chain.
func (b *RecordBuilder) SetParent(field string, parent Builder) {
	b.session.Graph().SetParent(b, field, parent)
}

// SetReference records an external-id reference for field. The target
// type is derived from the field's declared relationship target.
func (b *RecordBuilder) SetReference(field, externalIDField string, value any) (record.RecordType, error) {
	return b.session.Graph().SetReference(b, field, externalIDField, value)
}

// RegisterIncludingParents re-adds the builder and its ancestor chain
// to the commit set. Recursion stops at builders already registered,
// which also terminates cyclic parent chains.
func (b *RecordBuilder) RegisterIncludingParents() {
	if b.registered {
		return
	}
	b.registered = true
	for _, parent := range b.session.Graph().ParentsOf(b) {
		parent.RegisterIncludingParents()
	}
}

// UnregisterIncludingParents excludes the builder and its ancestor
// chain from the commit set. The builder and its discovery keys remain
// in the session, so it can still be discovered and re-registered.
func (b *RecordBuilder) UnregisterIncludingParents() {
	if !b.registered {
		return
	}
	b.registered = false
	for _, parent := range b.session.Graph().ParentsOf(b) {
		parent.UnregisterIncludingParents()
	}
}

// Build finalizes the builder. The entity is complete once its fields
// and links are set, so this returns the receiver for chaining.
func (b *RecordBuilder) Build() Builder {
	return b
}

// Persist commits the whole session in dependency order.
func (b *RecordBuilder) Persist(ctx context.Context) error {
	return b.session.Persist(ctx)
}

// Mock produces the session's in-memory dataset.
func (b *RecordBuilder) Mock(ctx context.Context) error {
	return b.session.Mock(ctx)
}
