// Package builder defines the Builder contract and its standard
// implementation.
//
// A Builder owns exactly one entity-to-be-created and mediates every
// interaction between that entity and the build session: field
// assignment (which feeds discovery), parent and external-id linking,
// registration in the commit set, and the build/persist/mock lifecycle.
//
// The Builder interface is the single polymorphic surface consumed by
// discovery, dependency ordering, the mock store, and story
// composition. Wrapper builders that proxy a record defined elsewhere
// implement the same interface and are treated uniformly; nothing in
// the system inspects a builder's concrete type.
package builder
