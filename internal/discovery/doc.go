// Package discovery deduplicates builders by watched field values and
// records the relationship structure of a build session.
//
// The graph watches declared fields per record type. Every assignment
// to a watched field registers a (type, field, value) key pointing at
// the assigning builder; the first builder to claim a key keeps it.
// Later lookups through DiscoverRelationshipFor reuse that builder
// instead of creating a duplicate record.
//
// The graph also owns the session's relation maps (child field →
// parent builder), external-id references, and field-synchronization
// rules, and resolves pre-existing records against the backing store
// with one batched existence query per record type.
//
// A graph instance belongs to exactly one build session. Sessions are
// strictly sequential, so the graph does no locking; sharing one graph
// across overlapping sessions is forbidden.
package discovery
