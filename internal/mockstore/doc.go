// Package mockstore replicates persisted-state semantics in memory.
//
// Instead of committing builders to a real store, the mock store
// assigns synthetic identities, backfills relationship fields from the
// discovery graph's relation maps and external references, and keeps
// the resulting entities in per-type collections with filtered
// retrieval.
//
// Retrieval returns nil (not an empty slice) both when the type is
// unknown and when a filter matches nothing; callers distinguish
// "present but empty" from "absent" by that nil.
package mockstore
