// Package story composes builders into named, reusable, relationship-
// aware scenarios.
//
// A Narrative is a fixed persona: it always produces the same
// conceptual record through one builder. A Narrator manages a
// narrative's repeat count and its declared relations. A Story is a
// tree of narrators and sub-stories built in an order that guarantees
// relation targets exist before the relations that point at them are
// resolved: related stories first, then standalone narrators, then
// relation-bearing narrators.
//
// Relations are resolved through the session's discovery graph. A
// relation whose target has not been built in the session is skipped,
// not auto-built: targets must already exist.
package story
