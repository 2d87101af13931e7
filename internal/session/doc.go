// Package session owns the mutable state of one build.
//
// A Session holds the discovery graph, the builder set, and the
// collaborator hooks (existence-query Finder, commit UnitOfWork) for a
// single sequential build. Every builder, narrator, and story
// participating in a build receives the same session by reference.
//
// Sessions are single-owner and must not be shared across overlapping
// builds: later builders depend on discovery results produced by
// earlier ones, so construction is inherently sequential. Create a
// fresh session per build/persist/mock invocation.
package session
