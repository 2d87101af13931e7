// Package depgraph computes a safe commit order over record types.
//
// Nodes are record types; an edge (child → parent) means the child's
// records must be written after the parent's, because the child carries
// a relationship field that needs the parent's identity. Sort runs
// Kahn's algorithm and fails with a CyclicDependencyError when the
// declared relationships are structurally unsatisfiable.
//
// Tie-breaking among simultaneously-ready types is unspecified: callers
// may rely only on every parent preceding all of its children.
package depgraph
