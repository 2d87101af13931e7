package depgraph

import (
	"fmt"
	"sort"

	"github.com/roach88/stagehand/internal/record"
)

// CyclicDependencyError reports that the graph cannot be fully ordered.
// Remaining holds the types still blocked when the sort stalled, sorted
// for stable messages. The error is fatal: it signals a structurally
// invalid relationship declaration, not a transient condition.
type CyclicDependencyError struct {
	Remaining []record.RecordType
}

func (e *CyclicDependencyError) Error() string {
	return fmt.Sprintf("cyclic dependency among record types %v", e.Remaining)
}

// Graph is a directed graph over record types. Edges point from a child
// type to each parent type it depends on.
type Graph struct {
	parents    map[record.RecordType]map[record.RecordType]bool // child -> parents
	dependents map[record.RecordType]map[record.RecordType]bool // parent -> children
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{
		parents:    make(map[record.RecordType]map[record.RecordType]bool),
		dependents: make(map[record.RecordType]map[record.RecordType]bool),
	}
}

// Node registers a type. Adding the same type twice does nothing.
func (g *Graph) Node(t record.RecordType) {
	if _, ok := g.parents[t]; ok {
		return
	}
	g.parents[t] = make(map[record.RecordType]bool)
	g.dependents[t] = make(map[record.RecordType]bool)
}

// Edge records that child must be written after parent. Both endpoints
// are added as nodes if not already present. Self-edges are rejected:
// a type depending on itself (e.g. a parent-account field) is still
// committable within one batch and must not be declared as an edge.
func (g *Graph) Edge(child, parent record.RecordType) error {
	if child == parent {
		return fmt.Errorf("self-referential edge not allowed: %s -> %s", child, parent)
	}
	g.Node(child)
	g.Node(parent)
	g.parents[child][parent] = true
	g.dependents[parent][child] = true
	return nil
}

// Size returns the number of nodes.
func (g *Graph) Size() int {
	return len(g.parents)
}

// Sort returns the types in dependency order: every parent precedes all
// of its children. On a cycle it returns a CyclicDependencyError and no
// partial result.
func (g *Graph) Sort() ([]record.RecordType, error) {
	indegree := make(map[record.RecordType]int, len(g.parents))
	ready := make([]record.RecordType, 0, len(g.parents))
	for t, ps := range g.parents {
		indegree[t] = len(ps)
		if len(ps) == 0 {
			ready = append(ready, t)
		}
	}

	if len(g.parents) > 0 && len(ready) == 0 {
		return nil, &CyclicDependencyError{Remaining: g.sortedTypes(indegree)}
	}

	order := make([]record.RecordType, 0, len(g.parents))
	for len(ready) > 0 {
		t := ready[0]
		ready = ready[1:]
		order = append(order, t)

		for child := range g.dependents[t] {
			indegree[child]--
			if indegree[child] == 0 {
				ready = append(ready, child)
			}
		}
	}

	if len(order) < len(g.parents) {
		remaining := make(map[record.RecordType]int)
		for t, d := range indegree {
			if d > 0 {
				remaining[t] = d
			}
		}
		return nil, &CyclicDependencyError{Remaining: g.sortedTypes(remaining)}
	}

	return order, nil
}

func (g *Graph) sortedTypes(blocked map[record.RecordType]int) []record.RecordType {
	out := make([]record.RecordType, 0, len(blocked))
	for t, d := range blocked {
		if d > 0 {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
