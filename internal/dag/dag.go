package dag

import (
	"fmt"
	"slices"
	"sort"
	"strings"
)

// Graph is the read-only view the algorithms operate on. Nodes lists ids in
// registration order and drives the deterministic tie-break between
// independent vertices. Edges maps a source id to its successors in insertion
// order.
type Graph struct {
	Nodes []string
	Edges map[string][]string
}

// CycleError is returned by TopologicalSort when the graph is not acyclic.
// Path lists the vertices of the cycle starting at the revisited ancestor.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	if len(e.Path) == 0 {
		return "cycle detected"
	}
	closed := append(slices.Clone(e.Path), e.Path[0])
	return fmt.Sprintf("cycle detected: %s", strings.Join(closed, " -> "))
}

// vertices returns every id of the graph: registered ids first, then ids that
// only appear as edge endpoints, sorted.
func (g Graph) vertices() []string {
	seen := make(map[string]struct{}, len(g.Nodes))
	out := make([]string, 0, len(g.Nodes))
	for _, id := range g.Nodes {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}

	var extra []string
	add := func(id string) {
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			extra = append(extra, id)
		}
	}
	for from, tos := range g.Edges {
		add(from)
		for _, to := range tos {
			add(to)
		}
	}
	sort.Strings(extra)
	return append(out, extra...)
}

// DetectCycles reports every cycle found by a depth-first traversal started
// from each unvisited vertex. A cycle is recorded whenever a successor is
// still on the traversal stack; it holds the sub-path from that successor to
// the current vertex. The result is empty for an acyclic graph.
func DetectCycles(g Graph) [][]string {
	var cycles [][]string
	visited := make(map[string]bool)
	onStack := make(map[string]bool)
	var path []string

	var visit func(id string)
	visit = func(id string) {
		visited[id] = true
		onStack[id] = true
		path = append(path, id)

		for _, next := range g.Edges[id] {
			if onStack[next] {
				cycles = append(cycles, subPath(path, next))
				continue
			}
			if !visited[next] {
				visit(next)
			}
		}

		path = path[:len(path)-1]
		onStack[id] = false
	}

	for _, id := range g.vertices() {
		if !visited[id] {
			visit(id)
		}
	}
	return cycles
}

// TopologicalSort returns the vertices ordered so that for every edge a -> b,
// a precedes b. Vertices without an ordering constraint between them keep
// their registration order.
func TopologicalSort(g Graph) ([]string, error) {
	vertices := g.vertices()
	done := make(map[string]bool, len(vertices))
	ancestors := make(map[string]bool)
	var path []string
	// Finished vertices are collected in post-order and reversed at the end,
	// which is the same as prepending each one.
	order := make([]string, 0, len(vertices))

	var visit func(id string) error
	visit = func(id string) error {
		if done[id] {
			return nil
		}
		if ancestors[id] {
			return &CycleError{Path: subPath(path, id)}
		}

		ancestors[id] = true
		path = append(path, id)

		succ := g.Edges[id]
		for i := len(succ) - 1; i >= 0; i-- {
			if err := visit(succ[i]); err != nil {
				return err
			}
		}

		path = path[:len(path)-1]
		delete(ancestors, id)
		done[id] = true
		order = append(order, id)
		return nil
	}

	for i := len(vertices) - 1; i >= 0; i-- {
		if err := visit(vertices[i]); err != nil {
			return nil, err
		}
	}

	slices.Reverse(order)
	return order, nil
}

// Isolated returns, in registration order, the registered ids that are
// neither the source nor the target of any edge.
func Isolated(g Graph) []string {
	linked := make(map[string]bool)
	for from, tos := range g.Edges {
		if len(tos) == 0 {
			continue
		}
		linked[from] = true
		for _, to := range tos {
			linked[to] = true
		}
	}

	var out []string
	for _, id := range g.Nodes {
		if !linked[id] {
			out = append(out, id)
		}
	}
	return out
}

// subPath copies path from the first occurrence of start to its end.
func subPath(path []string, start string) []string {
	idx := slices.Index(path, start)
	if idx < 0 {
		return []string{start}
	}
	return slices.Clone(path[idx:])
}
