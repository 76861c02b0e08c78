package orchestrator

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vk/nodeflow/internal/dag"
	"github.com/vk/nodeflow/internal/flowerr"
	"github.com/vk/nodeflow/internal/node"
	"github.com/zclconf/go-cty/cty"
)

// Register binds n to id with the optional configuration and adds it to the
// workflow. It fails when id is taken or the node rejects the configuration.
func (o *Orchestrator) Register(id string, n *node.Node, cfg ...cty.Value) error {
	if n == nil {
		return &flowerr.StructuralError{Kind: flowerr.ErrInvalidNode, NodeID: id, Err: errors.New("node is nil")}
	}
	if len(cfg) > 1 {
		return &flowerr.StructuralError{Kind: flowerr.ErrInvalidNode, NodeID: id, Err: fmt.Errorf("expected at most one configuration, got %d", len(cfg))}
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if _, exists := o.nodes[id]; exists {
		return &flowerr.StructuralError{Kind: flowerr.ErrDuplicateNode, NodeID: id}
	}

	c := cty.NilVal
	if len(cfg) == 1 {
		c = cfg[0]
	}
	if err := n.Bind(id, c); err != nil {
		return &flowerr.StructuralError{Kind: flowerr.ErrInvalidNode, NodeID: id, Err: err}
	}

	o.nodes[id] = n
	o.ids = append(o.ids, id)
	o.logger.Debug("Node registered.", "node_id", id, "kind", n.Kind(), "timeout", n.Timeout())
	return nil
}

// Connect adds the edge from -> to: from runs before to. Both ids must be
// registered. Adding an edge that already exists is a no-op. An edge that
// would close a cycle is rejected and not kept.
func (o *Orchestrator) Connect(from, to string) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	for _, id := range []string{from, to} {
		if _, ok := o.nodes[id]; !ok {
			return &flowerr.StructuralError{Kind: flowerr.ErrUnknownNode, NodeID: id}
		}
	}
	if slices.Contains(o.edges[from], to) {
		return nil
	}

	prev, hadKey := o.edges[from]
	o.edges[from] = append(slices.Clone(prev), to)

	if cycles := dag.DetectCycles(o.graphLocked()); len(cycles) > 0 {
		if hadKey {
			o.edges[from] = prev
		} else {
			delete(o.edges, from)
		}
		return &flowerr.StructuralError{Kind: flowerr.ErrCycle, Path: cycles[0]}
	}

	o.logger.Debug("Nodes connected.", "from", from, "to", to)
	return nil
}

// Node returns the node registered under id.
func (o *Orchestrator) Node(id string) (*node.Node, bool) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	n, ok := o.nodes[id]
	return n, ok
}

// Nodes returns the registered ids in registration order.
func (o *Orchestrator) Nodes() []string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return slices.Clone(o.ids)
}

// Edges returns a copy of the edge registry.
func (o *Orchestrator) Edges() map[string][]string {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.graphLocked().Edges
}

// Graph returns a snapshot of the workflow graph.
func (o *Orchestrator) Graph() dag.Graph {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.graphLocked()
}

func (o *Orchestrator) graphLocked() dag.Graph {
	edges := make(map[string][]string, len(o.edges))
	for from, tos := range o.edges {
		edges[from] = slices.Clone(tos)
	}
	return dag.Graph{Nodes: slices.Clone(o.ids), Edges: edges}
}

// Validate checks the structural invariants required to execute: every edge
// references registered nodes, every node takes part in at least one edge,
// and the graph is acyclic.
func (o *Orchestrator) Validate() error {
	return validateGraph(o.Graph())
}

func validateGraph(g dag.Graph) error {
	known := make(map[string]bool, len(g.Nodes))
	for _, id := range g.Nodes {
		known[id] = true
	}
	for _, from := range sortedKeys(g.Edges) {
		for _, id := range append([]string{from}, g.Edges[from]...) {
			if !known[id] {
				return &flowerr.StructuralError{Kind: flowerr.ErrUnknownNode, NodeID: id}
			}
		}
	}

	if isolated := dag.Isolated(g); len(isolated) > 0 {
		return &flowerr.StructuralError{Kind: flowerr.ErrIsolatedNode, NodeID: isolated[0]}
	}

	if cycles := dag.DetectCycles(g); len(cycles) > 0 {
		return &flowerr.StructuralError{Kind: flowerr.ErrCycle, Path: cycles[0]}
	}
	return nil
}

// Order returns the execution order of the current graph.
func (o *Orchestrator) Order() ([]string, error) {
	return order(o.Graph())
}

func order(g dag.Graph) ([]string, error) {
	ids, err := dag.TopologicalSort(g)
	if err != nil {
		var cycleErr *dag.CycleError
		if errors.As(err, &cycleErr) {
			return nil, &flowerr.StructuralError{Kind: flowerr.ErrCycle, Path: cycleErr.Path}
		}
		return nil, err
	}
	return ids, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
