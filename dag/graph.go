package dag

import (
	"errors"
	"fmt"
	"sort"
)

// ErrCycle is returned when the graph is not acyclic.
var ErrCycle = errors.New("dag: cycle detected")

// Graph declares nodes and edges (dependency relationships). Node
// insertion order is kept so that every ordering is deterministic.
type Graph[K comparable] struct {
	nodes []K
	index map[K]int
	edges []Edge[K]
}

// Edge represents a dependency: To depends on From.
type Edge[K comparable] struct {
	From K
	To   K
}

// New creates an empty graph.
func New[K comparable]() *Graph[K] {
	return &Graph[K]{index: make(map[K]int)}
}

// AddNode adds a node. Adding an existing node is a no-op.
func (g *Graph[K]) AddNode(k K) {
	if _, ok := g.index[k]; ok {
		return
	}
	g.index[k] = len(g.nodes)
	g.nodes = append(g.nodes, k)
}

// RemoveNode removes a node and every edge touching it.
func (g *Graph[K]) RemoveNode(k K) {
	i, ok := g.index[k]
	if !ok {
		return
	}
	g.nodes = append(g.nodes[:i], g.nodes[i+1:]...)
	delete(g.index, k)
	for j := i; j < len(g.nodes); j++ {
		g.index[g.nodes[j]] = j
	}
	kept := g.edges[:0]
	for _, e := range g.edges {
		if e.From != k && e.To != k {
			kept = append(kept, e)
		}
	}
	g.edges = kept
}

// AddEdge adds from -> to. Both nodes must exist.
func (g *Graph[K]) AddEdge(from, to K) error {
	if _, ok := g.index[from]; !ok {
		return fmt.Errorf("dag: edge references unknown node %v", from)
	}
	if _, ok := g.index[to]; !ok {
		return fmt.Errorf("dag: edge references unknown node %v", to)
	}
	g.edges = append(g.edges, Edge[K]{From: from, To: to})
	return nil
}

// RemoveEdge removes the first from -> to edge. It reports whether one existed.
func (g *Graph[K]) RemoveEdge(from, to K) bool {
	for i, e := range g.edges {
		if e.From == from && e.To == to {
			g.edges = append(g.edges[:i], g.edges[i+1:]...)
			return true
		}
	}
	return false
}

// Has reports whether k is a node.
func (g *Graph[K]) Has(k K) bool {
	_, ok := g.index[k]
	return ok
}

// Len returns the number of nodes.
func (g *Graph[K]) Len() int { return len(g.nodes) }

// Nodes returns the nodes in insertion order.
func (g *Graph[K]) Nodes() []K {
	return append([]K(nil), g.nodes...)
}

// Edges returns a copy of the edges.
func (g *Graph[K]) Edges() []Edge[K] {
	return append([]Edge[K](nil), g.edges...)
}

// Sources returns nodes without incoming edges, in insertion order.
func (g *Graph[K]) Sources() []K {
	return g.filter(func(in, _ int) bool { return in == 0 })
}

// Sinks returns nodes without outgoing edges, in insertion order.
func (g *Graph[K]) Sinks() []K {
	return g.filter(func(_, out int) bool { return out == 0 })
}

func (g *Graph[K]) filter(keep func(in, out int) bool) []K {
	in := make(map[K]int, len(g.nodes))
	out := make(map[K]int, len(g.nodes))
	for _, e := range g.edges {
		out[e.From]++
		in[e.To]++
	}
	var res []K
	for _, k := range g.nodes {
		if keep(in[k], out[k]) {
			res = append(res, k)
		}
	}
	return res
}

// BuildLevels uses Kahn's algorithm to group nodes by dependency level.
// Within a level nodes keep insertion order. A cycle returns ErrCycle.
func (g *Graph[K]) BuildLevels() ([][]K, error) {
	inDegree := make(map[K]int, len(g.nodes))
	dependents := make(map[K][]K)
	for _, k := range g.nodes {
		inDegree[k] = 0
	}
	for _, e := range g.edges {
		inDegree[e.To]++
		dependents[e.From] = append(dependents[e.From], e.To)
	}

	var queue []K
	for _, k := range g.nodes {
		if inDegree[k] == 0 {
			queue = append(queue, k)
		}
	}

	var levels [][]K
	visited := 0
	for len(queue) > 0 {
		levels = append(levels, queue)
		visited += len(queue)

		var next []K
		for _, k := range queue {
			for _, dep := range dependents[k] {
				inDegree[dep]--
				if inDegree[dep] == 0 {
					next = append(next, dep)
				}
			}
		}
		sort.SliceStable(next, func(i, j int) bool {
			return g.index[next[i]] < g.index[next[j]]
		})
		queue = next
	}

	if visited != len(g.nodes) {
		return nil, fmt.Errorf("%w: processed %d of %d nodes", ErrCycle, visited, len(g.nodes))
	}
	return levels, nil
}

// Order returns the topological order: levels flattened in sequence.
func (g *Graph[K]) Order() ([]K, error) {
	levels, err := g.BuildLevels()
	if err != nil {
		return nil, err
	}
	order := make([]K, 0, len(g.nodes))
	for _, lvl := range levels {
		order = append(order, lvl...)
	}
	return order, nil
}
