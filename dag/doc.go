// Package dag orders the nodes of a directed acyclic graph.
//
// Pipelines use it to turn their component connections into a
// deterministic source-to-sink walk order:
//
//	g := dag.New[uint32]()
//	g.AddNode(1); g.AddNode(2)
//	g.AddEdge(1, 2)
//	order, err := g.Order() // [1 2]; a cycle returns ErrCycle
package dag
