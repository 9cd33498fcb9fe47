package dag

import (
	"errors"
	"reflect"
	"testing"
)

func build(t *testing.T, nodes []uint32, edges [][2]uint32) *Graph[uint32] {
	t.Helper()
	g := New[uint32]()
	for _, n := range nodes {
		g.AddNode(n)
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("AddEdge(%d,%d): %v", e[0], e[1], err)
		}
	}
	return g
}

func TestOrder(t *testing.T) {
	tests := []struct {
		name  string
		nodes []uint32
		edges [][2]uint32
		want  []uint32
	}{
		{"chain", []uint32{1, 2, 3}, [][2]uint32{{1, 2}, {2, 3}}, []uint32{1, 2, 3}},
		{"chain inserted backwards", []uint32{3, 2, 1}, [][2]uint32{{1, 2}, {2, 3}}, []uint32{1, 2, 3}},
		{"mixer fan-in", []uint32{1, 2, 3, 4}, [][2]uint32{{1, 3}, {2, 3}, {3, 4}}, []uint32{1, 2, 3, 4}},
		{"ties keep insertion order", []uint32{10, 30, 20}, [][2]uint32{{10, 20}, {10, 30}}, []uint32{10, 30, 20}},
		{"single", []uint32{7}, nil, []uint32{7}},
		{"empty", nil, nil, []uint32{}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := build(t, tc.nodes, tc.edges).Order()
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !reflect.DeepEqual(got, tc.want) {
				t.Errorf("expected %v, got %v", tc.want, got)
			}
		})
	}
}

func TestOrderDeterministic(t *testing.T) {
	g := build(t, []uint32{5, 1, 4, 2, 3}, [][2]uint32{{5, 4}, {1, 4}, {1, 2}, {2, 3}, {4, 3}})
	first, err := g.Order()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i := 0; i < 50; i++ {
		again, _ := g.Order()
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("order changed between runs: %v vs %v", first, again)
		}
	}
}

func TestCycle(t *testing.T) {
	g := build(t, []uint32{1, 2, 3}, [][2]uint32{{1, 2}, {2, 3}, {3, 2}})
	if _, err := g.Order(); !errors.Is(err, ErrCycle) {
		t.Errorf("expected ErrCycle, got %v", err)
	}
}

func TestAddEdgeUnknownNode(t *testing.T) {
	g := New[uint32]()
	g.AddNode(1)
	if err := g.AddEdge(1, 2); err == nil {
		t.Error("expected error for unknown node")
	}
}

func TestSourcesAndSinks(t *testing.T) {
	g := build(t, []uint32{1, 2, 3, 4}, [][2]uint32{{1, 3}, {2, 3}, {3, 4}})
	if got := g.Sources(); !reflect.DeepEqual(got, []uint32{1, 2}) {
		t.Errorf("expected sources [1 2], got %v", got)
	}
	if got := g.Sinks(); !reflect.DeepEqual(got, []uint32{4}) {
		t.Errorf("expected sinks [4], got %v", got)
	}
}

func TestRemoveEdgeAndNode(t *testing.T) {
	g := build(t, []uint32{1, 2, 3}, [][2]uint32{{1, 2}, {2, 3}})
	if !g.RemoveEdge(1, 2) {
		t.Fatal("expected edge to be removed")
	}
	if g.RemoveEdge(1, 2) {
		t.Error("expected second removal to report false")
	}
	g.RemoveNode(2)
	if g.Has(2) || g.Len() != 2 {
		t.Errorf("expected node 2 removed, nodes=%v", g.Nodes())
	}
	if len(g.Edges()) != 0 {
		t.Errorf("expected edges touching 2 removed, got %v", g.Edges())
	}
	g.AddNode(1)
	if g.Len() != 2 {
		t.Error("re-adding an existing node must be a no-op")
	}
}
