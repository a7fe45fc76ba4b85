package orchestrator

import "testing"

func TestGraphAddEdgeRequiresBothEndpoints(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nodeAttrs{Ecosystem: "go"})
	g.AddNode("b", nodeAttrs{Ecosystem: "go"})

	if !g.AddEdge("a", "b") {
		t.Fatal("AddEdge between two existing nodes should succeed")
	}
	if g.AddEdge("a", "missing") {
		t.Fatal("AddEdge with a dangling endpoint should fail")
	}
	if g.NodeCount() != 2 {
		t.Fatalf("NodeCount() = %d, want 2", g.NodeCount())
	}
	if g.EdgeCount() != 1 {
		t.Fatalf("EdgeCount() = %d, want 1 (dangling edge must not count)", g.EdgeCount())
	}
}

func TestGraphAddNodeOverwritesAttrs(t *testing.T) {
	g := NewGraph()
	g.AddNode("a", nodeAttrs{Ecosystem: "go", Direct: false})
	g.AddNode("a", nodeAttrs{Ecosystem: "go", Direct: true})

	if g.NodeCount() != 1 {
		t.Fatalf("NodeCount() = %d, want 1 after re-adding the same coordinate", g.NodeCount())
	}
	if !g.nodes["a"].Direct {
		t.Fatal("second AddNode call should overwrite the first's attributes")
	}
}

func TestGraphEmpty(t *testing.T) {
	g := NewGraph()
	if g.NodeCount() != 0 || g.EdgeCount() != 0 {
		t.Fatal("a fresh graph should have zero nodes and edges")
	}
	if g.HasNode("anything") {
		t.Fatal("HasNode on an empty graph should always be false")
	}
}
