package nodelink

import (
	"strings"
	"testing"

	"github.com/loomgraph/loom/pkg/flatten"
)

func sampleGraph() *flatten.Graph {
	return &flatten.Graph{Nodes: []flatten.Node{
		{ID: "1", Type: "loader"},
		{ID: "3:1", Type: "worker",
			Inputs:  []flatten.Input{{Name: "in", Type: "IMAGE", Origin: "1", Slot: 0}},
			Widgets: map[string]any{"strength": 0.25}},
		{ID: "2", Type: "sink", Title: "Preview",
			Inputs: []flatten.Input{{Name: "in", Type: "IMAGE", Origin: "3:1", Slot: 0}}},
	}}
}

func TestToDOT(t *testing.T) {
	dot := ToDOT(sampleGraph(), Options{})

	for _, want := range []string{
		`digraph G`,
		`"1" [label=`,
		`"3:1" [label=`,
		`subgraph "cluster_3"`,
		`"1" -> "3:1" [label="in"`,
		`"3:1" -> "2" [label="in"`,
		`Preview`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}
	if strings.Contains(dot, "strength") {
		t.Error("widget values leaked into non-detailed labels")
	}
}

func TestToDOTDetailed(t *testing.T) {
	dot := ToDOT(sampleGraph(), Options{Detailed: true})
	if !strings.Contains(dot, "strength: 0.25") {
		t.Errorf("detailed DOT output missing widget values:\n%s", dot)
	}
}

func TestToDOTUnconnectedInputsHaveNoEdges(t *testing.T) {
	g := &flatten.Graph{Nodes: []flatten.Node{
		{ID: "1", Type: "sink", Inputs: []flatten.Input{{Name: "in"}}},
	}}
	dot := ToDOT(g, Options{})
	if strings.Contains(dot, "->") {
		t.Errorf("unconnected input produced an edge:\n%s", dot)
	}
}

func TestToDOTIsDeterministic(t *testing.T) {
	a := ToDOT(sampleGraph(), Options{Detailed: true})
	b := ToDOT(sampleGraph(), Options{Detailed: true})
	if a != b {
		t.Error("DOT output differs across runs")
	}
}
