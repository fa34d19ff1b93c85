package subgraph

import (
	"fmt"
	"testing"

	"github.com/loomgraph/loom/pkg/entity"
	apperrors "github.com/loomgraph/loom/pkg/errors"
)

func newTestLibrary(t *testing.T) (*Library, *Definition) {
	t.Helper()
	lib := NewLibrary()
	def := NewDefinition("Denoise", innerStore(t),
		[]SlotSpec{{Name: "image", Type: "IMAGE"}},
		[]SlotSpec{{Name: "image", Type: "IMAGE"}})
	if err := lib.Add(def); err != nil {
		t.Fatal(err)
	}
	return lib, def
}

func TestInstanceMirrorsInterface(t *testing.T) {
	lib, def := newTestLibrary(t)
	root := entity.New()
	inst, err := lib.Instantiate(root, def.ID(), nil)
	if err != nil {
		t.Fatal(err)
	}

	node := inst.Node()
	if len(node.Inputs) != 1 || node.Inputs[0].Name != "image" {
		t.Fatalf("instance inputs = %+v", node.Inputs)
	}
	if node.Type != def.ID().String() {
		t.Errorf("instance node type = %q, want definition UUID", node.Type)
	}
}

func TestRenamePropagatesToAllInstances(t *testing.T) {
	lib, def := newTestLibrary(t)
	root := entity.New()
	i1, _ := lib.Instantiate(root, def.ID(), nil)
	i2, _ := lib.Instantiate(root, def.ID(), nil)

	if err := def.RenameInput(0, "latent"); err != nil {
		t.Fatal(err)
	}
	for _, inst := range []*Instance{i1, i2} {
		if got := inst.Node().Inputs[0].Name; got != "latent" {
			t.Errorf("instance %d input name = %q, want %q", inst.Node().ID, got, "latent")
		}
	}
}

func TestInterfaceEditReachesEarlierInstances(t *testing.T) {
	lib, def := newTestLibrary(t)
	root := entity.New()
	early, _ := lib.Instantiate(root, def.ID(), nil)

	if _, err := def.AddInput("mask", "MASK"); err != nil {
		t.Fatal(err)
	}
	if len(early.Node().Inputs) != 2 {
		t.Fatal("instance created before the edit did not gain the new input")
	}
	if early.Node().Inputs[1].Name != "mask" {
		t.Errorf("mirrored slot = %+v", early.Node().Inputs[1])
	}
}

func TestRemoveInputCompactsInstanceLinks(t *testing.T) {
	lib := NewLibrary()
	def := NewDefinition("D", innerStore(t),
		[]SlotSpec{{Name: "a", Type: "STRING"}, {Name: "b", Type: "STRING"}}, nil)
	lib.Add(def)

	root := entity.New()
	feeder := &entity.Node{ID: 1, Type: "loader", Outputs: []entity.Slot{{Name: "out", Type: "STRING"}, {Name: "out2", Type: "STRING"}}}
	root.AddNode(feeder)
	inst, err := lib.Instantiate(root, def.ID(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := root.AddLink(1, 0, inst.Node().ID, 0, "STRING"); err != nil {
		t.Fatal(err)
	}
	toB, err := root.AddLink(1, 1, inst.Node().ID, 1, "STRING")
	if err != nil {
		t.Fatal(err)
	}

	if err := def.RemoveInput(0); err != nil {
		t.Fatal(err)
	}
	if root.LinkCount() != 1 {
		t.Fatalf("LinkCount() = %d, want 1 (link into removed slot dropped)", root.LinkCount())
	}
	moved, ok := root.Link(toB.ID)
	if !ok {
		t.Fatal("surviving link disappeared")
	}
	if moved.TargetSlot != 0 {
		t.Errorf("surviving link target slot = %d, want 0", moved.TargetSlot)
	}
	if got, ok := root.IncomingLink(inst.Node().ID, 0); !ok || got.ID != toB.ID {
		t.Error("incoming index out of sync after slot compaction")
	}
}

func TestClosedInstanceStopsMirroring(t *testing.T) {
	lib, def := newTestLibrary(t)
	root := entity.New()
	inst, _ := lib.Instantiate(root, def.ID(), nil)
	inst.Close()

	if err := def.RenameInput(0, "latent"); err != nil {
		t.Fatal(err)
	}
	if inst.Node().Inputs[0].Name != "image" {
		t.Error("closed instance still mirrors definition edits")
	}
}

func TestParseDefinitionRef(t *testing.T) {
	lib, def := newTestLibrary(t)
	_ = lib
	tests := []struct {
		typ  string
		want bool
	}{
		{def.ID().String(), true},
		{"KSampler", false},
		{"", false},
		{"not-a-uuid-but-36-characters-long!!!", false},
	}
	for _, tt := range tests {
		if _, got := ParseDefinitionRef(tt.typ); got != tt.want {
			t.Errorf("ParseDefinitionRef(%q) = %v, want %v", tt.typ, got, tt.want)
		}
	}
}

func TestInnerNodesQualifiesPaths(t *testing.T) {
	lib, inner := newTestLibrary(t)

	// Outer definition containing one instance node of the inner definition.
	outerStore := entity.NewWithBoundaries()
	instNode := &entity.Node{ID: 3, Type: inner.ID().String()}
	outerStore.AddNode(instNode)
	outer := NewDefinition("Outer", outerStore, nil, nil)
	lib.Add(outer)

	root := entity.New()
	inst, err := lib.Instantiate(root, outer.ID(), nil)
	if err != nil {
		t.Fatal(err)
	}

	nodes, err := inst.InnerNodes(lib)
	if err != nil {
		t.Fatal(err)
	}
	// Instance node of the inner definition plus the inner definition's node.
	if len(nodes) != 2 {
		t.Fatalf("InnerNodes() len = %d, want 2", len(nodes))
	}
	wantPrefix := fmt.Sprintf("%d:3", inst.Node().ID)
	if nodes[0].Path.String() != wantPrefix {
		t.Errorf("path[0] = %s, want %s", nodes[0].Path, wantPrefix)
	}
	if nodes[1].Path.String() != wantPrefix+":1" {
		t.Errorf("path[1] = %s, want %s:1", nodes[1].Path, wantPrefix)
	}
}

func TestInnerNodesRejectsSelfReference(t *testing.T) {
	lib := NewLibrary()
	def := NewDefinition("Recursive", entity.NewWithBoundaries(), nil, nil)
	lib.Add(def)
	// Make the definition contain an instance of itself.
	def.Store().AddNode(&entity.Node{ID: 1, Type: def.ID().String()})

	root := entity.New()
	inst, err := lib.Instantiate(root, def.ID(), nil)
	if err != nil {
		t.Fatal(err)
	}
	_, err = inst.InnerNodes(lib)
	if !apperrors.Is(err, apperrors.ErrCodeRecursion) {
		t.Fatalf("InnerNodes() error = %v, want RECURSION", err)
	}
}

func TestInnerNodesRejectsIndirectCycle(t *testing.T) {
	lib := NewLibrary()
	a := NewDefinition("A", entity.NewWithBoundaries(), nil, nil)
	b := NewDefinition("B", entity.NewWithBoundaries(), nil, nil)
	lib.Add(a)
	lib.Add(b)
	a.Store().AddNode(&entity.Node{ID: 1, Type: b.ID().String()})
	b.Store().AddNode(&entity.Node{ID: 1, Type: a.ID().String()})

	root := entity.New()
	inst, _ := lib.Instantiate(root, a.ID(), nil)
	if _, err := inst.InnerNodes(lib); !apperrors.Is(err, apperrors.ErrCodeRecursion) {
		t.Fatalf("InnerNodes() error = %v, want RECURSION", err)
	}
}

func TestInnerNodesMissingDefinitionIsFatal(t *testing.T) {
	lib, def := newTestLibrary(t)
	def.Store().AddNode(&entity.Node{ID: 7, Type: "9b2c77aa-0000-4000-8000-000000000000"})

	root := entity.New()
	inst, _ := lib.Instantiate(root, def.ID(), nil)
	if _, err := inst.InnerNodes(lib); !apperrors.Is(err, apperrors.ErrCodeMissingDefinition) {
		t.Fatalf("InnerNodes() error = %v, want MISSING_DEFINITION", err)
	}
}

// buildChain registers n definitions where definition i contains one
// instance node of definition i+1, and returns the head.
func buildChain(t *testing.T, lib *Library, n int) *Definition {
	t.Helper()
	defs := make([]*Definition, n)
	for i := n - 1; i >= 0; i-- {
		s := entity.NewWithBoundaries()
		if i < n-1 {
			s.AddNode(&entity.Node{ID: 1, Type: defs[i+1].ID().String()})
		}
		defs[i] = NewDefinition(fmt.Sprintf("level-%d", i), s, nil, nil)
		if err := lib.Add(defs[i]); err != nil {
			t.Fatal(err)
		}
	}
	return defs[0]
}

func TestNestingDepthBound(t *testing.T) {
	t.Run("DeepChainSucceeds", func(t *testing.T) {
		lib := NewLibrary()
		head := buildChain(t, lib, 999)
		root := entity.New()
		inst, _ := lib.Instantiate(root, head.ID(), nil)
		if _, err := inst.InnerNodes(lib); err != nil {
			t.Fatalf("999-deep chain should traverse: %v", err)
		}
	})
	t.Run("TooDeepChainFails", func(t *testing.T) {
		lib := NewLibrary()
		head := buildChain(t, lib, 1001)
		root := entity.New()
		inst, _ := lib.Instantiate(root, head.ID(), nil)
		if _, err := inst.InnerNodes(lib); !apperrors.Is(err, apperrors.ErrCodeRecursion) {
			t.Fatalf("1001-deep chain error = %v, want RECURSION", err)
		}
	})
}
